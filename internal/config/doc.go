// Package config loads the ClinicFlow client configuration.
//
// # Overview
//
// The client needs one thing above all: the origin of the clinic backend.
// Everything else (auth path prefix, timeouts, logging, where credentials
// live) has a sensible default.
//
// # Configuration Discovery
//
// The Load function follows this resolution order:
//
//  1. If a path is explicitly provided, use it
//  2. Otherwise, use ~/.config/clinicflow/config.toml (default)
//  3. If the config file doesn't exist, start from defaults
//  4. Apply environment overrides
//
// # Environment Overrides
//
//   - CLINICFLOW_API_BASE_URL: backend origin
//   - CLINICFLOW_API_URL: backend origin, consulted when the first is unset
//   - CLINICFLOW_ENV: development or production
//
// # Base URL Policy
//
// The base URL is trimmed and trailing slashes are removed. When it is
// missing:
//
//   - production: Load returns ErrMissingBaseURL. Callers must surface it
//     loudly and refuse to start.
//   - development: http://127.0.0.1:8000 is used and BaseURLDefaulted is set
//     so the caller can log a warning.
//
// # TOML Format
//
//	api_base_url = "https://api.clinic.example"
//	auth_base_path = "/api/auth"
//	env = "production"
//	request_timeout = 15
//	refresh_timeout = 30
//	log_file = "~/.local/state/clinicflow/clinicflow.log"
//	log_level = "info"
//
//	[credentials]
//	backend = "file"          # file, memory or redis
//	path = "~/.config/clinicflow/credentials.toml"
//	redis_addr = "127.0.0.1:6379"
//	redis_db = 0
//
// All fields are optional. Tilde expansion is performed on paths.
package config
