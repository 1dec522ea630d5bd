package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Environment names accepted by the env setting.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Credential backends.
const (
	BackendFile   = "file"
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// ErrMissingBaseURL is returned by Load when a production configuration has
// no backend origin. Production must never fall back to a guessed origin.
var ErrMissingBaseURL = errors.New("missing API base URL: set api_base_url or CLINICFLOW_API_BASE_URL")

// Config captures everything the client needs to reach the clinic backend.
type Config struct {
	APIBaseURL     string
	AuthBasePath   string
	Env            string
	RequestTimeout time.Duration
	RefreshTimeout time.Duration
	LogFile        string
	LogLevel       string
	Credentials    Credentials

	// BaseURLDefaulted is set when APIBaseURL was not configured and the
	// development default was used instead.
	BaseURLDefaulted bool
}

// Credentials selects where the session tokens are persisted.
type Credentials struct {
	Backend   string
	Path      string
	RedisAddr string
	RedisDB   int
}

const (
	defaultConfigPath      = "~/.config/clinicflow/config.toml"
	defaultCredentialsPath = "~/.config/clinicflow/credentials.toml"
	defaultLogFile         = "~/.local/state/clinicflow/clinicflow.log"
	defaultDevBaseURL      = "http://127.0.0.1:8000"
	defaultAuthBasePath    = "/api/auth"
	defaultLogLevel        = "info"
	defaultRedisAddr       = "127.0.0.1:6379"
	defaultRequestTimeout  = 15 * time.Second
	defaultRefreshTimeout  = 30 * time.Second
)

// Environment variables consulted after the config file. The first non-empty
// base URL variable wins.
const (
	envBaseURL     = "CLINICFLOW_API_BASE_URL"
	envBaseURLAlt  = "CLINICFLOW_API_URL"
	envEnvironment = "CLINICFLOW_ENV"
)

type rawConfig struct {
	APIBaseURL     string `toml:"api_base_url"`
	AuthBasePath   string `toml:"auth_base_path"`
	Env            string `toml:"env"`
	RequestTimeout int    `toml:"request_timeout"`
	RefreshTimeout int    `toml:"refresh_timeout"`
	LogFile        string `toml:"log_file"`
	LogLevel       string `toml:"log_level"`
	Credentials    struct {
		Backend   string `toml:"backend"`
		Path      string `toml:"path"`
		RedisAddr string `toml:"redis_addr"`
		RedisDB   int    `toml:"redis_db"`
	} `toml:"credentials"`
}

// Load locates and parses the config file, falling back to defaults when it
// is missing, then applies environment overrides.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	var raw rawConfig
	file, err := os.Open(resolved)
	switch {
	case err == nil:
		defer file.Close()
		bytes, err := io.ReadAll(file)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := toml.Unmarshal(bytes, &raw); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return Config{}, fmt.Errorf("open config: %w", err)
	}

	return build(raw)
}

func build(raw rawConfig) (Config, error) {
	cfg := Config{
		APIBaseURL:     raw.APIBaseURL,
		AuthBasePath:   strings.TrimSpace(raw.AuthBasePath),
		Env:            strings.ToLower(strings.TrimSpace(raw.Env)),
		RequestTimeout: seconds(raw.RequestTimeout, defaultRequestTimeout),
		RefreshTimeout: seconds(raw.RefreshTimeout, defaultRefreshTimeout),
		LogLevel:       strings.ToLower(strings.TrimSpace(raw.LogLevel)),
		Credentials: Credentials{
			Backend:   strings.ToLower(strings.TrimSpace(raw.Credentials.Backend)),
			RedisAddr: strings.TrimSpace(raw.Credentials.RedisAddr),
			RedisDB:   raw.Credentials.RedisDB,
		},
	}

	if v := firstNonEmpty(os.Getenv(envBaseURL), os.Getenv(envBaseURLAlt)); v != "" {
		cfg.APIBaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv(envEnvironment)); v != "" {
		cfg.Env = strings.ToLower(v)
	}

	switch cfg.Env {
	case "", "dev", EnvDevelopment:
		cfg.Env = EnvDevelopment
	case "prod", EnvProduction:
		cfg.Env = EnvProduction
	default:
		return Config{}, fmt.Errorf("invalid env %q: want %s or %s", cfg.Env, EnvDevelopment, EnvProduction)
	}

	cfg.APIBaseURL = NormalizeBaseURL(cfg.APIBaseURL)
	if cfg.APIBaseURL == "" {
		if cfg.IsProduction() {
			return Config{}, ErrMissingBaseURL
		}
		cfg.APIBaseURL = defaultDevBaseURL
		cfg.BaseURLDefaulted = true
	}

	if cfg.AuthBasePath == "" {
		cfg.AuthBasePath = defaultAuthBasePath
	}
	cfg.AuthBasePath = "/" + strings.Trim(cfg.AuthBasePath, "/")

	if cfg.LogLevel == "" {
		cfg.LogLevel = defaultLogLevel
	}
	cfg.LogFile = mustExpand(firstNonEmpty(raw.LogFile, defaultLogFile))

	switch cfg.Credentials.Backend {
	case "":
		cfg.Credentials.Backend = BackendFile
	case BackendFile, BackendMemory, BackendRedis:
	default:
		return Config{}, fmt.Errorf("invalid credentials backend %q", cfg.Credentials.Backend)
	}
	cfg.Credentials.Path = mustExpand(firstNonEmpty(raw.Credentials.Path, defaultCredentialsPath))
	if cfg.Credentials.RedisAddr == "" {
		cfg.Credentials.RedisAddr = defaultRedisAddr
	}

	return cfg, nil
}

// IsProduction reports whether the config targets a production backend.
func (c Config) IsProduction() bool {
	return c.Env == EnvProduction
}

// NormalizeBaseURL trims whitespace and trailing slashes.
func NormalizeBaseURL(raw string) string {
	return strings.TrimRight(strings.TrimSpace(raw), "/")
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	return defaultConfigPath
}

func seconds(v int, fallback time.Duration) time.Duration {
	if v <= 0 {
		return fallback
	}
	return time.Duration(v) * time.Second
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return ExpandPath(defaultConfigPath)
	}
	return ExpandPath(path)
}

func mustExpand(path string) string {
	expanded, err := ExpandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

// ExpandPath resolves a leading ~ and returns an absolute path.
func ExpandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
