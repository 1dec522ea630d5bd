// Package app is the composition root of ClinicFlow.
//
// Setup turns configuration into a ready clinic client:
//
//  1. Load ~/.config/clinicflow/config.toml and environment overrides
//  2. Load UI preferences
//  3. Open the JSON log file (the TUI owns the terminal)
//  4. Build the credential store scoped to the backend origin
//  5. Build the clinic client with a Prometheus registry
//
// Run adds the long-lived pieces on top and blocks in the TUI:
//
//	┌──────────────┐
//	│   Run()      │
//	└──────┬───────┘
//	       ├─────> Setup()              config, log, store, client
//	       ├─────> serveMetrics()       optional /metrics endpoint
//	       ├─────> OnSessionExpired()   marks the state store
//	       ├─────> Poller.Start()       background dashboard refresh
//	       └─────> ui.Run()             blocks until quit
//
// # Polling
//
// Each cycle fetches the first page of patients and the upcoming
// appointments at the same time. When the access token has expired both
// calls receive 401 together and share a single token refresh inside the
// client. A failed cycle keeps the last data on screen and the next cycle is
// delayed, doubling per consecutive failure up to 30 seconds. Without a
// stored session the poller does nothing until the user signs in.
//
// # Errors
//
// Configuration problems are returned from Setup; in production a missing
// backend origin is also logged to stderr so it is visible before the TUI
// starts. Poll failures are logged and shown in the header, never fatal.
package app
