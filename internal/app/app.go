package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/ClinicFlow2/frontend/internal/clinic"
	"github.com/ClinicFlow2/frontend/internal/config"
	"github.com/ClinicFlow2/frontend/internal/credstore"
	"github.com/ClinicFlow2/frontend/internal/prefs"
	"github.com/ClinicFlow2/frontend/internal/state"
	"github.com/ClinicFlow2/frontend/internal/ui"
)

// Options configure the ClinicFlow application.
type Options struct {
	ConfigPath  string
	PrefsPath   string // empty uses default ~/.config/clinicflow/prefs.toml
	PollEvery   int    // seconds; zero uses default
	MetricsAddr string // empty disables the metrics endpoint
	Ephemeral   bool   // keep tokens in memory only
	Version     string
}

// Env holds the wired components shared by the TUI and the CLI commands.
type Env struct {
	Config   config.Config
	Prefs    prefs.Prefs
	Log      zerolog.Logger
	Client   *clinic.Client
	Registry *prometheus.Registry

	closers []func() error
}

// Setup loads configuration and preferences, opens the log and builds the
// clinic client with its credential store.
func Setup(opts Options) (*Env, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		if errors.Is(err, config.ErrMissingBaseURL) {
			l := stderrLogger()
			l.Error().Err(err).Str("env", config.EnvProduction).Msg("refusing to start without a backend origin")
		}
		return nil, fmt.Errorf("load config: %w", err)
	}

	userPrefs, err := prefs.Load(opts.PrefsPath)
	if err != nil {
		return nil, fmt.Errorf("load prefs: %w", err)
	}

	log, closeLog, err := newLogger(cfg.LogFile, cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	env := &Env{Config: cfg, Prefs: userPrefs, Log: log, closers: []func() error{closeLog}}

	if cfg.BaseURLDefaulted {
		log.Warn().Str("base_url", cfg.APIBaseURL).Msg("api_base_url not set; using development default")
	}
	if !cfg.IsProduction() {
		log.Debug().Str("base_url", cfg.APIBaseURL).Msg("api base url")
	}

	origin, err := credstore.Origin(cfg.APIBaseURL)
	if err != nil {
		_ = env.Close()
		return nil, fmt.Errorf("resolve origin: %w", err)
	}
	credCfg := cfg.Credentials
	if opts.Ephemeral {
		credCfg.Backend = config.BackendMemory
	}
	store, err := credstore.New(credCfg, origin)
	if err != nil {
		_ = env.Close()
		return nil, fmt.Errorf("init credential store: %w", err)
	}
	if rs, ok := store.(*credstore.RedisStore); ok {
		env.closers = append(env.closers, rs.Close)
	}

	env.Registry = newRegistry()
	client, err := clinic.NewClient(cfg.APIBaseURL, store,
		clinic.WithLogger(log.With().Str("component", "clinic").Logger()),
		clinic.WithUserAgent(userAgent(opts.Version)),
		clinic.WithLanguage(userPrefs.Language),
		clinic.WithAuthBasePath(cfg.AuthBasePath),
		clinic.WithRequestTimeout(cfg.RequestTimeout),
		clinic.WithRefreshTimeout(cfg.RefreshTimeout),
		clinic.WithRegisterer(env.Registry),
	)
	if err != nil {
		_ = env.Close()
		return nil, fmt.Errorf("init clinic client: %w", err)
	}
	env.Client = client
	return env, nil
}

// Close releases the log file and any store connections.
func (e *Env) Close() error {
	var errs []error
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	e.closers = nil
	return errors.Join(errs...)
}

// Run boots the ClinicFlow TUI until the context is cancelled.
func Run(ctx context.Context, opts Options) error {
	env, err := Setup(opts)
	if err != nil {
		return err
	}
	defer func() { _ = env.Close() }()

	if opts.MetricsAddr != "" {
		serveMetrics(ctx, opts.MetricsAddr, env.Registry, env.Log)
	}

	store := &state.Store{}
	cancelListener := env.Client.OnSessionExpired(func(err error) {
		env.Log.Warn().Err(err).Msg("session expired; sign-in required")
		store.MarkSessionExpired(err)
	})
	defer cancelListener()

	interval := defaultPollInterval
	if opts.PollEvery > 0 {
		interval = time.Duration(opts.PollEvery) * time.Second
	}

	poller := NewPoller(store, env.Client, interval, env.Prefs.PageSize, env.Log)
	poller.Start(ctx)

	uiOpts := ui.Options{
		Context:   ctx,
		Client:    env.Client,
		Store:     store,
		Refresh:   poller.Wake,
		PollTick:  time.Second,
		Prefs:     env.Prefs,
		PrefsPath: opts.PrefsPath,
		BaseURL:   env.Config.APIBaseURL,
		Log:       env.Log.With().Str("component", "ui").Logger(),
	}
	return ui.Run(uiOpts)
}

func userAgent(version string) string {
	if version == "" {
		version = "dev"
	}
	return "clinicflow/" + version
}
