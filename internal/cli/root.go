package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ClinicFlow2/frontend/internal/app"
)

// globalFlags are shared by every command.
type globalFlags struct {
	configPath string
	prefsPath  string
	ephemeral  bool
	version    string
}

func (g *globalFlags) options() app.Options {
	return app.Options{
		ConfigPath: g.configPath,
		PrefsPath:  g.prefsPath,
		Ephemeral:  g.ephemeral,
		Version:    g.version,
	}
}

// withEnv runs fn with a fully wired environment and releases it after.
func (g *globalFlags) withEnv(fn func(env *app.Env) error) error {
	env, err := app.Setup(g.options())
	if err != nil {
		return err
	}
	defer func() { _ = env.Close() }()
	return fn(env)
}

// NewRootCommand builds the clinicflow command tree.
func NewRootCommand(version string) *cobra.Command {
	g := &globalFlags{version: version}
	var (
		pollSeconds int
		metricsAddr string
	)

	root := &cobra.Command{
		Use:   "clinicflow",
		Short: "Terminal client for the ClinicFlow clinic backend",
		Long: `clinicflow signs in to a ClinicFlow backend and shows patients,
upcoming appointments and prescriptions in a terminal dashboard.

Without a subcommand the dashboard starts. Sessions persist between runs;
an expired access token is renewed transparently and the sign-in screen is
shown only when the refresh token is no longer accepted.

Examples:
  clinicflow
  clinicflow login --username dr.house
  clinicflow patients --search smith`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := g.options()
			opts.PollEvery = pollSeconds
			opts.MetricsAddr = metricsAddr
			return app.Run(cmd.Context(), opts)
		},
	}

	root.PersistentFlags().StringVar(&g.configPath, "config", "", "config file (default ~/.config/clinicflow/config.toml)")
	root.PersistentFlags().StringVar(&g.prefsPath, "prefs", "", "preferences file (default ~/.config/clinicflow/prefs.toml)")
	root.PersistentFlags().BoolVar(&g.ephemeral, "ephemeral", false, "keep tokens in memory only for this run")
	root.Flags().IntVar(&pollSeconds, "poll", 0, "dashboard refresh interval in seconds (default 10)")
	root.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address, e.g. 127.0.0.1:9464")

	root.AddCommand(
		newLoginCommand(g, huhPrompt),
		newLogoutCommand(g),
		newStatusCommand(g),
		newPatientsCommand(g),
		newAppointmentsCommand(g),
		newLogsCommand(g),
		newVersionCommand(version),
	)
	return root
}

// Execute runs the command tree against os.Args.
func Execute(ctx context.Context, version string) error {
	return NewRootCommand(version).ExecuteContext(ctx)
}

func printf(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
