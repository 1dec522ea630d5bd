package cli

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ClinicFlow2/frontend/internal/config"
	"github.com/ClinicFlow2/frontend/internal/logtail"
)

func newLogsCommand(g *globalFlags) *cobra.Command {
	var (
		lines int
		level string
	)

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the end of the client log",
		Long: `Show the most recent entries of the clinicflow log file. The dashboard
owns the terminal while it runs, so requests, token refreshes and session
expiry are only visible here.

Examples:
  clinicflow logs
  clinicflow logs -n 50 --level warn`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			min, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
			if err != nil {
				return fmt.Errorf("invalid level %q: %w", level, err)
			}
			if min == zerolog.NoLevel {
				min = zerolog.TraceLevel
			}
			cfg, err := config.Load(g.configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			out := cmd.OutOrStdout()
			if cfg.LogFile == "" {
				printf(out, "Logging is disabled.\n")
				return nil
			}
			entries, err := logtail.Tail(cfg.LogFile, lines)
			if err != nil {
				return err
			}
			shown := 0
			for _, e := range entries {
				if !e.AtLeast(min) {
					continue
				}
				printf(out, "%s\n", logtail.Format(e))
				shown++
			}
			if shown == 0 {
				printf(out, "No log entries in %s.\n", cfg.LogFile)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&lines, "lines", "n", 200, "number of lines to read from the end of the file")
	cmd.Flags().StringVar(&level, "level", "debug", "minimum level to show")
	return cmd
}
