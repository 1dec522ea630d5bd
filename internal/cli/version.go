package cli

import (
	"github.com/common-nighthawk/go-figure"
	"github.com/spf13/cobra"
)

func newVersionCommand(version string) *cobra.Command {
	var short bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			if version == "" {
				version = "dev"
			}
			out := cmd.OutOrStdout()
			if !short {
				banner := figure.NewFigure("clinicflow", "cybermedium", true)
				printf(out, "%s\n", banner.String())
			}
			printf(out, "clinicflow %s\n", version)
		},
	}
	cmd.Flags().BoolVar(&short, "short", false, "print only the version line")
	return cmd
}
