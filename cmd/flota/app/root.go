package app

import (
	"github.com/spf13/cobra"
)

// NewRootCommand builds the flota command tree
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "flota",
		Short:        "Fleet dashboard backend",
		Long:         "flota serves the fleet dashboard API and evaluates vehicle alerts and geofences.",
		SilenceUsage: true,
	}
	cmd.AddCommand(NewServeCommand(), NewEvaluateCommand())
	return cmd
}
