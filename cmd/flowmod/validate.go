package main

import (
	"github.com/spf13/cobra"
	"github.com/tturner/flowmod/internal/app"
)

func newValidateConfigCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "validate-config",
		Short: "Validate a playlist and build its modifiers",
		Long: `Load a playlist, check its schema and build every flow's modifier chains and
base frame. Reports unsupported widths, mismatched vectors, duplicate variables
and bad links without writing any traffic.`,
		Example: `  flowmod validate-config --config flowmod.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if handleHelpArg(cmd, args) {
				return nil
			}
			if configPath == "" {
				return missingFlagError(cmd, "--config")
			}
			return app.RunValidate(app.ValidateOptions{ConfigPath: configPath}, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "Playlist YAML file (required)")
	return cmd
}
