package main

import (
	"github.com/spf13/cobra"
	"github.com/tturner/flowmod/internal/app"
)

func newInitConfigCmd() *cobra.Command {
	opts := app.InitConfigOptions{}

	cmd := &cobra.Command{
		Use:     "init-config",
		Short:   "Write a default playlist",
		Example: `  flowmod init-config --output flowmod.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if handleHelpArg(cmd, args) {
				return nil
			}
			return app.RunInitConfig(opts, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&opts.Path, "output", "o", "flowmod.yaml", "Playlist file to write")
	cmd.Flags().BoolVar(&opts.Force, "force", false, "Overwrite an existing file")
	return cmd
}
