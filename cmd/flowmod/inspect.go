package main

import (
	"github.com/spf13/cobra"
	"github.com/tturner/flowmod/internal/app"
)

type inspectFlags struct {
	config      string
	flows       []string
	samples     int
	startIndex  uint64
	dump        bool
	metricsFile string
}

func newInspectCmd() *cobra.Command {
	flags := &inspectFlags{}

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Show chains, field placement and sample values",
		Long: `Print each selected flow's variable chains (root -> child), where every
variable lands in the base frame, and the hex values it takes over a few
iterations. Optionally dump the first rendered frame or summarize a metrics CSV
from an earlier run.`,
		Example: `  flowmod inspect --config flowmod.yaml --samples 16
  flowmod inspect --config flowmod.yaml --flows dns --dump
  flowmod inspect --config flowmod.yaml --metrics-file run.csv`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if handleHelpArg(cmd, args) {
				return nil
			}
			if flags.config == "" {
				return missingFlagError(cmd, "--config")
			}
			return app.RunInspect(app.InspectOptions{
				ConfigPath:  flags.config,
				Flows:       flags.flows,
				Samples:     flags.samples,
				StartIndex:  flags.startIndex,
				Dump:        flags.dump,
				MetricsFile: flags.metricsFile,
			}, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&flags.config, "config", "", "Playlist YAML file (required)")
	cmd.Flags().StringSliceVar(&flags.flows, "flows", nil, "Glob patterns selecting flows by name")
	cmd.Flags().IntVar(&flags.samples, "samples", 8, "Iterations to sample per variable")
	cmd.Flags().Uint64Var(&flags.startIndex, "start-index", 0, "First sampled iteration")
	cmd.Flags().BoolVar(&flags.dump, "dump", false, "Hex dump the first rendered frame")
	cmd.Flags().StringVar(&flags.metricsFile, "metrics-file", "", "Summarize a metrics CSV written by generate")

	return cmd
}
