package main

import (
	"github.com/spf13/cobra"
	"github.com/tturner/flowmod/internal/app"
)

type generateFlags struct {
	config       string
	output       string
	packets      uint64
	startIndex   uint64
	workers      int
	flows        []string
	metricsFile  string
	artifactsDir string
	logFile      string
	logFormat    string
	progress     bool
	verbose      bool
	debug        bool
}

func newGenerateCmd() *cobra.Command {
	flags := &generateFlags{}

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Render a playlist to pcap",
		Long: `Render every selected flow of a playlist for a range of iterations and write
the frames to pcap.

Iteration i of a run is the same frame whatever the start index or worker count:
workers position their own copy of the modifier chains at the start of their
slice of the range. With --workers N > 1 each worker writes <output>.w<K>.pcap.`,
		Example: `  # Render the default range of a playlist
  flowmod generate --config flowmod.yaml

  # Render iterations 1000..1999 of the web flows with 4 workers
  flowmod generate --config flowmod.yaml --start-index 1000 --packets 1000 --workers 4 --flows 'web*'`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if handleHelpArg(cmd, args) {
				return nil
			}
			if flags.config == "" {
				return missingFlagError(cmd, "--config")
			}
			opts := app.GenerateOptions{
				ConfigPath:   flags.config,
				Output:       flags.output,
				Packets:      flags.packets,
				Workers:      flags.workers,
				Flows:        flags.flows,
				MetricsFile:  flags.metricsFile,
				ArtifactsDir: flags.artifactsDir,
				LogFile:      flags.logFile,
				LogFormat:    flags.logFormat,
				Progress:     flags.progress,
				Verbose:      flags.verbose,
				Debug:        flags.debug,
			}
			if cmd.Flags().Changed("start-index") {
				opts.StartIndex = &flags.startIndex
			}
			return app.RunGenerate(opts)
		},
	}

	cmd.Flags().StringVar(&flags.config, "config", "", "Playlist YAML file (required)")
	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "Output pcap (overrides output.pcap)")
	cmd.Flags().Uint64Var(&flags.packets, "packets", 0, "Iterations to render (overrides generate.packets)")
	cmd.Flags().Uint64Var(&flags.startIndex, "start-index", 0, "First iteration index (overrides generate.start_index)")
	cmd.Flags().IntVar(&flags.workers, "workers", 0, "Parallel workers (overrides generate.workers)")
	cmd.Flags().StringSliceVar(&flags.flows, "flows", nil, "Glob patterns selecting flows by name (overrides generate.flows)")
	cmd.Flags().StringVar(&flags.metricsFile, "metrics-file", "", "Per-packet metrics CSV (overrides output.metrics_csv)")
	cmd.Flags().StringVar(&flags.artifactsDir, "artifacts-dir", "", "Write run.json and summary.txt here (overrides output.artifacts_dir)")
	cmd.Flags().BoolVar(&flags.progress, "progress", false, "Show a progress bar on stderr")
	cmd.Flags().StringVar(&flags.logFile, "log-file", "", "Log file path")
	cmd.Flags().StringVar(&flags.logFormat, "log-format", "", "Log format: text or json")
	cmd.Flags().BoolVarP(&flags.verbose, "verbose", "v", false, "Enable verbose output")
	cmd.Flags().BoolVar(&flags.debug, "debug", false, "Enable debug output (dumps every frame)")

	return cmd
}
