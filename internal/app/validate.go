package app

import (
	"fmt"
	"io"
	"os"

	"github.com/tturner/flowmod/internal/config"
	flowmodErrors "github.com/tturner/flowmod/internal/errors"
)

type ValidateOptions struct {
	ConfigPath string
}

// RunValidate loads a playlist and builds every flow's modifiers and
// templates without rendering anything.
func RunValidate(opts ValidateOptions, out io.Writer) error {
	cfg, err := config.LoadConfig(opts.ConfigPath, false)
	if err != nil {
		return err
	}
	plan, err := NewPlan(cfg, []string{"*"})
	if err != nil {
		return err
	}

	chains := 0
	for _, tmpl := range plan.Templates {
		chains += len(flowChains(plan.Block, tmpl.Flow))
	}
	fmt.Fprintf(out, "Config valid: %d flows, %d variables, %d chains\n", len(cfg.Flows), plan.Block.Len(), chains)
	return nil
}

// InitConfigOptions controls init-config.
type InitConfigOptions struct {
	Path  string
	Force bool
}

// RunInitConfig writes the default playlist.
func RunInitConfig(opts InitConfigOptions, out io.Writer) error {
	if !opts.Force {
		if _, err := os.Stat(opts.Path); err == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", opts.Path)
		}
	}
	if err := config.WriteDefaultConfig(opts.Path); err != nil {
		return flowmodErrors.WrapOutputError(err, opts.Path)
	}
	fmt.Fprintf(out, "Wrote default playlist to %s\n", opts.Path)
	return nil
}
