package app

import (
	stderrors "errors"
	"fmt"

	"github.com/gobwas/glob"

	"github.com/tturner/flowmod/internal/config"
	flowmodErrors "github.com/tturner/flowmod/internal/errors"
	"github.com/tturner/flowmod/internal/modifier"
	"github.com/tturner/flowmod/internal/synth"
)

// Plan is a playlist ready to render: one block holding every flow's
// chains plus the templates of the selected flows.
type Plan struct {
	Config    *config.Config
	Block     *modifier.Block
	Templates []*synth.Template
}

// NewPlan builds the block for every flow in cfg and templates for the
// flows matching patterns. Unselected flows stay in the block so seeds
// do not depend on the selection.
func NewPlan(cfg *config.Config, patterns []string) (*Plan, error) {
	flows, err := config.ModifierFlows(cfg)
	if err != nil {
		return nil, err
	}
	block, err := modifier.Build(flows, modifier.NewSeedSequence(cfg.Seed))
	if err != nil {
		return nil, flowmodErrors.WrapBuildError(err, buildErrorFlow(cfg, err))
	}

	names := make([]string, len(cfg.Flows))
	for i, f := range cfg.Flows {
		names[i] = f.Name
	}
	selected, err := SelectFlows(names, patterns)
	if err != nil {
		return nil, err
	}
	if len(selected) == 0 {
		return nil, fmt.Errorf("no flows match %v", patterns)
	}

	plan := &Plan{Config: cfg, Block: block}
	for _, idx := range selected {
		tmpl, err := synth.TemplateFromConfig(uint16(idx), cfg.Flows[idx])
		if err != nil {
			return nil, err
		}
		plan.Templates = append(plan.Templates, tmpl)
	}
	return plan, nil
}

// SelectFlows returns the indices of names matching any pattern, in
// playlist order. No patterns selects everything.
func SelectFlows(names []string, patterns []string) ([]int, error) {
	if len(patterns) == 0 {
		patterns = []string{"*"}
	}
	matchers := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid flow pattern '%s': %w", p, err)
		}
		matchers = append(matchers, g)
	}

	var selected []int
	for i, name := range names {
		for _, g := range matchers {
			if g.Match(name) {
				selected = append(selected, i)
				break
			}
		}
	}
	return selected, nil
}

func buildErrorFlow(cfg *config.Config, err error) string {
	var ce *modifier.ConfigError
	if stderrors.As(err, &ce) && int(ce.Key.Flow) < len(cfg.Flows) {
		return cfg.Flows[ce.Key.Flow].Name
	}
	return "unknown"
}
