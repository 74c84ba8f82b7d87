package app

import (
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/tturner/flowmod/internal/config"
	"github.com/tturner/flowmod/internal/metrics"
	"github.com/tturner/flowmod/internal/modifier"
	"github.com/tturner/flowmod/internal/synth"
)

type InspectOptions struct {
	ConfigPath  string
	Flows       []string
	Samples     int
	StartIndex  uint64
	Dump        bool
	MetricsFile string
}

// inspectStyles holds the styles of one inspect report, bound to its writer.
type inspectStyles struct {
	title  lipgloss.Style
	header lipgloss.Style
	key    lipgloss.Style
	dim    lipgloss.Style
	value  lipgloss.Style
	box    lipgloss.Style
}

func newInspectStyles(w io.Writer) inspectStyles {
	r := lipgloss.NewRenderer(w)
	return inspectStyles{
		title:  r.NewStyle().Bold(true).Foreground(lipgloss.Color("#7aa2f7")),
		header: r.NewStyle().Bold(true).Foreground(lipgloss.Color("#bb9af7")),
		key:    r.NewStyle().Foreground(lipgloss.Color("#7dcfff")),
		dim:    r.NewStyle().Foreground(lipgloss.Color("#565f89")),
		value:  r.NewStyle().Foreground(lipgloss.Color("#9ece6a")),
		box: r.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#414868")).
			Padding(0, 1),
	}
}

// RunInspect prints chain topology, variable placement and sample values
// for the selected flows of a playlist.
func RunInspect(opts InspectOptions, out io.Writer) error {
	cfg, err := config.LoadConfig(opts.ConfigPath, false)
	if err != nil {
		return err
	}
	patterns := opts.Flows
	if len(patterns) == 0 {
		patterns = cfg.Generate.Flows
	}
	plan, err := NewPlan(cfg, patterns)
	if err != nil {
		return err
	}
	if opts.Samples <= 0 {
		opts.Samples = 8
	}

	st := newInspectStyles(out)
	fmt.Fprintln(out, st.title.Render(fmt.Sprintf("flowmod playlist %s", opts.ConfigPath)))
	fmt.Fprintf(out, "%s %d  %s %d  %s %d\n\n",
		st.key.Render("seed"), cfg.Seed,
		st.key.Render("flows"), len(cfg.Flows),
		st.key.Render("modifiers"), plan.Block.Len())

	for _, tmpl := range plan.Templates {
		fmt.Fprintln(out, st.box.Render(describeFlow(plan, tmpl, opts, st)))
		fmt.Fprintln(out)
	}

	if opts.MetricsFile != "" {
		rows, _, _, err := metrics.ReadMetricsCSV(opts.MetricsFile)
		if err != nil {
			return err
		}
		sink := metrics.NewSink(false)
		for _, m := range rows {
			sink.Record(m)
		}
		fmt.Fprintln(out, st.header.Render("Metrics "+opts.MetricsFile))
		fmt.Fprint(out, metrics.FormatSummary(sink.GetSummary()))
	}
	return nil
}

func describeFlow(plan *Plan, tmpl *synth.Template, opts InspectOptions, st inspectStyles) string {
	var b strings.Builder
	fc := plan.Config.Flows[tmpl.Flow]

	fmt.Fprintf(&b, "%s %s\n", st.header.Render(fmt.Sprintf("flow %d", tmpl.Flow)), st.title.Render(tmpl.Name))
	fmt.Fprintf(&b, "%s %s:%d -> %s:%d %s, base frame %d bytes\n",
		st.dim.Render("frame"), fc.Frame.SrcIP, fc.Frame.SrcPort, fc.Frame.DstIP, fc.Frame.DstPort,
		fc.Frame.Protocol, len(tmpl.Base))

	b.WriteString(st.dim.Render("chains") + "\n")
	for _, chain := range flowChains(plan.Block, tmpl.Flow) {
		parts := make([]string, len(chain))
		for i, key := range chain {
			parts[i] = variableLabel(fc, key.Var)
		}
		fmt.Fprintf(&b, "  %s\n", strings.Join(parts, " -> "))
	}

	block := plan.Block.Clone()
	block.SetCursor(opts.StartIndex)
	samples := make([][]string, len(tmpl.Fields))
	var first []byte
	for i := 0; i < opts.Samples; i++ {
		if i == 0 && opts.Dump {
			frame, end := tmpl.Render(block, nil)
			if fixed, err := synth.RecomputeChecksums(frame[:end]); err == nil {
				frame = fixed
			}
			first = frame
		}
		for j, f := range tmpl.Fields {
			key := tmpl.Key(f)
			v := make([]byte, block.Size(key))
			block.Value(key, v, f.Reverse)
			samples[j] = append(samples[j], hex.EncodeToString(v))
		}
		block.Next()
	}

	regions := synth.Layout(tmpl.Base)
	b.WriteString(st.dim.Render(fmt.Sprintf("variables (iterations %d..%d)", opts.StartIndex, opts.StartIndex+uint64(opts.Samples)-1)) + "\n")
	for j, f := range tmpl.Fields {
		v := variableConfig(fc, f.Var)
		fmt.Fprintf(&b, "  %s %-9s @%-4d %-14s %s\n",
			st.key.Render(variableLabel(fc, f.Var)),
			v.Mode, f.Offset, synth.RegionAt(regions, f.Offset),
			st.value.Render(strings.Join(samples[j], " ")))
	}

	if first != nil {
		b.WriteString(st.dim.Render("first frame") + "\n")
		b.WriteString(strings.TrimSuffix(synth.AnnotatedHexDump(first), "\n"))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// flowChains lists the chains of one flow, each from root to last child.
func flowChains(b *modifier.Block, flow uint16) [][]modifier.FlowVarIdx {
	var chains [][]modifier.FlowVarIdx
	for _, root := range b.Roots() {
		if root.Flow != flow {
			continue
		}
		chain := []modifier.FlowVarIdx{root}
		for key := root; ; {
			child, ok := b.Child(key)
			if !ok {
				break
			}
			chain = append(chain, child)
			key = child
		}
		chains = append(chains, chain)
	}
	return chains
}

func variableConfig(fc config.FlowConfig, idx uint8) config.VariableConfig {
	for _, v := range fc.Variables {
		if v.Index == idx {
			return v
		}
	}
	return config.VariableConfig{Index: idx}
}

func variableLabel(fc config.FlowConfig, idx uint8) string {
	if v := variableConfig(fc, idx); v.Name != "" {
		return fmt.Sprintf("var%d(%s)", idx, v.Name)
	}
	return fmt.Sprintf("var%d", idx)
}
