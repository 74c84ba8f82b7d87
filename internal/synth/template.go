package synth

import (
	"fmt"

	"github.com/tturner/flowmod/internal/config"
	"github.com/tturner/flowmod/internal/modifier"
)

// Field places one flow variable in the frame.
type Field struct {
	Name    string
	Var     uint8
	Offset  int
	Reverse bool
}

// Template is the base frame of one flow plus its variable placements.
// Templates are read-only after construction and may be shared by workers.
type Template struct {
	Name   string
	Flow   uint16
	Base   []byte
	Fields []Field
	end    int
}

// NewTemplate builds the base frame for spec.
func NewTemplate(name string, flow uint16, spec FrameSpec, fields []Field) (*Template, error) {
	base, err := BuildFrame(spec)
	if err != nil {
		return nil, err
	}
	for _, f := range fields {
		if f.Offset < 0 {
			return nil, fmt.Errorf("variable %d: negative offset %d", f.Var, f.Offset)
		}
	}
	return &Template{
		Name:   name,
		Flow:   flow,
		Base:   base,
		Fields: fields,
		end:    spec.DatagramEnd(),
	}, nil
}

// TemplateFromConfig builds the template of playlist flow index flow.
func TemplateFromConfig(flow uint16, fc config.FlowConfig) (*Template, error) {
	spec, err := FrameSpecFromConfig(fc.Frame)
	if err != nil {
		return nil, fmt.Errorf("flow %s: %w", fc.Name, err)
	}
	fields := make([]Field, 0, len(fc.Variables))
	for _, v := range fc.Variables {
		fields = append(fields, Field{Name: v.Name, Var: v.Index, Offset: v.Offset, Reverse: v.Reverse})
	}
	t, err := NewTemplate(fc.Name, flow, spec, fields)
	if err != nil {
		return nil, fmt.Errorf("flow %s: %w", fc.Name, err)
	}
	return t, nil
}

// Key returns the block key of field f.
func (t *Template) Key(f Field) modifier.FlowVarIdx {
	return modifier.FlowVarIdx{Flow: t.Flow, Var: f.Var}
}

// Render copies the base frame into dst and writes every field's current
// value at its offset, zero-extending the frame when a value runs past its
// end. It returns the frame and the end of the IP datagram, which grows
// with any field written beyond the base datagram.
func (t *Template) Render(b *modifier.Block, dst []byte) ([]byte, int) {
	dst = append(dst[:0], t.Base...)
	end := t.end
	for _, f := range t.Fields {
		key := t.Key(f)
		size := b.Size(key)
		if size == 0 {
			continue
		}
		stop := f.Offset + size
		if stop > len(dst) {
			dst = append(dst, make([]byte, stop-len(dst))...)
		}
		if stop > end {
			end = stop
		}
		b.Value(key, dst[f.Offset:stop], f.Reverse)
	}
	return dst, end
}
