package modifier

import (
	"fmt"
	"sort"
)

// Mode selects the value strategy of a numeric variable.
type Mode int

const (
	ModeIncrement Mode = iota
	ModeDecrement
	ModeRandom
)

func (m Mode) String() string {
	switch m {
	case ModeIncrement:
		return "increment"
	case ModeDecrement:
		return "decrement"
	case ModeRandom:
		return "random"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// RangeConfig configures a numeric variable. Vectors are big-endian.
// Random variables need only Mask; a Start, when present, salts the seed.
type RangeConfig struct {
	Mode    Mode
	Start   []byte
	Step    []byte
	Mask    []byte
	Stutter int32
	Recycle uint32
}

// TableConfig configures a table variable.
type TableConfig struct {
	Entries [][]byte
	Stutter int32
}

// Link attaches Child as the next digit of Parent within one flow.
type Link struct {
	Parent uint8
	Child  uint8
}

// FlowConfig holds the variables of one flow, keyed by variable index.
type FlowConfig struct {
	Ranges map[uint8]RangeConfig
	Tables map[uint8]TableConfig
	Links  []Link
}

const seedStride = 0x9e3779b9

// SeedSequence hands out seeds to random modifiers during block assembly
// so that no two of them share a stream.
type SeedSequence struct {
	next uint32
}

// NewSeedSequence starts a sequence at base.
func NewSeedSequence(base uint32) *SeedSequence {
	return &SeedSequence{next: base}
}

// Take returns the next seed and advances the sequence.
func (s *SeedSequence) Take() uint32 {
	v := s.next
	s.next += seedStride
	return v
}

// Build constructs a block from an ordered list of flows. Flow i is keyed
// with flow index i. Variables are constructed in ascending index order,
// numeric before table, so seed assignment is reproducible.
func Build(flows []FlowConfig, seeds *SeedSequence) (*Block, error) {
	if seeds == nil {
		seeds = NewSeedSequence(0)
	}
	b := NewBlock()
	for fi, flow := range flows {
		flowIdx := uint16(fi)
		for _, v := range sortedVars(flow.Ranges) {
			key := FlowVarIdx{Flow: flowIdx, Var: v}
			if _, dup := flow.Tables[v]; dup {
				return nil, &ConfigError{Key: key, Err: ErrDuplicateVariable}
			}
			m, err := NewNumericModifier(flow.Ranges[v], seeds)
			if err != nil {
				return nil, &ConfigError{Key: key, Err: err}
			}
			if err := b.Add(key, m); err != nil {
				return nil, err
			}
		}
		for _, v := range sortedVars(flow.Tables) {
			cfg := flow.Tables[v]
			if err := b.Add(FlowVarIdx{Flow: flowIdx, Var: v}, NewTableModifier(cfg.Entries, cfg.Stutter)); err != nil {
				return nil, err
			}
		}
		for _, l := range flow.Links {
			parent := FlowVarIdx{Flow: flowIdx, Var: l.Parent}
			child := FlowVarIdx{Flow: flowIdx, Var: l.Child}
			if err := b.SetChild(parent, child); err != nil {
				return nil, err
			}
		}
	}
	return b, nil
}

func sortedVars[V any](m map[uint8]V) []uint8 {
	vars := make([]uint8, 0, len(m))
	for v := range m {
		vars = append(vars, v)
	}
	sort.Slice(vars, func(i, j int) bool { return vars[i] < vars[j] })
	return vars
}

// NewNumericModifier picks the width from the mask length and builds a
// range or random modifier. Random modifiers take a seed from seeds.
func NewNumericModifier(cfg RangeConfig, seeds *SeedSequence) (Modifier, error) {
	if seeds == nil {
		seeds = NewSeedSequence(0)
	}
	if cfg.Mode != ModeRandom {
		if len(cfg.Start) != len(cfg.Mask) || len(cfg.Step) != len(cfg.Mask) {
			return nil, fmt.Errorf("%w: start=%d step=%d mask=%d",
				ErrLengthMismatch, len(cfg.Start), len(cfg.Step), len(cfg.Mask))
		}
	}
	switch len(cfg.Mask) {
	case 1:
		return newNumeric(Width8, cfg, seeds), nil
	case 2:
		return newNumeric(Width16, cfg, seeds), nil
	case 4:
		return newNumeric(Width32, cfg, seeds), nil
	case 6:
		return newNumeric(Width48, cfg, seeds), nil
	case 8:
		return newNumeric(Width64, cfg, seeds), nil
	case 16:
		return newNumeric(Width128, cfg, seeds), nil
	default:
		return nil, fmt.Errorf("%w: %d bytes", ErrUnsupportedWidth, len(cfg.Mask))
	}
}

func newNumeric[T any](ops Arith[T], cfg RangeConfig, seeds *SeedSequence) Modifier {
	mask := ops.FromBytes(cfg.Mask)
	if cfg.Mode == ModeRandom {
		seed := seeds.Take() ^ seedSalt(cfg.Start)
		return NewRandomModifier(ops, mask, seed, cfg.Stutter, cfg.Recycle)
	}
	step := ops.FromBytes(cfg.Step)
	if cfg.Mode == ModeDecrement {
		step = ops.Neg(step)
	}
	return NewRangeModifier(ops, ops.FromBytes(cfg.Start), step, mask, cfg.Stutter, cfg.Recycle)
}

// seedSalt folds the first four start bytes into a big-endian word.
func seedSalt(start []byte) uint32 {
	if len(start) > 4 {
		start = start[:4]
	}
	var salt uint32
	for _, c := range start {
		salt = salt<<8 | uint32(c)
	}
	return salt
}
