package modifier

// RangeModifier produces the arithmetic sequence (start + n*step) & mask
// for n in [0, recycle), holding each value for stutter+1 positions.
type RangeModifier[T any] struct {
	ops    Arith[T]
	start  T
	step   T
	mask   T
	masked bool
	cycle  cycle
	value  T
}

// NewRangeModifier creates a range modifier on the given width engine.
// A negative stutter is treated as 0 and a recycle of 0 as 1.
func NewRangeModifier[T any](ops Arith[T], start, step, mask T, stutter int32, recycle uint32) *RangeModifier[T] {
	m := &RangeModifier[T]{
		ops:    ops,
		start:  start,
		step:   step,
		mask:   mask,
		masked: !ops.Equal(mask, ops.Ones()),
		cycle:  newCycle(recycle, stutter),
	}
	m.refresh()
	return m
}

func (m *RangeModifier[T]) refresh() {
	offset := m.ops.MulU32(m.step, uint32(m.cycle.cursor))
	m.value = m.ops.And(m.ops.Add(m.start, offset), m.mask)
}

func (m *RangeModifier[T]) Next() bool {
	moved, carry := m.cycle.next()
	if moved {
		m.refresh()
	}
	return carry
}

func (m *RangeModifier[T]) SetCursor(pos uint64) uint64 {
	child := m.cycle.set(pos)
	m.refresh()
	return child
}

func (m *RangeModifier[T]) Value(dst []byte, reverse bool) {
	putValue(m.ops, m.value, m.mask, m.masked, dst, reverse)
}

func (m *RangeModifier[T]) Size() int {
	return m.ops.Size()
}

func (m *RangeModifier[T]) Duplicate() Modifier {
	d := *m
	return &d
}

// Current returns the value at the current position.
func (m *RangeModifier[T]) Current() T {
	return m.value
}

// Period returns the number of positions after which the sequence repeats.
func (m *RangeModifier[T]) Period() uint64 {
	return m.cycle.period()
}
