package modifier

// RandomModifier produces a seeded pseudo-random sequence of count
// distinct positions, holding each value for stutter+1 positions.
//
// The value at value index c is drawn from a generator seeded with
// c ^ seed, so SetCursor lands on exactly the value sequential Next calls
// would have produced, in constant time.
type RandomModifier[T any] struct {
	ops    Arith[T]
	mask   T
	masked bool
	seed   uint32
	cycle  cycle
	value  T
}

// NewRandomModifier creates a random modifier on the given width engine.
// A count of 0 is treated as 1, which yields a constant generator.
func NewRandomModifier[T any](ops Arith[T], mask T, seed uint32, stutter int32, count uint32) *RandomModifier[T] {
	m := &RandomModifier[T]{
		ops:    ops,
		mask:   mask,
		masked: !ops.Equal(mask, ops.Ones()),
		seed:   seed,
		cycle:  newCycle(count, stutter),
	}
	m.refresh()
	return m
}

func (m *RandomModifier[T]) refresh() {
	g := newLCG(uint32(m.cycle.cursor) ^ m.seed)
	m.value = m.ops.And(m.ops.Draw(&g), m.mask)
}

func (m *RandomModifier[T]) Next() bool {
	moved, carry := m.cycle.next()
	if moved {
		m.refresh()
	}
	return carry
}

func (m *RandomModifier[T]) SetCursor(pos uint64) uint64 {
	child := m.cycle.set(pos)
	m.refresh()
	return child
}

func (m *RandomModifier[T]) Value(dst []byte, reverse bool) {
	putValue(m.ops, m.value, m.mask, m.masked, dst, reverse)
}

func (m *RandomModifier[T]) Size() int {
	return m.ops.Size()
}

func (m *RandomModifier[T]) Duplicate() Modifier {
	d := *m
	return &d
}

// Current returns the value at the current position.
func (m *RandomModifier[T]) Current() T {
	return m.value
}

// Seed returns the effective seed after salting.
func (m *RandomModifier[T]) Seed() uint32 {
	return m.seed
}
