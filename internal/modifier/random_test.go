package modifier

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tturner/flowmod/internal/wideint"
)

func TestRandomModifierRandomAccessMatchesSequential(t *testing.T) {
	seq := NewRandomModifier(Width32, 0xffffffff, 0xdeadbeef, 1, 9)
	jump := seq.Duplicate().(*RandomModifier[uint32])
	for p := uint64(0); p < 200; p++ {
		jump.SetCursor(p)
		require.Equal(t, seq.Current(), jump.Current(), "pos %d", p)
		seq.Next()
	}
}

func TestRandomModifierPeriodAndStutter(t *testing.T) {
	m := NewRandomModifier(Width64, ^uint64(0), 42, 2, 5)
	values := collect[uint64](m, 30)
	for p := 0; p < 15; p++ {
		require.Equal(t, values[p], values[p+15], "pos %d", p)
	}
	for p := 0; p < 15; p += 3 {
		require.Equal(t, values[p], values[p+1])
		require.Equal(t, values[p], values[p+2])
	}
}

func TestRandomModifierCarry(t *testing.T) {
	m := NewRandomModifier(Width16, 0xffff, 1, 0, 3)
	require.False(t, m.Next())
	require.False(t, m.Next())
	require.True(t, m.Next())
}

func TestRandomModifierZeroCountIsConstant(t *testing.T) {
	m := NewRandomModifier(Width32, 0xffffffff, 99, 0, 0)
	first := m.Current()
	for i := 0; i < 10; i++ {
		require.True(t, m.Next())
		require.Equal(t, first, m.Current())
	}
	require.Equal(t, uint64(7), m.SetCursor(7))
}

func TestRandomModifierMask(t *testing.T) {
	m := NewRandomModifier(Width48, wideint.Uint48From(0x00ff_0000_ff00), 7, 0, 64)
	for i := 0; i < 64; i++ {
		v := m.Current().Uint64()
		require.Zero(t, v&^0x00ff_0000_ff00, "value %#x escapes mask", v)
		m.Next()
	}
}

func TestRandomModifierDrawOrder(t *testing.T) {
	const seed = 0x1234
	m := NewRandomModifier(Width64, ^uint64(0), seed, 0, 4)
	m.SetCursor(3)

	g := newLCG(3 ^ seed)
	hi := uint64(g.next())
	lo := uint64(g.next())
	require.Equal(t, hi<<32|lo, m.Current())

	w := NewRandomModifier(Width128, Width128.Ones(), seed, 0, 4)
	g = newLCG(seed)
	d := [4]uint64{uint64(g.next()), uint64(g.next()), uint64(g.next()), uint64(g.next())}
	require.Equal(t, wideint.NewUint128(d[0]<<32|d[1], d[2]<<32|d[3]), w.Current())

	n := NewRandomModifier(Width8, 0xff, seed, 0, 4)
	g = newLCG(seed)
	require.Equal(t, uint8(g.next()), n.Current())
}

func TestRandomModifierSeedsDiffer(t *testing.T) {
	a := NewRandomModifier(Width32, 0xffffffff, 1, 0, 100)
	b := NewRandomModifier(Width32, 0xffffffff, 2, 0, 100)
	same := 0
	for i := 0; i < 100; i++ {
		if a.Current() == b.Current() {
			same++
		}
		a.Next()
		b.Next()
	}
	require.Less(t, same, 5)
}
