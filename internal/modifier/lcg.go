package modifier

// lcg is a 64-bit linear congruential generator (Knuth MMIX constants)
// emitting the upper 32 bits of its state. Random modifiers reseed one per
// position, which keeps any position reachable without replaying history.
type lcg struct {
	state uint64
}

const (
	lcgMultiplier = 6364136223846793005
	lcgIncrement  = 1442695040888963407
)

func newLCG(seed uint32) lcg {
	return lcg{state: uint64(seed)}
}

func (g *lcg) next() uint32 {
	g.state = g.state*lcgMultiplier + lcgIncrement
	return uint32(g.state >> 32)
}
