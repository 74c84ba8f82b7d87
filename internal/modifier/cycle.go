package modifier

// cycle tracks a position inside a sequence of count distinct values where
// each value is held for stutter+1 consecutive positions.
type cycle struct {
	count   uint64
	stutter uint64
	cursor  uint64 // value index, [0, count)
	repeat  uint64 // repeats of the current value so far, [0, stutter]
}

func newCycle(count uint32, stutter int32) cycle {
	if count == 0 {
		count = 1
	}
	if stutter < 0 {
		stutter = 0
	}
	return cycle{count: uint64(count), stutter: uint64(stutter)}
}

// period is the number of positions before the cycle repeats.
func (c *cycle) period() uint64 {
	return (c.stutter + 1) * c.count
}

// next advances one position. moved reports a new value index; carry
// reports a wrap back to the first value.
func (c *cycle) next() (moved, carry bool) {
	if c.repeat < c.stutter {
		c.repeat++
		return false, false
	}
	c.repeat = 0
	c.cursor++
	if c.cursor >= c.count {
		c.cursor = 0
		return true, true
	}
	return true, false
}

// set jumps to pos and returns the number of full periods elapsed.
func (c *cycle) set(pos uint64) uint64 {
	hold := c.stutter + 1
	step := pos / hold
	c.repeat = pos % hold
	c.cursor = step % c.count
	return step / c.count
}
