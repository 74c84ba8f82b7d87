package modifier

// putValue serializes v into dst.
//
// The least significant byte goes to the last position of the field and
// bytes walk backward, unless reverse is set, in which case they start at
// dst[0] and walk forward. When the field is masked each byte is merged
// so that bits outside the mask keep what dst already held; several
// sub-byte fields can share one byte that way. A dst shorter than the
// field receives only the low-order bytes that fit.
func putValue[T any](ops Arith[T], v, mask T, masked bool, dst []byte, reverse bool) {
	n := ops.Size()
	if len(dst) < n {
		n = len(dst)
	}
	for i := 0; i < n; i++ {
		pos := n - 1 - i
		if reverse {
			pos = i
		}
		b := ops.Byte(v, i)
		if masked {
			m := ops.Byte(mask, i)
			dst[pos] = dst[pos]&^m | b&m
		} else {
			dst[pos] = b
		}
	}
}
