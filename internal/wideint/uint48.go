package wideint

// Fixed-width unsigned integers built from two native halves.
//
// Every operation returns a new value. Bits carried or shifted past the
// top of the type are discarded, so all operations are total.

import (
	"fmt"
	"math/bits"
)

const (
	bits48   = 48
	hiBits48 = 16
	hiMask48 = 1<<hiBits48 - 1
)

// Uint48 is an unsigned 48-bit integer: hi<<32 | lo.
type Uint48 struct {
	hi uint16
	lo uint32
}

// NewUint48 creates a Uint48 from its halves.
func NewUint48(hi uint16, lo uint32) Uint48 {
	return Uint48{hi: hi, lo: lo}
}

// Uint48From truncates v to 48 bits.
func Uint48From(v uint64) Uint48 {
	return Uint48{hi: uint16(v >> 32), lo: uint32(v)}
}

// Hi returns the upper 16 bits.
func (u Uint48) Hi() uint16 { return u.hi }

// Lo returns the lower 32 bits.
func (u Uint48) Lo() uint32 { return u.lo }

// Uint64 widens u to a native integer.
func (u Uint48) Uint64() uint64 {
	return uint64(u.hi)<<32 | uint64(u.lo)
}

// Shl shifts u left by n bits.
func (u Uint48) Shl(n int) Uint48 {
	switch {
	case n <= 0:
		return u
	case n >= bits48:
		return Uint48{}
	case n >= 32:
		return Uint48{hi: uint16(u.lo << (n - 32))}
	default:
		hi := uint32(u.hi)<<n | u.lo>>(32-n)
		return Uint48{hi: uint16(hi & hiMask48), lo: u.lo << n}
	}
}

// Shr shifts u right by n bits.
func (u Uint48) Shr(n int) Uint48 {
	switch {
	case n <= 0:
		return u
	case n >= bits48:
		return Uint48{}
	case n >= 32:
		return Uint48{lo: uint32(u.hi) >> (n - 32)}
	default:
		lo := u.lo>>n | uint32(u.hi)<<(32-n)
		return Uint48{hi: u.hi >> n, lo: lo}
	}
}

// Add returns u+v mod 2^48.
func (u Uint48) Add(v Uint48) Uint48 {
	lo, carry := bits.Add32(u.lo, v.lo, 0)
	return Uint48{hi: u.hi + v.hi + uint16(carry), lo: lo}
}

// Sub returns u-v mod 2^48.
func (u Uint48) Sub(v Uint48) Uint48 {
	lo, borrow := bits.Sub32(u.lo, v.lo, 0)
	return Uint48{hi: u.hi - v.hi - uint16(borrow), lo: lo}
}

// Neg returns the two's complement of u.
func (u Uint48) Neg() Uint48 {
	return Uint48{}.Sub(u)
}

// MulU32 returns u*s mod 2^48.
func (u Uint48) MulU32(s uint32) Uint48 {
	p := uint64(u.lo) * uint64(s)
	carry := p >> 32
	hi := uint64(u.hi)*uint64(s) + carry
	return Uint48{hi: uint16(hi), lo: uint32(p)}
}

func (u Uint48) And(v Uint48) Uint48 { return Uint48{hi: u.hi & v.hi, lo: u.lo & v.lo} }
func (u Uint48) Or(v Uint48) Uint48  { return Uint48{hi: u.hi | v.hi, lo: u.lo | v.lo} }
func (u Uint48) Not() Uint48         { return Uint48{hi: ^u.hi, lo: ^u.lo} }

// Equal reports whether u and v hold the same value.
func (u Uint48) Equal(v Uint48) bool {
	return u == v
}

// String formats u as hex.
func (u Uint48) String() string {
	return fmt.Sprintf("0x%04x%08x", u.hi, u.lo)
}
