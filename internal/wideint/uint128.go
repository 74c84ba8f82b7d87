package wideint

import (
	"fmt"
	"math/bits"
)

const bits128 = 128

// Uint128 is an unsigned 128-bit integer: hi<<64 | lo.
type Uint128 struct {
	hi uint64
	lo uint64
}

// NewUint128 creates a Uint128 from its halves.
func NewUint128(hi, lo uint64) Uint128 {
	return Uint128{hi: hi, lo: lo}
}

// Uint128From widens a native integer.
func Uint128From(v uint64) Uint128 {
	return Uint128{lo: v}
}

// Hi returns the upper 64 bits.
func (u Uint128) Hi() uint64 { return u.hi }

// Lo returns the lower 64 bits.
func (u Uint128) Lo() uint64 { return u.lo }

// Shl shifts u left by n bits.
func (u Uint128) Shl(n int) Uint128 {
	switch {
	case n <= 0:
		return u
	case n >= bits128:
		return Uint128{}
	case n >= 64:
		return Uint128{hi: u.lo << (n - 64)}
	default:
		return Uint128{hi: u.hi<<n | u.lo>>(64-n), lo: u.lo << n}
	}
}

// Shr shifts u right by n bits.
func (u Uint128) Shr(n int) Uint128 {
	switch {
	case n <= 0:
		return u
	case n >= bits128:
		return Uint128{}
	case n >= 64:
		return Uint128{lo: u.hi >> (n - 64)}
	default:
		return Uint128{hi: u.hi >> n, lo: u.lo>>n | u.hi<<(64-n)}
	}
}

// Add returns u+v mod 2^128.
func (u Uint128) Add(v Uint128) Uint128 {
	lo, carry := bits.Add64(u.lo, v.lo, 0)
	hi, _ := bits.Add64(u.hi, v.hi, carry)
	return Uint128{hi: hi, lo: lo}
}

// Sub returns u-v mod 2^128.
func (u Uint128) Sub(v Uint128) Uint128 {
	lo, borrow := bits.Sub64(u.lo, v.lo, 0)
	hi, _ := bits.Sub64(u.hi, v.hi, borrow)
	return Uint128{hi: hi, lo: lo}
}

// Neg returns the two's complement of u.
func (u Uint128) Neg() Uint128 {
	return Uint128{}.Sub(u)
}

// MulU32 returns u*s mod 2^128 using 32-bit digit long multiplication.
func (u Uint128) MulU32(s uint32) Uint128 {
	digits := [4]uint64{
		u.lo & 0xffffffff,
		u.lo >> 32,
		u.hi & 0xffffffff,
		u.hi >> 32,
	}
	var out [4]uint64
	var carry uint64
	for i, d := range digits {
		p := d*uint64(s) + carry
		out[i] = p & 0xffffffff
		carry = p >> 32
	}
	return Uint128{hi: out[3]<<32 | out[2], lo: out[1]<<32 | out[0]}
}

func (u Uint128) And(v Uint128) Uint128 { return Uint128{hi: u.hi & v.hi, lo: u.lo & v.lo} }
func (u Uint128) Or(v Uint128) Uint128  { return Uint128{hi: u.hi | v.hi, lo: u.lo | v.lo} }
func (u Uint128) Not() Uint128          { return Uint128{hi: ^u.hi, lo: ^u.lo} }

// Equal reports whether u and v hold the same value.
func (u Uint128) Equal(v Uint128) bool {
	return u == v
}

// String formats u as hex.
func (u Uint128) String() string {
	return fmt.Sprintf("0x%016x%016x", u.hi, u.lo)
}
