package modifier

import "github.com/tturner/flowmod/internal/wideint"

// Arith is the fixed-width arithmetic engine numeric modifiers run on.
// There is one engine per supported field width.
type Arith[T any] interface {
	// Size is the width in bytes.
	Size() int
	Add(a, b T) T
	Neg(a T) T
	MulU32(a T, n uint32) T
	And(a, b T) T
	// Ones returns the all-ones value.
	Ones() T
	Equal(a, b T) bool
	// Byte returns the i-th least significant byte of v.
	Byte(v T, i int) byte
	// FromBytes decodes a big-endian vector of Size() bytes.
	FromBytes(b []byte) T
	// Draw assembles a value from the generator's outputs.
	Draw(g *lcg) T
}

type unsigned interface {
	~uint8 | ~uint16 | ~uint32 | ~uint64
}

// Engines for the supported widths.
var (
	Width8   Arith[uint8]           = nativeArith[uint8]{size: 1}
	Width16  Arith[uint16]          = nativeArith[uint16]{size: 2}
	Width32  Arith[uint32]          = nativeArith[uint32]{size: 4}
	Width48  Arith[wideint.Uint48]  = uint48Arith{}
	Width64  Arith[uint64]          = nativeArith[uint64]{size: 8}
	Width128 Arith[wideint.Uint128] = uint128Arith{}
)

type nativeArith[T unsigned] struct {
	size int
}

func (a nativeArith[T]) Size() int            { return a.size }
func (nativeArith[T]) Add(x, y T) T           { return x + y }
func (nativeArith[T]) Neg(x T) T              { return -x }
func (nativeArith[T]) MulU32(x T, n uint32) T { return x * T(n) }
func (nativeArith[T]) And(x, y T) T           { return x & y }
func (nativeArith[T]) Ones() T                { return ^T(0) }
func (nativeArith[T]) Equal(x, y T) bool      { return x == y }
func (nativeArith[T]) Byte(v T, i int) byte   { return byte(uint64(v) >> (8 * i)) }
func (nativeArith[T]) FromBytes(b []byte) T   { return T(beUint64(b)) }

func (a nativeArith[T]) Draw(g *lcg) T {
	if a.size <= 4 {
		return T(g.next())
	}
	hi := uint64(g.next())
	lo := uint64(g.next())
	return T(hi<<32 | lo)
}

type uint48Arith struct{}

func (uint48Arith) Size() int                              { return 6 }
func (uint48Arith) Add(x, y wideint.Uint48) wideint.Uint48 { return x.Add(y) }
func (uint48Arith) Neg(x wideint.Uint48) wideint.Uint48    { return x.Neg() }
func (uint48Arith) And(x, y wideint.Uint48) wideint.Uint48 { return x.And(y) }
func (uint48Arith) Ones() wideint.Uint48                   { return wideint.Uint48{}.Not() }
func (uint48Arith) Equal(x, y wideint.Uint48) bool         { return x.Equal(y) }
func (uint48Arith) FromBytes(b []byte) wideint.Uint48      { return wideint.Uint48From(beUint64(b)) }
func (uint48Arith) Byte(v wideint.Uint48, i int) byte      { return byte(v.Shr(8 * i).Lo()) }
func (uint48Arith) MulU32(x wideint.Uint48, n uint32) wideint.Uint48 {
	return x.MulU32(n)
}

func (uint48Arith) Draw(g *lcg) wideint.Uint48 {
	hi := g.next()
	lo := g.next()
	return wideint.NewUint48(uint16(hi), lo)
}

type uint128Arith struct{}

func (uint128Arith) Size() int                                { return 16 }
func (uint128Arith) Add(x, y wideint.Uint128) wideint.Uint128 { return x.Add(y) }
func (uint128Arith) Neg(x wideint.Uint128) wideint.Uint128    { return x.Neg() }
func (uint128Arith) And(x, y wideint.Uint128) wideint.Uint128 { return x.And(y) }
func (uint128Arith) Ones() wideint.Uint128                    { return wideint.Uint128{}.Not() }
func (uint128Arith) Equal(x, y wideint.Uint128) bool          { return x.Equal(y) }
func (uint128Arith) Byte(v wideint.Uint128, i int) byte       { return byte(v.Shr(8 * i).Lo()) }
func (uint128Arith) MulU32(x wideint.Uint128, n uint32) wideint.Uint128 {
	return x.MulU32(n)
}

func (uint128Arith) FromBytes(b []byte) wideint.Uint128 {
	if len(b) <= 8 {
		return wideint.Uint128From(beUint64(b))
	}
	split := len(b) - 8
	return wideint.NewUint128(beUint64(b[:split]), beUint64(b[split:]))
}

// Draw takes two 64-bit halves, each assembled high word first.
func (uint128Arith) Draw(g *lcg) wideint.Uint128 {
	hi := uint64(g.next())<<32 | uint64(g.next())
	lo := uint64(g.next())<<32 | uint64(g.next())
	return wideint.NewUint128(hi, lo)
}

// beUint64 decodes up to the last 8 bytes of b, most significant first.
func beUint64(b []byte) uint64 {
	if len(b) > 8 {
		b = b[len(b)-8:]
	}
	var v uint64
	for _, c := range b {
		v = v<<8 | uint64(c)
	}
	return v
}
