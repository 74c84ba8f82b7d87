package modifier

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/tturner/flowmod/internal/wideint"
)

func TestValueByteOrder(t *testing.T) {
	m := NewRangeModifier(Width32, 0x11223344, 0, 0xffffffff, 0, 1)
	buf := make([]byte, 4)
	m.Value(buf, false)
	if !bytes.Equal(buf, []byte{0x11, 0x22, 0x33, 0x44}) {
		t.Errorf("default order = %x", buf)
	}
	m.Value(buf, true)
	if !bytes.Equal(buf, []byte{0x44, 0x33, 0x22, 0x11}) {
		t.Errorf("reverse order = %x", buf)
	}
}

func TestValueByteOrderSymmetry(t *testing.T) {
	mods := []Modifier{
		NewRandomModifier(Width16, 0xffff, 3, 0, 10),
		NewRandomModifier(Width48, Width48.Ones(), 3, 0, 10),
		NewRandomModifier(Width128, Width128.Ones(), 3, 0, 10),
		NewRangeModifier(Width64, 0x0102030405060708, 1, ^uint64(0), 0, 10),
	}
	for _, m := range mods {
		for i := 0; i < 10; i++ {
			fwd := make([]byte, m.Size())
			rev := make([]byte, m.Size())
			m.Value(fwd, false)
			m.Value(rev, true)
			for j := range fwd {
				if fwd[j] != rev[len(rev)-1-j] {
					t.Fatalf("size %d: %x is not the reverse of %x", m.Size(), rev, fwd)
				}
			}
			m.Next()
		}
	}
}

func TestValueMaskPreservesUnmaskedBits(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 500; i++ {
		mask := uint16(rng.Uint32())
		value := uint16(rng.Uint32())
		prefill := []byte{byte(rng.Uint32()), byte(rng.Uint32())}

		m := NewRangeModifier(Width16, value, 0, mask, 0, 1)
		buf := append([]byte(nil), prefill...)
		m.Value(buf, false)

		got := uint16(buf[0])<<8 | uint16(buf[1])
		pre := uint16(prefill[0])<<8 | uint16(prefill[1])
		if got&mask != value&mask {
			t.Fatalf("mask %#04x: masked bits = %#04x, want %#04x", mask, got&mask, value&mask)
		}
		if got&^mask != pre&^mask {
			t.Fatalf("mask %#04x: unmasked bits = %#04x, want %#04x", mask, got&^mask, pre&^mask)
		}
	}
}

func TestValueSharedByte(t *testing.T) {
	hi := NewRangeModifier(Width8, 0xa0, 0, 0xf0, 0, 1)
	lo := NewRangeModifier(Width8, 0x05, 0, 0x0f, 0, 1)
	buf := []byte{0x00}
	hi.Value(buf, false)
	lo.Value(buf, false)
	if buf[0] != 0xa5 {
		t.Errorf("shared byte = %#02x, want 0xa5", buf[0])
	}
}

func TestValueShortBuffer(t *testing.T) {
	m := NewRangeModifier(Width48, wideint.Uint48From(0x010203040506), wideint.Uint48{}, Width48.Ones(), 0, 1)
	buf := make([]byte, 2)
	m.Value(buf, false)
	if !bytes.Equal(buf, []byte{0x05, 0x06}) {
		t.Errorf("short buffer = %x", buf)
	}
}
