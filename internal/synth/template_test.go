package synth

import (
	"bytes"
	"math"
	"net"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tturner/flowmod/internal/modifier"
)

func buildBlock(t *testing.T, flows ...modifier.FlowConfig) *modifier.Block {
	t.Helper()
	b, err := modifier.Build(flows, modifier.NewSeedSequence(1))
	require.NoError(t, err)
	return b
}

func TestTemplateRender(t *testing.T) {
	spec := udpSpec(2)
	tmpl, err := NewTemplate("sweep", 0, spec, []Field{
		{Var: 0, Offset: 26},
		{Var: 1, Offset: 42},
	})
	require.NoError(t, err)

	block := buildBlock(t, modifier.FlowConfig{
		Ranges: map[uint8]modifier.RangeConfig{
			0: {Start: []byte{10, 0, 0, 1}, Step: []byte{0, 0, 0, 1}, Mask: []byte{0xff, 0xff, 0xff, 0xff}, Recycle: math.MaxUint32},
		},
		Tables: map[uint8]modifier.TableConfig{
			1: {Entries: [][]byte{{0xaa}, {0xbb, 0xbb, 0xbb}}},
		},
	})

	frame, end := tmpl.Render(block, nil)
	require.Len(t, frame, len(tmpl.Base))
	require.Equal(t, spec.DatagramEnd(), end)
	require.True(t, net.IP(frame[26:30]).Equal(net.IPv4(10, 0, 0, 1)))
	require.Equal(t, byte(0xaa), frame[42])

	block.Next()
	frame, end = tmpl.Render(block, frame)
	require.True(t, net.IP(frame[26:30]).Equal(net.IPv4(10, 0, 0, 2)))
	require.Equal(t, []byte{0xbb, 0xbb, 0xbb}, frame[42:45])
	require.Equal(t, 45, end, "datagram grows with the wider table entry")

	// The base frame is never modified.
	require.True(t, net.IP(tmpl.Base[26:30]).Equal(net.IPv4(10, 0, 0, 1)))
}

func TestTemplateRenderExtendsFrame(t *testing.T) {
	tmpl, err := NewTemplate("tail", 3, udpSpec(32), []Field{{Var: 7, Offset: 72}})
	require.NoError(t, err)

	block := buildBlock(t,
		modifier.FlowConfig{}, modifier.FlowConfig{}, modifier.FlowConfig{},
		modifier.FlowConfig{Tables: map[uint8]modifier.TableConfig{
			7: {Entries: [][]byte{{1, 2, 3, 4, 5, 6}}},
		}},
	)

	frame, end := tmpl.Render(block, nil)
	require.Len(t, frame, 78)
	require.Equal(t, 78, end)
	require.Equal(t, []byte{1, 2, 3, 4, 5, 6}, frame[72:78])
}

func TestTemplateRenderReverseAndUnknown(t *testing.T) {
	tmpl, err := NewTemplate("rev", 0, udpSpec(8), []Field{
		{Var: 0, Offset: 42, Reverse: true},
		{Var: 9, Offset: 44}, // not in the block
	})
	require.NoError(t, err)

	block := buildBlock(t, modifier.FlowConfig{
		Ranges: map[uint8]modifier.RangeConfig{
			0: {Start: []byte{0x12, 0x34}, Step: []byte{0, 1}, Mask: []byte{0xff, 0xff}},
		},
	})
	frame, _ := tmpl.Render(block, nil)
	require.Equal(t, []byte{0x34, 0x12}, frame[42:44])
	require.True(t, bytes.Equal(tmpl.Base[44:], frame[44:]), "unknown variables leave the frame untouched")
}

func TestNewTemplateRejectsNegativeOffset(t *testing.T) {
	_, err := NewTemplate("bad", 0, udpSpec(0), []Field{{Var: 0, Offset: -1}})
	require.Error(t, err)
}

func TestRecomputeChecksumsMatchesFreshFrame(t *testing.T) {
	spec := udpSpec(2)
	tmpl, err := NewTemplate("sweep", 0, spec, []Field{
		{Var: 0, Offset: 26},
		{Var: 1, Offset: 42},
	})
	require.NoError(t, err)
	block := buildBlock(t, modifier.FlowConfig{
		Ranges: map[uint8]modifier.RangeConfig{
			0: {Start: []byte{10, 0, 0, 1}, Step: []byte{0, 0, 0, 1}, Mask: []byte{0xff, 0xff, 0xff, 0xff}, Recycle: math.MaxUint32},
		},
		Tables: map[uint8]modifier.TableConfig{
			1: {Entries: [][]byte{{0xaa, 0xaa}, {0xbb, 0xbb, 0xbb, 0xbb, 0xbb}}},
		},
	})

	for i := 0; i < 2; i++ {
		frame, end := tmpl.Render(block, nil)
		fixed, err := RecomputeChecksums(frame[:end])
		require.NoError(t, err)

		want := spec
		want.SrcIP = net.IPv4(10, 0, 0, byte(1+i))
		want.Payload = frame[42:end]
		expected, err := BuildFrame(want)
		require.NoError(t, err)
		require.Equal(t, expected, fixed, "iteration %d", i)

		block.Next()
	}
}

func TestRecomputeChecksumsIPv6(t *testing.T) {
	spec := tcp6Spec()
	tmpl, err := NewTemplate("v6", 0, spec, []Field{{Var: 0, Offset: 22}})
	require.NoError(t, err)

	start := []byte(net.ParseIP("fd00::1").To16())
	step := make([]byte, 16)
	step[15] = 1
	mask := bytes.Repeat([]byte{0xff}, 16)
	block := buildBlock(t, modifier.FlowConfig{
		Ranges: map[uint8]modifier.RangeConfig{0: {Start: start, Step: step, Mask: mask, Recycle: math.MaxUint32}},
	})
	block.SetCursor(0x10)

	frame, end := tmpl.Render(block, nil)
	fixed, err := RecomputeChecksums(frame[:end])
	require.NoError(t, err)

	want := spec
	want.SrcIP = net.ParseIP("fd00::11")
	expected, err := BuildFrame(want)
	require.NoError(t, err)
	require.Equal(t, expected, fixed)
}

func TestRecomputeChecksumsErrors(t *testing.T) {
	_, err := RecomputeChecksums([]byte{1, 2, 3})
	require.Error(t, err)

	frame, err := BuildFrame(udpSpec(4))
	require.NoError(t, err)
	frame[12], frame[13] = 0x08, 0x06 // ARP ethertype
	_, err = RecomputeChecksums(frame)
	require.Error(t, err)
}
