package synth

// Hex dump utilities for rendered frames

import (
	"fmt"
	"strings"
)

// HexDump creates a hex dump of frame data
func HexDump(data []byte, width int) string {
	if width <= 0 {
		width = 16
	}

	var sb strings.Builder
	for i := 0; i < len(data); i += width {
		sb.WriteString(fmt.Sprintf("%04x: ", i))

		for j := 0; j < width; j++ {
			if i+j < len(data) {
				sb.WriteString(fmt.Sprintf("%02x ", data[i+j]))
			} else {
				sb.WriteString("   ")
			}
		}

		sb.WriteString(" |")
		for j := 0; j < width && i+j < len(data); j++ {
			b := data[i+j]
			if b >= 32 && b < 127 {
				sb.WriteByte(b)
			} else {
				sb.WriteByte('.')
			}
		}
		sb.WriteString("|\n")
	}

	return sb.String()
}

// AnnotatedHexDump dumps frame one decoded layer at a time. Offsets are
// relative to each layer.
func AnnotatedHexDump(frame []byte) string {
	regions := Layout(frame)
	if len(regions) == 0 {
		return HexDump(frame, 16)
	}

	var sb strings.Builder
	for i, r := range regions {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(fmt.Sprintf("%s (%d bytes at %d):\n", r.Name, r.End-r.Start, r.Start))
		sb.WriteString(HexDump(frame[r.Start:r.End], 16))
	}
	return sb.String()
}
