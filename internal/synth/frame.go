// Package synth builds base frames with gopacket and patches flow variables
// into them on every iteration.
package synth

import (
	"fmt"
	"net"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"

	"github.com/tturner/flowmod/internal/config"
)

const (
	ethernetHeaderLen = 14
	ipv4HeaderLen     = 20
	ipv6HeaderLen     = 40
	udpHeaderLen      = 8
	tcpHeaderLen      = 20
)

// FrameSpec describes a base Ethernet/IP/L4 frame.
type FrameSpec struct {
	SrcMAC   net.HardwareAddr
	DstMAC   net.HardwareAddr
	SrcIP    net.IP
	DstIP    net.IP
	Protocol layers.IPProtocol
	SrcPort  uint16
	DstPort  uint16
	TTL      uint8
	Payload  []byte
}

// IsIPv6 reports whether the frame carries IPv6.
func (s FrameSpec) IsIPv6() bool {
	return s.SrcIP.To4() == nil
}

// DatagramEnd is the offset one past the last byte of the IP datagram,
// before any Ethernet padding.
func (s FrameSpec) DatagramEnd() int {
	n := ethernetHeaderLen + len(s.Payload)
	if s.IsIPv6() {
		n += ipv6HeaderLen
	} else {
		n += ipv4HeaderLen
	}
	if s.Protocol == layers.IPProtocolTCP {
		n += tcpHeaderLen
	} else {
		n += udpHeaderLen
	}
	return n
}

// FrameSpecFromConfig converts a playlist frame.
func FrameSpecFromConfig(fc config.FrameConfig) (FrameSpec, error) {
	spec := FrameSpec{
		SrcIP:   net.ParseIP(fc.SrcIP),
		DstIP:   net.ParseIP(fc.DstIP),
		SrcPort: fc.SrcPort,
		DstPort: fc.DstPort,
		TTL:     fc.TTL,
	}
	var err error
	if spec.SrcMAC, err = net.ParseMAC(fc.SrcMAC); err != nil {
		return FrameSpec{}, fmt.Errorf("invalid src_mac '%s'", fc.SrcMAC)
	}
	if spec.DstMAC, err = net.ParseMAC(fc.DstMAC); err != nil {
		return FrameSpec{}, fmt.Errorf("invalid dst_mac '%s'", fc.DstMAC)
	}
	if spec.SrcIP == nil || spec.DstIP == nil {
		return FrameSpec{}, fmt.Errorf("invalid ip address pair %s -> %s", fc.SrcIP, fc.DstIP)
	}
	switch fc.Protocol {
	case "tcp":
		spec.Protocol = layers.IPProtocolTCP
	case "udp", "":
		spec.Protocol = layers.IPProtocolUDP
	default:
		return FrameSpec{}, fmt.Errorf("unsupported protocol '%s'", fc.Protocol)
	}
	if fc.PayloadHex != "" {
		if spec.Payload, err = config.DecodeHex(fc.PayloadHex); err != nil {
			return FrameSpec{}, err
		}
	} else {
		spec.Payload = make([]byte, fc.PayloadSize)
	}
	return spec, nil
}

// BuildFrame serializes the base frame with lengths and checksums filled in.
func BuildFrame(spec FrameSpec) ([]byte, error) {
	eth := &layers.Ethernet{
		SrcMAC:       spec.SrcMAC,
		DstMAC:       spec.DstMAC,
		EthernetType: layers.EthernetTypeIPv4,
	}

	var network gopacket.NetworkLayer
	var ipLayer gopacket.SerializableLayer
	if spec.IsIPv6() {
		eth.EthernetType = layers.EthernetTypeIPv6
		ip6 := &layers.IPv6{
			Version:    6,
			HopLimit:   spec.TTL,
			NextHeader: spec.Protocol,
			SrcIP:      spec.SrcIP.To16(),
			DstIP:      spec.DstIP.To16(),
		}
		network, ipLayer = ip6, ip6
	} else {
		ip4 := &layers.IPv4{
			Version:  4,
			TTL:      spec.TTL,
			Protocol: spec.Protocol,
			SrcIP:    spec.SrcIP.To4(),
			DstIP:    spec.DstIP.To4(),
		}
		network, ipLayer = ip4, ip4
	}

	var l4 gopacket.SerializableLayer
	switch spec.Protocol {
	case layers.IPProtocolTCP:
		tcp := &layers.TCP{
			SrcPort: layers.TCPPort(spec.SrcPort),
			DstPort: layers.TCPPort(spec.DstPort),
			Seq:     1,
			ACK:     true,
			PSH:     true,
			Window:  65535,
		}
		if err := tcp.SetNetworkLayerForChecksum(network); err != nil {
			return nil, fmt.Errorf("set checksum layer: %w", err)
		}
		l4 = tcp
	case layers.IPProtocolUDP:
		udp := &layers.UDP{
			SrcPort: layers.UDPPort(spec.SrcPort),
			DstPort: layers.UDPPort(spec.DstPort),
		}
		if err := udp.SetNetworkLayerForChecksum(network); err != nil {
			return nil, fmt.Errorf("set checksum layer: %w", err)
		}
		l4 = udp
	default:
		return nil, fmt.Errorf("unsupported protocol %s", spec.Protocol)
	}

	buffer := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{
		FixLengths:       true,
		ComputeChecksums: true,
	}
	if err := gopacket.SerializeLayers(buffer, opts, eth, ipLayer, l4, gopacket.Payload(spec.Payload)); err != nil {
		return nil, fmt.Errorf("serialize frame: %w", err)
	}
	return append([]byte(nil), buffer.Bytes()...), nil
}

// Region is a decoded layer's byte range within a frame.
type Region struct {
	Name  string
	Start int
	End   int
}

// Layout decodes frame and returns the byte range of every layer.
func Layout(frame []byte) []Region {
	packet := gopacket.NewPacket(frame, layers.LayerTypeEthernet, gopacket.Default)
	var regions []Region
	offset := 0
	for _, layer := range packet.Layers() {
		n := len(layer.LayerContents())
		if n == 0 {
			continue
		}
		regions = append(regions, Region{Name: layer.LayerType().String(), Start: offset, End: offset + n})
		offset += n
	}
	if offset < len(frame) {
		regions = append(regions, Region{Name: "Padding", Start: offset, End: len(frame)})
	}
	return regions
}

// RegionAt names the layer holding offset, or "beyond frame".
func RegionAt(regions []Region, offset int) string {
	for _, r := range regions {
		if offset >= r.Start && offset < r.End {
			return fmt.Sprintf("%s+%d", r.Name, offset-r.Start)
		}
	}
	return "beyond frame"
}
