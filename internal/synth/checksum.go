package synth

import (
	"fmt"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

// RecomputeChecksums re-decodes a patched frame and serializes it again
// with IP/L4 lengths and checksums fixed. frame must end at the end of the
// IP datagram; every byte after the L4 header is treated as payload, so
// stale length fields cannot truncate a grown frame.
func RecomputeChecksums(frame []byte) ([]byte, error) {
	packet := gopacket.NewPacket(frame, layers.LayerTypeEthernet, gopacket.Default)

	ethLayer := packet.Layer(layers.LayerTypeEthernet)
	if ethLayer == nil {
		return nil, fmt.Errorf("no Ethernet layer")
	}
	eth := *(ethLayer.(*layers.Ethernet))
	layersOut := []gopacket.SerializableLayer{&eth}
	offset := len(eth.Contents)

	var networkLayer gopacket.NetworkLayer
	if ip4Layer := packet.Layer(layers.LayerTypeIPv4); ip4Layer != nil {
		ip4 := *(ip4Layer.(*layers.IPv4))
		offset += len(ip4.Contents)
		networkLayer = &ip4
		layersOut = append(layersOut, &ip4)
	} else if ip6Layer := packet.Layer(layers.LayerTypeIPv6); ip6Layer != nil {
		ip6 := *(ip6Layer.(*layers.IPv6))
		offset += len(ip6.Contents)
		networkLayer = &ip6
		layersOut = append(layersOut, &ip6)
	} else {
		return nil, fmt.Errorf("no IP layer")
	}

	if tcpLayer := packet.Layer(layers.LayerTypeTCP); tcpLayer != nil {
		tcp := *(tcpLayer.(*layers.TCP))
		offset += len(tcp.Contents)
		if err := tcp.SetNetworkLayerForChecksum(networkLayer); err != nil {
			return nil, err
		}
		layersOut = append(layersOut, &tcp)
	} else if udpLayer := packet.Layer(layers.LayerTypeUDP); udpLayer != nil {
		udp := *(udpLayer.(*layers.UDP))
		offset += len(udp.Contents)
		if err := udp.SetNetworkLayerForChecksum(networkLayer); err != nil {
			return nil, err
		}
		layersOut = append(layersOut, &udp)
	} else {
		return nil, fmt.Errorf("no TCP/UDP layer")
	}

	if offset > len(frame) {
		return nil, fmt.Errorf("headers run past frame end (%d > %d)", offset, len(frame))
	}
	layersOut = append(layersOut, gopacket.Payload(frame[offset:]))

	buffer := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{
		FixLengths:       true,
		ComputeChecksums: true,
	}
	if err := gopacket.SerializeLayers(buffer, opts, layersOut...); err != nil {
		return nil, fmt.Errorf("serialize frame: %w", err)
	}
	return buffer.Bytes(), nil
}
