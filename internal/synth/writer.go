package synth

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/c2h5oh/datasize"
	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	"github.com/tturner/flowmod/internal/config"
)

// ErrSizeLimit is returned by WritePacket when the packet would push the
// output past its size limit. The packet is not written.
var ErrSizeLimit = errors.New("output size limit reached")

const (
	snapLen         = config.MaxFrameLen
	fileHeaderLen   = 24
	recordHeaderLen = 16
)

// PCAPWriter writes Ethernet frames to a pcap stream with an optional
// byte limit covering headers and frames.
type PCAPWriter struct {
	file    *os.File
	buf     *bufio.Writer
	writer  *pcapgo.Writer
	limit   uint64
	written uint64
	packets uint64
	closed  bool
}

// CreatePCAP creates path and writes the pcap file header. A zero limit
// means unlimited.
func CreatePCAP(path string, limit datasize.ByteSize) (*PCAPWriter, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create pcap: %w", err)
	}
	w, err := NewPCAPWriter(file, limit)
	if err != nil {
		file.Close()
		return nil, err
	}
	w.file = file
	return w, nil
}

// NewPCAPWriter writes the pcap file header to out.
func NewPCAPWriter(out io.Writer, limit datasize.ByteSize) (*PCAPWriter, error) {
	buf := bufio.NewWriter(out)
	writer := pcapgo.NewWriter(buf)
	if err := writer.WriteFileHeader(snapLen, layers.LinkTypeEthernet); err != nil {
		return nil, fmt.Errorf("write pcap header: %w", err)
	}
	return &PCAPWriter{
		buf:     buf,
		writer:  writer,
		limit:   limit.Bytes(),
		written: fileHeaderLen,
	}, nil
}

// WritePacket appends one frame captured at ts.
func (w *PCAPWriter) WritePacket(ts time.Time, data []byte) error {
	size := uint64(recordHeaderLen + len(data))
	if w.limit > 0 && w.written+size > w.limit {
		return ErrSizeLimit
	}
	ci := gopacket.CaptureInfo{
		Timestamp:     ts,
		CaptureLength: len(data),
		Length:        len(data),
	}
	if err := w.writer.WritePacket(ci, data); err != nil {
		return fmt.Errorf("write packet: %w", err)
	}
	w.written += size
	w.packets++
	return nil
}

// Written returns the bytes written so far, headers included.
func (w *PCAPWriter) Written() uint64 {
	return w.written
}

// Packets returns the number of frames written.
func (w *PCAPWriter) Packets() uint64 {
	return w.packets
}

// Close flushes buffered output and closes the file, if any. Later calls
// do nothing.
func (w *PCAPWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	err := w.buf.Flush()
	if w.file != nil {
		if cerr := w.file.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// Packet is one frame read back from a pcap file.
type Packet struct {
	Timestamp time.Time
	Data      []byte
}

// ReadPCAP reads every frame of a pcap stream.
func ReadPCAP(in io.Reader) ([]Packet, error) {
	reader, err := pcapgo.NewReader(in)
	if err != nil {
		return nil, fmt.Errorf("open pcap: %w", err)
	}
	var packets []Packet
	for {
		data, ci, err := reader.ReadPacketData()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read packet %d: %w", len(packets)+1, err)
		}
		packets = append(packets, Packet{Timestamp: ci.Timestamp, Data: data})
	}
	return packets, nil
}

// ReadPCAPFile reads every frame of the pcap file at path.
func ReadPCAPFile(path string) ([]Packet, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pcap: %w", err)
	}
	defer file.Close()
	return ReadPCAP(file)
}
