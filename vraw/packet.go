package vraw

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/pion/rtp"
)

// Wire format constants. The header geometry is fixed: changing any of
// these breaks interoperability with conforming peers.
const (
	// RTPVersion is the RTP protocol version stamped on every packet.
	RTPVersion = 2

	// PayloadType identifies uncompressed video in the RTP header.
	PayloadType = 96

	// ClockRate is the RTP media clock in Hz.
	ClockRate = 90000

	// DefaultFrameRate is the frame rate assumed when a stream does not
	// configure its own, in frames per second.
	DefaultFrameRate = 25

	// DefaultSSRC is the synchronisation source stamped on outbound
	// packets when a stream does not configure its own.
	DefaultSSRC = 0x12345678

	// MaxLinesPerPacket is the number of line header slots in the payload
	// header. Packets never carry more scan line fragments than this.
	MaxLinesPerPacket = 10

	// rtpHeaderSize is the size of an RTP header without CSRC entries or
	// extensions, the only shape this payload format uses.
	rtpHeaderSize = 12

	// lineHeaderSize is the size of one encoded line header.
	lineHeaderSize = 6

	// PayloadHeaderSize is the encoded size of the payload header: the
	// extended sequence number plus all line header slots.
	PayloadHeaderSize = 2 + MaxLinesPerPacket*lineHeaderSize

	// HeaderSize is the total fixed header overhead per packet.
	HeaderSize = rtpHeaderSize + PayloadHeaderSize

	// DefaultMTU is the per-packet byte budget used when a stream does
	// not configure its own. It keeps packets clear of the common 1500
	// byte Ethernet payload limit.
	DefaultMTU = 1300
)

// pgroupBytes is the smallest unit a scan line may be fragmented at: one
// UYVY sample group covering two pixels.
const pgroupBytes = 4

var (
	// ErrMalformedPacket indicates a datagram that cannot be interpreted
	// as a raw video packet.
	ErrMalformedPacket = errors.New("malformed raw video packet")

	// ErrFrameSize indicates a frame buffer whose length does not match
	// the configured geometry.
	ErrFrameSize = errors.New("frame buffer size mismatch")

	// ErrInvalidConfig indicates packetizer or depacketizer parameters
	// outside their documented ranges.
	ErrInvalidConfig = errors.New("invalid stream parameters")
)

// LineHeader describes one scan line fragment carried in a packet.
type LineHeader struct {
	// Length is the fragment size in bytes.
	Length uint16

	// Number is the zero-based scan line the fragment belongs to.
	Number uint16

	// Offset is the horizontal position of the fragment's first pixel.
	// It is zero except for continuations of a split line.
	Offset uint16
}

// PayloadHeader is the fixed header that follows the RTP header. On the
// wire it always occupies PayloadHeaderSize bytes; slots beyond the carried
// line headers are zero filled.
type PayloadHeader struct {
	// ExtendedSequence holds the high 16 bits of the 32 bit packet
	// counter. The low 16 bits travel in the RTP sequence number.
	ExtendedSequence uint16

	// Lines are the occupied line header slots, at most MaxLinesPerPacket.
	Lines []LineHeader
}

// marshalTo encodes the payload header into the first PayloadHeaderSize
// bytes of buf.
func (h *PayloadHeader) marshalTo(buf []byte) error {
	if len(h.Lines) > MaxLinesPerPacket {
		return fmt.Errorf("%w: %d line headers exceed the %d slot capacity",
			ErrMalformedPacket, len(h.Lines), MaxLinesPerPacket)
	}
	if len(buf) < PayloadHeaderSize {
		return fmt.Errorf("%w: %d byte buffer cannot hold a %d byte payload header",
			ErrMalformedPacket, len(buf), PayloadHeaderSize)
	}

	binary.BigEndian.PutUint16(buf[0:2], h.ExtendedSequence)
	off := 2
	for i := 0; i < MaxLinesPerPacket; i++ {
		var lh LineHeader
		if i < len(h.Lines) {
			lh = h.Lines[i]
		}
		binary.BigEndian.PutUint16(buf[off:off+2], lh.Length)
		binary.BigEndian.PutUint16(buf[off+2:off+4], lh.Number)
		binary.BigEndian.PutUint16(buf[off+4:off+6], lh.Offset)
		off += lineHeaderSize
	}
	return nil
}

// Unmarshal decodes a payload header from buf. Slots are read until the
// first zero-length entry; line numbers must be strictly increasing across
// the occupied slots.
func (h *PayloadHeader) Unmarshal(buf []byte) error {
	if len(buf) < PayloadHeaderSize {
		return fmt.Errorf("%w: payload is %d bytes, header alone needs %d",
			ErrMalformedPacket, len(buf), PayloadHeaderSize)
	}

	h.ExtendedSequence = binary.BigEndian.Uint16(buf[0:2])
	h.Lines = h.Lines[:0]
	off := 2
	prev := -1
	for i := 0; i < MaxLinesPerPacket; i++ {
		lh := LineHeader{
			Length: binary.BigEndian.Uint16(buf[off : off+2]),
			Number: binary.BigEndian.Uint16(buf[off+2 : off+4]),
			Offset: binary.BigEndian.Uint16(buf[off+4 : off+6]),
		}
		off += lineHeaderSize
		if lh.Length == 0 {
			break
		}
		if int(lh.Number) <= prev {
			return fmt.Errorf("%w: line %d follows line %d",
				ErrMalformedPacket, lh.Number, prev)
		}
		prev = int(lh.Number)
		h.Lines = append(h.Lines, lh)
	}
	return nil
}

// PixelBytes returns the total pixel payload size the line headers declare.
func (h *PayloadHeader) PixelBytes() int {
	total := 0
	for _, lh := range h.Lines {
		total += int(lh.Length)
	}
	return total
}

// Packet is one raw video packet: RTP header, payload header and the pixel
// fragments the line headers describe.
type Packet struct {
	Header        rtp.Header
	PayloadHeader PayloadHeader

	// Pixels holds the concatenated scan line fragments in line header
	// order. After Unmarshal it references the input buffer.
	Pixels []byte
}

// Marshal serialises the packet into wire format.
func (p *Packet) Marshal() ([]byte, error) {
	payload := make([]byte, PayloadHeaderSize+len(p.Pixels))
	if err := p.PayloadHeader.marshalTo(payload); err != nil {
		return nil, err
	}
	copy(payload[PayloadHeaderSize:], p.Pixels)

	wire := rtp.Packet{Header: p.Header, Payload: payload}
	buf, err := wire.Marshal()
	if err != nil {
		return nil, fmt.Errorf("marshal rtp packet: %w", err)
	}
	return buf, nil
}

// Unmarshal parses a datagram into the packet. The pixel slice references
// buf, so callers that retain the pixels beyond the life of buf must copy
// them.
func (p *Packet) Unmarshal(buf []byte) error {
	var wire rtp.Packet
	if err := wire.Unmarshal(buf); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedPacket, err)
	}
	p.Header = wire.Header

	if err := p.PayloadHeader.Unmarshal(wire.Payload); err != nil {
		return err
	}

	declared := p.PayloadHeader.PixelBytes()
	rest := wire.Payload[PayloadHeaderSize:]
	if len(rest) < declared {
		return fmt.Errorf("%w: line headers declare %d pixel bytes, packet carries %d",
			ErrMalformedPacket, declared, len(rest))
	}
	p.Pixels = rest[:declared]
	return nil
}
