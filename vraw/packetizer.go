package vraw

import (
	"fmt"

	"github.com/pion/rtp"
	"github.com/sirupsen/logrus"
)

// Packetizer fragments packed UYVY frames into line-addressed RTP packets.
// It owns the stream's 32 bit extended sequence counter and its 90 kHz
// timestamp; both belong to this packetizer alone, so independent streams
// never share numbering.
//
// A Packetizer is not safe for concurrent use.
type Packetizer struct {
	height         int
	width          int
	stride         int // bytes per scan line
	ssrc           uint32
	frameRate      int
	linesPerPacket int
	mtu            int

	sequence  uint32 // extended packet counter, wraps
	timestamp uint32 // 90 kHz clock, advances once per frame
}

// NewPacketizer returns a packetizer for frames of the given geometry.
//
// Parameters:
//   - height, width: frame dimensions in pixels; width must be even for
//     4:2:2 sampling and both must encode in the 16 bit header fields
//   - ssrc: synchronisation source stamped on every packet
//   - frameRate: frames per second used to advance the 90 kHz timestamp
//   - linesPerPacket: cap on scan lines per packet, 1..MaxLinesPerPacket
//   - mtu: per-packet byte budget including the fixed header
//
// Returns:
//   - *Packetizer: ready to fragment frames
//   - error: ErrInvalidConfig when a parameter is out of range
func NewPacketizer(height, width int, ssrc uint32, frameRate, linesPerPacket, mtu int) (*Packetizer, error) {
	if height <= 0 || width <= 0 {
		return nil, fmt.Errorf("%w: frame geometry %dx%d", ErrInvalidConfig, width, height)
	}
	if width%2 != 0 {
		return nil, fmt.Errorf("%w: width %d must be even for 4:2:2 sampling", ErrInvalidConfig, width)
	}
	stride := width * 2
	if height > 0xFFFF || stride > 0xFFFF {
		return nil, fmt.Errorf("%w: frame geometry %dx%d exceeds header field range",
			ErrInvalidConfig, width, height)
	}
	if frameRate <= 0 || frameRate > ClockRate {
		return nil, fmt.Errorf("%w: frame rate %d", ErrInvalidConfig, frameRate)
	}
	if linesPerPacket < 1 || linesPerPacket > MaxLinesPerPacket {
		return nil, fmt.Errorf("%w: %d lines per packet, capacity is %d",
			ErrInvalidConfig, linesPerPacket, MaxLinesPerPacket)
	}
	if mtu < HeaderSize+pgroupBytes {
		return nil, fmt.Errorf("%w: mtu %d leaves no room for pixels after the %d byte header",
			ErrInvalidConfig, mtu, HeaderSize)
	}

	logrus.WithFields(logrus.Fields{
		"function":         "NewPacketizer",
		"width":            width,
		"height":           height,
		"ssrc":             fmt.Sprintf("%08x", ssrc),
		"frame_rate":       frameRate,
		"lines_per_packet": linesPerPacket,
		"mtu":              mtu,
	}).Info("Raw video packetizer created")

	return &Packetizer{
		height:         height,
		width:          width,
		stride:         stride,
		ssrc:           ssrc,
		frameRate:      frameRate,
		linesPerPacket: linesPerPacket,
		mtu:            mtu,
	}, nil
}

// PacketizeFrame fragments one frame into packets ready to marshal.
//
// Scan lines are packed whole, top to bottom, up to the configured lines
// per packet and never past the MTU budget. A line too long to fit even
// an empty packet is split at sample group boundaries across consecutive
// packets with its pixel offset recorded; otherwise offsets stay zero.
// The frame timestamp advances by one frame interval before stamping, and
// the sequence counter advances once per packet; neither is ever rewound,
// so a caller that abandons a frame after a send failure still gets fresh
// numbering.
//
// Parameters:
//   - yuv: packed UYVY frame of exactly height*width*2 bytes, borrowed
//     for the duration of the call
//
// Returns:
//   - []*Packet: the frame's packets in transmission order, the last one
//     carrying the RTP marker bit
//   - error: ErrFrameSize when the buffer does not match the geometry
func (p *Packetizer) PacketizeFrame(yuv []byte) ([]*Packet, error) {
	if len(yuv) != p.height*p.stride {
		return nil, fmt.Errorf("%w: %d bytes, want %d for %dx%d UYVY",
			ErrFrameSize, len(yuv), p.height*p.stride, p.width, p.height)
	}

	p.timestamp += ClockRate / uint32(p.frameRate)
	budget := p.mtu - HeaderSize

	var packets []*Packet
	line, lineOff := 0, 0 // lineOff in bytes within the current line
	for line < p.height {
		pkt := &Packet{}
		first := line
		remaining := budget
		for len(pkt.PayloadHeader.Lines) < p.linesPerPacket && line < p.height {
			take := p.stride - lineOff
			if take > remaining {
				// A line that would fit a fresh packet waits for one;
				// only lines wider than the whole budget get split.
				if p.stride <= budget {
					break
				}
				take = remaining - remaining%pgroupBytes
				if take == 0 {
					break
				}
			}
			pkt.PayloadHeader.Lines = append(pkt.PayloadHeader.Lines, LineHeader{
				Length: uint16(take),
				Number: uint16(line),
				Offset: uint16(lineOff / 2), // byte offset to pixel offset
			})
			start := line*p.stride + lineOff
			pkt.Pixels = append(pkt.Pixels, yuv[start:start+take]...)
			remaining -= take
			lineOff += take
			if lineOff == p.stride {
				line++
				lineOff = 0
			}
		}
		p.UpdateHeader(pkt, first, line >= p.height, p.timestamp, p.ssrc)
		packets = append(packets, pkt)
	}
	return packets, nil
}

// UpdateHeader fills the RTP and payload header fields of one packet and
// consumes the next sequence number. last marks the frame's final packet
// and sets the RTP marker bit. A packet that carries no line headers yet
// is seeded with a single whole-line entry for the given scan line.
func (p *Packetizer) UpdateHeader(pkt *Packet, line int, last bool, timestamp, source uint32) {
	if len(pkt.PayloadHeader.Lines) == 0 {
		pkt.PayloadHeader.Lines = append(pkt.PayloadHeader.Lines, LineHeader{
			Length: uint16(p.stride),
			Number: uint16(line),
		})
	}
	pkt.Header = rtp.Header{
		Version:        RTPVersion,
		Marker:         last,
		PayloadType:    PayloadType,
		SequenceNumber: uint16(p.sequence),
		Timestamp:      timestamp,
		SSRC:           source,
	}
	pkt.PayloadHeader.ExtendedSequence = uint16(p.sequence >> 16)
	p.sequence++
}

// Sequence returns the extended packet counter: the number of sequence
// numbers consumed so far, modulo 2^32.
func (p *Packetizer) Sequence() uint32 { return p.sequence }

// Timestamp returns the 90 kHz timestamp of the most recent frame.
func (p *Packetizer) Timestamp() uint32 { return p.timestamp }

// PacketsPerFrame returns how many packets one frame fragments into with
// the current geometry and budget. It dry-runs the packing rules of
// PacketizeFrame without touching the sequence or timestamp state.
func (p *Packetizer) PacketsPerFrame() int {
	budget := p.mtu - HeaderSize
	count := 0
	line, lineOff := 0, 0
	for line < p.height {
		count++
		slots, remaining := 0, budget
		for slots < p.linesPerPacket && line < p.height {
			take := p.stride - lineOff
			if take > remaining {
				if p.stride <= budget {
					break
				}
				take = remaining - remaining%pgroupBytes
				if take == 0 {
					break
				}
			}
			slots++
			remaining -= take
			lineOff += take
			if lineOff == p.stride {
				line++
				lineOff = 0
			}
		}
	}
	return count
}
