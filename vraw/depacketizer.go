package vraw

import (
	"fmt"
)

// Result reports what one packet did to the frame being reassembled.
type Result struct {
	// Complete is set when the frame buffer now holds a finished frame,
	// either because the packet carried the marker bit or because every
	// scan line has been filled.
	Complete bool

	// Gap is set when the packet's extended sequence number is not the
	// successor of the previous packet's. Gaps never block completion.
	Gap bool

	// Stale is set when the packet repeats the one before it or belongs
	// to a frame that was already delivered. Its fragments are discarded.
	Stale bool
}

// Depacketizer reassembles raw video packets into a frame buffer. It keeps
// no locking of its own; the owning endpoint serialises access.
//
// Frames are delivered on the marker packet or once all lines are filled,
// whichever comes first. Missing fragments leave zeroed pixels; the frame
// is delivered regardless, favouring freshness over completeness.
type Depacketizer struct {
	height int
	width  int
	stride int

	buf       []byte // reassembly buffer, height*stride bytes
	lineFill  []int  // bytes received per scan line of the current frame
	linesDone int
	active    bool   // a frame is accumulating
	timestamp uint32 // RTP timestamp of the accumulating frame

	delivered    uint32 // RTP timestamp of the last delivered frame
	hasDelivered bool

	sequence    uint32 // last observed extended sequence number
	hasSequence bool
}

// NewDepacketizer returns a depacketizer with a reassembly buffer sized for
// the given frame geometry.
func NewDepacketizer(height, width int) (*Depacketizer, error) {
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
	return &Depacketizer{
		height:   height,
		width:    width,
		stride:   stride,
		buf:      make([]byte, height*stride),
		lineFill: make([]int, height),
	}, nil
}

// ProcessPacket folds one parsed packet into the frame under assembly.
//
// Fragments are copied to their line and offset positions in the frame
// buffer. A packet whose line headers address pixels outside the frame, or
// declare more bytes than it carries, is dropped whole. A datagram
// repeating the previous sequence number mid-assembly is discarded as a
// duplicate. A timestamp change without a marker abandons the stale
// partial frame and starts the new one.
//
// Parameters:
//   - pkt: a packet whose header fields have already been screened by the
//     caller (payload type, version)
//
// Returns:
//   - Result: completion, sequence gap and staleness flags
//   - error: ErrMalformedPacket when the line headers are inconsistent
//     with the frame geometry; the frame state is unchanged
func (d *Depacketizer) ProcessPacket(pkt *Packet) (Result, error) {
	var res Result

	seq := uint32(pkt.PayloadHeader.ExtendedSequence)<<16 | uint32(pkt.Header.SequenceNumber)
	if d.active && d.hasSequence && seq == d.sequence {
		// A duplicated datagram must not count its lines twice: a split
		// line would read complete while a fragment is still missing.
		res.Stale = true
		return res, nil
	}
	if d.hasSequence && seq != d.sequence+1 {
		res.Gap = true
	}
	d.sequence = seq
	d.hasSequence = true

	if d.hasDelivered && pkt.Header.Timestamp == d.delivered {
		res.Stale = true
		return res, nil
	}

	declared := 0
	for _, lh := range pkt.PayloadHeader.Lines {
		length := int(lh.Length)
		byteOff := int(lh.Offset) * 2
		if int(lh.Number) >= d.height || byteOff+length > d.stride {
			return res, fmt.Errorf("%w: line %d offset %d length %d outside a %dx%d frame",
				ErrMalformedPacket, lh.Number, lh.Offset, lh.Length, d.width, d.height)
		}
		declared += length
	}
	if declared > len(pkt.Pixels) {
		return res, fmt.Errorf("%w: line headers declare %d pixel bytes, packet carries %d",
			ErrMalformedPacket, declared, len(pkt.Pixels))
	}

	if d.active && pkt.Header.Timestamp != d.timestamp {
		// The sender moved on before this frame finished. Drop the
		// partial frame and follow the fresh one.
		d.active = false
	}
	if !d.active {
		d.begin(pkt.Header.Timestamp)
	}

	off := 0
	for _, lh := range pkt.PayloadHeader.Lines {
		length := int(lh.Length)
		pos := int(lh.Number)*d.stride + int(lh.Offset)*2
		copy(d.buf[pos:pos+length], pkt.Pixels[off:off+length])
		off += length

		fill := d.lineFill[lh.Number] + length
		d.lineFill[lh.Number] = fill
		if fill >= d.stride && fill-length < d.stride {
			d.linesDone++
		}
	}

	if pkt.Header.Marker || d.linesDone == d.height {
		d.active = false
		d.delivered = pkt.Header.Timestamp
		d.hasDelivered = true
		res.Complete = true
	}
	return res, nil
}

// Frame returns the reassembly buffer. The buffer is reused: its contents
// are stable only until the next frame begins accumulating.
func (d *Depacketizer) Frame() []byte { return d.buf }

// Reset discards any partially accumulated frame.
func (d *Depacketizer) Reset() {
	d.active = false
}

// begin prepares the buffer for a new frame. Zeroing it keeps lost
// fragments from showing pixels of older frames when a partial frame is
// delivered.
func (d *Depacketizer) begin(timestamp uint32) {
	d.active = true
	d.timestamp = timestamp
	d.linesDone = 0
	for i := range d.lineFill {
		d.lineFill[i] = 0
	}
	for i := range d.buf {
		d.buf[i] = 0
	}
}
