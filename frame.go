package mediax

import (
	"sync"

	"github.com/DefenceX/vivoe-media-framework/pixel"
)

// Frame is one video frame and its stream position. Frames delivered by
// Receive carry the wire pixel format, packed UYVY 4:2:2; frames published
// by a producer carry whatever packed format its consumer expects.
//
// Data is shared, never copied: writers hand the buffer off and stop
// touching it, and frames from Receive stay valid only until the next
// Receive call.
type Frame struct {
	Data   []byte
	Width  int
	Height int

	// Seq numbers the frame: the endpoint's delivery counter for received
	// frames, the publish counter for exchanged frames.
	Seq uint64

	// Timestamp is the RTP timestamp on the 90 kHz clock, zero for frames
	// that never crossed the wire.
	Timestamp uint32
}

// RGB expands the frame's UYVY pixels into dst as packed RGB24. dst must
// hold exactly Height*Width*3 bytes.
func (f *Frame) RGB(dst []byte) error {
	return pixel.YUVToRGB(f.Height, f.Width, f.Data, dst)
}

// RGBA expands the frame's UYVY pixels into dst as packed RGBA with opaque
// alpha. dst must hold exactly Height*Width*4 bytes.
func (f *Frame) RGBA(dst []byte) error {
	return pixel.YUVToRGBA(f.Height, f.Width, f.Data, dst)
}

// FrameExchange hands frames from a producer to a consumer, such as a
// receive loop feeding a display. It is a latest-frame mailbox: a slow
// consumer sees the newest frame, never a backlog. Both sides may run in
// their own goroutines.
type FrameExchange struct {
	mu    sync.Mutex
	frame Frame
	seq   uint64
}

// Publish replaces the mailbox contents with f and returns its publish
// number, starting at 1. The frame's Data is shared; the producer must not
// modify it after publishing.
func (x *FrameExchange) Publish(f Frame) uint64 {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.seq++
	f.Seq = x.seq
	x.frame = f
	return x.seq
}

// Latest returns the most recently published frame. ok is false until the
// first Publish.
func (x *FrameExchange) Latest() (Frame, bool) {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.seq == 0 {
		return Frame{}, false
	}
	return x.frame, true
}
