package mediax

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/DefenceX/vivoe-media-framework/pixel"
)

// Transmit converts one RGB frame to the wire pixel format, fragments it
// into line-addressed packets and sends them on the egress socket. It
// blocks until every packet is handed to the socket or a send fails.
//
// A send failure aborts the rest of the frame without retrying; the
// sequence numbers already consumed stay consumed, so the next call starts
// a fresh frame with fresh numbering.
//
// Parameters:
//   - rgb: packed RGB24 frame of exactly Height*Width*3 bytes, borrowed
//     for the duration of the call
//
// Returns:
//   - int: bytes handed to the socket, including aborted frames' partial
//     progress
//   - error: ErrNotOpen without an open egress socket; pixel.ErrBufferSize
//     for a wrong-sized frame; a transport error when a send fails,
//     including a concurrent Close closing the socket mid-frame
func (s *Stream) Transmit(rgb []byte) (int, error) {
	s.mu.Lock()
	egress, open := s.egress, s.open
	s.mu.Unlock()
	if !open || egress == nil {
		return 0, fmt.Errorf("%w: transmit needs an open egress socket", ErrNotOpen)
	}

	if err := pixel.RGBToYUV(s.cfg.Height, s.cfg.Width, rgb, s.txYUV); err != nil {
		return 0, err
	}
	packets, err := s.pk.PacketizeFrame(s.txYUV)
	if err != nil {
		return 0, err
	}

	total := 0
	for i, pkt := range packets {
		data, err := pkt.Marshal()
		if err != nil {
			s.cfg.Metrics.RecordTransmitError()
			return total, fmt.Errorf("transmit frame: %w", err)
		}
		n, err := egress.Send(data)
		total += n
		if err != nil {
			s.cfg.Metrics.RecordTransmitError()
			logrus.WithFields(logrus.Fields{
				"function": "Transmit",
				"packet":   i,
				"packets":  len(packets),
			}).WithError(err).Error("Frame transmission aborted")
			return total, fmt.Errorf("transmit frame: %w", err)
		}
	}

	s.cfg.Metrics.RecordFrameSent(len(packets), total)
	return total, nil
}
