package mediax

import (
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/DefenceX/vivoe-media-framework/metrics"
	"github.com/DefenceX/vivoe-media-framework/transport"
	"github.com/DefenceX/vivoe-media-framework/vraw"
)

// NoTimeout makes Receive wait indefinitely for a frame.
const NoTimeout time.Duration = -1

// pollBound caps a zero-timeout Receive: one pass over whatever is already
// queued, never a real wait.
const pollBound = 5 * time.Millisecond

// Receive blocks on the ingress socket until a complete frame has been
// reassembled, the timeout expires or a socket error occurs.
//
// A positive timeout bounds the whole call across however many packets the
// frame needs. Zero polls the already-queued packets within a small fixed
// bound. NoTimeout, or any negative value, waits indefinitely.
//
// Malformed datagrams, packets of a foreign payload type and fragments of
// already-delivered frames are dropped without aborting the call. Sequence
// gaps are observed but never block delivery: a frame with lost fragments
// is returned as-is with the missing pixels zeroed. On expiry the partial
// frame is kept and the next call continues accumulating it.
//
// Parameters:
//   - timeout: deadline for the whole call, zero to poll, negative to wait
//     indefinitely
//
// Returns:
//   - *Frame: the delivered frame, viewing the endpoint's reassembly
//     buffer; its pixels are valid until the next Receive call
//   - error: ErrNotOpen without an open ingress socket or when the
//     endpoint is closed while the call runs; an error unwrapping to
//     transport.ErrTimeout on expiry; a transport error when the socket
//     fails
func (s *Stream) Receive(timeout time.Duration) (*Frame, error) {
	var deadline time.Time
	switch {
	case timeout > 0:
		deadline = time.Now().Add(timeout)
	case timeout == 0:
		deadline = time.Now().Add(pollBound)
	}

	for {
		// A concurrent Close can land between reads; re-check the
		// lifecycle each pass and never hold the lock across Recv.
		s.mu.Lock()
		ingress, open := s.ingress, s.open
		s.mu.Unlock()
		if !open || ingress == nil {
			return nil, fmt.Errorf("%w: receive needs an open ingress socket", ErrNotOpen)
		}

		n, err := ingress.Recv(s.rxBuf, deadline)
		if err != nil {
			if errors.Is(err, transport.ErrTimeout) {
				s.cfg.Metrics.RecordReceiveTimeout()
			}
			if errors.Is(err, transport.ErrClosed) {
				return nil, fmt.Errorf("%w: endpoint closed during receive", ErrNotOpen)
			}
			return nil, fmt.Errorf("receive frame: %w", err)
		}

		var pkt vraw.Packet
		if err := pkt.Unmarshal(s.rxBuf[:n]); err != nil {
			s.cfg.Metrics.RecordPacketDropped(metrics.DropMalformed)
			logrus.WithFields(logrus.Fields{
				"function": "Receive",
				"bytes":    n,
			}).WithError(err).Warn("Dropping malformed datagram")
			continue
		}
		if pkt.Header.Version != vraw.RTPVersion || pkt.Header.PayloadType != vraw.PayloadType {
			s.cfg.Metrics.RecordPacketDropped(metrics.DropForeign)
			continue
		}
		s.cfg.Metrics.RecordPacketReceived(n)

		s.mu.Lock()
		res, err := s.dep.ProcessPacket(&pkt)
		if res.Complete {
			s.frames++
		}
		count := s.frames
		s.mu.Unlock()

		if err != nil {
			s.cfg.Metrics.RecordPacketDropped(metrics.DropMalformed)
			logrus.WithFields(logrus.Fields{
				"function": "Receive",
				"sequence": pkt.Header.SequenceNumber,
			}).WithError(err).Warn("Dropping packet with inconsistent line headers")
			continue
		}
		if res.Gap {
			s.cfg.Metrics.RecordSequenceGap()
			logrus.WithFields(logrus.Fields{
				"function": "Receive",
				"sequence": pkt.Header.SequenceNumber,
			}).Warn("Sequence gap detected")
		}
		if res.Stale {
			s.cfg.Metrics.RecordPacketDropped(metrics.DropStale)
			continue
		}
		if res.Complete {
			s.cfg.Metrics.RecordFrameReceived()
			return &Frame{
				Data:      s.dep.Frame(),
				Width:     s.cfg.Width,
				Height:    s.cfg.Height,
				Seq:       count,
				Timestamp: pkt.Header.Timestamp,
			}, nil
		}
	}
}
