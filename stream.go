package mediax

import (
	"fmt"
	"net"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/DefenceX/vivoe-media-framework/metrics"
	"github.com/DefenceX/vivoe-media-framework/transport"
	"github.com/DefenceX/vivoe-media-framework/vraw"
)

// maxDatagram is the receive scratch size: the largest UDP payload a
// conforming peer could send.
const maxDatagram = 0xFFFF

// Config carries the construction-time parameters of a stream endpoint.
// Geometry and wire parameters are fixed for the endpoint's life; there is
// no renegotiation.
type Config struct {
	// Height and Width fix the frame geometry in pixels. Width must be
	// even for 4:2:2 sampling.
	Height int
	Width  int

	// FrameRate advances the 90 kHz timestamp per transmitted frame, in
	// frames per second. Zero selects vraw.DefaultFrameRate.
	FrameRate int

	// SSRC is the stream-unique source identifier stamped on outbound
	// packets. Zero selects vraw.DefaultSSRC.
	SSRC uint32

	// LinesPerPacket caps scan lines per packet. Zero selects
	// vraw.MaxLinesPerPacket.
	LinesPerPacket int

	// MTU is the per-packet byte budget including headers. Zero selects
	// vraw.DefaultMTU.
	MTU int

	// Metrics is an optional diagnostics sink. Nil disables recording.
	Metrics *metrics.Metrics
}

// DefaultConfig returns the standard configuration for the given frame
// geometry.
func DefaultConfig(height, width int) Config {
	return Config{
		Height:         height,
		Width:          width,
		FrameRate:      vraw.DefaultFrameRate,
		SSRC:           vraw.DefaultSSRC,
		LinesPerPacket: vraw.MaxLinesPerPacket,
		MTU:            vraw.DefaultMTU,
	}
}

func (c *Config) applyDefaults() {
	if c.FrameRate == 0 {
		c.FrameRate = vraw.DefaultFrameRate
	}
	if c.SSRC == 0 {
		c.SSRC = vraw.DefaultSSRC
	}
	if c.LinesPerPacket == 0 {
		c.LinesPerPacket = vraw.MaxLinesPerPacket
	}
	if c.MTU == 0 {
		c.MTU = vraw.DefaultMTU
	}
}

// Stream is an RTP raw video endpoint. It owns its sockets, its sequence
// and timestamp state and its reassembly buffer; pixel buffers passed in
// and out of calls are borrowed for the duration of the call only.
//
// Egress and ingress are independent: one goroutine may Transmit while
// another Receives. Goroutines must not share a direction. Close may be
// called from any goroutine; a Transmit or Receive in flight unblocks and
// returns an error instead of using the released socket.
type Stream struct {
	cfg Config

	pk    *vraw.Packetizer
	txYUV []byte // wire format conversion buffer, reused per Transmit

	// mu guards the lifecycle fields, the reassembly state and the frame
	// counter. It is never held across Send or Recv.
	mu     sync.Mutex
	dep    *vraw.Depacketizer
	frames uint64

	rxBuf []byte // datagram scratch, reused per Recv

	egressHost  string
	egressPort  int
	egressSet   bool
	ingressHost string
	ingressPort int
	ingressSet  bool

	egress  transport.Transport
	ingress transport.Transport
	open    bool
	closed  bool
}

// New creates a stream endpoint for the given configuration. The endpoint
// is constructed closed; configure directions with SetEgress and
// SetIngress, then call Open.
func New(cfg Config) (*Stream, error) {
	cfg.applyDefaults()

	pk, err := vraw.NewPacketizer(cfg.Height, cfg.Width, cfg.SSRC,
		cfg.FrameRate, cfg.LinesPerPacket, cfg.MTU)
	if err != nil {
		return nil, err
	}
	dep, err := vraw.NewDepacketizer(cfg.Height, cfg.Width)
	if err != nil {
		return nil, err
	}

	return &Stream{
		cfg:   cfg,
		pk:    pk,
		dep:   dep,
		txYUV: make([]byte, cfg.Height*cfg.Width*2),
		rxBuf: make([]byte, maxDatagram),
	}, nil
}

// SetEgress configures the remote host and port Transmit sends frames to.
// host may name a unicast peer or a multicast group. Takes effect at Open.
func (s *Stream) SetEgress(host string, port int) {
	s.egressHost, s.egressPort, s.egressSet = host, port, true
}

// SetIngress configures the local host and port Receive listens on. An
// empty host binds every interface; port 0 picks an ephemeral port. Takes
// effect at Open.
func (s *Stream) SetIngress(host string, port int) {
	s.ingressHost, s.ingressPort, s.ingressSet = host, port, true
}

// Open resolves the configured addresses and opens their sockets. Any
// socket opened before a later step fails is released again, so a failed
// Open holds no resources. Opening an already open endpoint is a no-op.
//
// Returns an error unwrapping to transport.ErrResolution when a hostname
// lookup fails, transport.ErrSocket when a socket cannot be created or
// bound, and ErrNotOpen when the endpoint was already closed.
func (s *Stream) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.open {
		return nil
	}
	if s.closed {
		return fmt.Errorf("%w: endpoint already closed", ErrNotOpen)
	}
	if !s.egressSet && !s.ingressSet {
		return fmt.Errorf("%w: open needs an egress or ingress address", vraw.ErrInvalidConfig)
	}

	if s.egressSet {
		t, err := transport.DialUDP(s.egressHost, s.egressPort)
		if err != nil {
			return err
		}
		s.egress = t
	}
	if s.ingressSet {
		t, err := transport.ListenUDP(s.ingressHost, s.ingressPort)
		if err != nil {
			if s.egress != nil {
				s.egress.Close()
				s.egress = nil
			}
			return err
		}
		s.ingress = t
	}
	s.open = true
	s.cfg.Metrics.RecordEndpointOpened()

	fields := logrus.Fields{
		"function": "Open",
		"width":    s.cfg.Width,
		"height":   s.cfg.Height,
	}
	if s.egress != nil {
		fields["egress"] = net.JoinHostPort(s.egressHost, fmt.Sprint(s.egressPort))
	}
	if s.ingress != nil {
		fields["ingress"] = s.ingress.LocalAddr().String()
	}
	logrus.WithFields(fields).Info("Stream endpoint opened")
	return nil
}

// Close releases the endpoint's sockets. It is safe to call repeatedly and
// is terminal: later Transmit, Receive and Open calls fail with ErrNotOpen.
// The transports stay referenced so a call racing the close fails on the
// closed socket instead of crashing on a vanished one.
func (s *Stream) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	wasOpen := s.open
	s.closed = true
	s.open = false
	egress, ingress := s.egress, s.ingress
	frames := s.frames
	s.mu.Unlock()

	var first error
	for _, t := range []transport.Transport{egress, ingress} {
		if t == nil {
			continue
		}
		if err := t.Close(); err != nil && first == nil {
			first = err
		}
	}

	if wasOpen {
		s.cfg.Metrics.RecordEndpointClosed()
		logrus.WithFields(logrus.Fields{
			"function": "Close",
			"frames":   frames,
		}).Info("Stream endpoint closed")
	}
	return first
}

// IngressAddr reports the bound ingress address, or nil when the endpoint
// has no open ingress socket. Useful with port 0 configurations.
func (s *Stream) IngressAddr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open || s.ingress == nil {
		return nil
	}
	return s.ingress.LocalAddr()
}

// FrameCount reports how many frames Receive has delivered.
func (s *Stream) FrameCount() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames
}
