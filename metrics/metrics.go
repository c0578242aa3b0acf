// Package metrics exposes Prometheus instruments for the streaming engine.
// A nil *Metrics is a valid no-op sink, so endpoints record unconditionally.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Drop reasons recorded by RecordPacketDropped.
const (
	// DropMalformed counts datagrams that failed to parse or carried
	// inconsistent line headers.
	DropMalformed = "malformed"

	// DropStale counts fragments of frames already delivered.
	DropStale = "stale"

	// DropForeign counts packets of another payload type or RTP version.
	DropForeign = "foreign"
)

// Metrics holds the engine's Prometheus instruments.
type Metrics struct {
	// Endpoint metrics
	OpenEndpoints prometheus.Gauge

	// Transmit metrics
	FramesSent     prometheus.Counter
	PacketsSent    prometheus.Counter
	BytesSent      prometheus.Counter
	FrameBytes     prometheus.Histogram
	TransmitErrors prometheus.Counter

	// Receive metrics
	FramesReceived  prometheus.Counter
	PacketsReceived prometheus.Counter
	BytesReceived   prometheus.Counter
	PacketsDropped  *prometheus.CounterVec
	SequenceGaps    prometheus.Counter
	ReceiveTimeouts prometheus.Counter
}

// New creates all instruments and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		// Endpoint metrics
		OpenEndpoints: factory.NewGauge(prometheus.GaugeOpts{
			Name: "vivoe_rtp_open_endpoints",
			Help: "Number of stream endpoints currently open",
		}),

		// Transmit metrics
		FramesSent: factory.NewCounter(prometheus.CounterOpts{
			Name: "vivoe_rtp_frames_sent_total",
			Help: "Total video frames transmitted",
		}),
		PacketsSent: factory.NewCounter(prometheus.CounterOpts{
			Name: "vivoe_rtp_packets_sent_total",
			Help: "Total RTP packets written to egress sockets",
		}),
		BytesSent: factory.NewCounter(prometheus.CounterOpts{
			Name: "vivoe_rtp_bytes_sent_total",
			Help: "Total bytes written to egress sockets",
		}),
		FrameBytes: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "vivoe_rtp_frame_bytes",
			Help:    "Wire size of transmitted frames in bytes",
			Buckets: prometheus.ExponentialBuckets(1024, 2, 12), // 1KB to ~2MB
		}),
		TransmitErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "vivoe_rtp_transmit_errors_total",
			Help: "Total frames aborted by a send failure",
		}),

		// Receive metrics
		FramesReceived: factory.NewCounter(prometheus.CounterOpts{
			Name: "vivoe_rtp_frames_received_total",
			Help: "Total video frames reassembled and delivered",
		}),
		PacketsReceived: factory.NewCounter(prometheus.CounterOpts{
			Name: "vivoe_rtp_packets_received_total",
			Help: "Total RTP packets accepted from ingress sockets",
		}),
		BytesReceived: factory.NewCounter(prometheus.CounterOpts{
			Name: "vivoe_rtp_bytes_received_total",
			Help: "Total bytes accepted from ingress sockets",
		}),
		PacketsDropped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vivoe_rtp_packets_dropped_total",
				Help: "Total packets discarded before reassembly",
			},
			[]string{"reason"},
		),
		SequenceGaps: factory.NewCounter(prometheus.CounterOpts{
			Name: "vivoe_rtp_sequence_gaps_total",
			Help: "Total extended sequence number discontinuities observed",
		}),
		ReceiveTimeouts: factory.NewCounter(prometheus.CounterOpts{
			Name: "vivoe_rtp_receive_timeouts_total",
			Help: "Total receive calls that expired without a frame",
		}),
	}
}

// RecordEndpointOpened records an endpoint opening its sockets.
func (m *Metrics) RecordEndpointOpened() {
	if m == nil {
		return
	}
	m.OpenEndpoints.Inc()
}

// RecordEndpointClosed records an open endpoint closing.
func (m *Metrics) RecordEndpointClosed() {
	if m == nil {
		return
	}
	m.OpenEndpoints.Dec()
}

// RecordFrameSent records one fully transmitted frame.
func (m *Metrics) RecordFrameSent(packets, bytes int) {
	if m == nil {
		return
	}
	m.FramesSent.Inc()
	m.PacketsSent.Add(float64(packets))
	m.BytesSent.Add(float64(bytes))
	m.FrameBytes.Observe(float64(bytes))
}

// RecordTransmitError records a frame aborted by a send failure.
func (m *Metrics) RecordTransmitError() {
	if m == nil {
		return
	}
	m.TransmitErrors.Inc()
}

// RecordPacketReceived records one accepted ingress packet.
func (m *Metrics) RecordPacketReceived(bytes int) {
	if m == nil {
		return
	}
	m.PacketsReceived.Inc()
	m.BytesReceived.Add(float64(bytes))
}

// RecordFrameReceived records one delivered frame.
func (m *Metrics) RecordFrameReceived() {
	if m == nil {
		return
	}
	m.FramesReceived.Inc()
}

// RecordPacketDropped records a discarded packet by reason.
func (m *Metrics) RecordPacketDropped(reason string) {
	if m == nil {
		return
	}
	m.PacketsDropped.WithLabelValues(reason).Inc()
}

// RecordSequenceGap records a sequence discontinuity.
func (m *Metrics) RecordSequenceGap() {
	if m == nil {
		return
	}
	m.SequenceGaps.Inc()
}

// RecordReceiveTimeout records a receive deadline expiring.
func (m *Metrics) RecordReceiveTimeout() {
	if m == nil {
		return
	}
	m.ReceiveTimeouts.Inc()
}
