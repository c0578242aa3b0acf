// Package mediax implements a streaming engine for uncompressed video over
// RTP, as used on DEF STAN 00-82 style vehicle networks.
//
// Frames travel as packed UYVY 4:2:2 pixel data split across line-addressed
// RTP packets. The package provides the main API facade that integrates the
// engine's subsystems: wire format packetization, pixel format conversion,
// UDP transport and diagnostics.
//
// # Getting Started
//
// Create a stream endpoint for a fixed frame geometry, aim it at a peer and
// transmit RGB frames:
//
//	cfg := mediax.DefaultConfig(480, 640)
//	stream, err := mediax.New(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	stream.SetEgress("239.192.1.1", 5004)
//	if err := stream.Open(); err != nil {
//	    log.Fatal(err)
//	}
//	defer stream.Close()
//
//	for frame := range source {
//	    if _, err := stream.Transmit(frame); err != nil {
//	        log.Fatal(err)
//	    }
//	}
//
// The receive side mirrors it:
//
//	stream, err := mediax.New(mediax.DefaultConfig(480, 640))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	stream.SetIngress("", 5004)
//	if err := stream.Open(); err != nil {
//	    log.Fatal(err)
//	}
//	defer stream.Close()
//
//	rgb := make([]byte, 480*640*3)
//	for {
//	    frame, err := stream.Receive(5 * time.Second)
//	    if err != nil {
//	        log.Print(err)
//	        continue
//	    }
//	    frame.RGB(rgb)
//	    consume(rgb)
//	}
//
// # Core Types
//
//   - [Stream]: endpoint owning the sockets, sequence state and frame buffer
//   - [Config]: construction-time geometry and wire parameters
//   - [Frame]: one reassembled frame in the wire pixel format
//   - [FrameExchange]: latest-frame mailbox between producer and consumer
//
// # Timeouts
//
// Receive takes an explicit timeout. A positive value bounds the whole
// call, zero polls without blocking beyond a fixed bound, and NoTimeout
// waits indefinitely:
//
//	frame, err := stream.Receive(mediax.NoTimeout)
//
// Expiry surfaces as a transport timeout error and keeps any partially
// accumulated frame, so a later call resumes where the stream left off.
//
// # Thread Safety
//
// Egress and ingress state are independent: one goroutine may call
// Transmit while another calls Receive on the same endpoint. Two
// goroutines must not share one direction. Close may come from any
// goroutine and unblocks in-flight calls with an error. The lifecycle
// fields, reassembly buffer and frame counter are guarded by an endpoint
// mutex that is never held across a blocking socket call.
//
// # Integration Architecture
//
// This package orchestrates:
//
//   - vraw: the line-addressed RTP payload format
//   - pixel: RGB and UYVY conversions
//   - transport: UDP sockets with deadline-based receives
//   - metrics: optional Prometheus instruments
package mediax
