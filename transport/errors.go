package transport

import (
	"errors"
	"fmt"
)

// Sentinel errors for the failure classes the socket layer distinguishes.
// Callers match them with errors.Is.
var (
	// ErrResolution indicates a hostname that could not be resolved.
	ErrResolution = errors.New("hostname resolution failed")

	// ErrSocket indicates a failure creating, binding or using a socket.
	ErrSocket = errors.New("socket failure")

	// ErrTimeout indicates a receive deadline that expired with no data.
	ErrTimeout = errors.New("receive timed out")

	// ErrClosed indicates use of a transport after Close.
	ErrClosed = errors.New("transport closed")
)

// OpError records the operation and address that produced a transport
// error, following the shape of net.OpError.
type OpError struct {
	// Op names the failing operation: resolve, bind, open, send or recv.
	Op string

	// Addr is the remote or local address involved, when known.
	Addr string

	// Err is the underlying error, wrapping one of the sentinels above.
	Err error
}

func (e *OpError) Error() string {
	if e.Addr != "" {
		return fmt.Sprintf("rtp transport %s %s: %v", e.Op, e.Addr, e.Err)
	}
	return fmt.Sprintf("rtp transport %s: %v", e.Op, e.Err)
}

func (e *OpError) Unwrap() error {
	return e.Err
}
