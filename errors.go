package mediax

import "errors"

// ErrNotOpen indicates a Transmit or Receive before Open succeeded or
// after Close, or an Open on an endpoint that was already closed.
var ErrNotOpen = errors.New("stream endpoint not open")
