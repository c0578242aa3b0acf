// Package transport provides the UDP socket layer beneath the stream
// endpoints. An egress transport is aimed at one remote address at dial
// time; an ingress transport binds a local address and reads whatever
// arrives. Joining multicast groups is left to the host configuration.
//
// Errors are classified by sentinel: resolution failures, socket failures,
// deadline expiry and use after close each unwrap to their own value, with
// an OpError carrying the operation and address for context.
package transport
