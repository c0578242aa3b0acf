package transport

import (
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"
)

// Transport is the datagram surface the stream endpoints drive. Production
// code uses UDP; tests substitute in-memory implementations.
type Transport interface {
	// Send writes one datagram and reports the bytes written.
	Send(data []byte) (int, error)

	// Recv reads one datagram into buf before the absolute deadline. A
	// zero deadline blocks until data arrives.
	Recv(buf []byte, deadline time.Time) (int, error)

	// LocalAddr reports the bound local address.
	LocalAddr() net.Addr

	// Close releases the socket. Safe to call more than once.
	Close() error
}

// UDP is a Transport over a single UDP socket.
type UDP struct {
	conn   net.PacketConn
	remote net.Addr // nil for ingress sockets

	mu     sync.Mutex
	closed bool
}

var _ Transport = (*UDP)(nil)

// DialUDP resolves host and port and opens an egress socket aimed at the
// result. The local port is ephemeral. host may also be a multicast group
// address.
func DialUDP(host string, port int) (*UDP, error) {
	target := net.JoinHostPort(host, strconv.Itoa(port))
	raddr, err := net.ResolveUDPAddr("udp", target)
	if err != nil {
		return nil, &OpError{Op: "resolve", Addr: target, Err: fmt.Errorf("%w: %v", ErrResolution, err)}
	}

	conn, err := net.ListenPacket("udp", ":0")
	if err != nil {
		return nil, &OpError{Op: "open", Addr: target, Err: fmt.Errorf("%w: %v", ErrSocket, err)}
	}
	return &UDP{conn: conn, remote: raddr}, nil
}

// ListenUDP resolves host and port and binds an ingress socket to the
// result. An empty host binds every local interface; port 0 picks an
// ephemeral port, readable afterwards through LocalAddr.
func ListenUDP(host string, port int) (*UDP, error) {
	local := net.JoinHostPort(host, strconv.Itoa(port))
	laddr, err := net.ResolveUDPAddr("udp", local)
	if err != nil {
		return nil, &OpError{Op: "resolve", Addr: local, Err: fmt.Errorf("%w: %v", ErrResolution, err)}
	}

	conn, err := net.ListenPacket("udp", laddr.String())
	if err != nil {
		return nil, &OpError{Op: "bind", Addr: laddr.String(), Err: fmt.Errorf("%w: %v", ErrSocket, err)}
	}
	return &UDP{conn: conn}, nil
}

// Send writes one datagram to the dialled remote address.
func (u *UDP) Send(data []byte) (int, error) {
	if u.isClosed() {
		return 0, &OpError{Op: "send", Err: ErrClosed}
	}
	if u.remote == nil {
		return 0, &OpError{Op: "send", Err: fmt.Errorf("%w: transport has no remote address", ErrSocket)}
	}

	n, err := u.conn.WriteTo(data, u.remote)
	if err != nil {
		if u.isClosed() {
			return n, &OpError{Op: "send", Addr: u.remote.String(), Err: ErrClosed}
		}
		return n, &OpError{Op: "send", Addr: u.remote.String(), Err: fmt.Errorf("%w: %v", ErrSocket, err)}
	}
	return n, nil
}

// Recv reads one datagram into buf, honouring the absolute deadline. On
// expiry the error unwraps to ErrTimeout.
func (u *UDP) Recv(buf []byte, deadline time.Time) (int, error) {
	if u.isClosed() {
		return 0, &OpError{Op: "recv", Err: ErrClosed}
	}
	if err := u.conn.SetReadDeadline(deadline); err != nil {
		return 0, &OpError{Op: "recv", Err: fmt.Errorf("%w: %v", ErrSocket, err)}
	}

	n, _, err := u.conn.ReadFrom(buf)
	if err != nil {
		if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
			return 0, &OpError{Op: "recv", Err: fmt.Errorf("%w: no datagram before deadline", ErrTimeout)}
		}
		if u.isClosed() {
			return 0, &OpError{Op: "recv", Err: ErrClosed}
		}
		return 0, &OpError{Op: "recv", Err: fmt.Errorf("%w: %v", ErrSocket, err)}
	}
	return n, nil
}

// LocalAddr reports the bound local address.
func (u *UDP) LocalAddr() net.Addr {
	return u.conn.LocalAddr()
}

// RemoteAddr reports the dialled remote address, nil for ingress sockets.
func (u *UDP) RemoteAddr() net.Addr {
	return u.remote
}

// Close releases the socket. Further Send and Recv calls fail with
// ErrClosed.
func (u *UDP) Close() error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.closed {
		return nil
	}
	u.closed = true
	return u.conn.Close()
}

func (u *UDP) isClosed() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.closed
}
