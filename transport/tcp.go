// Copyright 2026 The Oriel Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"
)

// Compile-time interface checks.
var (
	_ Listener = (*TCPListener)(nil)
	_ Dialer   = (*TCPDialer)(nil)
)

// TCPListener accepts inbound viewer connections on a TCP port. This is
// the development and same-LAN transport; it requires direct TCP
// reachability from the viewer to the gateway. For NAT traversal, use
// [WebRTCListener].
type TCPListener struct {
	listener  net.Listener
	closed    chan struct{}
	closeOnce sync.Once
}

// NewTCPListener creates a TCP session listener on the specified address
// (e.g., ":7300" or "192.168.1.10:7300"). Use ":0" for a random
// available port.
func NewTCPListener(address string) (*TCPListener, error) {
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return nil, err
	}
	return &TCPListener{
		listener: listener,
		closed:   make(chan struct{}),
	}, nil
}

// Serve accepts TCP connections and dispatches each to handle in its
// own goroutine. Blocks until ctx is cancelled or Close is called.
func (l *TCPListener) Serve(ctx context.Context, handle SessionHandler) error {
	go func() {
		select {
		case <-ctx.Done():
		case <-l.closed:
		}
		l.listener.Close()
	}()

	for {
		conn, err := l.listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			case <-l.closed:
				return nil
			default:
				return fmt.Errorf("accept: %w", err)
			}
		}
		go handle(ctx, conn)
	}
}

// Address returns the TCP address in "host:port" format.
func (l *TCPListener) Address() string {
	return l.listener.Addr().String()
}

// Close shuts down the TCP listener. Sessions already handed to the
// handler keep running; the handler winds them down via its context.
func (l *TCPListener) Close() error {
	l.closeOnce.Do(func() {
		close(l.closed)
	})
	return l.listener.Close()
}

// TCPDialer opens TCP connections to a gateway.
type TCPDialer struct {
	// Timeout is the maximum time to wait for a TCP connection to be
	// established. Zero means no standalone timeout; only the context
	// deadline applies.
	Timeout time.Duration
}

// DialContext opens a TCP connection to the given address (host:port).
func (d *TCPDialer) DialContext(ctx context.Context, address string) (net.Conn, error) {
	return (&net.Dialer{Timeout: d.Timeout}).DialContext(ctx, "tcp", address)
}
