// Copyright 2026 The Oriel Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"net"
)

// SessionHandler runs one viewer session. The handler owns the
// connection: it must close conn before returning, and it must watch
// ctx so sessions wind down when the gateway stops.
type SessionHandler func(ctx context.Context, conn net.Conn)

// Listener accepts inbound viewer connections. The gateway creates one
// Listener per configured transport and serves them all with the same
// session handler.
type Listener interface {
	// Serve starts accepting connections and dispatches each one to
	// handle in its own goroutine. Blocks until ctx is cancelled or
	// Close is called. Returns nil on clean shutdown.
	Serve(ctx context.Context, handle SessionHandler) error

	// Address returns the address viewers connect (or signal) to. The
	// format is transport-specific: "host:port" for TCP, the signaling
	// "host:port" for WebRTC.
	Address() string

	// Close shuts down the listener. Subsequent calls to Serve return
	// immediately.
	Close() error
}

// Dialer opens a session connection to a gateway. Used by the snapshot
// and diagnostic tools, and by tests.
type Dialer interface {
	// DialContext opens a connection to the gateway at the given
	// transport address. The address format matches what the gateway's
	// Listener.Address() advertises.
	DialContext(ctx context.Context, address string) (net.Conn, error)
}
