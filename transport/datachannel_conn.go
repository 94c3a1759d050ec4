// Copyright 2026 The Oriel Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"io"
	"net"
	"sync"
	"time"
)

// DataChannelConn wraps a detached pion data channel ReadWriteCloser as
// a net.Conn. The underlying ReadWriteCloser is stream-oriented (SCTP
// handles message fragmentation and reassembly), so the session framing
// in the protocol package runs over it exactly as it does over TCP.
//
// Deadline support uses timer-based cancellation: when a deadline
// fires, the underlying stream is closed, causing any blocked
// Read/Write to return an error. Once a deadline has fired the conn is
// permanently broken, which matches how the gateway uses deadlines (a
// viewer that stalls past its write deadline is disconnected, not
// retried).
type DataChannelConn struct {
	rwc        io.ReadWriteCloser
	localLabel string
	peerLabel  string

	mu             sync.Mutex
	readTimer      *time.Timer
	writeTimer     *time.Timer
	deadlineClosed bool
}

// Compile-time interface check.
var _ net.Conn = (*DataChannelConn)(nil)

// NewDataChannelConn wraps a detached pion data channel as a net.Conn.
// localLabel identifies the local endpoint (for logging and Addr);
// peerLabel identifies the remote endpoint.
func NewDataChannelConn(rwc io.ReadWriteCloser, localLabel, peerLabel string) *DataChannelConn {
	return &DataChannelConn{
		rwc:        rwc,
		localLabel: localLabel,
		peerLabel:  peerLabel,
	}
}

func (c *DataChannelConn) Read(buffer []byte) (int, error) {
	return c.rwc.Read(buffer)
}

func (c *DataChannelConn) Write(buffer []byte) (int, error) {
	return c.rwc.Write(buffer)
}

func (c *DataChannelConn) Close() error {
	c.mu.Lock()
	c.stopTimerLocked(&c.readTimer)
	c.stopTimerLocked(&c.writeTimer)
	c.mu.Unlock()
	return c.rwc.Close()
}

// LocalAddr returns a synthetic address identifying the local data
// channel endpoint.
func (c *DataChannelConn) LocalAddr() net.Addr {
	return &dataChannelAddr{label: c.localLabel}
}

// RemoteAddr returns a synthetic address identifying the remote data
// channel endpoint.
func (c *DataChannelConn) RemoteAddr() net.Addr {
	return &dataChannelAddr{label: c.peerLabel}
}

// SetDeadline sets both read and write deadlines. A zero value clears
// the deadline.
func (c *DataChannelConn) SetDeadline(deadline time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.armTimerLocked(&c.readTimer, deadline)
	c.armTimerLocked(&c.writeTimer, deadline)
	return nil
}

// SetReadDeadline sets the read deadline. When the deadline fires,
// pending reads return an error. A zero value clears the deadline.
func (c *DataChannelConn) SetReadDeadline(deadline time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.armTimerLocked(&c.readTimer, deadline)
	return nil
}

// SetWriteDeadline sets the write deadline. When the deadline fires,
// pending writes return an error. A zero value clears the deadline.
func (c *DataChannelConn) SetWriteDeadline(deadline time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.armTimerLocked(&c.writeTimer, deadline)
	return nil
}

// armTimerLocked replaces one deadline timer. A zero deadline clears it;
// a deadline in the past closes the stream immediately. Must be called
// with c.mu held.
func (c *DataChannelConn) armTimerLocked(timer **time.Timer, deadline time.Time) {
	c.stopTimerLocked(timer)
	if deadline.IsZero() || c.deadlineClosed {
		return
	}
	duration := time.Until(deadline)
	if duration <= 0 {
		c.closeFromDeadlineLocked()
		return
	}
	*timer = time.AfterFunc(duration, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.closeFromDeadlineLocked()
	})
}

func (c *DataChannelConn) stopTimerLocked(timer **time.Timer) {
	if *timer != nil {
		(*timer).Stop()
		*timer = nil
	}
}

// closeFromDeadlineLocked closes the underlying stream to unblock
// pending I/O. Must be called with c.mu held.
func (c *DataChannelConn) closeFromDeadlineLocked() {
	if c.deadlineClosed {
		return
	}
	c.deadlineClosed = true
	c.rwc.Close()
}

// dataChannelAddr is a synthetic net.Addr for data channel connections.
type dataChannelAddr struct {
	label string
}

func (a *dataChannelAddr) Network() string { return "webrtc" }
func (a *dataChannelAddr) String() string  { return a.label }
