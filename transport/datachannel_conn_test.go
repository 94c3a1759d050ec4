// Copyright 2026 The Oriel Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"io"
	"testing"
	"time"
)

// pipePair builds two connected DataChannelConns over io.Pipe, standing
// in for a pair of detached data channels.
func pipePair() (viewer, gateway *DataChannelConn) {
	viewerReader, gatewayWriter := io.Pipe()
	gatewayReader, viewerWriter := io.Pipe()

	viewerStream := &pipeReadWriteCloser{Reader: viewerReader, Writer: viewerWriter}
	gatewayStream := &pipeReadWriteCloser{Reader: gatewayReader, Writer: gatewayWriter}

	viewer = NewDataChannelConn(viewerStream, "viewer/session", "gateway/session")
	gateway = NewDataChannelConn(gatewayStream, "gateway/session", "viewer/session")
	return viewer, gateway
}

func TestDataChannelConnReadWrite(t *testing.T) {
	viewer, gateway := pipePair()
	defer viewer.Close()
	defer gateway.Close()

	message := []byte("frame ack")
	go func() {
		viewer.Write(message)
	}()

	buffer := make([]byte, 256)
	read, err := gateway.Read(buffer)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(buffer[:read]) != string(message) {
		t.Errorf("read %q, want %q", buffer[:read], message)
	}
}

func TestDataChannelConnAddresses(t *testing.T) {
	viewer, gateway := pipePair()
	defer viewer.Close()
	defer gateway.Close()

	if got := viewer.LocalAddr().Network(); got != "webrtc" {
		t.Errorf("LocalAddr().Network() = %q, want %q", got, "webrtc")
	}
	if got := viewer.LocalAddr().String(); got != "viewer/session" {
		t.Errorf("LocalAddr().String() = %q, want %q", got, "viewer/session")
	}
	if got := viewer.RemoteAddr().String(); got != "gateway/session" {
		t.Errorf("RemoteAddr().String() = %q, want %q", got, "gateway/session")
	}
}

func TestDataChannelConnExpiredDeadlineClosesStream(t *testing.T) {
	viewer, gateway := pipePair()
	defer viewer.Close()
	defer gateway.Close()

	viewer.SetReadDeadline(time.Now().Add(-1 * time.Second))

	buffer := make([]byte, 10)
	if _, err := viewer.Read(buffer); err == nil {
		t.Fatal("expected error from Read after expired deadline")
	}
}

func TestDataChannelConnClearDeadline(t *testing.T) {
	viewer, gateway := pipePair()
	defer viewer.Close()
	defer gateway.Close()

	// Set and then clear a deadline. The clear (zero time) must stop
	// the pending timer.
	viewer.SetReadDeadline(time.Now().Add(50 * time.Millisecond))
	viewer.SetReadDeadline(time.Time{})

	time.Sleep(100 * time.Millisecond)

	go func() {
		gateway.Write([]byte("still alive"))
	}()

	buffer := make([]byte, 256)
	read, err := viewer.Read(buffer)
	if err != nil {
		t.Fatalf("Read after clearing deadline: %v", err)
	}
	if string(buffer[:read]) != "still alive" {
		t.Errorf("read %q, want %q", buffer[:read], "still alive")
	}
}

func TestDataChannelConnCloseStopsTimers(t *testing.T) {
	reader, writer := io.Pipe()
	stream := &pipeReadWriteCloser{Reader: reader, Writer: writer}
	conn := NewDataChannelConn(stream, "viewer/session", "gateway/session")

	conn.SetDeadline(time.Now().Add(time.Hour))
	conn.Close()

	if _, err := reader.Read(make([]byte, 1)); err == nil {
		t.Fatal("expected error reading closed stream")
	}
}

// pipeReadWriteCloser combines separate io.Reader and io.Writer halves
// into an io.ReadWriteCloser. Closing closes whichever halves are
// closable.
type pipeReadWriteCloser struct {
	io.Reader
	io.Writer
	closed bool
}

func (p *pipeReadWriteCloser) Close() error {
	if p.closed {
		return nil
	}
	p.closed = true
	var firstError error
	if closer, ok := p.Reader.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			firstError = err
		}
	}
	if closer, ok := p.Writer.(io.Closer); ok {
		if err := closer.Close(); err != nil && firstError == nil {
			firstError = err
		}
	}
	return firstError
}
