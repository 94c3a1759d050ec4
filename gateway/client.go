// Copyright 2026 The Oriel Authors
// SPDX-License-Identifier: Apache-2.0

package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"

	"github.com/oriel-project/oriel/display"
	"github.com/oriel-project/oriel/protocol"
)

// client is one attached viewer: a connection, a writer goroutine fed
// through a bounded queue, and the pacing state that decides which
// frames it receives.
type client struct {
	conn   net.Conn
	logger *slog.Logger

	queue     chan protocol.Message
	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once

	// mu guards the pacing state, shared between the reader goroutine
	// (acknowledgments) and the render goroutine (frame planning).
	mu         sync.Mutex
	lastSent   uint64
	acked      uint64
	backlog    display.Rect
	hasBacklog bool
}

// HandleSession attaches conn as a viewer and serves it until the
// connection drops or ctx is canceled. It implements
// [transport.SessionHandler]; the connection is closed before return.
func (g *Gateway) HandleSession(ctx context.Context, conn net.Conn) {
	c, err := g.attach(conn)
	if err != nil {
		g.logger.Warn("rejecting viewer", "remote", conn.RemoteAddr(), "error", err)
		conn.Close()
		return
	}
	c.logger.Info("viewer attached")
	go c.writeLoop()

	watch := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			c.close()
		case <-watch:
		}
	}()
	defer close(watch)

	g.readLoop(c)
	g.detach(c)
}

// attach builds a viewer, queues its attach burst, and registers it for
// broadcasts. The burst and the registration happen under the broadcast
// lock, so the snapshot and the frames that follow it never reorder or
// overlap.
func (g *Gateway) attach(conn net.Conn) (*client, error) {
	c := &client{
		conn:   conn,
		logger: g.logger.With("remote", conn.RemoteAddr().String()),
		queue:  make(chan protocol.Message, g.queueDepth),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return nil, errors.New("session is shutting down")
	}

	burst, err := g.attachBurstLocked()
	if err != nil {
		return nil, fmt.Errorf("building attach burst: %w", err)
	}
	for _, message := range burst {
		if !c.enqueue(message) {
			return nil, errors.New("attach burst exceeds the send queue")
		}
	}

	// The snapshot carries everything up to the current frame, so the
	// viewer starts fully acknowledged.
	c.lastSent = g.sequence
	c.acked = g.sequence

	g.clients[c] = struct{}{}
	return c, nil
}

// attachBurstLocked assembles the messages that bring a fresh viewer to
// the current display state: server info, layer geometry, cached layer
// parameters, the cursor, a full-layer snapshot, and the closing frame
// marker.
func (g *Gateway) attachBurstLocked() ([]protocol.Message, error) {
	layer := g.display.DefaultLayer()
	bounds := layer.Bounds()
	burst := make([]protocol.Message, 0, attachBurstLength)

	info, err := protocol.NewServerInfoMessage(protocol.ServerInfo{
		ProtocolVersion: protocol.Version,
		Width:           bounds.Width(),
		Height:          bounds.Height(),
		PixelFormat:     protocol.PixelFormatBGRX32,
	})
	if err != nil {
		return nil, fmt.Errorf("server info: %w", err)
	}
	burst = append(burst, info)

	resize, err := protocol.NewResizeMessage(protocol.Resize{
		Layer:  layer.Index(),
		Width:  bounds.Width(),
		Height: bounds.Height(),
	})
	if err != nil {
		return nil, fmt.Errorf("resize: %w", err)
	}
	burst = append(burst, resize)

	for _, key := range g.sortedParameterKeysLocked() {
		parameter, err := protocol.NewLayerParameterMessage(protocol.LayerParameter{
			Layer: key.layer,
			Name:  key.name,
			Value: g.parameters[key],
		})
		if err != nil {
			return nil, fmt.Errorf("layer parameter %s: %w", key.name, err)
		}
		burst = append(burst, parameter)
	}

	cursor, err := protocol.NewCursorMessage(protocol.Cursor{Glyph: g.display.Cursor().String()})
	if err != nil {
		return nil, fmt.Errorf("cursor: %w", err)
	}
	burst = append(burst, cursor)

	snapshot, err := g.regionMessage(layer, bounds)
	if err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}
	burst = append(burst, snapshot)

	done, err := protocol.NewFrameDoneMessage(protocol.FrameDone{Sequence: g.sequence})
	if err != nil {
		return nil, fmt.Errorf("frame done: %w", err)
	}
	burst = append(burst, done)

	return burst, nil
}

// detach removes the viewer and closes its connection. Viewers already
// dropped by a broadcast are closed without a second log entry.
func (g *Gateway) detach(c *client) {
	g.mu.Lock()
	_, present := g.clients[c]
	delete(g.clients, c)
	g.mu.Unlock()

	c.close()
	if present {
		c.logger.Info("viewer detached")
	}
}

// readLoop consumes viewer messages until the connection ends.
// Acknowledgments advance the viewer's pacing window; resize requests
// are forwarded to the engine. Unknown message types are skipped so
// newer viewers can talk to older gateways.
func (g *Gateway) readLoop(c *client) {
	for {
		message, err := protocol.ReadMessage(c.conn)
		if err != nil {
			c.logger.Debug("viewer read ended", "error", err)
			return
		}

		switch message.Type {
		case protocol.MessageTypeFrameAck:
			var ack protocol.FrameAck
			if err := protocol.DecodePayload(message, &ack); err != nil {
				c.logger.Debug("malformed frame acknowledgment", "error", err)
				continue
			}
			c.acknowledge(ack.Sequence)

		case protocol.MessageTypeClientResize:
			var resize protocol.ClientResize
			if err := protocol.DecodePayload(message, &resize); err != nil {
				c.logger.Debug("malformed resize request", "error", err)
				continue
			}
			g.engine.RequestResize(resize.Width, resize.Height)

		default:
			c.logger.Debug("ignoring viewer message", "type", message.Type)
		}
	}
}

// writeLoop drains the queue onto the connection. A write failure
// closes the connection, which ends the read loop and detaches the
// viewer.
func (c *client) writeLoop() {
	defer close(c.done)
	for {
		select {
		case <-c.stop:
			return
		case message := <-c.queue:
			if err := protocol.WriteMessage(c.conn, message); err != nil {
				c.logger.Debug("viewer write failed", "error", err)
				c.close()
				return
			}
		}
	}
}

// enqueue hands message to the writer without blocking. False means the
// queue is full; the caller disconnects the viewer rather than let one
// slow connection stall a broadcast.
func (c *client) enqueue(message protocol.Message) bool {
	select {
	case c.queue <- message:
		return true
	default:
		return false
	}
}

// acknowledge records the viewer's presentation progress. Sequences
// beyond what was actually sent are clamped; a viewer can empty its
// window, never extend it.
func (c *client) acknowledge(sequence uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if sequence > c.lastSent {
		sequence = c.lastSent
	}
	if sequence > c.acked {
		c.acked = sequence
	}
}

// planFrame decides this viewer's share of a frame. Within the pacing
// window it returns the region to send (the frame damage, extended by
// any backlog) and marks the frame sent; outside the window the damage
// joins the backlog and nothing is sent. window 0 means unpaced.
func (c *client) planFrame(damage display.Rect, sequence uint64, window int) (rect display.Rect, withBacklog, send bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if window > 0 && c.lastSent-c.acked >= uint64(window) {
		if c.hasBacklog {
			c.backlog = c.backlog.Extend(damage)
		} else {
			c.backlog, c.hasBacklog = damage, true
		}
		return display.Rect{}, false, false
	}

	rect = damage
	if c.hasBacklog {
		rect = rect.Extend(c.backlog)
		c.backlog, c.hasBacklog = display.Rect{}, false
		withBacklog = true
	}
	c.lastSent = sequence
	return rect, withBacklog, true
}

// close shuts the viewer down: the writer stops and the connection
// closes, unblocking the reader. Idempotent.
func (c *client) close() {
	c.closeOnce.Do(func() {
		close(c.stop)
		c.conn.Close()
	})
}
