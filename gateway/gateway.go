// Copyright 2026 The Oriel Authors
// SPDX-License-Identifier: Apache-2.0

// Package gateway hosts one engine session and serves it to any number
// of viewers.
//
// A Gateway owns the display, the frame synchronization session, and
// the render thread whose flush encodes committed damage into protocol
// messages and broadcasts them. Viewers attach over any transport that
// delivers a net.Conn; each gets a snapshot of the current display
// state followed by live frames, paced by its own acknowledgment
// progress so one slow viewer never holds back the rest.
package gateway

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/oriel-project/oriel/display"
	"github.com/oriel-project/oriel/engine"
	"github.com/oriel-project/oriel/framesync"
	"github.com/oriel-project/oriel/lib/clock"
	"github.com/oriel-project/oriel/protocol"
	"github.com/oriel-project/oriel/record"
)

// attachBurstLength is the longest attach burst the gateway sends
// before a viewer is registered for broadcasts; the send queue must
// hold all of it.
const attachBurstLength = 8

// Options configures a Gateway.
type Options struct {
	// Engine is the rendering engine to host. Required.
	Engine engine.Engine

	// Pump drives the engine against the session handler until ctx is
	// canceled. It runs on its own goroutine inside [Gateway.Run]; for
	// the synthetic engine pass its Run method. Required.
	Pump func(ctx context.Context, handler engine.UpdateHandler)

	// FrameAcknowledge is the engine-side acknowledgment threshold,
	// forwarded to the session. Zero disables engine pacing.
	FrameAcknowledge uint32

	// FrameWindow is the number of unacknowledged frames in flight to a
	// single viewer before its updates coalesce into a backlog. Zero
	// disables viewer pacing.
	FrameWindow int

	// QueueDepth is the per-viewer outbound queue length. A viewer that
	// falls this far behind is disconnected. Zero means 32.
	QueueDepth int

	// Recorder, when set, captures the broadcast stream. The gateway
	// finalizes it when the session ends.
	Recorder *record.Writer

	// Clock is the time source for render pacing and recording
	// timestamps. Nil uses the system clock.
	Clock clock.Clock

	// Logger receives gateway diagnostics. Nil uses slog.Default().
	Logger *slog.Logger
}

// paramKey identifies one cached layer parameter.
type paramKey struct {
	layer int
	name  string
}

// Gateway hosts one engine session for many viewers.
type Gateway struct {
	engine  engine.Engine
	pump    func(ctx context.Context, handler engine.UpdateHandler)
	display *display.Display
	session *framesync.Session
	render  *display.RenderThread
	clock   clock.Clock
	logger  *slog.Logger

	frameWindow int
	queueDepth  int

	recordStart time.Time

	mu         sync.Mutex
	clients    map[*client]struct{}
	sequence   uint64
	parameters map[paramKey]string
	lastBounds display.Rect
	recorder   *record.Writer
	closed     bool
}

var _ framesync.ParameterSink = (*Gateway)(nil)

// New builds a Gateway around the given engine. The display is sized
// from the engine and the initial monitor layout is cached for attach
// bursts. Call [Gateway.Run] to start the session.
func New(opts Options) (*Gateway, error) {
	if opts.Engine == nil {
		return nil, errors.New("gateway: engine is required")
	}
	if opts.Pump == nil {
		return nil, errors.New("gateway: engine pump is required")
	}
	queueDepth := opts.QueueDepth
	if queueDepth == 0 {
		queueDepth = 32
	}
	if queueDepth < attachBurstLength {
		return nil, fmt.Errorf("gateway: queue depth %d cannot hold an attach burst (need at least %d)",
			queueDepth, attachBurstLength)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clk := opts.Clock
	if clk == nil {
		clk = clock.Real()
	}

	width, height := opts.Engine.Size()
	disp := display.New(width, height)

	g := &Gateway{
		engine:      opts.Engine,
		pump:        opts.Pump,
		display:     disp,
		clock:       clk,
		logger:      logger,
		frameWindow: opts.FrameWindow,
		queueDepth:  queueDepth,
		recordStart: clk.Now(),
		clients:     make(map[*client]struct{}),
		parameters:  make(map[paramKey]string),
		lastBounds:  disp.DefaultLayer().Bounds(),
		recorder:    opts.Recorder,
	}
	g.render = display.NewRenderThread(clk, g.flush, display.RenderOptions{})
	g.session = framesync.New(opts.Engine, disp, g.render, framesync.Options{
		FrameAcknowledge: opts.FrameAcknowledge,
		Parameters:       g,
		Logger:           logger,
	})

	layoutKey := paramKey{layer: disp.DefaultLayer().Index(), name: framesync.MonitorLayoutParameter}
	g.parameters[layoutKey] = display.SerializeMonitorLayout(opts.Engine.Monitors())

	return g, nil
}

// Run hosts the session until ctx is canceled or the engine pump
// panics on a broken contract. Either way every viewer is disconnected
// and the recording, if any, is finalized. The returned error is nil
// for an orderly shutdown.
func (g *Gateway) Run(ctx context.Context) error {
	width, height := g.engine.Size()
	g.logger.Info("session starting", "width", width, "height", height)

	g.recordInitialState()
	g.render.Start()

	err := g.runPump(ctx)

	// Stop flushes once more, so damage committed just before shutdown
	// still reaches the queues before the viewers are closed.
	g.render.Stop()
	g.finalize()
	return err
}

// runPump runs the engine pump, converting a panic into an error. Frame
// synchronization treats contract violations as panics; this is the
// recovery boundary that turns them into a terminated session instead
// of a dead process.
func (g *Gateway) runPump(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			g.logger.Error("session terminated by engine contract violation", "panic", r)
			err = fmt.Errorf("engine session panic: %v", r)
		}
	}()
	g.pump(ctx, g.session)
	return nil
}

// finalize disconnects all viewers and closes the recording.
func (g *Gateway) finalize() {
	g.mu.Lock()
	g.closed = true
	clients := make([]*client, 0, len(g.clients))
	for c := range g.clients {
		clients = append(clients, c)
	}
	clear(g.clients)
	recorder := g.recorder
	g.recorder = nil
	frames := g.sequence
	g.mu.Unlock()

	for _, c := range clients {
		c.close()
	}

	if recorder != nil {
		elapsed := g.clock.Now().Sub(g.recordStart)
		if err := recorder.RecordEvent(elapsed, record.EventSessionEnd, nil); err != nil {
			g.logger.Error("writing session end event", "error", err)
		}
		if err := recorder.Close(); err != nil {
			g.logger.Error("finalizing recording", "error", err)
		}
	}

	g.logger.Info("session closed", "frames", frames, "viewers_disconnected", len(clients))
}

// recordInitialState writes the session's starting layer parameters and
// cursor to the recording, so playback is self-contained before the
// first frame arrives.
func (g *Gateway) recordInitialState() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.recorder == nil {
		return
	}

	for _, key := range g.sortedParameterKeysLocked() {
		message, err := protocol.NewLayerParameterMessage(protocol.LayerParameter{
			Layer: key.layer,
			Name:  key.name,
			Value: g.parameters[key],
		})
		if err != nil {
			g.logger.Error("encoding initial layer parameter", "name", key.name, "error", err)
			continue
		}
		g.recordLocked(message)
	}

	cursor, err := protocol.NewCursorMessage(protocol.Cursor{Glyph: g.display.Cursor().String()})
	if err != nil {
		g.logger.Error("encoding initial cursor", "error", err)
		return
	}
	g.recordLocked(cursor)
}

// SetLayerParameter publishes a layer parameter to every viewer and the
// recording, announcing a geometry change first when the default layer
// was resized since the last publication. The session calls this on the
// pump goroutine after each desktop resize, which keeps the broadcast
// order identical to an attach burst: Resize, then LayerParameter, then
// the flush's Cursor, Region, and FrameDone.
func (g *Gateway) SetLayerParameter(layerIndex int, name, value string) {
	message, err := protocol.NewLayerParameterMessage(protocol.LayerParameter{
		Layer: layerIndex,
		Name:  name,
		Value: value,
	})
	if err != nil {
		g.logger.Error("encoding layer parameter", "layer", layerIndex, "name", name, "error", err)
		return
	}

	bounds := g.display.DefaultLayer().Bounds()

	g.mu.Lock()
	var dropped []*client
	if bounds != g.lastBounds {
		g.lastBounds = bounds
		resize, err := protocol.NewResizeMessage(protocol.Resize{
			Layer:  g.display.DefaultLayer().Index(),
			Width:  bounds.Width(),
			Height: bounds.Height(),
		})
		if err != nil {
			g.logger.Error("encoding resize announcement", "error", err)
		} else {
			dropped = append(dropped, g.broadcastLocked(resize)...)
			g.recordLocked(resize)
		}
	}
	g.parameters[paramKey{layer: layerIndex, name: name}] = value
	dropped = append(dropped, g.broadcastLocked(message)...)
	g.recordLocked(message)
	g.mu.Unlock()

	g.dropClients(dropped, "send queue overflowed")
}

// flush drains the display's pending state and broadcasts it as one
// frame. It runs on the render goroutine.
func (g *Gateway) flush() {
	layer := g.display.DefaultLayer()
	damage, hasDamage := layer.TakePending()
	glyph, cursorChanged := g.display.TakeCursor()
	if !hasDamage && !cursorChanged {
		return
	}

	g.mu.Lock()
	var dropped []*client

	// Cursor updates are a handful of bytes and current-valued, so they
	// bypass frame pacing.
	if cursorChanged {
		cursor, err := protocol.NewCursorMessage(protocol.Cursor{Glyph: glyph.String()})
		if err != nil {
			g.logger.Error("encoding cursor update", "error", err)
		} else {
			dropped = append(dropped, g.broadcastLocked(cursor)...)
			g.recordLocked(cursor)
		}
	}

	if hasDamage {
		g.sequence++
		dropped = append(dropped, g.broadcastFrameLocked(layer, damage, g.sequence)...)
	}
	g.mu.Unlock()

	g.dropClients(dropped, "send queue overflowed")
}

// broadcastFrameLocked sends one frame's damage to every viewer within
// its pacing window and folds it into the backlog of the rest. Viewers
// without backlog share one encoded region; a viewer catching up gets
// the union of the frame and its backlog instead.
func (g *Gateway) broadcastFrameLocked(layer *display.Layer, damage display.Rect, sequence uint64) []*client {
	done, err := protocol.NewFrameDoneMessage(protocol.FrameDone{Sequence: sequence})
	if err != nil {
		g.logger.Error("encoding frame done", "sequence", sequence, "error", err)
		return nil
	}
	shared, err := g.regionMessage(layer, damage)
	if err != nil {
		g.logger.Error("encoding frame region", "sequence", sequence, "error", err)
		return nil
	}

	// The recording is an unpaced observer of the global damage.
	g.recordLocked(shared)
	g.recordLocked(done)

	var dropped []*client
	for c := range g.clients {
		rect, withBacklog, send := c.planFrame(damage, sequence, g.frameWindow)
		if !send {
			continue
		}
		region := shared
		if withBacklog {
			region, err = g.regionMessage(layer, rect)
			if err != nil {
				g.logger.Error("encoding backlog region", "sequence", sequence, "error", err)
				continue
			}
		}
		if !c.enqueue(region) || !c.enqueue(done) {
			dropped = append(dropped, c)
		}
	}
	return dropped
}

// regionMessage encodes the committed pixels of rect as a Region
// message, clipped to the layer.
func (g *Gateway) regionMessage(layer *display.Layer, rect display.Rect) (protocol.Message, error) {
	rect = rect.Constrain(layer.Bounds())
	if rect.IsEmpty() {
		return protocol.Message{}, errors.New("region is empty after clipping")
	}
	pixels, _ := layer.CopyRect(rect)
	return protocol.NewRegionMessage(protocol.Region{
		Layer:  layer.Index(),
		Left:   rect.Left,
		Top:    rect.Top,
		Width:  rect.Width(),
		Height: rect.Height(),
		Pixels: pixels,
	})
}

// broadcastLocked enqueues message to every viewer, returning those
// whose queue overflowed.
func (g *Gateway) broadcastLocked(message protocol.Message) []*client {
	var dropped []*client
	for c := range g.clients {
		if !c.enqueue(message) {
			dropped = append(dropped, c)
		}
	}
	return dropped
}

// recordLocked appends message to the recording, if one is active. A
// write failure disables recording for the rest of the session rather
// than terminating it.
func (g *Gateway) recordLocked(message protocol.Message) {
	if g.recorder == nil {
		return
	}
	elapsed := g.clock.Now().Sub(g.recordStart)
	if err := g.recorder.RecordMessage(elapsed, message); err != nil {
		g.logger.Error("recording failed; disabling recorder", "error", err)
		g.recorder.Close()
		g.recorder = nil
	}
}

// dropClients removes and closes viewers that could not keep up.
func (g *Gateway) dropClients(dropped []*client, reason string) {
	if len(dropped) == 0 {
		return
	}
	g.mu.Lock()
	for _, c := range dropped {
		delete(g.clients, c)
	}
	g.mu.Unlock()

	for _, c := range dropped {
		c.logger.Warn("disconnecting viewer", "reason", reason)
		c.close()
	}
}

func (g *Gateway) sortedParameterKeysLocked() []paramKey {
	keys := make([]paramKey, 0, len(g.parameters))
	for key := range g.parameters {
		keys = append(keys, key)
	}
	slices.SortFunc(keys, func(a, b paramKey) int {
		if c := cmp.Compare(a.layer, b.layer); c != 0 {
			return c
		}
		return cmp.Compare(a.name, b.name)
	})
	return keys
}
