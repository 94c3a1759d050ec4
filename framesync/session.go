// Copyright 2026 The Oriel Authors
// SPDX-License-Identifier: Apache-2.0

package framesync

import (
	"fmt"
	"log/slog"

	"github.com/oriel-project/oriel/display"
	"github.com/oriel-project/oriel/engine"
)

// MonitorLayoutParameter is the layer parameter name under which the
// serialized monitor layout is published after a resize.
const MonitorLayoutParameter = "monitor-layout"

// ParameterSink receives layer parameter updates for delivery to
// clients.
type ParameterSink interface {
	// SetLayerParameter publishes a named parameter of the given
	// layer.
	SetLayerParameter(layer int, name, value string)
}

// Options configures a Session.
type Options struct {
	// FrameAcknowledge is the engine's frame acknowledgment threshold.
	// Zero disables acknowledgment.
	FrameAcknowledge uint32

	// Parameters receives layer parameter updates (monitor layout).
	// Nil discards them.
	Parameters ParameterSink

	// Logger receives session diagnostics. Nil uses slog.Default().
	Logger *slog.Logger
}

// Session synchronizes one engine with one display. It implements
// engine.UpdateHandler; every method is called from the engine pump
// goroutine, so the mutable fields below need no locking.
type Session struct {
	engine  engine.Engine
	display *display.Display
	render  *display.RenderThread
	params  ParameterSink
	logger  *slog.Logger
	caps    engine.Capabilities
	gate    *AcknowledgmentGate

	// current is the raw context of the open paint burst, nil between
	// bursts. Resize-local contexts are deliberately never stored
	// here; that is what lets an engine-initiated end-of-paint during
	// a resize land as a harmless no-op.
	current *display.RawContext

	// state is the frame boundary tracker.
	state frameState

	// resizing is set for the duration of DesktopResize, purely to
	// classify stray end-of-paint diagnostics.
	resizing bool

	// monitors is the last monitor table read from the engine,
	// replaced wholesale on every resize.
	monitors []display.Monitor
}

var _ engine.UpdateHandler = (*Session)(nil)

// New builds a Session for the given engine and display. The render
// thread is woken on frame boundaries; it is the caller's to start and
// stop.
func New(eng engine.Engine, disp *display.Display, render *display.RenderThread, opts Options) *Session {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	params := opts.Parameters
	if params == nil {
		params = discardParameters{}
	}
	return &Session{
		engine:   eng,
		display:  disp,
		render:   render,
		params:   params,
		logger:   logger,
		caps:     eng.Capabilities(),
		gate:     NewAcknowledgmentGate(opts.FrameAcknowledge, eng),
		monitors: eng.Monitors(),
	}
}

// Gate returns the session's acknowledgment gate.
func (s *Session) Gate() *AcknowledgmentGate { return s.gate }

// BeginPaint opens a paint burst: it takes exclusive raw access to the
// default layer and resynchronizes the context with the engine's
// current buffer, since the engine may have moved it since the last
// burst.
//
// A burst opened while another is open panics; that means begin/end
// pairing has been lost and all damage accounting after this point
// would be suspect.
func (s *Session) BeginPaint() {
	if s.current != nil {
		panic("framesync: paint burst opened while another burst is still open")
	}
	context := s.display.DefaultLayer().OpenRaw()
	s.syncContext(context)
	s.current = context
}

// EndPaint closes the open paint burst. The engine's accumulated
// invalid region, clipped to the context bounds, becomes part of the
// burst's dirty region unless output is suppressed or the engine has
// nothing recorded. The engine's invalid state is always cleared and
// the context always committed.
//
// EndPaint without an open burst is a no-op: engines flush pending
// output with a bare end-of-paint from inside their own resize
// primitive, which is expected and logged at debug level. Outside a
// resize the same condition suggests skewed burst tracking upstream
// and is logged as a warning, but tolerated either way.
func (s *Session) EndPaint() {
	context := s.current
	if context == nil {
		if s.resizing {
			s.logger.Debug("end of paint without open burst during resize; engine flushed its own output")
		} else {
			s.logger.Warn("end of paint without open burst outside any resize; engine burst pairing may be skewed")
		}
		return
	}

	if region, ok := s.engine.InvalidRegion(); ok && !s.engine.OutputSuppressed() {
		context.MarkDirty(region)
	}
	s.engine.ClearInvalid()

	s.current = nil
	s.display.DefaultLayer().CloseRaw(context)

	// Without frame markers the committed damage itself is the only
	// boundary signal available.
	if !s.caps.FrameMarkers && !context.Dirty.IsEmpty() {
		s.render.NotifyModified()
	}
}

// DesktopResize coordinates a desktop size change end to end: buffer
// reallocation through the engine's own primitive, layer geometry,
// monitor layout publication, and the cursor reset. The engine's new
// size is read back from the engine rather than trusted from the
// request.
func (s *Session) DesktopResize() {
	s.resizing = true
	defer func() { s.resizing = false }()

	if s.current != nil {
		if !s.caps.OpenContextDuringResize {
			panic("framesync: desktop resize while a paint burst is open")
		}
		// Engines that flush via their own end-of-paint during resize
		// may legitimately still have the burst open here. Commit it;
		// its damage predates the resize and the resize invalidates
		// everything anyway.
		s.logger.Debug("desktop resize with open paint burst; committing burst first")
		context := s.current
		s.current = nil
		s.display.DefaultLayer().CloseRaw(context)
	}

	width, height := s.engine.Size()
	layer := s.display.DefaultLayer()

	// The resize holds its own raw context, never stored as the
	// session's paint context. Engine-initiated end-of-paint while the
	// resize is in flight then observes no open burst and no-ops.
	context := layer.OpenRaw()

	buffer, stride, err := s.engine.ResizeBuffer(width, height)
	if err != nil {
		panic(fmt.Sprintf("framesync: engine failed to resize to %dx%d: %v", width, height, err))
	}
	if buffer == nil {
		panic(fmt.Sprintf("framesync: engine returned no framebuffer for %dx%d resize", width, height))
	}

	// Re-read the applied size; engines may clamp the request.
	width, height = s.engine.Size()
	context.Buffer = buffer
	context.Stride = stride
	context.Bounds = display.FromSize(0, 0, width, height)

	layer.Resize(width, height)
	s.logger.Debug("engine resized display", "width", width, "height", height)

	layer.CloseRaw(context)

	s.monitors = s.engine.Monitors()
	s.params.SetLayerParameter(layer.Index(), MonitorLayoutParameter,
		display.SerializeMonitorLayout(s.monitors))

	// Reset to the standard pointer so the cursor is visible on any
	// newly added monitor.
	s.display.SetCursor(display.CursorPointer)
}

// syncContext points the context at the engine's current framebuffer
// and validates that the buffer actually covers the geometry the
// engine claims.
func (s *Session) syncContext(context *display.RawContext) {
	buffer, stride := s.engine.Framebuffer()
	width, height := s.engine.Size()

	if buffer == nil || stride < width*display.BytesPerPixel {
		panic(fmt.Sprintf(
			"framesync: engine framebuffer unusable for %dx%d desktop (buffer %d bytes, stride %d)",
			width, height, len(buffer), stride))
	}
	if need := stride*(height-1) + width*display.BytesPerPixel; len(buffer) < need {
		panic(fmt.Sprintf(
			"framesync: engine framebuffer %d bytes cannot cover %dx%d at stride %d (need %d)",
			len(buffer), width, height, stride, need))
	}

	context.Buffer = buffer
	context.Stride = stride
	context.Bounds = display.FromSize(0, 0, width, height)
}

type discardParameters struct{}

func (discardParameters) SetLayerParameter(int, string, string) {}
