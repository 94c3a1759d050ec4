// Copyright 2026 The Oriel Authors
// SPDX-License-Identifier: Apache-2.0

// Package synthetic provides a self-contained rendering engine for
// development, testing, and demos: a block bouncing over a flat
// background with a frame counter in the corner. It exercises every
// path a real engine would drive through a session, including frame
// markers in both shapes, desktop resizes, output suppression, and
// acknowledgment-paced output, without any upstream server.
//
// The engine advances one frame per [Engine.Step]; [Engine.Run] calls
// Step on a ticker for live use. Scripted behavior changes (resizes,
// suppression, monitor layouts) come from a [Scenario].
package synthetic

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/oriel-project/oriel/display"
	"github.com/oriel-project/oriel/engine"
	"github.com/oriel-project/oriel/lib/clock"
)

// MarkerMode selects how the engine delimits frames.
type MarkerMode int

const (
	// MarkerModeSurface delimits frames with surface markers carrying
	// frame IDs, enabling acknowledgment-based pacing.
	MarkerModeSurface MarkerMode = iota

	// MarkerModeExplicit delimits frames with the bare begin/end marker
	// pair. No frame IDs, so no acknowledgments.
	MarkerModeExplicit

	// MarkerModeNone emits no markers at all; frame boundaries are left
	// to the consumer's modification debounce.
	MarkerModeNone
)

// ParseMarkerMode parses a marker mode name as written in
// configuration files.
func ParseMarkerMode(name string) (MarkerMode, error) {
	switch name {
	case "surface":
		return MarkerModeSurface, nil
	case "explicit":
		return MarkerModeExplicit, nil
	case "none":
		return MarkerModeNone, nil
	default:
		return 0, fmt.Errorf("unknown marker mode %q (want surface, explicit, or none)", name)
	}
}

// String returns the configuration name of the mode.
func (m MarkerMode) String() string {
	switch m {
	case MarkerModeSurface:
		return "surface"
	case MarkerModeExplicit:
		return "explicit"
	case MarkerModeNone:
		return "none"
	default:
		return "unknown"
	}
}

// Interactive resize requests are clamped to this range before they
// are applied. Scenario resizes are validated at parse time instead.
const (
	minDesktopDimension = 200
	maxDesktopDimension = 8192
)

// Config configures a synthetic engine.
type Config struct {
	// Width and Height are the initial desktop size in pixels. Both
	// must be positive.
	Width  int
	Height int

	// Markers selects the frame marker shape.
	Markers MarkerMode

	// FrameInterval is the frame period used by Run. Zero means 40ms.
	FrameInterval time.Duration

	// AckWindow is the number of unacknowledged frames the engine keeps
	// in flight before pausing production. Zero disables pacing.
	// Pacing needs frame IDs, so a window with markers other than
	// surface markers is ignored.
	AckWindow uint32

	// Scenario optionally scripts timed behavior changes.
	Scenario *Scenario

	// Clock paces Run. Nil uses the system clock.
	Clock clock.Clock

	// Logger receives engine diagnostics. Nil uses slog.Default().
	Logger *slog.Logger
}

// Engine is the synthetic rendering engine. Its Engine-interface
// methods follow the pump-goroutine contract of [engine.Engine];
// AcknowledgeFrame and RequestResize additionally accept calls from
// other goroutines, since acknowledgments and resize requests originate
// on the client side of the gateway.
type Engine struct {
	clock     clock.Clock
	logger    *slog.Logger
	markers   MarkerMode
	interval  time.Duration
	ackWindow uint32

	// Pump-goroutine state.
	width      int
	height     int
	stride     int
	buffer     []byte
	invalid    display.Rect
	hasInvalid bool
	suppressed bool
	frame      uint32
	stalled    bool

	// fullPaint forces the next paint burst to damage the whole
	// desktop: set initially and after every resize, since clients hold
	// nothing valid at those points.
	fullPaint bool

	// monitors is published on resize. autoMonitors keeps the table
	// tracking the desktop size until a scenario installs its own.
	monitors     []display.Monitor
	autoMonitors bool

	blockX  int
	blockY  int
	blockDX int
	blockDY int

	scenario     []ScenarioStep
	scenarioNext int

	// extraPaints holds scenario paint rectangles for the next frame.
	extraPaints []display.Rect

	// mu guards the fields below, which cross goroutines.
	mu            sync.Mutex
	lastAcked     uint32
	pendingWidth  int
	pendingHeight int
	hasPending    bool
}

var _ engine.Engine = (*Engine)(nil)

// New builds a synthetic engine and draws the initial scene into its
// framebuffer.
func New(cfg Config) (*Engine, error) {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("synthetic: desktop size %dx%d must be positive", cfg.Width, cfg.Height)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clk := cfg.Clock
	if clk == nil {
		clk = clock.Real()
	}
	interval := cfg.FrameInterval
	if interval <= 0 {
		interval = 40 * time.Millisecond
	}

	ackWindow := cfg.AckWindow
	if ackWindow > 0 && cfg.Markers != MarkerModeSurface {
		logger.Debug("frame acknowledgment pacing needs surface markers; pacing disabled",
			"markers", cfg.Markers.String())
		ackWindow = 0
	}

	e := &Engine{
		clock:        clk,
		logger:       logger,
		markers:      cfg.Markers,
		interval:     interval,
		ackWindow:    ackWindow,
		width:        cfg.Width,
		height:       cfg.Height,
		stride:       cfg.Width * display.BytesPerPixel,
		buffer:       make([]byte, cfg.Width*display.BytesPerPixel*cfg.Height),
		fullPaint:    true,
		monitors:     []display.Monitor{{Width: cfg.Width, Height: cfg.Height}},
		autoMonitors: true,
		blockX:       (cfg.Width - blockSize) / 2,
		blockY:       (cfg.Height - blockSize) / 2,
		blockDX:      7,
		blockDY:      5,
	}
	if cfg.Scenario != nil {
		e.scenario = cfg.Scenario.Steps
	}
	e.clampBlock()
	e.drawScene(0)
	return e, nil
}

// Run steps the engine until ctx is canceled. The first frame is
// produced immediately; the ticker paces the rest.
func (e *Engine) Run(ctx context.Context, handler engine.UpdateHandler) {
	ticker := e.clock.NewTicker(e.interval)
	defer ticker.Stop()

	e.Step(handler)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.Step(handler)
		}
	}
}

// Step advances the engine by one frame: due scenario steps are
// applied, a pending resize is carried out, and one frame is painted
// and delimited per the marker mode. Returns false when production is
// paused waiting for frame acknowledgments; scenario steps and resizes
// still run in that case.
func (e *Engine) Step(handler engine.UpdateHandler) bool {
	e.applyScenario()
	if width, height, ok := e.takeResize(); ok {
		e.applyResize(width, height, handler)
	}
	if !e.mayProduce() {
		return false
	}

	frameID := e.frame + 1
	switch e.markers {
	case MarkerModeSurface:
		handler.SurfaceFrameMarker(engine.SurfaceFrameActionBegin, frameID)
		e.paintBurst(handler, frameID)
		handler.SurfaceFrameMarker(engine.SurfaceFrameActionEnd, frameID)
	case MarkerModeExplicit:
		handler.FrameMarker(engine.FrameActionBegin)
		e.paintBurst(handler, frameID)
		handler.FrameMarker(engine.FrameActionEnd)
	default:
		e.paintBurst(handler, frameID)
	}
	e.frame = frameID
	return true
}

func (e *Engine) paintBurst(handler engine.UpdateHandler, frameID uint32) {
	handler.BeginPaint()
	e.paint(frameID)
	handler.EndPaint()
}

// mayProduce checks the acknowledgment window. Stall transitions are
// logged once rather than per skipped tick.
func (e *Engine) mayProduce() bool {
	if e.ackWindow == 0 {
		return true
	}
	e.mu.Lock()
	lastAcked := e.lastAcked
	e.mu.Unlock()

	outstanding := e.frame - lastAcked
	if outstanding >= e.ackWindow {
		if !e.stalled {
			e.stalled = true
			e.logger.Debug("pausing frame production until outstanding frames are acknowledged",
				"outstanding", outstanding, "window", e.ackWindow)
		}
		return false
	}
	e.stalled = false
	return true
}

// applyResize changes the desktop size and raises DesktopResize so the
// handler pulls the new geometry through ResizeBuffer. A request for
// the current size is dropped.
func (e *Engine) applyResize(width, height int, handler engine.UpdateHandler) {
	if width == e.width && height == e.height {
		return
	}
	e.width, e.height = width, height
	e.logger.Debug("applying desktop resize", "width", width, "height", height)
	handler.DesktopResize()
}

func (e *Engine) applyScenario() {
	next := e.frame + 1
	for e.scenarioNext < len(e.scenario) {
		step := e.scenario[e.scenarioNext]
		if step.AtFrame > next {
			return
		}
		e.scenarioNext++
		e.applyStep(step)
	}
}

func (e *Engine) applyStep(step ScenarioStep) {
	switch step.Action {
	case ActionPaint:
		e.extraPaints = append(e.extraPaints,
			display.FromSize(step.Left, step.Top, step.Width, step.Height))
	case ActionResize:
		e.RequestResize(step.Width, step.Height)
	case ActionSuppress:
		e.suppressed = true
		e.logger.Debug("scenario suppressed output", "frame", e.frame+1)
	case ActionResume:
		e.suppressed = false
		e.logger.Debug("scenario resumed output", "frame", e.frame+1)
	case ActionMonitors:
		e.monitors = monitorTable(step.Monitors)
		e.autoMonitors = false
	}
}

// takeResize pops the pending resize request, clamped to the supported
// desktop range.
func (e *Engine) takeResize() (width, height int, ok bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.hasPending {
		return 0, 0, false
	}
	e.hasPending = false
	return clampDimension(e.pendingWidth), clampDimension(e.pendingHeight), true
}

func clampDimension(v int) int {
	return min(max(v, minDesktopDimension), maxDesktopDimension)
}

// Size returns the current desktop size.
func (e *Engine) Size() (width, height int) { return e.width, e.height }

// Framebuffer returns the engine's pixel memory and stride.
func (e *Engine) Framebuffer() (data []byte, stride int) { return e.buffer, e.stride }

// ResizeBuffer reallocates the framebuffer for the new size, redraws
// the scene into it, and marks the next paint burst as a full repaint,
// matching how upstream servers follow a resize with a full update.
func (e *Engine) ResizeBuffer(width, height int) (data []byte, stride int, err error) {
	if width <= 0 || height <= 0 {
		return nil, 0, fmt.Errorf("synthetic: impossible framebuffer size %dx%d", width, height)
	}
	e.width, e.height = width, height
	e.stride = width * display.BytesPerPixel
	e.buffer = make([]byte, e.stride*height)
	e.clampBlock()
	e.drawScene(e.frame)
	e.invalid, e.hasInvalid = display.Rect{}, false
	e.fullPaint = true
	if e.autoMonitors {
		e.monitors = []display.Monitor{{Width: width, Height: height}}
	}
	return e.buffer, e.stride, nil
}

// InvalidRegion returns the damage accumulated since the last clear.
func (e *Engine) InvalidRegion() (region display.Rect, ok bool) {
	return e.invalid, e.hasInvalid
}

// ClearInvalid resets the damage record.
func (e *Engine) ClearInvalid() {
	e.invalid, e.hasInvalid = display.Rect{}, false
}

// OutputSuppressed reports whether a scenario has suppressed output.
// The engine keeps painting while suppressed; the damage just must not
// reach clients.
func (e *Engine) OutputSuppressed() bool { return e.suppressed }

// Monitors returns the current monitor table.
func (e *Engine) Monitors() []display.Monitor { return slices.Clone(e.monitors) }

// AcknowledgeFrame records frameID as fully processed, unpausing
// production once the outstanding count drops below the window.
func (e *Engine) AcknowledgeFrame(frameID uint32) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if frameID > e.lastAcked {
		e.lastAcked = frameID
	}
}

// RequestResize queues a desktop size change, applied at the start of
// the next Step. Only the newest request is kept.
func (e *Engine) RequestResize(width, height int) {
	if width <= 0 || height <= 0 {
		e.logger.Warn("ignoring impossible resize request", "width", width, "height", height)
		return
	}
	e.mu.Lock()
	e.pendingWidth, e.pendingHeight, e.hasPending = width, height, true
	e.mu.Unlock()
}

// Capabilities reports that the engine never resizes with a paint burst
// open and emits markers unless configured not to.
func (e *Engine) Capabilities() engine.Capabilities {
	return engine.Capabilities{
		OpenContextDuringResize: false,
		FrameMarkers:            e.markers != MarkerModeNone,
	}
}

func monitorTable(specs []MonitorSpec) []display.Monitor {
	monitors := make([]display.Monitor, len(specs))
	for i, spec := range specs {
		monitors[i] = display.Monitor{
			Left:   spec.Left,
			Top:    spec.Top,
			Width:  spec.Width,
			Height: spec.Height,
		}
	}
	return monitors
}
