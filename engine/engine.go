// Copyright 2026 The Oriel Authors
// SPDX-License-Identifier: Apache-2.0

package engine

import "github.com/oriel-project/oriel/display"

// Engine is the upstream rendering engine a session synchronizes
// against. Implementations are driven from a single goroutine (the
// engine pump); the session adapter calls back into the engine only
// from update handlers running on that same goroutine, so Engine
// methods do not need internal locking for that path.
type Engine interface {
	// Size returns the current desktop size in pixels.
	Size() (width, height int)

	// Framebuffer returns the engine's current pixel memory and row
	// stride in bytes. The slice stays valid until the next resize.
	Framebuffer() (data []byte, stride int)

	// ResizeBuffer reallocates the framebuffer through the engine's
	// own resize primitive and returns the new memory. A nil buffer
	// with a nil error is an engine defect the caller treats as
	// fatal.
	ResizeBuffer(width, height int) (data []byte, stride int, err error)

	// InvalidRegion returns the damage accumulated by the engine since
	// it was last cleared. ok is false when the engine has nothing
	// recorded (a null region, distinct from an empty rectangle).
	InvalidRegion() (region display.Rect, ok bool)

	// ClearInvalid resets the engine's damage record.
	ClearInvalid()

	// OutputSuppressed reports whether the client asked the engine to
	// stop producing output (minimized window). Paint bursts still
	// occur while suppressed; their damage must not reach clients.
	OutputSuppressed() bool

	// Monitors returns the engine's current monitor table. Position in
	// the slice is the monitor index; entries with zero width or
	// height are unconfigured.
	Monitors() []display.Monitor

	// AcknowledgeFrame reports a fully processed frame back to the
	// engine so it can pace its output. frameID is the identifier the
	// engine attached to the frame's surface markers.
	AcknowledgeFrame(frameID uint32)

	// RequestResize asks the engine to change the desktop size. The
	// request is asynchronous: the engine applies it on its own
	// schedule and raises DesktopResize on its handler when done.
	RequestResize(width, height int)

	// Capabilities describes engine quirks, resolved once at setup.
	Capabilities() Capabilities
}

// UpdateHandler receives engine-driven session updates. Implemented by
// framesync.Session. All methods are called from the engine pump
// goroutine.
type UpdateHandler interface {
	// BeginPaint opens a paint burst.
	BeginPaint()

	// EndPaint closes a paint burst, committing the damage the engine
	// accumulated during it.
	EndPaint()

	// FrameMarker delimits frames for engines using the explicit
	// begin/end marker pair.
	FrameMarker(action FrameAction)

	// SurfaceFrameMarker delimits frames for engines using surface
	// markers carrying a frame identifier.
	SurfaceFrameMarker(action SurfaceFrameAction, frameID uint32)

	// DesktopResize reports that the engine changed the desktop size.
	// The new geometry is read back through the Engine interface.
	DesktopResize()
}

// Capabilities captures per-engine behavior differences. Resolved once
// when the session is built, never re-probed per event.
type Capabilities struct {
	// OpenContextDuringResize is set for engines whose resize path
	// flushes pending output with an end-of-paint of its own, meaning
	// a desktop resize can arrive while a paint burst is still open.
	// Such engines get the burst committed and closed before the
	// resize proceeds; for all others an open burst at resize time is
	// a contract violation.
	OpenContextDuringResize bool

	// FrameMarkers is set for engines that delimit frames with markers
	// (either shape). Engines without markers leave frame boundaries
	// to the render thread's modification debounce.
	FrameMarkers bool
}

// FrameAction is the action of an explicit frame marker.
type FrameAction int

const (
	// FrameActionBegin opens a frame.
	FrameActionBegin FrameAction = iota

	// FrameActionEnd closes a frame.
	FrameActionEnd
)

// String returns the action name for logs.
func (a FrameAction) String() string {
	switch a {
	case FrameActionBegin:
		return "begin"
	case FrameActionEnd:
		return "end"
	default:
		return "unknown"
	}
}

// SurfaceFrameAction is the action of a surface frame marker.
type SurfaceFrameAction int

const (
	// SurfaceFrameActionBegin opens a frame.
	SurfaceFrameActionBegin SurfaceFrameAction = iota

	// SurfaceFrameActionEnd closes a frame.
	SurfaceFrameActionEnd
)

// String returns the action name for logs.
func (a SurfaceFrameAction) String() string {
	switch a {
	case SurfaceFrameActionBegin:
		return "begin"
	case SurfaceFrameActionEnd:
		return "end"
	default:
		return "unknown"
	}
}
