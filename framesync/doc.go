// Copyright 2026 The Oriel Authors
// SPDX-License-Identifier: Apache-2.0

// Package framesync synchronizes an upstream rendering engine with the
// session display: it is the glue that turns raw engine callbacks into
// coherent, tear-free frames.
//
// A [Session] implements engine.UpdateHandler. Paint bursts map to an
// exclusive raw context on the display's default layer: BeginPaint
// opens it and resynchronizes the engine's buffer geometry, EndPaint
// folds the engine's reported damage into it and commits. Frame
// markers of either shape collapse into one two-state boundary
// tracker; each frame end wakes the render thread and, for surface
// markers, passes the frame ID through the [AcknowledgmentGate] so a
// configured engine paces itself against actual processing.
//
// Desktop resizes run through a fixed coordination sequence that keeps
// buffer identity, layer geometry, monitor layout, and cursor state
// consistent; see [Session.DesktopResize].
//
// All Session methods are driven from the engine pump goroutine.
// Violations of the paint-burst contract (overlapping bursts, a resize
// during a burst on engines that forbid it, a vanished framebuffer)
// panic rather than limp on: the damage bookkeeping would be silently
// wrong from that point, and the owning gateway session recovers the
// panic and tears the session down.
package framesync
