// Copyright 2026 The Oriel Authors
// SPDX-License-Identifier: Apache-2.0

package framesync

import "github.com/oriel-project/oriel/engine"

// frameState tracks whether the engine is between frames or inside
// one. Engines express frame boundaries in two marker shapes; both
// collapse into this single state machine.
type frameState int

const (
	// awaitingFrame means no frame is open; the next marker should be
	// a begin.
	awaitingFrame frameState = iota

	// inFrame means a frame is being assembled from paint bursts.
	inFrame
)

// frameEvent is a normalized frame marker: the marker shape is erased,
// leaving only direction and, for surface markers, the frame ID an
// acknowledgment would carry.
type frameEvent struct {
	start      bool
	frameID    uint32
	hasFrameID bool
}

// trackFrame advances the boundary tracker. Every end event wakes the
// render thread exactly once: the frame's damage is complete and may
// be flushed. End events from surface markers additionally pass the
// frame ID through the acknowledgment gate. Begin events only
// transition state; acknowledging on begin would report frames the
// session has not finished processing.
func (s *Session) trackFrame(event frameEvent) {
	if event.start {
		if s.state == inFrame {
			s.logger.Debug("frame marker opened a frame that was already open")
		}
		s.state = inFrame
		return
	}

	s.state = awaitingFrame
	s.render.NotifyFrame()

	if event.hasFrameID {
		s.gate.Acknowledge(event.frameID)
	}
}

// FrameMarker handles the explicit begin/end marker pair. Anything
// other than a begin is treated as an end, matching how engines encode
// the pair.
func (s *Session) FrameMarker(action engine.FrameAction) {
	s.trackFrame(frameEvent{start: action == engine.FrameActionBegin})
}

// SurfaceFrameMarker handles surface markers carrying a frame ID.
// Anything other than an explicit end opens a frame.
func (s *Session) SurfaceFrameMarker(action engine.SurfaceFrameAction, frameID uint32) {
	s.trackFrame(frameEvent{
		start:      action != engine.SurfaceFrameActionEnd,
		frameID:    frameID,
		hasFrameID: true,
	})
}
