// Copyright 2026 The Oriel Authors
// SPDX-License-Identifier: Apache-2.0

package framesync

// FrameAcknowledger is the engine-side acknowledgment primitive.
// Implemented by engine.Engine.
type FrameAcknowledger interface {
	AcknowledgeFrame(frameID uint32)
}

// AcknowledgmentGate forwards frame acknowledgments to the engine when
// a positive threshold enables them. The threshold is the number of
// unacknowledged frames the engine will allow in flight; the gate's
// job is only to acknowledge or stay silent, exactly once per frame
// end, so the engine's own pacing works off accurate information.
//
// With a zero threshold the gate never acknowledges and the engine
// renders without feedback, trading backpressure for latency.
type AcknowledgmentGate struct {
	threshold uint32
	sink      FrameAcknowledger
}

// NewAcknowledgmentGate builds a gate with the given threshold.
func NewAcknowledgmentGate(threshold uint32, sink FrameAcknowledger) *AcknowledgmentGate {
	return &AcknowledgmentGate{threshold: threshold, sink: sink}
}

// Enabled reports whether acknowledgments are sent at all.
func (g *AcknowledgmentGate) Enabled() bool { return g.threshold > 0 }

// Threshold returns the configured in-flight frame limit.
func (g *AcknowledgmentGate) Threshold() uint32 { return g.threshold }

// Acknowledge reports frameID as fully processed, if the gate is
// enabled.
func (g *AcknowledgmentGate) Acknowledge(frameID uint32) {
	if g.threshold > 0 {
		g.sink.AcknowledgeFrame(frameID)
	}
}
