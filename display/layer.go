// Copyright 2026 The Oriel Authors
// SPDX-License-Identifier: Apache-2.0

package display

import (
	"fmt"
	"sync"
)

// Layer is one compositing surface of a display. The default layer
// (index 0) carries the desktop; additional layers are available for
// overlays.
//
// A layer separates two pixel stores. The source is whatever memory
// the rendering engine paints into; the layer only ever reads it
// inside a commit. The front buffer is layer-owned and holds the last
// committed pixels; it is the only store consumers see. Committing
// copies exactly the dirty rows from source to front, so a slow
// consumer can never observe a half-painted burst.
type Layer struct {
	index int

	mu sync.Mutex

	// front holds committed pixels, guarded by mu.
	front *PixelBuffer

	// source is the engine buffer registered by the last commit,
	// reissued to the next RawContext. Nil until a context has been
	// closed or after a resize invalidates it.
	source       []byte
	sourceStride int

	// open is the currently open raw context, nil when the layer is
	// idle.
	open *RawContext

	// pending is the committed-but-unconsumed dirty area, always
	// within front's bounds.
	pending Rect
}

// RawContext is exclusive raw access to a layer for the duration of
// one paint burst. Buffer, Stride, and Bounds describe the engine
// memory being painted; the engine adapter rewrites them whenever the
// engine's own buffer moves (on open, and mid-resize). Dirty
// accumulates the burst's damage.
//
// A RawContext belongs to the goroutine driving the engine. It is not
// safe for concurrent use and must be returned to its layer with
// [Layer.CloseRaw].
type RawContext struct {
	layer *Layer

	Buffer []byte
	Stride int
	Bounds Rect
	Dirty  Rect
}

// MarkDirty clips r to the context bounds and folds it into the
// accumulated dirty region. Damage wholly outside the bounds is
// dropped rather than diagnosed; engines routinely report stale
// coordinates around resizes.
func (c *RawContext) MarkDirty(r Rect) {
	c.Dirty = c.Dirty.Extend(r.Constrain(c.Bounds))
}

func newLayer(index, width, height int) *Layer {
	return &Layer{
		index: index,
		front: NewPixelBuffer(width, height),
	}
}

// Index returns the layer's position in its display.
func (l *Layer) Index() int { return l.index }

// Bounds returns the committed buffer's extent.
func (l *Layer) Bounds() Rect {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.front.Bounds()
}

// OpenRaw opens exclusive raw access to the layer and returns the
// context for the new paint burst. The context starts with the last
// registered engine buffer and an empty dirty region.
//
// Opening a layer that already has an open context panics: two
// concurrent paint bursts on one layer mean the caller has lost track
// of burst boundaries, and continuing would corrupt dirty accounting
// without any later symptom pointing here.
func (l *Layer) OpenRaw() *RawContext {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.open != nil {
		panic(fmt.Sprintf("display: raw context already open on layer %d", l.index))
	}
	context := &RawContext{
		layer:  l,
		Buffer: l.source,
		Stride: l.sourceStride,
		Bounds: l.front.Bounds(),
	}
	l.open = context
	return context
}

// CloseRaw ends the paint burst: the context's buffer details are
// registered as the layer's source, the dirty rows are copied into the
// front buffer, and the dirty area joins the layer's pending region.
// A context with no accumulated damage only releases the layer; the
// previously committed pending state is untouched.
//
// Closing a context that is not the layer's open context panics.
func (l *Layer) CloseRaw(context *RawContext) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.open != context {
		panic(fmt.Sprintf("display: closing a context layer %d does not own", l.index))
	}
	l.open = nil
	l.source = context.Buffer
	l.sourceStride = context.Stride

	dirty := context.Dirty.Constrain(context.Bounds).Constrain(l.front.Bounds())
	if dirty.IsEmpty() || context.Buffer == nil {
		return
	}

	rowBytes := dirty.Width() * BytesPerPixel
	for y := dirty.Top; y < dirty.Bottom; y++ {
		start := y*context.Stride + dirty.Left*BytesPerPixel
		if start+rowBytes > len(context.Buffer) {
			panic(fmt.Sprintf(
				"display: layer %d context buffer (%d bytes, stride %d) shorter than dirty region %v",
				l.index, len(context.Buffer), context.Stride, dirty))
		}
		copy(l.front.rowSpan(y, dirty.Left, dirty.Right), context.Buffer[start:start+rowBytes])
	}
	l.pending = l.pending.Extend(dirty)
}

// Resize replaces the front buffer with a zeroed buffer of the new
// size. The registered source is dropped (its geometry no longer
// matches) and the whole new extent becomes pending, since nothing a
// client holds remains valid after a resize.
func (l *Layer) Resize(width, height int) {
	if width <= 0 || height <= 0 {
		panic(fmt.Sprintf("display: layer %d resized to impossible %dx%d", l.index, width, height))
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.front = NewPixelBuffer(width, height)
	l.source = nil
	l.sourceStride = 0
	l.pending = l.front.Bounds()
}

// TakePending returns and clears the committed-but-unconsumed dirty
// region. ok is false when nothing is pending.
func (l *Layer) TakePending() (damage Rect, ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.pending.IsEmpty() {
		return Rect{}, false
	}
	damage = l.pending
	l.pending = Rect{}
	return damage, true
}

// PeekPending returns the pending dirty region without clearing it.
func (l *Layer) PeekPending() Rect {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.pending
}

// CopyRect returns a tightly packed copy of the committed pixels for
// r, clipped to the layer bounds, along with the copy's row length in
// bytes. An empty clip returns (nil, 0).
func (l *Layer) CopyRect(r Rect) (pixels []byte, rowBytes int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	r = r.Constrain(l.front.Bounds())
	if r.IsEmpty() {
		return nil, 0
	}
	rowBytes = r.Width() * BytesPerPixel
	pixels = make([]byte, rowBytes*r.Height())
	for y := r.Top; y < r.Bottom; y++ {
		copy(pixels[(y-r.Top)*rowBytes:], l.front.rowSpan(y, r.Left, r.Right))
	}
	return pixels, rowBytes
}
