// Copyright 2026 The Oriel Authors
// SPDX-License-Identifier: Apache-2.0

package display

import "sync"

// Display is the complete client-visible state of one session: an
// ordered set of layers plus cursor state. Layer 0 always exists and
// carries the desktop.
type Display struct {
	mu            sync.Mutex
	layers        []*Layer
	cursor        CursorGlyph
	cursorChanged bool
}

// New creates a display whose default layer has the given size. The
// cursor starts as the standard pointer.
func New(width, height int) *Display {
	return &Display{
		layers: []*Layer{newLayer(0, width, height)},
		cursor: CursorPointer,
	}
}

// DefaultLayer returns layer 0.
func (d *Display) DefaultLayer() *Layer {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.layers[0]
}

// Layer returns the layer at index, or false if no such layer exists.
func (d *Display) Layer(index int) (*Layer, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if index < 0 || index >= len(d.layers) {
		return nil, false
	}
	return d.layers[index], true
}

// CreateLayer appends a new layer and returns it.
func (d *Display) CreateLayer(width, height int) *Layer {
	d.mu.Lock()
	defer d.mu.Unlock()
	layer := newLayer(len(d.layers), width, height)
	d.layers = append(d.layers, layer)
	return layer
}

// SetCursor sets the session cursor and marks it for delivery, even
// when the glyph is unchanged: callers use SetCursor to force the
// client-visible cursor into a known state (resets after a resize),
// not to report edges.
func (d *Display) SetCursor(glyph CursorGlyph) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cursor = glyph
	d.cursorChanged = true
}

// Cursor returns the current cursor glyph without consuming the
// change flag. Attach paths use this to send initial state.
func (d *Display) Cursor() CursorGlyph {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cursor
}

// TakeCursor returns the cursor glyph and whether it was set since
// the last take, clearing the flag.
func (d *Display) TakeCursor() (CursorGlyph, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	changed := d.cursorChanged
	d.cursorChanged = false
	return d.cursor, changed
}
