// Copyright 2026 The Oriel Authors
// SPDX-License-Identifier: Apache-2.0

package display

// CursorGlyph identifies a built-in cursor shape. Clients render the
// glyph locally; no cursor pixels cross the wire.
type CursorGlyph int

const (
	// CursorNone hides the cursor.
	CursorNone CursorGlyph = iota

	// CursorDot is the minimal fallback cursor.
	CursorDot

	// CursorPointer is the standard arrow, the glyph every session
	// returns to after a desktop resize.
	CursorPointer
)

// String returns the glyph's wire name.
func (g CursorGlyph) String() string {
	switch g {
	case CursorNone:
		return "none"
	case CursorDot:
		return "dot"
	case CursorPointer:
		return "pointer"
	default:
		return "unknown"
	}
}
