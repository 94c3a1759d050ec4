// Copyright 2026 The Oriel Authors
// SPDX-License-Identifier: Apache-2.0

package display

// BytesPerPixel is the size of one pixel in every buffer this package
// handles: 32-bit BGRX, bytes ordered blue, green, red, pad.
const BytesPerPixel = 4

// PixelBuffer is a dense pixel store. Stride is the byte distance
// between the starts of adjacent rows and may exceed
// Width*BytesPerPixel when rows carry padding. A resize replaces the
// buffer wholesale; buffers are never grown in place.
type PixelBuffer struct {
	Data   []byte
	Width  int
	Height int
	Stride int
}

// NewPixelBuffer allocates a zeroed buffer with tight rows.
func NewPixelBuffer(width, height int) *PixelBuffer {
	return &PixelBuffer{
		Data:   make([]byte, width*height*BytesPerPixel),
		Width:  width,
		Height: height,
		Stride: width * BytesPerPixel,
	}
}

// Bounds returns the buffer's extent as a Rect at the origin.
func (b *PixelBuffer) Bounds() Rect {
	return Rect{Right: b.Width, Bottom: b.Height}
}

// rowSpan returns the bytes of row y covering columns [left, right).
// The caller guarantees the coordinates are within bounds.
func (b *PixelBuffer) rowSpan(y, left, right int) []byte {
	start := y*b.Stride + left*BytesPerPixel
	return b.Data[start : start+(right-left)*BytesPerPixel]
}
