// Copyright 2026 The Oriel Authors
// SPDX-License-Identifier: Apache-2.0

package display

import (
	"fmt"
	"math"
)

// Rect is a half-open rectangle: a pixel (x, y) is inside when
// Left <= x < Right and Top <= y < Bottom. The zero Rect is empty.
type Rect struct {
	Left   int
	Top    int
	Right  int
	Bottom int
}

// FromSize builds the rectangle with origin (x, y) and the given size.
// The far edges are computed with saturating arithmetic, so hostile or
// corrupt width/height values cannot overflow into a rectangle that
// tests as valid.
func FromSize(x, y, width, height int) Rect {
	return Rect{
		Left:   x,
		Top:    y,
		Right:  satAdd(x, width),
		Bottom: satAdd(y, height),
	}
}

// IsEmpty reports whether the rectangle contains no pixels.
func (r Rect) IsEmpty() bool {
	return r.Right <= r.Left || r.Bottom <= r.Top
}

// Width returns the rectangle's width, or 0 if it is empty.
func (r Rect) Width() int {
	if r.Right <= r.Left {
		return 0
	}
	return r.Right - r.Left
}

// Height returns the rectangle's height, or 0 if it is empty.
func (r Rect) Height() int {
	if r.Bottom <= r.Top {
		return 0
	}
	return r.Bottom - r.Top
}

// Extend returns the bounding box of r and other. An empty rectangle
// is the identity: extending by it returns the other operand
// unchanged, so a zero Rect accumulator never anchors the union at the
// origin. Extend is commutative and associative, which is what makes
// damage accumulation independent of paint order.
func (r Rect) Extend(other Rect) Rect {
	if r.IsEmpty() {
		return other
	}
	if other.IsEmpty() {
		return r
	}
	return Rect{
		Left:   min(r.Left, other.Left),
		Top:    min(r.Top, other.Top),
		Right:  max(r.Right, other.Right),
		Bottom: max(r.Bottom, other.Bottom),
	}
}

// Constrain clips r to bounds. A result with no remaining area is
// normalized to the zero Rect.
func (r Rect) Constrain(bounds Rect) Rect {
	clipped := Rect{
		Left:   max(r.Left, bounds.Left),
		Top:    max(r.Top, bounds.Top),
		Right:  min(r.Right, bounds.Right),
		Bottom: min(r.Bottom, bounds.Bottom),
	}
	if clipped.IsEmpty() {
		return Rect{}
	}
	return clipped
}

// String formats the rectangle as "(left,top)-(right,bottom)".
func (r Rect) String() string {
	return fmt.Sprintf("(%d,%d)-(%d,%d)", r.Left, r.Top, r.Right, r.Bottom)
}

// satAdd adds two ints, clamping at the integer limits instead of
// wrapping.
func satAdd(a, b int) int {
	sum := a + b
	if b > 0 && sum < a {
		return math.MaxInt
	}
	if b < 0 && sum > a {
		return math.MinInt
	}
	return sum
}
