// Copyright 2026 The Oriel Authors
// SPDX-License-Identifier: Apache-2.0

package display

import (
	"math"
	"math/rand"
	"testing"
)

func TestFromSize(t *testing.T) {
	t.Parallel()

	r := FromSize(10, 20, 30, 40)
	want := Rect{Left: 10, Top: 20, Right: 40, Bottom: 60}
	if r != want {
		t.Fatalf("FromSize = %v, want %v", r, want)
	}
	if r.Width() != 30 || r.Height() != 40 {
		t.Fatalf("size = %dx%d, want 30x40", r.Width(), r.Height())
	}
}

func TestFromSizeSaturates(t *testing.T) {
	t.Parallel()

	r := FromSize(math.MaxInt-5, 0, 100, 100)
	if r.Right != math.MaxInt {
		t.Errorf("Right = %d, want saturation at MaxInt", r.Right)
	}

	r = FromSize(0, math.MinInt+5, 0, -100)
	if r.Bottom != math.MinInt {
		t.Errorf("Bottom = %d, want saturation at MinInt", r.Bottom)
	}
}

func TestEmptyRects(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		rect Rect
		want bool
	}{
		{"zero value", Rect{}, true},
		{"zero width", Rect{Left: 5, Top: 0, Right: 5, Bottom: 10}, true},
		{"zero height", Rect{Left: 0, Top: 7, Right: 10, Bottom: 7}, true},
		{"inverted", Rect{Left: 10, Top: 10, Right: 0, Bottom: 0}, true},
		{"single pixel", Rect{Left: 3, Top: 3, Right: 4, Bottom: 4}, false},
	}
	for _, tc := range cases {
		if got := tc.rect.IsEmpty(); got != tc.want {
			t.Errorf("%s: IsEmpty() = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestExtendEmptyIsIdentity(t *testing.T) {
	t.Parallel()

	r := Rect{Left: 100, Top: 100, Right: 200, Bottom: 200}

	if got := (Rect{}).Extend(r); got != r {
		t.Errorf("empty.Extend(r) = %v, want %v", got, r)
	}
	if got := r.Extend(Rect{}); got != r {
		t.Errorf("r.Extend(empty) = %v, want %v", got, r)
	}
	// An accumulator seeded with the zero Rect must not pull the union
	// toward the origin.
	if got := (Rect{}).Extend(r); got.Left != 100 || got.Top != 100 {
		t.Errorf("union anchored at origin: %v", got)
	}
}

func TestExtendBoundingBox(t *testing.T) {
	t.Parallel()

	a := Rect{Left: 0, Top: 0, Right: 10, Bottom: 10}
	b := Rect{Left: 50, Top: 60, Right: 70, Bottom: 80}
	want := Rect{Left: 0, Top: 0, Right: 70, Bottom: 80}

	if got := a.Extend(b); got != want {
		t.Fatalf("Extend = %v, want %v", got, want)
	}
}

func TestExtendOrderIndependent(t *testing.T) {
	t.Parallel()

	rects := []Rect{
		FromSize(5, 5, 10, 10),
		FromSize(100, 2, 30, 7),
		FromSize(0, 200, 1, 1),
		FromSize(40, 40, 60, 60),
		{}, // empty contributes nothing regardless of position
		FromSize(7, 90, 3, 3),
	}

	var want Rect
	for _, r := range rects {
		want = want.Extend(r)
	}

	rng := rand.New(rand.NewSource(1))
	for trial := 0; trial < 50; trial++ {
		shuffled := append([]Rect(nil), rects...)
		rng.Shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})
		var got Rect
		for _, r := range shuffled {
			got = got.Extend(r)
		}
		if got != want {
			t.Fatalf("trial %d: union = %v, want %v (order dependence)", trial, got, want)
		}
	}
}

func TestConstrain(t *testing.T) {
	t.Parallel()

	bounds := Rect{Left: 0, Top: 0, Right: 100, Bottom: 100}

	cases := []struct {
		name string
		rect Rect
		want Rect
	}{
		{"inside", Rect{Left: 10, Top: 10, Right: 20, Bottom: 20}, Rect{Left: 10, Top: 10, Right: 20, Bottom: 20}},
		{"overhanging", Rect{Left: 90, Top: 90, Right: 150, Bottom: 150}, Rect{Left: 90, Top: 90, Right: 100, Bottom: 100}},
		{"negative origin", Rect{Left: -10, Top: -10, Right: 5, Bottom: 5}, Rect{Left: 0, Top: 0, Right: 5, Bottom: 5}},
		{"fully outside", Rect{Left: 200, Top: 200, Right: 300, Bottom: 300}, Rect{}},
		{"empty input", Rect{}, Rect{}},
	}
	for _, tc := range cases {
		if got := tc.rect.Constrain(bounds); got != tc.want {
			t.Errorf("%s: Constrain = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestConstrainThenExtendStaysInBounds(t *testing.T) {
	t.Parallel()

	bounds := Rect{Left: 0, Top: 0, Right: 640, Bottom: 480}
	rng := rand.New(rand.NewSource(2))

	var union Rect
	for i := 0; i < 200; i++ {
		r := FromSize(rng.Intn(2000)-500, rng.Intn(2000)-500, rng.Intn(1000), rng.Intn(1000))
		union = union.Extend(r.Constrain(bounds))
	}
	if union.IsEmpty() {
		t.Skip("random draw produced no in-bounds damage")
	}
	if union.Constrain(bounds) != union {
		t.Fatalf("union %v escapes bounds %v", union, bounds)
	}
}
