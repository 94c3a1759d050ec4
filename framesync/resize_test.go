// Copyright 2026 The Oriel Authors
// SPDX-License-Identifier: Apache-2.0

package framesync

import (
	"errors"
	"testing"

	"github.com/oriel-project/oriel/display"
)

func TestDesktopResizeSequence(t *testing.T) {
	t.Parallel()

	eng := newFakeEngine(8, 8)
	eng.monitors = []display.Monitor{{Left: 0, Top: 0, Width: 1920, Height: 1080}}
	ts := newTestSession(t, eng, 0)
	ts.display.DefaultLayer().TakePending() // drop initial state

	eng.applySize(1920, 1080)
	ts.session.DesktopResize()

	if eng.resizeCount != 1 {
		t.Fatalf("engine resize primitive called %d times, want 1", eng.resizeCount)
	}

	layer := ts.display.DefaultLayer()
	wantBounds := display.Rect{Right: 1920, Bottom: 1080}
	if got := layer.Bounds(); got != wantBounds {
		t.Fatalf("layer bounds = %v, want %v", got, wantBounds)
	}
	if pending, ok := layer.TakePending(); !ok || pending != wantBounds {
		t.Fatalf("pending after resize = %v (ok=%v), want full %v", pending, ok, wantBounds)
	}

	updates := ts.params.all()
	if len(updates) != 1 {
		t.Fatalf("got %d parameter updates, want 1", len(updates))
	}
	want := paramUpdate{
		layer: 0,
		name:  MonitorLayoutParameter,
		value: `{"0":{"left":0,"top":0,"width":1920,"height":1080}}`,
	}
	if updates[0] != want {
		t.Fatalf("layout update = %+v, want %+v", updates[0], want)
	}

	glyph, changed := ts.display.TakeCursor()
	if !changed || glyph != display.CursorPointer {
		t.Fatalf("cursor after resize = (%v, %v), want (pointer, true)", glyph, changed)
	}
}

func TestDesktopResizeSkipsUnconfiguredMonitors(t *testing.T) {
	t.Parallel()

	eng := newFakeEngine(8, 8)
	eng.monitors = []display.Monitor{
		{Left: 0, Top: 0, Width: 1920, Height: 1080},
		{}, // attached but not yet sized
	}
	ts := newTestSession(t, eng, 0)

	eng.applySize(1920, 1080)
	ts.session.DesktopResize()

	updates := ts.params.all()
	if len(updates) != 1 {
		t.Fatalf("got %d parameter updates, want 1", len(updates))
	}
	if want := `{"0":{"left":0,"top":0,"width":1920,"height":1080}}`; updates[0].value != want {
		t.Fatalf("layout = %s, want %s", updates[0].value, want)
	}
}

func TestDamageAfterResizeClipsToNewBounds(t *testing.T) {
	t.Parallel()

	eng := newFakeEngine(8, 8)
	ts := newTestSession(t, eng, 0)

	eng.applySize(640, 480)
	ts.session.DesktopResize()
	ts.display.DefaultLayer().TakePending() // consume the resize repaint

	ts.session.BeginPaint()
	eng.damage(display.FromSize(600, 400, 200, 200), 0x55)
	ts.session.EndPaint()

	pending, ok := ts.display.DefaultLayer().TakePending()
	want := display.Rect{Left: 600, Top: 400, Right: 640, Bottom: 480}
	if !ok || pending != want {
		t.Fatalf("pending = %v (ok=%v), want %v clipped to the new bounds", pending, ok, want)
	}
}

func TestResizeDuringBurstPanicsWithoutCapability(t *testing.T) {
	t.Parallel()

	eng := newFakeEngine(8, 8)
	ts := newTestSession(t, eng, 0)

	ts.session.BeginPaint()
	eng.applySize(16, 16)

	defer func() {
		if recover() == nil {
			t.Fatal("resize during an open burst did not panic")
		}
	}()
	ts.session.DesktopResize()
}

func TestResizeDuringBurstToleratedWithCapability(t *testing.T) {
	t.Parallel()

	eng := newFakeEngine(8, 8)
	eng.caps.OpenContextDuringResize = true
	ts := newTestSession(t, eng, 0)

	ts.session.BeginPaint()
	eng.applySize(16, 16)
	ts.session.DesktopResize()

	if ts.session.current != nil {
		t.Fatal("burst still open after tolerated resize")
	}
	if got := ts.display.DefaultLayer().Bounds(); got != (display.Rect{Right: 16, Bottom: 16}) {
		t.Fatalf("layer bounds = %v, want 16x16", got)
	}

	// The layer must be reusable for the next burst.
	ts.session.BeginPaint()
	ts.session.EndPaint()
}

func TestResizeFailuresAreFatal(t *testing.T) {
	t.Parallel()

	t.Run("error", func(t *testing.T) {
		t.Parallel()
		eng := newFakeEngine(8, 8)
		eng.resizeErr = errors.New("output surface lost")
		ts := newTestSession(t, eng, 0)

		defer func() {
			if recover() == nil {
				t.Fatal("engine resize error did not panic")
			}
		}()
		ts.session.DesktopResize()
	})

	t.Run("nil buffer", func(t *testing.T) {
		t.Parallel()
		eng := newFakeEngine(8, 8)
		eng.resizeNil = true
		ts := newTestSession(t, eng, 0)

		defer func() {
			if recover() == nil {
				t.Fatal("nil framebuffer after resize did not panic")
			}
		}()
		ts.session.DesktopResize()
	})
}
