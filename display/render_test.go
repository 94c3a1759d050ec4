// Copyright 2026 The Oriel Authors
// SPDX-License-Identifier: Apache-2.0

package display

import (
	"testing"
	"time"

	"github.com/oriel-project/oriel/lib/clock"
	"github.com/oriel-project/oriel/lib/testutil"
)

// countingFlush records each flush invocation on a channel so tests
// can wait for flushes without sleeping.
func countingFlush() (func(), chan struct{}) {
	flushed := make(chan struct{}, 64)
	return func() { flushed <- struct{}{} }, flushed
}

func TestRenderThreadFlushesOnFrame(t *testing.T) {
	t.Parallel()

	flush, flushed := countingFlush()
	thread := NewRenderThread(clock.Fake(time.Unix(0, 0)), flush, RenderOptions{})
	thread.Start()
	defer thread.Stop()

	thread.NotifyFrame()
	testutil.RequireReceive(t, flushed, 5*time.Second, "waiting for frame flush")
}

func TestRenderThreadCoalescesFrames(t *testing.T) {
	t.Parallel()

	// Flush blocks until released, so every NotifyFrame below lands
	// while a flush is in progress and must coalesce into one wakeup.
	release := make(chan struct{})
	flushed := make(chan struct{}, 64)
	thread := NewRenderThread(clock.Fake(time.Unix(0, 0)), func() {
		flushed <- struct{}{}
		<-release
	}, RenderOptions{})
	thread.Start()

	thread.NotifyFrame()
	testutil.RequireReceive(t, flushed, 5*time.Second, "first flush")
	for i := 0; i < 10; i++ {
		thread.NotifyFrame()
	}
	release <- struct{}{}

	testutil.RequireReceive(t, flushed, 5*time.Second, "coalesced flush")
	release <- struct{}{}
	thread.Stop()

	// Ten notifies while busy produce exactly one more flush, not ten.
	select {
	case <-flushed:
		t.Fatal("coalesced signals produced extra flushes")
	default:
	}
}

func TestRenderThreadModifiedDebounce(t *testing.T) {
	t.Parallel()

	fake := clock.Fake(time.Unix(0, 0))
	flush, flushed := countingFlush()
	thread := NewRenderThread(fake, flush, RenderOptions{
		QuietPeriod: 10 * time.Millisecond,
		MaxInterval: 100 * time.Millisecond,
	})
	thread.Start()
	defer thread.Stop()

	thread.NotifyModified()
	// Both the quiet timer and the lag timer are armed.
	fake.WaitForTimers(2)

	select {
	case <-flushed:
		t.Fatal("modification flushed before the quiet period")
	default:
	}

	fake.Advance(10 * time.Millisecond)
	testutil.RequireReceive(t, flushed, 5*time.Second, "debounced flush")
}

func TestRenderThreadModifiedMaxInterval(t *testing.T) {
	t.Parallel()

	fake := clock.Fake(time.Unix(0, 0))
	flush, flushed := countingFlush()
	thread := NewRenderThread(fake, flush, RenderOptions{
		QuietPeriod: 10 * time.Millisecond,
		MaxInterval: 30 * time.Millisecond,
	})
	thread.Start()
	defer thread.Stop()

	// A stream of modifications arriving faster than the quiet period
	// keeps deferring the quiet flush; the lag timer must cap the
	// deferral at MaxInterval.
	thread.NotifyModified()
	fake.WaitForTimers(2)
	for i := 0; i < 4; i++ {
		fake.Advance(5 * time.Millisecond)
		thread.NotifyModified()
		fake.WaitForTimers(2)
	}
	fake.Advance(10 * time.Millisecond) // crosses the 30ms lag deadline

	testutil.RequireReceive(t, flushed, 5*time.Second, "max-interval flush")
}

func TestRenderThreadStopRunsFinalFlush(t *testing.T) {
	t.Parallel()

	flush, flushed := countingFlush()
	thread := NewRenderThread(clock.Fake(time.Unix(0, 0)), flush, RenderOptions{})
	thread.Start()

	// Deliver the signal, then stop before the goroutine necessarily
	// serviced it. Stop must not drop it.
	thread.NotifyFrame()
	thread.Stop()

	testutil.RequireReceive(t, flushed, 5*time.Second, "final flush on stop")
}

func TestRenderThreadStopIdempotent(t *testing.T) {
	t.Parallel()

	thread := NewRenderThread(clock.Fake(time.Unix(0, 0)), func() {}, RenderOptions{})
	thread.Start()
	thread.Stop()
	thread.Stop()
}
