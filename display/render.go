// Copyright 2026 The Oriel Authors
// SPDX-License-Identifier: Apache-2.0

package display

import (
	"sync"
	"time"

	"github.com/oriel-project/oriel/lib/clock"
)

// Default debounce windows for engines that report modifications but
// no frame boundaries.
const (
	defaultQuietPeriod = 10 * time.Millisecond
	defaultMaxInterval = 100 * time.Millisecond
)

// RenderThread owns the consumer-side flush loop. Producers signal it
// in one of two ways:
//
//   - [RenderThread.NotifyFrame] when a frame boundary is known (the
//     engine emitted a frame marker). The flush runs promptly, once
//     per wakeup; signals arriving during a flush coalesce.
//   - [RenderThread.NotifyModified] when content changed but the
//     engine gives no boundary. Modifications are debounced: the flush
//     runs after QuietPeriod with no further modification, or
//     MaxInterval after the first unflushed one, whichever comes
//     first, so a chatty engine cannot starve clients and a bursty one
//     is not flushed mid-burst.
//
// Both notify methods are non-blocking regardless of consumer speed.
type RenderThread struct {
	clock       clock.Clock
	flush       func()
	quietPeriod time.Duration
	maxInterval time.Duration

	frames   chan struct{}
	modified chan struct{}
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// RenderOptions tunes the modification debounce. Zero values select
// the defaults.
type RenderOptions struct {
	QuietPeriod time.Duration
	MaxInterval time.Duration
}

// NewRenderThread creates a render thread that invokes flush on the
// render goroutine for every delivered frame. Call Start to begin.
func NewRenderThread(clk clock.Clock, flush func(), opts RenderOptions) *RenderThread {
	if opts.QuietPeriod <= 0 {
		opts.QuietPeriod = defaultQuietPeriod
	}
	if opts.MaxInterval <= 0 {
		opts.MaxInterval = defaultMaxInterval
	}
	return &RenderThread{
		clock:       clk,
		flush:       flush,
		quietPeriod: opts.QuietPeriod,
		maxInterval: opts.MaxInterval,
		frames:      make(chan struct{}, 1),
		modified:    make(chan struct{}, 1),
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
	}
}

// Start launches the render goroutine.
func (t *RenderThread) Start() {
	go t.run()
}

// Stop terminates the render goroutine and waits for it to exit. A
// signal that arrived after the last flush is honored with one final
// flush, so damage committed just before shutdown still reaches
// clients. Stop is idempotent.
func (t *RenderThread) Stop() {
	t.stopOnce.Do(func() { close(t.stop) })
	<-t.done
}

// NotifyFrame signals a completed frame. Never blocks.
func (t *RenderThread) NotifyFrame() {
	select {
	case t.frames <- struct{}{}:
	default:
	}
}

// NotifyModified signals a content change without a frame boundary.
// Never blocks.
func (t *RenderThread) NotifyModified() {
	select {
	case t.modified <- struct{}{}:
	default:
	}
}

func (t *RenderThread) run() {
	defer close(t.done)

	// quiet re-arms on every modification; lagged arms once per
	// unflushed run of modifications. A nil channel blocks forever, so
	// disarmed timers simply drop out of the select.
	var quiet, lagged <-chan time.Time

	for {
		select {
		case <-t.stop:
			pending := quiet != nil
			select {
			case <-t.frames:
				pending = true
			default:
			}
			select {
			case <-t.modified:
				pending = true
			default:
			}
			if pending {
				t.flush()
			}
			return

		case <-t.frames:
			// Drain a modification coinciding with this frame; the
			// flush below covers it.
			select {
			case <-t.modified:
			default:
			}
			t.flush()
			quiet, lagged = nil, nil

		case <-t.modified:
			quiet = t.clock.After(t.quietPeriod)
			if lagged == nil {
				lagged = t.clock.After(t.maxInterval)
			}

		case <-quiet:
			t.flush()
			quiet, lagged = nil, nil

		case <-lagged:
			t.flush()
			quiet, lagged = nil, nil
		}
	}
}
