// Copyright 2026 The Oriel Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"sort"
	"sync"
	"time"
)

// Fake returns a FakeClock frozen at the given instant. Time moves only
// when Advance is called; every wait registered through the Clock
// interface becomes a pending entry that fires once the clock passes
// its deadline.
//
// FakeClock is safe for concurrent use.
func Fake(initial time.Time) *FakeClock {
	fake := &FakeClock{current: initial}
	fake.registered = sync.NewCond(&fake.mu)
	return fake
}

// FakeClock is a deterministic Clock for tests. Pending waits fire in
// deadline order during Advance; channel sends never block (ticks that
// would overflow a full channel are dropped, matching time.Ticker).
type FakeClock struct {
	mu         sync.Mutex
	current    time.Time
	pending    []*pendingWait
	registered *sync.Cond
}

// pendingWait is one registered After, Sleep, or Ticker wait.
type pendingWait struct {
	deadline time.Time
	channel  chan time.Time

	// interval is non-zero for tickers; the wait is re-armed at
	// deadline+interval after each fire.
	interval time.Duration

	stopped bool
}

var _ Clock = (*FakeClock)(nil)

// Now returns the current fake time.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// After returns a channel that receives once the clock advances past
// the deadline. A non-positive d receives immediately.
func (c *FakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	channel := make(chan time.Time, 1)
	if d <= 0 {
		channel <- c.current
		return channel
	}
	c.pending = append(c.pending, &pendingWait{
		deadline: c.current.Add(d),
		channel:  channel,
	})
	c.registered.Broadcast()
	return channel
}

// NewTicker returns a Ticker that fires each time Advance crosses
// another interval boundary. Panics if d <= 0.
func (c *FakeClock) NewTicker(d time.Duration) *Ticker {
	if d <= 0 {
		panic("clock: non-positive ticker interval")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	channel := make(chan time.Time, 1)
	wait := &pendingWait{
		deadline: c.current.Add(d),
		channel:  channel,
		interval: d,
	}
	c.pending = append(c.pending, wait)
	c.registered.Broadcast()

	return &Ticker{
		C: channel,
		stop: func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			wait.stopped = true
		},
	}
}

// Sleep blocks until the clock advances past the deadline.
func (c *FakeClock) Sleep(d time.Duration) {
	if d <= 0 {
		return
	}
	<-c.After(d)
}

// Advance moves the clock forward by d, firing every pending wait whose
// deadline falls within the new time, in deadline order. Tickers fire
// once per crossed interval.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.current = c.current.Add(d)
	target := c.current
	c.mu.Unlock()

	for {
		due := c.takeDue(target)
		if len(due) == 0 {
			return
		}
		sort.Slice(due, func(i, j int) bool {
			return due[i].deadline.Before(due[j].deadline)
		})
		for _, wait := range due {
			select {
			case wait.channel <- target:
			default:
			}
		}
	}
}

// takeDue removes waits due at or before target from the pending list,
// re-arming tickers for their next interval.
func (c *FakeClock) takeDue(target time.Time) []*pendingWait {
	c.mu.Lock()
	defer c.mu.Unlock()

	var due, remaining []*pendingWait
	for _, wait := range c.pending {
		switch {
		case wait.stopped:
		case !wait.deadline.After(target):
			due = append(due, wait)
		default:
			remaining = append(remaining, wait)
		}
	}
	for _, wait := range due {
		if wait.interval > 0 {
			wait.deadline = wait.deadline.Add(wait.interval)
			remaining = append(remaining, wait)
		}
	}
	c.pending = remaining
	return due
}

// WaitForTimers blocks until at least n waits are pending. Call this
// before Advance when the waits are registered by another goroutine.
func (c *FakeClock) WaitForTimers(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for c.activeLocked() < n {
		c.registered.Wait()
	}
}

// PendingCount reports the number of active pending waits.
func (c *FakeClock) PendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.activeLocked()
}

func (c *FakeClock) activeLocked() int {
	count := 0
	for _, wait := range c.pending {
		if !wait.stopped {
			count++
		}
	}
	return count
}
