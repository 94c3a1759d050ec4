// Copyright 2026 The Oriel Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock abstracts the time source so frame pacing and debounce
// logic can be tested deterministically.
//
// Production code receives a [Clock] (usually [Real]) and uses it
// wherever it would otherwise reach for the time package directly.
// Tests construct a [FakeClock] with [Fake], drive it with
// [FakeClock.Advance], and synchronize with [FakeClock.WaitForTimers]
// to eliminate the race between a goroutine registering a timer and
// the test firing it.
package clock
