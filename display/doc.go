// Copyright 2026 The Oriel Authors
// SPDX-License-Identifier: Apache-2.0

// Package display holds the client-visible state of a remote desktop
// session: layer pixel buffers, accumulated dirty regions, cursor
// state, and monitor geometry.
//
// The package sits between two roles. The producer side is the engine
// adapter (package framesync): it opens a [RawContext] on a [Layer]
// for the duration of a paint burst, accumulates damage with
// [RawContext.MarkDirty], and commits by closing the context. The
// consumer side is the gateway's flush path: it drains committed
// damage with [Layer.TakePending], copies pixels with [Layer.CopyRect],
// and is woken by the [RenderThread].
//
// At most one RawContext may be open per layer at a time; a second
// [Layer.OpenRaw] while one is open panics, because overlapping paint
// bursts would corrupt the dirty bookkeeping silently. The producer
// owns the open context exclusively and needs no locking while it
// paints; commits and all consumer reads synchronize on the layer
// mutex, and neither side holds that mutex across I/O.
//
// [SerializeMonitorLayout] renders monitor geometry in the compact
// JSON form clients consume. It is a pure function of its input.
package display
