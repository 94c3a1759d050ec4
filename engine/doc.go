// Copyright 2026 The Oriel Authors
// SPDX-License-Identifier: Apache-2.0

// Package engine defines the boundary to the upstream rendering
// engine: the process or library that actually produces desktop
// pixels.
//
// An [Engine] exposes its framebuffer, damage reporting, resize
// primitive, monitor table, and frame acknowledgment hook. Engines
// drive session updates through an [UpdateHandler] (implemented by
// package framesync): paint bursts, frame markers in either of the two
// shapes engines use, and desktop resizes.
//
// Engine quirks that change how updates must be interpreted are
// resolved once, at session setup, into a [Capabilities] value rather
// than probed per event.
//
// The in-repo implementation is engine/synthetic; tests use in-package
// fakes.
package engine
