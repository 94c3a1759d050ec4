// Copyright 2026 The Oriel Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for Oriel packages.
//
// [RequireReceive], [RequireSend], and [RequireClosed] encapsulate the
// timeout safety valve pattern (select with a time.After fallback) so
// individual tests never hang on a channel that should have been
// serviced. These helpers are the only place the test suite reaches
// for real wall-clock timeouts; everything time-driven under test uses
// lib/clock's fake.
//
// All helpers call t.Fatalf on failure rather than returning errors,
// since test setup failures are not recoverable.
//
// This package has no Oriel-internal dependencies.
package testutil
