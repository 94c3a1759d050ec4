// Copyright 2026 The Oriel Authors
// SPDX-License-Identifier: Apache-2.0

// Package record reads and writes Oriel session recordings: the exact
// stream of protocol messages a viewer of the session would have
// received, timestamped and stored so sessions can be replayed or
// inspected offline.
//
// A recording file (conventionally .orrc, "Oriel recording container")
// is an append-only sequence of compressed segments behind a fixed
// header:
//
//	[8-byte magic: "ORRC" + version + 3 reserved]
//	[4-byte header length][CBOR RecordingInfo]
//	segment*
//
// Each segment is:
//
//	[1-byte compression tag]
//	[4-byte compressed length, little-endian]
//	[4-byte uncompressed length, little-endian]
//	[32-byte keyed BLAKE3 hash of the uncompressed payload]
//	[compressed payload]
//
// and its uncompressed payload is a sequence of events:
//
//	[8-byte elapsed milliseconds, little-endian]
//	[1-byte event type]
//	[4-byte payload length, little-endian]
//	[payload]
//
// Events never span segments: the [Writer] flushes whole events, so a
// truncated event inside a verified segment is corruption, not a short
// read. Segment hashes are keyed BLAKE3 in the
// "oriel.recording.segment" domain, computed over uncompressed bytes so
// verification is independent of the compression tag. The [Writer]
// falls back to storing a segment uncompressed when compression does
// not shrink it, which is the common case for pixel data that is
// already dense.
package record
