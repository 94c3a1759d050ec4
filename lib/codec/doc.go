// Copyright 2026 The Oriel Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides Oriel's standard CBOR encoding configuration.
//
// Every wire payload (the gateway protocol) and every recorded event
// body goes through this package so the whole tree encodes identically
// without duplicating configuration. The encoder uses Core
// Deterministic Encoding (RFC 8949 §4.2): sorted map keys, smallest
// integer encoding, no indefinite-length items. The same logical
// message always produces identical bytes, which keeps recording
// segment hashes stable and makes protocol tests byte-exact.
//
// Message types use `cbor` struct tags; a type with a `cbor` tag is
// never serialized as JSON.
package codec
