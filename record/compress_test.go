// Copyright 2026 The Oriel Authors
// SPDX-License-Identifier: Apache-2.0

package record

import (
	"bytes"
	"math/rand"
	"testing"
)

func TestCompressSegmentRoundTrip(t *testing.T) {
	t.Parallel()
	// Highly repetitive payload compresses under every algorithm.
	payload := bytes.Repeat([]byte("the same frame again and again "), 64)

	for _, tag := range []CompressionTag{CompressionNone, CompressionLZ4, CompressionZstd} {
		t.Run(tag.String(), func(t *testing.T) {
			t.Parallel()
			stored, storedTag, err := compressSegment(payload, tag)
			if err != nil {
				t.Fatalf("compressSegment: %v", err)
			}
			if storedTag != tag {
				t.Errorf("stored tag = %s, want %s", storedTag, tag)
			}
			if tag != CompressionNone && len(stored) >= len(payload) {
				t.Errorf("compressed size %d not smaller than input %d", len(stored), len(payload))
			}

			restored, err := decompressSegment(stored, storedTag, len(payload))
			if err != nil {
				t.Fatalf("decompressSegment: %v", err)
			}
			if !bytes.Equal(restored, payload) {
				t.Error("restored payload differs from original")
			}
		})
	}
}

func TestCompressSegmentFallsBackWhenIncompressible(t *testing.T) {
	t.Parallel()
	// Pseudo-random bytes do not compress; the writer must store them
	// raw rather than growing the segment.
	payload := make([]byte, 4096)
	rand.New(rand.NewSource(1)).Read(payload)

	for _, tag := range []CompressionTag{CompressionLZ4, CompressionZstd} {
		t.Run(tag.String(), func(t *testing.T) {
			t.Parallel()
			stored, storedTag, err := compressSegment(payload, tag)
			if err != nil {
				t.Fatalf("compressSegment: %v", err)
			}
			if storedTag != CompressionNone {
				t.Errorf("stored tag = %s, want %s", storedTag, CompressionNone)
			}
			if !bytes.Equal(stored, payload) {
				t.Error("fallback did not store the original bytes")
			}
		})
	}
}

func TestParseCompressionTag(t *testing.T) {
	t.Parallel()
	for _, tag := range []CompressionTag{CompressionNone, CompressionLZ4, CompressionZstd} {
		parsed, err := ParseCompressionTag(tag.String())
		if err != nil {
			t.Fatalf("ParseCompressionTag(%q): %v", tag.String(), err)
		}
		if parsed != tag {
			t.Errorf("ParseCompressionTag(%q) = %d, want %d", tag.String(), parsed, tag)
		}
	}

	if _, err := ParseCompressionTag("brotli"); err == nil {
		t.Error("expected error for unknown tag name")
	}
}

func TestDecompressSegmentLengthMismatch(t *testing.T) {
	t.Parallel()
	if _, err := decompressSegment([]byte("abc"), CompressionNone, 5); err == nil {
		t.Error("expected error for length mismatch on uncompressed segment")
	}
}
