// Copyright 2026 The Oriel Authors
// SPDX-License-Identifier: Apache-2.0

package record

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/oriel-project/oriel/lib/codec"
)

// ErrCorrupt reports that a segment failed hash verification or carried
// an event that does not fit inside it. Wrapped errors carry the
// detail; match with errors.Is.
var ErrCorrupt = errors.New("recording is corrupt")

// Reader iterates the events of a recording, verifying each segment's
// hash as it is loaded. Create one with NewReader and call Next until
// it returns io.EOF.
type Reader struct {
	// Info is the recording header.
	Info RecordingInfo

	source  io.Reader
	segment []byte
	offset  int
}

// NewReader reads and validates the recording header from source.
func NewReader(source io.Reader) (*Reader, error) {
	var magic [8]byte
	if _, err := io.ReadFull(source, magic[:]); err != nil {
		return nil, fmt.Errorf("reading recording magic: %w", err)
	}
	if magic != recordingMagic {
		if bytes.Equal(magic[:4], recordingMagic[:4]) {
			return nil, fmt.Errorf("recording version %d is not supported (this code supports version %d)",
				magic[4], recordingVersion)
		}
		return nil, errors.New("not an Oriel recording (invalid magic bytes)")
	}

	var headerLength [4]byte
	if _, err := io.ReadFull(source, headerLength[:]); err != nil {
		return nil, fmt.Errorf("reading header length: %w", err)
	}
	length := binary.LittleEndian.Uint32(headerLength[:])
	if length > maxHeaderLength {
		return nil, fmt.Errorf("header length %d exceeds maximum %d", length, maxHeaderLength)
	}

	header := make([]byte, length)
	if _, err := io.ReadFull(source, header); err != nil {
		return nil, fmt.Errorf("reading recording header: %w", err)
	}

	var info RecordingInfo
	if err := codec.Unmarshal(header, &info); err != nil {
		return nil, fmt.Errorf("decoding recording header: %w", err)
	}

	return &Reader{Info: info, source: source}, nil
}

// Next returns the next event. It returns io.EOF after the last event
// of the last segment, and an error wrapping ErrCorrupt if a segment
// fails verification.
func (r *Reader) Next() (Event, error) {
	for r.offset >= len(r.segment) {
		if err := r.loadSegment(); err != nil {
			return Event{}, err
		}
	}

	remaining := len(r.segment) - r.offset
	if remaining < eventHeaderSize {
		return Event{}, fmt.Errorf("%w: %d trailing bytes in segment, want at least an event header", ErrCorrupt, remaining)
	}

	header := r.segment[r.offset : r.offset+eventHeaderSize]
	elapsedMillis := binary.LittleEndian.Uint64(header[0:8])
	eventType := EventType(header[8])
	payloadLength := int(binary.LittleEndian.Uint32(header[9:13]))

	if remaining-eventHeaderSize < payloadLength {
		return Event{}, fmt.Errorf("%w: event payload of %d bytes overruns its segment", ErrCorrupt, payloadLength)
	}

	start := r.offset + eventHeaderSize
	r.offset = start + payloadLength

	return Event{
		Elapsed: time.Duration(elapsedMillis) * time.Millisecond,
		Type:    eventType,
		Payload: r.segment[start : start+payloadLength],
	}, nil
}

// loadSegment reads, decompresses, and verifies the next segment.
// Returns io.EOF at a clean end of the recording.
func (r *Reader) loadSegment() error {
	var header [segmentHeaderSize]byte
	if _, err := io.ReadFull(r.source, header[:]); err != nil {
		if err == io.EOF {
			return io.EOF
		}
		return fmt.Errorf("reading segment header: %w", err)
	}

	tag := CompressionTag(header[0])
	compressedLength := binary.LittleEndian.Uint32(header[1:5])
	uncompressedLength := binary.LittleEndian.Uint32(header[5:9])
	var wantHash [32]byte
	copy(wantHash[:], header[9:41])

	if compressedLength > maxSegmentLength || uncompressedLength > maxSegmentLength {
		return fmt.Errorf("%w: segment lengths %d/%d exceed maximum %d",
			ErrCorrupt, compressedLength, uncompressedLength, maxSegmentLength)
	}

	stored := make([]byte, compressedLength)
	if _, err := io.ReadFull(r.source, stored); err != nil {
		return fmt.Errorf("reading segment payload: %w", err)
	}

	payload, err := decompressSegment(stored, tag, int(uncompressedLength))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	if hashSegment(payload) != wantHash {
		return fmt.Errorf("%w: segment hash mismatch", ErrCorrupt)
	}

	r.segment = payload
	r.offset = 0
	return nil
}
