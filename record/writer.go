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
	"github.com/oriel-project/oriel/protocol"
)

// defaultSegmentBytes is the segment flush threshold when Options leaves
// SegmentBytes zero.
const defaultSegmentBytes = 256 * 1024

// Options configures a Writer.
type Options struct {
	// Compression is the algorithm for segment payloads. The writer
	// falls back to CompressionNone per segment when compression does
	// not shrink it.
	Compression CompressionTag

	// SegmentBytes is the uncompressed size at which a segment is
	// flushed. Zero means defaultSegmentBytes. Events are never split:
	// a segment may exceed the target by the size of its last event.
	SegmentBytes int
}

// Writer appends a recording to an io.Writer. Events accumulate in an
// in-memory segment that is compressed, hashed, and written out when it
// reaches the configured size; Close flushes the remainder. The Writer
// does not close the underlying writer.
//
// Writer is not safe for concurrent use. The gateway records from its
// single flush goroutine.
type Writer struct {
	destination io.Writer
	compression CompressionTag
	segmentSize int

	segment bytes.Buffer
	closed  bool
}

// NewWriter writes the recording header to destination and returns a
// Writer for its events.
func NewWriter(destination io.Writer, info RecordingInfo, options Options) (*Writer, error) {
	header, err := codec.Marshal(info)
	if err != nil {
		return nil, fmt.Errorf("encoding recording header: %w", err)
	}

	if _, err := destination.Write(recordingMagic[:]); err != nil {
		return nil, fmt.Errorf("writing recording magic: %w", err)
	}
	var headerLength [4]byte
	binary.LittleEndian.PutUint32(headerLength[:], uint32(len(header)))
	if _, err := destination.Write(headerLength[:]); err != nil {
		return nil, fmt.Errorf("writing header length: %w", err)
	}
	if _, err := destination.Write(header); err != nil {
		return nil, fmt.Errorf("writing recording header: %w", err)
	}

	segmentSize := options.SegmentBytes
	if segmentSize <= 0 {
		segmentSize = defaultSegmentBytes
	}

	return &Writer{
		destination: destination,
		compression: options.Compression,
		segmentSize: segmentSize,
	}, nil
}

// RecordMessage records one protocol message as it was sent to viewers.
// elapsed is the time since the recording started.
func (w *Writer) RecordMessage(elapsed time.Duration, message protocol.Message) error {
	var frame bytes.Buffer
	if err := protocol.WriteMessage(&frame, message); err != nil {
		return fmt.Errorf("framing recorded message: %w", err)
	}
	return w.RecordEvent(elapsed, EventMessage, frame.Bytes())
}

// RecordEvent records one raw event.
func (w *Writer) RecordEvent(elapsed time.Duration, eventType EventType, payload []byte) error {
	if w.closed {
		return errors.New("recording writer is closed")
	}
	if elapsed < 0 {
		return fmt.Errorf("event elapsed time %s is negative", elapsed)
	}

	var header [eventHeaderSize]byte
	binary.LittleEndian.PutUint64(header[0:8], uint64(elapsed.Milliseconds()))
	header[8] = byte(eventType)
	binary.LittleEndian.PutUint32(header[9:13], uint32(len(payload)))

	// bytes.Buffer writes cannot fail.
	w.segment.Write(header[:])
	w.segment.Write(payload)

	if w.segment.Len() >= w.segmentSize {
		return w.flushSegment()
	}
	return nil
}

// Close flushes any buffered events as a final segment. It does not
// close the underlying writer.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	if w.segment.Len() == 0 {
		return nil
	}
	return w.flushSegment()
}

// flushSegment compresses, hashes, and writes the buffered events.
func (w *Writer) flushSegment() error {
	payload := w.segment.Bytes()

	stored, tag, err := compressSegment(payload, w.compression)
	if err != nil {
		return fmt.Errorf("compressing segment: %w", err)
	}
	hash := hashSegment(payload)

	var header [segmentHeaderSize]byte
	header[0] = byte(tag)
	binary.LittleEndian.PutUint32(header[1:5], uint32(len(stored)))
	binary.LittleEndian.PutUint32(header[5:9], uint32(len(payload)))
	copy(header[9:41], hash[:])

	if _, err := w.destination.Write(header[:]); err != nil {
		return fmt.Errorf("writing segment header: %w", err)
	}
	if _, err := w.destination.Write(stored); err != nil {
		return fmt.Errorf("writing segment payload: %w", err)
	}

	w.segment.Reset()
	return nil
}
