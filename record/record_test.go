// Copyright 2026 The Oriel Authors
// SPDX-License-Identifier: Apache-2.0

package record

import (
	"bytes"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/oriel-project/oriel/protocol"
)

func testInfo() RecordingInfo {
	return RecordingInfo{
		ProtocolVersion: protocol.Version,
		Width:           1280,
		Height:          800,
		PixelFormat:     protocol.PixelFormatBGRX32,
		StartedAt:       1756100000000,
	}
}

func TestRecordingRoundTrip(t *testing.T) {
	t.Parallel()
	for _, compression := range []CompressionTag{CompressionNone, CompressionLZ4, CompressionZstd} {
		t.Run(compression.String(), func(t *testing.T) {
			t.Parallel()
			var file bytes.Buffer

			// A tiny segment target forces multiple segments.
			writer, err := NewWriter(&file, testInfo(), Options{
				Compression:  compression,
				SegmentBytes: 64,
			})
			if err != nil {
				t.Fatalf("NewWriter: %v", err)
			}

			region := mustMessage(t)(protocol.NewRegionMessage(protocol.Region{
				Width:  4,
				Height: 1,
				Pixels: bytes.Repeat([]byte{0x20, 0x40, 0x60, 0x00}, 4),
			}))
			done := mustMessage(t)(protocol.NewFrameDoneMessage(protocol.FrameDone{Sequence: 1}))
			cursor := mustMessage(t)(protocol.NewCursorMessage(protocol.Cursor{Glyph: "pointer"}))

			if err := writer.RecordMessage(0, region); err != nil {
				t.Fatalf("RecordMessage region: %v", err)
			}
			if err := writer.RecordMessage(16*time.Millisecond, done); err != nil {
				t.Fatalf("RecordMessage done: %v", err)
			}
			if err := writer.RecordMessage(40*time.Millisecond, cursor); err != nil {
				t.Fatalf("RecordMessage cursor: %v", err)
			}
			if err := writer.RecordEvent(60*time.Millisecond, EventSessionEnd, nil); err != nil {
				t.Fatalf("RecordEvent end: %v", err)
			}
			if err := writer.Close(); err != nil {
				t.Fatalf("Close: %v", err)
			}

			reader, err := NewReader(bytes.NewReader(file.Bytes()))
			if err != nil {
				t.Fatalf("NewReader: %v", err)
			}
			if reader.Info != testInfo() {
				t.Errorf("info: got %+v, want %+v", reader.Info, testInfo())
			}

			wantElapsed := []time.Duration{0, 16 * time.Millisecond, 40 * time.Millisecond, 60 * time.Millisecond}
			wantTypes := []EventType{EventMessage, EventMessage, EventMessage, EventSessionEnd}

			var events []Event
			for {
				event, err := reader.Next()
				if err == io.EOF {
					break
				}
				if err != nil {
					t.Fatalf("Next: %v", err)
				}
				events = append(events, event)
			}

			if len(events) != len(wantTypes) {
				t.Fatalf("got %d events, want %d", len(events), len(wantTypes))
			}
			for index, event := range events {
				if event.Elapsed != wantElapsed[index] {
					t.Errorf("event %d elapsed = %s, want %s", index, event.Elapsed, wantElapsed[index])
				}
				if event.Type != wantTypes[index] {
					t.Errorf("event %d type = %s, want %s", index, event.Type, wantTypes[index])
				}
			}

			// The first event replays as the original region message.
			message, err := protocol.ReadMessage(bytes.NewReader(events[0].Payload))
			if err != nil {
				t.Fatalf("ReadMessage from event payload: %v", err)
			}
			if message.Type != protocol.MessageTypeRegion {
				t.Errorf("replayed type = 0x%02x, want 0x%02x", message.Type, protocol.MessageTypeRegion)
			}
			var replayed protocol.Region
			if err := protocol.DecodePayload(message, &replayed); err != nil {
				t.Fatalf("DecodePayload: %v", err)
			}
			if replayed.Width != 4 || replayed.Height != 1 {
				t.Errorf("replayed region %dx%d, want 4x1", replayed.Width, replayed.Height)
			}
		})
	}
}

func mustMessage(t *testing.T) func(protocol.Message, error) protocol.Message {
	return func(message protocol.Message, err error) protocol.Message {
		t.Helper()
		if err != nil {
			t.Fatalf("build message: %v", err)
		}
		return message
	}
}

func TestElapsedTruncatesToMilliseconds(t *testing.T) {
	t.Parallel()
	var file bytes.Buffer
	writer, err := NewWriter(&file, testInfo(), Options{})
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	if err := writer.RecordEvent(5500*time.Microsecond, EventSessionEnd, nil); err != nil {
		t.Fatalf("RecordEvent: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reader, err := NewReader(bytes.NewReader(file.Bytes()))
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	event, err := reader.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if event.Elapsed != 5*time.Millisecond {
		t.Errorf("elapsed = %s, want 5ms", event.Elapsed)
	}
}

func TestEmptyRecording(t *testing.T) {
	t.Parallel()
	var file bytes.Buffer
	writer, err := NewWriter(&file, testInfo(), Options{})
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reader, err := NewReader(bytes.NewReader(file.Bytes()))
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	if _, err := reader.Next(); err != io.EOF {
		t.Errorf("Next on empty recording = %v, want io.EOF", err)
	}
}

func TestWriterRejectsEventsAfterClose(t *testing.T) {
	t.Parallel()
	var file bytes.Buffer
	writer, err := NewWriter(&file, testInfo(), Options{})
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
	if err := writer.RecordEvent(0, EventSessionEnd, nil); err == nil {
		t.Error("expected error recording after Close")
	}
}

func TestReaderDetectsCorruption(t *testing.T) {
	t.Parallel()
	var file bytes.Buffer
	// CompressionNone makes the flipped byte land in the hashed payload.
	writer, err := NewWriter(&file, testInfo(), Options{Compression: CompressionNone})
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	if err := writer.RecordEvent(time.Second, EventSessionEnd, []byte("payload bytes")); err != nil {
		t.Fatalf("RecordEvent: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	raw := file.Bytes()
	raw[len(raw)-1] ^= 0xff

	reader, err := NewReader(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	_, err = reader.Next()
	if !errors.Is(err, ErrCorrupt) {
		t.Errorf("Next on corrupted segment = %v, want ErrCorrupt", err)
	}
}

func TestReaderRejectsForeignFile(t *testing.T) {
	t.Parallel()
	_, err := NewReader(bytes.NewReader([]byte("definitely not a recording")))
	if err == nil {
		t.Fatal("expected error for invalid magic")
	}
}

func TestReaderRejectsFutureVersion(t *testing.T) {
	t.Parallel()
	future := make([]byte, 8)
	copy(future, recordingMagic[:])
	future[4] = recordingVersion + 1

	_, err := NewReader(bytes.NewReader(future))
	if err == nil {
		t.Fatal("expected error for future version")
	}
}

func TestReaderRejectsTruncatedSegment(t *testing.T) {
	t.Parallel()
	var file bytes.Buffer
	writer, err := NewWriter(&file, testInfo(), Options{Compression: CompressionNone})
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	if err := writer.RecordEvent(0, EventSessionEnd, []byte("payload")); err != nil {
		t.Fatalf("RecordEvent: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	truncated := file.Bytes()[:file.Len()-3]
	reader, err := NewReader(bytes.NewReader(truncated))
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	if _, err := reader.Next(); err == nil || err == io.EOF {
		t.Errorf("Next on truncated recording = %v, want read error", err)
	}
}
