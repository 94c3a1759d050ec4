// Copyright 2026 The Oriel Authors
// SPDX-License-Identifier: Apache-2.0

package record

import (
	"fmt"
	"time"

	"github.com/zeebo/blake3"

	"github.com/oriel-project/oriel/protocol"
)

// recordingVersion is the current file format version.
const recordingVersion = 1

// recordingMagic is the 8-byte file signature: the format name, the
// version byte, and three reserved zero bytes.
var recordingMagic = [8]byte{'O', 'R', 'R', 'C', recordingVersion, 0, 0, 0}

const (
	// segmentHeaderSize is the fixed segment header: 1-byte compression
	// tag + 4-byte compressed length + 4-byte uncompressed length +
	// 32-byte payload hash.
	segmentHeaderSize = 41

	// eventHeaderSize is the fixed event header: 8-byte elapsed
	// milliseconds + 1-byte event type + 4-byte payload length.
	eventHeaderSize = 13

	// maxSegmentLength bounds both segment lengths read from a header,
	// so a corrupt file cannot demand an absurd allocation. Writers stay
	// far below it: segments flush at the configured target size and
	// only ever exceed it by one event.
	maxSegmentLength = 128 * 1024 * 1024

	// maxHeaderLength bounds the CBOR RecordingInfo header.
	maxHeaderLength = 1 << 20
)

// segmentDomainKey is the BLAKE3 key for segment payload hashes. Domain
// separation keeps recording hashes distinct from any other BLAKE3 use;
// the key bytes are the ASCII domain name zero-padded to 32 bytes so
// they are recognizable in hex dumps.
var segmentDomainKey = [32]byte{
	'o', 'r', 'i', 'e', 'l', '.', 'r', 'e', 'c', 'o', 'r', 'd', 'i', 'n', 'g', '.',
	's', 'e', 'g', 'm', 'e', 'n', 't', 0, 0, 0, 0, 0, 0, 0, 0, 0,
}

// hashSegment computes the keyed BLAKE3 hash of an uncompressed segment
// payload.
func hashSegment(payload []byte) [32]byte {
	hasher, err := blake3.NewKeyed(segmentDomainKey[:])
	if err != nil {
		// NewKeyed fails only on wrong key length, which the fixed-size
		// array rules out.
		panic("record: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	hasher.Write(payload)
	var hash [32]byte
	copy(hash[:], hasher.Sum(nil))
	return hash
}

// RecordingInfo is the CBOR-encoded file header. It carries everything
// a reader needs to interpret the event stream without consuming it.
type RecordingInfo struct {
	// ProtocolVersion is the session protocol version the recorded
	// messages were framed with.
	ProtocolVersion uint32 `cbor:"protocol_version"`

	// Width and Height are the default layer dimensions at the start of
	// the session. Resize messages in the stream override them.
	Width  int `cbor:"width"`
	Height int `cbor:"height"`

	// PixelFormat is the pixel format of all region payloads.
	PixelFormat protocol.PixelFormat `cbor:"pixel_format"`

	// StartedAt is the wall-clock start of the recording in Unix
	// milliseconds. Event timestamps are elapsed time from this point.
	StartedAt int64 `cbor:"started_at"`
}

// EventType identifies what an event payload contains.
type EventType byte

const (
	// EventMessage carries one framed protocol message exactly as the
	// gateway sent it to viewers (5-byte frame header included), so
	// playback re-reads it with protocol.ReadMessage.
	EventMessage EventType = 1

	// EventSessionEnd marks a graceful end of the session. Its payload
	// is empty. A recording without one was cut short.
	EventSessionEnd EventType = 2
)

// String returns the name of the event type.
func (t EventType) String() string {
	switch t {
	case EventMessage:
		return "message"
	case EventSessionEnd:
		return "session-end"
	default:
		return fmt.Sprintf("unknown(%d)", byte(t))
	}
}

// Event is one timestamped entry in a recording.
type Event struct {
	// Elapsed is the time since RecordingInfo.StartedAt, at millisecond
	// resolution.
	Elapsed time.Duration

	// Type identifies the payload.
	Type EventType

	// Payload is the event body. For EventMessage it is a complete
	// protocol frame.
	Payload []byte
}
