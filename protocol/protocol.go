// Copyright 2026 The Oriel Authors
// SPDX-License-Identifier: Apache-2.0

// Package protocol defines the wire format for gateway viewer sessions:
// framed binary messages carrying display updates from the gateway to
// viewers, and acknowledgments and resize requests back.
//
// Every message is a 5-byte header (1 byte type + 4 byte big-endian
// payload length) followed by a CBOR-encoded payload. Payloads are
// encoded with lib/codec, so identical payloads produce identical
// bytes. Readers must skip messages with types they do not recognize:
// new message types may be added without a protocol version bump, and
// the payload length in the header is always sufficient to skip the
// body.
package protocol

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/oriel-project/oriel/lib/codec"
)

// Message type constants for the session wire format. Types below 0x10
// flow gateway to viewer; types 0x10 and above flow viewer to gateway.
const (
	// MessageTypeServerInfo announces the protocol version, display
	// dimensions, and pixel format. Sent exactly once, as the first
	// message after a viewer attaches. Payload is a ServerInfo.
	MessageTypeServerInfo byte = 0x01

	// MessageTypeResize announces new dimensions for a layer. Sent
	// whenever the remote desktop is resized; the viewer must discard
	// its framebuffer for that layer and await a fresh snapshot.
	// Payload is a Resize.
	MessageTypeResize byte = 0x02

	// MessageTypeRegion carries pixel data for a rectangle of a layer.
	// Payload is a Region with tight-packed 32-bit BGRX rows.
	MessageTypeRegion byte = 0x03

	// MessageTypeLayerParameter carries a named out-of-band property of
	// a layer, such as the physical monitor layout. Payload is a
	// LayerParameter.
	MessageTypeLayerParameter byte = 0x04

	// MessageTypeCursor announces the pointer glyph the viewer should
	// render. Payload is a Cursor.
	MessageTypeCursor byte = 0x05

	// MessageTypeFrameDone marks the end of a consistent batch of
	// updates. Everything since the previous FrameDone belongs to one
	// logical frame; viewers present on this boundary and may respond
	// with a FrameAck. Payload is a FrameDone.
	MessageTypeFrameDone byte = 0x06

	// MessageTypeFrameAck acknowledges a presented frame by sequence
	// number. Viewer to gateway only. Payload is a FrameAck.
	MessageTypeFrameAck byte = 0x10

	// MessageTypeClientResize asks the gateway to resize the remote
	// desktop. Viewer to gateway only; the gateway honors it at the
	// engine's discretion. Payload is a ClientResize.
	MessageTypeClientResize byte = 0x11
)

// messageHeaderLength is the fixed size of a message header: 1 byte type
// + 4 bytes payload length.
const messageHeaderLength = 5

// maxPayloadLength is the maximum allowed payload size. A full-display
// region at 3840x2160 in BGRX is about 32 MB; 64 MB leaves headroom for
// CBOR overhead without letting a corrupt header demand an absurd
// allocation.
const maxPayloadLength = 64 * 1024 * 1024

// Message is a single framed protocol message.
type Message struct {
	Type    byte
	Payload []byte
}

// WriteMessage writes a framed message to w. The frame format is:
// [1 byte type] [4 bytes payload length, big-endian uint32] [payload].
// Messages whose payload exceeds maxPayloadLength cannot be framed and
// are rejected before anything is written.
func WriteMessage(w io.Writer, message Message) error {
	if len(message.Payload) > maxPayloadLength {
		return fmt.Errorf("payload length %d exceeds maximum %d", len(message.Payload), maxPayloadLength)
	}
	var header [messageHeaderLength]byte
	header[0] = message.Type
	binary.BigEndian.PutUint32(header[1:5], uint32(len(message.Payload)))
	if _, err := w.Write(header[:]); err != nil {
		return fmt.Errorf("write message header: %w", err)
	}
	if len(message.Payload) > 0 {
		if _, err := w.Write(message.Payload); err != nil {
			return fmt.Errorf("write message payload: %w", err)
		}
	}
	return nil
}

// ReadMessage reads a framed message from r. Returns the message type
// and payload. Returns an error if the stream is malformed or the
// payload exceeds maxPayloadLength. Unknown message types are not an
// error; callers decide whether to decode or skip.
func ReadMessage(r io.Reader) (Message, error) {
	var header [messageHeaderLength]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return Message{}, fmt.Errorf("read message header: %w", err)
	}
	messageType := header[0]
	payloadLength := binary.BigEndian.Uint32(header[1:5])
	if payloadLength > maxPayloadLength {
		return Message{}, fmt.Errorf("payload length %d exceeds maximum %d", payloadLength, maxPayloadLength)
	}
	payload := make([]byte, payloadLength)
	if payloadLength > 0 {
		if _, err := io.ReadFull(r, payload); err != nil {
			return Message{}, fmt.Errorf("read message payload: %w", err)
		}
	}
	return Message{Type: messageType, Payload: payload}, nil
}

// DecodePayload decodes a message payload into the struct matching its
// type. Callers switch on Message.Type to pick the destination.
func DecodePayload(message Message, into any) error {
	if err := codec.Unmarshal(message.Payload, into); err != nil {
		return fmt.Errorf("decode payload for message type 0x%02x: %w", message.Type, err)
	}
	return nil
}

// encodePayload encodes a payload struct and wraps it in a Message of
// the given type.
func encodePayload(messageType byte, payload any) (Message, error) {
	encoded, err := codec.Marshal(payload)
	if err != nil {
		return Message{}, fmt.Errorf("encode payload for message type 0x%02x: %w", messageType, err)
	}
	return Message{Type: messageType, Payload: encoded}, nil
}

// NewServerInfoMessage creates the session-opening server info message.
func NewServerInfoMessage(info ServerInfo) (Message, error) {
	return encodePayload(MessageTypeServerInfo, info)
}

// NewResizeMessage creates a layer resize announcement.
func NewResizeMessage(resize Resize) (Message, error) {
	return encodePayload(MessageTypeResize, resize)
}

// NewRegionMessage creates a pixel region update.
func NewRegionMessage(region Region) (Message, error) {
	return encodePayload(MessageTypeRegion, region)
}

// NewLayerParameterMessage creates a layer parameter update.
func NewLayerParameterMessage(parameter LayerParameter) (Message, error) {
	return encodePayload(MessageTypeLayerParameter, parameter)
}

// NewCursorMessage creates a cursor glyph announcement.
func NewCursorMessage(cursor Cursor) (Message, error) {
	return encodePayload(MessageTypeCursor, cursor)
}

// NewFrameDoneMessage creates a frame boundary marker.
func NewFrameDoneMessage(done FrameDone) (Message, error) {
	return encodePayload(MessageTypeFrameDone, done)
}

// NewFrameAckMessage creates a frame acknowledgment.
func NewFrameAckMessage(ack FrameAck) (Message, error) {
	return encodePayload(MessageTypeFrameAck, ack)
}

// NewClientResizeMessage creates a viewer resize request.
func NewClientResizeMessage(resize ClientResize) (Message, error) {
	return encodePayload(MessageTypeClientResize, resize)
}
