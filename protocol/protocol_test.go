// Copyright 2026 The Oriel Authors
// SPDX-License-Identifier: Apache-2.0

package protocol

import (
	"bytes"
	"reflect"
	"testing"
)

func mustMessage(t *testing.T) func(Message, error) Message {
	return func(message Message, err error) Message {
		t.Helper()
		if err != nil {
			t.Fatalf("build message: %v", err)
		}
		return message
	}
}

func TestWriteReadMessageRoundTrip(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		message Message
	}{
		{
			name: "server info",
			message: mustMessage(t)(NewServerInfoMessage(ServerInfo{
				ProtocolVersion: Version,
				Width:           1280,
				Height:          800,
				PixelFormat:     PixelFormatBGRX32,
			})),
		},
		{
			name:    "resize",
			message: mustMessage(t)(NewResizeMessage(Resize{Layer: 0, Width: 1920, Height: 1080})),
		},
		{
			name: "region",
			message: mustMessage(t)(NewRegionMessage(Region{
				Layer:  0,
				Left:   16,
				Top:    32,
				Width:  2,
				Height: 1,
				Pixels: []byte{0x10, 0x20, 0x30, 0x00, 0x40, 0x50, 0x60, 0x00},
			})),
		},
		{
			name: "layer parameter",
			message: mustMessage(t)(NewLayerParameterMessage(LayerParameter{
				Layer: 0,
				Name:  "monitor-layout",
				Value: `{"0":{"left":0,"top":0,"width":1280,"height":800}}`,
			})),
		},
		{
			name:    "cursor",
			message: mustMessage(t)(NewCursorMessage(Cursor{Glyph: "pointer"})),
		},
		{
			name:    "frame done",
			message: mustMessage(t)(NewFrameDoneMessage(FrameDone{Sequence: 7})),
		},
		{
			name:    "frame ack",
			message: mustMessage(t)(NewFrameAckMessage(FrameAck{Sequence: 7})),
		},
		{
			name:    "client resize",
			message: mustMessage(t)(NewClientResizeMessage(ClientResize{Width: 1024, Height: 768})),
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			var buffer bytes.Buffer
			if err := WriteMessage(&buffer, test.message); err != nil {
				t.Fatalf("WriteMessage: %v", err)
			}

			got, err := ReadMessage(&buffer)
			if err != nil {
				t.Fatalf("ReadMessage: %v", err)
			}

			if got.Type != test.message.Type {
				t.Errorf("type: got 0x%02x, want 0x%02x", got.Type, test.message.Type)
			}
			if !bytes.Equal(got.Payload, test.message.Payload) {
				t.Errorf("payload: got %x, want %x", got.Payload, test.message.Payload)
			}
		})
	}
}

func TestWriteReadMultipleMessages(t *testing.T) {
	t.Parallel()
	var buffer bytes.Buffer

	messages := []Message{
		mustMessage(t)(NewServerInfoMessage(ServerInfo{ProtocolVersion: Version, Width: 640, Height: 480, PixelFormat: PixelFormatBGRX32})),
		mustMessage(t)(NewCursorMessage(Cursor{Glyph: "pointer"})),
		mustMessage(t)(NewRegionMessage(Region{Width: 1, Height: 1, Pixels: []byte{1, 2, 3, 0}})),
		mustMessage(t)(NewFrameDoneMessage(FrameDone{Sequence: 1})),
	}

	for _, message := range messages {
		if err := WriteMessage(&buffer, message); err != nil {
			t.Fatalf("WriteMessage: %v", err)
		}
	}

	for index, want := range messages {
		got, err := ReadMessage(&buffer)
		if err != nil {
			t.Fatalf("ReadMessage[%d]: %v", index, err)
		}
		if got.Type != want.Type {
			t.Errorf("message[%d] type: got 0x%02x, want 0x%02x", index, got.Type, want.Type)
		}
		if !bytes.Equal(got.Payload, want.Payload) {
			t.Errorf("message[%d] payload: got %x, want %x", index, got.Payload, want.Payload)
		}
	}
}

func TestDecodePayloadRoundTrip(t *testing.T) {
	t.Parallel()
	want := Region{
		Layer:  2,
		Left:   100,
		Top:    50,
		Width:  2,
		Height: 2,
		Pixels: []byte{
			0x01, 0x02, 0x03, 0x00, 0x04, 0x05, 0x06, 0x00,
			0x07, 0x08, 0x09, 0x00, 0x0a, 0x0b, 0x0c, 0x00,
		},
	}
	message, err := NewRegionMessage(want)
	if err != nil {
		t.Fatalf("NewRegionMessage: %v", err)
	}

	var got Region
	if err := DecodePayload(message, &got); err != nil {
		t.Fatalf("DecodePayload: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("region: got %+v, want %+v", got, want)
	}
}

func TestEncodingIsDeterministic(t *testing.T) {
	t.Parallel()
	info := ServerInfo{ProtocolVersion: Version, Width: 1280, Height: 800, PixelFormat: PixelFormatBGRX32}
	first, err := NewServerInfoMessage(info)
	if err != nil {
		t.Fatalf("NewServerInfoMessage: %v", err)
	}
	second, err := NewServerInfoMessage(info)
	if err != nil {
		t.Fatalf("NewServerInfoMessage: %v", err)
	}
	if !bytes.Equal(first.Payload, second.Payload) {
		t.Errorf("payloads differ: %x vs %x", first.Payload, second.Payload)
	}
}

func TestReadMessageSkipsUnknownType(t *testing.T) {
	t.Parallel()
	var buffer bytes.Buffer

	unknown := Message{Type: 0x7f, Payload: []byte("future message body")}
	if err := WriteMessage(&buffer, unknown); err != nil {
		t.Fatalf("WriteMessage unknown: %v", err)
	}
	known := mustMessage(t)(NewFrameDoneMessage(FrameDone{Sequence: 3}))
	if err := WriteMessage(&buffer, known); err != nil {
		t.Fatalf("WriteMessage known: %v", err)
	}

	// A reader that does not recognize 0x7f still consumes the full
	// frame and lands on the next message boundary.
	got, err := ReadMessage(&buffer)
	if err != nil {
		t.Fatalf("ReadMessage unknown: %v", err)
	}
	if got.Type != 0x7f {
		t.Errorf("type: got 0x%02x, want 0x7f", got.Type)
	}

	got, err = ReadMessage(&buffer)
	if err != nil {
		t.Fatalf("ReadMessage known: %v", err)
	}
	if got.Type != MessageTypeFrameDone {
		t.Errorf("type: got 0x%02x, want 0x%02x", got.Type, MessageTypeFrameDone)
	}
}

func TestReadMessagePayloadTooLarge(t *testing.T) {
	t.Parallel()
	var buffer bytes.Buffer
	// Header claiming a payload one byte over maxPayloadLength (64 MB).
	buffer.Write([]byte{MessageTypeRegion, 0x04, 0x00, 0x00, 0x01})

	_, err := ReadMessage(&buffer)
	if err == nil {
		t.Fatal("expected error for oversized payload")
	}
}

func TestReadMessageTruncatedPayload(t *testing.T) {
	t.Parallel()
	var buffer bytes.Buffer
	buffer.Write([]byte{MessageTypeRegion, 0x00, 0x00, 0x00, 0x0a})
	buffer.Write([]byte{1, 2, 3, 4})

	_, err := ReadMessage(&buffer)
	if err == nil {
		t.Fatal("expected error for truncated payload")
	}
}

func TestWriteMessageRejectsOversizedPayload(t *testing.T) {
	t.Parallel()
	var buffer bytes.Buffer
	message := Message{Type: MessageTypeRegion, Payload: make([]byte, maxPayloadLength+1)}

	if err := WriteMessage(&buffer, message); err == nil {
		t.Fatal("expected error for oversized payload")
	}
	if buffer.Len() != 0 {
		t.Errorf("buffer holds %d bytes after rejected write, want 0", buffer.Len())
	}
}

func TestRegionValidate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		region  Region
		wantErr bool
	}{
		{
			name:   "well formed",
			region: Region{Width: 2, Height: 2, Pixels: make([]byte, 16)},
		},
		{
			name:    "pixel length mismatch",
			region:  Region{Width: 2, Height: 2, Pixels: make([]byte, 12)},
			wantErr: true,
		},
		{
			name:    "zero width",
			region:  Region{Width: 0, Height: 2, Pixels: nil},
			wantErr: true,
		},
		{
			name:    "negative height",
			region:  Region{Width: 2, Height: -1, Pixels: nil},
			wantErr: true,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			err := test.region.Validate()
			if (err != nil) != test.wantErr {
				t.Errorf("Validate: got error %v, want error %t", err, test.wantErr)
			}
		})
	}
}
