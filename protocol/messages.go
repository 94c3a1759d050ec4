// Copyright 2026 The Oriel Authors
// SPDX-License-Identifier: Apache-2.0

package protocol

import "fmt"

// Version is the protocol version carried in ServerInfo. Viewers refuse
// sessions with a version they do not speak.
const Version = 1

// PixelFormat identifies the in-memory layout of region pixel data.
type PixelFormat uint8

const (
	// PixelFormatUnknown is the zero value; it never appears on the wire.
	PixelFormatUnknown PixelFormat = 0

	// PixelFormatBGRX32 is 32 bits per pixel, little-endian byte order
	// blue, green, red, padding. The padding byte carries no data and
	// may hold anything.
	PixelFormatBGRX32 PixelFormat = 1
)

// String returns the conventional name of the pixel format.
func (f PixelFormat) String() string {
	switch f {
	case PixelFormatBGRX32:
		return "bgrx32"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(f))
	}
}

// ServerInfo is the first message a viewer receives after attaching. It
// pins the protocol version and describes the default layer so the
// viewer can allocate its framebuffer before any pixels arrive.
type ServerInfo struct {
	// ProtocolVersion is the wire protocol version, currently Version.
	ProtocolVersion uint32 `cbor:"protocol_version"`

	// Width and Height are the dimensions of the default layer in pixels.
	Width  int `cbor:"width"`
	Height int `cbor:"height"`

	// PixelFormat is the layout of all region pixel data in the session.
	PixelFormat PixelFormat `cbor:"pixel_format"`
}

// Resize announces new dimensions for a layer. Pixel data delivered
// before the resize is void; the gateway follows up with a full
// snapshot of the layer at its new size.
type Resize struct {
	// Layer is the index of the resized layer. 0 is the default layer.
	Layer int `cbor:"layer"`

	// Width and Height are the new dimensions in pixels.
	Width  int `cbor:"width"`
	Height int `cbor:"height"`
}

// Region carries pixel data for one rectangle of a layer.
type Region struct {
	// Layer is the index of the layer the rectangle belongs to.
	Layer int `cbor:"layer"`

	// Left and Top position the rectangle within the layer.
	Left int `cbor:"left"`
	Top  int `cbor:"top"`

	// Width and Height are the rectangle dimensions in pixels.
	Width  int `cbor:"width"`
	Height int `cbor:"height"`

	// Pixels holds Width*Height pixels in the session pixel format,
	// rows top to bottom with no padding between them.
	Pixels []byte `cbor:"pixels"`
}

// Validate checks that the rectangle is well formed and the pixel data
// length matches its dimensions for 32-bit formats.
func (r Region) Validate() error {
	if r.Width <= 0 || r.Height <= 0 {
		return fmt.Errorf("region dimensions %dx%d must be positive", r.Width, r.Height)
	}
	if expected := r.Width * r.Height * 4; len(r.Pixels) != expected {
		return fmt.Errorf("region pixel data is %d bytes, want %d for %dx%d", len(r.Pixels), expected, r.Width, r.Height)
	}
	return nil
}

// LayerParameter carries a named out-of-band property of a layer. The
// gateway uses it for properties that change rarely and have no pixel
// representation, such as the physical monitor layout (name
// "monitor-layout", value a JSON object keyed by monitor index).
type LayerParameter struct {
	// Layer is the index of the layer the parameter describes.
	Layer int `cbor:"layer"`

	// Name identifies the parameter.
	Name string `cbor:"name"`

	// Value is the parameter value. Encoding is parameter-specific.
	Value string `cbor:"value"`
}

// Cursor announces the pointer glyph the viewer should render. Glyphs
// are named, not bitmapped: the protocol assumes a small set of
// built-in shapes.
type Cursor struct {
	// Glyph is the glyph name: "none", "dot", or "pointer".
	Glyph string `cbor:"glyph"`
}

// FrameDone marks the end of one logical frame. All updates since the
// previous FrameDone form a consistent snapshot; viewers present them
// together and acknowledge with the same sequence number.
type FrameDone struct {
	// Sequence numbers broadcast frames consecutively from 1 within a
	// session. The FrameDone closing an attach snapshot repeats the
	// sequence of the last broadcast frame, 0 when none has been
	// produced yet.
	Sequence uint64 `cbor:"sequence"`
}

// FrameAck reports that a viewer has presented the frame with the given
// sequence number. The gateway paces each viewer's updates by its
// acknowledgment progress; a viewer that stops acknowledging stops
// receiving pixel data until it catches up.
type FrameAck struct {
	// Sequence is the Sequence of the presented FrameDone.
	Sequence uint64 `cbor:"sequence"`
}

// ClientResize asks the gateway to resize the remote desktop, typically
// because the viewer window changed size. The engine may clamp or
// ignore the request; the viewer learns the outcome from a subsequent
// Resize message, if any.
type ClientResize struct {
	// Width and Height are the requested dimensions in pixels.
	Width  int `cbor:"width"`
	Height int `cbor:"height"`
}
