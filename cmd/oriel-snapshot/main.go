// Copyright 2026 The Oriel Authors
// SPDX-License-Identifier: Apache-2.0

// oriel-snapshot is a headless viewer that attaches to a gateway,
// reconstructs the remote display from the session stream, and writes
// one PNG per completed frame.
//
//	oriel-snapshot --address localhost:7300 --frames 3 --out /tmp/shots
//
// The attach snapshot counts as the first frame, so --frames 1 captures
// exactly the display state at attach time. Each frame is acknowledged
// as it is written, which keeps the gateway's pacing window open and
// exercises the same path a live viewer uses.
//
// With --transport webrtc the address is the gateway's signaling
// endpoint and the session runs over a WebRTC data channel.
package main

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/oriel-project/oriel/lib/version"
	"github.com/oriel-project/oriel/protocol"
	"github.com/oriel-project/oriel/transport"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "oriel-snapshot: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		address       string
		transportName string
		iceServers    []string
		frames        int
		outDir        string
	)

	flagSet := pflag.NewFlagSet("oriel-snapshot", pflag.ContinueOnError)
	flagSet.StringVar(&address, "address", "localhost:7300", "gateway address (host:port, or signaling URL for webrtc)")
	flagSet.StringVar(&transportName, "transport", "tcp", "transport to dial: tcp or webrtc")
	flagSet.StringSliceVar(&iceServers, "ice", nil, "STUN/TURN server URLs for webrtc")
	flagSet.IntVar(&frames, "frames", 1, "number of frames to capture (the attach snapshot is the first)")
	flagSet.StringVar(&outDir, "out", ".", "directory for the PNG files")

	// Handle --version before flag parsing to match other Oriel binaries.
	if len(os.Args) > 1 && os.Args[1] == "--version" {
		fmt.Printf("oriel-snapshot %s\n", version.Info())
		return nil
	}
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		return err
	}
	if frames < 1 {
		return fmt.Errorf("--frames must be at least 1, got %d", frames)
	}

	var dialer transport.Dialer
	switch transportName {
	case "tcp":
		dialer = &transport.TCPDialer{}
	case "webrtc":
		dialer = &transport.WebRTCDialer{ICE: transport.ICEConfigFromURLs(iceServers)}
	default:
		return fmt.Errorf("unknown transport %q (want tcp or webrtc)", transportName)
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	conn, err := dialer.DialContext(ctx, address)
	if err != nil {
		return fmt.Errorf("dialing gateway: %w", err)
	}
	defer conn.Close()

	// A signal closes the connection, which unblocks the read loop.
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	return capture(conn, frames, outDir)
}

// capture consumes the session stream until count frames are written.
func capture(conn net.Conn, count int, outDir string) error {
	var canvas *image.RGBA
	captured := 0

	for captured < count {
		message, err := protocol.ReadMessage(conn)
		if err != nil {
			return fmt.Errorf("session ended after %d of %d frames: %w", captured, count, err)
		}

		switch message.Type {
		case protocol.MessageTypeServerInfo:
			var info protocol.ServerInfo
			if err := protocol.DecodePayload(message, &info); err != nil {
				return fmt.Errorf("decoding server info: %w", err)
			}
			if info.ProtocolVersion != protocol.Version {
				return fmt.Errorf("gateway speaks protocol %d, this build understands %d",
					info.ProtocolVersion, protocol.Version)
			}
			if info.PixelFormat != protocol.PixelFormatBGRX32 {
				return fmt.Errorf("unsupported pixel format %s", info.PixelFormat)
			}
			canvas = image.NewRGBA(image.Rect(0, 0, info.Width, info.Height))

		case protocol.MessageTypeResize:
			var resize protocol.Resize
			if err := protocol.DecodePayload(message, &resize); err != nil {
				return fmt.Errorf("decoding resize: %w", err)
			}
			if resize.Layer == 0 {
				canvas = image.NewRGBA(image.Rect(0, 0, resize.Width, resize.Height))
			}

		case protocol.MessageTypeRegion:
			var region protocol.Region
			if err := protocol.DecodePayload(message, &region); err != nil {
				return fmt.Errorf("decoding region: %w", err)
			}
			if err := region.Validate(); err != nil {
				return fmt.Errorf("invalid region: %w", err)
			}
			if region.Layer == 0 && canvas != nil {
				blit(canvas, region)
			}

		case protocol.MessageTypeFrameDone:
			var done protocol.FrameDone
			if err := protocol.DecodePayload(message, &done); err != nil {
				return fmt.Errorf("decoding frame done: %w", err)
			}
			if canvas == nil {
				return fmt.Errorf("frame %d completed before server info arrived", done.Sequence)
			}
			path := filepath.Join(outDir, fmt.Sprintf("frame-%04d.png", captured))
			if err := writePNG(path, canvas); err != nil {
				return err
			}
			fmt.Printf("%s (sequence %d)\n", path, done.Sequence)
			captured++

			ack, err := protocol.NewFrameAckMessage(protocol.FrameAck{Sequence: done.Sequence})
			if err != nil {
				return fmt.Errorf("building acknowledgment: %w", err)
			}
			if err := protocol.WriteMessage(conn, ack); err != nil {
				return fmt.Errorf("acknowledging frame %d: %w", done.Sequence, err)
			}

		default:
			// Cursor and layer parameter updates do not affect pixels.
		}
	}
	return nil
}

// blit copies a BGRX region into the RGBA canvas, clipping to the
// canvas bounds. Rows are tightly packed in region order.
func blit(canvas *image.RGBA, region protocol.Region) {
	bounds := canvas.Bounds()
	rowBytes := region.Width * 4
	for y := range region.Height {
		destY := region.Top + y
		if destY < 0 || destY >= bounds.Dy() {
			continue
		}
		row := region.Pixels[y*rowBytes : (y+1)*rowBytes]
		for x := range region.Width {
			destX := region.Left + x
			if destX < 0 || destX >= bounds.Dx() {
				continue
			}
			pixel := row[x*4 : x*4+4]
			offset := canvas.PixOffset(destX, destY)
			canvas.Pix[offset+0] = pixel[2] // R
			canvas.Pix[offset+1] = pixel[1] // G
			canvas.Pix[offset+2] = pixel[0] // B
			canvas.Pix[offset+3] = 0xFF
		}
	}
}

func writePNG(path string, canvas *image.RGBA) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := png.Encode(file, canvas); err != nil {
		file.Close()
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
