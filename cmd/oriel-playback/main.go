// Copyright 2026 The Oriel Authors
// SPDX-License-Identifier: Apache-2.0

// oriel-playback inspects session recordings written by oriel-gateway.
//
//	oriel-playback session.orrc          verify and summarize
//	oriel-playback --dump session.orrc   print the full event timeline
//
// Reading a recording verifies every segment hash, so a clean exit
// means the file is intact end to end. A recording without a session
// end event was cut short (gateway crash or lost disk), which the
// summary calls out but does not treat as an error.
package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/spf13/pflag"

	"github.com/oriel-project/oriel/lib/version"
	"github.com/oriel-project/oriel/protocol"
	"github.com/oriel-project/oriel/record"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "oriel-playback: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var dump bool

	flagSet := pflag.NewFlagSet("oriel-playback", pflag.ContinueOnError)
	flagSet.BoolVar(&dump, "dump", false, "print every event instead of a summary")

	// Handle --version before flag parsing to match other Oriel binaries.
	if len(os.Args) > 1 && os.Args[1] == "--version" {
		fmt.Printf("oriel-playback %s\n", version.Info())
		return nil
	}
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		return err
	}

	args := flagSet.Args()
	if len(args) != 1 {
		return errors.New("usage: oriel-playback [--dump] <recording>")
	}

	file, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer file.Close()

	reader, err := record.NewReader(file)
	if err != nil {
		return err
	}

	info := reader.Info
	fmt.Printf("recording: %s\n", args[0])
	fmt.Printf("  protocol %d, %dx%d %s, started %s\n",
		info.ProtocolVersion, info.Width, info.Height, info.PixelFormat,
		time.UnixMilli(info.StartedAt).UTC().Format(time.RFC3339))

	if dump {
		return dumpEvents(reader)
	}
	return summarize(reader)
}

// summarize iterates the whole recording and prints per-message-type
// counts, the total span, and whether the session ended cleanly.
func summarize(reader *record.Reader) error {
	counts := make(map[string]int)
	var events int
	var span time.Duration
	var pixelBytes int64
	clean := false

	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		events++
		span = event.Elapsed

		switch event.Type {
		case record.EventMessage:
			message, err := protocol.ReadMessage(bytes.NewReader(event.Payload))
			if err != nil {
				return fmt.Errorf("event %d: re-framing message: %w", events, err)
			}
			counts[messageTypeName(message.Type)]++
			if message.Type == protocol.MessageTypeRegion {
				var region protocol.Region
				if err := protocol.DecodePayload(message, &region); err == nil {
					pixelBytes += int64(len(region.Pixels))
				}
			}
		case record.EventSessionEnd:
			clean = true
		default:
			counts[event.Type.String()]++
		}
	}

	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Printf("  %d events over %s\n", events, span.Round(time.Millisecond))
	for _, name := range names {
		fmt.Printf("    %-16s %d\n", name, counts[name])
	}
	if pixelBytes > 0 {
		fmt.Printf("  %d region pixel bytes\n", pixelBytes)
	}
	if clean {
		fmt.Println("  session ended cleanly")
	} else {
		fmt.Println("  session was cut short (no end event)")
	}
	return nil
}

// dumpEvents prints one line per event with decoded message detail.
func dumpEvents(reader *record.Reader) error {
	for {
		event, err := reader.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		stamp := event.Elapsed.Round(time.Millisecond)
		if event.Type != record.EventMessage {
			fmt.Printf("%12s  %s\n", stamp, event.Type)
			continue
		}

		message, err := protocol.ReadMessage(bytes.NewReader(event.Payload))
		if err != nil {
			return fmt.Errorf("re-framing recorded message: %w", err)
		}
		fmt.Printf("%12s  %-16s %s\n", stamp, messageTypeName(message.Type), messageDetail(message))
	}
}

// messageDetail renders the interesting fields of a decoded message.
// Undecodable payloads are reported inline rather than aborting the
// dump; the segment hash already vouched for the bytes.
func messageDetail(message protocol.Message) string {
	switch message.Type {
	case protocol.MessageTypeServerInfo:
		var info protocol.ServerInfo
		if err := protocol.DecodePayload(message, &info); err != nil {
			return "undecodable: " + err.Error()
		}
		return fmt.Sprintf("protocol %d, %dx%d %s", info.ProtocolVersion, info.Width, info.Height, info.PixelFormat)
	case protocol.MessageTypeResize:
		var resize protocol.Resize
		if err := protocol.DecodePayload(message, &resize); err != nil {
			return "undecodable: " + err.Error()
		}
		return fmt.Sprintf("layer %d to %dx%d", resize.Layer, resize.Width, resize.Height)
	case protocol.MessageTypeRegion:
		var region protocol.Region
		if err := protocol.DecodePayload(message, &region); err != nil {
			return "undecodable: " + err.Error()
		}
		return fmt.Sprintf("layer %d (%d,%d) %dx%d, %d bytes",
			region.Layer, region.Left, region.Top, region.Width, region.Height, len(region.Pixels))
	case protocol.MessageTypeLayerParameter:
		var parameter protocol.LayerParameter
		if err := protocol.DecodePayload(message, &parameter); err != nil {
			return "undecodable: " + err.Error()
		}
		return fmt.Sprintf("layer %d %s = %s", parameter.Layer, parameter.Name, parameter.Value)
	case protocol.MessageTypeCursor:
		var cursor protocol.Cursor
		if err := protocol.DecodePayload(message, &cursor); err != nil {
			return "undecodable: " + err.Error()
		}
		return cursor.Glyph
	case protocol.MessageTypeFrameDone:
		var done protocol.FrameDone
		if err := protocol.DecodePayload(message, &done); err != nil {
			return "undecodable: " + err.Error()
		}
		return fmt.Sprintf("sequence %d", done.Sequence)
	default:
		return fmt.Sprintf("%d payload bytes", len(message.Payload))
	}
}

func messageTypeName(messageType byte) string {
	switch messageType {
	case protocol.MessageTypeServerInfo:
		return "server-info"
	case protocol.MessageTypeResize:
		return "resize"
	case protocol.MessageTypeRegion:
		return "region"
	case protocol.MessageTypeLayerParameter:
		return "layer-parameter"
	case protocol.MessageTypeCursor:
		return "cursor"
	case protocol.MessageTypeFrameDone:
		return "frame-done"
	case protocol.MessageTypeFrameAck:
		return "frame-ack"
	case protocol.MessageTypeClientResize:
		return "client-resize"
	default:
		return fmt.Sprintf("unknown-0x%02x", messageType)
	}
}
