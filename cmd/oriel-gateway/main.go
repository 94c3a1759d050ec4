// Copyright 2026 The Oriel Authors
// SPDX-License-Identifier: Apache-2.0

// oriel-gateway hosts one rendering engine session and serves it to any
// number of viewers.
//
// The gateway converts the engine's paint bursts into consistent frames
// (dirty-region tracked, marker delimited) and broadcasts them over the
// session protocol. Viewers connect over plain TCP or WebRTC data
// channels; each is brought current with a snapshot and then paced by
// its own acknowledgments. Optionally every broadcast is captured to a
// recording file for later playback with oriel-playback.
//
// Configuration comes from a single YAML file:
//
//	oriel-gateway --config oriel.yaml
//
// or from the path in ORIEL_CONFIG when --config is not given. An empty
// file is valid and yields the development defaults: a synthetic
// 1280x800 engine and a TCP listener on :7300.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/oriel-project/oriel/engine/synthetic"
	"github.com/oriel-project/oriel/gateway"
	"github.com/oriel-project/oriel/lib/config"
	"github.com/oriel-project/oriel/lib/version"
	"github.com/oriel-project/oriel/protocol"
	"github.com/oriel-project/oriel/record"
	"github.com/oriel-project/oriel/transport"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "oriel-gateway: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var configPath string

	flagSet := pflag.NewFlagSet("oriel-gateway", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "", "path to the YAML config file (overrides ORIEL_CONFIG)")

	// Handle --version before flag parsing to match other Oriel binaries.
	if len(os.Args) > 1 && os.Args[1] == "--version" {
		fmt.Printf("oriel-gateway %s\n", version.Info())
		return nil
	}
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		return err
	}

	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.LoadFile(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return err
	}

	logger := newLogger(cfg.Log)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	// Listener failures end the session the same way a signal does.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	eng, err := buildEngine(cfg, logger)
	if err != nil {
		return fmt.Errorf("building engine: %w", err)
	}

	recorder, finishRecording, err := openRecorder(cfg.Record, eng, logger)
	if err != nil {
		return fmt.Errorf("opening recording: %w", err)
	}
	defer finishRecording()

	g, err := gateway.New(gateway.Options{
		Engine:           eng,
		Pump:             eng.Run,
		FrameAcknowledge: cfg.Session.FrameAcknowledge,
		FrameWindow:      cfg.Session.ClientFrameWindow,
		QueueDepth:       cfg.Session.ClientQueueDepth,
		Recorder:         recorder,
		Logger:           logger,
	})
	if err != nil {
		return fmt.Errorf("building gateway: %w", err)
	}

	serveErrs := make(chan error, 2)

	if cfg.Listen.TCP != "" {
		listener, err := transport.NewTCPListener(cfg.Listen.TCP)
		if err != nil {
			return fmt.Errorf("tcp listener: %w", err)
		}
		defer listener.Close()
		logger.Info("listening", "transport", "tcp", "address", listener.Address())
		go func() { serveErrs <- listener.Serve(ctx, g.HandleSession) }()
	}

	if cfg.Listen.WebRTC != "" {
		iceConfig := transport.ICEConfigFromURLs(cfg.Listen.ICEServers)
		listener, err := transport.NewWebRTCListener(cfg.Listen.WebRTC, iceConfig, logger)
		if err != nil {
			return fmt.Errorf("webrtc listener: %w", err)
		}
		defer listener.Close()
		logger.Info("listening", "transport", "webrtc", "address", listener.Address())
		go func() { serveErrs <- listener.Serve(ctx, g.HandleSession) }()
	}

	runResult := make(chan error, 1)
	go func() { runResult <- g.Run(ctx) }()

	select {
	case err := <-serveErrs:
		cancel()
		<-runResult
		if err != nil {
			return fmt.Errorf("listener failed: %w", err)
		}
		return nil
	case err := <-runResult:
		return err
	}
}

// buildEngine constructs the configured engine. Only the synthetic
// engine is built in; config validation already rejected other types.
func buildEngine(cfg *config.Config, logger *slog.Logger) (*synthetic.Engine, error) {
	markers, err := synthetic.ParseMarkerMode(cfg.Engine.MarkerMode)
	if err != nil {
		return nil, err
	}

	var scenario *synthetic.Scenario
	if cfg.Engine.Scenario != "" {
		scenario, err = synthetic.LoadScenario(cfg.Engine.Scenario)
		if err != nil {
			return nil, fmt.Errorf("loading scenario: %w", err)
		}
	}

	return synthetic.New(synthetic.Config{
		Width:         cfg.Engine.Width,
		Height:        cfg.Engine.Height,
		Markers:       markers,
		FrameInterval: cfg.Engine.FrameInterval.Std(),
		AckWindow:     cfg.Session.FrameAcknowledge,
		Scenario:      scenario,
		Logger:        logger.With("component", "engine"),
	})
}

// openRecorder opens a timestamped recording file in the configured
// directory. When recording is disabled it returns a nil writer and a
// no-op cleanup. The cleanup closes the file; the gateway finalizes the
// writer itself when the session ends.
func openRecorder(cfg config.RecordConfig, eng *synthetic.Engine, logger *slog.Logger) (*record.Writer, func(), error) {
	if cfg.Dir == "" {
		return nil, func() {}, nil
	}

	compression, err := record.ParseCompressionTag(cfg.Compression)
	if err != nil {
		return nil, nil, err
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("creating recording directory: %w", err)
	}

	now := time.Now()
	path := filepath.Join(cfg.Dir, fmt.Sprintf("oriel-%s.orrc", now.Format("20060102-150405")))
	file, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("creating recording file: %w", err)
	}

	width, height := eng.Size()
	writer, err := record.NewWriter(file, record.RecordingInfo{
		ProtocolVersion: protocol.Version,
		Width:           width,
		Height:          height,
		PixelFormat:     protocol.PixelFormatBGRX32,
		StartedAt:       now.UnixMilli(),
	}, record.Options{
		Compression:  compression,
		SegmentBytes: cfg.SegmentBytes,
	})
	if err != nil {
		file.Close()
		os.Remove(path)
		return nil, nil, fmt.Errorf("starting recording: %w", err)
	}

	logger.Info("recording session", "path", path, "compression", cfg.Compression)
	cleanup := func() {
		if err := file.Close(); err != nil {
			logger.Error("closing recording file", "path", path, "error", err)
		}
	}
	return writer, cleanup, nil
}

// newLogger builds the process logger from the log config. The config
// was validated at load time, so unknown values cannot reach here; the
// defaults still make the zero value safe.
func newLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	options := &slog.HandlerOptions{Level: level}
	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(os.Stderr, options))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, options))
}
