// Copyright 2026 The Oriel Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides configuration loading for the Oriel gateway.
//
// Configuration is loaded from a single YAML file specified by:
//   - the ORIEL_CONFIG environment variable, or
//   - the --config flag passed to the command
//
// There are no fallbacks or automatic discovery. Defaults are applied
// before the file is parsed, so an empty file yields a fully usable
// development configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the master configuration for an Oriel gateway process.
type Config struct {
	// Listen configures the client-facing transports.
	Listen ListenConfig `yaml:"listen"`

	// Engine configures the upstream rendering engine.
	Engine EngineConfig `yaml:"engine"`

	// Session configures frame pacing on both sides of the gateway.
	Session SessionConfig `yaml:"session"`

	// Record configures session recording. Disabled when Dir is empty.
	Record RecordConfig `yaml:"record"`

	// Log configures the process logger.
	Log LogConfig `yaml:"log"`
}

// ListenConfig configures the client-facing transports.
type ListenConfig struct {
	// TCP is the address for the plain TCP listener. Empty disables it.
	TCP string `yaml:"tcp"`

	// WebRTC is the address for the WebRTC signaling HTTP listener.
	// Empty disables WebRTC entirely.
	WebRTC string `yaml:"webrtc"`

	// ICEServers lists STUN/TURN URLs handed to WebRTC peers. Empty is
	// fine for loopback and LAN use.
	ICEServers []string `yaml:"ice_servers"`
}

// EngineConfig configures the upstream rendering engine.
type EngineConfig struct {
	// Type selects the engine implementation. Currently "synthetic".
	Type string `yaml:"type"`

	// Width and Height are the initial desktop size in pixels.
	Width  int `yaml:"width"`
	Height int `yaml:"height"`

	// FrameInterval is the synthetic engine's frame period.
	FrameInterval Duration `yaml:"frame_interval"`

	// MarkerMode selects how the engine delimits frames: "surface"
	// (surface markers with frame IDs), "explicit" (bare begin/end
	// markers), or "none" (no markers; the gateway falls back to
	// modification debouncing).
	MarkerMode string `yaml:"marker_mode"`

	// Scenario is an optional JSONC script of timed engine steps.
	Scenario string `yaml:"scenario"`
}

// SessionConfig configures frame pacing.
type SessionConfig struct {
	// FrameAcknowledge is the upstream frame acknowledgment threshold.
	// When greater than zero, the gateway acknowledges each completed
	// frame back to the engine so the engine limits its lookahead to
	// this many frames. Zero disables acknowledgment, leaving the
	// engine's output unpaced.
	FrameAcknowledge uint32 `yaml:"frame_acknowledge"`

	// ClientFrameWindow is the maximum number of unacknowledged frames
	// in flight to a single client before updates for that client
	// coalesce. Zero disables client pacing.
	ClientFrameWindow int `yaml:"client_frame_window"`

	// ClientQueueDepth is the per-client outbound message queue length.
	// A client that falls this far behind the writer is disconnected.
	ClientQueueDepth int `yaml:"client_queue_depth"`
}

// RecordConfig configures session recording.
type RecordConfig struct {
	// Dir is the directory recordings are written into. Empty disables
	// recording.
	Dir string `yaml:"dir"`

	// Compression selects the segment compression: "none", "lz4", or
	// "zstd".
	Compression string `yaml:"compression"`

	// SegmentBytes is the uncompressed segment target size.
	SegmentBytes int `yaml:"segment_bytes"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	// Level is one of "debug", "info", "warn", "error".
	Level string `yaml:"level"`

	// Format is "json" or "text".
	Format string `yaml:"format"`
}

// Duration wraps time.Duration so YAML values can be written as Go
// duration strings ("16ms", "1s").
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Default returns the default configuration: a synthetic 1280x800
// engine at 25 frames per second, a TCP listener on :7300, pacing
// windows of two frames on both sides, and recording disabled.
func Default() *Config {
	return &Config{
		Listen: ListenConfig{
			TCP: ":7300",
		},
		Engine: EngineConfig{
			Type:          "synthetic",
			Width:         1280,
			Height:        800,
			FrameInterval: Duration(40 * time.Millisecond),
			MarkerMode:    "surface",
		},
		Session: SessionConfig{
			FrameAcknowledge:  2,
			ClientFrameWindow: 2,
			ClientQueueDepth:  32,
		},
		Record: RecordConfig{
			Compression:  "lz4",
			SegmentBytes: 256 * 1024,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load loads configuration from the path in ORIEL_CONFIG.
func Load() (*Config, error) {
	path := os.Getenv("ORIEL_CONFIG")
	if path == "" {
		return nil, fmt.Errorf("ORIEL_CONFIG environment variable not set; " +
			"set it to the path of your oriel.yaml config file, or use the --config flag")
	}
	return LoadFile(path)
}

// LoadFile loads configuration from a specific file path, applying
// defaults first and validating the result.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.Listen.TCP == "" && c.Listen.WebRTC == "" {
		errs = append(errs, errors.New("at least one of listen.tcp or listen.webrtc is required"))
	}

	if c.Engine.Type != "synthetic" {
		errs = append(errs, fmt.Errorf("unknown engine.type %q (only \"synthetic\" is built in)", c.Engine.Type))
	}
	if c.Engine.Width <= 0 || c.Engine.Height <= 0 {
		errs = append(errs, fmt.Errorf("engine size %dx%d must be positive", c.Engine.Width, c.Engine.Height))
	}
	if c.Engine.FrameInterval <= 0 {
		errs = append(errs, errors.New("engine.frame_interval must be positive"))
	}
	if !slices.Contains([]string{"surface", "explicit", "none"}, c.Engine.MarkerMode) {
		errs = append(errs, fmt.Errorf("engine.marker_mode %q must be one of: surface, explicit, none", c.Engine.MarkerMode))
	}

	if c.Session.ClientFrameWindow < 0 {
		errs = append(errs, errors.New("session.client_frame_window must not be negative"))
	}
	if c.Session.ClientQueueDepth <= 0 {
		errs = append(errs, errors.New("session.client_queue_depth must be positive"))
	}

	if !slices.Contains([]string{"none", "lz4", "zstd"}, c.Record.Compression) {
		errs = append(errs, fmt.Errorf("record.compression %q must be one of: none, lz4, zstd", c.Record.Compression))
	}
	if c.Record.SegmentBytes <= 0 {
		errs = append(errs, errors.New("record.segment_bytes must be positive"))
	}

	if !slices.Contains([]string{"debug", "info", "warn", "error"}, c.Log.Level) {
		errs = append(errs, fmt.Errorf("log.level %q must be one of: debug, info, warn, error", c.Log.Level))
	}
	if !slices.Contains([]string{"json", "text"}, c.Log.Format) {
		errs = append(errs, fmt.Errorf("log.format %q must be one of: json, text", c.Log.Format))
	}

	return errors.Join(errs...)
}
