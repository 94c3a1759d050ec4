// Copyright 2026 The Oriel Authors
// SPDX-License-Identifier: Apache-2.0

package synthetic

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseScenarioAcceptsJSONC(t *testing.T) {
	t.Parallel()

	const script = `
{
  /* Exercises comments, trailing commas, and out-of-order steps. */
  "steps": [
    {"at_frame": 10, "action": "resume"},
    {"at_frame": 5, "action": "suppress"}, // takes effect first
    {"at_frame": 5, "action": "resize", "width": 800, "height": 600},
  ],
}
`
	scenario, err := ParseScenario([]byte(script))
	if err != nil {
		t.Fatalf("ParseScenario() error: %v", err)
	}
	if len(scenario.Steps) != 3 {
		t.Fatalf("len(Steps) = %d, want 3", len(scenario.Steps))
	}

	// Steps come back ordered by frame, written order preserved within
	// a frame.
	if got := scenario.Steps[0].Action; got != ActionSuppress {
		t.Errorf("Steps[0].Action = %q, want %q", got, ActionSuppress)
	}
	if got := scenario.Steps[1].Action; got != ActionResize {
		t.Errorf("Steps[1].Action = %q, want %q", got, ActionResize)
	}
	if got := scenario.Steps[2].AtFrame; got != 10 {
		t.Errorf("Steps[2].AtFrame = %d, want 10", got)
	}
}

func TestParseScenarioRejectsBadSteps(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		script  string
		wantErr string
	}{
		{
			name:    "unknown action",
			script:  `{"steps": [{"at_frame": 1, "action": "reboot"}]}`,
			wantErr: `unknown action "reboot"`,
		},
		{
			name:    "frame zero",
			script:  `{"steps": [{"at_frame": 0, "action": "suppress"}]}`,
			wantErr: "at_frame must be at least 1",
		},
		{
			name:    "resize without size",
			script:  `{"steps": [{"at_frame": 1, "action": "resize"}]}`,
			wantErr: "must be positive",
		},
		{
			name:    "paint without size",
			script:  `{"steps": [{"at_frame": 1, "action": "paint", "left": 5, "top": 5}]}`,
			wantErr: "must be positive",
		},
		{
			name:    "monitors without monitors",
			script:  `{"steps": [{"at_frame": 1, "action": "monitors"}]}`,
			wantErr: "needs at least one monitor",
		},
		{
			name:    "not json",
			script:  `steps!`,
			wantErr: "parsing scenario",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := ParseScenario([]byte(tt.script))
			if err == nil {
				t.Fatal("ParseScenario() accepted a bad scenario")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadScenario(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "demo.jsonc")
	script := `{
  // one step
  "steps": [{"at_frame": 2, "action": "suppress"}],
}`
	if err := os.WriteFile(path, []byte(script), 0o644); err != nil {
		t.Fatal(err)
	}

	scenario, err := LoadScenario(path)
	if err != nil {
		t.Fatalf("LoadScenario() error: %v", err)
	}
	if len(scenario.Steps) != 1 || scenario.Steps[0].Action != ActionSuppress {
		t.Errorf("Steps = %+v, want one suppress step", scenario.Steps)
	}
}

func TestLoadScenarioNamesFileInErrors(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "broken.jsonc")
	if err := os.WriteFile(path, []byte(`{"steps": [{"at_frame": 1, "action": "explode"}]}`), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := LoadScenario(path)
	if err == nil {
		t.Fatal("LoadScenario() accepted a bad scenario")
	}
	if !strings.Contains(err.Error(), "broken.jsonc") {
		t.Errorf("error = %q, want it to name the file", err)
	}
}

func TestParseMarkerMode(t *testing.T) {
	t.Parallel()

	for _, want := range []MarkerMode{MarkerModeSurface, MarkerModeExplicit, MarkerModeNone} {
		got, err := ParseMarkerMode(want.String())
		if err != nil {
			t.Errorf("ParseMarkerMode(%q) error: %v", want.String(), err)
		}
		if got != want {
			t.Errorf("ParseMarkerMode(%q) = %v, want %v", want.String(), got, want)
		}
	}

	if _, err := ParseMarkerMode("wayland"); err == nil {
		t.Error("ParseMarkerMode accepted an unknown mode")
	}
}
