// Copyright 2026 The Oriel Authors
// SPDX-License-Identifier: Apache-2.0

package synthetic

import (
	"cmp"
	"encoding/json"
	"fmt"
	"os"
	"slices"

	"github.com/tidwall/jsonc"
)

// Scenario step action names.
const (
	// ActionPaint fills a rectangle with the accent color during the
	// step's frame, on top of the regular scene.
	ActionPaint = "paint"

	// ActionResize queues a desktop resize, applied before the step's
	// frame like a client-initiated request.
	ActionResize = "resize"

	// ActionSuppress stops damage from reaching clients. Painting
	// continues underneath.
	ActionSuppress = "suppress"

	// ActionResume lifts a suppression.
	ActionResume = "resume"

	// ActionMonitors replaces the monitor table. The new layout is
	// published on the next resize, so pair it with one.
	ActionMonitors = "monitors"
)

// Scenario scripts timed engine behavior changes. Scenario files are
// JSONC: JSON with comments and trailing commas.
type Scenario struct {
	Steps []ScenarioStep `json:"steps"`
}

// ScenarioStep is one scripted action, run before the engine produces
// the frame it names.
type ScenarioStep struct {
	// AtFrame is the frame number the action precedes, counting from 1.
	AtFrame uint32 `json:"at_frame"`

	// Action is one of the Action constants.
	Action string `json:"action"`

	// Left and Top position paint actions.
	Left int `json:"left,omitempty"`
	Top  int `json:"top,omitempty"`

	// Width and Height parameterize paint and resize actions.
	Width  int `json:"width,omitempty"`
	Height int `json:"height,omitempty"`

	// Monitors parameterizes monitors actions.
	Monitors []MonitorSpec `json:"monitors,omitempty"`
}

// MonitorSpec is one monitor's geometry in a scenario file. A spec with
// zero width or height marks the slot unconfigured.
type MonitorSpec struct {
	Left   int `json:"left"`
	Top    int `json:"top"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// ParseScenario parses and validates JSONC scenario content. Steps are
// reordered by frame number, keeping the written order within a frame.
func ParseScenario(data []byte) (*Scenario, error) {
	stripped := jsonc.ToJSON(data)

	var scenario Scenario
	if err := json.Unmarshal(stripped, &scenario); err != nil {
		return nil, fmt.Errorf("parsing scenario: %w", err)
	}
	if err := scenario.validate(); err != nil {
		return nil, err
	}
	slices.SortStableFunc(scenario.Steps, func(a, b ScenarioStep) int {
		return cmp.Compare(a.AtFrame, b.AtFrame)
	})
	return &scenario, nil
}

// LoadScenario reads and parses a scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario: %w", err)
	}
	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return scenario, nil
}

func (s *Scenario) validate() error {
	for i, step := range s.Steps {
		if step.AtFrame == 0 {
			return fmt.Errorf("step %d: at_frame must be at least 1", i)
		}
		switch step.Action {
		case ActionPaint:
			if step.Width <= 0 || step.Height <= 0 {
				return fmt.Errorf("step %d: paint rectangle %dx%d must be positive", i, step.Width, step.Height)
			}
		case ActionResize:
			if step.Width <= 0 || step.Height <= 0 {
				return fmt.Errorf("step %d: resize to %dx%d must be positive", i, step.Width, step.Height)
			}
		case ActionSuppress, ActionResume:
		case ActionMonitors:
			if len(step.Monitors) == 0 {
				return fmt.Errorf("step %d: monitors action needs at least one monitor", i)
			}
		default:
			return fmt.Errorf("step %d: unknown action %q", i, step.Action)
		}
	}
	return nil
}
