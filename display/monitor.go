// Copyright 2026 The Oriel Authors
// SPDX-License-Identifier: Apache-2.0

package display

import (
	"bytes"
	"fmt"
)

// Monitor is one display head's geometry in desktop coordinates. A
// monitor with zero width or height is unconfigured and ignored by
// serialization. A monitor's index is its position in the slice
// holding it.
type Monitor struct {
	Left   int
	Top    int
	Width  int
	Height int
}

// SerializeMonitorLayout renders the monitor collection as the compact
// JSON object clients consume:
//
//	{"0":{"left":0,"top":0,"width":1920,"height":1080}}
//
// Keys are monitor indices in ascending order. Monitors without a
// usable size are skipped, but skipping never renumbers the survivors,
// so clients can correlate entries across layout changes. The function
// is pure: equal input produces byte-identical output.
func SerializeMonitorLayout(monitors []Monitor) string {
	var out bytes.Buffer
	out.WriteByte('{')
	first := true
	for index, monitor := range monitors {
		if monitor.Width <= 0 || monitor.Height <= 0 {
			continue
		}
		if !first {
			out.WriteByte(',')
		}
		first = false
		fmt.Fprintf(&out, `"%d":{"left":%d,"top":%d,"width":%d,"height":%d}`,
			index, monitor.Left, monitor.Top, monitor.Width, monitor.Height)
	}
	out.WriteByte('}')
	return out.String()
}
