// Package timeline formats playback positions and lays out the scrubber.
package timeline

import (
	"fmt"
	"math"
)

const (
	rulerStep     = 20 // seconds between ruler labels
	maxRulerTicks = 4
	minuteLabelAt = 80 // durations longer than this get a trailing minutes label
	defaultFPS    = 30
)

// FormatClock renders seconds as "mm:ss.0". Tenths are always zero because
// the clock only moves in whole seconds.
func FormatClock(seconds float64) string {
	if seconds < 0 || math.IsNaN(seconds) {
		seconds = 0
	}
	mins := int(math.Floor(seconds / 60))
	secs := int(math.Floor(math.Mod(seconds, 60)))
	return fmt.Sprintf("%02d:%02d.0", mins, secs)
}

// Readout renders the "current / duration" display next to the transport buttons.
func Readout(current, duration float64) string {
	return FormatClock(current) + " / " + FormatClock(duration)
}

// PositionLabel renders the plain "Time: Ns" label of the controls panel.
func PositionLabel(current float64) string {
	return fmt.Sprintf("Time: %gs", current)
}

// Timecode converts seconds to an HH:MM:SS:FF timecode at the given frame rate.
func Timecode(seconds float64, frameRate float64) string {
	fps := int(math.Round(frameRate))
	if fps <= 0 {
		fps = defaultFPS
	}
	if seconds < 0 || math.IsNaN(seconds) {
		seconds = 0
	}
	totalFrames := int(math.Round(seconds * float64(fps)))
	frames := totalFrames % fps
	totalSeconds := totalFrames / fps
	secs := totalSeconds % 60
	totalMinutes := totalSeconds / 60
	mins := totalMinutes % 60
	hours := totalMinutes / 60
	return fmt.Sprintf("%02d:%02d:%02d:%02d", hours, mins, secs, frames)
}

type Mark struct {
	Value float64 `json:"value"`
	Label string  `json:"label"`
}

// Scrubber is the slider model: its range, the trim marks on it and the ruler
// labels underneath.
type Scrubber struct {
	Min     float64  `json:"min"`
	Max     float64  `json:"max"`
	Value   float64  `json:"value"`
	Label   string   `json:"label"`
	Marks   []Mark   `json:"marks"`
	Ruler   []string `json:"ruler"`
	Enabled bool     `json:"enabled"`
}

// NewScrubber lays out a scrubber for a clip of the given duration.
func NewScrubber(current, duration, trimStart, trimEnd float64, enabled bool) Scrubber {
	return Scrubber{
		Min:   0,
		Max:   duration,
		Value: current,
		Label: FormatClock(current),
		Marks: []Mark{
			{Value: trimStart, Label: "Start"},
			{Value: trimEnd, Label: "End"},
		},
		Ruler:   Ruler(duration),
		Enabled: enabled,
	}
}

// Ruler returns the labels under the scrubber: "0s", up to four 20-second
// steps, and a whole-minutes label for clips longer than 80 seconds.
func Ruler(duration float64) []string {
	labels := []string{"0s"}
	n := int(math.Ceil(duration / rulerStep))
	if n > maxRulerTicks {
		n = maxRulerTicks
	}
	for i := 1; i <= n; i++ {
		labels = append(labels, fmt.Sprintf("%ds", i*rulerStep))
	}
	if duration > minuteLabelAt {
		labels = append(labels, fmt.Sprintf("%dm", int(math.Floor(duration/60))))
	}
	return labels
}
