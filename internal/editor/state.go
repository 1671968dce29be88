// Package editor holds the state of one media preview editor and the
// transitions that mutate it. Every transition is a pure function of the
// previous State; timers, storage and transport live in other packages.
package editor

import (
	"github.com/clipdeck/clipdeck/internal/media"
)

const (
	MinWidth      = 100
	MaxWidth      = 1920
	MinHeight     = 100
	MaxHeight     = 1080
	DefaultWidth  = 640
	DefaultHeight = 360

	// DefaultDuration is the scrubber length in seconds until a video reports
	// its own duration.
	DefaultDuration = 60

	// MinTrimSpan is the smallest allowed distance between trim start and end.
	MinTrimSpan = 1
)

// MediaRef identifies the media currently loaded in the editor.
type MediaRef struct {
	ID   string     `json:"id"`
	URL  string     `json:"url"`
	Kind media.Kind `json:"kind"`
}

type Dimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// TrimWindow is the [Start, End] interval, in seconds, in which the preview is shown.
type TrimWindow struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Contains reports whether t lies inside the window, bounds included.
func (w TrimWindow) Contains(t float64) bool {
	return t >= w.Start && t <= w.End
}

// DefaultTrim returns the trim window applied when media of the given kind is loaded.
func DefaultTrim(kind media.Kind) TrimWindow {
	if kind == media.KindImage {
		return TrimWindow{Start: 0, End: 5}
	}
	return TrimWindow{Start: 0, End: 10}
}

type Playback struct {
	CurrentTime float64 `json:"current_time"`
	IsPlaying   bool    `json:"is_playing"`
	IsComplete  bool    `json:"is_complete"`
	Duration    float64 `json:"duration"`
}

type Phase string

const (
	PhaseStopped  Phase = "stopped"
	PhasePlaying  Phase = "playing"
	PhaseComplete Phase = "complete"
)

// State is the whole editor: loaded media, preview size, trim window and clock.
type State struct {
	Media      *MediaRef  `json:"media,omitempty"`
	Dimensions Dimensions `json:"dimensions"`
	Trim       TrimWindow `json:"trim"`
	Playback   Playback   `json:"playback"`
}

// New returns the state of an editor with nothing loaded.
func New() State {
	return State{
		Dimensions: Dimensions{Width: DefaultWidth, Height: DefaultHeight},
		Trim:       TrimWindow{Start: 0, End: 10},
		Playback:   Playback{Duration: DefaultDuration},
	}
}

func (s State) HasMedia() bool {
	return s.Media != nil
}

func (s State) Phase() Phase {
	switch {
	case s.Playback.IsPlaying:
		return PhasePlaying
	case s.Playback.IsComplete:
		return PhaseComplete
	default:
		return PhaseStopped
	}
}

func (s State) isKind(kind media.Kind) bool {
	return s.Media != nil && s.Media.Kind == kind
}

// NeedsTicker reports whether the software clock should be running. Only
// image playback is driven by it; video time comes from the player itself.
func (s State) NeedsTicker() bool {
	return s.Playback.IsPlaying && s.isKind(media.KindImage)
}
