package editor

import (
	"math"

	"github.com/clipdeck/clipdeck/internal/media"
)

type CommandAction string

const (
	ActionSeek  CommandAction = "seek"
	ActionPlay  CommandAction = "play"
	ActionPause CommandAction = "pause"
)

// Command is an instruction for the client's native video element.
type Command struct {
	Action   CommandAction `json:"action"`
	Position float64       `json:"position"`
}

func seek(pos float64) Command { return Command{Action: ActionSeek, Position: pos} }

// Intake loads new media. The trim window goes back to the kind default,
// playback stops and any completion is cleared.
func Intake(s State, ref MediaRef) State {
	s.Media = &ref
	s.Trim = DefaultTrim(ref.Kind)
	s.Playback = Playback{
		CurrentTime: s.Trim.Start,
		Duration:    DefaultDuration,
	}
	return s
}

func SetDimensions(s State, width, height int) State {
	s.Dimensions.Width = clampInt(width, MinWidth, MaxWidth)
	s.Dimensions.Height = clampInt(height, MinHeight, MaxHeight)
	return s
}

// SetStart moves the trim start. The end is pushed out when needed so that
// End-Start never drops below MinTrimSpan.
func SetStart(s State, start float64) State {
	if !isFinite(start) {
		return s
	}
	s.Trim.Start = math.Max(start, 0)
	if s.Trim.End < s.Trim.Start+MinTrimSpan {
		s.Trim.End = s.Trim.Start + MinTrimSpan
	}
	return s
}

func SetEnd(s State, end float64) State {
	if !isFinite(end) {
		return s
	}
	s.Trim.End = math.Max(end, s.Trim.Start+MinTrimSpan)
	return s
}

// TogglePlay pauses a playing editor or starts a stopped one. Starting from
// a completed run rewinds to the trim start first.
func TogglePlay(s State) (State, []Command) {
	if !s.HasMedia() {
		return s, nil
	}
	video := s.isKind(media.KindVideo)

	if s.Playback.IsPlaying {
		s.Playback.IsPlaying = false
		if video {
			return s, []Command{{Action: ActionPause}}
		}
		return s, nil
	}

	if s.Playback.IsComplete {
		s.Playback.IsComplete = false
		s.Playback.CurrentTime = s.Trim.Start
	}
	s.Playback.IsPlaying = true
	if video {
		return s, []Command{seek(s.Playback.CurrentTime), {Action: ActionPlay}}
	}
	return s, nil
}

// Tick advances the software clock by one second. Reaching the trim end
// stops playback and marks it complete in the same step.
func Tick(s State) State {
	if !s.NeedsTicker() {
		return s
	}
	next := s.Playback.CurrentTime + 1
	if next >= s.Trim.End {
		return complete(s)
	}
	s.Playback.CurrentTime = next
	return s
}

// ReportTime applies a time update from the video element.
func ReportTime(s State, t float64) (State, []Command) {
	if !s.isKind(media.KindVideo) || s.Playback.IsComplete || !isFinite(t) {
		return s, nil
	}
	if t >= s.Trim.End {
		return complete(s), []Command{{Action: ActionPause}}
	}
	s.Playback.CurrentTime = math.Max(math.Floor(t), 0)
	return s, nil
}

// ReportDuration applies the duration read from the video's metadata.
func ReportDuration(s State, d float64) State {
	if !s.isKind(media.KindVideo) || !isFinite(d) || d <= 0 {
		return s
	}
	s.Playback.Duration = math.Floor(d)
	return s
}

func SkipToStart(s State) (State, []Command) {
	return jump(s, s.Trim.Start)
}

func SkipToEnd(s State) (State, []Command) {
	return jump(s, s.Trim.End)
}

// Scrub moves the clock anywhere on the scrubber, [0, Duration].
func Scrub(s State, pos float64) (State, []Command) {
	if !isFinite(pos) {
		return s, nil
	}
	return jump(s, math.Min(math.Max(pos, 0), s.Playback.Duration))
}

func jump(s State, t float64) (State, []Command) {
	if !s.HasMedia() {
		return s, nil
	}
	s.Playback.CurrentTime = t
	if s.isKind(media.KindVideo) {
		return s, []Command{seek(t)}
	}
	return s, nil
}

func complete(s State) State {
	s.Playback.CurrentTime = s.Trim.End
	s.Playback.IsPlaying = false
	s.Playback.IsComplete = true
	return s
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
