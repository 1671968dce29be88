package editor

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/clipdeck/clipdeck/internal/media"
)

var (
	imageRef = MediaRef{ID: "img-1", URL: "/media/img-1", Kind: media.KindImage}
	videoRef = MediaRef{ID: "vid-1", URL: "/media/vid-1", Kind: media.KindVideo}
)

func TestNew_Defaults(t *testing.T) {
	want := State{
		Dimensions: Dimensions{Width: 640, Height: 360},
		Trim:       TrimWindow{Start: 0, End: 10},
		Playback:   Playback{Duration: 60},
	}
	if diff := cmp.Diff(want, New()); diff != "" {
		t.Fatalf("New() mismatch (-want +got):\n%s", diff)
	}
	if New().Phase() != PhaseStopped {
		t.Fatalf("new editor should be stopped")
	}
}

func TestIntake_DefaultTrimPerKind(t *testing.T) {
	tests := []struct {
		name string
		ref  MediaRef
		want TrimWindow
	}{
		{"image", imageRef, TrimWindow{Start: 0, End: 5}},
		{"video", videoRef, TrimWindow{Start: 0, End: 10}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New()
			s = SetStart(s, 4)
			s = SetEnd(s, 30)
			s.Playback.IsComplete = true

			got := Intake(s, tt.ref)
			if diff := cmp.Diff(tt.want, got.Trim); diff != "" {
				t.Errorf("trim mismatch (-want +got):\n%s", diff)
			}
			if got.Playback.IsComplete {
				t.Error("intake should clear completion")
			}
			if got.Media == nil || got.Media.ID != tt.ref.ID {
				t.Errorf("media = %+v, want %s", got.Media, tt.ref.ID)
			}
		})
	}
}

func TestIntake_StopsPlaybackAndResetsDuration(t *testing.T) {
	s := Intake(New(), videoRef)
	s = ReportDuration(s, 95.7)
	s, _ = TogglePlay(s)
	s, _ = ReportTime(s, 4.2)

	s = Intake(s, imageRef)
	want := Playback{CurrentTime: 0, Duration: DefaultDuration}
	if diff := cmp.Diff(want, s.Playback); diff != "" {
		t.Fatalf("playback mismatch (-want +got):\n%s", diff)
	}
	if s.NeedsTicker() {
		t.Fatal("ticker should not run after intake")
	}
}

func TestIntake_DoesNotAliasCallerRef(t *testing.T) {
	ref := imageRef
	s := Intake(New(), ref)
	ref.URL = "/changed"
	if s.Media.URL != imageRef.URL {
		t.Fatalf("state media changed with caller copy: %q", s.Media.URL)
	}
}

func TestSetDimensions_Clamps(t *testing.T) {
	tests := []struct {
		w, h         int
		wantW, wantH int
	}{
		{800, 600, 800, 600},
		{50, 50, 100, 100},
		{5000, 5000, 1920, 1080},
		{1920, 1080, 1920, 1080},
		{100, 100, 100, 100},
	}
	for _, tt := range tests {
		got := SetDimensions(New(), tt.w, tt.h).Dimensions
		if got.Width != tt.wantW || got.Height != tt.wantH {
			t.Errorf("SetDimensions(%d, %d) = %+v, want {%d %d}", tt.w, tt.h, got, tt.wantW, tt.wantH)
		}
	}
}

func TestSetStartAndEnd(t *testing.T) {
	tests := []struct {
		name  string
		apply func(State) State
		want  TrimWindow
	}{
		{"start within", func(s State) State { return SetStart(s, 3) }, TrimWindow{3, 10}},
		{"negative start", func(s State) State { return SetStart(s, -2) }, TrimWindow{0, 10}},
		{"start past end pushes end", func(s State) State { return SetStart(s, 12) }, TrimWindow{12, 13}},
		{"end below start+1", func(s State) State { return SetEnd(SetStart(s, 3), 3.5) }, TrimWindow{3, 4}},
		{"end grows", func(s State) State { return SetEnd(s, 45) }, TrimWindow{0, 45}},
		{"nan ignored", func(s State) State { return SetEnd(SetStart(s, math.NaN()), math.Inf(1)) }, TrimWindow{0, 10}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.apply(New()).Trim
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("trim mismatch (-want +got):\n%s", diff)
			}
			if got.End <= got.Start {
				t.Errorf("end %v not after start %v", got.End, got.Start)
			}
		})
	}
}

func TestTransport_NoMediaIsNoop(t *testing.T) {
	s := New()
	ops := map[string]func(State) (State, []Command){
		"toggle":        TogglePlay,
		"skip to start": SkipToStart,
		"skip to end":   SkipToEnd,
		"scrub":         func(s State) (State, []Command) { return Scrub(s, 30) },
	}
	for name, op := range ops {
		got, cmds := op(s)
		if diff := cmp.Diff(s, got); diff != "" {
			t.Errorf("%s changed state without media:\n%s", name, diff)
		}
		if len(cmds) != 0 {
			t.Errorf("%s produced commands without media: %v", name, cmds)
		}
	}
}

// Upload a.png, play for five ticks, then play again.
func TestImagePlaybackScenario(t *testing.T) {
	s := Intake(New(), imageRef)
	if diff := cmp.Diff(TrimWindow{0, 5}, s.Trim); diff != "" {
		t.Fatalf("trim mismatch:\n%s", diff)
	}
	if s.Playback.IsComplete {
		t.Fatal("fresh image should not be complete")
	}

	s, cmds := TogglePlay(s)
	if len(cmds) != 0 {
		t.Fatalf("image playback should not command a player: %v", cmds)
	}
	if !s.NeedsTicker() {
		t.Fatal("image playback should use the software ticker")
	}

	for i := 1; i <= 4; i++ {
		s = Tick(s)
		if s.Playback.CurrentTime != float64(i) || !s.Playback.IsPlaying || s.Playback.IsComplete {
			t.Fatalf("after tick %d: %+v", i, s.Playback)
		}
		if !RenderPreview(s).Visible {
			t.Fatalf("preview hidden at tick %d", i)
		}
	}

	s = Tick(s)
	want := Playback{CurrentTime: 5, IsPlaying: false, IsComplete: true, Duration: 60}
	if diff := cmp.Diff(want, s.Playback); diff != "" {
		t.Fatalf("after tick 5 (-want +got):\n%s", diff)
	}
	if s.Phase() != PhaseComplete {
		t.Fatalf("phase = %s, want complete", s.Phase())
	}
	if p := RenderPreview(s); p.Visible || p.Placeholder != PlaceholderComplete {
		t.Fatalf("preview = %+v, want complete placeholder", p)
	}

	// further ticks do nothing once complete
	if diff := cmp.Diff(s, Tick(s)); diff != "" {
		t.Fatalf("tick after completion changed state:\n%s", diff)
	}

	s, _ = TogglePlay(s)
	want = Playback{CurrentTime: 0, IsPlaying: true, IsComplete: false, Duration: 60}
	if diff := cmp.Diff(want, s.Playback); diff != "" {
		t.Fatalf("replay (-want +got):\n%s", diff)
	}
}

func TestTogglePlay_RestartUsesTrimStart(t *testing.T) {
	s := Intake(New(), imageRef)
	s = SetStart(s, 2)
	s, _ = TogglePlay(s)
	for i := 0; i < 10 && !s.Playback.IsComplete; i++ {
		s = Tick(s)
	}
	if !s.Playback.IsComplete {
		t.Fatal("playback never completed")
	}

	s, _ = TogglePlay(s)
	if s.Playback.CurrentTime != 2 || s.Playback.IsComplete || !s.Playback.IsPlaying {
		t.Fatalf("restart = %+v, want playing from 2", s.Playback)
	}
}

func TestTogglePlay_PauseKeepsPosition(t *testing.T) {
	s := Intake(New(), imageRef)
	s, _ = TogglePlay(s)
	s = Tick(s)
	s = Tick(s)
	s, _ = TogglePlay(s)

	if s.Playback.IsPlaying || s.Playback.IsComplete || s.Playback.CurrentTime != 2 {
		t.Fatalf("paused = %+v", s.Playback)
	}
	if s.NeedsTicker() {
		t.Fatal("ticker should stop on pause")
	}
	if got := Tick(s); got.Playback.CurrentTime != 2 {
		t.Fatalf("tick while paused advanced clock to %v", got.Playback.CurrentTime)
	}
}

func TestTick_FractionalEnd(t *testing.T) {
	s := Intake(New(), imageRef)
	s = SetEnd(s, 2.5)
	s, _ = TogglePlay(s)
	s = Tick(s)
	s = Tick(s)
	s = Tick(s)

	if s.Playback.CurrentTime != 2.5 || !s.Playback.IsComplete {
		t.Fatalf("playback = %+v, want complete at 2.5", s.Playback)
	}
}

func TestVideo_TogglePlayCommands(t *testing.T) {
	s := Intake(New(), videoRef)
	s, _ = Scrub(s, 3)

	s, cmds := TogglePlay(s)
	want := []Command{{Action: ActionSeek, Position: 3}, {Action: ActionPlay}}
	if diff := cmp.Diff(want, cmds); diff != "" {
		t.Fatalf("play commands (-want +got):\n%s", diff)
	}
	if s.NeedsTicker() {
		t.Fatal("video must not be driven by the software ticker")
	}

	_, cmds = TogglePlay(s)
	if diff := cmp.Diff([]Command{{Action: ActionPause}}, cmds); diff != "" {
		t.Fatalf("pause commands (-want +got):\n%s", diff)
	}
}

func TestVideo_TickIsIgnored(t *testing.T) {
	s := Intake(New(), videoRef)
	s, _ = TogglePlay(s)
	if diff := cmp.Diff(s, Tick(s)); diff != "" {
		t.Fatalf("tick changed video state:\n%s", diff)
	}
}

func TestVideo_ReportTime(t *testing.T) {
	s := Intake(New(), videoRef)
	s, _ = TogglePlay(s)

	s, cmds := ReportTime(s, 4.8)
	if s.Playback.CurrentTime != 4 || len(cmds) != 0 {
		t.Fatalf("ReportTime(4.8) = %+v, %v", s.Playback, cmds)
	}

	s, cmds = ReportTime(s, 10.2)
	want := Playback{CurrentTime: 10, IsComplete: true, Duration: 60}
	if diff := cmp.Diff(want, s.Playback); diff != "" {
		t.Fatalf("completion (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]Command{{Action: ActionPause}}, cmds); diff != "" {
		t.Fatalf("completion commands (-want +got):\n%s", diff)
	}

	// late updates after completion are dropped
	after, cmds := ReportTime(s, 3)
	if diff := cmp.Diff(s, after); diff != "" || len(cmds) != 0 {
		t.Fatalf("update after completion applied:\n%s", diff)
	}
}

func TestImage_ReportTimeIgnored(t *testing.T) {
	s := Intake(New(), imageRef)
	s, _ = TogglePlay(s)
	got, cmds := ReportTime(s, 3)
	if diff := cmp.Diff(s, got); diff != "" || len(cmds) != 0 {
		t.Fatalf("image accepted native time:\n%s", diff)
	}
}

func TestReportDuration(t *testing.T) {
	s := Intake(New(), videoRef)
	if got := ReportDuration(s, 125.9).Playback.Duration; got != 125 {
		t.Errorf("duration = %v, want 125", got)
	}
	if got := ReportDuration(s, 0).Playback.Duration; got != 60 {
		t.Errorf("zero duration applied: %v", got)
	}
	if got := ReportDuration(s, math.Inf(1)).Playback.Duration; got != 60 {
		t.Errorf("infinite duration applied: %v", got)
	}
	img := Intake(New(), imageRef)
	if got := ReportDuration(img, 30).Playback.Duration; got != 60 {
		t.Errorf("image accepted duration: %v", got)
	}
}

func TestSkip(t *testing.T) {
	s := Intake(New(), imageRef)
	s = SetStart(s, 1)
	s = SetEnd(s, 4)

	s, _ = SkipToEnd(s)
	if s.Playback.CurrentTime != 4 {
		t.Fatalf("SkipToEnd = %v, want 4", s.Playback.CurrentTime)
	}
	s, _ = SkipToStart(s)
	if s.Playback.CurrentTime != 1 {
		t.Fatalf("SkipToStart = %v, want 1", s.Playback.CurrentTime)
	}

	v := Intake(New(), videoRef)
	_, cmds := SkipToEnd(v)
	if diff := cmp.Diff([]Command{{Action: ActionSeek, Position: 10}}, cmds); diff != "" {
		t.Fatalf("video skip commands (-want +got):\n%s", diff)
	}
}

func TestScrub_Clamps(t *testing.T) {
	s := Intake(New(), imageRef)
	tests := []struct {
		in, want float64
	}{
		{12, 12},
		{-3, 0},
		{90, 60},
	}
	for _, tt := range tests {
		got, _ := Scrub(s, tt.in)
		if got.Playback.CurrentTime != tt.want {
			t.Errorf("Scrub(%v) = %v, want %v", tt.in, got.Playback.CurrentTime, tt.want)
		}
	}
}

// Start=3, End=8, scrub to 8: the preview stays up until the next tick completes playback.
func TestScrubToEndHidesOnNextTick(t *testing.T) {
	s := Intake(New(), imageRef)
	s = SetStart(s, 3)
	s = SetEnd(s, 8)
	s, _ = TogglePlay(s)
	s, _ = Scrub(s, 8)

	if s.Playback.IsComplete || !RenderPreview(s).Visible {
		t.Fatalf("scrub alone should not complete: %+v", s.Playback)
	}

	s = Tick(s)
	if !s.Playback.IsComplete || s.Playback.CurrentTime != 8 || s.Playback.IsPlaying {
		t.Fatalf("after tick = %+v, want complete at 8", s.Playback)
	}
	if RenderPreview(s).Visible {
		t.Fatal("preview should be hidden once complete")
	}
}

func TestRenderPreview(t *testing.T) {
	loaded := SetDimensions(Intake(New(), imageRef), 800, 450)
	loaded = SetStart(loaded, 2)

	tests := []struct {
		name  string
		state State
		want  Preview
	}{
		{"no media", New(), Preview{Placeholder: PlaceholderNoMedia}},
		{"before window", loaded, Preview{Placeholder: PlaceholderComplete}},
		{"inside window", func() State { s, _ := SkipToStart(loaded); return s }(),
			Preview{Visible: true, Kind: media.KindImage, URL: "/media/img-1", Width: 800, Height: 450}},
		{"at end bound", func() State { s, _ := SkipToEnd(loaded); return s }(),
			Preview{Visible: true, Kind: media.KindImage, URL: "/media/img-1", Width: 800, Height: 450}},
		{"complete", func() State { s := loaded; s.Playback.CurrentTime = 3; s.Playback.IsComplete = true; return s }(),
			Preview{Placeholder: PlaceholderComplete}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, RenderPreview(tt.state)); diff != "" {
				t.Errorf("preview mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestPlayingNeverComplete(t *testing.T) {
	s := Intake(New(), imageRef)
	steps := []func(State) State{
		func(s State) State { s, _ = TogglePlay(s); return s },
		Tick, Tick, Tick, Tick, Tick, Tick,
		func(s State) State { s, _ = TogglePlay(s); return s },
		Tick,
		func(s State) State { s, _ = SkipToEnd(s); return s },
		Tick,
		func(s State) State { s, _ = TogglePlay(s); return s },
	}
	for i, step := range steps {
		s = step(s)
		if s.Playback.IsPlaying && s.Playback.IsComplete {
			t.Fatalf("step %d: playing and complete at once: %+v", i, s.Playback)
		}
	}
}
