// Package session runs editor state for connected clients. A Session
// serializes every transition behind one mutex, drives the software clock for
// image playback, publishes each change on the session's event stream and owns
// the lifetime of the uploaded media.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/clipdeck/clipdeck/internal/editor"
	"github.com/clipdeck/clipdeck/internal/events"
	"github.com/clipdeck/clipdeck/internal/media"
	"github.com/clipdeck/clipdeck/internal/timeline"
)

var (
	ErrNoMedia  = errors.New("no media loaded")
	ErrNotVideo = errors.New("loaded media is not a video")
	ErrClosed   = errors.New("session closed")
)

// timecodeFPS is the frame rate used for the timecode shown in views.
const timecodeFPS = 30

type MediaStore interface {
	Acquire(ctx context.Context, src io.Reader, filename, contentType string) (*media.Ref, error)
	Release(id string) error
}

// Notice is a user-facing message, such as an upload rejection.
type Notice struct {
	Message string `json:"message"`
}

// View is the session as a client renders it.
type View struct {
	ID       string            `json:"id"`
	Phase    editor.Phase      `json:"phase"`
	State    editor.State      `json:"state"`
	Preview  editor.Preview    `json:"preview"`
	Scrubber timeline.Scrubber `json:"scrubber"`
	Readout  string            `json:"readout"`
	Position string            `json:"position"`
	Timecode string            `json:"timecode"`
}

type Session struct {
	id        string
	createdAt time.Time
	interval  time.Duration
	store     MediaStore
	events    events.Publisher
	logger    *slog.Logger

	mu         sync.Mutex
	state      editor.State
	closed     bool
	tickerGen  uint64
	stopTicker context.CancelFunc
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) CreatedAt() time.Time {
	return s.createdAt
}

// State returns a snapshot of the editor state.
func (s *Session) State() editor.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

// Intake stores an uploaded file and loads it into the editor, releasing the
// media it replaces. Rejected uploads leave the editor untouched and publish
// a single notice.
func (s *Session) Intake(ctx context.Context, src io.Reader, filename, contentType string) (View, error) {
	if s.isClosed() {
		return View{}, ErrClosed
	}

	ref, err := s.store.Acquire(ctx, src, filename, contentType)
	if err != nil {
		if message, ok := rejectionNotice(err); ok {
			s.notify(message)
			s.logger.Warn("upload rejected", "filename", media.SanitizeFilename(filename), "content_type", contentType, "error", err)
		}
		return View{}, err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		s.release(ref.ID)
		return View{}, ErrClosed
	}
	var previous string
	if s.state.Media != nil {
		previous = s.state.Media.ID
	}
	s.state = editor.Intake(s.state, editor.MediaRef{ID: ref.ID, URL: ref.URL(), Kind: ref.Kind})
	s.syncTickerLocked()
	view := s.publishLocked(nil)
	s.mu.Unlock()

	if previous != "" {
		s.release(previous)
	}
	s.logger.Info("media loaded", "media_id", ref.ID, "kind", ref.Kind, "replaced", previous)
	return view, nil
}

// SetDimensions updates whichever sides are given, keeping the other.
func (s *Session) SetDimensions(width, height *int) (View, error) {
	return s.apply(nil, func(st editor.State) (editor.State, []editor.Command) {
		dims := st.Dimensions
		if width != nil {
			dims.Width = *width
		}
		if height != nil {
			dims.Height = *height
		}
		return editor.SetDimensions(st, dims.Width, dims.Height), nil
	})
}

// SetTrim updates whichever bounds are given. Start is applied first.
func (s *Session) SetTrim(start, end *float64) (View, error) {
	return s.apply(nil, func(st editor.State) (editor.State, []editor.Command) {
		if start != nil {
			st = editor.SetStart(st, *start)
		}
		if end != nil {
			st = editor.SetEnd(st, *end)
		}
		return st, nil
	})
}

func (s *Session) TogglePlay() (View, error) {
	return s.apply(requireMedia, editor.TogglePlay)
}

func (s *Session) SkipToStart() (View, error) {
	return s.apply(requireMedia, editor.SkipToStart)
}

func (s *Session) SkipToEnd() (View, error) {
	return s.apply(requireMedia, editor.SkipToEnd)
}

func (s *Session) Scrub(position float64) (View, error) {
	return s.apply(requireMedia, func(st editor.State) (editor.State, []editor.Command) {
		return editor.Scrub(st, position)
	})
}

// ReportDuration records the duration read from the video's metadata.
func (s *Session) ReportDuration(duration float64) (View, error) {
	return s.apply(requireVideo, func(st editor.State) (editor.State, []editor.Command) {
		return editor.ReportDuration(st, duration), nil
	})
}

// ReportTime records a time update from the client's video element.
func (s *Session) ReportTime(t float64) (View, error) {
	return s.apply(requireVideo, func(st editor.State) (editor.State, []editor.Command) {
		return editor.ReportTime(st, t)
	})
}

// Close stops the clock and releases the loaded media.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.haltTickerLocked()
	var mediaID string
	if s.state.Media != nil {
		mediaID = s.state.Media.ID
		s.state.Media = nil
	}
	s.mu.Unlock()

	s.events.Close(s.id)
	if mediaID != "" {
		if err := s.store.Release(mediaID); err != nil {
			return fmt.Errorf("failed to release media %s: %w", mediaID, err)
		}
	}
	s.logger.Info("session closed")
	return nil
}

type transition func(editor.State) (editor.State, []editor.Command)

// apply runs fn under the session lock once guard accepts the current state.
func (s *Session) apply(guard func(editor.State) error, fn transition) (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return View{}, ErrClosed
	}
	if guard != nil {
		if err := guard(s.state); err != nil {
			return s.viewLocked(), err
		}
	}
	var cmds []editor.Command
	s.state, cmds = fn(s.state)
	s.syncTickerLocked()
	return s.publishLocked(cmds), nil
}

func requireMedia(st editor.State) error {
	if !st.HasMedia() {
		return ErrNoMedia
	}
	return nil
}

func requireVideo(st editor.State) error {
	if err := requireMedia(st); err != nil {
		return err
	}
	if st.Media.Kind != media.KindVideo {
		return ErrNotVideo
	}
	return nil
}

// syncTickerLocked starts or stops the software clock to match the state.
func (s *Session) syncTickerLocked() {
	want := s.state.NeedsTicker()
	running := s.stopTicker != nil
	switch {
	case want && !running:
		ctx, cancel := context.WithCancel(context.Background())
		s.tickerGen++
		s.stopTicker = cancel
		go s.runTicker(ctx, s.tickerGen)
	case !want && running:
		s.haltTickerLocked()
	}
}

func (s *Session) haltTickerLocked() {
	if s.stopTicker != nil {
		s.stopTicker()
		s.stopTicker = nil
	}
}

func (s *Session) runTicker(ctx context.Context, gen uint64) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !s.tick(gen) {
				return
			}
		}
	}
}

// tick applies one clock step. It reports whether the ticker should keep running.
func (s *Session) tick(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	// a ticker replaced or stopped while waiting for the lock must not step the clock
	if s.closed || gen != s.tickerGen || s.stopTicker == nil {
		return false
	}
	s.state = editor.Tick(s.state)
	s.syncTickerLocked()
	s.publishLocked(nil)

	if s.state.Playback.IsComplete {
		s.logger.Info("playback complete", "current_time", s.state.Playback.CurrentTime)
	}
	return s.stopTicker != nil
}

func (s *Session) publishLocked(cmds []editor.Command) View {
	view := s.viewLocked()
	if err := s.events.Publish(s.id, events.TypeState, view); err != nil {
		s.logger.Warn("failed to publish state", "error", err)
	}
	for _, cmd := range cmds {
		if err := s.events.Publish(s.id, events.TypeCommand, cmd); err != nil {
			s.logger.Warn("failed to publish command", "action", cmd.Action, "error", err)
		}
	}
	return view
}

func (s *Session) viewLocked() View {
	st := s.state
	pb := st.Playback
	return View{
		ID:       s.id,
		Phase:    st.Phase(),
		State:    st,
		Preview:  editor.RenderPreview(st),
		Scrubber: timeline.NewScrubber(pb.CurrentTime, pb.Duration, st.Trim.Start, st.Trim.End, st.HasMedia()),
		Readout:  timeline.Readout(pb.CurrentTime, pb.Duration),
		Position: timeline.PositionLabel(pb.CurrentTime),
		Timecode: timeline.Timecode(pb.CurrentTime, timecodeFPS),
	}
}

func (s *Session) notify(message string) {
	if err := s.events.Publish(s.id, events.TypeNotice, Notice{Message: message}); err != nil {
		s.logger.Warn("failed to publish notice", "error", err)
	}
}

func (s *Session) release(mediaID string) {
	if err := s.store.Release(mediaID); err != nil {
		s.logger.Error("failed to release media", "media_id", mediaID, "error", err)
	}
}

func (s *Session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// rejectionNotice returns the user-facing message for an intake error that is
// the uploader's fault. A body cut off by http.MaxBytesReader counts as too large.
func rejectionNotice(err error) (string, bool) {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.Is(err, media.ErrUnsupportedMedia):
		return media.RejectionMessage, true
	case errors.Is(err, media.ErrTooLarge), errors.As(err, &maxBytes):
		return media.ErrTooLarge.Error(), true
	}
	return "", false
}
