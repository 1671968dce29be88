package playback

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/clipdeck/clipdeck/internal/logging"
	"github.com/clipdeck/clipdeck/internal/media"
)

func setupServer(t *testing.T, content string) (*Server, *media.Store, *media.Ref) {
	t.Helper()
	store, err := media.NewStore(t.TempDir(), 0, logging.Discard())
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	ref, err := store.Acquire(context.Background(), strings.NewReader(content), "clip.mp4", "video/mp4")
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	return NewServer(store, logging.Discard()), store, ref
}

func serve(t *testing.T, s *Server, method, id, rangeHeader string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(method, "/media/"+id, nil)
	if rangeHeader != "" {
		req.Header.Set("Range", rangeHeader)
	}
	if err := s.ServeMedia(rr, req, id); err != nil {
		t.Fatalf("ServeMedia() error = %v", err)
	}
	return rr
}

func TestServeMedia_Full(t *testing.T) {
	s, _, ref := setupServer(t, "0123456789")
	rr := serve(t, s, http.MethodGet, ref.ID, "")

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if rr.Body.String() != "0123456789" {
		t.Errorf("body = %q", rr.Body.String())
	}
	if got := rr.Header().Get("Content-Type"); got != "video/mp4" {
		t.Errorf("Content-Type = %q", got)
	}
	if got := rr.Header().Get("Accept-Ranges"); got != "bytes" {
		t.Errorf("Accept-Ranges = %q", got)
	}
	if got := rr.Header().Get("Content-Length"); got != "10" {
		t.Errorf("Content-Length = %q", got)
	}
}

func TestServeMedia_Partial(t *testing.T) {
	s, _, ref := setupServer(t, "0123456789")
	rr := serve(t, s, http.MethodGet, ref.ID, "bytes=2-5")

	if rr.Code != http.StatusPartialContent {
		t.Fatalf("status = %d, want 206", rr.Code)
	}
	if rr.Body.String() != "2345" {
		t.Errorf("body = %q, want 2345", rr.Body.String())
	}
	if got := rr.Header().Get("Content-Range"); got != "bytes 2-5/10" {
		t.Errorf("Content-Range = %q", got)
	}
}

func TestServeMedia_Unsatisfiable(t *testing.T) {
	s, _, ref := setupServer(t, "0123456789")
	rr := serve(t, s, http.MethodGet, ref.ID, "bytes=50-")

	if rr.Code != http.StatusRequestedRangeNotSatisfiable {
		t.Fatalf("status = %d, want 416", rr.Code)
	}
	if got := rr.Header().Get("Content-Range"); got != "bytes */10" {
		t.Errorf("Content-Range = %q", got)
	}
}

func TestServeMedia_MalformedRangeServesWhole(t *testing.T) {
	s, _, ref := setupServer(t, "0123456789")
	rr := serve(t, s, http.MethodGet, ref.ID, "frames=1-2")

	if rr.Code != http.StatusOK || rr.Body.Len() != 10 {
		t.Fatalf("status = %d, body len = %d", rr.Code, rr.Body.Len())
	}
}

func TestServeMedia_Head(t *testing.T) {
	s, _, ref := setupServer(t, "0123456789")
	rr := serve(t, s, http.MethodHead, ref.ID, "")

	if rr.Code != http.StatusOK || rr.Body.Len() != 0 {
		t.Fatalf("status = %d, body len = %d", rr.Code, rr.Body.Len())
	}
}

func TestServeMedia_ReleasedIsGone(t *testing.T) {
	s, store, ref := setupServer(t, "0123456789")
	if err := store.Release(ref.ID); err != nil {
		t.Fatalf("Release() error = %v", err)
	}

	rr := serve(t, s, http.MethodGet, ref.ID, "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rr.Code)
	}
}
