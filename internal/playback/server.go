// Package playback serves uploaded media to the preview element, with byte
// range support so video players can seek.
package playback

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strconv"

	"github.com/clipdeck/clipdeck/internal/logging"
	"github.com/clipdeck/clipdeck/internal/media"
)

// MediaLookup resolves a live media reference by id.
type MediaLookup interface {
	Get(id string) (*media.Ref, bool)
}

type Server struct {
	media  MediaLookup
	logger *slog.Logger
}

func NewServer(lookup MediaLookup, logger *slog.Logger) *Server {
	return &Server{media: lookup, logger: logger}
}

// ServeMedia writes the media with the given id. Released or unknown ids are 404.
func (s *Server) ServeMedia(w http.ResponseWriter, r *http.Request, id string) error {
	ref, ok := s.media.Get(id)
	if !ok {
		http.Error(w, "media not found", http.StatusNotFound)
		return nil
	}

	file, err := os.Open(ref.Path())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			// released between lookup and open
			http.Error(w, "media not found", http.StatusNotFound)
			return nil
		}
		return fmt.Errorf("failed to open media: %w", err)
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat media: %w", err)
	}
	size := stat.Size()

	h := w.Header()
	h.Set("Accept-Ranges", "bytes")
	h.Set("Content-Type", ref.ContentType)
	h.Set("Cache-Control", "no-store")
	h.Set("ETag", strconv.Quote(ref.Fingerprint))

	br, partial, err := ParseRange(r.Header.Get("Range"), size)
	switch {
	case errors.Is(err, ErrUnsatisfiable):
		h.Set("Content-Range", fmt.Sprintf("bytes */%d", size))
		http.Error(w, "Range Not Satisfiable", http.StatusRequestedRangeNotSatisfiable)
		return nil
	case err != nil:
		// a malformed Range header is ignored and the whole file is sent
		logging.WithMediaID(s.logger, id).Debug("ignoring malformed range", "range", r.Header.Get("Range"))
		partial = false
	}

	if !partial {
		h.Set("Content-Length", strconv.FormatInt(size, 10))
		w.WriteHeader(http.StatusOK)
		if r.Method == http.MethodHead {
			return nil
		}
		_, err = io.Copy(w, file)
		return err
	}

	if _, err := file.Seek(br.Start, io.SeekStart); err != nil {
		return fmt.Errorf("failed to seek: %w", err)
	}
	h.Set("Content-Length", strconv.FormatInt(br.Length(), 10))
	h.Set("Content-Range", br.ContentRange(size))
	w.WriteHeader(http.StatusPartialContent)
	if r.Method == http.MethodHead {
		return nil
	}
	_, err = io.CopyN(w, file, br.Length())
	return err
}
