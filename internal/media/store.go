package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"

	"github.com/clipdeck/clipdeck/internal/logging"
)

var ErrTooLarge = errors.New("upload exceeds size limit")

// URLPrefix is the path under which live media is served.
const URLPrefix = "/media/"

// Ref is a transient handle to an uploaded file, usable as a display source
// until it is released.
type Ref struct {
	ID          string    `json:"id"`
	Kind        Kind      `json:"kind"`
	ContentType string    `json:"content_type"`
	Filename    string    `json:"filename"`
	Size        int64     `json:"size"`
	Fingerprint string    `json:"fingerprint"`
	CreatedAt   time.Time `json:"created_at"`

	path string
}

// URL returns the temporary URL the client loads the media from.
func (r *Ref) URL() string {
	return URLPrefix + r.ID
}

func (r *Ref) Path() string {
	return r.path
}

// Store keeps uploaded media on disk for as long as a session references it.
type Store struct {
	dir      string
	maxBytes int64
	logger   *slog.Logger

	mu   sync.RWMutex
	refs map[string]*Ref
}

func NewStore(dir string, maxBytes int64, logger *slog.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create media dir: %w", err)
	}
	return &Store{
		dir:      dir,
		maxBytes: maxBytes,
		logger:   logging.WithComponent(logger, "media"),
		refs:     make(map[string]*Ref),
	}, nil
}

// Acquire validates the coarse media kind and copies the upload to disk. Nothing
// is written when the kind is rejected.
func (s *Store) Acquire(ctx context.Context, src io.Reader, filename, contentType string) (*Ref, error) {
	contentType = ResolveContentType(contentType, filename)
	kind, err := Classify(contentType)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ref := &Ref{
		ID:          uuid.NewString(),
		Kind:        kind,
		ContentType: contentType,
		Filename:    SanitizeFilename(filename),
		CreatedAt:   time.Now(),
	}
	// the sanitized extension has no separators, so the file stays inside dir
	ref.path = filepath.Join(s.dir, ref.ID+filepath.Ext(ref.Filename))

	f, err := os.Create(ref.path)
	if err != nil {
		return nil, fmt.Errorf("failed to create media file: %w", err)
	}

	h := xxhash.New()
	reader := src
	if s.maxBytes > 0 {
		reader = io.LimitReader(src, s.maxBytes+1)
	}
	n, err := io.Copy(io.MultiWriter(f, h), reader)
	closeErr := f.Close()
	if err == nil {
		err = closeErr
	}
	if err == nil && s.maxBytes > 0 && n > s.maxBytes {
		err = ErrTooLarge
	}
	if err != nil {
		os.Remove(ref.path)
		if errors.Is(err, ErrTooLarge) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to write media file: %w", err)
	}

	ref.Size = n
	ref.Fingerprint = fmt.Sprintf("%016x", h.Sum64())

	s.mu.Lock()
	s.refs[ref.ID] = ref
	s.mu.Unlock()

	s.logger.Info("media acquired",
		"media_id", ref.ID,
		"kind", ref.Kind,
		"filename", ref.Filename,
		"size", logging.Bytes(ref.Size),
	)
	return ref, nil
}

// Get returns a live reference by id.
func (s *Store) Get(id string) (*Ref, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ref, ok := s.refs[id]
	return ref, ok
}

// Release invalidates the reference and removes its bytes. Releasing an
// unknown or already released id is a no-op.
func (s *Store) Release(id string) error {
	s.mu.Lock()
	ref, ok := s.refs[id]
	delete(s.refs, id)
	s.mu.Unlock()

	if !ok {
		return nil
	}
	if err := os.Remove(ref.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove media file: %w", err)
	}
	s.logger.Info("media released", "media_id", id)
	return nil
}

// Len returns the number of live references.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.refs)
}

// Close releases every live reference.
func (s *Store) Close() error {
	s.mu.RLock()
	ids := make([]string, 0, len(s.refs))
	for id := range s.refs {
		ids = append(ids, id)
	}
	s.mu.RUnlock()

	var errs []error
	for _, id := range ids {
		if err := s.Release(id); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
