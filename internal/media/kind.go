package media

import (
	"errors"
	"mime"
	"path/filepath"
	"strings"
)

// RejectionMessage is shown to the user when an upload is neither an image nor a video.
const RejectionMessage = "Please upload only images or videos"

var ErrUnsupportedMedia = errors.New(RejectionMessage)

type Kind string

const (
	KindImage Kind = "image"
	KindVideo Kind = "video"
)

func (k Kind) IsValid() bool {
	return k == KindImage || k == KindVideo
}

// Classify returns the coarse media kind of a MIME type, which is the part
// before the first "/". Only image and video are accepted.
func Classify(contentType string) (Kind, error) {
	category := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.IndexByte(category, '/'); i >= 0 {
		category = category[:i]
	}
	kind := Kind(category)
	if !kind.IsValid() {
		return "", ErrUnsupportedMedia
	}
	return kind, nil
}

// ResolveContentType returns the declared content type, falling back to the
// filename extension when the client did not declare one.
func ResolveContentType(declared, filename string) string {
	if ct := strings.TrimSpace(declared); ct != "" {
		return ct
	}
	if ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(filename))); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
