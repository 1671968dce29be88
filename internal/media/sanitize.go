package media

import (
	"path/filepath"
	"strings"
	"unicode"
)

const maxFilenameRunes = 120

// SanitizeFilename strips any directory part and control characters from an
// uploaded filename and replaces characters outside a conservative set with '_'.
// The result is a bare base name. The store keeps only its extension when
// naming the file on disk, under a generated id.
func SanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" {
		return "upload"
	}

	var b strings.Builder
	for _, r := range name {
		switch {
		case unicode.IsControl(r):
		case unicode.IsLetter(r), unicode.IsDigit(r):
			b.WriteRune(r)
		case strings.ContainsRune(" -_.,()", r):
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}

	cleaned := strings.TrimSpace(b.String())
	runes := []rune(cleaned)
	if len(runes) > maxFilenameRunes {
		// keep the extension visible
		ext := []rune(filepath.Ext(cleaned))
		if len(ext) >= maxFilenameRunes {
			ext = nil
		}
		cleaned = string(runes[:maxFilenameRunes-len(ext)]) + string(ext)
	}
	if cleaned == "" {
		return "upload"
	}
	return cleaned
}
