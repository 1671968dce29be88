package editor

import "github.com/clipdeck/clipdeck/internal/media"

const (
	PlaceholderNoMedia  = "Upload media to preview it here"
	PlaceholderComplete = "Playback complete"
)

// Preview describes what the preview pane shows.
type Preview struct {
	Visible     bool       `json:"visible"`
	Kind        media.Kind `json:"kind,omitempty"`
	URL         string     `json:"url,omitempty"`
	Width       int        `json:"width,omitempty"`
	Height      int        `json:"height,omitempty"`
	Placeholder string     `json:"placeholder,omitempty"`
}

// RenderPreview shows the media only while it is loaded, playback has not
// completed and the clock sits inside the trim window.
func RenderPreview(s State) Preview {
	if !s.HasMedia() {
		return Preview{Placeholder: PlaceholderNoMedia}
	}
	if s.Playback.IsComplete || !s.Trim.Contains(s.Playback.CurrentTime) {
		return Preview{Placeholder: PlaceholderComplete}
	}
	return Preview{
		Visible: true,
		Kind:    s.Media.Kind,
		URL:     s.Media.URL,
		Width:   s.Dimensions.Width,
		Height:  s.Dimensions.Height,
	}
}
