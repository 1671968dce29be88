package api

type HealthResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	UptimeS  int64  `json:"uptime_s"`
	Sessions int    `json:"sessions"`
}

// DimensionsRequest sets the preview size. Omitted fields keep their value.
type DimensionsRequest struct {
	Width  *int `json:"width,omitempty"`
	Height *int `json:"height,omitempty"`
}

// TrimRequest sets the trim window. Omitted fields keep their value.
type TrimRequest struct {
	Start *float64 `json:"start,omitempty"`
	End   *float64 `json:"end,omitempty"`
}

type ScrubRequest struct {
	Position *float64 `json:"position"`
}

type VideoMetadataRequest struct {
	Duration *float64 `json:"duration"`
}

type VideoTimeRequest struct {
	CurrentTime *float64 `json:"current_time"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}
