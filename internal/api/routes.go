package api

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/clipdeck/clipdeck/internal/media"
	"github.com/clipdeck/clipdeck/internal/session"
)

// uploadFormField is the multipart field that carries the file.
const uploadFormField = "file"

// multipartOverhead is the slack allowed on top of the file limit for part headers.
const multipartOverhead = 1 << 20

func NewRouter(cfg ServerConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware())
	r.Use(RecoveryMiddleware(cfg.Logger))
	r.Use(LoggingMiddleware(cfg.Logger))

	r.Get("/health", healthHandler(cfg))

	// Media elements and EventSource cannot send headers; ids are unguessable.
	r.Get("/media/{id}", mediaHandler(cfg))
	r.Head("/media/{id}", mediaHandler(cfg))
	r.Get("/events", eventsHandler(cfg))

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(cfg.AuthToken, cfg.Logger))

		r.Post("/sessions", createSessionHandler(cfg))
		r.Route("/sessions/{id}", func(r chi.Router) {
			r.Get("/", getSessionHandler(cfg))
			r.Delete("/", deleteSessionHandler(cfg))
			r.Post("/media", uploadHandler(cfg))
			r.Put("/dimensions", dimensionsHandler(cfg))
			r.Put("/trim", trimHandler(cfg))
			r.Post("/play", transportHandler(cfg, (*session.Session).TogglePlay))
			r.Post("/skip-start", transportHandler(cfg, (*session.Session).SkipToStart))
			r.Post("/skip-end", transportHandler(cfg, (*session.Session).SkipToEnd))
			r.Post("/scrub", scrubHandler(cfg))
			r.Post("/video/metadata", videoMetadataHandler(cfg))
			r.Post("/video/time", videoTimeHandler(cfg))
		})
	})

	return CORS(cfg.AllowedOrigins).Handler(r)
}

func healthHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uptime := int64(time.Since(cfg.StartTime).Seconds())
		WriteJSON(w, http.StatusOK, HealthResponse{
			Status:   "ok",
			Version:  cfg.Version,
			UptimeS:  uptime,
			Sessions: cfg.Sessions.Count(),
		})
	}
}

func mediaHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if err := cfg.Playback.ServeMedia(w, r, id); err != nil {
			cfg.Logger.Error("failed to serve media", "media_id", id, "error", err)
			WriteError(w, http.StatusInternalServerError, "failed to serve media", "INTERNAL_ERROR")
		}
	}
}

func eventsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stream := r.URL.Query().Get("stream")
		if stream == "" {
			WriteError(w, http.StatusBadRequest, "stream is required", "BAD_REQUEST")
			return
		}
		if _, err := cfg.Sessions.Get(stream); err != nil {
			WriteError(w, http.StatusNotFound, "session not found", "NOT_FOUND")
			return
		}
		cfg.Events.ServeHTTP(w, r)
	}
}

func createSessionHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := cfg.Sessions.Create()
		WriteJSON(w, http.StatusCreated, s.View())
	}
}

func getSessionHandler(cfg ServerConfig) http.HandlerFunc {
	return withSession(cfg, func(w http.ResponseWriter, r *http.Request, s *session.Session) {
		WriteJSON(w, http.StatusOK, s.View())
	})
}

func deleteSessionHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := cfg.Sessions.Close(chi.URLParam(r, "id")); err != nil {
			writeSessionError(w, cfg, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func uploadHandler(cfg ServerConfig) http.HandlerFunc {
	return withSession(cfg, func(w http.ResponseWriter, r *http.Request, s *session.Session) {
		mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
		if err != nil || mediaType != "multipart/form-data" {
			WriteError(w, http.StatusBadRequest, "expected multipart/form-data", "BAD_REQUEST")
			return
		}
		if cfg.MaxUploadBytes > 0 {
			r.Body = http.MaxBytesReader(w, r.Body, cfg.MaxUploadBytes+multipartOverhead)
		}

		reader, err := r.MultipartReader()
		if err != nil {
			WriteError(w, http.StatusBadRequest, "invalid multipart body", "BAD_REQUEST")
			return
		}

		for {
			part, err := reader.NextPart()
			if err == io.EOF {
				WriteError(w, http.StatusBadRequest, "file is required", "BAD_REQUEST")
				return
			}
			if err != nil {
				writeSessionError(w, cfg, err)
				return
			}
			if part.FormName() != uploadFormField {
				part.Close()
				continue
			}

			view, err := s.Intake(r.Context(), part, part.FileName(), part.Header.Get("Content-Type"))
			part.Close()
			if err != nil {
				writeSessionError(w, cfg, err)
				return
			}
			WriteJSON(w, http.StatusOK, view)
			return
		}
	})
}

func dimensionsHandler(cfg ServerConfig) http.HandlerFunc {
	return withSession(cfg, func(w http.ResponseWriter, r *http.Request, s *session.Session) {
		var req DimensionsRequest
		if !decodeBody(w, r, &req) {
			return
		}
		writeResult(w, cfg)(s.SetDimensions(req.Width, req.Height))
	})
}

func trimHandler(cfg ServerConfig) http.HandlerFunc {
	return withSession(cfg, func(w http.ResponseWriter, r *http.Request, s *session.Session) {
		var req TrimRequest
		if !decodeBody(w, r, &req) {
			return
		}
		writeResult(w, cfg)(s.SetTrim(req.Start, req.End))
	})
}

func transportHandler(cfg ServerConfig, op func(*session.Session) (session.View, error)) http.HandlerFunc {
	return withSession(cfg, func(w http.ResponseWriter, r *http.Request, s *session.Session) {
		writeResult(w, cfg)(op(s))
	})
}

func scrubHandler(cfg ServerConfig) http.HandlerFunc {
	return withSession(cfg, func(w http.ResponseWriter, r *http.Request, s *session.Session) {
		var req ScrubRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if req.Position == nil {
			WriteError(w, http.StatusBadRequest, "position is required", "BAD_REQUEST")
			return
		}
		writeResult(w, cfg)(s.Scrub(*req.Position))
	})
}

func videoMetadataHandler(cfg ServerConfig) http.HandlerFunc {
	return withSession(cfg, func(w http.ResponseWriter, r *http.Request, s *session.Session) {
		var req VideoMetadataRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if req.Duration == nil {
			WriteError(w, http.StatusBadRequest, "duration is required", "BAD_REQUEST")
			return
		}
		writeResult(w, cfg)(s.ReportDuration(*req.Duration))
	})
}

func videoTimeHandler(cfg ServerConfig) http.HandlerFunc {
	return withSession(cfg, func(w http.ResponseWriter, r *http.Request, s *session.Session) {
		var req VideoTimeRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if req.CurrentTime == nil {
			WriteError(w, http.StatusBadRequest, "current_time is required", "BAD_REQUEST")
			return
		}
		writeResult(w, cfg)(s.ReportTime(*req.CurrentTime))
	})
}

func withSession(cfg ServerConfig, fn func(http.ResponseWriter, *http.Request, *session.Session)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := cfg.Sessions.Get(chi.URLParam(r, "id"))
		if err != nil {
			writeSessionError(w, cfg, err)
			return
		}
		fn(w, r, s)
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
		return false
	}
	return true
}

func writeResult(w http.ResponseWriter, cfg ServerConfig) func(session.View, error) {
	return func(view session.View, err error) {
		if err != nil {
			writeSessionError(w, cfg, err)
			return
		}
		WriteJSON(w, http.StatusOK, view)
	}
}

func writeSessionError(w http.ResponseWriter, cfg ServerConfig, err error) {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.Is(err, session.ErrNotFound), errors.Is(err, session.ErrClosed):
		WriteError(w, http.StatusNotFound, "session not found", "NOT_FOUND")
	case errors.Is(err, session.ErrNoMedia):
		WriteError(w, http.StatusConflict, err.Error(), "NO_MEDIA")
	case errors.Is(err, session.ErrNotVideo):
		WriteError(w, http.StatusConflict, err.Error(), "NOT_VIDEO")
	case errors.Is(err, media.ErrUnsupportedMedia):
		WriteError(w, http.StatusUnsupportedMediaType, media.RejectionMessage, "UNSUPPORTED_MEDIA")
	case errors.Is(err, media.ErrTooLarge), errors.As(err, &maxBytes):
		WriteError(w, http.StatusRequestEntityTooLarge, media.ErrTooLarge.Error(), "TOO_LARGE")
	default:
		cfg.Logger.Error("request failed", "error", err)
		WriteError(w, http.StatusInternalServerError, "internal server error", "INTERNAL_ERROR")
	}
}
