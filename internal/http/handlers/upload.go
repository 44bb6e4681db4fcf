package handlers

import (
	"errors"
	"io"
	"net/http"

	"server/internal/domain"
	"server/internal/middleware"
	"server/internal/session"
)

type uploadResponse struct {
	SessionID        string `json:"session_id"`
	ScreenshotCount  int    `json:"screenshot_count"`
	Category         string `json:"category"`
	ExpiresInSeconds int    `json:"expires_in_seconds"`
}

// CreateSession stages a batch of listing screenshots. Parts with a
// disallowed content type are dropped without failing the request, bodies
// are truncated at the per-file ceiling, and anything past the screenshot
// cap is ignored.
func (a *App) CreateSession(w http.ResponseWriter, r *http.Request) {
	// Parse limit covers the full accepted batch plus form overhead.
	limit := int64(a.Sessions.MaxScreenshots())*a.Sessions.MaxBytes() + 1<<20
	if err := r.ParseMultipartForm(limit); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid multipart payload")
		return
	}

	category := domain.Category(r.FormValue("category"))
	var uploads []session.Upload
	if r.MultipartForm != nil {
		for _, header := range r.MultipartForm.File["screenshots"] {
			file, err := header.Open()
			if err != nil {
				continue
			}
			data, err := io.ReadAll(io.LimitReader(file, a.Sessions.MaxBytes()))
			file.Close()
			if err != nil {
				continue
			}
			uploads = append(uploads, session.Upload{
				Data:        data,
				ContentType: header.Header.Get("Content-Type"),
			})
		}
	}

	sess, err := a.Sessions.Create(r.Context(), category, uploads)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidCategory):
			a.error(w, http.StatusBadRequest, "invalid_category", "unknown listing category")
		case errors.Is(err, domain.ErrNoValidScreenshots):
			a.error(w, http.StatusBadRequest, "no_valid_files", "no valid screenshot files in upload")
		default:
			a.Logger.Error().Err(err).Msg("upload: create session failed")
			a.error(w, http.StatusInternalServerError, "internal", "failed to create session")
		}
		return
	}

	a.logUpload(r, sess)

	a.json(w, http.StatusCreated, uploadResponse{
		SessionID:        sess.ID,
		ScreenshotCount:  sess.ScreenshotCount,
		Category:         string(sess.Category),
		ExpiresInSeconds: int(a.Sessions.TTL().Seconds()),
	})
}

func (a *App) logUpload(r *http.Request, sess *domain.Session) {
	evt := a.Logger.Info().
		Str("session_id", sess.ID).
		Str("category", string(sess.Category)).
		Int("screenshots", sess.ScreenshotCount)
	if a.Geo != nil {
		if country, err := a.Geo.CountryCode(middleware.ClientIP(r)); err == nil && country != "" {
			evt = evt.Str("country", country)
		}
	}
	evt.Msg("upload: session created")
}
