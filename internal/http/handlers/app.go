package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"caricagen/internal/generate"
	"caricagen/internal/i18n"
	"caricagen/internal/imageproc"
	"caricagen/internal/infra"
	"caricagen/internal/middleware"
	"caricagen/internal/prompt"
	"caricagen/internal/wizard"
)

const defaultMaxBodyBytes = 20 << 20

// App carries the dependencies shared by every handler.
type App struct {
	Config    *infra.Config
	Logger    infra.Logger
	Generator wizard.Generator
	Sessions  *wizard.Store
	Templates *prompt.Templates
	Crop      imageproc.CropOptions
	Now       func() time.Time
}

type errorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
	Hint    string `json:"hint,omitempty"`
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// error writes a localized {error, code} payload. message is the English key.
func (a *App) error(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	locale := middleware.LocaleFromContext(r.Context())
	a.json(w, status, errorResponse{Error: i18n.T(locale, message), Code: code})
}

// generationError renders a *generate.Error as {error, details, hint}.
func (a *App) generationError(w http.ResponseWriter, r *http.Request, err error) {
	var genErr *generate.Error
	if !errors.As(err, &genErr) {
		a.error(w, r, http.StatusInternalServerError, "internal", generate.MessageFailed)
		return
	}
	locale := middleware.LocaleFromContext(r.Context())
	a.json(w, genErr.Status, errorResponse{
		Error:   i18n.T(locale, genErr.Message),
		Details: genErr.Details,
		Hint:    i18n.T(locale, genErr.Hint),
	})
}

// decode reads a JSON body capped at MaxBodyBytes. It writes the error
// response itself and reports whether decoding succeeded.
func (a *App) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, a.maxBodyBytes())
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			a.error(w, r, http.StatusRequestEntityTooLarge, "too_large", "Invalid request body")
			return false
		}
		a.error(w, r, http.StatusBadRequest, "bad_request", "Invalid request body")
		return false
	}
	return true
}

func (a *App) maxBodyBytes() int64 {
	if a.Config != nil && a.Config.MaxBodyBytes > 0 {
		return a.Config.MaxBodyBytes
	}
	return defaultMaxBodyBytes
}

func (a *App) cropOptions() imageproc.CropOptions {
	if a.Crop.Base > 0 && a.Crop.Multiple > 0 {
		return a.Crop
	}
	return imageproc.DefaultCropOptions
}

func (a *App) downloadScale() int {
	if a.Config != nil && a.Config.DownloadScale > 0 {
		return a.Config.DownloadScale
	}
	return 2
}

func (a *App) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

func (a *App) templates() *prompt.Templates {
	if a.Templates != nil {
		return a.Templates
	}
	return prompt.DefaultTemplates()
}
