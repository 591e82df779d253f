package handlers

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"

	"caricagen/internal/domain"
	"caricagen/internal/download"
	"caricagen/internal/generate"
	"caricagen/internal/imageproc"
	"caricagen/internal/middleware"
	"caricagen/internal/wizard"
	"caricagen/pkg/zip"
)

type startRequest struct {
	Style string `json:"style"`
	Image string `json:"image"`
	Ratio string `json:"ratio"`
}

type updateRequest struct {
	Exaggeration *int   `json:"exaggeration"`
	Prompt       string `json:"prompt"`
}

type updateResponse struct {
	Session wizard.Snapshot `json:"session"`
	Updated bool            `json:"updated"`
}

func (a *App) SessionCreate(w http.ResponseWriter, r *http.Request) {
	sess := a.Sessions.Create()
	a.Logger.Debug().Str("session_id", sess.ID()).Msg("session created")
	a.json(w, http.StatusCreated, sess.Snapshot())
}

func (a *App) SessionGet(w http.ResponseWriter, r *http.Request) {
	sess, ok := a.session(w, r)
	if !ok {
		return
	}
	a.json(w, http.StatusOK, sess.Snapshot())
}

func (a *App) SessionDelete(w http.ResponseWriter, r *http.Request) {
	a.Sessions.Delete(chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}

// SessionStyle submits the style step: photo, style and ratio.
func (a *App) SessionStyle(w http.ResponseWriter, r *http.Request) {
	sess, ok := a.session(w, r)
	if !ok {
		return
	}
	var req startRequest
	if !a.decode(w, r, &req) {
		return
	}
	snap, err := sess.Start(r.Context(), wizard.StartInput{Style: req.Style, Photo: req.Image, Ratio: req.Ratio})
	if err != nil {
		a.sessionError(w, r, err)
		return
	}
	a.json(w, http.StatusOK, snap)
}

func (a *App) SessionFacial(w http.ResponseWriter, r *http.Request) {
	a.sessionUpdate(w, r, (*wizard.Session).UpdateFacial)
}

func (a *App) SessionBody(w http.ResponseWriter, r *http.Request) {
	a.sessionUpdate(w, r, (*wizard.Session).UpdateBody)
}

func (a *App) SessionFacialNext(w http.ResponseWriter, r *http.Request) {
	a.sessionStep(w, r, (*wizard.Session).NextToBody)
}

func (a *App) SessionBodyNext(w http.ResponseWriter, r *http.Request) {
	a.sessionStep(w, r, (*wizard.Session).NextToDownload)
}

func (a *App) SessionBack(w http.ResponseWriter, r *http.Request) {
	a.sessionStep(w, r, (*wizard.Session).Back)
}

func (a *App) SessionReset(w http.ResponseWriter, r *http.Request) {
	sess, ok := a.session(w, r)
	if !ok {
		return
	}
	a.json(w, http.StatusOK, sess.Reset())
}

// SessionDownload renders the displayed image in the requested format.
func (a *App) SessionDownload(w http.ResponseWriter, r *http.Request) {
	sess, ok := a.session(w, r)
	if !ok {
		return
	}
	format, err := download.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		a.error(w, r, http.StatusBadRequest, "bad_request", "Unknown download format")
		return
	}
	display := sess.DisplayImage()
	if display == "" {
		a.error(w, r, http.StatusConflict, "conflict", "Nothing to download yet")
		return
	}
	file, err := download.Render(display, format, download.Options{
		Scale:  a.downloadScale(),
		Locale: middleware.LocaleFromContext(r.Context()),
	})
	if err != nil {
		a.Logger.Warn().Err(err).Str("session_id", sess.ID()).Msg("download render failed")
		a.error(w, r, http.StatusUnprocessableEntity, "invalid_image", "Invalid image")
		return
	}
	w.Header().Set("Content-Type", file.MIME)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": file.Name}))
	if file.Notice != "" {
		w.Header().Set("X-Download-Notice", mime.QEncoding.Encode("utf-8", file.Notice))
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(file.Data)
}

// SessionArchive zips every image slot the session holds.
func (a *App) SessionArchive(w http.ResponseWriter, r *http.Request) {
	sess, ok := a.session(w, r)
	if !ok {
		return
	}
	images := sess.Images()
	names := make([]string, 0, len(images))
	for name := range images {
		names = append(names, name)
	}
	sort.Strings(names)

	var assets []zip.Asset
	for _, name := range names {
		parsed, err := imageproc.ParseDataURI(images[name])
		if err != nil {
			continue
		}
		assets = append(assets, zip.Asset{
			Filename: name + extensionFor(parsed.MIME),
			MIME:     parsed.MIME,
			Data:     parsed.Data,
		})
	}
	archive, err := zip.ArchiveAssets(assets, a.now())
	if err != nil {
		if errors.Is(err, zip.ErrNoAssets) {
			a.error(w, r, http.StatusConflict, "conflict", "Nothing to download yet")
			return
		}
		a.error(w, r, http.StatusInternalServerError, "internal", "Invalid image")
		return
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=caricatura-%s.zip", sess.ID()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(archive)
}

func (a *App) session(w http.ResponseWriter, r *http.Request) (*wizard.Session, bool) {
	sess, err := a.Sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		a.error(w, r, http.StatusNotFound, "not_found", "Session not found")
		return nil, false
	}
	return sess, true
}

func (a *App) sessionUpdate(w http.ResponseWriter, r *http.Request, update func(*wizard.Session, context.Context, int, string) (wizard.Snapshot, bool, error)) {
	sess, ok := a.session(w, r)
	if !ok {
		return
	}
	var req updateRequest
	if !a.decode(w, r, &req) {
		return
	}
	exaggeration := domain.DefaultExaggeration
	if req.Exaggeration != nil {
		exaggeration = *req.Exaggeration
	}
	snap, updated, err := update(sess, r.Context(), exaggeration, req.Prompt)
	if err != nil {
		a.sessionError(w, r, err)
		return
	}
	a.json(w, http.StatusOK, updateResponse{Session: snap, Updated: updated})
}

func (a *App) sessionStep(w http.ResponseWriter, r *http.Request, step func(*wizard.Session) (wizard.Snapshot, error)) {
	sess, ok := a.session(w, r)
	if !ok {
		return
	}
	snap, err := step(sess)
	if err != nil {
		a.sessionError(w, r, err)
		return
	}
	a.json(w, http.StatusOK, snap)
}

func (a *App) sessionError(w http.ResponseWriter, r *http.Request, err error) {
	var genErr *generate.Error
	switch {
	case errors.Is(err, wizard.ErrInvalidTransition):
		a.error(w, r, http.StatusConflict, "invalid_transition", "Action not allowed at this step")
	case errors.Is(err, domain.ErrUnknownStyle):
		a.error(w, r, http.StatusBadRequest, "bad_request", "Unknown style")
	case errors.As(err, &genErr):
		a.generationError(w, r, err)
	default:
		a.Logger.Error().Err(err).Msg("session operation failed")
		a.error(w, r, http.StatusInternalServerError, "internal", generate.MessageFailed)
	}
}

func extensionFor(mimeType string) string {
	switch mimeType {
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	default:
		return ".png"
	}
}
