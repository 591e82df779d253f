package handlers

import (
	"net/http"

	"caricagen/internal/domain"
	"caricagen/internal/download"
	"caricagen/internal/middleware"
)

type styleItem struct {
	Name   string `json:"name"`
	Prompt string `json:"prompt"`
}

type exaggerationStop struct {
	Max   int    `json:"max"`
	Label string `json:"label"`
}

// Styles lists the style presets with their prompt templates and the
// exaggeration slider labels.
func (a *App) Styles(w http.ResponseWriter, r *http.Request) {
	tpl := a.templates()
	items := make([]styleItem, 0, len(domain.Styles()))
	for _, s := range domain.Styles() {
		items = append(items, styleItem{Name: s.String(), Prompt: tpl.StylePrompt(s)})
	}
	stops := make([]exaggerationStop, 0, 6)
	for _, v := range []int{0, 20, 40, 60, 80, 100} {
		stops = append(stops, exaggerationStop{Max: v, Label: domain.ExaggerationLabel(v)})
	}
	a.json(w, http.StatusOK, map[string]any{
		"items":                items,
		"default_exaggeration": domain.DefaultExaggeration,
		"exaggeration_labels":  stops,
	})
}

// DownloadFormats lists the download options in the request locale.
func (a *App) DownloadFormats(w http.ResponseWriter, r *http.Request) {
	locale := middleware.LocaleFromContext(r.Context())
	a.json(w, http.StatusOK, map[string]any{"items": download.Formats(locale)})
}
