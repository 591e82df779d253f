package handlers

import (
	"net/http"

	"caricagen/internal/generate"
)

// Generate is the single-shot forwarding endpoint: one image in, one
// stylized image out.
func (a *App) Generate(w http.ResponseWriter, r *http.Request) {
	var req generate.Request
	if !a.decode(w, r, &req) {
		return
	}
	if a.Generator == nil {
		a.error(w, r, http.StatusInternalServerError, "internal", generate.MessageFailed)
		return
	}
	resp, err := a.Generator.Generate(r.Context(), req)
	if err != nil {
		a.generationError(w, r, err)
		return
	}
	a.json(w, http.StatusOK, map[string]string{"output": resp.Output})
}
