package handlers

import (
	"bytes"
	"image"
	"net/http"
	"strings"

	"caricagen/internal/generate"
	"caricagen/internal/imageproc"
)

type cropRequest struct {
	Image string `json:"image"`
	Ratio string `json:"ratio"`
}

type imageResponse struct {
	Output string `json:"output"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

// ImagesCrop center-crops a data URI into the output box for ratio. Images
// that cannot be decoded come back unchanged.
func (a *App) ImagesCrop(w http.ResponseWriter, r *http.Request) {
	var req cropRequest
	if !a.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Image) == "" {
		a.error(w, r, http.StatusBadRequest, "bad_request", generate.MessageNoImage)
		return
	}
	ratio, err := imageproc.ParseRatio(req.Ratio)
	if err != nil {
		a.error(w, r, http.StatusBadRequest, "bad_request", "Invalid aspect ratio")
		return
	}
	out := imageproc.CropDataURI(req.Image, req.Ratio, a.cropOptions())
	resp := imageResponse{Output: out}
	if out != req.Image && !ratio.IsOriginal() {
		resp.Width, resp.Height = imageproc.OutputSize(ratio, a.cropOptions())
	} else {
		resp.Width, resp.Height = dataURISize(out)
	}
	a.json(w, http.StatusOK, resp)
}

// ImagesGrayscale converts a data URI to luma grayscale.
func (a *App) ImagesGrayscale(w http.ResponseWriter, r *http.Request) {
	var req cropRequest
	if !a.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Image) == "" {
		a.error(w, r, http.StatusBadRequest, "bad_request", generate.MessageNoImage)
		return
	}
	out := imageproc.GrayscaleDataURI(req.Image)
	width, height := dataURISize(out)
	a.json(w, http.StatusOK, imageResponse{Output: out, Width: width, Height: height})
}

func dataURISize(uri string) (int, int) {
	parsed, err := imageproc.ParseDataURI(uri)
	if err != nil {
		return 0, 0
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(parsed.Data))
	if err != nil {
		return 0, 0
	}
	return cfg.Width, cfg.Height
}
