package handlers

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"caricagen/internal/domain"
	"caricagen/internal/generate"
	"caricagen/internal/imageproc"
	"caricagen/internal/infra"
	"caricagen/internal/middleware"
	"caricagen/internal/wizard"
)

type stubGenerator struct {
	mu    sync.Mutex
	calls []generate.Request
	out   string
	err   error
}

func (s *stubGenerator) Generate(ctx context.Context, req generate.Request) (*generate.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, req)
	if s.err != nil {
		return nil, s.err
	}
	return &generate.Response{Output: s.out}, nil
}

func pngDataURI(t *testing.T, w, h int, c color.NRGBA) string {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	uri, err := imageproc.PNGDataURI(img)
	if err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return uri
}

func newTestApp(gen wizard.Generator) *App {
	engine := wizard.NewEngine(wizard.EngineOptions{Generator: gen})
	return &App{
		Config:    &infra.Config{MaxBodyBytes: 1 << 20, DownloadScale: 2},
		Logger:    infra.NopLogger(),
		Generator: gen,
		Sessions:  wizard.NewStore(engine, time.Hour),
		Now:       func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) },
	}
}

// serve runs h with the chi id param set and the locale in context.
func serve(h http.HandlerFunc, method, target, id, locale string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, target, &buf)
	ctx := req.Context()
	if id != "" {
		rctx := chi.NewRouteContext()
		rctx.URLParams.Add("id", id)
		ctx = context.WithValue(ctx, chi.RouteCtxKey, rctx)
	}
	if locale != "" {
		ctx = context.WithValue(ctx, middleware.LocaleKey, locale)
	}
	rec := httptest.NewRecorder()
	h(rec, req.WithContext(ctx))
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestGenerateHandler(t *testing.T) {
	photo := pngDataURI(t, 4, 4, color.NRGBA{R: 10, G: 20, B: 30, A: 255})

	tests := []struct {
		name       string
		gen        *stubGenerator
		body       any
		locale     string
		wantStatus int
		check      func(t *testing.T, rec *httptest.ResponseRecorder)
	}{
		{
			name:       "success",
			gen:        &stubGenerator{out: "data:image/png;base64,AAAA"},
			body:       map[string]any{"image": photo, "style": "Cartoon 2D"},
			wantStatus: http.StatusOK,
			check: func(t *testing.T, rec *httptest.ResponseRecorder) {
				got := decodeBody[map[string]string](t, rec)
				if got["output"] != "data:image/png;base64,AAAA" {
					t.Fatalf("output = %q", got["output"])
				}
			},
		},
		{
			name: "provider failure localized",
			gen: &stubGenerator{err: &generate.Error{
				Status:  http.StatusInternalServerError,
				Message: generate.MessageFailed,
				Details: "fal: status 500",
				Hint:    generate.HintFailed,
			}},
			body:       map[string]any{"image": photo},
			locale:     "pt",
			wantStatus: http.StatusInternalServerError,
			check: func(t *testing.T, rec *httptest.ResponseRecorder) {
				got := decodeBody[errorResponse](t, rec)
				if got.Error != "Falha ao gerar imagem" || got.Details != "fal: status 500" {
					t.Fatalf("unexpected payload %+v", got)
				}
				if !strings.HasPrefix(got.Hint, "A geração da imagem falhou") {
					t.Fatalf("hint not localized: %q", got.Hint)
				}
			},
		},
		{
			name: "validation error keeps status",
			gen: &stubGenerator{err: &generate.Error{
				Status:  http.StatusBadRequest,
				Message: generate.MessageNoImage,
			}},
			body:       map[string]any{"style": "Cartoon 2D"},
			locale:     "en",
			wantStatus: http.StatusBadRequest,
			check: func(t *testing.T, rec *httptest.ResponseRecorder) {
				got := decodeBody[errorResponse](t, rec)
				if got.Error != "No image provided" {
					t.Fatalf("error = %q", got.Error)
				}
			},
		},
		{
			name:       "malformed json",
			gen:        &stubGenerator{},
			body:       "not an object",
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			app := newTestApp(tc.gen)
			rec := serve(app.Generate, http.MethodPost, "/api/generate", "", tc.locale, tc.body)
			if rec.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d; body=%s", rec.Code, tc.wantStatus, rec.Body.String())
			}
			if tc.check != nil {
				tc.check(t, rec)
			}
		})
	}
}

func TestGenerateRejectsOversizedBody(t *testing.T) {
	app := newTestApp(&stubGenerator{})
	app.Config.MaxBodyBytes = 64
	rec := serve(app.Generate, http.MethodPost, "/api/generate", "", "en", map[string]string{"image": strings.Repeat("A", 256)})
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d, want 413", rec.Code)
	}
}

func TestImagesCrop(t *testing.T) {
	app := newTestApp(&stubGenerator{})
	photo := pngDataURI(t, 100, 100, color.NRGBA{R: 255, A: 255})

	rec := serve(app.ImagesCrop, http.MethodPost, "/v1/images/crop", "", "", map[string]string{"image": photo, "ratio": "16:9"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; body=%s", rec.Code, rec.Body.String())
	}
	got := decodeBody[imageResponse](t, rec)
	if got.Width != 896 || got.Height != 512 {
		t.Fatalf("size = %dx%d, want 896x512", got.Width, got.Height)
	}
	img, err := imageproc.DecodeDataURIImage(got.Output)
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 896 || b.Dy() != 512 {
		t.Fatalf("decoded size = %v", b)
	}

	rec = serve(app.ImagesCrop, http.MethodPost, "/v1/images/crop", "", "", map[string]string{"image": photo, "ratio": "Original"})
	got = decodeBody[imageResponse](t, rec)
	if got.Output != photo || got.Width != 100 || got.Height != 100 {
		t.Fatalf("original ratio should pass through, got %dx%d", got.Width, got.Height)
	}

	rec = serve(app.ImagesCrop, http.MethodPost, "/v1/images/crop", "", "", map[string]string{"image": photo, "ratio": "wide"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad ratio status = %d", rec.Code)
	}

	rec = serve(app.ImagesCrop, http.MethodPost, "/v1/images/crop", "", "", map[string]string{"image": "data:image/png;base64,AAAA", "ratio": "1:1"})
	got = decodeBody[imageResponse](t, rec)
	if got.Output != "data:image/png;base64,AAAA" {
		t.Fatalf("undecodable image should come back unchanged")
	}
}

func TestImagesGrayscale(t *testing.T) {
	app := newTestApp(&stubGenerator{})
	photo := pngDataURI(t, 2, 2, color.NRGBA{R: 100, G: 150, B: 200, A: 255})

	rec := serve(app.ImagesGrayscale, http.MethodPost, "/v1/images/grayscale", "", "", map[string]string{"image": photo})
	got := decodeBody[imageResponse](t, rec)
	img, err := imageproc.DecodeDataURIImage(got.Output)
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	r, g, b, _ := img.At(0, 0).RGBA()
	if r != g || g != b {
		t.Fatalf("pixel not gray")
	}

	rec = serve(app.ImagesGrayscale, http.MethodPost, "/v1/images/grayscale", "", "", map[string]string{})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing image status = %d", rec.Code)
	}
}

func TestStylesAndFormats(t *testing.T) {
	app := newTestApp(&stubGenerator{})

	rec := serve(app.Styles, http.MethodGet, "/v1/styles", "", "", nil)
	styles := decodeBody[struct {
		Items []styleItem `json:"items"`
	}](t, rec)
	if len(styles.Items) != 4 || styles.Items[0].Name != string(domain.StyleCartoon2D) || styles.Items[0].Prompt == "" {
		t.Fatalf("unexpected styles %+v", styles.Items)
	}

	rec = serve(app.DownloadFormats, http.MethodGet, "/v1/download/formats", "", "pt", nil)
	formats := decodeBody[struct {
		Items []struct {
			ID    string `json:"id"`
			Label string `json:"label"`
		} `json:"items"`
	}](t, rec)
	if len(formats.Items) != 4 || formats.Items[3].Label != "VETOR COLORIDO" {
		t.Fatalf("unexpected formats %+v", formats.Items)
	}
}

func TestSessionLifecycle(t *testing.T) {
	gen := &stubGenerator{out: pngDataURI(t, 8, 8, color.NRGBA{G: 200, A: 255})}
	app := newTestApp(gen)

	rec := serve(app.SessionCreate, http.MethodPost, "/v1/sessions", "", "", nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d", rec.Code)
	}
	created := decodeBody[wizard.Snapshot](t, rec)
	id := created.ID

	rec = serve(app.SessionFacialNext, http.MethodPost, "/", id, "en", nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("next before start status = %d", rec.Code)
	}

	rec = serve(app.SessionStyle, http.MethodPost, "/", id, "", startRequest{
		Style: "Cartoon 3D",
		Image: pngDataURI(t, 40, 40, color.NRGBA{B: 200, A: 255}),
		Ratio: "1:1",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("style status = %d; body=%s", rec.Code, rec.Body.String())
	}
	snap := decodeBody[wizard.Snapshot](t, rec)
	if snap.StepName != "facial_edit" || snap.Image != gen.out {
		t.Fatalf("unexpected snapshot after start: %+v", snap)
	}

	rec = serve(app.SessionFacial, http.MethodPost, "/", id, "", map[string]any{"exaggeration": 70, "prompt": "big smile"})
	upd := decodeBody[updateResponse](t, rec)
	if !upd.Updated || upd.Session.FacialExaggeration != 70 || upd.Session.FacialLabel != "Exagerada" {
		t.Fatalf("unexpected facial update %+v", upd)
	}

	for _, h := range []http.HandlerFunc{app.SessionFacialNext, app.SessionBodyNext} {
		if rec := serve(h, http.MethodPost, "/", id, "", nil); rec.Code != http.StatusOK {
			t.Fatalf("step status = %d; body=%s", rec.Code, rec.Body.String())
		}
	}

	rec = serve(app.SessionDownload, http.MethodGet, "/?format=VECTOR_COLOR", id, "en", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("download status = %d; body=%s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("Content-Type") != "image/png" {
		t.Fatalf("content type = %q", rec.Header().Get("Content-Type"))
	}
	if !strings.Contains(rec.Header().Get("Content-Disposition"), "caricatura-vector_color.png") {
		t.Fatalf("disposition = %q", rec.Header().Get("Content-Disposition"))
	}
	if !strings.HasPrefix(rec.Header().Get("X-Download-Notice"), "Vector files") {
		t.Fatalf("notice = %q", rec.Header().Get("X-Download-Notice"))
	}
	cfg, err := png.DecodeConfig(bytes.NewReader(rec.Body.Bytes()))
	if err != nil || cfg.Width != 16 {
		t.Fatalf("download png width = %d, err %v", cfg.Width, err)
	}

	rec = serve(app.SessionDownload, http.MethodGet, "/?format=TIFF", id, "", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown format status = %d", rec.Code)
	}

	rec = serve(app.SessionArchive, http.MethodGet, "/", id, "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("archive status = %d", rec.Code)
	}
	zr, err := zip.NewReader(bytes.NewReader(rec.Body.Bytes()), int64(rec.Body.Len()))
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	if strings.Join(names, ",") != "current.png,facial.png,original.png" {
		t.Fatalf("archive entries = %v", names)
	}

	rec = serve(app.SessionReset, http.MethodPost, "/", id, "", nil)
	if snap := decodeBody[wizard.Snapshot](t, rec); snap.StepName != "style_select" || snap.HasOriginal {
		t.Fatalf("reset snapshot %+v", snap)
	}

	if rec := serve(app.SessionDelete, http.MethodDelete, "/", id, "", nil); rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rec.Code)
	}
	if rec := serve(app.SessionGet, http.MethodGet, "/", id, "pt", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("get after delete status = %d", rec.Code)
	} else if got := decodeBody[errorResponse](t, rec); got.Error != "Sessão não encontrada" {
		t.Fatalf("not found message = %q", got.Error)
	}
}

func TestSessionStyleFailureStaysOnStyleStep(t *testing.T) {
	gen := &stubGenerator{err: &generate.Error{
		Status:  http.StatusInternalServerError,
		Message: generate.MessageFailed,
		Details: "boom",
		Hint:    generate.HintFailed,
		Err:     errors.New("boom"),
	}}
	app := newTestApp(gen)
	sess := app.Sessions.Create()

	rec := serve(app.SessionStyle, http.MethodPost, "/", sess.ID(), "en", startRequest{
		Style: "Cartoon 2D",
		Image: pngDataURI(t, 10, 10, color.NRGBA{A: 255}),
	})
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := decodeBody[errorResponse](t, rec); got.Hint != generate.HintFailed {
		t.Fatalf("hint = %q", got.Hint)
	}
	if sess.Snapshot().Step != wizard.StepStyleSelect {
		t.Fatalf("session advanced after failure")
	}

	rec = serve(app.SessionStyle, http.MethodPost, "/", sess.ID(), "", startRequest{Style: "Anime", Image: "x"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown style status = %d", rec.Code)
	}
}

func TestSessionFailedUpdateReportsNotUpdated(t *testing.T) {
	gen := &stubGenerator{out: pngDataURI(t, 4, 4, color.NRGBA{R: 1, A: 255})}
	app := newTestApp(gen)
	sess := app.Sessions.Create()
	if _, err := sess.Start(context.Background(), wizard.StartInput{Style: "Cartoon 2D", Photo: pngDataURI(t, 4, 4, color.NRGBA{A: 255})}); err != nil {
		t.Fatalf("start: %v", err)
	}
	before := sess.DisplayImage()
	gen.err = errors.New("provider down")

	rec := serve(app.SessionFacial, http.MethodPost, "/", sess.ID(), "", map[string]any{"prompt": "hat"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	upd := decodeBody[updateResponse](t, rec)
	if upd.Updated || upd.Session.Image != before {
		t.Fatalf("failed update should keep image, got %+v", upd)
	}
	if upd.Session.FacialExaggeration != domain.DefaultExaggeration {
		t.Fatalf("default exaggeration = %d", upd.Session.FacialExaggeration)
	}
}

func TestOpenAPIRoutes(t *testing.T) {
	app := &App{}
	rec := serve(app.OpenAPIJSON, http.MethodGet, "/v1/openapi.json", "", "", nil)
	if rec.Code != http.StatusOK || !strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		t.Fatalf("openapi.json status = %d, type = %q", rec.Code, rec.Header().Get("Content-Type"))
	}
	doc := decodeBody[struct {
		Paths map[string]json.RawMessage `json:"paths"`
	}](t, rec)
	for _, path := range []string{"/api/generate", "/v1/images/crop", "/v1/sessions"} {
		if _, ok := doc.Paths[path]; !ok {
			t.Fatalf("openapi.json missing %s", path)
		}
	}

	rec = serve(app.OpenAPIDocs, http.MethodGet, "/v1/docs", "", "", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `spec-url="/v1/openapi.json"`) {
		t.Fatalf("docs status = %d body = %.80s", rec.Code, rec.Body.String())
	}
}
