package generate

import (
	"context"
	"errors"
	"image"
	"image/color"
	"net/http"
	"strings"
	"testing"

	"caricagen/internal/domain"
	"caricagen/internal/imageproc"
	provider "caricagen/internal/providers/image"
)

type recordingTransformer struct {
	result *provider.Result
	err    error
	reqs   []provider.TransformRequest
}

func (r *recordingTransformer) Name() string { return "recording" }

func (r *recordingTransformer) Transform(ctx context.Context, req provider.TransformRequest) (*provider.Result, error) {
	r.reqs = append(r.reqs, req)
	return r.result, r.err
}

func sampleDataURI(t *testing.T, w, h int) string {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	img.SetNRGBA(0, 0, color.NRGBA{R: 200, A: 255})
	uri, err := imageproc.PNGDataURI(img)
	if err != nil {
		t.Fatalf("PNGDataURI: %v", err)
	}
	return uri
}

func TestGenerateForwardsPromptAndSource(t *testing.T) {
	rec := &recordingTransformer{result: &provider.Result{Data: []byte{0xff, 0xd8, 0xff}, MIME: "image/jpeg"}}
	svc := NewService(Options{Transformer: rec, Seed: func() int { return 11 }})
	level := 140
	resp, err := svc.Generate(context.Background(), Request{
		Image:        sampleDataURI(t, 64, 32),
		Style:        "cartoon 2d",
		Prompt:       "facial features, glasses",
		Exaggeration: &level,
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if resp.Output != "data:image/jpeg;base64,/9j/" {
		t.Fatalf("output = %q", resp.Output)
	}
	if resp.Provider != "recording" {
		t.Fatalf("provider = %q", resp.Provider)
	}
	if len(rec.reqs) != 1 {
		t.Fatalf("calls = %d", len(rec.reqs))
	}
	got := rec.reqs[0]
	if !strings.HasPrefix(got.Prompt, "2D cartoon character") || !strings.Contains(got.Prompt, "facial features, glasses, detailed, high quality, professional artwork") {
		t.Fatalf("prompt = %q", got.Prompt)
	}
	if got.Exaggeration == nil || *got.Exaggeration != 100 {
		t.Fatalf("exaggeration not clamped: %v", got.Exaggeration)
	}
	if got.Width != 64 || got.Height != 32 {
		t.Fatalf("size = %dx%d, want source dims", got.Width, got.Height)
	}
	if got.Seed != 11 || got.NegativePrompt == "" || got.Source.MIME != "image/png" {
		t.Fatalf("unexpected request %+v", got)
	}
}

func TestGenerateExplicitSizeAndSeed(t *testing.T) {
	rec := &recordingTransformer{result: &provider.Result{URL: "https://cdn/out.png"}}
	svc := NewService(Options{Transformer: rec})
	seed := 5
	resp, err := svc.Generate(context.Background(), Request{Image: sampleDataURI(t, 8, 8), Width: 896, Height: 512, Seed: &seed, BodyMode: true})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if resp.Output != "https://cdn/out.png" {
		t.Fatalf("output = %q", resp.Output)
	}
	got := rec.reqs[0]
	if got.Width != 896 || got.Height != 512 || got.Seed != 5 {
		t.Fatalf("unexpected request %+v", got)
	}
	if !strings.HasPrefix(got.Prompt, "cartoon character illustration, full body") {
		t.Fatalf("prompt = %q", got.Prompt)
	}
}

func TestGenerateValidation(t *testing.T) {
	svc := NewService(Options{Transformer: &recordingTransformer{}})
	tests := []struct {
		name    string
		req     Request
		message string
		target  error
	}{
		{name: "missing image", req: Request{Style: "Cartoon 3D"}, message: MessageNoImage, target: domain.ErrMissingImage},
		{name: "bad image", req: Request{Image: "%%%"}, message: "Invalid image", target: domain.ErrInvalidImage},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Generate(context.Background(), tc.req)
			var genErr *Error
			if !errors.As(err, &genErr) {
				t.Fatalf("expected *Error, got %T %v", err, err)
			}
			if genErr.Status != http.StatusBadRequest || genErr.Message != tc.message {
				t.Fatalf("error = %+v", genErr)
			}
			if !errors.Is(err, tc.target) {
				t.Fatalf("errors.Is(%v) = false", tc.target)
			}
		})
	}
}

func TestGenerateUnknownStyleUsesGenericTemplate(t *testing.T) {
	rec := &recordingTransformer{result: &provider.Result{Data: []byte{0x89, 'P', 'N', 'G'}, MIME: "image/png"}}
	svc := NewService(Options{Transformer: rec})
	if _, err := svc.Generate(context.Background(), Request{Image: sampleDataURI(t, 8, 8), Style: "Watercolor"}); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(rec.reqs) != 1 {
		t.Fatalf("calls = %d", len(rec.reqs))
	}
	if got := rec.reqs[0].Prompt; !strings.HasPrefix(got, "cartoon character illustration") {
		t.Fatalf("prompt = %q", got)
	}
}

func TestGenerateProviderFailure(t *testing.T) {
	svc := NewService(Options{Transformer: &recordingTransformer{err: errors.New("fal: status 500: boom")}})
	_, err := svc.Generate(context.Background(), Request{Image: sampleDataURI(t, 4, 4), Style: "Caricatura 2D"})
	var genErr *Error
	if !errors.As(err, &genErr) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if genErr.Status != http.StatusInternalServerError || genErr.Message != MessageFailed || genErr.Hint != HintFailed {
		t.Fatalf("unexpected error %+v", genErr)
	}
	if genErr.Details != "fal: status 500: boom" {
		t.Fatalf("details = %q", genErr.Details)
	}
	if !errors.Is(err, domain.ErrProviderFailure) {
		t.Fatalf("expected ErrProviderFailure")
	}

	empty := NewService(Options{Transformer: &recordingTransformer{result: &provider.Result{}}})
	if _, err := empty.Generate(context.Background(), Request{Image: sampleDataURI(t, 4, 4)}); !errors.Is(err, domain.ErrProviderFailure) {
		t.Fatalf("empty result error = %v", err)
	}

	unconfigured := NewService(Options{})
	if _, err := unconfigured.Generate(context.Background(), Request{Image: sampleDataURI(t, 4, 4)}); !errors.Is(err, domain.ErrProviderNotConfig) {
		t.Fatalf("unconfigured error = %v", err)
	}
}
