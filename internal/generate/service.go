// Package generate validates image generation requests, builds the provider
// prompt and forwards the call to the configured image provider.
package generate

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"caricagen/internal/domain"
	"caricagen/internal/imageproc"
	"caricagen/internal/infra"
	"caricagen/internal/prompt"
	provider "caricagen/internal/providers/image"
)

const (
	// MessageNoImage is returned when the request has no image.
	MessageNoImage = "No image provided"
	// MessageFailed is returned when the provider call fails.
	MessageFailed = "Failed to generate image"
	// HintFailed is shown to the user next to MessageFailed.
	HintFailed = "Image generation failed. Please try with a different photo or style."

	maxSeed = 1_000_000
)

// Request is the body of POST /api/generate.
type Request struct {
	Image        string `json:"image"`
	Style        string `json:"style"`
	Prompt       string `json:"prompt,omitempty"`
	Exaggeration *int   `json:"exaggeration,omitempty"`
	BodyMode     bool   `json:"bodyMode,omitempty"`
	Width        int    `json:"width,omitempty"`
	Height       int    `json:"height,omitempty"`
	Seed         *int   `json:"seed,omitempty"`
}

// Response carries the generated image as a data URI (or a URL when the
// provider result could not be downloaded).
type Response struct {
	Output   string `json:"output"`
	Provider string `json:"provider,omitempty"`
	Prompt   string `json:"-"`
}

// Error is the failure payload rendered as {error, details, hint}.
type Error struct {
	Status  int
	Message string
	Details string
	Hint    string
	Err     error
}

func (e *Error) Error() string {
	if e.Details != "" {
		return e.Message + ": " + e.Details
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Options wires the service.
type Options struct {
	Transformer provider.Transformer
	Templates   *prompt.Templates
	Logger      *infra.Logger
	Negative    string
	Seed        func() int
}

// Service is the generation entry point shared by the HTTP shim and the wizard.
type Service struct {
	transformer provider.Transformer
	templates   *prompt.Templates
	logger      *infra.Logger
	negative    string
	seed        func() int
}

// NewService builds a Service with defaults applied.
func NewService(opts Options) *Service {
	templates := opts.Templates
	if templates == nil {
		templates = prompt.DefaultTemplates()
	}
	logger := opts.Logger
	if logger == nil {
		nop := infra.NopLogger()
		logger = &nop
	}
	negative := strings.TrimSpace(opts.Negative)
	if negative == "" {
		negative = prompt.DefaultNegativePrompt
	}
	seed := opts.Seed
	if seed == nil {
		seed = func() int { return rand.Intn(maxSeed) }
	}
	return &Service{
		transformer: opts.Transformer,
		templates:   templates,
		logger:      logger,
		negative:    negative,
		seed:        seed,
	}
}

// Generate validates req, calls the provider once and returns the output.
// Errors are always *Error.
func (s *Service) Generate(ctx context.Context, req Request) (*Response, error) {
	if strings.TrimSpace(req.Image) == "" {
		return nil, &Error{Status: http.StatusBadRequest, Message: MessageNoImage, Err: domain.ErrMissingImage}
	}
	style, err := domain.ParseStyle(req.Style)
	if err != nil {
		s.logger.Warn().Str("style", req.Style).Msg("unknown style, using generic template")
		style = ""
	}
	src, err := imageproc.ParseDataURI(req.Image)
	if err != nil {
		return nil, &Error{Status: http.StatusBadRequest, Message: "Invalid image", Details: err.Error(), Err: fmt.Errorf("%w: %v", domain.ErrInvalidImage, err)}
	}
	if s.transformer == nil {
		return nil, &Error{Status: http.StatusInternalServerError, Message: MessageFailed, Details: "no image provider configured", Hint: HintFailed, Err: domain.ErrProviderNotConfig}
	}

	var level *int
	if req.Exaggeration != nil {
		v := domain.ClampExaggeration(*req.Exaggeration)
		level = &v
	}
	text := s.templates.Build(prompt.Input{
		Style:        style,
		Text:         req.Prompt,
		BodyMode:     req.BodyMode,
		Exaggeration: level,
	})
	width, height := req.Width, req.Height
	if width <= 0 || height <= 0 {
		if cfg, _, err := image.DecodeConfig(bytes.NewReader(src.Data)); err == nil {
			width, height = cfg.Width, cfg.Height
		}
	}
	seed := s.seed()
	if req.Seed != nil {
		seed = *req.Seed
	}

	name := provider.NameOf(s.transformer)
	start := time.Now()
	res, err := s.transformer.Transform(ctx, provider.TransformRequest{
		Source:         provider.Source{Data: src.Data, MIME: src.MIME},
		Prompt:         text,
		NegativePrompt: s.negative,
		Exaggeration:   level,
		Width:          width,
		Height:         height,
		Seed:           seed,
	})
	if err == nil && (res == nil || (len(res.Data) == 0 && res.URL == "")) {
		err = errors.New("provider returned no image")
	}
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("provider", name).
			Str("style", style.String()).
			Dur("elapsed", time.Since(start)).
			Msg("image generation failed")
		return nil, &Error{
			Status:  http.StatusInternalServerError,
			Message: MessageFailed,
			Details: err.Error(),
			Hint:    HintFailed,
			Err:     fmt.Errorf("%w: %w", domain.ErrProviderFailure, err),
		}
	}
	s.logger.Info().
		Str("provider", name).
		Str("style", style.String()).
		Int("width", width).
		Int("height", height).
		Int("seed", seed).
		Dur("elapsed", time.Since(start)).
		Msg("image generated")
	return &Response{Output: res.DataURI(), Provider: name, Prompt: text}, nil
}
