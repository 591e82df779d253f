// Package wizard drives the four-step caricature flow: style selection,
// facial edit, body edit and download.
package wizard

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"caricagen/internal/domain"
	"caricagen/internal/generate"
	"caricagen/internal/imageproc"
	"caricagen/internal/infra"
	"caricagen/internal/prompt"
)

// ErrInvalidTransition is returned when an operation is not allowed from the
// session's current step.
var ErrInvalidTransition = errors.New("wizard: invalid transition")

const initialPrompt = "best quality, masterpiece"

// Generator produces one stylized image per call.
type Generator interface {
	Generate(ctx context.Context, req generate.Request) (*generate.Response, error)
}

// EngineOptions wires an Engine.
type EngineOptions struct {
	Generator Generator
	Crop      imageproc.CropOptions
	Logger    *infra.Logger
}

// Engine holds what every session shares.
type Engine struct {
	gen    Generator
	crop   imageproc.CropOptions
	logger *infra.Logger
	now    func() time.Time
}

// NewEngine builds an Engine with defaults applied.
func NewEngine(opts EngineOptions) *Engine {
	crop := opts.Crop
	if crop.Base <= 0 || crop.Multiple <= 0 {
		crop = imageproc.DefaultCropOptions
	}
	logger := opts.Logger
	if logger == nil {
		nop := infra.NopLogger()
		logger = &nop
	}
	return &Engine{gen: opts.Generator, crop: crop, logger: logger, now: time.Now}
}

// NewSession returns a fresh session in StyleSelect.
func (e *Engine) NewSession() *Session {
	return &Session{id: uuid.NewString(), engine: e, step: StepStyleSelect, updatedAt: e.now()}
}

// Session is one user's wizard. All methods are safe for concurrent use and
// run one at a time, provider calls included.
type Session struct {
	mu     sync.Mutex
	id     string
	engine *Engine

	step   Step
	style  domain.Style
	ratio  string
	width  int
	height int

	original string
	facial   string
	body     string
	current  string

	facialExaggeration int
	facialPrompt       string
	bodyExaggeration   int
	bodyPrompt         string

	updatedAt time.Time
}

// StartInput is the style step submission.
type StartInput struct {
	Style string
	Photo string
	Ratio string
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Start crops the photo, generates the first stylized image and advances to
// FacialEdit. On failure the session stays in StyleSelect.
func (s *Session) Start(ctx context.Context, in StartInput) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.step != StepStyleSelect {
		return s.snapshotLocked(), s.invalid("start")
	}
	style, err := domain.ParseStyle(in.Style)
	if err != nil {
		return s.snapshotLocked(), err
	}
	ratio := strings.TrimSpace(in.Ratio)
	if ratio == "" {
		ratio = "1:1"
	}
	cropped, width, height := s.engine.cropPhoto(in.Photo, ratio)

	resp, err := s.engine.gen.Generate(ctx, generate.Request{
		Image:  cropped,
		Style:  string(style),
		Prompt: initialPrompt,
		Width:  width,
		Height: height,
	})
	if err != nil {
		s.engine.logger.Warn().Err(err).Str("session_id", s.id).Msg("wizard: initial generation failed")
		return s.snapshotLocked(), err
	}

	s.style = style
	s.ratio = ratio
	s.width, s.height = width, height
	s.original = cropped
	s.current = resp.Output
	s.facial = resp.Output
	s.body = ""
	s.facialExaggeration = domain.DefaultExaggeration
	s.bodyExaggeration = domain.DefaultExaggeration
	s.facialPrompt, s.bodyPrompt = "", ""
	s.step = StepFacialEdit
	s.touch()
	return s.snapshotLocked(), nil
}

// UpdateFacial regenerates the face from the original photo. A provider
// failure leaves the images unchanged and reports updated=false.
func (s *Session) UpdateFacial(ctx context.Context, exaggeration int, text string) (Snapshot, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.step != StepFacialEdit {
		return s.snapshotLocked(), false, s.invalid("update facial")
	}
	exaggeration = domain.ClampExaggeration(exaggeration)
	s.facialExaggeration, s.facialPrompt = exaggeration, text
	s.touch()
	if s.original == "" {
		return s.snapshotLocked(), false, nil
	}
	out, ok := s.regenerate(ctx, s.original, "facial features", text, exaggeration, false)
	if ok {
		s.current = out
		s.facial = out
	}
	return s.snapshotLocked(), ok, nil
}

// NextToBody keeps the current image as the facial snapshot and moves on.
func (s *Session) NextToBody() (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.step != StepFacialEdit {
		return s.snapshotLocked(), s.invalid("next to body")
	}
	s.facial = s.current
	if s.body != "" {
		s.current = s.body
	}
	s.step = StepBodyEdit
	s.touch()
	return s.snapshotLocked(), nil
}

// UpdateBody regenerates the full body from the facial snapshot. A provider
// failure leaves the images unchanged and reports updated=false.
func (s *Session) UpdateBody(ctx context.Context, exaggeration int, text string) (Snapshot, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.step != StepBodyEdit {
		return s.snapshotLocked(), false, s.invalid("update body")
	}
	exaggeration = domain.ClampExaggeration(exaggeration)
	s.bodyExaggeration, s.bodyPrompt = exaggeration, text
	s.touch()
	source := s.facial
	if source == "" {
		source = s.current
	}
	if source == "" {
		return s.snapshotLocked(), false, nil
	}
	out, ok := s.regenerate(ctx, source, "full body", text, exaggeration, true)
	if ok {
		s.current = out
		s.body = out
	}
	return s.snapshotLocked(), ok, nil
}

// NextToDownload advances without touching the images.
func (s *Session) NextToDownload() (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.step != StepBodyEdit {
		return s.snapshotLocked(), s.invalid("next to download")
	}
	s.step = StepDownload
	s.touch()
	return s.snapshotLocked(), nil
}

// Back moves to the previous step. Leaving BodyEdit restores the facial
// snapshot as the current image.
func (s *Session) Back() (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.step {
	case StepFacialEdit:
		s.step = StepStyleSelect
	case StepBodyEdit:
		if s.facial != "" {
			s.current = s.facial
		}
		s.step = StepFacialEdit
	case StepDownload:
		s.step = StepBodyEdit
	default:
		return s.snapshotLocked(), s.invalid("back")
	}
	s.touch()
	return s.snapshotLocked(), nil
}

// Reset clears every image and parameter and returns to StyleSelect.
func (s *Session) Reset() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.step = StepStyleSelect
	s.style, s.ratio = "", ""
	s.width, s.height = 0, 0
	s.original, s.facial, s.body, s.current = "", "", "", ""
	s.facialExaggeration, s.bodyExaggeration = 0, 0
	s.facialPrompt, s.bodyPrompt = "", ""
	s.touch()
	return s.snapshotLocked()
}

// DisplayImage returns the image the current step shows.
func (s *Session) DisplayImage() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.displayLocked()
}

// Snapshot returns a copy of the session state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Images returns the non-empty image slots keyed by slot name.
func (s *Session) Images() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, 4)
	for name, img := range map[string]string{
		"original": s.original,
		"facial":   s.facial,
		"body":     s.body,
		"current":  s.current,
	} {
		if img != "" {
			out[name] = img
		}
	}
	return out
}

func (s *Session) displayLocked() string {
	switch s.step {
	case StepFacialEdit:
		if s.facial != "" {
			return s.facial
		}
		return s.current
	case StepBodyEdit:
		if s.body != "" {
			return s.body
		}
		return s.current
	case StepDownload:
		return s.current
	default:
		return ""
	}
}

// regenerate must be called with s.mu held.
func (s *Session) regenerate(ctx context.Context, source, lead, text string, exaggeration int, bodyMode bool) (string, bool) {
	if prompt.HasMonochromeCue(text) {
		source = imageproc.GrayscaleDataURI(source)
	}
	instruction := lead
	if t := strings.TrimSpace(text); t != "" {
		instruction = lead + ", " + t
	}
	resp, err := s.engine.gen.Generate(ctx, generate.Request{
		Image:        source,
		Style:        string(s.style),
		Prompt:       instruction,
		Exaggeration: &exaggeration,
		BodyMode:     bodyMode,
		Width:        s.width,
		Height:       s.height,
	})
	if err != nil {
		s.engine.logger.Warn().
			Err(err).
			Str("session_id", s.id).
			Str("step", s.step.String()).
			Msg("wizard: update failed, keeping previous image")
		return "", false
	}
	return resp.Output, true
}

func (s *Session) invalid(op string) error {
	return fmt.Errorf("%w: %s from %s", ErrInvalidTransition, op, s.step)
}

func (s *Session) touch() {
	if s.engine != nil {
		s.updatedAt = s.engine.now()
	}
}

// cropPhoto returns the cropped photo and the output box. "Original" and
// malformed ratios keep the photo as is.
func (e *Engine) cropPhoto(photo, ratio string) (string, int, int) {
	r, err := imageproc.ParseRatio(ratio)
	if err != nil || r.IsOriginal() {
		if err != nil {
			e.logger.Debug().Err(err).Str("ratio", ratio).Msg("wizard: keeping photo uncropped")
		}
		return photo, 0, 0
	}
	cropped := imageproc.CropDataURI(photo, ratio, e.crop)
	if cropped == photo {
		e.logger.Debug().Str("ratio", ratio).Msg("wizard: crop failed, keeping photo")
		return photo, 0, 0
	}
	w, h := imageproc.OutputSize(r, e.crop)
	return cropped, w, h
}
