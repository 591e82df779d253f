package image

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"caricagen/internal/prompt"
)

const defaultHuggingFaceBaseURL = "https://api-inference.huggingface.co/models"

// HuggingFaceOptions configures the Inference API adapter.
type HuggingFaceOptions struct {
	APIToken   string
	Model      string
	BaseURL    string
	Strength   prompt.StrengthRange
	HTTPClient *http.Client
	Timeout    time.Duration
}

// HuggingFace posts the base64 source to an image-to-image model and reads
// the binary image it answers with.
type HuggingFace struct {
	apiToken   string
	model      string
	baseURL    string
	strength   prompt.StrengthRange
	httpClient *http.Client
}

type huggingFaceRequest struct {
	Inputs     string                `json:"inputs"`
	Parameters huggingFaceParameters `json:"parameters"`
}

type huggingFaceParameters struct {
	Prompt         string  `json:"prompt"`
	NegativePrompt string  `json:"negative_prompt,omitempty"`
	Strength       float64 `json:"strength,omitempty"`
	Width          int     `json:"width,omitempty"`
	Height         int     `json:"height,omitempty"`
	Seed           int     `json:"seed,omitempty"`
}

// NewHuggingFace builds the adapter.
func NewHuggingFace(opts HuggingFaceOptions) (*HuggingFace, error) {
	if strings.TrimSpace(opts.APIToken) == "" {
		return nil, fmt.Errorf("huggingface: %w", ErrMissingCredentials)
	}
	model := strings.Trim(strings.TrimSpace(opts.Model), "/")
	if model == "" {
		model = "timbrooks/instruct-pix2pix"
	}
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		base = defaultHuggingFaceBaseURL
	}
	strength := opts.Strength
	if strength == (prompt.StrengthRange{}) {
		strength = prompt.DefaultStrengthRange
	}
	return &HuggingFace{
		apiToken:   strings.TrimSpace(opts.APIToken),
		model:      model,
		baseURL:    base,
		strength:   strength,
		httpClient: httpClientOrDefault(opts.HTTPClient, opts.Timeout),
	}, nil
}

func (h *HuggingFace) Name() string { return "huggingface" }

// Transform fulfils the Transformer interface.
func (h *HuggingFace) Transform(ctx context.Context, req TransformRequest) (*Result, error) {
	if len(req.Source.Data) == 0 {
		return nil, ErrEmptySource
	}
	level := 50
	if req.Exaggeration != nil {
		level = *req.Exaggeration
	}
	payload := huggingFaceRequest{
		Inputs: base64.StdEncoding.EncodeToString(req.Source.Data),
		Parameters: huggingFaceParameters{
			Prompt:         req.Prompt,
			NegativePrompt: strings.TrimSpace(req.NegativePrompt),
			Strength:       h.strength.Map(level),
			Width:          req.Width,
			Height:         req.Height,
			Seed:           req.Seed,
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("huggingface: encode request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, h.baseURL+"/"+h.model, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("huggingface: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+h.apiToken)
	httpReq.Header.Set("X-Wait-For-Model", "true")

	resp, err := h.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("huggingface: http request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, statusError("huggingface", resp)
	}
	data, mime, err := readImageBody(resp, "huggingface")
	if err != nil {
		return nil, err
	}
	return &Result{Data: data, MIME: mime}, nil
}

var _ Transformer = (*HuggingFace)(nil)
