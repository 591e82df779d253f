package image

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"caricagen/internal/imageproc"
	"caricagen/internal/prompt"
)

const defaultReplicateBaseURL = "https://api.replicate.com/v1"

// ReplicateOptions configures the Replicate predictions adapter.
type ReplicateOptions struct {
	APIToken     string
	Model        string
	BaseURL      string
	PollInterval time.Duration
	Strength     prompt.StrengthRange
	HTTPClient   *http.Client
	Timeout      time.Duration
}

// Replicate creates a prediction, waits for it and downloads the output.
type Replicate struct {
	apiToken     string
	model        string
	baseURL      string
	pollInterval time.Duration
	strength     prompt.StrengthRange
	httpClient   *http.Client
}

type replicateInput struct {
	Image          string  `json:"image"`
	Prompt         string  `json:"prompt"`
	NegativePrompt string  `json:"negative_prompt,omitempty"`
	PromptStrength float64 `json:"prompt_strength"`
	Width          int     `json:"width,omitempty"`
	Height         int     `json:"height,omitempty"`
	Seed           int     `json:"seed,omitempty"`
	NumOutputs     int     `json:"num_outputs"`
}

type replicatePrediction struct {
	ID     string          `json:"id"`
	Status string          `json:"status"`
	Output json.RawMessage `json:"output"`
	Error  any             `json:"error"`
	URLs   struct {
		Get string `json:"get"`
	} `json:"urls"`
}

// NewReplicate builds the adapter.
func NewReplicate(opts ReplicateOptions) (*Replicate, error) {
	if strings.TrimSpace(opts.APIToken) == "" {
		return nil, fmt.Errorf("replicate: %w", ErrMissingCredentials)
	}
	model := strings.Trim(strings.TrimSpace(opts.Model), "/")
	if model == "" {
		model = "stability-ai/sdxl"
	}
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		base = defaultReplicateBaseURL
	}
	interval := opts.PollInterval
	if interval <= 0 {
		interval = time.Second
	}
	strength := opts.Strength
	if strength == (prompt.StrengthRange{}) {
		strength = prompt.StrengthRange{Min: 0.4, Max: 0.9}
	}
	return &Replicate{
		apiToken:     strings.TrimSpace(opts.APIToken),
		model:        model,
		baseURL:      base,
		pollInterval: interval,
		strength:     strength,
		httpClient:   httpClientOrDefault(opts.HTTPClient, opts.Timeout),
	}, nil
}

func (r *Replicate) Name() string { return "replicate" }

// Transform fulfils the Transformer interface.
func (r *Replicate) Transform(ctx context.Context, req TransformRequest) (*Result, error) {
	if err := validateSource(req); err != nil {
		return nil, err
	}
	imageRef := strings.TrimSpace(req.Source.URL)
	if imageRef == "" {
		imageRef = imageproc.EncodeDataURI(sourceMIME(req.Source), req.Source.Data)
	}
	level := 50
	if req.Exaggeration != nil {
		level = *req.Exaggeration
	}
	input := replicateInput{
		Image:          imageRef,
		Prompt:         req.Prompt,
		NegativePrompt: strings.TrimSpace(req.NegativePrompt),
		PromptStrength: r.strength.Map(level),
		Width:          req.Width,
		Height:         req.Height,
		Seed:           req.Seed,
		NumOutputs:     1,
	}
	body, err := json.Marshal(map[string]any{"input": input})
	if err != nil {
		return nil, fmt.Errorf("replicate: encode request: %w", err)
	}
	endpoint := fmt.Sprintf("%s/models/%s/predictions", r.baseURL, r.model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("replicate: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Prefer", "wait")

	pred, err := r.do(httpReq)
	if err != nil {
		return nil, err
	}
	for !isTerminalPrediction(pred.Status) {
		if pred.URLs.Get == "" {
			return nil, fmt.Errorf("replicate: prediction %s has no poll url", pred.ID)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(r.pollInterval):
		}
		pollReq, err := http.NewRequestWithContext(ctx, http.MethodGet, pred.URLs.Get, nil)
		if err != nil {
			return nil, fmt.Errorf("replicate: build poll request: %w", err)
		}
		if pred, err = r.do(pollReq); err != nil {
			return nil, err
		}
	}
	if pred.Status != "succeeded" {
		return nil, fmt.Errorf("replicate: prediction %s %s: %v", pred.ID, pred.Status, pred.Error)
	}
	outURL := firstReplicateOutput(pred.Output)
	if outURL == "" {
		return nil, fmt.Errorf("replicate: prediction %s returned no output", pred.ID)
	}
	data, mime, err := download(ctx, r.httpClient, "replicate", outURL)
	if err != nil {
		return nil, err
	}
	return &Result{Data: data, MIME: mime, URL: outURL}, nil
}

func (r *Replicate) do(req *http.Request) (*replicatePrediction, error) {
	req.Header.Set("Authorization", "Bearer "+r.apiToken)
	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("replicate: http request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, statusError("replicate", resp)
	}
	var pred replicatePrediction
	if err := json.NewDecoder(resp.Body).Decode(&pred); err != nil {
		return nil, fmt.Errorf("replicate: decode response: %w", err)
	}
	return &pred, nil
}

func isTerminalPrediction(status string) bool {
	switch status {
	case "succeeded", "failed", "canceled":
		return true
	}
	return false
}

// firstReplicateOutput accepts both a single URL and a list of URLs.
func firstReplicateOutput(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		return strings.TrimSpace(single)
	}
	var many []string
	if err := json.Unmarshal(raw, &many); err == nil {
		for _, u := range many {
			if u = strings.TrimSpace(u); u != "" {
				return u
			}
		}
	}
	return ""
}

var _ Transformer = (*Replicate)(nil)
