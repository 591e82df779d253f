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

const defaultCloudflareBaseURL = "https://api.cloudflare.com/client/v4"

// CloudflareOptions configures the Workers AI img2img adapter.
type CloudflareOptions struct {
	AccountID  string
	APIToken   string
	Model      string
	BaseURL    string
	Strength   prompt.StrengthRange
	HTTPClient *http.Client
	Timeout    time.Duration
}

// Cloudflare runs a Stable Diffusion img2img model on Workers AI.
type Cloudflare struct {
	accountID  string
	apiToken   string
	model      string
	baseURL    string
	strength   prompt.StrengthRange
	httpClient *http.Client
}

type cloudflareRequest struct {
	Prompt         string  `json:"prompt"`
	NegativePrompt string  `json:"negative_prompt,omitempty"`
	ImageB64       string  `json:"image_b64"`
	Strength       float64 `json:"strength"`
	Width          int     `json:"width,omitempty"`
	Height         int     `json:"height,omitempty"`
	Seed           int     `json:"seed,omitempty"`
	NumSteps       int     `json:"num_steps"`
}

type cloudflareError struct {
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// NewCloudflare builds the adapter.
func NewCloudflare(opts CloudflareOptions) (*Cloudflare, error) {
	if strings.TrimSpace(opts.AccountID) == "" || strings.TrimSpace(opts.APIToken) == "" {
		return nil, fmt.Errorf("cloudflare: %w", ErrMissingCredentials)
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = "@cf/runwayml/stable-diffusion-v1-5-img2img"
	}
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		base = defaultCloudflareBaseURL
	}
	strength := opts.Strength
	if strength == (prompt.StrengthRange{}) {
		strength = prompt.DefaultStrengthRange
	}
	return &Cloudflare{
		accountID:  strings.TrimSpace(opts.AccountID),
		apiToken:   strings.TrimSpace(opts.APIToken),
		model:      model,
		baseURL:    base,
		strength:   strength,
		httpClient: httpClientOrDefault(opts.HTTPClient, opts.Timeout),
	}, nil
}

func (c *Cloudflare) Name() string { return "cloudflare" }

// Transform fulfils the Transformer interface.
func (c *Cloudflare) Transform(ctx context.Context, req TransformRequest) (*Result, error) {
	if len(req.Source.Data) == 0 {
		return nil, ErrEmptySource
	}
	level := 50
	if req.Exaggeration != nil {
		level = *req.Exaggeration
	}
	payload := cloudflareRequest{
		Prompt:         req.Prompt,
		NegativePrompt: strings.TrimSpace(req.NegativePrompt),
		ImageB64:       base64.StdEncoding.EncodeToString(req.Source.Data),
		Strength:       c.strength.Map(level),
		Width:          req.Width,
		Height:         req.Height,
		Seed:           req.Seed,
		NumSteps:       20,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("cloudflare: encode request: %w", err)
	}
	endpoint := fmt.Sprintf("%s/accounts/%s/ai/run/%s", c.baseURL, c.accountID, c.model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("cloudflare: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiToken)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("cloudflare: http request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		var detail cloudflareError
		if err := json.NewDecoder(resp.Body).Decode(&detail); err == nil && len(detail.Errors) > 0 {
			return nil, fmt.Errorf("cloudflare: status %d: %s", resp.StatusCode, detail.Errors[0].Message)
		}
		return nil, fmt.Errorf("cloudflare: status %d", resp.StatusCode)
	}
	data, mime, err := readImageBody(resp, "cloudflare")
	if err != nil {
		return nil, err
	}
	return &Result{Data: data, MIME: mime}, nil
}

var _ Transformer = (*Cloudflare)(nil)
