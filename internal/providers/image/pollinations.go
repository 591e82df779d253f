package image

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"caricagen/internal/providers/upload"
)

const defaultPollinationsBaseURL = "https://image.pollinations.ai"

// PollinationsOptions configures the Pollinations adapter.
type PollinationsOptions struct {
	BaseURL    string
	Model      string
	Token      string
	Uploader   upload.Uploader
	HTTPClient *http.Client
	Timeout    time.Duration
}

// Pollinations fetches a GET-rendered image conditioned on a public image URL.
type Pollinations struct {
	baseURL    string
	model      string
	token      string
	uploader   upload.Uploader
	httpClient *http.Client
}

// NewPollinations builds the adapter. An uploader is required because the
// service only accepts the source as a URL.
func NewPollinations(opts PollinationsOptions) (*Pollinations, error) {
	if opts.Uploader == nil {
		return nil, errors.New("pollinations: uploader is required")
	}
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		base = defaultPollinationsBaseURL
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = "turbo"
	}
	return &Pollinations{
		baseURL:    base,
		model:      model,
		token:      strings.TrimSpace(opts.Token),
		uploader:   opts.Uploader,
		httpClient: httpClientOrDefault(opts.HTTPClient, opts.Timeout),
	}, nil
}

func (p *Pollinations) Name() string { return "pollinations" }

// Transform fulfils the Transformer interface.
func (p *Pollinations) Transform(ctx context.Context, req TransformRequest) (*Result, error) {
	if err := validateSource(req); err != nil {
		return nil, err
	}
	imageURL := strings.TrimSpace(req.Source.URL)
	if imageURL == "" {
		u, err := p.uploader.Upload(ctx, req.Source.Data, "image.png")
		if err != nil {
			return nil, fmt.Errorf("pollinations: upload source: %w", err)
		}
		imageURL = u
	}

	q := url.Values{}
	if req.Width > 0 {
		q.Set("width", strconv.Itoa(req.Width))
	}
	if req.Height > 0 {
		q.Set("height", strconv.Itoa(req.Height))
	}
	q.Set("seed", strconv.Itoa(req.Seed))
	q.Set("model", p.model)
	q.Set("nologo", "true")
	q.Set("enhance", "true")
	if neg := strings.TrimSpace(req.NegativePrompt); neg != "" {
		q.Set("negative_prompt", neg)
	}
	q.Set("image", imageURL)
	endpoint := p.baseURL + "/prompt/" + url.PathEscape(req.Prompt) + "?" + q.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("pollinations: build request: %w", err)
	}
	if p.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.token)
	}
	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("pollinations: http request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, statusError("pollinations", resp)
	}
	data, mime, err := readImageBody(resp, "pollinations")
	if err != nil {
		return nil, err
	}
	return &Result{Data: data, MIME: mime}, nil
}

var _ Transformer = (*Pollinations)(nil)
