package image

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"caricagen/internal/imageproc"
	"caricagen/internal/infra"
)

const defaultDashScopeBaseURL = "https://dashscope-intl.aliyuncs.com/api/v1"

// DashScopeOptions configures the Qwen image edit adapter.
type DashScopeOptions struct {
	APIKey     string
	BaseURL    string
	Model      string
	Watermark  bool
	HTTPClient *http.Client
	Logger     *infra.Logger
	Timeout    time.Duration
}

// DashScope edits the source with Qwen image edit through the multimodal
// generation endpoint.
type DashScope struct {
	apiKey     string
	baseURL    string
	model      string
	watermark  bool
	httpClient *http.Client
	logger     *infra.Logger
}

type dashScopeRequest struct {
	Model      string              `json:"model"`
	Input      dashScopeInput      `json:"input"`
	Parameters dashScopeParameters `json:"parameters"`
}

type dashScopeInput struct {
	Messages []dashScopeMessage `json:"messages"`
}

type dashScopeMessage struct {
	Role    string             `json:"role"`
	Content []dashScopeContent `json:"content"`
}

type dashScopeContent struct {
	Image string `json:"image,omitempty"`
	Text  string `json:"text,omitempty"`
}

type dashScopeParameters struct {
	NegativePrompt string `json:"negative_prompt,omitempty"`
	Watermark      bool   `json:"watermark"`
	Seed           *int   `json:"seed,omitempty"`
}

type dashScopeResponse struct {
	Output struct {
		Choices []struct {
			Message struct {
				Content []struct {
					Image string `json:"image"`
				} `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	} `json:"output"`
	RequestID string `json:"request_id"`
	Code      string `json:"code"`
	Message   string `json:"message"`
}

// NewDashScope builds the adapter.
func NewDashScope(opts DashScopeOptions) (*DashScope, error) {
	key := strings.TrimSpace(opts.APIKey)
	if key == "" {
		return nil, fmt.Errorf("dashscope: %w", ErrMissingCredentials)
	}
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		base = defaultDashScopeBaseURL
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = "qwen-image-edit"
	}
	logger := opts.Logger
	if logger == nil {
		nop := infra.NopLogger()
		logger = &nop
	}
	return &DashScope{
		apiKey:     key,
		baseURL:    base,
		model:      model,
		watermark:  opts.Watermark,
		httpClient: httpClientOrDefault(opts.HTTPClient, opts.Timeout),
		logger:     logger,
	}, nil
}

func (d *DashScope) Name() string { return "dashscope" }

// Transform fulfils the Transformer interface.
func (d *DashScope) Transform(ctx context.Context, req TransformRequest) (*Result, error) {
	if err := validateSource(req); err != nil {
		return nil, err
	}
	imageRef := strings.TrimSpace(req.Source.URL)
	if imageRef == "" {
		imageRef = imageproc.EncodeDataURI(sourceMIME(req.Source), req.Source.Data)
	}
	payload := dashScopeRequest{
		Model: d.model,
		Input: dashScopeInput{
			Messages: []dashScopeMessage{{
				Role: "user",
				Content: []dashScopeContent{
					{Image: imageRef},
					{Text: req.Prompt},
				},
			}},
		},
		Parameters: dashScopeParameters{
			NegativePrompt: strings.TrimSpace(req.NegativePrompt),
			Watermark:      d.watermark,
		},
	}
	if req.Seed > 0 {
		seed := req.Seed
		payload.Parameters.Seed = &seed
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("dashscope: encode request: %w", err)
	}
	endpoint := d.baseURL + "/services/aigc/multimodal-generation/generation"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("dashscope: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+d.apiKey)

	resp, err := d.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("dashscope: http request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("dashscope: read response: %w", err)
	}
	var decoded dashScopeResponse
	decodeErr := json.Unmarshal(raw, &decoded)
	if resp.StatusCode >= 300 {
		if decodeErr == nil && decoded.Message != "" {
			return nil, fmt.Errorf("dashscope: %s (%s)", decoded.Message, decoded.Code)
		}
		return nil, fmt.Errorf("dashscope: status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("dashscope: decode response: %w", decodeErr)
	}
	if decoded.Code != "" {
		return nil, fmt.Errorf("dashscope: %s (%s)", decoded.Message, decoded.Code)
	}
	imageURL := firstDashScopeImage(decoded)
	if imageURL == "" {
		return nil, errors.New("dashscope: empty image url")
	}
	data, mime, err := download(ctx, d.httpClient, "dashscope", imageURL)
	if err != nil {
		return nil, err
	}
	d.logger.Debug().
		Str("model", d.model).
		Str("request_id", decoded.RequestID).
		Str("url", imageURL).
		Msg("dashscope: edited image")
	return &Result{Data: data, MIME: mime, URL: imageURL}, nil
}

func firstDashScopeImage(resp dashScopeResponse) string {
	for _, choice := range resp.Output.Choices {
		for _, content := range choice.Message.Content {
			if u := strings.TrimSpace(content.Image); u != "" {
				return u
			}
		}
	}
	return ""
}

var _ Transformer = (*DashScope)(nil)
