package image

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"caricagen/internal/imageproc"
)

// maxOpenAIPromptLen is the dall-e-2 edit prompt limit.
const maxOpenAIPromptLen = 1000

// OpenAIOptions configures the OpenAI image edit adapter.
type OpenAIOptions struct {
	APIKey     string
	BaseURL    string
	Model      string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// OpenAI edits the source with the images/edits endpoint.
type OpenAI struct {
	client *openai.Client
	model  string
}

// NewOpenAI builds the adapter on top of go-openai.
func NewOpenAI(opts OpenAIOptions) (*OpenAI, error) {
	key := strings.TrimSpace(opts.APIKey)
	if key == "" {
		return nil, fmt.Errorf("openai: %w", ErrMissingCredentials)
	}
	cfg := openai.DefaultConfig(key)
	if base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/"); base != "" {
		cfg.BaseURL = base
	}
	cfg.HTTPClient = httpClientOrDefault(opts.HTTPClient, opts.Timeout)
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = openai.CreateImageModelDallE2
	}
	return &OpenAI{client: openai.NewClientWithConfig(cfg), model: model}, nil
}

func (o *OpenAI) Name() string { return "openai" }

// Transform fulfils the Transformer interface.
func (o *OpenAI) Transform(ctx context.Context, req TransformRequest) (*Result, error) {
	if len(req.Source.Data) == 0 {
		return nil, ErrEmptySource
	}
	img, _, err := imageproc.DecodeImage(req.Source.Data)
	if err != nil {
		return nil, fmt.Errorf("openai: %w", err)
	}
	pngData, err := imageproc.EncodePNG(img)
	if err != nil {
		return nil, fmt.Errorf("openai: %w", err)
	}
	// the multipart encoder names the part after the file
	f, err := os.CreateTemp("", "caricagen-*.png")
	if err != nil {
		return nil, fmt.Errorf("openai: temp file: %w", err)
	}
	defer os.Remove(f.Name())
	defer f.Close()
	if _, err := f.Write(pngData); err != nil {
		return nil, fmt.Errorf("openai: temp file: %w", err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("openai: temp file: %w", err)
	}

	text := req.Prompt
	if len(text) > maxOpenAIPromptLen {
		text = text[:maxOpenAIPromptLen]
	}
	resp, err := o.client.CreateEditImage(ctx, openai.ImageEditRequest{
		Image:          f,
		Prompt:         text,
		Model:          o.model,
		N:              1,
		Size:           o.size(req.Width, req.Height),
		ResponseFormat: openai.CreateImageResponseFormatB64JSON,
	})
	if err != nil {
		return nil, fmt.Errorf("openai: image edit failed: %w", err)
	}
	if len(resp.Data) == 0 || resp.Data[0].B64JSON == "" {
		return nil, fmt.Errorf("openai: empty image data")
	}
	data, err := base64.StdEncoding.DecodeString(resp.Data[0].B64JSON)
	if err != nil {
		return nil, fmt.Errorf("openai: decode image: %w", err)
	}
	return &Result{Data: data, MIME: http.DetectContentType(data)}, nil
}

// size picks the closest output size the model accepts.
func (o *OpenAI) size(width, height int) string {
	if o.model == openai.CreateImageModelDallE2 {
		longest := width
		if height > longest {
			longest = height
		}
		switch {
		case longest > 0 && longest <= 256:
			return openai.CreateImageSize256x256
		case longest > 0 && longest <= 512:
			return openai.CreateImageSize512x512
		default:
			return openai.CreateImageSize1024x1024
		}
	}
	switch {
	case width > height:
		return "1536x1024"
	case height > width:
		return "1024x1536"
	default:
		return openai.CreateImageSize1024x1024
	}
}

var _ Transformer = (*OpenAI)(nil)
