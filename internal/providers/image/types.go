package image

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"caricagen/internal/imageproc"
)

// ErrMissingCredentials indicates that a provider was configured without its key.
var ErrMissingCredentials = errors.New("image provider: credentials are required")

// ErrEmptySource is returned when the request carries no image.
var ErrEmptySource = errors.New("image provider: source image is required")

const defaultRequestTimeout = 120 * time.Second

// maxImageBytes bounds every provider response read into memory.
const maxImageBytes = 32 << 20

// Source is the conditioning image. Data is always set; URL only once the
// bytes have been published to a file host.
type Source struct {
	Data []byte
	MIME string
	URL  string
}

// TransformRequest is the normalized img2img request passed to any provider.
type TransformRequest struct {
	Source         Source
	Prompt         string
	NegativePrompt string
	Exaggeration   *int
	Width          int
	Height         int
	Seed           int
}

// Result carries the generated image bytes, or only a URL when the provider
// answered with a link that could not be downloaded.
type Result struct {
	Data []byte
	MIME string
	URL  string
}

// DataURI renders the result for JSON responses.
func (r *Result) DataURI() string {
	if r == nil {
		return ""
	}
	if len(r.Data) == 0 {
		return r.URL
	}
	return imageproc.EncodeDataURI(r.MIME, r.Data)
}

// Transformer is the contract implemented by all image providers.
type Transformer interface {
	Transform(ctx context.Context, req TransformRequest) (*Result, error)
}

// Named is implemented by transformers that report which backend served them.
type Named interface {
	Name() string
}

// NameOf returns the provider name of t, or "unknown".
func NameOf(t Transformer) string {
	if n, ok := t.(Named); ok {
		return n.Name()
	}
	return "unknown"
}

func httpClientOrDefault(client *http.Client, timeout time.Duration) *http.Client {
	if client != nil {
		return client
	}
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	return &http.Client{Timeout: timeout}
}

func validateSource(req TransformRequest) error {
	if len(req.Source.Data) == 0 && strings.TrimSpace(req.Source.URL) == "" {
		return ErrEmptySource
	}
	return nil
}

func sourceMIME(src Source) string {
	if src.MIME != "" {
		return src.MIME
	}
	return http.DetectContentType(src.Data)
}

// download fetches a generated image URL.
func download(ctx context.Context, client *http.Client, prefix, imageURL string) ([]byte, string, error) {
	parsed, err := url.Parse(strings.TrimSpace(imageURL))
	if err != nil || parsed.Scheme == "" {
		return nil, "", fmt.Errorf("%s: invalid image url: %s", prefix, imageURL)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, parsed.String(), nil)
	if err != nil {
		return nil, "", fmt.Errorf("%s: build download request: %w", prefix, err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("%s: download image: %w", prefix, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, "", fmt.Errorf("%s: download status %d", prefix, resp.StatusCode)
	}
	return readImageBody(resp, prefix)
}

func readImageBody(resp *http.Response, prefix string) ([]byte, string, error) {
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("%s: read image: %w", prefix, err)
	}
	if len(data) > maxImageBytes {
		return nil, "", fmt.Errorf("%s: image exceeds %d bytes", prefix, maxImageBytes)
	}
	if len(data) == 0 {
		return nil, "", fmt.Errorf("%s: empty image body", prefix)
	}
	mime := resp.Header.Get("Content-Type")
	if i := strings.Index(mime, ";"); i >= 0 {
		mime = mime[:i]
	}
	if !strings.HasPrefix(mime, "image/") {
		mime = http.DetectContentType(data)
	}
	if !strings.HasPrefix(mime, "image/") {
		return nil, "", fmt.Errorf("%s: unexpected content type %s", prefix, mime)
	}
	return data, mime, nil
}

func statusError(prefix string, resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	return fmt.Errorf("%s: status %d: %s", prefix, resp.StatusCode, strings.TrimSpace(string(raw)))
}
