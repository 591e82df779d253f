// Package upload publishes source images to a public file host so URL-only
// providers can fetch them.
package upload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

// DefaultCatboxEndpoint is the anonymous catbox.moe upload API.
const DefaultCatboxEndpoint = "https://catbox.moe/user/api.php"

// ErrEmptyPayload is returned when there is nothing to upload.
var ErrEmptyPayload = errors.New("upload: empty payload")

// Uploader turns image bytes into a publicly reachable URL.
type Uploader interface {
	Upload(ctx context.Context, data []byte, filename string) (string, error)
}

// CatboxOptions configures the catbox client.
type CatboxOptions struct {
	Endpoint       string
	UserHash       string
	HTTPClient     *http.Client
	RequestTimeout time.Duration
}

// Catbox uploads files anonymously to catbox.moe.
type Catbox struct {
	endpoint   string
	userHash   string
	httpClient *http.Client
}

// NewCatbox builds a catbox uploader with defaults applied.
func NewCatbox(opts CatboxOptions) *Catbox {
	client := opts.HTTPClient
	if client == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	endpoint := strings.TrimSpace(opts.Endpoint)
	if endpoint == "" {
		endpoint = DefaultCatboxEndpoint
	}
	return &Catbox{endpoint: endpoint, userHash: opts.UserHash, httpClient: client}
}

// Upload posts the bytes as fileToUpload and returns the URL in the body.
func (c *Catbox) Upload(ctx context.Context, data []byte, filename string) (string, error) {
	if len(data) == 0 {
		return "", ErrEmptyPayload
	}
	if strings.TrimSpace(filename) == "" {
		filename = "image.png"
	}
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := mw.WriteField("reqtype", "fileupload"); err != nil {
		return "", err
	}
	if err := mw.WriteField("userhash", c.userHash); err != nil {
		return "", err
	}
	part, err := mw.CreateFormFile("fileToUpload", filename)
	if err != nil {
		return "", err
	}
	if _, err := part.Write(data); err != nil {
		return "", err
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("catbox: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return "", fmt.Errorf("catbox: read response: %w", err)
	}
	text := strings.TrimSpace(string(raw))
	if resp.StatusCode >= http.StatusBadRequest {
		return "", fmt.Errorf("catbox: http %d: %s", resp.StatusCode, text)
	}
	if !strings.HasPrefix(text, "http://") && !strings.HasPrefix(text, "https://") {
		return "", fmt.Errorf("catbox: unexpected response %q", text)
	}
	return text, nil
}

var _ Uploader = (*Catbox)(nil)
