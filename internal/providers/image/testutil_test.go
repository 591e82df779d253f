package image

import (
	"bytes"
	"context"
	stdimage "image"
	"image/color"
	"image/png"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

type capturedRequest struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
}

// captureTransport records every request and answers from a per-path table.
type captureTransport struct {
	mu       sync.Mutex
	requests []capturedRequest
	routes   map[string]func(r *http.Request) *http.Response
}

func newCaptureTransport() *captureTransport {
	return &captureTransport{routes: map[string]func(*http.Request) *http.Response{}}
}

func (c *captureTransport) handle(hostPath string, fn func(*http.Request) *http.Response) {
	c.routes[hostPath] = fn
}

func (c *captureTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	var body []byte
	if r.Body != nil {
		body, _ = io.ReadAll(r.Body)
		r.Body = io.NopCloser(bytes.NewReader(body))
	}
	c.mu.Lock()
	c.requests = append(c.requests, capturedRequest{Method: r.Method, URL: r.URL.String(), Header: r.Header.Clone(), Body: body})
	c.mu.Unlock()
	if fn, ok := c.routes[r.URL.Host+r.URL.Path]; ok {
		resp := fn(r)
		resp.Request = r
		return resp, nil
	}
	return response(http.StatusNotFound, "text/plain", []byte("no route for "+r.URL.String())), nil
}

func (c *captureTransport) client() *http.Client {
	return &http.Client{Transport: c}
}

func (c *captureTransport) last(t *testing.T) capturedRequest {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.requests) == 0 {
		t.Fatalf("no request captured")
	}
	return c.requests[len(c.requests)-1]
}

func (c *captureTransport) first(t *testing.T) capturedRequest {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.requests) == 0 {
		t.Fatalf("no request captured")
	}
	return c.requests[0]
}

func response(status int, contentType string, body []byte) *http.Response {
	h := make(http.Header)
	if contentType != "" {
		h.Set("Content-Type", contentType)
	}
	return &http.Response{
		StatusCode: status,
		Header:     h,
		Body:       io.NopCloser(bytes.NewReader(body)),
	}
}

func jsonResponse(status int, body string) *http.Response {
	return response(status, "application/json", []byte(body))
}

func samplePNG(t *testing.T) []byte {
	t.Helper()
	img := stdimage.NewNRGBA(stdimage.Rect(0, 0, 4, 4))
	for i := 0; i < 16; i++ {
		img.SetNRGBA(i%4, i/4, color.NRGBA{R: uint8(i * 10), G: 100, B: 200, A: 255})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

type stubUploader struct {
	url   string
	err   error
	calls int
}

func (s *stubUploader) Upload(ctx context.Context, data []byte, filename string) (string, error) {
	s.calls++
	return s.url, s.err
}

type stubTransformer struct {
	name    string
	result  *Result
	err     error
	calls   int
	lastReq TransformRequest
}

func (s *stubTransformer) Name() string { return s.name }

func (s *stubTransformer) Transform(ctx context.Context, req TransformRequest) (*Result, error) {
	s.calls++
	s.lastReq = req
	return s.result, s.err
}

func contains(s, sub string) bool { return strings.Contains(s, sub) }
