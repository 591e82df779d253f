// Package imageproc holds the deterministic raster transforms applied to
// uploads before they reach a provider: aspect-ratio cropping, grayscale
// conversion and the download upscale. Every transform has a pure
// image.Image form and a data-URI form that falls back to its input.
package imageproc

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"net/http"
	"strings"

	_ "golang.org/x/image/webp"
)

var (
	ErrEmptyImage   = errors.New("imageproc: empty image data")
	ErrInvalidImage = errors.New("imageproc: invalid image data")
	ErrNotDataURI   = errors.New("imageproc: not a base64 data uri")
)

// DataURI is a decoded data URI payload.
type DataURI struct {
	MIME string
	Data []byte
}

// String re-encodes the payload as a base64 data URI.
func (d DataURI) String() string {
	return EncodeDataURI(d.MIME, d.Data)
}

// ParseDataURI decodes "data:<mime>;base64,<payload>". Bare base64 without the
// prefix is accepted too; its MIME type is sniffed from the bytes.
func ParseDataURI(raw string) (DataURI, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DataURI{}, ErrEmptyImage
	}
	mime := ""
	payload := raw
	if strings.HasPrefix(raw, "data:") {
		comma := strings.IndexByte(raw, ',')
		if comma < 0 {
			return DataURI{}, ErrNotDataURI
		}
		meta := raw[len("data:"):comma]
		if !strings.HasSuffix(meta, ";base64") {
			return DataURI{}, ErrNotDataURI
		}
		mime = strings.TrimSuffix(meta, ";base64")
		payload = raw[comma+1:]
	}
	data, err := decodeBase64(payload)
	if err != nil {
		return DataURI{}, fmt.Errorf("%w: %v", ErrNotDataURI, err)
	}
	if len(data) == 0 {
		return DataURI{}, ErrEmptyImage
	}
	if mime == "" {
		mime = http.DetectContentType(data)
	}
	return DataURI{MIME: mime, Data: data}, nil
}

// EncodeDataURI builds a base64 data URI; an empty MIME type is sniffed.
func EncodeDataURI(mime string, data []byte) string {
	if mime == "" {
		mime = http.DetectContentType(data)
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// IsDataURI reports whether s carries the data: scheme.
func IsDataURI(s string) bool {
	return strings.HasPrefix(strings.TrimSpace(s), "data:")
}

// MaxPixels caps the decoded size of any image accepted for processing.
const MaxPixels = 8192 * 8192

// DecodeImage decodes PNG, JPEG, GIF or WebP bytes. The header is checked
// first so images over MaxPixels are rejected before any pixel is allocated.
func DecodeImage(data []byte) (image.Image, string, error) {
	if len(data) == 0 {
		return nil, "", ErrEmptyImage
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return nil, "", fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrInvalidImage, cfg.Width, cfg.Height, MaxPixels)
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	return img, format, nil
}

// DecodeDataURIImage parses and decodes a data URI in one step.
func DecodeDataURIImage(raw string) (image.Image, error) {
	uri, err := ParseDataURI(raw)
	if err != nil {
		return nil, err
	}
	img, _, err := DecodeImage(uri.Data)
	return img, err
}

// EncodePNG encodes img as PNG.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("imageproc: encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// PNGDataURI encodes img as a PNG data URI.
func PNGDataURI(img image.Image) (string, error) {
	data, err := EncodePNG(img)
	if err != nil {
		return "", err
	}
	return EncodeDataURI("image/png", data), nil
}

func decodeBase64(payload string) ([]byte, error) {
	payload = strings.Map(func(r rune) rune {
		switch r {
		case '\n', '\r', '\t', ' ':
			return -1
		}
		return r
	}, payload)
	data, err := base64.StdEncoding.DecodeString(payload)
	if err == nil {
		return data, nil
	}
	if raw, rawErr := base64.RawStdEncoding.DecodeString(payload); rawErr == nil {
		return raw, nil
	}
	return nil, err
}
