// Package download renders the displayed wizard image into a downloadable
// file. Only PNG is produced; PDF and vector formats reuse the PNG and carry
// a notice explaining how to convert it with a desktop tool.
package download

import (
	"errors"
	"fmt"
	"strings"

	"caricagen/internal/i18n"
	"caricagen/internal/imageproc"
)

// ErrUnknownFormat is returned by ParseFormat for unsupported identifiers.
var ErrUnknownFormat = errors.New("download: unknown format")

// Format identifies a download option.
type Format string

const (
	FormatBitmap      Format = "BITMAP"
	FormatPDF         Format = "PDF"
	FormatVectorBW    Format = "VECTOR_BW"
	FormatVectorColor Format = "VECTOR_COLOR"
)

const (
	pdfNotice    = "PDF files are not generated automatically. Place the PNG in your layout tool and export it as PDF."
	vectorNotice = "Vector files are not generated automatically. Open the PNG in CorelDRAW or Illustrator and use image trace to vectorize it."
)

// Descriptor describes a format for listing endpoints.
type Descriptor struct {
	ID          Format `json:"id"`
	Label       string `json:"label"`
	Description string `json:"description"`
	Notice      string `json:"notice,omitempty"`
}

type formatInfo struct {
	id          Format
	label       string
	description string
	notice      string
	grayscale   bool
}

var formats = []formatInfo{
	{id: FormatBitmap, label: "BITMAP", description: "JPG, PNG, 300dpi HD"},
	{id: FormatPDF, label: "PDF", description: "High resolution", notice: pdfNotice},
	{id: FormatVectorBW, label: "BW VECTOR", description: ".CDR/.AI Black and White", notice: vectorNotice, grayscale: true},
	{id: FormatVectorColor, label: "COLOR VECTOR", description: ".CDR/.AI Color HD", notice: vectorNotice},
}

// Formats lists the download options with labels localized for locale.
func Formats(locale string) []Descriptor {
	out := make([]Descriptor, 0, len(formats))
	for _, f := range formats {
		out = append(out, f.describe(locale))
	}
	return out
}

// ParseFormat matches raw case-insensitively; empty input means BITMAP.
func ParseFormat(raw string) (Format, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return FormatBitmap, nil
	}
	for _, f := range formats {
		if strings.EqualFold(string(f.id), raw) {
			return f.id, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, raw)
}

// File is a rendered download.
type File struct {
	Name   string
	MIME   string
	Data   []byte
	Notice string
}

// Options controls rendering.
type Options struct {
	Scale        int
	MaxDimension int
	Locale       string
}

// Render decodes the display data URI, upscales it and encodes a PNG.
func Render(display string, format Format, opts Options) (*File, error) {
	info, ok := lookup(format)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	img, err := imageproc.DecodeDataURIImage(display)
	if err != nil {
		return nil, fmt.Errorf("download: decode display image: %w", err)
	}
	out := imageproc.Upscale(img, opts.Scale, opts.MaxDimension)
	if info.grayscale {
		out = imageproc.Grayscale(out)
	}
	data, err := imageproc.EncodePNG(out)
	if err != nil {
		return nil, err
	}
	return &File{
		Name:   "caricatura-" + strings.ToLower(string(info.id)) + ".png",
		MIME:   "image/png",
		Data:   data,
		Notice: i18n.T(opts.Locale, info.notice),
	}, nil
}

func lookup(format Format) (formatInfo, bool) {
	for _, f := range formats {
		if f.id == format {
			return f, true
		}
	}
	return formatInfo{}, false
}

func (f formatInfo) describe(locale string) Descriptor {
	return Descriptor{
		ID:          f.id,
		Label:       i18n.T(locale, f.label),
		Description: i18n.T(locale, f.description),
		Notice:      i18n.T(locale, f.notice),
	}
}
