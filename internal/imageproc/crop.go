package imageproc

import (
	"fmt"
	"image"
	"math"
	"strconv"
	"strings"

	"golang.org/x/image/draw"

	"caricagen/internal/domain"
)

// RatioOriginal disables cropping.
const RatioOriginal = "Original"

// MaxAspect bounds how elongated a ratio may be. It keeps the long side of the
// output box at MaxAspect times the base size.
const MaxAspect = 4

// Ratio is a W:H aspect ratio. The zero value means "Original".
type Ratio struct {
	W int
	H int
}

// ParseRatio accepts "W:H" with positive integers, or "Original"/"" for no crop.
// Ratios more elongated than MaxAspect:1 are rejected.
func ParseRatio(raw string) (Ratio, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.EqualFold(raw, RatioOriginal) {
		return Ratio{}, nil
	}
	parts := strings.Split(raw, ":")
	if len(parts) != 2 {
		return Ratio{}, fmt.Errorf("%w: %q", domain.ErrInvalidRatio, raw)
	}
	w, errW := strconv.Atoi(strings.TrimSpace(parts[0]))
	h, errH := strconv.Atoi(strings.TrimSpace(parts[1]))
	if errW != nil || errH != nil || w <= 0 || h <= 0 {
		return Ratio{}, fmt.Errorf("%w: %q", domain.ErrInvalidRatio, raw)
	}
	r := Ratio{W: w, H: h}
	if !r.bounded() {
		return Ratio{}, fmt.Errorf("%w: %q exceeds %d:1", domain.ErrInvalidRatio, raw, MaxAspect)
	}
	return r, nil
}

func (r Ratio) bounded() bool {
	long, short := float64(r.W), float64(r.H)
	if short > long {
		long, short = short, long
	}
	return long <= MaxAspect*short
}

// IsOriginal reports whether the ratio leaves the image uncropped.
func (r Ratio) IsOriginal() bool {
	return r.W <= 0 || r.H <= 0
}

// Value returns W/H.
func (r Ratio) Value() float64 {
	if r.IsOriginal() {
		return 0
	}
	return float64(r.W) / float64(r.H)
}

func (r Ratio) String() string {
	if r.IsOriginal() {
		return RatioOriginal
	}
	return fmt.Sprintf("%d:%d", r.W, r.H)
}

// CropOptions controls the fixed output box. The short side is Base, the long
// side follows the ratio, and both are floored to a multiple of Multiple so
// diffusion models accept the dimensions.
type CropOptions struct {
	Base     int
	Multiple int
}

// DefaultCropOptions matches the 512 / multiple-of-64 box most img2img models expect.
var DefaultCropOptions = CropOptions{Base: 512, Multiple: 64}

func (o CropOptions) normalized() CropOptions {
	if o.Base <= 0 {
		o.Base = DefaultCropOptions.Base
	}
	if o.Multiple <= 0 {
		o.Multiple = 1
	}
	return o
}

// OutputSize returns the box a crop at ratio r is scaled into. Ratios beyond
// MaxAspect yield an empty box.
func OutputSize(r Ratio, opts CropOptions) (int, int) {
	opts = opts.normalized()
	w, h := opts.Base, opts.Base
	switch {
	case !r.IsOriginal() && !r.bounded():
		return 0, 0
	case r.IsOriginal() || r.W == r.H:
	case r.W > r.H:
		w = int(math.Round(float64(opts.Base) * r.Value()))
	default:
		h = int(math.Round(float64(opts.Base) / r.Value()))
	}
	w = w / opts.Multiple * opts.Multiple
	h = h / opts.Multiple * opts.Multiple
	return w, h
}

// CropRect returns the centered rectangle of a srcW×srcH image matching r,
// relative to the image origin.
func CropRect(srcW, srcH int, r Ratio) image.Rectangle {
	if r.IsOriginal() || srcW <= 0 || srcH <= 0 {
		return image.Rect(0, 0, srcW, srcH)
	}
	target := r.Value()
	// wider than the target when srcW/srcH > W/H
	if srcW*r.H > srcH*r.W {
		renderW := int(math.Round(float64(srcH) * target))
		offX := (srcW - renderW) / 2
		return image.Rect(offX, 0, offX+renderW, srcH)
	}
	renderH := int(math.Round(float64(srcW) / target))
	offY := (srcH - renderH) / 2
	return image.Rect(0, offY, srcW, offY+renderH)
}

// Crop center-crops img to r and scales the crop into the fixed output box.
func Crop(img image.Image, r Ratio, opts CropOptions) (*image.NRGBA, error) {
	if img == nil {
		return nil, ErrEmptyImage
	}
	if r.IsOriginal() {
		return nil, fmt.Errorf("%w: original has no crop box", domain.ErrInvalidRatio)
	}
	bounds := img.Bounds()
	if bounds.Empty() {
		return nil, ErrEmptyImage
	}
	outW, outH := OutputSize(r, opts)
	if outW <= 0 || outH <= 0 {
		return nil, fmt.Errorf("%w: empty output box for %s", domain.ErrInvalidRatio, r)
	}
	rect := CropRect(bounds.Dx(), bounds.Dy(), r).Add(bounds.Min)
	if rect.Empty() {
		return nil, fmt.Errorf("%w: empty crop for %s", domain.ErrInvalidRatio, r)
	}

	dst := image.NewNRGBA(image.Rect(0, 0, outW, outH))
	if rect.Dx() == outW && rect.Dy() == outH {
		draw.Draw(dst, dst.Bounds(), img, rect.Min, draw.Src)
		return dst, nil
	}
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, rect, draw.Src, nil)
	return dst, nil
}

// CropDataURI crops a data-URI image and returns a PNG data URI. Any failure,
// including "Original" or a malformed ratio, returns src unchanged.
func CropDataURI(src, ratio string, opts CropOptions) string {
	r, err := ParseRatio(ratio)
	if err != nil || r.IsOriginal() {
		return src
	}
	img, err := DecodeDataURIImage(src)
	if err != nil {
		return src
	}
	cropped, err := Crop(img, r, opts)
	if err != nil {
		return src
	}
	out, err := PNGDataURI(cropped)
	if err != nil {
		return src
	}
	return out
}
