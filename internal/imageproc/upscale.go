package imageproc

import (
	"image"

	"golang.org/x/image/draw"
)

// DefaultMaxDimension caps the longest side of an upscaled download.
const DefaultMaxDimension = 4096

// Upscale redraws img at factor× its size with CatmullRom filtering. The
// factor shrinks as needed so neither side exceeds maxDim; factor <= 1 still
// returns a fresh NRGBA copy.
func Upscale(img image.Image, factor, maxDim int) *image.NRGBA {
	b := img.Bounds()
	if maxDim <= 0 {
		maxDim = DefaultMaxDimension
	}
	if factor < 1 {
		factor = 1
	}
	for factor > 1 && (b.Dx()*factor > maxDim || b.Dy()*factor > maxDim) {
		factor--
	}
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx()*factor, b.Dy()*factor))
	if factor == 1 {
		draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
		return dst
	}
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}
