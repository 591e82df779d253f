package imageproc

import (
	"image"

	"golang.org/x/image/draw"
)

// Grayscale applies the ITU-R 601 luma weights (0.299, 0.587, 0.114) to every
// pixel, keeping alpha. Integer rounding makes a second pass a no-op.
func Grayscale(img image.Image) *image.NRGBA {
	b := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)

	pix := dst.Pix
	for i := 0; i+3 < len(pix); i += 4 {
		gray := luma(pix[i], pix[i+1], pix[i+2])
		pix[i] = gray
		pix[i+1] = gray
		pix[i+2] = gray
	}
	return dst
}

// GrayscaleDataURI converts a data-URI image; failures return src unchanged.
func GrayscaleDataURI(src string) string {
	img, err := DecodeDataURIImage(src)
	if err != nil {
		return src
	}
	out, err := PNGDataURI(Grayscale(img))
	if err != nil {
		return src
	}
	return out
}

func luma(r, g, b uint8) uint8 {
	return uint8((299*uint32(r) + 587*uint32(g) + 114*uint32(b) + 500) / 1000)
}
