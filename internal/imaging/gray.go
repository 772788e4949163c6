package imaging

import (
	"image"

	"github.com/disintegration/imaging"
)

// ToGrayscale reduces img to a single 8-bit channel using ITU-R BT.601 luma
// weights (0.299*R + 0.587*G + 0.114*B).
//
// A *image.Gray input is copied unchanged. The result always has its origin
// at (0,0).
func ToGrayscale(img image.Image) *image.Gray {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	dst := image.NewGray(image.Rect(0, 0, w, h))
	if w == 0 || h == 0 {
		return dst
	}

	if g, ok := img.(*image.Gray); ok {
		for y := 0; y < h; y++ {
			src := g.Pix[g.PixOffset(bounds.Min.X, bounds.Min.Y+y):]
			copy(dst.Pix[y*dst.Stride:y*dst.Stride+w], src[:w])
		}
		return dst
	}

	luma := imaging.Grayscale(img)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			dst.Pix[y*dst.Stride+x] = luma.Pix[luma.PixOffset(x, y)]
		}
	}
	return dst
}

// plane copies a grayscale image into a tightly packed w*h slice.
func plane(g *image.Gray) ([]uint8, int, int) {
	b := g.Bounds()
	w, h := b.Dx(), b.Dy()
	pix := make([]uint8, w*h)
	if w == 0 {
		return pix, w, h
	}
	for y := 0; y < h; y++ {
		copy(pix[y*w:(y+1)*w], g.Pix[g.PixOffset(b.Min.X, b.Min.Y+y):])
	}
	return pix, w, h
}

// fromPlane wraps a tightly packed w*h slice as an *image.Gray at the origin.
func fromPlane(pix []uint8, w, h int) *image.Gray {
	return &image.Gray{Pix: pix, Stride: w, Rect: image.Rect(0, 0, w, h)}
}
