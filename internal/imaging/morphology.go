package imaging

import (
	"errors"
	"fmt"
	"image"

	"github.com/anthonynsimon/bild/parallel"
)

// ErrInvalidRadius is returned when a structuring element radius is below 1.
var ErrInvalidRadius = errors.New("structuring radius must be >= 1")

// DefaultStructuringRadius is sized for character strokes in a 300x150 plate,
// not for general-purpose denoising.
const DefaultStructuringRadius = 1

// Erode replaces each pixel with the minimum over a (2r+1)x(2r+1) square
// neighbourhood. Pixels outside the image are ignored.
func Erode(gray *image.Gray, radius int) *image.Gray {
	return morph(gray, radius, minOf)
}

// Dilate replaces each pixel with the maximum over a (2r+1)x(2r+1) square
// neighbourhood. Pixels outside the image are ignored.
func Dilate(gray *image.Gray, radius int) *image.Gray {
	return morph(gray, radius, maxOf)
}

// Open is an erosion followed by a dilation. It removes bright features
// smaller than the structuring element.
func Open(gray *image.Gray, radius int) *image.Gray {
	return Dilate(Erode(gray, radius), radius)
}

// Close is a dilation followed by an erosion. It removes dark features
// smaller than the structuring element.
func Close(gray *image.Gray, radius int) *image.Gray {
	return Erode(Dilate(gray, radius), radius)
}

// TopHat returns src - Open(src): small bright details.
func TopHat(gray *image.Gray, radius int) *image.Gray {
	return subtract(gray, Open(gray, radius))
}

// BlackHat returns Close(src) - src: small dark details.
func BlackHat(gray *image.Gray, radius int) *image.Gray {
	return subtract(Close(gray, radius), gray)
}

// EnhanceContrast suppresses uneven illumination while keeping stroke edges.
//
// The result is clamp(src + TopHat(src) - BlackHat(src)) followed by
// EqualizeHistogram. Bright strokes get brighter and dark strokes get darker
// relative to their surroundings before the intensity distribution is
// stretched over [0,255].
//
// # Errors
//
//   - ErrInvalidRadius if radius < 1
func EnhanceContrast(gray *image.Gray, radius int) (*image.Gray, error) {
	if radius < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidRadius, radius)
	}

	src, w, h := plane(gray)
	top, _, _ := plane(TopHat(gray, radius))
	black, _, _ := plane(BlackHat(gray, radius))

	out := make([]uint8, len(src))
	for i := range src {
		out[i] = clampByte(int(src[i]) + int(top[i]) - int(black[i]))
	}

	return EqualizeHistogram(fromPlane(out, w, h)), nil
}

// morph applies a separable square min/max filter: a horizontal pass followed
// by a vertical pass, rows processed in parallel.
func morph(gray *image.Gray, radius int, pick func(a, b uint8) uint8) *image.Gray {
	src, w, h := plane(gray)
	if radius < 1 || w == 0 || h == 0 {
		return fromPlane(src, w, h)
	}

	tmp := make([]uint8, len(src))
	parallel.Line(h, func(start, end int) {
		for y := start; y < end; y++ {
			row := src[y*w : (y+1)*w]
			for x := 0; x < w; x++ {
				v := row[x]
				for k := max(0, x-radius); k <= min(w-1, x+radius); k++ {
					v = pick(v, row[k])
				}
				tmp[y*w+x] = v
			}
		}
	})

	dst := make([]uint8, len(src))
	parallel.Line(h, func(start, end int) {
		for y := start; y < end; y++ {
			for x := 0; x < w; x++ {
				v := tmp[y*w+x]
				for k := max(0, y-radius); k <= min(h-1, y+radius); k++ {
					v = pick(v, tmp[k*w+x])
				}
				dst[y*w+x] = v
			}
		}
	})

	return fromPlane(dst, w, h)
}

// subtract returns a - b saturated at 0.
func subtract(a, b *image.Gray) *image.Gray {
	pa, w, h := plane(a)
	pb, _, _ := plane(b)
	out := make([]uint8, len(pa))
	for i := range pa {
		out[i] = clampByte(int(pa[i]) - int(pb[i]))
	}
	return fromPlane(out, w, h)
}

func minOf(a, b uint8) uint8 {
	if b < a {
		return b
	}
	return a
}

func maxOf(a, b uint8) uint8 {
	if b > a {
		return b
	}
	return a
}

func clampByte(v int) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
