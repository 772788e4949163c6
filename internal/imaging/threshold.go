package imaging

import (
	"errors"
	"fmt"
	"image"
	"math"
	"strings"

	"github.com/anthonynsimon/bild/blur"
	"github.com/anthonynsimon/bild/parallel"
)

// ThresholdMode selects the binarization strategy.
type ThresholdMode int

const (
	// Adaptive compares each pixel with a Gaussian-weighted mean of its
	// neighbourhood minus a constant offset.
	Adaptive ThresholdMode = iota
	// GlobalOtsu uses one cut for the whole image, chosen by Otsu's method.
	GlobalOtsu
)

func (m ThresholdMode) String() string {
	switch m {
	case Adaptive:
		return "adaptive"
	case GlobalOtsu:
		return "otsu"
	default:
		return "unknown"
	}
}

// ParseThresholdMode accepts "adaptive" or "otsu" (case-insensitive).
func ParseThresholdMode(s string) (ThresholdMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "adaptive", "":
		return Adaptive, nil
	case "otsu", "global", "global_otsu":
		return GlobalOtsu, nil
	default:
		return Adaptive, fmt.Errorf("unknown threshold mode: %s", s)
	}
}

// Polarity states which side of the threshold is ink. The binary output
// always marks ink (foreground) as 255 and background as 0.
type Polarity int

const (
	// DarkOnLight treats pixels at or below the threshold as ink.
	DarkOnLight Polarity = iota
	// LightOnDark treats pixels above the threshold as ink.
	LightOnDark
)

func (p Polarity) String() string {
	if p == LightOnDark {
		return "light_on_dark"
	}
	return "dark_on_light"
}

// ParsePolarity accepts "dark_on_light" or "light_on_dark".
func ParsePolarity(s string) (Polarity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "dark_on_light", "dark", "":
		return DarkOnLight, nil
	case "light_on_dark", "light":
		return LightOnDark, nil
	default:
		return DarkOnLight, fmt.Errorf("unknown polarity: %s", s)
	}
}

// ErrInvalidBlockSize is returned for an adaptive window that is even or
// smaller than 3.
var ErrInvalidBlockSize = errors.New("adaptive block size must be odd and >= 3")

// BinarizeOptions tunes Binarize. The zero value is not useful; start from
// DefaultBinarizeOptions.
type BinarizeOptions struct {
	// Blur applies a light 3x3 Gaussian blur before thresholding.
	Blur bool

	// BlockSize is the odd side length of the adaptive neighbourhood.
	BlockSize int

	// C is subtracted from the neighbourhood mean in Adaptive mode.
	C float64

	// Polarity selects which intensities become foreground.
	Polarity Polarity
}

// DefaultBinarizeOptions returns an 11x11 window, C=2, pre-blur on, dark ink.
func DefaultBinarizeOptions() BinarizeOptions {
	return BinarizeOptions{
		Blur:      true,
		BlockSize: 11,
		C:         2,
		Polarity:  DarkOnLight,
	}
}

// Binarize converts a grayscale image into a 0/255 mask with ink as 255.
//
// Parameters:
//   - gray: Source intensities.
//   - mode: Adaptive or GlobalOtsu.
//   - opts: Blur, window and offset settings.
//
// # Adaptive Mode
//
// For every pixel the threshold is T = round(G(x,y)) - C, where G is the
// Gaussian-weighted mean over a BlockSize x BlockSize window with
// sigma = 0.3*((BlockSize-1)*0.5 - 1) + 0.8 and replicated borders.
// With DarkOnLight polarity the pixel is ink when src <= T.
//
// # GlobalOtsu Mode
//
// T = OtsuThreshold(src). With DarkOnLight polarity the pixel is ink when
// src <= T.
func Binarize(gray *image.Gray, mode ThresholdMode, opts BinarizeOptions) (*image.Gray, error) {
	src := gray
	if opts.Blur {
		src = lightBlur(gray)
	}

	pix, w, h := plane(src)
	out := make([]uint8, len(pix))
	if len(pix) == 0 {
		return fromPlane(out, w, h), nil
	}

	switch mode {
	case GlobalOtsu:
		t := int(OtsuThreshold(src))
		for i, v := range pix {
			out[i] = inkValue(int(v) <= t, opts.Polarity)
		}

	case Adaptive:
		block := opts.BlockSize
		if block < 3 || block%2 == 0 {
			return nil, fmt.Errorf("%w: got %d", ErrInvalidBlockSize, block)
		}
		mean := gaussianMean(pix, w, h, block)
		parallel.Line(h, func(start, end int) {
			for y := start; y < end; y++ {
				for x := 0; x < w; x++ {
					i := y*w + x
					t := math.Round(mean[i]) - opts.C
					out[i] = inkValue(float64(pix[i]) <= t, opts.Polarity)
				}
			}
		})

	default:
		return nil, fmt.Errorf("unsupported threshold mode: %d", mode)
	}

	return fromPlane(out, w, h), nil
}

// inkValue maps "at or below threshold" to ink or background by polarity.
func inkValue(below bool, p Polarity) uint8 {
	if below == (p == DarkOnLight) {
		return 255
	}
	return 0
}

// lightBlur applies a 3x3 Gaussian (bild radius 1) and returns the first
// channel as gray.
func lightBlur(gray *image.Gray) *image.Gray {
	blurred := blur.Gaussian(gray, 1.0)
	b := blurred.Bounds()
	dst := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			dst.Pix[y*dst.Stride+x] = blurred.Pix[blurred.PixOffset(b.Min.X+x, b.Min.Y+y)]
		}
	}
	return dst
}

// gaussianKernel returns a normalized 1-D Gaussian of the given odd size.
func gaussianKernel(size int) []float64 {
	sigma := 0.3*(float64(size-1)*0.5-1) + 0.8
	half := size / 2
	k := make([]float64, size)
	var sum float64
	for i := range k {
		d := float64(i - half)
		k[i] = math.Exp(-d * d / (2 * sigma * sigma))
		sum += k[i]
	}
	for i := range k {
		k[i] /= sum
	}
	return k
}

// gaussianMean computes the separable Gaussian-weighted local mean of pix
// with replicated borders.
func gaussianMean(pix []uint8, w, h, size int) []float64 {
	k := gaussianKernel(size)
	half := size / 2

	tmp := make([]float64, len(pix))
	parallel.Line(h, func(start, end int) {
		for y := start; y < end; y++ {
			for x := 0; x < w; x++ {
				var s float64
				for i, kv := range k {
					xx := min(max(x+i-half, 0), w-1)
					s += kv * float64(pix[y*w+xx])
				}
				tmp[y*w+x] = s
			}
		}
	})

	mean := make([]float64, len(pix))
	parallel.Line(h, func(start, end int) {
		for y := start; y < end; y++ {
			for x := 0; x < w; x++ {
				var s float64
				for i, kv := range k {
					yy := min(max(y+i-half, 0), h-1)
					s += kv * tmp[yy*w+x]
				}
				mean[y*w+x] = s
			}
		}
	})
	return mean
}
