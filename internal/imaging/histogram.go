package imaging

import (
	"image"
	"math"

	"github.com/disintegration/imaging"
)

// EqualizeHistogram remaps intensities so that the cumulative distribution is
// linear over [0,255].
//
// The darkest occupied intensity maps to 0 and the brightest to 255:
//
//	lut[i] = round((cdf(i) - p(first)) / (1 - p(first)) * 255)
//
// where p(first) is the probability mass of the darkest occupied bin. An image
// with a single intensity is returned unchanged.
func EqualizeHistogram(gray *image.Gray) *image.Gray {
	src, w, h := plane(gray)
	if len(src) == 0 {
		return fromPlane(src, w, h)
	}

	hist := imaging.Histogram(gray)

	first := 0
	for first < 255 && hist[first] == 0 {
		first++
	}
	base := hist[first]
	if base >= 1-1e-12 {
		return fromPlane(src, w, h)
	}

	var lut [256]uint8
	scale := 255 / (1 - base)
	cum := 0.0
	for i := first + 1; i < 256; i++ {
		cum += hist[i]
		lut[i] = clampByte(int(math.Round(cum * scale)))
	}

	out := make([]uint8, len(src))
	for i, v := range src {
		out[i] = lut[v]
	}
	return fromPlane(out, w, h)
}

// OtsuThreshold returns the intensity cut that maximizes the between-class
// variance of the histogram. Pixels <= the threshold form the dark class.
//
// For a two-valued image the lower of the two values is returned. A uniform
// image yields 0.
func OtsuThreshold(gray *image.Gray) uint8 {
	if gray.Bounds().Empty() {
		return 0
	}
	hist := imaging.Histogram(gray)

	var total float64
	for i, p := range hist {
		total += float64(i) * p
	}

	const epsilon = 1e-7
	var best uint8
	var bestVar, omega, muCumul float64
	for i := 0; i < 256; i++ {
		omega += hist[i]
		muCumul += float64(i) * hist[i]
		if omega < epsilon || omega > 1-epsilon {
			continue
		}
		d := total*omega - muCumul
		between := d * d / (omega * (1 - omega))
		if between > bestVar {
			bestVar = between
			best = uint8(i)
		}
	}
	return best
}
