package imaging

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/lucasb-eyer/go-colorful"
)

// RGBAColor holds 8-bit non-premultiplied components.
type RGBAColor struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
	A uint8 `json:"a"`
}

// HSLColor is a color in HSL space.
type HSLColor struct {
	H int `json:"h"` // Hue: 0-359 degrees
	S int `json:"s"` // Saturation: 0-100 percent
	L int `json:"l"` // Lightness: 0-100 percent
}

// LabeledPoint is a pixel coordinate with an optional label such as
// "plate_background" or "bumper".
type LabeledPoint struct {
	X     int    `json:"x"`
	Y     int    `json:"y"`
	Label string `json:"label,omitempty"`
}

// ColorSample is the mean color of the window around one sampled point.
type ColorSample struct {
	Label string    `json:"label,omitempty"`
	X     int       `json:"x"`
	Y     int       `json:"y"`
	Hex   string    `json:"hex"`
	RGBA  RGBAColor `json:"rgba"`
	HSL   HSLColor  `json:"hsl"`
}

// SampleResult holds per-point samples plus their overall mean. Mean.Hex can
// be passed straight back as a constant border color.
type SampleResult struct {
	Samples []ColorSample `json:"samples"`
	Mean    ColorSample   `json:"mean"`
}

// ErrNoSamples is returned when SampleColors is given no points.
var ErrNoSamples = errors.New("no sample points")

// SampleColors averages a (2*radius+1)-pixel square window around each point.
// Windows are clipped to the image; a radius of 0 samples single pixels.
//
// Parameters:
//   - img: The source image.
//   - points: Coordinates to sample, in image coordinates.
//   - radius: Half-size of the averaging window.
//
// Returns:
//   - *SampleResult: Samples in input order and the mean of all windows.
//   - error: Non-nil if points is empty, radius is negative or any point lies
//     outside the image. No partial result is returned.
func SampleColors(img image.Image, points []LabeledPoint, radius int) (*SampleResult, error) {
	if len(points) == 0 {
		return nil, ErrNoSamples
	}
	if radius < 0 {
		return nil, fmt.Errorf("sample radius must be >= 0, got %d", radius)
	}

	bounds := img.Bounds()
	result := &SampleResult{Samples: make([]ColorSample, 0, len(points))}
	var sum [4]float64
	var n float64

	for _, p := range points {
		if !image.Pt(p.X, p.Y).In(bounds) {
			return nil, fmt.Errorf("coordinates (%d,%d) outside image bounds %v", p.X, p.Y, bounds)
		}
		window := image.Rect(p.X-radius, p.Y-radius, p.X+radius+1, p.Y+radius+1).Intersect(bounds)
		c, acc := meanColor(img, window)
		for i := range sum {
			sum[i] += acc[i]
		}
		n += float64(window.Dx() * window.Dy())

		s := newColorSample(c)
		s.Label, s.X, s.Y = p.Label, p.X, p.Y
		result.Samples = append(result.Samples, s)
	}

	result.Mean = newColorSample(color.NRGBA{
		R: round8(sum[0] / n),
		G: round8(sum[1] / n),
		B: round8(sum[2] / n),
		A: round8(sum[3] / n),
	})
	return result, nil
}

// MeanColor returns the average non-premultiplied color of r clipped to img.
func MeanColor(img image.Image, r image.Rectangle) (color.NRGBA, error) {
	r = r.Intersect(img.Bounds())
	if r.Empty() {
		return color.NRGBA{}, fmt.Errorf("region %v does not overlap image bounds %v", r, img.Bounds())
	}
	c, _ := meanColor(img, r)
	return c, nil
}

// meanColor returns the mean of r and the raw channel sums. r must be
// non-empty and inside img.
func meanColor(img image.Image, r image.Rectangle) (color.NRGBA, [4]float64) {
	var sum [4]float64
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			sum[0] += float64(c.R)
			sum[1] += float64(c.G)
			sum[2] += float64(c.B)
			sum[3] += float64(c.A)
		}
	}
	n := float64(r.Dx() * r.Dy())
	return color.NRGBA{
		R: round8(sum[0] / n),
		G: round8(sum[1] / n),
		B: round8(sum[2] / n),
		A: round8(sum[3] / n),
	}, sum
}

func newColorSample(c color.NRGBA) ColorSample {
	cf := colorful.Color{R: float64(c.R) / 255, G: float64(c.G) / 255, B: float64(c.B) / 255}
	h, s, l := cf.Hsl()
	return ColorSample{
		Hex:  FormatHexColor(c),
		RGBA: RGBAColor{R: c.R, G: c.G, B: c.B, A: c.A},
		HSL: HSLColor{
			H: int(math.Round(h)) % 360,
			S: int(math.Round(s * 100)),
			L: int(math.Round(l * 100)),
		},
	}
}

func round8(v float64) uint8 {
	return uint8(math.Round(math.Max(0, math.Min(255, v))))
}
