package geometry

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/anthonynsimon/bild/parallel"
	"github.com/disintegration/imaging"
)

// Default rectified frame size.
const (
	DefaultWidth  = 300
	DefaultHeight = 150
)

// BorderMode selects how out-of-bounds source samples are resolved.
type BorderMode int

const (
	// BorderConstant fills out-of-bounds samples with a fixed color.
	BorderConstant BorderMode = iota
	// BorderReflect mirrors the source content at its edges (edge pixel repeated).
	BorderReflect
)

func (m BorderMode) String() string {
	switch m {
	case BorderConstant:
		return "constant"
	case BorderReflect:
		return "reflect"
	default:
		return "unknown"
	}
}

// BorderPolicy is the caller-selected out-of-bounds behaviour for Rectify.
type BorderPolicy struct {
	Mode  BorderMode
	Color color.NRGBA
}

// ConstantBorder returns a policy filling out-of-bounds pixels with c.
func ConstantBorder(c color.Color) BorderPolicy {
	return BorderPolicy{Mode: BorderConstant, Color: color.NRGBAModel.Convert(c).(color.NRGBA)}
}

// ReflectBorder returns a policy that mirrors source content at the edges.
func ReflectBorder() BorderPolicy {
	return BorderPolicy{Mode: BorderReflect}
}

// Rectify warps the quadrilateral q of img onto a width x height frame.
//
// Corner roles are derived with OrderCorners, the forward homography maps them
// onto RectCorners(width, height), and every destination pixel is sampled from
// the source through the inverse transform with bilinear interpolation. Each
// of the four interpolation taps that falls outside the source is resolved by
// the border policy, so pixels near the edge blend with the fill color the way
// a constant border would in a warp with linear interpolation.
//
// The returned image is a new *image.NRGBA with bounds (0,0)-(width,height);
// img is never modified.
//
// # Errors
//
//   - ErrInvalidDimensions if width or height is not positive
//   - ErrEmptyImage if img is nil or has zero area
//   - ErrDegenerateQuadrilateral if corner roles are ambiguous or the
//     transform cannot be computed
func Rectify(img image.Image, q Quadrilateral, width, height int, border BorderPolicy) (*image.NRGBA, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, width, height)
	}
	if img == nil || img.Bounds().Empty() {
		return nil, ErrEmptyImage
	}

	corners, err := OrderCorners(q)
	if err != nil {
		return nil, err
	}

	// A one-pixel side collapses the destination corners onto a line, so the
	// transform is solved against a frame at least two pixels on each side
	// and the output grid samples the center of any collapsed side.
	frameW, frameH := max(width, 2), max(height, 2)
	forward, err := PerspectiveTransform(corners.Points(), RectCorners(frameW, frameH).Points())
	if err != nil {
		return nil, err
	}
	inverse, err := forward.Inverse()
	if err != nil {
		return nil, err
	}
	if width != frameW || height != frameH {
		inverse = inverse.Mul(thinGrid(width, height))
	}

	return Warp(img, inverse, width, height, border), nil
}

// thinGrid maps output pixels onto the solve frame, pinning a one-pixel
// side to the frame's midline.
func thinGrid(width, height int) Homography {
	g := Identity()
	if width == 1 {
		g[0], g[2] = 0, 0.5
	}
	if height == 1 {
		g[4], g[5] = 0, 0.5
	}
	return g
}

// Warp resamples img into a width x height frame, where inverse maps each
// destination pixel center back to source coordinates.
func Warp(img image.Image, inverse Homography, width, height int, border BorderPolicy) *image.NRGBA {
	src := imaging.Clone(img)
	dst := image.NewNRGBA(image.Rect(0, 0, width, height))

	parallel.Line(height, func(start, end int) {
		for y := start; y < end; y++ {
			for x := 0; x < width; x++ {
				p := inverse.Apply(Pt(float64(x), float64(y)))
				c := sampleBilinear(src, p.X, p.Y, border)
				i := dst.PixOffset(x, y)
				dst.Pix[i+0] = c.R
				dst.Pix[i+1] = c.G
				dst.Pix[i+2] = c.B
				dst.Pix[i+3] = c.A
			}
		}
	})

	return dst
}

// sampleBilinear interpolates src at the real-valued location (sx, sy).
// src must have its origin at (0,0).
func sampleBilinear(src *image.NRGBA, sx, sy float64, border BorderPolicy) color.NRGBA {
	if math.IsInf(sx, 0) || math.IsInf(sy, 0) || math.IsNaN(sx) || math.IsNaN(sy) {
		if border.Mode == BorderConstant {
			return border.Color
		}
		return fetch(src, 0, 0, border)
	}

	x0 := int(math.Floor(sx))
	y0 := int(math.Floor(sy))
	fx := sx - float64(x0)
	fy := sy - float64(y0)

	c00 := fetch(src, x0, y0, border)
	c10 := fetch(src, x0+1, y0, border)
	c01 := fetch(src, x0, y0+1, border)
	c11 := fetch(src, x0+1, y0+1, border)

	w00 := (1 - fx) * (1 - fy)
	w10 := fx * (1 - fy)
	w01 := (1 - fx) * fy
	w11 := fx * fy

	mix := func(a, b, c, d uint8) uint8 {
		v := float64(a)*w00 + float64(b)*w10 + float64(c)*w01 + float64(d)*w11
		return clampUint8(math.Round(v))
	}

	return color.NRGBA{
		R: mix(c00.R, c10.R, c01.R, c11.R),
		G: mix(c00.G, c10.G, c01.G, c11.G),
		B: mix(c00.B, c10.B, c01.B, c11.B),
		A: mix(c00.A, c10.A, c01.A, c11.A),
	}
}

// fetch reads one source pixel, resolving out-of-range indices by policy.
func fetch(src *image.NRGBA, x, y int, border BorderPolicy) color.NRGBA {
	w, h := src.Rect.Dx(), src.Rect.Dy()
	if x < 0 || x >= w || y < 0 || y >= h {
		if border.Mode == BorderConstant {
			return border.Color
		}
		x = reflectIndex(x, w)
		y = reflectIndex(y, h)
	}
	i := src.PixOffset(x, y)
	return color.NRGBA{R: src.Pix[i], G: src.Pix[i+1], B: src.Pix[i+2], A: src.Pix[i+3]}
}

// reflectIndex folds i into [0, n) mirroring at the edges with the edge pixel
// repeated: for n=4, -1 -> 0, -2 -> 1, 4 -> 3, 5 -> 2.
func reflectIndex(i, n int) int {
	if n == 1 {
		return 0
	}
	period := 2 * n
	i %= period
	if i < 0 {
		i += period
	}
	if i >= n {
		i = period - i - 1
	}
	return i
}

func clampUint8(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
