package imaging

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// OverlayStyle controls how annotations are drawn.
type OverlayStyle struct {
	// BoxColor outlines candidate bounding boxes.
	BoxColor color.NRGBA
	// PolygonColor outlines the selected plate quadrilateral.
	PolygonColor color.NRGBA
	// Labels draws the index of each box or vertex next to it.
	Labels bool
}

// DefaultOverlayStyle draws green boxes and a red quadrilateral with labels.
func DefaultOverlayStyle() OverlayStyle {
	return OverlayStyle{
		BoxColor:     color.NRGBA{0, 255, 0, 255},
		PolygonColor: color.NRGBA{255, 0, 0, 255},
		Labels:       true,
	}
}

// ParseHexColor parses "#RRGGBB" or "#RRGGBBAA" (the leading '#' is
// optional). A missing alpha means opaque.
func ParseHexColor(hex string) (color.NRGBA, error) {
	hex = strings.TrimPrefix(strings.TrimSpace(hex), "#")

	alpha := uint8(255)
	switch len(hex) {
	case 6:
	case 8:
		a, err := strconv.ParseUint(hex[6:], 16, 8)
		if err != nil {
			return color.NRGBA{}, fmt.Errorf("invalid alpha in color %q: %w", hex, err)
		}
		alpha = uint8(a)
		hex = hex[:6]
	default:
		return color.NRGBA{}, fmt.Errorf("invalid hex color %q: want RRGGBB or RRGGBBAA", hex)
	}

	c, err := colorful.Hex("#" + hex)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid hex color %q: %w", hex, err)
	}
	r, g, b := c.RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: alpha}, nil
}

// FormatHexColor is the inverse of ParseHexColor. Opaque colors omit the
// alpha byte.
func FormatHexColor(c color.NRGBA) string {
	if c.A == 255 {
		return fmt.Sprintf("#%02X%02X%02X", c.R, c.G, c.B)
	}
	return fmt.Sprintf("#%02X%02X%02X%02X", c.R, c.G, c.B, c.A)
}

// DrawBoxes returns a copy of img with every rectangle outlined. Rectangles
// use half-open image.Rectangle bounds relative to the image origin and may
// extend past the image. The copy is anchored at (0,0).
func DrawBoxes(img image.Image, boxes []image.Rectangle, style OverlayStyle) *image.NRGBA {
	dst := imaging.Clone(img)
	for i, r := range boxes {
		x0, y0, x1, y1 := r.Min.X, r.Min.Y, r.Max.X-1, r.Max.Y-1
		drawLine(dst, image.Pt(x0, y0), image.Pt(x1, y0), style.BoxColor)
		drawLine(dst, image.Pt(x1, y0), image.Pt(x1, y1), style.BoxColor)
		drawLine(dst, image.Pt(x1, y1), image.Pt(x0, y1), style.BoxColor)
		drawLine(dst, image.Pt(x0, y1), image.Pt(x0, y0), style.BoxColor)
		if style.Labels {
			drawLabel(dst, x0, y0-labelHeight-1, strconv.Itoa(i), style.BoxColor)
		}
	}
	return dst
}

// DrawPolygon returns a copy of img with the closed polygon through pts
// outlined, vertices labelled 0..n-1 in order. Points are relative to the
// image origin, the same convention geometry.Rectify uses for corners.
func DrawPolygon(img image.Image, pts []image.Point, style OverlayStyle) *image.NRGBA {
	dst := imaging.Clone(img)
	for i := range pts {
		a := pts[i]
		b := pts[(i+1)%len(pts)]
		drawLine(dst, a, b, style.PolygonColor)
		if style.Labels {
			drawLabel(dst, a.X+3, a.Y+3, strconv.Itoa(i), style.PolygonColor)
		}
	}
	return dst
}

// drawLine plots a Bresenham line, clipping pixels outside dst.
func drawLine(dst *image.NRGBA, a, b image.Point, c color.NRGBA) {
	bounds := dst.Bounds()
	dx := absInt(b.X - a.X)
	dy := -absInt(b.Y - a.Y)
	sx, sy := 1, 1
	if a.X > b.X {
		sx = -1
	}
	if a.Y > b.Y {
		sy = -1
	}
	e := dx + dy
	x, y := a.X, a.Y
	for {
		if image.Pt(x, y).In(bounds) {
			dst.SetNRGBA(x, y, c)
		}
		if x == b.X && y == b.Y {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x += sx
		}
		if e2 <= dx {
			e += dx
			y += sy
		}
	}
}

const labelHeight = 13

// drawLabel writes text with its top-left corner at (x,y) on a dark backing
// box, using the fixed 7x13 face.
func drawLabel(dst *image.NRGBA, x, y int, text string, fg color.NRGBA) {
	face := basicfont.Face7x13
	width := font.MeasureString(face, text).Ceil()
	box := image.Rect(x-1, y-1, x+width+1, y+labelHeight+1).Intersect(dst.Bounds())
	draw.Draw(dst, box, image.NewUniform(color.NRGBA{0, 0, 0, 180}), image.Point{}, draw.Over)

	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(fg),
		Face: face,
		Dot:  fixed.P(x, y+face.Ascent),
	}
	d.DrawString(text)
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
