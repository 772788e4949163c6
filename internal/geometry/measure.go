package geometry

import (
	"math"
)

// Measurement describes an ordered plate quadrilateral in source pixels.
// Lengths are rounded to 0.01 and angles to 0.1 degree.
type Measurement struct {
	Corners Corners `json:"corners"`

	Top    float64 `json:"top"`
	Bottom float64 `json:"bottom"`
	Left   float64 `json:"left"`
	Right  float64 `json:"right"`

	// Width and Height are the longer of each pair of opposite sides.
	Width  float64 `json:"width"`
	Height float64 `json:"height"`

	AspectRatio float64 `json:"aspect_ratio"`

	// TopAngle and BottomAngle are edge directions in degrees: 0 is
	// horizontal to the right, positive values tilt downward.
	TopAngle    float64 `json:"top_angle"`
	BottomAngle float64 `json:"bottom_angle"`

	Area float64 `json:"area"`
}

// Measure orders q and reports its side lengths, tilt and aspect ratio.
// It fails exactly when OrderCorners does.
func Measure(q Quadrilateral) (Measurement, error) {
	c, err := OrderCorners(q)
	if err != nil {
		return Measurement{}, err
	}

	m := Measurement{
		Corners: c,
		Top:     c.TopLeft.Distance(c.TopRight),
		Bottom:  c.BottomLeft.Distance(c.BottomRight),
		Left:    c.TopLeft.Distance(c.BottomLeft),
		Right:   c.TopRight.Distance(c.BottomRight),
		Area:    c.Area(),
	}
	m.Width = math.Max(m.Top, m.Bottom)
	m.Height = math.Max(m.Left, m.Right)
	if m.Height > 0 {
		m.AspectRatio = m.Width / m.Height
	}
	m.TopAngle = edgeAngle(c.TopLeft, c.TopRight)
	m.BottomAngle = edgeAngle(c.BottomLeft, c.BottomRight)

	m.Top = round2(m.Top)
	m.Bottom = round2(m.Bottom)
	m.Left = round2(m.Left)
	m.Right = round2(m.Right)
	m.Width = round2(m.Width)
	m.Height = round2(m.Height)
	m.AspectRatio = round2(m.AspectRatio)
	m.Area = round2(m.Area)
	return m, nil
}

// SuggestHeight returns the frame height that keeps the measured aspect ratio
// at the given width, never less than 1.
func (m Measurement) SuggestHeight(width int) int {
	if m.Width <= 0 {
		return max(1, width/2)
	}
	return max(1, int(math.Round(float64(width)*m.Height/m.Width)))
}

func edgeAngle(from, to Point2D) float64 {
	d := to.Sub(from)
	return math.Round(math.Atan2(d.Y, d.X)*180/math.Pi*10) / 10
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
