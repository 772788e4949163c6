// Package contour traces the borders of connected foreground regions in a
// binary image and computes simple geometric descriptors for each border.
//
// Foreground is any non-zero pixel; connectivity is 8-neighbour. Borders are
// found with Suzuki and Abe's border-following algorithm, so discovery order is
// the raster-scan order of each border's first pixel and is identical across
// runs for identical input.
package contour

import (
	"fmt"
	"image"
	"math"
	"strings"
)

// RetrievalMode selects which borders Extract returns.
type RetrievalMode int

const (
	// External returns only outermost outer borders.
	External RetrievalMode = iota
	// List returns every outer and hole border with no nesting information.
	List
	// Tree returns every border and its parent index.
	Tree
)

func (m RetrievalMode) String() string {
	switch m {
	case External:
		return "external"
	case List:
		return "list"
	case Tree:
		return "tree"
	default:
		return "unknown"
	}
}

// ParseRetrievalMode accepts "external", "list" or "tree".
func ParseRetrievalMode(s string) (RetrievalMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "external", "":
		return External, nil
	case "list":
		return List, nil
	case "tree":
		return Tree, nil
	default:
		return External, fmt.Errorf("unknown retrieval mode: %s", s)
	}
}

// Box is an axis-aligned bounding box. Width and Height count pixels, so a
// single-pixel contour has a 1x1 box.
type Box struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Rect converts the box to an image.Rectangle.
func (b Box) Rect() image.Rectangle {
	return image.Rect(b.X, b.Y, b.X+b.Width, b.Y+b.Height)
}

// Contour is a closed border: consecutive points are 8-neighbours and the last
// point connects back to the first.
type Contour struct {
	// Points are border pixel coordinates in tracing order.
	Points []image.Point `json:"points"`

	// Parent is the index of the enclosing contour in the same result, or -1.
	// Only Tree retrieval fills it; External and List always report -1.
	Parent int `json:"parent"`

	// Hole is true for the inner border of a region.
	Hole bool `json:"hole"`
}

// Area returns the polygon area enclosed by the border (shoelace formula),
// always non-negative. Borders pass through pixel centers, so a filled w x h
// rectangle has area (w-1)*(h-1).
func (c Contour) Area() float64 {
	n := len(c.Points)
	if n < 3 {
		return 0
	}
	var sum int
	for i := 0; i < n; i++ {
		p := c.Points[i]
		q := c.Points[(i+1)%n]
		sum += p.X*q.Y - q.X*p.Y
	}
	return math.Abs(float64(sum)) / 2
}

// Perimeter returns the closed arc length of the border.
func (c Contour) Perimeter() float64 {
	n := len(c.Points)
	if n < 2 {
		return 0
	}
	var total float64
	for i := 0; i < n; i++ {
		d := c.Points[(i+1)%n].Sub(c.Points[i])
		total += math.Hypot(float64(d.X), float64(d.Y))
	}
	return total
}

// BoundingBox returns the smallest box containing every border point. An empty
// contour yields the zero Box.
func (c Contour) BoundingBox() Box {
	if len(c.Points) == 0 {
		return Box{}
	}
	minX, minY := c.Points[0].X, c.Points[0].Y
	maxX, maxY := minX, minY
	for _, p := range c.Points[1:] {
		minX = min(minX, p.X)
		maxX = max(maxX, p.X)
		minY = min(minY, p.Y)
		maxY = max(maxY, p.Y)
	}
	return Box{X: minX, Y: minY, Width: maxX - minX + 1, Height: maxY - minY + 1}
}

// AspectRatio returns bounding-box width / height, or 0 when the height is 0.
func (c Contour) AspectRatio() float64 {
	b := c.BoundingBox()
	if b.Height == 0 {
		return 0
	}
	return float64(b.Width) / float64(b.Height)
}
