package geometry

import (
	"fmt"
	"math"
)

// MinQuadArea is the smallest polygon area, in square pixels, accepted for a
// quadrilateral after its corners have been ordered.
const MinQuadArea = 1.0

// Point2D represents a 2D point with floating-point coordinates.
type Point2D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Pt is shorthand for Point2D{X: x, Y: y}.
func Pt(x, y float64) Point2D {
	return Point2D{X: x, Y: y}
}

// Sub returns the difference of two points.
func (p Point2D) Sub(other Point2D) Point2D {
	return Point2D{X: p.X - other.X, Y: p.Y - other.Y}
}

// Distance returns the Euclidean distance to another point.
func (p Point2D) Distance(other Point2D) float64 {
	dx := p.X - other.X
	dy := p.Y - other.Y
	return math.Sqrt(dx*dx + dy*dy)
}

func (p Point2D) String() string {
	return fmt.Sprintf("(%g,%g)", p.X, p.Y)
}

// cross returns the z component of (b-a) x (c-b).
func cross(a, b, c Point2D) float64 {
	ab := b.Sub(a)
	bc := c.Sub(b)
	return ab.X*bc.Y - ab.Y*bc.X
}

// Quadrilateral holds exactly four points in no particular order.
type Quadrilateral [4]Point2D

// NewQuadrilateral builds a Quadrilateral from a slice of points.
// The slice must contain exactly four points.
func NewQuadrilateral(points []Point2D) (Quadrilateral, error) {
	var q Quadrilateral
	if len(points) != 4 {
		return q, fmt.Errorf("%w: need exactly 4 points, got %d", ErrDegenerateQuadrilateral, len(points))
	}
	copy(q[:], points)
	return q, nil
}

// Corners is a quadrilateral whose points carry explicit roles.
type Corners struct {
	TopLeft     Point2D `json:"top_left"`
	TopRight    Point2D `json:"top_right"`
	BottomRight Point2D `json:"bottom_right"`
	BottomLeft  Point2D `json:"bottom_left"`
}

// Points returns the corners clockwise starting at the top-left.
func (c Corners) Points() [4]Point2D {
	return [4]Point2D{c.TopLeft, c.TopRight, c.BottomRight, c.BottomLeft}
}

// Area returns the absolute polygon area of the ordered corners.
func (c Corners) Area() float64 {
	pts := c.Points()
	var sum float64
	for i := range pts {
		j := (i + 1) % len(pts)
		sum += pts[i].X*pts[j].Y - pts[j].X*pts[i].Y
	}
	return math.Abs(sum) / 2
}

// RectCorners returns the destination corners of a width x height frame:
// (0,0), (W-1,0), (W-1,H-1), (0,H-1).
func RectCorners(width, height int) Corners {
	w := float64(width - 1)
	h := float64(height - 1)
	return Corners{
		TopLeft:     Pt(0, 0),
		TopRight:    Pt(w, 0),
		BottomRight: Pt(w, h),
		BottomLeft:  Pt(0, h),
	}
}

// OrderCorners assigns top-left, top-right, bottom-right and bottom-left roles
// to the four points of q using the sum/difference rule described in the
// package documentation.
//
// # Errors
//
//   - ErrDegenerateQuadrilateral if two roles resolve to the same input point
//   - ErrDegenerateQuadrilateral if the ordered polygon area is below MinQuadArea
//   - ErrDegenerateQuadrilateral if three consecutive corners are collinear
func OrderCorners(q Quadrilateral) (Corners, error) {
	var sums, diffs [4]float64
	for i, p := range q {
		sums[i] = p.X + p.Y
		diffs[i] = p.Y - p.X
	}

	tl, br := argMin(sums), argMax(sums)
	tr, bl := argMin(diffs), argMax(diffs)

	seen := map[int]bool{}
	for _, idx := range []int{tl, tr, br, bl} {
		if seen[idx] {
			return Corners{}, fmt.Errorf("%w: corner roles overlap for %v", ErrDegenerateQuadrilateral, q)
		}
		seen[idx] = true
	}

	c := Corners{
		TopLeft:     q[tl],
		TopRight:    q[tr],
		BottomRight: q[br],
		BottomLeft:  q[bl],
	}

	if area := c.Area(); area < MinQuadArea {
		return Corners{}, fmt.Errorf("%w: area %.3f below %.1f", ErrDegenerateQuadrilateral, area, MinQuadArea)
	}

	pts := c.Points()
	for i := range pts {
		prev := pts[(i+3)%4]
		next := pts[(i+1)%4]
		if math.Abs(cross(prev, pts[i], next)) < 1e-9 {
			return Corners{}, fmt.Errorf("%w: collinear corners around %v", ErrDegenerateQuadrilateral, pts[i])
		}
	}

	return c, nil
}

// argMin returns the index of the first minimum.
func argMin(v [4]float64) int {
	best := 0
	for i := 1; i < len(v); i++ {
		if v[i] < v[best] {
			best = i
		}
	}
	return best
}

// argMax returns the index of the first maximum.
func argMax(v [4]float64) int {
	best := 0
	for i := 1; i < len(v); i++ {
		if v[i] > v[best] {
			best = i
		}
	}
	return best
}
