package geometry

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Homography is a 3x3 projective transform stored row-major and normalized so
// that the bottom-right element is 1.
type Homography [9]float64

// Identity returns the identity homography.
func Identity() Homography {
	return Homography{1, 0, 0, 0, 1, 0, 0, 0, 1}
}

// PerspectiveTransform computes the unique homography mapping each src[i]
// onto dst[i].
//
// The eight unknowns h0..h7 (h8 = 1) satisfy, for every correspondence
// (x,y) -> (u,v):
//
//	u = (h0*x + h1*y + h2) / (h6*x + h7*y + 1)
//	v = (h3*x + h4*y + h5) / (h6*x + h7*y + 1)
//
// which is linear in h after multiplying out the denominator. The resulting
// 8x8 system is solved with an LU decomposition. A singular system means three
// or more source points are collinear and yields ErrDegenerateQuadrilateral.
func PerspectiveTransform(src, dst [4]Point2D) (Homography, error) {
	A := mat.NewDense(8, 8, nil)
	B := mat.NewVecDense(8, nil)

	for i := 0; i < 4; i++ {
		x, y := src[i].X, src[i].Y
		u, v := dst[i].X, dst[i].Y

		A.SetRow(i*2, []float64{x, y, 1, 0, 0, 0, -u * x, -u * y})
		B.SetVec(i*2, u)

		A.SetRow(i*2+1, []float64{0, 0, 0, x, y, 1, -v * x, -v * y})
		B.SetVec(i*2+1, v)
	}

	var h mat.VecDense
	if err := h.SolveVec(A, B); err != nil {
		return Homography{}, fmt.Errorf("%w: %v", ErrDegenerateQuadrilateral, err)
	}

	var out Homography
	for i := 0; i < 8; i++ {
		out[i] = h.AtVec(i)
	}
	out[8] = 1
	return out, nil
}

// Apply maps a point through the homography. Points on the line at infinity
// map to (+Inf, +Inf).
func (h Homography) Apply(p Point2D) Point2D {
	w := h[6]*p.X + h[7]*p.Y + h[8]
	if w == 0 {
		return Point2D{X: math.Inf(1), Y: math.Inf(1)}
	}
	return Point2D{
		X: (h[0]*p.X + h[1]*p.Y + h[2]) / w,
		Y: (h[3]*p.X + h[4]*p.Y + h[5]) / w,
	}
}

// Mul returns the composition h·g, which applies g first and then h.
func (h Homography) Mul(g Homography) Homography {
	var prod mat.Dense
	prod.Mul(mat.NewDense(3, 3, h[:]), mat.NewDense(3, 3, g[:]))

	var out Homography
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			out[r*3+c] = prod.At(r, c)
		}
	}
	if s := out[8]; s != 0 {
		for i := range out {
			out[i] /= s
		}
	}
	return out
}

// Inverse returns the inverse transform, normalized so its last element is 1.
func (h Homography) Inverse() (Homography, error) {
	m := mat.NewDense(3, 3, h[:])
	var inv mat.Dense
	if err := inv.Inverse(m); err != nil {
		return Homography{}, fmt.Errorf("%w: non-invertible transform: %v", ErrDegenerateQuadrilateral, err)
	}

	var out Homography
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			out[r*3+c] = inv.At(r, c)
		}
	}
	if s := out[8]; s != 0 {
		for i := range out {
			out[i] /= s
		}
	}
	return out, nil
}
