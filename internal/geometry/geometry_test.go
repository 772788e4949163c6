package geometry

import (
	"errors"
	"image"
	"image/color"
	"math"
	"testing"
)

// createGradientImage creates an image whose color encodes pixel position.
func createGradientImage(width, height int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetNRGBA(x, y, color.NRGBA{
				R: uint8(x * 255 / width),
				G: uint8(y * 255 / height),
				B: uint8((x + y) % 256),
				A: 255,
			})
		}
	}
	return img
}

func createSolidImage(width, height int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func near(a, b Point2D, tol float64) bool {
	return math.Abs(a.X-b.X) <= tol && math.Abs(a.Y-b.Y) <= tol
}

func TestOrderCorners(t *testing.T) {
	q := Quadrilateral{Pt(288, 140), Pt(10, 10), Pt(8, 138), Pt(290, 12)}

	c, err := OrderCorners(q)
	if err != nil {
		t.Fatalf("OrderCorners failed: %v", err)
	}

	want := Corners{
		TopLeft:     Pt(10, 10),
		TopRight:    Pt(290, 12),
		BottomRight: Pt(288, 140),
		BottomLeft:  Pt(8, 138),
	}
	if c != want {
		t.Errorf("corners: got %+v, want %+v", c, want)
	}
}

func TestOrderCorners_PermutationInvariant(t *testing.T) {
	base := []Point2D{Pt(10, 10), Pt(290, 12), Pt(288, 140), Pt(8, 138)}
	want, err := OrderCorners(Quadrilateral{base[0], base[1], base[2], base[3]})
	if err != nil {
		t.Fatalf("OrderCorners failed: %v", err)
	}

	var permute func(prefix, rest []Point2D)
	count := 0
	permute = func(prefix, rest []Point2D) {
		if len(rest) == 0 {
			count++
			q, err := NewQuadrilateral(prefix)
			if err != nil {
				t.Fatalf("NewQuadrilateral: %v", err)
			}
			got, err := OrderCorners(q)
			if err != nil {
				t.Fatalf("OrderCorners(%v) failed: %v", q, err)
			}
			if got != want {
				t.Errorf("OrderCorners(%v): got %+v, want %+v", q, got, want)
			}
			return
		}
		for i := range rest {
			next := append(append([]Point2D{}, prefix...), rest[i])
			remaining := append(append([]Point2D{}, rest[:i]...), rest[i+1:]...)
			permute(next, remaining)
		}
	}
	permute(nil, base)

	if count != 24 {
		t.Errorf("permutations: got %d, want 24", count)
	}
}

func TestOrderCorners_Degenerate(t *testing.T) {
	tests := []struct {
		name string
		q    Quadrilateral
	}{
		{"rotated square", Quadrilateral{Pt(50, 0), Pt(100, 50), Pt(50, 100), Pt(0, 50)}},
		{"all same point", Quadrilateral{Pt(5, 5), Pt(5, 5), Pt(5, 5), Pt(5, 5)}},
		{"collinear", Quadrilateral{Pt(0, 0), Pt(10, 10), Pt(20, 20), Pt(30, 30)}},
		{"tiny", Quadrilateral{Pt(0, 0), Pt(0.5, 0), Pt(0.5, 0.5), Pt(0, 0.5)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := OrderCorners(tt.q)
			if !errors.Is(err, ErrDegenerateQuadrilateral) {
				t.Errorf("error: got %v, want ErrDegenerateQuadrilateral", err)
			}
		})
	}
}

func TestNewQuadrilateral_WrongCount(t *testing.T) {
	_, err := NewQuadrilateral([]Point2D{Pt(0, 0), Pt(1, 1), Pt(2, 0)})
	if !errors.Is(err, ErrDegenerateQuadrilateral) {
		t.Errorf("error: got %v, want ErrDegenerateQuadrilateral", err)
	}
}

func TestPerspectiveTransform_MapsCorners(t *testing.T) {
	src := [4]Point2D{Pt(10, 10), Pt(290, 12), Pt(288, 140), Pt(8, 138)}
	dst := RectCorners(300, 150).Points()

	h, err := PerspectiveTransform(src, dst)
	if err != nil {
		t.Fatalf("PerspectiveTransform failed: %v", err)
	}

	for i := range src {
		got := h.Apply(src[i])
		if !near(got, dst[i], 1e-6) {
			t.Errorf("corner %d: got %v, want %v", i, got, dst[i])
		}
	}

	inv, err := h.Inverse()
	if err != nil {
		t.Fatalf("Inverse failed: %v", err)
	}
	for i := range dst {
		got := inv.Apply(dst[i])
		if !near(got, src[i], 1e-6) {
			t.Errorf("inverse corner %d: got %v, want %v", i, got, src[i])
		}
	}
}

func TestPerspectiveTransform_Identity(t *testing.T) {
	pts := RectCorners(40, 20).Points()
	h, err := PerspectiveTransform(pts, pts)
	if err != nil {
		t.Fatalf("PerspectiveTransform failed: %v", err)
	}
	id := Identity()
	for i := range h {
		if math.Abs(h[i]-id[i]) > 1e-9 {
			t.Errorf("h[%d]: got %g, want %g", i, h[i], id[i])
		}
	}
}

func TestPerspectiveTransform_Singular(t *testing.T) {
	src := [4]Point2D{Pt(0, 0), Pt(1, 1), Pt(2, 2), Pt(3, 3)}
	_, err := PerspectiveTransform(src, RectCorners(10, 10).Points())
	if !errors.Is(err, ErrDegenerateQuadrilateral) {
		t.Errorf("error: got %v, want ErrDegenerateQuadrilateral", err)
	}
}

func TestRectify_IdentityIsIdempotent(t *testing.T) {
	const w, h = 60, 30
	img := createGradientImage(w, h)
	c := RectCorners(w, h)
	q := Quadrilateral{c.TopLeft, c.TopRight, c.BottomRight, c.BottomLeft}

	out, err := Rectify(img, q, w, h, ConstantBorder(color.Black))
	if err != nil {
		t.Fatalf("Rectify failed: %v", err)
	}
	if out.Bounds().Dx() != w || out.Bounds().Dy() != h {
		t.Fatalf("dimensions: got %dx%d, want %dx%d", out.Bounds().Dx(), out.Bounds().Dy(), w, h)
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			a := img.NRGBAAt(x, y)
			b := out.NRGBAAt(x, y)
			if absDiff(a.R, b.R) > 1 || absDiff(a.G, b.G) > 1 || absDiff(a.B, b.B) > 1 {
				t.Fatalf("pixel (%d,%d): got %v, want %v", x, y, b, a)
			}
		}
	}
}

func TestRectify_OutputSize(t *testing.T) {
	img := createGradientImage(320, 160)
	q := Quadrilateral{Pt(10, 10), Pt(290, 12), Pt(288, 140), Pt(8, 138)}

	out, err := Rectify(img, q, DefaultWidth, DefaultHeight, ReflectBorder())
	if err != nil {
		t.Fatalf("Rectify failed: %v", err)
	}
	if out.Bounds() != image.Rect(0, 0, DefaultWidth, DefaultHeight) {
		t.Errorf("bounds: got %v, want 300x150 at origin", out.Bounds())
	}
}

func TestRectify_ThinTargets(t *testing.T) {
	const w, h = 60, 30
	img := createGradientImage(w, h)
	c := RectCorners(w, h)
	q := Quadrilateral{c.TopLeft, c.TopRight, c.BottomRight, c.BottomLeft}

	t.Run("single row", func(t *testing.T) {
		out, err := Rectify(img, q, w, 1, ReflectBorder())
		if err != nil {
			t.Fatalf("Rectify failed: %v", err)
		}
		if out.Bounds() != image.Rect(0, 0, w, 1) {
			t.Fatalf("bounds: got %v, want %dx1", out.Bounds(), w)
		}
		// Red depends on x only; the row sits on the plate midline.
		for x := 0; x < w; x++ {
			if got, want := out.NRGBAAt(x, 0).R, img.NRGBAAt(x, h/2).R; absDiff(got, want) > 1 {
				t.Errorf("x=%d: red %d, want %d", x, got, want)
			}
		}
	})

	t.Run("single column", func(t *testing.T) {
		out, err := Rectify(img, q, 1, h, ReflectBorder())
		if err != nil {
			t.Fatalf("Rectify failed: %v", err)
		}
		if out.Bounds() != image.Rect(0, 0, 1, h) {
			t.Fatalf("bounds: got %v, want 1x%d", out.Bounds(), h)
		}
		for y := 0; y < h; y++ {
			if got, want := out.NRGBAAt(0, y).G, img.NRGBAAt(w/2, y).G; absDiff(got, want) > 1 {
				t.Errorf("y=%d: green %d, want %d", y, got, want)
			}
		}
	})

	t.Run("single pixel", func(t *testing.T) {
		red := color.NRGBA{255, 0, 0, 255}
		out, err := Rectify(createSolidImage(w, h, red), q, 1, 1, ConstantBorder(color.Black))
		if err != nil {
			t.Fatalf("Rectify failed: %v", err)
		}
		if got := out.NRGBAAt(0, 0); got != red {
			t.Errorf("pixel: got %v, want %v", got, red)
		}
	})
}

func TestRectify_BorderPolicies(t *testing.T) {
	red := color.NRGBA{255, 0, 0, 255}
	blue := color.NRGBA{0, 0, 255, 255}
	img := createSolidImage(10, 10, red)
	q := Quadrilateral{Pt(-10, -10), Pt(19, -10), Pt(19, 19), Pt(-10, 19)}

	t.Run("constant", func(t *testing.T) {
		out, err := Rectify(img, q, 40, 40, ConstantBorder(blue))
		if err != nil {
			t.Fatalf("Rectify failed: %v", err)
		}
		if got := out.NRGBAAt(0, 0); got != blue {
			t.Errorf("corner: got %v, want %v", got, blue)
		}
		if got := out.NRGBAAt(20, 20); got != red {
			t.Errorf("center: got %v, want %v", got, red)
		}
	})

	t.Run("reflect", func(t *testing.T) {
		out, err := Rectify(img, q, 40, 40, ReflectBorder())
		if err != nil {
			t.Fatalf("Rectify failed: %v", err)
		}
		for _, p := range []image.Point{{0, 0}, {39, 0}, {39, 39}, {0, 39}, {20, 20}} {
			if got := out.NRGBAAt(p.X, p.Y); got != red {
				t.Errorf("pixel %v: got %v, want %v", p, got, red)
			}
		}
	})
}

func TestRectify_Errors(t *testing.T) {
	img := createSolidImage(10, 10, color.NRGBA{255, 255, 255, 255})
	good := Quadrilateral{Pt(0, 0), Pt(9, 0), Pt(9, 9), Pt(0, 9)}

	tests := []struct {
		name string
		img  image.Image
		q    Quadrilateral
		w, h int
		want error
	}{
		{"zero width", img, good, 0, 10, ErrInvalidDimensions},
		{"negative height", img, good, 10, -1, ErrInvalidDimensions},
		{"empty image", image.NewNRGBA(image.Rect(0, 0, 0, 0)), good, 10, 10, ErrEmptyImage},
		{"nil image", nil, good, 10, 10, ErrEmptyImage},
		{"degenerate", img, Quadrilateral{Pt(50, 0), Pt(100, 50), Pt(50, 100), Pt(0, 50)}, 10, 10, ErrDegenerateQuadrilateral},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Rectify(tt.img, tt.q, tt.w, tt.h, ConstantBorder(color.Black))
			if !errors.Is(err, tt.want) {
				t.Errorf("error: got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestReflectIndex(t *testing.T) {
	tests := []struct {
		i, n, want int
	}{
		{-1, 4, 0},
		{-2, 4, 1},
		{0, 4, 0},
		{3, 4, 3},
		{4, 4, 3},
		{5, 4, 2},
		{8, 4, 0},
		{-9, 4, 0},
		{7, 1, 0},
	}
	for _, tt := range tests {
		if got := reflectIndex(tt.i, tt.n); got != tt.want {
			t.Errorf("reflectIndex(%d, %d): got %d, want %d", tt.i, tt.n, got, tt.want)
		}
	}
}

func TestPointCollector(t *testing.T) {
	var c PointCollector
	pts := []Point2D{Pt(1, 1), Pt(9, 1), Pt(9, 9), Pt(1, 9)}

	for i, p := range pts[:3] {
		if _, ok := c.Add(p); ok {
			t.Fatalf("Add #%d reported complete", i+1)
		}
	}
	if c.Len() != 3 {
		t.Errorf("Len: got %d, want 3", c.Len())
	}
	if got := c.Pending(); len(got) != 3 || got[2] != pts[2] {
		t.Errorf("Pending: got %v", got)
	}

	q, ok := c.Add(pts[3])
	if !ok {
		t.Fatal("fourth Add should complete the quadrilateral")
	}
	if q != (Quadrilateral{pts[0], pts[1], pts[2], pts[3]}) {
		t.Errorf("quadrilateral: got %v", q)
	}
	if c.Len() != 0 {
		t.Errorf("collector should reset after completion, Len=%d", c.Len())
	}

	c.Add(Pt(3, 3))
	c.Reset()
	if c.Len() != 0 {
		t.Errorf("Len after Reset: got %d, want 0", c.Len())
	}
}

func absDiff(a, b uint8) uint8 {
	if a > b {
		return a - b
	}
	return b - a
}
