package geometry

import "errors"

// Errors returned by the rectification stage. They are fatal to a single
// invocation; callers match them with errors.Is.
var (
	// ErrDegenerateQuadrilateral is returned when corner roles are ambiguous
	// or the quadrilateral has (near) zero area.
	ErrDegenerateQuadrilateral = errors.New("degenerate quadrilateral")

	// ErrInvalidDimensions is returned for a non-positive target width or height.
	ErrInvalidDimensions = errors.New("invalid target dimensions")

	// ErrEmptyImage is returned when the source image has no pixels.
	ErrEmptyImage = errors.New("empty source image")
)
