package pipeline

import (
	"fmt"
	"image/color"

	"github.com/ironsheep/plate-tools-mcp/internal/classify"
	"github.com/ironsheep/plate-tools-mcp/internal/contour"
	"github.com/ironsheep/plate-tools-mcp/internal/geometry"
	"github.com/ironsheep/plate-tools-mcp/internal/imaging"
)

// Options configures one pipeline invocation.
type Options struct {
	// TargetWidth and TargetHeight size the rectified frame.
	TargetWidth  int
	TargetHeight int

	// Border resolves rectified pixels that map outside the source.
	Border geometry.BorderPolicy

	ThresholdMode imaging.ThresholdMode
	Polarity      imaging.Polarity

	// Blur enables the 3x3 Gaussian pre-blur before thresholding.
	Blur bool

	// BlockSize and C parameterize adaptive thresholding.
	BlockSize int
	C         float64

	// StructuringRadius sizes the top-hat/black-hat element.
	StructuringRadius int

	Retrieval contour.RetrievalMode

	Policy classify.Policy

	// ScalePolicy replaces Policy's area bounds with ones scaled to the
	// target frame (see classify.PolicyForFrame).
	ScalePolicy bool
}

// DefaultOptions returns a 300x150 frame with a black constant border,
// adaptive thresholding of dark ink, radius-1 enhancement, external contours
// and the default candidate policy.
func DefaultOptions() Options {
	bin := imaging.DefaultBinarizeOptions()
	return Options{
		TargetWidth:       geometry.DefaultWidth,
		TargetHeight:      geometry.DefaultHeight,
		Border:            geometry.ConstantBorder(color.Black),
		ThresholdMode:     imaging.Adaptive,
		Polarity:          bin.Polarity,
		Blur:              bin.Blur,
		BlockSize:         bin.BlockSize,
		C:                 bin.C,
		StructuringRadius: imaging.DefaultStructuringRadius,
		Retrieval:         contour.External,
		Policy:            classify.DefaultPolicy(),
	}
}

// Validate checks every option up front. Process does not call it, so stage
// errors still surface in stage order; callers that build Options from user
// input should validate once before a batch.
func (o Options) Validate() error {
	if o.TargetWidth <= 0 || o.TargetHeight <= 0 {
		return fmt.Errorf("%w: %dx%d", geometry.ErrInvalidDimensions, o.TargetWidth, o.TargetHeight)
	}
	if o.StructuringRadius < 1 {
		return fmt.Errorf("%w: got %d", imaging.ErrInvalidRadius, o.StructuringRadius)
	}
	if o.ThresholdMode == imaging.Adaptive && (o.BlockSize < 3 || o.BlockSize%2 == 0) {
		return fmt.Errorf("%w: got %d", imaging.ErrInvalidBlockSize, o.BlockSize)
	}
	if o.Policy.MinArea < 0 || o.Policy.MaxArea <= o.Policy.MinArea {
		return fmt.Errorf("invalid candidate area bounds (%v, %v)", o.Policy.MinArea, o.Policy.MaxArea)
	}
	if o.Policy.UnderCount > o.Policy.OverCount {
		return fmt.Errorf("under-segmentation count %d exceeds over-segmentation count %d",
			o.Policy.UnderCount, o.Policy.OverCount)
	}
	return nil
}

func (o Options) binarizeOptions() imaging.BinarizeOptions {
	return imaging.BinarizeOptions{
		Blur:      o.Blur,
		BlockSize: o.BlockSize,
		C:         o.C,
		Polarity:  o.Polarity,
	}
}

func (o Options) policy() classify.Policy {
	if !o.ScalePolicy {
		return o.Policy
	}
	p := classify.PolicyForFrame(o.TargetWidth, o.TargetHeight)
	p.UnderCount = o.Policy.UnderCount
	p.OverCount = o.Policy.OverCount
	p.MinAspect = o.Policy.MinAspect
	p.MaxAspect = o.Policy.MaxAspect
	return p
}
