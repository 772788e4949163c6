package pipeline

import (
	"image"

	"github.com/ironsheep/plate-tools-mcp/internal/classify"
	"github.com/ironsheep/plate-tools-mcp/internal/contour"
	"github.com/ironsheep/plate-tools-mcp/internal/geometry"
	"github.com/ironsheep/plate-tools-mcp/internal/imaging"
)

// Result bundles every stage output of one invocation.
type Result struct {
	Rectified *image.NRGBA
	Gray      *image.Gray
	Enhanced  *image.Gray
	Binary    *image.Gray

	Contours   []contour.Contour
	Candidates classify.CandidateSet

	// Mode and Retrieval record how Binary and Contours were produced.
	Mode      imaging.ThresholdMode
	Retrieval contour.RetrievalMode
}

// Summary is the JSON-friendly diagnostic view of a Result.
type Summary struct {
	Width          int                  `json:"width"`
	Height         int                  `json:"height"`
	ThresholdMode  string               `json:"threshold_mode"`
	Retrieval      string               `json:"retrieval"`
	TotalContours  int                  `json:"total_contours"`
	CandidateCount int                  `json:"candidate_count"`
	UnderSegmented bool                 `json:"under_segmented"`
	OverSegmented  bool                 `json:"over_segmented"`
	MeanArea       float64              `json:"mean_area"`
	StdDevArea     float64              `json:"stddev_area"`
	Candidates     []classify.Candidate `json:"candidates"`
}

// Summary reports the classification diagnostics.
func (r *Result) Summary() Summary {
	b := r.Rectified.Bounds()
	return Summary{
		Width:          b.Dx(),
		Height:         b.Dy(),
		ThresholdMode:  r.Mode.String(),
		Retrieval:      r.Retrieval.String(),
		TotalContours:  r.Candidates.Total,
		CandidateCount: r.Candidates.Count,
		UnderSegmented: r.Candidates.UnderSegmented,
		OverSegmented:  r.Candidates.OverSegmented,
		MeanArea:       r.Candidates.MeanArea,
		StdDevArea:     r.Candidates.StdDevArea,
		Candidates:     r.Candidates.Candidates,
	}
}

// Process runs all stages on img for the plate outlined by q.
//
// Parameters:
//   - img: Source photograph. Never modified.
//   - q: The four plate corners in any order, in img's pixel coordinates.
//   - opts: Stage parameters, typically DefaultOptions with overrides.
//
// Returns the full Result, or the first failing stage's error unchanged and
// a nil Result.
//
// # Errors
//
//   - geometry.ErrInvalidDimensions, geometry.ErrEmptyImage and
//     geometry.ErrDegenerateQuadrilateral from rectification
//   - imaging.ErrInvalidRadius from contrast enhancement
//   - imaging.ErrInvalidBlockSize from adaptive binarization
func Process(img image.Image, q geometry.Quadrilateral, opts Options) (*Result, error) {
	base, err := prepare(img, q, opts)
	if err != nil {
		return nil, err
	}
	return segment(base, opts.ThresholdMode, opts)
}

// Comparison holds the same plate binarized both ways.
type Comparison struct {
	Adaptive *Result
	Otsu     *Result
}

// CompareThresholds runs the pipeline once per threshold mode, ignoring
// opts.ThresholdMode. Rectification and enhancement are computed once and
// shared by both results.
func CompareThresholds(img image.Image, q geometry.Quadrilateral, opts Options) (*Comparison, error) {
	base, err := prepare(img, q, opts)
	if err != nil {
		return nil, err
	}

	adaptive, err := segment(base, imaging.Adaptive, opts)
	if err != nil {
		return nil, err
	}
	otsu, err := segment(base, imaging.GlobalOtsu, opts)
	if err != nil {
		return nil, err
	}
	return &Comparison{Adaptive: adaptive, Otsu: otsu}, nil
}

// prepare runs the stages that do not depend on the threshold mode.
func prepare(img image.Image, q geometry.Quadrilateral, opts Options) (*Result, error) {
	rectified, err := geometry.Rectify(img, q, opts.TargetWidth, opts.TargetHeight, opts.Border)
	if err != nil {
		return nil, err
	}

	gray := imaging.ToGrayscale(rectified)

	enhanced, err := imaging.EnhanceContrast(gray, opts.StructuringRadius)
	if err != nil {
		return nil, err
	}

	return &Result{Rectified: rectified, Gray: gray, Enhanced: enhanced}, nil
}

// segment finishes a prepared Result. base is not modified.
func segment(base *Result, mode imaging.ThresholdMode, opts Options) (*Result, error) {
	binary, err := imaging.Binarize(base.Enhanced, mode, opts.binarizeOptions())
	if err != nil {
		return nil, err
	}

	contours := contour.Extract(binary, opts.Retrieval)

	return &Result{
		Rectified:  base.Rectified,
		Gray:       base.Gray,
		Enhanced:   base.Enhanced,
		Binary:     binary,
		Contours:   contours,
		Candidates: classify.Classify(contours, opts.policy()),
		Mode:       mode,
		Retrieval:  opts.Retrieval,
	}, nil
}
