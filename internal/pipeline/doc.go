// Package pipeline runs the plate segmentation stages for one source image.
//
// The stages form a straight line with no branches or retries:
//
//	Rectify -> Grayscale -> EnhanceContrast -> Binarize -> ExtractContours -> Classify
//
// Each stage consumes the previous stage's output and allocates its own. If a
// stage fails, Process returns that stage's error unchanged and no Result, so
// callers can match the sentinel errors of the geometry and imaging packages
// with errors.Is.
//
// # Example Usage
//
//	q, _ := geometry.NewQuadrilateral(points)
//	res, err := pipeline.Process(img, q, pipeline.DefaultOptions())
//	if errors.Is(err, geometry.ErrDegenerateQuadrilateral) {
//	    // ask the user for new corners
//	}
//	fmt.Println(res.Candidates.Count, res.Candidates.UnderSegmented)
//
// # Thread Safety
//
// Process holds no shared state. Independent invocations may run
// concurrently; a Result is never modified after it is returned.
package pipeline
