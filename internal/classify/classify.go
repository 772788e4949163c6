// Package classify flags contours that plausibly outline a single character
// and reports whether a segmentation looks under- or over-segmented.
package classify

import (
	"gonum.org/v1/gonum/stat"

	"github.com/ironsheep/plate-tools-mcp/internal/contour"
)

// Reference frame the default area bounds were calibrated on.
const (
	referenceWidth  = 300
	referenceHeight = 150
)

// Policy holds the candidate thresholds. Areas are in square pixels of the
// rectified frame.
type Policy struct {
	// MinArea and MaxArea are exclusive bounds on contour area.
	MinArea float64 `json:"min_area" yaml:"min_area"`
	MaxArea float64 `json:"max_area" yaml:"max_area"`

	// UnderCount: fewer total contours than this means under-segmented.
	UnderCount int `json:"under_count" yaml:"under_count"`

	// OverCount: more total contours than this means over-segmented.
	OverCount int `json:"over_count" yaml:"over_count"`

	// MinAspect and MaxAspect bound bounding-box width/height. Zero disables
	// the respective bound.
	MinAspect float64 `json:"min_aspect,omitempty" yaml:"min_aspect"`
	MaxAspect float64 `json:"max_aspect,omitempty" yaml:"max_aspect"`
}

// DefaultPolicy returns the thresholds calibrated on a 300x150 frame.
func DefaultPolicy() Policy {
	return Policy{
		MinArea:    30,
		MaxArea:    2000,
		UnderCount: 5,
		OverCount:  20,
	}
}

// PolicyForFrame scales the default area bounds to a width x height frame.
func PolicyForFrame(width, height int) Policy {
	p := DefaultPolicy()
	if width <= 0 || height <= 0 {
		return p
	}
	scale := float64(width*height) / float64(referenceWidth*referenceHeight)
	p.MinArea *= scale
	p.MaxArea *= scale
	return p
}

// Candidate is a contour accepted by the policy.
type Candidate struct {
	// Index is the contour's position in the classified input.
	Index       int         `json:"index"`
	Area        float64     `json:"area"`
	Box         contour.Box `json:"box"`
	AspectRatio float64     `json:"aspect_ratio"`
}

// CandidateSet is the classifier output.
type CandidateSet struct {
	Candidates []Candidate `json:"candidates"`

	// Total is the number of contours examined; Count the number accepted.
	Total int `json:"total"`
	Count int `json:"count"`

	// UnderSegmented: preprocessing is likely too aggressive.
	UnderSegmented bool `json:"under_segmented"`
	// OverSegmented: likely noise, preprocessing needs tightening.
	OverSegmented bool `json:"over_segmented"`

	// MeanArea and StdDevArea summarize candidate areas (0 without candidates).
	MeanArea   float64 `json:"mean_area"`
	StdDevArea float64 `json:"stddev_area"`
}

// Accepts reports whether a single contour passes the policy.
func (p Policy) Accepts(c contour.Contour) bool {
	area := c.Area()
	if area <= p.MinArea || area >= p.MaxArea {
		return false
	}
	ratio := c.AspectRatio()
	if p.MinAspect > 0 && ratio < p.MinAspect {
		return false
	}
	if p.MaxAspect > 0 && ratio > p.MaxAspect {
		return false
	}
	return true
}

// Classify applies p to every contour. The flags are advisory: a set can be
// under-segmented and still contain candidates.
func Classify(contours []contour.Contour, p Policy) CandidateSet {
	set := CandidateSet{
		Candidates: make([]Candidate, 0),
		Total:      len(contours),
	}

	var areas []float64
	for i, c := range contours {
		if !p.Accepts(c) {
			continue
		}
		area := c.Area()
		areas = append(areas, area)
		set.Candidates = append(set.Candidates, Candidate{
			Index:       i,
			Area:        area,
			Box:         c.BoundingBox(),
			AspectRatio: c.AspectRatio(),
		})
	}
	set.Count = len(set.Candidates)

	switch {
	case set.Total < p.UnderCount:
		set.UnderSegmented = true
	case set.Total > p.OverCount:
		set.OverSegmented = true
	}

	if len(areas) > 0 {
		set.MeanArea = stat.Mean(areas, nil)
	}
	if len(areas) > 1 {
		set.StdDevArea = stat.StdDev(areas, nil)
	}

	return set
}
