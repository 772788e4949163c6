// Package batch runs the plate pipeline over many source images on a bounded
// worker pool and reports per-file diagnostics.
package batch

import (
	"context"
	"fmt"
	"image"
	"runtime"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/ironsheep/plate-tools-mcp/internal/geometry"
	"github.com/ironsheep/plate-tools-mcp/internal/pipeline"
	"github.com/ironsheep/plate-tools-mcp/internal/store"
)

// Job is one source image and its plate corners. Without points the whole
// image is treated as an already-extracted plate.
type Job struct {
	Path   string             `json:"path" yaml:"path"`
	Points []geometry.Point2D `json:"points,omitempty" yaml:"points,omitempty"`
}

// Loader decodes a source image.
type Loader func(path string) (image.Image, error)

// Outcome is the result of one Job.
type Outcome struct {
	Job     Job
	Summary *pipeline.Summary
	Saved   *store.Saved
	Err     error
}

// Report aggregates the outcomes of a Run, in job order.
type Report struct {
	Outcomes       []Outcome
	Succeeded      int
	Failed         int
	UnderSegmented int
	OverSegmented  int
}

// Runner processes jobs concurrently. The zero value is not usable; set at
// least Options.
type Runner struct {
	// Workers bounds concurrency; <= 0 means runtime.NumCPU().
	Workers int

	Options pipeline.Options

	// Load decodes sources; nil means store.Load.
	Load Loader

	// Store, when set, receives every successful Result.
	Store *store.Store

	// Logger receives one entry per job; nil means logrus.StandardLogger().
	Logger *logrus.Logger
}

// Run processes jobs and returns when all of them have finished or been
// skipped. Cancellation is checked before each job starts; jobs that never
// started carry ctx.Err().
func (r *Runner) Run(ctx context.Context, jobs []Job) *Report {
	workers := r.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	workers = min(workers, max(1, len(jobs)))

	outcomes := make([]Outcome, len(jobs))
	indices := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indices {
				outcomes[i] = r.runOne(ctx, i, len(jobs), jobs[i])
			}
		}()
	}

	for i := range jobs {
		indices <- i
	}
	close(indices)
	wg.Wait()

	report := &Report{Outcomes: outcomes}
	for _, o := range outcomes {
		if o.Err != nil {
			report.Failed++
			continue
		}
		report.Succeeded++
		if o.Summary.UnderSegmented {
			report.UnderSegmented++
		}
		if o.Summary.OverSegmented {
			report.OverSegmented++
		}
	}
	return report
}

func (r *Runner) runOne(ctx context.Context, i, total int, job Job) Outcome {
	out := Outcome{Job: job}
	logger := r.logger().WithFields(logrus.Fields{
		"file":     job.Path,
		"progress": fmt.Sprintf("%d/%d", i+1, total),
	})

	if err := ctx.Err(); err != nil {
		out.Err = err
		logger.WithError(err).Warn("Skipping plate")
		return out
	}

	res, err := r.process(job)
	if err != nil {
		out.Err = err
		logger.WithError(err).Error("Failed to process plate")
		return out
	}

	summary := res.Summary()
	out.Summary = &summary

	if r.Store != nil {
		saved, err := r.Store.Save(res, baseName(job.Path), job.Path)
		if err != nil {
			out.Err = err
			logger.WithError(err).Error("Failed to save plate")
			return out
		}
		out.Saved = saved
		logger = logger.WithField("saved", saved.Summary)
	}

	entry := logger.WithFields(logrus.Fields{
		"contours":        summary.TotalContours,
		"candidates":      summary.CandidateCount,
		"under_segmented": summary.UnderSegmented,
		"over_segmented":  summary.OverSegmented,
	})
	if summary.UnderSegmented || summary.OverSegmented {
		entry.Warn("Processed plate with segmentation warning")
	} else {
		entry.Info("Processed plate")
	}
	return out
}

func (r *Runner) process(job Job) (*pipeline.Result, error) {
	load := r.Load
	if load == nil {
		load = store.Load
	}
	img, err := load(job.Path)
	if err != nil {
		return nil, err
	}

	var q geometry.Quadrilateral
	if len(job.Points) == 0 {
		b := img.Bounds()
		q = geometry.Quadrilateral(geometry.RectCorners(b.Dx(), b.Dy()).Points())
	} else {
		q, err = geometry.NewQuadrilateral(job.Points)
		if err != nil {
			return nil, err
		}
	}

	return pipeline.Process(img, q, r.Options)
}

func (r *Runner) logger() *logrus.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return logrus.StandardLogger()
}
