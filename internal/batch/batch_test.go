package batch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/ironsheep/plate-tools-mcp/internal/geometry"
	"github.com/ironsheep/plate-tools-mcp/internal/imaging"
	"github.com/ironsheep/plate-tools-mcp/internal/pipeline"
	"github.com/ironsheep/plate-tools-mcp/internal/store"
)

// createPlate draws n dark 10x20 glyphs on a light 150x75 plate.
func createPlate(n int) image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, 150, 75))
	for y := 0; y < 75; y++ {
		for x := 0; x < 150; x++ {
			c := color.NRGBA{230, 230, 230, 255}
			if g := (x - 10) / 20; x >= 10 && g < n && (x-10)%20 < 10 && y >= 25 && y < 45 {
				c = color.NRGBA{15, 15, 15, 255}
			}
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func mapLoader(images map[string]image.Image) Loader {
	return func(path string) (image.Image, error) {
		img, ok := images[path]
		if !ok {
			return nil, fmt.Errorf("no such image: %s", path)
		}
		return img, nil
	}
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.Out = io.Discard
	return l
}

func testOptions() pipeline.Options {
	opts := pipeline.DefaultOptions()
	opts.TargetWidth, opts.TargetHeight = 150, 75
	opts.ThresholdMode = imaging.GlobalOtsu
	return opts
}

func TestRunner_Run(t *testing.T) {
	images := map[string]image.Image{
		"six.png":   createPlate(6),
		"two.png":   createPlate(2),
		"blank.png": createPlate(0),
	}
	degenerate := []geometry.Point2D{{X: 1, Y: 1}, {X: 1, Y: 1}, {X: 1, Y: 1}, {X: 1, Y: 1}}

	jobs := []Job{
		{Path: "six.png"},
		{Path: "missing.png"},
		{Path: "two.png"},
		{Path: "blank.png", Points: degenerate},
		{Path: "blank.png"},
	}

	r := &Runner{Workers: 3, Options: testOptions(), Load: mapLoader(images), Logger: quietLogger()}
	report := r.Run(context.Background(), jobs)

	if len(report.Outcomes) != len(jobs) {
		t.Fatalf("outcomes: got %d, want %d", len(report.Outcomes), len(jobs))
	}
	for i, o := range report.Outcomes {
		if o.Job.Path != jobs[i].Path {
			t.Errorf("outcome %d: path %s, want %s (order not preserved)", i, o.Job.Path, jobs[i].Path)
		}
	}

	if report.Succeeded != 3 || report.Failed != 2 {
		t.Errorf("counts: succeeded %d failed %d, want 3 and 2", report.Succeeded, report.Failed)
	}
	if !errors.Is(report.Outcomes[3].Err, geometry.ErrDegenerateQuadrilateral) {
		t.Errorf("degenerate job error: got %v", report.Outcomes[3].Err)
	}

	six := report.Outcomes[0].Summary
	if six == nil || six.CandidateCount != 6 || six.UnderSegmented {
		t.Errorf("six glyphs: got %+v", six)
	}
	if two := report.Outcomes[2].Summary; two == nil || !two.UnderSegmented {
		t.Errorf("two glyphs should be under-segmented: got %+v", two)
	}
	if report.UnderSegmented != 2 {
		t.Errorf("UnderSegmented: got %d, want 2", report.UnderSegmented)
	}
}

func TestRunner_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := &Runner{Workers: 2, Options: testOptions(), Load: mapLoader(nil), Logger: quietLogger()}
	report := r.Run(ctx, []Job{{Path: "a.png"}, {Path: "b.png"}})

	if report.Failed != 2 {
		t.Fatalf("Failed: got %d, want 2", report.Failed)
	}
	for i, o := range report.Outcomes {
		if !errors.Is(o.Err, context.Canceled) {
			t.Errorf("outcome %d: got %v, want context.Canceled", i, o.Err)
		}
	}
}

func TestRunner_Empty(t *testing.T) {
	r := &Runner{Options: testOptions(), Logger: quietLogger()}
	report := r.Run(context.Background(), nil)
	if len(report.Outcomes) != 0 || report.Succeeded != 0 || report.Failed != 0 {
		t.Errorf("empty run: got %+v", report)
	}
}

func TestRunner_SavesAndLogs(t *testing.T) {
	var buf bytes.Buffer
	logger := logrus.New()
	logger.Out = &buf
	logger.Formatter = &logrus.JSONFormatter{}

	s := store.New(t.TempDir())
	r := &Runner{
		Workers: 1,
		Options: testOptions(),
		Load:    mapLoader(map[string]image.Image{"cars/front.jpg": createPlate(6)}),
		Store:   s,
		Logger:  logger,
	}
	report := r.Run(context.Background(), []Job{{Path: "cars/front.jpg"}})

	if report.Succeeded != 1 {
		t.Fatalf("Succeeded: got %d (err %v)", report.Succeeded, report.Outcomes[0].Err)
	}
	saved := report.Outcomes[0].Saved
	if saved == nil {
		t.Fatal("Saved is nil")
	}
	if filepath.Base(saved.Summary) != "front_01.json" {
		t.Errorf("summary file: got %s", saved.Summary)
	}
	if _, err := os.Stat(saved.Binary); err != nil {
		t.Errorf("binary not written: %v", err)
	}

	out := buf.String()
	for _, want := range []string{`"file":"cars/front.jpg"`, `"candidates":6`, `"under_segmented":false`, `"progress":"1/1"`} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %s: %s", want, out)
		}
	}
}

func TestListImages(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.PNG", "a.jpg", "notes.txt", "c.webp", "d.tiff"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "sub.png"), 0o755); err != nil {
		t.Fatal(err)
	}

	got, err := ListImages(dir)
	if err != nil {
		t.Fatalf("ListImages failed: %v", err)
	}
	want := []string{"a.jpg", "b.PNG", "c.webp", "d.tiff"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != filepath.Join(dir, want[i]) {
			t.Errorf("entry %d: got %s, want %s", i, got[i], want[i])
		}
	}

	jobs, err := JobsForDir(dir)
	if err != nil || len(jobs) != 4 || jobs[0].Points != nil {
		t.Errorf("JobsForDir: got %v, %v", jobs, err)
	}

	if _, err := ListImages(filepath.Join(dir, "missing")); err == nil {
		t.Error("ListImages should fail for a missing directory")
	}
}

func TestLoadJobs(t *testing.T) {
	dir := t.TempDir()

	jsonManifest := `{"jobs": [
		{"path": "car.jpg", "points": [{"x": 10, "y": 10}, {"x": 290, "y": 12}, {"x": 288, "y": 140}, {"x": 8, "y": 138}]},
		{"path": "/abs/plate.png"}
	]}`
	yamlManifest := `jobs:
  - path: car.jpg
    points:
      - {x: 10, y: 10}
      - {x: 290, y: 12}
      - {x: 288, y: 140}
      - {x: 8, y: 138}
  - path: /abs/plate.png
`

	for name, content := range map[string]string{"jobs.json": jsonManifest, "jobs.yaml": yamlManifest} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
				t.Fatal(err)
			}

			jobs, err := LoadJobs(path)
			if err != nil {
				t.Fatalf("LoadJobs failed: %v", err)
			}
			if len(jobs) != 2 {
				t.Fatalf("jobs: got %d, want 2", len(jobs))
			}
			if jobs[0].Path != filepath.Join(dir, "car.jpg") {
				t.Errorf("relative path: got %s", jobs[0].Path)
			}
			if jobs[1].Path != "/abs/plate.png" {
				t.Errorf("absolute path: got %s", jobs[1].Path)
			}
			if len(jobs[0].Points) != 4 || jobs[0].Points[1] != (geometry.Point2D{X: 290, Y: 12}) {
				t.Errorf("points: got %v", jobs[0].Points)
			}
		})
	}
}

func TestLoadJobs_Errors(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		content string
	}{
		{"bad.json", `{"jobs": [`},
		{"three.json", `{"jobs": [{"path": "a.png", "points": [{"x":1,"y":1},{"x":2,"y":1},{"x":2,"y":2}]}]}`},
		{"nopath.json", `{"jobs": [{"points": []}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name)
			if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
				t.Fatal(err)
			}
			if _, err := LoadJobs(path); err == nil {
				t.Error("expected error")
			}
		})
	}

	if _, err := LoadJobs(filepath.Join(dir, "none.json")); err == nil {
		t.Error("LoadJobs should fail for a missing manifest")
	}
}
