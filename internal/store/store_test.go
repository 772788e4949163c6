package store

import (
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/ironsheep/plate-tools-mcp/internal/geometry"
	"github.com/ironsheep/plate-tools-mcp/internal/imaging"
	"github.com/ironsheep/plate-tools-mcp/internal/pipeline"
)

func createPlate(width, height int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			c := color.NRGBA{240, 240, 240, 255}
			if x >= width/3 && x < width/2 && y >= height/4 && y < 3*height/4 {
				c = color.NRGBA{10, 10, 10, 255}
			}
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func processPlate(t *testing.T) *pipeline.Result {
	t.Helper()
	q := geometry.Quadrilateral{
		geometry.Pt(0, 0), geometry.Pt(119, 0), geometry.Pt(119, 59), geometry.Pt(0, 59),
	}
	opts := pipeline.DefaultOptions()
	opts.TargetWidth, opts.TargetHeight = 120, 60
	opts.ThresholdMode = imaging.GlobalOtsu
	res, err := pipeline.Process(createPlate(120, 60), q, opts)
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	return res
}

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestNextSequencePath(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name     string
		existing []string
		ext      string
		want     string
	}{
		{"empty dir", nil, ".png", "plate_01.png"},
		{"ext without dot", nil, "png", "plate_01.png"},
		{"skips taken", []string{"plate_01.png", "plate_02.png"}, ".png", "plate_03.png"},
		{"fills gap", []string{"plate_01.png", "plate_03.png"}, ".png", "plate_02.png"},
		{"other extension is free", []string{"plate_01.jpg"}, ".png", "plate_01.png"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub := filepath.Join(dir, tt.name)
			if err := os.MkdirAll(sub, 0o755); err != nil {
				t.Fatal(err)
			}
			for _, f := range tt.existing {
				touch(t, filepath.Join(sub, f))
			}

			got, err := NextSequencePath(sub, "plate", tt.ext)
			if err != nil {
				t.Fatalf("NextSequencePath failed: %v", err)
			}
			if want := filepath.Join(sub, tt.want); got != want {
				t.Errorf("got %s, want %s", got, want)
			}
		})
	}
}

func TestNextSequencePath_BeyondTwoDigits(t *testing.T) {
	dir := t.TempDir()
	for n := 1; n <= 99; n++ {
		touch(t, filepath.Join(dir, sequenceStem("p", n)+".png"))
	}
	got, err := NextSequencePath(dir, "p", ".png")
	if err != nil {
		t.Fatalf("NextSequencePath failed: %v", err)
	}
	if want := filepath.Join(dir, "p_100.png"); got != want {
		t.Errorf("got %s, want %s", got, want)
	}
}

func TestStore_Resolve(t *testing.T) {
	s := New("plates")

	tests := []struct {
		name string
		want string
	}{
		{"car", filepath.Join("plates", "car.png")},
		{"car.jpg", filepath.Join("plates", "car.jpg")},
		{filepath.Join("other", "car.png"), filepath.Join("other", "car.png")},
		{"/abs/car", "/abs/car.png"},
	}
	for _, tt := range tests {
		if got := s.Resolve(tt.name); got != tt.want {
			t.Errorf("Resolve(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}

	if New("").Dir() != DefaultDir {
		t.Errorf("default dir: got %q", New("").Dir())
	}
}

func TestStore_SaveImageAndLoad(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "nested", "plates"))
	img := createPlate(40, 20)

	p1, err := s.SaveImage(img, "plate")
	if err != nil {
		t.Fatalf("SaveImage failed: %v", err)
	}
	p2, err := s.SaveImage(img, "plate")
	if err != nil {
		t.Fatalf("second SaveImage failed: %v", err)
	}
	if filepath.Base(p1) != "plate_01.png" || filepath.Base(p2) != "plate_02.png" {
		t.Errorf("paths: got %s, %s", p1, p2)
	}

	loaded, err := s.Load("plate_02")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if b := loaded.Bounds(); b.Dx() != 40 || b.Dy() != 20 {
		t.Errorf("loaded size: got %dx%d", b.Dx(), b.Dy())
	}
	r, _, _, _ := loaded.At(15, 10).RGBA()
	if r>>8 != 10 {
		t.Errorf("loaded pixel: got %d, want 10", r>>8)
	}

	if _, err := s.Load("missing"); err == nil {
		t.Error("Load should fail for a missing plate")
	}
}

func TestStore_Save(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)
	res := processPlate(t)

	saved, err := s.Save(res, "plate", "car.jpg")
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if saved.Sequence != 1 {
		t.Errorf("Sequence: got %d, want 1", saved.Sequence)
	}
	for _, p := range saved.Paths() {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("missing %s: %v", p, err)
		}
	}
	if filepath.Base(saved.Binary) != "plate_01_binary.png" || filepath.Base(saved.Summary) != "plate_01.json" {
		t.Errorf("names: %s, %s", saved.Binary, saved.Summary)
	}

	bin, err := Load(saved.Binary)
	if err != nil {
		t.Fatalf("Load binary failed: %v", err)
	}
	if b := bin.Bounds(); b.Dx() != 120 || b.Dy() != 60 {
		t.Errorf("binary size: got %dx%d", b.Dx(), b.Dy())
	}

	summary, source, err := LoadSummary(saved.Summary)
	if err != nil {
		t.Fatalf("LoadSummary failed: %v", err)
	}
	if source != "car.jpg" {
		t.Errorf("source: got %q", source)
	}
	want := res.Summary()
	if summary.TotalContours != want.TotalContours || summary.CandidateCount != want.CandidateCount ||
		summary.UnderSegmented != want.UnderSegmented {
		t.Errorf("summary: got %+v, want %+v", summary, want)
	}
}

func TestStore_SaveSkipsPartialSets(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)

	// Any file of a set claims its sequence number.
	touch(t, filepath.Join(dir, "plate_01.json"))
	touch(t, filepath.Join(dir, "plate_02_gray.png"))

	saved, err := s.Save(processPlate(t), "plate", "")
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if saved.Sequence != 3 {
		t.Errorf("Sequence: got %d, want 3", saved.Sequence)
	}
}

func TestStore_SaveFailureLeavesNoFiles(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)
	good := processPlate(t)

	// PNG cannot encode an empty image, so the third stage fails.
	bad := *good
	bad.Enhanced = image.NewGray(image.Rect(0, 0, 0, 0))
	if _, err := s.Save(&bad, "plate", ""); err == nil {
		t.Fatal("expected error for unencodable stage image")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		t.Errorf("leftover file %s", e.Name())
	}

	saved, err := s.Save(good, "plate", "")
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if saved.Sequence != 1 {
		t.Errorf("Sequence: got %d, want 1", saved.Sequence)
	}
}

func TestStore_ConcurrentSaves(t *testing.T) {
	s := New(t.TempDir())
	img := createPlate(10, 10)

	var wg sync.WaitGroup
	paths := make([]string, 8)
	for i := range paths {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p, err := s.SaveImage(img, "plate")
			if err != nil {
				t.Errorf("SaveImage failed: %v", err)
				return
			}
			paths[i] = p
		}(i)
	}
	wg.Wait()

	seen := map[string]bool{}
	for _, p := range paths {
		if seen[p] {
			t.Errorf("duplicate path %s", p)
		}
		seen[p] = true
	}
}

func TestLoadSummary_Errors(t *testing.T) {
	if _, _, err := LoadSummary(filepath.Join(t.TempDir(), "none.json")); err == nil {
		t.Error("LoadSummary should fail for a missing file")
	}

	bad := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(bad, []byte("{"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, _, err := LoadSummary(bad)
	if err == nil {
		t.Error("LoadSummary should fail for invalid JSON")
	}
	if errors.Is(err, os.ErrNotExist) {
		t.Error("parse error reported as missing file")
	}
}
