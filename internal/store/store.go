// Package store persists plate images and pipeline results on disk.
//
// Files are named with a sequence suffix so repeated extractions of the same
// plate never overwrite each other: plate_01.png, plate_02.png, and so on. A
// saved Result shares one sequence number across all of its files:
//
//	plate_03_rectified.png
//	plate_03_gray.png
//	plate_03_enhanced.png
//	plate_03_binary.png
//	plate_03.json
//
// The pipeline itself never touches the filesystem; Store is one possible
// collaborator and can be replaced without changing pipeline code.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/disintegration/imaging"

	"github.com/ironsheep/plate-tools-mcp/internal/pipeline"
)

// DefaultDir is where extracted plates are kept when no directory is given.
const DefaultDir = "extracted_plates"

// DefaultExt is the image extension used for names without one.
const DefaultExt = ".png"

// maxSequence bounds the search for a free suffix.
const maxSequence = 9999

// ErrSequenceExhausted is returned when every suffix up to 9999 is taken.
var ErrSequenceExhausted = errors.New("no free sequence number")

// Store reads and writes plate files under one directory. Saves through the
// same Store are serialized so concurrent callers get distinct sequence
// numbers; separate processes writing the same directory are not coordinated.
type Store struct {
	dir string
	mu  sync.Mutex
}

// New returns a Store rooted at dir (DefaultDir when empty). The directory is
// created on first save.
func New(dir string) *Store {
	if dir == "" {
		dir = DefaultDir
	}
	return &Store{dir: dir}
}

// Dir returns the root directory.
func (s *Store) Dir() string {
	return s.dir
}

// Resolve maps a plate name to a path. Names without an extension get
// DefaultExt; names that are already paths (absolute or containing a
// separator) are returned as given.
func (s *Store) Resolve(name string) string {
	if filepath.Ext(name) == "" {
		name += DefaultExt
	}
	if filepath.IsAbs(name) || strings.ContainsRune(name, filepath.Separator) {
		return name
	}
	return filepath.Join(s.dir, name)
}

// Load decodes the plate called name (see Resolve).
func (s *Store) Load(name string) (image.Image, error) {
	return Load(s.Resolve(name))
}

// Load decodes the image at path with EXIF auto-orientation.
func Load(path string) (image.Image, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	return img, nil
}

// NextSequencePath returns the first dir/base_NN.ext that does not exist,
// starting at 01. ext may be given with or without the leading dot.
func NextSequencePath(dir, base, ext string) (string, error) {
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	for n := 1; n <= maxSequence; n++ {
		path := filepath.Join(dir, sequenceStem(base, n)+ext)
		_, err := os.Stat(path)
		if errors.Is(err, fs.ErrNotExist) {
			return path, nil
		}
		if err != nil {
			return "", fmt.Errorf("failed to check %s: %w", path, err)
		}
	}
	return "", fmt.Errorf("%w for %s in %s", ErrSequenceExhausted, base, dir)
}

func sequenceStem(base string, n int) string {
	return fmt.Sprintf("%s_%02d", base, n)
}

// SaveImage writes img as the next free base_NN.png and returns its path.
func (s *Store) SaveImage(img image.Image, base string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", s.dir, err)
	}
	path, err := NextSequencePath(s.dir, base, DefaultExt)
	if err != nil {
		return "", err
	}
	if err := imaging.Save(img, path); err != nil {
		return "", fmt.Errorf("failed to save %s: %w", path, err)
	}
	return path, nil
}

// Saved lists the files written for one Result.
type Saved struct {
	Sequence  int    `json:"sequence"`
	Rectified string `json:"rectified"`
	Gray      string `json:"gray"`
	Enhanced  string `json:"enhanced"`
	Binary    string `json:"binary"`
	Summary   string `json:"summary"`
}

// Paths returns the written files in stage order, summary last.
func (s Saved) Paths() []string {
	return []string{s.Rectified, s.Gray, s.Enhanced, s.Binary, s.Summary}
}

// record is the JSON document written next to the stage images.
type record struct {
	Source  string           `json:"source,omitempty"`
	Summary pipeline.Summary `json:"summary"`
}

// Save writes every stage image of res and a JSON summary under the first
// sequence number for which none of those files exist. source is recorded in
// the summary and may be empty.
func (s *Store) Save(res *pipeline.Result, base, source string) (*Saved, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", s.dir, err)
	}

	n, err := s.freeSequence(base)
	if err != nil {
		return nil, err
	}
	saved := s.names(base, n)

	stages := []struct {
		img  image.Image
		path string
	}{
		{res.Rectified, saved.Rectified},
		{res.Gray, saved.Gray},
		{res.Enhanced, saved.Enhanced},
		{res.Binary, saved.Binary},
	}
	// A failed save removes the whole set so its sequence number stays free.
	for _, st := range stages {
		if err := imaging.Save(st.img, st.path); err != nil {
			removeAll(saved.Paths())
			return nil, fmt.Errorf("failed to save %s: %w", st.path, err)
		}
	}

	data, err := json.MarshalIndent(record{Source: source, Summary: res.Summary()}, "", "  ")
	if err != nil {
		removeAll(saved.Paths())
		return nil, fmt.Errorf("failed to encode summary: %w", err)
	}
	if err := os.WriteFile(saved.Summary, data, 0o644); err != nil {
		removeAll(saved.Paths())
		return nil, fmt.Errorf("failed to write %s: %w", saved.Summary, err)
	}

	return &saved, nil
}

func removeAll(paths []string) {
	for _, p := range paths {
		_ = os.Remove(p)
	}
}

func (s *Store) names(base string, n int) Saved {
	stem := filepath.Join(s.dir, sequenceStem(base, n))
	return Saved{
		Sequence:  n,
		Rectified: stem + "_rectified.png",
		Gray:      stem + "_gray.png",
		Enhanced:  stem + "_enhanced.png",
		Binary:    stem + "_binary.png",
		Summary:   stem + ".json",
	}
}

// freeSequence finds the first n for which no file of the set exists.
func (s *Store) freeSequence(base string) (int, error) {
	for n := 1; n <= maxSequence; n++ {
		taken := false
		for _, p := range s.names(base, n).Paths() {
			if _, err := os.Stat(p); err == nil {
				taken = true
				break
			} else if !errors.Is(err, fs.ErrNotExist) {
				return 0, fmt.Errorf("failed to check %s: %w", p, err)
			}
		}
		if !taken {
			return n, nil
		}
	}
	return 0, fmt.Errorf("%w for %s in %s", ErrSequenceExhausted, base, s.dir)
}

// LoadSummary reads a summary written by Save.
func LoadSummary(path string) (pipeline.Summary, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return pipeline.Summary{}, "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return pipeline.Summary{}, "", fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return rec.Summary, rec.Source, nil
}
