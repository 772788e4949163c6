package batch

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

var imageExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".bmp":  true,
	".tif":  true,
	".tiff": true,
	".webp": true,
}

// IsImageFile reports whether path has a decodable image extension.
func IsImageFile(path string) bool {
	return imageExts[strings.ToLower(filepath.Ext(path))]
}

// ListImages returns the image files directly inside dir, sorted by name.
// Subdirectories are not descended into.
func ListImages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() || !IsImageFile(e.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}

// JobsForDir turns every image in dir into a full-frame Job.
func JobsForDir(dir string) ([]Job, error) {
	paths, err := ListImages(dir)
	if err != nil {
		return nil, err
	}
	jobs := make([]Job, len(paths))
	for i, p := range paths {
		jobs[i] = Job{Path: p}
	}
	return jobs, nil
}

// manifest is the on-disk job list.
type manifest struct {
	Jobs []Job `json:"jobs" yaml:"jobs"`
}

// LoadJobs reads a manifest of jobs. Files ending in .yaml or .yml are parsed
// as YAML, everything else as JSON:
//
//	{"jobs": [{"path": "car.jpg", "points": [{"x": 10, "y": 10}, ...]}]}
//
// Relative job paths are resolved against the manifest's directory. Each job
// must list either no points or exactly four.
func LoadJobs(path string) ([]Job, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var m manifest
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &m)
	default:
		err = json.Unmarshal(data, &m)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse manifest %s: %w", path, err)
	}

	base := filepath.Dir(path)
	for i, j := range m.Jobs {
		if j.Path == "" {
			return nil, fmt.Errorf("manifest job %d: missing path", i)
		}
		if n := len(j.Points); n != 0 && n != 4 {
			return nil, fmt.Errorf("manifest job %d (%s): need 0 or 4 points, got %d", i, j.Path, n)
		}
		if !filepath.IsAbs(j.Path) {
			m.Jobs[i].Path = filepath.Join(base, j.Path)
		}
	}
	return m.Jobs, nil
}

// baseName is the file name without directory or extension.
func baseName(path string) string {
	name := filepath.Base(path)
	return strings.TrimSuffix(name, filepath.Ext(name))
}
