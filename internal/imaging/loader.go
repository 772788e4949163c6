package imaging

import (
	"fmt"
	"image"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"os"
	"sync"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"  // Register BMP format decoder
	_ "golang.org/x/image/tiff" // Register TIFF format decoder
	_ "golang.org/x/image/webp" // Register WebP format decoder
)

// DefaultCacheCapacity bounds how many decoded plates an ImageCache keeps.
const DefaultCacheCapacity = 32

// ImageCache keeps decoded plate photographs keyed by file path, so that an
// interactive session can pick corners, rectify and re-binarize the same
// source without decoding it again.
//
// Entries are evicted oldest-first once the cache holds more than its
// capacity. ImageCache is safe for concurrent use.
//
// # Example Usage
//
//	cache := imaging.NewImageCache(0)
//	img, err := cache.Load("plates/car_01.jpg")
//	if err != nil {
//	    log.Fatal(err)
//	}
type ImageCache struct {
	mu       sync.RWMutex
	capacity int
	images   map[string]image.Image
	order    []string
}

// NewImageCache creates an empty cache. A capacity <= 0 selects
// DefaultCacheCapacity.
func NewImageCache(capacity int) *ImageCache {
	if capacity <= 0 {
		capacity = DefaultCacheCapacity
	}
	return &ImageCache{
		capacity: capacity,
		images:   make(map[string]image.Image),
	}
}

// Load returns the decoded image at path, reading it from disk on a miss.
//
// Decoding goes through imaging.Open with EXIF auto-orientation, so phone
// photographs come back upright and corner coordinates match what a viewer
// shows. PNG, JPEG, GIF, BMP, TIFF and WebP are supported.
//
// The exact path string is the cache key.
func (c *ImageCache) Load(path string) (image.Image, error) {
	c.mu.RLock()
	if img, ok := c.images[path]; ok {
		c.mu.RUnlock()
		return img, nil
	}
	c.mu.RUnlock()

	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to load image %s: %w", path, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if cached, ok := c.images[path]; ok {
		return cached, nil
	}
	c.images[path] = img
	c.order = append(c.order, path)
	for len(c.order) > c.capacity {
		delete(c.images, c.order[0])
		c.order = c.order[1:]
	}
	return img, nil
}

// Len returns the number of cached images.
func (c *ImageCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.images)
}

// Clear drops every cached image.
func (c *ImageCache) Clear() {
	c.mu.Lock()
	c.images = make(map[string]image.Image)
	c.order = nil
	c.mu.Unlock()
}

// Evict removes one path from the cache. Unknown paths are ignored.
func (c *ImageCache) Evict(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.images[path]; !ok {
		return
	}
	delete(c.images, path)
	for i, p := range c.order {
		if p == path {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

// ImageInfo describes a source photograph before any processing.
type ImageInfo struct {
	// Width and Height are the decoded, orientation-corrected dimensions.
	Width  int `json:"width"`
	Height int `json:"height"`

	// Format is the decoder name reported by the file contents ("png",
	// "jpeg", "gif", "bmp", "tiff", "webp").
	Format string `json:"format"`

	// ColorModel is "gray", "gray16", "rgba", "rgba64", "ycbcr", "paletted"
	// or "other".
	ColorModel string `json:"color_model"`

	FileSizeBytes int64 `json:"file_size_bytes"`
}

// LoadImageInfo loads path through cache and reports its metadata. The
// format is sniffed from the file header, not the extension.
func LoadImageInfo(cache *ImageCache, path string) (*ImageInfo, error) {
	img, err := cache.Load(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	_, format, err := image.DecodeConfig(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read image header: %w", err)
	}

	bounds := img.Bounds()
	return &ImageInfo{
		Width:         bounds.Dx(),
		Height:        bounds.Dy(),
		Format:        format,
		ColorModel:    colorModelName(img),
		FileSizeBytes: stat.Size(),
	}, nil
}

func colorModelName(img image.Image) string {
	switch img.(type) {
	case *image.Gray:
		return "gray"
	case *image.Gray16:
		return "gray16"
	case *image.RGBA, *image.NRGBA:
		return "rgba"
	case *image.RGBA64, *image.NRGBA64:
		return "rgba64"
	case *image.YCbCr:
		return "ycbcr"
	case *image.Paletted:
		return "paletted"
	default:
		return "other"
	}
}

// DimensionsResult holds the width and height of an image.
type DimensionsResult struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// GetDimensions returns the size of the image at path, loading it into cache
// if needed.
func GetDimensions(cache *ImageCache, path string) (*DimensionsResult, error) {
	img, err := cache.Load(path)
	if err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	return &DimensionsResult{
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
	}, nil
}
