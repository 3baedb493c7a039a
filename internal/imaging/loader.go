package imaging

import (
	"fmt"
	"image"
	_ "image/gif" // Register GIF format decoder
	"os"
	"path/filepath"
	"sync"

	"github.com/anthonynsimon/bild/imgio"

	"github.com/ironsheep/blob-tools-mcp/internal/blob"
)

// ImageCache keeps decoded images, and their detector-ready float planes,
// keyed by file path.
//
// ImageCache is safe for concurrent use. Entries stay in memory until
// Evict or Clear removes them.
//
// # Example Usage
//
//	cache := imaging.NewImageCache()
//	plane, err := cache.LoadFloat("/path/to/frame.png")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	res, err := detector.Detect(ctx, plane, 1)
type ImageCache struct {
	mu     sync.RWMutex
	images map[string]image.Image
	planes map[string]*blob.Image
}

// NewImageCache creates an empty cache.
func NewImageCache() *ImageCache {
	return &ImageCache{
		images: make(map[string]image.Image),
		planes: make(map[string]*blob.Image),
	}
}

// Load returns the decoded image at path, reading it from disk on first use.
//
// Parameters:
//   - path: File path of a PNG, JPEG or GIF image. Different spellings of
//     the same file get separate entries.
//
// Returns:
//   - image.Image: The decoded image in its native color model.
//   - error: Non-nil if the file cannot be opened or decoded.
func (c *ImageCache) Load(path string) (image.Image, error) {
	c.mu.RLock()
	if img, ok := c.images[path]; ok {
		c.mu.RUnlock()
		return img, nil
	}
	c.mu.RUnlock()

	img, err := imgio.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load image %s: %w", path, err)
	}

	c.mu.Lock()
	c.images[path] = img
	c.mu.Unlock()

	return img, nil
}

// LoadFloat returns the luminance plane of the image at path as produced by
// ToFloat. The plane is shared between callers and must not be modified.
func (c *ImageCache) LoadFloat(path string) (*blob.Image, error) {
	c.mu.RLock()
	if plane, ok := c.planes[path]; ok {
		c.mu.RUnlock()
		return plane, nil
	}
	c.mu.RUnlock()

	img, err := c.Load(path)
	if err != nil {
		return nil, err
	}
	plane := ToFloat(img)

	c.mu.Lock()
	c.planes[path] = plane
	c.mu.Unlock()

	return plane, nil
}

// Clear drops every cached entry.
func (c *ImageCache) Clear() {
	c.mu.Lock()
	c.images = make(map[string]image.Image)
	c.planes = make(map[string]*blob.Image)
	c.mu.Unlock()
}

// Evict drops the entries for path. Unknown paths are ignored.
func (c *ImageCache) Evict(path string) {
	c.mu.Lock()
	delete(c.images, path)
	delete(c.planes, path)
	c.mu.Unlock()
}

// Len reports how many decoded images are cached.
func (c *ImageCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.images)
}

// ImageInfo describes an image file.
type ImageInfo struct {
	Width  int `json:"width"`
	Height int `json:"height"`

	// Format is "png", "jpeg", "gif" or "unknown", from the file extension.
	Format string `json:"format"`

	// ColorDepth is "8-bit" or "16-bit" per channel.
	ColorDepth string `json:"color_depth"`

	// Grayscale is true for single-channel images, the usual input of the
	// detector.
	Grayscale bool `json:"grayscale"`

	HasAlpha      bool  `json:"has_alpha"`
	FileSizeBytes int64 `json:"file_size_bytes"`

	// Min and Max are the extremes of the luminance plane in [0, 1].
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// LoadImageInfo loads the image at path through cache and describes it.
//
// Color depth and channel layout come from the decoded Go image type:
// *image.Gray16, *image.RGBA64 and *image.NRGBA64 are 16-bit, and
// *image.Gray and *image.Gray16 are grayscale.
func LoadImageInfo(cache *ImageCache, path string) (*ImageInfo, error) {
	img, err := cache.Load(path)
	if err != nil {
		return nil, err
	}
	plane, err := cache.LoadFloat(path)
	if err != nil {
		return nil, err
	}

	stat, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	format := "unknown"
	switch filepath.Ext(path) {
	case ".png":
		format = "png"
	case ".jpg", ".jpeg":
		format = "jpeg"
	case ".gif":
		format = "gif"
	}

	info := &ImageInfo{
		Width:         img.Bounds().Dx(),
		Height:        img.Bounds().Dy(),
		Format:        format,
		ColorDepth:    "8-bit",
		FileSizeBytes: stat.Size(),
	}
	switch img.(type) {
	case *image.Gray:
		info.Grayscale = true
	case *image.Gray16:
		info.Grayscale = true
		info.ColorDepth = "16-bit"
	case *image.RGBA, *image.NRGBA:
		info.HasAlpha = true
	case *image.RGBA64, *image.NRGBA64:
		info.HasAlpha = true
		info.ColorDepth = "16-bit"
	}
	info.Min, info.Max = plane.MinMax()
	return info, nil
}

// DimensionsResult holds the size of an image.
type DimensionsResult struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// GetDimensions loads the image at path through cache and returns its size.
func GetDimensions(cache *ImageCache, path string) (*DimensionsResult, error) {
	img, err := cache.Load(path)
	if err != nil {
		return nil, err
	}
	bounds := img.Bounds()
	return &DimensionsResult{Width: bounds.Dx(), Height: bounds.Dy()}, nil
}
