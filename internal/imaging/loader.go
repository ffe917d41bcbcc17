package imaging

import (
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	_ "golang.org/x/image/bmp"  // Register BMP format decoder
	_ "golang.org/x/image/tiff" // Register TIFF format decoder
	_ "golang.org/x/image/webp" // Register WebP format decoder
)

// ErrNotFound is returned when an image path does not exist.
var ErrNotFound = errors.New("image file not found")

// ImageCache provides thread-safe caching of decoded base images.
//
// The cache stores ImageBuffer values keyed by their file path. Once an image
// is loaded, subsequent Load() calls for the same path return the cached
// buffer without disk I/O. Cached buffers are shared between callers and must
// be treated as read-only; the watermark compositor never writes to its base.
//
// # Memory Management
//
// Cached images remain in memory until explicitly removed via Evict() or Clear().
//
// # Example Usage
//
//	cache := imaging.NewImageCache()
//	buf, err := cache.Load("/path/to/photo.jpg")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	cache.Evict("/path/to/photo.jpg") // Optional: free memory
type ImageCache struct {
	mu     sync.RWMutex
	images map[string]*cachedImage
}

type cachedImage struct {
	buf    *ImageBuffer
	format string
	mode   string
}

// NewImageCache creates and initializes a new empty image cache.
func NewImageCache() *ImageCache {
	return &ImageCache{
		images: make(map[string]*cachedImage),
	}
}

// Load retrieves an image from the cache or decodes it from disk.
//
// Supported formats are PNG, JPEG, GIF, BMP, TIFF and WebP. The returned
// buffer is shared with the cache and must not be modified.
//
// # Errors
//
//   - Returns an error wrapping ErrNotFound if the file does not exist
//   - Returns an error if the file cannot be read or is not a supported image
func (c *ImageCache) Load(path string) (*ImageBuffer, error) {
	entry, err := c.load(path)
	if err != nil {
		return nil, err
	}
	return entry.buf, nil
}

func (c *ImageCache) load(path string) (*cachedImage, error) {
	c.mu.RLock()
	if entry, ok := c.images[path]; ok {
		c.mu.RUnlock()
		return entry, nil
	}
	c.mu.RUnlock()

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	img, format, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	buf, err := FromImage(img)
	if err != nil {
		return nil, err
	}
	entry := &cachedImage{buf: buf, format: format, mode: colorMode(img)}

	c.mu.Lock()
	c.images[path] = entry
	c.mu.Unlock()

	return entry, nil
}

// Clear removes all images from the cache, freeing the associated memory.
func (c *ImageCache) Clear() {
	c.mu.Lock()
	c.images = make(map[string]*cachedImage)
	c.mu.Unlock()
}

// Evict removes a specific image from the cache by its path.
//
// If the path is not in the cache, this method does nothing.
func (c *ImageCache) Evict(path string) {
	c.mu.Lock()
	delete(c.images, path)
	c.mu.Unlock()
}

// Len returns the number of cached images.
func (c *ImageCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.images)
}

// ImageInfo contains metadata about a loaded image file.
type ImageInfo struct {
	// Width is the image width in pixels.
	Width int `json:"width"`

	// Height is the image height in pixels.
	Height int `json:"height"`

	// Format is the format reported by the decoder: "png", "jpeg", "gif",
	// "bmp", "tiff" or "webp".
	Format string `json:"format"`

	// Mode describes the decoded color model: "RGBA", "RGB", "L", "P" or
	// "CMYK".
	Mode string `json:"mode"`

	// ColorDepth indicates the bit depth per channel: "8-bit" or "16-bit".
	ColorDepth string `json:"color_depth"`

	// HasAlpha indicates whether the decoded image carries an alpha channel.
	HasAlpha bool `json:"has_alpha"`

	// FileSizeBytes is the size of the image file on disk in bytes.
	FileSizeBytes int64 `json:"file_size_bytes"`
}

// LoadImageInfo loads an image and returns comprehensive metadata about it.
//
// The format is taken from the decoder rather than the file extension, so a
// mislabelled file reports what it actually contains.
func LoadImageInfo(cache *ImageCache, path string) (*ImageInfo, error) {
	entry, err := cache.load(path)
	if err != nil {
		return nil, err
	}

	stat, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	depth := "8-bit"
	if strings.HasSuffix(entry.mode, "16") {
		depth = "16-bit"
	}
	mode := strings.TrimSuffix(entry.mode, "16")

	return &ImageInfo{
		Width:         entry.buf.Width,
		Height:        entry.buf.Height,
		Format:        entry.format,
		Mode:          mode,
		ColorDepth:    depth,
		HasAlpha:      mode == "RGBA" || (mode == "P" && !entry.buf.Opaque()),
		FileSizeBytes: stat.Size(),
	}, nil
}

// colorMode names the decoded color model. A "16" suffix marks 16-bit depth.
func colorMode(img image.Image) string {
	switch m := img.(type) {
	case *image.RGBA:
		// The PNG, BMP and TIFF decoders use premultiplied RGBA for
		// truecolor data without an alpha channel.
		if m.Opaque() {
			return "RGB"
		}
		return "RGBA"
	case *image.RGBA64:
		if m.Opaque() {
			return "RGB16"
		}
		return "RGBA16"
	case *image.NRGBA:
		return "RGBA"
	case *image.NRGBA64:
		return "RGBA16"
	case *image.Gray:
		return "L"
	case *image.Gray16:
		return "L16"
	case *image.Paletted:
		return "P"
	case *image.CMYK:
		return "CMYK"
	case *image.NYCbCrA:
		return "RGBA"
	}
	return "RGB"
}

// DimensionsResult contains the width and height of an image.
type DimensionsResult struct {
	// Width is the image width in pixels.
	Width int `json:"width"`

	// Height is the image height in pixels.
	Height int `json:"height"`
}

// GetDimensions returns the dimensions of an image without additional metadata.
func GetDimensions(cache *ImageCache, path string) (*DimensionsResult, error) {
	buf, err := cache.Load(path)
	if err != nil {
		return nil, err
	}
	return &DimensionsResult{
		Width:  buf.Width,
		Height: buf.Height,
	}, nil
}

// IsImageFile reports whether path has an extension this package can decode.
func IsImageFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png", ".jpg", ".jpeg", ".gif", ".bmp", ".tif", ".tiff", ".webp":
		return true
	}
	return false
}
