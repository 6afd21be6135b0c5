// Package imageops abstracts the image codec and pixel operations behind a
// small provider interface so the cache core never touches a codec directly.
//
// Two providers are available: a pure-Go one built on disintegration/imaging
// (the default) and a libvips-backed one for deployments that process very
// large sources.
package imageops

import (
	"fmt"

	"go.uber.org/zap"

	"imgcache/internal/geometry"
)

// Image is a decoded image undergoing transformation. Operations mutate the
// receiver; Close releases any codec-held resources.
type Image interface {
	Width() int
	Height() int
	// Crop replaces the image with the given sub-rectangle. The rectangle
	// must already be clamped to the image bounds.
	Crop(r geometry.Rect) error
	// Scale resizes the image. Exactly one of width/height may be zero, in
	// which case that axis scales proportionally.
	Scale(width, height int) error
	// Encode serializes the image in its source format.
	Encode() ([]byte, error)
	Close()
}

// Provider decodes source images from disk.
type Provider interface {
	Load(path string) (Image, error)
}

// NewProvider creates an image provider by name.
func NewProvider(kind string, maxCachedSources int, log *zap.Logger) (Provider, error) {
	switch kind {
	case "imaging":
		log.Info("Using pure-Go image provider", zap.Int("max_cached_sources", maxCachedSources))
		return NewImagingProvider(maxCachedSources), nil
	case "vips":
		log.Info("Using vips image provider")
		return NewVipsProvider(), nil
	default:
		return nil, fmt.Errorf("unknown image provider: %s (supported: imaging, vips)", kind)
	}
}
