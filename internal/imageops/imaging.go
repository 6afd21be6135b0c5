package imageops

import (
	"bytes"
	"fmt"
	"image"

	"github.com/disintegration/imaging"

	"imgcache/internal/geometry"
)

// ImagingProvider decodes images with the pure-Go imaging library. Decoded
// sources are kept in a bounded LRU so repeated transforms of the same source
// skip the decode.
type ImagingProvider struct {
	sources *sourceCache
}

// NewImagingProvider creates a provider caching up to maxCachedSources
// decoded source images. A non-positive limit disables the cache.
func NewImagingProvider(maxCachedSources int) *ImagingProvider {
	var cache *sourceCache
	if maxCachedSources > 0 {
		cache = newSourceCache(maxCachedSources)
	}
	return &ImagingProvider{sources: cache}
}

func (p *ImagingProvider) Load(path string) (Image, error) {
	format, err := imaging.FormatFromFilename(path)
	if err != nil {
		return nil, fmt.Errorf("unsupported image format: %w", err)
	}

	if p.sources != nil {
		if img, ok := p.sources.get(path); ok {
			return &imagingImage{img: img, format: format}, nil
		}
	}

	img, err := imaging.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}

	if p.sources != nil {
		p.sources.set(path, img)
	}

	return &imagingImage{img: img, format: format}, nil
}

// imagingImage wraps a decoded image.Image. Operations never mutate the
// wrapped value in place, so images handed out from the source cache stay
// pristine.
type imagingImage struct {
	img    image.Image
	format imaging.Format
}

func (m *imagingImage) Width() int {
	return m.img.Bounds().Dx()
}

func (m *imagingImage) Height() int {
	return m.img.Bounds().Dy()
}

func (m *imagingImage) Crop(r geometry.Rect) error {
	if r.Width < 1 || r.Height < 1 {
		return fmt.Errorf("invalid crop rectangle: %dx%d", r.Width, r.Height)
	}
	m.img = imaging.Crop(m.img, image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height))
	return nil
}

func (m *imagingImage) Scale(width, height int) error {
	if width <= 0 && height <= 0 {
		return fmt.Errorf("invalid scale target: %dx%d", width, height)
	}
	m.img = imaging.Resize(m.img, width, height, imaging.Lanczos)
	return nil
}

func (m *imagingImage) Encode() ([]byte, error) {
	var buf bytes.Buffer
	var opts []imaging.EncodeOption
	if m.format == imaging.JPEG {
		opts = append(opts, imaging.JPEGQuality(jpegQuality))
	}
	if err := imaging.Encode(&buf, m.img, m.format, opts...); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}

func (m *imagingImage) Close() {}
