package imageops

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/cshum/vipsgen/vips"

	"imgcache/internal/geometry"
)

const jpegQuality = 82

// VipsProvider decodes images through libvips. Preferred for very large
// sources: regions are extracted without decoding the full image.
type VipsProvider struct{}

func NewVipsProvider() *VipsProvider {
	return &VipsProvider{}
}

func (p *VipsProvider) Load(path string) (Image, error) {
	ext := strings.ToLower(filepath.Ext(path))

	// AccessRandom allows efficient region extraction from large files
	access := vips.AccessRandom

	var img *vips.Image
	var err error

	switch ext {
	case ".tif", ".tiff":
		opts := vips.DefaultTiffloadOptions()
		opts.Access = access
		img, err = vips.NewTiffload(path, opts)
	case ".jpg", ".jpeg":
		opts := vips.DefaultJpegloadOptions()
		opts.Access = access
		img, err = vips.NewJpegload(path, opts)
	case ".png":
		opts := vips.DefaultPngloadOptions()
		opts.Access = access
		img, err = vips.NewPngload(path, opts)
	case ".webp":
		opts := vips.DefaultWebploadOptions()
		opts.Access = access
		img, err = vips.NewWebpload(path, opts)
	default:
		return nil, fmt.Errorf("unsupported image format: %s", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}

	return &vipsImage{img: img, ext: ext}, nil
}

type vipsImage struct {
	img *vips.Image
	ext string
}

func (v *vipsImage) Width() int {
	return v.img.Width()
}

func (v *vipsImage) Height() int {
	return v.img.Height()
}

func (v *vipsImage) Crop(r geometry.Rect) error {
	if r.Width < 1 || r.Height < 1 {
		return fmt.Errorf("invalid crop rectangle: %dx%d", r.Width, r.Height)
	}
	if err := v.img.ExtractArea(r.X, r.Y, r.Width, r.Height); err != nil {
		return fmt.Errorf("failed to extract area: %w", err)
	}
	return nil
}

func (v *vipsImage) Scale(width, height int) error {
	var scale float64
	switch {
	case width > 0:
		scale = float64(width) / float64(v.img.Width())
	case height > 0:
		scale = float64(height) / float64(v.img.Height())
	default:
		return fmt.Errorf("invalid scale target: %dx%d", width, height)
	}

	opts := vips.DefaultResizeOptions()
	opts.Kernel = vips.KernelLanczos3
	if err := v.img.Resize(scale, opts); err != nil {
		return fmt.Errorf("failed to resize: %w", err)
	}
	return nil
}

func (v *vipsImage) Encode() ([]byte, error) {
	switch v.ext {
	case ".png":
		return v.img.PngsaveBuffer(vips.DefaultPngsaveBufferOptions())
	case ".webp":
		return v.img.WebpsaveBuffer(vips.DefaultWebpsaveBufferOptions())
	case ".tif", ".tiff":
		return v.img.TiffsaveBuffer(vips.DefaultTiffsaveBufferOptions())
	default:
		opts := vips.DefaultJpegsaveBufferOptions()
		opts.Q = jpegQuality
		opts.Interlace = false
		return v.img.JpegsaveBuffer(opts)
	}
}

func (v *vipsImage) Close() {
	v.img.Close()
}
