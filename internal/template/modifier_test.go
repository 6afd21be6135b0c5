package template

import (
	"image/color"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"imgcache/internal/events"
	"imgcache/internal/geometry"
	"imgcache/internal/imageops"
)

func loadTestImage(t *testing.T, w, h int) imageops.Image {
	t.Helper()
	path := filepath.Join(t.TempDir(), "src.png")
	require.NoError(t, imaging.Save(imaging.New(w, h, color.NRGBA{R: 90, G: 120, B: 40, A: 255}), path))

	img, err := imageops.NewImagingProvider(0).Load(path)
	require.NoError(t, err)
	t.Cleanup(img.Close)
	return img
}

func TestRegistry(t *testing.T) {
	registry := NewRegistry()
	registry.Register("thumb", NewFixedScale(100, 100))

	assert.True(t, registry.Has("thumb"))
	assert.False(t, registry.Has("huge"))

	f, err := registry.Resolve("thumb")
	require.NoError(t, err)
	assert.NotNil(t, f)

	_, err = registry.Resolve("huge")
	assert.ErrorIs(t, err, ErrTemplateNotFound)

	assert.Panics(t, func() { registry.Register("thumb", NewFixedScale(1, 1)) })
}

func TestFixedScaleLandscape(t *testing.T) {
	img := loadTestImage(t, 800, 400)

	mod := NewFixedScale(200, 200)(Params{}, events.NewCapture())
	require.NoError(t, mod.Apply(img))

	assert.Equal(t, 200, img.Width())
	assert.Equal(t, 100, img.Height())
}

func TestFixedScalePortrait(t *testing.T) {
	img := loadTestImage(t, 400, 800)

	mod := NewFixedScale(200, 200)(Params{}, events.NewCapture())
	require.NoError(t, mod.Apply(img))

	assert.Equal(t, 100, img.Width())
	assert.Equal(t, 200, img.Height())
}

func TestFixedScaleNeverUpscales(t *testing.T) {
	img := loadTestImage(t, 50, 40)

	mod := NewFixedScale(200, 200)(Params{}, events.NewCapture())
	require.NoError(t, mod.Apply(img))

	assert.Equal(t, 50, img.Width())
	assert.Equal(t, 40, img.Height())
}

func TestCropCoordsThenScale(t *testing.T) {
	img := loadTestImage(t, 500, 500)

	p := Params{Coords: "100,150,200,300", MaxWidth: 100}
	mod := NewCrop(geometry.OrderXYWH)(p, events.NewCapture())
	require.NoError(t, mod.Apply(img))

	// crop 200x300 at (100,150), then scale-down to width 100
	assert.Equal(t, 100, img.Width())
	assert.Equal(t, 150, img.Height())
}

func TestCropSentinelSkipsCrop(t *testing.T) {
	img := loadTestImage(t, 300, 200)

	sink := events.NewCapture()
	mod := NewCrop(geometry.OrderXYWH)(Params{Coords: "0,0,0,0"}, sink)
	require.NoError(t, mod.Apply(img))

	assert.Equal(t, 300, img.Width())
	assert.Equal(t, 200, img.Height())
	assert.Empty(t, sink.Events(), "sentinel is not an error")
}

func TestCropRatio(t *testing.T) {
	img := loadTestImage(t, 500, 500)

	mod := NewCrop(geometry.OrderXYWH)(Params{Ratio: "16:9"}, events.NewCapture())
	require.NoError(t, mod.Apply(img))

	assert.Equal(t, 500, img.Width())
	assert.Equal(t, 281, img.Height())
}

func TestCropCoordsWinOverRatio(t *testing.T) {
	img := loadTestImage(t, 500, 500)

	p := Params{Coords: "0,0,100,100", Ratio: "16:9"}
	mod := NewCrop(geometry.OrderXYWH)(p, events.NewCapture())
	require.NoError(t, mod.Apply(img))

	assert.Equal(t, 100, img.Width())
	assert.Equal(t, 100, img.Height())
}

func TestCropMalformedCoordsDegrades(t *testing.T) {
	img := loadTestImage(t, 400, 200)

	sink := events.NewCapture()
	p := Params{Coords: "not,numbers,at,all", MaxWidth: 100}
	mod := NewCrop(geometry.OrderXYWH)(p, sink)
	require.NoError(t, mod.Apply(img), "geometry degrade must not abort the request")

	// crop skipped, scale still applied
	assert.Equal(t, 100, img.Width())
	assert.Equal(t, 50, img.Height())
	assert.Contains(t, sink.Names(), "invalid crop coordinates, skipping crop")
}

func TestCropMalformedRatioDegrades(t *testing.T) {
	img := loadTestImage(t, 400, 200)

	sink := events.NewCapture()
	mod := NewCrop(geometry.OrderXYWH)(Params{Ratio: "wide"}, sink)
	require.NoError(t, mod.Apply(img))

	assert.Equal(t, 400, img.Width())
	assert.Equal(t, 200, img.Height())
	assert.Contains(t, sink.Names(), "invalid crop ratio, skipping crop")
}

func TestCropClampsOversizedRect(t *testing.T) {
	img := loadTestImage(t, 200, 200)

	p := Params{Coords: "150,150,200,200"}
	mod := NewCrop(geometry.OrderXYWH)(p, events.NewCapture())
	require.NoError(t, mod.Apply(img))

	assert.Equal(t, 50, img.Width())
	assert.Equal(t, 50, img.Height())
}

func TestCropLegacyCoordOrder(t *testing.T) {
	img := loadTestImage(t, 500, 500)

	// width,height,x,y
	p := Params{Coords: "200,300,100,150"}
	mod := NewCrop(geometry.OrderWHXY)(p, events.NewCapture())
	require.NoError(t, mod.Apply(img))

	assert.Equal(t, 200, img.Width())
	assert.Equal(t, 300, img.Height())
}

func TestCropMaxSizeWins(t *testing.T) {
	img := loadTestImage(t, 800, 400)

	p := Params{MaxSize: 200, MaxWidth: 700, MaxHeight: 700}
	mod := NewCrop(geometry.OrderXYWH)(p, events.NewCapture())
	require.NoError(t, mod.Apply(img))

	assert.Equal(t, 200, img.Width())
	assert.Equal(t, 100, img.Height())
}
