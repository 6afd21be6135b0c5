package http

import (
	"bytes"
	"image"
	"image/color"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"imgcache/internal/cachestore"
	"imgcache/internal/config"
	"imgcache/internal/events"
	"imgcache/internal/geometry"
	"imgcache/internal/imagecache"
	"imgcache/internal/imageops"
	"imgcache/internal/source"
	"imgcache/internal/template"
)

func newTestHandlers(t *testing.T) (*Handlers, string) {
	t.Helper()

	srcRoot := t.TempDir()
	store, err := cachestore.New(filepath.Join(t.TempDir(), "cache"), zap.NewNop())
	require.NoError(t, err)

	registry := template.NewRegistry()
	registry.Register("thumb", template.NewFixedScale(100, 100))
	registry.Register("crop", template.NewCrop(geometry.OrderXYWH))

	cfg := &config.Config{
		LifetimeSeconds: 3600,
		MaxWidth:        1920,
		MaxHeight:       1080,
		MaxSize:         1920,
		CropParamStyle:  "dimensions",
	}

	svc := imagecache.New(
		imagecache.Config{Lifetime: time.Hour, MaxWidth: 1920, MaxHeight: 1080, MaxSize: 1920},
		registry,
		store,
		source.NewLocator([]string{srcRoot}, zap.NewNop()),
		imageops.NewImagingProvider(0),
		events.NewCapture(),
		zap.NewNop(),
	)

	return New(cfg, zap.NewNop(), svc), srcRoot
}

func writeSource(t *testing.T, root, name string, w, h int) {
	t.Helper()
	img := imaging.New(w, h, color.NRGBA{R: 10, G: 200, B: 90, A: 255})
	require.NoError(t, imaging.Save(img, filepath.Join(root, name)))
}

func TestHandleHealthz(t *testing.T) {
	h, _ := newTestHandlers(t)

	rec := httptest.NewRecorder()
	h.HandleHealthz(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestHandleImageServesArtifact(t *testing.T) {
	h, srcRoot := newTestHandlers(t)
	writeSource(t, srcRoot, "photo.png", 400, 400)

	rec := httptest.NewRecorder()
	h.HandleImage(rec, httptest.NewRequest(http.MethodGet, "/img/thumb/photo.png", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.NotEmpty(t, rec.Header().Get("ETag"))
	assert.Contains(t, rec.Header().Get("Cache-Control"), "max-age=3600")

	img, _, err := image.Decode(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 100, img.Bounds().Dx())
	assert.Equal(t, 100, img.Bounds().Dy())
}

func TestHandleImageWithCropParams(t *testing.T) {
	h, srcRoot := newTestHandlers(t)
	writeSource(t, srcRoot, "photo.png", 500, 500)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/img/crop/photo.png?coords=100,150,200,300&maxwidth=100", nil)
	h.HandleImage(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	img, _, err := image.Decode(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 100, img.Bounds().Dx())
	assert.Equal(t, 150, img.Bounds().Dy())
}

func TestHandleImageErrors(t *testing.T) {
	h, srcRoot := newTestHandlers(t)
	writeSource(t, srcRoot, "photo.png", 100, 100)

	tests := []struct {
		name   string
		target string
		want   int
	}{
		{"unknown template", "/img/huge/photo.png", http.StatusBadRequest},
		{"missing source", "/img/thumb/missing.png", http.StatusNotFound},
		{"bad extension", "/img/thumb/photo.txt", http.StatusBadRequest},
		{"incomplete path", "/img/thumb", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.HandleImage(rec, httptest.NewRequest(http.MethodGet, tt.target, nil))
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestHandleImageMethodNotAllowed(t *testing.T) {
	h, _ := newTestHandlers(t)

	rec := httptest.NewRecorder()
	h.HandleImage(rec, httptest.NewRequest(http.MethodPost, "/img/thumb/photo.png", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHandleClear(t *testing.T) {
	h, srcRoot := newTestHandlers(t)
	writeSource(t, srcRoot, "photo.png", 400, 400)

	rec := httptest.NewRecorder()
	h.HandleImage(rec, httptest.NewRequest(http.MethodGet, "/img/thumb/photo.png", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.HandleClear(rec, httptest.NewRequest(http.MethodPost, "/admin/cache/clear?template=thumb", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"cleared":"template"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	h.HandleClear(rec, httptest.NewRequest(http.MethodPost, "/admin/cache/clear", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"cleared":"all"}`, rec.Body.String())
}

func TestHandleClearRejectsConflictingScopes(t *testing.T) {
	h, _ := newTestHandlers(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/admin/cache/clear?template=a&filename=b.png", nil)
	h.HandleClear(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleClearMethodNotAllowed(t *testing.T) {
	h, _ := newTestHandlers(t)

	rec := httptest.NewRecorder()
	h.HandleClear(rec, httptest.NewRequest(http.MethodGet, "/admin/cache/clear", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
