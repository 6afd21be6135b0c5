package cachestore

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(filepath.Join(t.TempDir(), "cache"), zap.NewNop())
	require.NoError(t, err)
	return store
}

func TestPersistAndRead(t *testing.T) {
	store := newTestStore(t)
	path := filepath.Join(store.Root(), "thumb", "photo.jpg")

	require.NoError(t, store.Persist(path, []byte("artifact")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("artifact"), data)
}

func TestPersistLeavesNoTempFiles(t *testing.T) {
	store := newTestStore(t)
	path := filepath.Join(store.Root(), "thumb", "photo.jpg")

	require.NoError(t, store.Persist(path, []byte("artifact")))
	require.NoError(t, store.Persist(path, []byte("replaced")))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "photo.jpg", entries[0].Name())
}

func TestIsFresh(t *testing.T) {
	store := newTestStore(t)
	path := filepath.Join(store.Root(), "thumb", "photo.jpg")

	assert.False(t, store.IsFresh(path, time.Hour), "missing file is never fresh")

	require.NoError(t, store.Persist(path, []byte("artifact")))
	assert.True(t, store.IsFresh(path, time.Hour))

	// backdate past the lifetime
	old := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(path, old, old))
	assert.False(t, store.IsFresh(path, time.Hour))

	// just inside the lifetime
	recent := time.Now().Add(-59 * time.Minute)
	require.NoError(t, os.Chtimes(path, recent, recent))
	assert.True(t, store.IsFresh(path, time.Hour))
}

func TestInvalidateAll(t *testing.T) {
	store := newTestStore(t)
	a := filepath.Join(store.Root(), "thumb", "a.jpg")
	b := filepath.Join(store.Root(), "large", "ab", "cdef0123456789", "b.jpg")

	require.NoError(t, store.Persist(a, []byte("a")))
	require.NoError(t, store.Persist(b, []byte("b")))

	require.NoError(t, store.InvalidateAll())

	assert.NoFileExists(t, a)
	assert.NoFileExists(t, b)

	// template directories are recreated empty
	assert.DirExists(t, filepath.Join(store.Root(), "thumb"))
	assert.DirExists(t, filepath.Join(store.Root(), "large"))
}

func TestInvalidateTemplate(t *testing.T) {
	store := newTestStore(t)
	large := filepath.Join(store.Root(), "large", "a.jpg")
	thumb := filepath.Join(store.Root(), "thumb", "a.jpg")

	require.NoError(t, store.Persist(large, []byte("l")))
	require.NoError(t, store.Persist(thumb, []byte("t")))

	require.NoError(t, store.InvalidateTemplate("large"))

	assert.NoFileExists(t, large)
	assert.DirExists(t, filepath.Join(store.Root(), "large"))
	assert.FileExists(t, thumb, "other templates must be untouched")
}

func TestInvalidateFilename(t *testing.T) {
	store := newTestStore(t)
	hit1 := filepath.Join(store.Root(), "thumb", "photo.jpg")
	hit2 := filepath.Join(store.Root(), "crop", "ab", "cdef0123456789", "photo.jpg")
	miss := filepath.Join(store.Root(), "thumb", "other.jpg")

	require.NoError(t, store.Persist(hit1, []byte("1")))
	require.NoError(t, store.Persist(hit2, []byte("2")))
	require.NoError(t, store.Persist(miss, []byte("3")))

	require.NoError(t, store.InvalidateFilename("photo.jpg"))

	assert.NoFileExists(t, hit1)
	assert.NoFileExists(t, hit2)
	assert.FileExists(t, miss)
}
