// Package cachestore owns the cache-root filesystem subtree: freshness
// checks, atomic artifact persistence and scoped invalidation.
package cachestore

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Store manages cache artifacts under a single root directory. Regeneration
// writes hold the lock shared; invalidation holds it exclusive so a
// delete-and-recreate cycle never interleaves with an in-flight persist.
type Store struct {
	mu     sync.RWMutex
	root   string
	logger *zap.Logger
}

func New(root string, logger *zap.Logger) (*Store, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	return &Store{root: root, logger: logger}, nil
}

// Root returns the cache root directory.
func (s *Store) Root() string {
	return s.root
}

// IsFresh reports whether path exists and was modified less than lifetime
// ago.
func (s *Store) IsFresh(path string, lifetime time.Duration) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return time.Since(info.ModTime()) < lifetime
}

// Persist atomically writes data to path. The bytes land in a temporary file
// in the destination directory first and are renamed into place, so a
// concurrent reader observes either the previous complete artifact or the
// new one, never a partial write.
func (s *Store) Persist(path string, data []byte) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create cache subdirectory: %w", err)
	}

	tmpPath := filepath.Join(dir, "."+uuid.New().String()+".tmp")
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write cache artifact: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to commit cache artifact: %w", err)
	}

	return nil
}

// InvalidateAll deletes every per-template subdirectory and recreates each
// one empty.
func (s *Store) InvalidateAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.root)
	if err != nil {
		return fmt.Errorf("failed to read cache root: %w", err)
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if err := s.clearDir(filepath.Join(s.root, entry.Name())); err != nil {
			return err
		}
	}

	s.logger.Info("Cache cleared", zap.String("scope", "all"))
	return nil
}

// InvalidateTemplate deletes all artifacts of one template and recreates its
// directory empty.
func (s *Store) InvalidateTemplate(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.clearDir(filepath.Join(s.root, name)); err != nil {
		return err
	}

	s.logger.Info("Cache cleared", zap.String("scope", "template"), zap.String("template", name))
	return nil
}

// InvalidateFilename deletes every artifact generated from the given source
// filename, across all templates and parameter variants. Artifacts carry the
// source filename as their final path segment, so this is a full linear scan
// of the cache tree.
func (s *Store) InvalidateFilename(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Base(path) != name {
			return nil
		}
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("failed to remove cache artifact: %w", err)
		}
		removed++
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to scan cache tree: %w", err)
	}

	s.logger.Info("Cache cleared",
		zap.String("scope", "filename"),
		zap.String("filename", name),
		zap.Int("removed", removed),
	)
	return nil
}

func (s *Store) clearDir(dir string) error {
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to remove cache directory: %w", err)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to recreate cache directory: %w", err)
	}
	return nil
}
