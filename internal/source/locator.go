// Package source locates original images across an ordered list of root
// directories. Source images are read-only to the rest of the system.
package source

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

type Locator struct {
	roots  []string
	logger *zap.Logger
}

func NewLocator(roots []string, logger *zap.Logger) *Locator {
	return &Locator{roots: roots, logger: logger}
}

// Find returns the first existing root/filename match, in configured root
// order. The second return value is false when no root holds the file.
func (l *Locator) Find(filename string) (string, bool) {
	for _, root := range l.roots {
		path := filepath.Join(root, filename)
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		if info.IsDir() {
			l.logger.Warn("Source path is a directory, skipping",
				zap.String("root", root),
				zap.String("filename", filename),
			)
			continue
		}
		return path, true
	}
	return "", false
}

// Roots returns the configured search roots in order.
func (l *Locator) Roots() []string {
	return l.roots
}
