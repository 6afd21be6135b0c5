// Package imagecache orchestrates the get-or-build flow: validate inputs,
// address the cache, check freshness, and on miss locate the source, apply
// the template and persist the result atomically.
package imagecache

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"imgcache/internal/cachekey"
	"imgcache/internal/cachestore"
	"imgcache/internal/events"
	"imgcache/internal/imageops"
	"imgcache/internal/source"
	"imgcache/internal/template"
)

var (
	filenameRe     = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]*$`)
	templateNameRe = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

	allowedExtensions = map[string]bool{
		".jpg":  true,
		".jpeg": true,
		".png":  true,
		".gif":  true,
		".tif":  true,
		".tiff": true,
	}
)

// Config carries the orchestrator settings: artifact lifetime and the
// ceilings requested dimension parameters may not exceed.
type Config struct {
	Lifetime  time.Duration
	MaxWidth  int
	MaxHeight int
	MaxSize   int
}

// Service is the image cache orchestrator. Concurrent requests for the same
// cache key share one regeneration through a per-key lease; the final atomic
// rename in the store guarantees readers never observe a partial artifact.
type Service struct {
	cfg      Config
	registry *template.Registry
	store    *cachestore.Store
	locator  *source.Locator
	provider imageops.Provider
	sink     events.Sink
	logger   *zap.Logger
	group    singleflight.Group
}

func New(
	cfg Config,
	registry *template.Registry,
	store *cachestore.Store,
	locator *source.Locator,
	provider imageops.Provider,
	sink events.Sink,
	logger *zap.Logger,
) *Service {
	return &Service{
		cfg:      cfg,
		registry: registry,
		store:    store,
		locator:  locator,
		provider: provider,
		sink:     sink,
		logger:   logger,
	}
}

// GetCachedImage returns the path of the cached artifact for (template,
// filename, params), regenerating it first when missing or stale. Parameter
// keys: coords, ratio, maxsize, maxwidth, maxheight.
func (s *Service) GetCachedImage(templateName, filename string, params map[string]string) (string, error) {
	if err := validateFilename(filename); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if err := validateTemplateName(templateName); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	factory, err := s.registry.Resolve(templateName)
	if err != nil {
		return "", fmt.Errorf("%w: unknown template %q", ErrInvalidInput, templateName)
	}
	p, err := s.parseParams(params)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	path := cachekey.ComputePath(s.store.Root(), templateName, filename, params)
	if s.store.IsFresh(path, s.cfg.Lifetime) {
		return path, nil
	}

	key := cachekey.ComputeKey(templateName, filename, params)
	v, err, _ := s.group.Do(key, func() (interface{}, error) {
		return s.regenerate(factory, p, templateName, filename, params, path)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (s *Service) regenerate(
	factory template.Factory,
	p template.Params,
	templateName, filename string,
	params map[string]string,
	path string,
) (string, error) {
	// Another caller holding the lease may have finished just before us.
	if s.store.IsFresh(path, s.cfg.Lifetime) {
		return path, nil
	}

	sink := s.sink.With(
		zap.String("template", templateName),
		zap.String("filename", filename),
		zap.Any("params", params),
	)

	srcPath, ok := s.locator.Find(filename)
	if !ok {
		sink.Warn("source image not found in any root")
		return "", fmt.Errorf("%w: %s", ErrNotFound, filename)
	}

	img, err := s.provider.Load(srcPath)
	if err != nil {
		sink.Error("image decode failed", zap.Error(err))
		return "", fmt.Errorf("%w: %v", ErrProcessing, err)
	}
	defer img.Close()

	modifier := factory(p, sink)
	if err := modifier.Apply(img); err != nil {
		sink.Error("template apply failed", zap.Error(err))
		return "", fmt.Errorf("%w: %v", ErrProcessing, err)
	}

	data, err := img.Encode()
	if err != nil {
		sink.Error("image encode failed", zap.Error(err))
		return "", fmt.Errorf("%w: %v", ErrProcessing, err)
	}

	if err := s.store.Persist(path, data); err != nil {
		sink.Error("cache persist failed", zap.Error(err))
		return "", fmt.Errorf("%w: %v", ErrStorage, err)
	}

	s.logger.Debug("Cache artifact regenerated",
		zap.String("template", templateName),
		zap.String("filename", filename),
		zap.String("path", path),
		zap.Int("bytes", len(data)),
	)
	return path, nil
}

// ClearAll removes every cached artifact.
func (s *Service) ClearAll() error {
	if err := s.store.InvalidateAll(); err != nil {
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return nil
}

// ClearTemplate removes every cached artifact of one template.
func (s *Service) ClearTemplate(name string) error {
	if err := validateTemplateName(name); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if err := s.store.InvalidateTemplate(name); err != nil {
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return nil
}

// ClearFilename removes every cached artifact generated from one source
// filename, across all templates and parameter variants.
func (s *Service) ClearFilename(name string) error {
	if err := validateFilename(name); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if err := s.store.InvalidateFilename(name); err != nil {
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return nil
}

func (s *Service) parseParams(params map[string]string) (template.Params, error) {
	var p template.Params
	for key, value := range params {
		switch key {
		case "coords":
			p.Coords = value
		case "ratio":
			p.Ratio = value
		case "maxsize":
			n, err := parseDimension(key, value, s.cfg.MaxSize)
			if err != nil {
				return template.Params{}, err
			}
			p.MaxSize = n
		case "maxwidth":
			n, err := parseDimension(key, value, s.cfg.MaxWidth)
			if err != nil {
				return template.Params{}, err
			}
			p.MaxWidth = n
		case "maxheight":
			n, err := parseDimension(key, value, s.cfg.MaxHeight)
			if err != nil {
				return template.Params{}, err
			}
			p.MaxHeight = n
		default:
			return template.Params{}, fmt.Errorf("unknown parameter %q", key)
		}
	}
	return p, nil
}

func parseDimension(key, value string, ceiling int) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("parameter %q must be a positive integer: %q", key, value)
	}
	if ceiling > 0 && n > ceiling {
		return 0, fmt.Errorf("parameter %q exceeds configured ceiling %d: %d", key, ceiling, n)
	}
	return n, nil
}

func validateFilename(name string) error {
	if name == "" {
		return fmt.Errorf("filename is empty")
	}
	if strings.Contains(name, "..") {
		return fmt.Errorf("filename contains a traversal token")
	}
	if !filenameRe.MatchString(name) {
		return fmt.Errorf("filename contains invalid characters: %q", name)
	}
	dot := strings.LastIndex(name, ".")
	if dot < 0 || !allowedExtensions[strings.ToLower(name[dot:])] {
		return fmt.Errorf("filename has a disallowed extension: %q", name)
	}
	return nil
}

func validateTemplateName(name string) error {
	if name == "" {
		return fmt.Errorf("template name is empty")
	}
	if !templateNameRe.MatchString(name) {
		return fmt.Errorf("template name contains invalid characters: %q", name)
	}
	return nil
}
