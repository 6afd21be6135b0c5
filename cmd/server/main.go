package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cshum/vipsgen/vips"
	"go.uber.org/zap"

	"imgcache/internal/cachestore"
	"imgcache/internal/config"
	"imgcache/internal/events"
	"imgcache/internal/geometry"
	httphandlers "imgcache/internal/http"
	"imgcache/internal/imagecache"
	"imgcache/internal/imageops"
	"imgcache/internal/logger"
	"imgcache/internal/source"
	"imgcache/internal/template"
)

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer log.Sync()

	coordOrder, err := geometry.ParseOrder(cfg.CoordOrder)
	if err != nil {
		log.Fatal("Invalid configuration", zap.Error(err))
	}

	if cfg.ImageProvider == "vips" {
		vipsConfig := &vips.Config{
			ConcurrencyLevel: cfg.VipsConcurrency,
			MaxCacheMem:      cfg.VipsMaxCacheMB * 1024 * 1024,
			MaxCacheFiles:    0,
			MaxCacheSize:     0,
		}
		vips.SetLogging(func(domain string, level vips.LogLevel, message string) {
			if level >= vips.LogLevelError {
				log.Error("vips", zap.String("domain", domain), zap.String("message", message))
			} else if level >= vips.LogLevelWarning {
				log.Warn("vips", zap.String("domain", domain), zap.String("message", message))
			}
		}, vips.LogLevelError)
		vips.Startup(vipsConfig)
		defer vips.Shutdown()

		log.Info("VIPS initialized",
			zap.Int("max_cache_mb", cfg.VipsMaxCacheMB),
			zap.Int("concurrency", cfg.VipsConcurrency),
		)
	}

	log.Info("Starting image cache server",
		zap.Int("port", cfg.Port),
		zap.String("cache_root", cfg.CacheRoot),
		zap.Strings("source_roots", cfg.SourceRoots),
		zap.Int("lifetime_seconds", cfg.LifetimeSeconds),
	)

	provider, err := imageops.NewProvider(cfg.ImageProvider, cfg.SourceCacheEntries, log)
	if err != nil {
		log.Fatal("Failed to initialize image provider", zap.Error(err))
	}

	store, err := cachestore.New(cfg.CacheRoot, log)
	if err != nil {
		log.Fatal("Failed to initialize cache store", zap.Error(err))
	}

	locator := source.NewLocator(cfg.SourceRoots, log)
	registry := buildRegistry(cfg, coordOrder)
	sink := events.NewZapSink(log)

	service := imagecache.New(
		imagecache.Config{
			Lifetime:  cfg.Lifetime(),
			MaxWidth:  cfg.MaxWidth,
			MaxHeight: cfg.MaxHeight,
			MaxSize:   cfg.MaxSize,
		},
		registry, store, locator, provider, sink, log,
	)

	handlers := httphandlers.New(cfg, log, service)

	mux := http.NewServeMux()
	mux.HandleFunc("/img/", handlers.HandleImage)
	mux.HandleFunc("/admin/cache/clear", handlers.HandleClear)
	mux.HandleFunc("/healthz", handlers.HandleHealthz)

	handler := handlers.CORSMiddleware(handlers.RequestLoggingMiddleware(mux))

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: handler,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server failed", zap.Error(err))
		}
	}()

	log.Info("Server started", zap.Int("port", cfg.Port), zap.Strings("templates", registry.Names()))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server stopped")
}

// buildRegistry installs the startup template table: fixed-scale templates
// derived from the configured ceilings plus the parametric crop template.
func buildRegistry(cfg *config.Config, order geometry.Order) *template.Registry {
	registry := template.NewRegistry()
	registry.Register("thumb", template.NewFixedScale(160, 160))
	registry.Register("medium", template.NewFixedScale(cfg.MaxWidth/2, cfg.MaxHeight/2))
	registry.Register("large", template.NewFixedScale(cfg.MaxWidth, cfg.MaxHeight))
	registry.Register("crop", template.NewCrop(order))
	return registry
}
