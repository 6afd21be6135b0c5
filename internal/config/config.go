package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port               int
	CacheRoot          string
	LifetimeSeconds    int
	SourceRoots        []string
	MaxWidth           int
	MaxHeight          int
	MaxSize            int
	CoordOrder         string
	CropParamStyle     string
	ImageProvider      string
	SourceCacheEntries int
	VipsMaxCacheMB     int
	VipsConcurrency    int
	LogLevel           string
	AllowedOrigin      string
}

func Load() *Config {
	// .env is optional; real env vars win
	_ = godotenv.Load()

	cfg := &Config{
		Port:               getEnvInt("PORT", 8080),
		CacheRoot:          getEnv("CACHE_ROOT", "/data/cache"),
		LifetimeSeconds:    getEnvInt("CACHE_LIFETIME_SECONDS", 86400),
		SourceRoots:        getEnvList("SOURCE_ROOTS", "/data/images"),
		MaxWidth:           getEnvInt("MAX_WIDTH", 1920),
		MaxHeight:          getEnvInt("MAX_HEIGHT", 1080),
		MaxSize:            getEnvInt("MAX_SIZE", 1920),
		CoordOrder:         getEnv("COORD_ORDER", "xywh"),
		CropParamStyle:     getEnv("CROP_PARAM_STYLE", "dimensions"),
		ImageProvider:      getEnv("IMAGE_PROVIDER", "imaging"),
		SourceCacheEntries: getEnvInt("SOURCE_CACHE_ENTRIES", 32),
		VipsMaxCacheMB:     getEnvInt("VIPS_MAX_CACHE_MB", 256),
		VipsConcurrency:    getEnvInt("VIPS_CONCURRENCY", 1),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		AllowedOrigin:      getEnv("ALLOWED_ORIGIN", ""),
	}

	return cfg
}

// Lifetime returns the cache artifact lifetime as a duration.
func (c *Config) Lifetime() time.Duration {
	return time.Duration(c.LifetimeSeconds) * time.Second
}

// UsesSizeParam reports whether the route layer should accept the single
// maxsize crop parameter instead of explicit maxwidth/maxheight.
func (c *Config) UsesSizeParam() bool {
	return c.CropParamStyle == "size"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvList(key, defaultValue string) []string {
	raw := getEnv(key, defaultValue)
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
