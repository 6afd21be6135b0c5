package http

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"imgcache/internal/config"
	"imgcache/internal/imagecache"
)

type Handlers struct {
	config  *config.Config
	logger  *zap.Logger
	service *imagecache.Service
}

func New(config *config.Config, logger *zap.Logger, service *imagecache.Service) *Handlers {
	return &Handlers{
		config:  config,
		logger:  logger,
		service: service,
	}
}

func (h *Handlers) RequestLoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.New().String()
		start := time.Now()

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		duration := time.Since(start)

		h.logger.Info("request",
			zap.String("request_id", requestID),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", wrapped.statusCode),
			zap.Int64("bytes", wrapped.bytesWritten),
			zap.Int64("duration_ms", duration.Milliseconds()),
			zap.String("user_agent", r.UserAgent()),
		)
	})
}

func (h *Handlers) CORSMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.config.AllowedOrigin != "" {
			w.Header().Set("Access-Control-Allow-Origin", h.config.AllowedOrigin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// HandleImage serves GET /img/{template}/{filename}. Geometry parameters
// come from the query string: coords, ratio, and either maxsize or
// maxwidth/maxheight depending on the configured crop parameter style.
func (h *Handlers) HandleImage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/img/")
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		http.Error(w, "Invalid path", http.StatusBadRequest)
		return
	}
	templateName := parts[0]
	filename := parts[1]

	params := h.extractParams(r)

	artifactPath, err := h.service.GetCachedImage(templateName, filename, params)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	data, err := os.ReadFile(artifactPath)
	if err != nil {
		h.logger.Error("Failed to read cache artifact", zap.String("path", artifactPath), zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("ETag", `"`+artifactETag(artifactPath)+`"`)
	w.Header().Set("Cache-Control", fmt.Sprintf("public, max-age=%d", h.config.LifetimeSeconds))
	w.Header().Set("Content-Length", fmt.Sprintf("%d", len(data)))
	w.Header().Set("Content-Type", contentTypeFor(filename))

	if r.Method == http.MethodHead {
		w.WriteHeader(http.StatusOK)
		return
	}

	w.Write(data)
}

// HandleClear serves POST /admin/cache/clear. Scope is selected by query
// parameter: template=<name>, filename=<name>, or neither for a full clear.
func (h *Handlers) HandleClear(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	templateName := r.URL.Query().Get("template")
	filename := r.URL.Query().Get("filename")

	var err error
	var scope string
	switch {
	case templateName != "" && filename != "":
		http.Error(w, "template and filename are mutually exclusive", http.StatusBadRequest)
		return
	case templateName != "":
		scope = "template"
		err = h.service.ClearTemplate(templateName)
	case filename != "":
		scope = "filename"
		err = h.service.ClearFilename(filename)
	default:
		scope = "all"
		err = h.service.ClearAll()
	}
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"cleared": scope})
}

func (h *Handlers) HandleHealthz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (h *Handlers) extractParams(r *http.Request) map[string]string {
	params := make(map[string]string)
	q := r.URL.Query()

	for _, key := range []string{"coords", "ratio"} {
		if v := q.Get(key); v != "" {
			params[key] = v
		}
	}

	if h.config.UsesSizeParam() {
		if v := q.Get("maxsize"); v != "" {
			params["maxsize"] = v
		}
	} else {
		for _, key := range []string{"maxwidth", "maxheight"} {
			if v := q.Get(key); v != "" {
				params[key] = v
			}
		}
	}

	return params
}

// writeServiceError maps the service error taxonomy onto HTTP statuses
// without leaking internal detail to the client.
func (h *Handlers) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, imagecache.ErrInvalidInput):
		http.Error(w, "Invalid request", http.StatusBadRequest)
	case errors.Is(err, imagecache.ErrNotFound):
		http.Error(w, "Not found", http.StatusNotFound)
	default:
		h.logger.Error("Request failed", zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func artifactETag(path string) string {
	sum := sha256.Sum256([]byte(path))
	return hex.EncodeToString(sum[:])[:16]
}

func contentTypeFor(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".tif", ".tiff":
		return "image/tiff"
	default:
		return "image/jpeg"
	}
}

type responseWriter struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int64
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.bytesWritten += int64(n)
	return n, err
}
