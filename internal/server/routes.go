package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Config contains server configuration options.
type Config struct {
	// AllowedOrigins is the list of allowed CORS origins.
	AllowedOrigins []string
	// RateLimitPerMinute caps requests per client IP on the pipeline and
	// upload URL endpoints. Zero disables the limit.
	RateLimitPerMinute int
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		AllowedOrigins:     []string{"*"},
		RateLimitPerMinute: 60,
	}
}

// NewRouter creates a new HTTP router with all routes configured.
// It uses Go 1.22+ ServeMux with method-based routing.
func NewRouter(h *Handlers, logger *slog.Logger, cfg Config) http.Handler {
	mux := http.NewServeMux()
	limit := RateLimit(cfg.RateLimitPerMinute, time.Minute)

	// Register routes with method-based patterns (Go 1.22+)
	mux.HandleFunc("GET /health", h.Health)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /jobs", h.ListJobs)
	mux.Handle("POST /process-video", limit(http.HandlerFunc(h.ProcessVideo)))
	mux.Handle("POST /upload-url", limit(http.HandlerFunc(h.IssueUploadURL)))

	// Apply middleware chain
	chain := ChainMiddleware(
		RecoveryMiddleware(logger),
		LoggingMiddleware(logger),
		CORSMiddleware(cfg.AllowedOrigins),
		MetricsMiddleware(),
	)

	return chain(mux)
}
