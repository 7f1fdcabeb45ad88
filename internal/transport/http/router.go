package http

import (
	"compress/flate"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	apierrors "hilirisasi/internal/errors"
	"hilirisasi/internal/middleware"
)

// RouterConfig collects what the router mounts. Nil optional fields are
// skipped.
type RouterConfig struct {
	Datasets     *DatasetHandler
	Health       *HealthHandler
	ErrorHandler *apierrors.ErrorHandler
	Logger       *slog.Logger

	// Optional
	WebSocket      http.Handler
	Metrics        http.Handler
	OTel           *middleware.OTelMiddleware
	RateLimiter    *middleware.RateLimiter
	AllowedOrigins []string
	RequestTimeout time.Duration
}

// NewRouter builds the chi router serving the API, health checks, metrics
// and the websocket endpoint.
func NewRouter(cfg RouterConfig) chi.Router {
	r := chi.NewRouter()

	if cfg.OTel != nil {
		r.Use(cfg.OTel.Handler)
	}
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.StructuredLogger(cfg.Logger))
	r.Use(middleware.Recoverer(cfg.ErrorHandler))
	r.Use(middleware.DefaultSecureHeaders().Handler)
	r.Use(middleware.CORS(middleware.CORSConfig{AllowedOrigins: cfg.AllowedOrigins}))

	r.NotFound(cfg.ErrorHandler.NotFound)
	r.MethodNotAllowed(cfg.ErrorHandler.MethodNotAllowed)

	r.Mount("/healthz", cfg.Health.Routes())
	if cfg.Metrics != nil {
		r.Handle("/metrics", cfg.Metrics)
	}
	if cfg.WebSocket != nil {
		r.Handle("/ws", cfg.WebSocket)
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Timeout(cfg.RequestTimeout))
		if cfg.RateLimiter != nil {
			r.Use(cfg.RateLimiter.Handler)
		}
		r.Use(middleware.Compress(flate.DefaultCompression))

		r.Get("/version", cfg.Health.Version)
		r.Mount("/datasets", cfg.Datasets.Routes())
	})

	return r
}
