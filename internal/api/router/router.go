package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/clinic-bi/internal/dashboard"
	httpmiddleware "github.com/wolfman30/clinic-bi/internal/http/middleware"
	"github.com/wolfman30/clinic-bi/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger             *logging.Logger
	DashboardHandler   *dashboard.Handler
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string

	// RateLimiter is optional; nil disables per-client limiting.
	RateLimiter *httpmiddleware.RateLimiter
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	// Probes and scraping stay outside the rate limit.
	r.Group(func(public chi.Router) {
		if cfg.DashboardHandler != nil {
			public.Get("/health", cfg.DashboardHandler.Health)
		} else {
			public.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(`{"status":"ok"}` + "\n"))
			})
		}
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
	})

	if cfg.DashboardHandler != nil {
		r.Group(func(api chi.Router) {
			if cfg.RateLimiter != nil {
				api.Use(httpmiddleware.RateLimit(cfg.RateLimiter))
			}
			api.Mount("/api/v1", cfg.DashboardHandler.Routes())
		})
	}

	return r
}
