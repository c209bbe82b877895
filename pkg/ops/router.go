package ops

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/skydeck/flightcache/pkg/cache"
	"github.com/skydeck/flightcache/pkg/logger"
)

// Option configures the operator router.
type Option func(*config)

type config struct {
	log    *slog.Logger
	checks Checks
}

// WithLogger sets the logger for request-scoped warnings.
// Default: discard.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.log = l
		}
	}
}

// WithReadinessCheck registers a named dependency check for
// GET /health/ready. Call it once per dependency.
func WithReadinessCheck(name string, check CheckFunc) Option {
	return func(c *config) {
		if check != nil {
			c.checks[name] = check
		}
	}
}

// NewRouter builds the operator surface over a cache manager.
func NewRouter(m *cache.Manager, opts ...Option) http.Handler {
	cfg := &config{
		log:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		checks: make(Checks),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(m.PrometheusCollector())
	promText := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	h := &handlers{m: m, log: cfg.log, promText: promText}

	r := chi.NewRouter()
	r.Use(correlationMiddleware)

	r.Route("/cache", func(r chi.Router) {
		r.Get("/stats", h.stats)
		r.Get("/metrics", h.metrics)
		r.Post("/reset", h.reset)
		r.Post("/prune", h.prune)
		r.Post("/clear", h.clear)
	})
	r.Route("/health", func(r chi.Router) {
		r.Get("/live", h.live)
		r.Get("/ready", h.ready(cfg.checks))
	})

	return r
}

// correlationMiddleware stamps each request context with a correlation ID
// so log lines from one request can be grouped.
func correlationMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := logger.ContextWithCorrelationID(r.Context())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
