package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/myansiry/chatrelay/internal/api/middleware"
	"github.com/myansiry/chatrelay/internal/handlers"
)

// RouterOptions configures the server-side middleware stack.
type RouterOptions struct {
	MaxBodyBytes     int64
	RateLimitEnabled bool
	RateLimit        middleware.RateLimiterConfig
}

// NewRouter creates the always-on server's HTTP router. rdb backs the rate
// limiter and may be nil when rate limiting is disabled.
func NewRouter(logger zerolog.Logger, h *handlers.Handler, rdb redis.Cmdable, opts RouterOptions) *chi.Mux {
	r := chi.NewRouter()

	// Metrics middleware (first to capture all requests)
	r.Use(middleware.Metrics)

	// Cross-origin headers on every response; OPTIONS stops here.
	r.Use(middleware.Permissive)
	r.Use(middleware.CORS())

	// Security middleware
	r.Use(middleware.SecurityHeaders)
	if opts.MaxBodyBytes > 0 {
		r.Use(middleware.MaxBodySize(opts.MaxBodyBytes))
	}
	r.Use(middleware.ValidateRequest)

	// Standard middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(logger))
	r.Use(chimw.Recoverer)

	if opts.RateLimitEnabled && rdb != nil {
		limiter := middleware.NewRateLimiter(rdb, logger, opts.RateLimit)
		r.Use(limiter.Middleware)
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		h.Error(w, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowed(h.MethodNotAllowed)

	r.Handle("/metrics", promhttp.Handler())

	r.Get("/", h.Root)
	r.Get("/health", h.Health)
	r.Post("/join", h.Join)
	r.Post("/message", h.PostMessage)
	r.Get("/messages", h.ListMessages)
	r.Get("/users", h.ListUsers)

	return r
}
