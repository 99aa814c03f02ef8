// Package function adapts the shared handlers to per-route serverless entry
// points. Each entry point serves one method; the Redis connection is opened
// on first use and reused for the life of the instance.
package function

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/myansiry/chatrelay/internal/api"
	"github.com/myansiry/chatrelay/internal/api/middleware"
	"github.com/myansiry/chatrelay/internal/config"
	"github.com/myansiry/chatrelay/internal/handlers"
	"github.com/myansiry/chatrelay/internal/logging"
	"github.com/myansiry/chatrelay/internal/store"
)

const (
	// PathPrefix is where the platform mounts the functions.
	PathPrefix = "/api"

	defaultMaxBodyBytes = 8 * 1024
)

// Resolver returns the handler an endpoint delegates to.
type Resolver func(ctx context.Context) (*handlers.Handler, error)

// Endpoint is a single function entry point.
type Endpoint struct {
	Method  string
	Serve   func(h *handlers.Handler, w http.ResponseWriter, r *http.Request)
	Resolve Resolver // nil means Default
}

func (e Endpoint) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var next http.Handler = http.HandlerFunc(e.serve)
	next = middleware.Permissive(next)
	middleware.Metrics(next).ServeHTTP(w, r)
}

// serve gates the method before any body checks so a wrong method is always
// a 405, whatever the body.
func (e Endpoint) serve(w http.ResponseWriter, r *http.Request) {
	if r.Method != e.Method {
		handlers.WriteJSON(w, http.StatusMethodNotAllowed, handlers.ErrorResponse{Error: "Method not allowed"})
		return
	}
	middleware.ValidateRequest(http.HandlerFunc(e.dispatch)).ServeHTTP(w, r)
}

// dispatch resolves the shared handler and applies the configured body cap.
func (e Endpoint) dispatch(w http.ResponseWriter, r *http.Request) {
	resolve := e.Resolve
	if resolve == nil {
		resolve = Default
	}
	h, err := resolve(r.Context())
	if err != nil {
		handlers.WriteJSON(w, http.StatusInternalServerError, handlers.ErrorResponse{
			Error:   "Internal server error",
			Details: err.Error(),
		})
		return
	}

	middleware.MaxBodySize(bodyLimit())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		e.Serve(h, w, r)
	})).ServeHTTP(w, r)
}

// Entry points, one per deployed function.
var (
	Root     = Endpoint{Method: http.MethodGet, Serve: (*handlers.Handler).Root}
	Join     = Endpoint{Method: http.MethodPost, Serve: (*handlers.Handler).Join}
	Message  = Endpoint{Method: http.MethodPost, Serve: (*handlers.Handler).PostMessage}
	Messages = Endpoint{Method: http.MethodGet, Serve: (*handlers.Handler).ListMessages}
	Users    = Endpoint{Method: http.MethodGet, Serve: (*handlers.Handler).ListUsers}
)

var (
	mu      sync.Mutex
	shared  *handlers.Handler
	maxBody int64 = defaultMaxBodyBytes
)

// bodyLimit is the request body cap, MAX_BODY_BYTES once Default has loaded
// the configuration.
func bodyLimit() int64 {
	mu.Lock()
	defer mu.Unlock()
	return maxBody
}

// Default returns the instance-wide handler, connecting to Redis on first
// use. A failed connection or invalid configuration is not cached, so the
// next invocation retries.
func Default(ctx context.Context) (*handlers.Handler, error) {
	mu.Lock()
	defer mu.Unlock()

	if shared != nil {
		return shared, nil
	}

	cfg, err := config.Read()
	if err != nil {
		return nil, err
	}
	logger := logging.New(cfg.IsDevelopment(), cfg.LogLevel)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rs, err := store.NewRedisStore(ctx, cfg.RedisURL)
	if err != nil {
		logger.Error().Err(err).Msg("redis connection failed")
		return nil, err
	}

	shared = api.NewHandler(cfg, rs.Client(), rs, logger, PathPrefix)
	if cfg.MaxBodyBytes > 0 {
		maxBody = cfg.MaxBodyBytes
	}
	return shared, nil
}
