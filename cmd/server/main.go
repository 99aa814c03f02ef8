package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/myansiry/chatrelay/internal/api"
	"github.com/myansiry/chatrelay/internal/api/middleware"
	"github.com/myansiry/chatrelay/internal/config"
	"github.com/myansiry/chatrelay/internal/logging"
	"github.com/myansiry/chatrelay/internal/store"
)

func main() {
	// Load configuration
	cfg := config.Load()

	logger := logging.New(cfg.IsDevelopment(), cfg.LogLevel)

	ctx := context.Background()

	// One Redis connection for the whole process
	connectCtx, cancelConnect := context.WithTimeout(ctx, 10*time.Second)
	redisStore, err := store.NewRedisStore(connectCtx, cfg.RedisURL)
	cancelConnect()
	if err != nil {
		logger.Fatal().Err(err).Msg("redis connection failed")
	}
	defer redisStore.Close()
	logger.Info().Msg("connected to Redis")

	h := api.NewHandler(cfg, redisStore.Client(), redisStore, logger, "")

	router := api.NewRouter(logger, h, redisStore.Client(), api.RouterOptions{
		MaxBodyBytes:     cfg.MaxBodyBytes,
		RateLimitEnabled: cfg.RateLimitEnabled,
		RateLimit: middleware.RateLimiterConfig{
			Whitelist: cfg.RateLimitWhitelist,
		},
	})

	// Create server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info().
			Str("port", cfg.Port).
			Str("env", cfg.Env).
			Msg("starting chat relay server")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server...")

	// Graceful shutdown with 30 second timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server forced to shutdown")
	}

	logger.Info().Msg("server stopped")
}
