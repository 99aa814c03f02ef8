package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	Port     string
	Env      string
	RedisURL string
	LogLevel string

	// Room storage
	HistoryLimit    int
	RoomTTL         time.Duration
	DefaultPageSize int

	// HTTP
	MaxBodyBytes int64

	// Rate limiting
	RateLimitEnabled   bool
	RateLimitWhitelist []string // IPs or CIDRs exempt from rate limiting
}

// ErrMissingRedisURL is returned by Read when REDIS_URL is unset in production.
var ErrMissingRedisURL = errors.New("REDIS_URL is required in production")

// Load reads configuration from environment variables.
// In development, it loads from .env file if present.
// In production, it panics on missing required variables.
func Load() *Config {
	cfg, err := Read()
	if err != nil {
		panic(err.Error())
	}
	return cfg
}

// Read is Load for callers that cannot panic, such as request paths.
func Read() (*Config, error) {
	// Load .env file if it exists (for development)
	_ = godotenv.Load()

	cfg := &Config{
		Port:             getEnv("PORT", "3000"),
		Env:              getEnv("ENV", "development"),
		RedisURL:         os.Getenv("REDIS_URL"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		HistoryLimit:     getEnvInt("HISTORY_LIMIT", 100),
		RoomTTL:          time.Duration(getEnvInt("ROOM_TTL_SECONDS", 86400)) * time.Second,
		DefaultPageSize:  getEnvInt("DEFAULT_PAGE_SIZE", 50),
		MaxBodyBytes:     int64(getEnvInt("MAX_BODY_BYTES", 8*1024)),
		RateLimitEnabled: getEnv("RATE_LIMIT_ENABLED", "true") == "true",
	}

	// Parse whitelist (comma-separated IPs or CIDRs)
	if whitelist := os.Getenv("RATE_LIMIT_WHITELIST"); whitelist != "" {
		for _, entry := range strings.Split(whitelist, ",") {
			entry = strings.TrimSpace(entry)
			if entry != "" {
				cfg.RateLimitWhitelist = append(cfg.RateLimitWhitelist, entry)
			}
		}
	}

	if cfg.RedisURL == "" {
		if cfg.Env == "production" {
			return nil, ErrMissingRedisURL
		}
		cfg.RedisURL = "redis://localhost:6379/0"
	}

	return cfg, nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt falls back to defaultValue for unset, malformed or non-positive values.
func getEnvInt(key string, defaultValue int) int {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil || n <= 0 {
		return defaultValue
	}
	return n
}
