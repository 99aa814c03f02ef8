package middleware

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ok = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
})

func TestNormalizePath(t *testing.T) {
	cases := map[string]string{
		"/":             "/",
		"/api":          "/",
		"/api/":         "/",
		"/join":         "/join",
		"/api/join":     "/join",
		"/messages/":    "/messages",
		"/api/users":    "/users",
		"/wp-admin.php": "other",
		"/room/123":     "other",
	}
	for in, want := range cases {
		assert.Equal(t, want, normalizePath(in), in)
	}
}

func TestRealIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.1.1.1:5555"
	assert.Equal(t, "10.1.1.1", RealIP(req))

	req.Header.Set("X-Real-IP", "10.2.2.2")
	assert.Equal(t, "10.2.2.2", RealIP(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	assert.Equal(t, "203.0.113.9", RealIP(req))
}

func TestPermissive(t *testing.T) {
	h := Permissive(ok)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/anything", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/anything", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "Content-Type", rec.Header().Get("Access-Control-Allow-Headers"))
}

func TestMaxBodySize(t *testing.T) {
	h := MaxBodySize(4)(ok)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/join", strings.NewReader("12345")))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/join", strings.NewReader("123")))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestValidateRequestContentType(t *testing.T) {
	h := ValidateRequest(ok)

	req := httptest.NewRequest(http.MethodPost, "/join", strings.NewReader("roomId=r1"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/join", strings.NewReader("{}"))
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func newLimiter(t *testing.T, cfg RateLimiterConfig) (*RateLimiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	rl := NewRateLimiter(rdb, zerolog.Nop(), cfg)
	rl.now = func() time.Time { return time.Unix(1_700_000_000, 0) }
	return rl, mr
}

func TestCheckAndIncrement(t *testing.T) {
	rl, mr := newLimiter(t, RateLimiterConfig{})
	ctx := context.Background()

	allowed, remaining, resetAt := rl.CheckAndIncrement(ctx, "k", 2, time.Minute)
	assert.True(t, allowed)
	assert.Equal(t, 1, remaining)
	assert.Equal(t, time.Unix(1_700_000_040, 0), resetAt)

	allowed, remaining, _ = rl.CheckAndIncrement(ctx, "k", 2, time.Minute)
	assert.True(t, allowed)
	assert.Equal(t, 0, remaining)

	allowed, _, _ = rl.CheckAndIncrement(ctx, "k", 2, time.Minute)
	assert.False(t, allowed)

	assert.Equal(t, 2*time.Minute, mr.TTL("k:28333333"))

	// Fails open when Redis errors.
	mr.SetError("down")
	allowed, _, _ = rl.CheckAndIncrement(ctx, "k", 2, time.Minute)
	assert.True(t, allowed)
}

func TestRateLimiterWhitelist(t *testing.T) {
	rl, _ := newLimiter(t, RateLimiterConfig{
		Limits:    map[string]RateLimit{"POST /join": {1, time.Minute}},
		Whitelist: []string{"10.0.0.7", "192.168.0.0/16", "bad/cidr"},
	})
	h := rl.Middleware(ok)

	send := func(addr, path string) int {
		req := httptest.NewRequest(http.MethodPost, path, nil)
		req.RemoteAddr = addr + ":1234"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusNoContent, send("10.0.0.7", "/join"))
		assert.Equal(t, http.StatusNoContent, send("192.168.4.4", "/api/join"))
	}

	require.Equal(t, http.StatusNoContent, send("203.0.113.1", "/join"))
	assert.Equal(t, http.StatusTooManyRequests, send("203.0.113.1", "/api/join"))
	assert.Equal(t, http.StatusNoContent, send("203.0.113.2", "/join"))
	assert.Equal(t, http.StatusNoContent, send("203.0.113.1", "/message"))
}

func TestRateLimiterIgnoresSubSecondWindows(t *testing.T) {
	rl, _ := newLimiter(t, RateLimiterConfig{
		Limits: map[string]RateLimit{
			"POST /join":    {1, 500 * time.Millisecond},
			"POST /message": {1, time.Minute},
		},
	})
	assert.NotContains(t, rl.limits, "POST /join")
	assert.Contains(t, rl.limits, "POST /message")

	h := rl.Middleware(ok)
	send := func(path string) int {
		req := httptest.NewRequest(http.MethodPost, path, nil)
		req.RemoteAddr = "203.0.113.9:1234"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}
	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusNoContent, send("/join"))
	}

	allowed, _, resetAt := rl.CheckAndIncrement(context.Background(), "k", 1, 100*time.Millisecond)
	assert.True(t, allowed)
	assert.Equal(t, time.Unix(1_700_000_001, 0), resetAt)
}

func TestLoggerTagsRoomAndWarnsOnServerErrors(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	Logger(logger)(ok).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/messages?roomId=lobby", nil))
	line := buf.String()
	assert.Contains(t, line, `"level":"info"`)
	assert.Contains(t, line, `"room":"lobby"`)
	assert.Contains(t, line, `"status":204`)

	buf.Reset()
	broken := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	Logger(logger)(broken).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/join", nil))
	line = buf.String()
	assert.Contains(t, line, `"level":"warn"`)
	assert.NotContains(t, line, `"room"`)
}
