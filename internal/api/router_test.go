package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/myansiry/chatrelay/internal/api/middleware"
	"github.com/myansiry/chatrelay/internal/chat"
	"github.com/myansiry/chatrelay/internal/config"
	"github.com/myansiry/chatrelay/internal/handlers"
	"github.com/myansiry/chatrelay/internal/models"
	"github.com/myansiry/chatrelay/internal/store"
)

func testConfig() *config.Config {
	return &config.Config{
		HistoryLimit:    100,
		RoomTTL:         24 * time.Hour,
		DefaultPageSize: 50,
		MaxBodyBytes:    8 * 1024,
	}
}

func newTestRouter(t *testing.T, opts RouterOptions) (http.Handler, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rs, err := store.NewRedisStore(context.Background(), "redis://"+mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { _ = rs.Close() })

	h := NewHandler(testConfig(), rs.Client(), rs, zerolog.Nop(), "")
	return NewRouter(zerolog.Nop(), h, rs.Client(), opts), mr
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestJoinThenListShowsAnnouncement(t *testing.T) {
	router, _ := newTestRouter(t, RouterOptions{})

	rec := do(t, router, http.MethodPost, "/join", `{"roomId":"r1","userName":"Alice"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	joined := decodeBody[handlers.JoinResponse](t, rec)
	assert.True(t, joined.Success)
	assert.Equal(t, "Entrou na sala", joined.Message)
	assert.Equal(t, "Alice", joined.User.Name)
	assert.True(t, joined.User.IsOnline)

	rec = do(t, router, http.MethodGet, "/messages?roomId=r1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	list := decodeBody[handlers.MessagesResponse](t, rec)
	assert.True(t, list.Success)
	assert.Equal(t, "r1", list.RoomID)
	require.Equal(t, 1, list.Count)
	assert.Equal(t, models.MessageTypeSystem, list.Messages[0].Type)
	assert.Equal(t, "Alice entrou na sala", list.Messages[0].Text)
}

func TestPostTwiceListLimitOne(t *testing.T) {
	router, _ := newTestRouter(t, RouterOptions{})

	rec := do(t, router, http.MethodPost, "/message", `{"roomId":"r1","text":"hi","userName":"Bob"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	posted := decodeBody[handlers.PostMessageResponse](t, rec)
	assert.True(t, posted.Success)
	assert.Equal(t, "Mensagem enviada", posted.Message)
	assert.Equal(t, "hi", posted.Data.Text)
	assert.Equal(t, "http-user", posted.Data.UserID)
	assert.Equal(t, models.MessageTypeText, posted.Data.Type)

	rec = do(t, router, http.MethodPost, "/message", `{"roomId":"r1","text":"second","userName":"Bob"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, router, http.MethodGet, "/messages?roomId=r1&limit=1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	list := decodeBody[handlers.MessagesResponse](t, rec)
	require.Len(t, list.Messages, 1)
	assert.Equal(t, "second", list.Messages[0].Text)
	assert.Equal(t, 1, list.Count)
}

func TestPostRoundTripIsByteExact(t *testing.T) {
	router, _ := newTestRouter(t, RouterOptions{})
	text := "  <b>olá</b> & \"tchau\"\t😀  "
	name := "Zoë  "

	body, err := json.Marshal(map[string]string{"roomId": "r1", "text": text, "userName": name})
	require.NoError(t, err)
	rec := do(t, router, http.MethodPost, "/message", string(body))
	require.Equal(t, http.StatusOK, rec.Code)

	list := decodeBody[handlers.MessagesResponse](t, do(t, router, http.MethodGet, "/messages?roomId=r1", ""))
	require.Len(t, list.Messages, 1)
	assert.Equal(t, text, list.Messages[0].Text)
	assert.Equal(t, name, list.Messages[0].UserName)
}

func TestListRequiresRoomID(t *testing.T) {
	router, _ := newTestRouter(t, RouterOptions{})

	rec := do(t, router, http.MethodGet, "/messages", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "roomId is required", decodeBody[handlers.ErrorResponse](t, rec).Error)

	rec = do(t, router, http.MethodGet, "/users", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestJoinMissingUserNameWritesNothing(t *testing.T) {
	router, mr := newTestRouter(t, RouterOptions{})

	rec := do(t, router, http.MethodPost, "/join", `{"roomId":"r1"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Missing required fields: roomId and userName", decodeBody[handlers.ErrorResponse](t, rec).Error)

	rec = do(t, router, http.MethodPost, "/join", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	assert.False(t, mr.Exists(chat.UsersKey("r1")))
	assert.False(t, mr.Exists(chat.MessagesKey("r1")))
}

func TestPostValidation(t *testing.T) {
	router, mr := newTestRouter(t, RouterOptions{})

	cases := map[string]struct {
		body string
		want string
	}{
		"missing text": {`{"roomId":"r1","userName":"Bob"}`, "Missing required fields: roomId, text, userName"},
		"bad json":     {`{"roomId":`, "invalid JSON body"},
		"bad type":     {`{"roomId":"r1","text":"x","userName":"Bob","type":"shout"}`, "type must be one of: text, system"},
		"long name":    {`{"roomId":"r1","text":"x","userName":"` + strings.Repeat("n", 101) + `"}`, "userName must be at most 100 characters"},
		"negative ts":  {`{"roomId":"r1","text":"x","userName":"Bob","timestamp":-5}`, "timestamp must not be negative"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			rec := do(t, router, http.MethodPost, "/message", tc.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tc.want, decodeBody[handlers.ErrorResponse](t, rec).Error)
		})
	}
	assert.Empty(t, mr.Keys())
}

func TestHistoryNeverExceedsBound(t *testing.T) {
	router, _ := newTestRouter(t, RouterOptions{})

	for i := 0; i < 120; i++ {
		rec := do(t, router, http.MethodPost, "/message", `{"roomId":"r1","text":"x","userName":"Bob"}`)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	list := decodeBody[handlers.MessagesResponse](t, do(t, router, http.MethodGet, "/messages?roomId=r1&limit=1000", ""))
	assert.Equal(t, 100, list.Count)

	list = decodeBody[handlers.MessagesResponse](t, do(t, router, http.MethodGet, "/messages?roomId=r1&limit=abc", ""))
	assert.Equal(t, 50, list.Count)
}

func TestListUsers(t *testing.T) {
	router, _ := newTestRouter(t, RouterOptions{})

	do(t, router, http.MethodPost, "/join", `{"roomId":"r1","userName":"Alice","userId":"a"}`)
	do(t, router, http.MethodPost, "/join", `{"roomId":"r1","userName":"Bob","userId":"b"}`)

	rec := do(t, router, http.MethodGet, "/users?roomId=r1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	users := decodeBody[handlers.UsersResponse](t, rec)
	assert.Equal(t, 2, users.Count)
	assert.Len(t, users.Users, 2)
}

func TestStoreFailureIs500(t *testing.T) {
	router, mr := newTestRouter(t, RouterOptions{})
	mr.SetError("engine down")

	rec := do(t, router, http.MethodPost, "/message", `{"roomId":"r1","text":"hi","userName":"Bob"}`)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	resp := decodeBody[handlers.ErrorResponse](t, rec)
	assert.Equal(t, "Internal server error", resp.Error)
	assert.Contains(t, resp.Details, "engine down")

	rec = do(t, router, http.MethodGet, "/messages?roomId=r1", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestCORSAndOptions(t *testing.T) {
	router, _ := newTestRouter(t, RouterOptions{})

	for _, path := range []string{"/", "/join", "/messages", "/does-not-exist"} {
		rec := do(t, router, http.MethodOptions, path, "")
		assert.Equal(t, http.StatusOK, rec.Code, path)
		assert.Empty(t, rec.Body.String(), path)
		assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "GET, POST, OPTIONS", rec.Header().Get("Access-Control-Allow-Methods"))
		assert.Equal(t, "Content-Type", rec.Header().Get("Access-Control-Allow-Headers"))
	}

	req := httptest.NewRequest(http.MethodOptions, "/message", nil)
	req.Header.Set("Origin", "https://example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	rec = do(t, router, http.MethodGet, "/", "")
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestWrongMethodIs405(t *testing.T) {
	router, _ := newTestRouter(t, RouterOptions{})

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/join"},
		{http.MethodGet, "/message"},
		{http.MethodPost, "/messages"},
		{http.MethodDelete, "/messages"},
	} {
		rec := do(t, router, tc.method, tc.path, "")
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code, tc.method+" "+tc.path)
		assert.Equal(t, "Method not allowed", decodeBody[handlers.ErrorResponse](t, rec).Error)
	}

	rec := do(t, router, http.MethodGet, "/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRootAndHealth(t *testing.T) {
	router, mr := newTestRouter(t, RouterOptions{})

	rec := do(t, router, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	root := decodeBody[handlers.RootResponse](t, rec)
	assert.Equal(t, "MyAnsiry Chat API OK", root.Message)
	assert.Equal(t, "online", root.Status)
	assert.Positive(t, root.Timestamp)
	assert.Contains(t, root.Endpoints, "POST /join")
	assert.Contains(t, root.Endpoints, "GET  /messages?roomId=ROOM_ID")

	rec = do(t, router, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", decodeBody[handlers.HealthResponse](t, rec).Status)

	mr.SetError("down")
	rec = do(t, router, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "degraded", decodeBody[handlers.HealthResponse](t, rec).Status)
}

func TestMetricsEndpoint(t *testing.T) {
	router, _ := newTestRouter(t, RouterOptions{})

	do(t, router, http.MethodPost, "/message", `{"roomId":"r1","text":"hi","userName":"Bob"}`)

	rec := do(t, router, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "chatrelay_http_requests_total")
	assert.Contains(t, rec.Body.String(), "chatrelay_messages_appended_total")
}

func TestRateLimiting(t *testing.T) {
	router, _ := newTestRouter(t, RouterOptions{
		RateLimitEnabled: true,
		RateLimit: middleware.RateLimiterConfig{
			Limits: map[string]middleware.RateLimit{"POST /join": {Requests: 2, Window: time.Hour}},
		},
	})

	body := `{"roomId":"r1","userName":"Alice"}`
	for i := 0; i < 2; i++ {
		rec := do(t, router, http.MethodPost, "/join", body)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
	}

	rec := do(t, router, http.MethodPost, "/join", body)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	// Other endpoints are not limited by this configuration.
	rec = do(t, router, http.MethodGet, "/messages?roomId=r1", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}
