package handlers

import (
	"context"
	"net/http"
	"os"
	"time"
)

const version = "1.0.0"

// RootResponse represents the root endpoint response.
type RootResponse struct {
	Message   string   `json:"message"`
	Status    string   `json:"status"`
	Timestamp int64    `json:"timestamp"`
	Endpoints []string `json:"endpoints"`
}

// Root handles the root endpoint.
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	p := h.opts.PathPrefix
	root := p
	if root == "" {
		root = "/"
	}

	h.JSON(w, http.StatusOK, RootResponse{
		Message:   "MyAnsiry Chat API OK",
		Status:    "online",
		Timestamp: h.opts.Clock().UnixMilli(),
		Endpoints: []string{
			"GET  " + root,
			"POST " + p + "/join",
			"POST " + p + "/message",
			"GET  " + p + "/messages?roomId=ROOM_ID",
			"GET  " + p + "/users?roomId=ROOM_ID",
		},
	})
}

// Check represents the status of a health check.
type Check struct {
	Status  string `json:"status"`            // "pass" or "fail"
	Latency string `json:"latency,omitempty"` // e.g., "2ms"
	Message string `json:"message,omitempty"`
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status    string           `json:"status"` // "healthy" or "degraded"
	Version   string           `json:"version"`
	Instance  string           `json:"instance,omitempty"`
	Checks    map[string]Check `json:"checks"`
	Timestamp string           `json:"timestamp"`
}

// Health pings Redis and reports the result.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	checks := make(map[string]Check)
	healthy := true

	if h.store != nil {
		start := time.Now()
		if err := h.store.Ping(ctx); err != nil {
			checks["redis"] = Check{Status: "fail", Message: "connection failed"}
			healthy = false
		} else {
			checks["redis"] = Check{Status: "pass", Latency: time.Since(start).String()}
		}
	} else {
		checks["redis"] = Check{Status: "fail", Message: "not configured"}
		healthy = false
	}

	status := "healthy"
	statusCode := http.StatusOK
	if !healthy {
		status = "degraded"
		statusCode = http.StatusServiceUnavailable
	}

	h.JSON(w, statusCode, HealthResponse{
		Status:    status,
		Version:   version,
		Instance:  os.Getenv("HOSTNAME"),
		Checks:    checks,
		Timestamp: h.opts.Clock().UTC().Format(time.RFC3339),
	})
}
