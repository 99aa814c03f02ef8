// Package chatrelay provides a client for the chat relay HTTP API.
package chatrelay

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/myansiry/chatrelay/internal/models"
)

// DefaultBaseURL is used when no server URL is configured.
const DefaultBaseURL = "http://localhost:3000"

// Client is a chat relay API client.
type Client struct {
	BaseURL    string
	ConfigDir  string
	UserID     string
	HTTPClient *http.Client

	// OnPollError, when set, receives the failed fetches Poll retries.
	OnPollError func(error)
}

// Identity is the locally persisted user id sent on every join and message,
// so the server never has to fall back to keying presence by display name.
type Identity struct {
	UserID string `json:"userId"`
}

// NewClient creates a new client.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	configDir := os.Getenv("CHATRELAY_CONFIG")
	if configDir == "" {
		home, _ := os.UserHomeDir()
		configDir = filepath.Join(home, ".chatrelay")
	}

	return &Client{
		BaseURL:    strings.TrimSuffix(baseURL, "/"),
		ConfigDir:  configDir,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// EnsureIdentity loads the persisted user id, creating and saving a new one
// on first use.
func (c *Client) EnsureIdentity() error {
	path := filepath.Join(c.ConfigDir, "identity.json")

	data, err := os.ReadFile(path)
	if err == nil {
		var id Identity
		if err := json.Unmarshal(data, &id); err == nil && id.UserID != "" {
			c.UserID = id.UserID
			return nil
		}
	} else if !os.IsNotExist(err) {
		return err
	}

	c.UserID = uuid.NewString()
	if err := os.MkdirAll(c.ConfigDir, 0700); err != nil {
		return err
	}
	data, _ = json.MarshalIndent(Identity{UserID: c.UserID}, "", "  ")
	return os.WriteFile(path, data, 0600)
}

// APIError is returned for non-2xx responses.
type APIError struct {
	Status  int
	Message string
	Details string
}

func (e *APIError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("chatrelay error %d: %s (%s)", e.Status, e.Message, e.Details)
	}
	return fmt.Sprintf("chatrelay error %d: %s", e.Status, e.Message)
}

func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode >= 400 {
		var errResp struct {
			Error   string `json:"error"`
			Details string `json:"details"`
		}
		_ = json.Unmarshal(respBody, &errResp)
		return &APIError{Status: resp.StatusCode, Message: errResp.Error, Details: errResp.Details}
	}

	if out == nil {
		return nil
	}
	return json.Unmarshal(respBody, out)
}

// HealthResponse is the root endpoint response.
type HealthResponse struct {
	Message   string   `json:"message"`
	Status    string   `json:"status"`
	Timestamp int64    `json:"timestamp"`
	Endpoints []string `json:"endpoints"`
}

// Health checks that the server is up.
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	var resp HealthResponse
	if err := c.do(ctx, http.MethodGet, "/", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Join announces userName in roomID.
func (c *Client) Join(ctx context.Context, roomID, userName string) (*models.User, error) {
	req := map[string]string{"roomId": roomID, "userName": userName}
	if c.UserID != "" {
		req["userId"] = c.UserID
	}

	var resp struct {
		User models.User `json:"user"`
	}
	if err := c.do(ctx, http.MethodPost, "/join", req, &resp); err != nil {
		return nil, err
	}
	return &resp.User, nil
}

// Send posts a text message to roomID.
func (c *Client) Send(ctx context.Context, roomID, userName, text string) (*models.Message, error) {
	req := map[string]string{"roomId": roomID, "userName": userName, "text": text}
	if c.UserID != "" {
		req["userId"] = c.UserID
	}

	var resp struct {
		Data models.Message `json:"data"`
	}
	if err := c.do(ctx, http.MethodPost, "/message", req, &resp); err != nil {
		return nil, err
	}
	return &resp.Data, nil
}

// Messages returns up to limit recent messages of roomID, oldest first. A
// limit of zero uses the server default.
func (c *Client) Messages(ctx context.Context, roomID string, limit int) ([]models.Message, error) {
	q := url.Values{"roomId": {roomID}}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}

	var resp struct {
		Messages []models.Message `json:"messages"`
	}
	if err := c.do(ctx, http.MethodGet, "/messages?"+q.Encode(), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Messages, nil
}

// Users returns the presence records of roomID.
func (c *Client) Users(ctx context.Context, roomID string) ([]models.User, error) {
	var resp struct {
		Users []models.User `json:"users"`
	}
	if err := c.do(ctx, http.MethodGet, "/users?"+url.Values{"roomId": {roomID}}.Encode(), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Users, nil
}

// Poll calls fn with messages newer than the last one seen, every interval,
// until ctx is done. Messages are matched by timestamp and id since the
// server only keeps a bounded window of history. A failed fetch is reported
// to OnPollError and retried on the next tick.
func (c *Client) Poll(ctx context.Context, roomID string, interval time.Duration, fn func(models.Message)) error {
	var lastTS int64
	seen := make(map[string]bool)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		msgs, err := c.Messages(ctx, roomID, 0)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if c.OnPollError != nil {
				c.OnPollError(err)
			}
		}

		for _, m := range msgs {
			if m.Timestamp < lastTS || seen[m.ID] {
				continue
			}
			if m.Timestamp > lastTS {
				lastTS = m.Timestamp
				seen = make(map[string]bool)
			}
			seen[m.ID] = true
			fn(m)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
