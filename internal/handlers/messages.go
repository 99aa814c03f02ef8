package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/myansiry/chatrelay/internal/chat"
	"github.com/myansiry/chatrelay/internal/models"
)

// PostMessageRequest represents the post message request body.
type PostMessageRequest struct {
	RoomID    string `json:"roomId" validate:"max=128"`
	Text      string `json:"text" validate:"max=4096"`
	UserName  string `json:"userName" validate:"max=100"`
	UserID    string `json:"userId,omitempty" validate:"max=128"`
	Timestamp int64  `json:"timestamp,omitempty" validate:"gte=0"`
	Type      string `json:"type,omitempty" validate:"omitempty,oneof=text system"`
}

// PostMessageResponse represents the post message response.
type PostMessageResponse struct {
	Success bool           `json:"success"`
	Message string         `json:"message"`
	Data    models.Message `json:"data"`
}

// MessagesResponse represents the list messages response.
type MessagesResponse struct {
	Success  bool             `json:"success"`
	Messages []models.Message `json:"messages"`
	Count    int              `json:"count"`
	RoomID   string           `json:"roomId"`
}

// PostMessage appends a message to a room's history.
func (h *Handler) PostMessage(w http.ResponseWriter, r *http.Request) {
	var req PostMessageRequest
	if err := h.decode(r, &req); err != nil {
		h.fail(w, "post_message", err)
		return
	}

	msg, err := h.rooms.Post(r.Context(), chat.PostInput{
		RoomID:    req.RoomID,
		Text:      req.Text,
		UserName:  req.UserName,
		UserID:    req.UserID,
		Timestamp: req.Timestamp,
		Type:      models.MessageType(req.Type),
	})
	if err != nil {
		h.fail(w, "post_message", err)
		return
	}

	h.JSON(w, http.StatusOK, PostMessageResponse{
		Success: true,
		Message: "Mensagem enviada",
		Data:    msg,
	})
}

// ListMessages returns a room's recent messages, oldest first.
func (h *Handler) ListMessages(w http.ResponseWriter, r *http.Request) {
	roomID := r.URL.Query().Get("roomId")
	if roomID == "" {
		h.Error(w, http.StatusBadRequest, "roomId is required")
		return
	}

	limit := h.pageSize(r.URL.Query().Get("limit"))

	messages, err := h.rooms.List(r.Context(), roomID, limit)
	if err != nil {
		h.fail(w, "list_messages", err)
		return
	}

	h.JSON(w, http.StatusOK, MessagesResponse{
		Success:  true,
		Messages: messages,
		Count:    len(messages),
		RoomID:   roomID,
	})
}

// pageSize parses the limit query parameter. Only the leading integer is
// read, so "10abc" is 10. Missing or invalid values fall back to the default
// page size; nothing beyond the history bound exists.
func (h *Handler) pageSize(raw string) int {
	limit := h.opts.DefaultPageSize
	if l, ok := leadingInt(raw); ok && l > 0 {
		limit = l
	}
	if bound := h.rooms.HistoryLimit(); limit > bound {
		limit = bound
	}
	return limit
}

// leadingInt parses the optionally signed decimal prefix of s, after leading
// whitespace.
func leadingInt(s string) (int, bool) {
	s = strings.TrimLeft(s, " \t\n\r")
	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 0, false
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0, false
	}
	return n, true
}
