package handlers

import (
	"net/http"

	"github.com/myansiry/chatrelay/internal/models"
)

// JoinRequest represents the join request body.
type JoinRequest struct {
	RoomID   string `json:"roomId" validate:"max=128"`
	UserName string `json:"userName" validate:"max=100"`
	UserID   string `json:"userId,omitempty" validate:"max=128"`
}

// JoinResponse represents the join response.
type JoinResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	User    models.User `json:"user"`
}

// Join records the caller as present in a room.
func (h *Handler) Join(w http.ResponseWriter, r *http.Request) {
	var req JoinRequest
	if err := h.decode(r, &req); err != nil {
		h.fail(w, "join", err)
		return
	}

	user, err := h.presence.Join(r.Context(), req.RoomID, req.UserID, req.UserName)
	if err != nil {
		h.fail(w, "join", err)
		return
	}

	h.JSON(w, http.StatusOK, JoinResponse{
		Success: true,
		Message: "Entrou na sala",
		User:    user,
	})
}
