package handlers

import (
	"net/http"

	"github.com/myansiry/chatrelay/internal/models"
)

// UsersResponse represents the presence listing response.
type UsersResponse struct {
	Success bool          `json:"success"`
	Users   []models.User `json:"users"`
	Count   int           `json:"count"`
	RoomID  string        `json:"roomId"`
}

// ListUsers returns everyone who joined the room within its presence TTL.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	roomID := r.URL.Query().Get("roomId")
	if roomID == "" {
		h.Error(w, http.StatusBadRequest, "roomId is required")
		return
	}

	users, err := h.presence.Users(r.Context(), roomID)
	if err != nil {
		h.fail(w, "list_users", err)
		return
	}

	h.JSON(w, http.StatusOK, UsersResponse{
		Success: true,
		Users:   users,
		Count:   len(users),
		RoomID:  roomID,
	})
}
