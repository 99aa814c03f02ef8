package handler

import (
	"net/http"

	"github.com/myansiry/chatrelay/internal/api/function"
)

// Handler is the platform entry point for GET /api/messages.
func Handler(w http.ResponseWriter, r *http.Request) {
	function.Messages.ServeHTTP(w, r)
}
