package handler

import (
	"net/http"

	"github.com/myansiry/chatrelay/internal/api/function"
)

// Handler is the platform entry point for GET /api/users.
func Handler(w http.ResponseWriter, r *http.Request) {
	function.Users.ServeHTTP(w, r)
}
