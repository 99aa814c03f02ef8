package handler

import (
	"net/http"

	"github.com/myansiry/chatrelay/internal/api/function"
)

// Handler is the platform entry point for POST /api/join.
func Handler(w http.ResponseWriter, r *http.Request) {
	function.Join.ServeHTTP(w, r)
}
