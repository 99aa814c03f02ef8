package handlers

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/myansiry/chatrelay/internal/chat"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options configures a Handler.
type Options struct {
	// PathPrefix is prepended to the paths advertised by Root, e.g. "/api".
	PathPrefix      string
	DefaultPageSize int
	Clock           func() time.Time
}

// Handler contains shared dependencies for all HTTP handlers. Both the
// server and the function adapters route to the same Handler methods.
type Handler struct {
	rooms    *chat.RoomStore
	presence *chat.PresenceRegistry
	store    Pinger
	logger   zerolog.Logger
	validate *validator.Validate
	opts     Options
}

// NewHandler creates a new Handler.
func NewHandler(rooms *chat.RoomStore, presence *chat.PresenceRegistry, store Pinger, logger zerolog.Logger, opts Options) *Handler {
	if opts.DefaultPageSize <= 0 {
		opts.DefaultPageSize = 50
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	opts.PathPrefix = strings.TrimSuffix(opts.PathPrefix, "/")

	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(jsonFieldName)

	return &Handler{
		rooms:    rooms,
		presence: presence,
		store:    store,
		logger:   logger,
		validate: v,
		opts:     opts,
	}
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// WriteJSON sends a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// JSON sends a JSON response with the given status code.
func (h *Handler) JSON(w http.ResponseWriter, status int, data interface{}) {
	WriteJSON(w, status, data)
}

// Error sends a JSON error response with the given status code.
func (h *Handler) Error(w http.ResponseWriter, status int, message string) {
	h.JSON(w, status, ErrorResponse{Error: message})
}

// MethodNotAllowed answers requests whose method the route does not serve.
func (h *Handler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	h.Error(w, http.StatusMethodNotAllowed, "Method not allowed")
}

// errBodyTooLarge reports a body cut off by http.MaxBytesReader.
var errBodyTooLarge = errors.New("request body too large")

// fail maps a core error to its HTTP response.
func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	var verr *chat.ValidationError
	if errors.As(err, &verr) {
		h.Error(w, http.StatusBadRequest, verr.Message)
		return
	}
	if errors.Is(err, errBodyTooLarge) {
		h.Error(w, http.StatusRequestEntityTooLarge, err.Error())
		return
	}

	h.logger.Error().Err(err).Str("op", op).Msg("request failed")
	h.JSON(w, http.StatusInternalServerError, ErrorResponse{
		Error:   "Internal server error",
		Details: err.Error(),
	})
}

// decode reads a JSON body into v and checks its field constraints. An
// empty body decodes to the zero value so that missing-field errors are
// reported the same way as for a body with absent fields.
func (h *Handler) decode(r *http.Request, v interface{}) error {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return errBodyTooLarge
		}
		return &chat.ValidationError{Message: "invalid JSON body"}
	}
	if len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, v); err != nil {
			return &chat.ValidationError{Message: "invalid JSON body"}
		}
	}
	if err := h.validate.Struct(v); err != nil {
		return validationError(err)
	}
	return nil
}

func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &chat.ValidationError{Message: err.Error()}
	}

	fe := verrs[0]
	msg := fe.Field() + " is invalid"
	switch fe.Tag() {
	case "max":
		msg = fe.Field() + " must be at most " + fe.Param() + " characters"
	case "oneof":
		msg = fe.Field() + " must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "gte":
		msg = fe.Field() + " must not be negative"
	}
	return &chat.ValidationError{Fields: []string{fe.Field()}, Message: msg}
}

func jsonFieldName(f reflect.StructField) string {
	name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	return name
}
