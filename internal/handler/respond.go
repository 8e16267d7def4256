// Package handler contains chi HTTP handlers that translate HTTP
// requests/responses to and from the service layer.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gatherly/eventreg/internal/model"
)

// ErrorResponse is the standard JSON error envelope. Code is stable and
// machine-readable so clients can offer the right next action (for example
// "join the waitlist?" on EVENT_FULL).
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg, Code: code})
}

func decodeJSON(r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(nil, r.Body, 1<<20) // 1 MB limit
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// writeServiceError maps domain errors onto HTTP statuses and stable codes.
func writeServiceError(w http.ResponseWriter, err error) {
	var dup *model.DuplicateError
	switch {
	case errors.As(err, &dup):
		writeError(w, http.StatusConflict, "DUPLICATE_ACTIVE", dup.Error())
	case errors.Is(err, model.ErrEventNotFound):
		writeError(w, http.StatusNotFound, "NOT_FOUND", "event not found")
	case errors.Is(err, model.ErrRegistrationNotFound):
		writeError(w, http.StatusNotFound, "NOT_FOUND", "registration not found")
	case errors.Is(err, model.ErrForbidden):
		writeError(w, http.StatusForbidden, "FORBIDDEN", err.Error())
	case errors.Is(err, model.ErrRegistrationNotOpen):
		writeError(w, http.StatusConflict, "NOT_OPEN", err.Error())
	case errors.Is(err, model.ErrDeadlinePassed):
		writeError(w, http.StatusConflict, "DEADLINE_PASSED", err.Error())
	case errors.Is(err, model.ErrEventFull):
		writeError(w, http.StatusConflict, "EVENT_FULL", "event is full; you can join the waitlist instead")
	case errors.Is(err, model.ErrDuplicate):
		writeError(w, http.StatusConflict, "DUPLICATE_ACTIVE", err.Error())
	case errors.Is(err, model.ErrAlreadyCancelled):
		writeError(w, http.StatusConflict, "ALREADY_CANCELLED", err.Error())
	case errors.Is(err, model.ErrTerminalState):
		writeError(w, http.StatusConflict, "TERMINAL_STATE", err.Error())
	case errors.Is(err, model.ErrWindowExpired):
		writeError(w, http.StatusConflict, "WINDOW_EXPIRED", err.Error())
	case errors.Is(err, model.ErrNotPublishable):
		writeError(w, http.StatusConflict, "NOT_PUBLISHABLE", err.Error())
	case errors.Is(err, model.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "INVALID_INPUT", err.Error())
	case errors.Is(err, model.ErrConflict):
		writeError(w, http.StatusConflict, "CONFLICT", "please retry the request")
	case errors.Is(err, model.ErrUnavailable):
		writeError(w, http.StatusServiceUnavailable, "UNAVAILABLE", "service temporarily unavailable")
	default:
		writeError(w, http.StatusInternalServerError, "INTERNAL", "internal error")
	}
}
