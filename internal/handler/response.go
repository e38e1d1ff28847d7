// Package handler contains the HTTP handlers and the JSON plumbing they
// share. Handlers decode requests, call one service, and serialize the
// result — no business rules live here.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/projectxs/backend/internal/apperror"
)

// ErrorResponse is the single error shape every endpoint returns:
//
//	{"error": "code_expired", "message": "Verification code expired. ..."}
//
// The machine-readable tag and human-readable message travel together so
// the launcher can both branch on the error and show it verbatim.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// writeJSON sends a JSON response. Headers and status must go out before
// the body — once Encode writes, the headers are on the wire.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeError translates a service-layer error into an HTTP response.
//
// Every sentinel in apperror gets its own status + tag here, in one place;
// the services themselves never see an HTTP status code. An error that
// matches no sentinel is an internal fault: the caller gets an opaque 500
// and the details stay in the server log.
func writeError(w http.ResponseWriter, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		status := http.StatusInternalServerError
		tag := "internal_error"

		switch {
		case errors.Is(err, apperror.ErrValidation):
			status, tag = http.StatusBadRequest, "validation_error"
		case errors.Is(err, apperror.ErrNotFound):
			status, tag = http.StatusNotFound, "not_found"
		case errors.Is(err, apperror.ErrConflict):
			status, tag = http.StatusConflict, "conflict"
		case errors.Is(err, apperror.ErrInvalidCredentials):
			status, tag = http.StatusUnauthorized, "invalid_credentials"
		case errors.Is(err, apperror.ErrNoCodeIssued):
			status, tag = http.StatusBadRequest, "no_code_issued"
		case errors.Is(err, apperror.ErrCodeExpired):
			status, tag = http.StatusBadRequest, "code_expired"
		case errors.Is(err, apperror.ErrCodeMismatch):
			status, tag = http.StatusBadRequest, "code_mismatch"
		case errors.Is(err, apperror.ErrSelfRequest):
			status, tag = http.StatusBadRequest, "self_request"
		case errors.Is(err, apperror.ErrAlreadyFriends):
			status, tag = http.StatusBadRequest, "already_friends"
		case errors.Is(err, apperror.ErrDuplicatePending):
			status, tag = http.StatusBadRequest, "duplicate_pending"
		case errors.Is(err, apperror.ErrProvider):
			status, tag = http.StatusBadGateway, "provider_error"
		case errors.Is(err, apperror.ErrAllocatorExhausted):
			status, tag = http.StatusServiceUnavailable, "allocator_exhausted"
		}

		writeJSON(w, status, ErrorResponse{Error: tag, Message: appErr.Message})
		return
	}

	// Unknown fault — never leak internals (SQL, file paths) to clients.
	writeJSON(w, http.StatusInternalServerError, ErrorResponse{
		Error:   "internal_error",
		Message: "An internal error occurred",
	})
}

// decodeJSON reads a request body into dst, rejecting malformed JSON with
// a uniform validation error.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, apperror.ValidationFailed("body", "Invalid request body"))
		return false
	}
	return true
}
