package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/clinebridge/clinebridge/internal/channel"
	"github.com/clinebridge/clinebridge/internal/review"
	"github.com/clinebridge/clinebridge/internal/session"
)

// ErrorResponse represents an API error response.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error details.
type ErrorDetail struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// Error codes
const (
	ErrCodeInvalidRequest      = "INVALID_REQUEST"
	ErrCodeNotFound            = "NOT_FOUND"
	ErrCodeSessionNotReady     = "SESSION_NOT_READY"
	ErrCodeTimeout             = "TIMEOUT"
	ErrCodeStartupFailure      = "STARTUP_FAILURE"
	ErrCodeExternalToolFailure = "EXTERNAL_TOOL_FAILURE"
	ErrCodeInternalError       = "INTERNAL_ERROR"
)

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
		},
	})
}

// writeDomainError maps a domain error to its HTTP status and error code.
func writeDomainError(w http.ResponseWriter, err error) {
	status, code := classifyError(err)
	writeError(w, status, code, err.Error())
}

// classifyError translates the error taxonomy into HTTP semantics.
func classifyError(err error) (int, string) {
	var (
		timeoutErr *channel.TimeoutError
		startupErr *channel.StartupError
		toolErr    *review.ToolError
	)

	switch {
	case errors.Is(err, session.ErrNotFound), errors.Is(err, session.ErrStopped):
		return http.StatusNotFound, ErrCodeNotFound
	case errors.Is(err, session.ErrNotReady):
		return http.StatusConflict, ErrCodeSessionNotReady
	case errors.As(err, &timeoutErr), errors.Is(err, context.DeadlineExceeded):
		return http.StatusRequestTimeout, ErrCodeTimeout
	case errors.As(err, &startupErr):
		return http.StatusInternalServerError, ErrCodeStartupFailure
	case errors.As(err, &toolErr):
		return http.StatusInternalServerError, ErrCodeExternalToolFailure
	case errors.Is(err, review.ErrBadWorkspace):
		return http.StatusBadRequest, ErrCodeInvalidRequest
	default:
		return http.StatusInternalServerError, ErrCodeInternalError
	}
}
