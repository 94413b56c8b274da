package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/clinebridge/clinebridge/internal/event"
)

// ReviewRequest represents the request body for a review run.
type ReviewRequest struct {
	WorkspacePath  string `json:"workspace_path"`
	TimeoutMinutes int    `json:"timeout_minutes,omitempty"`
}

// runReview handles POST /review
func (s *Server) runReview(w http.ResponseWriter, r *http.Request) {
	var req ReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "Invalid JSON body")
		return
	}
	if req.WorkspacePath == "" {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "workspace_path is required")
		return
	}

	timeout := time.Duration(req.TimeoutMinutes) * time.Minute
	result, err := s.reviewer.Run(r.Context(), req.WorkspacePath, timeout)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	if s.bus != nil {
		s.bus.Publish(event.Event{Type: event.ReviewCompleted, Data: map[string]any{
			"workspace_path": req.WorkspacePath,
			"comment_count":  result.CommentCount,
		}})
	}

	writeJSON(w, http.StatusOK, result)
}

// reviewHealth handles GET /review/health
func (s *Server) reviewHealth(w http.ResponseWriter, r *http.Request) {
	version, err := s.reviewer.Health(r.Context())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeExternalToolFailure, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "healthy",
		"cli_version": version,
		"service":     "Review API",
	})
}
