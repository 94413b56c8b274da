package server

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/clinebridge/clinebridge/pkg/types"
)

// CreateSessionRequest represents the request body for creating a session.
type CreateSessionRequest struct {
	WorkspacePath string `json:"workspace_path,omitempty"`
}

// SendMessageRequest represents the request body for sending a message.
type SendMessageRequest struct {
	Message string `json:"message"`
}

// QuickMessageRequest represents the request body for a one-shot message.
type QuickMessageRequest struct {
	Message       string `json:"message"`
	WorkspacePath string `json:"workspace_path,omitempty"`
}

// createSession handles POST /cline/sessions
func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	// The body is optional; an empty (or chunked-but-empty) body means
	// "use the default workspace".
	var req CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "Invalid JSON body")
		return
	}

	sess, err := s.registry.Create(r.Context(), req.WorkspacePath)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, sess.Descriptor())
}

// listSessions handles GET /cline/sessions
func (s *Server) listSessions(w http.ResponseWriter, r *http.Request) {
	sessions := s.registry.List(r.Context())

	writeJSON(w, http.StatusOK, types.SessionListResponse{
		Sessions:   sessions,
		TotalCount: len(sessions),
	})
}

// getSession handles GET /cline/sessions/{sessionID}
func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	sess, err := s.registry.Get(r.Context(), sessionID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, sess.Descriptor())
}

// stopSession handles DELETE /cline/sessions/{sessionID}
func (s *Server) stopSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	if !s.registry.Stop(r.Context(), sessionID) {
		writeError(w, http.StatusNotFound, ErrCodeNotFound, "session not found: "+sessionID)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":     "stopped",
		"message":    "Session stopped successfully",
		"session_id": sessionID,
	})
}

// sendMessage handles POST /cline/sessions/{sessionID}/messages
func (s *Server) sendMessage(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var req SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "Invalid JSON body")
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "message is required")
		return
	}

	record, err := s.registry.Send(r.Context(), sessionID, req.Message)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, types.MessageResponse{
		SessionID: sessionID,
		MessageID: record.ID,
		Response:  record.Content,
		Status:    "completed",
	})
}

// getMessages handles GET /cline/sessions/{sessionID}/messages
func (s *Server) getMessages(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "limit must be an integer")
			return
		}
		limit = n
	}

	msgs, err := s.registry.Messages(r.Context(), sessionID, limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, types.SessionMessagesResponse{
		SessionID:  sessionID,
		Messages:   msgs,
		TotalCount: len(msgs),
	})
}

// quickMessage handles POST /cline/quick-message
func (s *Server) quickMessage(w http.ResponseWriter, r *http.Request) {
	var req QuickMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "Invalid JSON body")
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "message is required")
		return
	}

	out, err := s.quick.Run(r.Context(), req.Message, req.WorkspacePath)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"response": out,
	})
}

// sessionHealth handles GET /cline/health
func (s *Server) sessionHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":          "healthy",
		"active_sessions": s.registry.Count(),
		"service":         "Cline Session API",
	})
}

// health handles GET /health
func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "healthy",
		"service": "clinebridge",
	})
}
