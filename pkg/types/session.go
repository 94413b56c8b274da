// Package types provides the core data types for the clinebridge server.
package types

import "time"

// SessionStatus represents the lifecycle state of an agent session.
type SessionStatus string

const (
	StatusInitializing SessionStatus = "initializing"
	StatusReady        SessionStatus = "ready"
	StatusProcessing   SessionStatus = "processing"
	StatusError        SessionStatus = "error"
	StatusStopped      SessionStatus = "stopped"
)

// Terminal reports whether the status is final for a session instance.
func (s SessionStatus) Terminal() bool {
	return s == StatusStopped || s == StatusError
}

// Session represents a persistent agent session backed by an external
// automation process. Messages is append-only while the session is active.
type Session struct {
	ID            string          `json:"session_id"`
	WorkspacePath string          `json:"workspace_path"`
	Status        SessionStatus   `json:"status"`
	CreatedAt     time.Time       `json:"created_at"`
	Messages      []MessageRecord `json:"messages,omitempty"`
}

// Descriptor returns the wire representation of the session without the
// full message history.
func (s *Session) Descriptor() SessionDescriptor {
	return SessionDescriptor{
		SessionID:     s.ID,
		WorkspacePath: s.WorkspacePath,
		CreatedAt:     s.CreatedAt,
		Status:        s.Status,
		MessageCount:  len(s.Messages),
	}
}

// SessionDescriptor is the client-visible summary of a session.
type SessionDescriptor struct {
	SessionID     string        `json:"session_id"`
	WorkspacePath string        `json:"workspace_path"`
	CreatedAt     time.Time     `json:"created_at"`
	Status        SessionStatus `json:"status"`
	MessageCount  int           `json:"message_count"`
}

// SessionListResponse wraps a list of session descriptors.
type SessionListResponse struct {
	Sessions   []SessionDescriptor `json:"sessions"`
	TotalCount int                 `json:"total_count"`
}

// SessionMessagesResponse wraps a slice of a session's message history.
type SessionMessagesResponse struct {
	SessionID  string          `json:"session_id"`
	Messages   []MessageRecord `json:"messages"`
	TotalCount int             `json:"total_count"`
}
