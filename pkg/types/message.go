package types

import "time"

// Message roles.
const (
	RoleUser  = "user"
	RoleAgent = "agent"
)

// MessageRecord is a single entry in a session's conversation history.
type MessageRecord struct {
	ID        string         `json:"id"`
	Role      string         `json:"role"`
	Content   string         `json:"content"`
	Timestamp time.Time      `json:"timestamp"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// MessageResponse is returned after a successful send.
type MessageResponse struct {
	SessionID string `json:"session_id"`
	MessageID string `json:"message_id"`
	Response  string `json:"response"`
	Status    string `json:"status"`
}
