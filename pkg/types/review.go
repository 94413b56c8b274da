package types

// ReviewComment is a single structured comment recovered from the review
// CLI's log output.
type ReviewComment struct {
	Text      string `json:"text"`
	Author    string `json:"user"`
	Location  string `json:"range"`
	File      string `json:"filePath"`
	Timestamp string `json:"timestamp"`
}

// ReviewResult is the outcome of one review run.
type ReviewResult struct {
	Success         bool            `json:"success"`
	Comments        []ReviewComment `json:"comments"`
	CommentCount    int             `json:"comment_count"`
	SessionID       string          `json:"session_id"`
	DurationSeconds float64         `json:"duration_seconds"`
	Message         string          `json:"message"`
}
