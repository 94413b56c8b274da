package review

import (
	"strconv"
	"strings"
	"time"

	"github.com/clinebridge/clinebridge/internal/logging"
	"github.com/clinebridge/clinebridge/pkg/types"
)

const (
	extractedMarker = "📝 Extracted:"
	completedMarker = "📊 Review completed with"

	reviewAuthor = "CodeRabbit"

	// minCommentLength filters out marker lines whose remainder is too
	// short to be a real comment, usually log truncation artifacts.
	minCommentLength = 10
)

// ParseOutput recovers structured comments from the review CLI's log
// output. Each extraction marker line yields one comment; the completion
// summary line is used only for a logged sanity check, never for filtering.
// When no comments could be parsed the result is a single placeholder so
// callers always get at least one entry.
func ParseOutput(output string) []types.ReviewComment {
	var comments []types.ReviewComment
	now := time.Now().UTC().Format(time.RFC3339)

	for _, line := range strings.Split(output, "\n") {
		switch {
		case strings.Contains(line, extractedMarker):
			_, rest, ok := strings.Cut(line, extractedMarker)
			if !ok {
				continue
			}
			text := strings.TrimSpace(strings.ReplaceAll(rest, "...", ""))
			if len(text) <= minCommentLength {
				continue
			}
			comments = append(comments, types.ReviewComment{
				Text:      text,
				Author:    reviewAuthor,
				Location:  "Unknown",
				File:      "Unknown",
				Timestamp: now,
			})

		case strings.Contains(line, completedMarker) && strings.Contains(line, "comments"):
			if expected, ok := parseExpectedCount(line); ok {
				logging.Info().Int("expected_comments", expected).Msg("review CLI reported comment count")
			}
		}
	}

	if len(comments) == 0 {
		comments = append(comments, types.ReviewComment{
			Text:      "Review completed successfully. Check the VS Code interface for detailed comments.",
			Author:    reviewAuthor,
			Location:  "Overall",
			File:      "Workspace",
			Timestamp: now,
		})
	}
	return comments
}

// parseExpectedCount pulls N out of "📊 Review completed with N comments".
func parseExpectedCount(line string) (int, bool) {
	_, rest, ok := strings.Cut(line, "with ")
	if !ok {
		return 0, false
	}
	countPart, _, ok := strings.Cut(rest, " comment")
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(countPart))
	if err != nil {
		return 0, false
	}
	return n, true
}
