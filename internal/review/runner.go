// Package review runs the one-shot workspace review CLI and turns its log
// output into structured comments.
package review

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/clinebridge/clinebridge/internal/logging"
	"github.com/clinebridge/clinebridge/pkg/types"
)

const (
	defaultReviewTimeout = 10 * time.Minute
	reviewSessionID      = "review-api-session"
)

// ErrBadWorkspace marks an invalid workspace path in a review request.
var ErrBadWorkspace = errors.New("invalid workspace path")

// Options configures a Runner.
type Options struct {
	// Command is the review CLI argv.
	Command []string
	// Dir is the working directory for the CLI, the automation project
	// checkout.
	Dir string
	// Timeout bounds a run when the request does not override it.
	Timeout time.Duration
	// IgnoreGlobs drops parsed comments whose file path matches.
	IgnoreGlobs []string
}

// Runner executes review runs. It is stateless and safe for concurrent use.
type Runner struct {
	opts Options
}

// NewRunner creates a Runner.
func NewRunner(opts Options) *Runner {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultReviewTimeout
	}
	return &Runner{opts: opts}
}

// Run reviews workspacePath and blocks until the CLI finishes or the
// timeout expires. A zero timeout uses the configured default.
func (r *Runner) Run(ctx context.Context, workspacePath string, timeout time.Duration) (*types.ReviewResult, error) {
	if len(r.opts.Command) == 0 {
		return nil, errors.New("review command is not configured")
	}

	info, err := os.Stat(workspacePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %s does not exist", ErrBadWorkspace, workspacePath)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrBadWorkspace, workspacePath)
	}

	if timeout <= 0 {
		timeout = r.opts.Timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	logging.Info().Str("workspace", workspacePath).Dur("timeout", timeout).Msg("starting review")

	cmd := exec.CommandContext(ctx, r.opts.Command[0], r.opts.Command[1:]...)
	cmd.Dir = r.opts.Dir
	cmd.Env = append(os.Environ(), "CUSTOM_WORKSPACE="+workspacePath)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	runErr := cmd.Run()
	elapsed := time.Since(start)

	if ctx.Err() == context.DeadlineExceeded {
		logging.Warn().Dur("elapsed", elapsed).Msg("review timed out")
		return nil, fmt.Errorf("review timed out after %s: %w", timeout, context.DeadlineExceeded)
	}
	if runErr != nil {
		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		logging.Error().Int("exit_code", exitCode).Dur("elapsed", elapsed).Msg("review CLI failed")
		return nil, NewToolError("review-cli", exitCode, stderr.String())
	}

	comments := r.filterIgnored(ParseOutput(stdout.String()))
	seconds := math.Round(elapsed.Seconds()*100) / 100

	logging.Info().
		Int("comments", len(comments)).
		Dur("elapsed", elapsed).
		Msg("review completed")

	return &types.ReviewResult{
		Success:         true,
		Comments:        comments,
		CommentCount:    len(comments),
		SessionID:       reviewSessionID,
		DurationSeconds: seconds,
		Message:         fmt.Sprintf("Review completed successfully in %.1f seconds", elapsed.Seconds()),
	}, nil
}

// filterIgnored drops comments whose file matches a configured glob. The
// parser's placeholder comment is never filtered.
func (r *Runner) filterIgnored(comments []types.ReviewComment) []types.ReviewComment {
	if len(r.opts.IgnoreGlobs) == 0 {
		return comments
	}

	kept := comments[:0]
	for _, c := range comments {
		if c.File == "Workspace" && c.Location == "Overall" {
			kept = append(kept, c)
			continue
		}
		if r.ignored(c.File) {
			continue
		}
		kept = append(kept, c)
	}
	return kept
}

func (r *Runner) ignored(file string) bool {
	for _, glob := range r.opts.IgnoreGlobs {
		if ok, err := doublestar.Match(glob, file); err == nil && ok {
			return true
		}
	}
	return false
}

// Health reports whether the review CLI's executable is reachable. The
// version string is best effort.
func (r *Runner) Health(ctx context.Context) (string, error) {
	if len(r.opts.Command) == 0 {
		return "", errors.New("review command is not configured")
	}

	bin := r.opts.Command[0]
	if _, err := exec.LookPath(bin); err != nil {
		return "", fmt.Errorf("review CLI unavailable: %w", err)
	}

	out, err := exec.CommandContext(ctx, bin, "--version").Output()
	if err != nil {
		return "unavailable", nil
	}
	return strings.TrimSpace(string(out)), nil
}
