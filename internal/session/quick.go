package session

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/clinebridge/clinebridge/internal/logging"
	"github.com/clinebridge/clinebridge/internal/review"
)

const defaultQuickTimeout = 5 * time.Minute

// QuickRunner executes the one-shot CLI for sessionless messages. Unlike an
// interactive session there is no channel and no registry entry; the process
// runs once and its trimmed stdout is the reply.
type QuickRunner struct {
	command []string
	dir     string
	timeout time.Duration
}

// NewQuickRunner configures a runner. dir is the working directory for the
// CLI, usually the automation project checkout.
func NewQuickRunner(command []string, dir string, timeout time.Duration) *QuickRunner {
	if timeout <= 0 {
		timeout = defaultQuickTimeout
	}
	return &QuickRunner{command: command, dir: dir, timeout: timeout}
}

// Run sends one message through the one-shot CLI and returns its output.
func (q *QuickRunner) Run(ctx context.Context, message, workspacePath string) (string, error) {
	if len(q.command) == 0 {
		return "", errors.New("quick message command is not configured")
	}

	ctx, cancel := context.WithTimeout(ctx, q.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, q.command[0], q.command[1:]...)
	cmd.Dir = q.dir
	cmd.Env = append(os.Environ(),
		"CLI_MESSAGE="+message,
		"CUSTOM_WORKSPACE="+workspacePath,
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start)

	if ctx.Err() == context.DeadlineExceeded {
		logging.Warn().Dur("elapsed", elapsed).Msg("quick message timed out")
		return "", fmt.Errorf("quick message timed out after %s: %w", q.timeout, context.DeadlineExceeded)
	}
	if err != nil {
		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		logging.Error().Int("exit_code", exitCode).Dur("elapsed", elapsed).Msg("quick message CLI failed")
		return "", review.NewToolError("quick-cli", exitCode, stderr.String())
	}

	logging.Info().Dur("elapsed", elapsed).Msg("quick message completed")
	return strings.TrimSpace(stdout.String()), nil
}
