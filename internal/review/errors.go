package review

import "fmt"

// stderrLimit bounds how much captured stderr a ToolError carries.
const stderrLimit = 500

// ToolError reports a non-zero exit from an external CLI.
type ToolError struct {
	Tool     string
	ExitCode int
	Stderr   string
}

// NewToolError builds a ToolError with stderr truncated to a sane size.
func NewToolError(tool string, exitCode int, stderr string) *ToolError {
	if len(stderr) > stderrLimit {
		stderr = stderr[:stderrLimit]
	}
	return &ToolError{Tool: tool, ExitCode: exitCode, Stderr: stderr}
}

func (e *ToolError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("%s failed with exit code %d", e.Tool, e.ExitCode)
	}
	return fmt.Sprintf("%s failed with exit code %d: %s", e.Tool, e.ExitCode, e.Stderr)
}
