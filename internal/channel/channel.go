// Package channel implements the file-based request/response protocol used
// to talk to the long-lived automation harness. The harness offers no native
// RPC interface: it reads one message at a time from an input file and
// appends JSON lines (plus a readiness marker) to an output file, so the
// channel is a half-duplex exchange layered over two files in a private
// temp directory.
package channel

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/clinebridge/clinebridge/internal/logging"
)

// State is the channel's protocol state.
type State string

const (
	StateProvisioning     State = "provisioning"
	StateAwaitingReady    State = "awaiting_ready"
	StateIdle             State = "idle"
	StateAwaitingResponse State = "awaiting_response"
	StateFailed           State = "failed"
	StateClosed           State = "closed"
)

// Options configures a channel.
type Options struct {
	// Command is the argv for the harness process.
	Command []string
	// Dir is the working directory the harness is launched from.
	Dir string
	// PollInterval is the cadence for checking the output file.
	PollInterval time.Duration
	// ReadyTimeout bounds the startup handshake.
	ReadyTimeout time.Duration
	// ResponseTimeout bounds each message round trip.
	ResponseTimeout time.Duration
	// StopGrace is how long to wait after SIGTERM before SIGKILL.
	StopGrace time.Duration
	// ReadyMarkers are substrings that signal the harness can accept input.
	ReadyMarkers []string
	// StopSentinel is written to the input file to ask the harness to exit.
	StopSentinel string
}

func (o *Options) withDefaults() {
	if o.PollInterval <= 0 {
		o.PollInterval = 2 * time.Second
	}
	if o.ReadyTimeout <= 0 {
		o.ReadyTimeout = 300 * time.Second
	}
	if o.ResponseTimeout <= 0 {
		o.ResponseTimeout = 300 * time.Second
	}
	if o.StopGrace <= 0 {
		o.StopGrace = 3 * time.Second
	}
	if len(o.ReadyMarkers) == 0 {
		o.ReadyMarkers = []string{"SESSION_READY", "READY"}
	}
	if o.StopSentinel == "" {
		o.StopSentinel = "STOP_SESSION"
	}
}

// Response is one structured reply read from the output file. Success is a
// pointer because the harness may omit it: a reply carrying only a response
// field is still a success.
type Response struct {
	Success   *bool  `json:"success"`
	Response  string `json:"response"`
	Err       string `json:"error,omitempty"`
	MessageID int64  `json:"messageId"`
	Timestamp string `json:"timestamp,omitempty"`
}

// Channel owns the two channel files and the harness process for one
// session. All methods are safe for concurrent use, but the protocol itself
// is half duplex: only one Exchange may be outstanding at a time.
type Channel struct {
	opts      Options
	sessionID string

	dir        string
	inputPath  string
	outputPath string

	proc *process

	mu      sync.Mutex
	state   State
	lastSeq int64

	log zerolog.Logger
}

// Open provisions the channel files, launches the harness process, and runs
// the readiness handshake. On any failure the process is torn down and the
// temp directory removed; a successfully opened channel is idle.
func Open(ctx context.Context, sessionID, workspacePath string, opts Options) (*Channel, error) {
	opts.withDefaults()

	c := &Channel{
		opts:      opts,
		sessionID: sessionID,
		state:     StateProvisioning,
		log:       logging.Session(sessionID),
	}

	if err := c.provision(); err != nil {
		return nil, err
	}

	env := map[string]string{
		"CUSTOM_WORKSPACE":    workspacePath,
		"SESSION_ID":          sessionID,
		"SESSION_INPUT_FILE":  c.inputPath,
		"SESSION_OUTPUT_FILE": c.outputPath,
		"INTERACTIVE_MODE":    "true",
	}

	proc, err := spawn(opts.Command, opts.Dir, env)
	if err != nil {
		c.removeFiles()
		c.setState(StateFailed)
		return nil, &StartupError{Output: err.Error()}
	}
	c.proc = proc
	c.setState(StateAwaitingReady)

	c.log.Info().
		Int("pid", proc.pid()).
		Str("channel_dir", c.dir).
		Msg("harness process started")

	if err := c.awaitReady(ctx); err != nil {
		c.teardown()
		return nil, err
	}

	c.setState(StateIdle)
	return c, nil
}

// provision creates the private temp directory and the two empty files.
func (c *Channel) provision() error {
	dir, err := os.MkdirTemp("", fmt.Sprintf("clinebridge-session-%s-", c.sessionID))
	if err != nil {
		return fmt.Errorf("failed to create channel directory: %w", err)
	}
	c.dir = dir
	c.inputPath = filepath.Join(dir, "input.txt")
	c.outputPath = filepath.Join(dir, "output.txt")

	for _, path := range []string{c.inputPath, c.outputPath} {
		if err := os.WriteFile(path, nil, 0644); err != nil {
			os.RemoveAll(dir)
			return fmt.Errorf("failed to create channel file: %w", err)
		}
	}
	return nil
}

// awaitReady polls the output file for a readiness marker until the ready
// deadline. A harness exit during the wait fails immediately with the
// captured process output.
func (c *Channel) awaitReady(ctx context.Context) error {
	start := time.Now()
	err := c.waitOutput(ctx, c.opts.ReadyTimeout, func() (bool, error) {
		if exited, code := c.processExited(); exited {
			return false, &StartupError{ExitCode: code, Output: c.processOutput()}
		}
		data, err := os.ReadFile(c.outputPath)
		if err != nil {
			// Transient: the harness may recreate the file.
			return false, nil
		}
		content := string(data)
		for _, marker := range c.opts.ReadyMarkers {
			if strings.Contains(content, marker) {
				return true, nil
			}
		}
		return false, nil
	})
	if err != nil {
		if _, ok := err.(*TimeoutError); ok {
			c.log.Error().
				Dur("elapsed", time.Since(start)).
				Msg("readiness handshake timed out")
		}
		return err
	}

	c.log.Info().Dur("elapsed", time.Since(start)).Msg("harness ready")
	return nil
}

// Exchange writes text to the input file and waits for a reply whose
// sequence number is strictly greater than the last one consumed. The write
// replaces the file's contents; the harness clears it after reading.
func (c *Channel) Exchange(ctx context.Context, text string) (*Response, error) {
	c.mu.Lock()
	switch c.state {
	case StateIdle:
		c.state = StateAwaitingResponse
	case StateFailed, StateClosed:
		state := c.state
		c.mu.Unlock()
		return nil, &ProtocolError{Reason: fmt.Sprintf("channel is %s", state)}
	default:
		c.mu.Unlock()
		return nil, ErrBusy
	}
	c.mu.Unlock()

	if err := os.WriteFile(c.inputPath, []byte(text), 0644); err != nil {
		c.setState(StateFailed)
		return nil, &ProtocolError{Reason: "failed to write input file", Err: err}
	}

	var resp *Response
	err := c.waitOutput(ctx, c.opts.ResponseTimeout, func() (bool, error) {
		if exited, code := c.processExited(); exited {
			return false, &ProtocolError{
				Reason: fmt.Sprintf("harness exited with code %d while awaiting response", code),
			}
		}
		if r := c.scanResponse(); r != nil {
			resp = r
			return true, nil
		}
		return false, nil
	})
	if err != nil {
		c.setState(StateFailed)
		return nil, err
	}

	c.mu.Lock()
	c.lastSeq = resp.MessageID
	c.state = StateIdle
	c.mu.Unlock()

	if resp.Err != "" || (resp.Success != nil && !*resp.Success) {
		return resp, &RemoteError{Message: resp.Err, Seq: resp.MessageID}
	}
	return resp, nil
}

// scanResponse reads the output file and returns the most recent line that
// parses as a response with a sequence number newer than the watermark.
// The output file accumulates the readiness marker plus every reply, so
// stale and malformed lines are skipped rather than treated as errors.
func (c *Channel) scanResponse() *Response {
	data, err := os.ReadFile(c.outputPath)
	if err != nil {
		return nil // momentarily missing: retry on the next tick
	}

	c.mu.Lock()
	watermark := c.lastSeq
	c.mu.Unlock()

	lines := strings.Split(string(data), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if line == "" || !strings.HasPrefix(line, "{") {
			continue
		}

		var probe struct {
			Response *string `json:"response"`
			Err      *string `json:"error"`
		}
		if err := json.Unmarshal([]byte(line), &probe); err != nil {
			continue // partial write or garbage
		}
		if probe.Response == nil && probe.Err == nil {
			continue
		}

		var resp Response
		if err := json.Unmarshal([]byte(line), &resp); err != nil {
			continue
		}
		if resp.MessageID <= watermark {
			continue
		}
		return &resp
	}
	return nil
}

// Close asks the harness to stop, terminates its process group, and removes
// the channel files. Missing files are not an error and Close is idempotent.
func (c *Channel) Close(ctx context.Context) error {
	c.mu.Lock()
	if c.state == StateClosed {
		c.mu.Unlock()
		return nil
	}
	c.state = StateClosed
	c.mu.Unlock()

	// Best effort: a healthy harness exits on its own when it sees the
	// sentinel, which keeps teardown inside VS Code graceful.
	if err := os.WriteFile(c.inputPath, []byte(c.opts.StopSentinel), 0644); err != nil {
		c.log.Debug().Err(err).Msg("could not write stop sentinel")
	}

	c.teardown()
	c.log.Info().Msg("channel closed")
	return nil
}

// teardown kills the process and removes the files without touching state.
func (c *Channel) teardown() {
	if c.proc != nil {
		c.proc.terminate(c.opts.StopGrace)
	}
	c.removeFiles()
}

func (c *Channel) removeFiles() {
	if c.dir != "" {
		os.RemoveAll(c.dir)
	}
}

// State returns the current protocol state.
func (c *Channel) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// LastSeq returns the highest response sequence number consumed so far.
func (c *Channel) LastSeq() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastSeq
}

// InputPath returns the path of the input channel file.
func (c *Channel) InputPath() string { return c.inputPath }

// OutputPath returns the path of the output channel file.
func (c *Channel) OutputPath() string { return c.outputPath }

func (c *Channel) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// processExited reports whether the harness process has exited and, if so,
// its exit code. A channel without a process (unit tests drive the files
// directly) is never considered exited.
func (c *Channel) processExited() (bool, int) {
	if c.proc == nil {
		return false, 0
	}
	return c.proc.exited()
}

// processOutput returns the captured stdout/stderr of the harness.
func (c *Channel) processOutput() string {
	if c.proc == nil {
		return ""
	}
	return c.proc.output()
}
