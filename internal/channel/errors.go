package channel

import (
	"errors"
	"fmt"
)

// ErrBusy is returned when an Exchange is attempted while another request is
// already outstanding on the channel.
var ErrBusy = errors.New("channel busy: request already in flight")

// StartupError means the harness process exited or failed its readiness
// handshake. Output carries the captured stdout/stderr for diagnosis.
type StartupError struct {
	ExitCode int
	Output   string
}

func (e *StartupError) Error() string {
	if e.Output == "" {
		return fmt.Sprintf("harness failed to start (exit code %d)", e.ExitCode)
	}
	return fmt.Sprintf("harness failed to start (exit code %d): %s", e.ExitCode, e.Output)
}

// TimeoutError means a handshake or response wait exceeded its deadline.
type TimeoutError struct {
	Op      string
	Elapsed string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s timed out after %s", e.Op, e.Elapsed)
}

// ProtocolError means the channel files or the harness process broke outside
// the expected polling tolerance.
type ProtocolError struct {
	Reason string
	Err    error
}

func (e *ProtocolError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("channel protocol failure: %s: %v", e.Reason, e.Err)
	}
	return "channel protocol failure: " + e.Reason
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// RemoteError means the harness answered with an explicit error payload.
type RemoteError struct {
	Message string
	Seq     int64
}

func (e *RemoteError) Error() string {
	if e.Message == "" {
		return "harness reported an unspecified error"
	}
	return "harness reported an error: " + e.Message
}
