package channel

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinebridge/clinebridge/internal/logging"
)

// newTestChannel builds an idle channel with provisioned files and no
// process, so tests can play the harness side by writing the files directly.
func newTestChannel(t *testing.T) *Channel {
	t.Helper()

	opts := Options{
		PollInterval:    10 * time.Millisecond,
		ReadyTimeout:    2 * time.Second,
		ResponseTimeout: 2 * time.Second,
		StopGrace:       100 * time.Millisecond,
	}
	opts.withDefaults()

	c := &Channel{
		opts:      opts,
		sessionID: "test",
		state:     StateIdle,
		log:       logging.Session("test"),
	}
	require.NoError(t, c.provision())
	t.Cleanup(c.removeFiles)
	return c
}

// reply appends a well-formed response line to the output file.
func reply(t *testing.T, c *Channel, seq int64, text string) {
	t.Helper()
	f, err := os.OpenFile(c.OutputPath(), os.O_APPEND|os.O_WRONLY, 0644)
	require.NoError(t, err)
	defer f.Close()
	_, err = fmt.Fprintf(f, "{\"success\":true,\"messageId\":%d,\"response\":%q}\n", seq, text)
	require.NoError(t, err)
}

func TestExchange_RoundTrip(t *testing.T) {
	c := newTestChannel(t)

	done := make(chan struct{})
	go func() {
		defer close(done)
		// Wait for the request to land in the input file, then answer.
		for {
			data, err := os.ReadFile(c.InputPath())
			if err == nil && len(data) > 0 {
				assert.Equal(t, "hello agent", string(data))
				break
			}
			time.Sleep(5 * time.Millisecond)
		}
		reply(t, c, 1, "hello human")
	}()

	resp, err := c.Exchange(context.Background(), "hello agent")
	<-done

	require.NoError(t, err)
	assert.Equal(t, "hello human", resp.Response)
	assert.Equal(t, int64(1), resp.MessageID)
	assert.Equal(t, StateIdle, c.State())
	assert.Equal(t, int64(1), c.LastSeq())
}

func TestExchange_OrderedSequences(t *testing.T) {
	c := newTestChannel(t)

	for i := int64(1); i <= 3; i++ {
		reply(t, c, i, fmt.Sprintf("reply %d", i))
		resp, err := c.Exchange(context.Background(), fmt.Sprintf("msg %d", i))
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("reply %d", i), resp.Response)
		assert.Greater(t, resp.MessageID, i-1)
	}
	assert.Equal(t, int64(3), c.LastSeq())
}

func TestExchange_IgnoresStaleResponse(t *testing.T) {
	c := newTestChannel(t)
	c.lastSeq = 2

	// Only stale replies present: the exchange must time out rather than
	// hand back old data.
	reply(t, c, 1, "old")
	reply(t, c, 2, "older")
	c.opts.ResponseTimeout = 100 * time.Millisecond

	_, err := c.Exchange(context.Background(), "anything")
	var timeoutErr *TimeoutError
	require.ErrorAs(t, err, &timeoutErr)
	assert.Equal(t, StateFailed, c.State())
}

func TestExchange_SkipsMalformedAndMarkerLines(t *testing.T) {
	c := newTestChannel(t)

	content := "SESSION_READY\n" +
		"{\"unrelated\":true}\n" +
		"{broken json\n" +
		"{\"success\":true,\"messageId\":1,\"response\":\"real\"}\n"
	require.NoError(t, os.WriteFile(c.OutputPath(), []byte(content), 0644))

	resp, err := c.Exchange(context.Background(), "msg")
	require.NoError(t, err)
	assert.Equal(t, "real", resp.Response)
}

func TestExchange_SuccessFieldOmitted(t *testing.T) {
	c := newTestChannel(t)

	// The harness is not required to emit a success field; a reply with only
	// a response and sequence number is still a success.
	line := "{\"messageId\":1,\"response\":\"plain reply\"}\n"
	require.NoError(t, os.WriteFile(c.OutputPath(), []byte(line), 0644))

	resp, err := c.Exchange(context.Background(), "msg")
	require.NoError(t, err)
	assert.Equal(t, "plain reply", resp.Response)
	assert.Equal(t, StateIdle, c.State())
	assert.Equal(t, int64(1), c.LastSeq())
}

func TestExchange_ErrorPayload(t *testing.T) {
	c := newTestChannel(t)

	line := "{\"success\":false,\"messageId\":1,\"error\":\"extension crashed\"}\n"
	require.NoError(t, os.WriteFile(c.OutputPath(), []byte(line), 0644))

	_, err := c.Exchange(context.Background(), "msg")
	var remoteErr *RemoteError
	require.ErrorAs(t, err, &remoteErr)
	assert.Contains(t, remoteErr.Error(), "extension crashed")

	// An explicit error payload still advances the watermark and leaves the
	// channel usable; the session layer decides what to do with it.
	assert.Equal(t, int64(1), c.LastSeq())
	assert.Equal(t, StateIdle, c.State())
}

func TestExchange_RejectsConcurrentRequest(t *testing.T) {
	c := newTestChannel(t)
	c.state = StateAwaitingResponse

	_, err := c.Exchange(context.Background(), "second")
	assert.ErrorIs(t, err, ErrBusy)
}

func TestExchange_FailedChannelRejects(t *testing.T) {
	c := newTestChannel(t)
	c.state = StateFailed

	_, err := c.Exchange(context.Background(), "msg")
	var protoErr *ProtocolError
	assert.ErrorAs(t, err, &protoErr)
}

func TestAwaitReady_MarkerAppearsLate(t *testing.T) {
	c := newTestChannel(t)
	c.state = StateAwaitingReady

	go func() {
		time.Sleep(30 * time.Millisecond)
		os.WriteFile(c.OutputPath(), []byte("READY\n"), 0644)
	}()

	require.NoError(t, c.awaitReady(context.Background()))
}

func TestAwaitReady_Timeout(t *testing.T) {
	c := newTestChannel(t)
	c.state = StateAwaitingReady
	c.opts.ReadyTimeout = 50 * time.Millisecond

	err := c.awaitReady(context.Background())
	var timeoutErr *TimeoutError
	require.ErrorAs(t, err, &timeoutErr)
	assert.Contains(t, timeoutErr.Error(), "readiness handshake")
}

func TestClose_RemovesFilesAndIsIdempotent(t *testing.T) {
	c := newTestChannel(t)

	require.NoError(t, c.Close(context.Background()))
	_, err := os.Stat(c.InputPath())
	assert.True(t, os.IsNotExist(err))

	require.NoError(t, c.Close(context.Background()))
	assert.Equal(t, StateClosed, c.State())
}

// writeFakeHarness writes a shell script that behaves like the real
// automation harness: signals readiness, echoes each input message back as a
// sequenced JSON reply, and exits on the stop sentinel.
func writeFakeHarness(t *testing.T) string {
	t.Helper()
	script := `#!/bin/sh
echo "SESSION_READY" > "$SESSION_OUTPUT_FILE"
i=0
while true; do
  msg=$(cat "$SESSION_INPUT_FILE" 2>/dev/null)
  if [ "$msg" = "STOP_SESSION" ]; then
    exit 0
  fi
  if [ -n "$msg" ]; then
    i=$((i+1))
    : > "$SESSION_INPUT_FILE"
    printf '{"success":true,"messageId":%d,"response":"echo: %s"}\n' "$i" "$msg" >> "$SESSION_OUTPUT_FILE"
  fi
  sleep 0.05
done
`
	path := filepath.Join(t.TempDir(), "harness.sh")
	require.NoError(t, os.WriteFile(path, []byte(script), 0755))
	return path
}

func TestOpen_WithFakeHarness(t *testing.T) {
	opts := Options{
		Command:         []string{"/bin/sh", writeFakeHarness(t)},
		PollInterval:    20 * time.Millisecond,
		ReadyTimeout:    5 * time.Second,
		ResponseTimeout: 5 * time.Second,
		StopGrace:       200 * time.Millisecond,
	}

	c, err := Open(context.Background(), "itest", t.TempDir(), opts)
	require.NoError(t, err)
	defer c.Close(context.Background())

	resp, err := c.Exchange(context.Background(), "first")
	require.NoError(t, err)
	assert.Equal(t, "echo: first", resp.Response)
	assert.Equal(t, int64(1), resp.MessageID)

	resp, err = c.Exchange(context.Background(), "second")
	require.NoError(t, err)
	assert.Equal(t, "echo: second", resp.Response)
	assert.Equal(t, int64(2), resp.MessageID)

	require.NoError(t, c.Close(context.Background()))
}

func TestOpen_StartupFailure(t *testing.T) {
	opts := Options{
		Command:      []string{"/bin/sh", "-c", "echo harness exploded; exit 3"},
		PollInterval: 20 * time.Millisecond,
		ReadyTimeout: 5 * time.Second,
	}

	_, err := Open(context.Background(), "boom", t.TempDir(), opts)
	var startupErr *StartupError
	require.ErrorAs(t, err, &startupErr)
	assert.Equal(t, 3, startupErr.ExitCode)
	assert.Contains(t, startupErr.Output, "harness exploded")
}

func TestOpen_ReadyTimeout(t *testing.T) {
	opts := Options{
		Command:      []string{"/bin/sh", "-c", "sleep 60"},
		PollInterval: 20 * time.Millisecond,
		ReadyTimeout: 150 * time.Millisecond,
		StopGrace:    100 * time.Millisecond,
	}

	_, err := Open(context.Background(), "slow", t.TempDir(), opts)
	var timeoutErr *TimeoutError
	require.ErrorAs(t, err, &timeoutErr)
}
