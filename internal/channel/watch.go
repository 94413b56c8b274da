package channel

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/fsnotify/fsnotify"
)

// waitOutput runs check on a fixed cadence until it reports done, returns a
// fatal error, or the deadline expires. A filesystem watcher on the channel
// directory wakes the loop early when the harness writes; the ticker remains
// the fallback and the context deadline stays authoritative, so a lost
// notification only costs one poll interval.
func (c *Channel) waitOutput(ctx context.Context, deadline time.Duration, check func() (bool, error)) error {
	ctx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	var wake <-chan fsnotify.Event
	if watcher, err := fsnotify.NewWatcher(); err == nil {
		defer watcher.Close()
		if err := watcher.Add(c.dir); err == nil {
			wake = watcher.Events
		}
	}

	sched := backoff.WithContext(backoff.NewConstantBackOff(c.opts.PollInterval), ctx)
	start := time.Now()

	for {
		done, err := check()
		if err != nil {
			return err
		}
		if done {
			return nil
		}

		next := sched.NextBackOff()
		if next == backoff.Stop {
			return c.timeout(start)
		}

		timer := time.NewTimer(next)
		select {
		case <-ctx.Done():
			timer.Stop()
			return c.timeout(start)
		case <-wake:
			timer.Stop()
		case <-timer.C:
		}
	}
}

func (c *Channel) timeout(start time.Time) *TimeoutError {
	op := "response wait"
	if c.State() == StateAwaitingReady {
		op = "readiness handshake"
	}
	return &TimeoutError{Op: op, Elapsed: time.Since(start).Round(time.Millisecond).String()}
}
