// Package session manages the lifecycle of interactive agent sessions: one
// harness process and one file channel per session, tracked in memory.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/clinebridge/clinebridge/internal/archive"
	"github.com/clinebridge/clinebridge/internal/channel"
	"github.com/clinebridge/clinebridge/internal/event"
	"github.com/clinebridge/clinebridge/internal/logging"
	"github.com/clinebridge/clinebridge/pkg/types"
)

// Options configures a Registry.
type Options struct {
	// Channel is the template for every session's file channel; the
	// registry fills in the per-session identity.
	Channel channel.Options

	// DefaultWorkspace is used when a create request omits the workspace.
	DefaultWorkspace string

	// Archive receives final transcripts on stop. Optional.
	Archive *archive.Archive

	// Bus receives lifecycle events. Optional.
	Bus *event.Bus
}

// managed couples a session record with its live channel.
type managed struct {
	session *types.Session
	ch      *channel.Channel
}

// Registry owns every live session. The status field is the per-session
// mutual exclusion: transitions happen under the registry lock, blocking
// channel waits happen outside it, so sessions proceed in parallel.
type Registry struct {
	opts Options

	mu       sync.Mutex
	sessions map[string]*managed
}

// NewRegistry creates an empty registry.
func NewRegistry(opts Options) *Registry {
	return &Registry{
		opts:     opts,
		sessions: make(map[string]*managed),
	}
}

// Create provisions a channel, launches the harness, and blocks until the
// readiness handshake completes. The session is registered only on success;
// a failed create leaves no trace in the registry.
func (r *Registry) Create(ctx context.Context, workspacePath string) (*types.Session, error) {
	if workspacePath == "" {
		workspacePath = r.opts.DefaultWorkspace
	}

	sess := &types.Session{
		ID:            ulid.Make().String(),
		WorkspacePath: workspacePath,
		Status:        types.StatusInitializing,
		CreatedAt:     time.Now().UTC(),
		Messages:      []types.MessageRecord{},
	}
	id := sess.ID
	log := logging.Session(id)
	log.Info().Str("workspace", workspacePath).Msg("creating session")

	ch, err := channel.Open(ctx, id, workspacePath, r.opts.Channel)
	if err != nil {
		log.Error().Err(err).Msg("session startup failed")
		return nil, err
	}
	sess.Status = types.StatusReady

	r.mu.Lock()
	r.sessions[id] = &managed{session: sess, ch: ch}
	r.mu.Unlock()

	r.publish(event.SessionCreated, sess.Descriptor())
	log.Info().Msg("session ready")
	return snapshot(sess), nil
}

// Get returns a point-in-time copy of a session, or ErrNotFound.
func (r *Registry) Get(ctx context.Context, id string) (*types.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return snapshot(m.session), nil
}

// List returns descriptors for every live session.
func (r *Registry) List(ctx context.Context) []types.SessionDescriptor {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]types.SessionDescriptor, 0, len(r.sessions))
	for _, m := range r.sessions {
		out = append(out, m.session.Descriptor())
	}
	return out
}

// Send delivers one user message and blocks for the agent's reply. Only a
// ready session accepts a message; concurrent sends to the same session are
// rejected with ErrNotReady while the first is still processing.
func (r *Registry) Send(ctx context.Context, id, text string) (*types.MessageRecord, error) {
	r.mu.Lock()
	m, ok := r.sessions[id]
	if !ok {
		r.mu.Unlock()
		return nil, ErrNotFound
	}
	if m.session.Status != types.StatusReady {
		status := m.session.Status
		r.mu.Unlock()
		return nil, fmt.Errorf("session %s is %s: %w", id, status, ErrNotReady)
	}
	m.session.Status = types.StatusProcessing
	m.session.Messages = append(m.session.Messages, types.MessageRecord{
		ID:        ulid.Make().String(),
		Role:      types.RoleUser,
		Content:   text,
		Timestamp: time.Now().UTC(),
	})
	r.mu.Unlock()

	log := logging.Session(id)
	log.Debug().Int("length", len(text)).Msg("sending message to harness")

	resp, err := m.ch.Exchange(ctx, text)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, stillHere := r.sessions[id]; !stillHere {
		// Stopped while the exchange was in flight; teardown wins.
		if err != nil {
			return nil, fmt.Errorf("session %s: %w", id, ErrStopped)
		}
		return nil, ErrStopped
	}

	if err != nil {
		m.session.Status = types.StatusError
		log.Error().Err(err).Msg("message exchange failed")
		return nil, err
	}

	record := types.MessageRecord{
		ID:        ulid.Make().String(),
		Role:      types.RoleAgent,
		Content:   resp.Response,
		Timestamp: time.Now().UTC(),
		Metadata:  map[string]any{"sequence": resp.MessageID},
	}
	m.session.Messages = append(m.session.Messages, record)
	m.session.Status = types.StatusReady

	r.publish(event.MessageCreated, map[string]any{
		"session_id": id,
		"message_id": record.ID,
	})
	return &record, nil
}

// Stop tears a session down: stop sentinel, process termination, channel
// file removal, transcript archival. Returns false for unknown ids, which
// makes repeated stops harmless.
func (r *Registry) Stop(ctx context.Context, id string) bool {
	r.mu.Lock()
	m, ok := r.sessions[id]
	if ok {
		delete(r.sessions, id)
	}
	r.mu.Unlock()
	if !ok {
		return false
	}

	log := logging.Session(id)
	if err := m.ch.Close(ctx); err != nil {
		log.Warn().Err(err).Msg("channel close reported an error")
	}
	m.session.Status = types.StatusStopped

	if r.opts.Archive != nil {
		if err := r.opts.Archive.SaveTranscript(ctx, m.session); err != nil {
			log.Warn().Err(err).Msg("failed to archive transcript")
		}
	}

	r.publish(event.SessionStopped, map[string]any{"session_id": id})
	log.Info().Msg("session stopped")
	return true
}

// StopAll stops every live session, used on server shutdown.
func (r *Registry) StopAll(ctx context.Context) {
	r.mu.Lock()
	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	r.mu.Unlock()

	for _, id := range ids {
		r.Stop(ctx, id)
	}
}

// Messages returns the last limit records for a session, all of them when
// limit is zero or negative.
func (r *Registry) Messages(ctx context.Context, id string, limit int) ([]types.MessageRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}

	msgs := m.session.Messages
	if limit > 0 && limit < len(msgs) {
		msgs = msgs[len(msgs)-limit:]
	}
	out := make([]types.MessageRecord, len(msgs))
	copy(out, msgs)
	return out, nil
}

// Count reports the number of live sessions.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

func (r *Registry) publish(t event.Type, data any) {
	if r.opts.Bus != nil {
		r.opts.Bus.Publish(event.Event{Type: t, Data: data})
	}
}

// snapshot copies a session so callers can read it without holding the
// registry lock.
func snapshot(s *types.Session) *types.Session {
	out := *s
	out.Messages = make([]types.MessageRecord, len(s.Messages))
	copy(out.Messages, s.Messages)
	return &out
}
