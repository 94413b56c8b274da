// Package archive persists transcripts of stopped sessions as JSON files so
// they survive the in-memory registry.
package archive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/clinebridge/clinebridge/pkg/types"
)

var ErrNotFound = errors.New("transcript not found")

// Archive is a file-backed transcript store rooted at a base directory.
// Writes go through a temp file plus rename and are serialized per path.
type Archive struct {
	dir   string
	mu    sync.Mutex
	locks map[string]*fileLock
}

// New creates an archive rooted at dir. The directory tree is created lazily
// on the first write.
func New(dir string) *Archive {
	return &Archive{
		dir:   dir,
		locks: make(map[string]*fileLock),
	}
}

func (a *Archive) transcriptPath(sessionID string) string {
	return filepath.Join(a.dir, "sessions", sessionID+".json")
}

// SaveTranscript writes the session's final state, messages included.
func (a *Archive) SaveTranscript(ctx context.Context, s *types.Session) error {
	path := a.transcriptPath(s.ID)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create archive directory: %w", err)
	}

	lock := a.getLock(path)
	if err := lock.lock(); err != nil {
		return fmt.Errorf("failed to acquire archive lock: %w", err)
	}
	defer lock.unlock()

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal transcript: %w", err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write transcript: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename transcript: %w", err)
	}
	return nil
}

// LoadTranscript reads an archived session back, or ErrNotFound.
func (a *Archive) LoadTranscript(ctx context.Context, sessionID string) (*types.Session, error) {
	data, err := os.ReadFile(a.transcriptPath(sessionID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read transcript: %w", err)
	}

	var s types.Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal transcript: %w", err)
	}
	return &s, nil
}

// ListTranscripts returns the archived session ids, oldest directory order.
func (a *Archive) ListTranscripts(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(a.dir, "sessions"))
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to read archive directory: %w", err)
	}

	var ids []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, ".json"))
	}
	return ids, nil
}

func (a *Archive) getLock(path string) *fileLock {
	a.mu.Lock()
	defer a.mu.Unlock()

	lock, ok := a.locks[path]
	if !ok {
		lock = newFileLock(path)
		a.locks[path] = lock
	}
	return lock
}
