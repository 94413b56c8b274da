package session

import "errors"

var (
	// ErrNotFound means the session id is not registered. Stopped sessions
	// are removed from the registry, so they report this too.
	ErrNotFound = errors.New("session not found")

	// ErrNotReady means the session exists but cannot accept a message in
	// its current status.
	ErrNotReady = errors.New("session is not ready to accept messages")

	// ErrStopped means the session was stopped while a request was in
	// flight.
	ErrStopped = errors.New("session stopped")
)
