package server

import (
	"errors"
	"fmt"
)

var (
	// ErrSessionClosed is returned by writes and QueueEvent after Close.
	ErrSessionClosed = errors.New("server: session closed")

	// ErrEventQueueFull is returned when the event loop is behind and the
	// event was dropped.
	ErrEventQueueFull = errors.New("server: event queue full")

	// ErrMaxSessionsReached rejects a connection past ServerConfig.MaxSessions.
	ErrMaxSessionsReached = errors.New("server: max sessions reached")

	// ErrNoConnection is returned when writing on a session without a socket.
	ErrNoConnection = errors.New("server: no connection")

	// ErrNoRoot is returned when a connection arrives before SetRoot, or
	// when the RootFunc returns a nil tree.
	ErrNoRoot = errors.New("server: no root factory")
)

// BuildError reports a RootFunc that failed for a new session. The
// session is never admitted.
type BuildError struct {
	SessionID string
	Err       error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("server: session %s: build root: %v", e.SessionID, e.Err)
}

func (e *BuildError) Unwrap() error {
	return e.Err
}
