package server

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"
	"github.com/vango-dev/kinesis/pkg/nested"
)

// SessionManager tracks the live sessions of a server.
type SessionManager struct {
	sessions map[string]*Session
	mu       sync.RWMutex

	config      *SessionConfig
	maxSessions int
	observer    nested.Observer
	perSession  func(sessionID string) nested.Observer
	logger      *slog.Logger

	totalCreated atomic.Uint64
	totalClosed  atomic.Uint64
	peakSessions int

	// pending counts admitted sessions whose tree is still being built.
	pending int

	onSessionCreate func(*Session)
	onSessionClose  func(*Session)
	onSessionAbort  func(sessionID string)
}

// NewSessionManager creates a session manager. maxSessions of zero means no limit.
func NewSessionManager(config *SessionConfig, maxSessions int, logger *slog.Logger) *SessionManager {
	if config == nil {
		config = DefaultSessionConfig()
	} else {
		config = config.Clone()
	}
	config.fillDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionManager{
		sessions:    make(map[string]*Session),
		config:      config,
		maxSessions: maxSessions,
		logger:      logger,
	}
}

// SetObserver sets the observer installed on every new session's tree.
func (sm *SessionManager) SetObserver(o nested.Observer) {
	sm.observer = o
}

// SetSessionObserver sets a factory called once per new session. The
// observer it returns is installed on that session's tree only, after
// the shared observer. A nil result is ignored.
func (sm *SessionManager) SetSessionObserver(f func(sessionID string) nested.Observer) {
	sm.perSession = f
}

func (sm *SessionManager) observerFor(sessionID string) nested.Observer {
	var own nested.Observer
	if sm.perSession != nil {
		own = sm.perSession(sessionID)
	}
	switch {
	case own == nil:
		return sm.observer
	case sm.observer == nil:
		return own
	}
	return nested.Observers(sm.observer, own)
}

// Create builds a session on conn. The session is not started.
func (sm *SessionManager) Create(conn *websocket.Conn, build RootFunc) (*Session, error) {
	if build == nil {
		return nil, ErrNoRoot
	}

	// Admission reserves a slot, so no session is rejected once its
	// observer exists.
	sm.mu.Lock()
	if sm.maxSessions > 0 && len(sm.sessions)+sm.pending >= sm.maxSessions {
		sm.mu.Unlock()
		return nil, ErrMaxSessionsReached
	}
	sm.pending++
	sm.mu.Unlock()

	id := generateSessionID()
	session, err := newSession(id, conn, build, sm.observerFor(id), sm.config, sm.logger)
	if err != nil {
		sm.mu.Lock()
		sm.pending--
		sm.mu.Unlock()
		if sm.onSessionAbort != nil {
			sm.onSessionAbort(id)
		}
		sm.logger.Warn("session aborted", "session_id", id, "error", err)
		return nil, err
	}
	session.onClose = sm.remove

	sm.mu.Lock()
	sm.pending--
	sm.sessions[session.ID] = session
	if len(sm.sessions) > sm.peakSessions {
		sm.peakSessions = len(sm.sessions)
	}
	sm.mu.Unlock()
	sm.totalCreated.Add(1)

	if sm.onSessionCreate != nil {
		sm.onSessionCreate(session)
	}
	sm.logger.Info("session created", "session_id", session.ID)
	return session, nil
}

func (sm *SessionManager) remove(s *Session) {
	sm.mu.Lock()
	_, ok := sm.sessions[s.ID]
	delete(sm.sessions, s.ID)
	sm.mu.Unlock()
	if !ok {
		return
	}
	sm.totalClosed.Add(1)
	if sm.onSessionClose != nil {
		sm.onSessionClose(s)
	}
}

// Get returns a session by ID, or nil.
func (sm *SessionManager) Get(id string) *Session {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.sessions[id]
}

// Close closes a session by ID.
func (sm *SessionManager) Close(id string) {
	if s := sm.Get(id); s != nil {
		s.Close()
	}
}

// Count returns the number of live sessions.
func (sm *SessionManager) Count() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.sessions)
}

// List returns live sessions ordered by creation time.
func (sm *SessionManager) List() []*Session {
	sm.mu.RLock()
	list := make([]*Session, 0, len(sm.sessions))
	for _, s := range sm.sessions {
		list = append(list, s)
	}
	sm.mu.RUnlock()
	sort.Slice(list, func(i, j int) bool {
		return list[i].CreatedAt.Before(list[j].CreatedAt)
	})
	return list
}

// Shutdown closes every session, stopping early if ctx is done.
func (sm *SessionManager) Shutdown(ctx context.Context) error {
	sessions := sm.List()

	var wg sync.WaitGroup
	for _, session := range sessions {
		wg.Add(1)
		go func(s *Session) {
			defer wg.Done()
			s.Close()
		}(session)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	sm.logger.Info("session manager shutdown", "closed_sessions", len(sessions))
	return nil
}

// ManagerStats contains aggregated session manager statistics.
type ManagerStats struct {
	Active       int
	TotalCreated uint64
	TotalClosed  uint64
	Peak         int
}

// Stats returns aggregated session statistics.
func (sm *SessionManager) Stats() ManagerStats {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return ManagerStats{
		Active:       len(sm.sessions),
		TotalCreated: sm.totalCreated.Load(),
		TotalClosed:  sm.totalClosed.Load(),
		Peak:         sm.peakSessions,
	}
}

// SetOnSessionCreate sets the callback for session creation.
func (sm *SessionManager) SetOnSessionCreate(fn func(*Session)) {
	sm.onSessionCreate = fn
}

// SetOnSessionClose sets the callback for session close.
func (sm *SessionManager) SetOnSessionClose(fn func(*Session)) {
	sm.onSessionClose = fn
}

// SetOnSessionAbort sets the callback for a session whose tree failed to
// build. It receives the ID the session observer factory was called with.
func (sm *SessionManager) SetOnSessionAbort(fn func(sessionID string)) {
	sm.onSessionAbort = fn
}
