package server

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/vango-dev/kinesis/pkg/component"
	"github.com/vango-dev/kinesis/pkg/dom"
	"github.com/vango-dev/kinesis/pkg/nested"
	"github.com/vango-dev/kinesis/pkg/protocol"
)

// RootFunc builds the component tree for a new session. Implementations
// must pass opts to nested.New so the session can install its sink,
// mailbox and logger.
type RootFunc func(opts ...nested.Option) (*nested.Controller, error)

// Session represents a single WebSocket connection and its component tree.
type Session struct {
	// Identity
	ID        string
	CreatedAt time.Time

	lastActive atomic.Int64

	// Connection
	conn   *websocket.Conn
	mu     sync.Mutex // Protects conn writes
	closed atomic.Bool

	// Sequence numbers
	sendSeq atomic.Uint64 // Last render frame sequence sent
	recvSeq atomic.Uint64 // Last received event sequence

	root *nested.Controller

	// Channels
	events chan *protocol.Event // Incoming events
	done   chan struct{}        // Shutdown signal

	// treeMu guards root between the event loop and debug snapshots.
	treeMu sync.Mutex

	config *SessionConfig
	logger *slog.Logger

	onClose func(*Session)

	// Metrics
	eventCount  atomic.Uint64
	renderCount atomic.Uint64
	bytesSent   atomic.Uint64
	bytesRecv   atomic.Uint64
}

// generateSessionID generates a cryptographically random session ID.
func generateSessionID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		panic(fmt.Sprintf("crypto/rand failed: %v", err))
	}
	return hex.EncodeToString(b)
}

// newSession creates session id on conn and builds its tree with build.
func newSession(id string, conn *websocket.Conn, build RootFunc, observer nested.Observer, config *SessionConfig, logger *slog.Logger) (*Session, error) {
	now := time.Now()

	s := &Session{
		ID:        id,
		CreatedAt: now,
		conn:      conn,
		events:    make(chan *protocol.Event, config.MaxEventQueue),
		done:      make(chan struct{}),
		config:    config,
		logger:    logger.With("session_id", id),
	}
	s.lastActive.Store(now.UnixNano())

	opts := []nested.Option{
		nested.WithSink(s),
		nested.WithLogger(s.logger),
		nested.WithMailbox(nested.NewMailbox(config.MailboxSize)),
		nested.WithFollowupLimit(config.MaxFollowups),
	}
	if observer != nil {
		opts = append(opts, nested.WithObserver(observer))
	}
	root, err := build(opts...)
	if err != nil {
		return nil, &BuildError{SessionID: id, Err: err}
	}
	if root == nil {
		return nil, &BuildError{SessionID: id, Err: ErrNoRoot}
	}
	s.root = root
	return s, nil
}

// Root returns the session's tree.
func (s *Session) Root() *nested.Controller {
	return s.root
}

// Commit implements nested.Sink by writing a render frame for u.
func (s *Session) Commit(u nested.Update) error {
	var html string
	if u.Present {
		html = dom.HTML(u.Items)
	}
	return s.sendRender(u.Node, u.Scope, u.Present, html)
}

// renderInitial sends the full Root render of the tree.
func (s *Session) renderInitial() error {
	s.treeMu.Lock()
	items, present, err := s.root.Render(component.RenderRoot())
	s.treeMu.Unlock()
	if err != nil {
		return err
	}
	var html string
	if present {
		html = dom.HTML(items)
	}
	return s.sendRender(component.Root(), component.RenderRoot(), present, html)
}

// handleEvent dispatches one client event into the tree.
func (s *Session) handleEvent(ev *protocol.Event) {
	s.eventCount.Add(1)
	s.recvSeq.Store(ev.Seq)

	s.treeMu.Lock()
	err := s.root.Dispatch(ev.Target, ev.Type, ev.Payload)
	s.treeMu.Unlock()
	if err != nil {
		s.reportError(err)
	}
}

// drain processes propagation messages posted by components.
func (s *Session) drain() {
	s.treeMu.Lock()
	err := s.root.Drain()
	s.treeMu.Unlock()
	if err != nil {
		s.logger.Debug("drain finished with errors", "error", err)
	}
}

// reportError maps a dispatch failure to an error frame.
func (s *Session) reportError(err error) {
	var (
		unresolved *nested.UnresolvedIdentifierError
		handler    *nested.HandlerError
		render     *nested.RenderError
		sink       *nested.SinkError
	)
	switch {
	case errors.As(err, &sink):
		// The connection is already failing; the write path closes it.
		s.logger.Error("render commit failed", "error", err)
	case errors.As(err, &unresolved):
		s.sendErrorMessage(protocol.ErrUnresolvedIdentifier, unresolved.Target.String())
	case errors.As(err, &handler):
		s.sendErrorMessage(protocol.ErrHandlerPanic, handler.Target.String())
	case errors.As(err, &render):
		s.sendErrorMessage(protocol.ErrHandlerPanic, render.Node.String())
	case errors.Is(err, nested.ErrFollowupLimit):
		// The tree logged it; the deferred propagations run on the next drain.
	default:
		s.sendErrorMessage(protocol.ErrServerError, err.Error())
	}
}

// sendRender writes a render frame.
func (s *Session) sendRender(node component.Identifier, scope component.RenderType, present bool, html string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed.Load() {
		return ErrSessionClosed
	}
	if s.conn == nil {
		return ErrNoConnection
	}

	seq := s.sendSeq.Add(1)
	payload := protocol.EncodeRender(&protocol.RenderFrame{
		Seq:     seq,
		Node:    node,
		Scope:   scope,
		Present: present,
		HTML:    html,
	})
	data, err := protocol.NewFrame(protocol.FrameRender, payload).Encode()
	if err != nil {
		return err
	}

	s.conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
	if err := s.conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
		s.logger.Error("write error", "error", err)
		go s.Close()
		return err
	}
	s.bytesSent.Add(uint64(len(data)))
	s.renderCount.Add(1)
	return nil
}

// sendErrorMessage sends an error frame to the client.
func (s *Session) sendErrorMessage(code protocol.ErrorCode, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed.Load() {
		return
	}

	// Guard against nil connection (can happen in tests)
	if s.conn == nil {
		s.logger.Warn("sendErrorMessage: no connection available",
			"code", code,
			"message", message)
		return
	}

	payload := protocol.EncodeErrorMessage(protocol.NewError(code, message))
	data, err := protocol.NewFrame(protocol.FrameError, payload).Encode()
	if err != nil {
		s.logger.Error("error frame encode", "error", err)
		return
	}
	s.conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
	s.conn.WriteMessage(websocket.BinaryMessage, data)
}

// sendControl sends a ping or pong.
func (s *Session) sendControl(ct protocol.ControlType, timestamp uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed.Load() {
		return ErrSessionClosed
	}
	if s.conn == nil {
		return ErrNoConnection
	}

	data, err := protocol.NewFrame(protocol.FrameControl, protocol.EncodeControl(ct, timestamp)).Encode()
	if err != nil {
		return err
	}
	s.conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
	if err := s.conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
		s.logger.Error("control write error", "type", ct, "error", err)
		return err
	}
	return nil
}

// Close gracefully closes the session.
func (s *Session) Close() {
	if s.closed.Swap(true) {
		// Already closed
		return
	}
	s.closeInternal()
}

// closeInternal performs the actual close operations.
func (s *Session) closeInternal() {
	close(s.done)

	s.mu.Lock()
	if s.conn != nil {
		s.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		s.conn.Close()
	}
	s.mu.Unlock()

	if s.onClose != nil {
		s.onClose(s)
	}

	s.logger.Info("session closed",
		"events", s.eventCount.Load(),
		"renders", s.renderCount.Load(),
		"bytes_sent", s.bytesSent.Load(),
		"bytes_recv", s.bytesRecv.Load())
}

// IsClosed returns whether the session is closed.
func (s *Session) IsClosed() bool {
	return s.closed.Load()
}

// Done returns a channel that's closed when the session is done.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// QueueEvent queues an event for the event loop.
func (s *Session) QueueEvent(ev *protocol.Event) error {
	if s.closed.Load() {
		return ErrSessionClosed
	}
	select {
	case s.events <- ev:
		return nil
	case <-s.done:
		return ErrSessionClosed
	default:
		s.logger.Warn("event queue full, dropping event", "target", ev.Target.String(), "type", ev.Type)
		return ErrEventQueueFull
	}
}

// UpdateLastActive records client activity.
func (s *Session) UpdateLastActive() {
	s.lastActive.Store(time.Now().UnixNano())
}

// LastActive returns the time of the last client activity.
func (s *Session) LastActive() time.Time {
	return time.Unix(0, s.lastActive.Load())
}

// Snapshot lists the session's tree. It is safe to call from any goroutine.
func (s *Session) Snapshot() []nested.NodeInfo {
	s.treeMu.Lock()
	defer s.treeMu.Unlock()
	return s.root.Snapshot()
}

// SessionStats contains session statistics.
type SessionStats struct {
	ID         string
	CreatedAt  time.Time
	LastActive time.Time
	Events     uint64
	Renders    uint64
	BytesSent  uint64
	BytesRecv  uint64
	Queued     int
	Dropped    uint64
}

// Stats returns session statistics.
func (s *Session) Stats() SessionStats {
	mb := s.root.Mailbox()
	return SessionStats{
		ID:         s.ID,
		CreatedAt:  s.CreatedAt,
		LastActive: s.LastActive(),
		Events:     s.eventCount.Load(),
		Renders:    s.renderCount.Load(),
		BytesSent:  s.bytesSent.Load(),
		BytesRecv:  s.bytesRecv.Load(),
		Queued:     mb.Len(),
		Dropped:    mb.Dropped(),
	}
}

// Logger returns the session's logger.
func (s *Session) Logger() *slog.Logger {
	return s.logger
}

func deadline(d time.Duration) time.Time {
	return time.Now().Add(d)
}
