package server

import (
	"runtime/debug"
	"time"

	"github.com/gorilla/websocket"
	"github.com/vango-dev/kinesis/pkg/protocol"
)

// ReadLoop continuously reads messages from the WebSocket connection.
// It decodes frames, answers control messages, and queues events.
// This method blocks until the connection is closed or an error occurs.
func (s *Session) ReadLoop() {
	defer s.Close()

	s.conn.SetReadLimit(s.config.MaxMessageSize)
	for {
		s.conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))

		_, msg, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				s.logger.Error("read error", "error", err)
			}
			return
		}

		s.UpdateLastActive()
		s.bytesRecv.Add(uint64(len(msg)))

		frame, err := protocol.DecodeFrame(msg)
		if err != nil {
			s.logger.Error("frame decode error", "error", err)
			s.sendErrorMessage(protocol.ErrInvalidFrame, "Invalid frame")
			continue
		}

		switch frame.Type {
		case protocol.FrameEvent:
			s.handleEventFrame(frame.Payload)

		case protocol.FrameControl:
			s.handleControlFrame(frame.Payload)

		default:
			s.logger.Warn("unknown frame type", "type", frame.Type)
		}
	}
}

// handleEventFrame decodes and queues an event from the client.
func (s *Session) handleEventFrame(payload []byte) {
	ev, err := protocol.DecodeEvent(payload)
	if err != nil {
		s.logger.Error("event decode error", "error", err)
		s.sendErrorMessage(protocol.ErrInvalidEvent, "Invalid event format")
		return
	}

	if err := s.QueueEvent(ev); err != nil {
		s.sendErrorMessage(protocol.ErrRateLimited, "Event queue full")
	}
}

// handleControlFrame answers pings and records pongs.
func (s *Session) handleControlFrame(payload []byte) {
	ct, ts, err := protocol.DecodeControl(payload)
	if err != nil {
		s.logger.Error("control decode error", "error", err)
		return
	}

	switch ct {
	case protocol.ControlPing:
		s.sendControl(protocol.ControlPong, ts)
	case protocol.ControlPong:
		s.logger.Debug("received pong", "rtt_ms", uint64(time.Now().UnixMilli())-ts)
	}
}

// WriteLoop sends heartbeats until the session is closed.
func (s *Session) WriteLoop() {
	ticker := time.NewTicker(s.config.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := s.sendControl(protocol.ControlPing, uint64(time.Now().UnixMilli())); err != nil {
				return
			}

		case <-s.done:
			s.treeMu.Lock()
			s.root.Close()
			s.treeMu.Unlock()
			return
		}
	}
}

// EventLoop is the only goroutine that touches the tree after start. It
// sends the initial render, then applies events and propagation
// messages in the order they arrive.
func (s *Session) EventLoop() {
	if err := s.safeRun(s.renderInitial); err != nil {
		s.logger.Error("initial render failed", "error", err)
		s.reportError(err)
	}

	notify := s.root.Mailbox().Notify()
	for {
		select {
		case ev := <-s.events:
			s.safeRun(func() error {
				s.handleEvent(ev)
				return nil
			})

		case <-notify:
			s.safeRun(func() error {
				s.drain()
				return nil
			})

		case <-s.done:
			return
		}
	}
}

// safeRun keeps a host bug from killing the loop. Component panics are
// already recovered by the tree.
func (s *Session) safeRun(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("event loop panic",
				"panic", r,
				"stack", string(debug.Stack()))
		}
	}()
	return fn()
}

// Start starts all session loops.
func (s *Session) Start() {
	go s.ReadLoop()
	go s.WriteLoop()
	go s.EventLoop()
}
