package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/vango-dev/kinesis/pkg/nested"
)

// Server is the HTTP/WebSocket host for component trees.
type Server struct {
	sessions *SessionManager
	root     RootFunc
	config   *ServerConfig
	upgrader websocket.Upgrader

	// metrics serves /metrics when set.
	metrics http.Handler

	httpServer *http.Server
	logger     *slog.Logger
}

// New creates a new Server with the given configuration.
func New(config *ServerConfig) *Server {
	if config == nil {
		config = DefaultServerConfig()
	} else {
		config = config.Clone()
		// Fill in defaults for any unset fields
		defaults := DefaultServerConfig()
		if config.Address == "" {
			config.Address = defaults.Address
		}
		if config.ReadBufferSize == 0 {
			config.ReadBufferSize = defaults.ReadBufferSize
		}
		if config.WriteBufferSize == 0 {
			config.WriteBufferSize = defaults.WriteBufferSize
		}
		if config.CheckOrigin == nil {
			config.CheckOrigin = defaults.CheckOrigin
		}
		if config.SessionConfig == nil {
			config.SessionConfig = defaults.SessionConfig
		}
		if config.ShutdownTimeout == 0 {
			config.ShutdownTimeout = defaults.ShutdownTimeout
		}
		if config.ReadHeaderTimeout == 0 {
			config.ReadHeaderTimeout = defaults.ReadHeaderTimeout
		}
	}

	logger := slog.Default().With("component", "server")

	return &Server{
		sessions: NewSessionManager(config.SessionConfig, config.MaxSessions, logger),
		config:   config,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		logger: logger,
	}
}

// SetRoot sets the factory that builds each session's tree.
func (s *Server) SetRoot(build RootFunc) {
	s.root = build
}

// SetObserver installs o on the tree of every session created afterwards.
func (s *Server) SetObserver(o nested.Observer) {
	s.sessions.SetObserver(o)
}

// SetSessionObserver installs a per-session observer factory; see
// SessionManager.SetSessionObserver.
func (s *Server) SetSessionObserver(f func(sessionID string) nested.Observer) {
	s.sessions.SetSessionObserver(f)
}

// SetMetricsHandler mounts h on /metrics.
func (s *Server) SetMetricsHandler(h http.Handler) {
	s.metrics = h
}

// SetLogger replaces the server logger.
func (s *Server) SetLogger(logger *slog.Logger) {
	s.logger = logger.With("component", "server")
	s.sessions.logger = s.logger
}

// Router returns the chi router serving the server's routes.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/", s.handleShell)
	r.Get("/_kinesis/client.js", s.handleClient)
	r.Get("/ws", s.HandleWebSocket)
	r.Get("/healthz", s.handleHealth)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}
	if s.config.EnableDebug {
		r.Get("/debug/tree", s.handleDebugTree)
	}
	return r
}

// HandleWebSocket upgrades the request and starts a session.
func (s *Server) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.root == nil {
		http.Error(w, ErrNoRoot.Error(), http.StatusServiceUnavailable)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	session, err := s.sessions.Create(conn, s.root)
	if err != nil {
		s.logger.Error("session create failed", "error", err)
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseTryAgainLater, err.Error()),
			deadline(s.sessions.config.WriteTimeout))
		conn.Close()
		return
	}

	session.Start()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":   "ok",
		"sessions": s.sessions.Count(),
	})
}

// debugSession is the /debug/tree entry for one session.
type debugSession struct {
	ID     string            `json:"id"`
	Events uint64            `json:"events"`
	Queued int               `json:"queued"`
	Tree   []nested.NodeInfo `json:"tree"`
}

func (s *Server) handleDebugTree(w http.ResponseWriter, r *http.Request) {
	var out []debugSession
	if id := r.URL.Query().Get("session"); id != "" {
		session := s.sessions.Get(id)
		if session == nil {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}
		out = append(out, describe(session))
	} else {
		for _, session := range s.sessions.List() {
			out = append(out, describe(session))
		}
	}
	if out == nil {
		out = []debugSession{}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(out)
}

func describe(session *Session) debugSession {
	stats := session.Stats()
	return debugSession{
		ID:     session.ID,
		Events: stats.Events,
		Queued: stats.Queued,
		Tree:   session.Snapshot(),
	}
}

// Run starts the HTTP server and blocks until ctx is done, an interrupt
// arrives, or the listener fails.
func (s *Server) Run(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:              s.config.Address,
		Handler:           s.Router(),
		ReadHeaderTimeout: s.config.ReadHeaderTimeout,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "address", s.config.Address)
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err

	case <-ctx.Done():
		s.logger.Info("shutting down...")
		return s.Shutdown(context.Background())
	}
}

// Shutdown closes all sessions and stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()

	if err := s.sessions.Shutdown(ctx); err != nil {
		s.logger.Warn("session shutdown incomplete", "error", err)
	}

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.logger.Error("shutdown error", "error", err)
			return err
		}
	}

	s.logger.Info("server shutdown complete")
	return nil
}

// Sessions returns the session manager.
func (s *Server) Sessions() *SessionManager {
	return s.sessions
}

// Config returns the server configuration.
func (s *Server) Config() *ServerConfig {
	return s.config
}

// Logger returns the server logger.
func (s *Server) Logger() *slog.Logger {
	return s.logger
}
