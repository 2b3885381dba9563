package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/vango-dev/kinesis/internal/config"
	"github.com/vango-dev/kinesis/internal/demo"
	kerrors "github.com/vango-dev/kinesis/internal/errors"
	"github.com/vango-dev/kinesis/pkg/journal"
	"github.com/vango-dev/kinesis/pkg/middleware"
	"github.com/vango-dev/kinesis/pkg/nested"
	"github.com/vango-dev/kinesis/pkg/server"
)

func serveCmd() *cobra.Command {
	var (
		configPath string
		port       int
		host       string
		noJournal  bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the demo tree over WebSocket",
		Long: `Serve the demo tree over WebSocket.

Each connection gets its own tree: a reset button, a clock and a row of
counters. Settings come from kinesis.yaml or kinesis.json in the working
directory, or from --config.

Examples:
  kinesis serve
  kinesis serve --port=9000
  kinesis serve --config=deploy/kinesis.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			if port > 0 {
				cfg.Server.Port = port
			}
			if host != "" {
				cfg.Server.Host = host
			}
			if noJournal {
				cfg.Journal.Enabled = false
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to a config file")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "Port to listen on (default from config)")
	cmd.Flags().StringVarP(&host, "host", "H", "", "Host to bind to (default from config)")
	cmd.Flags().BoolVar(&noJournal, "no-journal", false, "Disable journaling")

	return cmd
}

func runServe(ctx context.Context, cfg *config.Config) error {
	logger := slog.New(cfg.Log.Handler(os.Stderr))

	srv := server.New(cfg.ServerConfig())
	srv.SetLogger(logger)
	srv.SetRoot(demo.Build(demo.Options{
		Counters: cfg.Demo.Counters,
		Tick:     cfg.Demo.Tick.Std(),
	}))

	var (
		observers []nested.Observer
		opened    []func(*server.Session)
		closed    []func(*server.Session)
	)

	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		metrics := middleware.NewMetrics(
			middleware.WithNamespace(cfg.Metrics.Namespace),
			middleware.WithRegistry(reg),
		)
		observers = append(observers, metrics)
		opened = append(opened, func(*server.Session) { metrics.SessionOpened() })
		closed = append(closed, func(*server.Session) { metrics.SessionClosed() })
		srv.SetMetricsHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	}

	if cfg.Tracing.Enabled {
		observers = append(observers, middleware.NewTracer(middleware.WithTracerName(cfg.Tracing.TracerName)))
	}

	switch len(observers) {
	case 0:
	case 1:
		srv.SetObserver(observers[0])
	default:
		srv.SetObserver(nested.Observers(observers...))
	}

	var journals *recorderSet
	if cfg.Journal.Enabled {
		store, err := openStore(cfg.Journal)
		if err != nil {
			return err
		}
		journals = newRecorderSet(ctx, store, cfg.Journal, logger)
		srv.SetSessionObserver(journals.open)
		srv.Sessions().SetOnSessionAbort(journals.close)
		closed = append(closed, func(s *server.Session) { journals.close(s.ID) })
	}

	srv.Sessions().SetOnSessionCreate(func(s *server.Session) {
		for _, fn := range opened {
			fn(s)
		}
	})
	srv.Sessions().SetOnSessionClose(func(s *server.Session) {
		for _, fn := range closed {
			fn(s)
		}
	})

	printBanner()
	fmt.Println("  serve")
	fmt.Println()
	success("Listening on %s", cfg.Address())
	info("Client:     http://%s/", cfg.Address())
	info("WebSocket:  ws://%s/ws", cfg.Address())
	if cfg.Metrics.Enabled {
		info("Metrics:    http://%s/metrics", cfg.Address())
	}
	if cfg.Server.Debug {
		info("Tree:       http://%s/debug/tree", cfg.Address())
	}
	if journals != nil {
		info("Journal:    %s", describeStore(cfg.Journal))
	} else {
		warn("Journaling disabled")
	}
	fmt.Println()

	err := srv.Run(ctx)
	if journals != nil {
		journals.closeAll()
	}
	if err != nil {
		return kerrors.New("K090").Wrap(err)
	}
	return nil
}

func describeStore(jc config.JournalConfig) string {
	switch jc.Backend {
	case config.BackendFile:
		return "file " + jc.Dir
	case config.BackendS3:
		return "s3://" + jc.Bucket + "/" + jc.Prefix
	}
	return "memory (lost on exit)"
}

// recorderSet owns one journal recorder per live session. The session
// ID is the journal ID.
type recorderSet struct {
	ctx    context.Context
	store  journal.Store
	cfg    config.JournalConfig
	logger *slog.Logger

	mu   sync.Mutex
	live map[string]*journal.Recorder
}

func newRecorderSet(ctx context.Context, store journal.Store, cfg config.JournalConfig, logger *slog.Logger) *recorderSet {
	return &recorderSet{
		ctx:    ctx,
		store:  store,
		cfg:    cfg,
		logger: logger.With("component", "journal"),
		live:   make(map[string]*journal.Recorder),
	}
}

func (rs *recorderSet) open(sessionID string) nested.Observer {
	rec := journal.NewRecorder(rs.store, sessionID,
		journal.WithBatchSize(rs.cfg.BatchSize),
		journal.WithRecorderLogger(rs.logger),
	)
	rec.Start(rs.ctx, rs.cfg.FlushInterval.Std())

	rs.mu.Lock()
	rs.live[sessionID] = rec
	rs.mu.Unlock()
	return rec
}

func (rs *recorderSet) close(sessionID string) {
	rs.mu.Lock()
	rec := rs.live[sessionID]
	delete(rs.live, sessionID)
	rs.mu.Unlock()
	if rec == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := rec.Close(ctx); err != nil {
		rs.logger.Error("journal close failed", "journal_id", sessionID, "error", err)
		return
	}
	rs.logger.Info("journal closed", "journal_id", sessionID, "records", rec.Written())
}

// closeAll closes recorders whose sessions never reached the close
// callback, such as sessions whose tree failed to build.
func (rs *recorderSet) closeAll() {
	rs.mu.Lock()
	ids := make([]string, 0, len(rs.live))
	for id := range rs.live {
		ids = append(ids, id)
	}
	rs.mu.Unlock()
	for _, id := range ids {
		rs.close(id)
	}
}
