// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/starford/ansuz/internal/debugserver"
	"github.com/starford/ansuz/internal/index"
	"github.com/starford/ansuz/internal/mcpserver"
	"github.com/starford/ansuz/internal/rpc"
	"github.com/starford/ansuz/internal/session"
	"github.com/starford/ansuz/internal/watch"
)

// Run starts the worker with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	// Structured JSON logger on stderr. Stdout carries the protocol
	// stream and must stay clean.
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.Int("chunk_size", cfg.Session.ChunkSize),
		slog.Int("chunk_overlap", cfg.Session.ChunkOverlap),
		slog.Bool("index_enabled", cfg.Index.Enabled),
		slog.Bool("watch_enabled", cfg.Watch.Enabled),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// Chunk index, in-memory unless configured otherwise.
	var idx index.ChunkIndex
	if cfg.Index.Enabled {
		db, err := index.Open(cfg.Index.DSN)
		if err != nil {
			return fmt.Errorf("init index: %w", err)
		}
		defer db.Close()
		idx = db
	}

	sess := session.New(session.Defaults{
		ChunkSize:    cfg.Session.ChunkSize,
		ChunkOverlap: cfg.Session.ChunkOverlap,
		MaxMatches:   cfg.Limits.MaxMatches,
		ContextLines: cfg.Limits.ContextLines,
		QueryTopK:    cfg.Limits.QueryTopK,
		PreviewLen:   cfg.Limits.PreviewLength,
	}, idx, logger)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gCtx := errgroup.WithContext(runCtx)

	// Staleness watcher: flags the session when the loaded document
	// changes on disk after init.
	if cfg.Watch.Enabled {
		watcher, err := watch.New(sess.MarkStale, logger)
		if err != nil {
			return fmt.Errorf("init watcher: %w", err)
		}
		sess.SetOnLoad(watcher.SetTarget)

		g.Go(func() error {
			return watcher.Run(gCtx)
		})
	}

	// Optional read-only debug HTTP surface.
	var debugSrv *http.Server
	if cfg.Debug.Enabled {
		debugSrv = &http.Server{
			Addr:    cfg.Debug.HTTP.Address(),
			Handler: debugserver.NewRouter(sess),
		}
		g.Go(func() error {
			logger.Info("Starting debug HTTP server", slog.String("address", debugSrv.Addr))
			if err := debugSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("debug server error: %w", err)
			}
			return nil
		})
	}

	// Protocol loop on stdin/stdout. When it finishes, the whole
	// worker winds down.
	g.Go(func() error {
		defer cancel()
		if app.mcpMode {
			logger.Info("Serving MCP over stdio")
			return mcpserver.New(sess).ServeStdio()
		}
		dispatcher := rpc.NewDispatcher(sess, logger)
		srv := rpc.NewServer(dispatcher, os.Stdin, os.Stdout, logger)
		return srv.Run(gCtx)
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
			cancel()
		case <-gCtx.Done():
		}

		if debugSrv != nil {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer shutdownCancel()
			if err := debugSrv.Shutdown(shutdownCtx); err != nil {
				logger.Error("Debug server shutdown error", slog.String("error", err.Error()))
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Worker stopped")
	return nil
}
