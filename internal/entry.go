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

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/mattn/go-isatty"
	"golang.org/x/sync/errgroup"

	"github.com/starford/daymark/internal/api"
	"github.com/starford/daymark/internal/dayservice"
	"github.com/starford/daymark/internal/extract"
	"github.com/starford/daymark/internal/index"
	"github.com/starford/daymark/internal/mcpserver"
	"github.com/starford/daymark/internal/mirror"
	"github.com/starford/daymark/internal/sse"
	"github.com/starford/daymark/internal/storage"
)

// NewLogger builds the process logger: text on a terminal, JSON otherwise.
// It writes to stderr so that stdout stays free for the MCP transport.
func NewLogger(level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	fd := os.Stderr.Fd()
	if isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd) {
		return slog.New(slog.NewTextHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}

// Run starts the application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	logger := NewLogger(cfg.App.LogLevel)
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("vault_path", cfg.Vault.Path),
		slog.String("date_source", cfg.Calendar.DateSource),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// Ensure vault directory exists.
	if err := os.MkdirAll(cfg.Vault.Path, 0o755); err != nil {
		return fmt.Errorf("create vault dir: %w", err)
	}

	lock := storage.NewLock(cfg.Vault.Path)
	if err := lock.TryAcquire(); err != nil {
		return err
	}
	defer func() {
		if err := lock.Release(); err != nil {
			logger.Warn("release vault lock", slog.String("error", err.Error()))
		}
	}()

	// Initialize storage.
	fsys, err := storage.NewFS(cfg.Vault.Path, cfg.Vault.Ignore...)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}
	vault := storage.NewVault(fsys, cfg.Vault.CacheSize)

	ext, err := extract.New(cfg.Calendar.Extract(), logger)
	if err != nil {
		return fmt.Errorf("init extractor: %w", err)
	}
	idx := index.NewSynchronizer(index.NewStore(), vault, ext, logger)

	svc, err := dayservice.NewService(idx, vault, dayservice.Options{
		Sorting:       cfg.Calendar.Sorting,
		NewNoteFolder: cfg.Calendar.NewNoteFolder,
		NewNoteFormat: cfg.Calendar.NewNoteFormat,
	})
	if err != nil {
		return fmt.Errorf("init day service: %w", err)
	}

	g, gCtx := errgroup.WithContext(ctx)

	if cfg.SQLite.Enabled() {
		db, err := mirror.Open(cfg.SQLite.Path)
		if err != nil {
			return fmt.Errorf("init mirror: %w", err)
		}
		defer db.Close()
		follower := mirror.NewFollower(db, idx, logger)
		idx.OnIndexChanged(follower.Notify)
		g.Go(func() error { return follower.Run(gCtx) })
	}

	if err := idx.InitialScanComplete(gCtx); err != nil {
		return fmt.Errorf("initial scan: %w", err)
	}

	// Start file watcher; the second rebuild runs once it is armed.
	g.Go(func() error {
		return index.Watch(gCtx, idx, vault, fsys.Root(), logger, func() {
			if err := idx.LayoutReady(gCtx); err != nil {
				logger.Warn("layout-ready rebuild failed", slog.String("error", err.Error()))
			}
		})
	})

	if app.transport == TransportMCP {
		return serveMCP(gCtx, g, svc, logger)
	}
	return serveHTTP(gCtx, g, cfg, idx, svc, logger)
}

func serveMCP(ctx context.Context, g *errgroup.Group, svc *dayservice.Service, logger *slog.Logger) error {
	srv := mcpserver.New(svc)
	stdioErr := make(chan error, 1)
	go func() { stdioErr <- srv.ServeStdio() }()

	logger.Info("MCP server listening on stdio")
	g.Go(func() error {
		select {
		case err := <-stdioErr:
			if err != nil {
				return fmt.Errorf("MCP server error: %w", err)
			}
			// stdin closed: the client went away.
			return context.Canceled
		case <-ctx.Done():
			return nil
		}
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}
	logger.Info("MCP server stopped")
	return nil
}

func serveHTTP(ctx context.Context, g *errgroup.Group, cfg *Config, idx *index.Synchronizer, svc *dayservice.Service, logger *slog.Logger) error {
	// SSE broker.
	broker := sse.NewBroker(250 * time.Millisecond)
	defer broker.Close()
	idx.OnIndexChanged(broker.IndexChanged)

	apiRouter := api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if idx.LastRebuild().At.IsZero() {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"indexing"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-ctx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		// Stop the watcher and the mirror follower.
		return context.Canceled
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}
