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
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/aldenvall/inkpress/internal/diagram"
	"github.com/aldenvall/inkpress/internal/mcpserver"
	"github.com/aldenvall/inkpress/internal/pipeline"
	"github.com/aldenvall/inkpress/internal/remote"
	"github.com/aldenvall/inkpress/internal/server"
	"github.com/aldenvall/inkpress/internal/typst"
	"github.com/aldenvall/inkpress/internal/watch"
)

func newApplication(opts []Option) (*application, error) {
	app := &application{stdout: os.Stdout}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

func newLogger(cfg *Config) *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)
	return logger
}

// buildPipeline wires the sync pipeline from configuration.
func buildPipeline(cfg *Config, logger *slog.Logger) (*pipeline.Pipeline, error) {
	backendURL := cfg.Backend.ResolveURL()
	if backendURL == "" {
		return nil, fmt.Errorf("backend url is not configured (set backend.url or %s)", BackendURLEnv)
	}

	if err := os.MkdirAll(cfg.Typst.WorkDir, 0o755); err != nil {
		return nil, fmt.Errorf("create work dir: %w", err)
	}

	renderer := diagram.New(cfg.Diagrams.Bin, cfg.Diagrams.Dir, logger)
	renderer.Workers = cfg.Diagrams.Workers
	renderer.Timeout = cfg.Diagrams.Timeout()

	// Image paths in the compiled document resolve relative to the .typ
	// file, which lives in the typst work dir.
	diagramDir, err := filepath.Rel(cfg.Typst.WorkDir, cfg.Diagrams.Dir)
	if err != nil {
		diagramDir, err = filepath.Abs(cfg.Diagrams.Dir)
		if err != nil {
			return nil, fmt.Errorf("resolve diagram dir: %w", err)
		}
	}

	return &pipeline.Pipeline{
		ContentDir: cfg.Content.Dir,
		DiagramDir: filepath.ToSlash(diagramDir),
		Renderer:   renderer,
		Compiler:   typst.NewCompiler(cfg.Typst.Bin, cfg.Typst.WorkDir),
		API:        remote.NewClient(backendURL, cfg.Backend.Token),
		Workers:    cfg.Typst.Workers,
		Logger:     logger,
	}, nil
}

// RunSync executes one full sync pass and prints a summary. Per-entry
// failures are reported in the summary and do not make the command fail.
func RunSync(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config
	logger := newLogger(cfg)

	p, err := buildPipeline(cfg, logger)
	if err != nil {
		return err
	}

	start := time.Now()
	sum, err := p.Run(ctx)
	if err != nil {
		return fmt.Errorf("sync: %w", err)
	}

	fmt.Fprintf(app.stdout, "synced in %s: %d created, %d updated, %d deleted, %d failed\n",
		time.Since(start).Round(time.Millisecond), sum.Created, sum.Updated, sum.Deleted, len(sum.Errors))
	for _, r := range sum.Errors {
		fmt.Fprintf(app.stdout, "  failed %s: %v\n", r.Slug, r.Err)
	}
	return nil
}

// RunWatch runs an initial sync and then re-syncs on content changes until
// interrupted.
func RunWatch(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config
	logger := newLogger(cfg)

	p, err := buildPipeline(cfg, logger)
	if err != nil {
		return err
	}

	sync := func(ctx context.Context) error {
		sum, err := p.Run(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(app.stdout, "synced: %d created, %d updated, %d deleted, %d failed\n",
			sum.Created, sum.Updated, sum.Deleted, len(sum.Errors))
		return nil
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := sync(ctx); err != nil {
		logger.Error("watch: initial sync failed", slog.String("error", err.Error()))
	}

	return watch.New(cfg.Content.Dir, logger, sync).Run(ctx)
}

// RunServe starts the development backend server.
func RunServe(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config
	logger := newLogger(cfg)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.Serve.Address()),
		slog.String("sqlite_path", cfg.Serve.SQLite),
		slog.String("blob_dir", cfg.Serve.BlobDir),
		slog.String("log_level", cfg.App.LogLevel.String()))

	store, err := server.OpenStore(cfg.Serve.SQLite)
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	defer store.Close()

	blobs, err := server.NewBlobStore(cfg.Serve.BlobDir)
	if err != nil {
		return fmt.Errorf("init blob store: %w", err)
	}

	h := server.NewHandler(store, blobs, cfg.Serve.ResolvedPublicURL())
	apiRouter := server.NewRouter(h, cfg.Serve.Auth.AuthEnabled(), cfg.Serve.Auth.Token)

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
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.Serve.Address(),
		Handler: r,
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.Serve.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// RunMCP serves the MCP stdio transport backed by the configured backend.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config
	newLogger(cfg)

	backendURL := cfg.Backend.ResolveURL()
	if backendURL == "" {
		return fmt.Errorf("backend url is not configured (set backend.url or %s)", BackendURLEnv)
	}

	api := remote.NewClient(backendURL, cfg.Backend.Token)
	return mcpserver.New(api).ServeStdio()
}
