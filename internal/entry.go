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
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/starford/agx/internal/api"
	"github.com/starford/agx/internal/apperr"
	"github.com/starford/agx/internal/index"
	"github.com/starford/agx/internal/mcpserver"
	"github.com/starford/agx/internal/project"
	"github.com/starford/agx/internal/proposalservice"
	"github.com/starford/agx/internal/sse"
	"github.com/starford/agx/internal/storage"
)

// Workspace is an opened project: where the corpus lives and the service
// operating on it.
type Workspace struct {
	Layout  *project.Layout
	Store   *storage.FS
	Service *proposalservice.Service
	Catalog *index.DB

	logger *slog.Logger
}

// Close releases the catalog, if one was opened.
func (w *Workspace) Close() error {
	if w.Catalog == nil {
		return nil
	}
	return w.Catalog.Close()
}

func newApplication(opts []Option) (*application, error) {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if app.workDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("working directory: %w", err)
		}
		app.workDir = wd
	}
	if app.version == "" {
		app.version = "dev"
	}
	if app.logger == nil {
		app.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: app.config.App.LogLevel,
		}))
	}
	return app, nil
}

func (a *application) layout() (*project.Layout, error) {
	return project.Discover(a.workDir, a.config.Corpus.Dir)
}

func (a *application) authorLookup() func() string {
	configured := a.config.Corpus.DefaultAuthor
	fallback := a.defaultAuthor
	return func() string {
		if configured != "" {
			return configured
		}
		if fallback != nil {
			return fallback()
		}
		return ""
	}
}

func (a *application) open(withCatalog bool) (*Workspace, error) {
	layout, err := a.layout()
	if err != nil {
		return nil, err
	}
	store, err := layout.Store()
	if err != nil {
		if errors.Is(err, apperr.ErrCorpusUnavailable) {
			return nil, fmt.Errorf("%w (run `agx init` to create it)", err)
		}
		return nil, err
	}
	tmpl, err := layout.LoadTemplate()
	if err != nil {
		return nil, err
	}

	ws := &Workspace{Layout: layout, Store: store, logger: a.logger}
	svcOpts := []proposalservice.Option{
		proposalservice.WithKind(a.config.Corpus.Kind),
		proposalservice.WithTemplate(tmpl),
		proposalservice.WithLogger(a.logger),
		proposalservice.WithDefaultAuthor(a.authorLookup()),
	}

	if withCatalog {
		dbPath := a.config.SQLite.Resolve(layout.Root)
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("create catalog dir: %w", err)
		}
		db, err := index.Open(dbPath)
		if err != nil {
			return nil, fmt.Errorf("init index: %w", err)
		}
		ws.Catalog = db
		svcOpts = append(svcOpts, proposalservice.WithCatalog(db))
	}

	ws.Service = proposalservice.NewService(store, svcOpts...)
	return ws, nil
}

// Open discovers the project and returns a workspace without a catalog,
// for one-shot commands.
func Open(opts ...Option) (*Workspace, error) {
	app, err := newApplication(opts)
	if err != nil {
		return nil, err
	}
	return app.open(false)
}

// Init creates the corpus directory and template. It returns the layout and
// the paths it ensured.
func Init(opts ...Option) (*project.Layout, []string, error) {
	app, err := newApplication(opts)
	if err != nil {
		return nil, nil, err
	}
	layout, err := app.layout()
	if err != nil {
		return nil, nil, err
	}
	paths, err := layout.Init()
	if err != nil {
		return nil, nil, err
	}
	return layout, paths, nil
}

// Run starts the HTTP server, the catalog watcher and the SSE broker.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)
	app.logger = logger

	ws, err := app.open(true)
	if err != nil {
		return err
	}
	defer ws.Close()

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("project_root", ws.Layout.Root),
		slog.String("corpus_dir", ws.Layout.CorpusDir),
		slog.String("sqlite_path", cfg.SQLite.Resolve(ws.Layout.Root)),
		slog.String("log_level", cfg.App.LogLevel.String()))

	if err := index.Sync(ws.Catalog, ws.Store, logger); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	apiRouter := api.NewRouter(ws.Service, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

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
		if _, err := ws.Store.List(); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"corpus unavailable"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Start file watcher with SSE callback.
	g.Go(func() error {
		return index.Watch(gCtx, ws.Catalog, ws.Store, logger, broker.PublishProposalEvent)
	})

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
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// errShutdown stops the errgroup so the watcher exits with the server.
var errShutdown = errors.New("shutdown")

// RunMCP serves the MCP tools over stdio. Logs go to stderr; the catalog is
// synced once and kept current by the watcher while the session lasts.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	logger := app.logger

	ws, err := app.open(true)
	if err != nil {
		return err
	}
	defer ws.Close()

	if err := index.Sync(ws.Catalog, ws.Store, logger); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	srv := mcpserver.New(ws.Service, app.version)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return index.Watch(gCtx, ws.Catalog, ws.Store, logger, nil)
	})
	g.Go(func() error {
		defer cancel()
		return srv.ServeStdio()
	})

	return g.Wait()
}
