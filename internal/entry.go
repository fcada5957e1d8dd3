// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/quarry/internal/api"
	"github.com/starford/quarry/internal/mcpserver"
	"github.com/starford/quarry/internal/registry"
	"github.com/starford/quarry/internal/search"
	"github.com/starford/quarry/internal/source"
	"github.com/starford/quarry/internal/sse"
	"github.com/starford/quarry/internal/storage"
)

// runtime holds the components shared by every command.
type runtime struct {
	cfg    *Config
	logger *slog.Logger
	reader *source.Reader
	db     *search.DB
	svc    *registry.Service
}

func (rt *runtime) Close() {
	rt.reader.Close()
	if err := rt.db.Close(); err != nil {
		rt.logger.Warn("close search db", slog.String("error", err.Error()))
	}
}

// newBackend selects the index backend named by the configuration.
func newBackend(cfg IndexConfig) source.Backend {
	if cfg.Backend == IndexBackendDir {
		return source.DirBackend{Root: cfg.Path}
	}
	return source.GitBackend{Path: cfg.Path}
}

func setup(app *application) (*runtime, error) {
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	cfg := app.config

	// Structured JSON logger. The MCP command owns stdout, so it logs to
	// stderr.
	logger := slog.New(slog.NewJSONHandler(app.logOutput, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("index_backend", cfg.Index.Backend),
		slog.String("index_path", cfg.Index.Path),
		slog.String("storage_path", cfg.Storage.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	targets, err := cfg.Registry.KindSet()
	if err != nil {
		return nil, err
	}

	// Ensure the blob directory exists.
	if err := os.MkdirAll(cfg.Storage.Path, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	store, err := storage.NewFS(cfg.Storage.Path)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	db, err := search.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init search: %w", err)
	}

	reader := source.NewReader(newBackend(cfg.Index))
	svc := registry.NewService(reader, store, db, &targets)
	return &runtime{cfg: cfg, logger: logger, reader: reader, db: db, svc: svc}, nil
}

func (rt *runtime) initialSync(ctx context.Context) {
	report, err := search.Sync(ctx, rt.db, rt.reader, rt.logger)
	if err != nil {
		rt.logger.Warn("initial sync failed", slog.String("error", err.Error()))
		return
	}
	rt.logger.Info("initial sync done",
		slog.Int("updated", len(report.Updated)),
		slog.Int("removed", len(report.Removed)))
}

func health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	rt, err := setup(newApplication(opts))
	if err != nil {
		return err
	}
	defer rt.Close()
	cfg, logger := rt.cfg, rt.logger

	rt.initialSync(ctx)

	// SSE broker for index change events.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	apiRouter := api.NewRouter(rt.svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", health)
	r.Get("/health/ready", health)

	r.Mount("/v0", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	g, gCtx := errgroup.WithContext(ctx)

	// Re-sync the search table when the index changes.
	if cfg.Index.Watch {
		g.Go(func() error {
			return search.Watch(gCtx, rt.db, rt.reader, cfg.Index.Path, logger, func(report search.Report, err error) {
				if err == nil {
					broker.PublishChanges(report.Updated, report.Removed)
				}
			})
		})
	}

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

// errShutdown cancels the group so the watcher stops with the server.
var errShutdown = errors.New("shutdown")

// RunMCP serves the registry tools over MCP stdio.
func RunMCP(ctx context.Context, opts ...Option) error {
	app := newApplication(opts)
	app.logOutput = os.Stderr
	rt, err := setup(app)
	if err != nil {
		return err
	}
	defer rt.Close()

	rt.initialSync(ctx)
	return mcpserver.New(rt.svc).ServeStdio()
}

// Resolve answers one query and writes the result to w: metadata as
// indented JSON, blobs as raw bytes.
func Resolve(ctx context.Context, q registry.Query, w io.Writer, opts ...Option) error {
	app := newApplication(opts)
	app.logOutput = io.Discard
	rt, err := setup(app)
	if err != nil {
		return err
	}
	defer rt.Close()

	res, err := rt.svc.GetPackageVersion(ctx, q)
	if err != nil {
		return err
	}
	if res.Body != nil {
		defer res.Body.Close()
		_, err := io.Copy(w, res.Body)
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(res.Metadata)
}
