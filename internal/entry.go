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
	"sort"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/bkn/internal/api"
	"github.com/starford/bkn/internal/bkn"
	"github.com/starford/bkn/internal/datasource"
	"github.com/starford/bkn/internal/docservice"
	"github.com/starford/bkn/internal/examples"
	"github.com/starford/bkn/internal/generate"
	"github.com/starford/bkn/internal/index"
	"github.com/starford/bkn/internal/mcpserver"
	"github.com/starford/bkn/internal/sse"
	"github.com/starford/bkn/internal/storage"
	"github.com/starford/bkn/internal/textenc"
)

// runtime holds the components shared by the HTTP and MCP front ends.
type runtime struct {
	logger *slog.Logger
	ws     storage.Workspace
	db     *index.DB
	svc    *docservice.Service
	broker *sse.Broker
}

func (rt *runtime) Close() {
	rt.broker.Close()
	if err := rt.db.Close(); err != nil {
		rt.logger.Error("close index", slog.String("error", err.Error()))
	}
	if err := rt.ws.Close(); err != nil {
		rt.logger.Error("close workspace", slog.String("error", err.Error()))
	}
}

func newApplication(opts []Option) (*application, error) {
	app := &application{version: "dev", logOut: os.Stdout}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

// start opens the workspace and index and builds the document service.
func (app *application) start() (*runtime, error) {
	cfg := app.config

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(app.logOut, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("workspace_backend", cfg.Workspace.Backend),
		slog.String("workspace_path", cfg.Workspace.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.Bool("generate_enabled", cfg.Generate.Enabled()),
		slog.String("log_level", cfg.App.LogLevel.String()))

	ws, err := openWorkspace(cfg.Workspace)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	if cfg.Workspace.SeedExamples {
		seeded, err := examples.Seed(ws, logger)
		if err != nil {
			logger.Warn("seed examples failed", slog.String("error", err.Error()))
		} else if seeded {
			logger.Info("Seeded example projects")
		}
	}

	// Initialize SQLite index.
	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		ws.Close()
		return nil, fmt.Errorf("init index: %w", err)
	}

	// Run initial sync.
	if err := index.Sync(db, ws, logger); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	catalog := datasource.Default()
	if cfg.DataSources.Path != "" {
		catalog, err = datasource.Load(cfg.DataSources.Path)
		if err != nil {
			db.Close()
			ws.Close()
			return nil, fmt.Errorf("load data sources: %w", err)
		}
	}

	var client generate.Client
	if cfg.Generate.Enabled() {
		client = generate.NewOpenAIClient(generate.ClientConfig{
			Endpoint:    cfg.Generate.Endpoint,
			APIKey:      cfg.Generate.APIKey,
			Model:       cfg.Generate.Model,
			Temperature: cfg.Generate.Temperature,
			Timeout:     cfg.Generate.Timeout,
			MaxRetries:  cfg.Generate.MaxRetries,
		})
	}

	broker := sse.NewBroker(cfg.App.EventsThrottle)

	svcOpts := []docservice.Option{
		docservice.WithCacheSize(cfg.Cache.Size),
		docservice.WithPatterns(cfg.Workspace.Patterns),
		docservice.WithCatalog(catalog),
		docservice.WithGenerator(generate.New(client, catalog, logger)),
	}
	// The fs watcher reports its own changes; other backends publish from
	// the service.
	if cfg.Workspace.Backend != BackendFS {
		svcOpts = append(svcOpts, docservice.WithNotifier(broker.PublishDocumentEvent))
	}

	return &runtime{
		logger: logger,
		ws:     ws,
		db:     db,
		svc:    docservice.NewService(ws, db, logger, svcOpts...),
		broker: broker,
	}, nil
}

func openWorkspace(cfg WorkspaceConfig) (storage.Workspace, error) {
	if cfg.Backend == BackendBolt {
		return storage.OpenBolt(cfg.Path, cfg.Patterns)
	}
	return storage.NewFSWorkspace(cfg.Path, cfg.Patterns)
}

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	rt, err := app.start()
	if err != nil {
		return err
	}
	defer rt.Close()

	cfg := app.config
	logger := rt.logger

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints.
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

	// Mount API routes under /api.
	r.Mount("/api", api.NewRouter(rt.svc, rt.broker))

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Start file watcher with SSE callback.
	if fsws, ok := rt.ws.(*storage.FSWorkspace); ok {
		g.Go(func() error {
			if err := index.Watch(gCtx, rt.db, rt.ws, fsws.Root(), cfg.Workspace.Patterns, logger, rt.broker.PublishDocumentEvent); err != nil {
				logger.Error("watcher stopped", slog.String("error", err.Error()))
			}
			return nil
		})
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

// errShutdown cancels the group once the server has been asked to stop, so
// the watcher exits too.
var errShutdown = errors.New("shutdown")

// RunMCP serves the MCP tools on stdin/stdout. Logs go to stderr.
func RunMCP(_ context.Context, opts ...Option) error {
	app, err := newApplication(append([]Option{WithLogOutput(os.Stderr)}, opts...))
	if err != nil {
		return err
	}
	rt, err := app.start()
	if err != nil {
		return err
	}
	defer rt.Close()

	rt.logger.Info("MCP server starting", slog.String("version", app.version))
	return mcpserver.New(rt.svc, app.version).ServeStdio()
}

// RunParse assembles every document under dir and writes the network export
// as indented JSON to out. Diagnostics are logged.
func RunParse(dir string, patterns []string, out io.Writer, logger *slog.Logger) error {
	store, err := storage.NewFS(dir, patterns...)
	if err != nil {
		return fmt.Errorf("parse: open %s: %w", dir, err)
	}
	metas, err := store.List("")
	if err != nil {
		return fmt.Errorf("parse: list %s: %w", dir, err)
	}

	paths := make([]string, 0, len(metas))
	contents := make(map[string]string, len(metas))
	for _, m := range metas {
		data, err := store.Read(m.Path)
		if err != nil {
			return fmt.Errorf("parse: read %s: %w", m.Path, err)
		}
		paths = append(paths, m.Path)
		contents[m.Path] = textenc.String(data)
	}
	sort.Strings(paths)

	n := bkn.ParseNetwork(paths, contents)
	for _, d := range n.Diagnostics {
		logger.Warn("parse: diagnostic",
			slog.String("path", d.Path),
			slog.String("kind", d.Kind),
			slog.String("id", d.ID),
			slog.String("reason", d.Reason))
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(n.Export())
}
