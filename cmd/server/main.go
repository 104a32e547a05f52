package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/JonMunkholm/dbpatch/internal/config"
	"github.com/JonMunkholm/dbpatch/internal/core"
	_ "github.com/JonMunkholm/dbpatch/internal/core/tables" // Register all tables
	"github.com/JonMunkholm/dbpatch/internal/database"
	"github.com/JonMunkholm/dbpatch/internal/logging"
	"github.com/JonMunkholm/dbpatch/internal/schema"
	"github.com/JonMunkholm/dbpatch/internal/web"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("configuration loaded", "config", cfg.String())

	ctx := context.Background()

	db, closeDB, err := openSession(ctx, cfg.Database)
	if err != nil {
		slog.Error("failed to open database session", "error", err)
		os.Exit(1)
	}
	defer closeDB()

	service := core.NewService(db, core.Config{
		MaxWait:     cfg.Edit.MaxWaitTime,
		JournalSize: cfg.Edit.JournalSize,
		Session: core.SessionConfig{
			Dir:     cfg.Session.Dir,
			Prepend: cfg.Session.Prepend(),
			Append:  cfg.Session.Append(),
		},
	})

	slog.Info("tables registered",
		"count", core.TableCount(),
		"groups", len(core.Groups()),
	)
	for _, group := range core.Groups() {
		slog.Debug("table group", "group", group, "tables", len(core.ByGroup(group)))
	}

	server := web.NewServer(service, cfg)

	// The autosave job writes once more when jobCtx is cancelled.
	jobCtx, cancelJobs := context.WithCancel(context.Background())
	autosaveDone := make(chan struct{})
	go func() {
		defer close(autosaveDone)
		service.StartAutosave(jobCtx, cfg.Session.AutosaveInterval)
	}()

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}

		// Let an in-flight edit or import finish before the final autosave.
		if service.Limiter().Busy() {
			slog.Info("waiting for the active edit to complete")
			if err := service.Limiter().WaitForDrain(shutdownCtx); err != nil {
				slog.Warn("edit did not complete in time", "error", err)
			}
		}

		cancelJobs()
		<-autosaveDone

		if service.IsModified() {
			slog.Warn("session has unsaved changes", "dir", cfg.Session.Dir)
		}
	}()

	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server error", "error", err)
		cancelJobs()
		<-autosaveDone
		closeDB()
		os.Exit(1)
	}
	<-stopped
	slog.Info("server stopped")
}

// openSession connects the configured database driver. The memory driver
// starts from empty tables and never touches a real server, which makes it a
// dry run that still produces patch files.
func openSession(ctx context.Context, cfg config.DatabaseConfig) (core.DBSession, func(), error) {
	if cfg.Driver == config.DriverMemory {
		defs := core.All()
		schemas := make([]*schema.Schema, len(defs))
		for i, def := range defs {
			schemas[i] = def.Schema
		}
		slog.Warn("using in-memory database, no live tables will change")
		return database.NewMemSession(schemas...), func() {}, nil
	}

	pool, err := database.Connect(ctx, database.PoolConfig{
		URL:             cfg.URL,
		MaxConns:        cfg.MaxConns,
		MinConns:        cfg.MinConns,
		MaxConnLifetime: cfg.MaxConnLifetime,
		MaxConnIdleTime: cfg.MaxConnIdleTime,
	})
	if err != nil {
		return nil, nil, err
	}

	if u, err := url.Parse(cfg.URL); err == nil {
		slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
	} else {
		slog.Info("connected to database")
	}
	return database.NewPgSession(pool), pool.Close, nil
}
