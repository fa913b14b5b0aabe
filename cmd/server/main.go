package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/tablekit/tablekit/internal/config"
	"github.com/tablekit/tablekit/internal/core"
	"github.com/tablekit/tablekit/internal/logging"
	"github.com/tablekit/tablekit/internal/schema"
	"github.com/tablekit/tablekit/internal/store"
	"github.com/tablekit/tablekit/internal/web"
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

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"schema", cfg.Schema.Path,
		"store_backend", cfg.Store.Backend,
		"debounce_window", cfg.Import.DebounceWindow,
	)

	defs, err := schema.LoadFile(cfg.Schema.Path)
	if err != nil {
		slog.Error("failed to load schema", "error", err)
		os.Exit(1)
	}
	slog.Info("schema loaded", "sheets", len(defs))

	ctx := context.Background()
	var (
		st   store.Store
		pool *pgxpool.Pool
	)
	switch cfg.Store.Backend {
	case "file":
		fs, err := store.NewFileStore(cfg.Store.Dir)
		if err != nil {
			slog.Error("failed to open file store", "error", err)
			os.Exit(1)
		}
		st = fs
	case "postgres":
		poolConfig, err := pgxpool.ParseConfig(cfg.Store.DatabaseURL)
		if err != nil {
			slog.Error("failed to parse database URL", "error", err)
			os.Exit(1)
		}
		poolConfig.MaxConns = int32(cfg.Store.MaxConns)

		pool, err = pgxpool.NewWithConfig(ctx, poolConfig)
		if err != nil {
			slog.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		if err := pool.Ping(ctx); err != nil {
			slog.Error("failed to ping database", "error", err)
			os.Exit(1)
		}

		pg := store.NewPGStore(pool)
		if err := pg.EnsureSchema(ctx); err != nil {
			slog.Error("failed to prepare snapshot table", "error", err)
			os.Exit(1)
		}
		st = pg
	}

	server := web.NewServer(cfg, defs, st, slogHook())

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	slog.Info("server starting", "addr", cfg.Server.Addr())
	if err := server.Start(); err != nil {
		slog.Info("server stopped", "error", err)
	}
}

// slogHook forwards engine events to the structured logger. The engine
// itself has no logging dependency.
func slogHook() core.Hook {
	return func(e core.Event) {
		slog.Debug("engine event",
			"kind", e.Kind,
			"run_id", e.RunID,
			"sheets", e.Sheets,
			"rows", e.Rows,
			"errors", e.Errors,
			"duration", e.Duration,
			"error", e.Err,
		)
	}
}
