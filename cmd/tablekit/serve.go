package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/tablekit/tablekit/internal/config"
	"github.com/tablekit/tablekit/internal/core"
	"github.com/tablekit/tablekit/internal/logging"
	"github.com/tablekit/tablekit/internal/schema"
	"github.com/tablekit/tablekit/internal/store"
	"github.com/tablekit/tablekit/internal/web"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the import session HTTP server",
		Long: `Serve starts the HTTP server exposing import sessions and the action
protocol. Configuration comes from environment variables (and an optional
.env file), exactly like the standalone server binary.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(ctx context.Context) error {
	godotenv.Overload()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	defs, err := schema.LoadFile(cfg.Schema.Path)
	if err != nil {
		return err
	}
	slog.Info("schema loaded", "sheets", len(defs))

	st, cleanup, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	if cleanup != nil {
		defer cleanup()
	}

	server := web.NewServer(cfg, defs, st, func(e core.Event) {
		slog.Debug("engine event", "kind", e.Kind, "run_id", e.RunID, "errors", e.Errors)
	})

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-sigCh:
		case <-ctx.Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	slog.Info("server starting", "addr", cfg.Server.Addr())
	return server.Start()
}

// openStore builds the configured snapshot store. The returned cleanup
// closes the connection pool for the postgres backend and is nil otherwise.
func openStore(ctx context.Context, cfg *config.Config) (store.Store, func(), error) {
	switch cfg.Store.Backend {
	case "file":
		fs, err := store.NewFileStore(cfg.Store.Dir)
		if err != nil {
			return nil, nil, err
		}
		return fs, nil, nil
	case "postgres":
		poolConfig, err := pgxpool.ParseConfig(cfg.Store.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		poolConfig.MaxConns = int32(cfg.Store.MaxConns)

		pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
		if err != nil {
			return nil, nil, err
		}
		pg := store.NewPGStore(pool)
		if err := pg.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return pg, pool.Close, nil
	default:
		return nil, nil, nil
	}
}
