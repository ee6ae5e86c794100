// The worker abandons sessions nobody has touched for the idle TTL so the
// leaderboard and stale rows don't accumulate half-finished games.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"arthneeti/internal/advisor"
	"arthneeti/internal/config"
	"arthneeti/internal/db"
	"arthneeti/internal/game"
	"arthneeti/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	_ = godotenv.Load()
	cfg := config.LoadWorkerFromEnv()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if cfg.DatabaseURL == "" {
		logger.Error("DATABASE_URL is required")
		os.Exit(1)
	}

	catalog, err := game.LoadCatalog(cfg.CatalogPath)
	if err != nil {
		logger.Error("load catalog failed", "err", err)
		os.Exit(1)
	}

	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("db connect failed", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	pg := store.NewPostgres(pool, logger)
	if err := pg.Migrate(ctx); err != nil {
		logger.Error("migrate failed", "err", err)
		os.Exit(1)
	}

	svc := game.NewService(pg, catalog, advisor.NewRuleBased(), logger)

	sweep := func() {
		n, err := svc.SweepStale(ctx, cfg.IdleTTL, cfg.SweepBatch)
		if err != nil {
			logger.Error("sweep failed", "err", err)
			return
		}
		if n > 0 {
			logger.Info("swept idle sessions", "count", n, "idle_ttl", cfg.IdleTTL.String())
		}
	}

	if cfg.RunOnce {
		sweep()
		logger.Info("worker run-once completed")
		return
	}

	ticker := time.NewTicker(cfg.SweepEvery)
	defer ticker.Stop()

	logger.Info("worker started", "sweep_every", cfg.SweepEvery.String(), "idle_ttl", cfg.IdleTTL.String())
	for {
		select {
		case <-ctx.Done():
			logger.Info("worker shutdown")
			return
		case <-ticker.C:
			sweep()
		}
	}
}
