package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"arthneeti/internal/advisor"
	"arthneeti/internal/api"
	"arthneeti/internal/config"
	"arthneeti/internal/db"
	"arthneeti/internal/game"
	"arthneeti/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	_ = godotenv.Load()
	cfg := config.LoadAPIFromEnv()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	catalog, err := game.LoadCatalog(cfg.CatalogPath)
	if err != nil {
		logger.Error("load catalog failed", "err", err)
		os.Exit(1)
	}

	var st game.Store
	if cfg.DatabaseURL != "" {
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
		st = pg
	} else {
		logger.Warn("DATABASE_URL not set, sessions live in memory only")
		st = store.NewMemory()
	}

	var adv game.Advisor = advisor.NewRuleBased()
	if cfg.GeminiAPIKey != "" {
		gem, err := advisor.NewGemini(ctx, cfg.GeminiAPIKey, adv, logger)
		if err != nil {
			logger.Error("gemini init failed", "err", err)
			os.Exit(1)
		}
		defer gem.Close()
		adv = gem
	}

	gameSvc := game.NewService(st, catalog, adv, logger)

	server := api.New(cfg, logger, gameSvc)
	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	logger.Info("arthneeti api listening", "addr", cfg.Addr, "advisor", adv.Name(), "cards", catalog.CardCount())
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server failed", "err", err)
		os.Exit(1)
	}
}
