package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"study-sync/internal/app"
	"study-sync/internal/config"
	"study-sync/internal/pkg/logger"

	"go.uber.org/zap"
)

// sweeper runs a single expiry pass and exits. It is meant for cron style
// schedulers when the API replicas run with the in-process sweeper disabled.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	cfg.App.AppName += "-sweeper"

	lg, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = lg.Sync() }()

	c, err := app.NewContainer(cfg, lg)
	if err != nil {
		lg.Fatal("failed to build container", zap.Error(err))
	}
	defer func() { _ = c.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	n, err := c.Sweeper.Tick(ctx)
	if err != nil {
		lg.Error("sweep failed", zap.Error(err))
		os.Exit(1)
	}
	lg.Info("sweep finished", zap.Int64("expired", n))
}
