package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"study-sync/internal/app"
	"study-sync/internal/config"
	"study-sync/internal/pkg/logger"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	lg, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = lg.Sync() }()

	bootstrap, cleanup, err := app.Bootstrap(cfg, lg)
	if err != nil {
		lg.Fatal("failed to bootstrap app", zap.Error(err))
	}
	defer func() {
		if err := cleanup(); err != nil {
			lg.Warn("cleanup error", zap.Error(err))
		}
	}()

	addr, err := app.ListenAddr(cfg.App.HTTPPort)
	if err != nil {
		lg.Fatal("invalid HTTP port", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := bootstrap.Container
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		c.Hub.Run(gctx)
		return nil
	})
	if cfg.Matching.SweepEnabled {
		g.Go(func() error {
			c.Sweeper.Run(gctx)
			return nil
		})
	}
	g.Go(func() error {
		lg.Info("http server listening", zap.String("addr", addr), zap.String("env", cfg.App.Environment))
		return bootstrap.Fiber.Listen(addr)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return bootstrap.Fiber.ShutdownWithContext(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		lg.Error("server stopped with error", zap.Error(err))
		return
	}
	lg.Info("server stopped")
}
