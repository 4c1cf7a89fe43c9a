package main

import (
	"context"
	"log"
	"time"

	"study-sync/internal/config"
	"study-sync/internal/database/migration"
	dbpostgres "study-sync/internal/database/postgres"
	"study-sync/internal/database/seeder"
	"study-sync/internal/pkg/logger"

	"go.uber.org/zap"
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

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	db, err := dbpostgres.Connect(ctx, cfg.Database, cfg.App.AppName+"-seed", lg)
	if err != nil {
		lg.Fatal("connect", zap.Error(err))
	}
	defer func() { _ = db.Close() }()

	if err := (migration.Runner{Logger: lg}).Run(ctx, db.SQLDB()); err != nil {
		lg.Fatal("migrate", zap.Error(err))
	}
	if err := (seeder.Runner{Seeders: seeder.Defaults(), Logger: lg}).Run(ctx, db); err != nil {
		lg.Fatal("seed", zap.Error(err))
	}
	lg.Info("seed completed")
}
