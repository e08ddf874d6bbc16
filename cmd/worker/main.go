package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/ignite/formsync/internal/bootstrap"
	"github.com/ignite/formsync/internal/config"
	"github.com/ignite/formsync/internal/pkg/logger"
	"github.com/ignite/formsync/internal/repository/postgres"
	"github.com/ignite/formsync/internal/service/transfer"
	"github.com/ignite/formsync/internal/worker"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to the YAML config")
	once := flag.Bool("once", false, "run a single cleanup sweep and exit")
	flag.Parse()

	cfg, err := config.LoadFromEnv(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("%v", err)
	}
	bootstrap.SetupLogging(cfg.Logging)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	db, err := bootstrap.OpenDB(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	redisClient := bootstrap.OpenRedis(ctx, cfg.Redis)
	if redisClient != nil {
		defer redisClient.Close()
	}

	transfers := transfer.NewService(postgres.NewTransferRepo(db))
	cleanup := worker.NewTransferCleanupWorker(transfers, redisClient, db, cfg.Transfers.CleanupInterval())

	if *once {
		if !cleanup.RunOnce(ctx) {
			logger.Warn("worker: sweep skipped")
		}
		return
	}

	logger.Info("worker: running")
	cleanup.Start(ctx)
	logger.Info("worker: stopped")
}
