package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ignite/formsync/internal/activecampaign"
	"github.com/ignite/formsync/internal/bootstrap"
	"github.com/ignite/formsync/internal/config"
	"github.com/ignite/formsync/internal/notify"
	"github.com/ignite/formsync/internal/pkg/logger"
	"github.com/ignite/formsync/internal/repository/postgres"
	"github.com/ignite/formsync/internal/service/dispatch"
	"github.com/ignite/formsync/internal/service/transfer"
	"github.com/ignite/formsync/internal/web"
	"github.com/ignite/formsync/internal/worker"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to the YAML config")
	withCleanup := flag.Bool("cleanup", false, "also run the transfer cleanup loop in this process")
	flag.Parse()

	cfg, err := config.LoadFromEnv(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("%v", err)
	}
	bootstrap.SetupLogging(cfg.Logging)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := bootstrap.OpenDB(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	forms, err := bootstrap.FormSource(cfg, db)
	if err != nil {
		log.Fatalf("Failed to load form settings: %v", err)
	}

	crm := activecampaign.NewClient(activecampaign.Config{
		BaseURL:    cfg.ActiveCampaign.APIURL,
		APIKey:     cfg.ActiveCampaign.APIKey,
		Timeout:    cfg.ActiveCampaign.Timeout(),
		MaxRetries: cfg.ActiveCampaign.MaxRetries,
		Debug:      cfg.ActiveCampaign.Debug,
	})

	transfers := transfer.NewService(postgres.NewTransferRepo(db))

	if cfg.Server.PublicURL == "" {
		logger.Warn("server: public_url not set, approval links will be relative")
	}
	dispatcher := dispatch.New(forms, crm, transfers, dispatch.Config{
		PublicBaseURL: cfg.Server.PublicURL,
		TokenLength:   cfg.Transfers.TokenLength,
	})

	if cfg.Notify.Enabled {
		notifier, err := notify.NewSESNotifier(ctx, notify.SESConfig{
			Region:    cfg.Notify.Region,
			AccessKey: cfg.Notify.AccessKey,
			SecretKey: cfg.Notify.SecretKey,
			FromEmail: cfg.Notify.FromEmail,
			FromName:  cfg.Notify.FromName,
		})
		if err != nil {
			log.Fatalf("Failed to initialize SES notifier: %v", err)
		}
		dispatcher.SetNotifier(notifier)
		logger.Info("server: editor notifications enabled", "region", cfg.Notify.Region)
	}

	if *withCleanup {
		redisClient := bootstrap.OpenRedis(ctx, cfg.Redis)
		if redisClient != nil {
			defer redisClient.Close()
		}
		cleanup := worker.NewTransferCleanupWorker(transfers, redisClient, db, cfg.Transfers.CleanupInterval())
		go cleanup.Start(ctx)
	}

	if cfg.Server.AdminToken == "" {
		logger.Info("server: admin_token not set, operator endpoints disabled")
	}
	router := web.NewRouter(web.NewHandlers(dispatcher, transfers), web.RouterOptions{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		AdminToken:     cfg.Server.AdminToken,
		RequestTimeout: cfg.Server.RequestTimeout(),
	})

	srv := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      cfg.Server.RequestTimeout() + 10*time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	// Setup graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("server: listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-done
	logger.Info("server: shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server: shutdown error", "error", err)
	}
	logger.Info("server: stopped")
}
