package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"prodbudget/internal/backend"
	"prodbudget/internal/cli"
	apphttp "prodbudget/internal/http"
	applog "prodbudget/internal/log"
	"prodbudget/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentApp)

	cfg := cli.LoadAndValidateConfig(logger)
	sqliteRepo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	amqpClient := cli.InitAMQP(logger, cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	source, sink, err := backend.NewSnapshotBackend(ctx, cfg, sqliteRepo)
	if err != nil {
		logger.Error("Failed to initialize sheets backend", "error", err, "backend", cfg.SheetsBackend)
		os.Exit(1)
	}

	budgetService := services.NewBudgetService(sqliteRepo, amqpClient)
	defer budgetService.Close()

	syncService := services.NewSyncService(sqliteRepo, source, sink)

	procConfig := services.DefaultSyncProcessorConfig()
	procConfig.PollInterval = cfg.SyncPollInterval
	procConfig.BatchSize = cfg.SyncBatchSize
	procConfig.MaxRetries = cfg.SyncMaxRetries
	processor := services.NewSyncProcessor(sqliteRepo, syncService, procConfig)

	srv := apphttp.NewServer(":"+cfg.Port, budgetService)
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	for _, cidr := range cfg.TrustedProxies {
		if err := srv.AddTrustedProxy(cidr); err != nil {
			logger.Warn("Skipping invalid trusted proxy", "cidr", cidr, "error", err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := processor.Start(gctx); err != nil {
			return err
		}
		<-gctx.Done()
		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return processor.Stop(stopCtx)
	})

	g.Go(func() error {
		logger.Info("Starting prodbudget server",
			"port", cfg.Port, "backend", cfg.SheetsBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", "error", err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
