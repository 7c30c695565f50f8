package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"prodbudget/internal/amqp"
	"prodbudget/internal/backend"
	"prodbudget/internal/cli"
	applog "prodbudget/internal/log"
	"prodbudget/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentWorker)

	logger.Info("Starting budget-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	sqliteRepo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer sqliteRepo.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	source, sink, err := backend.NewSnapshotBackend(ctx, cfg, sqliteRepo)
	if err != nil {
		logger.Error("Failed to initialize sheets backend", "error", err, "backend", cfg.SheetsBackend)
		os.Exit(1)
	}

	syncService := services.NewSyncService(sqliteRepo, source, sink)

	// The queue processor sweeps pending rows so nothing is lost when
	// the broker is down or a message is missed.
	procConfig := services.DefaultSyncProcessorConfig()
	procConfig.PollInterval = cfg.SyncPollInterval
	procConfig.BatchSize = cfg.SyncBatchSize
	procConfig.MaxRetries = cfg.SyncMaxRetries
	processor := services.NewSyncProcessor(sqliteRepo, syncService, procConfig)

	if err := processor.Start(ctx); err != nil {
		logger.Error("Failed to start sync processor", "error", err)
		os.Exit(1)
	}

	// AMQP consumption makes edits mirror quickly; the handler runs the
	// operation directly instead of waiting for the next poll.
	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Warn("AMQP unavailable, relying on queue sweep only", "error", err)
	} else {
		defer amqpClient.Close()
		go func() {
			handler := func(msg *amqp.BudgetSyncMessage) error {
				opCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
				defer cancel()
				switch msg.Operation {
				case "pull":
					return syncService.PullProject(opCtx, msg.ProjectID)
				case "push":
					return syncService.PushProject(opCtx, msg.ProjectID)
				default:
					logger.Warn("Ignoring unknown sync operation",
						"operation", msg.Operation, "project_id", msg.ProjectID)
					return nil
				}
			}
			if err := amqpClient.ConsumeBudgetSync(ctx, handler); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Message consumption failed", "error", err)
			}
		}()
	}

	<-ctx.Done()
	logger.Info("Shutting down budget-worker...")

	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := processor.Stop(stopCtx); err != nil {
		logger.Warn("Sync processor stop", "error", err)
	}
	logger.Info("Budget-worker shutdown complete")
}
