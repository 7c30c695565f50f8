package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"prodbudget/internal/cli"
	applog "prodbudget/internal/log"
	"prodbudget/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentSchedule)

	logger.Info("Starting schedule-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	sqliteRepo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer sqliteRepo.Close()

	processor := services.NewScheduleProcessor(sqliteRepo, cfg.ScheduleLookahead)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("Payment schedule sweep configured",
		"interval", cfg.ScheduleSweepInterval,
		"lookahead", cfg.ScheduleLookahead,
		"sqlite_db", cfg.SQLiteDBPath)

	sweep := func(now time.Time) {
		alerts, err := processor.ProcessDueSchedules(ctx, now)
		if err != nil {
			logger.Error("Schedule sweep failed", "error", err)
			return
		}
		overdue := 0
		for _, a := range alerts {
			if a.Overdue {
				overdue++
			}
		}
		logger.Info("Schedule sweep complete",
			"alerts", len(alerts),
			"overdue", overdue,
			"next_sweep", now.Add(cfg.ScheduleSweepInterval).Format(time.RFC3339))
	}

	// Run once on startup, then on the interval.
	sweep(time.Now())

	ticker := time.NewTicker(cfg.ScheduleSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Schedule-worker shutdown complete")
			return
		case now := <-ticker.C:
			sweep(now)
		}
	}
}
