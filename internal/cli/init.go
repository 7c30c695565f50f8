// Package cli provides common CLI initialization utilities.
// This package consolidates repeated initialization patterns across
// cmd/prodbudget, cmd/budget-worker, and cmd/schedule-worker.
package cli

import (
	"os"

	"github.com/joho/godotenv"

	"prodbudget/internal/amqp"
	"prodbudget/internal/config"
	"prodbudget/internal/log"
	"prodbudget/internal/storage"
)

// SetupLogger initializes structured logging for the named component.
// Returns the configured logger and sets it as the process default.
func SetupLogger(component string) *log.Logger {
	cfg := log.DefaultConfig()
	cfg.Component = component
	logger := log.New(cfg)
	log.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig(logger *log.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	return cfg
}

// InitSQLite initializes a SQLite repository with the given path.
// Returns the repository or exits the process on failure.
func InitSQLite(logger *log.Logger, dbPath string) *storage.SQLiteRepository {
	sqliteRepo, err := storage.NewSQLiteRepository(dbPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", dbPath)
		os.Exit(1)
	}
	return sqliteRepo
}

// InitAMQP connects to the broker. A broker outage is not fatal: the
// SQLite queue still drives syncs, so a nil client is returned and the
// process continues without publish notifications.
func InitAMQP(logger *log.Logger, cfg *config.Config) *amqp.Client {
	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Warn("Failed to initialize AMQP client, continuing in queue-only mode", "error", err)
		return nil
	}
	logger.Info("AMQP client initialized",
		"exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	return client
}
