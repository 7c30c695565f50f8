// Package backend selects the spreadsheet backend for sync operations.
package backend

import (
	"context"
	"fmt"
	"log/slog"

	"prodbudget/internal/config"
	"prodbudget/internal/sheets"
	"prodbudget/internal/sheets/google"
	"prodbudget/internal/sheets/memory"
	"prodbudget/internal/storage"
)

// NewSnapshotBackend returns the snapshot source and sink configured by
// SHEETS_BACKEND. The memory backend ships with legacy seed projects so
// a dev setup can pull real-looking data without Google credentials.
func NewSnapshotBackend(ctx context.Context, cfg *config.Config, repo *storage.SQLiteRepository) (sheets.SnapshotSource, sheets.SnapshotSink, error) {
	switch cfg.SheetsBackend {
	case "google":
		client, err := google.NewFromEnv(ctx, repo)
		if err != nil {
			return nil, nil, fmt.Errorf("init google sheets backend: %w", err)
		}
		slog.Info("Initialized Google Sheets backend")
		return client, client, nil
	case "memory":
		store := memory.NewWithSeeds()
		slog.Info("Initialized memory sheets backend")
		return store, store, nil
	default:
		return nil, nil, fmt.Errorf("unknown sheets backend: %s", cfg.SheetsBackend)
	}
}
