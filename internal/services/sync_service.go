package services

import (
	"context"
	"fmt"
	"log/slog"

	"prodbudget/internal/sheets"
	"prodbudget/internal/storage"
)

// SyncService moves budget snapshots between the local database and the
// linked spreadsheet. Pull replaces the local record wholesale; push
// sends the current record outward.
type SyncService struct {
	storage *storage.SQLiteRepository
	source  sheets.SnapshotSource
	sink    sheets.SnapshotSink
}

func NewSyncService(storage *storage.SQLiteRepository, source sheets.SnapshotSource, sink sheets.SnapshotSink) *SyncService {
	return &SyncService{
		storage: storage,
		source:  source,
		sink:    sink,
	}
}

// PullProject fetches the spreadsheet snapshot and replaces the stored
// record. Nothing is written locally unless the pull fully succeeds.
func (s *SyncService) PullProject(ctx context.Context, projectID string) error {
	rec, err := s.source.Pull(ctx, projectID)
	if err != nil {
		return fmt.Errorf("pull %s: %w", projectID, err)
	}
	if err := s.storage.ReplaceRecord(ctx, rec); err != nil {
		return fmt.Errorf("store pulled record: %w", err)
	}

	slog.InfoContext(ctx, "Budget pulled from spreadsheet", "project_id", projectID)
	return nil
}

// PushProject sends the stored record to the spreadsheet.
func (s *SyncService) PushProject(ctx context.Context, projectID string) error {
	rec, err := s.storage.LoadRecord(ctx, projectID)
	if err != nil {
		return fmt.Errorf("load record for push: %w", err)
	}
	if err := s.sink.Push(ctx, projectID, rec); err != nil {
		return fmt.Errorf("push %s: %w", projectID, err)
	}

	slog.InfoContext(ctx, "Budget pushed to spreadsheet", "project_id", projectID)
	return nil
}
