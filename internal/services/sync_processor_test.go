package services

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"prodbudget/internal/sheets"
	"prodbudget/internal/sheets/memory"
	"prodbudget/internal/storage"
)

func newTestSyncEnv(t *testing.T) (*storage.SQLiteRepository, *memory.Store) {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "budget.db"))
	if err != nil {
		t.Fatalf("create repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo, memory.NewWithSeeds()
}

func TestDefaultSyncProcessorConfig(t *testing.T) {
	config := DefaultSyncProcessorConfig()

	if config.PollInterval != 10*time.Second {
		t.Errorf("expected PollInterval 10s, got %v", config.PollInterval)
	}
	if config.BatchSize != 10 {
		t.Errorf("expected BatchSize 10, got %d", config.BatchSize)
	}
	if config.MaxRetries != 3 {
		t.Errorf("expected MaxRetries 3, got %d", config.MaxRetries)
	}
	if config.CleanupInterval != 1*time.Hour {
		t.Errorf("expected CleanupInterval 1h, got %v", config.CleanupInterval)
	}
	if config.CleanupAge != 24*time.Hour {
		t.Errorf("expected CleanupAge 24h, got %v", config.CleanupAge)
	}
}

func TestSyncProcessor_IsRunning(t *testing.T) {
	processor := NewSyncProcessor(nil, nil, DefaultSyncProcessorConfig())

	if processor.IsRunning() {
		t.Error("processor should not be running initially")
	}
}

func TestSyncProcessor_StopNotRunning(t *testing.T) {
	processor := NewSyncProcessor(nil, nil, DefaultSyncProcessorConfig())

	if err := processor.Stop(context.Background()); err != nil {
		t.Errorf("stopping an idle processor should be a no-op, got %v", err)
	}
}

func TestProcessBatchPullReplacesRecord(t *testing.T) {
	repo, store := newTestSyncEnv(t)
	ctx := context.Background()

	syncer := NewSyncService(repo, store, store)
	processor := NewSyncProcessor(repo, syncer, DefaultSyncProcessorConfig())

	if _, err := repo.EnqueueSync(ctx, "legacy-brandfilm", "pull"); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	processor.processBatch(ctx)

	rec, err := repo.LoadRecord(ctx, "legacy-brandfilm")
	if err != nil {
		t.Fatalf("load after pull: %v", err)
	}
	if rec.Summary.CompanyName != "한양식품" {
		t.Errorf("company = %q", rec.Summary.CompanyName)
	}
	if len(rec.LineItems) == 0 {
		t.Error("pulled record should have line items")
	}

	tasks, err := repo.DequeueBatch(ctx, 10)
	if err != nil {
		t.Fatalf("dequeue: %v", err)
	}
	if len(tasks) != 0 {
		t.Errorf("completed task should leave the queue, got %+v", tasks)
	}
}

func TestProcessBatchAuthFailureIsTerminal(t *testing.T) {
	repo, store := newTestSyncEnv(t)
	ctx := context.Background()

	store.FailPulls(sheets.AuthRequired("pull", errors.New("token revoked")))

	syncer := NewSyncService(repo, store, store)
	processor := NewSyncProcessor(repo, syncer, DefaultSyncProcessorConfig())

	if _, err := repo.EnqueueSync(ctx, "legacy-brandfilm", "pull"); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	processor.processBatch(ctx)

	failed, err := repo.FailedTasks(ctx, 10)
	if err != nil {
		t.Fatalf("failed tasks: %v", err)
	}
	if len(failed) != 1 {
		t.Fatalf("expected 1 failed task, got %d", len(failed))
	}
	if failed[0].Attempts != 0 {
		t.Errorf("auth failure should not count retries, attempts = %d", failed[0].Attempts)
	}
}

func TestProcessBatchTransientFailureRequeues(t *testing.T) {
	repo, store := newTestSyncEnv(t)
	ctx := context.Background()

	store.FailPulls(sheets.Transient("pull", errors.New("rate limited")))

	config := DefaultSyncProcessorConfig()
	config.MaxRetries = 3
	syncer := NewSyncService(repo, store, store)
	processor := NewSyncProcessor(repo, syncer, config)

	if _, err := repo.EnqueueSync(ctx, "legacy-brandfilm", "pull"); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	processor.processBatch(ctx)

	tasks, err := repo.DequeueBatch(ctx, 10)
	if err != nil {
		t.Fatalf("dequeue: %v", err)
	}
	if len(tasks) != 1 {
		t.Fatalf("transient failure should requeue, got %d tasks", len(tasks))
	}
	if tasks[0].Attempts != 1 {
		t.Errorf("attempts = %d, want 1", tasks[0].Attempts)
	}

	// Two more transient rounds exhaust MaxRetries
	processor.processBatch(ctx)
	processor.processBatch(ctx)

	failed, err := repo.FailedTasks(ctx, 10)
	if err != nil {
		t.Fatalf("failed tasks: %v", err)
	}
	if len(failed) != 1 {
		t.Fatalf("expected 1 permanently failed task, got %d", len(failed))
	}
}

func TestProcessBatchPushSendsStoredRecord(t *testing.T) {
	repo, store := newTestSyncEnv(t)
	ctx := context.Background()

	// Seed local record by pulling first
	syncer := NewSyncService(repo, store, store)
	if err := syncer.PullProject(ctx, "legacy-viral"); err != nil {
		t.Fatalf("seed pull: %v", err)
	}

	processor := NewSyncProcessor(repo, syncer, DefaultSyncProcessorConfig())
	if _, err := repo.EnqueueSync(ctx, "legacy-viral", "push"); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	processor.processBatch(ctx)

	snap, err := store.Pull(ctx, "legacy-viral")
	if err != nil {
		t.Fatalf("verify push: %v", err)
	}
	if snap.Summary.CompanyName != "서울커머스" {
		t.Errorf("pushed company = %q", snap.Summary.CompanyName)
	}
}

func TestStartAndStop(t *testing.T) {
	repo, store := newTestSyncEnv(t)
	ctx := context.Background()

	config := DefaultSyncProcessorConfig()
	config.PollInterval = 50 * time.Millisecond
	syncer := NewSyncService(repo, store, store)
	processor := NewSyncProcessor(repo, syncer, config)

	if err := processor.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := processor.Start(ctx); err == nil {
		t.Error("second start should fail")
	}
	if !processor.IsRunning() {
		t.Error("processor should report running")
	}

	stopCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	if err := processor.Stop(stopCtx); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if processor.IsRunning() {
		t.Error("processor should report stopped")
	}
}
