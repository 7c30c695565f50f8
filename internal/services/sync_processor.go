package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"prodbudget/internal/sheets"
	"prodbudget/internal/storage"
)

// SyncProcessorConfig holds configuration for the sync processor
type SyncProcessorConfig struct {
	// PollInterval is how often to check for pending tasks (default: 10s)
	PollInterval time.Duration

	// BatchSize is the max number of tasks to process per poll cycle (default: 10)
	BatchSize int

	// MaxRetries is the maximum retry attempts before marking as failed (default: 3)
	MaxRetries int

	// StaleAge is how long a task may sit in processing before it is
	// returned to pending (default: 10m)
	StaleAge time.Duration

	// CleanupInterval is how often to clean up completed tasks (default: 1h)
	CleanupInterval time.Duration

	// CleanupAge is how old completed tasks must be before cleanup (default: 24h)
	CleanupAge time.Duration
}

// DefaultSyncProcessorConfig returns sensible defaults
func DefaultSyncProcessorConfig() SyncProcessorConfig {
	return SyncProcessorConfig{
		PollInterval:    10 * time.Second,
		BatchSize:       10,
		MaxRetries:      3,
		StaleAge:        10 * time.Minute,
		CleanupInterval: 1 * time.Hour,
		CleanupAge:      24 * time.Hour,
	}
}

// SyncProcessor drains the SQLite sync queue against the spreadsheet.
// Auth failures park the task immediately: retrying cannot help until
// someone reauthorizes, and hammering the API just burns quota.
// Transient failures requeue up to MaxRetries.
type SyncProcessor struct {
	storage *storage.SQLiteRepository
	syncer  *SyncService
	config  SyncProcessorConfig

	// Lifecycle management
	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewSyncProcessor creates a new sync processor
func NewSyncProcessor(storage *storage.SQLiteRepository, syncer *SyncService, config SyncProcessorConfig) *SyncProcessor {
	return &SyncProcessor{
		storage: storage,
		syncer:  syncer,
		config:  config,
	}
}

// Start begins the processing loop. Returns an error if already running.
func (p *SyncProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("sync processor is already running")
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	p.mu.Unlock()

	// Reset any stale processing tasks from previous crashes
	if n, err := p.storage.ResetStaleProcessing(ctx, p.config.StaleAge); err != nil {
		slog.WarnContext(ctx, "Failed to reset stale processing tasks", "error", err)
	} else if n > 0 {
		slog.InfoContext(ctx, "Reset stale processing tasks", "count", n)
	}

	go p.runLoop(ctx)

	slog.InfoContext(ctx, "Sync processor started",
		"poll_interval", p.config.PollInterval,
		"batch_size", p.config.BatchSize)

	return nil
}

// Stop gracefully stops the processor and waits for completion.
func (p *SyncProcessor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	// Signal stop
	close(p.stopCh)

	// Wait for completion or context cancellation
	select {
	case <-p.doneCh:
		slog.InfoContext(ctx, "Sync processor stopped gracefully")
	case <-ctx.Done():
		slog.WarnContext(ctx, "Sync processor stop timed out")
		return ctx.Err()
	}

	p.mu.Lock()
	p.running = false
	p.mu.Unlock()

	return nil
}

// IsRunning returns whether the processor is currently running
func (p *SyncProcessor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// runLoop is the main processing loop
func (p *SyncProcessor) runLoop(ctx context.Context) {
	defer close(p.doneCh)

	pollTicker := time.NewTicker(p.config.PollInterval)
	defer pollTicker.Stop()

	cleanupTicker := time.NewTicker(p.config.CleanupInterval)
	defer cleanupTicker.Stop()

	// Process immediately on startup
	p.processBatch(ctx)

	for {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		case <-pollTicker.C:
			p.processBatch(ctx)
		case <-cleanupTicker.C:
			p.cleanupCompleted(ctx)
		}
	}
}

// processBatch processes a single batch of pending tasks
func (p *SyncProcessor) processBatch(ctx context.Context) {
	tasks, err := p.storage.DequeueBatch(ctx, p.config.BatchSize)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to dequeue sync batch", "error", err)
		return
	}

	if len(tasks) == 0 {
		return
	}

	slog.DebugContext(ctx, "Processing sync batch", "count", len(tasks))

	for _, task := range tasks {
		// Check if we should stop
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		default:
		}

		if err := p.storage.MarkProcessing(ctx, task.ID); err != nil {
			slog.ErrorContext(ctx, "Failed to mark task as processing",
				"task_id", task.ID, "error", err)
			continue
		}

		var processErr error
		switch task.Operation {
		case "pull":
			processErr = p.syncer.PullProject(ctx, task.ProjectID)
		case "push":
			processErr = p.syncer.PushProject(ctx, task.ProjectID)
		default:
			processErr = fmt.Errorf("unknown operation: %s", task.Operation)
		}

		if processErr != nil {
			p.handleFailure(ctx, task, processErr)
		} else {
			p.handleSuccess(ctx, task)
		}
	}
}

func (p *SyncProcessor) handleSuccess(ctx context.Context, task storage.SyncTask) {
	if err := p.storage.MarkCompleted(ctx, task.ID); err != nil {
		slog.ErrorContext(ctx, "Failed to mark task completed",
			"task_id", task.ID, "error", err)
		return
	}
	slog.InfoContext(ctx, "Sync task completed",
		"task_id", task.ID,
		"project_id", task.ProjectID,
		"operation", task.Operation)
}

func (p *SyncProcessor) handleFailure(ctx context.Context, task storage.SyncTask, procErr error) {
	if sheets.IsAuthRequired(procErr) {
		if err := p.storage.MarkFailed(ctx, task.ID, procErr.Error()); err != nil {
			slog.ErrorContext(ctx, "Failed to mark task failed",
				"task_id", task.ID, "error", err)
		}
		slog.ErrorContext(ctx, "Sync task needs reauthorization",
			"task_id", task.ID,
			"project_id", task.ProjectID,
			"error", procErr)
		return
	}

	if task.Attempts+1 >= p.config.MaxRetries {
		if err := p.storage.MarkFailed(ctx, task.ID, procErr.Error()); err != nil {
			slog.ErrorContext(ctx, "Failed to mark task failed",
				"task_id", task.ID, "error", err)
		}
		slog.ErrorContext(ctx, "Sync task failed permanently",
			"task_id", task.ID,
			"project_id", task.ProjectID,
			"attempts", task.Attempts+1,
			"error", procErr)
		return
	}

	if err := p.storage.Requeue(ctx, task.ID, procErr.Error()); err != nil {
		slog.ErrorContext(ctx, "Failed to requeue task",
			"task_id", task.ID, "error", err)
		return
	}
	slog.WarnContext(ctx, "Sync task requeued after transient failure",
		"task_id", task.ID,
		"project_id", task.ProjectID,
		"attempt", task.Attempts+1,
		"error", procErr)
}

func (p *SyncProcessor) cleanupCompleted(ctx context.Context) {
	n, err := p.storage.CleanupCompleted(ctx, p.config.CleanupAge)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to clean up completed tasks", "error", err)
		return
	}
	if n > 0 {
		slog.InfoContext(ctx, "Cleaned up completed sync tasks", "count", n)
	}
}
