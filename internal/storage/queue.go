package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Sync queue task states.
const (
	TaskPending    = "pending"
	TaskProcessing = "processing"
	TaskCompleted  = "completed"
	TaskFailed     = "failed"
)

// sqliteTime renders a timestamp the way CURRENT_TIMESTAMP stores it,
// so lexicographic comparison in SQL matches chronological order.
func sqliteTime(t time.Time) string {
	return t.Format("2006-01-02 15:04:05")
}

// SyncTask is one queued spreadsheet sync for a project.
type SyncTask struct {
	ID        int64
	ProjectID string
	Operation string // "pull" or "push"
	Status    string
	Attempts  int
	LastError string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// LinkSpreadsheet records which spreadsheet backs a project.
func (r *SQLiteRepository) LinkSpreadsheet(ctx context.Context, projectID, spreadsheetID string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sheet_links (project_id, spreadsheet_id, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(project_id) DO UPDATE SET
			spreadsheet_id = excluded.spreadsheet_id,
			updated_at = CURRENT_TIMESTAMP`,
		projectID, spreadsheetID)
	if err != nil {
		return fmt.Errorf("link spreadsheet: %w", err)
	}
	return nil
}

// SpreadsheetID implements google.LinkResolver.
func (r *SQLiteRepository) SpreadsheetID(ctx context.Context, projectID string) (string, error) {
	var id string
	err := r.db.QueryRowContext(ctx,
		`SELECT spreadsheet_id FROM sheet_links WHERE project_id = ?`, projectID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("project %s: %w", projectID, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("resolve spreadsheet: %w", err)
	}
	return id, nil
}

// EnqueueSync adds a pull or push task for a project. Duplicate pending
// tasks for the same project and operation collapse into one.
func (r *SQLiteRepository) EnqueueSync(ctx context.Context, projectID, operation string) (int64, error) {
	var existing int64
	err := r.db.QueryRowContext(ctx, `
		SELECT id FROM sync_queue
		WHERE project_id = ? AND operation = ? AND status = ?`,
		projectID, operation, TaskPending).Scan(&existing)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("check pending sync: %w", err)
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO sync_queue (project_id, operation, status)
		VALUES (?, ?, ?)`,
		projectID, operation, TaskPending)
	if err != nil {
		return 0, fmt.Errorf("enqueue sync: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("enqueue sync: %w", err)
	}

	slog.InfoContext(ctx, "Sync task enqueued",
		"task_id", id,
		"project_id", projectID,
		"operation", operation)

	return id, nil
}

// DequeueBatch returns up to limit pending tasks, oldest first. Callers
// mark each task processing before working it.
func (r *SQLiteRepository) DequeueBatch(ctx context.Context, limit int) ([]SyncTask, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, project_id, operation, status, attempts, last_error, created_at, updated_at
		FROM sync_queue
		WHERE status = ?
		ORDER BY created_at
		LIMIT ?`, TaskPending, limit)
	if err != nil {
		return nil, fmt.Errorf("dequeue batch: %w", err)
	}
	defer rows.Close()

	var tasks []SyncTask
	for rows.Next() {
		var t SyncTask
		if err := rows.Scan(&t.ID, &t.ProjectID, &t.Operation, &t.Status,
			&t.Attempts, &t.LastError, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan sync task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// MarkProcessing claims a dequeued task.
func (r *SQLiteRepository) MarkProcessing(ctx context.Context, taskID int64) error {
	return r.setTaskStatus(ctx, taskID, TaskProcessing, "")
}

// MarkCompleted finishes a task successfully.
func (r *SQLiteRepository) MarkCompleted(ctx context.Context, taskID int64) error {
	return r.setTaskStatus(ctx, taskID, TaskCompleted, "")
}

// MarkFailed parks a task permanently with its terminal error.
func (r *SQLiteRepository) MarkFailed(ctx context.Context, taskID int64, errMsg string) error {
	return r.setTaskStatus(ctx, taskID, TaskFailed, errMsg)
}

// Requeue puts a transiently failed task back to pending, counting the
// attempt.
func (r *SQLiteRepository) Requeue(ctx context.Context, taskID int64, errMsg string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE sync_queue
		SET status = ?, attempts = attempts + 1, last_error = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`, TaskPending, errMsg, taskID)
	if err != nil {
		return fmt.Errorf("requeue sync task: %w", err)
	}
	return r.affectedOrNotFound(res, "requeue sync task")
}

func (r *SQLiteRepository) setTaskStatus(ctx context.Context, taskID int64, status, errMsg string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE sync_queue
		SET status = ?, last_error = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`, status, errMsg, taskID)
	if err != nil {
		return fmt.Errorf("set sync task status: %w", err)
	}
	return r.affectedOrNotFound(res, "set sync task status")
}

// ResetStaleProcessing returns tasks stuck in processing (a crashed
// worker, usually) to pending so the next poll retries them.
func (r *SQLiteRepository) ResetStaleProcessing(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := sqliteTime(time.Now().UTC().Add(-olderThan))
	res, err := r.db.ExecContext(ctx, `
		UPDATE sync_queue
		SET status = ?, updated_at = CURRENT_TIMESTAMP
		WHERE status = ? AND updated_at < ?`, TaskPending, TaskProcessing, cutoff)
	if err != nil {
		return 0, fmt.Errorf("reset stale tasks: %w", err)
	}
	return res.RowsAffected()
}

// CleanupCompleted deletes completed tasks older than the retention
// window.
func (r *SQLiteRepository) CleanupCompleted(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := sqliteTime(time.Now().UTC().Add(-olderThan))
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM sync_queue WHERE status = ? AND updated_at < ?`, TaskCompleted, cutoff)
	if err != nil {
		return 0, fmt.Errorf("cleanup completed tasks: %w", err)
	}
	return res.RowsAffected()
}

// FailedTasks lists permanently failed tasks for operator inspection.
func (r *SQLiteRepository) FailedTasks(ctx context.Context, limit int) ([]SyncTask, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, project_id, operation, status, attempts, last_error, created_at, updated_at
		FROM sync_queue
		WHERE status = ?
		ORDER BY updated_at DESC
		LIMIT ?`, TaskFailed, limit)
	if err != nil {
		return nil, fmt.Errorf("list failed tasks: %w", err)
	}
	defer rows.Close()

	var tasks []SyncTask
	for rows.Next() {
		var t SyncTask
		if err := rows.Scan(&t.ID, &t.ProjectID, &t.Operation, &t.Status,
			&t.Attempts, &t.LastError, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan sync task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}
