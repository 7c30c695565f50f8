package sheets

import (
	"context"
	"errors"
	"fmt"

	"prodbudget/internal/core"
)

// Ports for the spreadsheet sync collaborators.
type (
	// SnapshotSource pulls the full budget snapshot of a project from
	// its linked spreadsheet. A successful pull supersedes local state
	// wholesale; on error the caller keeps its record untouched.
	SnapshotSource interface {
		Pull(ctx context.Context, projectID string) (core.BudgetRecord, error)
	}

	// SnapshotSink pushes a project's budget snapshot to its linked
	// spreadsheet.
	SnapshotSink interface {
		Push(ctx context.Context, projectID string, rec core.BudgetRecord) error
	}
)

// ErrorKind classifies sync failures. The caller surfaces the two kinds
// differently: a reauthorization prompt versus a retry-later message.
type ErrorKind int

const (
	KindTransient ErrorKind = iota
	KindAuthRequired
)

// SyncError is the tagged error returned by the spreadsheet adapters.
type SyncError struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *SyncError) Error() string {
	switch e.Kind {
	case KindAuthRequired:
		return fmt.Sprintf("%s: spreadsheet authorization required: %v", e.Op, e.Err)
	default:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
}

func (e *SyncError) Unwrap() error {
	return e.Err
}

// AuthRequired wraps err as a sync error that needs reauthorization.
func AuthRequired(op string, err error) *SyncError {
	return &SyncError{Kind: KindAuthRequired, Op: op, Err: err}
}

// Transient wraps err as a retryable sync error.
func Transient(op string, err error) *SyncError {
	return &SyncError{Kind: KindTransient, Op: op, Err: err}
}

// IsAuthRequired reports whether err is a sync error that requires the
// user to reauthorize the spreadsheet link.
func IsAuthRequired(err error) bool {
	var se *SyncError
	return errors.As(err, &se) && se.Kind == KindAuthRequired
}

// IsTransient reports whether err is a retryable sync error.
func IsTransient(err error) bool {
	var se *SyncError
	return errors.As(err, &se) && se.Kind == KindTransient
}
