package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"prodbudget/internal/core"
	"prodbudget/internal/storage"
)

// ScheduleAlert is one installment flagged by the sweep.
type ScheduleAlert struct {
	ProjectID string
	Schedule  core.PaymentSchedule
	Overdue   bool
}

// ScheduleProcessor sweeps payment schedules across all projects and
// flags installments that are due soon or overdue. The sweep also
// recomputes stored balances, which drift when actual amounts are
// edited directly in the spreadsheet.
type ScheduleProcessor struct {
	storage *storage.SQLiteRepository
	dueSoon DuenessChecker
	overdue DuenessChecker
}

func NewScheduleProcessor(storage *storage.SQLiteRepository, lookahead time.Duration) *ScheduleProcessor {
	return &ScheduleProcessor{
		storage: storage,
		dueSoon: DueSoonChecker{Lookahead: lookahead},
		overdue: OverdueChecker{},
	}
}

// ProcessDueSchedules sweeps every project, repairs drifted balances
// and returns the flagged installments.
func (p *ScheduleProcessor) ProcessDueSchedules(ctx context.Context, now time.Time) ([]ScheduleAlert, error) {
	if p.storage == nil {
		return nil, fmt.Errorf("processor not properly initialized")
	}

	projects, err := p.storage.ListProjects(ctx)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}

	slog.InfoContext(ctx, "Sweeping payment schedules",
		"projects", len(projects),
		"processing_date", now.Format("2006-01-02"))

	var alerts []ScheduleAlert
	for _, projectID := range projects {
		rec, err := p.storage.LoadRecord(ctx, projectID)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to load record for sweep",
				"project_id", projectID, "error", err)
			continue
		}

		for _, ps := range rec.PaymentSchedules {
			balance := ps.ExpectedAmount.Sub(ps.ActualAmount)
			if balance != ps.Balance {
				ps.Balance = balance
				if err := p.storage.UpdatePaymentSchedule(ctx, projectID, ps); err != nil {
					slog.ErrorContext(ctx, "Failed to repair schedule balance",
						"project_id", projectID, "schedule_id", ps.ID, "error", err)
					continue
				}
				slog.InfoContext(ctx, "Repaired drifted schedule balance",
					"project_id", projectID,
					"schedule_id", ps.ID,
					"balance", ps.Balance.Won)
			}

			switch {
			case p.overdue.Matches(ps, now):
				alerts = append(alerts, ScheduleAlert{ProjectID: projectID, Schedule: ps, Overdue: true})
				slog.WarnContext(ctx, "Installment overdue",
					"project_id", projectID,
					"label", ps.Label,
					"expected_date", ps.ExpectedDate.Format("2006-01-02"),
					"balance", ps.Balance.Won)
			case p.dueSoon.Matches(ps, now):
				alerts = append(alerts, ScheduleAlert{ProjectID: projectID, Schedule: ps})
				slog.InfoContext(ctx, "Installment due soon",
					"project_id", projectID,
					"label", ps.Label,
					"expected_date", ps.ExpectedDate.Format("2006-01-02"),
					"balance", ps.Balance.Won)
			}
		}
	}

	return alerts, nil
}
