package services

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"prodbudget/internal/core"
	"prodbudget/internal/storage"
)

func newTestBudgetService(t *testing.T) (*BudgetService, *storage.SQLiteRepository) {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "budget.db"))
	if err != nil {
		t.Fatalf("create repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return NewBudgetService(repo, nil), repo
}

func TestGetBudgetUnknownProjectIsEmpty(t *testing.T) {
	svc, _ := newTestBudgetService(t)

	rec, recon, err := svc.GetBudget(context.Background(), "new-project")
	if err != nil {
		t.Fatalf("get budget: %v", err)
	}
	if rec.ProjectID != "new-project" {
		t.Errorf("project id = %q", rec.ProjectID)
	}
	if recon.TotalContract.Won != 0 || recon.AchievementRate != 0 {
		t.Errorf("empty project should reconcile to zeros, got %+v", recon)
	}
}

func TestAddLineItemRecomputesAndQueuesPush(t *testing.T) {
	svc, repo := newTestBudgetService(t)
	ctx := context.Background()

	id, err := svc.AddLineItem(ctx, "proj-1", core.LineItem{
		Category:     core.CategoryProduction,
		MainCategory: "촬영",
		UnitPrice:    core.Money{Won: 200},
		Quantity:     3,
		VATRate:      core.InvoiceVATRate,
	})
	if err != nil {
		t.Fatalf("add line item: %v", err)
	}
	if id == 0 {
		t.Fatal("expected assigned id")
	}

	rec, _, err := svc.GetBudget(ctx, "proj-1")
	if err != nil {
		t.Fatalf("get budget: %v", err)
	}
	li := rec.LineItems[0]
	if li.TargetExpense.Won != 600 || li.TargetExpenseWithVAT.Won != 660 {
		t.Errorf("derived fields = %d / %d, want 600 / 660",
			li.TargetExpense.Won, li.TargetExpenseWithVAT.Won)
	}

	tasks, err := repo.DequeueBatch(ctx, 10)
	if err != nil {
		t.Fatalf("dequeue: %v", err)
	}
	if len(tasks) != 1 || tasks[0].Operation != "push" {
		t.Errorf("expected one queued push, got %+v", tasks)
	}
}

func TestAddLineItemRejectsInvalid(t *testing.T) {
	svc, _ := newTestBudgetService(t)

	_, err := svc.AddLineItem(context.Background(), "proj-1", core.LineItem{
		Category:     core.CategoryStaff,
		MainCategory: "인건비",
		UnitPrice:    core.Money{Won: -100},
	})
	if !errors.Is(err, core.ErrNegativeAmount) {
		t.Fatalf("expected ErrNegativeAmount, got %v", err)
	}

	_, err = svc.AddLineItem(context.Background(), "proj-1", core.LineItem{
		Category:     "snacks",
		MainCategory: "간식",
	})
	if !errors.Is(err, core.ErrInvalidCategory) {
		t.Fatalf("expected ErrInvalidCategory, got %v", err)
	}
}

func TestRequestSyncRejectsUnknownOperation(t *testing.T) {
	svc, _ := newTestBudgetService(t)

	if _, err := svc.RequestSync(context.Background(), "proj-1", "merge"); err == nil {
		t.Fatal("unknown operation should be rejected")
	}
	if _, err := svc.RequestSync(context.Background(), "proj-1", "pull"); err != nil {
		t.Fatalf("pull request: %v", err)
	}
}

func TestEditsCollapseIntoOnePendingPush(t *testing.T) {
	svc, repo := newTestBudgetService(t)
	ctx := context.Background()

	for range 3 {
		if _, err := svc.AddCardExpense(ctx, "proj-1", core.CardExpense{
			Description:   "테이프",
			AmountWithVAT: core.Money{Won: 12_000},
		}); err != nil {
			t.Fatalf("add card expense: %v", err)
		}
	}

	tasks, err := repo.DequeueBatch(ctx, 10)
	if err != nil {
		t.Fatalf("dequeue: %v", err)
	}
	if len(tasks) != 1 {
		t.Errorf("three edits should leave one pending push, got %d", len(tasks))
	}
}

func TestScheduleProcessorRepairsBalanceAndFlags(t *testing.T) {
	svc, repo := newTestBudgetService(t)
	ctx := context.Background()

	if err := svc.UpdateSummary(ctx, "proj-1", core.Summary{CompanyName: "한양식품"}); err != nil {
		t.Fatalf("seed summary: %v", err)
	}
	id, err := repo.AddPaymentSchedule(ctx, "proj-1", core.PaymentSchedule{
		Label:          "잔금",
		ExpectedAmount: core.Money{Won: 25_000_000},
		ExpectedDate:   core.NewDate(2026, 8, 1),
		ActualAmount:   core.Money{Won: 5_000_000},
		Balance:        core.Money{Won: 25_000_000}, // stale on purpose
	})
	if err != nil {
		t.Fatalf("add schedule: %v", err)
	}

	processor := NewScheduleProcessor(repo, 7*24*time.Hour)
	now := time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC)
	alerts, err := processor.ProcessDueSchedules(ctx, now)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}

	if len(alerts) != 1 || !alerts[0].Overdue {
		t.Fatalf("expected one overdue alert, got %+v", alerts)
	}
	if alerts[0].Schedule.ID != id {
		t.Errorf("alert schedule id = %d, want %d", alerts[0].Schedule.ID, id)
	}
	if alerts[0].Schedule.Balance.Won != 20_000_000 {
		t.Errorf("repaired balance = %d, want 20000000", alerts[0].Schedule.Balance.Won)
	}

	rec, err := repo.LoadRecord(ctx, "proj-1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if rec.PaymentSchedules[0].Balance.Won != 20_000_000 {
		t.Errorf("stored balance = %d, want 20000000", rec.PaymentSchedules[0].Balance.Won)
	}
}
