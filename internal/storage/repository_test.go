package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"prodbudget/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "budget.db"))
	if err != nil {
		t.Fatalf("create repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func sampleRecord(projectID string) core.BudgetRecord {
	rec := core.NewBudgetRecord(projectID)
	rec.Summary = core.Summary{
		CompanyName:         "한양식품",
		ContractName:        "브랜드 필름",
		TotalContractAmount: core.Money{Won: 50_000_000},
		VATAmount:           core.Money{Won: 5_000_000},
		TotalWithVAT:        core.Money{Won: 55_000_000},
	}
	rec.PaymentSchedules = []core.PaymentSchedule{
		{Label: "계약금", ExpectedAmount: core.Money{Won: 25_000_000}, ExpectedDate: core.NewDate(2026, 3, 2)},
	}
	li := core.LineItem{
		Category:     core.CategoryStaff,
		MainCategory: "인건비",
		SubCategory:  "연출",
		UnitPrice:    core.Money{Won: 1_500_000},
		Quantity:     4,
		VATRate:      core.InvoiceVATRate,
	}
	li.Recompute()
	rec.LineItems = []core.LineItem{li}
	ti := core.TaxInvoice{
		Counterparty: "스튜디오렌탈",
		SupplyAmount: core.Money{Won: 2_400_000},
		IssueDate:    core.NewDate(2026, 3, 14),
		Status:       core.StatusPaymentComplete,
	}
	ti.Recompute()
	rec.TaxInvoices = []core.TaxInvoice{ti}
	w := core.Withholding{
		Payee:       "김촬영",
		GrossAmount: core.Money{Won: 1_000_000},
		Status:      core.StatusPending,
	}
	w.Recompute()
	rec.Withholdings = []core.Withholding{w}
	rec.CardExpenses = []core.CardExpense{
		{Description: "소품 구입", AmountWithVAT: core.Money{Won: 180_000}, UsedDate: core.NewDate(2026, 4, 8)},
	}
	rec.PersonalExpenses = []core.PersonalExpense{
		{Description: "현장 식대", AmountWithVAT: core.Money{Won: 45_000}, Status: core.StatusPending},
	}
	return rec
}

func TestLoadRecordNotFound(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.LoadRecord(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestLoadRecordWithoutSummaryRow(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	// Incremental mutations do not create a summary row; detail rows
	// alone must still surface on load.
	li := core.LineItem{
		Category:     core.CategoryProduction,
		MainCategory: "진행비",
		UnitPrice:    core.Money{Won: 500_000},
		Quantity:     2,
	}
	li.Recompute()
	if _, err := repo.AddLineItem(ctx, "fresh", li); err != nil {
		t.Fatalf("AddLineItem: %v", err)
	}
	if _, err := repo.AddCardExpense(ctx, "fresh", core.CardExpense{
		Description:   "주유비",
		AmountWithVAT: core.Money{Won: 80_000},
		UsedDate:      core.NewDate(2026, 8, 12),
	}); err != nil {
		t.Fatalf("AddCardExpense: %v", err)
	}

	rec, err := repo.LoadRecord(ctx, "fresh")
	if err != nil {
		t.Fatalf("LoadRecord: %v", err)
	}
	if len(rec.LineItems) != 1 {
		t.Errorf("line items = %d, want 1", len(rec.LineItems))
	}
	if len(rec.CardExpenses) != 1 {
		t.Errorf("card expenses = %d, want 1", len(rec.CardExpenses))
	}
	if rec.Summary != (core.Summary{}) {
		t.Errorf("summary should be zero-valued, got %+v", rec.Summary)
	}
}

func TestReplaceAndLoadRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	in := sampleRecord("proj-1")
	if err := repo.ReplaceRecord(ctx, in); err != nil {
		t.Fatalf("replace: %v", err)
	}

	out, err := repo.LoadRecord(ctx, "proj-1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if out.Summary != in.Summary {
		t.Errorf("summary mismatch: got %+v", out.Summary)
	}
	if len(out.LineItems) != 1 || out.LineItems[0].TargetExpense.Won != 6_000_000 {
		t.Errorf("line items = %+v", out.LineItems)
	}
	if len(out.TaxInvoices) != 1 || out.TaxInvoices[0].TotalAmount.Won != 2_640_000 {
		t.Errorf("tax invoices = %+v", out.TaxInvoices)
	}
	if len(out.Withholdings) != 1 || out.Withholdings[0].NetAmount.Won != 967_000 {
		t.Errorf("withholdings = %+v", out.Withholdings)
	}
	if out.PaymentSchedules[0].ExpectedDate.Format("2006-01-02") != "2026-03-02" {
		t.Errorf("expected date = %v", out.PaymentSchedules[0].ExpectedDate)
	}
	if out.CashExpenses != nil {
		t.Errorf("cash expenses should be empty, got %+v", out.CashExpenses)
	}
}

func TestReplaceRecordIsWholesale(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if err := repo.ReplaceRecord(ctx, sampleRecord("proj-1")); err != nil {
		t.Fatalf("first replace: %v", err)
	}

	slim := core.NewBudgetRecord("proj-1")
	slim.Summary.CompanyName = "서울커머스"
	if err := repo.ReplaceRecord(ctx, slim); err != nil {
		t.Fatalf("second replace: %v", err)
	}

	out, err := repo.LoadRecord(ctx, "proj-1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if out.Summary.CompanyName != "서울커머스" {
		t.Errorf("company = %q", out.Summary.CompanyName)
	}
	if len(out.LineItems) != 0 || len(out.TaxInvoices) != 0 {
		t.Errorf("detail rows should be cleared, got %d items, %d invoices",
			len(out.LineItems), len(out.TaxInvoices))
	}
}

func TestLineItemCRUD(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if err := repo.UpdateSummary(ctx, "proj-1", core.Summary{CompanyName: "한양식품"}); err != nil {
		t.Fatalf("seed summary: %v", err)
	}

	li := core.LineItem{
		Category:     core.CategoryEquipment,
		MainCategory: "장비",
		UnitPrice:    core.Money{Won: 800_000},
		Quantity:     3,
	}
	li.Recompute()

	id, err := repo.AddLineItem(ctx, "proj-1", li)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if id == 0 {
		t.Fatal("expected non-zero id")
	}

	li.ID = id
	li.Quantity = 5
	li.Recompute()
	if err := repo.UpdateLineItem(ctx, "proj-1", li); err != nil {
		t.Fatalf("update: %v", err)
	}

	out, err := repo.LoadRecord(ctx, "proj-1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if out.LineItems[0].TargetExpense.Won != 4_000_000 {
		t.Errorf("target = %d, want 4000000", out.LineItems[0].TargetExpense.Won)
	}

	if err := repo.DeleteLineItem(ctx, "proj-1", id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := repo.DeleteLineItem(ctx, "proj-1", id); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete should be ErrNotFound, got %v", err)
	}
}

func TestMutationsScopedToProject(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	id, err := repo.AddCardExpense(ctx, "proj-1", core.CardExpense{
		Description:   "렌즈 렌탈",
		AmountWithVAT: core.Money{Won: 300_000},
	})
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	if err := repo.DeleteCardExpense(ctx, "proj-2", id); !errors.Is(err, ErrNotFound) {
		t.Errorf("cross-project delete should be ErrNotFound, got %v", err)
	}
	if err := repo.DeleteCardExpense(ctx, "proj-1", id); err != nil {
		t.Errorf("same-project delete: %v", err)
	}
}

func TestSheetLinks(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if _, err := repo.SpreadsheetID(ctx, "proj-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := repo.LinkSpreadsheet(ctx, "proj-1", "sheet-abc"); err != nil {
		t.Fatalf("link: %v", err)
	}
	if err := repo.LinkSpreadsheet(ctx, "proj-1", "sheet-def"); err != nil {
		t.Fatalf("relink: %v", err)
	}

	id, err := repo.SpreadsheetID(ctx, "proj-1")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if id != "sheet-def" {
		t.Errorf("spreadsheet id = %q, want sheet-def", id)
	}
}

func TestSyncQueueLifecycle(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	id, err := repo.EnqueueSync(ctx, "proj-1", "pull")
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	// Duplicate pending task collapses
	dup, err := repo.EnqueueSync(ctx, "proj-1", "pull")
	if err != nil {
		t.Fatalf("enqueue dup: %v", err)
	}
	if dup != id {
		t.Errorf("duplicate enqueue returned %d, want %d", dup, id)
	}

	tasks, err := repo.DequeueBatch(ctx, 10)
	if err != nil {
		t.Fatalf("dequeue: %v", err)
	}
	if len(tasks) != 1 || tasks[0].Operation != "pull" {
		t.Fatalf("tasks = %+v", tasks)
	}

	if err := repo.MarkProcessing(ctx, id); err != nil {
		t.Fatalf("mark processing: %v", err)
	}

	// Processing tasks are not dequeued again
	tasks, err = repo.DequeueBatch(ctx, 10)
	if err != nil {
		t.Fatalf("dequeue again: %v", err)
	}
	if len(tasks) != 0 {
		t.Fatalf("expected empty batch, got %+v", tasks)
	}

	if err := repo.Requeue(ctx, id, "temporary outage"); err != nil {
		t.Fatalf("requeue: %v", err)
	}
	tasks, err = repo.DequeueBatch(ctx, 10)
	if err != nil {
		t.Fatalf("dequeue after requeue: %v", err)
	}
	if len(tasks) != 1 || tasks[0].Attempts != 1 || tasks[0].LastError != "temporary outage" {
		t.Fatalf("requeued task = %+v", tasks)
	}

	if err := repo.MarkFailed(ctx, id, "reauthorization required"); err != nil {
		t.Fatalf("mark failed: %v", err)
	}
	failed, err := repo.FailedTasks(ctx, 10)
	if err != nil {
		t.Fatalf("failed tasks: %v", err)
	}
	if len(failed) != 1 || failed[0].LastError != "reauthorization required" {
		t.Fatalf("failed = %+v", failed)
	}
}

func TestCleanupCompleted(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	id, err := repo.EnqueueSync(ctx, "proj-1", "push")
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if err := repo.MarkCompleted(ctx, id); err != nil {
		t.Fatalf("complete: %v", err)
	}

	// Nothing younger than the window is removed
	n, err := repo.CleanupCompleted(ctx, time.Hour)
	if err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if n != 0 {
		t.Errorf("cleanup removed %d tasks, want 0", n)
	}

	// A zero window removes everything completed
	n, err = repo.CleanupCompleted(ctx, -time.Hour)
	if err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if n != 1 {
		t.Errorf("cleanup removed %d tasks, want 1", n)
	}
}
