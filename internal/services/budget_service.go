package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"prodbudget/internal/amqp"
	"prodbudget/internal/core"
	"prodbudget/internal/storage"
)

// BudgetService orchestrates budget reads and edits across SQLite and
// AMQP. Every mutation recomputes the derived fields before persisting,
// then publishes a push notification so the worker mirrors the change
// to the linked spreadsheet. Publish failures never fail the request:
// the local write is authoritative.
type BudgetService struct {
	storage    *storage.SQLiteRepository
	amqpClient *amqp.Client
}

func NewBudgetService(storage *storage.SQLiteRepository, amqpClient *amqp.Client) *BudgetService {
	return &BudgetService{
		storage:    storage,
		amqpClient: amqpClient,
	}
}

// GetBudget loads a project's record and reconciles it. A project with
// no stored budget yet reads as an empty record, not an error.
func (s *BudgetService) GetBudget(ctx context.Context, projectID string) (core.BudgetRecord, core.Reconciliation, error) {
	rec, err := s.storage.LoadRecord(ctx, projectID)
	if errors.Is(err, storage.ErrNotFound) {
		rec = core.NewBudgetRecord(projectID)
	} else if err != nil {
		return core.BudgetRecord{}, core.Reconciliation{}, fmt.Errorf("load budget: %w", err)
	}
	return rec, core.Reconcile(rec), nil
}

// ReplaceBudget swaps the whole record, e.g. after an import.
func (s *BudgetService) ReplaceBudget(ctx context.Context, rec core.BudgetRecord) error {
	for i := range rec.LineItems {
		rec.LineItems[i].Recompute()
	}
	for i := range rec.TaxInvoices {
		rec.TaxInvoices[i].Recompute()
	}
	for i := range rec.Withholdings {
		rec.Withholdings[i].Recompute()
	}
	if err := s.storage.ReplaceRecord(ctx, rec); err != nil {
		return fmt.Errorf("replace budget: %w", err)
	}
	s.notifyPush(ctx, rec.ProjectID)
	return nil
}

// UpdateSummary overwrites the contract-level figures.
func (s *BudgetService) UpdateSummary(ctx context.Context, projectID string, sum core.Summary) error {
	for _, m := range []core.Money{
		sum.TotalContractAmount, sum.VATAmount, sum.TotalWithVAT,
		sum.TargetExpense, sum.TargetExpenseWithVAT,
		sum.ActualExpense, sum.ActualExpenseWithVAT,
	} {
		if err := m.Validate(); err != nil {
			return err
		}
	}
	if err := s.storage.UpdateSummary(ctx, projectID, sum); err != nil {
		return fmt.Errorf("update summary: %w", err)
	}
	s.notifyPush(ctx, projectID)
	return nil
}

func (s *BudgetService) AddLineItem(ctx context.Context, projectID string, li core.LineItem) (int64, error) {
	if err := li.Validate(); err != nil {
		return 0, err
	}
	li.Recompute()
	id, err := s.storage.AddLineItem(ctx, projectID, li)
	if err != nil {
		return 0, fmt.Errorf("add line item: %w", err)
	}
	s.notifyPush(ctx, projectID)
	return id, nil
}

func (s *BudgetService) UpdateLineItem(ctx context.Context, projectID string, li core.LineItem) error {
	if err := li.Validate(); err != nil {
		return err
	}
	li.Recompute()
	if err := s.storage.UpdateLineItem(ctx, projectID, li); err != nil {
		return err
	}
	s.notifyPush(ctx, projectID)
	return nil
}

func (s *BudgetService) DeleteLineItem(ctx context.Context, projectID string, id int64) error {
	if err := s.storage.DeleteLineItem(ctx, projectID, id); err != nil {
		return err
	}
	s.notifyPush(ctx, projectID)
	return nil
}

func (s *BudgetService) AddPaymentSchedule(ctx context.Context, projectID string, ps core.PaymentSchedule) (int64, error) {
	if err := ps.Validate(); err != nil {
		return 0, err
	}
	ps.Balance = ps.ExpectedAmount.Sub(ps.ActualAmount)
	id, err := s.storage.AddPaymentSchedule(ctx, projectID, ps)
	if err != nil {
		return 0, fmt.Errorf("add payment schedule: %w", err)
	}
	s.notifyPush(ctx, projectID)
	return id, nil
}

func (s *BudgetService) UpdatePaymentSchedule(ctx context.Context, projectID string, ps core.PaymentSchedule) error {
	if err := ps.Validate(); err != nil {
		return err
	}
	ps.Balance = ps.ExpectedAmount.Sub(ps.ActualAmount)
	if err := s.storage.UpdatePaymentSchedule(ctx, projectID, ps); err != nil {
		return err
	}
	s.notifyPush(ctx, projectID)
	return nil
}

func (s *BudgetService) DeletePaymentSchedule(ctx context.Context, projectID string, id int64) error {
	if err := s.storage.DeletePaymentSchedule(ctx, projectID, id); err != nil {
		return err
	}
	s.notifyPush(ctx, projectID)
	return nil
}

func (s *BudgetService) AddTaxInvoice(ctx context.Context, projectID string, ti core.TaxInvoice) (int64, error) {
	if err := ti.Validate(); err != nil {
		return 0, err
	}
	ti.Recompute()
	id, err := s.storage.AddTaxInvoice(ctx, projectID, ti)
	if err != nil {
		return 0, fmt.Errorf("add tax invoice: %w", err)
	}
	s.notifyPush(ctx, projectID)
	return id, nil
}

func (s *BudgetService) UpdateTaxInvoice(ctx context.Context, projectID string, ti core.TaxInvoice) error {
	if err := ti.Validate(); err != nil {
		return err
	}
	ti.Recompute()
	if err := s.storage.UpdateTaxInvoice(ctx, projectID, ti); err != nil {
		return err
	}
	s.notifyPush(ctx, projectID)
	return nil
}

func (s *BudgetService) DeleteTaxInvoice(ctx context.Context, projectID string, id int64) error {
	if err := s.storage.DeleteTaxInvoice(ctx, projectID, id); err != nil {
		return err
	}
	s.notifyPush(ctx, projectID)
	return nil
}

func (s *BudgetService) AddWithholding(ctx context.Context, projectID string, w core.Withholding) (int64, error) {
	if err := w.Validate(); err != nil {
		return 0, err
	}
	w.Recompute()
	id, err := s.storage.AddWithholding(ctx, projectID, w)
	if err != nil {
		return 0, fmt.Errorf("add withholding: %w", err)
	}
	s.notifyPush(ctx, projectID)
	return id, nil
}

func (s *BudgetService) UpdateWithholding(ctx context.Context, projectID string, w core.Withholding) error {
	if err := w.Validate(); err != nil {
		return err
	}
	w.Recompute()
	if err := s.storage.UpdateWithholding(ctx, projectID, w); err != nil {
		return err
	}
	s.notifyPush(ctx, projectID)
	return nil
}

func (s *BudgetService) DeleteWithholding(ctx context.Context, projectID string, id int64) error {
	if err := s.storage.DeleteWithholding(ctx, projectID, id); err != nil {
		return err
	}
	s.notifyPush(ctx, projectID)
	return nil
}

func (s *BudgetService) AddCardExpense(ctx context.Context, projectID string, ce core.CardExpense) (int64, error) {
	if err := ce.Validate(); err != nil {
		return 0, err
	}
	id, err := s.storage.AddCardExpense(ctx, projectID, ce)
	if err != nil {
		return 0, fmt.Errorf("add card expense: %w", err)
	}
	s.notifyPush(ctx, projectID)
	return id, nil
}

func (s *BudgetService) UpdateCardExpense(ctx context.Context, projectID string, ce core.CardExpense) error {
	if err := ce.Validate(); err != nil {
		return err
	}
	if err := s.storage.UpdateCardExpense(ctx, projectID, ce); err != nil {
		return err
	}
	s.notifyPush(ctx, projectID)
	return nil
}

func (s *BudgetService) DeleteCardExpense(ctx context.Context, projectID string, id int64) error {
	if err := s.storage.DeleteCardExpense(ctx, projectID, id); err != nil {
		return err
	}
	s.notifyPush(ctx, projectID)
	return nil
}

func (s *BudgetService) AddCashExpense(ctx context.Context, projectID string, ce core.CashExpense) (int64, error) {
	if err := ce.Validate(); err != nil {
		return 0, err
	}
	id, err := s.storage.AddCashExpense(ctx, projectID, ce)
	if err != nil {
		return 0, fmt.Errorf("add cash expense: %w", err)
	}
	s.notifyPush(ctx, projectID)
	return id, nil
}

func (s *BudgetService) UpdateCashExpense(ctx context.Context, projectID string, ce core.CashExpense) error {
	if err := ce.Validate(); err != nil {
		return err
	}
	if err := s.storage.UpdateCashExpense(ctx, projectID, ce); err != nil {
		return err
	}
	s.notifyPush(ctx, projectID)
	return nil
}

func (s *BudgetService) DeleteCashExpense(ctx context.Context, projectID string, id int64) error {
	if err := s.storage.DeleteCashExpense(ctx, projectID, id); err != nil {
		return err
	}
	s.notifyPush(ctx, projectID)
	return nil
}

func (s *BudgetService) AddPersonalExpense(ctx context.Context, projectID string, pe core.PersonalExpense) (int64, error) {
	if err := pe.Validate(); err != nil {
		return 0, err
	}
	id, err := s.storage.AddPersonalExpense(ctx, projectID, pe)
	if err != nil {
		return 0, fmt.Errorf("add personal expense: %w", err)
	}
	s.notifyPush(ctx, projectID)
	return id, nil
}

func (s *BudgetService) UpdatePersonalExpense(ctx context.Context, projectID string, pe core.PersonalExpense) error {
	if err := pe.Validate(); err != nil {
		return err
	}
	if err := s.storage.UpdatePersonalExpense(ctx, projectID, pe); err != nil {
		return err
	}
	s.notifyPush(ctx, projectID)
	return nil
}

func (s *BudgetService) DeletePersonalExpense(ctx context.Context, projectID string, id int64) error {
	if err := s.storage.DeletePersonalExpense(ctx, projectID, id); err != nil {
		return err
	}
	s.notifyPush(ctx, projectID)
	return nil
}

// LinkSpreadsheet binds a project to its backing spreadsheet.
func (s *BudgetService) LinkSpreadsheet(ctx context.Context, projectID, spreadsheetID string) error {
	if err := s.storage.LinkSpreadsheet(ctx, projectID, spreadsheetID); err != nil {
		return err
	}
	return nil
}

// RequestSync queues a pull or push for the background processor.
func (s *BudgetService) RequestSync(ctx context.Context, projectID, operation string) (int64, error) {
	if operation != "pull" && operation != "push" {
		return 0, fmt.Errorf("unknown sync operation: %s", operation)
	}
	id, err := s.storage.EnqueueSync(ctx, projectID, operation)
	if err != nil {
		return 0, err
	}
	s.publishSyncMessage(ctx, projectID, operation)
	return id, nil
}

func (s *BudgetService) notifyPush(ctx context.Context, projectID string) {
	if _, err := s.storage.EnqueueSync(ctx, projectID, "push"); err != nil {
		slog.ErrorContext(ctx, "Failed to enqueue push after edit",
			"project_id", projectID, "error", err)
		return
	}
	s.publishSyncMessage(ctx, projectID, "push")
}

func (s *BudgetService) publishSyncMessage(ctx context.Context, projectID, operation string) {
	if s.amqpClient == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping sync message")
		return
	}
	if err := s.amqpClient.PublishBudgetSync(ctx, projectID, operation); err != nil {
		slog.ErrorContext(ctx, "Failed to publish sync message",
			"project_id", projectID, "operation", operation, "error", err)
		// Don't fail the request - the queue row still drives the sync
	}
}

// Ping reports whether the backing database is reachable.
func (s *BudgetService) Ping(ctx context.Context) error {
	return s.storage.Ping(ctx)
}

// Close closes both storage and AMQP connections.
func (s *BudgetService) Close() error {
	var errs []error

	if s.storage != nil {
		if err := s.storage.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	if s.amqpClient != nil {
		if err := s.amqpClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	return errors.Join(errs...)
}
