package storage

import (
	"context"
	"fmt"

	"prodbudget/internal/core"
)

// Incremental mutations for the detail tables. Each insert returns the
// assigned row ID; updates and deletes report ErrNotFound when the row
// does not belong to the project.

func (r *SQLiteRepository) affectedOrNotFound(res interface{ RowsAffected() (int64, error) }, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) AddPaymentSchedule(ctx context.Context, projectID string, ps core.PaymentSchedule) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO payment_schedules (project_id, label, expected_amount, expected_date, actual_amount, balance)
		VALUES (?, ?, ?, ?, ?, ?)`,
		projectID, ps.Label, ps.ExpectedAmount.Won, dateToDB(ps.ExpectedDate), ps.ActualAmount.Won, ps.Balance.Won)
	if err != nil {
		return 0, fmt.Errorf("add payment schedule: %w", err)
	}
	return res.LastInsertId()
}

func (r *SQLiteRepository) UpdatePaymentSchedule(ctx context.Context, projectID string, ps core.PaymentSchedule) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE payment_schedules
		SET label = ?, expected_amount = ?, expected_date = ?, actual_amount = ?, balance = ?
		WHERE id = ? AND project_id = ?`,
		ps.Label, ps.ExpectedAmount.Won, dateToDB(ps.ExpectedDate), ps.ActualAmount.Won, ps.Balance.Won,
		ps.ID, projectID)
	if err != nil {
		return fmt.Errorf("update payment schedule: %w", err)
	}
	return r.affectedOrNotFound(res, "update payment schedule")
}

func (r *SQLiteRepository) DeletePaymentSchedule(ctx context.Context, projectID string, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM payment_schedules WHERE id = ? AND project_id = ?`, id, projectID)
	if err != nil {
		return fmt.Errorf("delete payment schedule: %w", err)
	}
	return r.affectedOrNotFound(res, "delete payment schedule")
}

func (r *SQLiteRepository) AddLineItem(ctx context.Context, projectID string, li core.LineItem) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO line_items (project_id, category, main_category, sub_category, unit_price, quantity,
		                        vat_rate, payment_method, target_expense, target_expense_with_vat,
		                        actual_expense_with_vat, variance)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		projectID, li.Category, li.MainCategory, li.SubCategory, li.UnitPrice.Won, li.Quantity,
		li.VATRate, li.PaymentMethod, li.TargetExpense.Won, li.TargetExpenseWithVAT.Won,
		li.ActualExpenseWithVAT.Won, li.Variance.Won)
	if err != nil {
		return 0, fmt.Errorf("add line item: %w", err)
	}
	return res.LastInsertId()
}

func (r *SQLiteRepository) UpdateLineItem(ctx context.Context, projectID string, li core.LineItem) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE line_items
		SET category = ?, main_category = ?, sub_category = ?, unit_price = ?, quantity = ?,
		    vat_rate = ?, payment_method = ?, target_expense = ?, target_expense_with_vat = ?,
		    actual_expense_with_vat = ?, variance = ?
		WHERE id = ? AND project_id = ?`,
		li.Category, li.MainCategory, li.SubCategory, li.UnitPrice.Won, li.Quantity,
		li.VATRate, li.PaymentMethod, li.TargetExpense.Won, li.TargetExpenseWithVAT.Won,
		li.ActualExpenseWithVAT.Won, li.Variance.Won,
		li.ID, projectID)
	if err != nil {
		return fmt.Errorf("update line item: %w", err)
	}
	return r.affectedOrNotFound(res, "update line item")
}

func (r *SQLiteRepository) DeleteLineItem(ctx context.Context, projectID string, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM line_items WHERE id = ? AND project_id = ?`, id, projectID)
	if err != nil {
		return fmt.Errorf("delete line item: %w", err)
	}
	return r.affectedOrNotFound(res, "delete line item")
}

func (r *SQLiteRepository) AddTaxInvoice(ctx context.Context, projectID string, ti core.TaxInvoice) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO tax_invoices (project_id, counterparty, supply_amount, tax_amount, total_amount, issue_date, status)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		projectID, ti.Counterparty, ti.SupplyAmount.Won, ti.TaxAmount.Won, ti.TotalAmount.Won,
		dateToDB(ti.IssueDate), ti.Status)
	if err != nil {
		return 0, fmt.Errorf("add tax invoice: %w", err)
	}
	return res.LastInsertId()
}

func (r *SQLiteRepository) UpdateTaxInvoice(ctx context.Context, projectID string, ti core.TaxInvoice) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE tax_invoices
		SET counterparty = ?, supply_amount = ?, tax_amount = ?, total_amount = ?, issue_date = ?, status = ?
		WHERE id = ? AND project_id = ?`,
		ti.Counterparty, ti.SupplyAmount.Won, ti.TaxAmount.Won, ti.TotalAmount.Won,
		dateToDB(ti.IssueDate), ti.Status,
		ti.ID, projectID)
	if err != nil {
		return fmt.Errorf("update tax invoice: %w", err)
	}
	return r.affectedOrNotFound(res, "update tax invoice")
}

func (r *SQLiteRepository) DeleteTaxInvoice(ctx context.Context, projectID string, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM tax_invoices WHERE id = ? AND project_id = ?`, id, projectID)
	if err != nil {
		return fmt.Errorf("delete tax invoice: %w", err)
	}
	return r.affectedOrNotFound(res, "delete tax invoice")
}

func (r *SQLiteRepository) AddWithholding(ctx context.Context, projectID string, w core.Withholding) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO withholdings (project_id, payee, gross_amount, withholding_tax, net_amount, amount, status)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		projectID, w.Payee, w.GrossAmount.Won, w.WithholdingTax.Won, w.NetAmount.Won, w.Amount.Won, w.Status)
	if err != nil {
		return 0, fmt.Errorf("add withholding: %w", err)
	}
	return res.LastInsertId()
}

func (r *SQLiteRepository) UpdateWithholding(ctx context.Context, projectID string, w core.Withholding) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE withholdings
		SET payee = ?, gross_amount = ?, withholding_tax = ?, net_amount = ?, amount = ?, status = ?
		WHERE id = ? AND project_id = ?`,
		w.Payee, w.GrossAmount.Won, w.WithholdingTax.Won, w.NetAmount.Won, w.Amount.Won, w.Status,
		w.ID, projectID)
	if err != nil {
		return fmt.Errorf("update withholding: %w", err)
	}
	return r.affectedOrNotFound(res, "update withholding")
}

func (r *SQLiteRepository) DeleteWithholding(ctx context.Context, projectID string, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM withholdings WHERE id = ? AND project_id = ?`, id, projectID)
	if err != nil {
		return fmt.Errorf("delete withholding: %w", err)
	}
	return r.affectedOrNotFound(res, "delete withholding")
}

func (r *SQLiteRepository) AddCardExpense(ctx context.Context, projectID string, ce core.CardExpense) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO card_expenses (project_id, description, amount_with_vat, used_date)
		VALUES (?, ?, ?, ?)`,
		projectID, ce.Description, ce.AmountWithVAT.Won, dateToDB(ce.UsedDate))
	if err != nil {
		return 0, fmt.Errorf("add card expense: %w", err)
	}
	return res.LastInsertId()
}

func (r *SQLiteRepository) UpdateCardExpense(ctx context.Context, projectID string, ce core.CardExpense) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE card_expenses SET description = ?, amount_with_vat = ?, used_date = ?
		WHERE id = ? AND project_id = ?`,
		ce.Description, ce.AmountWithVAT.Won, dateToDB(ce.UsedDate), ce.ID, projectID)
	if err != nil {
		return fmt.Errorf("update card expense: %w", err)
	}
	return r.affectedOrNotFound(res, "update card expense")
}

func (r *SQLiteRepository) DeleteCardExpense(ctx context.Context, projectID string, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM card_expenses WHERE id = ? AND project_id = ?`, id, projectID)
	if err != nil {
		return fmt.Errorf("delete card expense: %w", err)
	}
	return r.affectedOrNotFound(res, "delete card expense")
}

func (r *SQLiteRepository) AddCashExpense(ctx context.Context, projectID string, ce core.CashExpense) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO cash_expenses (project_id, description, amount_with_vat, used_date)
		VALUES (?, ?, ?, ?)`,
		projectID, ce.Description, ce.AmountWithVAT.Won, dateToDB(ce.UsedDate))
	if err != nil {
		return 0, fmt.Errorf("add cash expense: %w", err)
	}
	return res.LastInsertId()
}

func (r *SQLiteRepository) UpdateCashExpense(ctx context.Context, projectID string, ce core.CashExpense) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE cash_expenses SET description = ?, amount_with_vat = ?, used_date = ?
		WHERE id = ? AND project_id = ?`,
		ce.Description, ce.AmountWithVAT.Won, dateToDB(ce.UsedDate), ce.ID, projectID)
	if err != nil {
		return fmt.Errorf("update cash expense: %w", err)
	}
	return r.affectedOrNotFound(res, "update cash expense")
}

func (r *SQLiteRepository) DeleteCashExpense(ctx context.Context, projectID string, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM cash_expenses WHERE id = ? AND project_id = ?`, id, projectID)
	if err != nil {
		return fmt.Errorf("delete cash expense: %w", err)
	}
	return r.affectedOrNotFound(res, "delete cash expense")
}

func (r *SQLiteRepository) AddPersonalExpense(ctx context.Context, projectID string, pe core.PersonalExpense) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO personal_expenses (project_id, description, amount_with_vat, used_date, status)
		VALUES (?, ?, ?, ?, ?)`,
		projectID, pe.Description, pe.AmountWithVAT.Won, dateToDB(pe.UsedDate), pe.Status)
	if err != nil {
		return 0, fmt.Errorf("add personal expense: %w", err)
	}
	return res.LastInsertId()
}

func (r *SQLiteRepository) UpdatePersonalExpense(ctx context.Context, projectID string, pe core.PersonalExpense) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE personal_expenses SET description = ?, amount_with_vat = ?, used_date = ?, status = ?
		WHERE id = ? AND project_id = ?`,
		pe.Description, pe.AmountWithVAT.Won, dateToDB(pe.UsedDate), pe.Status, pe.ID, projectID)
	if err != nil {
		return fmt.Errorf("update personal expense: %w", err)
	}
	return r.affectedOrNotFound(res, "update personal expense")
}

func (r *SQLiteRepository) DeletePersonalExpense(ctx context.Context, projectID string, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM personal_expenses WHERE id = ? AND project_id = ?`, id, projectID)
	if err != nil {
		return fmt.Errorf("delete personal expense: %w", err)
	}
	return r.affectedOrNotFound(res, "delete personal expense")
}
