package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"prodbudget/internal/core"

	_ "modernc.org/sqlite"
)

var ErrNotFound = errors.New("not found")

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// Run migrations
	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping verifies the database handle is still usable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// dateToDB stores dates as ISO strings; the zero date is stored empty.
func dateToDB(d core.Date) string {
	if d.IsEmpty() {
		return ""
	}
	return d.Format("2006-01-02")
}

func dateFromDB(s string) core.Date {
	if s == "" {
		return core.Date{}
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return core.Date{}
	}
	return core.NewDate(t.Year(), int(t.Month()), t.Day())
}

// LoadRecord assembles the full budget record for a project. A missing
// summary row loads as zero-valued figures; incremental mutations write
// detail rows without one. Returns ErrNotFound only when the summary
// and every detail table are empty for the project.
func (r *SQLiteRepository) LoadRecord(ctx context.Context, projectID string) (core.BudgetRecord, error) {
	rec := core.NewBudgetRecord(projectID)

	row := r.db.QueryRowContext(ctx, `
		SELECT company_name, contract_name,
		       total_contract_amount, vat_amount, total_with_vat,
		       target_expense, target_expense_with_vat,
		       actual_expense, actual_expense_with_vat,
		       actual_profit, actual_profit_with_vat
		FROM budget_summaries WHERE project_id = ?`, projectID)
	err := row.Scan(
		&rec.Summary.CompanyName, &rec.Summary.ContractName,
		&rec.Summary.TotalContractAmount.Won, &rec.Summary.VATAmount.Won, &rec.Summary.TotalWithVAT.Won,
		&rec.Summary.TargetExpense.Won, &rec.Summary.TargetExpenseWithVAT.Won,
		&rec.Summary.ActualExpense.Won, &rec.Summary.ActualExpenseWithVAT.Won,
		&rec.Summary.ActualProfit.Won, &rec.Summary.ActualProfitWithVAT.Won)
	hasSummary := true
	if errors.Is(err, sql.ErrNoRows) {
		hasSummary = false
	} else if err != nil {
		return rec, fmt.Errorf("load summary: %w", err)
	}

	if rec.PaymentSchedules, err = r.loadSchedules(ctx, projectID); err != nil {
		return rec, err
	}
	if rec.LineItems, err = r.loadLineItems(ctx, projectID); err != nil {
		return rec, err
	}
	if rec.TaxInvoices, err = r.loadTaxInvoices(ctx, projectID); err != nil {
		return rec, err
	}
	if rec.Withholdings, err = r.loadWithholdings(ctx, projectID); err != nil {
		return rec, err
	}
	if rec.CardExpenses, err = r.loadCardExpenses(ctx, projectID); err != nil {
		return rec, err
	}
	if rec.CashExpenses, err = r.loadCashExpenses(ctx, projectID); err != nil {
		return rec, err
	}
	if rec.PersonalExpenses, err = r.loadPersonalExpenses(ctx, projectID); err != nil {
		return rec, err
	}

	if !hasSummary && rec.IsEmpty() {
		return rec, ErrNotFound
	}
	return rec, nil
}

func (r *SQLiteRepository) loadSchedules(ctx context.Context, projectID string) ([]core.PaymentSchedule, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, label, expected_amount, expected_date, actual_amount, balance
		FROM payment_schedules WHERE project_id = ? ORDER BY id`, projectID)
	if err != nil {
		return nil, fmt.Errorf("load payment schedules: %w", err)
	}
	defer rows.Close()

	var out []core.PaymentSchedule
	for rows.Next() {
		var ps core.PaymentSchedule
		var date string
		if err := rows.Scan(&ps.ID, &ps.Label, &ps.ExpectedAmount.Won, &date, &ps.ActualAmount.Won, &ps.Balance.Won); err != nil {
			return nil, fmt.Errorf("scan payment schedule: %w", err)
		}
		ps.ExpectedDate = dateFromDB(date)
		out = append(out, ps)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) loadLineItems(ctx context.Context, projectID string) ([]core.LineItem, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, category, main_category, sub_category, unit_price, quantity,
		       vat_rate, payment_method, target_expense, target_expense_with_vat,
		       actual_expense_with_vat, variance
		FROM line_items WHERE project_id = ? ORDER BY id`, projectID)
	if err != nil {
		return nil, fmt.Errorf("load line items: %w", err)
	}
	defer rows.Close()

	var out []core.LineItem
	for rows.Next() {
		var li core.LineItem
		if err := rows.Scan(&li.ID, &li.Category, &li.MainCategory, &li.SubCategory,
			&li.UnitPrice.Won, &li.Quantity, &li.VATRate, &li.PaymentMethod,
			&li.TargetExpense.Won, &li.TargetExpenseWithVAT.Won,
			&li.ActualExpenseWithVAT.Won, &li.Variance.Won); err != nil {
			return nil, fmt.Errorf("scan line item: %w", err)
		}
		out = append(out, li)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) loadTaxInvoices(ctx context.Context, projectID string) ([]core.TaxInvoice, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, counterparty, supply_amount, tax_amount, total_amount, issue_date, status
		FROM tax_invoices WHERE project_id = ? ORDER BY id`, projectID)
	if err != nil {
		return nil, fmt.Errorf("load tax invoices: %w", err)
	}
	defer rows.Close()

	var out []core.TaxInvoice
	for rows.Next() {
		var ti core.TaxInvoice
		var date string
		if err := rows.Scan(&ti.ID, &ti.Counterparty, &ti.SupplyAmount.Won,
			&ti.TaxAmount.Won, &ti.TotalAmount.Won, &date, &ti.Status); err != nil {
			return nil, fmt.Errorf("scan tax invoice: %w", err)
		}
		ti.IssueDate = dateFromDB(date)
		out = append(out, ti)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) loadWithholdings(ctx context.Context, projectID string) ([]core.Withholding, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, payee, gross_amount, withholding_tax, net_amount, amount, status
		FROM withholdings WHERE project_id = ? ORDER BY id`, projectID)
	if err != nil {
		return nil, fmt.Errorf("load withholdings: %w", err)
	}
	defer rows.Close()

	var out []core.Withholding
	for rows.Next() {
		var w core.Withholding
		if err := rows.Scan(&w.ID, &w.Payee, &w.GrossAmount.Won,
			&w.WithholdingTax.Won, &w.NetAmount.Won, &w.Amount.Won, &w.Status); err != nil {
			return nil, fmt.Errorf("scan withholding: %w", err)
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) loadCardExpenses(ctx context.Context, projectID string) ([]core.CardExpense, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, description, amount_with_vat, used_date
		FROM card_expenses WHERE project_id = ? ORDER BY id`, projectID)
	if err != nil {
		return nil, fmt.Errorf("load card expenses: %w", err)
	}
	defer rows.Close()

	var out []core.CardExpense
	for rows.Next() {
		var ce core.CardExpense
		var date string
		if err := rows.Scan(&ce.ID, &ce.Description, &ce.AmountWithVAT.Won, &date); err != nil {
			return nil, fmt.Errorf("scan card expense: %w", err)
		}
		ce.UsedDate = dateFromDB(date)
		out = append(out, ce)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) loadCashExpenses(ctx context.Context, projectID string) ([]core.CashExpense, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, description, amount_with_vat, used_date
		FROM cash_expenses WHERE project_id = ? ORDER BY id`, projectID)
	if err != nil {
		return nil, fmt.Errorf("load cash expenses: %w", err)
	}
	defer rows.Close()

	var out []core.CashExpense
	for rows.Next() {
		var ce core.CashExpense
		var date string
		if err := rows.Scan(&ce.ID, &ce.Description, &ce.AmountWithVAT.Won, &date); err != nil {
			return nil, fmt.Errorf("scan cash expense: %w", err)
		}
		ce.UsedDate = dateFromDB(date)
		out = append(out, ce)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) loadPersonalExpenses(ctx context.Context, projectID string) ([]core.PersonalExpense, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, description, amount_with_vat, used_date, status
		FROM personal_expenses WHERE project_id = ? ORDER BY id`, projectID)
	if err != nil {
		return nil, fmt.Errorf("load personal expenses: %w", err)
	}
	defer rows.Close()

	var out []core.PersonalExpense
	for rows.Next() {
		var pe core.PersonalExpense
		var date string
		if err := rows.Scan(&pe.ID, &pe.Description, &pe.AmountWithVAT.Won, &date, &pe.Status); err != nil {
			return nil, fmt.Errorf("scan personal expense: %w", err)
		}
		pe.UsedDate = dateFromDB(date)
		out = append(out, pe)
	}
	return out, rows.Err()
}

// ReplaceRecord swaps a project's full budget in one transaction. A
// successful spreadsheet pull lands here: every detail table is cleared
// and refilled so the local copy mirrors the snapshot exactly.
func (r *SQLiteRepository) ReplaceRecord(ctx context.Context, rec core.BudgetRecord) error {
	if err := rec.Validate(); err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace: %w", err)
	}
	defer tx.Rollback()

	if err := upsertSummaryTx(ctx, tx, rec.ProjectID, rec.Summary); err != nil {
		return err
	}

	for _, table := range []string{
		"payment_schedules", "line_items", "tax_invoices", "withholdings",
		"card_expenses", "cash_expenses", "personal_expenses",
	} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE project_id = ?", rec.ProjectID); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	for _, ps := range rec.PaymentSchedules {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO payment_schedules (project_id, label, expected_amount, expected_date, actual_amount, balance)
			VALUES (?, ?, ?, ?, ?, ?)`,
			rec.ProjectID, ps.Label, ps.ExpectedAmount.Won, dateToDB(ps.ExpectedDate), ps.ActualAmount.Won, ps.Balance.Won); err != nil {
			return fmt.Errorf("insert payment schedule: %w", err)
		}
	}
	for _, li := range rec.LineItems {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO line_items (project_id, category, main_category, sub_category, unit_price, quantity,
			                        vat_rate, payment_method, target_expense, target_expense_with_vat,
			                        actual_expense_with_vat, variance)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			rec.ProjectID, li.Category, li.MainCategory, li.SubCategory, li.UnitPrice.Won, li.Quantity,
			li.VATRate, li.PaymentMethod, li.TargetExpense.Won, li.TargetExpenseWithVAT.Won,
			li.ActualExpenseWithVAT.Won, li.Variance.Won); err != nil {
			return fmt.Errorf("insert line item: %w", err)
		}
	}
	for _, ti := range rec.TaxInvoices {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO tax_invoices (project_id, counterparty, supply_amount, tax_amount, total_amount, issue_date, status)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			rec.ProjectID, ti.Counterparty, ti.SupplyAmount.Won, ti.TaxAmount.Won, ti.TotalAmount.Won,
			dateToDB(ti.IssueDate), ti.Status); err != nil {
			return fmt.Errorf("insert tax invoice: %w", err)
		}
	}
	for _, w := range rec.Withholdings {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO withholdings (project_id, payee, gross_amount, withholding_tax, net_amount, amount, status)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			rec.ProjectID, w.Payee, w.GrossAmount.Won, w.WithholdingTax.Won, w.NetAmount.Won, w.Amount.Won, w.Status); err != nil {
			return fmt.Errorf("insert withholding: %w", err)
		}
	}
	for _, ce := range rec.CardExpenses {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO card_expenses (project_id, description, amount_with_vat, used_date)
			VALUES (?, ?, ?, ?)`,
			rec.ProjectID, ce.Description, ce.AmountWithVAT.Won, dateToDB(ce.UsedDate)); err != nil {
			return fmt.Errorf("insert card expense: %w", err)
		}
	}
	for _, ce := range rec.CashExpenses {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO cash_expenses (project_id, description, amount_with_vat, used_date)
			VALUES (?, ?, ?, ?)`,
			rec.ProjectID, ce.Description, ce.AmountWithVAT.Won, dateToDB(ce.UsedDate)); err != nil {
			return fmt.Errorf("insert cash expense: %w", err)
		}
	}
	for _, pe := range rec.PersonalExpenses {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO personal_expenses (project_id, description, amount_with_vat, used_date, status)
			VALUES (?, ?, ?, ?, ?)`,
			rec.ProjectID, pe.Description, pe.AmountWithVAT.Won, dateToDB(pe.UsedDate), pe.Status); err != nil {
			return fmt.Errorf("insert personal expense: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace: %w", err)
	}

	slog.InfoContext(ctx, "Budget record replaced",
		"project_id", rec.ProjectID,
		"line_items", len(rec.LineItems),
		"tax_invoices", len(rec.TaxInvoices))

	return nil
}

// UpdateSummary upserts the summary row without touching detail tables.
func (r *SQLiteRepository) UpdateSummary(ctx context.Context, projectID string, s core.Summary) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin summary update: %w", err)
	}
	defer tx.Rollback()

	if err := upsertSummaryTx(ctx, tx, projectID, s); err != nil {
		return err
	}
	return tx.Commit()
}

func upsertSummaryTx(ctx context.Context, tx *sql.Tx, projectID string, s core.Summary) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO budget_summaries (
			project_id, company_name, contract_name,
			total_contract_amount, vat_amount, total_with_vat,
			target_expense, target_expense_with_vat,
			actual_expense, actual_expense_with_vat,
			actual_profit, actual_profit_with_vat, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(project_id) DO UPDATE SET
			company_name = excluded.company_name,
			contract_name = excluded.contract_name,
			total_contract_amount = excluded.total_contract_amount,
			vat_amount = excluded.vat_amount,
			total_with_vat = excluded.total_with_vat,
			target_expense = excluded.target_expense,
			target_expense_with_vat = excluded.target_expense_with_vat,
			actual_expense = excluded.actual_expense,
			actual_expense_with_vat = excluded.actual_expense_with_vat,
			actual_profit = excluded.actual_profit,
			actual_profit_with_vat = excluded.actual_profit_with_vat,
			updated_at = CURRENT_TIMESTAMP`,
		projectID, s.CompanyName, s.ContractName,
		s.TotalContractAmount.Won, s.VATAmount.Won, s.TotalWithVAT.Won,
		s.TargetExpense.Won, s.TargetExpenseWithVAT.Won,
		s.ActualExpense.Won, s.ActualExpenseWithVAT.Won,
		s.ActualProfit.Won, s.ActualProfitWithVAT.Won)
	if err != nil {
		return fmt.Errorf("upsert summary: %w", err)
	}
	return nil
}

// ListProjects returns every project with a summary row.
func (r *SQLiteRepository) ListProjects(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT project_id FROM budget_summaries ORDER BY project_id`)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan project id: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
