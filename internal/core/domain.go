package core

import (
	"errors"
	"strings"
	"time"
)

const (
	CategoryStaff       Category = "staff"
	CategoryProduction  Category = "production"
	CategoryTalent      Category = "talent"
	CategoryPost        Category = "post-production"
	CategoryEquipment   Category = "equipment"
	CategoryOutsourcing Category = "outsourcing"
)

const (
	StatusPending         PaymentStatus = "pending"
	StatusInvoiceIssued   PaymentStatus = "invoice-issued"
	StatusPaymentComplete PaymentStatus = "payment-complete"
)

// Statutory rates applied by the recompute rules.
const (
	WithholdingTaxRate = 0.033
	InvoiceVATRate     = 0.1
)

type (
	// Category is the fixed line-item classification.
	Category string

	// PaymentStatus tracks the payment lifecycle of an expense record.
	PaymentStatus string

	Date struct {
		time.Time
	}

	// Money is an amount in whole Korean won.
	Money struct {
		Won int64
	}

	// Summary holds the contract-level figures for one project. Fields
	// sourced from the linked spreadsheet's overview sheet are
	// authoritative whenever they are positive and take priority over
	// locally computed sums.
	Summary struct {
		CompanyName  string
		ContractName string

		TotalContractAmount Money // pre-VAT
		VATAmount           Money
		TotalWithVAT        Money

		TargetExpense        Money
		TargetExpenseWithVAT Money
		ActualExpense        Money
		ActualExpenseWithVAT Money
		ActualProfit         Money
		ActualProfitWithVAT  Money
	}

	// PaymentSchedule is one contract installment. The schedule sums to
	// the contract total by convention only; nothing enforces it.
	PaymentSchedule struct {
		ID             int64
		Label          string
		ExpectedAmount Money
		ExpectedDate   Date
		ActualAmount   Money
		Balance        Money
	}

	// LineItem is a planned budget entry. TargetExpense, the VAT-inclusive
	// target and Variance are derived; call Recompute after editing
	// UnitPrice, Quantity or VATRate.
	LineItem struct {
		ID            int64
		Category      Category
		MainCategory  string
		SubCategory   string
		UnitPrice     Money
		Quantity      int64
		VATRate       float64
		PaymentMethod string

		TargetExpense        Money
		TargetExpenseWithVAT Money
		ActualExpenseWithVAT Money
		Variance             Money
	}

	// TaxInvoice is an incurred cost backed by a tax invoice. TaxAmount
	// and TotalAmount are derived from SupplyAmount.
	TaxInvoice struct {
		ID           int64
		Counterparty string
		SupplyAmount Money
		TaxAmount    Money
		TotalAmount  Money
		IssueDate    Date
		Status       PaymentStatus
	}

	// Withholding is a gross payment to an individual with statutory
	// 3.3% withholding. Amount is the legacy single-figure field kept
	// for records imported before gross/net were split; ledger sums fall
	// back to it when GrossAmount is absent.
	Withholding struct {
		ID             int64
		Payee          string
		GrossAmount    Money
		WithholdingTax Money
		NetAmount      Money
		Amount         Money
		Status         PaymentStatus
	}

	// CardExpense is a corporate-card purchase, recorded VAT inclusive.
	CardExpense struct {
		ID            int64
		Description   string
		AmountWithVAT Money
		UsedDate      Date
	}

	// CashExpense is a corporate-cash purchase, recorded VAT inclusive.
	CashExpense struct {
		ID            int64
		Description   string
		AmountWithVAT Money
		UsedDate      Date
	}

	// PersonalExpense is an out-of-pocket cost to be reimbursed.
	PersonalExpense struct {
		ID            int64
		Description   string
		AmountWithVAT Money
		UsedDate      Date
		Status        PaymentStatus
	}

	// BudgetRecord is the aggregate root for one project's budget.
	// It belongs to exactly one project and is replaced wholesale by a
	// successful spreadsheet pull.
	BudgetRecord struct {
		ProjectID        string
		Summary          Summary
		PaymentSchedules []PaymentSchedule
		LineItems        []LineItem
		TaxInvoices      []TaxInvoice
		Withholdings     []Withholding
		CardExpenses     []CardExpense
		CashExpenses     []CashExpense
		PersonalExpenses []PersonalExpense
	}
)

var (
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrNegativeAmount     = errors.New("negative amount")
	ErrInvalidQuantity    = errors.New("invalid quantity")
	ErrInvalidVATRate     = errors.New("invalid vat rate")
	ErrEmptyProjectID     = errors.New("empty project id")
	ErrEmptyMainCategory  = errors.New("empty main category")
	ErrEmptyDescription   = errors.New("empty description")
	ErrEmptyCounterparty  = errors.New("empty counterparty")
	ErrEmptyPayee         = errors.New("empty payee")
	ErrEmptyLabel         = errors.New("empty label")
	ErrInvalidCategory    = errors.New("invalid category")
	ErrInvalidStatus      = errors.New("invalid payment status")
	ErrProjectIDTooLong   = errors.New("project id too long (max 64 characters)")
	ErrDescriptionTooLong = errors.New("description too long (max 200 characters)")
)

// NewBudgetRecord returns an empty record for a project that has no
// budget yet.
func NewBudgetRecord(projectID string) BudgetRecord {
	return BudgetRecord{ProjectID: projectID}
}

// IsEmpty reports whether the record carries no summary figures and no
// detail rows.
func (r BudgetRecord) IsEmpty() bool {
	return r.Summary == (Summary{}) &&
		len(r.PaymentSchedules) == 0 &&
		len(r.LineItems) == 0 &&
		len(r.TaxInvoices) == 0 &&
		len(r.Withholdings) == 0 &&
		len(r.CardExpenses) == 0 &&
		len(r.CashExpenses) == 0 &&
		len(r.PersonalExpenses) == 0
}

// NewDate creates a Date from year, month, day.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// IsEmpty returns true for the zero date (optional dates are allowed).
func (d Date) IsEmpty() bool {
	return d.IsZero()
}

func (c Category) Valid() bool {
	switch c {
	case CategoryStaff, CategoryProduction, CategoryTalent,
		CategoryPost, CategoryEquipment, CategoryOutsourcing:
		return true
	}
	return false
}

func (s PaymentStatus) Valid() bool {
	switch s {
	case StatusPending, StatusInvoiceIssued, StatusPaymentComplete:
		return true
	}
	return false
}

// Validate rejects negative amounts. Zero is allowed: summaries and
// actuals legitimately start empty.
func (m Money) Validate() error {
	if m.Won < 0 {
		return ErrNegativeAmount
	}
	return nil
}

func validProjectID(id string) error {
	if strings.TrimSpace(id) == "" {
		return ErrEmptyProjectID
	}
	if len(id) > 64 {
		return ErrProjectIDTooLong
	}
	return nil
}

func validDescription(s string) error {
	if strings.TrimSpace(s) == "" {
		return ErrEmptyDescription
	}
	if len(s) > 200 {
		return ErrDescriptionTooLong
	}
	return nil
}

func (li LineItem) Validate() error {
	if !li.Category.Valid() {
		return ErrInvalidCategory
	}
	if strings.TrimSpace(li.MainCategory) == "" {
		return ErrEmptyMainCategory
	}
	if err := li.UnitPrice.Validate(); err != nil {
		return err
	}
	if li.Quantity < 0 {
		return ErrInvalidQuantity
	}
	if li.VATRate < 0 || li.VATRate > 1 {
		return ErrInvalidVATRate
	}
	return li.ActualExpenseWithVAT.Validate()
}

func (ps PaymentSchedule) Validate() error {
	if strings.TrimSpace(ps.Label) == "" {
		return ErrEmptyLabel
	}
	if err := ps.ExpectedAmount.Validate(); err != nil {
		return err
	}
	return ps.ActualAmount.Validate()
}

func (ti TaxInvoice) Validate() error {
	if strings.TrimSpace(ti.Counterparty) == "" {
		return ErrEmptyCounterparty
	}
	if err := ti.SupplyAmount.Validate(); err != nil {
		return err
	}
	if !ti.Status.Valid() {
		return ErrInvalidStatus
	}
	return nil
}

func (w Withholding) Validate() error {
	if strings.TrimSpace(w.Payee) == "" {
		return ErrEmptyPayee
	}
	if err := w.GrossAmount.Validate(); err != nil {
		return err
	}
	if err := w.Amount.Validate(); err != nil {
		return err
	}
	if !w.Status.Valid() {
		return ErrInvalidStatus
	}
	return nil
}

func (ce CardExpense) Validate() error {
	if err := validDescription(ce.Description); err != nil {
		return err
	}
	return ce.AmountWithVAT.Validate()
}

func (ce CashExpense) Validate() error {
	if err := validDescription(ce.Description); err != nil {
		return err
	}
	return ce.AmountWithVAT.Validate()
}

func (pe PersonalExpense) Validate() error {
	if err := validDescription(pe.Description); err != nil {
		return err
	}
	if err := pe.AmountWithVAT.Validate(); err != nil {
		return err
	}
	if !pe.Status.Valid() {
		return ErrInvalidStatus
	}
	return nil
}

func (r BudgetRecord) Validate() error {
	return validProjectID(r.ProjectID)
}
