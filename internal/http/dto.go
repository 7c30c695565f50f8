package http

import (
	"prodbudget/internal/core"
)

// JSON shapes for the budget API. Amounts are whole won, dates are
// YYYY-MM-DD strings (empty string for unset dates).

type summaryJSON struct {
	CompanyName  string `json:"company_name"`
	ContractName string `json:"contract_name"`

	TotalContractAmount int64 `json:"total_contract_amount"`
	VATAmount           int64 `json:"vat_amount"`
	TotalWithVAT        int64 `json:"total_with_vat"`

	TargetExpense        int64 `json:"target_expense"`
	TargetExpenseWithVAT int64 `json:"target_expense_with_vat"`
	ActualExpense        int64 `json:"actual_expense"`
	ActualExpenseWithVAT int64 `json:"actual_expense_with_vat"`
	ActualProfit         int64 `json:"actual_profit"`
	ActualProfitWithVAT  int64 `json:"actual_profit_with_vat"`
}

type scheduleJSON struct {
	ID             int64  `json:"id"`
	Label          string `json:"label"`
	ExpectedAmount int64  `json:"expected_amount"`
	ExpectedDate   string `json:"expected_date,omitempty"`
	ActualAmount   int64  `json:"actual_amount"`
	Balance        int64  `json:"balance"`
}

type lineItemJSON struct {
	ID            int64   `json:"id"`
	Category      string  `json:"category"`
	MainCategory  string  `json:"main_category"`
	SubCategory   string  `json:"sub_category,omitempty"`
	UnitPrice     int64   `json:"unit_price"`
	Quantity      int64   `json:"quantity"`
	VATRate       float64 `json:"vat_rate"`
	PaymentMethod string  `json:"payment_method,omitempty"`

	TargetExpense        int64 `json:"target_expense"`
	TargetExpenseWithVAT int64 `json:"target_expense_with_vat"`
	ActualExpenseWithVAT int64 `json:"actual_expense_with_vat"`
	Variance             int64 `json:"variance"`
}

type taxInvoiceJSON struct {
	ID           int64  `json:"id"`
	Counterparty string `json:"counterparty"`
	SupplyAmount int64  `json:"supply_amount"`
	TaxAmount    int64  `json:"tax_amount"`
	TotalAmount  int64  `json:"total_amount"`
	IssueDate    string `json:"issue_date,omitempty"`
	Status       string `json:"status"`
}

type withholdingJSON struct {
	ID             int64  `json:"id"`
	Payee          string `json:"payee"`
	GrossAmount    int64  `json:"gross_amount"`
	WithholdingTax int64  `json:"withholding_tax"`
	NetAmount      int64  `json:"net_amount"`
	Amount         int64  `json:"amount"`
	Status         string `json:"status"`
}

type simpleExpenseJSON struct {
	ID            int64  `json:"id"`
	Description   string `json:"description"`
	AmountWithVAT int64  `json:"amount_with_vat"`
	UsedDate      string `json:"used_date,omitempty"`
	Status        string `json:"status,omitempty"`
}

type categoryTotalJSON struct {
	MainCategory string `json:"main_category"`
	Target       int64  `json:"target"`
	Actual       int64  `json:"actual"`
	Variance     int64  `json:"variance"`
}

type reconciliationJSON struct {
	TotalContract  int64 `json:"total_contract"`
	TotalTarget    int64 `json:"total_target"`
	ComputedActual int64 `json:"computed_actual"`
	ActualExpense  int64 `json:"actual_expense"`
	ActualProfit   int64 `json:"actual_profit"`
	ProfitNegative bool  `json:"profit_negative"`

	AchievementRate float64 `json:"achievement_rate"`
	ProfitRate      float64 `json:"profit_rate"`

	ByCategory []categoryTotalJSON `json:"by_category"`
}

type budgetViewJSON struct {
	ProjectID        string              `json:"project_id"`
	Summary          summaryJSON         `json:"summary"`
	PaymentSchedules []scheduleJSON      `json:"payment_schedules"`
	LineItems        []lineItemJSON      `json:"line_items"`
	TaxInvoices      []taxInvoiceJSON    `json:"tax_invoices"`
	Withholdings     []withholdingJSON   `json:"withholdings"`
	CardExpenses     []simpleExpenseJSON `json:"card_expenses"`
	CashExpenses     []simpleExpenseJSON `json:"cash_expenses"`
	PersonalExpenses []simpleExpenseJSON `json:"personal_expenses"`
	Reconciliation   reconciliationJSON  `json:"reconciliation"`
}

func formatDate(d core.Date) string {
	if d.IsEmpty() {
		return ""
	}
	return d.Format("2006-01-02")
}

func summaryToJSON(s core.Summary) summaryJSON {
	return summaryJSON{
		CompanyName:          s.CompanyName,
		ContractName:         s.ContractName,
		TotalContractAmount:  s.TotalContractAmount.Won,
		VATAmount:            s.VATAmount.Won,
		TotalWithVAT:         s.TotalWithVAT.Won,
		TargetExpense:        s.TargetExpense.Won,
		TargetExpenseWithVAT: s.TargetExpenseWithVAT.Won,
		ActualExpense:        s.ActualExpense.Won,
		ActualExpenseWithVAT: s.ActualExpenseWithVAT.Won,
		ActualProfit:         s.ActualProfit.Won,
		ActualProfitWithVAT:  s.ActualProfitWithVAT.Won,
	}
}

func summaryFromJSON(j summaryJSON) core.Summary {
	return core.Summary{
		CompanyName:          j.CompanyName,
		ContractName:         j.ContractName,
		TotalContractAmount:  core.Money{Won: j.TotalContractAmount},
		VATAmount:            core.Money{Won: j.VATAmount},
		TotalWithVAT:         core.Money{Won: j.TotalWithVAT},
		TargetExpense:        core.Money{Won: j.TargetExpense},
		TargetExpenseWithVAT: core.Money{Won: j.TargetExpenseWithVAT},
		ActualExpense:        core.Money{Won: j.ActualExpense},
		ActualExpenseWithVAT: core.Money{Won: j.ActualExpenseWithVAT},
		ActualProfit:         core.Money{Won: j.ActualProfit},
		ActualProfitWithVAT:  core.Money{Won: j.ActualProfitWithVAT},
	}
}

func scheduleToJSON(ps core.PaymentSchedule) scheduleJSON {
	return scheduleJSON{
		ID:             ps.ID,
		Label:          ps.Label,
		ExpectedAmount: ps.ExpectedAmount.Won,
		ExpectedDate:   formatDate(ps.ExpectedDate),
		ActualAmount:   ps.ActualAmount.Won,
		Balance:        ps.Balance.Won,
	}
}

func lineItemToJSON(li core.LineItem) lineItemJSON {
	return lineItemJSON{
		ID:                   li.ID,
		Category:             string(li.Category),
		MainCategory:         li.MainCategory,
		SubCategory:          li.SubCategory,
		UnitPrice:            li.UnitPrice.Won,
		Quantity:             li.Quantity,
		VATRate:              li.VATRate,
		PaymentMethod:        li.PaymentMethod,
		TargetExpense:        li.TargetExpense.Won,
		TargetExpenseWithVAT: li.TargetExpenseWithVAT.Won,
		ActualExpenseWithVAT: li.ActualExpenseWithVAT.Won,
		Variance:             li.Variance.Won,
	}
}

func taxInvoiceToJSON(ti core.TaxInvoice) taxInvoiceJSON {
	return taxInvoiceJSON{
		ID:           ti.ID,
		Counterparty: ti.Counterparty,
		SupplyAmount: ti.SupplyAmount.Won,
		TaxAmount:    ti.TaxAmount.Won,
		TotalAmount:  ti.TotalAmount.Won,
		IssueDate:    formatDate(ti.IssueDate),
		Status:       string(ti.Status),
	}
}

func withholdingToJSON(w core.Withholding) withholdingJSON {
	return withholdingJSON{
		ID:             w.ID,
		Payee:          w.Payee,
		GrossAmount:    w.GrossAmount.Won,
		WithholdingTax: w.WithholdingTax.Won,
		NetAmount:      w.NetAmount.Won,
		Amount:         w.Amount.Won,
		Status:         string(w.Status),
	}
}

func cardExpenseToJSON(ce core.CardExpense) simpleExpenseJSON {
	return simpleExpenseJSON{
		ID:            ce.ID,
		Description:   ce.Description,
		AmountWithVAT: ce.AmountWithVAT.Won,
		UsedDate:      formatDate(ce.UsedDate),
	}
}

func cashExpenseToJSON(ce core.CashExpense) simpleExpenseJSON {
	return simpleExpenseJSON{
		ID:            ce.ID,
		Description:   ce.Description,
		AmountWithVAT: ce.AmountWithVAT.Won,
		UsedDate:      formatDate(ce.UsedDate),
	}
}

func personalExpenseToJSON(pe core.PersonalExpense) simpleExpenseJSON {
	return simpleExpenseJSON{
		ID:            pe.ID,
		Description:   pe.Description,
		AmountWithVAT: pe.AmountWithVAT.Won,
		UsedDate:      formatDate(pe.UsedDate),
		Status:        string(pe.Status),
	}
}

func buildBudgetView(rec core.BudgetRecord, rc core.Reconciliation) budgetViewJSON {
	view := budgetViewJSON{
		ProjectID:        rec.ProjectID,
		Summary:          summaryToJSON(rec.Summary),
		PaymentSchedules: []scheduleJSON{},
		LineItems:        []lineItemJSON{},
		TaxInvoices:      []taxInvoiceJSON{},
		Withholdings:     []withholdingJSON{},
		CardExpenses:     []simpleExpenseJSON{},
		CashExpenses:     []simpleExpenseJSON{},
		PersonalExpenses: []simpleExpenseJSON{},
		Reconciliation: reconciliationJSON{
			TotalContract:   rc.TotalContract.Won,
			TotalTarget:     rc.TotalTarget.Won,
			ComputedActual:  rc.ComputedActual.Won,
			ActualExpense:   rc.ActualExpense.Won,
			ActualProfit:    rc.ActualProfit.Won,
			ProfitNegative:  rc.ProfitNegative,
			AchievementRate: rc.AchievementRate,
			ProfitRate:      rc.ProfitRate,
			ByCategory:      []categoryTotalJSON{},
		},
	}
	for _, ps := range rec.PaymentSchedules {
		view.PaymentSchedules = append(view.PaymentSchedules, scheduleToJSON(ps))
	}
	for _, li := range rec.LineItems {
		view.LineItems = append(view.LineItems, lineItemToJSON(li))
	}
	for _, ti := range rec.TaxInvoices {
		view.TaxInvoices = append(view.TaxInvoices, taxInvoiceToJSON(ti))
	}
	for _, w := range rec.Withholdings {
		view.Withholdings = append(view.Withholdings, withholdingToJSON(w))
	}
	for _, ce := range rec.CardExpenses {
		view.CardExpenses = append(view.CardExpenses, cardExpenseToJSON(ce))
	}
	for _, ce := range rec.CashExpenses {
		view.CashExpenses = append(view.CashExpenses, cashExpenseToJSON(ce))
	}
	for _, pe := range rec.PersonalExpenses {
		view.PersonalExpenses = append(view.PersonalExpenses, personalExpenseToJSON(pe))
	}
	for _, ct := range rc.ByCategory {
		view.Reconciliation.ByCategory = append(view.Reconciliation.ByCategory, categoryTotalJSON{
			MainCategory: ct.MainCategory,
			Target:       ct.Target.Won,
			Actual:       ct.Actual.Won,
			Variance:     ct.Variance.Won,
		})
	}
	return view
}

type recordPayload struct {
	Summary          summaryJSON         `json:"summary"`
	PaymentSchedules []scheduleJSON      `json:"payment_schedules"`
	LineItems        []lineItemJSON      `json:"line_items"`
	TaxInvoices      []taxInvoiceJSON    `json:"tax_invoices"`
	Withholdings     []withholdingJSON   `json:"withholdings"`
	CardExpenses     []simpleExpenseJSON `json:"card_expenses"`
	CashExpenses     []simpleExpenseJSON `json:"cash_expenses"`
	PersonalExpenses []simpleExpenseJSON `json:"personal_expenses"`
}

func recordFromPayload(projectID string, p recordPayload) (core.BudgetRecord, error) {
	rec := core.NewBudgetRecord(projectID)
	rec.Summary = summaryFromJSON(p.Summary)
	for _, j := range p.PaymentSchedules {
		d, err := parseOptionalDate(j.ExpectedDate)
		if err != nil {
			return core.BudgetRecord{}, err
		}
		rec.PaymentSchedules = append(rec.PaymentSchedules, core.PaymentSchedule{
			ID:             j.ID,
			Label:          j.Label,
			ExpectedAmount: core.Money{Won: j.ExpectedAmount},
			ExpectedDate:   d,
			ActualAmount:   core.Money{Won: j.ActualAmount},
			Balance:        core.Money{Won: j.ExpectedAmount - j.ActualAmount},
		})
	}
	for _, j := range p.LineItems {
		rec.LineItems = append(rec.LineItems, core.LineItem{
			ID:                   j.ID,
			Category:             core.Category(j.Category),
			MainCategory:         j.MainCategory,
			SubCategory:          j.SubCategory,
			UnitPrice:            core.Money{Won: j.UnitPrice},
			Quantity:             j.Quantity,
			VATRate:              j.VATRate,
			PaymentMethod:        j.PaymentMethod,
			ActualExpenseWithVAT: core.Money{Won: j.ActualExpenseWithVAT},
		})
	}
	for _, j := range p.TaxInvoices {
		d, err := parseOptionalDate(j.IssueDate)
		if err != nil {
			return core.BudgetRecord{}, err
		}
		rec.TaxInvoices = append(rec.TaxInvoices, core.TaxInvoice{
			ID:           j.ID,
			Counterparty: j.Counterparty,
			SupplyAmount: core.Money{Won: j.SupplyAmount},
			IssueDate:    d,
			Status:       core.PaymentStatus(j.Status),
		})
	}
	for _, j := range p.Withholdings {
		rec.Withholdings = append(rec.Withholdings, core.Withholding{
			ID:          j.ID,
			Payee:       j.Payee,
			GrossAmount: core.Money{Won: j.GrossAmount},
			Amount:      core.Money{Won: j.Amount},
			Status:      core.PaymentStatus(j.Status),
		})
	}
	for _, j := range p.CardExpenses {
		d, err := parseOptionalDate(j.UsedDate)
		if err != nil {
			return core.BudgetRecord{}, err
		}
		rec.CardExpenses = append(rec.CardExpenses, core.CardExpense{
			ID:            j.ID,
			Description:   j.Description,
			AmountWithVAT: core.Money{Won: j.AmountWithVAT},
			UsedDate:      d,
		})
	}
	for _, j := range p.CashExpenses {
		d, err := parseOptionalDate(j.UsedDate)
		if err != nil {
			return core.BudgetRecord{}, err
		}
		rec.CashExpenses = append(rec.CashExpenses, core.CashExpense{
			ID:            j.ID,
			Description:   j.Description,
			AmountWithVAT: core.Money{Won: j.AmountWithVAT},
			UsedDate:      d,
		})
	}
	for _, j := range p.PersonalExpenses {
		d, err := parseOptionalDate(j.UsedDate)
		if err != nil {
			return core.BudgetRecord{}, err
		}
		status := core.PaymentStatus(j.Status)
		if j.Status == "" {
			status = core.StatusPending
		}
		rec.PersonalExpenses = append(rec.PersonalExpenses, core.PersonalExpense{
			ID:            j.ID,
			Description:   j.Description,
			AmountWithVAT: core.Money{Won: j.AmountWithVAT},
			UsedDate:      d,
			Status:        status,
		})
	}
	return rec, nil
}
