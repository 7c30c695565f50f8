package core

import "math"

type (
	// CategoryTotal is a per-main-category rollup of line items.
	CategoryTotal struct {
		MainCategory string
		Target       Money
		Actual       Money
		Variance     Money
	}

	// Reconciliation holds the headline figures derived from one
	// BudgetRecord: the display totals, the rates and the per-category
	// breakdown shown on the project budget view.
	Reconciliation struct {
		TotalContract  Money
		TotalTarget    Money
		ComputedActual Money
		ActualExpense  Money
		ActualProfit   Money
		ProfitNegative bool

		// AchievementRate is actual expense over target expense, in
		// percent, rounded to one decimal. ProfitRate is actual profit
		// over contract total, in percent, rounded to two decimals.
		AchievementRate float64
		ProfitRate      float64

		ByCategory []CategoryTotal
	}
)

// Reconcile computes the derived figures for a budget record. It is a
// pure function of its input: no I/O, no mutation, safe to call
// repeatedly on the same record.
//
// Summary figures win over locally computed sums whenever they are
// positive; they come from a category-grouped sheet view that need not
// equal the line-by-line sum, and the discrepancy is not reconciled
// here, only the fallback order is.
func Reconcile(r BudgetRecord) Reconciliation {
	rec := Reconciliation{
		TotalContract:  displayTotalContract(r),
		TotalTarget:    totalTargetExpense(r),
		ComputedActual: computedActualExpense(r),
		ByCategory:     rollupByCategory(r.LineItems),
	}

	rec.ActualExpense = rec.ComputedActual
	if r.Summary.ActualExpenseWithVAT.Positive() {
		rec.ActualExpense = r.Summary.ActualExpenseWithVAT
	} else if !rec.ComputedActual.Positive() {
		rec.ActualExpense = Money{}
	}

	rec.ActualProfit = rec.TotalContract.Sub(rec.ActualExpense)
	rec.ProfitNegative = rec.ActualProfit.Won < 0

	if rec.TotalTarget.Positive() {
		rec.AchievementRate = round1(float64(rec.ActualExpense.Won) / float64(rec.TotalTarget.Won) * 100)
	}
	if rec.TotalContract.Positive() {
		rec.ProfitRate = round2(float64(rec.ActualProfit.Won) / float64(rec.TotalContract.Won) * 100)
	}

	return rec
}

// displayTotalContract resolves the contract total: the pre-VAT summary
// figure first, the VAT-inclusive summary total second, the sum of
// scheduled installments last.
func displayTotalContract(r BudgetRecord) Money {
	if r.Summary.TotalContractAmount.Positive() {
		return r.Summary.TotalContractAmount
	}
	if r.Summary.TotalWithVAT.Positive() {
		return r.Summary.TotalWithVAT
	}
	var sum int64
	for _, ps := range r.PaymentSchedules {
		sum += ps.ExpectedAmount.Won
	}
	return Money{Won: sum}
}

// totalTargetExpense prefers the VAT-inclusive summary figure and falls
// back to the pre-VAT sum of line items. The VAT asymmetry between the
// two sources is the documented business rule, not an oversight; do not
// "fix" it here.
func totalTargetExpense(r BudgetRecord) Money {
	if r.Summary.TargetExpenseWithVAT.Positive() {
		return r.Summary.TargetExpenseWithVAT
	}
	var sum int64
	for _, li := range r.LineItems {
		sum += li.TargetExpense.Won
	}
	return Money{Won: sum}
}

// computedActualExpense sums the authoritative monetary field of every
// entry across the five ledgers. Missing ledgers behave as empty lists.
func computedActualExpense(r BudgetRecord) Money {
	var sum int64
	for _, ti := range r.TaxInvoices {
		sum += ti.TotalAmount.Won
	}
	for _, w := range r.Withholdings {
		sum += w.ledgerAmount().Won
	}
	for _, ce := range r.CardExpenses {
		sum += ce.AmountWithVAT.Won
	}
	for _, ce := range r.CashExpenses {
		sum += ce.AmountWithVAT.Won
	}
	for _, pe := range r.PersonalExpenses {
		sum += pe.AmountWithVAT.Won
	}
	return Money{Won: sum}
}

// rollupByCategory groups line items by exact main-category string,
// preserving first-seen order. No label normalization.
func rollupByCategory(items []LineItem) []CategoryTotal {
	idx := map[string]int{}
	var out []CategoryTotal
	for _, li := range items {
		i, seen := idx[li.MainCategory]
		if !seen {
			i = len(out)
			idx[li.MainCategory] = i
			out = append(out, CategoryTotal{MainCategory: li.MainCategory})
		}
		out[i].Target = out[i].Target.Add(li.TargetExpense)
		out[i].Actual = out[i].Actual.Add(li.ActualExpenseWithVAT)
	}
	for i := range out {
		out[i].Variance = out[i].Target.Sub(out[i].Actual)
	}
	return out
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
