package core

// Recompute refreshes the derived fields of a line item after unit
// price, quantity or VAT rate change. Callers reject negative input
// before invoking this; the computation itself does not validate.
//
// targetExpense = unitPrice × quantity
// targetExpenseWithVAT = targetExpense × (1 + vatRate) when vatRate > 0
// variance = targetExpense − actualExpenseWithVAT (positive = under budget)
func (li *LineItem) Recompute() {
	li.TargetExpense = Money{Won: li.UnitPrice.Won * li.Quantity}
	if li.VATRate > 0 {
		li.TargetExpenseWithVAT = Money{Won: MulRate(li.TargetExpense.Won, 1+li.VATRate)}
	} else {
		li.TargetExpenseWithVAT = li.TargetExpense
	}
	li.Variance = li.TargetExpense.Sub(li.ActualExpenseWithVAT)
}

// Recompute derives withholding tax and net amount from the gross
// amount: tax = gross × 3.3%, net = gross − tax.
func (w *Withholding) Recompute() {
	w.WithholdingTax = Money{Won: MulRate(w.GrossAmount.Won, WithholdingTaxRate)}
	w.NetAmount = w.GrossAmount.Sub(w.WithholdingTax)
}

// Recompute derives tax and total from the supply amount:
// tax = supply × 10%, total = supply + tax.
func (ti *TaxInvoice) Recompute() {
	ti.TaxAmount = Money{Won: MulRate(ti.SupplyAmount.Won, InvoiceVATRate)}
	ti.TotalAmount = ti.SupplyAmount.Add(ti.TaxAmount)
}

// ledgerAmount returns the authoritative monetary figure of a
// withholding entry: gross amount, falling back to the legacy single
// amount for records created before gross/net were split.
func (w Withholding) ledgerAmount() Money {
	if w.GrossAmount.Positive() {
		return w.GrossAmount
	}
	return w.Amount
}
