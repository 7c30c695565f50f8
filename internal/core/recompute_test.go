package core

import "testing"

func TestLineItemRecompute(t *testing.T) {
	li := LineItem{
		UnitPrice: Money{Won: 200},
		Quantity:  3,
		VATRate:   0.1,
	}
	li.Recompute()
	if li.TargetExpense.Won != 600 {
		t.Fatalf("TargetExpense = %d, want 600", li.TargetExpense.Won)
	}
	if li.TargetExpenseWithVAT.Won != 660 {
		t.Fatalf("TargetExpenseWithVAT = %d, want 660", li.TargetExpenseWithVAT.Won)
	}
}

func TestLineItemRecomputeRoundTrip(t *testing.T) {
	li := LineItem{UnitPrice: Money{Won: 100}, Quantity: 3, VATRate: 0.1}
	li.Recompute()
	orig := li

	li.UnitPrice = Money{Won: 200}
	li.Recompute()
	if li.TargetExpense.Won != 600 || li.TargetExpenseWithVAT.Won != 660 {
		t.Fatalf("after edit: %d/%d, want 600/660", li.TargetExpense.Won, li.TargetExpenseWithVAT.Won)
	}

	li.UnitPrice = Money{Won: 100}
	li.Recompute()
	if li != orig {
		t.Fatalf("round trip drifted: %+v vs %+v", li, orig)
	}
}

func TestLineItemRecomputeZeroVAT(t *testing.T) {
	li := LineItem{UnitPrice: Money{Won: 500}, Quantity: 2}
	li.Recompute()
	if li.TargetExpenseWithVAT.Won != li.TargetExpense.Won {
		t.Fatalf("zero VAT rate should leave target unchanged, got %d", li.TargetExpenseWithVAT.Won)
	}
}

func TestLineItemVarianceSign(t *testing.T) {
	li := LineItem{
		UnitPrice:            Money{Won: 100},
		Quantity:             10,
		ActualExpenseWithVAT: Money{Won: 1200},
	}
	li.Recompute()
	// Positive variance means under budget; this one is over.
	if li.Variance.Won != -200 {
		t.Fatalf("Variance = %d, want -200", li.Variance.Won)
	}
}

func TestWithholdingRecompute(t *testing.T) {
	w := Withholding{GrossAmount: Money{Won: 1_000_000}}
	w.Recompute()
	if w.WithholdingTax.Won != 33_000 {
		t.Fatalf("WithholdingTax = %d, want 33000", w.WithholdingTax.Won)
	}
	if w.NetAmount.Won != 967_000 {
		t.Fatalf("NetAmount = %d, want 967000", w.NetAmount.Won)
	}
}

func TestTaxInvoiceRecompute(t *testing.T) {
	ti := TaxInvoice{SupplyAmount: Money{Won: 20_000_000}}
	ti.Recompute()
	if ti.TaxAmount.Won != 2_000_000 {
		t.Fatalf("TaxAmount = %d, want 2000000", ti.TaxAmount.Won)
	}
	if ti.TotalAmount.Won != 22_000_000 {
		t.Fatalf("TotalAmount = %d, want 22000000", ti.TotalAmount.Won)
	}
}
