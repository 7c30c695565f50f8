package core

import "testing"

func TestLineItemValidate(t *testing.T) {
	good := LineItem{
		Category:     CategoryProduction,
		MainCategory: "촬영",
		UnitPrice:    Money{Won: 100},
		Quantity:     2,
		VATRate:      0.1,
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []LineItem{
		{Category: "unknown", MainCategory: "c", UnitPrice: Money{Won: 1}},
		{Category: CategoryStaff, MainCategory: "", UnitPrice: Money{Won: 1}},
		{Category: CategoryStaff, MainCategory: "c", UnitPrice: Money{Won: -1}},
		{Category: CategoryStaff, MainCategory: "c", UnitPrice: Money{Won: 1}, Quantity: -1},
		{Category: CategoryStaff, MainCategory: "c", UnitPrice: Money{Won: 1}, VATRate: 1.5},
	}
	for i, li := range bads {
		if err := li.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestLedgerValidate(t *testing.T) {
	if err := (TaxInvoice{Counterparty: "acme", SupplyAmount: Money{Won: 1}, Status: StatusPending}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (TaxInvoice{SupplyAmount: Money{Won: 1}, Status: StatusPending}).Validate(); err == nil {
		t.Fatal("expected error for empty counterparty")
	}
	if err := (Withholding{Payee: "kim", GrossAmount: Money{Won: 1}, Status: "done"}).Validate(); err == nil {
		t.Fatal("expected error for unknown status")
	}
	if err := (PersonalExpense{Description: "taxi", AmountWithVAT: Money{Won: 1}, Status: StatusPaymentComplete}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
}

func TestPaymentStatusValid(t *testing.T) {
	for _, s := range []PaymentStatus{StatusPending, StatusInvoiceIssued, StatusPaymentComplete} {
		if !s.Valid() {
			t.Fatalf("%s should be valid", s)
		}
	}
	if PaymentStatus("paid").Valid() {
		t.Fatal("unknown status should be invalid")
	}
}

func TestBudgetRecordValidate(t *testing.T) {
	if err := NewBudgetRecord("proj-1").Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := NewBudgetRecord("  ").Validate(); err == nil {
		t.Fatal("expected error for blank project id")
	}
}
