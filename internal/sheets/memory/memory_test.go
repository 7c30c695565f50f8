package memory

import (
	"context"
	"errors"
	"testing"

	"prodbudget/internal/core"
	ports "prodbudget/internal/sheets"
)

func TestPullUnknownProject(t *testing.T) {
	s := New()
	_, err := s.Pull(context.Background(), "nope")
	if err == nil {
		t.Fatal("expected error for unlinked project")
	}
	if !ports.IsTransient(err) {
		t.Fatalf("expected transient sync error, got %v", err)
	}
}

func TestPushThenPull(t *testing.T) {
	s := New()
	rec := core.NewBudgetRecord("p1")
	rec.Summary.TotalContractAmount = core.Money{Won: 1000}

	if err := s.Push(context.Background(), "p1", rec); err != nil {
		t.Fatalf("push: %v", err)
	}
	got, err := s.Pull(context.Background(), "p1")
	if err != nil {
		t.Fatalf("pull: %v", err)
	}
	if got.Summary.TotalContractAmount.Won != 1000 {
		t.Fatalf("round trip lost summary: %+v", got.Summary)
	}
}

func TestLegacySeeds(t *testing.T) {
	s := NewWithSeeds()
	rec, err := s.Pull(context.Background(), "legacy-brandfilm")
	if err != nil {
		t.Fatalf("pull seed: %v", err)
	}
	if len(rec.LineItems) == 0 {
		t.Fatal("seed should carry line items")
	}
	// Seeds are recomputed, so derived fields satisfy the invariants.
	for _, li := range rec.LineItems {
		if li.TargetExpense.Won != li.UnitPrice.Won*li.Quantity {
			t.Fatalf("seed line item not recomputed: %+v", li)
		}
	}
	for _, w := range rec.Withholdings {
		want := core.MulRate(w.GrossAmount.Won, core.WithholdingTaxRate)
		if w.WithholdingTax.Won != want {
			t.Fatalf("seed withholding not recomputed: %+v", w)
		}
	}
}

func TestFailureInjection(t *testing.T) {
	s := New()
	boom := ports.AuthRequired("memory pull", errors.New("token revoked"))
	s.FailPulls(boom)
	_, err := s.Pull(context.Background(), "any")
	if !ports.IsAuthRequired(err) {
		t.Fatalf("expected auth-required error, got %v", err)
	}
	s.FailPulls(nil)
	if _, err := s.Pull(context.Background(), "any"); ports.IsAuthRequired(err) {
		t.Fatal("failure injection should be cleared")
	}
}
