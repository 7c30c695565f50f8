package google

import (
	"testing"

	"prodbudget/internal/core"
	ports "prodbudget/internal/sheets"

	"google.golang.org/api/googleapi"
)

func TestParseOverview(t *testing.T) {
	rows := [][]any{
		{"Company", "한양식품"},
		{"Contract", "브랜드 필름 제작"},
		{"ContractTotal", "₩50,000,000"},
		{"VAT", "5,000,000"},
		{"TotalWithVAT", "55,000,000"},
		{"targetexpensewithvat", "33,000,000"},
		{"Unknown", "ignored"},
	}

	s := parseOverview(rows)

	if s.CompanyName != "한양식품" {
		t.Fatalf("company = %q", s.CompanyName)
	}
	if s.TotalContractAmount.Won != 50_000_000 {
		t.Fatalf("contract total = %d", s.TotalContractAmount.Won)
	}
	if s.TargetExpenseWithVAT.Won != 33_000_000 {
		t.Fatalf("target with VAT = %d", s.TargetExpenseWithVAT.Won)
	}
}

func TestParseLineItemsRecomputesDerived(t *testing.T) {
	rows := [][]any{
		{"staff", "촬영", "촬영감독", "500,000", "2", "10%", "card", "900,000"},
		{"", "", "", "", "", "", "", ""}, // blank main category, skipped
	}

	items := parseLineItems(rows)

	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	li := items[0]
	if li.TargetExpense.Won != 1_000_000 {
		t.Errorf("target = %d, want 1000000", li.TargetExpense.Won)
	}
	if li.TargetExpenseWithVAT.Won != 1_100_000 {
		t.Errorf("target with VAT = %d, want 1100000", li.TargetExpenseWithVAT.Won)
	}
	if li.Variance.Won != 100_000 {
		t.Errorf("variance = %d, want 100000", li.Variance.Won)
	}
}

func TestParseWithholdingsAppliesStatutoryRate(t *testing.T) {
	rows := [][]any{{"김감독", "1,000,000", "pending"}}

	out := parseWithholdings(rows)

	if len(out) != 1 {
		t.Fatalf("expected 1 withholding, got %d", len(out))
	}
	if out[0].WithholdingTax.Won != 33_000 {
		t.Errorf("tax = %d, want 33000", out[0].WithholdingTax.Won)
	}
	if out[0].NetAmount.Won != 967_000 {
		t.Errorf("net = %d, want 967000", out[0].NetAmount.Won)
	}
}

func TestParseSchedulesComputesBalance(t *testing.T) {
	rows := [][]any{{"선금", "10,000,000", "2026-03-01", "4,000,000"}}

	out := parseSchedules(rows)

	if len(out) != 1 {
		t.Fatalf("expected 1 schedule, got %d", len(out))
	}
	if out[0].Balance.Won != 6_000_000 {
		t.Errorf("balance = %d, want 6000000", out[0].Balance.Won)
	}
	if out[0].ExpectedDate.IsEmpty() {
		t.Error("expected date should be set")
	}
}

func TestParseCardAndCashExpensesReadUsedDate(t *testing.T) {
	rows := [][]any{
		{"주유비", "80,000", "2026-08-12"},
		{"", "10,000", "2026-08-13"}, // blank description, skipped
	}

	card := parseCardExpenses(rows)
	if len(card) != 1 {
		t.Fatalf("expected 1 card expense, got %d", len(card))
	}
	if card[0].AmountWithVAT.Won != 80_000 {
		t.Errorf("amount = %d, want 80000", card[0].AmountWithVAT.Won)
	}
	if card[0].UsedDate.IsEmpty() {
		t.Error("used date should be set from column C")
	}

	cash := parseCashExpenses(rows)
	if len(cash) != 1 {
		t.Fatalf("expected 1 cash expense, got %d", len(cash))
	}
	if cash[0].UsedDate.IsEmpty() {
		t.Error("used date should be set from column C")
	}
}

func TestCellAmountToleratesJunk(t *testing.T) {
	cases := map[string]int64{
		"":           0,
		"n/a":        0,
		"₩1,234,567": 1_234_567,
		"-100":       0,
	}
	for in, want := range cases {
		if got := cellAmount(in).Won; got != want {
			t.Errorf("cellAmount(%q) = %d, want %d", in, got, want)
		}
	}
}

func TestCellStatusFallsBackToPending(t *testing.T) {
	if got := cellStatus("garbage"); got != core.StatusPending {
		t.Errorf("status = %q, want pending", got)
	}
	if got := cellStatus("PAYMENT-COMPLETE"); got != core.StatusPaymentComplete {
		t.Errorf("status = %q, want payment-complete", got)
	}
}

func TestClassify(t *testing.T) {
	auth := classify("pull", &googleapi.Error{Code: 403})
	if !ports.IsAuthRequired(auth) {
		t.Error("403 should classify as auth required")
	}
	transient := classify("pull", &googleapi.Error{Code: 500})
	if !ports.IsTransient(transient) {
		t.Error("500 should classify as transient")
	}
}
