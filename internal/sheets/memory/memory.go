package memory

import (
	"context"
	"errors"
	"sync"

	"prodbudget/internal/core"
	ports "prodbudget/internal/sheets"
)

// Store is an in-memory snapshot source/sink used as the development
// backend and in tests. It holds one snapshot per project.
type Store struct {
	mu        sync.Mutex
	snapshots map[string]core.BudgetRecord

	// Failure injection for tests.
	pullErr error
	pushErr error
}

var (
	_ ports.SnapshotSource = (*Store)(nil)
	_ ports.SnapshotSink   = (*Store)(nil)
)

var errNotLinked = errors.New("no spreadsheet linked for project")

func New() *Store {
	return &Store{snapshots: map[string]core.BudgetRecord{}}
}

// NewWithSeeds returns a store pre-populated with snapshots for the
// fixed set of legacy projects that carried budgets before the service
// existed.
func NewWithSeeds() *Store {
	s := New()
	for _, rec := range legacySeeds() {
		s.snapshots[rec.ProjectID] = rec
	}
	return s
}

// Pull returns the stored snapshot for the project.
func (s *Store) Pull(_ context.Context, projectID string) (core.BudgetRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pullErr != nil {
		return core.BudgetRecord{}, s.pullErr
	}
	rec, ok := s.snapshots[projectID]
	if !ok {
		return core.BudgetRecord{}, ports.Transient("memory pull", errNotLinked)
	}
	return rec, nil
}

// Push replaces the stored snapshot for the project.
func (s *Store) Push(_ context.Context, projectID string, rec core.BudgetRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pushErr != nil {
		return s.pushErr
	}
	rec.ProjectID = projectID
	s.snapshots[projectID] = rec
	return nil
}

// FailPulls makes subsequent pulls return err. Pass nil to recover.
func (s *Store) FailPulls(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pullErr = err
}

// FailPushes makes subsequent pushes return err. Pass nil to recover.
func (s *Store) FailPushes(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pushErr = err
}

// legacySeeds builds the budgets of the legacy projects that predate
// the service. Derived figures are recomputed rather than hard-coded so
// the seeds always satisfy the domain invariants.
func legacySeeds() []core.BudgetRecord {
	brand := core.BudgetRecord{
		ProjectID: "legacy-brandfilm",
		Summary: core.Summary{
			CompanyName:         "한양식품",
			ContractName:        "브랜드필름 제작",
			TotalContractAmount: core.Money{Won: 50_000_000},
			VATAmount:           core.Money{Won: 5_000_000},
			TotalWithVAT:        core.Money{Won: 55_000_000},
		},
		PaymentSchedules: []core.PaymentSchedule{
			{ID: 1, Label: "계약금", ExpectedAmount: core.Money{Won: 25_000_000}, ExpectedDate: core.NewDate(2025, 3, 2)},
			{ID: 2, Label: "잔금", ExpectedAmount: core.Money{Won: 25_000_000}, ExpectedDate: core.NewDate(2025, 5, 30)},
		},
		LineItems: []core.LineItem{
			{ID: 1, Category: core.CategoryStaff, MainCategory: "인건비", SubCategory: "연출", UnitPrice: core.Money{Won: 1_500_000}, Quantity: 4, VATRate: 0.1, PaymentMethod: "계좌이체"},
			{ID: 2, Category: core.CategoryProduction, MainCategory: "촬영", SubCategory: "장비 렌탈", UnitPrice: core.Money{Won: 800_000}, Quantity: 3, VATRate: 0.1, PaymentMethod: "법인카드"},
			{ID: 3, Category: core.CategoryPost, MainCategory: "편집", SubCategory: "색보정", UnitPrice: core.Money{Won: 2_000_000}, Quantity: 1, VATRate: 0.1, PaymentMethod: "계좌이체"},
		},
		TaxInvoices: []core.TaxInvoice{
			{ID: 1, Counterparty: "스튜디오렌탈", SupplyAmount: core.Money{Won: 2_400_000}, IssueDate: core.NewDate(2025, 3, 14), Status: core.StatusPaymentComplete},
		},
		Withholdings: []core.Withholding{
			{ID: 1, Payee: "김촬영", GrossAmount: core.Money{Won: 1_000_000}, Status: core.StatusPaymentComplete},
		},
	}

	viral := core.BudgetRecord{
		ProjectID: "legacy-viral",
		Summary: core.Summary{
			CompanyName:  "서울커머스",
			ContractName: "바이럴 영상 3편",
			TotalWithVAT: core.Money{Won: 16_500_000},
		},
		LineItems: []core.LineItem{
			{ID: 1, Category: core.CategoryTalent, MainCategory: "출연료", UnitPrice: core.Money{Won: 700_000}, Quantity: 3, PaymentMethod: "개인경비"},
			{ID: 2, Category: core.CategoryOutsourcing, MainCategory: "외주", SubCategory: "모션그래픽", UnitPrice: core.Money{Won: 1_200_000}, Quantity: 2, VATRate: 0.1, PaymentMethod: "세금계산서"},
		},
		CardExpenses: []core.CardExpense{
			{ID: 1, Description: "촬영 소품", AmountWithVAT: core.Money{Won: 180_000}, UsedDate: core.NewDate(2025, 4, 8)},
		},
	}

	seeds := []core.BudgetRecord{brand, viral}
	for i := range seeds {
		for j := range seeds[i].LineItems {
			seeds[i].LineItems[j].Recompute()
		}
		for j := range seeds[i].TaxInvoices {
			seeds[i].TaxInvoices[j].Recompute()
		}
		for j := range seeds[i].Withholdings {
			seeds[i].Withholdings[j].Recompute()
		}
	}
	return seeds
}
