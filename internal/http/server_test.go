package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"prodbudget/internal/services"
	"prodbudget/internal/storage"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "budget.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	svc := services.NewBudgetService(repo, nil)
	srv := NewServer(":0", svc)
	t.Cleanup(func() {
		_ = srv.Shutdown(context.Background())
		_ = svc.Close()
	})
	return srv
}

func doJSON(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func decodeView(t *testing.T, rr *httptest.ResponseRecorder) budgetViewJSON {
	t.Helper()
	var view budgetViewJSON
	if err := json.Unmarshal(rr.Body.Bytes(), &view); err != nil {
		t.Fatalf("decode view: %v (body: %s)", err, rr.Body.String())
	}
	return view
}

func TestHealthAndReady(t *testing.T) {
	srv := newTestServer(t)
	for _, path := range []string{"/healthz", "/readyz"} {
		rr := doJSON(t, srv, http.MethodGet, path, "")
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
	}
}

func TestReadyReportsUnavailableWhenDatabaseClosed(t *testing.T) {
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "budget.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	svc := services.NewBudgetService(repo, nil)
	srv := NewServer(":0", svc)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })

	if err := repo.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	rr := doJSON(t, srv, http.MethodGet, "/readyz", "")
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("/readyz status=%d, want %d", rr.Code, http.StatusServiceUnavailable)
	}
}

func TestGetBudgetForUnknownProjectIsEmpty(t *testing.T) {
	srv := newTestServer(t)

	rr := doJSON(t, srv, http.MethodGet, "/projects/brand-film/budget", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}

	view := decodeView(t, rr)
	if view.ProjectID != "brand-film" {
		t.Errorf("project_id = %q, want %q", view.ProjectID, "brand-film")
	}
	if len(view.LineItems) != 0 {
		t.Errorf("expected no line items, got %d", len(view.LineItems))
	}
	if view.Reconciliation.TotalContract != 0 {
		t.Errorf("total_contract = %d, want 0", view.Reconciliation.TotalContract)
	}
}

func TestAddLineItemRecomputesBudgetView(t *testing.T) {
	srv := newTestServer(t)

	rr := doJSON(t, srv, http.MethodPost, "/projects/p1/line-items",
		`{"category":"production","main_category":"촬영","unit_price":500000,"quantity":2,"vat_rate":0.1}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	var created createdJSON
	if err := json.Unmarshal(rr.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode created: %v", err)
	}
	if created.ID <= 0 {
		t.Fatalf("created id = %d, want > 0", created.ID)
	}

	rr = doJSON(t, srv, http.MethodGet, "/projects/p1/budget", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	view := decodeView(t, rr)
	if len(view.LineItems) != 1 {
		t.Fatalf("line items = %d, want 1", len(view.LineItems))
	}
	li := view.LineItems[0]
	if li.TargetExpense != 1_000_000 {
		t.Errorf("target_expense = %d, want 1000000", li.TargetExpense)
	}
	if li.TargetExpenseWithVAT != 1_100_000 {
		t.Errorf("target_expense_with_vat = %d, want 1100000", li.TargetExpenseWithVAT)
	}
	if view.Reconciliation.TotalTarget != 1_000_000 {
		t.Errorf("total_target = %d, want 1000000", view.Reconciliation.TotalTarget)
	}
}

func TestAddLineItemValidationFailure(t *testing.T) {
	srv := newTestServer(t)

	rr := doJSON(t, srv, http.MethodPost, "/projects/p1/line-items",
		`{"category":"catering","main_category":"식대","unit_price":10000}`)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status=%d, want 422 (body: %s)", rr.Code, rr.Body.String())
	}
	if !strings.Contains(rr.Body.String(), CodeValidationFailed) {
		t.Errorf("body missing %q: %s", CodeValidationFailed, rr.Body.String())
	}
}

func TestUpdateAndDeleteLineItem(t *testing.T) {
	srv := newTestServer(t)

	rr := doJSON(t, srv, http.MethodPost, "/projects/p1/line-items",
		`{"category":"staff","main_category":"인건비","unit_price":200000,"quantity":3,"vat_rate":0}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status=%d body=%s", rr.Code, rr.Body.String())
	}
	var created createdJSON
	if err := json.Unmarshal(rr.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode created: %v", err)
	}
	itemPath := "/projects/p1/line-items/" + strconv.FormatInt(created.ID, 10)

	rr = doJSON(t, srv, http.MethodPut, itemPath,
		`{"category":"staff","main_category":"인건비","unit_price":200000,"quantity":5,"vat_rate":0}`)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("update status=%d body=%s", rr.Code, rr.Body.String())
	}

	view := decodeView(t, doJSON(t, srv, http.MethodGet, "/projects/p1/budget", ""))
	if view.LineItems[0].TargetExpense != 1_000_000 {
		t.Errorf("target after update = %d, want 1000000", view.LineItems[0].TargetExpense)
	}

	rr = doJSON(t, srv, http.MethodDelete, itemPath, "")
	if rr.Code != http.StatusNoContent {
		t.Fatalf("delete status=%d", rr.Code)
	}

	rr = doJSON(t, srv, http.MethodDelete, itemPath, "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("second delete status=%d, want 404", rr.Code)
	}
}

func TestLedgerEditInvalidatesCachedView(t *testing.T) {
	srv := newTestServer(t)

	// Prime the cache.
	view := decodeView(t, doJSON(t, srv, http.MethodGet, "/projects/p1/budget", ""))
	if view.Reconciliation.ActualExpense != 0 {
		t.Fatalf("actual_expense = %d, want 0", view.Reconciliation.ActualExpense)
	}

	rr := doJSON(t, srv, http.MethodPost, "/projects/p1/card-expenses",
		`{"description":"식대","amount_with_vat":55000,"used_date":"2026-08-12"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("card expense status=%d body=%s", rr.Code, rr.Body.String())
	}

	view = decodeView(t, doJSON(t, srv, http.MethodGet, "/projects/p1/budget", ""))
	if view.Reconciliation.ComputedActual != 55000 {
		t.Errorf("computed_actual = %d, want 55000", view.Reconciliation.ComputedActual)
	}
	if len(view.CardExpenses) != 1 || view.CardExpenses[0].UsedDate != "2026-08-12" {
		t.Errorf("card expenses = %+v", view.CardExpenses)
	}
}

func TestReplaceBudgetWholesale(t *testing.T) {
	srv := newTestServer(t)

	body := `{
		"summary": {
			"company_name": "한양식품",
			"contract_name": "브랜드 필름",
			"total_contract_amount": 50000000,
			"target_expense_with_vat": 33000000
		},
		"payment_schedules": [
			{"label": "계약금", "expected_amount": 25000000, "expected_date": "2026-03-02", "actual_amount": 25000000}
		],
		"line_items": [
			{"category": "production", "main_category": "촬영", "unit_price": 3000000, "quantity": 2, "vat_rate": 0.1}
		],
		"withholdings": [
			{"payee": "김편집", "gross_amount": 1000000, "status": "pending"}
		]
	}`
	rr := doJSON(t, srv, http.MethodPut, "/projects/p1/budget", body)
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}

	view := decodeView(t, rr)
	if view.Summary.CompanyName != "한양식품" {
		t.Errorf("company = %q", view.Summary.CompanyName)
	}
	if view.Reconciliation.TotalContract != 50_000_000 {
		t.Errorf("total_contract = %d, want 50000000", view.Reconciliation.TotalContract)
	}
	if view.Reconciliation.TotalTarget != 33_000_000 {
		t.Errorf("total_target = %d, want 33000000", view.Reconciliation.TotalTarget)
	}
	if len(view.Withholdings) != 1 {
		t.Fatalf("withholdings = %d, want 1", len(view.Withholdings))
	}
	if view.Withholdings[0].WithholdingTax != 33000 || view.Withholdings[0].NetAmount != 967000 {
		t.Errorf("withholding tax/net = %d/%d, want 33000/967000",
			view.Withholdings[0].WithholdingTax, view.Withholdings[0].NetAmount)
	}
	if view.PaymentSchedules[0].Balance != 0 {
		t.Errorf("schedule balance = %d, want 0", view.PaymentSchedules[0].Balance)
	}
}

func TestSyncRequestIsAccepted(t *testing.T) {
	srv := newTestServer(t)

	rr := doJSON(t, srv, http.MethodPost, "/projects/p1/sync/pull", "")
	if rr.Code != http.StatusAccepted {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	var resp syncAcceptedJSON
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.TaskID <= 0 || resp.Operation != "pull" {
		t.Errorf("resp = %+v", resp)
	}

	rr = doJSON(t, srv, http.MethodPost, "/projects/p1/sync/rebase", "")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("unknown op status=%d, want 400", rr.Code)
	}
}

func TestLinkSpreadsheet(t *testing.T) {
	srv := newTestServer(t)

	rr := doJSON(t, srv, http.MethodPut, "/projects/p1/spreadsheet", `{"spreadsheet_id":"1abcDEF"}`)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}

	rr = doJSON(t, srv, http.MethodPut, "/projects/p1/spreadsheet", `{}`)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("missing id status=%d, want 422", rr.Code)
	}
}

func TestFormEncodedBodyIsAccepted(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/projects/p1/cash-expenses",
		strings.NewReader("description=%EC%A3%BC%EC%9C%A0%EB%B9%84&amount_with_vat=30000"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
}

func TestMutationRateLimit(t *testing.T) {
	srv := newTestServer(t)

	var last int
	for range 130 {
		rr := doJSON(t, srv, http.MethodPost, "/projects/p1/cash-expenses",
			`{"description":"간식","amount_with_vat":5000}`)
		last = rr.Code
		if last == http.StatusTooManyRequests {
			break
		}
	}
	if last != http.StatusTooManyRequests {
		t.Fatalf("expected a 429 within 130 mutating requests, last status=%d", last)
	}

	// Reads are never rate limited.
	rr := doJSON(t, srv, http.MethodGet, "/projects/p1/budget", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("read status=%d, want 200", rr.Code)
	}
}

func TestSecurityHeadersApplied(t *testing.T) {
	srv := newTestServer(t)

	rr := doJSON(t, srv, http.MethodGet, "/healthz", "")
	if got := rr.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q", got)
	}
	if got := rr.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Errorf("X-Frame-Options = %q", got)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t)

	doJSON(t, srv, http.MethodGet, "/projects/p1/budget", "")
	rr := doJSON(t, srv, http.MethodPost, "/projects/p1/cash-expenses",
		`{"description":"택시비","amount_with_vat":12000,"used_date":"2026-08-20"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("seed expense status=%d body=%s", rr.Code, rr.Body.String())
	}

	rr = doJSON(t, srv, http.MethodGet, "/metrics", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("Content-Type = %q, want text/plain", ct)
	}

	body := rr.Body.String()
	for _, want := range []string{
		"http_requests_total",
		"budget_edits_total 1",
		"budget_view_cache_misses_total 1",
		"rate_limit_hits_total 0",
		"uptime_seconds",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q:\n%s", want, body)
		}
	}
}

func TestTrustedProxyForwardedFor(t *testing.T) {
	srv := newTestServer(t)

	// httptest requests arrive from 192.0.2.1, which is not a trusted
	// proxy by default, so forwarded headers must be ignored.
	req := httptest.NewRequest(http.MethodGet, "/projects/p1/budget", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.9")
	if ip := srv.detector.ExtractClientIP(req); ip == "203.0.113.9" {
		t.Fatal("forwarded header honored from untrusted proxy")
	}

	if err := srv.AddTrustedProxy("192.0.2.0/24"); err != nil {
		t.Fatalf("AddTrustedProxy: %v", err)
	}
	if ip := srv.detector.ExtractClientIP(req); ip != "203.0.113.9" {
		t.Errorf("client ip = %q, want forwarded 203.0.113.9", ip)
	}
}
