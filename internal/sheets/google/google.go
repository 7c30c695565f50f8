package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"prodbudget/internal/core"
	ports "prodbudget/internal/sheets"

	"google.golang.org/api/googleapi"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// LinkResolver maps a project to its linked spreadsheet. Implemented by
// the storage layer over the sheet_links table.
type LinkResolver interface {
	SpreadsheetID(ctx context.Context, projectID string) (string, error)
}

// Client pulls and pushes budget snapshots from a project's linked
// spreadsheet. One spreadsheet per project; sheet names are shared
// across all of them.
type Client struct {
	svc   *gsheet.Service
	links LinkResolver

	overviewSheet    string
	budgetSheet      string
	schedulesSheet   string
	invoicesSheet    string
	withholdingSheet string
	cardSheet        string
	cashSheet        string
	personalSheet    string
}

// Ensure interface conformance
var (
	_ ports.SnapshotSource = (*Client)(nil)
	_ ports.SnapshotSink   = (*Client)(nil)
)

// NewFromEnv creates a Sheets client using environment variables and a
// service account.
// Optional sheet names: SHEET_OVERVIEW (default "Overview"),
// SHEET_BUDGET ("Budget"), SHEET_SCHEDULES ("Payments"),
// SHEET_INVOICES ("TaxInvoices"), SHEET_WITHHOLDING ("Withholding"),
// SHEET_CARD ("CorporateCard"), SHEET_CASH ("CorporateCash"),
// SHEET_PERSONAL ("Personal").
func NewFromEnv(ctx context.Context, links LinkResolver) (*Client, error) {
	if links == nil {
		return nil, errors.New("nil link resolver")
	}
	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return &Client{
		svc:              svc,
		links:            links,
		overviewSheet:    envSheetName("SHEET_OVERVIEW", "Overview"),
		budgetSheet:      envSheetName("SHEET_BUDGET", "Budget"),
		schedulesSheet:   envSheetName("SHEET_SCHEDULES", "Payments"),
		invoicesSheet:    envSheetName("SHEET_INVOICES", "TaxInvoices"),
		withholdingSheet: envSheetName("SHEET_WITHHOLDING", "Withholding"),
		cardSheet:        envSheetName("SHEET_CARD", "CorporateCard"),
		cashSheet:        envSheetName("SHEET_CASH", "CorporateCash"),
		personalSheet:    envSheetName("SHEET_PERSONAL", "Personal"),
	}, nil
}

func envSheetName(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
// Uses GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS.
func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	var err error
	switch {
	case serviceAccountJSON != "":
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// Pull reads the full budget snapshot from the project's linked
// spreadsheet. The overview sheet is authoritative for summary figures;
// detail sheets fill the line items and the five ledgers. Missing
// detail sheets are tolerated and read as empty.
func (c *Client) Pull(ctx context.Context, projectID string) (core.BudgetRecord, error) {
	if c.svc == nil {
		return core.BudgetRecord{}, ports.Transient("pull", errors.New("sheets service not initialized"))
	}
	spreadsheetID, err := c.links.SpreadsheetID(ctx, projectID)
	if err != nil {
		return core.BudgetRecord{}, ports.Transient("pull", fmt.Errorf("resolve spreadsheet link: %w", err))
	}

	rec := core.NewBudgetRecord(projectID)

	overview, err := c.readRange(ctx, spreadsheetID, c.overviewSheet, "A1:B20")
	if err != nil {
		return core.BudgetRecord{}, classify("pull overview", err)
	}
	rec.Summary = parseOverview(overview)

	budget, err := c.readRangeOptional(ctx, spreadsheetID, c.budgetSheet, "A2:H200")
	if err != nil {
		return core.BudgetRecord{}, classify("pull budget", err)
	}
	rec.LineItems = parseLineItems(budget)

	schedules, err := c.readRangeOptional(ctx, spreadsheetID, c.schedulesSheet, "A2:D50")
	if err != nil {
		return core.BudgetRecord{}, classify("pull payments", err)
	}
	rec.PaymentSchedules = parseSchedules(schedules)

	invoices, err := c.readRangeOptional(ctx, spreadsheetID, c.invoicesSheet, "A2:E200")
	if err != nil {
		return core.BudgetRecord{}, classify("pull tax invoices", err)
	}
	rec.TaxInvoices = parseTaxInvoices(invoices)

	withholdings, err := c.readRangeOptional(ctx, spreadsheetID, c.withholdingSheet, "A2:C200")
	if err != nil {
		return core.BudgetRecord{}, classify("pull withholdings", err)
	}
	rec.Withholdings = parseWithholdings(withholdings)

	card, err := c.readRangeOptional(ctx, spreadsheetID, c.cardSheet, "A2:C400")
	if err != nil {
		return core.BudgetRecord{}, classify("pull card expenses", err)
	}
	rec.CardExpenses = parseCardExpenses(card)

	cash, err := c.readRangeOptional(ctx, spreadsheetID, c.cashSheet, "A2:C400")
	if err != nil {
		return core.BudgetRecord{}, classify("pull cash expenses", err)
	}
	rec.CashExpenses = parseCashExpenses(cash)

	personal, err := c.readRangeOptional(ctx, spreadsheetID, c.personalSheet, "A2:D400")
	if err != nil {
		return core.BudgetRecord{}, classify("pull personal expenses", err)
	}
	rec.PersonalExpenses = parsePersonalExpenses(personal)

	slog.InfoContext(ctx, "Pulled budget snapshot from spreadsheet",
		"project_id", projectID,
		"spreadsheet_id", spreadsheetID,
		"line_items", len(rec.LineItems),
		"tax_invoices", len(rec.TaxInvoices))

	return rec, nil
}

// Push writes the headline summary figures back to the overview sheet.
// Detail sheets stay owned by the spreadsheet side; only the figures
// the service computes flow outward.
func (c *Client) Push(ctx context.Context, projectID string, rec core.BudgetRecord) error {
	if c.svc == nil {
		return ports.Transient("push", errors.New("sheets service not initialized"))
	}
	spreadsheetID, err := c.links.SpreadsheetID(ctx, projectID)
	if err != nil {
		return ports.Transient("push", fmt.Errorf("resolve spreadsheet link: %w", err))
	}

	recon := core.Reconcile(rec)
	rows := [][]any{
		{"Company", rec.Summary.CompanyName},
		{"Contract", rec.Summary.ContractName},
		{"ContractTotal", rec.Summary.TotalContractAmount.Won},
		{"VAT", rec.Summary.VATAmount.Won},
		{"TotalWithVAT", rec.Summary.TotalWithVAT.Won},
		{"TargetExpense", rec.Summary.TargetExpense.Won},
		{"TargetExpenseWithVAT", rec.Summary.TargetExpenseWithVAT.Won},
		{"ActualExpense", rec.Summary.ActualExpense.Won},
		{"ActualExpenseWithVAT", rec.Summary.ActualExpenseWithVAT.Won},
		{"ActualProfit", recon.ActualProfit.Won},
		{"AchievementRate", recon.AchievementRate},
		{"ProfitRate", recon.ProfitRate},
	}

	rng := fmt.Sprintf("%s!A1:B%d", c.overviewSheet, len(rows))
	vr := &gsheet.ValueRange{Values: rows}
	_, err = c.svc.Spreadsheets.Values.Update(spreadsheetID, rng, vr).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return classify("push overview", err)
	}

	slog.InfoContext(ctx, "Pushed budget summary to spreadsheet",
		"project_id", projectID,
		"spreadsheet_id", spreadsheetID)

	return nil
}

func (c *Client) readRange(ctx context.Context, spreadsheetID, sheetName, cells string) ([][]any, error) {
	rng := fmt.Sprintf("%s!%s", sheetName, cells)
	resp, err := c.svc.Spreadsheets.Values.Get(spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	return resp.Values, nil
}

// readRangeOptional treats a missing sheet (400 on an unknown range) as
// an empty one so older spreadsheets without every ledger tab keep
// working.
func (c *Client) readRangeOptional(ctx context.Context, spreadsheetID, sheetName, cells string) ([][]any, error) {
	values, err := c.readRange(ctx, spreadsheetID, sheetName, cells)
	if err != nil {
		var gerr *googleapi.Error
		if errors.As(err, &gerr) && gerr.Code == 400 {
			slog.DebugContext(ctx, "Sheet missing, treating as empty", "sheet", sheetName)
			return nil, nil
		}
		return nil, err
	}
	return values, nil
}

// classify converts Google API failures into the tagged sync error the
// callers branch on: 401/403 need reauthorization, everything else is
// retryable.
func classify(op string, err error) *ports.SyncError {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && (gerr.Code == 401 || gerr.Code == 403) {
		return ports.AuthRequired(op, err)
	}
	return ports.Transient(op, err)
}
