package google

import (
	"fmt"
	"strings"
	"time"

	"prodbudget/internal/core"
)

// toStrings normalizes a raw spreadsheet row into trimmed cells, padded
// to at least n columns.
func toStrings(row []any, n int) []string {
	out := make([]string, 0, n)
	for _, cell := range row {
		out = append(out, strings.TrimSpace(fmt.Sprintf("%v", cell)))
	}
	for len(out) < n {
		out = append(out, "")
	}
	return out
}

// cellAmount parses a money cell, treating blanks and junk as zero.
// Spreadsheet cells are user-edited; a garbled amount must not sink the
// whole pull.
func cellAmount(s string) core.Money {
	if s == "" {
		return core.Money{}
	}
	won, err := core.ParseAmountToWon(s)
	if err != nil {
		return core.Money{}
	}
	return core.Money{Won: won}
}

func cellQuantity(s string) int64 {
	if s == "" {
		return 1
	}
	n, err := core.ParseAmountToWon(s)
	if err != nil || n == 0 {
		return 1
	}
	return n
}

func cellVATRate(s string) float64 {
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "%"))
	switch s {
	case "10", "0.1":
		return core.InvoiceVATRate
	default:
		return 0
	}
}

func cellStatus(s string) core.PaymentStatus {
	st := core.PaymentStatus(strings.ToLower(s))
	if st.Valid() {
		return st
	}
	return core.StatusPending
}

var dateLayouts = []string{"2006-01-02", "2006.01.02", "2006/01/02"}

func cellDate(s string) core.Date {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return core.NewDate(t.Year(), int(t.Month()), t.Day())
		}
	}
	return core.Date{}
}

// parseOverview reads label/value pairs from the overview sheet. Labels
// are matched case-insensitively so hand-maintained sheets with varying
// capitalization resolve.
func parseOverview(rows [][]any) core.Summary {
	var s core.Summary
	for _, raw := range rows {
		cells := toStrings(raw, 2)
		switch strings.ToLower(cells[0]) {
		case "company":
			s.CompanyName = cells[1]
		case "contract":
			s.ContractName = cells[1]
		case "contracttotal":
			s.TotalContractAmount = cellAmount(cells[1])
		case "vat":
			s.VATAmount = cellAmount(cells[1])
		case "totalwithvat":
			s.TotalWithVAT = cellAmount(cells[1])
		case "targetexpense":
			s.TargetExpense = cellAmount(cells[1])
		case "targetexpensewithvat":
			s.TargetExpenseWithVAT = cellAmount(cells[1])
		case "actualexpense":
			s.ActualExpense = cellAmount(cells[1])
		case "actualexpensewithvat":
			s.ActualExpenseWithVAT = cellAmount(cells[1])
		}
	}
	return s
}

// Budget sheet columns:
// A category, B main category, C sub category, D unit price,
// E quantity, F VAT rate, G payment method, H actual expense.
func parseLineItems(rows [][]any) []core.LineItem {
	var items []core.LineItem
	for i, raw := range rows {
		cells := toStrings(raw, 8)
		if cells[1] == "" {
			continue
		}
		li := core.LineItem{
			ID:                   int64(i + 1),
			Category:             core.Category(cells[0]),
			MainCategory:         cells[1],
			SubCategory:          cells[2],
			UnitPrice:            cellAmount(cells[3]),
			Quantity:             cellQuantity(cells[4]),
			VATRate:              cellVATRate(cells[5]),
			PaymentMethod:        cells[6],
			ActualExpenseWithVAT: cellAmount(cells[7]),
		}
		li.Recompute()
		items = append(items, li)
	}
	return items
}

// Payments sheet columns: A label, B expected amount, C expected date,
// D actual amount.
func parseSchedules(rows [][]any) []core.PaymentSchedule {
	var out []core.PaymentSchedule
	for i, raw := range rows {
		cells := toStrings(raw, 4)
		if cells[0] == "" {
			continue
		}
		ps := core.PaymentSchedule{
			ID:             int64(i + 1),
			Label:          cells[0],
			ExpectedAmount: cellAmount(cells[1]),
			ExpectedDate:   cellDate(cells[2]),
			ActualAmount:   cellAmount(cells[3]),
		}
		ps.Balance = ps.ExpectedAmount.Sub(ps.ActualAmount)
		out = append(out, ps)
	}
	return out
}

// TaxInvoices sheet columns: A counterparty, B supply amount,
// C issue date, D status. Tax and total are recomputed, not read.
func parseTaxInvoices(rows [][]any) []core.TaxInvoice {
	var out []core.TaxInvoice
	for i, raw := range rows {
		cells := toStrings(raw, 4)
		if cells[0] == "" {
			continue
		}
		ti := core.TaxInvoice{
			ID:           int64(i + 1),
			Counterparty: cells[0],
			SupplyAmount: cellAmount(cells[1]),
			IssueDate:    cellDate(cells[2]),
			Status:       cellStatus(cells[3]),
		}
		ti.Recompute()
		out = append(out, ti)
	}
	return out
}

// Withholding sheet columns: A payee, B gross amount, C status.
func parseWithholdings(rows [][]any) []core.Withholding {
	var out []core.Withholding
	for i, raw := range rows {
		cells := toStrings(raw, 3)
		if cells[0] == "" {
			continue
		}
		w := core.Withholding{
			ID:          int64(i + 1),
			Payee:       cells[0],
			GrossAmount: cellAmount(cells[1]),
			Status:      cellStatus(cells[2]),
		}
		w.Recompute()
		out = append(out, w)
	}
	return out
}

// Card and cash sheets share the same columns: A description,
// B amount with VAT, C used date.
func parseCardExpenses(rows [][]any) []core.CardExpense {
	var out []core.CardExpense
	for i, raw := range rows {
		cells := toStrings(raw, 3)
		if cells[0] == "" {
			continue
		}
		out = append(out, core.CardExpense{
			ID:            int64(i + 1),
			Description:   cells[0],
			AmountWithVAT: cellAmount(cells[1]),
			UsedDate:      cellDate(cells[2]),
		})
	}
	return out
}

func parseCashExpenses(rows [][]any) []core.CashExpense {
	var out []core.CashExpense
	for i, raw := range rows {
		cells := toStrings(raw, 3)
		if cells[0] == "" {
			continue
		}
		out = append(out, core.CashExpense{
			ID:            int64(i + 1),
			Description:   cells[0],
			AmountWithVAT: cellAmount(cells[1]),
			UsedDate:      cellDate(cells[2]),
		})
	}
	return out
}

// Personal sheet columns: A description, B amount with VAT, C used
// date, D status.
func parsePersonalExpenses(rows [][]any) []core.PersonalExpense {
	var out []core.PersonalExpense
	for i, raw := range rows {
		cells := toStrings(raw, 4)
		if cells[0] == "" {
			continue
		}
		out = append(out, core.PersonalExpense{
			ID:            int64(i + 1),
			Description:   cells[0],
			AmountWithVAT: cellAmount(cells[1]),
			UsedDate:      cellDate(cells[2]),
			Status:        cellStatus(cells[3]),
		})
	}
	return out
}
