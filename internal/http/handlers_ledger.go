package http

import (
	"net/http"

	"prodbudget/internal/core"
	applog "prodbudget/internal/log"
)

// Handlers for the five expense ledgers. Each ledger shares the same
// add/update/delete shape; derived fields (invoice VAT, withholding
// tax) are recomputed by the service before persisting.

func parseStatus(p *RequestBodyParser) core.PaymentStatus {
	v := p.Get("status")
	if v == "" {
		return core.StatusPending
	}
	return core.PaymentStatus(v)
}

// Tax invoices

func parseTaxInvoiceBody(p *RequestBodyParser) (core.TaxInvoice, error) {
	issued, err := p.GetDate("issue_date")
	if err != nil {
		return core.TaxInvoice{}, err
	}
	return core.TaxInvoice{
		Counterparty: p.Get("counterparty"),
		SupplyAmount: p.GetMoney("supply_amount"),
		IssueDate:    issued,
		Status:       parseStatus(p),
	}, nil
}

func (s *Server) handleAddTaxInvoice(w http.ResponseWriter, r *http.Request) {
	id := projectID(r)
	parser := NewRequestBodyParser(r)
	if err := parser.Parse(); err != nil {
		BadRequestError("malformed request body").Write(w)
		return
	}

	ti, err := parseTaxInvoiceBody(parser)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	itemID, err := s.budget.AddTaxInvoice(r.Context(), id, ti)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.recordEdit(r.Context(), id, "tax_invoice", itemID, ti.SupplyAmount.Won, applog.OpCreate)
	NewAPIResponse().Status(http.StatusCreated).JSON(createdJSON{ID: itemID}).Write(w)
}

func (s *Server) handleUpdateTaxInvoice(w http.ResponseWriter, r *http.Request) {
	id := projectID(r)
	itemID, err := pathID(r, "itemID")
	if err != nil {
		BadRequestError("invalid item id").Write(w)
		return
	}

	parser := NewRequestBodyParser(r)
	if err := parser.Parse(); err != nil {
		BadRequestError("malformed request body").Write(w)
		return
	}

	ti, err := parseTaxInvoiceBody(parser)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	ti.ID = itemID

	if err := s.budget.UpdateTaxInvoice(r.Context(), id, ti); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.recordEdit(r.Context(), id, "tax_invoice", itemID, ti.SupplyAmount.Won, applog.OpUpdate)
	NewAPIResponse().Status(http.StatusNoContent).Write(w)
}

func (s *Server) handleDeleteTaxInvoice(w http.ResponseWriter, r *http.Request) {
	id := projectID(r)
	itemID, err := pathID(r, "itemID")
	if err != nil {
		BadRequestError("invalid item id").Write(w)
		return
	}

	if err := s.budget.DeleteTaxInvoice(r.Context(), id, itemID); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.recordEdit(r.Context(), id, "tax_invoice", itemID, 0, applog.OpDelete)
	NewAPIResponse().Status(http.StatusNoContent).Write(w)
}

// Withholdings

func parseWithholdingBody(p *RequestBodyParser) (core.Withholding, error) {
	return core.Withholding{
		Payee:       p.Get("payee"),
		GrossAmount: p.GetMoney("gross_amount"),
		Amount:      p.GetMoney("amount"),
		Status:      parseStatus(p),
	}, nil
}

func (s *Server) handleAddWithholding(w http.ResponseWriter, r *http.Request) {
	id := projectID(r)
	parser := NewRequestBodyParser(r)
	if err := parser.Parse(); err != nil {
		BadRequestError("malformed request body").Write(w)
		return
	}

	wh, err := parseWithholdingBody(parser)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	itemID, err := s.budget.AddWithholding(r.Context(), id, wh)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.recordEdit(r.Context(), id, "withholding", itemID, wh.GrossAmount.Won, applog.OpCreate)
	NewAPIResponse().Status(http.StatusCreated).JSON(createdJSON{ID: itemID}).Write(w)
}

func (s *Server) handleUpdateWithholding(w http.ResponseWriter, r *http.Request) {
	id := projectID(r)
	itemID, err := pathID(r, "itemID")
	if err != nil {
		BadRequestError("invalid item id").Write(w)
		return
	}

	parser := NewRequestBodyParser(r)
	if err := parser.Parse(); err != nil {
		BadRequestError("malformed request body").Write(w)
		return
	}

	wh, err := parseWithholdingBody(parser)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	wh.ID = itemID

	if err := s.budget.UpdateWithholding(r.Context(), id, wh); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.recordEdit(r.Context(), id, "withholding", itemID, wh.GrossAmount.Won, applog.OpUpdate)
	NewAPIResponse().Status(http.StatusNoContent).Write(w)
}

func (s *Server) handleDeleteWithholding(w http.ResponseWriter, r *http.Request) {
	id := projectID(r)
	itemID, err := pathID(r, "itemID")
	if err != nil {
		BadRequestError("invalid item id").Write(w)
		return
	}

	if err := s.budget.DeleteWithholding(r.Context(), id, itemID); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.recordEdit(r.Context(), id, "withholding", itemID, 0, applog.OpDelete)
	NewAPIResponse().Status(http.StatusNoContent).Write(w)
}

// Card expenses

func parseCardExpenseBody(p *RequestBodyParser) (core.CardExpense, error) {
	used, err := p.GetDate("used_date")
	if err != nil {
		return core.CardExpense{}, err
	}
	return core.CardExpense{
		Description:   p.Get("description"),
		AmountWithVAT: p.GetMoney("amount_with_vat"),
		UsedDate:      used,
	}, nil
}

func (s *Server) handleAddCardExpense(w http.ResponseWriter, r *http.Request) {
	id := projectID(r)
	parser := NewRequestBodyParser(r)
	if err := parser.Parse(); err != nil {
		BadRequestError("malformed request body").Write(w)
		return
	}

	ce, err := parseCardExpenseBody(parser)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	itemID, err := s.budget.AddCardExpense(r.Context(), id, ce)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.recordEdit(r.Context(), id, "card_expense", itemID, ce.AmountWithVAT.Won, applog.OpCreate)
	NewAPIResponse().Status(http.StatusCreated).JSON(createdJSON{ID: itemID}).Write(w)
}

func (s *Server) handleUpdateCardExpense(w http.ResponseWriter, r *http.Request) {
	id := projectID(r)
	itemID, err := pathID(r, "itemID")
	if err != nil {
		BadRequestError("invalid item id").Write(w)
		return
	}

	parser := NewRequestBodyParser(r)
	if err := parser.Parse(); err != nil {
		BadRequestError("malformed request body").Write(w)
		return
	}

	ce, err := parseCardExpenseBody(parser)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	ce.ID = itemID

	if err := s.budget.UpdateCardExpense(r.Context(), id, ce); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.recordEdit(r.Context(), id, "card_expense", itemID, ce.AmountWithVAT.Won, applog.OpUpdate)
	NewAPIResponse().Status(http.StatusNoContent).Write(w)
}

func (s *Server) handleDeleteCardExpense(w http.ResponseWriter, r *http.Request) {
	id := projectID(r)
	itemID, err := pathID(r, "itemID")
	if err != nil {
		BadRequestError("invalid item id").Write(w)
		return
	}

	if err := s.budget.DeleteCardExpense(r.Context(), id, itemID); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.recordEdit(r.Context(), id, "card_expense", itemID, 0, applog.OpDelete)
	NewAPIResponse().Status(http.StatusNoContent).Write(w)
}

// Cash expenses

func parseCashExpenseBody(p *RequestBodyParser) (core.CashExpense, error) {
	used, err := p.GetDate("used_date")
	if err != nil {
		return core.CashExpense{}, err
	}
	return core.CashExpense{
		Description:   p.Get("description"),
		AmountWithVAT: p.GetMoney("amount_with_vat"),
		UsedDate:      used,
	}, nil
}

func (s *Server) handleAddCashExpense(w http.ResponseWriter, r *http.Request) {
	id := projectID(r)
	parser := NewRequestBodyParser(r)
	if err := parser.Parse(); err != nil {
		BadRequestError("malformed request body").Write(w)
		return
	}

	ce, err := parseCashExpenseBody(parser)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	itemID, err := s.budget.AddCashExpense(r.Context(), id, ce)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.recordEdit(r.Context(), id, "cash_expense", itemID, ce.AmountWithVAT.Won, applog.OpCreate)
	NewAPIResponse().Status(http.StatusCreated).JSON(createdJSON{ID: itemID}).Write(w)
}

func (s *Server) handleUpdateCashExpense(w http.ResponseWriter, r *http.Request) {
	id := projectID(r)
	itemID, err := pathID(r, "itemID")
	if err != nil {
		BadRequestError("invalid item id").Write(w)
		return
	}

	parser := NewRequestBodyParser(r)
	if err := parser.Parse(); err != nil {
		BadRequestError("malformed request body").Write(w)
		return
	}

	ce, err := parseCashExpenseBody(parser)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	ce.ID = itemID

	if err := s.budget.UpdateCashExpense(r.Context(), id, ce); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.recordEdit(r.Context(), id, "cash_expense", itemID, ce.AmountWithVAT.Won, applog.OpUpdate)
	NewAPIResponse().Status(http.StatusNoContent).Write(w)
}

func (s *Server) handleDeleteCashExpense(w http.ResponseWriter, r *http.Request) {
	id := projectID(r)
	itemID, err := pathID(r, "itemID")
	if err != nil {
		BadRequestError("invalid item id").Write(w)
		return
	}

	if err := s.budget.DeleteCashExpense(r.Context(), id, itemID); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.recordEdit(r.Context(), id, "cash_expense", itemID, 0, applog.OpDelete)
	NewAPIResponse().Status(http.StatusNoContent).Write(w)
}

// Personal expenses

func parsePersonalExpenseBody(p *RequestBodyParser) (core.PersonalExpense, error) {
	used, err := p.GetDate("used_date")
	if err != nil {
		return core.PersonalExpense{}, err
	}
	return core.PersonalExpense{
		Description:   p.Get("description"),
		AmountWithVAT: p.GetMoney("amount_with_vat"),
		UsedDate:      used,
		Status:        parseStatus(p),
	}, nil
}

func (s *Server) handleAddPersonalExpense(w http.ResponseWriter, r *http.Request) {
	id := projectID(r)
	parser := NewRequestBodyParser(r)
	if err := parser.Parse(); err != nil {
		BadRequestError("malformed request body").Write(w)
		return
	}

	pe, err := parsePersonalExpenseBody(parser)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	itemID, err := s.budget.AddPersonalExpense(r.Context(), id, pe)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.recordEdit(r.Context(), id, "personal_expense", itemID, pe.AmountWithVAT.Won, applog.OpCreate)
	NewAPIResponse().Status(http.StatusCreated).JSON(createdJSON{ID: itemID}).Write(w)
}

func (s *Server) handleUpdatePersonalExpense(w http.ResponseWriter, r *http.Request) {
	id := projectID(r)
	itemID, err := pathID(r, "itemID")
	if err != nil {
		BadRequestError("invalid item id").Write(w)
		return
	}

	parser := NewRequestBodyParser(r)
	if err := parser.Parse(); err != nil {
		BadRequestError("malformed request body").Write(w)
		return
	}

	pe, err := parsePersonalExpenseBody(parser)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	pe.ID = itemID

	if err := s.budget.UpdatePersonalExpense(r.Context(), id, pe); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.recordEdit(r.Context(), id, "personal_expense", itemID, pe.AmountWithVAT.Won, applog.OpUpdate)
	NewAPIResponse().Status(http.StatusNoContent).Write(w)
}

func (s *Server) handleDeletePersonalExpense(w http.ResponseWriter, r *http.Request) {
	id := projectID(r)
	itemID, err := pathID(r, "itemID")
	if err != nil {
		BadRequestError("invalid item id").Write(w)
		return
	}

	if err := s.budget.DeletePersonalExpense(r.Context(), id, itemID); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.recordEdit(r.Context(), id, "personal_expense", itemID, 0, applog.OpDelete)
	NewAPIResponse().Status(http.StatusNoContent).Write(w)
}
