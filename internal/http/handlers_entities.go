package http

import (
	"net/http"

	"prodbudget/internal/core"
	applog "prodbudget/internal/log"
)

type createdJSON struct {
	ID int64 `json:"id"`
}

// Line items

func parseLineItemBody(p *RequestBodyParser) (core.LineItem, error) {
	li := core.LineItem{
		Category:             core.Category(p.Get("category")),
		MainCategory:         p.Get("main_category"),
		SubCategory:          p.Get("sub_category"),
		UnitPrice:            p.GetMoney("unit_price"),
		Quantity:             p.GetInt64("quantity"),
		VATRate:              p.GetFloat("vat_rate"),
		PaymentMethod:        p.Get("payment_method"),
		ActualExpenseWithVAT: p.GetMoney("actual_expense_with_vat"),
	}
	if li.Quantity == 0 {
		li.Quantity = 1
	}
	return li, nil
}

func (s *Server) handleAddLineItem(w http.ResponseWriter, r *http.Request) {
	id := projectID(r)
	parser := NewRequestBodyParser(r)
	if err := parser.Parse(); err != nil {
		BadRequestError("malformed request body").Write(w)
		return
	}

	li, err := parseLineItemBody(parser)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	itemID, err := s.budget.AddLineItem(r.Context(), id, li)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.recordEdit(r.Context(), id, "line_item", itemID, li.UnitPrice.Won, applog.OpCreate)
	NewAPIResponse().Status(http.StatusCreated).JSON(createdJSON{ID: itemID}).Write(w)
}

func (s *Server) handleUpdateLineItem(w http.ResponseWriter, r *http.Request) {
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

	li, err := parseLineItemBody(parser)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	li.ID = itemID

	if err := s.budget.UpdateLineItem(r.Context(), id, li); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.recordEdit(r.Context(), id, "line_item", itemID, li.UnitPrice.Won, applog.OpUpdate)
	NewAPIResponse().Status(http.StatusNoContent).Write(w)
}

func (s *Server) handleDeleteLineItem(w http.ResponseWriter, r *http.Request) {
	id := projectID(r)
	itemID, err := pathID(r, "itemID")
	if err != nil {
		BadRequestError("invalid item id").Write(w)
		return
	}

	if err := s.budget.DeleteLineItem(r.Context(), id, itemID); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.recordEdit(r.Context(), id, "line_item", itemID, 0, applog.OpDelete)
	NewAPIResponse().Status(http.StatusNoContent).Write(w)
}

// Payment schedules

func parsePaymentScheduleBody(p *RequestBodyParser) (core.PaymentSchedule, error) {
	expected, err := p.GetDate("expected_date")
	if err != nil {
		return core.PaymentSchedule{}, err
	}
	return core.PaymentSchedule{
		Label:          p.Get("label"),
		ExpectedAmount: p.GetMoney("expected_amount"),
		ExpectedDate:   expected,
		ActualAmount:   p.GetMoney("actual_amount"),
	}, nil
}

func (s *Server) handleAddPaymentSchedule(w http.ResponseWriter, r *http.Request) {
	id := projectID(r)
	parser := NewRequestBodyParser(r)
	if err := parser.Parse(); err != nil {
		BadRequestError("malformed request body").Write(w)
		return
	}

	ps, err := parsePaymentScheduleBody(parser)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	itemID, err := s.budget.AddPaymentSchedule(r.Context(), id, ps)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.recordEdit(r.Context(), id, "payment_schedule", itemID, ps.ExpectedAmount.Won, applog.OpCreate)
	NewAPIResponse().Status(http.StatusCreated).JSON(createdJSON{ID: itemID}).Write(w)
}

func (s *Server) handleUpdatePaymentSchedule(w http.ResponseWriter, r *http.Request) {
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

	ps, err := parsePaymentScheduleBody(parser)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	ps.ID = itemID

	if err := s.budget.UpdatePaymentSchedule(r.Context(), id, ps); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.recordEdit(r.Context(), id, "payment_schedule", itemID, ps.ExpectedAmount.Won, applog.OpUpdate)
	NewAPIResponse().Status(http.StatusNoContent).Write(w)
}

func (s *Server) handleDeletePaymentSchedule(w http.ResponseWriter, r *http.Request) {
	id := projectID(r)
	itemID, err := pathID(r, "itemID")
	if err != nil {
		BadRequestError("invalid item id").Write(w)
		return
	}

	if err := s.budget.DeletePaymentSchedule(r.Context(), id, itemID); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.recordEdit(r.Context(), id, "payment_schedule", itemID, 0, applog.OpDelete)
	NewAPIResponse().Status(http.StatusNoContent).Write(w)
}
