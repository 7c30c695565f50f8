package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"prodbudget/internal/core"
	applog "prodbudget/internal/log"
	"prodbudget/internal/sheets"
	"prodbudget/internal/storage"
)

// validationErrors are the domain sentinels that map to 422. Anything
// else from the service layer is routed by writeServiceError.
var validationErrors = []error{
	core.ErrInvalidAmount,
	core.ErrNegativeAmount,
	core.ErrInvalidQuantity,
	core.ErrInvalidVATRate,
	core.ErrEmptyProjectID,
	core.ErrEmptyMainCategory,
	core.ErrEmptyDescription,
	core.ErrEmptyCounterparty,
	core.ErrEmptyPayee,
	core.ErrEmptyLabel,
	core.ErrInvalidCategory,
	core.ErrInvalidStatus,
	core.ErrProjectIDTooLong,
	core.ErrDescriptionTooLong,
	errInvalidDate,
}

func isValidationError(err error) bool {
	for _, v := range validationErrors {
		if errors.Is(err, v) {
			return true
		}
	}
	return false
}

// writeServiceError maps a service-layer error onto the wire. Sync
// failures carry a recovery signal: auth problems need the operator to
// re-authorize the sheet connection, transient problems can simply be
// retried.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		NotFoundError("resource not found").Write(w)
	case sheets.IsAuthRequired(err):
		ReauthorizeError("spreadsheet access denied, re-authorize the connection").Write(w)
	case sheets.IsTransient(err):
		RetryLaterError("spreadsheet temporarily unavailable, retry later").Write(w)
	case isValidationError(err):
		UnprocessableEntityError(err.Error()).Write(w)
	default:
		fields := applog.NewFields().WithProject(projectID(r))
		fields[applog.FieldPath] = r.URL.Path
		s.structured.LogError(r.Context(), "Request failed", err, applog.ComponentHTTP, r.Method, fields)
		InternalServerError("internal error").Write(w)
	}
}

func (s *Server) handleGetBudget(w http.ResponseWriter, r *http.Request) {
	id := projectID(r)
	if id == "" {
		BadRequestError("missing project id").Write(w)
		return
	}

	view, err := s.cachedView(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	NewAPIResponse().JSON(view).Write(w)
}

func (s *Server) handleReplaceBudget(w http.ResponseWriter, r *http.Request) {
	id := projectID(r)
	if id == "" {
		BadRequestError("missing project id").Write(w)
		return
	}

	parser := NewRequestBodyParser(r)
	if err := parser.Parse(); err != nil {
		BadRequestError("malformed request body").Write(w)
		return
	}

	var payload recordPayload
	if err := json.Unmarshal(parser.GetRaw(), &payload); err != nil {
		BadRequestError("malformed budget record").Write(w)
		return
	}

	rec, err := recordFromPayload(id, payload)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	if err := s.budget.ReplaceBudget(r.Context(), rec); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.invalidateView(id)

	view, err := s.cachedView(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	NewAPIResponse().JSON(view).Write(w)
}

func (s *Server) handleUpdateSummary(w http.ResponseWriter, r *http.Request) {
	id := projectID(r)
	if id == "" {
		BadRequestError("missing project id").Write(w)
		return
	}

	parser := NewRequestBodyParser(r)
	if err := parser.Parse(); err != nil {
		BadRequestError("malformed request body").Write(w)
		return
	}

	var payload summaryJSON
	if err := json.Unmarshal(parser.GetRaw(), &payload); err != nil {
		BadRequestError("malformed summary").Write(w)
		return
	}

	if err := s.budget.UpdateSummary(r.Context(), id, summaryFromJSON(payload)); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.invalidateView(id)
	NewAPIResponse().Status(http.StatusNoContent).Write(w)
}

func (s *Server) handleLinkSpreadsheet(w http.ResponseWriter, r *http.Request) {
	id := projectID(r)
	if id == "" {
		BadRequestError("missing project id").Write(w)
		return
	}

	parser := NewRequestBodyParser(r)
	if err := parser.Parse(); err != nil {
		BadRequestError("malformed request body").Write(w)
		return
	}

	spreadsheetID := parser.Get("spreadsheet_id")
	if spreadsheetID == "" {
		UnprocessableEntityError("spreadsheet_id is required").Write(w)
		return
	}

	if err := s.budget.LinkSpreadsheet(r.Context(), id, spreadsheetID); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	applog.FromContext(r.Context()).InfoContext(r.Context(), "Spreadsheet linked",
		applog.FieldProjectID, id,
		applog.FieldSpreadsheetID, spreadsheetID)
	NewAPIResponse().Status(http.StatusNoContent).Write(w)
}

type syncAcceptedJSON struct {
	TaskID    int64  `json:"task_id"`
	ProjectID string `json:"project_id"`
	Operation string `json:"operation"`
}

// handleRequestSync queues a pull or push; the background processor
// picks it up. The response is 202: sync is asynchronous on purpose,
// spreadsheet round trips are far too slow to hold a request open.
func (s *Server) handleRequestSync(w http.ResponseWriter, r *http.Request) {
	id := projectID(r)
	if id == "" {
		BadRequestError("missing project id").Write(w)
		return
	}

	op := r.PathValue("op")
	if op != "pull" && op != "push" {
		BadRequestError("unknown sync operation, expected pull or push").Write(w)
		return
	}

	taskID, err := s.budget.RequestSync(r.Context(), id, op)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	// A pull will replace the record shortly; drop the stale view now.
	if op == "pull" {
		s.invalidateView(id)
	}

	applog.FromContext(r.Context()).InfoContext(r.Context(), "Sync requested",
		applog.FieldProjectID, id,
		applog.FieldTaskID, taskID,
		applog.FieldOperation, op)
	NewAPIResponse().
		Status(http.StatusAccepted).
		JSON(syncAcceptedJSON{TaskID: taskID, ProjectID: id, Operation: op}).
		Write(w)
}
