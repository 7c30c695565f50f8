package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestAPIResponseBuilder_Basic(t *testing.T) {
	w := httptest.NewRecorder()

	NewAPIResponse().
		Status(http.StatusOK).
		JSON(map[string]string{"status": "ok"}).
		Write(w)

	if w.Code != http.StatusOK {
		t.Errorf("Status code = %d, want %d", w.Code, http.StatusOK)
	}
	if got := w.Header().Get("Content-Type"); !strings.HasPrefix(got, "application/json") {
		t.Errorf("Content-Type = %q, want application/json", got)
	}
	if w.Body.String() != `{"status":"ok"}` {
		t.Errorf("Body = %q", w.Body.String())
	}
}

func TestAPIResponseBuilder_NoBody(t *testing.T) {
	w := httptest.NewRecorder()

	NewAPIResponse().Status(http.StatusNoContent).Write(w)

	if w.Code != http.StatusNoContent {
		t.Errorf("Status code = %d, want %d", w.Code, http.StatusNoContent)
	}
	if w.Body.Len() != 0 {
		t.Errorf("Body = %q, want empty", w.Body.String())
	}
}

func TestAPIResponseBuilder_CustomHeader(t *testing.T) {
	w := httptest.NewRecorder()

	NewAPIResponse().
		Header("X-Custom", "value").
		Status(http.StatusCreated).
		Write(w)

	if w.Header().Get("X-Custom") != "value" {
		t.Errorf("Custom header not set")
	}
	if w.Code != http.StatusCreated {
		t.Errorf("Status code = %d, want %d", w.Code, http.StatusCreated)
	}
}

func TestErrorResponses(t *testing.T) {
	tests := []struct {
		name       string
		builder    *APIResponseBuilder
		wantStatus int
		wantCode   string
	}{
		{
			name:       "bad request",
			builder:    BadRequestError("invalid input"),
			wantStatus: http.StatusBadRequest,
			wantCode:   CodeBadRequest,
		},
		{
			name:       "unprocessable entity",
			builder:    UnprocessableEntityError("validation failed"),
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   CodeValidationFailed,
		},
		{
			name:       "not found",
			builder:    NotFoundError("no such budget"),
			wantStatus: http.StatusNotFound,
			wantCode:   CodeNotFound,
		},
		{
			name:       "internal server error",
			builder:    InternalServerError("something broke"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   CodeInternal,
		},
		{
			name:       "reauthorize",
			builder:    ReauthorizeError("sheet access revoked"),
			wantStatus: http.StatusConflict,
			wantCode:   CodeReauthorize,
		},
		{
			name:       "retry later",
			builder:    RetryLaterError("sheets api flaking"),
			wantStatus: http.StatusBadGateway,
			wantCode:   CodeRetryLater,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.builder.Write(w)

			if w.Code != tt.wantStatus {
				t.Errorf("Status code = %d, want %d", w.Code, tt.wantStatus)
			}
			if !strings.Contains(w.Body.String(), `"code":"`+tt.wantCode+`"`) {
				t.Errorf("Body missing code %q: %s", tt.wantCode, w.Body.String())
			}
		})
	}
}

func TestRetryLaterSetsRetryAfter(t *testing.T) {
	w := httptest.NewRecorder()

	RetryLaterError("upstream down").Write(w)

	if w.Header().Get("Retry-After") == "" {
		t.Error("Retry-After header not set")
	}
}

func TestMethodNotAllowedErrorSetsAllow(t *testing.T) {
	w := httptest.NewRecorder()

	MethodNotAllowedError("GET, POST").Write(w)

	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("Status code = %d, want %d", w.Code, http.StatusMethodNotAllowed)
	}
	if w.Header().Get("Allow") != "GET, POST" {
		t.Errorf("Allow header = %q, want %q", w.Header().Get("Allow"), "GET, POST")
	}
}
