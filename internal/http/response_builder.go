// Package http provides the budget API server and handlers.
//
// This file implements the Builder Pattern for constructing JSON
// responses. It provides a fluent API for building response bodies,
// status codes and sync-recovery signal headers consistently across
// handlers.

package http

import (
	"encoding/json"
	"net/http"
)

// APIResponseBuilder provides a fluent API for building JSON responses.
type APIResponseBuilder struct {
	statusCode int
	payload    any
	headers    map[string]string
}

// NewAPIResponse creates a new response builder with default 200 status.
func NewAPIResponse() *APIResponseBuilder {
	return &APIResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

// Status sets the HTTP status code for the response.
func (b *APIResponseBuilder) Status(code int) *APIResponseBuilder {
	b.statusCode = code
	return b
}

// Header adds a custom header to the response.
func (b *APIResponseBuilder) Header(name, value string) *APIResponseBuilder {
	b.headers[name] = value
	return b
}

// JSON sets the response body to the JSON encoding of v.
func (b *APIResponseBuilder) JSON(v any) *APIResponseBuilder {
	b.payload = v
	return b
}

// errorPayload is the uniform error envelope.
type errorPayload struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes returned in the error envelope. Clients key recovery
// behavior off the code, not the message.
const (
	CodeBadRequest       = "bad_request"
	CodeValidationFailed = "validation_failed"
	CodeNotFound         = "not_found"
	CodeMethodNotAllowed = "method_not_allowed"
	CodeReauthorize      = "reauthorize_required"
	CodeRetryLater       = "retry_later"
	CodeRateLimited      = "rate_limited"
	CodeInternal         = "internal_error"
)

// Write sends the built response to the http.ResponseWriter.
func (b *APIResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}

	if b.payload == nil {
		w.WriteHeader(b.statusCode)
		return
	}

	body, err := json.Marshal(b.payload)
	if err != nil {
		http.Error(w, `{"error":{"code":"internal_error","message":"response encoding failed"}}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.statusCode)
	_, _ = w.Write(body)
}

// ErrorResponse creates a standard error response with the given code.
func ErrorResponse(statusCode int, code, message string) *APIResponseBuilder {
	return NewAPIResponse().
		Status(statusCode).
		JSON(errorPayload{Error: errorDetail{Code: code, Message: message}})
}

// BadRequestError creates a 400 Bad Request error response.
func BadRequestError(message string) *APIResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, CodeBadRequest, message)
}

// UnprocessableEntityError creates a 422 response for validation failures.
func UnprocessableEntityError(message string) *APIResponseBuilder {
	return ErrorResponse(http.StatusUnprocessableEntity, CodeValidationFailed, message)
}

// NotFoundError creates a 404 Not Found error response.
func NotFoundError(message string) *APIResponseBuilder {
	return ErrorResponse(http.StatusNotFound, CodeNotFound, message)
}

// InternalServerError creates a 500 Internal Server Error response.
func InternalServerError(message string) *APIResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, CodeInternal, message)
}

// MethodNotAllowedError creates a 405 Method Not Allowed error response.
func MethodNotAllowedError(allowedMethods string) *APIResponseBuilder {
	return ErrorResponse(http.StatusMethodNotAllowed, CodeMethodNotAllowed, "method not allowed").
		Header("Allow", allowedMethods)
}

// ReauthorizeError creates a 409 response telling the client the sheet
// connection must be re-authorized before sync can proceed.
func ReauthorizeError(message string) *APIResponseBuilder {
	return ErrorResponse(http.StatusConflict, CodeReauthorize, message)
}

// RetryLaterError creates a 502 response for transient upstream
// failures. The operation may be retried as-is.
func RetryLaterError(message string) *APIResponseBuilder {
	return ErrorResponse(http.StatusBadGateway, CodeRetryLater, message).
		Header("Retry-After", "30")
}
