// Package http provides the budget API server and handlers.
//
// This file implements utilities for parsing and validating HTTP
// request data. It reduces code duplication by providing reusable
// functions for body decoding, amount parsing and input sanitization.

package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"prodbudget/internal/core"
)

var errInvalidDate = errors.New("invalid date, expected YYYY-MM-DD")

// maxBodySize caps request bodies; full-record replaces stay well
// under this for any realistic project.
const maxBodySize = 4 << 20

// RequestBodyParser handles different content types for request body
// parsing. It supports JSON and form-encoded data.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]any
	formData    url.Values
	parsed      bool
	err         error
}

// NewRequestBodyParser creates a parser for the given request.
// It reads the body once and stores it for subsequent parsing.
func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{
		contentType: r.Header.Get("Content-Type"),
	}

	p.body, p.err = io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	return p
}

// Parse attempts to parse the body as JSON or form data.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}

	if len(p.body) == 0 {
		p.formData = url.Values{}
		return nil
	}

	// Try JSON first if content looks like JSON
	if p.body[0] == '{' || p.body[0] == '[' {
		p.jsonData = make(map[string]any)
		if err := json.Unmarshal(p.body, &p.jsonData); err != nil {
			p.err = err
			return err
		}
		return nil
	}

	// Fall back to form parsing
	p.formData, p.err = url.ParseQuery(string(p.body))
	return p.err
}

// Get returns a string value from the parsed data (JSON or form).
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return strings.TrimSpace(sanitizeInput(stringValue(val)))
		}
	}
	if p.formData != nil {
		return strings.TrimSpace(sanitizeInput(p.formData.Get(key)))
	}
	return ""
}

// GetInt64 returns a numeric value, tolerating both JSON numbers and
// numeric strings. Missing or unparseable values return 0.
func (p *RequestBodyParser) GetInt64(key string) int64 {
	v := p.Get(key)
	if v == "" {
		return 0
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		// Spreadsheet-shaped amounts ("1,000,000", "₩500000") come in
		// through the same endpoints; accept them too.
		if won, perr := core.ParseAmountToWon(v); perr == nil {
			return won
		}
		return 0
	}
	return n
}

// GetMoney returns an amount in won.
func (p *RequestBodyParser) GetMoney(key string) core.Money {
	return core.Money{Won: p.GetInt64(key)}
}

// GetFloat returns a float value; missing or unparseable values return 0.
func (p *RequestBodyParser) GetFloat(key string) float64 {
	v := p.Get(key)
	if v == "" {
		return 0
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0
	}
	return f
}

// GetDate parses a YYYY-MM-DD value. An empty value yields the zero
// date, which the domain treats as unset.
func (p *RequestBodyParser) GetDate(key string) (core.Date, error) {
	return parseOptionalDate(p.Get(key))
}

// GetRaw returns the raw body bytes.
func (p *RequestBodyParser) GetRaw() []byte {
	return p.body
}

// ContentType returns the Content-Type header value.
func (p *RequestBodyParser) ContentType() string {
	return p.contentType
}

// IsJSON returns true if the parsed content was JSON.
func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

// stringValue converts an any to string.
func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// parseOptionalDate parses YYYY-MM-DD; empty input is the zero date.
func parseOptionalDate(s string) (core.Date, error) {
	if strings.TrimSpace(s) == "" {
		return core.Date{}, nil
	}
	t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return core.Date{}, errInvalidDate
	}
	return core.NewDate(t.Year(), int(t.Month()), t.Day()), nil
}

// sanitizeInput removes potentially dangerous characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	result := strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
	return result
}

// pathID parses the numeric entity ID segment of a route.
func pathID(r *http.Request, name string) (int64, error) {
	raw := r.PathValue(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("invalid id")
	}
	return id, nil
}

// projectID returns the sanitized project ID route segment.
func projectID(r *http.Request) string {
	return sanitizeInput(r.PathValue("id"))
}
