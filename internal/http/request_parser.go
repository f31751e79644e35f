// This file holds the request parsing shared by the form and JSON handlers.

package http

import (
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"expensetracker/internal/core"
)

// maxBodyBytes caps form and JSON bodies.
const maxBodyBytes = 64 << 10

// ParseFilter reads startDate, endDate and category from query values.
// Dates must be YYYY-MM-DD when present. The category is passed through:
// "" and "all" mean no filter, an unknown label matches nothing.
func ParseFilter(query url.Values) (core.Filter, error) {
	f := core.Filter{
		StartDate: strings.TrimSpace(query.Get("startDate")),
		EndDate:   strings.TrimSpace(query.Get("endDate")),
		Category:  strings.TrimSpace(query.Get("category")),
	}
	if f.StartDate != "" {
		if _, err := core.ParseDate(f.StartDate); err != nil {
			return core.Filter{}, &core.ValidationError{Field: "startDate", Err: err}
		}
	}
	if f.EndDate != "" {
		if _, err := core.ParseDate(f.EndDate); err != nil {
			return core.Filter{}, &core.ValidationError{Field: "endDate", Err: err}
		}
	}
	return f, nil
}

// RequestBodyParser reads a JSON object or a form-encoded body once and
// exposes its fields as strings. htmx posts forms; API clients post JSON.
type RequestBodyParser struct {
	body     []byte
	jsonData map[string]any
	formData url.Values
	parsed   bool
	err      error
}

// NewRequestBodyParser reads up to maxBodyBytes of r's body.
func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{}
	p.body, p.err = io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	return p
}

// Parse decodes the body as JSON when it looks like an object, otherwise as
// a form.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}

	trimmed := strings.TrimSpace(string(p.body))
	if trimmed == "" {
		p.formData = url.Values{}
		return nil
	}

	if trimmed[0] == '{' {
		p.jsonData = make(map[string]any)
		if err := json.Unmarshal([]byte(trimmed), &p.jsonData); err != nil {
			p.jsonData = nil
			p.err = err
			return err
		}
		return nil
	}

	p.formData, p.err = url.ParseQuery(trimmed)
	return p.err
}

// Get returns the sanitised value of key, or "".
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return sanitizeInput(stringValue(val))
		}
		return ""
	}
	if p.formData != nil {
		return sanitizeInput(p.formData.Get(key))
	}
	return ""
}

// IsJSON reports whether the body was a JSON object.
func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

// stringValue renders JSON scalars as text so numeric and string amounts
// go through the same parser.
func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case json.Number:
		return val.String()
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// parseTransactionInput builds and validates a TransactionInput. A blank
// date means today.
func parseTransactionInput(p *RequestBodyParser, today core.Date) (core.TransactionInput, error) {
	amount, err := core.ParseAmount(p.Get("amount"))
	if err != nil {
		return core.TransactionInput{}, err
	}

	category, err := core.ParseCategory(p.Get("category"))
	if err != nil {
		return core.TransactionInput{}, &core.ValidationError{Field: "category", Err: err}
	}

	date := today
	if v := p.Get("date"); v != "" {
		date, err = core.ParseDate(v)
		if err != nil {
			return core.TransactionInput{}, &core.ValidationError{Field: "date", Err: err}
		}
	}

	in := core.TransactionInput{
		Amount:      amount,
		Category:    category,
		Date:        date,
		Description: p.Get("description"),
	}
	if err := in.Validate(); err != nil {
		return core.TransactionInput{}, err
	}
	return in, nil
}
