package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"expensetracker/internal/auth"
	"expensetracker/internal/core"
)

// sanitizeInput removes control characters (except tab and newlines) and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// categorySlug turns "Food & Dining" into "food-dining" for CSS classes.
func categorySlug(c core.Category) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(string(c)) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

func isAPI(r *http.Request) bool {
	return strings.HasPrefix(r.URL.Path, "/api/")
}

func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

func owner(r *http.Request) string {
	return auth.OwnerFromContext(r.Context())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type apiError struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, apiError{Error: msg})
}

// statusFor maps a service error to an HTTP status.
func statusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case core.IsValidation(err):
		return http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// userMessage is the text shown to the user for err. Internal failures get
// a generic message; details stay in the logs.
func userMessage(err error) string {
	var ve *core.ValidationError
	if errors.As(err, &ve) {
		return fieldMessage(ve)
	}
	if errors.Is(err, core.ErrNotFound) {
		return "Transaction not found"
	}
	return "Something went wrong. Please try again."
}

func fieldMessage(ve *core.ValidationError) string {
	switch {
	case errors.Is(ve.Err, core.ErrAmountTooLarge):
		return "Amount must be at most 999,999,999,999.99"
	case errors.Is(ve.Err, core.ErrInvalidAmount):
		return "Amount must be greater than 0"
	case errors.Is(ve.Err, core.ErrEmptyDescription):
		return "Description is required"
	case errors.Is(ve.Err, core.ErrDescriptionLength):
		return "Description is too long"
	case errors.Is(ve.Err, core.ErrInvalidCategory):
		return "Please choose a category"
	case errors.Is(ve.Err, core.ErrInvalidDate):
		return "Please enter a valid date"
	case errors.Is(ve.Err, core.ErrInvalidEmail):
		return "Please enter a valid email address"
	case errors.Is(ve.Err, core.ErrPasswordTooShort):
		return "Password must be at least 6 characters"
	case errors.Is(ve.Err, core.ErrPasswordTooLong):
		return "Password must be at most 72 characters"
	case errors.Is(ve.Err, core.ErrPasswordMismatch):
		return "Passwords do not match"
	case errors.Is(ve.Err, core.ErrEmailTaken):
		return "An account with this email already exists"
	default:
		return ve.Error()
	}
}
