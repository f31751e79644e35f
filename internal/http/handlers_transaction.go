package http

import (
	"bytes"
	"net/http"

	"expensetracker/internal/core"
	applog "expensetracker/internal/log"
)

// transactionForm is the add/edit form state. ID is empty when adding.
type transactionForm struct {
	ID          string
	Amount      string
	Category    string
	Date        string
	Description string
	Error       string
	Categories  []core.Category
}

func (s *Server) today() core.Date {
	return core.DateOf(s.now())
}

func (s *Server) newForm() transactionForm {
	return transactionForm{
		Date:       s.today().String(),
		Categories: core.Categories(),
	}
}

func formFor(t core.Transaction) transactionForm {
	return transactionForm{
		ID:          t.ID,
		Amount:      t.Amount.String(),
		Category:    string(t.Category),
		Date:        t.Date.String(),
		Description: t.Description,
		Categories:  core.Categories(),
	}
}

// handleNewForm returns an empty form, used by the cancel button on edit.
func (s *Server) handleNewForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "transaction_form", s.newForm())
}

func (s *Server) handleEditForm(w http.ResponseWriter, r *http.Request) {
	t, err := s.transactions.Get(r.Context(), owner(r), r.PathValue("id"))
	if err != nil {
		s.writeHTMLError(w, r, err, applog.OpRead)
		return
	}
	s.render(w, r, http.StatusOK, "transaction_form", formFor(t))
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	in, form, ok := s.readForm(w, r, "")
	if !ok {
		return
	}
	if _, err := s.transactions.Create(r.Context(), owner(r), in); err != nil {
		s.formFailed(w, r, form, err, applog.OpCreate)
		return
	}
	s.formSaved(w, r, "Transaction added")
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	in, form, ok := s.readForm(w, r, id)
	if !ok {
		return
	}
	if _, err := s.transactions.Update(r.Context(), owner(r), id, in); err != nil {
		s.formFailed(w, r, form, err, applog.OpUpdate)
		return
	}
	s.formSaved(w, r, "Transaction updated")
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	if err := s.transactions.Delete(r.Context(), owner(r), r.PathValue("id")); err != nil {
		s.writeHTMLError(w, r, err, applog.OpDelete)
		return
	}
	NewHTMXResponse().
		TriggerTransactionsChanged().
		TriggerSuccessNotification("Transaction deleted").
		Write(w)
}

// readForm parses the submitted form. On a validation error it re-renders
// the form with the user's values and returns ok=false.
func (s *Server) readForm(w http.ResponseWriter, r *http.Request, id string) (core.TransactionInput, transactionForm, bool) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		BadRequestError("Invalid request format").Write(w)
		return core.TransactionInput{}, transactionForm{}, false
	}

	form := transactionForm{
		ID:          id,
		Amount:      p.Get("amount"),
		Category:    p.Get("category"),
		Date:        p.Get("date"),
		Description: p.Get("description"),
		Categories:  core.Categories(),
	}

	in, err := parseTransactionInput(p, s.today())
	if err != nil {
		// Validation only; nothing is logged for it.
		s.formFailed(w, r, form, err, "")
		return core.TransactionInput{}, transactionForm{}, false
	}
	return in, form, true
}

func (s *Server) formFailed(w http.ResponseWriter, r *http.Request, form transactionForm, err error, op string) {
	status := statusFor(err)
	if status == http.StatusNotFound {
		s.writeHTMLError(w, r, err, op)
		return
	}
	if status == http.StatusInternalServerError {
		s.logError(r, "Save transaction failed", err, applog.ComponentTransaction, op)
	}
	form.Error = userMessage(err)
	s.render(w, r, status, "transaction_form", form)
}

// formSaved swaps in a fresh empty form and tells the page to refresh.
func (s *Server) formSaved(w http.ResponseWriter, r *http.Request, msg string) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, "transaction_form", s.newForm()); err != nil {
		s.logError(r, "Template execution failed", err, applog.ComponentTemplate, applog.OpRender)
	}
	NewHTMXResponse().
		TriggerTransactionsChanged().
		TriggerFormReset().
		TriggerSuccessNotification(msg).
		BodyHTML(buf.String()).
		Write(w)
}

func (s *Server) writeHTMLError(w http.ResponseWriter, r *http.Request, err error, op string) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logError(r, "Transaction request failed", err, applog.ComponentTransaction, op)
	}
	ErrorResponse(status, userMessage(err)).
		TriggerErrorNotification(userMessage(err)).
		Write(w)
}
