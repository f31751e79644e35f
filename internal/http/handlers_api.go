package http

import (
	"errors"
	"net/http"
	"time"

	"expensetracker/internal/core"
	applog "expensetracker/internal/log"
)

// transactionDTO is the JSON shape of a transaction. Amount is a number
// with two decimals.
type transactionDTO struct {
	ID          string     `json:"id"`
	Amount      core.Money `json:"amount"`
	Category    string     `json:"category"`
	Date        core.Date  `json:"date"`
	Description string     `json:"description"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	Version     int64      `json:"version"`
}

func toDTO(t core.Transaction) transactionDTO {
	return transactionDTO{
		ID:          t.ID,
		Amount:      t.Amount,
		Category:    string(t.Category),
		Date:        t.Date,
		Description: t.Description,
		CreatedAt:   t.CreatedAt.UTC(),
		UpdatedAt:   t.UpdatedAt.UTC(),
		Version:     t.Version,
	}
}

func toDTOs(txs []core.Transaction) []transactionDTO {
	out := make([]transactionDTO, 0, len(txs))
	for _, t := range txs {
		out = append(out, toDTO(t))
	}
	return out
}

func (s *Server) apiError(w http.ResponseWriter, r *http.Request, err error, op string) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logError(r, "API request failed", err, applog.ComponentTransaction, op)
	}
	body := apiError{Error: userMessage(err)}
	var ve *core.ValidationError
	if errors.As(err, &ve) {
		body.Field = ve.Field
	}
	writeJSON(w, status, body)
}

func (s *Server) handleAPIList(w http.ResponseWriter, r *http.Request) {
	f, err := ParseFilter(r.URL.Query())
	if err != nil {
		writeJSON(w, http.StatusBadRequest, apiError{Error: userMessage(err)})
		return
	}
	txs, err := s.transactions.List(r.Context(), owner(r), f)
	if err != nil {
		s.apiError(w, r, err, applog.OpList)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"transactions": toDTOs(txs), "count": len(txs)})
}

func (s *Server) handleAPIGet(w http.ResponseWriter, r *http.Request) {
	t, err := s.transactions.Get(r.Context(), owner(r), r.PathValue("id"))
	if err != nil {
		s.apiError(w, r, err, applog.OpRead)
		return
	}
	writeJSON(w, http.StatusOK, toDTO(t))
}

func (s *Server) handleAPICreate(w http.ResponseWriter, r *http.Request) {
	in, ok := s.readAPIInput(w, r)
	if !ok {
		return
	}
	t, err := s.transactions.Create(r.Context(), owner(r), in)
	if err != nil {
		s.apiError(w, r, err, applog.OpCreate)
		return
	}
	w.Header().Set("Location", "/api/transactions/"+t.ID)
	writeJSON(w, http.StatusCreated, toDTO(t))
}

func (s *Server) handleAPIUpdate(w http.ResponseWriter, r *http.Request) {
	in, ok := s.readAPIInput(w, r)
	if !ok {
		return
	}
	t, err := s.transactions.Update(r.Context(), owner(r), r.PathValue("id"), in)
	if err != nil {
		s.apiError(w, r, err, applog.OpUpdate)
		return
	}
	writeJSON(w, http.StatusOK, toDTO(t))
}

func (s *Server) handleAPIDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.transactions.Delete(r.Context(), owner(r), r.PathValue("id")); err != nil {
		s.apiError(w, r, err, applog.OpDelete)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) readAPIInput(w http.ResponseWriter, r *http.Request) (core.TransactionInput, bool) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return core.TransactionInput{}, false
	}
	in, err := parseTransactionInput(p, s.today())
	if err != nil {
		s.apiError(w, r, err, "")
		return core.TransactionInput{}, false
	}
	return in, true
}

// handleAPIDashboard feeds the charts. The transaction rows are left out.
func (s *Server) handleAPIDashboard(w http.ResponseWriter, r *http.Request) {
	f, err := ParseFilter(r.URL.Query())
	if err != nil {
		writeJSON(w, http.StatusBadRequest, apiError{Error: userMessage(err)})
		return
	}
	d, err := s.dashboard.Dashboard(r.Context(), owner(r), f)
	if err != nil {
		s.apiError(w, r, err, applog.OpRead)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleAPICategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"categories": core.Categories()})
}
