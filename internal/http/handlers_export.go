package http

import (
	"net/http"
	"strconv"

	"expensetracker/internal/auth"
	"expensetracker/internal/export"
	applog "expensetracker/internal/log"
)

// handleExportCSV downloads the filtered list as CSV.
func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	f, err := ParseFilter(r.URL.Query())
	if err != nil {
		http.Error(w, userMessage(err), http.StatusBadRequest)
		return
	}
	txs, err := s.transactions.List(r.Context(), owner(r), f)
	if err != nil {
		s.logError(r, "CSV export failed", err, applog.ComponentExport, applog.OpExport)
		http.Error(w, "Error exporting transactions", http.StatusInternalServerError)
		return
	}

	body := export.EncodeCSV(txs)
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.CSVFilename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	_, _ = w.Write([]byte(body))

	applog.FromContext(r.Context()).InfoContext(r.Context(), "Transactions exported",
		applog.FieldOperation, applog.OpExport,
		applog.FieldOwnerID, owner(r),
		applog.FieldCount, len(txs),
		"format", "csv")
}

// handleExportPDF renders the filtered list and its summary as a PDF statement.
func (s *Server) handleExportPDF(w http.ResponseWriter, r *http.Request) {
	f, err := ParseFilter(r.URL.Query())
	if err != nil {
		http.Error(w, userMessage(err), http.StatusBadRequest)
		return
	}
	st, err := s.dashboard.Statement(r.Context(), owner(r), auth.EmailFromContext(r.Context()), f)
	if err != nil {
		s.logError(r, "PDF export failed", err, applog.ComponentExport, applog.OpExport)
		http.Error(w, "Error exporting transactions", http.StatusInternalServerError)
		return
	}
	pdf, err := export.BuildPDF(st)
	if err != nil {
		s.logError(r, "PDF render failed", err, applog.ComponentExport, applog.OpRender)
		http.Error(w, "Error exporting transactions", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.PDFFilename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(pdf)))
	_, _ = w.Write(pdf)

	applog.FromContext(r.Context()).InfoContext(r.Context(), "Transactions exported",
		applog.FieldOperation, applog.OpExport,
		applog.FieldOwnerID, owner(r),
		applog.FieldCount, len(st.Dashboard.Transactions),
		"format", "pdf")
}
