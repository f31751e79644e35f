package http

import (
	"html/template"
	"net/http"
	"net/url"

	"expensetracker/internal/auth"
	"expensetracker/internal/core"
	applog "expensetracker/internal/log"
)

// dashboardView is the data behind index.html and the dashboard partial.
type dashboardView struct {
	Email      string
	Dashboard  core.Dashboard
	Filter     core.Filter
	Categories []core.Category
	// Query is the encoded filter, reused by chart and export links.
	// It is built by encodeFilter, so it is safe as a URL query.
	Query template.URL
	Form  transactionForm
}

func encodeFilter(f core.Filter) string {
	v := url.Values{}
	if f.StartDate != "" {
		v.Set("startDate", f.StartDate)
	}
	if f.EndDate != "" {
		v.Set("endDate", f.EndDate)
	}
	if f.Category != "" && f.Category != core.AllCategories {
		v.Set("category", f.Category)
	}
	return v.Encode()
}

func (s *Server) loadDashboard(w http.ResponseWriter, r *http.Request) (dashboardView, bool) {
	f, err := ParseFilter(r.URL.Query())
	if err != nil {
		BadRequestError(userMessage(err)).
			TriggerErrorNotification("Invalid filter date").
			Write(w)
		return dashboardView{}, false
	}

	d, err := s.dashboard.Dashboard(r.Context(), owner(r), f)
	if err != nil {
		s.logError(r, "Dashboard load failed", err, applog.ComponentDashboard, applog.OpRead)
		InternalServerError("Error loading your transactions").Write(w)
		return dashboardView{}, false
	}

	return dashboardView{
		Email:      auth.EmailFromContext(r.Context()),
		Dashboard:  d,
		Filter:     f,
		Categories: core.Categories(),
		Query:      template.URL(encodeFilter(f)),
		Form:       s.newForm(),
	}, true
}

// handleIndex renders the full dashboard page.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	view, ok := s.loadDashboard(w, r)
	if !ok {
		return
	}
	s.render(w, r, http.StatusOK, "index.html", view)
}

// handleDashboardPartial re-renders stats, charts and the table after a
// filter change or a write.
func (s *Server) handleDashboardPartial(w http.ResponseWriter, r *http.Request) {
	view, ok := s.loadDashboard(w, r)
	if !ok {
		return
	}
	s.render(w, r, http.StatusOK, "dashboard", view)
}
