package http

import (
	"bytes"
	"errors"
	"net/http"

	"expensetracker/internal/auth"
	"expensetracker/internal/core"
	applog "expensetracker/internal/log"
)

type authPage struct {
	Email string
	Error string
}

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	if _, err := s.auth.Parse(auth.TokenFromRequest(r)); err == nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	s.render(w, r, http.StatusOK, "login.html", authPage{})
}

func (s *Server) handleRegisterPage(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "register.html", authPage{})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		s.authFailed(w, r, "login.html", "", "Invalid request", http.StatusBadRequest)
		return
	}
	email := p.Get("email")

	u, err := s.auth.Login(r.Context(), email, p.Get("password"))
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			s.authFailed(w, r, "login.html", email, "Invalid email or password", http.StatusUnauthorized)
			return
		}
		s.logError(r, "Login failed", err, applog.ComponentAuth, applog.OpLogin)
		s.authFailed(w, r, "login.html", email, userMessage(err), http.StatusInternalServerError)
		return
	}
	s.startSession(w, r, u)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		s.authFailed(w, r, "register.html", "", "Invalid request", http.StatusBadRequest)
		return
	}
	email := p.Get("email")

	u, err := s.auth.Register(r.Context(), email, p.Get("password"), p.Get("confirm_password"))
	if err != nil {
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			s.logError(r, "Registration failed", err, applog.ComponentAuth, applog.OpRegister)
		}
		s.authFailed(w, r, "register.html", email, userMessage(err), status)
		return
	}
	s.startSession(w, r, u)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	auth.ClearCookie(w)
	if isHTMX(r) {
		w.Header().Set("HX-Redirect", "/login")
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// startSession issues a token. JSON clients get it in the body; browsers
// get the cookie and are sent to the dashboard.
func (s *Server) startSession(w http.ResponseWriter, r *http.Request, u core.User) {
	token, exp, err := s.auth.Issue(u)
	if err != nil {
		s.logError(r, "Issue session failed", err, applog.ComponentAuth, applog.OpLogin)
		http.Error(w, "could not start session", http.StatusInternalServerError)
		return
	}

	if r.Header.Get("Accept") == "application/json" {
		writeJSON(w, http.StatusOK, map[string]any{
			"token":      token,
			"expires_at": exp.UTC(),
			"user":       map[string]string{"id": u.ID, "email": u.Email},
		})
		return
	}

	auth.SetCookie(w, r, token, exp)
	if isHTMX(r) {
		w.Header().Set("HX-Redirect", "/")
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) authFailed(w http.ResponseWriter, r *http.Request, page, email, msg string, status int) {
	if r.Header.Get("Accept") == "application/json" {
		writeJSONError(w, status, msg)
		return
	}
	s.render(w, r, status, page, authPage{Email: email, Error: msg})
}

// render executes a named template into a buffer so a template error still
// produces a clean 500.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		s.logError(r, "Template execution failed", err, applog.ComponentTemplate, applog.OpRender)
		http.Error(w, "Error rendering page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (s *Server) logError(r *http.Request, msg string, err error, component, op string) {
	ctx := r.Context()
	applog.NewStructuredLogger(applog.FromContext(ctx)).LogError(ctx, msg, err, component, op,
		applog.NewFields().WithOwner(owner(r)).WithHTTPRequest(r.Method, r.URL.Path, "", "", ""))
}
