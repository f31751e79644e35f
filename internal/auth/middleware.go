package auth

import (
	"context"
	"net/http"
	"strings"
	"time"

	applog "expensetracker/internal/log"
)

// CookieName is the session cookie set on login.
const CookieName = "session"

type ctxKey string

const sessionKey ctxKey = "auth_session"

// WithSession stores s in ctx.
func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, sessionKey, s)
}

// SessionFromContext returns the session placed by Middleware.
func SessionFromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(sessionKey).(Session)
	return s, ok
}

// OwnerFromContext returns the signed-in user's id, or "" when there is none.
func OwnerFromContext(ctx context.Context) string {
	s, _ := SessionFromContext(ctx)
	return s.UserID
}

// EmailFromContext returns the signed-in user's email, or "".
func EmailFromContext(ctx context.Context) string {
	s, _ := SessionFromContext(ctx)
	return s.Email
}

// TokenFromRequest reads a bearer token first, then the session cookie.
func TokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	if c, err := r.Cookie(CookieName); err == nil {
		return c.Value
	}
	return ""
}

// Middleware rejects requests without a valid session. API callers get a
// 401; browsers are sent to the login page (htmx requests via HX-Redirect).
func (s *Service) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := s.Parse(TokenFromRequest(r))
		if err != nil {
			s.reject(w, r)
			return
		}
		ctx := WithSession(r.Context(), sess)
		applog.FromContext(ctx).DebugContext(ctx, "Session accepted", applog.FieldOwnerID, sess.UserID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Service) reject(w http.ResponseWriter, r *http.Request) {
	switch {
	case strings.HasPrefix(r.URL.Path, "/api/"):
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"authentication required"}` + "\n"))
	case r.Header.Get("HX-Request") == "true":
		w.Header().Set("HX-Redirect", "/login")
		w.WriteHeader(http.StatusUnauthorized)
	default:
		http.Redirect(w, r, "/login", http.StatusSeeOther)
	}
}

// SetCookie writes the session cookie for token.
func SetCookie(w http.ResponseWriter, r *http.Request, token string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearCookie expires the session cookie.
func ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
