package auth

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"expensetracker/internal/core"
	applog "expensetracker/internal/log"
	"expensetracker/internal/store/memory"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newTestService(t *testing.T) *Service {
	t.Helper()
	logger := applog.New(applog.Config{Handler: slog.NewTextHandler(&bytes.Buffer{}, nil)})
	return NewService(memory.New(), testSecret, time.Hour, logger).WithCost(bcrypt.MinCost)
}

func TestRegister(t *testing.T) {
	tests := []struct {
		name     string
		email    string
		password string
		confirm  string
		wantErr  error
	}{
		{name: "valid", email: "  Alice@Example.com ", password: "secret1", confirm: "secret1"},
		{name: "bad email", email: "not-an-email", password: "secret1", confirm: "secret1", wantErr: core.ErrInvalidEmail},
		{name: "short password", email: "b@example.com", password: "12345", confirm: "12345", wantErr: core.ErrPasswordTooShort},
		{name: "long password", email: "d@example.com", password: strings.Repeat("a", 80), confirm: strings.Repeat("a", 80), wantErr: core.ErrPasswordTooLong},
		{name: "mismatch", email: "c@example.com", password: "secret1", confirm: "secret2", wantErr: core.ErrPasswordMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(t)
			u, err := svc.Register(context.Background(), tt.email, tt.password, tt.confirm)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.True(t, core.IsValidation(err))
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "alice@example.com", u.Email)
			assert.NotEmpty(t, u.ID)
			assert.NotEqual(t, []byte(tt.password), u.PasswordHash)
		})
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	_, err := svc.Register(ctx, "dup@example.com", "secret1", "secret1")
	require.NoError(t, err)

	_, err = svc.Register(ctx, "DUP@example.com", "secret2", "secret2")
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrEmailTaken)
	assert.True(t, core.IsValidation(err))
}

func TestRegisterAcceptsMaxLengthPassword(t *testing.T) {
	svc := newTestService(t)
	pw := strings.Repeat("p", core.MaxPasswordLength)
	_, err := svc.Register(context.Background(), "long@example.com", pw, pw)
	require.NoError(t, err)

	_, err = svc.Login(context.Background(), "long@example.com", pw)
	require.NoError(t, err)
}

func TestLogin(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	registered, err := svc.Register(ctx, "bob@example.com", "hunter22", "hunter22")
	require.NoError(t, err)

	u, err := svc.Login(ctx, "Bob@Example.com", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, registered.ID, u.ID)

	_, err = svc.Login(ctx, "bob@example.com", "wrong-pass")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(ctx, "nobody@example.com", "hunter22")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(ctx, "garbage", "hunter22")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestIssueAndParse(t *testing.T) {
	svc := newTestService(t)
	u := core.User{ID: "6f1c2a9e-8a53-4b8e-9d1b-3c1f7a0e2b44", Email: "eve@example.com"}

	token, exp, err := svc.Issue(u)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, time.Minute)

	sess, err := svc.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, sess.UserID)
	assert.Equal(t, u.Email, sess.Email)
}

func TestParseRejects(t *testing.T) {
	svc := newTestService(t)
	u := core.User{ID: "6f1c2a9e-8a53-4b8e-9d1b-3c1f7a0e2b44", Email: "eve@example.com"}
	valid, _, err := svc.Issue(u)
	require.NoError(t, err)

	other := NewService(memory.New(), "another-secret-another-secret-xx", time.Hour, nil)
	foreign, _, err := other.Issue(u)
	require.NoError(t, err)

	expired, _, err := newTestService(t).
		WithClock(func() time.Time { return time.Now().Add(-2 * time.Hour) }).
		Issue(u)
	require.NoError(t, err)

	badSubject, _, err := svc.Issue(core.User{ID: "not-a-uuid", Email: "x@example.com"})
	require.NoError(t, err)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": u.ID, "exp": time.Now().Add(time.Hour).Unix()})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := map[string]string{
		"empty":       "",
		"garbage":     "abc.def.ghi",
		"foreign key": foreign,
		"expired":     expired,
		"bad subject": badSubject,
		"alg none":    unsigned,
		"tampered":    valid[:len(valid)-2] + "xx",
	}
	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Parse(token)
			assert.True(t, errors.Is(err, ErrInvalidToken), "got %v", err)
		})
	}
}

func TestMiddleware(t *testing.T) {
	svc := newTestService(t)
	u := core.User{ID: "6f1c2a9e-8a53-4b8e-9d1b-3c1f7a0e2b44", Email: "eve@example.com"}
	token, _, err := svc.Issue(u)
	require.NoError(t, err)

	var seenOwner, seenEmail string
	h := svc.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenOwner = OwnerFromContext(r.Context())
		seenEmail = EmailFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name       string
		path       string
		setup      func(r *http.Request)
		wantStatus int
		wantHeader map[string]string
	}{
		{
			name:       "cookie",
			path:       "/",
			setup:      func(r *http.Request) { r.AddCookie(&http.Cookie{Name: CookieName, Value: token}) },
			wantStatus: http.StatusNoContent,
		},
		{
			name:       "bearer",
			path:       "/api/transactions",
			setup:      func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) },
			wantStatus: http.StatusNoContent,
		},
		{
			name:       "browser without session",
			path:       "/",
			setup:      func(*http.Request) {},
			wantStatus: http.StatusSeeOther,
			wantHeader: map[string]string{"Location": "/login"},
		},
		{
			name:       "htmx without session",
			path:       "/transactions",
			setup:      func(r *http.Request) { r.Header.Set("HX-Request", "true") },
			wantStatus: http.StatusUnauthorized,
			wantHeader: map[string]string{"HX-Redirect": "/login"},
		},
		{
			name:       "api without session",
			path:       "/api/transactions",
			setup:      func(r *http.Request) { r.Header.Set("Authorization", "Bearer nope") },
			wantStatus: http.StatusUnauthorized,
			wantHeader: map[string]string{"Content-Type": "application/json"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seenOwner, seenEmail = "", ""
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			tt.setup(req)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			for k, v := range tt.wantHeader {
				assert.Equal(t, v, rec.Header().Get(k))
			}
			if tt.wantStatus == http.StatusNoContent {
				assert.Equal(t, u.ID, seenOwner)
				assert.Equal(t, u.Email, seenEmail)
			} else {
				assert.Empty(t, seenOwner)
			}
		})
	}
}

func TestCookies(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	rec := httptest.NewRecorder()
	SetCookie(rec, req, "tok", time.Now().Add(time.Hour))
	c := rec.Result().Cookies()
	require.Len(t, c, 1)
	assert.Equal(t, "tok", c[0].Value)
	assert.True(t, c[0].HttpOnly)

	rec = httptest.NewRecorder()
	ClearCookie(rec)
	c = rec.Result().Cookies()
	require.Len(t, c, 1)
	assert.Equal(t, -1, c[0].MaxAge)
}
