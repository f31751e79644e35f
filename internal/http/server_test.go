package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"expensetracker/internal/auth"
	"expensetracker/internal/core"
	"expensetracker/internal/export"
	applog "expensetracker/internal/log"
	"expensetracker/internal/services"
	"expensetracker/internal/store/memory"
)

const testSecret = "0123456789abcdef0123456789abcdef"

var fixedNow = time.Date(2024, time.June, 15, 10, 0, 0, 0, time.UTC)

type testApp struct {
	srv   *Server
	store *memory.Store
	auth  *auth.Service
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	clock := func() time.Time { return fixedNow }
	logger := applog.New(applog.Config{
		Level:     slog.LevelError,
		Component: applog.ComponentApp,
		Handler:   slog.NewTextHandler(io.Discard, nil),
	})

	st := memory.New().WithClock(clock)
	authSvc := auth.NewService(st, testSecret, time.Hour, logger).WithCost(bcrypt.MinCost).WithClock(clock)

	srv, err := NewServer(Options{
		Addr:               ":0",
		Transactions:       services.NewTransactionService(st, nil, logger),
		Dashboard:          services.NewDashboardService(st, 3).WithClock(clock),
		Auth:               authSvc,
		Pinger:             st,
		Logger:             logger,
		RateLimitPerMinute: 10000,
		Now:                clock,
	})
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return &testApp{srv: srv, store: st, auth: authSvc}
}

// login registers email and returns a session cookie for it.
func (a *testApp) login(t *testing.T, email string) *http.Cookie {
	t.Helper()
	form := url.Values{"email": {email}, "password": {"secret123"}, "confirm_password": {"secret123"}}
	rr := a.do(t, http.MethodPost, "/register", strings.NewReader(form.Encode()), nil, "application/x-www-form-urlencoded")
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("register status=%d body=%s", rr.Code, rr.Body.String())
	}
	for _, c := range rr.Result().Cookies() {
		if c.Name == auth.CookieName {
			return c
		}
	}
	t.Fatalf("register did not set %q cookie", auth.CookieName)
	return nil
}

func (a *testApp) do(t *testing.T, method, path string, body io.Reader, cookie *http.Cookie, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("User-Agent", "Mozilla/5.0 test")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rr := httptest.NewRecorder()
	a.srv.Handler.ServeHTTP(rr, req)
	return rr
}

func (a *testApp) postForm(t *testing.T, path string, form url.Values, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	return a.do(t, http.MethodPost, path, strings.NewReader(form.Encode()), cookie, "application/x-www-form-urlencoded")
}

func (a *testApp) sendJSON(t *testing.T, method, path string, v any, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return a.do(t, method, path, bytes.NewReader(b), cookie, "application/json")
}

func TestOperationalEndpoints(t *testing.T) {
	app := newTestApp(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		rr := app.do(t, http.MethodGet, path, nil, nil, "")
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d body=%s", path, rr.Code, rr.Body.String())
		}
		if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
			t.Errorf("%s content type=%q", path, ct)
		}
	}

	rr := app.do(t, http.MethodGet, "/metrics", nil, nil, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("metrics status=%d", rr.Code)
	}
	for _, want := range []string{"http_requests_total", `transactions_changed_total{op="create"} 0`, "rate_limit_hits_total", "uptime_seconds"} {
		if !strings.Contains(rr.Body.String(), want) {
			t.Errorf("metrics missing %q", want)
		}
	}
}

func TestSecurityHeadersApplied(t *testing.T) {
	app := newTestApp(t)
	rr := app.do(t, http.MethodGet, "/login", nil, nil, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("login page status=%d", rr.Code)
	}
	if rr.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Errorf("missing nosniff header")
	}
	if csp := rr.Header().Get("Content-Security-Policy"); !strings.Contains(csp, "https://unpkg.com") {
		t.Errorf("CSP does not allow script CDN: %q", csp)
	}
}

func TestStaticAssets(t *testing.T) {
	app := newTestApp(t)
	for _, path := range []string{"/static/app.css", "/static/app.js"} {
		rr := app.do(t, http.MethodGet, path, nil, nil, "")
		if rr.Code != http.StatusOK {
			t.Errorf("%s status=%d", path, rr.Code)
		}
	}
}

func TestUnauthenticatedAccess(t *testing.T) {
	app := newTestApp(t)

	tests := []struct {
		name     string
		path     string
		htmx     bool
		wantCode int
	}{
		{"page redirects", "/", false, http.StatusSeeOther},
		{"partial gets HX-Redirect", "/ui/dashboard", true, http.StatusUnauthorized},
		{"api gets 401", "/api/transactions", false, http.StatusUnauthorized},
		{"export redirects", "/transactions/export.csv", false, http.StatusSeeOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.htmx {
				req.Header.Set("HX-Request", "true")
			}
			rr := httptest.NewRecorder()
			app.srv.Handler.ServeHTTP(rr, req)
			if rr.Code != tt.wantCode {
				t.Fatalf("status=%d, want %d", rr.Code, tt.wantCode)
			}
		})
	}
}

func TestRegisterLoginLogout(t *testing.T) {
	app := newTestApp(t)
	cookie := app.login(t, "Ann@Example.com")

	rr := app.do(t, http.MethodGet, "/", nil, cookie, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("index status=%d", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, "ann@example.com") {
		t.Errorf("index does not show normalized email")
	}
	if !strings.Contains(body, "No transactions found") {
		t.Errorf("empty account should show the empty state")
	}
	if strings.Contains(body, `id="charts"`) {
		t.Errorf("charts rendered for an empty account")
	}

	// Wrong password re-renders the page with an error.
	rr = app.postForm(t, "/login", url.Values{"email": {"ann@example.com"}, "password": {"nope"}}, nil)
	if rr.Code != http.StatusUnauthorized || !strings.Contains(rr.Body.String(), "Invalid email or password") {
		t.Fatalf("bad login status=%d", rr.Code)
	}

	rr = app.postForm(t, "/login", url.Values{"email": {"ann@example.com"}, "password": {"secret123"}}, nil)
	if rr.Code != http.StatusSeeOther || rr.Header().Get("Location") != "/" {
		t.Fatalf("login status=%d location=%q", rr.Code, rr.Header().Get("Location"))
	}

	// A duplicate registration is a validation error.
	rr = app.postForm(t, "/register", url.Values{"email": {"ann@example.com"}, "password": {"secret123"}, "confirm_password": {"secret123"}}, nil)
	if rr.Code != http.StatusUnprocessableEntity || !strings.Contains(rr.Body.String(), "already exists") {
		t.Fatalf("duplicate register status=%d", rr.Code)
	}

	rr = app.do(t, http.MethodPost, "/logout", nil, cookie, "")
	if rr.Code != http.StatusSeeOther || rr.Header().Get("Location") != "/login" {
		t.Fatalf("logout status=%d", rr.Code)
	}
}

func TestJSONLoginReturnsToken(t *testing.T) {
	app := newTestApp(t)
	app.login(t, "bo@example.com")

	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"email":"bo@example.com","password":"secret123"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	rr := httptest.NewRecorder()
	app.srv.Handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	var resp struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil || resp.Token == "" {
		t.Fatalf("token missing: %v %s", err, rr.Body.String())
	}

	api := httptest.NewRequest(http.MethodGet, "/api/categories", nil)
	api.Header.Set("Authorization", "Bearer "+resp.Token)
	rr = httptest.NewRecorder()
	app.srv.Handler.ServeHTTP(rr, api)
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "Groceries") {
		t.Fatalf("bearer request status=%d body=%s", rr.Code, rr.Body.String())
	}
}

func TestCreateTransactionForm(t *testing.T) {
	app := newTestApp(t)
	cookie := app.login(t, "cy@example.com")

	tests := []struct {
		name     string
		form     url.Values
		wantCode int
		wantBody string
	}{
		{
			name:     "non-numeric amount",
			form:     url.Values{"amount": {"abc"}, "category": {"Travel"}, "description": {"x"}},
			wantCode: http.StatusUnprocessableEntity,
			wantBody: "Amount must be greater than 0",
		},
		{
			name:     "zero amount",
			form:     url.Values{"amount": {"0"}, "category": {"Travel"}, "description": {"x"}},
			wantCode: http.StatusUnprocessableEntity,
			wantBody: "Amount must be greater than 0",
		},
		{
			name:     "missing description",
			form:     url.Values{"amount": {"12.50"}, "category": {"Travel"}, "description": {"  "}},
			wantCode: http.StatusUnprocessableEntity,
			wantBody: "Description is required",
		},
		{
			name:     "success",
			form:     url.Values{"amount": {"12.50"}, "category": {"Travel"}, "description": {"Train"}},
			wantCode: http.StatusOK,
			wantBody: `id="transaction-form"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := app.postForm(t, "/transactions", tt.form, cookie)
			if rr.Code != tt.wantCode {
				t.Fatalf("status=%d, want %d; body=%s", rr.Code, tt.wantCode, rr.Body.String())
			}
			if !strings.Contains(rr.Body.String(), tt.wantBody) {
				t.Errorf("body missing %q", tt.wantBody)
			}
		})
	}

	ownerID := mustOwnerID(t, app, "cy@example.com")
	txs, err := app.store.List(context.Background(), ownerID)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(txs) != 1 {
		t.Fatalf("stored %d transactions, want 1", len(txs))
	}
	if got := txs[0].Date.String(); got != core.DateOf(fixedNow).String() {
		t.Errorf("blank date stored as %s, want today", got)
	}
}

func TestFormSavedTriggersRefresh(t *testing.T) {
	app := newTestApp(t)
	cookie := app.login(t, "di@example.com")

	rr := app.postForm(t, "/transactions", url.Values{"amount": {"5"}, "category": {"Groceries"}, "date": {"2024-06-02"}, "description": {"Milk"}}, cookie)
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	trigger := rr.Header().Get("HX-Trigger")
	for _, want := range []string{"transactions:changed", "form:reset", "show-notification"} {
		if !strings.Contains(trigger, want) {
			t.Errorf("HX-Trigger %q missing %q", trigger, want)
		}
	}

	rr = app.do(t, http.MethodGet, "/ui/dashboard", nil, cookie, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("dashboard status=%d", rr.Code)
	}
	body := rr.Body.String()
	for _, want := range []string{"Milk", "$5.00", `id="charts"`, "cat-groceries"} {
		if !strings.Contains(body, want) {
			t.Errorf("dashboard missing %q", want)
		}
	}
}

func TestEditAndDeleteTransaction(t *testing.T) {
	app := newTestApp(t)
	cookie := app.login(t, "ed@example.com")

	created := createViaAPI(t, app, cookie, map[string]any{"amount": 20, "category": "Shopping", "date": "2024-06-03", "description": "Shoes"})

	rr := app.do(t, http.MethodGet, "/ui/transactions/"+created.ID+"/edit", nil, cookie, "")
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `hx-put="/transactions/`+created.ID+`"`) {
		t.Fatalf("edit form status=%d body=%s", rr.Code, rr.Body.String())
	}

	form := url.Values{"amount": {"25"}, "category": {"Shopping"}, "date": {"2024-06-03"}, "description": {"Boots"}}
	rr = app.do(t, http.MethodPut, "/transactions/"+created.ID, strings.NewReader(form.Encode()), cookie, "application/x-www-form-urlencoded")
	if rr.Code != http.StatusOK {
		t.Fatalf("update status=%d body=%s", rr.Code, rr.Body.String())
	}

	got, err := app.store.Get(context.Background(), mustOwnerID(t, app, "ed@example.com"), created.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Description != "Boots" || got.Amount.Cents != 2500 {
		t.Errorf("updated row = %+v", got)
	}

	rr = app.do(t, http.MethodDelete, "/transactions/"+created.ID, nil, cookie, "")
	if rr.Code != http.StatusOK || !strings.Contains(rr.Header().Get("HX-Trigger"), "transactions:changed") {
		t.Fatalf("delete status=%d trigger=%q", rr.Code, rr.Header().Get("HX-Trigger"))
	}

	rr = app.do(t, http.MethodDelete, "/transactions/"+created.ID, nil, cookie, "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("second delete status=%d", rr.Code)
	}
}

func TestAPICRUDIsOwnerScoped(t *testing.T) {
	app := newTestApp(t)
	alice := app.login(t, "alice@example.com")
	bob := app.login(t, "bob@example.com")

	created := createViaAPI(t, app, alice, map[string]any{"amount": "42.10", "category": "Healthcare", "date": "2024-06-10", "description": "Dentist"})
	if created.Amount != 42.10 || created.Category != "Healthcare" {
		t.Fatalf("created = %+v", created)
	}

	rr := app.do(t, http.MethodGet, "/api/transactions/"+created.ID, nil, bob, "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("other owner get status=%d", rr.Code)
	}
	rr = app.sendJSON(t, http.MethodPut, "/api/transactions/"+created.ID, map[string]any{"amount": 1, "category": "Other", "description": "x"}, bob)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("other owner update status=%d", rr.Code)
	}

	rr = app.sendJSON(t, http.MethodPut, "/api/transactions/"+created.ID, map[string]any{"amount": 50, "category": "Healthcare", "date": "2024-06-10", "description": "Dentist visit"}, alice)
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "Dentist visit") {
		t.Fatalf("update status=%d body=%s", rr.Code, rr.Body.String())
	}

	rr = app.do(t, http.MethodGet, "/api/transactions?category=Healthcare", nil, alice, "")
	var list struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &list); err != nil || list.Count != 1 {
		t.Fatalf("list count=%d err=%v", list.Count, err)
	}

	rr = app.do(t, http.MethodGet, "/api/transactions", nil, bob, "")
	if err := json.Unmarshal(rr.Body.Bytes(), &list); err != nil || list.Count != 0 {
		t.Fatalf("bob sees %d transactions", list.Count)
	}

	rr = app.do(t, http.MethodDelete, "/api/transactions/"+created.ID, nil, alice, "")
	if rr.Code != http.StatusNoContent {
		t.Fatalf("delete status=%d", rr.Code)
	}
}

func TestAPIValidationError(t *testing.T) {
	app := newTestApp(t)
	cookie := app.login(t, "val@example.com")

	rr := app.sendJSON(t, http.MethodPost, "/api/transactions", map[string]any{"amount": -3, "category": "Travel", "description": "x"}, cookie)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status=%d", rr.Code)
	}
	var resp apiError
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Field != "amount" {
		t.Errorf("field=%q, want amount", resp.Field)
	}

	rr = app.sendJSON(t, http.MethodPost, "/api/transactions", map[string]any{"amount": 3, "category": "Pets", "description": "x"}, cookie)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("unknown category status=%d", rr.Code)
	}

	rr = app.sendJSON(t, http.MethodPost, "/api/transactions", map[string]any{"amount": 5e16, "category": "Travel", "description": "x"}, cookie)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("huge amount status=%d", rr.Code)
	}
	resp = apiError{}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Field != "amount" || !strings.Contains(resp.Error, "at most") {
		t.Errorf("huge amount error=%+v", resp)
	}
}

func TestRegisterRejectsOverlongPassword(t *testing.T) {
	app := newTestApp(t)
	pw := strings.Repeat("a", 80)
	rr := app.postForm(t, "/register", url.Values{"email": {"long@example.com"}, "password": {pw}, "confirm_password": {pw}}, nil)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status=%d, want 422", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "at most 72") {
		t.Errorf("expected the length message in the form, got %s", rr.Body.String())
	}
}

func TestAPIDashboard(t *testing.T) {
	app := newTestApp(t)
	cookie := app.login(t, "dash@example.com")
	createViaAPI(t, app, cookie, map[string]any{"amount": 10, "category": "Travel", "date": "2024-06-01", "description": "Bus"})
	createViaAPI(t, app, cookie, map[string]any{"amount": 30, "category": "Groceries", "date": "2024-06-14", "description": "Market"})
	createViaAPI(t, app, cookie, map[string]any{"amount": 5, "category": "Travel", "date": "2024-05-20", "description": "Tram"})

	rr := app.do(t, http.MethodGet, "/api/dashboard", nil, cookie, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	var d struct {
		Summary struct {
			Total      float64 `json:"total"`
			MonthTotal float64 `json:"month_total"`
			Count      int     `json:"count"`
		} `json:"summary"`
		Daily  []json.RawMessage `json:"daily"`
		HasAny bool              `json:"has_any"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &d); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if d.Summary.Total != 45 || d.Summary.MonthTotal != 40 || d.Summary.Count != 3 || !d.HasAny {
		t.Errorf("summary = %+v has_any=%v", d.Summary, d.HasAny)
	}
	if len(d.Daily) != 30 {
		t.Errorf("daily points = %d, want 30 for June", len(d.Daily))
	}
}

func TestBadFilterIsRejected(t *testing.T) {
	app := newTestApp(t)
	cookie := app.login(t, "filter@example.com")

	for _, path := range []string{"/ui/dashboard?startDate=yesterday", "/api/transactions?endDate=2024-13-01", "/transactions/export.csv?startDate=x"} {
		rr := app.do(t, http.MethodGet, path, nil, cookie, "")
		if rr.Code != http.StatusBadRequest {
			t.Errorf("%s status=%d, want 400", path, rr.Code)
		}
	}
}

func TestExportCSV(t *testing.T) {
	app := newTestApp(t)
	cookie := app.login(t, "csv@example.com")
	createViaAPI(t, app, cookie, map[string]any{"amount": 12.5, "category": "Food & Dining", "date": "2024-06-01", "description": `Lunch "deluxe"`})
	createViaAPI(t, app, cookie, map[string]any{"amount": 3, "category": "Other", "date": "2024-06-02", "description": "Tip"})

	rr := app.do(t, http.MethodGet, "/transactions/export.csv?category="+url.QueryEscape("Food & Dining"), nil, cookie, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("content type=%q", ct)
	}
	if cd := rr.Header().Get("Content-Disposition"); !strings.Contains(cd, export.CSVFilename) {
		t.Errorf("content disposition=%q", cd)
	}
	want := export.CSVHeader + "\n" + `2024-06-01,"Food & Dining",12.5,"Lunch ""deluxe"""`
	if got := rr.Body.String(); got != want {
		t.Errorf("csv =\n%s\nwant\n%s", got, want)
	}
}

func TestExportPDF(t *testing.T) {
	app := newTestApp(t)
	cookie := app.login(t, "pdf@example.com")
	createViaAPI(t, app, cookie, map[string]any{"amount": 9.99, "category": "Education", "date": "2024-06-05", "description": "Book"})

	rr := app.do(t, http.MethodGet, "/transactions/export.pdf", nil, cookie, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Errorf("content type=%q", ct)
	}
	if !bytes.HasPrefix(rr.Body.Bytes(), []byte("%PDF")) {
		t.Errorf("body is not a PDF")
	}
}

// apiTransaction decodes the fields of transactionDTO the tests look at.
type apiTransaction struct {
	ID          string  `json:"id"`
	Amount      float64 `json:"amount"`
	Category    string  `json:"category"`
	Date        string  `json:"date"`
	Description string  `json:"description"`
}

func createViaAPI(t *testing.T, app *testApp, cookie *http.Cookie, body map[string]any) apiTransaction {
	t.Helper()
	rr := app.sendJSON(t, http.MethodPost, "/api/transactions", body, cookie)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status=%d body=%s", rr.Code, rr.Body.String())
	}
	var dto apiTransaction
	if err := json.Unmarshal(rr.Body.Bytes(), &dto); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if loc := rr.Header().Get("Location"); loc != "/api/transactions/"+dto.ID {
		t.Errorf("Location=%q", loc)
	}
	return dto
}

func mustOwnerID(t *testing.T, app *testApp, email string) string {
	t.Helper()
	u, err := app.store.UserByEmail(context.Background(), email)
	if err != nil {
		t.Fatalf("UserByEmail: %v", err)
	}
	return u.ID
}
