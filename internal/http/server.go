// Package http serves the dashboard, the transaction form, exports and the
// JSON API over net/http.
package http

import (
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"expensetracker/internal/auth"
	"expensetracker/internal/export"
	applog "expensetracker/internal/log"
	"expensetracker/internal/middleware/ratelimit"
	"expensetracker/internal/middleware/security"
	"expensetracker/internal/middleware/trace"
	"expensetracker/internal/services"
	"expensetracker/internal/store"
	appweb "expensetracker/web"
)

// Options wires the server to its dependencies.
type Options struct {
	Addr         string
	Transactions *services.TransactionService
	Dashboard    *services.DashboardService
	Auth         *auth.Service
	// Pinger backs /readyz; nil reports ready.
	Pinger store.Pinger
	Logger *applog.Logger

	RateLimitPerMinute int
	TrustedProxies     []string
	// Now is the clock for form defaults; tests pin it.
	Now func() time.Time
}

// Server is the web application.
type Server struct {
	http.Server
	templates *template.Template

	transactions *services.TransactionService
	dashboard    *services.DashboardService
	auth         *auth.Service
	pinger       store.Pinger
	logger       *applog.Logger
	now          func() time.Time

	securityDetector *security.Detector
	traceMiddleware  *trace.Middleware
	rateLimiter      *ratelimit.Limiter
	authLimiter      *ratelimit.Limiter
	started          time.Time

	shutdownOnce sync.Once
}

// NewServer parses templates, registers routes and returns a server ready
// for ListenAndServe.
func NewServer(opts Options) (*Server, error) {
	logger := opts.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	t, err := template.New("").Funcs(templateFuncs).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	detector := security.NewDetector(logger)
	for _, cidr := range opts.TrustedProxies {
		if err := detector.AddTrustedProxy(cidr); err != nil {
			return nil, err
		}
	}

	perMinute := opts.RateLimitPerMinute
	if perMinute <= 0 {
		perMinute = ratelimit.DefaultConfig().RequestsPerMinute
	}
	// Sign-in and sign-up get a tighter budget against password guessing.
	authPerMinute := perMinute / 6
	if authPerMinute < 5 {
		authPerMinute = 5
	}

	s := &Server{
		templates:        t,
		transactions:     opts.Transactions,
		dashboard:        opts.Dashboard,
		auth:             opts.Auth,
		pinger:           opts.Pinger,
		logger:           logger.WithComponent(applog.ComponentHTTP),
		now:              now,
		securityDetector: detector,
		rateLimiter:      ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: perMinute}),
		authLimiter:      ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: authPerMinute}),
		started:          now(),
	}
	s.traceMiddleware = trace.NewMiddleware(detector.ExtractClientIP, logger)

	mux := http.NewServeMux()
	s.routes(mux)

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           s.middleware(mux),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s, nil
}

func (s *Server) routes(mux *http.ServeMux) {
	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		s.logger.Warn("Failed to mount embedded static FS", applog.FieldError, err)
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	limitAuth := s.authLimiter.Middleware(s.securityDetector.ExtractClientIP, s.onRateLimited)
	mux.HandleFunc("GET /login", s.handleLoginPage)
	mux.Handle("POST /login", limitAuth(http.HandlerFunc(s.handleLogin)))
	mux.HandleFunc("GET /register", s.handleRegisterPage)
	mux.Handle("POST /register", limitAuth(http.HandlerFunc(s.handleRegister)))
	mux.HandleFunc("POST /logout", s.handleLogout)

	private := func(h http.HandlerFunc) http.Handler {
		return security.NoStore(s.auth.Middleware(h))
	}

	mux.Handle("GET /{$}", private(s.handleIndex))
	mux.Handle("GET /ui/dashboard", private(s.handleDashboardPartial))
	mux.Handle("GET /ui/transactions/new", private(s.handleNewForm))
	mux.Handle("GET /ui/transactions/{id}/edit", private(s.handleEditForm))
	mux.Handle("POST /transactions", private(s.handleCreateTransaction))
	mux.Handle("PUT /transactions/{id}", private(s.handleUpdateTransaction))
	mux.Handle("POST /transactions/{id}", private(s.handleUpdateTransaction))
	mux.Handle("DELETE /transactions/{id}", private(s.handleDeleteTransaction))
	mux.Handle("GET /transactions/export.csv", private(s.handleExportCSV))
	mux.Handle("GET /transactions/export.pdf", private(s.handleExportPDF))

	mux.Handle("GET /api/transactions", private(s.handleAPIList))
	mux.Handle("POST /api/transactions", private(s.handleAPICreate))
	mux.Handle("GET /api/transactions/{id}", private(s.handleAPIGet))
	mux.Handle("PUT /api/transactions/{id}", private(s.handleAPIUpdate))
	mux.Handle("DELETE /api/transactions/{id}", private(s.handleAPIDelete))
	mux.Handle("GET /api/dashboard", private(s.handleAPIDashboard))
	mux.Handle("GET /api/categories", private(s.handleAPICategories))
}

// middleware wraps the mux, outermost first: detection, security headers,
// tracing, request-scoped logger, global rate limit.
func (s *Server) middleware(h http.Handler) http.Handler {
	h = s.rateLimiter.Middleware(s.securityDetector.ExtractClientIP, s.onRateLimited)(h)
	h = applog.RequestIDMiddleware(trace.RequestIDFromRequest)(h)
	h = applog.Middleware(s.logger)(h)
	h = s.traceMiddleware.Middleware(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	return s.securityDetector.Middleware(h)
}

func (s *Server) onRateLimited(w http.ResponseWriter, r *http.Request) {
	applog.FromContext(r.Context()).WithComponent(applog.ComponentRateLimit).WarnContext(r.Context(), "Rate limit exceeded",
		applog.FieldClientIP, s.securityDetector.ExtractClientIP(r),
		applog.FieldMethod, r.Method,
		applog.FieldPath, r.URL.Path)
	if isAPI(r) {
		writeJSONError(w, http.StatusTooManyRequests, "rate limit exceeded")
		return
	}
	ErrorResponse(http.StatusTooManyRequests, "Too many requests. Please try again later.").
		TriggerErrorNotification("Too many requests. Please try again later.").
		Write(w)
}

// Shutdown stops the rate limiters and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		s.authLimiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

var templateFuncs = template.FuncMap{
	"money": export.Dollars,
	"slug":  categorySlug,
}
