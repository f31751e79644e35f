package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	applog "expensetracker/internal/log"
	"expensetracker/internal/services"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	})
}

// handleReady checks the templates and pings the data backend.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]any)

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	switch {
	case s.pinger == nil:
		checks["store"] = "not_configured"
	default:
		if err := s.pinger.Ping(ctx); err != nil {
			applog.FromContext(ctx).WarnContext(ctx, "Readiness check failed", applog.FieldError, err)
			checks["store"] = fmt.Sprintf("failed: %v", err)
			status = "not_ready"
			httpStatus = http.StatusServiceUnavailable
		} else {
			checks["store"] = "ok"
		}
	}

	checks["rate_limiter"] = map[string]any{
		"active_clients": s.rateLimiter.ActiveClients(),
		"status":         "ok",
	}

	writeJSON(w, httpStatus, map[string]any{
		"status":    status,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"checks":    checks,
	})
}

// handleMetrics writes counters in the Prometheus text format.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

	securityMetrics := s.securityDetector.GetMetrics()
	rateLimitMetrics := s.rateLimiter.GetMetrics()
	authLimitMetrics := s.authLimiter.GetMetrics()
	traceMetrics := s.traceMiddleware.GetMetrics()
	var txMetrics services.TransactionMetrics
	if s.transactions != nil {
		txMetrics = s.transactions.Metrics()
	}

	w.WriteHeader(http.StatusOK)

	counter(w, "http_requests_total", "Total number of HTTP requests", traceMetrics.TotalRequests)
	counter(w, "http_server_errors_total", "Responses with a 5xx status", traceMetrics.ServerErrors)
	gauge(w, "http_request_duration_avg_seconds", "Average response time", traceMetrics.AverageResponseTime().Seconds())

	fmt.Fprintf(w, "# HELP transactions_changed_total Transactions written, by operation\n")
	fmt.Fprintf(w, "# TYPE transactions_changed_total counter\n")
	fmt.Fprintf(w, "transactions_changed_total{op=\"create\"} %d\n", txMetrics.Created)
	fmt.Fprintf(w, "transactions_changed_total{op=\"update\"} %d\n", txMetrics.Updated)
	fmt.Fprintf(w, "transactions_changed_total{op=\"delete\"} %d\n\n", txMetrics.Deleted)
	counter(w, "event_publish_failures_total", "Change events that could not be published", txMetrics.PublishFailures)

	fmt.Fprintf(w, "# HELP rate_limit_hits_total Requests rejected by a rate limiter\n")
	fmt.Fprintf(w, "# TYPE rate_limit_hits_total counter\n")
	fmt.Fprintf(w, "rate_limit_hits_total{limiter=\"global\"} %d\n", rateLimitMetrics.TotalHits)
	fmt.Fprintf(w, "rate_limit_hits_total{limiter=\"auth\"} %d\n\n", authLimitMetrics.TotalHits)
	gauge(w, "active_rate_limit_clients", "Currently tracked rate limit clients", float64(rateLimitMetrics.ClientCount))

	counter(w, "suspicious_requests_total", "Total suspicious requests detected", securityMetrics.SuspiciousRequests)
	counter(w, "blocked_requests_total", "Requests refused for a blocked method", securityMetrics.BlockedRequests)
	counter(w, "invalid_ip_attempts_total", "Forwarded client addresses that failed to parse", securityMetrics.InvalidIPAttempts)

	gauge(w, "uptime_seconds", "Application uptime in seconds", time.Since(s.started).Seconds())
}

func counter(w http.ResponseWriter, name, help string, v int64) {
	fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s counter\n%s %d\n\n", name, help, name, name, v)
}

func gauge(w http.ResponseWriter, name, help string, v float64) {
	fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s gauge\n%s %g\n\n", name, help, name, name, v)
}
