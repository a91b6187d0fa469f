package http

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"fintrack/internal/auth"
	applog "fintrack/internal/log"
)

var errTemplatesNotLoaded = errors.New("templates not loaded")

type appMetrics struct {
	uptime              time.Time
	transactionsCreated atomic.Int64
	transactionsUpdated atomic.Int64
	transactionsDeleted atomic.Int64
	signIns             atomic.Int64
	failedSignIns       atomic.Int64
	exports             atomic.Int64
}

func newAppMetrics() *appMetrics {
	return &appMetrics{uptime: time.Now()}
}

// pageData is shared by every full page.
type pageData struct {
	Title  string
	Active string
	User   *auth.Identity
}

func newPageData(r *http.Request, title, active string) pageData {
	p := pageData{Title: title, Active: active}
	if id, ok := auth.FromContext(r.Context()); ok {
		p.User = &id
	}
	return p
}

// render executes a named template into a buffer first, so a template error
// becomes a clean 500 instead of a half-written page.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	if s.templates == nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Templates not loaded",
			applog.FieldPath, r.URL.Path,
			"error_type", applog.ErrorTypeConfiguration)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Template execution failed",
			"error", err,
			"template", name,
			applog.FieldOperation, applog.OpRender)
		http.Error(w, genericError, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.appMetrics.uptime).Round(time.Second).String(),
	})
}

// handleReady performs readiness check with dependency verification
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
	case s.store == nil:
		checks["store"] = "not_configured"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	default:
		if err := s.store.Ping(ctx); err != nil {
			checks["store"] = fmt.Sprintf("failed: %v", err)
			status = "not_ready"
			httpStatus = http.StatusServiceUnavailable
		} else {
			checks["store"] = "ok"
		}
	}

	if s.transactions != nil {
		summaries := s.transactions.SummaryCacheStats()
		feed := s.transactions.FeedCacheStats()
		checks["cache"] = map[string]any{
			"summary_entries": summaries.Size,
			"feed_entries":    feed.Size,
			"status":          "ok",
		}
	}

	checks["rate_limiter"] = map[string]any{
		"active_clients": s.rateLimiter.ActiveClients(),
		"status":         "ok",
	}

	writeJSON(w, httpStatus, map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

// handleMetrics provides application and security metrics in plain text format
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

	securityMetrics := s.securityDetector.GetMetrics()
	rateLimitMetrics := s.rateLimiter.GetMetrics()
	traceMetrics := s.traceMiddleware.GetMetrics()
	m := s.appMetrics

	w.WriteHeader(http.StatusOK)

	counter := func(name, help string, v int64) {
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s counter\n%s %d\n\n", name, help, name, name, v)
	}
	gauge := func(name, help string, v int64) {
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s gauge\n%s %d\n\n", name, help, name, name, v)
	}

	counter("http_requests_total", "Total number of HTTP requests", traceMetrics.TotalRequests)
	gauge("http_request_duration_avg_microseconds", "Average response time", traceMetrics.AverageResponseTime)

	fmt.Fprintf(w, "# HELP transactions_changed_total Transactions changed through the web UI and API\n")
	fmt.Fprintf(w, "# TYPE transactions_changed_total counter\n")
	fmt.Fprintf(w, "transactions_changed_total{action=\"created\"} %d\n", m.transactionsCreated.Load())
	fmt.Fprintf(w, "transactions_changed_total{action=\"updated\"} %d\n", m.transactionsUpdated.Load())
	fmt.Fprintf(w, "transactions_changed_total{action=\"deleted\"} %d\n\n", m.transactionsDeleted.Load())

	counter("sign_ins_total", "Successful sign-ins", m.signIns.Load())
	counter("sign_in_failures_total", "Rejected sign-in attempts", m.failedSignIns.Load())
	counter("exports_total", "Transaction exports served", m.exports.Load())

	if s.transactions != nil {
		summaries := s.transactions.SummaryCacheStats()
		feed := s.transactions.FeedCacheStats()
		fmt.Fprintf(w, "# HELP cache_entries Current cache entries\n# TYPE cache_entries gauge\n")
		fmt.Fprintf(w, "cache_entries{cache=\"summary\"} %d\n", summaries.Size)
		fmt.Fprintf(w, "cache_entries{cache=\"feed\"} %d\n\n", feed.Size)
		fmt.Fprintf(w, "# HELP cache_hits_total Total cache hits\n# TYPE cache_hits_total counter\n")
		fmt.Fprintf(w, "cache_hits_total{cache=\"summary\"} %d\n", summaries.Hits)
		fmt.Fprintf(w, "cache_hits_total{cache=\"feed\"} %d\n\n", feed.Hits)
		fmt.Fprintf(w, "# HELP cache_misses_total Total cache misses\n# TYPE cache_misses_total counter\n")
		fmt.Fprintf(w, "cache_misses_total{cache=\"summary\"} %d\n", summaries.Misses)
		fmt.Fprintf(w, "cache_misses_total{cache=\"feed\"} %d\n\n", feed.Misses)
	}

	if s.hub != nil {
		gauge("live_subscribers", "Open live update streams", int64(s.hub.Subscribers()))
		counter("live_events_dropped_total", "Live events dropped for slow subscribers", s.hub.Dropped())
	}

	counter("rate_limit_hits_total", "Total rate limit hits", rateLimitMetrics.TotalHits)
	counter("auth_rate_limit_hits_total", "Credential requests rejected by the auth limiter", s.authLimiter.GetMetrics().TotalHits)
	gauge("active_rate_limit_clients", "Currently tracked rate limit clients", rateLimitMetrics.ClientCount)
	counter("suspicious_requests_total", "Total suspicious requests detected", securityMetrics.SuspiciousRequests)
	counter("blocked_requests_total", "Suspicious requests rejected", securityMetrics.BlockedRequests)
	gauge("uptime_seconds", "Application uptime in seconds", int64(time.Since(m.uptime).Seconds()))
}

// handleIndex sends visitors to the public feed, like the landing page did.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/cashflow", http.StatusFound)
}
