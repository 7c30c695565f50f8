package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"prodbudget/internal/cache"
	applog "prodbudget/internal/log"
	"prodbudget/internal/middleware/ratelimit"
	"prodbudget/internal/middleware/security"
	"prodbudget/internal/middleware/trace"
	"prodbudget/internal/services"
)

// Server exposes the budget API over HTTP. Reconciled budget views are
// cached per project with a short TTL and invalidated on every
// mutation, so reads after an edit always see the recomputed figures.
type Server struct {
	http.Server

	budget *services.BudgetService

	detector *security.Detector
	limiter  *ratelimit.Limiter
	headers  *security.HeadersMiddleware
	tracer   *trace.Middleware

	viewCache    *cache.LRUCache[budgetViewJSON]
	cacheManager *cache.Manager

	structured *applog.StructuredLogger
	metrics    appMetrics

	shutdownOnce sync.Once
}

// appMetrics tracks application-level counters for the metrics endpoint.
type appMetrics struct {
	budgetEdits int64
	cacheHits   int64
	cacheMisses int64
	startedAt   time.Time
}

// NewServer configures routes and middleware, returning a ready-to-run
// http.Server.
func NewServer(addr string, budget *services.BudgetService) *Server {
	mux := http.NewServeMux()

	detector := security.NewDetector()
	appLogger := applog.New(applog.DefaultConfig())

	s := &Server{
		budget:       budget,
		detector:     detector,
		limiter:      ratelimit.NewLimiter(ratelimit.DefaultConfig()),
		headers:      security.NewHeadersMiddleware(security.DefaultHeadersConfig()),
		tracer:       trace.NewMiddleware(detector.ExtractClientIP),
		viewCache:    cache.NewLRUCache[budgetViewJSON](100, time.Minute),
		cacheManager: cache.NewManager(),
		structured:   applog.NewStructuredLogger(appLogger),
	}
	s.metrics.startedAt = time.Now()
	s.cacheManager.Register(s.viewCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	mux.HandleFunc("GET /projects/{id}/budget", s.handleGetBudget)
	mux.HandleFunc("PUT /projects/{id}/budget", s.handleReplaceBudget)
	mux.HandleFunc("PUT /projects/{id}/summary", s.handleUpdateSummary)

	mux.HandleFunc("POST /projects/{id}/line-items", s.handleAddLineItem)
	mux.HandleFunc("PUT /projects/{id}/line-items/{itemID}", s.handleUpdateLineItem)
	mux.HandleFunc("DELETE /projects/{id}/line-items/{itemID}", s.handleDeleteLineItem)

	mux.HandleFunc("POST /projects/{id}/payment-schedules", s.handleAddPaymentSchedule)
	mux.HandleFunc("PUT /projects/{id}/payment-schedules/{itemID}", s.handleUpdatePaymentSchedule)
	mux.HandleFunc("DELETE /projects/{id}/payment-schedules/{itemID}", s.handleDeletePaymentSchedule)

	mux.HandleFunc("POST /projects/{id}/tax-invoices", s.handleAddTaxInvoice)
	mux.HandleFunc("PUT /projects/{id}/tax-invoices/{itemID}", s.handleUpdateTaxInvoice)
	mux.HandleFunc("DELETE /projects/{id}/tax-invoices/{itemID}", s.handleDeleteTaxInvoice)

	mux.HandleFunc("POST /projects/{id}/withholdings", s.handleAddWithholding)
	mux.HandleFunc("PUT /projects/{id}/withholdings/{itemID}", s.handleUpdateWithholding)
	mux.HandleFunc("DELETE /projects/{id}/withholdings/{itemID}", s.handleDeleteWithholding)

	mux.HandleFunc("POST /projects/{id}/card-expenses", s.handleAddCardExpense)
	mux.HandleFunc("PUT /projects/{id}/card-expenses/{itemID}", s.handleUpdateCardExpense)
	mux.HandleFunc("DELETE /projects/{id}/card-expenses/{itemID}", s.handleDeleteCardExpense)

	mux.HandleFunc("POST /projects/{id}/cash-expenses", s.handleAddCashExpense)
	mux.HandleFunc("PUT /projects/{id}/cash-expenses/{itemID}", s.handleUpdateCashExpense)
	mux.HandleFunc("DELETE /projects/{id}/cash-expenses/{itemID}", s.handleDeleteCashExpense)

	mux.HandleFunc("POST /projects/{id}/personal-expenses", s.handleAddPersonalExpense)
	mux.HandleFunc("PUT /projects/{id}/personal-expenses/{itemID}", s.handleUpdatePersonalExpense)
	mux.HandleFunc("DELETE /projects/{id}/personal-expenses/{itemID}", s.handleDeletePersonalExpense)

	mux.HandleFunc("PUT /projects/{id}/spreadsheet", s.handleLinkSpreadsheet)
	mux.HandleFunc("POST /projects/{id}/sync/{op}", s.handleRequestSync)

	// Each request carries a context logger bound to the trace request
	// ID, so handlers log through applog.FromContext.
	withLogger := applog.Middleware(appLogger)
	withComponent := applog.ComponentMiddleware(applog.ComponentHTTP)
	withRequestID := applog.RequestIDMiddleware(func(r *http.Request) string {
		return trace.GetRequestID(r.Context())
	})
	handler := s.headers.Middleware(s.tracer.Middleware(withLogger(withComponent(withRequestID(s.guard(mux))))))

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s
}

// guard applies suspicious-request detection and rate limiting before
// the mux. Mutating methods are rate limited per client IP; reads are
// not, they are served from cache most of the time anyway.
func (s *Server) guard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientIP := s.detector.ExtractClientIP(r)
		logger := applog.FromContext(r.Context())

		fields := applog.NewFields().
			WithClientIP(clientIP).
			WithRequestID(trace.GetRequestID(r.Context()))
		fields[applog.FieldMethod] = r.Method
		fields[applog.FieldPath] = r.URL.Path

		if s.detector.DetectSuspiciousRequest(r) {
			logger.WarnContext(r.Context(), "Suspicious request detected", fields.ToSlice()...)
		}

		if isMutating(r.Method) && !s.limiter.Allow(clientIP) {
			logger.WarnContext(r.Context(), "Rate limit exceeded", fields.ToSlice()...)
			ErrorResponse(http.StatusTooManyRequests, CodeRateLimited, "rate limit exceeded, try again later").
				Header("Retry-After", "60").
				Write(w)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func isMutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

// Shutdown gracefully shuts down the server and cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

// AddTrustedProxy registers an extra proxy network whose forwarded
// headers are honored for client IP extraction.
func (s *Server) AddTrustedProxy(cidr string) error {
	return s.detector.AddTrustedProxy(cidr)
}

// handleMetrics writes application and security counters in Prometheus
// text format.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	traceMetrics := s.tracer.GetMetrics()
	rateLimitMetrics := s.limiter.GetMetrics()
	securityMetrics := s.detector.GetMetrics()

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)

	fmt.Fprintf(w, "# HELP http_requests_total Total number of HTTP requests\n")
	fmt.Fprintf(w, "# TYPE http_requests_total counter\n")
	fmt.Fprintf(w, "http_requests_total %d\n\n", traceMetrics.TotalRequests)

	fmt.Fprintf(w, "# HELP budget_edits_total Total number of budget mutations\n")
	fmt.Fprintf(w, "# TYPE budget_edits_total counter\n")
	fmt.Fprintf(w, "budget_edits_total %d\n\n", atomic.LoadInt64(&s.metrics.budgetEdits))

	fmt.Fprintf(w, "# HELP budget_view_cache_hits_total Total budget view cache hits\n")
	fmt.Fprintf(w, "# TYPE budget_view_cache_hits_total counter\n")
	fmt.Fprintf(w, "budget_view_cache_hits_total %d\n\n", atomic.LoadInt64(&s.metrics.cacheHits))

	fmt.Fprintf(w, "# HELP budget_view_cache_misses_total Total budget view cache misses\n")
	fmt.Fprintf(w, "# TYPE budget_view_cache_misses_total counter\n")
	fmt.Fprintf(w, "budget_view_cache_misses_total %d\n\n", atomic.LoadInt64(&s.metrics.cacheMisses))

	fmt.Fprintf(w, "# HELP budget_view_cache_entries Current budget view cache entries\n")
	fmt.Fprintf(w, "# TYPE budget_view_cache_entries gauge\n")
	fmt.Fprintf(w, "budget_view_cache_entries %d\n\n", s.viewCache.Size())

	fmt.Fprintf(w, "# HELP rate_limit_hits_total Total rate limit hits\n")
	fmt.Fprintf(w, "# TYPE rate_limit_hits_total counter\n")
	fmt.Fprintf(w, "rate_limit_hits_total %d\n\n", rateLimitMetrics.TotalHits)

	fmt.Fprintf(w, "# HELP active_rate_limit_clients Currently tracked rate limit clients\n")
	fmt.Fprintf(w, "# TYPE active_rate_limit_clients gauge\n")
	fmt.Fprintf(w, "active_rate_limit_clients %d\n\n", s.limiter.ActiveClients())

	fmt.Fprintf(w, "# HELP suspicious_requests_total Total suspicious requests detected\n")
	fmt.Fprintf(w, "# TYPE suspicious_requests_total counter\n")
	fmt.Fprintf(w, "suspicious_requests_total %d\n\n", securityMetrics.SuspiciousRequests)

	fmt.Fprintf(w, "# HELP invalid_forwarded_ip_total Total forwarded headers with unparseable IPs\n")
	fmt.Fprintf(w, "# TYPE invalid_forwarded_ip_total counter\n")
	fmt.Fprintf(w, "invalid_forwarded_ip_total %d\n\n", securityMetrics.InvalidIPAttempts)

	fmt.Fprintf(w, "# HELP uptime_seconds Application uptime in seconds\n")
	fmt.Fprintf(w, "# TYPE uptime_seconds gauge\n")
	fmt.Fprintf(w, "uptime_seconds %.0f\n", time.Since(s.metrics.startedAt).Seconds())
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleReady answers ready only when the database handle responds;
// a deployment should not receive traffic while SQLite is unreachable.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.budget.Ping(ctx); err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("database unavailable"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// cached view plumbing

func (s *Server) cachedView(ctx context.Context, projectID string) (budgetViewJSON, error) {
	if view, found := s.viewCache.Get(projectID); found {
		atomic.AddInt64(&s.metrics.cacheHits, 1)
		slog.DebugContext(ctx, "Budget view cache hit", "project_id", projectID)
		return view, nil
	}
	atomic.AddInt64(&s.metrics.cacheMisses, 1)

	rec, rc, err := s.budget.GetBudget(ctx, projectID)
	if err != nil {
		return budgetViewJSON{}, err
	}

	view := buildBudgetView(rec, rc)
	s.viewCache.Set(projectID, view)
	return view, nil
}

func (s *Server) invalidateView(projectID string) {
	s.viewCache.Delete(projectID)
}

// recordEdit invalidates the cached view and emits the structured audit
// line every successful ledger mutation gets.
func (s *Server) recordEdit(ctx context.Context, projectID, entity string, entityID, amountWon int64, op string) {
	atomic.AddInt64(&s.metrics.budgetEdits, 1)
	s.invalidateView(projectID)
	s.structured.LogBudgetEdit(ctx, projectID, entity, entityID, amountWon, op)
}
