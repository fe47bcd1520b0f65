// Package http serves the expense tracker JSON API.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"tracker/internal/core"
	"tracker/internal/format"
	"tracker/internal/log"
	"tracker/internal/metrics"
	"tracker/internal/services"
)

const rateLimiterCleanupInterval = 5 * time.Minute

// Deps are the collaborators of the HTTP server. Metrics and Ready are
// optional.
type Deps struct {
	Transactions  *services.TransactionService
	Categories    *services.CategoryService
	Dashboards    *services.DashboardService
	Money         *format.MoneyFormatter
	Metrics       *metrics.Metrics
	Logger        *log.Logger
	DefaultPeriod core.Period
	// RateLimit is the number of mutating requests per client and minute.
	RateLimit int
	// Ready reports whether the backing store can serve requests.
	Ready func(ctx context.Context) error
}

type Server struct {
	http.Server
	deps        Deps
	present     presenter
	logger      *log.Logger
	rateLimiter *rateLimiter
	started     time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes and returns a ready-to-run server.
func NewServer(addr string, deps Deps) *Server {
	if !deps.DefaultPeriod.IsValid() {
		deps.DefaultPeriod = core.PeriodMonth
	}
	mux := http.NewServeMux()
	s := &Server{
		Server: http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
		deps:        deps,
		present:     presenter{formatter: deps.Money},
		logger:      deps.Logger.WithComponent(log.ComponentHTTP),
		rateLimiter: newRateLimiter(deps.RateLimit),
		started:     time.Now(),
	}
	go s.rateLimiter.startCleanup(rateLimiterCleanupInterval)

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	if deps.Metrics != nil {
		mux.Handle("GET /metrics", deps.Metrics.Handler())
	}

	s.route(mux, "GET /api/dashboard", s.handleDashboard)
	s.route(mux, "GET /api/totals", s.handleTotals)
	s.route(mux, "GET /api/breakdown", s.handleBreakdown)
	s.route(mux, "GET /api/trend", s.handleTrend)
	s.route(mux, "GET /api/budgets", s.handleBudgets)
	s.route(mux, "PUT /api/budgets/{category}", s.handleSetBudget)
	s.route(mux, "GET /api/charts/trend.png", s.handleTrendChart)
	s.route(mux, "GET /api/charts/breakdown.png", s.handleBreakdownChart)

	s.route(mux, "GET /api/transactions", s.handleListTransactions)
	s.route(mux, "POST /api/transactions", s.handleCreateTransaction)
	s.route(mux, "DELETE /api/transactions", s.handleClearTransactions)
	s.route(mux, "GET /api/transactions/{id}", s.handleGetTransaction)
	s.route(mux, "PUT /api/transactions/{id}", s.handleUpdateTransaction)
	s.route(mux, "DELETE /api/transactions/{id}", s.handleDeleteTransaction)

	s.route(mux, "GET /api/categories", s.handleListCategories)
	s.route(mux, "POST /api/categories", s.handleCreateCategory)
	s.route(mux, "DELETE /api/categories/{name}", s.handleDeleteCategory)

	s.route(mux, "GET /api/export.csv", s.handleExport)
	s.route(mux, "POST /api/import", s.handleImport)

	return s
}

func (s *Server) route(mux *http.ServeMux, pattern string, h http.HandlerFunc) {
	mux.HandleFunc(pattern, s.withSecurityHeaders(h))
}

// Shutdown stops the rate limiter and then the HTTP server. It is safe to
// call more than once.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// withSecurityHeaders adds the request ID, rate limiting of mutating
// requests, security headers, metrics and request logging.
func (s *Server) withSecurityHeaders(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		clientIP := extractClientIP(r)
		requestID := generateRequestID()

		logger := s.logger.With(log.FieldRequestID, requestID)
		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		ctx = log.NewContext(ctx, logger)
		r = r.WithContext(ctx)

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		defer func() {
			elapsed := time.Since(start)
			s.deps.Metrics.ObserveHTTP(r.Method, r.Pattern, rw.statusCode, elapsed)
			log.NewStructuredLogger(logger).LogHTTPEnd(ctx, r, rw.statusCode, elapsed.Milliseconds(), clientIP)
		}()

		if reason := suspiciousReason(r); reason != "" {
			logger.WarnContext(ctx, "Suspicious request",
				log.FieldComponent, log.ComponentSecurity,
				log.FieldClientIP, clientIP,
				log.FieldPath, r.URL.Path,
				"reason", reason)
		}

		h := rw.Header()
		h.Set("X-Request-ID", requestID)
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("Cache-Control", "no-store")

		if r.Method != http.MethodGet && r.Method != http.MethodHead && !s.rateLimiter.allow(clientIP) {
			logger.WarnContext(ctx, "Rate limit exceeded",
				log.FieldComponent, log.ComponentRateLimit,
				log.FieldClientIP, clientIP,
				log.FieldMethod, r.Method,
				log.FieldPath, r.URL.Path)
			_ = ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded, try again later").
				Header("Retry-After", "60").
				Write(rw)
			return
		}

		next(rw, r)
	}
}

// responseWriter captures the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	})
}

// handleReady checks the backing store within a short timeout.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status, code := "ready", http.StatusOK
	checks := map[string]any{
		"rate_limiter": map[string]any{
			"active_clients": s.rateLimiter.activeClients(),
			"limited_total":  s.rateLimiter.totalHits(),
		},
	}
	if s.deps.Ready != nil {
		if err := s.deps.Ready(ctx); err != nil {
			checks["store"] = "failed: " + err.Error()
			status, code = "not_ready", http.StatusServiceUnavailable
		} else {
			checks["store"] = "ok"
		}
	}

	s.writeJSON(w, r, code, map[string]any{
		"status":    status,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"checks":    checks,
	})
}
