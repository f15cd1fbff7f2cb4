// Package http exposes the analysis engine and transaction store over a
// JSON API.
package http

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"spendlens/internal/core"
	applog "spendlens/internal/log"
	"spendlens/internal/middleware/ratelimit"
	"spendlens/internal/middleware/security"
	"spendlens/internal/middleware/trace"
	"spendlens/internal/services"
)

// Store is the persistence surface the API needs.
type Store interface {
	AddTransaction(ctx context.Context, tx core.Transaction) (string, error)
	GetTransaction(ctx context.Context, id string) (core.Transaction, error)
	DeleteTransaction(ctx context.Context, id string) error
	ListTransactions(ctx context.Context, start, end core.Date) ([]core.Transaction, error)
	UpsertCategory(ctx context.Context, c core.Category) error
	ListCategories(ctx context.Context) ([]core.Category, error)
	SaveBudget(ctx context.Context, b core.Budget) (string, error)
	ActiveBudget(ctx context.Context, at core.Date) (*core.Budget, error)
}

type Server struct {
	http.Server

	store   Store
	reports *services.ReportService

	// Trailing window length used when the request omits ?months=.
	defaultMonths int

	limiter      *ratelimit.Limiter
	shutdownOnce sync.Once
}

// NewServer wires routes and the middleware chain, returning a
// ready-to-run http.Server.
func NewServer(addr string, store Store, reports *services.ReportService, defaultMonths int, logger *applog.Logger) *Server {
	mux := http.NewServeMux()
	httpLogger := logger.WithComponent(applog.ComponentHTTP)

	s := &Server{
		store:         store,
		reports:       reports,
		defaultMonths: defaultMonths,
		limiter:       ratelimit.NewLimiter(ratelimit.DefaultConfig()),
	}

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("GET /api/report", s.handleReport)
	mux.HandleFunc("GET /api/trends", s.handleTrends)
	mux.HandleFunc("GET /api/anomalies", s.handleAnomalies)
	mux.HandleFunc("GET /api/recurring", s.handleRecurring)
	mux.HandleFunc("GET /api/recommendations", s.handleRecommendations)
	mux.HandleFunc("GET /api/allocation", s.handleAllocation)

	mux.HandleFunc("POST /api/transactions", s.handleCreateTransaction)
	mux.HandleFunc("GET /api/transactions", s.handleListTransactions)
	mux.HandleFunc("GET /api/transactions/{id}", s.handleGetTransaction)
	mux.HandleFunc("DELETE /api/transactions/{id}", s.handleDeleteTransaction)

	mux.HandleFunc("GET /api/categories", s.handleListCategories)
	mux.HandleFunc("PUT /api/categories", s.handleUpsertCategory)

	mux.HandleFunc("POST /api/budgets", s.handleSaveBudget)
	mux.HandleFunc("GET /api/budgets/active", s.handleActiveBudget)

	mux.HandleFunc("GET /api/export", s.handleExport)

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	tracer := trace.NewMiddleware(clientIP, httpLogger)
	limited := s.limiter.Middleware(clientIP, rateLimited)
	withLogger := applog.Middleware(httpLogger)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           tracer.Middleware(withLogger(limited(headers.Middleware(mux)))),
		ReadHeaderTimeout: 5 * time.Second,
	}

	return s
}

// Shutdown stops the rate limiter cleanup goroutine and drains the HTTP
// server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// clientIP resolves the caller address, honouring proxy headers.
func clientIP(r *http.Request) string {
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		if comma := strings.IndexByte(ip, ','); comma >= 0 {
			ip = ip[:comma]
		}
		return strings.TrimSpace(ip)
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	return r.RemoteAddr
}

func rateLimited(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Retry-After", "60")
	writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if _, err := s.store.ListCategories(r.Context()); err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Readiness check failed", "error", err)
		writeError(w, http.StatusServiceUnavailable, "store unavailable")
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
