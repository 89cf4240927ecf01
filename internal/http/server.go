// Package http exposes the budgeting services as a JSON API.
//
// Every /api/v1 route acts on behalf of the owner named by the X-Owner-ID
// header. Authentication happens in front of this server.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"budgeting/internal/backend"
	"budgeting/internal/log"
	"budgeting/internal/middleware/ratelimit"
	"budgeting/internal/middleware/security"
	"budgeting/internal/middleware/trace"
)

// HeaderOwnerID names the owner every API call acts for.
const HeaderOwnerID = "X-Owner-ID"

type Server struct {
	http.Server
	backend *backend.Backend
	logger  *log.Logger

	traceMiddleware  *trace.Middleware
	securityDetector *security.Detector
	rateLimiter      *ratelimit.Limiter
	startedAt        time.Time

	shutdownOnce sync.Once
}

// Options tunes the server. The zero value is usable.
type Options struct {
	RateLimit ratelimit.Config
	Headers   *security.HeadersConfig
}

// NewServer wires routes and middleware, returning a ready-to-run server.
func NewServer(addr string, b *backend.Backend, logger *log.Logger, opts Options) *Server {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	headers := security.DefaultHeadersConfig()
	if opts.Headers != nil {
		headers = *opts.Headers
	}

	s := &Server{
		backend:          b,
		logger:           logger.WithComponent(log.ComponentHTTP),
		traceMiddleware:  trace.NewMiddleware(),
		securityDetector: security.NewDetector(),
		rateLimiter:      ratelimit.NewLimiter(opts.RateLimit),
		startedAt:        time.Now(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)
	mux.Handle("/api/", requireOwner(s.apiRoutes()))

	var handler http.Handler = mux
	handler = s.rateLimiter.Middleware(s.securityDetector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		writeErrorMessage(w, http.StatusTooManyRequests, "rate limit exceeded, try again later")
	})(handler)
	handler = s.securityDetector.Middleware(handler)
	handler = security.NewHeadersMiddleware(headers).Middleware(handler)
	handler = log.AccessLog(s.securityDetector.ExtractClientIP)(handler)
	handler = log.RequestIDMiddleware(trace.RequestID)(handler)
	handler = log.Middleware(s.logger)(handler)
	handler = s.traceMiddleware.Middleware(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

func (s *Server) apiRoutes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/taxonomy", s.handleTaxonomy)
	mux.HandleFunc("POST /api/v1/taxonomy/seed", s.handleSeedTaxonomy)
	mux.HandleFunc("GET /api/v1/categories/suggest", s.handleSuggestCategory)

	mux.HandleFunc("GET /api/v1/links", s.handleListLinks)
	mux.HandleFunc("POST /api/v1/links", s.handleSaveLink)
	mux.HandleFunc("PUT /api/v1/links/{id}", s.handleSaveLink)
	mux.HandleFunc("DELETE /api/v1/links/{id}", s.handleDeleteLink)

	mux.HandleFunc("GET /api/v1/transactions", s.handleListTransactions)
	mux.HandleFunc("POST /api/v1/transactions", s.handleCreateTransaction)
	mux.HandleFunc("GET /api/v1/transactions/{id}", s.handleGetTransaction)
	mux.HandleFunc("PUT /api/v1/transactions/{id}", s.handleUpdateTransaction)
	mux.HandleFunc("GET /api/v1/expenses", s.handleExpenses)

	mux.HandleFunc("GET /api/v1/budgets/{year}/{month}", s.handleListBudgets)
	mux.HandleFunc("PUT /api/v1/budgets/{year}/{month}/{category}", s.handleSetForecast)
	mux.HandleFunc("GET /api/v1/savings", s.handleListSavings)
	mux.HandleFunc("GET /api/v1/savings/{year}/{month}", s.handleGetSavings)
	mux.HandleFunc("PUT /api/v1/savings/{year}/{month}", s.handleUpdateSavings)

	mux.HandleFunc("GET /api/v1/commitments", s.handleListCommitments)
	mux.HandleFunc("POST /api/v1/commitments", s.handleCreateCommitment)
	mux.HandleFunc("GET /api/v1/commitments/{id}", s.handleGetCommitment)
	mux.HandleFunc("PUT /api/v1/commitments/{id}", s.handleUpdateCommitment)
	mux.HandleFunc("GET /api/v1/commitments/{id}/schedule", s.handleSchedule)
	mux.HandleFunc("POST /api/v1/commitments/{id}/regenerate", s.handleRegenerate)
	mux.HandleFunc("PUT /api/v1/schedule-lines/{id}/status", s.handleLineStatus)
	mux.HandleFunc("GET /api/v1/schedule/due/{year}/{month}", s.handleDueInMonth)

	mux.HandleFunc("GET /api/v1/standings", s.handleListStandings)
	mux.HandleFunc("POST /api/v1/standings", s.handleCreateStanding)

	mux.HandleFunc("GET /api/v1/reports/{year}/{month}", s.handleMonthlyReport)
	mux.HandleFunc("POST /api/v1/reports/{year}/{month}/export", s.handleExportReport)

	mux.HandleFunc("POST /api/v1/imports/csv", s.handleImportCSV)
	mux.HandleFunc("GET /api/v1/records/months", s.handleRecordMonths)
	mux.HandleFunc("GET /api/v1/records/{year}/{month}", s.handleMonthRecords)
	mux.HandleFunc("POST /api/v1/records/{year}/{month}/promote", s.handlePromoteMonth)
	mux.HandleFunc("POST /api/v1/records/{id}/promote", s.handlePromoteRecord)

	return mux
}

type ownerKey struct{}

// requireOwner rejects API calls without an owner and stores it in the context.
func requireOwner(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		owner := sanitizeInput(r.Header.Get(HeaderOwnerID))
		if owner == "" {
			writeErrorMessage(w, http.StatusBadRequest, "missing "+HeaderOwnerID+" header")
			return
		}
		ctx := context.WithValue(r.Context(), ownerKey{}, owner)
		logger := log.FromContext(ctx).With(log.FieldOwnerID, owner)
		next.ServeHTTP(w, r.WithContext(log.NewContext(ctx, logger)))
	})
}

func ownerFrom(r *http.Request) string {
	owner, _ := r.Context().Value(ownerKey{}).(string)
	return owner
}

// Shutdown stops background loops and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
