package http

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"

	applog "expensetracker/internal/log"
	"expensetracker/internal/middleware/ratelimit"
	"expensetracker/internal/middleware/security"
	"expensetracker/internal/middleware/trace"
	"expensetracker/internal/services"
)

// ReadinessCheck reports whether a dependency can serve traffic.
type ReadinessCheck func(ctx context.Context) error

// Options wires the services behind the API.
type Options struct {
	Transactions *services.TransactionService
	Insights     *services.InsightService
	Categories   *services.CategoryService

	// Checks run on /readyz, keyed by dependency name.
	Checks map[string]ReadinessCheck

	RateLimitPerMinute int
	TrustedProxies     []string
	Clock              services.Clock
	Logger             *applog.Logger
}

// Server is the JSON API. It embeds http.Server so callers can
// ListenAndServe directly.
type Server struct {
	http.Server

	transactions *services.TransactionService
	insights     *services.InsightService
	categories   *services.CategoryService
	checks       map[string]ReadinessCheck

	logger   *applog.Logger
	clock    services.Clock
	started  time.Time
	limiter  *ratelimit.Limiter
	tracer   *trace.Middleware
	resolver *security.IPResolver

	shutdownOnce sync.Once
}

func NewServer(addr string, opts Options) (*Server, error) {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = applog.New(applog.DefaultConfig())
	}
	if opts.Transactions == nil || opts.Insights == nil || opts.Categories == nil {
		return nil, errors.New("http server: transactions, insights and categories services are required")
	}
	resolver, err := security.NewIPResolver(opts.TrustedProxies...)
	if err != nil {
		return nil, err
	}

	s := &Server{
		transactions: opts.Transactions,
		insights:     opts.Insights,
		categories:   opts.Categories,
		checks:       opts.Checks,
		logger:       opts.Logger.WithComponent(applog.ComponentHTTP),
		clock:        opts.Clock,
		started:      opts.Clock(),
		resolver:     resolver,
		limiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: opts.RateLimitPerMinute,
		}),
	}
	s.tracer = trace.NewMiddleware(s.logger.Slog(), resolver.ClientIP)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s, nil
}

func (s *Server) routes() http.Handler {
	r := mux.NewRouter()
	r.Use(
		s.tracer.Handler,
		applog.Middleware(s.logger),
		applog.RequestIDMiddleware(func(r *http.Request) string { return trace.RequestID(r.Context()) }),
		security.Headers,
	)
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		NotFoundError("no such endpoint").Write(w)
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		MethodNotAllowedError().Write(w)
	})

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/readyz", s.handleReady).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(s.requireUser, s.limitWrites)

	api.HandleFunc("/transactions", s.handleListTransactions).Methods(http.MethodGet)
	api.HandleFunc("/transactions", s.handleCreateTransaction).Methods(http.MethodPost)
	api.HandleFunc("/transactions/{id}", s.handleGetTransaction).Methods(http.MethodGet)
	api.HandleFunc("/transactions/{id}", s.handleUpdateTransaction).Methods(http.MethodPut)
	api.HandleFunc("/transactions/{id}", s.handleDeleteTransaction).Methods(http.MethodDelete)

	api.HandleFunc("/summary", s.handleSummary).Methods(http.MethodGet)
	api.HandleFunc("/insights", s.handleInsights).Methods(http.MethodGet)
	api.HandleFunc("/insights/trend.png", s.handleTrendChart).Methods(http.MethodGet)
	api.HandleFunc("/insights/categories.png", s.handleCategoryChart).Methods(http.MethodGet)
	api.HandleFunc("/axis", s.handleAxis).Methods(http.MethodGet)

	api.HandleFunc("/categories", s.handleListCategories).Methods(http.MethodGet)
	api.HandleFunc("/categories", s.handleAddCategory).Methods(http.MethodPost)
	api.HandleFunc("/categories/{label}", s.handleRemoveCategory).Methods(http.MethodDelete)
	api.HandleFunc("/categories/{label}/selected", s.handleSelectCategory).Methods(http.MethodPut)

	return r
}

// requireUser rejects /api requests without an X-User-ID header.
func (s *Server) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := sanitizeInput(r.Header.Get(HeaderUserID))
		if userID == "" {
			BadRequestError("missing " + HeaderUserID + " header").Write(w)
			return
		}
		next.ServeHTTP(w, r.WithContext(withUser(r.Context(), userID)))
	})
}

// limitWrites applies the per-client rate limit to mutating requests.
func (s *Server) limitWrites(next http.Handler) http.Handler {
	limited := s.limiter.Middleware(
		func(r *http.Request) string { return userFrom(r) + "|" + s.resolver.ClientIP(r) },
		func(w http.ResponseWriter, r *http.Request) {
			applog.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
				applog.FieldUserID, userFrom(r),
				applog.FieldMethod, r.Method,
				applog.FieldPath, r.URL.Path)
			TooManyRequestsError().Write(w)
		},
	)(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet || r.Method == http.MethodHead {
			next.ServeHTTP(w, r)
			return
		}
		limited.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	requests, failures := s.tracer.Counts()
	NewResponse().JSON(map[string]any{
		"status":          "ok",
		"timestamp":       s.clock().Format(time.RFC3339),
		"uptime":          s.clock().Sub(s.started).Round(time.Second).String(),
		"requests":        requests,
		"server_errors":   failures,
		"rate_limit_hits": s.limiter.Hits(),
	}).Write(w)
}

// handleReady runs every readiness check with a shared timeout.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := http.StatusOK
	checks := make(map[string]string, len(s.checks))
	for name, check := range s.checks {
		if err := check(ctx); err != nil {
			s.logger.WarnContext(ctx, "Readiness check failed", "check", name, applog.FieldError, err)
			checks[name] = "failed: " + err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}

	state := "ready"
	if status != http.StatusOK {
		state = "not_ready"
	}
	NewResponse().Status(status).JSON(map[string]any{
		"status": state,
		"checks": checks,
	}).Write(w)
}

// Shutdown stops the rate limiter sweep and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

