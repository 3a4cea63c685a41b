// Package controller contains the controller-specific logic for the HTTP API.
package controller

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"castplane/internal/controller/handlers"
	"castplane/internal/controller/middleware"
	"castplane/internal/identity"
)

// Options wire the server to its collaborators.
type Options struct {
	Actions  handlers.ProjectActions
	Store    handlers.StoreFactory
	Identity identity.Provider
	Logger   *slog.Logger

	// AdminSecret guards /admin routes. Empty disables them.
	AdminSecret string

	// MetricsHandler is mounted at GET /metrics when set.
	MetricsHandler http.Handler

	RateLimitTTL time.Duration

	// Readiness are extra named checks run by GET /readyz.
	Readiness map[string]handlers.ReadinessCheck

	// ActionBudget is the longest an action may spend in retried outbound
	// calls. The write deadline is stretched to cover it.
	ActionBudget time.Duration
}

const (
	defaultWriteTimeout = 30 * time.Second

	// storeHeadroom covers the database work around the retried calls.
	storeHeadroom = 10 * time.Second
)

// WriteTimeout returns a write deadline that outlasts the action budget, so
// a response is still written after every retry has run out.
func WriteTimeout(actionBudget time.Duration) time.Duration {
	return max(defaultWriteTimeout, actionBudget+storeHeadroom)
}

// Server is the HTTP server for the controller API.
type Server struct {
	httpServer *http.Server
}

// New creates a new controller server.
func New(addr string, opts Options) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      NewHandler(opts),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: WriteTimeout(opts.ActionBudget),
		},
	}
}

// NewHandler builds the routed handler with the full middleware chain.
func NewHandler(opts Options) http.Handler {
	l := opts.Logger
	if l == nil {
		l = slog.Default()
	}

	h := handlers.New(opts.Actions, opts.Store, l)
	for name, check := range opts.Readiness {
		h.AddReadinessCheck(name, check)
	}
	authMW := middleware.AuthMiddleware(opts.Identity, l)

	var rlOpts []middleware.RateLimitOption
	if opts.RateLimitTTL > 0 {
		rlOpts = append(rlOpts, middleware.WithTTL(opts.RateLimitTTL))
	}
	rateMW := middleware.NewRateLimiter(rlOpts...).Middleware()
	adminMW := middleware.RequireAdminSecret(opts.AdminSecret)

	user := func(fn http.HandlerFunc) http.Handler {
		return authMW(rateMW(fn))
	}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", h.Healthz)
	mux.HandleFunc("GET /readyz", h.Readyz)
	if opts.MetricsHandler != nil {
		mux.Handle("GET /metrics", opts.MetricsHandler)
	}

	// Public authenticated apis
	mux.Handle("POST /uploads/validate", user(h.ValidateUpload))
	mux.Handle("POST /projects", user(h.CreateProject))
	mux.Handle("GET /projects/{id}", user(h.GetProject))
	mux.Handle("DELETE /projects/{id}", user(h.DeleteProject))
	mux.Handle("PATCH /projects/{id}", user(h.RenameProject))
	mux.Handle("POST /projects/{id}/generate-missing", user(h.GenerateMissing))
	mux.Handle("POST /projects/{id}/retry", user(h.RetryJob))

	// Operator endpoints
	mux.Handle("POST /admin/users", adminMW(http.HandlerFunc(h.CreateUser)))
	mux.Handle("PUT /admin/users/{id}/plans", adminMW(http.HandlerFunc(h.SetUserPlans)))

	return middleware.RequestID(middleware.Recover(l)(mux))
}

// Run starts the HTTP server. It blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
		shutDownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		return s.Shutdown(shutDownCtx)
	}
}

// WriteDeadline is the write timeout the server was built with.
func (s *Server) WriteDeadline() time.Duration {
	return s.httpServer.WriteTimeout
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
