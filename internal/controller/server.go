// Package controller contains the controller-specific logic for the HTTP API.
package controller

import (
	"context"
	"net/http"
	"time"

	"schemaplane/internal/controller/handlers"
	"schemaplane/internal/controller/middleware"
)

// Server is the HTTP server for the controller API.
type Server struct {
	httpServer *http.Server
}

// Options configures the server surface.
type Options struct {
	Addr string
	// AdminSecret guards the /admin endpoints.
	AdminSecret string
	// Metrics is mounted at GET /metrics when non-nil.
	Metrics http.Handler
}

// New creates a new controller server.
func New(opts Options, store handlers.Store, h *handlers.Handlers) *Server {
	authMW := middleware.AuthMiddleware(store)
	rateMW := middleware.RateLimitMiddleware()
	adminMW := middleware.RequireInternalAuth(opts.AdminSecret)

	authenticated := func(next http.Handler) http.Handler {
		return authMW(rateMW(next))
	}

	mux := http.NewServeMux()

	mux.HandleFunc("POST /tenants", h.CreateTenant)

	// Public authenticated apis
	mux.Handle("POST /operations", authenticated(http.HandlerFunc(h.CreateOperation)))
	mux.Handle("POST /groups/{id}/request-approval", authenticated(http.HandlerFunc(h.RequestApproval)))
	mux.Handle("GET /groups/{id}", authenticated(http.HandlerFunc(h.GetGroup)))
	mux.Handle("POST /queries", authenticated(http.HandlerFunc(h.RawQuery)))

	// Admin review surface.
	// These should run behind strict network rules; the bearer secret
	// and the X-Admin-User principal are both required.
	mux.Handle("GET /admin/groups/pending", adminMW(http.HandlerFunc(h.GetPendingGroups)))
	mux.Handle("POST /admin/groups/{id}/approve", adminMW(http.HandlerFunc(h.ApproveGroup)))
	mux.Handle("POST /admin/groups/{id}/reject", adminMW(http.HandlerFunc(h.RejectGroup)))
	mux.Handle("POST /admin/groups/{id}/cancel", adminMW(http.HandlerFunc(h.CancelGroup)))
	mux.Handle("POST /admin/groups/{id}/execute", adminMW(http.HandlerFunc(h.ExecuteGroup)))

	mux.HandleFunc("GET /healthz", h.Healthz)
	mux.HandleFunc("GET /readyz", h.Readyz)
	if opts.Metrics != nil {
		mux.Handle("GET /metrics", opts.Metrics)
	}

	return &Server{
		httpServer: &http.Server{
			Addr:         opts.Addr,
			Handler:      middleware.RequestID(mux),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 60 * time.Second,
		},
	}
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

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
