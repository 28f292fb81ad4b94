// Package api provides the HTTP surface of the preview gateway.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/narvanalabs/preview-gateway/internal/api/handlers"
	"github.com/narvanalabs/preview-gateway/internal/api/health"
	"github.com/narvanalabs/preview-gateway/internal/api/middleware"
	"github.com/narvanalabs/preview-gateway/internal/auth"
	"github.com/narvanalabs/preview-gateway/internal/gateway"
	"github.com/narvanalabs/preview-gateway/internal/inspect"
	"github.com/narvanalabs/preview-gateway/internal/launcher"
	"github.com/narvanalabs/preview-gateway/internal/navigation"
	"github.com/narvanalabs/preview-gateway/internal/registry"
	"github.com/narvanalabs/preview-gateway/pkg/config"
)

// Version is the current version of the gateway.
// This should be set at build time using ldflags.
var Version = "dev"

// Server represents the HTTP server.
type Server struct {
	router        chi.Router
	httpServer    *http.Server
	registry      *registry.Registry
	nav           *navigation.Tracker
	gateway       *gateway.Gateway
	generator     *inspect.Generator
	launcher      launcher.Launcher
	auth          *auth.Service
	config        *config.Config
	logger        *slog.Logger
	healthChecker *health.Checker
}

// Deps carries the server's collaborators.
type Deps struct {
	Registry  *registry.Registry
	Nav       *navigation.Tracker
	Gateway   *gateway.Gateway
	Generator *inspect.Generator
	Launcher  launcher.Launcher
	Auth      *auth.Service
}

// NewServer creates a new server with the given dependencies.
func NewServer(cfg *config.Config, deps Deps, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		registry:  deps.Registry,
		nav:       deps.Nav,
		gateway:   deps.Gateway,
		generator: deps.Generator,
		launcher:  deps.Launcher,
		auth:      deps.Auth,
		config:    cfg,
		logger:    logger,
	}

	s.healthChecker = health.NewChecker(deps.Registry, Version)

	s.setupRouter()
	return s
}

// setupRouter configures the router with middleware and routes.
func (s *Server) setupRouter() {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger(s.logger))
	r.Use(middleware.Recovery(s.logger))
	r.Use(middleware.Metrics())
	r.Use(chimiddleware.Timeout(60 * time.Second))

	// Operational endpoints (no auth required)
	r.Get("/health", s.healthChecker.Handler())
	r.Handle("/metrics", promhttp.Handler())

	previewHandler := handlers.NewPreviewHandler(s.registry, s.nav, s.launcher, s.logger)
	inspectionHandler := handlers.NewInspectionHandler(s.registry, s.generator, s.auth, s.config.TokenParam, s.logger)

	r.Route("/projects/{projectID}/preview", func(r chi.Router) {
		// Lifecycle endpoints require a bearer token.
		r.Group(func(r chi.Router) {
			authMiddleware := middleware.NewAuthMiddleware(s.auth, s.logger)
			r.Use(authMiddleware.Authenticate)

			r.Post("/start", previewHandler.Start)
			r.Get("/list", previewHandler.List)
			r.Route("/{instanceID}", func(r chi.Router) {
				r.Get("/status", previewHandler.Status)
				r.Delete("/", previewHandler.Stop)
				r.Get("/last-path", previewHandler.LastPath)
				r.Post("/set-path", previewHandler.SetPath)
				r.Post("/clear-cache", previewHandler.ClearCache)
			})
		})

		// The inspection document and the proxy do their own token handling:
		// both are loaded by iframes, which cannot set an Authorization
		// header, and asset subrequests carry no credential at all.
		r.Get("/{instanceID}/inspection", inspectionHandler.Get)
		r.HandleFunc("/{instanceID}/proxy", s.gateway.Handle)
		r.HandleFunc("/{instanceID}/proxy/*", s.gateway.Handle)
	})

	s.router = r
}

// Start starts the HTTP server.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.config.APIHost, s.config.APIPort)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	s.logger.Info("starting preview gateway", "addr", addr)

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		return s.Shutdown(context.Background())
	}
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down preview gateway")
	shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}

// Router returns the chi router for testing purposes.
func (s *Server) Router() chi.Router {
	return s.router
}
