package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ArcadeBob/clean-glass-proposal-app-sub001/internal/domain"
	"github.com/ArcadeBob/clean-glass-proposal-app-sub001/internal/market"
	"github.com/ArcadeBob/clean-glass-proposal-app-sub001/internal/pricing"
)

// Server represents the HTTP API server.
type Server struct {
	router  *chi.Mux
	handler *Handler
	server  *http.Server
	config  domain.ServerConfig
}

// NewServer creates a new API server.
func NewServer(cfg domain.ServerConfig, repo domain.Repository, cache domain.Cache, bus domain.EventBus, orchestrator *pricing.Orchestrator, catalog domain.RiskFactorCatalog, marketEngine *market.Engine, pricingCfg domain.PricingConfig, version string) *Server {
	handler := NewHandler(repo, cache, bus, orchestrator, catalog, marketEngine, pricingCfg, version)
	router := chi.NewRouter()

	// Global middleware stack
	router.Use(CORSMiddleware)         // CORS for browser clients
	router.Use(RecoverMiddleware)      // Recover from panics
	router.Use(TracingMiddleware)      // OpenTelemetry tracing
	router.Use(LoggingMiddleware)      // Request logging
	router.Use(middleware.RealIP)      // Extract real IP
	router.Use(middleware.Compress(5)) // Gzip compression

	// Health endpoints
	router.Get("/health", handler.Health)
	router.Get("/ready", handler.Ready)

	// Pricing
	router.Post("/calculate", handler.Calculate)

	// Audit log
	router.Get("/audit-logs", handler.AuditLogs)
	router.Delete("/audit-logs", handler.ClearAuditLogs)
	router.Get("/statistics", handler.Statistics)

	// Risk factor catalog
	router.Get("/factors", handler.ListFactors)
	router.Get("/factors/{name}", handler.GetFactor)

	// Market data
	router.Get("/market-data", handler.ListMarketRecords)
	router.Post("/market-data", handler.CreateMarketRecord)
	router.Get("/benchmark", handler.Benchmark)

	// Calculation history
	router.Get("/calculations", handler.ListCalculations)

	return &Server{
		router:  router,
		handler: handler,
		config:  cfg,
	}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.config.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.config.WriteTimeout) * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the Chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Handler returns the handler for testing.
func (s *Server) Handler() *Handler {
	return s.handler
}
