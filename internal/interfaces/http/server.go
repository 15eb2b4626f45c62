// Package http exposes the application services over a JSON API.
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/trip-finance/internal/application/port"
	"github.com/garyjia/trip-finance/internal/application/service"
	"github.com/garyjia/trip-finance/internal/domain/entity"
)

// Logger interface for logging operations
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// TokenParser verifies bearer tokens
type TokenParser interface {
	Parse(raw string) (entity.Actor, error)
}

// RequestObserver records served requests
type RequestObserver interface {
	ObserveHTTPRequest(method, path string, status int, duration time.Duration)
	Handler() http.Handler
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host           string
	Port           int
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	Mode           string
	MetricsPath    string
	MaxUploadBytes int64
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:           "0.0.0.0",
		Port:           8080,
		ReadTimeout:    30 * time.Second,
		WriteTimeout:   30 * time.Second,
		Mode:           gin.ReleaseMode,
		MetricsPath:    "/metrics",
		MaxUploadBytes: service.DefaultMaxUploadBytes,
	}
}

// Services bundles the application services served by the API
type Services struct {
	Trips    service.TripService
	Costs    service.CostService
	Workflow service.WorkflowService
	Audit    service.AuditService
	Invoices service.InvoiceService
	Reports  service.ReportService
}

// Server is the HTTP server adapter
type Server struct {
	config     ServerConfig
	httpServer *http.Server
	router     *gin.Engine
	handlers   *Handlers
	tokens     TokenParser
	metrics    RequestObserver
	logger     Logger
}

// NewServer creates a new HTTP server. metrics may be nil.
func NewServer(
	config ServerConfig,
	services Services,
	tokens TokenParser,
	identity port.IdentityProvider,
	metrics RequestObserver,
	logger Logger,
) *Server {
	if config.Mode == "" {
		config.Mode = gin.ReleaseMode
	}
	gin.SetMode(config.Mode)

	router := gin.New()
	if config.MaxUploadBytes > 0 {
		router.MaxMultipartMemory = config.MaxUploadBytes
	}

	server := &Server{
		config:   config,
		router:   router,
		handlers: NewHandlers(services, identity, config.MaxUploadBytes, logger),
		tokens:   tokens,
		metrics:  metrics,
		logger:   logger,
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server
}

// setupMiddleware configures middleware for the router
func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(s.loggingMiddleware())
	if s.metrics != nil {
		s.router.Use(s.metricsMiddleware())
	}
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	h := s.handlers

	s.router.GET("/health", h.HealthCheck)
	if s.metrics != nil {
		path := s.config.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		s.router.GET(path, gin.WrapH(s.metrics.Handler()))
	}

	api := s.router.Group("/api/v1", s.authMiddleware())
	{
		api.GET("/trips", h.ListTrips)
		api.POST("/trips", h.CreateTrip)
		api.GET("/trips/:id", h.GetTrip)
		api.PUT("/trips/:id", h.UpdateTrip)
		api.DELETE("/trips/:id", h.DeleteTrip)
		api.POST("/trips/:id/cancel", h.CancelTrip)
		api.POST("/trips/:id/proof-of-delivery", h.AttachProofOfDelivery)

		api.POST("/trips/:id/costs", h.AddCost)
		api.PUT("/trips/:id/costs/:costId", h.UpdateCost)
		api.DELETE("/trips/:id/costs/:costId", h.DeleteCost)
		api.POST("/trips/:id/costs/:costId/attachments", h.AttachCostDocument)
		api.POST("/trips/:id/costs/:costId/resolve", h.ResolveFlag)
		api.POST("/trips/:id/system-costs", h.GenerateSystemCosts)
		api.GET("/flags", h.ListFlagged)
		api.GET("/cost-categories", h.Categories)

		api.GET("/trips/:id/workflow", h.WorkflowState)
		api.POST("/trips/:id/workflow/advance", h.AdvanceWorkflow)
		api.POST("/trips/:id/workflow/retreat", h.RetreatWorkflow)

		api.GET("/trips/:id/edits", h.EditHistory)
		api.POST("/trips/:id/edits", h.EditCompletedTrip)
		api.GET("/deletions", h.DeletionRecords)
		api.GET("/audit/reasons", h.AuditReasons)

		api.POST("/trips/:id/invoice", h.SubmitInvoice)
		api.GET("/trips/:id/invoice", h.GetInvoice)
		api.POST("/trips/:id/invoice/payment", h.MarkPaid)
		api.POST("/trips/:id/invoice/reminders", h.SendReminder)
		api.POST("/trips/:id/invoice/escalations", h.Escalate)
		api.GET("/invoices/outstanding", h.ListOutstanding)

		api.POST("/trips/:id/reports", h.GenerateReport)
	}
}

// Start starts the HTTP server and blocks until ctx is cancelled
func (s *Server) Start(ctx context.Context) error {
	addr := s.Address()

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	s.logger.Info("Starting HTTP server", "address", addr)

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("HTTP server shutdown requested")
		return s.Stop()
	case err := <-errCh:
		s.logger.Error("HTTP server error", "error", err)
		return err
	}
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
		return err
	}

	s.logger.Info("HTTP server stopped")
	return nil
}

// Router returns the underlying gin router (for testing)
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Address returns the server address
func (s *Server) Address() string {
	return fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
}
