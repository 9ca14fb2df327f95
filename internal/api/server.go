package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"example.com/shopfloor/services/report/config"
	"example.com/shopfloor/services/report/internal/api/handlers"
	"example.com/shopfloor/services/report/internal/api/middleware"
	"example.com/shopfloor/services/report/internal/metrics"
	"example.com/shopfloor/services/report/internal/services"
	"example.com/shopfloor/services/report/internal/tracing"
)

// Server represents the HTTP server
type Server struct {
	config        config.Config
	router        *gin.Engine
	httpServer    *http.Server
	reportService *services.ReportService
	ingestService *services.IngestService
	metrics       *metrics.Metrics
	tracer        tracing.Tracer
}

// NewServer creates a new HTTP server
func NewServer(
	cfg config.Config,
	reportService *services.ReportService,
	ingestService *services.IngestService,
	metricsCollector *metrics.Metrics,
	tracer tracing.Tracer,
) *Server {
	server := &Server{
		config:        cfg,
		reportService: reportService,
		ingestService: ingestService,
		metrics:       metricsCollector,
		tracer:        tracer,
	}

	server.router = server.setupRouter()
	server.httpServer = &http.Server{
		Addr:    cfg.ServerAddress,
		Handler: server.router,
	}

	return server
}

// setupRouter configures the HTTP router
func (s *Server) setupRouter() *gin.Engine {
	if s.config.Environment != "development" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger())
	if s.config.MetricsEnabled {
		router.Use(middleware.Metrics(s.metrics))
	}

	handlers.NewIngestHandler(s.ingestService, s.tracer).RegisterRoutes(router)
	handlers.NewReportHandler(s.reportService, s.tracer).RegisterRoutes(router)
	handlers.NewMetricsHandler(s.metrics, s.tracer).RegisterRoutes(router)

	return router
}

// Start starts the HTTP server
func (s *Server) Start() error {
	log.Info().Str("address", s.config.ServerAddress).Msg("Starting HTTP server")

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return errors.Wrap(err, "failed to start server")
	}
	return nil
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("Shutting down HTTP server")

	shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ServerTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "server shutdown failed")
	}
	return nil
}
