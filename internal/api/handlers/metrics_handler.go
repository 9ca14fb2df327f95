package handlers

import (
	"net/http"
	"runtime"

	"github.com/gin-gonic/gin"

	"example.com/shopfloor/services/report/internal/metrics"
	"example.com/shopfloor/services/report/internal/tracing"
)

// MetricsHandler exposes the in-memory metrics and health state
type MetricsHandler struct {
	metrics *metrics.Metrics
	tracer  tracing.Tracer
}

// NewMetricsHandler creates a new metrics handler
func NewMetricsHandler(metricsCollector *metrics.Metrics, tracer tracing.Tracer) *MetricsHandler {
	return &MetricsHandler{metrics: metricsCollector, tracer: tracer}
}

// HandleGetMetrics returns all collected metrics
func (h *MetricsHandler) HandleGetMetrics(c *gin.Context) {
	h.metrics.SetGauge("goroutines", int64(runtime.NumGoroutine()))
	c.JSON(http.StatusOK, h.metrics.GetAllMetrics())
}

// HandleGetHealthCheck reports overall service health from the component
// health checks
func (h *MetricsHandler) HandleGetHealthCheck(c *gin.Context) {
	checks := h.metrics.GetHealthChecks()

	healthy := true
	for _, ok := range checks {
		if !ok {
			healthy = false
			break
		}
	}

	status := http.StatusOK
	state := "healthy"
	if !healthy {
		status = http.StatusServiceUnavailable
		state = "unhealthy"
	}

	c.JSON(status, gin.H{
		"status":         state,
		"uptime_seconds": h.metrics.GetUptimeSeconds(),
		"checks":         checks,
	})
}

// RegisterRoutes registers the metrics and health routes
func (h *MetricsHandler) RegisterRoutes(router *gin.Engine) {
	router.GET("/metrics", h.HandleGetMetrics)
	router.GET("/health", h.HandleGetHealthCheck)
}
