package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"example.com/shopfloor/services/report/internal/repositories"
	"example.com/shopfloor/services/report/internal/services"
	"example.com/shopfloor/services/report/internal/tracing"
)

// ReportHandler handles timeline report requests
type ReportHandler struct {
	reportService *services.ReportService
	tracer        tracing.Tracer
}

// NewReportHandler creates a new report handler
func NewReportHandler(reportService *services.ReportService, tracer tracing.Tracer) *ReportHandler {
	return &ReportHandler{reportService: reportService, tracer: tracer}
}

// HandleGetTimeline builds or serves the timeline report for one machine
func (h *ReportHandler) HandleGetTimeline(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-get-timeline")
	defer h.tracer.EndTransaction(txn)

	mcu := c.Query("mcu")
	if mcu == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "mcu is required"})
		return
	}
	from, to, err := parseWindow(c.Query("from"), c.Query("to"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	force, _ := strconv.ParseBool(c.DefaultQuery("force", "false"))

	h.tracer.AddAttribute(txn, "mcu", mcu)

	report, err := h.reportService.BuildTimeline(c.Request.Context(), mcu, from, to, force)
	if err != nil {
		log.Error().Err(err).Str("mcu", mcu).Msg("Failed to build timeline report")
		h.tracer.RecordError(txn, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to build timeline report"})
		return
	}

	c.JSON(http.StatusOK, report)
}

// HandleGetSnapshots lists one machine's precomputed daily snapshots
func (h *ReportHandler) HandleGetSnapshots(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-get-snapshots")
	defer h.tracer.EndTransaction(txn)

	mcu := c.Query("mcu")
	if mcu == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "mcu is required"})
		return
	}
	from, to, err := parseWindow(c.Query("from"), c.Query("to"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	snaps, err := h.reportService.Snapshots(c.Request.Context(), mcu, from, to)
	if err != nil {
		log.Error().Err(err).Str("mcu", mcu).Msg("Failed to list report snapshots")
		h.tracer.RecordError(txn, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list report snapshots"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"snapshots": snaps, "count": len(snaps)})
}

// HandleGetWorkOrder returns one work order with its extensions
func (h *ReportHandler) HandleGetWorkOrder(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-get-work-order")
	defer h.tracer.EndTransaction(txn)

	ref := c.Param("ref")
	h.tracer.AddAttribute(txn, "order_ref", ref)

	order, err := h.reportService.WorkOrder(c.Request.Context(), ref)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "work order not found"})
			return
		}
		log.Error().Err(err).Str("order_ref", ref).Msg("Failed to load work order")
		h.tracer.RecordError(txn, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load work order"})
		return
	}

	c.JSON(http.StatusOK, order)
}

// HandleSearchSummaries queries the indexed snapshot summaries, optionally
// narrowed to one machine
func (h *ReportHandler) HandleSearchSummaries(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-search-summaries")
	defer h.tracer.EndTransaction(txn)

	from, to, err := parseWindow(c.Query("from"), c.Query("to"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	docs, err := h.reportService.SearchSummaries(c.Request.Context(), c.Query("mcu"), from, to)
	if err != nil {
		log.Error().Err(err).Msg("Failed to search report summaries")
		h.tracer.RecordError(txn, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to search report summaries"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"summaries": docs, "count": len(docs)})
}

// RegisterRoutes registers the report API routes
func (h *ReportHandler) RegisterRoutes(router *gin.Engine) {
	v1 := router.Group("/api/v1")
	{
		v1.GET("/reports/timeline", h.HandleGetTimeline)
		v1.GET("/reports/snapshots", h.HandleGetSnapshots)
		v1.GET("/reports/summaries", h.HandleSearchSummaries)
		v1.GET("/orders/:ref", h.HandleGetWorkOrder)
	}
}

// parseWindow accepts RFC3339 or unix-second bounds. An empty window
// defaults to the last 24 hours.
func parseWindow(fromRaw, toRaw string) (time.Time, time.Time, error) {
	now := time.Now().UTC()
	from, to := now.Add(-24*time.Hour), now

	var err error
	if fromRaw != "" {
		if from, err = parseTime(fromRaw); err != nil {
			return time.Time{}, time.Time{}, errors.Wrap(err, "invalid from bound")
		}
	}
	if toRaw != "" {
		if to, err = parseTime(toRaw); err != nil {
			return time.Time{}, time.Time{}, errors.Wrap(err, "invalid to bound")
		}
	}
	if !to.After(from) {
		return time.Time{}, time.Time{}, errors.New("window is empty")
	}
	return from, to, nil
}

func parseTime(raw string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, raw); err == nil {
		return ts.UTC(), nil
	}
	unix, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, errors.Errorf("unrecognized time %q", raw)
	}
	return time.Unix(unix, 0).UTC(), nil
}
