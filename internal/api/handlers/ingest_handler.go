package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"example.com/shopfloor/services/report/internal/models"
	"example.com/shopfloor/services/report/internal/services"
	"example.com/shopfloor/services/report/internal/tracing"
)

// IngestHandler handles machine event ingest requests
type IngestHandler struct {
	ingestService *services.IngestService
	tracer        tracing.Tracer
}

// NewIngestHandler creates a new ingest handler
func NewIngestHandler(ingestService *services.IngestService, tracer tracing.Tracer) *IngestHandler {
	return &IngestHandler{ingestService: ingestService, tracer: tracer}
}

// IngestResponse is the response for a single stored event
type IngestResponse struct {
	ID        string `json:"id"`
	EventID   string `json:"event_id"`
	Duplicate bool   `json:"duplicate"`
}

// HandleIngestEvent stores one machine event. Replays of an already stored
// event id answer 200 instead of 201.
func (h *IngestHandler) HandleIngestEvent(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-ingest-event")
	defer h.tracer.EndTransaction(txn)

	var payload models.LogPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.tracer.AddAttribute(txn, "mcu", payload.MCU)
	h.tracer.AddAttribute(txn, "event_id", payload.EventID)

	entry, duplicate, err := h.ingestService.IngestEvent(c.Request.Context(), &payload)
	if err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		log.Error().Err(err).Str("event_id", payload.EventID).Msg("Failed to ingest event")
		h.tracer.RecordError(txn, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to ingest event"})
		return
	}

	status := http.StatusCreated
	if duplicate {
		status = http.StatusOK
	}
	c.JSON(status, IngestResponse{
		ID:        entry.ID.String(),
		EventID:   entry.EventID,
		Duplicate: duplicate,
	})
}

// HandleIngestBatch stores a batch of machine events
func (h *IngestHandler) HandleIngestBatch(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-ingest-batch")
	defer h.tracer.EndTransaction(txn)

	var payloads []models.LogPayload
	if err := c.ShouldBindJSON(&payloads); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.tracer.AddAttribute(txn, "batch_size", len(payloads))

	result, err := h.ingestService.IngestBatch(c.Request.Context(), payloads)
	if err != nil {
		if errors.Is(err, services.ErrBatchTooLarge) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		log.Error().Err(err).Msg("Failed to ingest batch")
		h.tracer.RecordError(txn, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to ingest batch"})
		return
	}

	c.JSON(http.StatusOK, result)
}

// RegisterRoutes registers the ingest API routes
func (h *IngestHandler) RegisterRoutes(router *gin.Engine) {
	v1 := router.Group("/api/v1")
	{
		v1.POST("/logs", h.HandleIngestEvent)
		v1.POST("/logs/batch", h.HandleIngestBatch)
	}
}
