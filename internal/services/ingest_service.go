package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus"
	"github.com/google/uuid"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"example.com/shopfloor/services/report/internal/metrics"
	"example.com/shopfloor/services/report/internal/models"
	"example.com/shopfloor/services/report/internal/repositories"
	"example.com/shopfloor/services/report/internal/timeline"
	"example.com/shopfloor/services/report/internal/tracing"
	"example.com/shopfloor/services/report/internal/utils"
)

// ErrBatchTooLarge rejects ingest batches above the configured limit
var ErrBatchTooLarge = errors.New("batch exceeds the configured limit")

// MachineLogWriter is the slice of the log repository the ingest service uses
type MachineLogWriter interface {
	Create(ctx context.Context, entry *models.MachineLog) error
	GetByEventID(ctx context.Context, eventID string) (*models.MachineLog, error)
}

// DeviceToucher records device liveness at ingest time
type DeviceToucher interface {
	Touch(ctx context.Context, mcu string, seenAt time.Time) error
}

// WorkOrderRegistrar materializes work orders first seen on start events
type WorkOrderRegistrar interface {
	EnsureExists(ctx context.Context, order *models.WorkOrder) error
}

// IngestService validates and stores incoming machine events, from both the
// HTTP API and the Service Bus queue.
type IngestService struct {
	logRepo    MachineLogWriter
	deviceRepo DeviceToucher
	orderRepo  WorkOrderRegistrar
	metrics    *metrics.Metrics
	tracer     tracing.Tracer
	batchLimit int
}

// NewIngestService creates a new ingest service
func NewIngestService(
	db *gorm.DB,
	readOnlyDB *gorm.DB,
	metricsCollector *metrics.Metrics,
	tracer tracing.Tracer,
	batchLimit int,
) *IngestService {
	return &IngestService{
		logRepo:    repositories.NewMachineLogRepository(db, readOnlyDB),
		deviceRepo: repositories.NewDeviceRepository(db, readOnlyDB),
		orderRepo:  repositories.NewWorkOrderRepository(db, readOnlyDB),
		metrics:    metricsCollector,
		tracer:     tracer,
		batchLimit: batchLimit,
	}
}

// IngestEvent validates and stores one machine event. A replayed event id
// is not an error: the first stored occurrence wins and the replay reports
// itself as a duplicate, mirroring the report pipeline's dedup rule.
func (s *IngestService) IngestEvent(ctx context.Context, payload *models.LogPayload) (*models.MachineLog, bool, error) {
	txn := s.tracer.StartTransaction("ingest-event")
	defer s.tracer.EndTransaction(txn)

	if err := utils.ValidateStruct(payload); err != nil {
		s.tracer.RecordError(txn, err)
		return nil, false, errors.Wrap(err, "invalid event payload")
	}

	s.tracer.AddAttribute(txn, "mcu", payload.MCU)
	s.tracer.AddAttribute(txn, "event_id", payload.EventID)

	meta, err := utils.MarshalMeta(payload.Meta)
	if err != nil {
		return nil, false, err
	}

	entry := &models.MachineLog{
		ID:        uuid.New(),
		EventID:   payload.EventID,
		MCU:       payload.MCU,
		OrderRef:  payload.OrderRef,
		Action:    payload.Action,
		Timestamp: time.Unix(payload.Time, 0).UTC(),
		Meta:      meta,
	}

	span := s.tracer.StartSpan("store-event", txn)
	err = s.logRepo.Create(ctx, entry)
	span.End()

	if errors.Is(err, repositories.ErrDuplicateKey) {
		existing, getErr := s.logRepo.GetByEventID(ctx, payload.EventID)
		if getErr != nil {
			return nil, true, errors.Wrap(getErr, "failed to load existing event")
		}
		s.metrics.IncrementCounter("ingest.duplicates")
		log.Debug().Str("event_id", payload.EventID).Msg("Dropped replayed event")
		return existing, true, nil
	}
	if err != nil {
		s.tracer.RecordError(txn, err)
		s.metrics.RecordError("ingest")
		return nil, false, errors.Wrap(err, "failed to store event")
	}

	if err := s.deviceRepo.Touch(ctx, payload.MCU, entry.Timestamp); err != nil {
		log.Warn().Err(err).Str("mcu", payload.MCU).Msg("Failed to update device last-seen")
	}

	if timeline.Action(payload.Action) == timeline.ActionOrderStart && payload.OrderRef != "" {
		if err := s.orderRepo.EnsureExists(ctx, workOrderFromPayload(payload)); err != nil {
			log.Warn().Err(err).Str("order_ref", payload.OrderRef).Msg("Failed to register work order")
		}
	}

	s.metrics.IncrementCounter("ingest.events")
	s.metrics.RecordSuccess("ingest")

	return entry, false, nil
}

// BatchResult summarizes one ingest batch
type BatchResult struct {
	Total      int `json:"total"`
	Stored     int `json:"stored"`
	Duplicates int `json:"duplicates"`
	Rejected   int `json:"rejected"`
}

// IngestBatch stores a bounded batch of events. Invalid entries are counted
// and skipped rather than failing the whole batch.
func (s *IngestService) IngestBatch(ctx context.Context, payloads []models.LogPayload) (*BatchResult, error) {
	if s.batchLimit > 0 && len(payloads) > s.batchLimit {
		return nil, errors.Wrapf(ErrBatchTooLarge, "%d events, limit %d", len(payloads), s.batchLimit)
	}

	result := &BatchResult{Total: len(payloads)}
	for i := range payloads {
		_, duplicate, err := s.IngestEvent(ctx, &payloads[i])
		switch {
		case err != nil:
			result.Rejected++
			log.Warn().Err(err).Str("event_id", payloads[i].EventID).Msg("Rejected batch event")
		case duplicate:
			result.Duplicates++
		default:
			result.Stored++
		}
	}
	return result, nil
}

// ProcessEventMessage ingests one machine event from the Service Bus queue
func (s *IngestService) ProcessEventMessage(ctx context.Context, message *azservicebus.ReceivedMessage, txn *newrelic.Transaction) error {
	span := s.tracer.StartSpan("extract-event-payload", txn)
	payload, err := ExtractEventPayload(message)
	span.End()
	if err != nil {
		return errors.Wrap(err, "failed to extract event payload")
	}

	_, duplicate, err := s.IngestEvent(ctx, payload)
	if err != nil {
		return errors.Wrap(err, "failed to ingest event message")
	}

	log.Info().
		Str("event_id", payload.EventID).
		Str("mcu", payload.MCU).
		Bool("duplicate", duplicate).
		Msg("Event message processed")

	return nil
}

// ExtractEventPayload decodes the Service Bus envelope into an event
// payload. Devices either wrap the payload in {"ev","mcu","payload"} or
// send the flat payload shape directly; the action and machine id fall
// back to the envelope when the payload omits them.
func ExtractEventPayload(message *azservicebus.ReceivedMessage) (*models.LogPayload, error) {
	var envelope struct {
		EventType string          `json:"ev"`
		Mcu       string          `json:"mcu"`
		Payload   json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(message.Body, &envelope); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal message")
	}

	var payload models.LogPayload
	if len(envelope.Payload) > 0 {
		if err := json.Unmarshal(envelope.Payload, &payload); err != nil {
			return nil, errors.Wrap(err, "failed to unmarshal payload")
		}
	} else if err := json.Unmarshal(message.Body, &payload); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal payload")
	}

	if payload.Action == "" {
		payload.Action = envelope.EventType
	}
	if payload.MCU == "" {
		payload.MCU = envelope.Mcu
	}
	return &payload, nil
}
