package services

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"example.com/shopfloor/services/report/config"
	"example.com/shopfloor/services/report/internal/cache"
	"example.com/shopfloor/services/report/internal/messaging"
	"example.com/shopfloor/services/report/internal/metrics"
	"example.com/shopfloor/services/report/internal/models"
	"example.com/shopfloor/services/report/internal/repositories"
	"example.com/shopfloor/services/report/internal/search"
	"example.com/shopfloor/services/report/internal/timeline"
	"example.com/shopfloor/services/report/internal/tracing"
)

// MachineLogStore is the slice of the log repository the report service uses
type MachineLogStore interface {
	ListWindow(ctx context.Context, mcu string, from, to time.Time) ([]models.MachineLog, error)
	DistinctMCUs(ctx context.Context, from, to time.Time) ([]string, error)
}

// WorkOrderStore resolves work-order metadata for report windows
type WorkOrderStore interface {
	GetByRef(ctx context.Context, ref string) (*models.WorkOrder, error)
	ListByRefs(ctx context.Context, refs []string) ([]models.WorkOrder, error)
}

// DeviceStore resolves device records for report enrichment
type DeviceStore interface {
	GetByMCU(ctx context.Context, mcu string) (*models.Device, error)
}

// SnapshotStore persists and lists precomputed report snapshots
type SnapshotStore interface {
	Upsert(ctx context.Context, snap *models.ReportSnapshot) error
	ListWindow(ctx context.Context, mcu string, from, to time.Time) ([]models.ReportSnapshot, error)
}

// Cache is the report cache surface, satisfied by cache.RedisCache
type Cache interface {
	Get(ctx context.Context, key string, value interface{}) error
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
}

// SummaryIndexer indexes snapshot summaries for fleet-wide search
type SummaryIndexer interface {
	IndexReportSummary(ctx context.Context, snap *models.ReportSnapshot) error
	SearchSummaries(ctx context.Context, query map[string]interface{}) ([]map[string]interface{}, error)
}

// ReportService builds production timeline reports from stored machine
// events, serving cached copies when possible and precomputing daily
// snapshots in the background worker.
type ReportService struct {
	logRepo    MachineLogStore
	orderRepo  WorkOrderStore
	deviceRepo DeviceStore
	snapRepo   SnapshotStore
	cache      Cache
	indexer    SummaryIndexer
	notifier   messaging.ServiceBusClient
	metrics    *metrics.Metrics
	tracer     tracing.Tracer
	builder    *timeline.Builder
	opts       timeline.Options
	cacheTTL   time.Duration
}

// NewReportService creates a new report service. Cache, indexer and
// notifier may be absent; the service then builds every report live and
// skips indexing and announcements.
func NewReportService(
	db *gorm.DB,
	readOnlyDB *gorm.DB,
	redisCache *cache.RedisCache,
	elasticClient *search.ElasticClient,
	notifier messaging.ServiceBusClient,
	metricsCollector *metrics.Metrics,
	tracer tracing.Tracer,
	cfg config.ReportConfig,
) *ReportService {
	opts := PipelineOptions(cfg)
	svc := &ReportService{
		logRepo:    repositories.NewMachineLogRepository(db, readOnlyDB),
		orderRepo:  repositories.NewWorkOrderRepository(db, readOnlyDB),
		deviceRepo: repositories.NewDeviceRepository(db, readOnlyDB),
		snapRepo:   repositories.NewReportSnapshotRepository(db, readOnlyDB),
		notifier:   notifier,
		metrics:    metricsCollector,
		tracer:     tracer,
		builder:    timeline.NewBuilder(opts),
		opts:       opts,
		cacheTTL:   cfg.CacheTTL,
	}
	if redisCache.Enabled() {
		svc.cache = redisCache
	}
	if elasticClient != nil {
		svc.indexer = elasticClient
	}
	return svc
}

// PipelineOptions materializes the report config section into the explicit
// options value the pipeline takes. The pipeline itself never reads config.
func PipelineOptions(cfg config.ReportConfig) timeline.Options {
	return timeline.Options{
		ToleranceSec:             cfg.ToleranceSec,
		ThresholdPct:             cfg.ThresholdPct,
		MinThresholdSec:          cfg.MinThresholdSec,
		WarningPct:               cfg.WarningPct,
		RollingMedianWindow:      cfg.RollingMedianWindow,
		FallbackIdealSec:         cfg.FallbackIdealSec,
		QuantitySanityMultiplier: cfg.QuantitySanityMultiplier,
		BreakKeywords:            cfg.BreakKeywords,
	}
}

// BuildTimeline builds the timeline report for one machine and window,
// serving the cached copy unless force is set.
func (s *ReportService) BuildTimeline(ctx context.Context, mcu string, from, to time.Time, force bool) (*models.TimelineReport, error) {
	txn := s.tracer.StartTransaction("build-timeline-report")
	defer s.tracer.EndTransaction(txn)
	s.tracer.AddAttribute(txn, "mcu", mcu)

	key := cache.ReportKey(mcu, from, to, s.optionsFingerprint())
	if !force && s.cache != nil {
		var cached models.TimelineReport
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			s.metrics.IncrementCounter("report.cache_hits")
			return &cached, nil
		}
	}

	start := time.Now()

	span := s.tracer.StartSpan("load-machine-logs", txn)
	logs, err := s.logRepo.ListWindow(ctx, mcu, from, to)
	span.End()
	if err != nil {
		s.tracer.RecordError(txn, err)
		return nil, errors.Wrap(err, "failed to load machine logs")
	}

	events := make([]timeline.LogEvent, 0, len(logs))
	for _, l := range logs {
		events = append(events, toLogEvent(l))
	}

	span = s.tracer.StartSpan("load-work-orders", txn)
	orders, err := s.loadOrderMeta(ctx, events)
	span.End()
	if err != nil {
		s.tracer.RecordError(txn, err)
		return nil, err
	}

	span = s.tracer.StartSpan("run-pipeline", txn)
	report, err := s.builder.Build(events, orders)
	span.End()
	if err != nil {
		s.tracer.RecordError(txn, err)
		return nil, errors.Wrap(err, "failed to build timeline")
	}

	doc := &models.TimelineReport{
		MCU:         mcu,
		WindowFrom:  from,
		WindowTo:    to,
		GeneratedAt: time.Now().UTC(),
		Rows:        toReportRows(report.Rows),
		Stats:       toReportStats(report.Stats),
	}
	if device, err := s.deviceRepo.GetByMCU(ctx, mcu); err == nil {
		doc.Device = &models.DeviceInfo{MCU: device.MCU, Name: device.Name, Line: device.Line}
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, doc, s.cacheTTL); err != nil {
			log.Warn().Err(err).Str("mcu", mcu).Msg("Failed to cache timeline report")
		}
	}

	s.metrics.IncrementCounter("report.builds")
	s.metrics.TimeSince("report.build_ms", start)

	log.Info().
		Str("mcu", mcu).
		Int("events", len(logs)).
		Int("rows", len(doc.Rows)).
		Float64("utilization_pct", doc.Stats.UtilizationPct).
		Msg("Timeline report built")

	return doc, nil
}

// loadOrderMeta resolves work-order metadata for every order referenced in
// the window. Orders with no stored record fall back to whatever their
// first ORDER_START event carried.
func (s *ReportService) loadOrderMeta(ctx context.Context, events []timeline.LogEvent) (map[string]timeline.OrderMeta, error) {
	var refs []string
	starts := make(map[string]timeline.LogEvent)
	seen := make(map[string]struct{})
	for _, e := range events {
		if e.OrderID == "" {
			continue
		}
		if _, ok := seen[e.OrderID]; !ok {
			seen[e.OrderID] = struct{}{}
			refs = append(refs, e.OrderID)
		}
		if e.Action == timeline.ActionOrderStart {
			if _, ok := starts[e.OrderID]; !ok {
				starts[e.OrderID] = e
			}
		}
	}
	if len(refs) == 0 {
		return nil, nil
	}

	stored, err := s.orderRepo.ListByRefs(ctx, refs)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load work orders")
	}

	orders := make(map[string]timeline.OrderMeta, len(refs))
	for _, wo := range stored {
		orders[wo.OrderRef] = toOrderMeta(wo)
	}
	for _, ref := range refs {
		if _, ok := orders[ref]; ok {
			continue
		}
		if start, ok := starts[ref]; ok {
			orders[ref] = orderMetaFromEvent(ref, start)
		}
	}
	return orders, nil
}

// optionsFingerprint keys cached reports by the tuning that produced them
func (s *ReportService) optionsFingerprint() string {
	data, _ := json.Marshal(s.opts)
	h := fnv.New64a()
	h.Write(data)
	return fmt.Sprintf("%x", h.Sum64())
}

// WorkOrder returns one work order with its extensions. Missing references
// surface repositories.ErrNotFound for the handler's 404 mapping.
func (s *ReportService) WorkOrder(ctx context.Context, ref string) (*models.WorkOrder, error) {
	return s.orderRepo.GetByRef(ctx, ref)
}

// Snapshots lists one machine's stored snapshots with days inside [from, to)
func (s *ReportService) Snapshots(ctx context.Context, mcu string, from, to time.Time) ([]models.ReportSnapshot, error) {
	snaps, err := s.snapRepo.ListWindow(ctx, mcu, from, to)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list report snapshots")
	}
	return snaps, nil
}

// SnapshotWindow builds the report for one machine and window and persists
// it as a snapshot, indexing the summary and announcing it when those sinks
// are configured.
func (s *ReportService) SnapshotWindow(ctx context.Context, mcu string, from, to time.Time) (*models.ReportSnapshot, error) {
	report, err := s.BuildTimeline(ctx, mcu, from, to, true)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(report)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal snapshot payload")
	}

	day := from.UTC().Truncate(24 * time.Hour)
	snap := &models.ReportSnapshot{
		ID:             uuid.New(),
		MCU:            mcu,
		Day:            day,
		WindowFrom:     from,
		WindowTo:       to,
		RowCount:       len(report.Rows),
		TotalJobs:      report.Stats.TotalJobs,
		TotalCycles:    report.Stats.TotalCycles,
		CuttingSec:     report.Stats.CuttingSec,
		PauseSec:       report.Stats.PauseSec,
		LoadingSec:     report.Stats.LoadingSec,
		IdleSec:        report.Stats.IdleSec,
		UtilizationPct: report.Stats.UtilizationPct,
		Payload:        payload,
	}
	if err := s.snapRepo.Upsert(ctx, snap); err != nil {
		return nil, errors.Wrap(err, "failed to persist report snapshot")
	}

	if s.indexer != nil {
		if err := s.indexer.IndexReportSummary(ctx, snap); err != nil {
			log.Warn().Err(err).Str("mcu", mcu).Msg("Failed to index report summary")
		}
	}
	if s.notifier != nil {
		notice := models.SnapshotNotice{
			EventType:      "snapshot_ready",
			MCU:            mcu,
			Day:            day.Format("2006-01-02"),
			UtilizationPct: snap.UtilizationPct,
			TotalJobs:      snap.TotalJobs,
			GeneratedAt:    report.GeneratedAt,
		}
		if err := s.notifier.SendMessage(ctx, notice); err != nil {
			log.Warn().Err(err).Str("mcu", mcu).Msg("Failed to announce report snapshot")
		}
	}

	return snap, nil
}

// ReconcileSnapshots precomputes yesterday's snapshot for every machine
// that logged events. Failures are logged per machine and the sweep
// continues.
func (s *ReportService) ReconcileSnapshots(ctx context.Context) error {
	txn := s.tracer.StartTransaction("reconcile-snapshots")
	defer s.tracer.EndTransaction(txn)

	to := time.Now().UTC().Truncate(24 * time.Hour)
	from := to.Add(-24 * time.Hour)

	mcus, err := s.logRepo.DistinctMCUs(ctx, from, to)
	if err != nil {
		s.tracer.RecordError(txn, err)
		return errors.Wrap(err, "failed to list machines with events")
	}

	log.Info().Msgf("Found %d machines with events to snapshot", len(mcus))

	for _, mcu := range mcus {
		if _, err := s.SnapshotWindow(ctx, mcu, from, to); err != nil {
			log.Error().Err(err).Str("mcu", mcu).Msg("Failed to snapshot machine day")
			s.tracer.RecordError(txn, err)
			continue
		}
		s.metrics.IncrementCounter("report.snapshots")
	}

	return nil
}

// SearchSummaries queries the snapshot summary index for days inside
// [from, to), newest first. MCU narrows the search to one machine.
func (s *ReportService) SearchSummaries(ctx context.Context, mcu string, from, to time.Time) ([]map[string]interface{}, error) {
	if s.indexer == nil {
		return nil, errors.New("summary search is not configured")
	}

	must := []map[string]interface{}{
		{"range": map[string]interface{}{"day": map[string]interface{}{"gte": from, "lt": to}}},
	}
	if mcu != "" {
		must = append(must, map[string]interface{}{"term": map[string]interface{}{"mcu.keyword": mcu}})
	}
	query := map[string]interface{}{
		"query": map[string]interface{}{"bool": map[string]interface{}{"must": must}},
		"sort":  []map[string]interface{}{{"day": map[string]interface{}{"order": "desc"}}},
		"size":  100,
	}

	docs, err := s.indexer.SearchSummaries(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, "summary search failed")
	}
	return docs, nil
}
