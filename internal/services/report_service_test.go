package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"example.com/shopfloor/services/report/config"
	"example.com/shopfloor/services/report/internal/metrics"
	"example.com/shopfloor/services/report/internal/models"
	"example.com/shopfloor/services/report/internal/repositories"
	"example.com/shopfloor/services/report/internal/timeline"
	"example.com/shopfloor/services/report/internal/tracing"
)

// MockMachineLogStore is a mock implementation of the machine log store
type MockMachineLogStore struct {
	mock.Mock
}

func (m *MockMachineLogStore) ListWindow(ctx context.Context, mcu string, from, to time.Time) ([]models.MachineLog, error) {
	args := m.Called(ctx, mcu, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.MachineLog), args.Error(1)
}

func (m *MockMachineLogStore) DistinctMCUs(ctx context.Context, from, to time.Time) ([]string, error) {
	args := m.Called(ctx, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

// MockWorkOrderStore is a mock implementation of the work order store
type MockWorkOrderStore struct {
	mock.Mock
}

func (m *MockWorkOrderStore) GetByRef(ctx context.Context, ref string) (*models.WorkOrder, error) {
	args := m.Called(ctx, ref)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.WorkOrder), args.Error(1)
}

func (m *MockWorkOrderStore) ListByRefs(ctx context.Context, refs []string) ([]models.WorkOrder, error) {
	args := m.Called(ctx, refs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.WorkOrder), args.Error(1)
}

// MockDeviceStore is a mock implementation of the device store
type MockDeviceStore struct {
	mock.Mock
}

func (m *MockDeviceStore) GetByMCU(ctx context.Context, mcu string) (*models.Device, error) {
	args := m.Called(ctx, mcu)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Device), args.Error(1)
}

// MockSnapshotStore is a mock implementation of the snapshot store
type MockSnapshotStore struct {
	mock.Mock
}

func (m *MockSnapshotStore) Upsert(ctx context.Context, snap *models.ReportSnapshot) error {
	args := m.Called(ctx, snap)
	return args.Error(0)
}

func (m *MockSnapshotStore) ListWindow(ctx context.Context, mcu string, from, to time.Time) ([]models.ReportSnapshot, error) {
	args := m.Called(ctx, mcu, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ReportSnapshot), args.Error(1)
}

// MockCache is a mock implementation of the report cache
type MockCache struct {
	mock.Mock
}

func (m *MockCache) Get(ctx context.Context, key string, value interface{}) error {
	args := m.Called(ctx, key, value)
	return args.Error(0)
}

func (m *MockCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	args := m.Called(ctx, key, value, expiration)
	return args.Error(0)
}

// MockIndexer is a mock implementation of the summary indexer
type MockIndexer struct {
	mock.Mock
}

func (m *MockIndexer) IndexReportSummary(ctx context.Context, snap *models.ReportSnapshot) error {
	args := m.Called(ctx, snap)
	return args.Error(0)
}

func (m *MockIndexer) SearchSummaries(ctx context.Context, query map[string]interface{}) ([]map[string]interface{}, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]map[string]interface{}), args.Error(1)
}

// MockNotifier is a mock implementation of the Service Bus sender
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) SendMessage(ctx context.Context, body interface{}) error {
	args := m.Called(ctx, body)
	return args.Error(0)
}

func (m *MockNotifier) Close() error {
	args := m.Called()
	return args.Error(0)
}

func noopTracer(t *testing.T) tracing.Tracer {
	t.Helper()
	tracer, err := tracing.NewTracer(config.TracingConfig{})
	require.NoError(t, err)
	return tracer
}

func newTestReportService(t *testing.T, logs MachineLogStore, orders WorkOrderStore, devices DeviceStore, snaps SnapshotStore) *ReportService {
	t.Helper()
	opts := timeline.DefaultOptions()
	return &ReportService{
		logRepo:    logs,
		orderRepo:  orders,
		deviceRepo: devices,
		snapRepo:   snaps,
		metrics:    metrics.NewMetrics(),
		tracer:     noopTracer(t),
		builder:    timeline.NewBuilder(opts),
		opts:       opts,
		cacheTTL:   time.Minute,
	}
}

func logAt(eventID, mcu string, action timeline.Action, orderRef string, at time.Time, meta []byte) models.MachineLog {
	return models.MachineLog{
		ID:        uuid.New(),
		EventID:   eventID,
		MCU:       mcu,
		OrderRef:  orderRef,
		Action:    string(action),
		Timestamp: at,
		Meta:      meta,
	}
}

func TestBuildTimelineHappyPath(t *testing.T) {
	t0 := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	mockLogs := new(MockMachineLogStore)
	mockOrders := new(MockWorkOrderStore)
	mockDevices := new(MockDeviceStore)
	mockSnaps := new(MockSnapshotStore)

	mockLogs.On("ListWindow", mock.Anything, "mcu-1", mock.Anything, mock.Anything).Return([]models.MachineLog{
		logAt("e1", "mcu-1", timeline.ActionOrderStart, "WO-1", t0, nil),
		logAt("e2", "mcu-1", timeline.ActionCycleStart, "WO-1", t0.Add(30*time.Second), nil),
		logAt("e3", "mcu-1", timeline.ActionCycleEnd, "WO-1", t0.Add(150*time.Second), nil),
		logAt("e4", "mcu-1", timeline.ActionOrderStop, "WO-1", t0.Add(180*time.Second), nil),
	}, nil)
	mockOrders.On("ListByRefs", mock.Anything, []string{"WO-1"}).Return([]models.WorkOrder{
		{OrderRef: "WO-1", PartName: "flange", TargetSeconds: 130, OperatorID: "op-7", OperatorName: "Asha"},
	}, nil)
	mockDevices.On("GetByMCU", mock.Anything, "mcu-1").Return(nil, repositories.ErrNotFound)

	service := newTestReportService(t, mockLogs, mockOrders, mockDevices, mockSnaps)

	doc, err := service.BuildTimeline(context.Background(), "mcu-1", t0, t0.Add(6*time.Hour), false)
	require.NoError(t, err)
	require.Equal(t, "mcu-1", doc.MCU)
	require.Nil(t, doc.Device)

	require.Len(t, doc.Rows, 7)
	require.Equal(t, "ORDER_SUMMARY", doc.Rows[0].Kind)
	require.Equal(t, "ORDER_HEADER", doc.Rows[len(doc.Rows)-1].Kind)

	var serials []int
	for _, row := range doc.Rows {
		if row.Kind == "EVENT" {
			serials = append(serials, row.Serial)
		}
		if row.EventID == "e3" {
			require.InDelta(t, 120, row.CycleSeconds, 1e-9)
			require.NotNil(t, row.Verdict)
			require.Equal(t, "GOOD", row.Verdict.Class)
		}
	}
	require.Equal(t, []int{1, 2, 3, 4}, serials)

	require.Equal(t, 1, doc.Stats.TotalJobs)
	require.Equal(t, 1, doc.Stats.TotalCycles)
	require.InDelta(t, 120, doc.Stats.CuttingSec, 1e-9)
	require.InDelta(t, 180, doc.Stats.TotalSec, 1e-9)
	require.InDelta(t, 100.0*120/180, doc.Stats.UtilizationPct, 1e-9)

	require.Len(t, doc.Stats.Operators, 1)
	require.Equal(t, "op-7", doc.Stats.Operators[0].OperatorID)

	mockLogs.AssertExpectations(t)
	mockOrders.AssertExpectations(t)
}

func TestBuildTimelineServesCachedCopy(t *testing.T) {
	t0 := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	mockLogs := new(MockMachineLogStore)
	mockCache := new(MockCache)

	mockCache.On("Get", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			out := args.Get(2).(*models.TimelineReport)
			*out = models.TimelineReport{MCU: "mcu-1"}
		}).
		Return(nil)

	service := newTestReportService(t, mockLogs, new(MockWorkOrderStore), new(MockDeviceStore), new(MockSnapshotStore))
	service.cache = mockCache

	doc, err := service.BuildTimeline(context.Background(), "mcu-1", t0, t0.Add(time.Hour), false)
	require.NoError(t, err)
	require.Equal(t, "mcu-1", doc.MCU)

	mockLogs.AssertNotCalled(t, "ListWindow", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestBuildTimelineForceBypassesCache(t *testing.T) {
	t0 := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	mockLogs := new(MockMachineLogStore)
	mockDevices := new(MockDeviceStore)
	mockCache := new(MockCache)

	mockLogs.On("ListWindow", mock.Anything, "mcu-1", mock.Anything, mock.Anything).Return([]models.MachineLog{}, nil)
	mockDevices.On("GetByMCU", mock.Anything, "mcu-1").Return(nil, repositories.ErrNotFound)
	mockCache.On("Set", mock.Anything, mock.Anything, mock.Anything, time.Minute).Return(nil)

	service := newTestReportService(t, mockLogs, new(MockWorkOrderStore), mockDevices, new(MockSnapshotStore))
	service.cache = mockCache

	doc, err := service.BuildTimeline(context.Background(), "mcu-1", t0, t0.Add(time.Hour), true)
	require.NoError(t, err)
	require.Empty(t, doc.Rows)

	mockCache.AssertNotCalled(t, "Get", mock.Anything, mock.Anything, mock.Anything)
	mockCache.AssertCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything, time.Minute)
}

func TestBuildTimelineFallsBackToStartEventMeta(t *testing.T) {
	t0 := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	mockLogs := new(MockMachineLogStore)
	mockOrders := new(MockWorkOrderStore)
	mockDevices := new(MockDeviceStore)

	startMeta := []byte(`{"target_sec":"700","part_name":"bracket","operator_id":"op-2"}`)
	mockLogs.On("ListWindow", mock.Anything, "mcu-1", mock.Anything, mock.Anything).Return([]models.MachineLog{
		logAt("e1", "mcu-1", timeline.ActionOrderStart, "WO-9", t0, startMeta),
		logAt("e2", "mcu-1", timeline.ActionCycleStart, "WO-9", t0.Add(10*time.Second), nil),
		logAt("e3", "mcu-1", timeline.ActionCycleEnd, "WO-9", t0.Add(710*time.Second), nil),
		logAt("e4", "mcu-1", timeline.ActionOrderStop, "WO-9", t0.Add(720*time.Second), nil),
	}, nil)
	mockOrders.On("ListByRefs", mock.Anything, []string{"WO-9"}).Return([]models.WorkOrder{}, nil)
	mockDevices.On("GetByMCU", mock.Anything, "mcu-1").Return(nil, repositories.ErrNotFound)

	service := newTestReportService(t, mockLogs, mockOrders, mockDevices, new(MockSnapshotStore))

	doc, err := service.BuildTimeline(context.Background(), "mcu-1", t0, t0.Add(time.Hour), false)
	require.NoError(t, err)

	require.Len(t, doc.Stats.Orders, 1)
	require.Equal(t, "WO-9", doc.Stats.Orders[0].OrderRef)
	require.Equal(t, "bracket", doc.Stats.Orders[0].PartName)
	require.InDelta(t, 700, doc.Stats.Orders[0].TargetSec, 1e-9)
	require.Len(t, doc.Stats.Operators, 1)
	require.Equal(t, "op-2", doc.Stats.Operators[0].OperatorID)
}

func TestSnapshotWindowPersistsIndexesAndNotifies(t *testing.T) {
	t0 := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	mockLogs := new(MockMachineLogStore)
	mockOrders := new(MockWorkOrderStore)
	mockDevices := new(MockDeviceStore)
	mockSnaps := new(MockSnapshotStore)
	mockIndexer := new(MockIndexer)
	mockNotifier := new(MockNotifier)

	mockLogs.On("ListWindow", mock.Anything, "mcu-1", mock.Anything, mock.Anything).Return([]models.MachineLog{
		logAt("e1", "mcu-1", timeline.ActionOrderStart, "WO-1", t0, nil),
		logAt("e2", "mcu-1", timeline.ActionCycleStart, "WO-1", t0.Add(30*time.Second), nil),
		logAt("e3", "mcu-1", timeline.ActionCycleEnd, "WO-1", t0.Add(150*time.Second), nil),
		logAt("e4", "mcu-1", timeline.ActionOrderStop, "WO-1", t0.Add(180*time.Second), nil),
	}, nil)
	mockOrders.On("ListByRefs", mock.Anything, []string{"WO-1"}).Return([]models.WorkOrder{
		{OrderRef: "WO-1", TargetSeconds: 130},
	}, nil)
	mockDevices.On("GetByMCU", mock.Anything, "mcu-1").Return(nil, repositories.ErrNotFound)
	mockSnaps.On("Upsert", mock.Anything, mock.Anything).Return(nil)
	mockIndexer.On("IndexReportSummary", mock.Anything, mock.Anything).Return(nil)

	var notice models.SnapshotNotice
	mockNotifier.On("SendMessage", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			notice = args.Get(1).(models.SnapshotNotice)
		}).
		Return(nil)

	service := newTestReportService(t, mockLogs, mockOrders, mockDevices, mockSnaps)
	service.indexer = mockIndexer
	service.notifier = mockNotifier

	snap, err := service.SnapshotWindow(context.Background(), "mcu-1", t0, t0.Add(24*time.Hour))
	require.NoError(t, err)

	require.Equal(t, "mcu-1", snap.MCU)
	require.True(t, snap.Day.Equal(time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)))
	require.Equal(t, 7, snap.RowCount)
	require.Equal(t, 1, snap.TotalJobs)
	require.InDelta(t, 120, snap.CuttingSec, 1e-9)
	require.NotEmpty(t, snap.Payload)

	require.Equal(t, "snapshot_ready", notice.EventType)
	require.Equal(t, "mcu-1", notice.MCU)
	require.Equal(t, "2025-03-10", notice.Day)

	mockSnaps.AssertExpectations(t)
	mockIndexer.AssertExpectations(t)
	mockNotifier.AssertExpectations(t)
}

func TestReconcileSnapshotsContinuesPastFailures(t *testing.T) {
	mockLogs := new(MockMachineLogStore)
	mockDevices := new(MockDeviceStore)
	mockSnaps := new(MockSnapshotStore)

	mockLogs.On("DistinctMCUs", mock.Anything, mock.Anything, mock.Anything).Return([]string{"m1", "m2"}, nil)
	mockLogs.On("ListWindow", mock.Anything, "m1", mock.Anything, mock.Anything).Return(nil, errors.New("replica unavailable"))
	mockLogs.On("ListWindow", mock.Anything, "m2", mock.Anything, mock.Anything).Return([]models.MachineLog{}, nil)
	mockDevices.On("GetByMCU", mock.Anything, "m2").Return(nil, repositories.ErrNotFound)
	mockSnaps.On("Upsert", mock.Anything, mock.Anything).Return(nil)

	service := newTestReportService(t, mockLogs, new(MockWorkOrderStore), mockDevices, mockSnaps)

	err := service.ReconcileSnapshots(context.Background())
	require.NoError(t, err)

	mockSnaps.AssertNumberOfCalls(t, "Upsert", 1)
}

func TestSnapshotsListsStoredWindows(t *testing.T) {
	t0 := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	mockSnaps := new(MockSnapshotStore)
	mockSnaps.On("ListWindow", mock.Anything, "mcu-1", t0, t0.Add(48*time.Hour)).Return([]models.ReportSnapshot{
		{MCU: "mcu-1", Day: t0.Add(24 * time.Hour)},
		{MCU: "mcu-1", Day: t0},
	}, nil)

	service := newTestReportService(t, new(MockMachineLogStore), new(MockWorkOrderStore), new(MockDeviceStore), mockSnaps)

	snaps, err := service.Snapshots(context.Background(), "mcu-1", t0, t0.Add(48*time.Hour))
	require.NoError(t, err)
	require.Len(t, snaps, 2)
	mockSnaps.AssertExpectations(t)
}

func TestWorkOrderPassesNotFoundThrough(t *testing.T) {
	mockOrders := new(MockWorkOrderStore)
	mockOrders.On("GetByRef", mock.Anything, "WO-1").Return(&models.WorkOrder{OrderRef: "WO-1", PartName: "bracket"}, nil)
	mockOrders.On("GetByRef", mock.Anything, "WO-missing").Return(nil, repositories.ErrNotFound)

	service := newTestReportService(t, new(MockMachineLogStore), mockOrders, new(MockDeviceStore), new(MockSnapshotStore))

	order, err := service.WorkOrder(context.Background(), "WO-1")
	require.NoError(t, err)
	require.Equal(t, "bracket", order.PartName)

	_, err = service.WorkOrder(context.Background(), "WO-missing")
	require.ErrorIs(t, err, repositories.ErrNotFound)
}

func TestSearchSummariesRequiresIndexer(t *testing.T) {
	service := newTestReportService(t, new(MockMachineLogStore), new(MockWorkOrderStore), new(MockDeviceStore), new(MockSnapshotStore))

	_, err := service.SearchSummaries(context.Background(), "mcu-1", time.Now().Add(-time.Hour), time.Now())
	require.Error(t, err)
}

func TestSearchSummariesScopesQueryToMachine(t *testing.T) {
	t0 := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	mockIndexer := new(MockIndexer)

	var query map[string]interface{}
	mockIndexer.On("SearchSummaries", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			query = args.Get(1).(map[string]interface{})
		}).
		Return([]map[string]interface{}{{"mcu": "mcu-1"}}, nil)

	service := newTestReportService(t, new(MockMachineLogStore), new(MockWorkOrderStore), new(MockDeviceStore), new(MockSnapshotStore))
	service.indexer = mockIndexer

	docs, err := service.SearchSummaries(context.Background(), "mcu-1", t0, t0.Add(24*time.Hour))
	require.NoError(t, err)
	require.Len(t, docs, 1)

	boolQuery := query["query"].(map[string]interface{})["bool"].(map[string]interface{})
	must := boolQuery["must"].([]map[string]interface{})
	require.Len(t, must, 2)
	require.Equal(t, "mcu-1", must[1]["term"].(map[string]interface{})["mcu.keyword"])
}
