package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"example.com/shopfloor/services/report/internal/models"
)

// MachineLogRepository provides access to stored machine events
type MachineLogRepository struct {
	db         *gorm.DB // Write database
	readOnlyDB *gorm.DB // Read-only database
}

// NewMachineLogRepository creates a new machine log repository
func NewMachineLogRepository(db, readOnlyDB *gorm.DB) *MachineLogRepository {
	return &MachineLogRepository{db: db, readOnlyDB: readOnlyDB}
}

// Create stores one machine event. A replayed event id surfaces as
// ErrDuplicateKey so callers can treat the replay as a no-op.
func (r *MachineLogRepository) Create(ctx context.Context, entry *models.MachineLog) error {
	err := r.db.WithContext(ctx).Create(entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateKey
		}
		return errors.Wrap(err, "failed to create machine log")
	}
	return nil
}

// GetByEventID retrieves a machine event by the device's event identifier
func (r *MachineLogRepository) GetByEventID(ctx context.Context, eventID string) (*models.MachineLog, error) {
	var entry models.MachineLog
	err := r.readOnlyDB.WithContext(ctx).Where("event_id = ?", eventID).First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "failed to get machine log by event id")
	}
	return &entry, nil
}

// ListWindow returns one machine's events inside [from, to), oldest first
func (r *MachineLogRepository) ListWindow(ctx context.Context, mcu string, from, to time.Time) ([]models.MachineLog, error) {
	var logs []models.MachineLog
	err := r.readOnlyDB.WithContext(ctx).
		Where("mcu = ? AND timestamp >= ? AND timestamp < ?", mcu, from, to).
		Order("timestamp asc").
		Find(&logs).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list machine logs")
	}
	return logs, nil
}

// DistinctMCUs lists the machines that logged events inside [from, to)
func (r *MachineLogRepository) DistinctMCUs(ctx context.Context, from, to time.Time) ([]string, error) {
	var mcus []string
	err := r.readOnlyDB.WithContext(ctx).
		Model(&models.MachineLog{}).
		Where("timestamp >= ? AND timestamp < ?", from, to).
		Distinct().
		Pluck("mcu", &mcus).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list machines with events")
	}
	return mcus, nil
}

// WorkOrderRepository provides access to work-order metadata
type WorkOrderRepository struct {
	db         *gorm.DB // Write database
	readOnlyDB *gorm.DB // Read-only database
}

// NewWorkOrderRepository creates a new work order repository
func NewWorkOrderRepository(db, readOnlyDB *gorm.DB) *WorkOrderRepository {
	return &WorkOrderRepository{db: db, readOnlyDB: readOnlyDB}
}

// GetByRef retrieves a work order by its external reference
func (r *WorkOrderRepository) GetByRef(ctx context.Context, ref string) (*models.WorkOrder, error) {
	var order models.WorkOrder
	err := r.readOnlyDB.WithContext(ctx).
		Preload("Extensions", func(db *gorm.DB) *gorm.DB {
			return db.Order("timestamp asc")
		}).
		Where("order_ref = ?", ref).
		First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "failed to get work order")
	}
	return &order, nil
}

// ListByRefs retrieves the work orders matching the given references,
// extensions included. Unknown references are simply absent from the result.
func (r *WorkOrderRepository) ListByRefs(ctx context.Context, refs []string) ([]models.WorkOrder, error) {
	if len(refs) == 0 {
		return nil, nil
	}
	var orders []models.WorkOrder
	err := r.readOnlyDB.WithContext(ctx).
		Preload("Extensions", func(db *gorm.DB) *gorm.DB {
			return db.Order("timestamp asc")
		}).
		Where("order_ref IN ?", refs).
		Find(&orders).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list work orders")
	}
	return orders, nil
}

// EnsureExists creates the order when no record exists yet. An existing
// record is left untouched.
func (r *WorkOrderRepository) EnsureExists(ctx context.Context, order *models.WorkOrder) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "order_ref"}},
			DoNothing: true,
		}).
		Create(order).Error
	if err != nil {
		return errors.Wrap(err, "failed to ensure work order")
	}
	return nil
}

// DeviceRepository provides access to device records
type DeviceRepository struct {
	db         *gorm.DB // Write database
	readOnlyDB *gorm.DB // Read-only database
}

// NewDeviceRepository creates a new device repository
func NewDeviceRepository(db, readOnlyDB *gorm.DB) *DeviceRepository {
	return &DeviceRepository{db: db, readOnlyDB: readOnlyDB}
}

// GetByMCU retrieves a device by its MCU identifier
func (r *DeviceRepository) GetByMCU(ctx context.Context, mcu string) (*models.Device, error) {
	var device models.Device
	err := r.readOnlyDB.WithContext(ctx).Where("mcu = ?", mcu).First(&device).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "failed to get device by MCU")
	}
	return &device, nil
}

// Touch upserts the device record and bumps its last-seen time
func (r *DeviceRepository) Touch(ctx context.Context, mcu string, seenAt time.Time) error {
	device := models.Device{
		ID:         uuid.New(),
		MCU:        mcu,
		LastSeenAt: &seenAt,
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "mcu"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"last_seen_at": seenAt,
			}),
		}).
		Create(&device).Error
	if err != nil {
		return errors.Wrap(err, "failed to touch device")
	}
	return nil
}

// ReportSnapshotRepository provides access to precomputed report snapshots
type ReportSnapshotRepository struct {
	db         *gorm.DB // Write database
	readOnlyDB *gorm.DB // Read-only database
}

// NewReportSnapshotRepository creates a new report snapshot repository
func NewReportSnapshotRepository(db, readOnlyDB *gorm.DB) *ReportSnapshotRepository {
	return &ReportSnapshotRepository{db: db, readOnlyDB: readOnlyDB}
}

// Upsert writes the snapshot for its machine and day, replacing any
// previous run's numbers and payload.
func (r *ReportSnapshotRepository) Upsert(ctx context.Context, snap *models.ReportSnapshot) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "mcu"}, {Name: "day"}},
			UpdateAll: true,
		}).
		Create(snap).Error
	if err != nil {
		return errors.Wrap(err, "failed to upsert report snapshot")
	}
	return nil
}

// ListWindow returns one machine's snapshots with days inside [from, to),
// newest first
func (r *ReportSnapshotRepository) ListWindow(ctx context.Context, mcu string, from, to time.Time) ([]models.ReportSnapshot, error) {
	var snaps []models.ReportSnapshot
	err := r.readOnlyDB.WithContext(ctx).
		Where("mcu = ? AND day >= ? AND day < ?", mcu, from, to).
		Order("day desc").
		Find(&snaps).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list report snapshots")
	}
	return snaps, nil
}
