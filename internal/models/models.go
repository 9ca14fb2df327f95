package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// Device represents a shop-floor machine controller
type Device struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt  time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
	MCU        string         `gorm:"column:mcu;not null;uniqueIndex" json:"mcu"`
	Name       string         `json:"name"`
	Line       string         `json:"line"`
	LastSeenAt *time.Time     `json:"last_seen_at"`
	Logs       []MachineLog   `gorm:"foreignKey:MCU;references:MCU" json:"-"`
}

// MachineLog is one stored machine event. EventID carries the device's own
// event identifier and is unique: replays of the same event are dropped at
// ingest, mirroring the report pipeline's first-wins dedup.
type MachineLog struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
	EventID   string         `gorm:"not null;uniqueIndex" json:"event_id"`
	MCU       string         `gorm:"column:mcu;not null;index" json:"mcu"`
	OrderRef  string         `gorm:"index" json:"order_ref"`
	Action    string         `gorm:"not null" json:"action"`
	Timestamp time.Time      `gorm:"index" json:"timestamp"`
	Meta      []byte         `gorm:"type:jsonb" json:"meta"`
}

// WorkOrder holds the declared metadata for one work order
type WorkOrder struct {
	ID            uuid.UUID            `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt     time.Time            `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time            `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt     gorm.DeletedAt       `gorm:"index" json:"-"`
	OrderRef      string               `gorm:"not null;uniqueIndex" json:"order_ref"`
	PartName      string               `json:"part_name"`
	TypeCode      string               `json:"type_code"`
	TargetSeconds float64              `json:"target_seconds"`
	AllottedQty   int                  `json:"allotted_qty"`
	AcceptedQty   int                  `json:"accepted_qty"`
	RejectedQty   int                  `json:"rejected_qty"`
	TimeSavedSec  float64              `json:"time_saved_sec"`
	OperatorID    string               `json:"operator_id"`
	OperatorName  string               `json:"operator_name"`
	StartComment  string               `json:"start_comment"`
	StopComment   string               `json:"stop_comment"`
	Extensions    []WorkOrderExtension `gorm:"foreignKey:WorkOrderID" json:"extensions"`
}

// WorkOrderExtension is an operator-entered pause justification
type WorkOrderExtension struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	WorkOrderID uuid.UUID `gorm:"type:uuid;not null;index" json:"work_order_id"`
	Timestamp   time.Time `json:"timestamp"`
	Comment     string    `json:"comment"`
}

// ReportSnapshot is a precomputed timeline report for one machine and window
type ReportSnapshot struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt      time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt      gorm.DeletedAt  `gorm:"index" json:"-"`
	MCU            string          `gorm:"column:mcu;not null;uniqueIndex:idx_snapshot_mcu_day" json:"mcu"`
	Day            time.Time       `gorm:"uniqueIndex:idx_snapshot_mcu_day" json:"day"`
	WindowFrom     time.Time       `json:"window_from"`
	WindowTo       time.Time       `json:"window_to"`
	RowCount       int             `json:"row_count"`
	TotalJobs      int             `json:"total_jobs"`
	TotalCycles    int             `json:"total_cycles"`
	CuttingSec     float64         `json:"cutting_sec"`
	PauseSec       float64         `json:"pause_sec"`
	LoadingSec     float64         `json:"loading_sec"`
	IdleSec        float64         `json:"idle_sec"`
	UtilizationPct float64         `json:"utilization_pct"`
	Payload        json.RawMessage `gorm:"type:jsonb" json:"payload"`
}

// LogPayload represents a machine event request payload. Field keys stay
// compact because the devices send them over metered links.
type LogPayload struct {
	EventID  string            `json:"id" validate:"required"`
	Action   string            `json:"ev" validate:"required"`
	Time     int64             `json:"t" validate:"required,gt=0"`
	OrderRef string            `json:"wo"`
	MCU      string            `json:"mcu" validate:"required,mcu"`
	Meta     map[string]string `json:"meta"`
}

// SetupModels configures GORM models and runs migrations
func SetupModels(db *gorm.DB) error {
	err := db.AutoMigrate(
		&Device{},
		&MachineLog{},
		&WorkOrder{},
		&WorkOrderExtension{},
		&ReportSnapshot{},
	)
	if err != nil {
		return errors.Wrap(err, "failed to run auto migrations")
	}

	return nil
}
