package models

import "time"

// TimelineReport is the wire form of one machine's production timeline.
type TimelineReport struct {
	MCU         string      `json:"mcu"`
	WindowFrom  time.Time   `json:"window_from"`
	WindowTo    time.Time   `json:"window_to"`
	GeneratedAt time.Time   `json:"generated_at"`
	Device      *DeviceInfo `json:"device,omitempty"`
	Rows        []ReportRow `json:"rows"`
	Stats       ReportStats `json:"stats"`
}

// DeviceInfo names the machine a report was built for.
type DeviceInfo struct {
	MCU  string `json:"mcu"`
	Name string `json:"name,omitempty"`
	Line string `json:"line,omitempty"`
}

// ReportRow is one timeline entry. Kind discriminates the variants and only
// the fields that apply to a kind are populated.
type ReportRow struct {
	Kind     string    `json:"kind"`
	At       time.Time `json:"at"`
	OrderRef string    `json:"order_ref,omitempty"`

	// Event rows
	Serial       int               `json:"serial,omitempty"`
	EventID      string            `json:"event_id,omitempty"`
	Action       string            `json:"action,omitempty"`
	Meta         map[string]string `json:"meta,omitempty"`
	CycleSeconds float64           `json:"cycle_seconds,omitempty"`
	JobLabel     string            `json:"job_label,omitempty"`
	Verdict      *RowVerdict       `json:"verdict,omitempty"`

	// Gap and pause rows
	Seconds       float64 `json:"seconds,omitempty"`
	Reason        string  `json:"reason,omitempty"`
	DeclaredBreak bool    `json:"declared_break,omitempty"`
	ShiftBreak    bool    `json:"shift_break,omitempty"`

	// Banner rows
	PartName      string  `json:"part_name,omitempty"`
	TypeCode      string  `json:"type_code,omitempty"`
	JobType       string  `json:"job_type,omitempty"`
	OperatorID    string  `json:"operator_id,omitempty"`
	OperatorName  string  `json:"operator_name,omitempty"`
	TargetSeconds float64 `json:"target_seconds,omitempty"`
	Comment       string  `json:"comment,omitempty"`
	Jobs          int     `json:"jobs,omitempty"`
	Cycles        int     `json:"cycles,omitempty"`
	CuttingSec    float64 `json:"cutting_sec,omitempty"`
	PauseSec      float64 `json:"pause_sec,omitempty"`
	AllottedQty   int     `json:"allotted_qty,omitempty"`
	AcceptedQty   int     `json:"accepted_qty,omitempty"`
	RejectedQty   int     `json:"rejected_qty,omitempty"`
}

// RowVerdict is a classification decision on the wire.
type RowVerdict struct {
	Class     string  `json:"class"`
	Reason    string  `json:"reason"`
	Text      string  `json:"text,omitempty"`
	ActualSec float64 `json:"actual_sec"`
	IdealSec  float64 `json:"ideal_sec"`
	DeltaSec  float64 `json:"delta_sec"`
	DeltaPct  float64 `json:"delta_pct"`
}

// ReportStats aggregates one report window.
type ReportStats struct {
	TotalJobs      int                 `json:"total_jobs"`
	TotalCycles    int                 `json:"total_cycles"`
	CuttingSec     float64             `json:"cutting_sec"`
	PauseSec       float64             `json:"pause_sec"`
	LoadingSec     float64             `json:"loading_sec"`
	IdleSec        float64             `json:"idle_sec"`
	TotalSec       float64             `json:"total_sec"`
	UtilizationPct float64             `json:"utilization_pct"`
	AllottedQty    int                 `json:"allotted_qty"`
	AcceptedQty    int                 `json:"accepted_qty"`
	RejectedQty    int                 `json:"rejected_qty"`
	Orders         []OrderBreakdown    `json:"orders"`
	Operators      []OperatorBreakdown `json:"operators"`
}

// OrderBreakdown aggregates one work order inside a report window.
type OrderBreakdown struct {
	OrderRef    string        `json:"order_ref"`
	PartName    string        `json:"part_name,omitempty"`
	JobType     string        `json:"job_type"`
	Jobs        int           `json:"jobs"`
	Cycles      int           `json:"cycles"`
	CuttingSec  float64       `json:"cutting_sec"`
	PauseSec    float64       `json:"pause_sec"`
	TargetSec   float64       `json:"target_sec"`
	AllottedQty int           `json:"allotted_qty"`
	AcceptedQty int           `json:"accepted_qty"`
	RejectedQty int           `json:"rejected_qty"`
	Blocks      []JobBlockDoc `json:"blocks"`
}

// JobBlockDoc is one grouped run of cycles on the wire.
type JobBlockDoc struct {
	Label        string      `json:"label"`
	Cycles       int         `json:"cycles"`
	Seconds      float64     `json:"seconds"`
	TargetSec    float64     `json:"target_sec,omitempty"`
	VarianceSec  float64     `json:"variance_sec,omitempty"`
	VarianceText string      `json:"variance_text,omitempty"`
	Verdict      *RowVerdict `json:"verdict,omitempty"`
}

// OperatorBreakdown aggregates one operator inside a report window.
type OperatorBreakdown struct {
	OperatorID   string  `json:"operator_id"`
	OperatorName string  `json:"operator_name,omitempty"`
	Orders       int     `json:"orders"`
	Jobs         int     `json:"jobs"`
	CuttingSec   float64 `json:"cutting_sec"`
}

// SnapshotNotice announces a freshly computed snapshot on the service bus.
type SnapshotNotice struct {
	EventType      string    `json:"ev"`
	MCU            string    `json:"mcu"`
	Day            string    `json:"day"`
	UtilizationPct float64   `json:"utilization_pct"`
	TotalJobs      int       `json:"total_jobs"`
	GeneratedAt    time.Time `json:"generated_at"`
}
