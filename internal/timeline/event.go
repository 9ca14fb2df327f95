package timeline

import "time"

// Action is the closed set of machine event tags. Anything outside this set
// passes through the pipeline as a raw annotation event.
type Action string

const (
	ActionCycleStart  Action = "CYCLE_START"
	ActionCycleEnd    Action = "CYCLE_END"
	ActionOrderStart  Action = "ORDER_START"
	ActionOrderStop   Action = "ORDER_STOP"
	ActionOrderPause  Action = "ORDER_PAUSE"
	ActionOrderResume Action = "ORDER_RESUME"
	ActionKeyOn       Action = "KEY_ON"
	ActionKeyOff      Action = "KEY_OFF"
)

// LogEvent is a single machine event record. Values are immutable once
// created; the pipeline never mutates an event in place.
type LogEvent struct {
	ID        string
	Timestamp time.Time
	Action    Action
	OrderID   string
	MCU       string
	Meta      map[string]string
}

// MetaValue returns the named metadata entry, or "" when absent.
func (e LogEvent) MetaValue(key string) string {
	if e.Meta == nil {
		return ""
	}
	return e.Meta[key]
}

// OrderMeta is the resolved metadata for one work order. The pipeline never
// looks orders up itself; callers supply the full mapping up front.
type OrderMeta struct {
	OrderID       string
	PartName      string
	TypeCode      string
	TargetSeconds float64
	AllottedQty   int
	AcceptedQty   int
	RejectedQty   int
	TimeSavedSec  float64
	OperatorID    string
	OperatorName  string
	StartComment  string
	StopComment   string
	Extensions    []Extension
}

// Extension is a free-text timestamped annotation attached to a work order,
// typically explaining a pause.
type Extension struct {
	Timestamp time.Time
	Comment   string
}
