package timeline

import "time"

// RowKind discriminates the concrete Row variants.
type RowKind string

const (
	KindEvent        RowKind = "EVENT"
	KindIdealGap     RowKind = "IDEAL_GAP"
	KindLoadingGap   RowKind = "LOADING_GAP"
	KindIdleGap      RowKind = "IDLE_GAP"
	KindPause        RowKind = "PAUSE"
	KindOrderHeader  RowKind = "ORDER_HEADER"
	KindOrderSummary RowKind = "ORDER_SUMMARY"
)

// Row is the closed union of timeline row variants. Only this package
// implements it, so consumers can type-switch exhaustively over the seven
// concrete kinds. Synthetic rows carry timestamps offset one second from
// their anchor event so the global sort keeps them in place without
// colliding with real events.
type Row interface {
	When() time.Time
	Kind() RowKind
	isRow()
}

// EventRow is a raw machine event. Serial is assigned by the orchestrator
// after the final sort, only to event rows. The end event of a cycle
// carries that cycle's seconds, and the end event closing a job block also
// carries the block's label and verdict.
type EventRow struct {
	Serial       int
	Event        LogEvent
	CycleSeconds float64
	JobLabel     string
	Verdict      *Verdict
}

func (r *EventRow) When() time.Time { return r.Event.Timestamp }
func (r *EventRow) Kind() RowKind   { return KindEvent }
func (r *EventRow) isRow()          {}

// IdealGapRow marks the lead-in between order start and the first cycle.
type IdealGapRow struct {
	At      time.Time
	OrderID string
	Seconds float64
}

func (r *IdealGapRow) When() time.Time { return r.At }
func (r *IdealGapRow) Kind() RowKind   { return KindIdealGap }
func (r *IdealGapRow) isRow()          {}

// LoadingGapRow marks a between-cycle gap short enough to be loading or
// unloading work.
type LoadingGapRow struct {
	At      time.Time
	OrderID string
	Seconds float64
}

func (r *LoadingGapRow) When() time.Time { return r.At }
func (r *LoadingGapRow) Kind() RowKind   { return KindLoadingGap }
func (r *LoadingGapRow) isRow()          {}

// IdleGapRow marks a between-cycle gap beyond the loading ceiling.
type IdleGapRow struct {
	At      time.Time
	OrderID string
	Seconds float64
}

func (r *IdleGapRow) When() time.Time { return r.At }
func (r *IdleGapRow) Kind() RowKind   { return KindIdleGap }
func (r *IdleGapRow) isRow()          {}

// PauseRow is the banner for one pause/resume pair. Reason comes from the
// nearest work-order extension; DeclaredBreak means the reason matched a
// break keyword; ShiftBreak means the pause outlasted the shift-break
// threshold.
type PauseRow struct {
	At            time.Time
	OrderID       string
	Seconds       float64
	Reason        string
	DeclaredBreak bool
	ShiftBreak    bool
}

func (r *PauseRow) When() time.Time { return r.At }
func (r *PauseRow) Kind() RowKind   { return KindPause }
func (r *PauseRow) isRow()          {}

// OrderHeaderRow is the banner opening a work-order segment.
type OrderHeaderRow struct {
	At            time.Time
	OrderID       string
	PartName      string
	TypeCode      string
	JobType       JobType
	OperatorID    string
	OperatorName  string
	TargetSeconds float64
	Comment       string
}

func (r *OrderHeaderRow) When() time.Time { return r.At }
func (r *OrderHeaderRow) Kind() RowKind   { return KindOrderHeader }
func (r *OrderHeaderRow) isRow()          {}

// OrderSummaryRow is the banner closing a work-order segment.
type OrderSummaryRow struct {
	At          time.Time
	OrderID     string
	Jobs        int
	Cycles      int
	CuttingSec  float64
	PauseSec    float64
	AllottedQty int
	AcceptedQty int
	RejectedQty int
	Comment     string
}

func (r *OrderSummaryRow) When() time.Time { return r.At }
func (r *OrderSummaryRow) Kind() RowKind   { return KindOrderSummary }
func (r *OrderSummaryRow) isRow()          {}
