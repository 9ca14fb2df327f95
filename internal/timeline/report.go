package timeline

import (
	"sort"

	"github.com/pkg/errors"
)

// Stats aggregates the whole report window. Malformed rows are present in
// the report's row collection but contribute nothing here.
type Stats struct {
	TotalJobs      int
	TotalCycles    int
	CuttingSec     float64
	PauseSec       float64
	LoadingSec     float64
	IdleSec        float64
	TotalSec       float64
	UtilizationPct float64
	AllottedQty    int
	AcceptedQty    int
	RejectedQty    int
	Orders         []OrderStats
	Operators      []OperatorStats
}

// OrderStats is the per-work-order breakdown, in first-appearance order.
type OrderStats struct {
	OrderID     string
	PartName    string
	JobType     JobType
	Jobs        int
	Cycles      int
	CuttingSec  float64
	PauseSec    float64
	TargetSec   float64
	AllottedQty int
	AcceptedQty int
	RejectedQty int
	Blocks      []JobBlock
}

// OperatorStats is the per-operator breakdown, in first-appearance order.
type OperatorStats struct {
	OperatorID   string
	OperatorName string
	Orders       int
	Jobs         int
	CuttingSec   float64
}

// Report is the pipeline output: the globally ordered row collection plus
// aggregate statistics.
type Report struct {
	Rows  []Row
	Stats Stats
}

// Builder sequences the pipeline components for one device's event window.
// It holds no mutable state between calls, so one Builder is safe to share
// across goroutines.
type Builder struct {
	opts       Options
	classifier *Classifier
	injector   *Injector
}

// NewBuilder creates a Builder. Zero-valued option knobs fall back to
// DefaultOptions.
func NewBuilder(opts Options) *Builder {
	o := opts.withDefaults()
	return &Builder{
		opts:       o,
		classifier: NewClassifier(o),
		injector:   NewInjector(o),
	}
}

// Build runs the full pipeline over a raw event stream and the resolved
// work-order metadata (the map may be nil when no metadata is known). A nil
// event collection is a contract violation and errors out immediately;
// malformed individual events never error, they surface as UNKNOWN rows.
//
// The final row collection is reverse-chronological, and serial numbers are
// assigned in that order to event rows only.
func (b *Builder) Build(events []LogEvent, orders map[string]OrderMeta) (*Report, error) {
	if events == nil {
		return nil, errors.New("timeline: nil event collection")
	}

	normalized := Normalize(events)
	valid, invalid := splitInvalidTimestamps(normalized)
	segments := SegmentStream(valid)

	var (
		rows    []Row
		stats   Stats
		history = make(map[string][]float64)
		orderIx = make(map[string]int)
		operIx  = make(map[string]int)
	)

	for i := range segments {
		seg := &segments[i]

		if seg.OrderID == "" {
			// No work-order context: raw rows only, nothing aggregated.
			for _, e := range seg.Events {
				rows = append(rows, &EventRow{Event: e})
			}
			continue
		}

		meta := orders[seg.OrderID]
		PairSegment(seg)

		baseline := ResolveBaseline(meta.TargetSeconds, history[seg.OrderID], b.opts.RollingMedianWindow, b.opts.FallbackIdealSec)
		blocks := GroupCycles(seg.Cycles, meta.TargetSeconds, b.opts.ToleranceSec)
		for j := range blocks {
			verdict := b.classifier.ClassifyJob(blocks[j].Seconds, baseline.IdealSec, meta)
			blocks[j].Verdict = &verdict
			history[seg.OrderID] = append(history[seg.OrderID], blocks[j].Seconds)
		}

		segRows := b.injector.Rows(seg, blocks, meta)
		rows = append(rows, segRows...)

		accumulate(&stats, seg, blocks, segRows, meta, orderIx, operIx)
	}

	for _, e := range invalid {
		rows = append(rows, &EventRow{
			Event: e,
			Verdict: &Verdict{
				Class:  ClassUnknown,
				Reason: ReasonInvalidTimestamp,
				Text:   "invalid timestamp",
			},
		})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].When().After(rows[j].When())
	})

	serial := 0
	for _, r := range rows {
		if er, ok := r.(*EventRow); ok {
			serial++
			er.Serial = serial
		}
	}

	if stats.TotalSec > 0 {
		stats.UtilizationPct = stats.CuttingSec / stats.TotalSec * 100
	}

	return &Report{Rows: rows, Stats: stats}, nil
}

// accumulate folds one segment's results into the running totals and the
// per-order and per-operator breakdowns.
func accumulate(stats *Stats, seg *Segment, blocks []JobBlock, segRows []Row, meta OrderMeta, orderIx, operIx map[string]int) {
	var cutting, paused float64
	for _, c := range seg.Cycles {
		cutting += c.Seconds
	}
	for _, p := range seg.Pauses {
		paused += p.Seconds
	}

	stats.TotalJobs += len(blocks)
	stats.TotalCycles += len(seg.Cycles)
	stats.CuttingSec += cutting
	stats.PauseSec += paused
	stats.TotalSec += segmentSpan(seg)

	for _, r := range segRows {
		switch gap := r.(type) {
		case *LoadingGapRow:
			stats.LoadingSec += gap.Seconds
		case *IdleGapRow:
			stats.IdleSec += gap.Seconds
		}
	}

	newOrder := false
	ix, ok := orderIx[seg.OrderID]
	if !ok {
		newOrder = true
		ix = len(stats.Orders)
		orderIx[seg.OrderID] = ix
		stats.Orders = append(stats.Orders, OrderStats{
			OrderID:     seg.OrderID,
			PartName:    meta.PartName,
			JobType:     seg.JobType,
			TargetSec:   meta.TargetSeconds,
			AllottedQty: meta.AllottedQty,
			AcceptedQty: meta.AcceptedQty,
			RejectedQty: meta.RejectedQty,
		})
		stats.AllottedQty += meta.AllottedQty
		stats.AcceptedQty += meta.AcceptedQty
		stats.RejectedQty += meta.RejectedQty
	}
	order := &stats.Orders[ix]
	order.Jobs += len(blocks)
	order.Cycles += len(seg.Cycles)
	order.CuttingSec += cutting
	order.PauseSec += paused
	order.Blocks = append(order.Blocks, blocks...)

	if meta.OperatorID != "" {
		ix, ok := operIx[meta.OperatorID]
		if !ok {
			ix = len(stats.Operators)
			operIx[meta.OperatorID] = ix
			stats.Operators = append(stats.Operators, OperatorStats{
				OperatorID:   meta.OperatorID,
				OperatorName: meta.OperatorName,
			})
		}
		operator := &stats.Operators[ix]
		operator.Jobs += len(blocks)
		operator.CuttingSec += cutting
		if newOrder {
			operator.Orders++
		}
	}
}

// splitInvalidTimestamps separates events carrying no usable timestamp.
// They skip the state machines but stay in the report as UNKNOWN rows so
// nothing is silently discarded.
func splitInvalidTimestamps(events []LogEvent) (valid, invalid []LogEvent) {
	for _, e := range events {
		if e.Timestamp.IsZero() {
			invalid = append(invalid, e)
		} else {
			valid = append(valid, e)
		}
	}
	return valid, invalid
}

// segmentSpan is the wall-clock distance between a segment's first and last
// events.
func segmentSpan(seg *Segment) float64 {
	if len(seg.Events) < 2 {
		return 0
	}
	return seg.Events[len(seg.Events)-1].Timestamp.Sub(seg.Events[0].Timestamp).Seconds()
}
