package timeline

import (
	"sort"
	"strings"
)

// JobType tells production work orders apart from setup, maintenance and
// other non-production orders.
type JobType string

const (
	JobTypeProduction    JobType = "PRODUCTION"
	JobTypeNonProduction JobType = "NON_PRODUCTION"
)

// orderTypeMetaKey is the ORDER_START metadata entry carrying the order's
// type code.
const orderTypeMetaKey = "order_type"

// Segment is one work order's slice of the event stream. The segmenter
// creates it, the pairer fills Cycles and Pauses, and the orchestrator
// discards it after folding its rows into the report.
type Segment struct {
	OrderID  string
	Events   []LogEvent
	Cycles   []Cycle
	Pauses   []PausePeriod
	JobType  JobType
	TypeCode string
}

// SegmentStream partitions a normalized event stream into per-work-order
// segments with a start/stop state machine. At any moment at most one
// segment is active:
//
//   - ORDER_START for a different order closes the active segment without a
//     stop (partial segment) and opens a new one. A repeated start for the
//     order already active appends to it.
//   - ORDER_STOP matching the active order appends and closes the segment.
//   - Every other event appends when its order id matches the active
//     segment, otherwise it lands in an unassigned bucket.
//
// After the scan, a still-open segment is emitted as-is, and unassigned
// events are grouped by order id into fallback segments. That covers orders
// whose start preceded the query window. The result is sorted by each
// segment's first event timestamp.
func SegmentStream(events []LogEvent) []Segment {
	var (
		segments   []Segment
		active     *Segment
		unassigned = make(map[string][]LogEvent)
		buckets    []string
	)

	closeActive := func() {
		if active != nil {
			segments = append(segments, *active)
			active = nil
		}
	}

	for _, e := range events {
		switch {
		case e.Action == ActionOrderStart:
			if active != nil && active.OrderID == e.OrderID {
				active.Events = append(active.Events, e)
				continue
			}
			closeActive()
			active = &Segment{
				OrderID:  e.OrderID,
				Events:   []LogEvent{e},
				TypeCode: e.MetaValue(orderTypeMetaKey),
			}

		case e.Action == ActionOrderStop && active != nil && active.OrderID == e.OrderID:
			active.Events = append(active.Events, e)
			closeActive()

		case active != nil && active.OrderID == e.OrderID:
			active.Events = append(active.Events, e)

		default:
			if _, ok := unassigned[e.OrderID]; !ok {
				buckets = append(buckets, e.OrderID)
			}
			unassigned[e.OrderID] = append(unassigned[e.OrderID], e)
		}
	}
	closeActive()

	for _, orderID := range buckets {
		evs := unassigned[orderID]
		sort.SliceStable(evs, func(i, j int) bool {
			return evs[i].Timestamp.Before(evs[j].Timestamp)
		})
		segments = append(segments, Segment{OrderID: orderID, Events: evs})
	}

	for i := range segments {
		segments[i].JobType = jobTypeFor(segments[i].TypeCode)
	}

	sort.SliceStable(segments, func(i, j int) bool {
		return segments[i].Events[0].Timestamp.Before(segments[j].Events[0].Timestamp)
	})
	return segments
}

// jobTypeFor maps an order type code to a job type. Absent codes default to
// production.
func jobTypeFor(code string) JobType {
	switch strings.ToLower(strings.TrimSpace(code)) {
	case "", "production":
		return JobTypeProduction
	default:
		return JobTypeNonProduction
	}
}
