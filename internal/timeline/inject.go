package timeline

import (
	"math"
	"strings"
	"time"
)

const (
	// shiftBreakSeconds flags pauses long enough to span a shift break.
	shiftBreakSeconds = 120 * 60

	// extensionMatchSeconds bounds how far an extension comment may sit
	// from a pause start and still be taken as its reason.
	extensionMatchSeconds = 120

	// syntheticOffset keeps computed rows clear of their anchor events in
	// the global sort.
	syntheticOffset = time.Second
)

// Injector synthesizes the computed rows for a work-order segment (gap
// separators, pause banners, header and summary banners) and merges them
// with the segment's raw event rows.
type Injector struct {
	opts Options
}

// NewInjector creates an Injector with the given options.
func NewInjector(opts Options) *Injector {
	return &Injector{opts: opts.withDefaults()}
}

// Rows materializes the full row set for one segment. Segments with an
// empty order id get raw event rows only; there is no order to banner.
func (in *Injector) Rows(seg *Segment, blocks []JobBlock, meta OrderMeta) []Row {
	rows := eventRows(seg, blocks)
	if seg.OrderID == "" {
		return rows
	}
	rows = append(rows, in.gapRows(seg)...)
	rows = append(rows, in.pauseRows(seg, meta)...)
	rows = append(rows, headerRow(seg, meta), summaryRow(seg, blocks, meta))
	return rows
}

// eventRows wraps every raw event. A cycle's end event carries the cycle
// seconds, and the end event closing a job block carries the block label
// and verdict.
func eventRows(seg *Segment, blocks []JobBlock) []Row {
	cycleSeconds := make(map[string]float64, len(seg.Cycles))
	for _, c := range seg.Cycles {
		if c.End.ID != "" {
			cycleSeconds[c.End.ID] = c.Seconds
		}
	}
	closing := make(map[string]*JobBlock, len(blocks))
	for i := range blocks {
		b := &blocks[i]
		if last := len(b.Cycles) - 1; last >= 0 && b.Cycles[last].End.ID != "" {
			closing[b.Cycles[last].End.ID] = b
		}
	}

	rows := make([]Row, 0, len(seg.Events))
	for _, e := range seg.Events {
		row := &EventRow{Event: e}
		if e.Action == ActionCycleEnd && e.ID != "" {
			if sec, ok := cycleSeconds[e.ID]; ok {
				row.CycleSeconds = sec
			}
			if b, ok := closing[e.ID]; ok {
				row.JobLabel = b.Label
				row.Verdict = b.Verdict
			}
		}
		rows = append(rows, row)
	}
	return rows
}

// gapRows synthesizes the ideal lead-in row plus the between-cycle gap rows.
// A gap containing an ORDER_STOP is a segment boundary and gets nothing; a
// gap containing a pause is split into pre-pause and post-resume portions,
// each emitted only when positive and within the loading ceiling; any other
// positive gap becomes a loading row (within the ceiling) or an idle row
// (beyond it).
func (in *Injector) gapRows(seg *Segment) []Row {
	var rows []Row

	if start := orderStartEvent(seg); start != nil && len(seg.Cycles) > 0 {
		lead := seg.Cycles[0].Start.Timestamp.Sub(start.Timestamp).Seconds()
		if lead > 0 {
			rows = append(rows, &IdealGapRow{
				At:      start.Timestamp.Add(syntheticOffset),
				OrderID: seg.OrderID,
				Seconds: lead,
			})
		}
	}

	for i := 0; i+1 < len(seg.Cycles); i++ {
		gapStart := seg.Cycles[i].End.Timestamp
		gapEnd := seg.Cycles[i+1].Start.Timestamp
		gap := gapEnd.Sub(gapStart).Seconds()
		if gap <= 0 || stopBetween(seg, gapStart, gapEnd) {
			continue
		}

		if first, last, ok := pausesBetween(seg, gapStart, gapEnd); ok {
			pre := first.Start.Timestamp.Sub(gapStart).Seconds()
			post := gapEnd.Sub(last.End.Timestamp).Seconds()
			if pre > 0 && pre <= in.opts.ToleranceSec {
				rows = append(rows, &LoadingGapRow{
					At:      gapStart.Add(syntheticOffset),
					OrderID: seg.OrderID,
					Seconds: pre,
				})
			}
			if post > 0 && post <= in.opts.ToleranceSec {
				rows = append(rows, &LoadingGapRow{
					At:      last.End.Timestamp.Add(syntheticOffset),
					OrderID: seg.OrderID,
					Seconds: post,
				})
			}
			continue
		}

		if gap <= in.opts.ToleranceSec {
			rows = append(rows, &LoadingGapRow{
				At:      gapStart.Add(syntheticOffset),
				OrderID: seg.OrderID,
				Seconds: gap,
			})
		} else {
			rows = append(rows, &IdleGapRow{
				At:      gapStart.Add(syntheticOffset),
				OrderID: seg.OrderID,
				Seconds: gap,
			})
		}
	}
	return rows
}

// pauseRows emits one banner per pause with its derived reason and flags.
func (in *Injector) pauseRows(seg *Segment, meta OrderMeta) []Row {
	rows := make([]Row, 0, len(seg.Pauses))
	for _, p := range seg.Pauses {
		reason := nearestExtension(meta.Extensions, p.Start.Timestamp)
		rows = append(rows, &PauseRow{
			At:            p.Start.Timestamp.Add(syntheticOffset),
			OrderID:       seg.OrderID,
			Seconds:       p.Seconds,
			Reason:        reason,
			DeclaredBreak: in.isBreakReason(reason),
			ShiftBreak:    p.Seconds > shiftBreakSeconds,
		})
	}
	return rows
}

func headerRow(seg *Segment, meta OrderMeta) Row {
	code := seg.TypeCode
	if code == "" {
		code = meta.TypeCode
	}
	return &OrderHeaderRow{
		At:            seg.Events[0].Timestamp.Add(-syntheticOffset),
		OrderID:       seg.OrderID,
		PartName:      meta.PartName,
		TypeCode:      code,
		JobType:       seg.JobType,
		OperatorID:    meta.OperatorID,
		OperatorName:  meta.OperatorName,
		TargetSeconds: meta.TargetSeconds,
		Comment:       meta.StartComment,
	}
}

func summaryRow(seg *Segment, blocks []JobBlock, meta OrderMeta) Row {
	var cutting, paused float64
	for _, c := range seg.Cycles {
		cutting += c.Seconds
	}
	for _, p := range seg.Pauses {
		paused += p.Seconds
	}
	last := seg.Events[len(seg.Events)-1]
	return &OrderSummaryRow{
		At:          last.Timestamp.Add(syntheticOffset),
		OrderID:     seg.OrderID,
		Jobs:        len(blocks),
		Cycles:      len(seg.Cycles),
		CuttingSec:  cutting,
		PauseSec:    paused,
		AllottedQty: meta.AllottedQty,
		AcceptedQty: meta.AcceptedQty,
		RejectedQty: meta.RejectedQty,
		Comment:     meta.StopComment,
	}
}

func orderStartEvent(seg *Segment) *LogEvent {
	for i := range seg.Events {
		if seg.Events[i].Action == ActionOrderStart {
			return &seg.Events[i]
		}
	}
	return nil
}

// stopBetween reports an ORDER_STOP strictly inside the window.
func stopBetween(seg *Segment, from, to time.Time) bool {
	for _, e := range seg.Events {
		if e.Action == ActionOrderStop && e.Timestamp.After(from) && e.Timestamp.Before(to) {
			return true
		}
	}
	return false
}

// pausesBetween finds the first and last pause periods fully contained in
// the window.
func pausesBetween(seg *Segment, from, to time.Time) (first, last PausePeriod, ok bool) {
	for _, p := range seg.Pauses {
		if p.Start.Timestamp.Before(from) || p.End.Timestamp.After(to) {
			continue
		}
		if !ok {
			first = p
			ok = true
		}
		last = p
	}
	return first, last, ok
}

// nearestExtension picks the comment of the extension closest to the pause
// start, within the match tolerance.
func nearestExtension(exts []Extension, at time.Time) string {
	best := ""
	bestDist := math.MaxFloat64
	for _, ext := range exts {
		dist := math.Abs(ext.Timestamp.Sub(at).Seconds())
		if dist <= extensionMatchSeconds && dist < bestDist {
			best = ext.Comment
			bestDist = dist
		}
	}
	return best
}

func (in *Injector) isBreakReason(reason string) bool {
	if reason == "" {
		return false
	}
	lower := strings.ToLower(reason)
	for _, kw := range in.opts.BreakKeywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}
