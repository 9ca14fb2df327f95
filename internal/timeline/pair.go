package timeline

// Cycle is one spindle-on/spindle-off pair, the atomic unit of measured
// production time. Seconds is never negative.
type Cycle struct {
	Start   LogEvent
	End     LogEvent
	Seconds float64
}

// PausePeriod is one pause/resume pair.
type PausePeriod struct {
	Start   LogEvent
	End     LogEvent
	Seconds float64
}

// pairFSM matches start events to end events. It is an explicit two-state
// machine: idle, or holding one pending start. The zero value is idle.
type pairFSM struct {
	pending  LogEvent
	hasStart bool
}

// start records a pending start. A second start while one is pending
// supersedes it: once an end went missing the earlier span can never be
// measured, and the newest start is the right anchor for the next end.
func (m *pairFSM) start(e LogEvent) {
	m.pending = e
	m.hasStart = true
}

// end closes the pending start, if any. An end with nothing pending is
// reported as unmatched and dropped by the caller.
func (m *pairFSM) end() (LogEvent, bool) {
	if !m.hasStart {
		return LogEvent{}, false
	}
	m.hasStart = false
	return m.pending, true
}

// PairSegment scans a segment's events once and fills in its cycle and
// pause lists. Cycle pairing and pause pairing run independently; a pause
// opening mid-cycle does not disturb the pending cycle start.
func PairSegment(seg *Segment) {
	var cycles, pauses pairFSM

	for _, e := range seg.Events {
		switch e.Action {
		case ActionCycleStart:
			cycles.start(e)
		case ActionCycleEnd:
			if start, ok := cycles.end(); ok {
				seg.Cycles = append(seg.Cycles, Cycle{Start: start, End: e, Seconds: spanSeconds(start, e)})
			}
		case ActionOrderPause:
			pauses.start(e)
		case ActionOrderResume:
			if start, ok := pauses.end(); ok {
				seg.Pauses = append(seg.Pauses, PausePeriod{Start: start, End: e, Seconds: spanSeconds(start, e)})
			}
		}
	}
}

// spanSeconds is the duration between two events, floored at zero.
func spanSeconds(start, end LogEvent) float64 {
	sec := end.Timestamp.Sub(start.Timestamp).Seconds()
	if sec < 0 {
		return 0
	}
	return sec
}
