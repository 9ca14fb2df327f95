package timeline

import (
	"time"
)

// t0 anchors every test timeline.
var t0 = time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)

// ev builds a log event offset from t0.
func ev(id string, action Action, orderID string, offset time.Duration) LogEvent {
	return LogEvent{
		ID:        id,
		Timestamp: t0.Add(offset),
		Action:    action,
		OrderID:   orderID,
		MCU:       "mcu-1",
	}
}

// cyc builds a paired cycle starting at the given offset.
func cyc(id string, start, dur time.Duration) Cycle {
	s := ev(id+"-s", ActionCycleStart, "WO-1", start)
	e := ev(id+"-e", ActionCycleEnd, "WO-1", start+dur)
	return Cycle{Start: s, End: e, Seconds: dur.Seconds()}
}
