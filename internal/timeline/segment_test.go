package timeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSegmentStreamStartStop(t *testing.T) {
	events := []LogEvent{
		ev("1", ActionOrderStart, "WO-1", 0),
		ev("2", ActionCycleStart, "WO-1", 10*time.Second),
		ev("3", ActionCycleEnd, "WO-1", 70*time.Second),
		ev("4", ActionOrderStop, "WO-1", 80*time.Second),
	}

	segs := SegmentStream(events)

	require.Len(t, segs, 1)
	require.Equal(t, "WO-1", segs[0].OrderID)
	require.Len(t, segs[0].Events, 4)
	require.Equal(t, JobTypeProduction, segs[0].JobType)
}

func TestSegmentStreamPartialClosedByNewOrder(t *testing.T) {
	events := []LogEvent{
		ev("1", ActionOrderStart, "WO-1", 0),
		ev("2", ActionCycleStart, "WO-1", 10*time.Second),
		ev("3", ActionOrderStart, "WO-2", 20*time.Second),
		ev("4", ActionOrderStop, "WO-2", 30*time.Second),
	}

	segs := SegmentStream(events)

	require.Len(t, segs, 2)
	require.Equal(t, "WO-1", segs[0].OrderID)
	require.Len(t, segs[0].Events, 2) // closed without a stop
	require.Equal(t, "WO-2", segs[1].OrderID)
	require.Len(t, segs[1].Events, 2)
}

func TestSegmentStreamSameOrderRestartAppends(t *testing.T) {
	events := []LogEvent{
		ev("1", ActionOrderStart, "WO-1", 0),
		ev("2", ActionOrderStart, "WO-1", 10*time.Second),
		ev("3", ActionOrderStop, "WO-1", 20*time.Second),
	}

	segs := SegmentStream(events)

	require.Len(t, segs, 1)
	require.Len(t, segs[0].Events, 3)
}

func TestSegmentStreamOpenSegmentEmitted(t *testing.T) {
	events := []LogEvent{
		ev("1", ActionOrderStart, "WO-1", 0),
		ev("2", ActionCycleStart, "WO-1", 10*time.Second),
	}

	segs := SegmentStream(events)

	require.Len(t, segs, 1)
	require.Len(t, segs[0].Events, 2)
	require.NotEqual(t, ActionOrderStop, segs[0].Events[1].Action)
}

func TestSegmentStreamUnassignedFallback(t *testing.T) {
	events := []LogEvent{
		ev("1", ActionCycleStart, "WO-9", 0),
		ev("2", ActionKeyOn, "", 5*time.Second),
		ev("3", ActionCycleEnd, "WO-9", 50*time.Second),
		ev("4", ActionOrderStart, "WO-1", 100*time.Second),
		ev("5", ActionOrderStop, "WO-1", 110*time.Second),
	}

	segs := SegmentStream(events)

	require.Len(t, segs, 3)
	// Sorted by first event timestamp: WO-9 fallback, keyless bucket, WO-1.
	require.Equal(t, "WO-9", segs[0].OrderID)
	require.Len(t, segs[0].Events, 2)
	require.Equal(t, "", segs[1].OrderID)
	require.Equal(t, "WO-1", segs[2].OrderID)
}

func TestSegmentStreamStopWithoutActiveGoesUnassigned(t *testing.T) {
	events := []LogEvent{
		ev("1", ActionOrderStop, "WO-7", 0),
	}

	segs := SegmentStream(events)

	require.Len(t, segs, 1)
	require.Equal(t, "WO-7", segs[0].OrderID)
	require.Len(t, segs[0].Events, 1)
}

func TestSegmentStreamMismatchedEventGoesUnassigned(t *testing.T) {
	events := []LogEvent{
		ev("1", ActionOrderStart, "WO-1", 0),
		ev("2", ActionCycleStart, "WO-2", 10*time.Second),
		ev("3", ActionOrderStop, "WO-1", 20*time.Second),
	}

	segs := SegmentStream(events)

	require.Len(t, segs, 2)
	require.Equal(t, "WO-1", segs[0].OrderID)
	require.Len(t, segs[0].Events, 2)
	require.Equal(t, "WO-2", segs[1].OrderID)
	require.Len(t, segs[1].Events, 1)
}

func TestSegmentStreamJobTypeFromOrderStart(t *testing.T) {
	setup := ev("1", ActionOrderStart, "WO-1", 0)
	setup.Meta = map[string]string{"order_type": "setup"}
	events := []LogEvent{
		setup,
		ev("2", ActionOrderStop, "WO-1", 10*time.Second),
		ev("3", ActionOrderStart, "WO-2", 20*time.Second),
		ev("4", ActionOrderStop, "WO-2", 30*time.Second),
	}

	segs := SegmentStream(events)

	require.Len(t, segs, 2)
	require.Equal(t, JobTypeNonProduction, segs[0].JobType)
	require.Equal(t, "setup", segs[0].TypeCode)
	require.Equal(t, JobTypeProduction, segs[1].JobType)
}
