package timeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPairSegmentBasic(t *testing.T) {
	seg := &Segment{OrderID: "WO-1", Events: []LogEvent{
		ev("1", ActionCycleStart, "WO-1", 0),
		ev("2", ActionCycleEnd, "WO-1", 30*time.Second),
	}}

	PairSegment(seg)

	require.Len(t, seg.Cycles, 1)
	require.Equal(t, "1", seg.Cycles[0].Start.ID)
	require.Equal(t, "2", seg.Cycles[0].End.ID)
	require.Equal(t, 30.0, seg.Cycles[0].Seconds)
}

func TestPairSegmentDoubleStartAdoptsNewest(t *testing.T) {
	seg := &Segment{OrderID: "WO-1", Events: []LogEvent{
		ev("1", ActionCycleStart, "WO-1", 0),
		ev("2", ActionCycleStart, "WO-1", 10*time.Second),
		ev("3", ActionCycleEnd, "WO-1", 40*time.Second),
	}}

	PairSegment(seg)

	require.Len(t, seg.Cycles, 1)
	require.Equal(t, "2", seg.Cycles[0].Start.ID)
	require.Equal(t, 30.0, seg.Cycles[0].Seconds)
}

func TestPairSegmentUnmatchedEndDropped(t *testing.T) {
	seg := &Segment{OrderID: "WO-1", Events: []LogEvent{
		ev("1", ActionCycleEnd, "WO-1", 10*time.Second),
		ev("2", ActionCycleStart, "WO-1", 20*time.Second),
		ev("3", ActionCycleEnd, "WO-1", 50*time.Second),
	}}

	PairSegment(seg)

	require.Len(t, seg.Cycles, 1)
	require.Equal(t, "2", seg.Cycles[0].Start.ID)
}

func TestPairSegmentUnclosedStartProducesNothing(t *testing.T) {
	seg := &Segment{OrderID: "WO-1", Events: []LogEvent{
		ev("1", ActionCycleStart, "WO-1", 0),
	}}

	PairSegment(seg)

	require.Empty(t, seg.Cycles)
}

func TestPairSegmentPauseIndependentOfCycles(t *testing.T) {
	seg := &Segment{OrderID: "WO-1", Events: []LogEvent{
		ev("1", ActionCycleStart, "WO-1", 0),
		ev("2", ActionOrderPause, "WO-1", 10*time.Second),
		ev("3", ActionOrderResume, "WO-1", 25*time.Second),
		ev("4", ActionCycleEnd, "WO-1", 60*time.Second),
	}}

	PairSegment(seg)

	require.Len(t, seg.Cycles, 1)
	require.Equal(t, 60.0, seg.Cycles[0].Seconds)
	require.Len(t, seg.Pauses, 1)
	require.Equal(t, 15.0, seg.Pauses[0].Seconds)
}

func TestPairSegmentDurationFlooredAtZero(t *testing.T) {
	// Events arrive in scan order but with reversed timestamps, as can
	// happen inside an unassigned fallback bucket.
	seg := &Segment{OrderID: "WO-1", Events: []LogEvent{
		ev("1", ActionCycleStart, "WO-1", 10*time.Second),
		ev("2", ActionCycleEnd, "WO-1", 5*time.Second),
	}}

	PairSegment(seg)

	require.Len(t, seg.Cycles, 1)
	require.Equal(t, 0.0, seg.Cycles[0].Seconds)
}
