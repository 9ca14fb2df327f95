package timeline

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassifyBands(t *testing.T) {
	// ideal 120 with defaults: green 108..132, warning 90..150.
	c := NewClassifier(DefaultOptions())

	cases := []struct {
		name   string
		actual float64
		class  Classification
		reason ReasonCode
		text   string
	}{
		{"on ideal", 120, ClassGood, ReasonWithinThreshold, "within threshold"},
		{"green low edge", 108, ClassGood, ReasonWithinThreshold, "within threshold"},
		{"green high edge", 132, ClassGood, ReasonWithinThreshold, "within threshold"},
		{"warning low", 100, ClassWarning, ReasonLowerThanThreshold, "20 sec lower"},
		{"warning high", 140, ClassWarning, ReasonHigherThanThreshold, "20 sec excess"},
		{"warning low edge", 90, ClassWarning, ReasonLowerThanThreshold, "30 sec lower"},
		{"warning high edge", 150, ClassWarning, ReasonHigherThanThreshold, "30 sec excess"},
		{"severe low", 89, ClassBad, ReasonSevereLower, "31 sec lower"},
		{"severe high", 220, ClassBad, ReasonSevereHigher, "100 sec excess"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v := c.Classify(tc.actual, 120)
			require.Equal(t, tc.class, v.Class)
			require.Equal(t, tc.reason, v.Reason)
			require.Equal(t, tc.text, v.Text)
		})
	}
}

func TestClassifyMetrics(t *testing.T) {
	c := NewClassifier(DefaultOptions())

	v := c.Classify(140, 120)

	require.Equal(t, 140.0, v.ActualSec)
	require.Equal(t, 120.0, v.IdealSec)
	require.Equal(t, 20.0, v.DeltaSec)
	require.InDelta(t, 16.667, v.DeltaPct, 0.001)
}

func TestClassifyInvalidDuration(t *testing.T) {
	c := NewClassifier(DefaultOptions())

	for _, actual := range []float64{0, -5, math.NaN()} {
		v := c.Classify(actual, 120)
		require.Equal(t, ClassUnknown, v.Class)
		require.Equal(t, ReasonInvalidDuration, v.Reason)
		require.Equal(t, "invalid duration", v.Text)
		require.Equal(t, 120.0, v.IdealSec)
	}
}

func TestClassifyMissingBaseline(t *testing.T) {
	c := NewClassifier(DefaultOptions())

	v := c.Classify(100, 0)

	require.Equal(t, ClassUnknown, v.Class)
	require.Equal(t, ReasonMissingBaseline, v.Reason)
	require.Equal(t, "missing baseline", v.Text)
}

func TestClassifyJobTargetZeroTimeSaved(t *testing.T) {
	c := NewClassifier(DefaultOptions())
	meta := OrderMeta{OrderID: "WO-1", TimeSavedSec: 30}

	// Baseline fell through to a non-target source, so actual matches ideal,
	// but a time-saved figure against a zero target is contradictory.
	v := c.ClassifyJob(120, 120, meta)

	require.Equal(t, ClassWarning, v.Class)
	require.Equal(t, ReasonTargetZeroTimeSaved, v.Reason)
	require.Equal(t, "within threshold (time_saved mismatch)", v.Text)
}

func TestClassifyJobQuantitySanityWinsOverAccepted(t *testing.T) {
	c := NewClassifier(DefaultOptions())
	meta := OrderMeta{
		OrderID:       "WO-1",
		TargetSeconds: 120,
		AllottedQty:   10,
		AcceptedQty:   12,
		RejectedQty:   4,
	}

	// accepted+rejected = 16 > 10*1.5; that rule outranks accepted>allotted.
	v := c.ClassifyJob(120, 120, meta)

	require.Equal(t, ClassWarning, v.Class)
	require.Equal(t, ReasonQuantitySanityExceeded, v.Reason)
	require.Equal(t, "within threshold", v.Text)
}

func TestClassifyJobAcceptedExceedsAllotted(t *testing.T) {
	c := NewClassifier(DefaultOptions())
	meta := OrderMeta{
		OrderID:       "WO-1",
		TargetSeconds: 120,
		AllottedQty:   10,
		AcceptedQty:   12,
	}

	v := c.ClassifyJob(120, 120, meta)

	require.Equal(t, ClassWarning, v.Class)
	require.Equal(t, ReasonAcceptedExceedsAllotted, v.Reason)
}

func TestClassifyJobOverridesSkipNonGood(t *testing.T) {
	c := NewClassifier(DefaultOptions())
	meta := OrderMeta{
		OrderID:       "WO-1",
		TargetSeconds: 120,
		AllottedQty:   10,
		AcceptedQty:   12,
		RejectedQty:   4,
	}

	v := c.ClassifyJob(140, 120, meta)

	require.Equal(t, ClassWarning, v.Class)
	require.Equal(t, ReasonHigherThanThreshold, v.Reason)
}

func TestClassifyJobNoAllottedNoQuantityOverride(t *testing.T) {
	c := NewClassifier(DefaultOptions())
	meta := OrderMeta{OrderID: "WO-1", TargetSeconds: 120, AcceptedQty: 9}

	v := c.ClassifyJob(120, 120, meta)

	require.Equal(t, ClassGood, v.Class)
	require.Equal(t, ReasonWithinThreshold, v.Reason)
}

func TestClassifyJobTimeSavedAnnotation(t *testing.T) {
	c := NewClassifier(DefaultOptions())

	// target 700, actual 695: consistent time-saved is 5.
	base := OrderMeta{OrderID: "WO-1", TargetSeconds: 700}

	exact := base
	exact.TimeSavedSec = 5
	require.Equal(t, "within threshold", c.ClassifyJob(695, 700, exact).Text)

	within := base
	within.TimeSavedSec = 6 // off by exactly one second, still tolerated
	require.Equal(t, "within threshold", c.ClassifyJob(695, 700, within).Text)

	off := base
	off.TimeSavedSec = 6.5
	require.Equal(t, "within threshold (time_saved mismatch)", c.ClassifyJob(695, 700, off).Text)

	unset := base // TimeSavedSec zero: no note even when the gap is large
	require.Equal(t, "300 sec lower", c.ClassifyJob(400, 700, unset).Text)
}
