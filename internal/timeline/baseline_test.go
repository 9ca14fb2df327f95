package timeline

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolveBaselineTargetWins(t *testing.T) {
	b := ResolveBaseline(90, []float64{100, 110, 120}, 5, 120)

	require.Equal(t, BaselineTarget, b.Source)
	require.Equal(t, 90.0, b.IdealSec)
}

func TestResolveBaselineRollingMedian(t *testing.T) {
	b := ResolveBaseline(0, []float64{100, 110, 120, 140, 160}, 5, 240)

	require.Equal(t, BaselineRollingMedian, b.Source)
	require.Equal(t, 120.0, b.IdealSec)
}

func TestResolveBaselineEvenCountMedian(t *testing.T) {
	b := ResolveBaseline(0, []float64{100, 120, 130, 150}, 5, 240)

	require.Equal(t, BaselineRollingMedian, b.Source)
	require.Equal(t, 125.0, b.IdealSec)
}

func TestResolveBaselineWindowTakesMostRecent(t *testing.T) {
	history := []float64{500, 100, 110, 120, 140, 160}

	b := ResolveBaseline(0, history, 5, 240)

	// The 500 falls outside the five-value window.
	require.Equal(t, 120.0, b.IdealSec)
}

func TestResolveBaselineSkipsInvalidHistory(t *testing.T) {
	history := []float64{0, -5, math.NaN(), math.Inf(1), 100}

	b := ResolveBaseline(0, history, 5, 240)

	require.Equal(t, BaselineRollingMedian, b.Source)
	require.Equal(t, 100.0, b.IdealSec)
}

func TestResolveBaselineDefaultFallback(t *testing.T) {
	b := ResolveBaseline(0, nil, 5, 240)
	require.Equal(t, BaselineDefault, b.Source)
	require.Equal(t, 240.0, b.IdealSec)

	b = ResolveBaseline(0, []float64{0, -1}, 5, 240)
	require.Equal(t, BaselineDefault, b.Source)
}

func TestResolveBaselineNegativeTargetIgnored(t *testing.T) {
	b := ResolveBaseline(-10, []float64{100}, 5, 240)

	require.Equal(t, BaselineRollingMedian, b.Source)
	require.Equal(t, 100.0, b.IdealSec)
}
