package timeline

import (
	"math"
	"sort"
)

// BaselineSource records where a resolved ideal duration came from.
type BaselineSource string

const (
	BaselineTarget        BaselineSource = "TARGET"
	BaselineRollingMedian BaselineSource = "ROLLING_MEDIAN"
	BaselineDefault       BaselineSource = "DEFAULT"
)

// Baseline is the resolved ideal duration for a classification key together
// with its provenance.
type Baseline struct {
	Source   BaselineSource
	IdealSec float64
}

// ResolveBaseline picks the ideal duration in strict priority order: a
// positive explicit target wins; otherwise the median of the most recent
// window of valid history values; otherwise the fallback constant.
func ResolveBaseline(targetSec float64, history []float64, window int, fallbackSec float64) Baseline {
	if isValidDuration(targetSec) {
		return Baseline{Source: BaselineTarget, IdealSec: targetSec}
	}
	if recent := recentValid(history, window); len(recent) > 0 {
		return Baseline{Source: BaselineRollingMedian, IdealSec: median(recent)}
	}
	return Baseline{Source: BaselineDefault, IdealSec: fallbackSec}
}

// recentValid filters non-positive and non-finite entries out of history and
// returns the last window survivors in original order.
func recentValid(history []float64, window int) []float64 {
	if window <= 0 {
		return nil
	}
	valid := make([]float64, 0, len(history))
	for _, v := range history {
		if isValidDuration(v) {
			valid = append(valid, v)
		}
	}
	if len(valid) > window {
		valid = valid[len(valid)-window:]
	}
	return valid
}

// median of an even-count list is the mean of the two central values.
func median(values []float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

// isValidDuration reports whether a duration is positive and finite.
func isValidDuration(sec float64) bool {
	return sec > 0 && !math.IsNaN(sec) && !math.IsInf(sec, 0)
}
