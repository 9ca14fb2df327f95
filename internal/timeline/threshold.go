package timeline

import "math"

// ThresholdWindow is the green and warning duration bands around an ideal
// duration. The warning band always encloses the green band, and all bounds
// are inclusive.
type ThresholdWindow struct {
	GreenLo float64
	GreenHi float64
	WarnLo  float64
	WarnHi  float64
}

// BuildWindow derives the bands for an ideal duration. The green buffer is
// max(MinThresholdSec, ideal*ThresholdPct); the warning buffer is
// max(green buffer, ideal*WarningPct).
func BuildWindow(idealSec float64, opts Options) ThresholdWindow {
	green := math.Max(opts.MinThresholdSec, idealSec*opts.ThresholdPct)
	warn := math.Max(green, idealSec*opts.WarningPct)
	return ThresholdWindow{
		GreenLo: idealSec - green,
		GreenHi: idealSec + green,
		WarnLo:  idealSec - warn,
		WarnHi:  idealSec + warn,
	}
}

// InGreen reports whether a duration falls inside the green band.
func (w ThresholdWindow) InGreen(sec float64) bool {
	return sec >= w.GreenLo && sec <= w.GreenHi
}

// InWarning reports whether a duration falls inside the warning band. The
// green band is part of the warning band.
func (w ThresholdWindow) InWarning(sec float64) bool {
	return sec >= w.WarnLo && sec <= w.WarnHi
}
