package timeline

// Options carries every tuning knob the pipeline recognizes. Callers build
// it explicitly (usually from config) and pass it in; nothing in this
// package reads ambient state.
type Options struct {
	// ToleranceSec is the gap ceiling, in seconds, both for extending a job
	// block across consecutive cycles and for telling a loading/unloading
	// gap apart from an idle/break gap.
	ToleranceSec float64

	// ThresholdPct and MinThresholdSec shape the green band around an ideal
	// duration: buffer = max(MinThresholdSec, ideal*ThresholdPct).
	ThresholdPct    float64
	MinThresholdSec float64

	// WarningPct shapes the warning band the same way. The warning band
	// always encloses the green band.
	WarningPct float64

	// RollingMedianWindow is how many recent valid durations feed the
	// historical median when no explicit target exists.
	RollingMedianWindow int

	// FallbackIdealSec is the baseline of last resort.
	FallbackIdealSec float64

	// QuantitySanityMultiplier bounds accepted+rejected against allotted
	// quantity before the quantity override fires.
	QuantitySanityMultiplier float64

	// BreakKeywords mark a pause reason as a declared break (lunch, tea...).
	// Matching is a case-insensitive substring test.
	BreakKeywords []string
}

// DefaultOptions returns the tuning used when a knob is left unset.
func DefaultOptions() Options {
	return Options{
		ToleranceSec:             600,
		ThresholdPct:             0.1,
		MinThresholdSec:          5,
		WarningPct:               0.25,
		RollingMedianWindow:      5,
		FallbackIdealSec:         120,
		QuantitySanityMultiplier: 1.5,
		BreakKeywords:            []string{"lunch", "tea", "break", "dinner"},
	}
}

// withDefaults fills zero-valued knobs from DefaultOptions so partially
// populated configs behave predictably.
func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.ToleranceSec <= 0 {
		o.ToleranceSec = def.ToleranceSec
	}
	if o.ThresholdPct <= 0 {
		o.ThresholdPct = def.ThresholdPct
	}
	if o.MinThresholdSec <= 0 {
		o.MinThresholdSec = def.MinThresholdSec
	}
	if o.WarningPct <= 0 {
		o.WarningPct = def.WarningPct
	}
	if o.RollingMedianWindow <= 0 {
		o.RollingMedianWindow = def.RollingMedianWindow
	}
	if o.FallbackIdealSec <= 0 {
		o.FallbackIdealSec = def.FallbackIdealSec
	}
	if o.QuantitySanityMultiplier <= 0 {
		o.QuantitySanityMultiplier = def.QuantitySanityMultiplier
	}
	if len(o.BreakKeywords) == 0 {
		o.BreakKeywords = def.BreakKeywords
	}
	return o
}
