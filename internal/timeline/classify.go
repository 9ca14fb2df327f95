package timeline

import (
	"fmt"
	"math"
)

// Classification grades a duration against its threshold window.
type Classification string

const (
	ClassGood    Classification = "GOOD"
	ClassWarning Classification = "WARNING"
	ClassBad     Classification = "BAD"
	ClassUnknown Classification = "UNKNOWN"
)

// ReasonCode is the closed set of classification reasons. Every verdict
// carries exactly one.
type ReasonCode string

const (
	ReasonWithinThreshold         ReasonCode = "WITHIN_THRESHOLD"
	ReasonLowerThanThreshold      ReasonCode = "LOWER_THAN_THRESHOLD"
	ReasonHigherThanThreshold     ReasonCode = "HIGHER_THAN_THRESHOLD"
	ReasonSevereLower             ReasonCode = "SEVERE_LOWER"
	ReasonSevereHigher            ReasonCode = "SEVERE_HIGHER"
	ReasonInvalidDuration         ReasonCode = "INVALID_DURATION"
	ReasonMissingBaseline         ReasonCode = "MISSING_BASELINE"
	ReasonInvalidTimestamp        ReasonCode = "INVALID_TIMESTAMP"
	ReasonTargetZeroTimeSaved     ReasonCode = "TARGET_ZERO_TIME_SAVED_POSITIVE"
	ReasonQuantitySanityExceeded  ReasonCode = "QUANTITY_SANITY_EXCEEDED"
	ReasonAcceptedExceedsAllotted ReasonCode = "ACCEPTED_EXCEEDS_ALLOTTED"
)

// withinThresholdText is the fixed phrase for on-target durations.
const withinThresholdText = "within threshold"

// Verdict is one classification decision with its metrics.
type Verdict struct {
	Class     Classification
	Reason    ReasonCode
	Text      string
	ActualSec float64
	IdealSec  float64
	DeltaSec  float64
	DeltaPct  float64
}

// Classifier assigns classifications and reason codes to observed durations.
type Classifier struct {
	opts Options
}

// NewClassifier creates a Classifier with the given options.
func NewClassifier(opts Options) *Classifier {
	return &Classifier{opts: opts.withDefaults()}
}

// Classify grades an actual duration against a resolved ideal duration.
// Invalid inputs become UNKNOWN verdicts rather than errors: data quality is
// an outcome here, not an exception.
func (c *Classifier) Classify(actualSec, idealSec float64) Verdict {
	if !isValidDuration(actualSec) {
		return Verdict{
			Class:     ClassUnknown,
			Reason:    ReasonInvalidDuration,
			Text:      "invalid duration",
			ActualSec: actualSec,
			IdealSec:  idealSec,
		}
	}
	if !isValidDuration(idealSec) {
		return Verdict{
			Class:     ClassUnknown,
			Reason:    ReasonMissingBaseline,
			Text:      "missing baseline",
			ActualSec: actualSec,
			IdealSec:  idealSec,
		}
	}

	delta := actualSec - idealSec
	v := Verdict{
		ActualSec: actualSec,
		IdealSec:  idealSec,
		DeltaSec:  delta,
		DeltaPct:  delta / idealSec * 100,
	}

	window := BuildWindow(idealSec, c.opts)
	switch {
	case window.InGreen(actualSec):
		v.Class = ClassGood
		v.Reason = ReasonWithinThreshold
		v.Text = withinThresholdText
	case window.InWarning(actualSec):
		v.Class = ClassWarning
		if actualSec < idealSec {
			v.Reason = ReasonLowerThanThreshold
		} else {
			v.Reason = ReasonHigherThanThreshold
		}
		v.Text = deltaText(delta)
	default:
		v.Class = ClassBad
		if actualSec < idealSec {
			v.Reason = ReasonSevereLower
		} else {
			v.Reason = ReasonSevereHigher
		}
		v.Text = deltaText(delta)
	}
	return v
}

// ClassifyJob grades a job block duration and then applies the work order's
// data-quality override rules and the time-saved annotation.
func (c *Classifier) ClassifyJob(actualSec, idealSec float64, meta OrderMeta) Verdict {
	v := c.Classify(actualSec, idealSec)
	v = c.applyOverrides(v, meta)
	return annotateTimeSaved(v, meta)
}

// applyOverrides downgrades an otherwise GOOD verdict to WARNING when the
// work order's reported figures are suspect. Overrides run in fixed priority
// order and only the first match fires; the delta-based text and metrics
// stay untouched, only the class and reason code change.
func (c *Classifier) applyOverrides(v Verdict, meta OrderMeta) Verdict {
	if v.Class != ClassGood {
		return v
	}
	switch {
	case meta.TargetSeconds == 0 && meta.TimeSavedSec > 0:
		v.Class = ClassWarning
		v.Reason = ReasonTargetZeroTimeSaved
	case meta.AllottedQty > 0 && float64(meta.AcceptedQty+meta.RejectedQty) > float64(meta.AllottedQty)*c.opts.QuantitySanityMultiplier:
		v.Class = ClassWarning
		v.Reason = ReasonQuantitySanityExceeded
	case meta.AllottedQty > 0 && meta.AcceptedQty > meta.AllottedQty:
		v.Class = ClassWarning
		v.Reason = ReasonAcceptedExceedsAllotted
	}
	return v
}

// annotateTimeSaved appends a mismatch note when the reported time-saved
// figure is more than a second away from target minus actual. The note never
// changes the classification, only the text.
func annotateTimeSaved(v Verdict, meta OrderMeta) Verdict {
	if meta.TimeSavedSec == 0 {
		return v
	}
	expected := meta.TargetSeconds - v.ActualSec
	if math.Abs(meta.TimeSavedSec-expected) > 1 {
		v.Text += " (time_saved mismatch)"
	}
	return v
}

// deltaText renders a signed delta as the rounded absolute difference plus
// a direction word: "5 sec excess" above the ideal, "5 sec lower" below it.
func deltaText(deltaSec float64) string {
	n := int64(math.Round(math.Abs(deltaSec)))
	if deltaSec < 0 {
		return fmt.Sprintf("%d sec lower", n)
	}
	return fmt.Sprintf("%d sec excess", n)
}
