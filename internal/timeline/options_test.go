package timeline

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWithDefaultsFillsZeroKnobs(t *testing.T) {
	require.Equal(t, DefaultOptions(), Options{}.withDefaults())
}

func TestWithDefaultsKeepsSetKnobs(t *testing.T) {
	o := Options{ToleranceSec: 60, BreakKeywords: []string{"pause"}}.withDefaults()

	require.Equal(t, 60.0, o.ToleranceSec)
	require.Equal(t, []string{"pause"}, o.BreakKeywords)
	require.Equal(t, 0.1, o.ThresholdPct)
	require.Equal(t, 5, o.RollingMedianWindow)
}
