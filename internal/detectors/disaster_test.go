package detectors

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/singlethrowdata/scout-anomaly-detection/internal/clock"
	"github.com/singlethrowdata/scout-anomaly-detection/internal/config"
	"github.com/singlethrowdata/scout-anomaly-detection/internal/model"
)

func TestDisasterZeroConversions(t *testing.T) {
	analysisDate := day(13)
	conversions := []float64{3, 4, 5, 2, 3, 4, 5, 3, 4, 5, 3, 4, 5, 0}
	sessions := make([]float64, 14)
	for i := range sessions {
		sessions[i] = 500
	}

	ds := merge(
		series(analysisDate, model.DimensionOverall, model.MetricConversions, "site-wide", conversions),
		series(analysisDate, model.DimensionOverall, model.MetricSessions, "site-wide", sessions),
	)

	det := NewDisasterDetector(config.Default(), clock.FixedClock{At: analysisDate})
	alerts, err := det.Evaluate(ds, testProperty("P"))
	require.NoError(t, err)
	require.Len(t, alerts, 1)

	a := alerts[0]
	assert.Equal(t, model.DetectorDisaster, a.DetectorKind)
	assert.Equal(t, model.PriorityP0, a.Priority)
	assert.Equal(t, model.MetricConversions, a.Metric)
	assert.Equal(t, 0.0, a.ObservedValue)
	assert.InDelta(t, 4.0, a.BaselineValue, 0.01)
	assert.Equal(t, 100, a.BusinessImpact)
	assert.Equal(t, "tracking_failure", a.Details.DisasterType)
}

func TestDisasterNoAlertWhenHealthy(t *testing.T) {
	analysisDate := day(13)
	conversions := make([]float64, 14)
	sessions := make([]float64, 14)
	for i := range sessions {
		sessions[i] = 500
		conversions[i] = 5
	}

	ds := merge(
		series(analysisDate, model.DimensionOverall, model.MetricConversions, "site-wide", conversions),
		series(analysisDate, model.DimensionOverall, model.MetricSessions, "site-wide", sessions),
	)

	det := NewDisasterDetector(config.Default(), clock.FixedClock{At: analysisDate})
	alerts, err := det.Evaluate(ds, testProperty("P"))
	require.NoError(t, err)
	assert.Empty(t, alerts)
}
