package detectors

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/singlethrowdata/scout-anomaly-detection/internal/clock"
	"github.com/singlethrowdata/scout-anomaly-detection/internal/config"
	"github.com/singlethrowdata/scout-anomaly-detection/internal/model"
)

func TestSpamBurstInCountry(t *testing.T) {
	analysisDate := day(9)
	sessions := []float64{5, 6, 7, 5, 6, 4, 5, 6, 7, 120}
	bounce := make([]float64, 10)
	duration := make([]float64, 10)
	bounce[9] = 0.93
	duration[9] = 4

	ds := merge(
		series(analysisDate, model.DimensionGeography, model.MetricSessions, "RU", sessions),
		series(analysisDate, model.DimensionGeography, model.MetricBounceRate, "RU", bounce),
		series(analysisDate, model.DimensionGeography, model.MetricAvgSessionDur, "RU", duration),
	)

	det := NewSpamDetector(config.Default(), clock.FixedClock{At: analysisDate})
	prop := testProperty("P")
	alerts, err := det.Evaluate(ds, prop)
	require.NoError(t, err)
	require.Len(t, alerts, 1)

	a := alerts[0]
	assert.Equal(t, model.DetectorSpam, a.DetectorKind)
	assert.Equal(t, model.PriorityP1, a.Priority)
	assert.Equal(t, model.DimensionGeography, a.Dimension)
	assert.Equal(t, "RU", a.DimensionValue)
	assert.GreaterOrEqual(t, a.Details.ZScore, 10.0)
	assert.Equal(t, model.SeverityCritical, a.Severity)
	assert.ElementsMatch(t, []string{"z_score", "bounce_rate", "session_duration"}, a.DetectionMethods)
}

func TestSpamNoAlertWithoutQualitySignals(t *testing.T) {
	analysisDate := day(9)
	sessions := []float64{5, 6, 7, 5, 6, 4, 5, 6, 7, 120}
	bounce := make([]float64, 10)
	duration := make([]float64, 10)
	for i := range duration {
		duration[i] = 60
	}

	ds := merge(
		series(analysisDate, model.DimensionGeography, model.MetricSessions, "RU", sessions),
		series(analysisDate, model.DimensionGeography, model.MetricBounceRate, "RU", bounce),
		series(analysisDate, model.DimensionGeography, model.MetricAvgSessionDur, "RU", duration),
	)

	det := NewSpamDetector(config.Default(), clock.FixedClock{At: analysisDate})
	alerts, err := det.Evaluate(ds, testProperty("P"))
	require.NoError(t, err)
	assert.Empty(t, alerts)
}
