package detectors

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/singlethrowdata/scout-anomaly-detection/internal/clock"
	"github.com/singlethrowdata/scout-anomaly-detection/internal/config"
	"github.com/singlethrowdata/scout-anomaly-detection/internal/model"
)

func TestTrendDown(t *testing.T) {
	analysisDate := day(179)
	values := make([]float64, 180)
	// MA_180 and MA_30 are both anchored on analysisDate and overlap: the
	// last 30 values are also part of the 180-day window. For the
	// overlapping mean to come out to exactly 1000 with a last-30 mean of
	// 820, the first 150 days must average 1036, not 1000:
	// (150*1036 + 30*820) / 180 = 1000.
	for i := 0; i < 150; i++ {
		values[i] = 1036
	}
	for i := 150; i < 180; i++ {
		values[i] = 820
	}

	ds := series(analysisDate, model.DimensionOverall, model.MetricSessions, "site-wide", values)

	det := NewTrendDetector(config.Default(), clock.FixedClock{At: analysisDate})
	alerts, err := det.Evaluate(ds, testProperty("P"))
	require.NoError(t, err)
	require.Len(t, alerts, 1)

	a := alerts[0]
	assert.Equal(t, model.DetectorTrend, a.DetectorKind)
	assert.Equal(t, model.PriorityP2, a.Priority)
	assert.Equal(t, "down", a.Details.TrendDirection)
	assert.InDelta(t, 1000.0, a.Details.MA180, 0.5)
	assert.InDelta(t, -18.0, a.Details.PercentChange, 0.05)
}

func TestTrendUpLowVolumeSuppressed(t *testing.T) {
	analysisDate := day(179)
	values := make([]float64, 180)
	for i := 0; i < 150; i++ {
		values[i] = 10
	}
	for i := 150; i < 180; i++ {
		values[i] = 40
	}

	ds := series(analysisDate, model.DimensionOverall, model.MetricSessions, "site-wide", values)

	cfg := config.Default()
	cfg.Trend.VolumeFloor = 50 // MA_180 of sessions (15) stays below the floor
	det := NewTrendDetector(cfg, clock.FixedClock{At: analysisDate})
	alerts, err := det.Evaluate(ds, testProperty("P"))
	require.NoError(t, err)
	assert.Empty(t, alerts)
}
