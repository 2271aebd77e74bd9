package detectors

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/singlethrowdata/scout-anomaly-detection/internal/clock"
	"github.com/singlethrowdata/scout-anomaly-detection/internal/config"
	"github.com/singlethrowdata/scout-anomaly-detection/internal/model"
)

func TestRecordNewHighOnDevice(t *testing.T) {
	analysisDate := day(92)
	values := make([]float64, 93)
	for i := range values {
		values[i] = 900
	}
	values[61] = 1200
	values[92] = 1500

	ds := series(analysisDate, model.DimensionDevice, model.MetricSessions, "mobile", values)

	det := NewRecordDetector(config.Default(), clock.FixedClock{At: analysisDate})
	alerts, err := det.Evaluate(ds, testProperty("P"))
	require.NoError(t, err)
	require.Len(t, alerts, 1)

	a := alerts[0]
	assert.Equal(t, model.DetectorRecord, a.DetectorKind)
	assert.Equal(t, model.PriorityP3, a.Priority)
	assert.Equal(t, "high", a.Details.RecordType)
	assert.Equal(t, 1200.0, a.Details.PreviousRecord)
	assert.InDelta(t, 25.0, a.Details.Increase, 0.01)
	assert.Equal(t, 38, a.BusinessImpact)
}

func TestRecordNewLow(t *testing.T) {
	analysisDate := day(10)
	values := make([]float64, 11)
	for i := range values {
		values[i] = 200
	}
	values[10] = 100

	ds := series(analysisDate, model.DimensionOverall, model.MetricSessions, "site-wide", values)

	det := NewRecordDetector(config.Default(), clock.FixedClock{At: analysisDate})
	alerts, err := det.Evaluate(ds, testProperty("P"))
	require.NoError(t, err)
	require.Len(t, alerts, 1)

	a := alerts[0]
	assert.Equal(t, model.PriorityP1, a.Priority)
	assert.Equal(t, "low", a.Details.RecordType)
	assert.Equal(t, 75, a.BusinessImpact)
}
