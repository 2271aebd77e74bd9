package consolidate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/singlethrowdata/scout-anomaly-detection/internal/model"
)

func makeAlerts(priority model.Priority, n, startImpact int) []model.Alert {
	out := make([]model.Alert, n)
	for i := 0; i < n; i++ {
		out[i] = model.Alert{
			PropertyID:     "P",
			Priority:       priority,
			BusinessImpact: startImpact + i,
			Date:           time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
			DimensionValue: "site-wide",
		}
	}
	return out
}

func TestCapEnforcement(t *testing.T) {
	var candidates []model.Alert
	candidates = append(candidates, makeAlerts(model.PriorityP0, 3, 90)...)
	candidates = append(candidates, makeAlerts(model.PriorityP1, 5, 80)...)
	candidates = append(candidates, makeAlerts(model.PriorityP2, 10, 1)...)
	candidates = append(candidates, makeAlerts(model.PriorityP3, 20, 30)...)

	result := Consolidate(candidates, 12)

	require.Len(t, result.Alerts, 12)
	assert.Equal(t, 23, result.SuppressedCount)

	var p0, p1 int
	for _, a := range result.Alerts {
		switch a.Priority {
		case model.PriorityP0:
			p0++
		case model.PriorityP1:
			p1++
		}
	}
	assert.Equal(t, 3, p0)
	assert.Equal(t, 5, p1)
}

func TestRecordLowSupersedesTrendDown(t *testing.T) {
	date := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	candidates := []model.Alert{
		{
			PropertyID: "P", DetectorKind: model.DetectorRecord, Priority: model.PriorityP1,
			Dimension: model.DimensionOverall, DimensionValue: "site-wide", Metric: model.MetricSessions,
			Date: date, Details: model.AlertDetails{RecordType: "low"},
		},
		{
			PropertyID: "P", DetectorKind: model.DetectorTrend, Priority: model.PriorityP2,
			Dimension: model.DimensionOverall, DimensionValue: "site-wide", Metric: model.MetricSessions,
			Date: date, Details: model.AlertDetails{TrendDirection: "down"},
		},
	}

	result := Consolidate(candidates, 12)
	require.Len(t, result.Alerts, 1)
	assert.Equal(t, model.DetectorRecord, result.Alerts[0].DetectorKind)
}

func TestTotalOrderDeterministic(t *testing.T) {
	candidates := makeAlerts(model.PriorityP2, 5, 10)
	r1 := Consolidate(candidates, 12)
	r2 := Consolidate(candidates, 12)
	assert.Equal(t, r1.Alerts, r2.Alerts)
}
