package digestrender

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/singlethrowdata/scout-anomaly-detection/internal/model"
)

func TestRenderAllClear(t *testing.T) {
	d := &model.Digest{
		ReferenceDate:   time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
		AllClear:        true,
		PropertyRollups: []model.PropertyRollup{{PropertyID: "P1"}, {PropertyID: "P2"}},
	}

	html := RenderHTML(d)
	assert.Contains(t, html, "All Clear")
	assert.Contains(t, html, "2 properties monitored")

	text := RenderText(d)
	assert.Contains(t, text, "all clear")
	assert.NotContains(t, text, "Critical Alerts")
}

func TestRenderWithAlerts(t *testing.T) {
	d := &model.Digest{
		ReferenceDate: time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
		TotalAlerts:   2,
		Alerts: []model.Alert{
			{
				PropertyID: "P1", DetectorKind: model.DetectorDisaster, Priority: model.PriorityP0,
				Severity: model.SeverityCritical, Dimension: model.DimensionOverall, DimensionValue: "site-wide",
				Metric: model.MetricSessions, BusinessImpact: 100, Message: "sessions collapsed",
				Recommendation: "check tracking tag", Date: time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
			},
			{
				PropertyID: "P1", DetectorKind: model.DetectorSpam, Priority: model.PriorityP1,
				Severity: model.SeverityWarning, Dimension: model.DimensionGeography, DimensionValue: "RU",
				Metric: model.MetricSessions, BusinessImpact: 60, Message: "spam spike",
				Recommendation: "review referrers", Date: time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
			},
		},
		PropertyRollups: []model.PropertyRollup{{PropertyID: "P1"}},
	}

	html := RenderHTML(d)
	assert.Contains(t, html, "Critical Alerts Requiring Action")
	assert.Contains(t, html, "Warnings to Monitor")
	assert.Contains(t, html, "sessions collapsed")
	assert.False(t, strings.Contains(html, "All Clear"))

	text := RenderText(d)
	assert.Contains(t, text, "[P0/critical] P1 overall: sessions collapsed")
	assert.Contains(t, text, "[P1/warning] P1 geography: spam spike")
}
