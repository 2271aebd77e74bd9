package detectors

import (
	"fmt"
	"math"

	"github.com/singlethrowdata/scout-anomaly-detection/internal/clock"
	"github.com/singlethrowdata/scout-anomaly-detection/internal/config"
	"github.com/singlethrowdata/scout-anomaly-detection/internal/model"
	"github.com/singlethrowdata/scout-anomaly-detection/internal/stats"
)

// trendMetrics are the metrics the scout anomaly detection spec scans for
// moving-average crossovers: sessions, users, conversions.
var trendMetrics = []model.Metric{model.MetricSessions, model.MetricUsers, model.MetricConversions}

// TrendDetector flags sustained moving-average crossovers: a yesterday-
// anchored 30-day mean (MA_30) against a yesterday-anchored 180-day mean
// (MA_180) over the same series — the two windows overlap, MA_30's days are
// a subset of MA_180's. Grounded on
// scripts/scout_trend_detector.py's recent-vs-baseline comparison shape,
// but the window anchoring and overlap, the metric set, the volume floor,
// and the business_impact formula follow the spec's own numbers rather
// than the Python script's disjoint-prior-window version, which computes a
// materially different delta_pct for the same input series.
type TrendDetector struct {
	cfg *config.Config
	clk clock.Clock
}

func NewTrendDetector(cfg *config.Config, clk clock.Clock) *TrendDetector {
	return &TrendDetector{cfg: cfg, clk: clk}
}

func (d *TrendDetector) Name() model.DetectorKind { return model.DetectorTrend }

func (d *TrendDetector) Evaluate(ds *model.CleanDataset, prop *model.PropertyConfig) ([]model.Alert, error) {
	var alerts []model.Alert

	for _, dim := range []model.Dimension{model.DimensionOverall, model.DimensionGeography, model.DimensionDevice, model.DimensionTrafficSource, model.DimensionLandingPage} {
		var dimAlerts []model.Alert
		for _, dv := range scannableValues(ds, prop, dim, model.MetricSessions) {
			sessions := ds.ValuesFor(dim, model.MetricSessions, dv)
			sessionsPts := pointsUpTo(sessions, ds.AnalysisDate)
			if len(sessionsPts) < d.cfg.Trend.BaselineWindowDays {
				continue
			}
			sessionsMA180, err := stats.Mean(valuesOf(sessionsPts[len(sessionsPts)-d.cfg.Trend.BaselineWindowDays:]), 1)
			if err != nil {
				continue
			}
			volumeFloor := d.cfg.Trend.VolumeFloor
			if v, hasOverride := prop.VolumeFloor(string(model.DetectorTrend)); hasOverride {
				volumeFloor = v
			}
			if sessionsMA180 < volumeFloor {
				continue
			}

			for _, metric := range trendMetrics {
				if a, ok := d.evaluateSeries(ds, prop, dim, metric, dv); ok {
					dimAlerts = append(dimAlerts, a)
				}
			}
		}
		alerts = append(alerts, capPerDimension(dimAlerts, d.cfg.Trend.MaxPerPropertyDim)...)
	}
	return alerts, nil
}

func (d *TrendDetector) evaluateSeries(ds *model.CleanDataset, prop *model.PropertyConfig, dim model.Dimension, metric model.Metric, dv string) (model.Alert, bool) {
	series := ds.ValuesFor(dim, metric, dv)
	pts := pointsUpTo(series, ds.AnalysisDate)

	recentWindow := d.cfg.Trend.RecentWindowDays
	baselineWindow := d.cfg.Trend.BaselineWindowDays
	if len(pts) < baselineWindow {
		return model.Alert{}, false
	}

	// MA_30 and MA_180 are both anchored on the analysis date and overlap:
	// MA_30's 30 days are the most recent 30 of MA_180's 180.
	baselinePts := pts[len(pts)-baselineWindow:]
	recentPts := baselinePts[len(baselinePts)-recentWindow:]

	recentAvg, err := stats.Mean(valuesOf(recentPts), 1)
	if err != nil {
		return model.Alert{}, false
	}
	baselineAvg, err := stats.Mean(valuesOf(baselinePts), 1)
	if err != nil || baselineAvg <= 0 {
		return model.Alert{}, false
	}

	deltaFrac, err := stats.PercentChange(recentAvg, baselineAvg)
	if err != nil {
		return model.Alert{}, false
	}
	changePct := deltaFrac * 100
	if math.Abs(changePct) < d.cfg.Trend.ThresholdPct {
		return model.Alert{}, false
	}

	direction := "up"
	priority := model.PriorityP3
	severity := model.SeverityInfo
	recommendation := fmt.Sprintf("Capitalize on %s growth", dv)
	if changePct < 0 {
		direction = "down"
		priority = model.PriorityP2
		severity = model.SeverityWarning
		recommendation = fmt.Sprintf("Address declining %s traffic", dv)
	}

	impact := clampImpact(int(math.Round(math.Abs(changePct) * 0.4)))
	date := recentPts[len(recentPts)-1].Date

	return model.Alert{
		DetectorKind:     model.DetectorTrend,
		Priority:         priority,
		PropertyID:       prop.PropertyID,
		Date:             date,
		Dimension:        dim,
		DimensionValue:   dv,
		Metric:           metric,
		ObservedValue:    round2(recentAvg),
		BaselineValue:    round2(baselineAvg),
		Delta:            round2(changePct),
		Severity:         severity,
		BusinessImpact:   impact,
		DetectionMethods: []string{"ma_crossover"},
		Message:          fmt.Sprintf("%s: %.1f%% trend %s — 30-day avg %.0f vs 180-day avg %.0f", dv, math.Abs(changePct), direction, recentAvg, baselineAvg),
		Recommendation:   recommendation,
		GeneratedAt:      d.clk.Now(),
		Details: model.AlertDetails{
			TrendDirection: direction,
			MA30:           round2(recentAvg),
			MA180:          round2(baselineAvg),
			PercentChange:  round2(changePct),
		},
	}, true
}

func valuesOf(points []model.MetricPoint) []float64 {
	out := make([]float64, len(points))
	for i, p := range points {
		out[i] = p.Value
	}
	return out
}

// capPerDimension keeps the strongest alerts per dimension, ranked by
// |delta_pct|, so one dimension's chatter (e.g. dozens of landing pages
// trending) can't dominate the property-level cap before the consolidator
// even runs.
func capPerDimension(alerts []model.Alert, max int) []model.Alert {
	if max <= 0 || len(alerts) <= max {
		return alerts
	}
	sorted := append([]model.Alert(nil), alerts...)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && math.Abs(sorted[j].Delta) > math.Abs(sorted[j-1].Delta); j-- {
			sorted[j], sorted[j-1] = sorted[j-1], sorted[j]
		}
	}
	return sorted[:max]
}
