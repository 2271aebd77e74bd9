package detectors

import (
	"fmt"
	"math"

	"github.com/singlethrowdata/scout-anomaly-detection/internal/clock"
	"github.com/singlethrowdata/scout-anomaly-detection/internal/config"
	"github.com/singlethrowdata/scout-anomaly-detection/internal/model"
	"github.com/singlethrowdata/scout-anomaly-detection/internal/stats"
)

// recordWindowMarginDays is the margin the scout anomaly detection spec
// holds between "yesterday" (the analysis date) and the 90-day record
// window: the window ends 2 days before yesterday.
const recordWindowMarginDays = 1

// recordMetrics are the metrics the spec scans for 90-day records.
var recordMetrics = []model.Metric{model.MetricSessions, model.MetricUsers, model.MetricConversions}

// RecordDetector finds 90-day (by default) all-time highs and lows,
// scanned overall, by device, by traffic source, and by landing page.
// Grounded on scripts/scout_record_detector.py: a new high is good news
// (P3), a new low is bad news (P1) — the inverted polarity the spec keeps
// to distinguish "all-time high" and "all-time low" Alerts by priority
// rather than by a separate severity axis. The volume floor (mean, not
// current-day, sessions), the 2-day window margin, the significance floor,
// and the business_impact formula follow the spec's own rules, which
// diverge from the Python script's current-day floor and flat 75/100
// impact scores.
type RecordDetector struct {
	cfg *config.Config
	clk clock.Clock
}

func NewRecordDetector(cfg *config.Config, clk clock.Clock) *RecordDetector {
	return &RecordDetector{cfg: cfg, clk: clk}
}

func (d *RecordDetector) Name() model.DetectorKind { return model.DetectorRecord }

func (d *RecordDetector) Evaluate(ds *model.CleanDataset, prop *model.PropertyConfig) ([]model.Alert, error) {
	var alerts []model.Alert

	for _, dim := range []model.Dimension{model.DimensionOverall, model.DimensionDevice, model.DimensionTrafficSource, model.DimensionLandingPage} {
		for _, dv := range scannableValues(ds, prop, dim, model.MetricSessions) {
			sessions := ds.ValuesFor(dim, model.MetricSessions, dv)
			historicalSessions := d.historicalWindow(ds, sessions)
			if len(historicalSessions) == 0 {
				continue
			}
			meanSessions, err := stats.Mean(valuesOf(historicalSessions), 1)
			if err != nil {
				continue
			}
			volumeFloor := d.cfg.Record.VolumeFloor
			if v, hasOverride := prop.VolumeFloor(string(model.DetectorRecord)); hasOverride {
				volumeFloor = v
			}
			if meanSessions < volumeFloor {
				continue
			}

			for _, metric := range recordMetrics {
				if a, ok := d.evaluateSeries(ds, prop, dim, metric, dv); ok {
					alerts = append(alerts, a)
				}
			}
		}
	}
	return alerts, nil
}

// historicalWindow returns the 90-day (by default) record window: the
// HistoryWindowDays days ending recordWindowMarginDays+1 days before the
// analysis date ("2 days before yesterday").
func (d *RecordDetector) historicalWindow(ds *model.CleanDataset, points []model.MetricPoint) []model.MetricPoint {
	cutoff := ds.AnalysisDate.AddDate(0, 0, -recordWindowMarginDays)
	return pointsBeforeWindow(points, cutoff, d.cfg.Record.HistoryWindowDays)
}

func (d *RecordDetector) evaluateSeries(ds *model.CleanDataset, prop *model.PropertyConfig, dim model.Dimension, metric model.Metric, dv string) (model.Alert, bool) {
	series := ds.ValuesFor(dim, metric, dv)
	cur, ok := pointAt(series, ds.AnalysisDate)
	if !ok {
		return model.Alert{}, false
	}

	historical := d.historicalWindow(ds, series)
	if len(historical) == 0 {
		return model.Alert{}, false
	}
	statsPoints := toStatsPoints(historical)

	if hi, err := stats.HistoricalMax(statsPoints, len(statsPoints), 1); err == nil && cur.Value > hi.Value {
		deltaPct, _ := stats.PercentChange(cur.Value, hi.Value)
		if math.Abs(deltaPct)*100 < d.cfg.Record.SignificanceFloorPct {
			return model.Alert{}, false
		}
		impact := clampImpact(int(math.Round(math.Abs(deltaPct) * 100 * 1.5)))
		return d.alert(prop, cur, dim, metric, dv, "high", model.PriorityP3, impact, hi.Value, round2(deltaPct*100), 0), true
	}

	if lo, err := stats.HistoricalMin(statsPoints, len(statsPoints), 1); err == nil && cur.Value < lo.Value {
		deltaPct, _ := stats.PercentChange(cur.Value, lo.Value)
		if math.Abs(deltaPct)*100 < d.cfg.Record.SignificanceFloorPct {
			return model.Alert{}, false
		}
		impact := clampImpact(int(math.Max(40, math.Round(math.Abs(deltaPct)*100*1.5))))
		return d.alert(prop, cur, dim, metric, dv, "low", model.PriorityP1, impact, lo.Value, 0, round2(math.Abs(deltaPct)*100)), true
	}

	return model.Alert{}, false
}

func (d *RecordDetector) alert(prop *model.PropertyConfig, cur model.MetricPoint, dim model.Dimension, metric model.Metric, dv, recordType string, priority model.Priority, impact int, previousRecord, improvement, decline float64) model.Alert {
	severity := model.SeverityInfo
	message := fmt.Sprintf("%s: new record high of %.0f %s (previous: %.0f)", dv, cur.Value, metric, previousRecord)
	recommendation := fmt.Sprintf("Document what drove the %s success", dv)
	if recordType == "low" {
		severity = model.SeverityWarning
		message = fmt.Sprintf("%s: new record low of %.0f %s (previous low: %.0f)", dv, cur.Value, metric, previousRecord)
		recommendation = fmt.Sprintf("Investigate the cause of the %s decline", dv)
	}

	return model.Alert{
		DetectorKind:     model.DetectorRecord,
		Priority:         priority,
		PropertyID:       prop.PropertyID,
		Date:             cur.Date,
		Dimension:        dim,
		DimensionValue:   dv,
		Metric:           metric,
		ObservedValue:    cur.Value,
		BaselineValue:    previousRecord,
		Severity:         severity,
		BusinessImpact:   impact,
		DetectionMethods: []string{"historical_extremum"},
		Message:          message,
		Recommendation:   recommendation,
		GeneratedAt:      d.clk.Now(),
		Details: model.AlertDetails{
			RecordType:     recordType,
			PreviousRecord: previousRecord,
			Increase:       improvement,
			Decline:        decline,
		},
	}
}
