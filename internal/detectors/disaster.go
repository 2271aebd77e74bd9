package detectors

import (
	"fmt"
	"time"

	"github.com/singlethrowdata/scout-anomaly-detection/internal/clock"
	"github.com/singlethrowdata/scout-anomaly-detection/internal/config"
	"github.com/singlethrowdata/scout-anomaly-detection/internal/model"
)

// disasterBaselineWindowDays is the fixed 3-day prior window the scout
// anomaly detection spec defines every Disaster trigger against. A disaster
// alert requires a credible baseline, so the window must be complete — see
// priorWindowMean.
const disasterBaselineWindowDays = 3

// DisasterDetector is the P0 detector: near-zero traffic, conversion
// tracking failure, and catastrophic traffic drops, scanned site-wide only.
// The trigger taxonomy (three independent checks against a 3-day prior
// mean) is grounded on scripts/scout_disaster_detector.py's threshold
// checks, but each trigger's baseline-sufficiency guard and business_impact
// value follow the spec's numbers, which diverge from the Python script's
// (e.g. a tracking-failure trigger needs a 3-day prior mean of at least 1
// conversion, not merely a nonzero session baseline).
type DisasterDetector struct {
	cfg *config.Config
	clk clock.Clock
}

func NewDisasterDetector(cfg *config.Config, clk clock.Clock) *DisasterDetector {
	return &DisasterDetector{cfg: cfg, clk: clk}
}

func (d *DisasterDetector) Name() model.DetectorKind { return model.DetectorDisaster }

func (d *DisasterDetector) Evaluate(ds *model.CleanDataset, prop *model.PropertyConfig) ([]model.Alert, error) {
	if !prop.DimensionEnabled(model.DimensionOverall) {
		return nil, nil
	}

	sessions := ds.ValuesFor(model.DimensionOverall, model.MetricSessions, "site-wide")
	conversions := ds.ValuesFor(model.DimensionOverall, model.MetricConversions, "site-wide")

	cur, ok := pointAt(sessions, ds.AnalysisDate)
	if !ok {
		return nil, nil
	}
	curConv, hasConv := pointAt(conversions, ds.AnalysisDate)

	priorSessions, sessionsComplete := priorWindowMean(sessions, ds.AnalysisDate, disasterBaselineWindowDays)
	priorConversions, conversionsComplete := priorWindowMean(conversions, ds.AnalysisDate, disasterBaselineWindowDays)

	var alerts []model.Alert
	now := d.clk.Now()

	if sessionsComplete && cur.Value < d.cfg.Disaster.SessionsFloor && priorSessions >= d.cfg.Disaster.BaselineSessionsFloor {
		alerts = append(alerts, d.makeAlert(prop, cur.Date, "near_zero_traffic",
			model.MetricSessions, cur.Value, priorSessions, 0, 95,
			fmt.Sprintf("Site down: only %.0f sessions detected", cur.Value), now))
	}

	if hasConv && conversionsComplete && curConv.Value == 0 && priorConversions >= d.cfg.Disaster.ConversionsBaselineFloor {
		alerts = append(alerts, d.makeAlert(prop, cur.Date, "tracking_failure",
			model.MetricConversions, 0, priorConversions, 0, 100,
			"Conversion tracking failure: 0 conversions detected", now))
	}

	if sessionsComplete && priorSessions >= d.cfg.Disaster.BaselineSessionsFloor {
		dropPct := (priorSessions - cur.Value) / priorSessions * 100
		if dropPct >= d.cfg.Disaster.DropPercentage {
			alerts = append(alerts, d.makeAlert(prop, cur.Date, "catastrophic_drop",
				model.MetricSessions, cur.Value, priorSessions, -dropPct, 85,
				fmt.Sprintf("Catastrophic traffic drop: -%.1f%%", dropPct), now))
		}
	}

	return alerts, nil
}

func (d *DisasterDetector) makeAlert(prop *model.PropertyConfig, date time.Time, disasterType string, metric model.Metric, value, baseline, delta float64, businessImpact int, message string, now time.Time) model.Alert {
	return model.Alert{
		DetectorKind:     model.DetectorDisaster,
		Priority:         model.PriorityP0,
		PropertyID:       prop.PropertyID,
		Date:             date,
		Dimension:        model.DimensionOverall,
		DimensionValue:   "site-wide",
		Metric:           metric,
		ObservedValue:    value,
		BaselineValue:    round2(baseline),
		Delta:            round2(delta),
		Severity:         model.SeverityCritical,
		BusinessImpact:   businessImpact,
		DetectionMethods: []string{"threshold"},
		Message:          message,
		Recommendation:   "Check tracking code and site availability immediately",
		GeneratedAt:      now,
		Details:          model.AlertDetails{DisasterType: disasterType},
	}
}
