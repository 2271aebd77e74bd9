// Package consolidate implements the Alert Consolidator: cross-detector
// dedup, the per-property alert cap with P0/P1 protection, and the total
// ordering the Digest renders in.
//
// Grounded on scripts/scout_record_detector.py and scout_trend_detector.py's
// own `alerts.sort(key=lambda x: (x['priority'], -x['business_impact']))`
// calls — each original detector sorted its own output independently, one
// of the duplicated behaviors SPEC_FULL.md's redesign notes call out for
// unification into a single pass run once, after every detector has
// produced its candidates.
package consolidate

import (
	"sort"

	"github.com/singlethrowdata/scout-anomaly-detection/internal/model"
)

// Result is the outcome of consolidating one run's raw alert candidates.
type Result struct {
	Alerts          []model.Alert
	SuppressedCount int
	// PerPropertySuppressed maps property id to how many of its candidates
	// were dropped by the cap (dedup drops are not counted here — they are
	// superseded, not suppressed).
	PerPropertySuppressed map[string]int
}

// Consolidate applies cross-detector dedup, then the per-property cap with
// P0/P1 protection, then sorts into the Digest's total order:
// (priority, -business_impact, property_id, -date, dimension,
// dimension_value).
func Consolidate(candidates []model.Alert, maxPerProperty int) Result {
	deduped := dedupe(candidates)

	byProperty := make(map[string][]model.Alert)
	var order []string
	for _, a := range deduped {
		if _, seen := byProperty[a.PropertyID]; !seen {
			order = append(order, a.PropertyID)
		}
		byProperty[a.PropertyID] = append(byProperty[a.PropertyID], a)
	}

	result := Result{PerPropertySuppressed: make(map[string]int)}
	for _, propertyID := range order {
		kept, suppressed := capProperty(byProperty[propertyID], maxPerProperty)
		result.Alerts = append(result.Alerts, kept...)
		result.SuppressedCount += suppressed
		if suppressed > 0 {
			result.PerPropertySuppressed[propertyID] = suppressed
		}
	}

	sortTotalOrder(result.Alerts)
	return result
}

// dedupe drops alerts superseded by a more specific signal for the same
// (property, dimension, dimension_value, metric, date): a Record-low alert
// supersedes a Trend-down alert, since the record detector's all-time-low
// finding is strictly the stronger claim (spec.md §9 redesign notes).
func dedupe(alerts []model.Alert) []model.Alert {
	type key struct {
		propertyID string
		dimension  model.Dimension
		dv         string
		metric     model.Metric
		date       int64
	}

	recordLows := make(map[key]bool)
	for _, a := range alerts {
		if a.DetectorKind == model.DetectorRecord && a.Details.RecordType == "low" {
			recordLows[key{a.PropertyID, a.Dimension, a.DimensionValue, a.Metric, a.Date.Unix()}] = true
		}
	}

	out := make([]model.Alert, 0, len(alerts))
	for _, a := range alerts {
		if a.DetectorKind == model.DetectorTrend && a.Details.TrendDirection == "down" {
			k := key{a.PropertyID, a.Dimension, a.DimensionValue, a.Metric, a.Date.Unix()}
			if recordLows[k] {
				continue
			}
		}
		out = append(out, a)
	}
	return out
}

// capProperty enforces the ≤maxPerProperty cap for one property's alerts,
// keeping every P0/P1 alert regardless of the cap and filling the remaining
// budget with the highest-business-impact P2/P3 candidates.
func capProperty(alerts []model.Alert, maxPerProperty int) ([]model.Alert, int) {
	var protected, candidates []model.Alert
	for _, a := range alerts {
		if a.Priority == model.PriorityP0 || a.Priority == model.PriorityP1 {
			protected = append(protected, a)
		} else {
			candidates = append(candidates, a)
		}
	}

	budget := maxPerProperty - len(protected)
	if budget < 0 {
		budget = 0
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].BusinessImpact > candidates[j].BusinessImpact
	})

	kept := append([]model.Alert{}, protected...)
	if budget >= len(candidates) {
		kept = append(kept, candidates...)
		return kept, 0
	}
	kept = append(kept, candidates[:budget]...)
	return kept, len(candidates) - budget
}

func sortTotalOrder(alerts []model.Alert) {
	sort.SliceStable(alerts, func(i, j int) bool {
		a, b := alerts[i], alerts[j]
		if a.Priority.Rank() != b.Priority.Rank() {
			return a.Priority.Rank() < b.Priority.Rank()
		}
		if a.BusinessImpact != b.BusinessImpact {
			return a.BusinessImpact > b.BusinessImpact
		}
		if a.PropertyID != b.PropertyID {
			return a.PropertyID < b.PropertyID
		}
		if !a.Date.Equal(b.Date) {
			return a.Date.After(b.Date)
		}
		if a.Dimension != b.Dimension {
			return a.Dimension < b.Dimension
		}
		return a.DimensionValue < b.DimensionValue
	})
}
