package model

import "time"

// DetectorKind identifies which of the four detectors produced an Alert.
type DetectorKind string

const (
	DetectorDisaster DetectorKind = "disaster"
	DetectorSpam     DetectorKind = "spam"
	DetectorRecord   DetectorKind = "record"
	DetectorTrend    DetectorKind = "trend"
)

// Priority is the severity tier assigned by a detector. P0 is highest.
type Priority string

const (
	PriorityP0 Priority = "P0"
	PriorityP1 Priority = "P1"
	PriorityP2 Priority = "P2"
	PriorityP3 Priority = "P3"
)

// priorityRank gives the sort weight for Priority, lower sorts first.
var priorityRank = map[Priority]int{
	PriorityP0: 0,
	PriorityP1: 1,
	PriorityP2: 2,
	PriorityP3: 3,
}

// Rank returns the sort weight for p (P0 lowest/first).
func (p Priority) Rank() int {
	return priorityRank[p]
}

// Severity is the human-facing label rendered in the digest.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
)

// Alert is the single unified record every detector emits. Per-detector
// extras that don't apply to every Alert live in Details rather than as
// ad-hoc top-level fields (SPEC_FULL.md §2, the fix for the original
// system's per-detector JSON dict shapes).
type Alert struct {
	ID             string       `json:"id"`
	DetectorKind   DetectorKind `json:"detector_kind"`
	Priority       Priority     `json:"priority"`
	PropertyID     string       `json:"property_id"`
	Date           time.Time    `json:"date"`
	Dimension      Dimension    `json:"dimension"`
	DimensionValue string       `json:"dimension_value"`
	Metric         Metric       `json:"metric"`
	ObservedValue  float64      `json:"observed_value"`
	BaselineValue  float64      `json:"baseline_value"`
	Delta          float64      `json:"delta"`
	Severity       Severity     `json:"severity"`
	BusinessImpact int          `json:"business_impact"`
	DetectionMethods []string   `json:"detection_methods"`
	Message        string       `json:"message"`
	Recommendation string       `json:"recommendation"`
	GeneratedAt    time.Time    `json:"generated_at"`

	Details AlertDetails `json:"details,omitempty"`
}

// AlertDetails carries the detector-specific extras (previous_record,
// trend_direction, z_score, quality signals, ...) so the consolidator and
// renderer can treat every Alert uniformly while still surfacing the
// numbers an account manager needs to act.
type AlertDetails struct {
	// Disaster
	DisasterType string `json:"disaster_type,omitempty"`

	// Spam
	ZScore          float64 `json:"z_score,omitempty"`
	BounceRate      float64 `json:"bounce_rate,omitempty"`
	AvgSessionDuration float64 `json:"avg_session_duration,omitempty"`

	// Record
	RecordType     string  `json:"record_type,omitempty"` // "high" | "low"
	PreviousRecord float64 `json:"previous_record,omitempty"`
	Increase       float64 `json:"increase,omitempty"` // percent, highs
	Decline        float64 `json:"decline,omitempty"`  // percent, lows

	// Trend
	TrendDirection string  `json:"trend_direction,omitempty"` // "up" | "down"
	MA30           float64 `json:"ma_30,omitempty"`
	MA180          float64 `json:"ma_180,omitempty"`
	PercentChange  float64 `json:"percent_change,omitempty"`
}

// DetectorArtifact is the per-detector JSON document persisted under the
// results namespace (SPEC_FULL.md §3).
type DetectorArtifact struct {
	Detector           DetectorKind `json:"detector"`
	GeneratedAt        time.Time    `json:"generated_at"`
	ReferenceDate      time.Time    `json:"reference_date"`
	PropertiesAnalyzed int          `json:"properties_analyzed"`
	TotalAlerts        int          `json:"total_alerts"`
	DimensionsScanned  []Dimension  `json:"dimensions_scanned"`
	Summary            string       `json:"summary"`
	Alerts             []Alert      `json:"alerts"`
}
