package model

import "time"

// PropertyRollup summarizes one property's alert volume for the digest.
type PropertyRollup struct {
	PropertyID      string         `json:"property_id"`
	ClientName      string         `json:"client_name"`
	Domain          string         `json:"domain"`
	AlertCount      int            `json:"alert_count"`
	CountByDetector map[string]int `json:"count_by_detector"`
	SuppressedCount int            `json:"suppressed_count"`
	AllClear        bool           `json:"all_clear"`
}

// IssueReasonCode names why a property or detector did not contribute
// alerts to a run (SPEC_FULL.md / spec.md §7 "issues" section).
type IssueReasonCode string

const (
	ReasonLoadFailed      IssueReasonCode = "load_failed"
	ReasonInsufficientData IssueReasonCode = "insufficient_data"
	ReasonDetectorFailed  IssueReasonCode = "detector_failed"
	ReasonTimedOut        IssueReasonCode = "timed_out"
)

// Issue is one entry in the digest's issues section.
type Issue struct {
	PropertyID string          `json:"property_id"`
	Detector   DetectorKind    `json:"detector,omitempty"`
	Reason     IssueReasonCode `json:"reason"`
	Detail     string          `json:"detail,omitempty"`
}

// Digest is the consolidated, ordered alert report for one reference date.
type Digest struct {
	GeneratedAt        time.Time         `json:"generated_at"`
	ReferenceDate      time.Time         `json:"reference_date"`
	CountByDetector     map[string]int   `json:"count_by_detector"`
	TotalAlerts        int               `json:"total_alerts"`
	Alerts             []Alert           `json:"alerts"`
	PropertyRollups    []PropertyRollup  `json:"property_rollups"`
	Issues             []Issue           `json:"issues"`
	SuppressedCount    int               `json:"suppressed_count"`
	AllClear           bool              `json:"all_clear"`
}
