package model

import "time"

// Dimension is a breakdown axis a MetricPoint can belong to.
type Dimension string

const (
	DimensionOverall      Dimension = "overall"
	DimensionGeography    Dimension = "geography"
	DimensionDevice       Dimension = "device"
	DimensionTrafficSource Dimension = "traffic_source"
	DimensionLandingPage  Dimension = "landing_page"
)

// Metric is one of the named measurements carried by a MetricPoint.
type Metric string

const (
	MetricSessions       Metric = "sessions"
	MetricUsers          Metric = "users"
	MetricPageViews      Metric = "page_views"
	MetricConversions    Metric = "conversions"
	MetricBounceRate     Metric = "bounce_rate"
	MetricAvgSessionDur  Metric = "avg_session_duration"
)

// MetricPoint is one day of one metric for one (property, dimension,
// dimension_value) tuple. The (PropertyID, Date, Dimension, DimensionValue,
// Metric) tuple is unique within a CleanDataset.
type MetricPoint struct {
	Date           time.Time
	PropertyID     string
	Dimension      Dimension
	DimensionValue string
	Metric         Metric
	Value          float64
}

// Series is an ordered, gap-permitting sequence of points for a single
// (dimension, dimension_value) for a single metric, oldest first.
type Series struct {
	DimensionValue string
	Points         []MetricPoint
}

// CleanDataset is the per-property, per-load bundle the Dataset Loader hands
// to every detector. Gaps in a series are explicit (a missing day is absent
// from Points, never a synthesized zero).
type CleanDataset struct {
	PropertyID     string
	ReferenceDate  time.Time
	SettlingDays   int
	// AnalysisDate = ReferenceDate - SettlingDays, the latest day with data.
	AnalysisDate time.Time

	// Series is keyed by dimension, then by metric, each holding the
	// per-dimension-value series for that metric across the loaded window.
	Series map[Dimension]map[Metric][]Series
}

// ValuesFor returns the point values (oldest first) for a single dimension
// value, skipping days with no recorded point. Dates are returned alongside
// values so callers needing date-of-occurrence (historical extrema) can
// recover it without a second lookup.
func (d *CleanDataset) ValuesFor(dim Dimension, metric Metric, dimensionValue string) []MetricPoint {
	byMetric, ok := d.Series[dim]
	if !ok {
		return nil
	}
	seriesList, ok := byMetric[metric]
	if !ok {
		return nil
	}
	for _, s := range seriesList {
		if s.DimensionValue == dimensionValue {
			return s.Points
		}
	}
	return nil
}

// DimensionValues returns the distinct dimension values present for a given
// dimension and metric, in the order the loader assembled them.
func (d *CleanDataset) DimensionValues(dim Dimension, metric Metric) []string {
	byMetric, ok := d.Series[dim]
	if !ok {
		return nil
	}
	seriesList, ok := byMetric[metric]
	if !ok {
		return nil
	}
	values := make([]string, 0, len(seriesList))
	for _, s := range seriesList {
		values = append(values, s.DimensionValue)
	}
	return values
}
