// Package dataset loads and validates the per-property clean dataset blob
// (spec.md §6 Inputs) into the immutable model.CleanDataset every detector
// consumes. Sorting and basic shape validation happen here, at the
// boundary, so downstream detector code never has to re-check it — the
// normalization boundary the teacher's pipeline.Processor.normalize stub
// gestures at but never fills in for its domain; here the boundary does
// real work because the upstream blob's sort order is, per spec, explicitly
// unspecified.
package dataset

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/singlethrowdata/scout-anomaly-detection/internal/model"
	"github.com/singlethrowdata/scout-anomaly-detection/internal/store"
)

// rawPoint is the wire shape of one entry in a dimension's series array.
type rawPoint struct {
	Date           string  `json:"date"`
	DimensionValue string  `json:"dimension_value"`
	Metric         string  `json:"metric"`
	Value          float64 `json:"value"`
}

// rawBlob is the wire shape of clean_dataset/{property_id}/{date}.json.
type rawBlob struct {
	PropertyID    string     `json:"property_id"`
	ReferenceDate string     `json:"reference_date"`
	Overall       []rawPoint `json:"overall"`
	Geography     []rawPoint `json:"geography"`
	Device        []rawPoint `json:"device"`
	TrafficSource []rawPoint `json:"traffic_source"`
	LandingPage   []rawPoint `json:"landing_page"`
}

const dateLayout = "2006-01-02"

// Key returns the blob key for a property's dataset on the given reference
// date (spec.md §6 Inputs: clean_dataset/{property_id}/{YYYY-MM-DD}.json).
func Key(propertyID string, referenceDate time.Time) string {
	return fmt.Sprintf("clean_dataset/%s/%s.json", propertyID, referenceDate.Format(dateLayout))
}

// Load reads, parses, validates, and sorts the dataset for propertyID at
// referenceDate, returning the settlingDays-adjusted analysis date on the
// resulting CleanDataset. Any read/parse/validation failure surfaces as a
// *model.LoadError scoped to propertyID — never a panic, never propagated
// as a bare I/O error (spec.md §7).
func Load(ctx context.Context, bs store.BlobStore, propertyID string, referenceDate time.Time, settlingDays int) (*model.CleanDataset, error) {
	key := Key(propertyID, referenceDate)
	data, err := bs.Read(ctx, key)
	if err != nil {
		return nil, &model.LoadError{PropertyID: propertyID, Reason: "dataset blob unreadable", Err: err}
	}

	var raw rawBlob
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &model.LoadError{PropertyID: propertyID, Reason: "dataset blob malformed JSON", Err: err}
	}
	if raw.PropertyID != "" && raw.PropertyID != propertyID {
		return nil, &model.LoadError{PropertyID: propertyID, Reason: fmt.Sprintf("dataset blob property_id mismatch: got %s", raw.PropertyID)}
	}

	ds := &model.CleanDataset{
		PropertyID:    propertyID,
		ReferenceDate: referenceDate,
		SettlingDays:  settlingDays,
		AnalysisDate:  referenceDate.AddDate(0, 0, -settlingDays),
		Series:        make(map[model.Dimension]map[model.Metric][]model.Series),
	}

	dims := map[model.Dimension][]rawPoint{
		model.DimensionOverall:      raw.Overall,
		model.DimensionGeography:    raw.Geography,
		model.DimensionDevice:       raw.Device,
		model.DimensionTrafficSource: raw.TrafficSource,
		model.DimensionLandingPage:  raw.LandingPage,
	}

	total := 0
	for dim, points := range dims {
		byMetric, err := buildDimension(propertyID, points)
		if err != nil {
			return nil, err
		}
		if len(byMetric) > 0 {
			ds.Series[dim] = byMetric
		}
		total += len(points)
	}

	if total == 0 {
		return nil, &model.LoadError{PropertyID: propertyID, Reason: "dataset blob contains no points"}
	}

	return ds, nil
}

// buildDimension validates and groups points for one dimension into
// per-(metric, dimension_value) series, sorted oldest-first.
func buildDimension(propertyID string, points []rawPoint) (map[model.Metric][]model.Series, error) {
	type key struct {
		metric model.Metric
		dv     string
	}
	grouped := make(map[key][]model.MetricPoint)
	order := make(map[key]int)
	next := 0

	for _, rp := range points {
		date, err := time.Parse(dateLayout, rp.Date)
		if err != nil {
			return nil, &model.LoadError{PropertyID: propertyID, Reason: fmt.Sprintf("malformed date %q", rp.Date), Err: err}
		}
		if math.IsNaN(rp.Value) || rp.Value < 0 {
			return nil, &model.LoadError{PropertyID: propertyID, Reason: fmt.Sprintf("negative or NaN value for metric %s on %s", rp.Metric, rp.Date)}
		}
		metric := model.Metric(rp.Metric)
		if isRate(metric) && (rp.Value < 0 || rp.Value > 100) {
			return nil, &model.LoadError{PropertyID: propertyID, Reason: fmt.Sprintf("rate metric %s out of range on %s", rp.Metric, rp.Date)}
		}
		k := key{metric: metric, dv: rp.DimensionValue}
		if _, seen := order[k]; !seen {
			order[k] = next
			next++
		}
		grouped[k] = append(grouped[k], model.MetricPoint{
			Date:           date,
			PropertyID:     propertyID,
			Dimension:      "", // left empty: the dimension is the CleanDataset.Series map key
			DimensionValue: rp.DimensionValue,
			Metric:         metric,
			Value:          rp.Value,
		})
	}

	byMetric := make(map[model.Metric][]model.Series)
	for k, pts := range grouped {
		sort.Slice(pts, func(i, j int) bool { return pts[i].Date.Before(pts[j].Date) })
		byMetric[k.metric] = append(byMetric[k.metric], model.Series{DimensionValue: k.dv, Points: pts})
	}
	for metric := range byMetric {
		sort.Slice(byMetric[metric], func(i, j int) bool {
			a := key{metric: metric, dv: byMetric[metric][i].DimensionValue}
			b := key{metric: metric, dv: byMetric[metric][j].DimensionValue}
			return order[a] < order[b]
		})
	}
	return byMetric, nil
}

// isRate reports whether metric is a fractional/rate measurement, whose
// accepted numeric range differs from plain counts (spec.md §6: bounce_rate
// is a fraction in [0,1]; some upstream producers may emit it as [0,100]).
func isRate(m model.Metric) bool {
	return m == model.MetricBounceRate
}
