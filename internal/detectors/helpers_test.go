package detectors

import (
	"time"

	"github.com/singlethrowdata/scout-anomaly-detection/internal/model"
)

// series builds a CleanDataset holding a single (dim, metric, dimension
// value) series of daily values ending on analysisDate, oldest first.
func series(analysisDate time.Time, dim model.Dimension, metric model.Metric, dv string, values []float64) *model.CleanDataset {
	ds := &model.CleanDataset{
		AnalysisDate: analysisDate,
		Series:       map[model.Dimension]map[model.Metric][]model.Series{},
	}
	start := analysisDate.AddDate(0, 0, -(len(values) - 1))
	points := make([]model.MetricPoint, len(values))
	for i, v := range values {
		points[i] = model.MetricPoint{
			Date:           start.AddDate(0, 0, i),
			DimensionValue: dv,
			Metric:         metric,
			Value:          v,
		}
	}
	ds.Series[dim] = map[model.Metric][]model.Series{
		metric: {{DimensionValue: dv, Points: points}},
	}
	return ds
}

// merge combines several single-series datasets built by series() into one.
func merge(datasets ...*model.CleanDataset) *model.CleanDataset {
	out := &model.CleanDataset{
		AnalysisDate: datasets[0].AnalysisDate,
		Series:       map[model.Dimension]map[model.Metric][]model.Series{},
	}
	for _, d := range datasets {
		for dim, byMetric := range d.Series {
			if out.Series[dim] == nil {
				out.Series[dim] = map[model.Metric][]model.Series{}
			}
			for metric, list := range byMetric {
				out.Series[dim][metric] = append(out.Series[dim][metric], list...)
			}
		}
	}
	return out
}

func testProperty(id string) *model.PropertyConfig {
	return &model.PropertyConfig{PropertyID: id, IsConfigured: true}
}

func day(n int) time.Time {
	return time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
}
