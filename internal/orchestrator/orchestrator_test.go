package orchestrator

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/singlethrowdata/scout-anomaly-detection/internal/clock"
	"github.com/singlethrowdata/scout-anomaly-detection/internal/config"
	"github.com/singlethrowdata/scout-anomaly-detection/internal/dataset"
	"github.com/singlethrowdata/scout-anomaly-detection/internal/metrics"
	"github.com/singlethrowdata/scout-anomaly-detection/internal/registry"
	"github.com/singlethrowdata/scout-anomaly-detection/internal/store"
)

type rawPoint struct {
	Date           string  `json:"date"`
	DimensionValue string  `json:"dimension_value"`
	Metric         string  `json:"metric"`
	Value          float64 `json:"value"`
}

// steadyDataset builds a quiet 180-day overall history of sessions,
// conversions, bounce_rate and avg_session_duration, flat enough that
// nothing should trip a threshold.
func steadyDataset(propertyID string, referenceDate time.Time) []byte {
	var overall []rawPoint
	for i := 0; i < 180; i++ {
		d := referenceDate.AddDate(0, 0, -179+i).Format("2006-01-02")
		overall = append(overall,
			rawPoint{Date: d, DimensionValue: "site-wide", Metric: "sessions", Value: 1000},
			rawPoint{Date: d, DimensionValue: "site-wide", Metric: "conversions", Value: 50},
			rawPoint{Date: d, DimensionValue: "site-wide", Metric: "bounce_rate", Value: 0.4},
			rawPoint{Date: d, DimensionValue: "site-wide", Metric: "avg_session_duration", Value: 120},
		)
	}
	blob := map[string]interface{}{
		"property_id":    propertyID,
		"reference_date": referenceDate.Format("2006-01-02"),
		"overall":        overall,
	}
	data, _ := json.Marshal(blob)
	return data
}

func writeRegistry(t *testing.T, dir string, propertyID string) string {
	path := filepath.Join(dir, "properties.json")
	content := `{"properties":[{"property_id":"` + propertyID + `","client_name":"Test Co","domain":"test.example.com","is_configured":true}]}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestRunAllClear(t *testing.T) {
	dir := t.TempDir()
	referenceDate := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	bs, err := store.NewLocalStore(dir)
	require.NoError(t, err)

	blob := steadyDataset("P1", referenceDate)
	require.NoError(t, bs.Write(context.Background(), dataset.Key("P1", referenceDate), blob))

	regPath := writeRegistry(t, dir, "P1")
	reg, err := registry.Load(regPath)
	require.NoError(t, err)

	cfg := config.Default()
	logger := logrus.New()
	logger.SetOutput(os.Stderr)

	orch := New(cfg, reg, bs, clock.FixedClock{At: referenceDate}, logger, metrics.New())

	digest, err := orch.Run(context.Background(), Options{ReferenceDate: referenceDate})
	require.NoError(t, err)
	require.True(t, digest.AllClear)
	require.Empty(t, digest.Issues)
	require.Len(t, digest.PropertyRollups, 1)

	require.True(t, bs.Exists(context.Background(), "results/digest/2026-06-01.json"))
}

func TestRunPropertyLoadFailureBecomesIssue(t *testing.T) {
	dir := t.TempDir()
	referenceDate := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	bs, err := store.NewLocalStore(dir)
	require.NoError(t, err)
	// No dataset blob written for P1: load should fail and become an issue,
	// not abort the run.

	regPath := writeRegistry(t, dir, "P1")
	reg, err := registry.Load(regPath)
	require.NoError(t, err)

	cfg := config.Default()
	orch := New(cfg, reg, bs, clock.FixedClock{At: referenceDate}, logrus.New(), metrics.New())

	digest, err := orch.Run(context.Background(), Options{ReferenceDate: referenceDate})
	require.NoError(t, err)
	require.Len(t, digest.Issues, 1)
	require.Equal(t, "P1", digest.Issues[0].PropertyID)
}
