// Package orchestrator drives one end-to-end run: load each enabled
// property's dataset, run every detector against it, consolidate the
// candidates into a digest, and persist the per-detector artifacts and the
// digest itself. Delivery of the digest is left to the caller (cmd/scout).
//
// Grounded on cmd/hubble-guard/main.go's top-level wiring (signal handling,
// context cancellation, logrus) and the errgroup.WithContext +
// SetLimit(N) bounded fan-out in
// kubilitics-backend/internal/addon/scanner/scanner.go, generalized from a
// per-cluster-check fan-out to a per-property one.
package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/singlethrowdata/scout-anomaly-detection/internal/clock"
	"github.com/singlethrowdata/scout-anomaly-detection/internal/config"
	"github.com/singlethrowdata/scout-anomaly-detection/internal/consolidate"
	"github.com/singlethrowdata/scout-anomaly-detection/internal/dataset"
	"github.com/singlethrowdata/scout-anomaly-detection/internal/detectors"
	"github.com/singlethrowdata/scout-anomaly-detection/internal/metrics"
	"github.com/singlethrowdata/scout-anomaly-detection/internal/model"
	"github.com/singlethrowdata/scout-anomaly-detection/internal/registry"
	"github.com/singlethrowdata/scout-anomaly-detection/internal/store"
)

// Options configures a single Run invocation.
type Options struct {
	ReferenceDate time.Time
	// PropertyIDs restricts the run to a subset of the registry's enabled
	// properties. Empty means every enabled property.
	PropertyIDs []string
	// DetectorNames restricts which detectors run. Empty means all four.
	DetectorNames []string
	DryRun        bool
}

// Orchestrator owns the dependencies a run needs: the property registry,
// the blob store datasets are read from and artifacts are written to, the
// detector set, and the metrics a run updates as it goes.
type Orchestrator struct {
	cfg     *config.Config
	reg     *registry.Registry
	bs      store.BlobStore
	clk     clock.Clock
	logger  *logrus.Logger
	metrics *metrics.Registry
}

func New(cfg *config.Config, reg *registry.Registry, bs store.BlobStore, clk clock.Clock, logger *logrus.Logger, mr *metrics.Registry) *Orchestrator {
	return &Orchestrator{cfg: cfg, reg: reg, bs: bs, clk: clk, logger: logger, metrics: mr}
}

// propertyResult is what one property's pipeline stage produces: its raw
// alert candidates, a rollup for the digest, and any issue encountered.
type propertyResult struct {
	propertyID string
	candidates []model.Alert
	issue      *model.Issue
	artifacts  map[model.DetectorKind]*model.DetectorArtifact
}

// Run executes the full pipeline for opts.ReferenceDate and returns the
// consolidated digest. Per-property failures become Issues in the digest
// rather than aborting the run; only a ConfigError (bad registry) or a
// context cancellation/timeout aborts it. A failed artifact or digest write
// returns the digest together with the persistence error.
func (o *Orchestrator) Run(ctx context.Context, opts Options) (*model.Digest, error) {
	started := o.clk.Now()

	runCtx, cancel := context.WithTimeout(ctx, o.cfg.RunTimeout)
	defer cancel()

	properties, unknown := o.selectProperties(opts.PropertyIDs)
	for _, id := range unknown {
		o.logger.Warnf("requested property %s is not in the registry, skipping", id)
	}
	if len(properties) == 0 {
		return nil, &model.ConfigError{Reason: "no enabled properties selected for this run"}
	}

	dets := detectors.All(o.cfg, o.clk)
	if len(opts.DetectorNames) > 0 {
		dets = detectors.ByName(dets, opts.DetectorNames)
	}

	poolSize := config.WorkerPoolSize(o.cfg.WorkerPoolSize, len(properties))

	g, gCtx := errgroup.WithContext(runCtx)
	g.SetLimit(poolSize)

	results := make([]propertyResult, len(properties))
	for i, prop := range properties {
		i, prop := i, prop
		g.Go(func() error {
			results[i] = o.runProperty(gCtx, prop, opts, dets)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if runCtx.Err() != nil {
			return nil, fmt.Errorf("run timed out or was cancelled: %w", runCtx.Err())
		}
		return nil, err
	}
	if runCtx.Err() != nil {
		return nil, fmt.Errorf("run timed out or was cancelled: %w", runCtx.Err())
	}

	digest := o.buildDigest(opts.ReferenceDate, properties, results, started)

	if !opts.DryRun {
		if err := o.persistArtifacts(runCtx, results); err != nil {
			return digest, err
		}
		if err := o.persistDigest(runCtx, digest); err != nil {
			return digest, err
		}
	}

	if o.metrics != nil {
		outcome := "ok"
		if len(digest.Issues) > 0 {
			outcome = "partial"
		}
		o.metrics.RunsTotal.WithLabelValues(outcome).Inc()
		o.metrics.RunDuration.Observe(o.clk.Now().Sub(started).Seconds())
	}

	return digest, nil
}

func (o *Orchestrator) selectProperties(ids []string) ([]*model.PropertyConfig, []string) {
	if len(ids) == 0 {
		return o.reg.Enabled(), nil
	}
	return o.reg.Filter(ids)
}

// runProperty loads the dataset and runs every detector for one property,
// isolated by its own timeout so one slow or stuck property cannot starve
// the rest of the pool.
func (o *Orchestrator) runProperty(ctx context.Context, prop *model.PropertyConfig, opts Options, dets []detectors.Detector) propertyResult {
	result := propertyResult{propertyID: prop.PropertyID, artifacts: make(map[model.DetectorKind]*model.DetectorArtifact)}

	propCtx, cancel := context.WithTimeout(ctx, o.cfg.PropertyTimeout)
	defer cancel()

	ds, err := dataset.Load(propCtx, o.bs, prop.PropertyID, opts.ReferenceDate, o.cfg.SettlingDays)
	if err != nil {
		if o.metrics != nil {
			o.metrics.PropertiesProcessed.WithLabelValues("load_failed").Inc()
		}
		o.logger.Warnf("property %s load_failed: %v", prop.PropertyID, err)
		result.issue = loadIssue(prop.PropertyID, err)
		return result
	}

	for _, det := range dets {
		if propCtx.Err() != nil {
			if o.metrics != nil {
				o.metrics.PropertiesProcessed.WithLabelValues("timed_out").Inc()
			}
			o.logger.Warnf("property %s timed_out: %v", prop.PropertyID, propCtx.Err())
			result.issue = &model.Issue{PropertyID: prop.PropertyID, Reason: model.ReasonTimedOut, Detail: propCtx.Err().Error()}
			return result
		}

		alerts, err := o.evaluateDetector(det, ds, prop)
		if err != nil {
			if o.metrics != nil {
				o.metrics.DetectorErrors.WithLabelValues(string(det.Name())).Inc()
			}
			result.issue = &model.Issue{PropertyID: prop.PropertyID, Detector: det.Name(), Reason: model.ReasonDetectorFailed, Detail: err.Error()}
			continue
		}

		alerts = filterSuppressed(prop, alerts)
		result.candidates = append(result.candidates, alerts...)
		result.artifacts[det.Name()] = &model.DetectorArtifact{
			Detector:           det.Name(),
			GeneratedAt:        o.clk.Now(),
			ReferenceDate:      opts.ReferenceDate,
			PropertiesAnalyzed: 1,
			TotalAlerts:        len(alerts),
			Alerts:             alerts,
		}
		if o.metrics != nil {
			o.metrics.AlertsByDetector.WithLabelValues(string(det.Name())).Add(float64(len(alerts)))
		}
	}

	if o.metrics != nil {
		o.metrics.PropertiesProcessed.WithLabelValues("ok").Inc()
	}
	return result
}

// evaluateDetector recovers a panicking detector into a *model.DetectorError
// rather than letting one bad detector take down the whole run.
func (o *Orchestrator) evaluateDetector(det detectors.Detector, ds *model.CleanDataset, prop *model.PropertyConfig) (alerts []model.Alert, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &model.DetectorError{PropertyID: prop.PropertyID, Detector: det.Name(), Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	a, evalErr := det.Evaluate(ds, prop)
	if evalErr != nil {
		return nil, &model.DetectorError{PropertyID: prop.PropertyID, Detector: det.Name(), Err: evalErr}
	}
	return a, nil
}

func filterSuppressed(prop *model.PropertyConfig, alerts []model.Alert) []model.Alert {
	out := alerts[:0]
	for _, a := range alerts {
		if !prop.Suppressed(a.DimensionValue) {
			out = append(out, a)
		}
	}
	return out
}

func loadIssue(propertyID string, err error) *model.Issue {
	return &model.Issue{PropertyID: propertyID, Reason: model.ReasonLoadFailed, Detail: err.Error()}
}

func (o *Orchestrator) buildDigest(referenceDate time.Time, properties []*model.PropertyConfig, results []propertyResult, started time.Time) *model.Digest {
	var candidates []model.Alert
	var issues []model.Issue
	for _, r := range results {
		candidates = append(candidates, r.candidates...)
		if r.issue != nil {
			issues = append(issues, *r.issue)
		}
	}

	for i := range candidates {
		candidates[i].ID = uuid.New().String()
	}

	consolidated := consolidate.Consolidate(candidates, o.cfg.Consolidation.MaxAlertsPerProperty)

	if o.metrics != nil {
		o.metrics.AlertsSuppressed.Add(float64(consolidated.SuppressedCount))
		for _, a := range consolidated.Alerts {
			o.metrics.AlertsByPriority.WithLabelValues(string(a.Priority)).Inc()
		}
	}

	rollups := buildRollups(properties, results, consolidated)

	countByDetector := make(map[string]int)
	for _, a := range consolidated.Alerts {
		countByDetector[string(a.DetectorKind)]++
	}

	return &model.Digest{
		GeneratedAt:     o.clk.Now(),
		ReferenceDate:   referenceDate,
		CountByDetector: countByDetector,
		TotalAlerts:     len(consolidated.Alerts),
		Alerts:          consolidated.Alerts,
		PropertyRollups: rollups,
		Issues:          issues,
		SuppressedCount: consolidated.SuppressedCount,
		AllClear:        len(consolidated.Alerts) == 0,
	}
}

func buildRollups(properties []*model.PropertyConfig, results []propertyResult, consolidated consolidate.Result) []model.PropertyRollup {
	byID := make(map[string]*model.PropertyConfig, len(properties))
	for _, p := range properties {
		byID[p.PropertyID] = p
	}

	counts := make(map[string]map[string]int)
	for _, a := range consolidated.Alerts {
		if counts[a.PropertyID] == nil {
			counts[a.PropertyID] = make(map[string]int)
		}
		counts[a.PropertyID][string(a.DetectorKind)]++
	}

	rollups := make([]model.PropertyRollup, 0, len(properties))
	for _, r := range results {
		prop := byID[r.propertyID]
		if prop == nil {
			continue
		}
		byDetector := counts[r.propertyID]
		total := 0
		for _, n := range byDetector {
			total += n
		}
		rollups = append(rollups, model.PropertyRollup{
			PropertyID:      prop.PropertyID,
			ClientName:      prop.ClientName,
			Domain:          prop.Domain,
			AlertCount:      total,
			CountByDetector: byDetector,
			SuppressedCount: consolidated.PerPropertySuppressed[r.propertyID],
			AllClear:        total == 0,
		})
	}

	sort.Slice(rollups, func(i, j int) bool { return rollups[i].PropertyID < rollups[j].PropertyID })
	return rollups
}

func (o *Orchestrator) persistArtifacts(ctx context.Context, results []propertyResult) error {
	for _, r := range results {
		for kind, artifact := range r.artifacts {
			data, err := marshalArtifact(artifact)
			if err != nil {
				return &model.PersistenceError{Artifact: string(kind), Err: err}
			}
			key := fmt.Sprintf("results/%s/%s/%s.json", r.propertyID, kind, artifact.ReferenceDate.Format("2006-01-02"))
			if err := store.WriteWithRetry(ctx, o.bs, key, data); err != nil {
				if o.metrics != nil {
					o.metrics.PersistenceRetries.Inc()
				}
				return err
			}
		}
	}
	return nil
}

func (o *Orchestrator) persistDigest(ctx context.Context, digest *model.Digest) error {
	data, err := marshalArtifact(digest)
	if err != nil {
		return &model.PersistenceError{Artifact: "digest", Err: err}
	}
	key := fmt.Sprintf("results/digest/%s.json", digest.ReferenceDate.Format("2006-01-02"))
	return store.WriteWithRetry(ctx, o.bs, key, data)
}

func marshalArtifact(v interface{}) ([]byte, error) {
	return json.MarshalIndent(v, "", "  ")
}
