// Package metrics exposes the run-level Prometheus counters and histograms
// an orchestrator run updates, plus the HTTP exporter that serves them.
//
// Grounded on internal/client/metrics_collector.go's PrometheusMetrics
// struct-of-CounterVec/GaugeVec/HistogramVec-via-promauto pattern, and
// internal/alert/prometheus.go's PrometheusExporter for the serving half.
// The vectors here name run/property/detector/priority instead of
// flow/protocol/namespace, but the shape — one struct holding every
// registered metric, built once via promauto.With(registry) — is carried
// over unchanged.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// Registry bundles every metric a run updates, registered against its own
// prometheus.Registry so tests can spin up an isolated instance without
// colliding with the default global registry.
type Registry struct {
	reg *prometheus.Registry

	RunsTotal            *prometheus.CounterVec
	RunDuration          prometheus.Histogram
	PropertiesProcessed  *prometheus.CounterVec
	AlertsByPriority     *prometheus.CounterVec
	AlertsByDetector     *prometheus.CounterVec
	AlertsSuppressed     prometheus.Counter
	DetectorErrors       *prometheus.CounterVec
	PersistenceRetries   prometheus.Counter
	DeliveryFailures     *prometheus.CounterVec
}

// New builds a Registry with every metric registered.
func New() *Registry {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Registry{
		reg: reg,
		RunsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "scout_runs_total",
			Help: "Completed pipeline runs, labeled by outcome.",
		}, []string{"outcome"}),
		RunDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "scout_run_duration_seconds",
			Help:    "Wall-clock duration of a full pipeline run.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		}),
		PropertiesProcessed: f.NewCounterVec(prometheus.CounterOpts{
			Name: "scout_properties_processed_total",
			Help: "Properties processed, labeled by outcome (ok, load_failed, timed_out).",
		}, []string{"outcome"}),
		AlertsByPriority: f.NewCounterVec(prometheus.CounterOpts{
			Name: "scout_alerts_total",
			Help: "Alerts emitted into the digest, labeled by priority.",
		}, []string{"priority"}),
		AlertsByDetector: f.NewCounterVec(prometheus.CounterOpts{
			Name: "scout_alerts_by_detector_total",
			Help: "Alert candidates produced by each detector before consolidation.",
		}, []string{"detector"}),
		AlertsSuppressed: f.NewCounter(prometheus.CounterOpts{
			Name: "scout_alerts_suppressed_total",
			Help: "Alert candidates dropped by the per-property cap.",
		}),
		DetectorErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "scout_detector_errors_total",
			Help: "Detector invocations that returned an error, labeled by detector.",
		}, []string{"detector"}),
		PersistenceRetries: f.NewCounter(prometheus.CounterOpts{
			Name: "scout_persistence_retries_total",
			Help: "Per-detector artifact writes that still failed after every retry.",
		}),
		DeliveryFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "scout_delivery_failures_total",
			Help: "Digest delivery attempts that failed, labeled by provider.",
		}, []string{"provider"}),
	}
}

// Exporter serves /metrics and /health for a Registry over HTTP.
// Grounded on internal/alert/prometheus.go's PrometheusExporter.
type Exporter struct {
	server *http.Server
	logger *logrus.Logger
	port   string
}

func NewExporter(port string, reg *Registry, logger *logrus.Logger) *Exporter {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg.reg, promhttp.HandlerOpts{}))
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	return &Exporter{
		server: &http.Server{Addr: ":" + port, Handler: mux},
		logger: logger,
		port:   port,
	}
}

// Start runs the exporter until ctx is cancelled, then shuts it down.
func (e *Exporter) Start(ctx context.Context) error {
	e.logger.Infof("metrics exporter listening on :%s", e.port)

	go func() {
		if err := e.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			e.logger.Errorf("metrics exporter failed: %v", err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return e.server.Shutdown(shutdownCtx)
}
