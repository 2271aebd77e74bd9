// Command scout is the entry point for one detection run: load every
// enabled property's dataset, run the four detectors, consolidate into a
// digest, persist the results, and hand off to a delivery adapter.
//
// Grounded on kcli's cobra.Command root + subcommand wiring
// (internal/cli/root.go) generalized from a kubectl-wrapping root command
// to run/render/verify, and on cmd/hubble-guard/main.go's flag-driven
// config loading and os.Exit mapping.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/singlethrowdata/scout-anomaly-detection/internal/clock"
	"github.com/singlethrowdata/scout-anomaly-detection/internal/config"
	"github.com/singlethrowdata/scout-anomaly-detection/internal/dataset"
	"github.com/singlethrowdata/scout-anomaly-detection/internal/delivery"
	"github.com/singlethrowdata/scout-anomaly-detection/internal/digestrender"
	"github.com/singlethrowdata/scout-anomaly-detection/internal/metrics"
	"github.com/singlethrowdata/scout-anomaly-detection/internal/model"
	"github.com/singlethrowdata/scout-anomaly-detection/internal/orchestrator"
	"github.com/singlethrowdata/scout-anomaly-detection/internal/registry"
	"github.com/singlethrowdata/scout-anomaly-detection/internal/store"
)

// exit codes, spec.md §7.
const (
	exitOK             = 0
	exitConfigError    = 2
	exitPartialFailure = 3
	exitDeliveryError  = 4
	exitTimeout        = 5
)

func main() {
	root := newRootCommand()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitConfigError)
	}
}

func newRootCommand() *cobra.Command {
	var configPath, registryPath string

	root := &cobra.Command{
		Use:   "scout",
		Short: "Daily property anomaly detection and digest delivery",
	}
	root.PersistentFlags().StringVar(&configPath, "config", "configs/scout.yaml", "thresholds config file (YAML)")
	root.PersistentFlags().StringVar(&registryPath, "registry", "configs/properties.json", "property registry file (JSON)")

	root.AddCommand(newRunCommand(&configPath, &registryPath))
	root.AddCommand(newRenderCommand())
	root.AddCommand(newVerifyCommand())
	return root
}

func newRunCommand(configPath, registryPath *string) *cobra.Command {
	var (
		referenceDateFlag string
		propertiesFlag    string
		detectorsFlag     string
		dryRun            bool
		storageRoot       string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run detection for one reference date and deliver the digest",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				cfg = config.Default()
			}
			cfg.ApplyEnv()
			if storageRoot != "" {
				cfg.Storage.RootDir = storageRoot
			}

			referenceDate, err := resolveReferenceDate(referenceDateFlag)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(exitConfigError)
			}

			reg, err := registry.Load(*registryPath)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(exitConfigError)
			}

			bs, err := store.NewLocalStore(cfg.Storage.RootDir)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(exitConfigError)
			}

			logger := config.NewLogger(cfg.Logging.Level)
			metricsReg := metrics.New()
			clk := clock.SystemClock{}

			orch := orchestrator.New(cfg, reg, bs, clk, logger, metricsReg)

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			if cfg.PrometheusPort != "" {
				exporter := metrics.NewExporter(cfg.PrometheusPort, metricsReg, logger)
				exporterCtx, exporterCancel := context.WithCancel(context.Background())
				defer exporterCancel()
				go func() {
					if err := exporter.Start(exporterCtx); err != nil {
						logger.Errorf("metrics exporter error: %v", err)
					}
				}()
			}

			opts := orchestrator.Options{
				ReferenceDate: referenceDate,
				PropertyIDs:   splitCSV(propertiesFlag),
				DetectorNames: splitCSV(detectorsFlag),
				DryRun:        dryRun,
			}

			digest, runErr := orch.Run(ctx, opts)
			if runErr != nil {
				if ctx.Err() != nil || errors.Is(runErr, context.DeadlineExceeded) || errors.Is(runErr, context.Canceled) {
					fmt.Fprintln(os.Stderr, runErr)
					os.Exit(exitTimeout)
				}
				var cfgErr *model.ConfigError
				if isConfigErr(runErr, &cfgErr) {
					fmt.Fprintln(os.Stderr, runErr)
					os.Exit(exitConfigError)
				}
				fmt.Fprintln(os.Stderr, runErr)
				os.Exit(exitPartialFailure)
			}

			if !dryRun {
				deliverer := delivery.New(cfg, logger)
				if err := deliverer.Deliver(ctx, digest); err != nil {
					metricsReg.DeliveryFailures.WithLabelValues(cfg.Delivery.Provider).Inc()
					fmt.Fprintln(os.Stderr, err)
					os.Exit(exitDeliveryError)
				}
			}

			printSummary(digest)
			if len(digest.Issues) > 0 {
				os.Exit(exitPartialFailure)
			}
			os.Exit(exitOK)
			return nil
		},
	}

	cmd.Flags().StringVar(&referenceDateFlag, "reference-date", "", "reference date YYYY-MM-DD (default: today, settled by SETTLING_DAYS)")
	cmd.Flags().StringVar(&propertiesFlag, "properties", "", "comma-separated property ids to restrict the run to")
	cmd.Flags().StringVar(&detectorsFlag, "detectors", "", "comma-separated detector names to restrict the run to")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "run detectors and build the digest without persisting or delivering it")
	cmd.Flags().StringVar(&storageRoot, "storage-root", "", "override the configured blob store root directory")
	return cmd
}

func newRenderCommand() *cobra.Command {
	var from, out, outText string

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render a persisted digest.json into HTML (and optionally text)",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(from)
			if err != nil {
				return fmt.Errorf("cannot read %s: %w", from, err)
			}
			var digest model.Digest
			if err := json.Unmarshal(data, &digest); err != nil {
				return fmt.Errorf("cannot parse %s as a digest: %w", from, err)
			}

			html := digestrender.RenderHTML(&digest)
			if err := os.WriteFile(out, []byte(html), 0o644); err != nil {
				return fmt.Errorf("cannot write %s: %w", out, err)
			}

			if outText != "" {
				text := digestrender.RenderText(&digest)
				if err := os.WriteFile(outText, []byte(text), 0o644); err != nil {
					return fmt.Errorf("cannot write %s: %w", outText, err)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&from, "from", "digest.json", "path to a persisted digest.json")
	cmd.Flags().StringVar(&out, "out", "digest.html", "output path for the rendered HTML")
	cmd.Flags().StringVar(&outText, "out-text", "", "optional output path for the rendered plain text")
	return cmd
}

func newVerifyCommand() *cobra.Command {
	var datasetPath, propertyID, referenceDateFlag string
	var settlingDays int

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Validate a clean dataset blob without running any detector",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(datasetPath)
			if err != nil {
				return fmt.Errorf("cannot read %s: %w", datasetPath, err)
			}

			referenceDate, err := resolveReferenceDate(referenceDateFlag)
			if err != nil {
				return err
			}

			bs := inMemoryStore{key: dataset.Key(propertyID, referenceDate), data: data}
			ds, err := dataset.Load(context.Background(), bs, propertyID, referenceDate, settlingDays)
			if err != nil {
				return err
			}

			total := 0
			for _, byMetric := range ds.Series {
				for _, series := range byMetric {
					for _, s := range series {
						total += len(s.Points)
					}
				}
			}
			fmt.Printf("valid dataset: %d dimensions, %d points, analysis_date=%s\n",
				len(ds.Series), total, ds.AnalysisDate.Format("2006-01-02"))
			return nil
		},
	}

	cmd.Flags().StringVar(&datasetPath, "dataset", "", "path to a clean_dataset/{property}/{date}.json blob")
	cmd.Flags().StringVar(&propertyID, "property", "verify", "property id to validate the blob against")
	cmd.Flags().StringVar(&referenceDateFlag, "reference-date", "", "reference date YYYY-MM-DD (default: today)")
	cmd.Flags().IntVar(&settlingDays, "settling-days", 3, "settling days to compute the analysis date with")
	_ = cmd.MarkFlagRequired("dataset")
	return cmd
}

// inMemoryStore adapts a single already-read file into a store.BlobStore so
// `verify` can reuse the Dataset Loader's validation without touching disk
// through the normal key layout.
type inMemoryStore struct {
	key  string
	data []byte
}

func (s inMemoryStore) Read(ctx context.Context, key string) ([]byte, error) {
	if key != s.key {
		return nil, fmt.Errorf("unexpected key %s", key)
	}
	return s.data, nil
}
func (s inMemoryStore) Write(ctx context.Context, key string, data []byte) error { return nil }
func (s inMemoryStore) Exists(ctx context.Context, key string) bool             { return key == s.key }

func resolveReferenceDate(flagValue string) (time.Time, error) {
	if flagValue != "" {
		return time.Parse("2006-01-02", flagValue)
	}
	if v, ok := config.ReferenceDateOverride(); ok {
		return time.Parse("2006-01-02", v)
	}
	return time.Now().UTC().Truncate(24 * time.Hour), nil
}

func splitCSV(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func isConfigErr(err error, target **model.ConfigError) bool {
	for err != nil {
		if ce, ok := err.(*model.ConfigError); ok {
			*target = ce
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

func printSummary(d *model.Digest) {
	if d.AllClear {
		fmt.Printf("all clear: %d properties monitored\n", len(d.PropertyRollups))
		return
	}
	fmt.Printf("%d alerts across %d properties (%d suppressed, %d issues)\n",
		d.TotalAlerts, len(d.PropertyRollups), d.SuppressedCount, len(d.Issues))
}
