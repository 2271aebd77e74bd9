// Package config loads the static threshold/runtime configuration and
// layers environment variable overrides on top, the same precedence chain
// the teacher's utils.LoadAnomalyDetectionConfig + Validate() defaulting
// establishes for its YAML config (see SPEC_FULL.md §4 Ambient-stack detail).
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the run's static thresholds and operational knobs.
type Config struct {
	SettlingDays      int           `yaml:"settling_days"`
	WorkerPoolSize    int           `yaml:"worker_pool_size"`
	RunTimeout        time.Duration `yaml:"run_timeout"`
	PropertyTimeout   time.Duration `yaml:"property_timeout"`

	Disaster DisasterConfig `yaml:"disaster"`
	Spam     SpamConfig     `yaml:"spam"`
	Record   RecordConfig   `yaml:"record"`
	Trend    TrendConfig    `yaml:"trend"`

	Consolidation ConsolidationConfig `yaml:"consolidation"`

	Delivery DeliveryConfig `yaml:"delivery"`

	Logging LoggingConfig `yaml:"logging"`

	Storage StorageConfig `yaml:"storage"`

	PrometheusPort string `yaml:"prometheus_port"`
	APIPort        string `yaml:"api_port"`
}

type DisasterConfig struct {
	SessionsFloor            float64 `yaml:"sessions_floor"`
	BaselineSessionsFloor    float64 `yaml:"baseline_sessions_floor"`
	ConversionsBaselineFloor float64 `yaml:"conversions_baseline_floor"`
	DropPercentage           float64 `yaml:"drop_percentage"`
}

type SpamConfig struct {
	ZScoreThreshold      float64 `yaml:"z_score_threshold"`
	CriticalZScore       float64 `yaml:"critical_z_score"`
	BounceRateThreshold  float64 `yaml:"bounce_rate_threshold"` // fraction, e.g. 0.85
	SessionDurationFloor float64 `yaml:"session_duration_floor_seconds"`
	VolumeFloorOverall   float64 `yaml:"volume_floor_overall"`
	VolumeFloorDimension float64 `yaml:"volume_floor_dimension"`
	// BaselineWindowDays is the trailing-day window (excluding the analysis
	// day) the z-score baseline mean/stddev are computed over.
	BaselineWindowDays int `yaml:"baseline_window_days"`
}

type RecordConfig struct {
	VolumeFloor          float64 `yaml:"volume_floor"`
	SignificanceFloorPct float64 `yaml:"significance_floor_pct"`
	// HistoryWindowDays is the trailing window searched for the prior
	// record high/low, ending 2 days before the analysis date.
	HistoryWindowDays int `yaml:"history_window_days"`
}

type TrendConfig struct {
	VolumeFloor       float64 `yaml:"volume_floor"`
	ThresholdPct      float64 `yaml:"threshold_pct"`
	MaxPerPropertyDim int     `yaml:"max_per_property_dimension"`
	// RecentWindowDays is MA_30; BaselineWindowDays is MA_180. Both are
	// anchored on the analysis date, so MA_30's days are the most recent
	// subset of MA_180's — the two windows overlap, they are not disjoint.
	RecentWindowDays   int `yaml:"recent_window_days"`
	BaselineWindowDays int `yaml:"baseline_window_days"`
}

type ConsolidationConfig struct {
	MaxAlertsPerProperty int `yaml:"max_alerts_per_property"`
}

type DeliveryConfig struct {
	Provider   string   `yaml:"provider"` // "log" | "smtp"
	Recipients []string `yaml:"recipients"`
	SMTP       SMTPConfig `yaml:"smtp"`
}

type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	From     string `yaml:"from"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

type StorageConfig struct {
	// RootDir is the local-filesystem root standing in for the blob store
	// (see internal/store), holding both the input clean_dataset/ and
	// config/ trees and the output results/ tree.
	RootDir string `yaml:"root_dir"`
}

// Default returns the hardcoded fallback configuration, mirroring the
// teacher's GetDefaultAnomalyDetectionConfig.
func Default() *Config {
	return &Config{
		SettlingDays:    3,
		WorkerPoolSize:  16,
		RunTimeout:      10 * time.Minute,
		PropertyTimeout: 60 * time.Second,
		Disaster: DisasterConfig{
			SessionsFloor:            10,
			BaselineSessionsFloor:    100,
			ConversionsBaselineFloor: 1,
			DropPercentage:           90,
		},
		Spam: SpamConfig{
			ZScoreThreshold:      3.0,
			CriticalZScore:       5.0,
			BounceRateThreshold:  0.85,
			SessionDurationFloor: 10,
			VolumeFloorOverall:   100,
			VolumeFloorDimension: 10,
			BaselineWindowDays:   7,
		},
		Record: RecordConfig{
			VolumeFloor:          100,
			SignificanceFloorPct: 5.0,
			HistoryWindowDays:    90,
		},
		Trend: TrendConfig{
			VolumeFloor:        50,
			ThresholdPct:       15.0,
			MaxPerPropertyDim:  3,
			RecentWindowDays:   30,
			// BaselineWindowDays is MA_180: a yesterday-anchored 180-day
			// mean that overlaps MA_30's 30 most recent days, not a
			// disjoint prior window.
			BaselineWindowDays: 180,
		},
		Consolidation: ConsolidationConfig{
			MaxAlertsPerProperty: 12,
		},
		Delivery: DeliveryConfig{
			Provider: "log",
		},
		Logging: LoggingConfig{
			Level: "INFO",
		},
		Storage: StorageConfig{
			RootDir: "data",
		},
		PrometheusPort: "9108",
		APIPort:        "8080",
	}
}

// Load reads a YAML config file over Default()'s values. On any read or
// parse error it returns nil and the error; falling back to Default() is
// left to the caller (mirrored from the teacher's cmd/hubble-guard main()'s
// "Using default configuration..." fallback behavior).
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv layers the recognized environment variables over cfg in place
// (spec.md §6 Environment). Unknown variables are ignored; malformed
// recognized variables are ignored with the existing value retained.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("SETTLING_DAYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.SettlingDays = n
		}
	}
	if v := os.Getenv("WORKER_POOL_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.WorkerPoolSize = n
		}
	}
	if v := os.Getenv("RUN_TIMEOUT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.RunTimeout = time.Duration(n) * time.Second
		}
	}
}

// ReferenceDateOverride returns the REFERENCE_DATE_OVERRIDE env var, if set.
func ReferenceDateOverride() (string, bool) {
	v := os.Getenv("REFERENCE_DATE_OVERRIDE")
	return v, v != ""
}

// WorkerPoolSize computes the default pool size for a property count,
// honoring an explicit override: min(#properties * 4, 16).
func WorkerPoolSize(configured, propertyCount int) int {
	if configured > 0 {
		return configured
	}
	size := propertyCount * 4
	if size > 16 {
		size = 16
	}
	if size < 1 {
		size = 1
	}
	return size
}
