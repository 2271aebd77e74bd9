package model

// PropertyConfig describes one monitored analytics property and its
// per-property overrides. Grounded on the teacher's AnomalyRuleConfig /
// DefaultConfig defaulting pattern (internal/utils/config.go), generalized
// from a single flat config to a per-property record carrying its own
// volume overrides.
type PropertyConfig struct {
	PropertyID       string   `json:"property_id"`
	DatasetID        string   `json:"dataset_id"`
	ClientName       string   `json:"client_name"`
	Domain           string   `json:"domain"`
	ConversionEvents []string `json:"conversion_events"`
	Notes            string   `json:"notes"`
	IsConfigured     bool     `json:"is_configured"`

	// EnabledDimensions, when non-nil, restricts which dimensions
	// detectors evaluate for this property. A nil map means "all dimensions
	// a detector normally scans".
	EnabledDimensions map[Dimension]bool `json:"enabled_dimensions,omitempty"`

	// SuppressedDimensionValues blocks specific dimension values (e.g. a
	// known internal QA traffic source) from producing alerts.
	SuppressedDimensionValues map[string]bool `json:"suppressed_dimension_values,omitempty"`

	// VolumeOverrides replaces a detector's default volume floor for this
	// property. Keys are detector kind strings ("spam", "record", "trend").
	VolumeOverrides map[string]float64 `json:"volume_overrides,omitempty"`
}

// DimensionEnabled reports whether a detector should scan dim for this
// property, honoring EnabledDimensions when set.
func (p *PropertyConfig) DimensionEnabled(dim Dimension) bool {
	if p.EnabledDimensions == nil {
		return true
	}
	enabled, ok := p.EnabledDimensions[dim]
	return ok && enabled
}

// Suppressed reports whether a given dimension value has been suppressed
// for this property (e.g. a known bot-farm country an AM has chosen to
// silence rather than keep re-triaging).
func (p *PropertyConfig) Suppressed(dimensionValue string) bool {
	if p.SuppressedDimensionValues == nil {
		return false
	}
	return p.SuppressedDimensionValues[dimensionValue]
}

// VolumeFloor returns the configured override for detectorKind, or ok=false
// if the property carries no override and the detector's built-in default
// should apply.
func (p *PropertyConfig) VolumeFloor(detectorKind string) (float64, bool) {
	if p.VolumeOverrides == nil {
		return 0, false
	}
	v, ok := p.VolumeOverrides[detectorKind]
	return v, ok
}
