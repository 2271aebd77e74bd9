package model

import "fmt"

// ConfigError means the property registry is missing, malformed, or its
// enabled set is empty. Fatal for the run (exit 2).
type ConfigError struct {
	Reason string
	Err    error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("config error: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("config error: %s", e.Reason)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// LoadError is scoped to one property: the dataset is absent, malformed, or
// lacks enough history for the requested windows. Logged and the property
// is skipped; does not abort the run.
type LoadError struct {
	PropertyID string
	Reason     string
	Err        error
}

func (e *LoadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("load error for property %s: %s: %v", e.PropertyID, e.Reason, e.Err)
	}
	return fmt.Sprintf("load error for property %s: %s", e.PropertyID, e.Reason)
}

func (e *LoadError) Unwrap() error { return e.Err }

// DetectorError is an unexpected failure inside one detector for one
// property. Scoped — the other three detectors for that property still run.
type DetectorError struct {
	PropertyID string
	Detector   DetectorKind
	Err        error
}

func (e *DetectorError) Error() string {
	return fmt.Sprintf("detector %s failed for property %s: %v", e.Detector, e.PropertyID, e.Err)
}

func (e *DetectorError) Unwrap() error { return e.Err }

// PersistenceError means an artifact write failed after retries.
type PersistenceError struct {
	Artifact string
	Err      error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("failed to persist artifact %s: %v", e.Artifact, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// DeliveryError means the digest was produced and persisted but handoff to
// the delivery adapter failed.
type DeliveryError struct {
	ProviderID string
	Err        error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("delivery failed (provider %s): %v", e.ProviderID, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }
