// Package registry loads and validates the property registry: the set of
// monitored analytics properties and their per-property overrides.
//
// Grounded on the teacher's internal/utils.DefaultConfig JSON-document
// pattern (internal/utils/config.go), generalized from one flat
// application config into a registry of many properties — the closest
// corpus analog to SCOUT's original ScoutClientConfig (a CSV-backed,
// per-client-by-property-id config loaded once at startup), reshaped to
// the JSON config SPEC_FULL.md uses for everything else in the blob store.
package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/singlethrowdata/scout-anomaly-detection/internal/model"
)

// Document is the on-disk shape of config/properties.json.
type Document struct {
	Properties []model.PropertyConfig `json:"properties"`
}

// Registry holds the validated, indexed set of monitored properties.
type Registry struct {
	byID  map[string]*model.PropertyConfig
	order []string
}

// Load reads and validates the property registry at path. A registry with
// zero enabled properties, or any property missing its id, is a
// *model.ConfigError (fatal — spec.md §7 exit code 2).
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &model.ConfigError{Reason: fmt.Sprintf("cannot read property registry %s", path), Err: err}
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &model.ConfigError{Reason: fmt.Sprintf("cannot parse property registry %s", path), Err: err}
	}

	reg := &Registry{byID: make(map[string]*model.PropertyConfig, len(doc.Properties))}
	for i := range doc.Properties {
		p := doc.Properties[i]
		if p.PropertyID == "" {
			return nil, &model.ConfigError{Reason: fmt.Sprintf("property at index %d has no property_id", i)}
		}
		if _, dup := reg.byID[p.PropertyID]; dup {
			return nil, &model.ConfigError{Reason: fmt.Sprintf("duplicate property_id %s", p.PropertyID)}
		}
		reg.byID[p.PropertyID] = &p
		reg.order = append(reg.order, p.PropertyID)
	}

	if len(reg.Enabled()) == 0 {
		return nil, &model.ConfigError{Reason: "property registry has no configured properties"}
	}

	return reg, nil
}

// Enabled returns the configured properties in registry-file order.
func (r *Registry) Enabled() []*model.PropertyConfig {
	out := make([]*model.PropertyConfig, 0, len(r.order))
	for _, id := range r.order {
		p := r.byID[id]
		if p.IsConfigured {
			out = append(out, p)
		}
	}
	return out
}

// Get returns the property with the given id, or ok=false.
func (r *Registry) Get(propertyID string) (*model.PropertyConfig, bool) {
	p, ok := r.byID[propertyID]
	return p, ok
}

// Filter narrows the registry to the given property ids (run --properties=),
// preserving registry order. Only configured properties are returned; an id
// whose property is not configured is dropped. An id not present in the
// registry is reported back in the second return so the caller can
// log/warn about it without aborting the run.
func (r *Registry) Filter(ids []string) ([]*model.PropertyConfig, []string) {
	if len(ids) == 0 {
		return r.Enabled(), nil
	}
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var out []*model.PropertyConfig
	var unknown []string
	for _, id := range ids {
		p, ok := r.byID[id]
		if !ok {
			unknown = append(unknown, id)
			continue
		}
		if !p.IsConfigured {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		return indexOf(r.order, out[i].PropertyID) < indexOf(r.order, out[j].PropertyID)
	})
	return out, unknown
}

func indexOf(ss []string, s string) int {
	for i, v := range ss {
		if v == s {
			return i
		}
	}
	return -1
}
