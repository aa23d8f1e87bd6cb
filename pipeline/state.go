// ABOUTME: Session state snapshot: a flat key-value mapping treated as immutable per operation.
// ABOUTME: Every mutation goes through Merge/Clone so concurrent readers never see in-place edits.
package pipeline

import (
	"maps"
	"slices"
)

// KeyError holds the most recent stage failure message. It is overwritten,
// never accumulated.
const KeyError = "error"

// Session state keys written and read by the built-in stages.
const (
	KeyMaterialInput     = "material_input"
	KeySimulationResult  = "simulation_result"
	KeyRawCPT            = "raw_cpt_records"
	KeyRawLayering       = "raw_layering_records"
	KeyProcessedCPT      = "processed_cpt_records"
	KeySoilProfile       = "soil_profile_records"
	KeySurfacePoints     = "surface_point_records"
	KeyOrientations      = "orientation_records"
	KeyGeoModelSummary   = "geo_model_summary"
	KeyTimeSeries        = "time_series_records"
	KeyModalResult       = "modal_result"
)

// State is one session's accumulated results keyed by stage-namespaced
// strings. Values are JSON-serializable: numbers, strings, row tables
// ([]map[string]any), and nested mappings. A State is a snapshot; callers
// must not mutate a snapshot they did not create with Clone or Merge.
type State map[string]any

// NewState creates an empty session state.
func NewState() State {
	return make(State)
}

// Clone returns a shallow copy with an independent top-level map. Table and
// mapping values are shared; stages treat them as read-only.
func (s State) Clone() State {
	out := make(State, len(s))
	maps.Copy(out, s)
	return out
}

// Merge returns a new snapshot containing s plus the given updates.
// Later values win for duplicate keys. The receiver is unchanged.
func (s State) Merge(updates map[string]any) State {
	out := s.Clone()
	maps.Copy(out, updates)
	return out
}

// MissingKeys returns the subset of keys absent from the snapshot, in the
// order given.
func (s State) MissingKeys(keys []string) []string {
	var missing []string
	for _, k := range keys {
		if _, ok := s[k]; !ok {
			missing = append(missing, k)
		}
	}
	return missing
}

// Has reports whether every given key is present.
func (s State) Has(keys ...string) bool {
	return len(s.MissingKeys(keys)) == 0
}

// Rows returns the table-valued entry for key as a list of row mappings,
// or nil if the key is absent or not table-valued.
func (s State) Rows(key string) []map[string]any {
	v, ok := s[key]
	if !ok {
		return nil
	}
	rows, ok := v.([]map[string]any)
	if !ok {
		return nil
	}
	return rows
}

// Float returns the numeric value for key, accepting float64 and int
// representations. Returns defaultVal when the key is missing or non-numeric.
func (s State) Float(key string, defaultVal float64) float64 {
	v, ok := s[key]
	if !ok {
		return defaultVal
	}
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	default:
		return defaultVal
	}
}

// String returns the string value for key, or defaultVal when the key is
// missing or not a string.
func (s State) String(key string, defaultVal string) string {
	v, ok := s[key]
	if !ok {
		return defaultVal
	}
	str, ok := v.(string)
	if !ok {
		return defaultVal
	}
	return str
}

// Keys returns the snapshot's keys in sorted order.
func (s State) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
