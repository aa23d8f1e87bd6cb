// ABOUTME: Soil layering profile parsed from uploaded tables, with contiguity validation.
// ABOUTME: Layers are depth intervals tagged with a soil type, ordered from the mudline down.
package geotech

import (
	"fmt"
	"sort"
)

// Column names used in uploaded layering tables.
const (
	ColDepthFrom = "Depth from [m]"
	ColDepthTo   = "Depth to [m]"
	ColSoilType  = "Soil type"
)

// Layer is one interval of the soil profile.
type Layer struct {
	DepthFrom float64 `json:"depth_from"`
	DepthTo   float64 `json:"depth_to"`
	SoilType  string  `json:"soil_type"`
}

// Profile is an ordered soil layering from the mudline down.
type Profile struct {
	Layers []Layer
}

// ParseProfile builds a validated profile from an uploaded row table.
// Layers must have positive thickness and no gaps or overlaps between
// consecutive intervals.
func ParseProfile(rows []map[string]any) (*Profile, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("layering table is empty")
	}

	layers := make([]Layer, 0, len(rows))
	for i, row := range rows {
		from, ok1 := numeric(row[ColDepthFrom])
		to, ok2 := numeric(row[ColDepthTo])
		soil, ok3 := row[ColSoilType].(string)
		if !ok1 || !ok2 || !ok3 || soil == "" {
			return nil, fmt.Errorf("layering row %d: missing or invalid %q, %q, or %q", i, ColDepthFrom, ColDepthTo, ColSoilType)
		}
		if to <= from {
			return nil, fmt.Errorf("layering row %d: depth interval [%g, %g] has non-positive thickness", i, from, to)
		}
		layers = append(layers, Layer{DepthFrom: from, DepthTo: to, SoilType: soil})
	}

	sort.Slice(layers, func(i, j int) bool { return layers[i].DepthFrom < layers[j].DepthFrom })

	for i := 1; i < len(layers); i++ {
		if layers[i].DepthFrom != layers[i-1].DepthTo {
			return nil, fmt.Errorf("layering gap or overlap between %g m and %g m", layers[i-1].DepthTo, layers[i].DepthFrom)
		}
	}

	return &Profile{Layers: layers}, nil
}

// LayerAt returns the layer containing the given depth. The lower bound of
// each interval is inclusive, the upper bound exclusive except for the
// deepest layer.
func (p *Profile) LayerAt(depth float64) (Layer, bool) {
	for i, l := range p.Layers {
		if depth >= l.DepthFrom && (depth < l.DepthTo || i == len(p.Layers)-1 && depth <= l.DepthTo) {
			return l, true
		}
	}
	return Layer{}, false
}

// SoilTypes returns the distinct soil types in layer order.
func (p *Profile) SoilTypes() []string {
	seen := make(map[string]bool)
	var out []string
	for _, l := range p.Layers {
		if !seen[l.SoilType] {
			seen[l.SoilType] = true
			out = append(out, l.SoilType)
		}
	}
	return out
}

// Rows converts the profile to the row-table form stored in session state.
func (p *Profile) Rows() []map[string]any {
	rows := make([]map[string]any, len(p.Layers))
	for i, l := range p.Layers {
		rows[i] = map[string]any{
			ColDepthFrom: l.DepthFrom,
			ColDepthTo:   l.DepthTo,
			ColSoilType:  l.SoilType,
		}
	}
	return rows
}
