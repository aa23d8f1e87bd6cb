// ABOUTME: CPT record normalization and correlations standing in for the external soil-processing library.
// ABOUTME: Computes friction ratio, normalized cone resistance, and Baldi relative density for sand layers.
package geotech

import (
	"fmt"
	"math"
)

// Column names used in uploaded CPT tables. These match the raw export
// format of the survey contractor's processing sheets.
const (
	ColDepth           = "z [m]"
	ColConeResistance  = "qc [MPa]"
	ColSleeveFriction  = "fs [MPa]"
	ColFrictionRatio   = "Rf [%]"
	ColNormalizedCone  = "Qtn [-]"
	ColRelativeDensity = "Dr [%]"
)

// Unit weights in kN/m3 used for the vertical stress profile.
const (
	soilUnitWeight  = 19.0
	waterUnitWeight = 10.0
)

// Baldi et al. (1986) relative density correlation constants for
// normally consolidated sand.
const (
	baldiC0 = 157.0
	baldiC1 = 0.55
	baldiC2 = 2.41
)

// Record is one depth sample of a cone penetration test.
type Record struct {
	Depth          float64 // m below mudline
	ConeResistance float64 // MPa
	SleeveFriction float64 // MPa
}

// ParseRecords extracts CPT records from an uploaded row table, validating
// the required columns.
func ParseRecords(rows []map[string]any) ([]Record, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("cpt table is empty")
	}
	records := make([]Record, 0, len(rows))
	for i, row := range rows {
		depth, ok1 := numeric(row[ColDepth])
		qc, ok2 := numeric(row[ColConeResistance])
		fs, ok3 := numeric(row[ColSleeveFriction])
		if !ok1 || !ok2 || !ok3 {
			return nil, fmt.Errorf("cpt row %d: missing or non-numeric %q, %q, or %q", i, ColDepth, ColConeResistance, ColSleeveFriction)
		}
		records = append(records, Record{Depth: depth, ConeResistance: qc, SleeveFriction: fs})
	}
	return records, nil
}

// Process normalizes the CPT records and applies the Baldi relative-density
// correlation to samples that fall inside a sand layer of the profile.
// A nil profile applies the correlation to every sample, matching the
// behavior when no layering information is available.
func Process(records []Record, profile *Profile) ([]map[string]any, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("no cpt records to process")
	}

	out := make([]map[string]any, 0, len(records))
	for _, rec := range records {
		if rec.Depth < 0 {
			return nil, fmt.Errorf("cpt depth %g m is negative", rec.Depth)
		}

		row := map[string]any{
			ColDepth:          rec.Depth,
			ColConeResistance: rec.ConeResistance,
			ColSleeveFriction: rec.SleeveFriction,
		}

		if rec.ConeResistance > 0 {
			row[ColFrictionRatio] = rec.SleeveFriction / rec.ConeResistance * 100
		} else {
			row[ColFrictionRatio] = 0.0
		}

		sigmaV0 := rec.Depth * soilUnitWeight              // total vertical stress, kPa
		u0 := rec.Depth * waterUnitWeight                  // hydrostatic pore pressure, kPa
		sigmaV0Eff := math.Max(sigmaV0-u0, 1.0)            // effective stress floored at 1 kPa
		qcKPa := rec.ConeResistance * 1000                 // cone resistance, kPa
		row[ColNormalizedCone] = (qcKPa - sigmaV0) / sigmaV0Eff

		inSand := profile == nil
		if profile != nil {
			if layer, ok := profile.LayerAt(rec.Depth); ok && layer.SoilType == "Sand" {
				inSand = true
			}
		}
		if inSand && qcKPa > 0 {
			dr := relativeDensityBaldi(qcKPa, sigmaV0Eff)
			row[ColRelativeDensity] = dr
		}

		out = append(out, row)
	}
	return out, nil
}

// relativeDensityBaldi returns the Baldi (1986) relative density in percent,
// clamped to [0, 100].
func relativeDensityBaldi(qcKPa, sigmaV0Eff float64) float64 {
	dr := 1 / baldiC2 * math.Log(qcKPa/(baldiC0*math.Pow(sigmaV0Eff, baldiC1))) * 100
	return math.Min(math.Max(dr, 0), 100)
}

// MeanRelativeDensity averages the Dr column over a processed row table.
// Returns false when no sample carries a relative density.
func MeanRelativeDensity(rows []map[string]any) (float64, bool) {
	var sum float64
	var n int
	for _, row := range rows {
		if v, ok := numeric(row[ColRelativeDensity]); ok {
			sum += v
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

// numeric coerces table cell values to float64.
func numeric(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
