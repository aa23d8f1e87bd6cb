// ABOUTME: Geological model builder standing in for the external structural-modeling library.
// ABOUTME: Produces a serializable summary (extent, formation stack, grid) plus an HTML scene artifact.
package geomodel

import (
	"fmt"
	"math"
)

// Column names used in uploaded surface-point and orientation tables.
const (
	ColX         = "X"
	ColY         = "Y"
	ColZ         = "Z"
	ColFormation = "formation"
)

// DefaultRefinement is the octree refinement level of the structural grid.
const DefaultRefinement = 4

// Point is one surface observation or orientation measurement location.
type Point struct {
	X, Y, Z   float64
	Formation string
}

// Extent is the axis-aligned bounding box of the model volume.
type Extent struct {
	XMin, XMax float64
	YMin, YMax float64
	ZMin, ZMax float64
}

// Summary is the serializable description of a computed model. It is the
// only model representation that ever enters session state; the structural
// grid itself stays inside this package.
type Summary struct {
	Computed      bool       `json:"computed"`
	Formations    []string   `json:"formations"`
	SurfacePoints int        `json:"n_surface_points"`
	Orientations  int        `json:"n_orientations"`
	Extent        [6]float64 `json:"extent"`
	Refinement    int        `json:"refinement"`
	GridCells     int        `json:"grid_cells"`
}

// ParsePoints extracts model input points from an uploaded row table,
// validating the required columns.
func ParsePoints(rows []map[string]any) ([]Point, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("point table is empty")
	}
	points := make([]Point, 0, len(rows))
	for i, row := range rows {
		x, ok1 := numeric(row[ColX])
		y, ok2 := numeric(row[ColY])
		z, ok3 := numeric(row[ColZ])
		formation, ok4 := row[ColFormation].(string)
		if !ok1 || !ok2 || !ok3 || !ok4 || formation == "" {
			return nil, fmt.Errorf("point row %d: missing or invalid %q, %q, %q, or %q", i, ColX, ColY, ColZ, ColFormation)
		}
		points = append(points, Point{X: x, Y: y, Z: z, Formation: formation})
	}
	return points, nil
}

// Build computes the model summary from surface points and orientations.
// When formationOverride is non-empty it replaces the formation stack
// derived from the surface points (used to align the stack with a soil
// profile from an earlier processing step).
func Build(surfaces, orientations []Point, formationOverride []string, refinement int) (Summary, error) {
	if len(surfaces) == 0 {
		return Summary{}, fmt.Errorf("no surface points")
	}
	if len(orientations) == 0 {
		return Summary{}, fmt.Errorf("no orientations")
	}
	if refinement <= 0 {
		refinement = DefaultRefinement
	}

	ext := boundingExtent(surfaces)
	if ext.XMax <= ext.XMin || ext.YMax <= ext.YMin || ext.ZMax <= ext.ZMin {
		return Summary{}, fmt.Errorf("degenerate model extent %v: surface points do not span a volume", ext)
	}

	formations := formationOverride
	if len(formations) == 0 {
		formations = distinctFormations(surfaces)
	}

	cellsPerAxis := 1 << refinement
	return Summary{
		Computed:      true,
		Formations:    formations,
		SurfacePoints: len(surfaces),
		Orientations:  len(orientations),
		Extent:        [6]float64{ext.XMin, ext.XMax, ext.YMin, ext.YMax, ext.ZMin, ext.ZMax},
		Refinement:    refinement,
		GridCells:     cellsPerAxis * cellsPerAxis * cellsPerAxis,
	}, nil
}

// Map converts the summary to the nested-mapping form stored in session
// state, with the artifact reference attached.
func (s Summary) Map(artifactPath string) map[string]any {
	extent := make([]any, len(s.Extent))
	for i, v := range s.Extent {
		extent[i] = v
	}
	formations := make([]any, len(s.Formations))
	for i, f := range s.Formations {
		formations[i] = f
	}
	return map[string]any{
		"computed":         s.Computed,
		"formations":       formations,
		"n_surface_points": s.SurfacePoints,
		"n_orientations":   s.Orientations,
		"extent":           extent,
		"refinement":       s.Refinement,
		"grid_cells":       s.GridCells,
		"artifact_path":    artifactPath,
	}
}

func boundingExtent(points []Point) Extent {
	ext := Extent{
		XMin: math.Inf(1), XMax: math.Inf(-1),
		YMin: math.Inf(1), YMax: math.Inf(-1),
		ZMin: math.Inf(1), ZMax: math.Inf(-1),
	}
	for _, p := range points {
		ext.XMin = math.Min(ext.XMin, p.X)
		ext.XMax = math.Max(ext.XMax, p.X)
		ext.YMin = math.Min(ext.YMin, p.Y)
		ext.YMax = math.Max(ext.YMax, p.Y)
		ext.ZMin = math.Min(ext.ZMin, p.Z)
		ext.ZMax = math.Max(ext.ZMax, p.Z)
	}
	return ext
}

func distinctFormations(points []Point) []string {
	seen := make(map[string]bool)
	var out []string
	for _, p := range points {
		if !seen[p.Formation] {
			seen[p.Formation] = true
			out = append(out, p.Formation)
		}
	}
	return out
}

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
