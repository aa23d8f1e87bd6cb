// ABOUTME: Tests for geological model building: parsing, extent validation, and the state mapping.
package geomodel

import (
	"reflect"
	"strings"
	"testing"
)

func cubeSurfaces() []Point {
	return []Point{
		{X: 0, Y: 0, Z: 0, Formation: "Sand"},
		{X: 100, Y: 0, Z: -5, Formation: "Sand"},
		{X: 0, Y: 100, Z: -10, Formation: "Clay"},
		{X: 100, Y: 100, Z: -20, Formation: "Clay"},
	}
}

func someOrientations() []Point {
	return []Point{{X: 50, Y: 50, Z: -10, Formation: "Sand"}}
}

func TestParsePoints(t *testing.T) {
	rows := []map[string]any{
		{ColX: 1.0, ColY: 2.0, ColZ: -3.0, ColFormation: "Sand"},
	}
	points, err := ParsePoints(rows)
	if err != nil {
		t.Fatalf("ParsePoints: %v", err)
	}
	want := []Point{{X: 1, Y: 2, Z: -3, Formation: "Sand"}}
	if !reflect.DeepEqual(points, want) {
		t.Errorf("points = %+v", points)
	}
}

func TestParsePointsRejectsBadTables(t *testing.T) {
	cases := []struct {
		name string
		rows []map[string]any
	}{
		{"empty", nil},
		{"missing formation", []map[string]any{{ColX: 1.0, ColY: 2.0, ColZ: 3.0}}},
		{"blank formation", []map[string]any{{ColX: 1.0, ColY: 2.0, ColZ: 3.0, ColFormation: ""}}},
		{"non-numeric coordinate", []map[string]any{{ColX: "east", ColY: 2.0, ColZ: 3.0, ColFormation: "Sand"}}},
	}
	for _, tc := range cases {
		if _, err := ParsePoints(tc.rows); err == nil {
			t.Errorf("%s: expected error", tc.name)
		}
	}
}

func TestBuildSummary(t *testing.T) {
	summary, err := Build(cubeSurfaces(), someOrientations(), nil, 0)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if !summary.Computed {
		t.Error("Computed = false")
	}
	if summary.Refinement != DefaultRefinement {
		t.Errorf("Refinement = %d, want default %d", summary.Refinement, DefaultRefinement)
	}
	if want := 16 * 16 * 16; summary.GridCells != want {
		t.Errorf("GridCells = %d, want %d", summary.GridCells, want)
	}
	wantExtent := [6]float64{0, 100, 0, 100, -20, 0}
	if summary.Extent != wantExtent {
		t.Errorf("Extent = %v, want %v", summary.Extent, wantExtent)
	}
	if !reflect.DeepEqual(summary.Formations, []string{"Sand", "Clay"}) {
		t.Errorf("Formations = %v", summary.Formations)
	}
}

func TestBuildFormationOverride(t *testing.T) {
	override := []string{"Fill", "Sand", "Bedrock"}
	summary, err := Build(cubeSurfaces(), someOrientations(), override, 2)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !reflect.DeepEqual(summary.Formations, override) {
		t.Errorf("Formations = %v, want override %v", summary.Formations, override)
	}
	if summary.Refinement != 2 || summary.GridCells != 4*4*4 {
		t.Errorf("refinement 2: cells = %d, want %d", summary.GridCells, 4*4*4)
	}
}

func TestBuildRejectsDegenerateExtent(t *testing.T) {
	flat := []Point{
		{X: 0, Y: 0, Z: 0, Formation: "Sand"},
		{X: 100, Y: 100, Z: 0, Formation: "Sand"}, // no vertical span
	}
	if _, err := Build(flat, someOrientations(), nil, 0); err == nil {
		t.Error("expected error for a degenerate extent")
	}
	if _, err := Build(nil, someOrientations(), nil, 0); err == nil {
		t.Error("expected error for no surface points")
	}
	if _, err := Build(cubeSurfaces(), nil, nil, 0); err == nil {
		t.Error("expected error for no orientations")
	}
}

func TestSummaryMap(t *testing.T) {
	summary, _ := Build(cubeSurfaces(), someOrientations(), nil, 0)
	m := summary.Map("/data/artifacts/scene.html")

	if m["computed"] != true {
		t.Error("computed missing from map")
	}
	if m["artifact_path"] != "/data/artifacts/scene.html" {
		t.Errorf("artifact_path = %v", m["artifact_path"])
	}
	if m["n_surface_points"] != 4 || m["n_orientations"] != 1 {
		t.Errorf("point counts wrong: %v", m)
	}
}

func TestRenderHTMLEmbedsScene(t *testing.T) {
	surfaces := cubeSurfaces()
	summary, _ := Build(surfaces, someOrientations(), nil, 0)

	html, err := RenderHTML(summary, surfaces)
	if err != nil {
		t.Fatalf("RenderHTML: %v", err)
	}

	page := string(html)
	for _, want := range []string{"<canvas", `"formation":"Sand"`, "Geological Model"} {
		if !strings.Contains(page, want) {
			t.Errorf("rendered scene missing %q", want)
		}
	}
}
