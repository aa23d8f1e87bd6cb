// ABOUTME: Tests for snapshot persistence: save/load round trip and row-table normalization.
package session

import (
	"testing"

	"github.com/snu-geoshm/geotwin/pipeline"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	state := pipeline.State{
		"material_input": 120.0,
		"raw_cpt_records": []map[string]any{
			{"z [m]": 1.0, "qc [MPa]": 5.0},
			{"z [m]": 2.0, "qc [MPa]": 8.0},
		},
	}

	if err := SaveSnapshot(dir, "abc", state); err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}

	loaded, err := LoadSnapshot(dir, "abc")
	if err != nil {
		t.Fatalf("LoadSnapshot: %v", err)
	}

	if loaded.Float("material_input", 0) != 120.0 {
		t.Errorf("material_input = %v", loaded["material_input"])
	}

	// Tables must come back in the []map form the pipeline reads.
	rows := loaded.Rows("raw_cpt_records")
	if len(rows) != 2 {
		t.Fatalf("rows = %v", loaded["raw_cpt_records"])
	}
	if rows[1]["qc [MPa]"] != 8.0 {
		t.Errorf("row value = %v", rows[1]["qc [MPa]"])
	}
}

func TestRoundTripNormalizesNestedTables(t *testing.T) {
	dir := t.TempDir()
	state := pipeline.State{
		"modal_result": map[string]any{
			"fs": 100.0,
			"pairs": []map[string]any{
				{"frequency": 0.0, "amplitude": 3.0},
				{"frequency": 0.1, "amplitude": 0.5},
			},
		},
	}

	if err := SaveSnapshot(dir, "nested", state); err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}
	loaded, err := LoadSnapshot(dir, "nested")
	if err != nil {
		t.Fatalf("LoadSnapshot: %v", err)
	}

	result, ok := loaded["modal_result"].(map[string]any)
	if !ok {
		t.Fatalf("modal_result = %T", loaded["modal_result"])
	}
	pairs, ok := result["pairs"].([]map[string]any)
	if !ok {
		t.Fatalf("nested pairs table = %T, want []map[string]any", result["pairs"])
	}
	if len(pairs) != 2 || pairs[1]["frequency"] != 0.1 {
		t.Errorf("pairs = %v", pairs)
	}
}

func TestLoadMissingSnapshotIsNil(t *testing.T) {
	state, err := LoadSnapshot(t.TempDir(), "nope")
	if err != nil {
		t.Fatalf("LoadSnapshot on absent file: %v", err)
	}
	if state != nil {
		t.Errorf("state = %v, want nil", state)
	}
}

func TestSaveOverwritesAtomically(t *testing.T) {
	dir := t.TempDir()
	if err := SaveSnapshot(dir, "s", pipeline.State{"v": 1.0}); err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}
	if err := SaveSnapshot(dir, "s", pipeline.State{"v": 2.0}); err != nil {
		t.Fatalf("SaveSnapshot overwrite: %v", err)
	}

	loaded, err := LoadSnapshot(dir, "s")
	if err != nil {
		t.Fatalf("LoadSnapshot: %v", err)
	}
	if loaded.Float("v", 0) != 2.0 {
		t.Errorf("v = %v, want the second save", loaded["v"])
	}
}
