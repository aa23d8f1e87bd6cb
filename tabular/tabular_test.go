// ABOUTME: Tests for upload decoding, column validation, and the fill-missing repair.
package tabular

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

func TestDecodeCSVTypesCells(t *testing.T) {
	csvData := "z [m],qc [MPa],Soil type\n1.0,5.5,Sand\n2.0,,Clay\n"

	rows, err := DecodeCSV(strings.NewReader(csvData))
	if err != nil {
		t.Fatalf("DecodeCSV: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows", len(rows))
	}

	if rows[0]["z [m]"] != 1.0 {
		t.Errorf("numeric cell = %v (%T)", rows[0]["z [m]"], rows[0]["z [m]"])
	}
	if rows[0]["Soil type"] != "Sand" {
		t.Errorf("string cell = %v", rows[0]["Soil type"])
	}
	if v, ok := rows[1]["qc [MPa]"]; !ok || v != nil {
		t.Errorf("empty cell should be present and nil, got %v, %v", v, ok)
	}
}

func TestDecodeCSVRejectsHeaderOnly(t *testing.T) {
	if _, err := DecodeCSV(strings.NewReader("a,b,c\n")); err == nil {
		t.Error("expected error for a header-only csv")
	}
}

func TestDecodeDispatchesByExtension(t *testing.T) {
	rows, err := Decode("upload.CSV", []byte("a\n1\n"))
	if err != nil {
		t.Fatalf("Decode csv: %v", err)
	}
	if rows[0]["a"] != 1.0 {
		t.Errorf("rows = %v", rows)
	}

	if _, err := Decode("upload.txt", []byte("a\n1\n")); err == nil {
		t.Error("expected error for an unsupported extension")
	}
}

func TestDecodeXLSX(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	for i, row := range [][]any{
		{"X", "Y", "formation"},
		{1.5, 2.5, "Sand"},
		{3.0, 4.0, "Clay"},
	} {
		if err := f.SetSheetRow(sheet, fmt.Sprintf("A%d", i+1), &row); err != nil {
			t.Fatalf("SetSheetRow: %v", err)
		}
	}
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatalf("writing workbook: %v", err)
	}

	rows, err := Decode("points.xlsx", buf.Bytes())
	if err != nil {
		t.Fatalf("Decode xlsx: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows", len(rows))
	}
	if rows[0]["X"] != 1.5 || rows[1]["formation"] != "Clay" {
		t.Errorf("rows = %v", rows)
	}
}

func TestRequireColumns(t *testing.T) {
	rows := []map[string]any{{"a": 1.0, "b": nil}}

	if err := RequireColumns(rows, "a", "b"); err != nil {
		t.Errorf("nil-valued column should count as present: %v", err)
	}

	err := RequireColumns(rows, "a", "missing")
	if err == nil || !strings.Contains(err.Error(), "missing") {
		t.Errorf("err = %v", err)
	}

	if err := RequireColumns(nil, "a"); err == nil {
		t.Error("expected error for an empty table")
	}
}

func TestFillMissing(t *testing.T) {
	rows := []map[string]any{
		{"a": 1.0, "b": nil},
		{"a": nil, "b": "text"},
	}

	fixed := FillMissing(rows)

	if fixed[0]["b"] != 0.0 || fixed[1]["a"] != 0.0 {
		t.Errorf("nil cells not filled: %v", fixed)
	}
	if fixed[1]["b"] != "text" {
		t.Errorf("non-nil cell changed: %v", fixed[1]["b"])
	}
	// The input table is untouched.
	if rows[0]["b"] != nil {
		t.Error("FillMissing mutated its input")
	}
}
