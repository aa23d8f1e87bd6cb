// ABOUTME: Upload decoding: CSV and XLSX files into row tables ([]map[string]any).
// ABOUTME: Numeric cells become float64; the first row supplies column names.
package tabular

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Decode parses an uploaded file into a row table based on its extension.
func Decode(filename string, data []byte) ([]map[string]any, error) {
	switch strings.ToLower(path.Ext(filename)) {
	case ".csv":
		return DecodeCSV(bytes.NewReader(data))
	case ".xlsx":
		return DecodeXLSX(bytes.NewReader(data))
	default:
		return nil, fmt.Errorf("unsupported file type: %s", filename)
	}
}

// DecodeCSV reads a headered CSV stream into a row table.
func DecodeCSV(r io.Reader) ([]map[string]any, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	var rows []map[string]any
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row %d: %w", len(rows)+2, err)
		}
		rows = append(rows, buildRow(header, record))
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("csv has a header but no data rows")
	}
	return rows, nil
}

// DecodeXLSX reads the first sheet of an XLSX stream into a row table.
func DecodeXLSX(r io.Reader) ([]map[string]any, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("xlsx has no sheets")
	}
	cells, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	if len(cells) < 2 {
		return nil, fmt.Errorf("sheet %q has no data rows", sheets[0])
	}

	header := cells[0]
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}
	rows := make([]map[string]any, 0, len(cells)-1)
	for _, record := range cells[1:] {
		rows = append(rows, buildRow(header, record))
	}
	return rows, nil
}

// buildRow maps one record onto the header, parsing numeric cells. Short
// records leave trailing columns absent.
func buildRow(header, record []string) map[string]any {
	row := make(map[string]any, len(header))
	for i, col := range header {
		if col == "" || i >= len(record) {
			continue
		}
		cell := strings.TrimSpace(record[i])
		if cell == "" {
			row[col] = nil
			continue
		}
		if n, err := strconv.ParseFloat(cell, 64); err == nil {
			row[col] = n
		} else {
			row[col] = cell
		}
	}
	return row
}

// RequireColumns validates that every row table column is present in the
// first row.
func RequireColumns(rows []map[string]any, cols ...string) error {
	if len(rows) == 0 {
		return fmt.Errorf("table is empty")
	}
	var missing []string
	for _, c := range cols {
		if _, ok := rows[0][c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required columns: %s", strings.Join(missing, ", "))
	}
	return nil
}

// FillMissing returns a copy of the table with nil cells replaced by zero,
// the dashboard's one-click data repair.
func FillMissing(rows []map[string]any) []map[string]any {
	out := make([]map[string]any, len(rows))
	for i, row := range rows {
		fixed := make(map[string]any, len(row))
		for k, v := range row {
			if v == nil {
				fixed[k] = 0.0
			} else {
				fixed[k] = v
			}
		}
		out[i] = fixed
	}
	return out
}
