// ABOUTME: Atomic JSON persistence for session snapshots: write tmp, fsync, rename.
// ABOUTME: Snapshots serialize as a flat key-value mapping with tables as lists of row mappings.
package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/snu-geoshm/geotwin/pipeline"
)

// SaveSnapshot writes the session's state to <dir>/session_<id>.json using
// an atomic rename so a crash never leaves a torn file.
func SaveSnapshot(dir, sessionID string, state pipeline.State) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal session snapshot: %w", err)
	}

	tmpPath := filepath.Join(dir, fmt.Sprintf("session_%s.tmp", sessionID))
	finalPath := filepath.Join(dir, fmt.Sprintf("session_%s.json", sessionID))

	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write snapshot data: %w", err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("fsync snapshot: %w", err)
	}
	_ = f.Close()

	if err := os.Rename(tmpPath, finalPath); err != nil {
		return fmt.Errorf("rename snapshot: %w", err)
	}
	return nil
}

// LoadSnapshot reads a previously saved session state. Returns nil state
// with no error when no snapshot exists.
func LoadSnapshot(dir, sessionID string) (pipeline.State, error) {
	path := filepath.Join(dir, fmt.Sprintf("session_%s.json", sessionID))
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	var state pipeline.State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("parse snapshot: %w", err)
	}
	return normalizeTables(state), nil
}

// normalizeTables rewrites JSON-decoded []any row tables back to the
// []map[string]any form the pipeline reads, recursing into nested mappings
// so tables inside results (e.g. spectrum pairs) normalize too.
func normalizeTables(state pipeline.State) pipeline.State {
	for k, v := range state {
		state[k] = normalizeValue(v)
	}
	return state
}

func normalizeValue(v any) any {
	switch val := v.(type) {
	case []any:
		rows := make([]map[string]any, 0, len(val))
		for _, item := range val {
			row, ok := item.(map[string]any)
			if !ok {
				return val
			}
			rows = append(rows, normalizeMapping(row))
		}
		if len(rows) == 0 {
			return val
		}
		return rows
	case map[string]any:
		return normalizeMapping(val)
	default:
		return v
	}
}

func normalizeMapping(m map[string]any) map[string]any {
	for k, v := range m {
		m[k] = normalizeValue(v)
	}
	return m
}
