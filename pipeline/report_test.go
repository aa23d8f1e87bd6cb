// ABOUTME: Tests for the run report: counts, lookup, and markdown rendering.
package pipeline

import (
	"strings"
	"testing"
)

func sampleReport() *Report {
	r := NewReport()
	r.Append("simulation", Success(map[string]any{KeySimulationResult: []map[string]any{}}))
	r.Append("soil_processing", SkipMissing([]string{KeyRawCPT}))
	r.Append("geo_model", Failed("degenerate extent"))
	return r
}

func TestReportCounts(t *testing.T) {
	succeeded, skipped, failed := sampleReport().Counts()
	if succeeded != 1 || skipped != 1 || failed != 1 {
		t.Errorf("counts = %d/%d/%d, want 1/1/1", succeeded, skipped, failed)
	}
	if !sampleReport().HasFailure() {
		t.Error("HasFailure = false")
	}
}

func TestReportGet(t *testing.T) {
	r := sampleReport()
	res, ok := r.Get("geo_model")
	if !ok || res.Status != StatusFailed {
		t.Errorf("Get(geo_model) = %+v, %v", res, ok)
	}
	if _, ok := r.Get("unknown"); ok {
		t.Error("Get on unknown stage should report false")
	}
}

func TestMarkdownSummary(t *testing.T) {
	md := sampleReport().Markdown()

	for _, want := range []string{
		"1 succeeded, 1 skipped, 1 failed",
		"**simulation**: success",
		"**soil_processing**: skipped (missing: " + KeyRawCPT + ")",
		"**geo_model**: failed: degenerate extent",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q:\n%s", want, md)
		}
	}
}

func TestMarkdownTruncatesPanicStacks(t *testing.T) {
	r := NewReport()
	r.Append("boom", Failed("panic: oops\ngoroutine 1 [running]:\nmain.main()"))

	md := r.Markdown()
	if strings.Contains(md, "goroutine") {
		t.Errorf("markdown should keep only the first failure line:\n%s", md)
	}
	if !strings.Contains(md, "panic: oops") {
		t.Errorf("markdown lost the failure headline:\n%s", md)
	}
}
