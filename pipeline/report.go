// ABOUTME: PipelineReport: the ordered list of (stage, outcome) pairs produced by one run.
// ABOUTME: This is the only contract between the orchestrator and the presenter.
package pipeline

import (
	"fmt"
	"strings"
	"time"
)

// Entry pairs a stage name with its outcome for one run.
type Entry struct {
	Stage  string `json:"stage"`
	Result Result `json:"result"`
}

// Report describes the full outcome of one orchestrator run, in stage order.
type Report struct {
	Entries     []Entry   `json:"entries"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
}

// NewReport creates an empty report stamped with the current time.
func NewReport() *Report {
	return &Report{Entries: []Entry{}, StartedAt: time.Now()}
}

// Append records one stage outcome.
func (r *Report) Append(stage string, res Result) {
	r.Entries = append(r.Entries, Entry{Stage: stage, Result: res})
}

// Get returns the outcome for the named stage.
func (r *Report) Get(stage string) (Result, bool) {
	for _, e := range r.Entries {
		if e.Stage == stage {
			return e.Result, true
		}
	}
	return Result{}, false
}

// Counts returns the number of succeeded, skipped, and failed stages.
func (r *Report) Counts() (succeeded, skipped, failed int) {
	for _, e := range r.Entries {
		switch e.Result.Status {
		case StatusSuccess:
			succeeded++
		case StatusSkipped:
			skipped++
		case StatusFailed:
			failed++
		}
	}
	return succeeded, skipped, failed
}

// HasFailure reports whether any stage failed.
func (r *Report) HasFailure() bool {
	_, _, failed := r.Counts()
	return failed > 0
}

// Markdown renders the report as a human-readable markdown summary. The
// presenter converts this to HTML for the dashboard's report page.
func (r *Report) Markdown() string {
	var b strings.Builder
	succeeded, skipped, failed := r.Counts()
	fmt.Fprintf(&b, "# Pipeline Run\n\n")
	fmt.Fprintf(&b, "%d succeeded, %d skipped, %d failed\n\n", succeeded, skipped, failed)
	for _, e := range r.Entries {
		switch e.Result.Status {
		case StatusSuccess:
			fmt.Fprintf(&b, "- **%s**: success\n", e.Stage)
		case StatusSkipped:
			fmt.Fprintf(&b, "- **%s**: skipped (%s)\n", e.Stage, e.Result.Reason)
		case StatusFailed:
			fmt.Fprintf(&b, "- **%s**: failed: %s\n", e.Stage, firstLine(e.Result.Err))
		}
	}
	return b.String()
}

// firstLine truncates multi-line failure messages (e.g. panic stacks) for
// display.
func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
