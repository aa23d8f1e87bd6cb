// ABOUTME: Stage contract shared by all adapters: descriptor metadata and the tagged Result variant.
// ABOUTME: Adapters wrap one external collaborator each and never receive write access to the store.
package pipeline

import (
	"context"
	"fmt"
	"strings"
)

// Status classifies the outcome of one stage invocation.
type Status string

const (
	StatusSuccess Status = "success"
	StatusSkipped Status = "skipped"
	StatusFailed  Status = "failed"
)

// Result is the outcome of one stage invocation. Exactly one of Output,
// Reason, or Err is meaningful, selected by Status.
type Result struct {
	Status Status
	Output map[string]any // Success: the new/updated keys to merge
	Reason string         // Skipped: why the stage did not run
	Err    string         // Failed: actionable failure message
}

// Success builds a successful result carrying exactly the keys to merge.
func Success(output map[string]any) Result {
	return Result{Status: StatusSuccess, Output: output}
}

// Skipped builds a skipped result with the given reason.
func Skipped(reason string) Result {
	return Result{Status: StatusSkipped, Reason: reason}
}

// Failed builds a failed result. The message should name the stage and the
// offending input so the presenter can surface something actionable.
func Failed(format string, args ...any) Result {
	return Result{Status: StatusFailed, Err: fmt.Sprintf(format, args...)}
}

// SkipMissing builds the standard skip result for absent precondition keys.
func SkipMissing(missing []string) Result {
	return Skipped("missing: " + strings.Join(missing, ", "))
}

// SkipUnavailable is the skip result for a stage whose external collaborator
// is not present in the running environment.
func SkipUnavailable() Result {
	return Skipped("dependency unavailable")
}

// Descriptor is the static metadata for one stage. Built once at process
// start and never mutated.
type Descriptor struct {
	// Name identifies the stage in reports and events.
	Name string
	// RequiredKeys must all be present in the snapshot for the stage to run.
	RequiredKeys []string
	// ProducedKeys are the output keys a successful run merges. A stage may
	// only add or overwrite these keys; it never deletes keys it doesn't own.
	ProducedKeys []string
	// ConsumesFresh lists earlier stages' output keys this stage opts in to
	// reading from the partially-updated state of the current run. All other
	// reads see the original input snapshot.
	ConsumesFresh []string
	// Available reports whether the external collaborator is present. An
	// unavailable stage either skips or falls back to its documented
	// deterministic substitute; the choice is stage-specific and logged.
	Available bool
}

// Stage is the uniform adapter contract over one external collaborator.
type Stage interface {
	Descriptor() Descriptor

	// Run evaluates preconditions against the given snapshot and invokes the
	// collaborator with only the relevant extracted fields. It never panics
	// intentionally and never mutates the snapshot.
	Run(ctx context.Context, state State) Result
}
