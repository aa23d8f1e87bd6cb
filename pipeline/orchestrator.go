// ABOUTME: Pipeline orchestrator running the fixed stage order against one session snapshot.
// ABOUTME: Merges per-stage output copy-on-write and aggregates outcomes; it never returns an error.
package pipeline

import (
	"context"
	"runtime/debug"
	"time"
)

// EventType identifies the kind of stage lifecycle event.
type EventType string

const (
	EventStageStarted   EventType = "stage.started"
	EventStageCompleted EventType = "stage.completed"
	EventStageSkipped   EventType = "stage.skipped"
	EventStageFailed    EventType = "stage.failed"
)

// Event is emitted once per stage transition during a run, for live
// dashboard updates.
type Event struct {
	Type      EventType
	Stage     string
	Detail    string // skip reason or failure message, empty otherwise
	Timestamp time.Time
}

// Orchestrator runs a fixed-order stage sequence. Failure in one stage never
// aborts the run: each outcome is captured in the report and the next stage
// still executes.
type Orchestrator struct {
	stages  []Stage
	eventFn func(Event)
}

// NewOrchestrator creates an orchestrator over the given stages, executed in
// the order supplied.
func NewOrchestrator(stages ...Stage) *Orchestrator {
	return &Orchestrator{stages: stages}
}

// SetEventHandler sets an optional callback invoked once per stage event.
func (o *Orchestrator) SetEventHandler(fn func(Event)) {
	o.eventFn = fn
}

// Stages returns the descriptors of the configured stages in run order.
func (o *Orchestrator) Stages() []Descriptor {
	out := make([]Descriptor, 0, len(o.stages))
	for _, st := range o.stages {
		out = append(out, st.Descriptor())
	}
	return out
}

// Run executes every stage against the input snapshot and returns the
// updated snapshot plus the full report. The input is never mutated; the
// returned state differs from it only by keys the stages declared (plus the
// "error" key on failure, last failure wins). Precondition checks read the
// original snapshot so stage eligibility is order-independent, except for
// keys a stage explicitly consumes fresh.
func (o *Orchestrator) Run(ctx context.Context, input State) (State, *Report) {
	next := input.Clone()
	report := NewReport()

	for _, st := range o.stages {
		desc := st.Descriptor()

		// The stage sees the original snapshot, overlaid with any fresh
		// output keys it declared a dependency on.
		view := input.Clone()
		for _, k := range desc.ConsumesFresh {
			if v, ok := next[k]; ok {
				view[k] = v
			}
		}

		o.emit(Event{Type: EventStageStarted, Stage: desc.Name})
		res := safeRun(ctx, st, view)

		switch res.Status {
		case StatusSuccess:
			next = next.Merge(res.Output)
			o.emit(Event{Type: EventStageCompleted, Stage: desc.Name})
		case StatusSkipped:
			o.emit(Event{Type: EventStageSkipped, Stage: desc.Name, Detail: res.Reason})
		case StatusFailed:
			next = next.Merge(map[string]any{KeyError: res.Err})
			o.emit(Event{Type: EventStageFailed, Stage: desc.Name, Detail: res.Err})
		}

		report.Append(desc.Name, res)
	}

	report.CompletedAt = time.Now()
	return next, report
}

// safeRun invokes the stage with panic recovery so a misbehaving collaborator
// surfaces as a Failed outcome instead of crashing the run.
func safeRun(ctx context.Context, st Stage, view State) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = Failed("stage %q panicked: %v\n%s", st.Descriptor().Name, r, debug.Stack())
		}
	}()
	res = st.Run(ctx, view)
	if res.Status == StatusSuccess && res.Output == nil {
		res = Failed("stage %q returned success with no output", st.Descriptor().Name)
	}
	return res
}

// emit sends an event to the configured handler, stamping the current time.
func (o *Orchestrator) emit(evt Event) {
	if o.eventFn == nil {
		return
	}
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now()
	}
	o.eventFn(evt)
}
