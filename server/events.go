// ABOUTME: Per-session SSE event fanout with history replay for late subscribers.
// ABOUTME: Pipeline stage events are JSON-encoded and streamed to every connected dashboard tab.
package server

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/snu-geoshm/geotwin/pipeline"
)

// SSEEvent is a server-sent event ready for formatting and transmission.
type SSEEvent struct {
	Event string // event type (e.g. "stage.completed", "run.completed")
	Data  string // JSON-encoded event data
}

// Format renders the event per the SSE spec: "event: <type>\ndata: <data>\n\n".
func (e SSEEvent) Format() string {
	return fmt.Sprintf("event: %s\ndata: %s\n\n", e.Event, e.Data)
}

// stageEventToSSE converts a pipeline stage event into an SSEEvent.
func stageEventToSSE(evt pipeline.Event) SSEEvent {
	data := map[string]any{
		"stage":     evt.Stage,
		"timestamp": evt.Timestamp.Format(time.RFC3339),
	}
	if evt.Detail != "" {
		data["detail"] = evt.Detail
	}
	jsonData, err := json.Marshal(data)
	if err != nil {
		jsonData = []byte(`{"error":"failed to marshal event"}`)
	}
	return SSEEvent{Event: string(evt.Type), Data: string(jsonData)}
}

// runEvent builds a run-level lifecycle SSEEvent (run.started, run.completed).
func runEvent(eventType, runID string, extra map[string]any) SSEEvent {
	data := map[string]any{
		"run_id":    runID,
		"timestamp": time.Now().Format(time.RFC3339),
	}
	for k, v := range extra {
		data[k] = v
	}
	jsonData, err := json.Marshal(data)
	if err != nil {
		jsonData = []byte(`{"error":"failed to marshal event"}`)
	}
	return SSEEvent{Event: eventType, Data: string(jsonData)}
}

// eventFanout distributes events for one session to all subscribers and
// keeps a bounded history so a dashboard tab opened mid-run sees earlier
// stage transitions.
type eventFanout struct {
	mu          sync.Mutex
	history     []SSEEvent
	subscribers map[int]chan SSEEvent
	nextID      int
}

const fanoutHistoryLimit = 200

func newEventFanout() *eventFanout {
	return &eventFanout{subscribers: make(map[int]chan SSEEvent)}
}

// Publish appends to history and sends to every subscriber, dropping the
// event for subscribers whose channel is full rather than blocking the run.
func (f *eventFanout) Publish(evt SSEEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.history = append(f.history, evt)
	if len(f.history) > fanoutHistoryLimit {
		f.history = f.history[len(f.history)-fanoutHistoryLimit:]
	}

	for _, ch := range f.subscribers {
		select {
		case ch <- evt:
		default:
		}
	}
}

// SubscribeWithHistory returns the history snapshot, a channel of future
// events, and an unsubscribe function.
func (f *eventFanout) SubscribeWithHistory() ([]SSEEvent, <-chan SSEEvent, func()) {
	f.mu.Lock()
	defer f.mu.Unlock()

	history := make([]SSEEvent, len(f.history))
	copy(history, f.history)

	id := f.nextID
	f.nextID++
	ch := make(chan SSEEvent, 64)
	f.subscribers[id] = ch

	unsubscribe := func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.subscribers, id)
	}
	return history, ch, unsubscribe
}

// HistorySnapshot returns a copy of the buffered events.
func (f *eventFanout) HistorySnapshot() []SSEEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]SSEEvent, len(f.history))
	copy(out, f.history)
	return out
}
