// ABOUTME: Per-session state store with snapshot reads and a single-writer Apply critical section.
// ABOUTME: Overlapping runs resolve last-writer-wins: the later Apply replaces the snapshot wholesale.
package session

import (
	"sync"

	"github.com/snu-geoshm/geotwin/pipeline"
)

// Store holds one session's state. Reads hand out snapshots; writes replace
// the snapshot atomically. There is no field-level merge across overlapping
// runs: the last Apply to complete wins in its entirety, which is the
// documented conflict policy, not a conflict-free guarantee.
type Store struct {
	mu    sync.Mutex
	state pipeline.State
}

// NewStore creates a store with an empty session state.
func NewStore() *Store {
	return &Store{state: pipeline.NewState()}
}

// GetSnapshot returns a copy of the current state. Callers must not mutate
// table or mapping values in place and expect the change reflected.
func (s *Store) GetSnapshot() pipeline.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Apply atomically replaces the stored snapshot. Concurrent Apply calls for
// the same session serialize here; there are no partial or interleaved
// merges.
func (s *Store) Apply(state pipeline.State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state.Clone()
}
