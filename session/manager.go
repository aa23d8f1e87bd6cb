// ABOUTME: Session registry keyed by ULID, one independent Store per browser session.
// ABOUTME: Evicts idle sessions after a TTL so abandoned uploads don't accumulate.
package session

import (
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Session pairs an ID with its state store and bookkeeping timestamps.
type Session struct {
	ID        string
	Store     *Store
	CreatedAt time.Time
	LastSeen  time.Time
}

// Manager owns all live sessions. Sessions are fully independent: no key
// ever leaks between stores.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
	ttl      time.Duration
}

// NewManager creates a manager that evicts sessions idle longer than ttl.
// A zero ttl disables eviction.
func NewManager(ttl time.Duration) *Manager {
	return &Manager{sessions: make(map[string]*Session), ttl: ttl}
}

// NewSessionID generates a fresh ULID session identifier.
func NewSessionID() string {
	return ulid.Make().String()
}

// Get returns the session for id, creating it if absent, and marks it seen.
func (m *Manager) Get(id string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[id]
	if !ok {
		now := time.Now()
		sess = &Session{ID: id, Store: NewStore(), CreatedAt: now}
		m.sessions[id] = sess
	}
	sess.LastSeen = time.Now()
	return sess
}

// Lookup returns the session for id without creating one.
func (m *Manager) Lookup(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[id]
	if ok {
		sess.LastSeen = time.Now()
	}
	return sess, ok
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Evict removes sessions idle longer than the configured TTL and returns
// the removed session IDs.
func (m *Manager) Evict() []string {
	if m.ttl <= 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().Add(-m.ttl)
	var removed []string
	for id, sess := range m.sessions {
		if sess.LastSeen.Before(cutoff) {
			delete(m.sessions, id)
			removed = append(removed, id)
		}
	}
	return removed
}
