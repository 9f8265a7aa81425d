// Package lockmap provides one mutex per key, created on demand and dropped
// once nobody holds or waits for it.
package lockmap

import (
	"sync"

	"github.com/google/uuid"
)

type entry struct {
	mu   sync.Mutex
	refs int
}

// Map hands out per-key locks.
type Map struct {
	mu      sync.Mutex
	entries map[uuid.UUID]*entry
}

// New returns an empty Map.
func New() *Map {
	return &Map{entries: make(map[uuid.UUID]*entry)}
}

// Lock blocks until key is held and returns the matching unlock.
func (m *Map) Lock(key uuid.UUID) (unlock func()) {
	m.mu.Lock()
	e, ok := m.entries[key]
	if !ok {
		e = &entry{}
		m.entries[key] = e
	}
	e.refs++
	m.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		m.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(m.entries, key)
		}
		m.mu.Unlock()
	}
}

// Len reports how many keys currently have holders or waiters.
func (m *Map) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
