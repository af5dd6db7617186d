// Package presence holds the process-wide availability map. Envelope handlers
// are the single writer; the mutex covers reads from the render path and the
// debug server.
package presence

import (
	"sync"

	"github.com/worklane/portal-realtime/internal/models"
)

type Map struct {
	mu       sync.RWMutex
	statuses map[string]models.Status
}

func NewMap() *Map {
	return &Map{statuses: make(map[string]models.Status)}
}

// Set merges a single user's status.
func (m *Map) Set(userID string, status models.Status) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statuses[userID] = status
}

// Replace swaps the whole map for a server snapshot.
func (m *Map) Replace(statuses map[string]models.Status) {
	next := make(map[string]models.Status, len(statuses))
	for id, st := range statuses {
		next[id] = st
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statuses = next
}

// ReplaceFromList swaps the map for the snapshot returned by the
// GET /users/status side channel.
func (m *Map) ReplaceFromList(statuses []models.UserStatus) {
	next := make(map[string]models.Status, len(statuses))
	for _, us := range statuses {
		next[us.UserID] = us.Status
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statuses = next
}

// Get returns a user's status, defaulting to offline for unknown users.
func (m *Map) Get(userID string) models.Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if st, ok := m.statuses[userID]; ok {
		return st
	}
	return models.StatusOffline
}

// Snapshot copies the current map.
func (m *Map) Snapshot() map[string]models.Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]models.Status, len(m.statuses))
	for id, st := range m.statuses {
		out[id] = st
	}
	return out
}
