package store

import (
	"sync"

	"treasury-agent/internal/models"
)

// MemoryStore is an in-memory DataStore for simulation runs and tests.
type MemoryStore struct {
	mu      sync.Mutex
	actions map[string][]models.ActionLogEntry
	ticks   map[string][]models.TickRecord
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		actions: make(map[string][]models.ActionLogEntry),
		ticks:   make(map[string][]models.TickRecord),
	}
}

// SaveAction records an action entry, newest first.
func (s *MemoryStore) SaveAction(e models.ActionLogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.actions[e.BorrowerID] = append([]models.ActionLogEntry{e}, s.actions[e.BorrowerID]...)
	return nil
}

// RecentActions returns up to limit actions, newest first.
func (s *MemoryStore) RecentActions(borrowerID string, limit int) ([]models.ActionLogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries := s.actions[borrowerID]
	if limit <= 0 || limit > len(entries) {
		limit = len(entries)
	}
	out := make([]models.ActionLogEntry, limit)
	copy(out, entries[:limit])
	return out, nil
}

// SaveTick records a tick, newest first.
func (s *MemoryStore) SaveTick(r models.TickRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ticks[r.BorrowerID] = append([]models.TickRecord{r}, s.ticks[r.BorrowerID]...)
	return nil
}

// LastTick returns the most recent tick, or nil.
func (s *MemoryStore) LastTick(borrowerID string) (*models.TickRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ticks := s.ticks[borrowerID]
	if len(ticks) == 0 {
		return nil, nil
	}
	t := ticks[0]
	return &t, nil
}

// RecentTicks returns up to limit ticks, newest first.
func (s *MemoryStore) RecentTicks(borrowerID string, limit int) ([]models.TickRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ticks := s.ticks[borrowerID]
	if limit <= 0 || limit > len(ticks) {
		limit = len(ticks)
	}
	out := make([]models.TickRecord, limit)
	copy(out, ticks[:limit])
	return out, nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error {
	return nil
}
