package controller

import (
	"sync"

	"treasury-agent/internal/models"
)

// ActionLogCapacity bounds the in-memory action log.
const ActionLogCapacity = 100

// ActionLog is the bounded, newest-first record of execution attempts.
// When full, the oldest entry is dropped.
type ActionLog struct {
	mu      sync.RWMutex
	entries []models.ActionLogEntry
}

// NewActionLog creates an empty action log.
func NewActionLog() *ActionLog {
	return &ActionLog{entries: make([]models.ActionLogEntry, 0, ActionLogCapacity)}
}

// Append records an entry at the head of the log.
func (l *ActionLog) Append(entry models.ActionLogEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = append([]models.ActionLogEntry{entry}, l.entries...)
	if len(l.entries) > ActionLogCapacity {
		l.entries = l.entries[:ActionLogCapacity]
	}
}

// Recent returns up to n entries, newest first. n <= 0 returns all.
func (l *ActionLog) Recent(n int) []models.ActionLogEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if n <= 0 || n > len(l.entries) {
		n = len(l.entries)
	}
	out := make([]models.ActionLogEntry, n)
	copy(out, l.entries[:n])
	return out
}

// Len returns the number of retained entries.
func (l *ActionLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}
