package store

import (
	"context"
	"sync"

	"shopbot/internal/domain"
)

// MemoryLog is an in-process append-only message log. Appends are atomic per
// entry so concurrent pipelines can share one instance without extra locking
// on their side.
type MemoryLog struct {
	mu      sync.Mutex
	entries []domain.LogEntry
}

func NewMemoryLog() *MemoryLog {
	return &MemoryLog{}
}

func (m *MemoryLog) Append(_ context.Context, e domain.LogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
	return nil
}

// Entries returns a snapshot of the log in append order.
func (m *MemoryLog) Entries() []domain.LogEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.LogEntry, len(m.entries))
	copy(out, m.entries)
	return out
}
