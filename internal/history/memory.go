package history

import (
	"sync"
	"time"

	"github.com/aliceagent/alice-display/internal/display"
)

// MemoryStore is an in-memory implementation of display.HistoryStore.
// Nothing survives the process, making it useful for dry runs and tests.
// This implementation is safe for concurrent use.
type MemoryStore struct {
	entries []display.HistoryEntry
	mu      sync.RWMutex
}

// NewMemoryStore creates an empty in-memory history.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Record appends entry and evicts the oldest entries beyond the cap.
func (m *MemoryStore) Record(entry display.HistoryEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries = display.TruncateHistory(append(m.entries, entry))
	return nil
}

// Entries returns a copy of the retained entries, oldest first.
func (m *MemoryStore) Entries() ([]display.HistoryEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return append([]display.HistoryEntry(nil), m.entries...), nil
}

// RecentIDs returns the ids and names recorded after since.
func (m *MemoryStore) RecentIDs(since time.Time) (map[string]bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return display.RecentKeys(m.entries, since), nil
}

// Close is a no-op.
func (m *MemoryStore) Close() error { return nil }
