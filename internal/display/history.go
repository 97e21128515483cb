package display

import "time"

// MaxHistoryEntries is the hard cap on retained selections. Recording a
// selection beyond the cap evicts the oldest entries first.
const MaxHistoryEntries = 100

// HistoryEntry is one past selection.
type HistoryEntry struct {
	ID        string    // image id
	Name      string    // image display name
	Timestamp time.Time // when the selection was made (UTC)
	Weather   string
	TimeOfDay string
	Activity  string
	RunID     string // identifies the CLI run that made the selection
}

// NewHistoryEntry builds a history entry for a selected record.
func NewHistoryEntry(r Record, at time.Time, runID string) HistoryEntry {
	return HistoryEntry{
		ID:        r.ID,
		Name:      r.Name,
		Timestamp: at.UTC(),
		Weather:   r.Weather,
		TimeOfDay: r.TimeOfDay,
		Activity:  r.Activity,
		RunID:     runID,
	}
}

// HistoryStore is the append-only, size-bounded log of past selections.
// Implementations must treat missing or corrupt persisted state as an empty
// history rather than failing.
type HistoryStore interface {
	// Record appends an entry and truncates the log to the most recent
	// MaxHistoryEntries entries.
	Record(entry HistoryEntry) error

	// Entries returns all retained entries, oldest first.
	Entries() ([]HistoryEntry, error)

	// RecentIDs returns the ids and names of entries selected after since.
	RecentIDs(since time.Time) (map[string]bool, error)

	// Close releases any resources held by the store.
	Close() error
}

// RecentKeys collects the ids and names of entries newer than since.
// Store implementations that keep entries in memory share this.
func RecentKeys(entries []HistoryEntry, since time.Time) map[string]bool {
	recent := make(map[string]bool)
	for _, e := range entries {
		if !e.Timestamp.After(since) {
			continue
		}
		if e.ID != "" {
			recent[e.ID] = true
		}
		if e.Name != "" {
			recent[e.Name] = true
		}
	}
	return recent
}

// TruncateHistory keeps the most recent MaxHistoryEntries entries, preserving order.
func TruncateHistory(entries []HistoryEntry) []HistoryEntry {
	if len(entries) <= MaxHistoryEntries {
		return entries
	}
	return append([]HistoryEntry(nil), entries[len(entries)-MaxHistoryEntries:]...)
}
