package testutil

import (
	"github.com/aliceagent/alice-display/internal/display"
	"github.com/aliceagent/alice-display/internal/history"
)

// NewTestHistory creates a new in-memory history store for testing.
func NewTestHistory() display.HistoryStore {
	return history.NewMemoryStore()
}
