package app

import "time"

// Run tracks one CLI invocation. Its ID is stamped on log lines and on every
// history entry the run records.
type Run struct {
	ID        string
	Command   string
	StartedAt time.Time
	Status    string // "running", "success" or "error"
}

// NewRun creates a run for command with the given id.
func NewRun(id, command string, startedAt time.Time) *Run {
	return &Run{
		ID:        id,
		Command:   command,
		StartedAt: startedAt,
		Status:    "running",
	}
}

// Finish records the outcome of the run.
func (r *Run) Finish(err error) {
	if err != nil {
		r.Status = "error"
		return
	}
	r.Status = "success"
}

// Finished returns true once Finish has been called.
func (r *Run) Finished() bool {
	return r.Status != "running"
}
