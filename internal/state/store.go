// Package state records generation runs in a SQLite database.
// Each run keeps its seed, dialect, per-model row counts and the sequence
// counters it finished with, so a later run can resume numbering.
package state

import (
	"context"
	"errors"
	"time"
)

// ErrNotOpened is returned when the store is used before Open.
var ErrNotOpened = errors.New("database not opened")

// RunStatus represents the status of a run.
type RunStatus string

// Run statuses.
const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// Run is one recorded generation run.
type Run struct {
	ID         string
	Seed       string
	Dialect    string
	Status     RunStatus
	Statements int
	// Executed reports whether the statements ran against a target.
	Executed bool
	// Rows holds the committed row count per model.
	Rows map[string]int
	// Sequences holds the next value of each sequence after the run.
	Sequences   map[string]int64
	StartedAt   time.Time
	CompletedAt *time.Time
	Error       string
}

// TotalRows returns the number of rows across every model.
func (r *Run) TotalRows() int {
	n := 0
	for _, c := range r.Rows {
		n += c
	}
	return n
}

// Result is what a finished run reports.
type Result struct {
	Status     RunStatus
	Statements int
	Executed   bool
	Rows       map[string]int
	Sequences  map[string]int64
	Error      string
}

// Store persists runs.
type Store interface {
	Open(path string) error
	Close() error
	Migrate() error

	CreateRun(ctx context.Context, seed, dialect string) (*Run, error)
	CompleteRun(ctx context.Context, id string, result Result) error
	GetRun(ctx context.Context, id string) (*Run, error)
	// LatestCompletedRun returns nil without error when no run completed.
	LatestCompletedRun(ctx context.Context) (*Run, error)
	ListRuns(ctx context.Context, limit int) ([]*Run, error)
}
