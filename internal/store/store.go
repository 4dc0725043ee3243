// Package store accumulates the rows committed during one session.
package store

import (
	"maps"
	"slices"

	"github.com/leapstack-labs/leapseed/pkg/core"
)

// View is read-only access to committed rows, handed to generators.
type View interface {
	// Rows returns the committed rows of a model in commit order.
	Rows(model string) []core.Row
	// Len returns the number of committed rows of a model.
	Len(model string) int
}

// Checkpoint records per-model row counts for Rollback.
type Checkpoint map[string]int

// Store holds committed rows per model in commit order.
// A Store belongs to exactly one session and is not safe for concurrent use.
type Store struct {
	rows    map[string][]core.Row
	order   []string
	flushed map[string]int
}

// New creates an empty store.
func New() *Store {
	return &Store{
		rows:    make(map[string][]core.Row),
		flushed: make(map[string]int),
	}
}

// Append commits a row.
func (s *Store) Append(row core.Row) {
	if _, ok := s.rows[row.Model]; !ok {
		s.order = append(s.order, row.Model)
	}
	s.rows[row.Model] = append(s.rows[row.Model], row)
}

// Rows returns the committed rows of a model.
func (s *Store) Rows(model string) []core.Row {
	return slices.Clone(s.rows[model])
}

// Len returns the number of committed rows of a model.
func (s *Store) Len(model string) int {
	return len(s.rows[model])
}

// Models returns model ids in first-commit order.
func (s *Store) Models() []string {
	return slices.Clone(s.order)
}

// All returns every committed row grouped by model.
func (s *Store) All() core.RowSet {
	out := make(core.RowSet, len(s.rows))
	for model, rows := range s.rows {
		if len(rows) > 0 {
			out[model] = slices.Clone(rows)
		}
	}
	return out
}

// Pending returns the rows committed since the last MarkFlushed.
func (s *Store) Pending() core.RowSet {
	out := make(core.RowSet)
	for model, rows := range s.rows {
		if n := s.flushed[model]; n < len(rows) {
			out[model] = slices.Clone(rows[n:])
		}
	}
	return out
}

// MarkFlushed records every committed row as handed to a sink.
func (s *Store) MarkFlushed() {
	for model, rows := range s.rows {
		s.flushed[model] = len(rows)
	}
}

// Checkpoint captures the current row counts.
func (s *Store) Checkpoint() Checkpoint {
	cp := make(Checkpoint, len(s.rows))
	for model, rows := range s.rows {
		cp[model] = len(rows)
	}
	return cp
}

// Rollback discards rows committed after cp.
func (s *Store) Rollback(cp Checkpoint) {
	for model, rows := range s.rows {
		n := cp[model]
		if n < len(rows) {
			s.rows[model] = rows[:n]
		}
	}
	s.order = slices.DeleteFunc(s.order, func(model string) bool {
		_, kept := cp[model]
		return !kept
	})
	maps.DeleteFunc(s.rows, func(model string, _ []core.Row) bool {
		_, kept := cp[model]
		return !kept
	})
}

// Reset drops every row.
func (s *Store) Reset() {
	s.rows = make(map[string][]core.Row)
	s.order = nil
	s.flushed = make(map[string]int)
}

var _ View = (*Store)(nil)
