package core

import (
	"maps"
	"sort"
)

// DefaultValue marks a field whose value the database assigns on insert.
type DefaultValue struct{}

// UseDefault is the value stored for fields emitted as the dialect's DEFAULT.
var UseDefault = DefaultValue{}

// IsDefault reports whether v is the UseDefault marker.
func IsDefault(v any) bool {
	_, ok := v.(DefaultValue)
	return ok
}

// Row is one committed record. A nil value is SQL NULL.
// Fields absent from Values are omitted from the INSERT entirely.
type Row struct {
	Model  string
	Values map[string]any
	// Pinned lists fields locked by a NULLS NOT DISTINCT constraint.
	// Their values are written in the INSERT even when they name a
	// nullable parent.
	Pinned map[string]bool
}

// Get returns a field value.
func (r Row) Get(field string) (any, bool) {
	v, ok := r.Values[field]
	return v, ok
}

// Clone returns a copy that shares no maps with r.
func (r Row) Clone() Row {
	return Row{
		Model:  r.Model,
		Values: maps.Clone(r.Values),
		Pinned: maps.Clone(r.Pinned),
	}
}

// Tuple returns the values of fields in order.
func (r Row) Tuple(fields []string) []any {
	out := make([]any, len(fields))
	for i, f := range fields {
		out[i] = r.Values[f]
	}
	return out
}

// RowSet holds rows grouped by model.
type RowSet map[string][]Row

// Add appends a row under its model.
func (s RowSet) Add(r Row) {
	s[r.Model] = append(s[r.Model], r)
}

// Models returns the model ids present, sorted.
func (s RowSet) Models() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Count returns the total number of rows.
func (s RowSet) Count() int {
	n := 0
	for _, rows := range s {
		n += len(rows)
	}
	return n
}
