// Package resolver repairs unique-constraint collisions in a freshly built
// row by searching alternative parent connections and regenerated values.
package resolver

import (
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sort"
	"strings"

	"github.com/leapstack-labs/leapseed/internal/tracker"
	"github.com/leapstack-labs/leapseed/pkg/core"
)

// MaxScalarAttempts bounds how often one generator is re-invoked per search.
const MaxScalarAttempts = 50

// RelationDimension is a required parent relation that may be pointed at a
// different pool row.
type RelationDimension struct {
	Field      string
	FromFields []string
	// Candidates holds the referenced values of each pool row, in pool order.
	Candidates [][]any
}

// ScalarDimension is a generated scalar that may be regenerated.
type ScalarDimension struct {
	Field string
	// Generate re-invokes the field's generator. attempt starts at 1.
	Generate func(attempt int, row map[string]any) (any, error)
}

// Request is one row awaiting constraint checks.
type Request struct {
	Model  *core.Model
	Values map[string]any
	// Seed identifies the row for diagnostics.
	Seed      string
	Relations []RelationDimension
	Scalars   []ScalarDimension
}

// Result is the repaired row.
type Result struct {
	Values map[string]any
	// Pinned are the fields of NULLS NOT DISTINCT constraints.
	Pinned map[string]bool
}

// UnresolvableUniqueConstraintError is returned when no combination of
// candidates yields an unused tuple.
type UnresolvableUniqueConstraintError struct {
	Model      string
	Constraint string
	Fields     []string
	Values     []any
	Seed       string
	Row        map[string]any
}

func (e *UnresolvableUniqueConstraintError) Error() string {
	vals := make([]string, len(e.Values))
	for i, v := range e.Values {
		vals[i] = fmt.Sprintf("%s=%v", e.Fields[i], v)
	}
	keys := slices.Sorted(maps.Keys(e.Row))
	row := make([]string, 0, len(keys))
	for _, k := range keys {
		row = append(row, fmt.Sprintf("%s=%v", k, e.Row[k]))
	}
	return fmt.Sprintf("unresolvable unique constraint %q on model %s: (%s) already used and no alternative candidate is free (seed %s, row {%s})",
		e.Constraint, e.Model, strings.Join(vals, ", "), e.Seed, strings.Join(row, ", "))
}

// Resolver checks rows against the tracker and repairs collisions.
type Resolver struct {
	tracker *tracker.Tracker
	logger  *slog.Logger
}

// New creates a resolver recording into t.
// If logger is nil, a discard logger is used.
func New(t *tracker.Tracker, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Resolver{tracker: t, logger: logger}
}

// Order returns constraints by ascending field count, ties in declaration order.
func Order(constraints []core.UniqueConstraint) []core.UniqueConstraint {
	out := slices.Clone(constraints)
	sort.SliceStable(out, func(i, j int) bool {
		return len(out[i].Fields) < len(out[j].Fields)
	})
	return out
}

// Resolve runs every unique constraint of the model against the row.
// Accepted tuples are recorded in the tracker.
func (r *Resolver) Resolve(req Request) (Result, error) {
	values := maps.Clone(req.Values)
	pinned := make(map[string]bool)
	locked := make(map[string]bool)

	lock := func(uc core.UniqueConstraint) {
		for _, f := range uc.Fields {
			locked[f] = true
			if uc.NullNotDistinct {
				pinned[f] = true
			}
		}
	}

	for _, uc := range Order(req.Model.UniqueConstraints) {
		tuple := tupleOf(values, uc.Fields)

		// The database assigns these; the final value is unknowable here.
		if slices.ContainsFunc(tuple, core.IsDefault) {
			continue
		}
		if !uc.NullNotDistinct && slices.ContainsFunc(tuple, isNull) {
			lock(uc)
			continue
		}

		key := tracker.TupleKey(tuple)
		if r.tracker.Add(req.Model.ID, uc.Name, key) {
			lock(uc)
			continue
		}

		relDims, scalarDims := r.dimensions(req, uc, locked)
		lock(uc)

		r.logger.Debug("unique collision",
			slog.String("model", req.Model.ID),
			slog.String("constraint", uc.Name),
			slog.String("seed", req.Seed),
			slog.Int("relation_dimensions", len(relDims)),
			slog.Int("scalar_dimensions", len(scalarDims)))

		s := &search{tracker: r.tracker, model: req.Model.ID, constraint: uc}
		found, ok, err := s.run(relDims, values)
		if err != nil {
			return Result{}, err
		}
		if !ok && len(scalarDims) > 0 {
			found, ok, err = s.run(append(slices.Clone(relDims), scalarDims...), values)
			if err != nil {
				return Result{}, err
			}
		}
		if !ok {
			return Result{}, &UnresolvableUniqueConstraintError{
				Model:      req.Model.ID,
				Constraint: uc.Name,
				Fields:     slices.Clone(uc.Fields),
				Values:     tuple,
				Seed:       req.Seed,
				Row:        values,
			}
		}

		values = found
		r.tracker.Add(req.Model.ID, uc.Name, tracker.TupleKey(tupleOf(values, uc.Fields)))
	}

	return Result{Values: values, Pinned: pinned}, nil
}

// dimensions returns the retry-able fields of uc that no earlier constraint locked.
func (r *Resolver) dimensions(req Request, uc core.UniqueConstraint, locked map[string]bool) ([]*dimension, []*dimension) {
	var rels, scalars []*dimension

	for _, rd := range req.Relations {
		touches := slices.ContainsFunc(rd.FromFields, func(f string) bool { return slices.Contains(uc.Fields, f) })
		if !touches || slices.ContainsFunc(rd.FromFields, func(f string) bool { return locked[f] }) || len(rd.Candidates) == 0 {
			continue
		}
		candidates := rd.Candidates
		rels = append(rels, &dimension{
			fields:   rd.FromFields,
			size:     len(candidates),
			relation: true,
			load: func(i int, _ map[string]any) ([]any, error) {
				return candidates[i], nil
			},
		})
	}

	for _, sd := range req.Scalars {
		if !slices.Contains(uc.Fields, sd.Field) || locked[sd.Field] {
			continue
		}
		generate := sd.Generate
		scalars = append(scalars, &dimension{
			fields: []string{sd.Field},
			size:   MaxScalarAttempts,
			load: func(i int, row map[string]any) ([]any, error) {
				v, err := generate(i+1, row)
				if err != nil {
					return nil, err
				}
				return []any{v}, nil
			},
		})
	}
	return rels, scalars
}

// dimension is one level of the search. Loaded candidates are memoized per
// attempt number and per values held by the levels above, so a generator
// runs at most once for each combination it can observe.
type dimension struct {
	fields   []string
	size     int
	relation bool
	load     func(i int, row map[string]any) ([]any, error)
	memo     map[memoKey][]any
}

type memoKey struct {
	held tracker.Key
	i    int
}

func (d *dimension) candidate(i int, held tracker.Key, row map[string]any) ([]any, error) {
	key := memoKey{held: held, i: i}
	if v, ok := d.memo[key]; ok {
		return v, nil
	}
	v, err := d.load(i, row)
	if err != nil {
		return nil, err
	}
	if d.memo == nil {
		d.memo = make(map[memoKey][]any)
	}
	d.memo[key] = v
	return v, nil
}

type search struct {
	tracker    *tracker.Tracker
	model      string
	constraint core.UniqueConstraint
	dims       []*dimension
	// remaining is the local candidate list of each level for this search.
	remaining [][]int
}

func (s *search) run(dims []*dimension, values map[string]any) (map[string]any, bool, error) {
	s.dims = dims
	s.remaining = make([][]int, len(dims))
	for n, d := range dims {
		s.remaining[n] = make([]int, d.size)
		for i := range s.remaining[n] {
			s.remaining[n][i] = i
		}
	}
	return s.level(0, values)
}

// level tries every remaining candidate of dims[n] on its own first. Only
// when the level is exhausted does it hold each tried candidate in turn and
// vary the deeper levels underneath it. Rejected relation candidates leave
// the level's list for the rest of the search. Every branch works on its
// own copy of the values.
func (s *search) level(n int, working map[string]any) (map[string]any, bool, error) {
	if n >= len(s.dims) {
		return nil, false, nil
	}
	d := s.dims[n]
	held := s.held(n, working)

	var tried []map[string]any
	for _, i := range slices.Clone(s.remaining[n]) {
		vals, err := d.candidate(i, held, maps.Clone(working))
		if err != nil {
			return nil, false, err
		}
		next := maps.Clone(working)
		for j, f := range d.fields {
			next[f] = vals[j]
		}

		if s.free(next) {
			return next, true, nil
		}
		if d.relation {
			s.remaining[n] = slices.DeleteFunc(s.remaining[n], func(c int) bool { return c == i })
		}
		tried = append(tried, next)
	}

	for _, next := range tried {
		found, ok, err := s.level(n+1, next)
		if err != nil || ok {
			return found, ok, err
		}
	}
	return nil, false, nil
}

// held keys the values chosen by the levels above n.
func (s *search) held(n int, working map[string]any) tracker.Key {
	var vals []any
	for _, d := range s.dims[:n] {
		vals = append(vals, tupleOf(working, d.fields)...)
	}
	return tracker.TupleKey(vals)
}

func (s *search) free(values map[string]any) bool {
	tuple := tupleOf(values, s.constraint.Fields)
	if !s.constraint.NullNotDistinct && slices.ContainsFunc(tuple, isNull) {
		return true
	}
	return !s.tracker.Has(s.model, s.constraint.Name, tracker.TupleKey(tuple))
}

func tupleOf(values map[string]any, fields []string) []any {
	out := make([]any, len(fields))
	for i, f := range fields {
		out[i] = values[f]
	}
	return out
}

func isNull(v any) bool {
	return v == nil
}
