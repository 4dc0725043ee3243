package config

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"github.com/leapstack-labs/leapseed/internal/fake"
	"github.com/leapstack-labs/leapseed/internal/planner"
	"github.com/leapstack-labs/leapseed/internal/starlark"
	"github.com/leapstack-labs/leapseed/pkg/core"
	"github.com/leapstack-labs/leapseed/pkg/seeded"
)

// FieldError reports an invalid field source.
type FieldError struct {
	Model string
	Field string
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("models.%s.fields.%s: %v", e.Model, e.Field, e.Err)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

// Resolver turns configured field sources into planner sources.
type Resolver struct {
	dm      *core.DataModel
	program *starlark.Program
	fake    *fake.Generator
}

// NewResolver creates a Resolver. program may be nil when no generators
// file is configured.
func NewResolver(dm *core.DataModel, program *starlark.Program, random seeded.Random) *Resolver {
	return &Resolver{dm: dm, program: program, fake: fake.New(random)}
}

// UserModels resolves every configured model.
func (r *Resolver) UserModels(models map[string]ModelConfig) (planner.UserModels, error) {
	out := make(planner.UserModels, len(models))
	for _, name := range slices.Sorted(maps.Keys(models)) {
		m, ok := r.dm.Model(name)
		if !ok {
			return nil, fmt.Errorf("models.%s: unknown model", name)
		}
		fields := models[name].Fields
		sources := make(map[string]planner.FieldSource, len(fields))
		for _, field := range slices.Sorted(maps.Keys(fields)) {
			src, err := r.source(m, field, fields[field])
			if err != nil {
				return nil, err
			}
			sources[field] = src
		}
		out[name] = sources
	}
	return out, nil
}

// Overrides resolves the per-step field overrides of a plan step.
func (r *Resolver) Overrides(step PlanStep) (planner.Overrides, error) {
	m, ok := r.dm.Model(step.Model)
	if !ok {
		return nil, fmt.Errorf("plan: unknown model %q", step.Model)
	}
	out := make(planner.Overrides, len(step.Fields))
	for _, field := range slices.Sorted(maps.Keys(step.Fields)) {
		src, err := r.source(m, field, step.Fields[field])
		if err != nil {
			return nil, err
		}
		if src.IsGenerator() {
			out[field] = src.Generator()
		} else {
			out[field] = src.Value()
		}
	}
	return out, nil
}

func (r *Resolver) source(m *core.Model, field string, fc FieldConfig) (planner.FieldSource, error) {
	fail := func(err error) (planner.FieldSource, error) {
		return planner.FieldSource{}, &FieldError{Model: m.ID, Field: field, Err: err}
	}
	if _, ok := m.Scalar(field); !ok {
		return fail(fmt.Errorf("model %s has no scalar field %q", m.ID, field))
	}
	kind, err := fc.kind()
	if err != nil {
		return fail(err)
	}

	switch kind {
	case "null":
		return planner.Static(nil), nil
	case "value":
		return planner.Static(normalize(fc.Value)), nil
	case "builtin":
		fn, err := r.fake.Builtin(fc.Builtin)
		if err != nil {
			return fail(err)
		}
		return planner.Generate(func(_ context.Context, fc planner.FieldContext) (any, error) {
			return fn(fc.AttemptSeed()), nil
		}), nil
	default:
		if r.program == nil {
			return fail(fmt.Errorf("starlark generator %q needs a generators file", fc.Starlark))
		}
		g, err := r.program.Generator(fc.Starlark)
		if err != nil {
			return fail(err)
		}
		return planner.Generate(g), nil
	}
}

// normalize widens the integer types YAML decoding produces, so
// configured values compare equal to generated ones.
func normalize(v any) any {
	switch n := v.(type) {
	case int:
		return int64(n)
	case []any:
		out := make([]any, len(n))
		for i, e := range n {
			out[i] = normalize(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(n))
		for k, e := range n {
			out[k] = normalize(e)
		}
		return out
	}
	return v
}

// RowCount returns the row count requested by a step. A step without
// count, min or max creates one row.
func (s PlanStep) RowCount() (planner.Count, error) {
	switch {
	case s.Count != 0 && (s.Min != 0 || s.Max != 0):
		return planner.Count{}, fmt.Errorf("plan step %s: count cannot be combined with min/max", s.Model)
	case s.Count < 0:
		return planner.Count{}, fmt.Errorf("plan step %s: count must not be negative", s.Model)
	case s.Count > 0:
		return planner.Fixed(s.Count), nil
	case s.Max < s.Min:
		return planner.Count{}, fmt.Errorf("plan step %s: max %d is less than min %d", s.Model, s.Max, s.Min)
	case s.Max == 0:
		return planner.Fixed(1), nil
	}
	return planner.Range(s.Min, s.Max), nil
}
