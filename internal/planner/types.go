package planner

import (
	"context"
	"fmt"

	"github.com/leapstack-labs/leapseed/internal/store"
	"github.com/leapstack-labs/leapseed/pkg/core"
	"github.com/leapstack-labs/leapseed/pkg/seeded"
)

// Count is the number of rows requested from one Generate call.
type Count struct {
	Min int
	Max int
}

// Fixed requests exactly n rows.
func Fixed(n int) Count {
	return Count{Min: n, Max: n}
}

// Range requests between min and max rows, inclusive.
func Range(min, max int) Count {
	return Count{Min: min, Max: max}
}

// resolve picks the concrete count for a call seed.
func (c Count) resolve(r seeded.Random, seed string) (int, error) {
	if c.Min < 0 || c.Max < c.Min {
		return 0, fmt.Errorf("invalid count range [%d, %d]", c.Min, c.Max)
	}
	if c.Min == c.Max {
		return c.Min, nil
	}
	return c.Min + r.Intn(seed+"#count", c.Max-c.Min+1), nil
}

// FieldContext is what a generator sees when producing one value.
type FieldContext struct {
	// Seed identifies the row being generated.
	Seed string
	// Attempt is 0 on the first call and counts up on constraint retries.
	Attempt int
	// Index is the row's position within its Generate call.
	Index int
	Model string
	Field string
	// Row holds the values resolved so far, in declaration order.
	Row map[string]any
	// Store exposes the rows committed before this one.
	Store  store.View
	Random seeded.Random
}

// AttemptSeed returns a seed unique to this field and attempt.
func (fc FieldContext) AttemptSeed() string {
	return fmt.Sprintf("%s/%s#%d", fc.Seed, fc.Field, fc.Attempt)
}

// Generator produces one field value. Generators run synchronously in
// field order. A generator used as a relation override returns a core.Row
// to connect, a Nested request to create, or nil.
type Generator func(ctx context.Context, fc FieldContext) (any, error)

// FieldSource is a configured value for one field: a static literal or a
// generator.
type FieldSource struct {
	value    any
	generate Generator
}

// Static returns a source that always yields v.
func Static(v any) FieldSource {
	return FieldSource{value: v}
}

// Generate returns a source backed by g.
func Generate(g Generator) FieldSource {
	return FieldSource{generate: g}
}

// IsGenerator reports whether the source calls a generator.
func (s FieldSource) IsGenerator() bool {
	return s.generate != nil
}

// Value returns the static value of the source.
func (s FieldSource) Value() any {
	return s.value
}

// Generator returns the generator of the source, or nil for static sources.
func (s FieldSource) Generator() Generator {
	return s.generate
}

// UserModels maps model id to field name to configured source.
type UserModels map[string]map[string]FieldSource

// Overrides are explicit per-call field values. A value is a literal,
// a Generator, a core.Row (connect), a Nested request, or nil.
type Overrides map[string]any

// Nested requests creation of related rows through a relation field.
// On a parent relation exactly one row is created and Count is ignored.
type Nested struct {
	Count     Count
	Overrides Overrides
}

// ConnectOptions supplies rows that relations connect to instead of
// creating new parents.
type ConnectOptions struct {
	// Pools holds candidate rows per target model.
	Pools map[string][]core.Row
	// Existing connects to every row committed before the call, for target
	// models without an explicit pool.
	Existing bool
}

// GeneratorCallbackError wraps an error returned by a user generator.
type GeneratorCallbackError struct {
	Model   string
	Field   string
	Seed    string
	Attempt int
	Err     error
}

func (e *GeneratorCallbackError) Error() string {
	return fmt.Sprintf("generator for %s.%s failed (seed %s, attempt %d): %v", e.Model, e.Field, e.Seed, e.Attempt, e.Err)
}

func (e *GeneratorCallbackError) Unwrap() error {
	return e.Err
}

// UnknownFieldError is returned for overrides naming no field of the model.
type UnknownFieldError struct {
	Model string
	Field string
}

func (e *UnknownFieldError) Error() string {
	return fmt.Sprintf("model %s has no field %q", e.Model, e.Field)
}

// asGenerator accepts both Generator values and bare function literals.
func asGenerator(v any) (Generator, bool) {
	switch g := v.(type) {
	case Generator:
		return g, g != nil
	case func(context.Context, FieldContext) (any, error):
		return g, g != nil
	}
	return nil, false
}
