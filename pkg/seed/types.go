package seed

import (
	"github.com/leapstack-labs/leapseed/internal/emitter"
	"github.com/leapstack-labs/leapseed/internal/planner"
)

// Request and generator types shared with the planner.
type (
	Count          = planner.Count
	Overrides      = planner.Overrides
	Nested         = planner.Nested
	ConnectOptions = planner.ConnectOptions
	FieldContext   = planner.FieldContext
	Generator      = planner.Generator
	FieldSource    = planner.FieldSource
	UserModels     = planner.UserModels

	GeneratorCallbackError = planner.GeneratorCallbackError
	UnknownFieldError      = planner.UnknownFieldError

	Batch                    = emitter.Batch
	MissingIdentifierWarning = emitter.MissingIdentifierWarning
)

// Fixed requests exactly n rows.
func Fixed(n int) Count { return planner.Fixed(n) }

// Range requests between min and max rows, inclusive.
func Range(min, max int) Count { return planner.Range(min, max) }

// Static configures a literal field value.
func Static(v any) FieldSource { return planner.Static(v) }

// Generate configures a generated field value.
func Generate(g Generator) FieldSource { return planner.Generate(g) }
