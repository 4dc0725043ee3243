package starlark

import (
	"fmt"

	"github.com/leapstack-labs/leapseed/internal/planner"
	"github.com/leapstack-labs/leapseed/pkg/core"
	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"
)

// FieldContextToStarlark builds the "ctx" struct passed to a generator.
// Accessible as: ctx.seed, ctx.attempt, ctx.index, ctx.model, ctx.field,
// ctx.attempt_seed and ctx.row["column"]. Fields resolved to the column
// default are left out of ctx.row.
func FieldContextToStarlark(fc planner.FieldContext) (starlark.Value, error) {
	row := starlark.NewDict(len(fc.Row))
	for k, v := range fc.Row {
		if core.IsDefault(v) {
			continue
		}
		sv, err := GoToStarlark(v)
		if err != nil {
			return nil, fmt.Errorf("row field %q: %w", k, err)
		}
		if err := row.SetKey(starlark.String(k), sv); err != nil {
			return nil, err
		}
	}
	row.Freeze()

	return starlarkstruct.FromStringDict(starlark.String("ctx"), starlark.StringDict{
		"seed":         starlark.String(fc.Seed),
		"attempt":      starlark.MakeInt(fc.Attempt),
		"index":        starlark.MakeInt(fc.Index),
		"model":        starlark.String(fc.Model),
		"field":        starlark.String(fc.Field),
		"attempt_seed": starlark.String(fc.AttemptSeed()),
		"row":          row,
	}), nil
}

// CallError represents an error raised while running a generator function.
type CallError struct {
	File     string
	Function string
	Message  string
}

func (e *CallError) Error() string {
	return fmt.Sprintf("%s: %s(): %s", e.File, e.Function, e.Message)
}

// LoadError represents an error loading a generators file.
type LoadError struct {
	File    string
	Message string
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%s: %s", e.File, e.Message)
}

// UnknownFunctionError is returned when a configured generator function is
// not defined in the generators file.
type UnknownFunctionError struct {
	File      string
	Name      string
	Available []string
}

func (e *UnknownFunctionError) Error() string {
	return fmt.Sprintf("%s: no generator function %q (available: %v)", e.File, e.Name, e.Available)
}
