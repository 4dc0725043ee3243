// Package config provides the project configuration types shared by the
// CLI and library callers: the execution target, per-field value sources
// and the generation plan.
package config

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/leapseed/pkg/adapter"
	"github.com/leapstack-labs/leapseed/pkg/dialect"
)

// TargetConfig holds database target configuration.
type TargetConfig = adapter.Config

// FieldConfig configures where one field's values come from. Exactly one
// of Value, Null, Builtin or Starlark is set.
type FieldConfig struct {
	// Value is a literal stored in every row.
	Value any `koanf:"value"`
	// Null stores SQL NULL.
	Null bool `koanf:"null"`
	// Builtin names a built-in generator such as "email" or "uuid".
	Builtin string `koanf:"builtin"`
	// Starlark names a function in the generators file.
	Starlark string `koanf:"starlark"`
}

// kind returns which source the field uses, or an error when it sets none
// or several.
func (f FieldConfig) kind() (string, error) {
	var set []string
	if f.Value != nil {
		set = append(set, "value")
	}
	if f.Null {
		set = append(set, "null")
	}
	if f.Builtin != "" {
		set = append(set, "builtin")
	}
	if f.Starlark != "" {
		set = append(set, "starlark")
	}
	switch len(set) {
	case 0:
		return "", fmt.Errorf("one of value, null, builtin or starlark is required")
	case 1:
		return set[0], nil
	default:
		return "", fmt.Errorf("only one of value, null, builtin or starlark may be set (got %s)", strings.Join(set, ", "))
	}
}

// ModelConfig holds the configured sources of one model's fields.
type ModelConfig struct {
	Fields map[string]FieldConfig `koanf:"fields"`
}

// PlanStep is one Generate call of a plan.
type PlanStep struct {
	Model string `koanf:"model"`
	// Count is an exact row count. Min and Max give a range instead.
	Count int `koanf:"count"`
	Min   int `koanf:"min"`
	Max   int `koanf:"max"`
	// Connect lists target models whose committed rows relations reuse.
	// "*" connects to every committed row.
	Connect []string `koanf:"connect"`
	// Fields are per-step overrides.
	Fields map[string]FieldConfig `koanf:"fields"`
}

// ConnectAll in PlanStep.Connect reuses every committed row.
const ConnectAll = "*"

// ProjectConfig holds the generation settings of a project.
type ProjectConfig struct {
	DataModel  string                 `koanf:"datamodel"`
	Generators string                 `koanf:"generators"`
	Seed       string                 `koanf:"seed"`
	Dialect    string                 `koanf:"dialect"`
	Target     *TargetConfig          `koanf:"target"`
	Models     map[string]ModelConfig `koanf:"models"`
	Plan       []PlanStep             `koanf:"plan"`
}

// DefaultSchemaForType returns the default schema for a database type.
// It looks up the dialect in the registry and returns "" for unknown types.
func DefaultSchemaForType(dbType string) string {
	if d, ok := dialect.Get(dbType); ok {
		return d.DefaultSchema
	}
	return ""
}

// ValidateTarget checks if the target configuration is valid.
// It uses the adapter registry to determine which adapter types are available.
func ValidateTarget(t *TargetConfig) error {
	if t == nil {
		return nil
	}
	if t.Type == "" {
		return fmt.Errorf("target type is required")
	}

	// Use adapter registry as single source of truth
	if !adapter.IsRegistered(t.Type) {
		return &adapter.UnknownAdapterError{
			Type:      t.Type,
			Available: adapter.ListAdapters(),
		}
	}
	return nil
}
