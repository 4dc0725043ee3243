package config

import "github.com/leapstack-labs/leapseed/pkg/adapter"

// Default configuration values.
const (
	DefaultDataModelFile  = "datamodel.yaml"
	DefaultGeneratorsFile = "generators.star"
	DefaultDialect        = "postgres"
)

// ApplyTargetDefaults replaces a type alias with its registered name and
// applies the defaults of that type.
func ApplyTargetDefaults(t *TargetConfig) {
	if t == nil {
		return
	}

	if name, ok := adapter.Canonical(t.Type); ok {
		t.Type = name
	}

	// Apply default schema based on type
	if t.Schema == "" {
		t.Schema = DefaultSchemaForType(t.Type)
	}

	// Apply type-specific defaults
	switch t.Type {
	case "postgres":
		if t.Port == 0 {
			t.Port = 5432
		}
	case "mysql":
		if t.Port == 0 {
			t.Port = 3306
		}
	}
}
