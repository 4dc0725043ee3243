// Package core defines the shared language of the leapseed system.
//
// This package contains:
//   - Schema entities (DataModel, Model, ScalarField, RelationField)
//   - Unique constraints and sequences
//   - Generated rows and the value markers they carry
//
// The Golden Rule: pkg/core imports ONLY stdlib.
// All other packages depend on core, not the reverse.
package core
