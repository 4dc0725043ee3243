package core

import (
	"errors"
	"fmt"
	"slices"
)

// DataModel is the read-only schema description a session generates for.
type DataModel struct {
	models map[string]*Model
	order  []string
}

// NewDataModel builds and validates a DataModel.
func NewDataModel(models ...*Model) (*DataModel, error) {
	dm := &DataModel{models: make(map[string]*Model, len(models))}
	for _, m := range models {
		if m == nil || m.ID == "" {
			return nil, fmt.Errorf("model id is required")
		}
		if _, exists := dm.models[m.ID]; exists {
			return nil, fmt.Errorf("duplicate model %q", m.ID)
		}
		dm.models[m.ID] = m
		dm.order = append(dm.order, m.ID)
	}
	if err := dm.Validate(); err != nil {
		return nil, err
	}
	return dm, nil
}

// Model returns a model by id.
func (dm *DataModel) Model(id string) (*Model, bool) {
	m, ok := dm.models[id]
	return m, ok
}

// Models returns all models in declaration order.
func (dm *DataModel) Models() []*Model {
	out := make([]*Model, 0, len(dm.order))
	for _, id := range dm.order {
		out = append(out, dm.models[id])
	}
	return out
}

// SequenceColumn ties a sequence to the column it backs.
type SequenceColumn struct {
	Model    *Model
	Field    *ScalarField
	Sequence Sequence
}

// SequenceColumns returns every sequence-backed column in declaration order.
func (dm *DataModel) SequenceColumns() []SequenceColumn {
	var out []SequenceColumn
	for _, m := range dm.Models() {
		for _, f := range m.Scalars() {
			if f.Sequence != nil {
				out = append(out, SequenceColumn{Model: m, Field: f, Sequence: *f.Sequence})
			}
		}
	}
	return out
}

// Sequences returns the initial state of every distinct sequence.
func (dm *DataModel) Sequences() []Sequence {
	seen := make(map[string]bool)
	var out []Sequence
	for _, sc := range dm.SequenceColumns() {
		if seen[sc.Sequence.Identifier] {
			continue
		}
		seen[sc.Sequence.Identifier] = true
		out = append(out, sc.Sequence)
	}
	return out
}

// Validate checks the structural invariants of every model.
func (dm *DataModel) Validate() error {
	var errs []error
	for _, m := range dm.Models() {
		if err := dm.validateModel(m); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (dm *DataModel) validateModel(m *Model) error {
	var errs []error
	names := make(map[string]bool, len(m.Fields))
	for _, f := range m.Fields {
		if names[f.FieldName()] {
			errs = append(errs, fmt.Errorf("model %s: duplicate field %q", m.ID, f.FieldName()))
		}
		names[f.FieldName()] = true
	}

	for _, f := range m.Fields {
		switch f := f.(type) {
		case *ScalarField:
			if f.Sequence != nil && f.Sequence.Increment == 0 {
				errs = append(errs, fmt.Errorf("model %s: sequence %q on %s has zero increment", m.ID, f.Sequence.Identifier, f.Name))
			}
		case *RelationField:
			errs = append(errs, dm.validateRelation(m, f)...)
		}
	}

	for _, uc := range m.UniqueConstraints {
		if len(uc.Fields) == 0 {
			errs = append(errs, fmt.Errorf("model %s: unique constraint %q has no fields", m.ID, uc.Name))
		}
		for _, name := range uc.Fields {
			if _, ok := m.Scalar(name); !ok {
				errs = append(errs, fmt.Errorf("model %s: unique constraint %q references unknown scalar field %q", m.ID, uc.Name, name))
			}
		}
	}
	return errors.Join(errs...)
}

func (dm *DataModel) validateRelation(m *Model, f *RelationField) []error {
	var errs []error
	target, ok := dm.models[f.TargetModel]
	if !ok {
		return []error{fmt.Errorf("model %s: relation %s targets unknown model %q", m.ID, f.Name, f.TargetModel)}
	}
	if len(f.FromFields) != len(f.ToFields) {
		errs = append(errs, fmt.Errorf("model %s: relation %s has %d from fields and %d to fields", m.ID, f.Name, len(f.FromFields), len(f.ToFields)))
	}
	if f.IsList && len(f.FromFields) > 0 {
		errs = append(errs, fmt.Errorf("model %s: list relation %s must not carry from/to fields", m.ID, f.Name))
	}
	for _, name := range f.FromFields {
		if _, ok := m.Scalar(name); !ok {
			errs = append(errs, fmt.Errorf("model %s: relation %s references unknown field %q", m.ID, f.Name, name))
		}
	}
	for _, name := range f.ToFields {
		if _, ok := target.Scalar(name); !ok {
			errs = append(errs, fmt.Errorf("model %s: relation %s references unknown field %s.%s", m.ID, f.Name, target.ID, name))
		}
	}
	return errs
}

// Inverse returns the parent-side relation on the target model that pairs
// with the list relation f.
func (dm *DataModel) Inverse(owner *Model, f *RelationField) (*RelationField, bool) {
	target, ok := dm.models[f.TargetModel]
	if !ok {
		return nil, false
	}
	for _, r := range target.Relations() {
		if r.RelationName == f.RelationName && r.TargetModel == owner.ID && r.IsParent() {
			return r, true
		}
	}
	return nil, false
}

// Referenced reports whether a foreign key of any model points at the
// field of the model.
func (dm *DataModel) Referenced(model, field string) bool {
	for _, m := range dm.Models() {
		for _, r := range m.Relations() {
			if r.TargetModel == model && r.IsParent() && slices.Contains(r.ToFields, field) {
				return true
			}
		}
	}
	return false
}
