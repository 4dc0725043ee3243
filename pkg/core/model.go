package core

import "strings"

// Field is one entry of a model's declared field list.
// It is implemented by exactly *ScalarField and *RelationField; consumers
// type-switch on it.
type Field interface {
	// FieldName returns the field's name within its model.
	FieldName() string
	field()
}

// ScalarField is a column holding a primitive value.
type ScalarField struct {
	Name string
	// ColumnName is the database column; empty means Name.
	ColumnName string
	// SQLType is the declared column type, e.g. "text", "int4", "jsonb", "text[]".
	SQLType    string
	IsRequired bool
	IsID       bool
	// IsGenerated marks computed columns the database fills itself.
	IsGenerated     bool
	HasDefaultValue bool
	// Sequence is nil when the column is not sequence-backed.
	Sequence  *Sequence
	MaxLength int
}

// FieldName returns the field name.
func (f *ScalarField) FieldName() string { return f.Name }

func (*ScalarField) field() {}

// Column returns the database column name.
func (f *ScalarField) Column() string {
	if f.ColumnName != "" {
		return f.ColumnName
	}
	return f.Name
}

// Omitted reports whether the column is left out of generated INSERTs.
func (f *ScalarField) Omitted() bool {
	return f.IsGenerated && !f.IsID
}

// RelationField links a model to its parent (non-list with from/to fields)
// or to its child collection (list, resolved via the inverse side).
type RelationField struct {
	Name string
	// RelationName pairs the two sides of one relation.
	RelationName string
	TargetModel  string
	// FromFields are scalar fields on this model, ToFields the referenced
	// fields on TargetModel. Both are empty on list and back-reference sides.
	FromFields []string
	ToFields   []string
	IsRequired bool
	IsList     bool
}

// FieldName returns the field name.
func (f *RelationField) FieldName() string { return f.Name }

func (*RelationField) field() {}

// IsParent reports whether the relation points at a parent row through
// local foreign-key columns.
func (f *RelationField) IsParent() bool {
	return !f.IsList && len(f.FromFields) > 0
}

// UniqueConstraint is a field set whose combined values must be distinct.
type UniqueConstraint struct {
	Name   string
	Fields []string
	// NullNotDistinct makes NULLs compare equal for collision purposes.
	NullNotDistinct bool
}

// Sequence is a counter backing an auto-generated identifier.
// Current is the value the next insert takes.
type Sequence struct {
	Identifier string
	Increment  int64
	Current    int64
}

// Model is a table-equivalent schema entity.
type Model struct {
	ID                string
	Schema            string
	Table             string
	Fields            []Field
	UniqueConstraints []UniqueConstraint
}

// TableName returns the database table name.
func (m *Model) TableName() string {
	if m.Table != "" {
		return m.Table
	}
	return m.ID
}

// Field returns a field by name.
func (m *Model) Field(name string) (Field, bool) {
	for _, f := range m.Fields {
		if f.FieldName() == name {
			return f, true
		}
	}
	return nil, false
}

// Scalar returns a scalar field by name.
func (m *Model) Scalar(name string) (*ScalarField, bool) {
	f, ok := m.Field(name)
	if !ok {
		return nil, false
	}
	s, ok := f.(*ScalarField)
	return s, ok
}

// Scalars returns the scalar fields in declaration order.
func (m *Model) Scalars() []*ScalarField {
	var out []*ScalarField
	for _, f := range m.Fields {
		if s, ok := f.(*ScalarField); ok {
			out = append(out, s)
		}
	}
	return out
}

// Relations returns the relation fields in declaration order.
func (m *Model) Relations() []*RelationField {
	var out []*RelationField
	for _, f := range m.Fields {
		if r, ok := f.(*RelationField); ok {
			out = append(out, r)
		}
	}
	return out
}

// IDFields returns the names of the primary-key fields.
func (m *Model) IDFields() []string {
	var out []string
	for _, s := range m.Scalars() {
		if s.IsID {
			out = append(out, s.Name)
		}
	}
	return out
}

// OwningRelation returns the parent relation whose FromFields include field.
func (m *Model) OwningRelation(field string) (*RelationField, bool) {
	for _, r := range m.Relations() {
		if !r.IsParent() {
			continue
		}
		for _, from := range r.FromFields {
			if from == field {
				return r, true
			}
		}
	}
	return nil, false
}

// String returns the qualified table name.
func (m *Model) String() string {
	if m.Schema == "" {
		return m.TableName()
	}
	return strings.Join([]string{m.Schema, m.TableName()}, ".")
}
