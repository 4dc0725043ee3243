// Package loader reads data model descriptions from YAML files.
//
// A data model file lists models in declaration order:
//
//	models:
//	  - id: users
//	    fields:
//	      - {name: id, type: int4, id: true, required: true, sequence: users_id_seq}
//	      - {name: email, type: text, required: true, unique: true}
//	      - {name: posts, relation: UserPosts, target: posts, list: true}
//	  - id: posts
//	    fields:
//	      - {name: id, type: int4, id: true, sequence: {name: posts_id_seq, start: 100}}
//	      - {name: user_id, type: int4, required: true}
//	      - {name: user, relation: UserPosts, target: users, from: [user_id], to: [id], required: true}
package loader

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/leapstack-labs/leapseed/pkg/core"
	"gopkg.in/yaml.v3"
)

// DefaultDataModelFile is the file name looked up when none is configured.
const DefaultDataModelFile = "datamodel.yaml"

type dataModelYAML struct {
	Models []modelYAML `yaml:"models"`
}

type modelYAML struct {
	ID     string       `yaml:"id"`
	Schema string       `yaml:"schema"`
	Table  string       `yaml:"table"`
	Fields []fieldYAML  `yaml:"fields"`
	Unique []uniqueYAML `yaml:"unique"`
}

// fieldYAML is a scalar field, or a relation when Target is set.
type fieldYAML struct {
	Name      string        `yaml:"name"`
	Column    string        `yaml:"column"`
	Type      string        `yaml:"type"`
	ID        bool          `yaml:"id"`
	Required  bool          `yaml:"required"`
	Default   bool          `yaml:"default"`
	Generated bool          `yaml:"generated"`
	Unique    bool          `yaml:"unique"`
	MaxLength int           `yaml:"max_length"`
	Sequence  *sequenceYAML `yaml:"sequence"`

	Relation string   `yaml:"relation"`
	Target   string   `yaml:"target"`
	From     []string `yaml:"from"`
	To       []string `yaml:"to"`
	List     bool     `yaml:"list"`
}

type uniqueYAML struct {
	Name             string   `yaml:"name"`
	Fields           []string `yaml:"fields"`
	NullsNotDistinct bool     `yaml:"nulls_not_distinct"`
}

// sequenceYAML accepts a bare identifier or a mapping.
type sequenceYAML struct {
	Name      string `yaml:"name"`
	Increment int64  `yaml:"increment"`
	Start     int64  `yaml:"start"`
}

func (s *sequenceYAML) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind == yaml.ScalarNode {
		s.Name = n.Value
		return nil
	}
	type plain sequenceYAML
	return n.Decode((*plain)(s))
}

// ParseError reports an invalid data model file.
type ParseError struct {
	File    string
	Message string
}

func (e *ParseError) Error() string {
	if e.File != "" {
		return fmt.Sprintf("%s: %s", e.File, e.Message)
	}
	return e.Message
}

// LoadDataModel reads and validates the data model at path.
func LoadDataModel(path string) (*core.DataModel, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from user configuration
	if err != nil {
		return nil, fmt.Errorf("failed to read data model: %w", err)
	}
	dm, err := ParseDataModel(data)
	if err != nil {
		var perr *ParseError
		if errors.As(err, &perr) {
			perr.File = path
			return nil, perr
		}
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return dm, nil
}

// ParseDataModel decodes a data model. Unknown keys are rejected.
func ParseDataModel(data []byte) (*core.DataModel, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var raw dataModelYAML
	if err := dec.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &ParseError{Message: "data model is empty"}
		}
		return nil, &ParseError{Message: fmt.Sprintf("invalid YAML: %v", err)}
	}
	if len(raw.Models) == 0 {
		return nil, &ParseError{Message: "data model declares no models"}
	}

	models := make([]*core.Model, 0, len(raw.Models))
	for _, m := range raw.Models {
		model, err := m.build()
		if err != nil {
			return nil, err
		}
		models = append(models, model)
	}

	dm, err := core.NewDataModel(models...)
	if err != nil {
		return nil, &ParseError{Message: err.Error()}
	}
	return dm, nil
}

func (m modelYAML) build() (*core.Model, error) {
	if m.ID == "" {
		return nil, &ParseError{Message: "model without id"}
	}
	model := &core.Model{ID: m.ID, Schema: m.Schema, Table: m.Table}
	table := model.TableName()

	for _, f := range m.Fields {
		if f.Name == "" {
			return nil, &ParseError{Message: fmt.Sprintf("model %s: field without name", m.ID)}
		}
		if f.Target != "" {
			if f.Type != "" || f.Sequence != nil {
				return nil, &ParseError{Message: fmt.Sprintf("model %s: relation %s cannot declare a type or sequence", m.ID, f.Name)}
			}
			model.Fields = append(model.Fields, &core.RelationField{
				Name:         f.Name,
				RelationName: f.Relation,
				TargetModel:  f.Target,
				FromFields:   f.From,
				ToFields:     f.To,
				IsRequired:   f.Required,
				IsList:       f.List,
			})
			continue
		}

		if f.Type == "" {
			return nil, &ParseError{Message: fmt.Sprintf("model %s: field %s has no type", m.ID, f.Name)}
		}
		sf := &core.ScalarField{
			Name:            f.Name,
			ColumnName:      f.Column,
			SQLType:         f.Type,
			IsRequired:      f.Required || f.ID,
			IsID:            f.ID,
			IsGenerated:     f.Generated,
			HasDefaultValue: f.Default,
			MaxLength:       f.MaxLength,
		}
		if s := f.Sequence; s != nil {
			sf.Sequence = &core.Sequence{Identifier: s.Name, Increment: s.Increment, Current: s.Start}
			if sf.Sequence.Identifier == "" {
				sf.Sequence.Identifier = fmt.Sprintf("%s_%s_seq", table, sf.Column())
			}
			if sf.Sequence.Increment == 0 {
				sf.Sequence.Increment = 1
			}
			if sf.Sequence.Current == 0 {
				sf.Sequence.Current = 1
			}
		}
		model.Fields = append(model.Fields, sf)
		if f.Unique {
			model.UniqueConstraints = append(model.UniqueConstraints, core.UniqueConstraint{
				Name:   fmt.Sprintf("%s_%s_key", table, sf.Column()),
				Fields: []string{f.Name},
			})
		}
	}

	for _, u := range m.Unique {
		model.UniqueConstraints = append(model.UniqueConstraints, core.UniqueConstraint{
			Name:            u.Name,
			Fields:          u.Fields,
			NullNotDistinct: u.NullsNotDistinct,
		})
	}

	if ids := model.IDFields(); len(ids) > 0 && !covered(model.UniqueConstraints, ids) {
		pkey := core.UniqueConstraint{Name: table + "_pkey", Fields: ids}
		model.UniqueConstraints = append([]core.UniqueConstraint{pkey}, model.UniqueConstraints...)
	}
	return model, nil
}

// covered reports whether a constraint over exactly fields exists.
func covered(constraints []core.UniqueConstraint, fields []string) bool {
	return slices.ContainsFunc(constraints, func(uc core.UniqueConstraint) bool {
		return slices.Equal(uc.Fields, fields)
	})
}
