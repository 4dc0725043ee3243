// Package emitter turns committed rows into dialect SQL: INSERTs in
// dependency order, UPDATEs for deferred nullable foreign keys, then
// sequence fixers.
package emitter

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/leapstack-labs/leapseed/internal/dag"
	"github.com/leapstack-labs/leapseed/pkg/core"
	"github.com/leapstack-labs/leapseed/pkg/dialect"
)

// MissingIdentifierWarning reports rows whose deferred foreign keys were
// left NULL because the row has no usable identifying columns.
type MissingIdentifierWarning struct {
	Model string
	Count int
}

func (w MissingIdentifierWarning) String() string {
	return fmt.Sprintf("%s: %d row(s) have no primary key or non-null unique key; deferred foreign keys left NULL", w.Model, w.Count)
}

// Batch is the emitted plan.
type Batch struct {
	Inserts  []string
	Updates  []string
	Fixers   []string
	Warnings []MissingIdentifierWarning
}

// Statements returns INSERTs, then UPDATEs, then fixers.
func (b *Batch) Statements() []string {
	out := make([]string, 0, b.Len())
	out = append(out, b.Inserts...)
	out = append(out, b.Updates...)
	return append(out, b.Fixers...)
}

// Len returns the number of statements.
func (b *Batch) Len() int {
	return len(b.Inserts) + len(b.Updates) + len(b.Fixers)
}

// Emitter renders rows of one data model in one dialect.
type Emitter struct {
	dm      *core.DataModel
	dialect *dialect.Dialect
	order   []string
	logger  *slog.Logger
}

// New creates an emitter. It fails when required relations form a cycle
// across models.
func New(dm *core.DataModel, d *dialect.Dialect, logger *slog.Logger) (*Emitter, error) {
	if d == nil {
		return nil, dialect.ErrDialectRequired
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	order, err := dag.FromDataModel(dm).TopologicalSort()
	if err != nil {
		return nil, err
	}
	return &Emitter{dm: dm, dialect: d, order: order, logger: logger}, nil
}

// Order returns the model emission order.
func (e *Emitter) Order() []string {
	return slices.Clone(e.order)
}

// Emit renders rows. Models are visited in dependency order and rows in
// commit order.
func (e *Emitter) Emit(rows core.RowSet) (*Batch, error) {
	b := &Batch{}
	for _, id := range e.order {
		rs := rows[id]
		if len(rs) == 0 {
			continue
		}
		m, _ := e.dm.Model(id)
		table := e.dialect.QualifiedName(m.Schema, m.TableName())

		missing := 0
		for _, r := range rs {
			insert, update, ok, err := e.row(m, table, r)
			if err != nil {
				return nil, err
			}
			b.Inserts = append(b.Inserts, insert)
			switch {
			case update != "":
				b.Updates = append(b.Updates, update)
			case !ok:
				missing++
			}
		}

		if missing > 0 {
			w := MissingIdentifierWarning{Model: id, Count: missing}
			b.Warnings = append(b.Warnings, w)
			e.logger.Warn("deferred foreign keys left NULL", slog.String("model", id), slog.Int("rows", missing))
		}

		for _, f := range m.Scalars() {
			if f.Sequence == nil {
				continue
			}
			if fix := e.dialect.SequenceFix(table, f.Column(), f.Sequence.Identifier); fix != "" {
				b.Fixers = append(b.Fixers, fix)
			}
		}
	}

	e.logger.Debug("emitted statements",
		slog.Int("inserts", len(b.Inserts)),
		slog.Int("updates", len(b.Updates)),
		slog.Int("fixers", len(b.Fixers)))
	return b, nil
}

type assignment struct {
	column  string
	literal string
}

// row renders one INSERT and, when nullable parent values were deferred,
// the UPDATE that sets them. ok is false when an UPDATE was needed but the
// row has no identifier.
func (e *Emitter) row(m *core.Model, table string, r core.Row) (insert, update string, ok bool, err error) {
	var (
		columns  []string
		values   []string
		deferred []assignment
		held     = make(map[string]bool)
	)

	for _, f := range m.Scalars() {
		if f.Omitted() {
			continue
		}
		v, present := r.Values[f.Name]
		if !present {
			if !f.HasDefaultValue {
				continue
			}
			v = core.UseDefault
		}
		column := e.dialect.QuoteIdentifier(f.Column())

		if core.IsDefault(v) {
			if e.dialect.DefaultKeyword != "" {
				columns = append(columns, column)
				values = append(values, e.dialect.DefaultKeyword)
			}
			continue
		}

		lit, err := e.dialect.Literal(v, f.SQLType)
		if err != nil {
			return "", "", false, fmt.Errorf("model %s field %s: %w", m.ID, f.Name, err)
		}

		if e.deferrable(m, r, f, v) {
			held[f.Name] = true
			deferred = append(deferred, assignment{column: column, literal: lit})
			lit = "NULL"
		}
		columns = append(columns, column)
		values = append(values, lit)
	}

	if len(columns) == 0 {
		insert = fmt.Sprintf("INSERT INTO %s %s;", table, e.dialect.EmptyInsert)
	} else {
		insert = fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s);", table, strings.Join(columns, ", "), strings.Join(values, ", "))
	}

	if len(deferred) == 0 {
		return insert, "", true, nil
	}

	key, found := identifier(m, r, held)
	if !found {
		return insert, "", false, nil
	}

	sets := make([]string, len(deferred))
	for i, a := range deferred {
		sets[i] = a.column + " = " + a.literal
	}
	conds := make([]string, len(key))
	for i, name := range key {
		f, _ := m.Scalar(name)
		lit, err := e.dialect.Literal(r.Values[name], f.SQLType)
		if err != nil {
			return "", "", false, fmt.Errorf("model %s field %s: %w", m.ID, name, err)
		}
		conds[i] = e.dialect.QuoteIdentifier(f.Column()) + " = " + lit
	}
	update = fmt.Sprintf("UPDATE %s SET %s WHERE %s;", table, strings.Join(sets, ", "), strings.Join(conds, " AND "))
	return insert, update, true, nil
}

// deferrable reports whether a value belongs to a nullable parent relation
// and must be set after every INSERT has run.
func (e *Emitter) deferrable(m *core.Model, r core.Row, f *core.ScalarField, v any) bool {
	if v == nil || f.IsID || r.Pinned[f.Name] {
		return false
	}
	rel, ok := m.OwningRelation(f.Name)
	return ok && !rel.IsRequired
}

// identifier returns the fields addressing the row in an UPDATE: the id
// fields, or else the first unique constraint whose values are all known
// and non-null at insert time.
func identifier(m *core.Model, r core.Row, held map[string]bool) ([]string, bool) {
	usable := func(fields []string) bool {
		if len(fields) == 0 {
			return false
		}
		for _, name := range fields {
			v, ok := r.Values[name]
			if !ok || v == nil || core.IsDefault(v) || held[name] {
				return false
			}
			if f, ok := m.Scalar(name); !ok || f.Omitted() {
				return false
			}
		}
		return true
	}

	if ids := m.IDFields(); usable(ids) {
		return ids, true
	}
	for _, uc := range m.UniqueConstraints {
		if usable(uc.Fields) {
			return uc.Fields, true
		}
	}
	return nil, false
}
