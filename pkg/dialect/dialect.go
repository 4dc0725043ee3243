// Package dialect provides SQL dialect definitions used to emit INSERT,
// UPDATE and sequence-fixer statements.
//
// This package contains the public contract for dialect definitions.
// Concrete dialect implementations are registered from pkg/dialects/*/
// packages.
package dialect

import (
	"encoding/hex"
	"strings"
)

// IdentifierConfig describes identifier quoting.
type IdentifierConfig struct {
	Quote    string // Opening quote, e.g. `"` or "`"
	QuoteEnd string // Closing quote
	Escape   string // Replacement for QuoteEnd inside a name
}

// ArrayStyle selects the literal syntax for array columns.
type ArrayStyle int

const (
	// ArrayBraces renders '{a,b}' text literals (PostgreSQL).
	ArrayBraces ArrayStyle = iota
	// ArrayBrackets renders [a, b] list expressions (DuckDB).
	ArrayBrackets
	// ArrayJSON renders arrays as JSON text (MySQL, SQLite).
	ArrayJSON
)

// String returns the style name.
func (s ArrayStyle) String() string {
	switch s {
	case ArrayBraces:
		return "braces"
	case ArrayBrackets:
		return "brackets"
	case ArrayJSON:
		return "json"
	default:
		return "unknown"
	}
}

// SequenceFixer returns the statement that moves a database sequence past
// the highest inserted value of column. An empty string means the database
// tracks the value itself.
type SequenceFixer func(d *Dialect, table, column, sequence string) string

// Dialect represents a SQL dialect configuration.
type Dialect struct {
	Name        string
	Identifiers IdentifierConfig

	// DefaultSchema is the schema assumed when a model declares none.
	DefaultSchema string
	// DefaultKeyword is written for columns the database fills.
	// Empty means the column is left out of the INSERT instead.
	DefaultKeyword string
	// EmptyInsert follows the table name when no column is written.
	EmptyInsert string

	Arrays       ArrayStyle
	TrueLiteral  string
	FalseLiteral string
	// TimestampLayout formats time.Time values of timestamp columns.
	TimestampLayout string

	quoteIdentifier func(string) string
	quoteString     func(string) string
	bytesLiteral    func([]byte) string
	sequenceFixer   SequenceFixer
}

// GetName returns the dialect name.
func (d *Dialect) GetName() string {
	return d.Name
}

// QuoteIdentifier quotes an identifier using the dialect's quote characters.
func (d *Dialect) QuoteIdentifier(name string) string {
	if d.quoteIdentifier != nil {
		return d.quoteIdentifier(name)
	}
	escaped := strings.ReplaceAll(name, d.Identifiers.QuoteEnd, d.Identifiers.Escape)
	return d.Identifiers.Quote + escaped + d.Identifiers.QuoteEnd
}

// QualifiedName quotes a possibly schema-qualified table name.
func (d *Dialect) QualifiedName(schema, table string) string {
	if schema == "" {
		return d.QuoteIdentifier(table)
	}
	return d.QuoteIdentifier(schema) + "." + d.QuoteIdentifier(table)
}

// QuoteString renders s as a string literal.
func (d *Dialect) QuoteString(s string) string {
	if d.quoteString != nil {
		return d.quoteString(s)
	}
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// BytesLiteral renders b as a binary literal.
func (d *Dialect) BytesLiteral(b []byte) string {
	if d.bytesLiteral != nil {
		return d.bytesLiteral(b)
	}
	return "X'" + hex.EncodeToString(b) + "'"
}

// SequenceFix returns the fixer statement for one sequence-backed column,
// or "" when the dialect needs none.
func (d *Dialect) SequenceFix(table, column, sequence string) string {
	if d.sequenceFixer == nil {
		return ""
	}
	return d.sequenceFixer(d, table, column, sequence)
}

// Builder provides a fluent API for constructing dialects.
type Builder struct {
	dialect *Dialect
}

// NewDialect creates a new dialect builder with the given name.
func NewDialect(name string) *Builder {
	return &Builder{
		dialect: &Dialect{
			Name: name,
			Identifiers: IdentifierConfig{
				Quote:    `"`,
				QuoteEnd: `"`,
				Escape:   `""`,
			},
			DefaultKeyword:  "DEFAULT",
			EmptyInsert:     "DEFAULT VALUES",
			Arrays:          ArrayJSON,
			TrueLiteral:     "TRUE",
			FalseLiteral:    "FALSE",
			TimestampLayout: "2006-01-02 15:04:05.999999",
		},
	}
}

// Identifiers configures identifier quoting.
func (b *Builder) Identifiers(quote, quoteEnd, escape string) *Builder {
	b.dialect.Identifiers = IdentifierConfig{Quote: quote, QuoteEnd: quoteEnd, Escape: escape}
	return b
}

// IdentifierQuoter replaces the default identifier quoting.
func (b *Builder) IdentifierQuoter(fn func(string) string) *Builder {
	b.dialect.quoteIdentifier = fn
	return b
}

// StringQuoter replaces the default string literal quoting.
func (b *Builder) StringQuoter(fn func(string) string) *Builder {
	b.dialect.quoteString = fn
	return b
}

// Bytes sets how binary values are rendered.
func (b *Builder) Bytes(fn func([]byte) string) *Builder {
	b.dialect.bytesLiteral = fn
	return b
}

// DefaultSchema sets the default schema name.
func (b *Builder) DefaultSchema(schema string) *Builder {
	b.dialect.DefaultSchema = schema
	return b
}

// DefaultKeyword sets the DEFAULT marker. Empty omits defaulted columns.
func (b *Builder) DefaultKeyword(kw string) *Builder {
	b.dialect.DefaultKeyword = kw
	return b
}

// EmptyInsert sets the INSERT tail used when no column is written.
func (b *Builder) EmptyInsert(tail string) *Builder {
	b.dialect.EmptyInsert = tail
	return b
}

// Arrays sets the array literal style.
func (b *Builder) Arrays(style ArrayStyle) *Builder {
	b.dialect.Arrays = style
	return b
}

// Booleans sets the boolean literals.
func (b *Builder) Booleans(t, f string) *Builder {
	b.dialect.TrueLiteral = t
	b.dialect.FalseLiteral = f
	return b
}

// TimestampLayout sets the layout used for timestamp values.
func (b *Builder) TimestampLayout(layout string) *Builder {
	b.dialect.TimestampLayout = layout
	return b
}

// SequenceFixer sets the fixer statement builder.
func (b *Builder) SequenceFixer(fn SequenceFixer) *Builder {
	b.dialect.sequenceFixer = fn
	return b
}

// Build returns the constructed dialect.
func (b *Builder) Build() *Dialect {
	return b.dialect
}
