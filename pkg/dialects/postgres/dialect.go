// Package postgres provides the PostgreSQL SQL dialect definition.
// This package is pure Go with no database driver dependencies.
package postgres

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/leapstack-labs/leapseed/pkg/dialect"
	"github.com/lib/pq"
)

func init() {
	dialect.Register(Postgres)
}

// Postgres is the PostgreSQL dialect. Arrays use '{...}' literals and
// every sequence-backed column gets a setval fixer.
var Postgres = dialect.NewDialect("postgres").
	DefaultSchema("public").
	IdentifierQuoter(pq.QuoteIdentifier).
	StringQuoter(quoteLiteral).
	Bytes(func(b []byte) string { return `'\x` + hex.EncodeToString(b) + `'` }).
	Arrays(dialect.ArrayBraces).
	TimestampLayout("2006-01-02 15:04:05.999999Z07:00").
	SequenceFixer(setval).
	Build()

// quoteLiteral drops the separating space pq adds before E'' literals.
func quoteLiteral(s string) string {
	return strings.TrimLeft(pq.QuoteLiteral(s), " ")
}

// setval moves the sequence to one past the highest value in the column,
// or to 1 when the table is empty.
func setval(d *dialect.Dialect, table, column, sequence string) string {
	return fmt.Sprintf("SELECT setval(%s, COALESCE((SELECT MAX(%s) FROM %s), 0) + 1, false);",
		quoteLiteral(sequence), d.QuoteIdentifier(column), table)
}
