// Package duckdb provides the DuckDB SQL dialect definition.
package duckdb

import (
	"strings"

	"github.com/leapstack-labs/leapseed/pkg/dialect"
)

func init() {
	dialect.Register(DuckDB)
}

// DuckDB is the DuckDB dialect. Arrays are [..] list expressions; sequences
// are advanced by nextval calls, so no fixer is emitted.
var DuckDB = dialect.NewDialect("duckdb").
	DefaultSchema("main").
	Arrays(dialect.ArrayBrackets).
	Bytes(blob).
	Build()

// blob renders bytes as an escaped BLOB literal: '\xAA\x01'::BLOB.
func blob(b []byte) string {
	var sb strings.Builder
	sb.WriteByte('\'')
	for _, c := range b {
		sb.WriteString(`\x`)
		sb.WriteByte("0123456789ABCDEF"[c>>4])
		sb.WriteByte("0123456789ABCDEF"[c&0x0f])
	}
	sb.WriteString("'::BLOB")
	return sb.String()
}
