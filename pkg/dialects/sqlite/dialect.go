// Package sqlite provides the SQLite SQL dialect definition.
package sqlite

import "github.com/leapstack-labs/leapseed/pkg/dialect"

func init() {
	dialect.Register(SQLite)
}

// SQLite is the SQLite dialect. VALUES lists cannot contain DEFAULT, so
// defaulted columns are left out of the INSERT.
var SQLite = dialect.NewDialect("sqlite").
	DefaultKeyword("").
	Booleans("1", "0").
	TimestampLayout("2006-01-02 15:04:05.999999").
	Build()
