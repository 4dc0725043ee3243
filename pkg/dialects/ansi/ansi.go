// Package ansi provides the base ANSI SQL dialect: double-quoted
// identifiers, standard string literals and DEFAULT, no sequence fixers.
package ansi

import "github.com/leapstack-labs/leapseed/pkg/dialect"

func init() {
	dialect.Register(ANSI)
}

// ANSI is the base ANSI SQL dialect.
var ANSI = dialect.NewDialect("ansi").Build()
