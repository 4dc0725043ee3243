// Package duckdb provides a DuckDB sink for generated statements.
//
// This file registers the DuckDB adapter with the adapter registry.
// Import this package with a blank identifier to register the adapter:
//
//	import _ "github.com/leapstack-labs/leapseed/pkg/adapters/duckdb"
package duckdb

import (
	"log/slog"

	"github.com/leapstack-labs/leapseed/pkg/adapter"

	// Import dialect to ensure it's registered
	_ "github.com/leapstack-labs/leapseed/pkg/dialects/duckdb"
)

func init() {
	adapter.Register("duckdb", func(logger *slog.Logger) adapter.Adapter { return New(logger) })
}
