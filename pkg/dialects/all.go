// Package dialects registers every built-in SQL dialect.
package dialects

import (
	// Register the built-in dialects.
	_ "github.com/leapstack-labs/leapseed/pkg/dialects/ansi"
	_ "github.com/leapstack-labs/leapseed/pkg/dialects/duckdb"
	_ "github.com/leapstack-labs/leapseed/pkg/dialects/mysql"
	_ "github.com/leapstack-labs/leapseed/pkg/dialects/postgres"
	_ "github.com/leapstack-labs/leapseed/pkg/dialects/sqlite"
)
