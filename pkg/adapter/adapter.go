// Package adapter defines the contract for database sinks that execute
// generated statements.
//
// Concrete adapters live in pkg/adapters/* and register themselves from
// init(). Import them with a blank identifier to make them available to
// NewAdapter.
package adapter

import (
	"context"
	"fmt"

	"github.com/leapstack-labs/leapseed/pkg/core"
)

// Config holds connection settings for a sink.
type Config struct {
	Type     string `koanf:"type"`
	Path     string `koanf:"path"`
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	Database string `koanf:"database"`
	Username string `koanf:"user"`
	Password string `koanf:"password"`
	Schema   string `koanf:"schema"`

	// Options are driver connection options (e.g. sslmode).
	Options map[string]string `koanf:"options"`

	// Params are adapter-specific settings decoded by the adapter.
	Params map[string]any `koanf:"params"`
}

// Adapter executes statements against a live database.
type Adapter interface {
	// Connect opens the connection described by cfg.
	Connect(ctx context.Context, cfg Config) error

	// Close releases the connection.
	Close() error

	// Exec runs a single statement.
	Exec(ctx context.Context, sql string) error

	// RunStatements runs stmts in order inside one transaction. Nothing is
	// committed when any statement fails.
	RunStatements(ctx context.Context, stmts []string) error

	// Sequences reads the next value each sequence would hand out, keyed by
	// sequence identifier. Sequences the database has not created yet are
	// left out of the result.
	Sequences(ctx context.Context, cols []core.SequenceColumn) (map[string]int64, error)

	// DialectName returns the dialect used to render statements for this database.
	DialectName() string
}

// StatementError reports the statement that aborted a RunStatements call.
type StatementError struct {
	Index     int
	Statement string
	Err       error
}

func (e *StatementError) Error() string {
	return fmt.Sprintf("statement %d failed: %v\n  %s", e.Index+1, e.Err, abbreviate(e.Statement, 200))
}

func (e *StatementError) Unwrap() error {
	return e.Err
}

func abbreviate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
