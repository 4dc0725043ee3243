// Package sqlite provides a SQLite sink for generated statements, backed by
// the pure-Go modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/Masterminds/squirrel"
	"github.com/leapstack-labs/leapseed/pkg/adapter"
	"github.com/leapstack-labs/leapseed/pkg/core"
	"github.com/leapstack-labs/leapseed/pkg/dialects/sqlite"

	_ "modernc.org/sqlite" // sqlite driver
)

// Adapter implements the adapter.Adapter interface for SQLite.
type Adapter struct {
	adapter.BaseSQLAdapter
	qb squirrel.StatementBuilderType
}

// New creates a new SQLite adapter instance.
// If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Adapter{
		BaseSQLAdapter: adapter.BaseSQLAdapter{Logger: logger},
		qb:             squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
	}
}

// DialectName returns the SQL dialect for this adapter.
func (a *Adapter) DialectName() string {
	return "sqlite"
}

// Connect opens the database file at cfg.Path, or an in-memory database
// when the path is empty or ":memory:". Foreign keys are enforced unless
// Options["foreign_keys"] is "off".
func (a *Adapter) Connect(ctx context.Context, cfg adapter.Config) error {
	path := cfg.Path
	if path == "" {
		path = ":memory:"
	}

	a.Logger.Debug("opening sqlite database", slog.String("path", path))

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// Every pooled connection to ":memory:" would see its own database.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping sqlite: %w", err)
	}

	if cfg.Options["foreign_keys"] != "off" {
		if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
			_ = db.Close()
			return fmt.Errorf("failed to enable foreign keys: %w", err)
		}
	}

	a.DB = db
	a.Cfg = cfg
	return nil
}

// Sequences reads sqlite_sequence for AUTOINCREMENT tables and falls back to
// MAX(column) + 1 for plain rowid tables. Tables that do not exist yet are
// skipped.
func (a *Adapter) Sequences(ctx context.Context, cols []core.SequenceColumn) (map[string]int64, error) {
	out := make(map[string]int64)
	for _, sc := range cols {
		id := sc.Sequence.Identifier
		if _, done := out[id]; done {
			continue
		}
		table := sc.Model.TableName()

		exists, err := a.tableExists(ctx, table)
		if err != nil {
			return nil, err
		}
		if !exists {
			continue
		}

		var seq int64
		found := false
		hasSeq, err := a.tableExists(ctx, "sqlite_sequence")
		if err != nil {
			return nil, err
		}
		if hasSeq {
			q := a.qb.Select("seq").From("sqlite_sequence").Where(squirrel.Eq{"name": table})
			if found, err = a.QueryRow(ctx, q, &seq); err != nil {
				return nil, fmt.Errorf("failed to read sequence of %s: %w", table, err)
			}
		}
		if found {
			out[id] = seq + 1
			continue
		}

		column := sqlite.SQLite.QuoteIdentifier(sc.Field.Column())
		q := a.qb.Select(fmt.Sprintf("COALESCE(MAX(%s), 0) + 1", column)).From(sqlite.SQLite.QuoteIdentifier(table))
		var next int64
		if _, err := a.QueryRow(ctx, q, &next); err != nil {
			return nil, fmt.Errorf("failed to read max %s of %s: %w", sc.Field.Column(), table, err)
		}
		out[id] = next
	}
	return out, nil
}

func (a *Adapter) tableExists(ctx context.Context, table string) (bool, error) {
	q := a.qb.Select("1").From("sqlite_master").Where(squirrel.Eq{"type": "table", "name": table})
	var one int
	found, err := a.QueryRow(ctx, q, &one)
	if err != nil {
		return false, fmt.Errorf("failed to look up table %s: %w", table, err)
	}
	return found, nil
}

// Ensure Adapter implements adapter.Adapter interface
var _ adapter.Adapter = (*Adapter)(nil)
