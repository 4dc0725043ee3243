// Package duckdb provides a DuckDB sink for generated statements.
package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sort"

	"github.com/Masterminds/squirrel"
	"github.com/leapstack-labs/leapseed/pkg/adapter"
	"github.com/leapstack-labs/leapseed/pkg/core"

	_ "github.com/marcboeker/go-duckdb" // duckdb driver
)

// Adapter implements the adapter.Adapter interface for DuckDB.
type Adapter struct {
	adapter.BaseSQLAdapter
	qb squirrel.StatementBuilderType
}

// New creates a new DuckDB adapter instance.
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
	return "duckdb"
}

// Connect establishes a connection to DuckDB.
// Use ":memory:" as the path for an in-memory database.
func (a *Adapter) Connect(ctx context.Context, cfg adapter.Config) error {
	params, err := parseParams(cfg.Params)
	if err != nil {
		return err
	}

	path := cfg.Path
	if path == "" {
		path = ":memory:"
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return fmt.Errorf("failed to open duckdb connection: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping duckdb: %w", err)
	}

	a.DB = db
	a.Cfg = cfg

	if err := a.configure(ctx, params); err != nil {
		_ = db.Close()
		a.DB = nil
		return err
	}
	return nil
}

// configure installs extensions, creates secrets and applies settings.
func (a *Adapter) configure(ctx context.Context, p *Params) error {
	for _, ext := range p.Extensions {
		a.Logger.Debug("loading duckdb extension", slog.String("extension", ext))
		if err := a.Exec(ctx, fmt.Sprintf("INSTALL %s; LOAD %s;", ext, ext)); err != nil {
			return fmt.Errorf("failed to load extension %s: %w", ext, err)
		}
	}

	for _, s := range p.Secrets {
		if err := a.Exec(ctx, buildCreateSecretSQL(s)); err != nil {
			return fmt.Errorf("failed to create %s secret: %w", s.Type, err)
		}
	}

	keys := make([]string, 0, len(p.Settings))
	for k := range p.Settings {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := a.Exec(ctx, fmt.Sprintf("SET %s = %s", k, quote(p.Settings[k]))); err != nil {
			return fmt.Errorf("failed to apply setting %s: %w", k, err)
		}
	}
	return nil
}

// Sequences reads duckdb_sequences(). A sequence with no last value hands
// out its start value next.
func (a *Adapter) Sequences(ctx context.Context, cols []core.SequenceColumn) (map[string]int64, error) {
	defaultSchema := a.Cfg.Schema
	if defaultSchema == "" {
		defaultSchema = "main"
	}

	out := make(map[string]int64)
	for _, sc := range cols {
		id := sc.Sequence.Identifier
		if _, done := out[id]; done {
			continue
		}
		schema, name := adapter.ParseQualifiedName(id, defaultSchema)
		q := a.qb.Select("last_value", "start_value", "increment_by").
			From("duckdb_sequences()").
			Where(squirrel.Eq{"schema_name": schema, "sequence_name": name})

		var last sql.NullInt64
		var start, inc int64
		found, err := a.QueryRow(ctx, q, &last, &start, &inc)
		if err != nil {
			return nil, fmt.Errorf("failed to read sequence %s: %w", id, err)
		}
		if !found {
			continue
		}
		if last.Valid {
			out[id] = last.Int64 + inc
		} else {
			out[id] = start
		}
	}
	return out, nil
}

// Ensure Adapter implements adapter.Adapter interface
var _ adapter.Adapter = (*Adapter)(nil)
