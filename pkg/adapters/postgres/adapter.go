// Package postgres provides a PostgreSQL sink for generated statements.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/Masterminds/squirrel"
	"github.com/leapstack-labs/leapseed/pkg/adapter"
	"github.com/leapstack-labs/leapseed/pkg/core"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx database/sql driver
)

// Adapter implements the adapter.Adapter interface for PostgreSQL.
type Adapter struct {
	adapter.BaseSQLAdapter
	qb squirrel.StatementBuilderType
}

// New creates a new PostgreSQL adapter instance.
// If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Adapter{
		BaseSQLAdapter: adapter.BaseSQLAdapter{Logger: logger},
		qb:             squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// DialectName returns the SQL dialect for this adapter.
func (a *Adapter) DialectName() string {
	return "postgres"
}

// Connect establishes a connection to PostgreSQL.
func (a *Adapter) Connect(ctx context.Context, cfg adapter.Config) error {
	dsn := buildPostgresDSN(cfg)

	a.Logger.Debug("connecting to postgres", slog.String("host", cfg.Host), slog.String("database", cfg.Database))

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("failed to open postgres connection: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping postgres: %w", err)
	}

	a.DB = db
	a.Cfg = cfg
	return nil
}

// buildPostgresDSN constructs a PostgreSQL connection string.
func buildPostgresDSN(cfg adapter.Config) string {
	host := cfg.Host
	if host == "" {
		host = "localhost"
	}

	port := cfg.Port
	if port == 0 {
		port = 5432
	}

	sslmode := "disable"
	if mode, ok := cfg.Options["sslmode"]; ok {
		sslmode = mode
	}

	dsn := fmt.Sprintf("host=%s port=%d dbname=%s sslmode=%s",
		host, port, cfg.Database, sslmode)

	if cfg.Username != "" {
		dsn += fmt.Sprintf(" user=%s", cfg.Username)
	}
	if cfg.Password != "" {
		dsn += fmt.Sprintf(" password=%s", cfg.Password)
	}
	if cfg.Schema != "" {
		dsn += fmt.Sprintf(" search_path=%s", cfg.Schema)
	}

	return dsn
}

// Sequences reads pg_sequences. A sequence that was never called hands out
// its start value next.
func (a *Adapter) Sequences(ctx context.Context, cols []core.SequenceColumn) (map[string]int64, error) {
	defaultSchema := a.Cfg.Schema
	if defaultSchema == "" {
		defaultSchema = "public"
	}

	out := make(map[string]int64)
	for _, sc := range cols {
		id := sc.Sequence.Identifier
		if _, done := out[id]; done {
			continue
		}
		schema, name := adapter.ParseQualifiedName(id, defaultSchema)
		q := a.qb.Select("last_value", "start_value", "increment_by").
			From("pg_sequences").
			Where(squirrel.Eq{"schemaname": schema, "sequencename": name})

		var last sql.NullInt64
		var start, inc int64
		found, err := a.QueryRow(ctx, q, &last, &start, &inc)
		if err != nil {
			return nil, fmt.Errorf("failed to read sequence %s: %w", id, err)
		}
		if !found {
			a.Logger.Debug("sequence not found", slog.String("sequence", id))
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
