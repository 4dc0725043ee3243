package adapter

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Masterminds/squirrel"
)

// ErrNotConnected is returned by operations that need an open connection.
var ErrNotConnected = errors.New("database connection not established")

// BaseSQLAdapter provides common database/sql functionality for adapters.
// Embed this struct in concrete adapter implementations to get standard
// Close, Exec, and RunStatements implementations.
type BaseSQLAdapter struct {
	DB     *sql.DB
	Cfg    Config
	Logger *slog.Logger
}

func (b *BaseSQLAdapter) logger() *slog.Logger {
	if b.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return b.Logger
}

// Close closes the database connection.
func (b *BaseSQLAdapter) Close() error {
	if b.DB != nil {
		b.logger().Debug("closing database connection")
		return b.DB.Close()
	}
	return nil
}

// Exec executes a SQL statement that doesn't return rows.
func (b *BaseSQLAdapter) Exec(ctx context.Context, sqlStr string) error {
	if b.DB == nil {
		return ErrNotConnected
	}
	_, err := b.DB.ExecContext(ctx, sqlStr)
	if err != nil {
		return fmt.Errorf("failed to execute SQL: %w", err)
	}
	return nil
}

// RunStatements executes stmts in one transaction and rolls back on the
// first failure.
func (b *BaseSQLAdapter) RunStatements(ctx context.Context, stmts []string) (err error) {
	if b.DB == nil {
		return ErrNotConnected
	}
	if len(stmts) == 0 {
		return nil
	}

	tx, err := b.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				b.logger().Warn("rollback failed", slog.String("error", rbErr.Error()))
			}
		}
	}()

	for i, stmt := range stmts {
		if _, err = tx.ExecContext(ctx, stmt); err != nil {
			return &StatementError{Index: i, Statement: stmt, Err: err}
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	b.logger().Info("executed statements", slog.Int("count", len(stmts)))
	return nil
}

// IsConnected returns true if the database connection is established.
func (b *BaseSQLAdapter) IsConnected() bool {
	return b.DB != nil
}

// QueryRow runs a single-row query built with squirrel and scans it into
// dest. found is false when the query returned no row.
func (b *BaseSQLAdapter) QueryRow(ctx context.Context, q squirrel.Sqlizer, dest ...any) (found bool, err error) {
	if b.DB == nil {
		return false, ErrNotConnected
	}
	query, args, err := q.ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to build query: %w", err)
	}
	err = b.DB.QueryRowContext(ctx, query, args...).Scan(dest...)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("failed to execute query: %w", err)
	}
	return true, nil
}

// ParseQualifiedName splits a schema-qualified name. defaultSchema is used
// when name carries no schema.
func ParseQualifiedName(name, defaultSchema string) (schema, object string) {
	if i := strings.LastIndex(name, "."); i > 0 {
		return name[:i], name[i+1:]
	}
	return defaultSchema, name
}
