// Package mysql provides a MySQL sink for generated statements.
package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net"
	"strconv"

	"github.com/Masterminds/squirrel"
	"github.com/go-sql-driver/mysql"
	"github.com/leapstack-labs/leapseed/pkg/adapter"
	"github.com/leapstack-labs/leapseed/pkg/core"
)

// Adapter implements the adapter.Adapter interface for MySQL.
type Adapter struct {
	adapter.BaseSQLAdapter
	qb squirrel.StatementBuilderType
}

// New creates a new MySQL adapter instance.
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
	return "mysql"
}

// Connect establishes a connection to MySQL.
func (a *Adapter) Connect(ctx context.Context, cfg adapter.Config) error {
	a.Logger.Debug("connecting to mysql", slog.String("host", cfg.Host), slog.String("database", cfg.Database))

	db, err := sql.Open("mysql", buildMySQLDSN(cfg))
	if err != nil {
		return fmt.Errorf("failed to open mysql connection: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping mysql: %w", err)
	}

	a.DB = db
	a.Cfg = cfg
	return nil
}

func buildMySQLDSN(cfg adapter.Config) string {
	host := cfg.Host
	if host == "" {
		host = "localhost"
	}
	port := cfg.Port
	if port == 0 {
		port = 3306
	}

	mc := mysql.NewConfig()
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(host, strconv.Itoa(port))
	mc.User = cfg.Username
	mc.Passwd = cfg.Password
	mc.DBName = cfg.Database
	mc.ParseTime = true
	if len(cfg.Options) > 0 {
		mc.Params = make(map[string]string, len(cfg.Options))
		for k, v := range cfg.Options {
			mc.Params[k] = v
		}
	}
	return mc.FormatDSN()
}

// Sequences reads the AUTO_INCREMENT counter of each sequence-backed table
// in the connected database.
func (a *Adapter) Sequences(ctx context.Context, cols []core.SequenceColumn) (map[string]int64, error) {
	out := make(map[string]int64)
	for _, sc := range cols {
		id := sc.Sequence.Identifier
		if _, done := out[id]; done {
			continue
		}
		q := a.qb.Select("AUTO_INCREMENT").
			From("information_schema.tables").
			Where("table_schema = DATABASE()").
			Where(squirrel.Eq{"table_name": sc.Model.TableName()})

		var next sql.NullInt64
		found, err := a.QueryRow(ctx, q, &next)
		if err != nil {
			return nil, fmt.Errorf("failed to read auto increment of %s: %w", sc.Model.TableName(), err)
		}
		if !found || !next.Valid {
			continue
		}
		out[id] = next.Int64
	}
	return out, nil
}

// Ensure Adapter implements adapter.Adapter interface
var _ adapter.Adapter = (*Adapter)(nil)
