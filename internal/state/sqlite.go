package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"

	_ "modernc.org/sqlite" // sqlite driver
)

// timeLayout has a fixed width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

var runColumns = []string{
	"id", "seed", "dialect", "status", "statements", "executed",
	"row_counts", "sequences", "started_at", "completed_at", "error",
}

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	path   string
	qb     squirrel.StatementBuilderType
	logger *slog.Logger
}

// NewSQLiteStore creates a new SQLite state store instance.
// If logger is nil, a discard logger is used.
func NewSQLiteStore(logger *slog.Logger) *SQLiteStore {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &SQLiteStore{
		qb:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
		logger: logger,
	}
}

// Open opens a connection to the SQLite database, creating its directory.
// Use ":memory:" for an in-memory database.
func (s *SQLiteStore) Open(path string) error {
	dsn := ":memory:"
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return fmt.Errorf("failed to create state directory: %w", err)
			}
		}
		dsn = fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)

	// Test connection
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	s.db = db
	s.path = path
	s.logger.Debug("opened state store", slog.String("path", path))
	return nil
}

// Close closes the SQLite database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// generateID creates a new UUID.
func generateID() string {
	return uuid.New().String()
}

// CreateRun records a new running run.
func (s *SQLiteStore) CreateRun(ctx context.Context, seed, dialect string) (*Run, error) {
	if s.db == nil {
		return nil, ErrNotOpened
	}

	run := &Run{
		ID:        generateID(),
		Seed:      seed,
		Dialect:   dialect,
		Status:    RunStatusRunning,
		StartedAt: time.Now().UTC(),
	}

	s.logger.Debug("creating run", slog.String("id", run.ID), slog.String("seed", seed))

	q, args, err := s.qb.Insert("runs").
		Columns("id", "seed", "dialect", "status", "started_at").
		Values(run.ID, run.Seed, run.Dialect, string(run.Status), run.StartedAt.Format(timeLayout)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}
	return run, nil
}

// CompleteRun stores the outcome of a run.
func (s *SQLiteStore) CompleteRun(ctx context.Context, id string, result Result) error {
	if s.db == nil {
		return ErrNotOpened
	}

	rows, err := msgpack.Marshal(result.Rows)
	if err != nil {
		return fmt.Errorf("failed to encode row counts: %w", err)
	}
	seqs, err := msgpack.Marshal(result.Sequences)
	if err != nil {
		return fmt.Errorf("failed to encode sequences: %w", err)
	}

	var errMsg any
	if result.Error != "" {
		errMsg = result.Error
	}

	q, args, err := s.qb.Update("runs").
		SetMap(map[string]any{
			"status":       string(result.Status),
			"statements":   result.Statements,
			"executed":     result.Executed,
			"row_counts":   rows,
			"sequences":    seqs,
			"completed_at": time.Now().UTC().Format(timeLayout),
			"error":        errMsg,
		}).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build query: %w", err)
	}

	res, err := s.db.ExecContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("run not found: %s", id)
	}
	return nil
}

// GetRun retrieves a run by ID.
func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*Run, error) {
	if s.db == nil {
		return nil, ErrNotOpened
	}

	run, err := s.queryRun(ctx, s.qb.Select(runColumns...).From("runs").Where(squirrel.Eq{"id": id}))
	if err != nil {
		return nil, err
	}
	if run == nil {
		return nil, fmt.Errorf("run not found: %s", id)
	}
	return run, nil
}

// LatestCompletedRun retrieves the most recent completed run.
func (s *SQLiteStore) LatestCompletedRun(ctx context.Context) (*Run, error) {
	if s.db == nil {
		return nil, ErrNotOpened
	}

	return s.queryRun(ctx, s.qb.Select(runColumns...).From("runs").
		Where(squirrel.Eq{"status": string(RunStatusCompleted)}).
		OrderBy("started_at DESC", "rowid DESC").
		Limit(1))
}

// ListRuns retrieves the most recent runs up to the given limit.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]*Run, error) {
	if s.db == nil {
		return nil, ErrNotOpened
	}

	qb := s.qb.Select(runColumns...).From("runs").OrderBy("started_at DESC", "rowid DESC")
	if limit > 0 {
		qb = qb.Limit(uint64(limit))
	}
	q, args, err := qb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return runs, nil
}

// queryRun returns nil without error when no row matches.
func (s *SQLiteStore) queryRun(ctx context.Context, qb squirrel.SelectBuilder) (*Run, error) {
	q, args, err := qb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}
	run, err := scanRun(s.db.QueryRowContext(ctx, q, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return run, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (*Run, error) {
	run := &Run{}
	var (
		status, startedAt   string
		completedAt, errMsg sql.NullString
		rows, seqs          []byte
	)
	err := sc.Scan(&run.ID, &run.Seed, &run.Dialect, &status, &run.Statements, &run.Executed,
		&rows, &seqs, &startedAt, &completedAt, &errMsg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan run: %w", err)
	}

	run.Status = RunStatus(status)
	run.Error = errMsg.String
	if run.StartedAt, err = time.Parse(timeLayout, startedAt); err != nil {
		return nil, fmt.Errorf("run %s: invalid started_at: %w", run.ID, err)
	}
	if completedAt.Valid {
		t, err := time.Parse(timeLayout, completedAt.String)
		if err != nil {
			return nil, fmt.Errorf("run %s: invalid completed_at: %w", run.ID, err)
		}
		run.CompletedAt = &t
	}
	if len(rows) > 0 {
		if err := msgpack.Unmarshal(rows, &run.Rows); err != nil {
			return nil, fmt.Errorf("run %s: invalid row counts: %w", run.ID, err)
		}
	}
	if len(seqs) > 0 {
		if err := msgpack.Unmarshal(seqs, &run.Sequences); err != nil {
			return nil, fmt.Errorf("run %s: invalid sequences: %w", run.ID, err)
		}
	}
	return run, nil
}

// Ensure SQLiteStore implements Store interface
var _ Store = (*SQLiteStore)(nil)
