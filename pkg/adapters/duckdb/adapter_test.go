package duckdb

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/leapstack-labs/leapseed/pkg/adapter"
	"github.com/leapstack-labs/leapseed/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdapter_ConnectAndRun(t *testing.T) {
	ctx := context.Background()
	adp := New(nil)

	require.NoError(t, adp.Connect(ctx, adapter.Config{
		Path:   ":memory:",
		Params: map[string]any{"settings": map[string]any{"threads": "2"}},
	}))
	defer func() { _ = adp.Close() }()

	require.NoError(t, adp.Exec(ctx, `CREATE TABLE tags (id INTEGER PRIMARY KEY, names VARCHAR[])`))
	require.NoError(t, adp.RunStatements(ctx, []string{
		`INSERT INTO "tags" ("id", "names") VALUES (1, ['a', 'b']);`,
		`INSERT INTO "tags" ("id", "names") VALUES (2, []);`,
	}))

	var n int
	require.NoError(t, adp.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM tags").Scan(&n))
	assert.Equal(t, 2, n)
}

func TestAdapter_ConnectInvalidParams(t *testing.T) {
	adp := New(nil)
	err := adp.Connect(context.Background(), adapter.Config{Params: map[string]any{"bogus": true}})
	require.Error(t, err)
	assert.False(t, adp.IsConnected())
}

func TestAdapter_Sequences(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	adp := New(nil)
	adp.DB = db

	query := regexp.QuoteMeta("SELECT last_value, start_value, increment_by FROM duckdb_sequences() WHERE schema_name = ? AND sequence_name = ?")
	mock.ExpectQuery(query).WithArgs("main", "users_id_seq").
		WillReturnRows(sqlmock.NewRows([]string{"last_value", "start_value", "increment_by"}).AddRow(5, 1, 1))
	mock.ExpectQuery(query).WithArgs("main", "posts_id_seq").
		WillReturnRows(sqlmock.NewRows([]string{"last_value", "start_value", "increment_by"}).AddRow(nil, 1, 1))

	got, err := adp.Sequences(context.Background(), []core.SequenceColumn{
		{Sequence: core.Sequence{Identifier: "users_id_seq"}},
		{Sequence: core.Sequence{Identifier: "posts_id_seq"}},
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"users_id_seq": 6, "posts_id_seq": 1}, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistered(t *testing.T) {
	assert.True(t, adapter.IsRegistered("duckdb"))
}
