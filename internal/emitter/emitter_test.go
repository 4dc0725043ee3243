package emitter

import (
	"testing"

	"github.com/leapstack-labs/leapseed/internal/dag"
	"github.com/leapstack-labs/leapseed/internal/testutil"
	"github.com/leapstack-labs/leapseed/pkg/core"
	"github.com/leapstack-labs/leapseed/pkg/dialects/mysql"
	"github.com/leapstack-labs/leapseed/pkg/dialects/postgres"
	"github.com/leapstack-labs/leapseed/pkg/dialects/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func customerModel(t *testing.T) *core.DataModel {
	t.Helper()
	dm, err := core.NewDataModel(&core.Model{
		ID: "customer",
		Fields: []core.Field{
			&core.ScalarField{Name: "id", SQLType: "int4", IsID: true, IsRequired: true, Sequence: &core.Sequence{Identifier: "customer_id_seq", Increment: 1, Current: 1}},
			&core.ScalarField{Name: "referrer_id", SQLType: "int4"},
			&core.RelationField{Name: "referrer", RelationName: "Referrals", TargetModel: "customer", FromFields: []string{"referrer_id"}, ToFields: []string{"id"}},
		},
	})
	require.NoError(t, err)
	return dm
}

func row(model string, values map[string]any) core.Row {
	return core.Row{Model: model, Values: values}
}

func TestEmit_DefersNullableSelfReference(t *testing.T) {
	e, err := New(customerModel(t), postgres.Postgres, testutil.NewTestLogger(t))
	require.NoError(t, err)

	b, err := e.Emit(core.RowSet{"customer": {
		row("customer", map[string]any{"id": int64(1), "referrer_id": int64(2)}),
		row("customer", map[string]any{"id": int64(2), "referrer_id": int64(1)}),
	}})
	require.NoError(t, err)

	assert.Equal(t, []string{
		`INSERT INTO "customer" ("id", "referrer_id") VALUES (1, NULL);`,
		`INSERT INTO "customer" ("id", "referrer_id") VALUES (2, NULL);`,
		`UPDATE "customer" SET "referrer_id" = 2 WHERE "id" = 1;`,
		`UPDATE "customer" SET "referrer_id" = 1 WHERE "id" = 2;`,
		`SELECT setval('customer_id_seq', COALESCE((SELECT MAX("id") FROM "customer"), 0) + 1, false);`,
	}, b.Statements())
	assert.Empty(t, b.Warnings)
	assert.Equal(t, 5, b.Len())
}

func TestEmit_NullValueNotDeferred(t *testing.T) {
	e, err := New(customerModel(t), postgres.Postgres, nil)
	require.NoError(t, err)

	b, err := e.Emit(core.RowSet{"customer": {row("customer", map[string]any{"id": int64(1), "referrer_id": nil})}})
	require.NoError(t, err)
	assert.Equal(t, []string{`INSERT INTO "customer" ("id", "referrer_id") VALUES (1, NULL);`}, b.Inserts)
	assert.Empty(t, b.Updates)
}

func TestEmit_PinnedValueStaysInline(t *testing.T) {
	e, err := New(customerModel(t), postgres.Postgres, nil)
	require.NoError(t, err)

	r := row("customer", map[string]any{"id": int64(2), "referrer_id": int64(1)})
	r.Pinned = map[string]bool{"referrer_id": true}
	b, err := e.Emit(core.RowSet{"customer": {r}})
	require.NoError(t, err)
	assert.Equal(t, []string{`INSERT INTO "customer" ("id", "referrer_id") VALUES (2, 1);`}, b.Inserts)
	assert.Empty(t, b.Updates)
}

func blog(t *testing.T) *core.DataModel {
	t.Helper()
	dm, err := core.NewDataModel(
		&core.Model{
			ID: "posts", Schema: "app",
			Fields: []core.Field{
				&core.ScalarField{Name: "id", SQLType: "int4", IsID: true},
				&core.ScalarField{Name: "authorId", ColumnName: "author_id", SQLType: "int4", IsRequired: true},
				&core.ScalarField{Name: "search", SQLType: "tsvector", IsGenerated: true},
				&core.ScalarField{Name: "created_at", SQLType: "timestamptz", HasDefaultValue: true},
				&core.RelationField{Name: "author", TargetModel: "users", FromFields: []string{"authorId"}, ToFields: []string{"id"}, IsRequired: true},
			},
		},
		&core.Model{
			ID: "users", Schema: "app",
			Fields: []core.Field{
				&core.ScalarField{Name: "id", SQLType: "int4", IsID: true},
				&core.ScalarField{Name: "tags", SQLType: "text[]"},
			},
		},
	)
	require.NoError(t, err)
	return dm
}

func TestEmit_ParentsFirstAndColumns(t *testing.T) {
	e, err := New(blog(t), postgres.Postgres, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"users", "posts"}, e.Order())

	b, err := e.Emit(core.RowSet{
		"posts": {row("posts", map[string]any{"id": int64(10), "authorId": int64(1), "created_at": core.UseDefault})},
		"users": {row("users", map[string]any{"id": int64(1), "tags": []string{"a", "b"}})},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{
		`INSERT INTO "app"."users" ("id", "tags") VALUES (1, '{"a","b"}');`,
		`INSERT INTO "app"."posts" ("id", "author_id", "created_at") VALUES (10, 1, DEFAULT);`,
	}, b.Statements())
}

func TestEmit_SQLiteOmitsDefaults(t *testing.T) {
	e, err := New(blog(t), sqlite.SQLite, nil)
	require.NoError(t, err)

	b, err := e.Emit(core.RowSet{
		"posts": {row("posts", map[string]any{"id": int64(10), "authorId": int64(1), "created_at": core.UseDefault})},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{`INSERT INTO "app"."posts" ("id", "author_id") VALUES (10, 1);`}, b.Inserts)
}

func TestEmit_MissingIdentifier(t *testing.T) {
	dm, err := core.NewDataModel(&core.Model{
		ID: "notes",
		Fields: []core.Field{
			&core.ScalarField{Name: "body", SQLType: "text"},
			&core.ScalarField{Name: "parent_id", SQLType: "int4"},
			&core.ScalarField{Name: "id", SQLType: "int4", HasDefaultValue: true},
			&core.RelationField{Name: "parent", TargetModel: "notes", FromFields: []string{"parent_id"}, ToFields: []string{"id"}},
		},
	})
	require.NoError(t, err)
	e, err := New(dm, postgres.Postgres, testutil.NewTestLogger(t))
	require.NoError(t, err)

	b, err := e.Emit(core.RowSet{"notes": {
		row("notes", map[string]any{"body": "a", "parent_id": int64(1), "id": core.UseDefault}),
		row("notes", map[string]any{"body": "b", "parent_id": int64(1), "id": core.UseDefault}),
		row("notes", map[string]any{"body": "c", "parent_id": nil, "id": core.UseDefault}),
	}})
	require.NoError(t, err)

	assert.Len(t, b.Inserts, 3)
	assert.Empty(t, b.Updates)
	assert.Equal(t, []MissingIdentifierWarning{{Model: "notes", Count: 2}}, b.Warnings)
	assert.Contains(t, b.Warnings[0].String(), "notes: 2 row(s)")
	assert.Equal(t, `INSERT INTO "notes" ("body", "parent_id", "id") VALUES ('a', NULL, DEFAULT);`, b.Inserts[0])
}

func TestEmit_UniqueKeyIdentifier(t *testing.T) {
	dm, err := core.NewDataModel(&core.Model{
		ID: "accounts",
		Fields: []core.Field{
			&core.ScalarField{Name: "email", SQLType: "text"},
			&core.ScalarField{Name: "sponsor", SQLType: "text"},
			&core.RelationField{Name: "sponsoredBy", TargetModel: "accounts", FromFields: []string{"sponsor"}, ToFields: []string{"email"}},
		},
		UniqueConstraints: []core.UniqueConstraint{{Name: "accounts_email_key", Fields: []string{"email"}}},
	})
	require.NoError(t, err)
	e, err := New(dm, mysql.MySQL, nil)
	require.NoError(t, err)

	b, err := e.Emit(core.RowSet{"accounts": {row("accounts", map[string]any{"email": "a@x", "sponsor": "b@x"})}})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"INSERT INTO `accounts` (`email`, `sponsor`) VALUES ('a@x', NULL);",
		"UPDATE `accounts` SET `sponsor` = 'b@x' WHERE `email` = 'a@x';",
	}, b.Statements())
}

func TestEmit_EmptyInsert(t *testing.T) {
	dm, err := core.NewDataModel(&core.Model{
		ID: "events",
		Fields: []core.Field{
			&core.ScalarField{Name: "id", SQLType: "int4", IsID: true, HasDefaultValue: true},
		},
	})
	require.NoError(t, err)

	for _, tt := range []struct {
		name string
		e    func() (*Emitter, error)
		want string
	}{
		{"sqlite", func() (*Emitter, error) { return New(dm, sqlite.SQLite, nil) }, `INSERT INTO "events" DEFAULT VALUES;`},
		{"mysql", func() (*Emitter, error) { return New(dm, mysql.MySQL, nil) }, "INSERT INTO `events` (`id`) VALUES (DEFAULT);"},
	} {
		t.Run(tt.name, func(t *testing.T) {
			e, err := tt.e()
			require.NoError(t, err)
			b, err := e.Emit(core.RowSet{"events": {row("events", map[string]any{"id": core.UseDefault})}})
			require.NoError(t, err)
			assert.Equal(t, []string{tt.want}, b.Inserts)
		})
	}
}

func TestNew_RequiredCycle(t *testing.T) {
	dm, err := core.NewDataModel(
		&core.Model{ID: "a", Fields: []core.Field{
			&core.ScalarField{Name: "id", SQLType: "int4", IsID: true},
			&core.ScalarField{Name: "b_id", SQLType: "int4"},
			&core.RelationField{Name: "b", TargetModel: "b", FromFields: []string{"b_id"}, ToFields: []string{"id"}, IsRequired: true},
		}},
		&core.Model{ID: "b", Fields: []core.Field{
			&core.ScalarField{Name: "id", SQLType: "int4", IsID: true},
			&core.ScalarField{Name: "a_id", SQLType: "int4"},
			&core.RelationField{Name: "a", TargetModel: "a", FromFields: []string{"a_id"}, ToFields: []string{"id"}, IsRequired: true},
		}},
	)
	require.NoError(t, err)

	_, err = New(dm, postgres.Postgres, nil)
	var cerr *dag.CycleError
	require.ErrorAs(t, err, &cerr)

	_, err = New(dm, nil, nil)
	assert.Error(t, err)
}

func TestEmit_LiteralError(t *testing.T) {
	e, err := New(blog(t), postgres.Postgres, nil)
	require.NoError(t, err)
	_, err = e.Emit(core.RowSet{"users": {row("users", map[string]any{"id": int64(1), "tags": int64(5)})}})
	assert.ErrorContains(t, err, "model users field tags")
}
