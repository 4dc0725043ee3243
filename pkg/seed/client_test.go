package seed_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/leapstack-labs/leapseed/internal/testutil"
	"github.com/leapstack-labs/leapseed/pkg/adapter"
	"github.com/leapstack-labs/leapseed/pkg/adapters/sqlite"
	"github.com/leapstack-labs/leapseed/pkg/core"
	"github.com/leapstack-labs/leapseed/pkg/dialect"
	"github.com/leapstack-labs/leapseed/pkg/seed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func sequence(id string) *core.Sequence {
	return &core.Sequence{Identifier: id, Increment: 1, Current: 1}
}

func blog(t *testing.T) *core.DataModel {
	t.Helper()
	dm, err := core.NewDataModel(
		&core.Model{
			ID: "users",
			Fields: []core.Field{
				&core.ScalarField{Name: "id", SQLType: "int4", IsID: true, IsRequired: true, Sequence: sequence("users_id_seq")},
				&core.ScalarField{Name: "email", SQLType: "text", IsRequired: true},
			},
			UniqueConstraints: []core.UniqueConstraint{
				{Name: "users_pkey", Fields: []string{"id"}},
				{Name: "users_email_key", Fields: []string{"email"}},
			},
		},
		&core.Model{
			ID: "posts",
			Fields: []core.Field{
				&core.ScalarField{Name: "id", SQLType: "int4", IsID: true, IsRequired: true, Sequence: sequence("posts_id_seq")},
				&core.ScalarField{Name: "title", SQLType: "text"},
				&core.ScalarField{Name: "user_id", SQLType: "int4", IsRequired: true},
				&core.RelationField{Name: "user", TargetModel: "users", FromFields: []string{"user_id"}, ToFields: []string{"id"}, IsRequired: true},
			},
			UniqueConstraints: []core.UniqueConstraint{{Name: "posts_pkey", Fields: []string{"id"}}},
		},
	)
	require.NoError(t, err)
	return dm
}

func customers(t *testing.T) *core.DataModel {
	t.Helper()
	dm, err := core.NewDataModel(&core.Model{
		ID: "customer",
		Fields: []core.Field{
			&core.ScalarField{Name: "id", SQLType: "integer", IsID: true, IsRequired: true, Sequence: sequence("customer_id_seq")},
			&core.ScalarField{Name: "referrer_id", SQLType: "integer"},
			&core.RelationField{Name: "referrer", TargetModel: "customer", FromFields: []string{"referrer_id"}, ToFields: []string{"id"}},
		},
	})
	require.NoError(t, err)
	return dm
}

func userIDs(rows []core.Row) []any {
	out := make([]any, len(rows))
	for i, r := range rows {
		out[i] = r.Values["user_id"]
	}
	return out
}

func TestScenarioA(t *testing.T) {
	tests := []struct {
		name      string
		connect   bool
		wantUsers int
		wantRefs  []any
	}{
		{
			name:      "auto-create parents",
			wantUsers: 6,
			wantRefs:  []any{int64(4), int64(5), int64(6)},
		},
		{
			name:      "connect to existing",
			connect:   true,
			wantUsers: 3,
			wantRefs:  []any{int64(1), int64(2), int64(3)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			client, err := seed.New(blog(t), seed.WithSeed("scenario-a"), seed.WithLogger(testutil.NewTestLogger(t)))
			require.NoError(t, err)

			_, err = client.Model("users").Generate(ctx, seed.Fixed(3), nil, seed.ConnectOptions{})
			require.NoError(t, err)

			posts := client.Model("posts")
			if tt.connect {
				_, err = posts.Connect(ctx, seed.Fixed(3), nil)
			} else {
				_, err = posts.Generate(ctx, seed.Fixed(3), nil, seed.ConnectOptions{})
			}
			require.NoError(t, err)

			assert.Len(t, client.Model("users").Rows(), tt.wantUsers)
			assert.Equal(t, tt.wantRefs, userIDs(posts.Rows()))

			stmts, err := client.ToSQL()
			require.NoError(t, err)
			// one INSERT per row plus one setval per sequence
			assert.Len(t, stmts, tt.wantUsers+3+2)
			assert.Contains(t, stmts[0], `INSERT INTO "users"`)
		})
	}
}

func TestScenarioB_SQLiteRoundTrip(t *testing.T) {
	ctx := context.Background()

	sink := sqlite.New(testutil.NewTestLogger(t))
	require.NoError(t, sink.Connect(ctx, adapter.Config{}))
	defer func() { _ = sink.Close() }()
	require.NoError(t, sink.Exec(ctx, `CREATE TABLE customer (id INTEGER PRIMARY KEY, referrer_id INTEGER REFERENCES customer(id))`))

	client, err := seed.New(customers(t), seed.WithSink(sink))
	require.NoError(t, err)

	// each row refers to the other one
	refer := func(_ context.Context, fc seed.FieldContext) (any, error) {
		return int64(2 - fc.Index), nil
	}
	_, err = client.Generate(ctx, "customer", seed.Fixed(2), seed.Overrides{"referrer_id": refer}, seed.ConnectOptions{})
	require.NoError(t, err)

	b, err := client.Flush(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{
		`INSERT INTO "customer" ("id", "referrer_id") VALUES (1, NULL);`,
		`INSERT INTO "customer" ("id", "referrer_id") VALUES (2, NULL);`,
	}, b.Inserts)
	assert.Len(t, b.Updates, 2)

	rows, err := sink.DB.QueryContext(ctx, "SELECT id, referrer_id FROM customer ORDER BY id")
	require.NoError(t, err)
	defer func() { _ = rows.Close() }()
	got := map[int64]int64{}
	for rows.Next() {
		var id, ref int64
		require.NoError(t, rows.Scan(&id, &ref))
		got[id] = ref
	}
	require.NoError(t, rows.Err())
	assert.Equal(t, map[int64]int64{1: 2, 2: 1}, got)

	again, err := client.Flush(ctx)
	require.NoError(t, err)
	assert.Zero(t, again.Len())
}

func TestSyncSequencesFromSink(t *testing.T) {
	ctx := context.Background()

	sink := sqlite.New(nil)
	require.NoError(t, sink.Connect(ctx, adapter.Config{}))
	defer func() { _ = sink.Close() }()
	require.NoError(t, sink.Exec(ctx, `
		CREATE TABLE users (id INTEGER PRIMARY KEY, email TEXT NOT NULL UNIQUE);
		CREATE TABLE posts (id INTEGER PRIMARY KEY, title TEXT, user_id INTEGER NOT NULL REFERENCES users(id));
		INSERT INTO users (id, email) VALUES (1, 'a@x'), (2, 'b@x');
	`))

	client, err := seed.New(blog(t), seed.WithSink(sink), seed.WithSeed("sync"))
	require.NoError(t, err)

	values, err := client.SyncSequencesFromSink(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"users_id_seq": 3, "posts_id_seq": 1}, values)

	_, err = client.Generate(ctx, "posts", seed.Fixed(2), nil, seed.ConnectOptions{})
	require.NoError(t, err)
	assert.Equal(t, []any{int64(3), int64(4)}, userIDs(client.Model("posts").Rows()))

	_, err = client.Flush(ctx)
	require.NoError(t, err)

	var n int
	require.NoError(t, sink.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&n))
	assert.Equal(t, 4, n)

	client.ResetSession()
	assert.Equal(t, map[string]int64{"users_id_seq": 3, "posts_id_seq": 1}, client.Sequences())
	assert.Empty(t, client.Rows())
}

func TestFlushFailureKeepsRowsPending(t *testing.T) {
	ctx := context.Background()

	sink := sqlite.New(nil)
	require.NoError(t, sink.Connect(ctx, adapter.Config{}))
	defer func() { _ = sink.Close() }()

	client, err := seed.New(blog(t), seed.WithSink(sink))
	require.NoError(t, err)
	_, err = client.Generate(ctx, "users", seed.Fixed(1), nil, seed.ConnectOptions{})
	require.NoError(t, err)

	_, err = client.Flush(ctx)
	require.Error(t, err, "tables do not exist yet")

	require.NoError(t, sink.Exec(ctx, `CREATE TABLE users (id INTEGER PRIMARY KEY, email TEXT NOT NULL)`))
	b, err := client.Flush(ctx)
	require.NoError(t, err)
	assert.Len(t, b.Inserts, 1)
}

func TestDeterministicAcrossConcurrentSessions(t *testing.T) {
	dm := blog(t)
	run := func(ctx context.Context) ([]string, error) {
		client, err := seed.New(dm, seed.WithSeed("parallel"))
		if err != nil {
			return nil, err
		}
		if _, err := client.Generate(ctx, "users", seed.Range(2, 5), nil, seed.ConnectOptions{}); err != nil {
			return nil, err
		}
		if _, err := client.Generate(ctx, "posts", seed.Fixed(4), nil, seed.ConnectOptions{Existing: true}); err != nil {
			return nil, err
		}
		return client.ToSQL()
	}

	want, err := run(context.Background())
	require.NoError(t, err)

	results := make([][]string, 8)
	g, ctx := errgroup.WithContext(context.Background())
	for i := range results {
		g.Go(func() error {
			stmts, err := run(ctx)
			if err != nil {
				return fmt.Errorf("session %d: %w", i, err)
			}
			results[i] = stmts
			return nil
		})
	}
	require.NoError(t, g.Wait())
	for i, got := range results {
		assert.Equal(t, want, got, "session %d", i)
	}
}

func TestNew_Errors(t *testing.T) {
	_, err := seed.New(nil)
	assert.Error(t, err)

	_, err = seed.New(blog(t), seed.WithDialectName("oracle"))
	var derr *dialect.UnknownDialectError
	require.ErrorAs(t, err, &derr)
	assert.Contains(t, derr.Available, "postgres")

	client, err := seed.New(blog(t), seed.WithDialectName("mysql"))
	require.NoError(t, err)
	assert.Equal(t, []string{"users", "posts"}, client.Models())

	_, err = client.Model("nope").Generate(context.Background(), seed.Fixed(1), nil, seed.ConnectOptions{})
	assert.ErrorContains(t, err, `unknown model "nope"`)

	_, err = client.Flush(context.Background())
	assert.ErrorIs(t, err, seed.ErrNoSink)
	_, err = client.SyncSequencesFromSink(context.Background())
	assert.ErrorIs(t, err, seed.ErrNoSink)
}

func TestUserModelsAndPlan(t *testing.T) {
	client, err := seed.New(blog(t), seed.WithUserModels(seed.UserModels{
		"posts": {"title": seed.Static("hello")},
		"users": {"email": seed.Generate(func(_ context.Context, fc seed.FieldContext) (any, error) {
			return fmt.Sprintf("user%d@example.com", fc.Index), nil
		})},
	}))
	require.NoError(t, err)

	_, err = client.Generate(context.Background(), "users", seed.Fixed(1), seed.Overrides{}, seed.ConnectOptions{})
	require.NoError(t, err)
	_, err = client.Generate(context.Background(), "posts", seed.Fixed(1), nil, seed.ConnectOptions{Existing: true})
	require.NoError(t, err)

	b, err := client.Plan()
	require.NoError(t, err)
	assert.Empty(t, b.Warnings)
	assert.Equal(t, []string{
		`INSERT INTO "users" ("id", "email") VALUES (1, 'user0@example.com');`,
		`INSERT INTO "posts" ("id", "title", "user_id") VALUES (1, 'hello', 1);`,
	}, b.Inserts)
}
