// Package seed is the session API: it generates referentially consistent
// rows for a data model and renders them as SQL for one dialect.
//
// A Client owns its store, constraint tracker and sequence counters. Two
// clients never share state, so independent sessions may run in parallel.
//
//	client, err := seed.New(dm, seed.WithSeed("fixtures"), seed.WithDialect(postgres.Postgres))
//	users, err := client.Model("users").Generate(ctx, seed.Fixed(3), nil, seed.ConnectOptions{})
//	stmts, err := client.ToSQL()
package seed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/leapstack-labs/leapseed/internal/emitter"
	"github.com/leapstack-labs/leapseed/internal/planner"
	"github.com/leapstack-labs/leapseed/pkg/adapter"
	"github.com/leapstack-labs/leapseed/pkg/core"
	"github.com/leapstack-labs/leapseed/pkg/dialect"
	"github.com/leapstack-labs/leapseed/pkg/seeded"

	// Register every built-in dialect for name lookups.
	_ "github.com/leapstack-labs/leapseed/pkg/dialects"
)

// DefaultDialect is used when neither a dialect nor a sink is configured.
const DefaultDialect = "postgres"

// ErrNoSink is returned by operations that need an execution sink.
var ErrNoSink = errors.New("no execution sink configured")

type options struct {
	seed        string
	users       planner.UserModels
	random      seeded.Random
	dialect     *dialect.Dialect
	dialectName string
	sink        adapter.Adapter
	logger      *slog.Logger
}

// Option configures a Client.
type Option func(*options)

// WithSeed sets the session seed. Equal seeds reproduce equal rows.
func WithSeed(seed string) Option {
	return func(o *options) { o.seed = seed }
}

// WithUserModels sets per-field value sources.
func WithUserModels(users UserModels) Option {
	return func(o *options) { o.users = users }
}

// WithRandom replaces the seeded random source.
func WithRandom(r seeded.Random) Option {
	return func(o *options) { o.random = r }
}

// WithDialect sets the dialect statements are rendered in.
func WithDialect(d *dialect.Dialect) Option {
	return func(o *options) { o.dialect = d }
}

// WithDialectName looks the dialect up in the registry.
func WithDialectName(name string) Option {
	return func(o *options) { o.dialectName = name }
}

// WithSink sets the adapter Flush hands statements to. Without an explicit
// dialect, the sink's dialect is used.
func WithSink(a adapter.Adapter) Option {
	return func(o *options) { o.sink = a }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// Client is one generation session. Its methods serialize on an internal
// lock, so a Client may be shared, but calls never interleave.
type Client struct {
	mu      sync.Mutex
	dm      *core.DataModel
	planner *planner.Planner
	emitter *emitter.Emitter
	sink    adapter.Adapter
	logger  *slog.Logger
	models  map[string]*ModelClient
}

// New starts a session for dm. It fails when dm is invalid or its required
// relations form a cycle.
func New(dm *core.DataModel, opts ...Option) (*Client, error) {
	if dm == nil {
		return nil, errors.New("data model is required")
	}
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = slog.New(slog.DiscardHandler)
	}

	if err := dm.Validate(); err != nil {
		return nil, fmt.Errorf("invalid data model: %w", err)
	}

	d, err := resolveDialect(o)
	if err != nil {
		return nil, err
	}
	em, err := emitter.New(dm, d, o.logger)
	if err != nil {
		return nil, err
	}
	pl, err := planner.New(planner.Config{
		DataModel:  dm,
		UserModels: o.users,
		Random:     o.random,
		Seed:       o.seed,
		Logger:     o.logger,
	})
	if err != nil {
		return nil, err
	}

	c := &Client{
		dm:      dm,
		planner: pl,
		emitter: em,
		sink:    o.sink,
		logger:  o.logger.With(slog.String("dialect", d.GetName())),
		models:  make(map[string]*ModelClient),
	}
	for _, m := range dm.Models() {
		c.models[m.ID] = &ModelClient{client: c, name: m.ID}
	}
	return c, nil
}

func resolveDialect(o *options) (*dialect.Dialect, error) {
	switch {
	case o.dialect != nil:
		return o.dialect, nil
	case o.dialectName != "":
		return dialect.Lookup(o.dialectName)
	case o.sink != nil:
		return dialect.Lookup(o.sink.DialectName())
	default:
		return dialect.Lookup(DefaultDialect)
	}
}

// Model returns the generator bound to one model. Unknown names return a
// ModelClient whose Generate fails.
func (c *Client) Model(name string) *ModelClient {
	if m, ok := c.models[name]; ok {
		return m
	}
	return &ModelClient{client: c, name: name}
}

// Models returns the model names in insertion order.
func (c *Client) Models() []string {
	return c.emitter.Order()
}

// Generate creates count rows of model and returns every row the call
// committed, grouped by model. A failed call commits nothing.
func (c *Client) Generate(ctx context.Context, model string, count Count, overrides Overrides, opts ConnectOptions) (core.RowSet, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.planner.Generate(ctx, model, count, overrides, opts)
}

// Rows returns every committed row of the session.
func (c *Client) Rows() core.RowSet {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.planner.Store().All()
}

// ToSQL renders every committed row of the session.
func (c *Client) ToSQL() ([]string, error) {
	b, err := c.Plan()
	if err != nil {
		return nil, err
	}
	return b.Statements(), nil
}

// Plan renders every committed row and reports deferred-update warnings.
func (c *Client) Plan() (*emitter.Batch, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.emitter.Emit(c.planner.Store().All())
}

// Flush renders the rows committed since the last flush and runs them on
// the sink in one transaction. Rows stay pending when the sink fails.
func (c *Client) Flush(ctx context.Context) (*emitter.Batch, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sink == nil {
		return nil, ErrNoSink
	}

	st := c.planner.Store()
	pending := st.Pending()
	if pending.Count() == 0 {
		return &emitter.Batch{}, nil
	}
	b, err := c.emitter.Emit(pending)
	if err != nil {
		return nil, err
	}
	if err := c.sink.RunStatements(ctx, b.Statements()); err != nil {
		return nil, fmt.Errorf("failed to flush %d rows: %w", pending.Count(), err)
	}
	st.MarkFlushed()

	c.logger.Info("flushed rows", slog.Int("rows", pending.Count()), slog.Int("statements", b.Len()))
	return b, nil
}

// ResetSession drops every row and tracked tuple and rewinds sequences to
// their last synced values.
func (c *Client) ResetSession() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.planner.Reset()
}

// SyncSequences sets the value the next insert of each sequence takes.
func (c *Client) SyncSequences(values map[string]int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.planner.SyncSequences(values)
}

// SyncSequencesFromSink reads live sequence values from the sink.
func (c *Client) SyncSequencesFromSink(ctx context.Context) (map[string]int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sink == nil {
		return nil, ErrNoSink
	}
	values, err := c.sink.Sequences(ctx, c.dm.SequenceColumns())
	if err != nil {
		return nil, fmt.Errorf("failed to read sequences: %w", err)
	}
	c.planner.SyncSequences(values)
	c.logger.Debug("synced sequences", slog.Int("count", len(values)))
	return values, nil
}

// Sequences returns the value the next insert of each sequence takes.
func (c *Client) Sequences() map[string]int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.planner.Sequences()
}

// ModelClient generates rows of one model.
type ModelClient struct {
	client *Client
	name   string
}

// Name returns the model name.
func (m *ModelClient) Name() string {
	return m.name
}

// Generate creates rows of the bound model.
func (m *ModelClient) Generate(ctx context.Context, count Count, overrides Overrides, opts ConnectOptions) (core.RowSet, error) {
	return m.client.Generate(ctx, m.name, count, overrides, opts)
}

// Connect generates rows connected round-robin to existing rows wherever a
// relation has committed candidates.
func (m *ModelClient) Connect(ctx context.Context, count Count, overrides Overrides) (core.RowSet, error) {
	return m.Generate(ctx, count, overrides, ConnectOptions{Existing: true})
}

// Rows returns the committed rows of the bound model.
func (m *ModelClient) Rows() []core.Row {
	m.client.mu.Lock()
	defer m.client.mu.Unlock()
	return m.client.planner.Store().Rows(m.name)
}
