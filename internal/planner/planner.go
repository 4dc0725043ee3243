// Package planner walks generation requests, creating rows, resolving
// relations to new or existing parents, and committing them to the store.
package planner

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"github.com/leapstack-labs/leapseed/internal/dag"
	"github.com/leapstack-labs/leapseed/internal/fake"
	"github.com/leapstack-labs/leapseed/internal/resolver"
	"github.com/leapstack-labs/leapseed/internal/store"
	"github.com/leapstack-labs/leapseed/internal/tracker"
	"github.com/leapstack-labs/leapseed/pkg/core"
	"github.com/leapstack-labs/leapseed/pkg/seeded"
)

// Config holds planner dependencies.
type Config struct {
	DataModel *core.DataModel
	// UserModels configures per-field values (optional).
	UserModels UserModels
	// Random defaults to seeded.New().
	Random seeded.Random
	// Seed prefixes every row seed.
	Seed string
	// Store and Tracker default to fresh instances.
	Store   *store.Store
	Tracker *tracker.Tracker
	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
}

// Planner creates rows for one session. It is not safe for concurrent use.
type Planner struct {
	dm       *core.DataModel
	users    UserModels
	random   seeded.Random
	fake     *fake.Generator
	seed     string
	store    *store.Store
	tracker  *tracker.Tracker
	resolver *resolver.Resolver
	logger   *slog.Logger

	calls     int
	sequences map[string]int64
	baseline  map[string]int64
}

// New creates a planner.
func New(cfg Config) (*Planner, error) {
	if cfg.DataModel == nil {
		return nil, fmt.Errorf("data model is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	random := cfg.Random
	if random == nil {
		random = seeded.New()
	}
	st := cfg.Store
	if st == nil {
		st = store.New()
	}
	tr := cfg.Tracker
	if tr == nil {
		tr = tracker.New()
	}

	baseline := make(map[string]int64)
	for _, seq := range cfg.DataModel.Sequences() {
		baseline[seq.Identifier] = seq.Current
	}

	return &Planner{
		dm:        cfg.DataModel,
		users:     cfg.UserModels,
		random:    random,
		fake:      fake.New(random),
		seed:      cfg.Seed,
		store:     st,
		tracker:   tr,
		resolver:  resolver.New(tr, logger),
		logger:    logger,
		sequences: maps.Clone(baseline),
		baseline:  baseline,
	}, nil
}

// Store returns the session store.
func (p *Planner) Store() *store.Store {
	return p.store
}

// Sequences returns the current counter of every sequence.
func (p *Planner) Sequences() map[string]int64 {
	return maps.Clone(p.sequences)
}

// SyncSequences sets counters to the values the next inserts should take,
// typically read from a live database. Unknown identifiers are ignored.
// Synced values become the baseline that Reset returns to.
func (p *Planner) SyncSequences(values map[string]int64) {
	for id, v := range values {
		if _, ok := p.sequences[id]; !ok {
			continue
		}
		p.sequences[id] = v
		p.baseline[id] = v
	}
}

// Reset drops every committed row and tracked tuple and returns sequence
// counters to their baseline.
func (p *Planner) Reset() {
	p.store.Reset()
	p.tracker.Reset()
	p.sequences = maps.Clone(p.baseline)
	p.calls = 0
}

// call is the state shared by every row created in one Generate call.
type call struct {
	opts       ConnectOptions
	checkpoint store.Checkpoint
	created    core.RowSet
}

// Generate creates count rows of model. Either every row is committed or,
// on error, the store, tracker and sequences are left as they were.
func (p *Planner) Generate(ctx context.Context, model string, count Count, overrides Overrides, opts ConnectOptions) (core.RowSet, error) {
	m, ok := p.dm.Model(model)
	if !ok {
		return nil, fmt.Errorf("unknown model %q", model)
	}

	p.calls++
	callSeed := fmt.Sprintf("%s/%s/%d", p.seed, model, p.calls)
	n, err := count.resolve(p.random, callSeed)
	if err != nil {
		p.calls--
		return nil, fmt.Errorf("model %s: %w", model, err)
	}

	p.logger.Debug("generating rows", slog.String("model", model), slog.Int("count", n), slog.String("seed", callSeed))

	c := &call{
		opts:       opts,
		checkpoint: p.store.Checkpoint(),
		created:    make(core.RowSet),
	}
	mark := p.tracker.Mark()
	sequences := maps.Clone(p.sequences)
	calls := p.calls

	for i := 0; i < n; i++ {
		if _, err := p.create(ctx, c, m, fmt.Sprintf("%s/%d", callSeed, i), i, overrides, nil); err != nil {
			p.store.Rollback(c.checkpoint)
			p.tracker.Rollback(mark)
			p.sequences = sequences
			p.calls = calls - 1
			return nil, err
		}
	}
	p.tracker.Commit()
	return c.created, nil
}

// row is the in-progress state of one row.
type row struct {
	model     *core.Model
	seed      string
	index     int
	overrides Overrides
	path      []string
	values    map[string]any
	relations []resolver.RelationDimension
	scalars   []resolver.ScalarDimension
	children  []child
}

type child struct {
	relation *core.RelationField
	value    any
}

func (r *row) context(p *Planner, field string, attempt int, values map[string]any) FieldContext {
	return FieldContext{
		Seed:    r.seed,
		Attempt: attempt,
		Index:   r.index,
		Model:   r.model.ID,
		Field:   field,
		Row:     maps.Clone(values),
		Store:   p.store,
		Random:  p.random,
	}
}

// create builds, resolves and commits one row of m, then its children.
func (p *Planner) create(ctx context.Context, c *call, m *core.Model, seed string, index int, overrides Overrides, path []string) (core.Row, error) {
	if err := ctx.Err(); err != nil {
		return core.Row{}, err
	}
	for name := range overrides {
		if _, ok := m.Field(name); !ok {
			return core.Row{}, &UnknownFieldError{Model: m.ID, Field: name}
		}
	}

	r := &row{
		model:     m,
		seed:      seed,
		index:     index,
		overrides: overrides,
		path:      append(slices.Clone(path), m.ID),
		values:    make(map[string]any),
	}

	for _, f := range m.Fields {
		var err error
		switch f := f.(type) {
		case *core.RelationField:
			err = p.relation(ctx, c, r, f)
		case *core.ScalarField:
			err = p.scalar(ctx, r, f)
		}
		if err != nil {
			return core.Row{}, err
		}
	}

	res, err := p.resolver.Resolve(resolver.Request{
		Model:     m,
		Values:    r.values,
		Seed:      seed,
		Relations: r.relations,
		Scalars:   r.scalars,
	})
	if err != nil {
		return core.Row{}, err
	}

	committed := core.Row{Model: m.ID, Values: res.Values, Pinned: res.Pinned}
	p.store.Append(committed)
	c.created.Add(committed)

	for _, ch := range r.children {
		if err := p.children(ctx, c, committed, r, ch); err != nil {
			return core.Row{}, err
		}
	}
	return committed, nil
}

// relation resolves a relation field: override, then connect pool, then
// auto-creation for required parents. Nullable parents default to NULL.
func (p *Planner) relation(ctx context.Context, c *call, r *row, f *core.RelationField) error {
	if !f.IsParent() {
		if v, ok := r.overrides[f.Name]; ok {
			r.children = append(r.children, child{relation: f, value: v})
		}
		return nil
	}
	target, _ := p.dm.Model(f.TargetModel)

	if ov, ok := r.overrides[f.Name]; ok {
		return p.explicitParent(ctx, c, r, f, target, ov)
	}

	// An override on a foreign-key column makes the relation explicit.
	if slices.ContainsFunc(f.FromFields, func(from string) bool { _, ok := r.overrides[from]; return ok }) {
		for _, from := range f.FromFields {
			v, err := p.literal(ctx, r, from, r.overrides[from])
			if err != nil {
				return err
			}
			r.values[from] = v
		}
		return nil
	}

	if pool := p.pool(c, target.ID); len(pool) > 0 {
		if err := p.connect(r, f, pool[r.index%len(pool)]); err != nil {
			return err
		}
		if f.IsRequired {
			candidates := make([][]any, len(pool))
			for i, pr := range pool {
				candidates[i] = pr.Tuple(f.ToFields)
			}
			r.relations = append(r.relations, resolver.RelationDimension{
				Field:      f.Name,
				FromFields: f.FromFields,
				Candidates: candidates,
			})
		}
		return nil
	}

	if !f.IsRequired {
		for _, from := range f.FromFields {
			r.values[from] = nil
		}
		return nil
	}
	parent, err := p.createParent(ctx, c, r, f, target, nil)
	if err != nil {
		return err
	}
	return p.connect(r, f, parent)
}

func (p *Planner) explicitParent(ctx context.Context, c *call, r *row, f *core.RelationField, target *core.Model, ov any) error {
	if g, ok := asGenerator(ov); ok {
		v, err := p.invoke(ctx, r, f.Name, g, 0, r.values)
		if err != nil {
			return err
		}
		ov = v
	}

	switch v := ov.(type) {
	case nil:
		if f.IsRequired {
			return fmt.Errorf("model %s: required relation %s cannot be null", r.model.ID, f.Name)
		}
		for _, from := range f.FromFields {
			r.values[from] = nil
		}
	case core.Row:
		if v.Model != target.ID {
			return fmt.Errorf("model %s: relation %s connects to %s, got a %s row", r.model.ID, f.Name, target.ID, v.Model)
		}
		return p.connect(r, f, v)
	case Nested:
		parent, err := p.createParent(ctx, c, r, f, target, v.Overrides)
		if err != nil {
			return err
		}
		return p.connect(r, f, parent)
	default:
		return fmt.Errorf("model %s: unsupported override %T for relation %s", r.model.ID, ov, f.Name)
	}
	return nil
}

// createParent creates one row of target for the relation.
func (p *Planner) createParent(ctx context.Context, c *call, r *row, f *core.RelationField, target *core.Model, overrides Overrides) (core.Row, error) {
	if slices.Contains(r.path, target.ID) {
		return core.Row{}, &dag.CycleError{Path: append(slices.Clone(r.path), target.ID)}
	}
	return p.create(ctx, c, target, r.seed+"/"+f.Name, r.index, overrides, r.path)
}

// connect copies the parent's referenced values into the foreign key.
func (p *Planner) connect(r *row, f *core.RelationField, parent core.Row) error {
	for i, from := range f.FromFields {
		v := parent.Values[f.ToFields[i]]
		if core.IsDefault(v) {
			return fmt.Errorf("model %s: cannot connect %s to %s, %s is assigned by the database", r.model.ID, f.Name, parent.Model, f.ToFields[i])
		}
		r.values[from] = v
	}
	return nil
}

// pool returns the connect candidates for a target model.
func (p *Planner) pool(c *call, target string) []core.Row {
	if rows, ok := c.opts.Pools[target]; ok {
		return rows
	}
	if !c.opts.Existing {
		return nil
	}
	rows := p.store.Rows(target)
	if n := c.checkpoint[target]; n < len(rows) {
		rows = rows[:n]
	}
	return rows
}

// scalar resolves a scalar field: override, omission, sequence, configured
// source, database default, then the built-in generator.
func (p *Planner) scalar(ctx context.Context, r *row, f *core.ScalarField) error {
	if _, owned := r.model.OwningRelation(f.Name); owned {
		return nil
	}

	if ov, ok := r.overrides[f.Name]; ok {
		if g, ok := asGenerator(ov); ok {
			return p.generated(ctx, r, f.Name, g)
		}
		r.values[f.Name] = ov
		return nil
	}

	if f.Omitted() {
		return nil
	}

	if f.Sequence != nil {
		id := f.Sequence.Identifier
		v := p.sequences[id]
		p.sequences[id] = v + f.Sequence.Increment
		r.values[f.Name] = v
		return nil
	}

	if src, ok := p.users[r.model.ID][f.Name]; ok {
		if src.IsGenerator() {
			return p.generated(ctx, r, f.Name, src.generate)
		}
		r.values[f.Name] = src.value
		return nil
	}

	// Referenced columns need a known value so children can point at them.
	if f.HasDefaultValue && !f.IsID && !p.dm.Referenced(r.model.ID, f.Name) {
		r.values[f.Name] = core.UseDefault
		return nil
	}

	return p.generated(ctx, r, f.Name, func(_ context.Context, fc FieldContext) (any, error) {
		return p.fake.Value(f, fc.AttemptSeed()), nil
	})
}

// generated invokes g and registers the field as retry-able.
func (p *Planner) generated(ctx context.Context, r *row, field string, g Generator) error {
	v, err := p.invoke(ctx, r, field, g, 0, r.values)
	if err != nil {
		return err
	}
	r.values[field] = v
	r.scalars = append(r.scalars, resolver.ScalarDimension{
		Field: field,
		Generate: func(attempt int, values map[string]any) (any, error) {
			return p.invoke(ctx, r, field, g, attempt, values)
		},
	})
	return nil
}

// literal evaluates an override that must produce a plain value.
func (p *Planner) literal(ctx context.Context, r *row, field string, ov any) (any, error) {
	if g, ok := asGenerator(ov); ok {
		return p.invoke(ctx, r, field, g, 0, r.values)
	}
	return ov, nil
}

func (p *Planner) invoke(ctx context.Context, r *row, field string, g Generator, attempt int, values map[string]any) (any, error) {
	v, err := g(ctx, r.context(p, field, attempt, values))
	if err != nil {
		return nil, &GeneratorCallbackError{Model: r.model.ID, Field: field, Seed: r.seed, Attempt: attempt, Err: err}
	}
	return v, nil
}

// children creates the rows requested through a list or back-reference
// relation, linking them to the committed parent.
func (p *Planner) children(ctx context.Context, c *call, parent core.Row, r *row, ch child) error {
	ov := ch.value
	if g, ok := asGenerator(ov); ok {
		v, err := p.invoke(ctx, r, ch.relation.Name, g, 0, parent.Values)
		if err != nil {
			return err
		}
		ov = v
	}
	if ov == nil {
		return nil
	}
	nested, ok := ov.(Nested)
	if !ok {
		return fmt.Errorf("model %s: unsupported override %T for relation %s", r.model.ID, ov, ch.relation.Name)
	}

	inverse, ok := p.dm.Inverse(r.model, ch.relation)
	if !ok {
		return fmt.Errorf("model %s: relation %s has no inverse on %s", r.model.ID, ch.relation.Name, ch.relation.TargetModel)
	}
	target, _ := p.dm.Model(ch.relation.TargetModel)

	overrides := maps.Clone(nested.Overrides)
	if overrides == nil {
		overrides = make(Overrides)
	}
	for i, from := range inverse.FromFields {
		v := parent.Values[inverse.ToFields[i]]
		if core.IsDefault(v) {
			return fmt.Errorf("model %s: cannot link %s children, %s is assigned by the database", r.model.ID, target.ID, inverse.ToFields[i])
		}
		overrides[from] = v
	}

	count := nested.Count
	if !ch.relation.IsList {
		count = Fixed(1)
	}
	seed := r.seed + "/" + ch.relation.Name
	n, err := count.resolve(p.random, seed)
	if err != nil {
		return fmt.Errorf("model %s: relation %s: %w", r.model.ID, ch.relation.Name, err)
	}
	for j := 0; j < n; j++ {
		if _, err := p.create(ctx, c, target, fmt.Sprintf("%s/%d", seed, j), j, overrides, nil); err != nil {
			return err
		}
	}
	return nil
}
