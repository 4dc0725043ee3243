package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/leapseed/internal/config"
	"github.com/leapstack-labs/leapseed/internal/emitter"
	"github.com/leapstack-labs/leapseed/internal/planner"
	"github.com/leapstack-labs/leapseed/internal/state"
	"github.com/leapstack-labs/leapseed/pkg/core"
	"github.com/leapstack-labs/leapseed/pkg/seed"
)

// Options selects how a run treats the target and earlier runs.
type Options struct {
	// Execute runs the statements on the configured target after syncing
	// sequences from it.
	Execute bool
	// Resume starts sequences where the latest completed run left them.
	Resume bool
	// Seed overrides the configured seed.
	Seed string
}

// Result is the outcome of one run.
type Result struct {
	// Run is nil when history is disabled.
	Run      *state.Run
	Dialect  string
	Batch    *emitter.Batch
	Rows     map[string]int
	Executed bool
}

// Statements returns the emitted statements in execution order.
func (r *Result) Statements() []string {
	if r.Batch == nil {
		return nil
	}
	return r.Batch.Statements()
}

// Generate runs every plan step in one session and renders the rows.
func (e *Engine) Generate(ctx context.Context, opts Options) (*Result, error) {
	if len(e.project.Plan) == 0 {
		return nil, fmt.Errorf("plan is empty: add plan steps to leapseed.yaml")
	}
	seedValue := e.project.Seed
	if opts.Seed != "" {
		seedValue = opts.Seed
	}

	if opts.Execute {
		// Ensure database is connected before execution
		if err := e.ensureDBConnected(ctx); err != nil {
			return nil, err
		}
	}

	res := &Result{Dialect: e.dialectName(opts.Execute)}
	e.logger.Info("starting run", slog.String("seed", seedValue), slog.String("dialect", res.Dialect), slog.Bool("execute", opts.Execute))

	if e.store != nil {
		run, err := e.store.CreateRun(ctx, seedValue, res.Dialect)
		if err != nil {
			return nil, fmt.Errorf("failed to create run: %w", err)
		}
		res.Run = run
		e.logger.Debug("created run", slog.String("run_id", run.ID))
	}

	client, err := e.run(ctx, seedValue, opts, res)
	if e.store != nil {
		result := state.Result{
			Status:     state.RunStatusCompleted,
			Statements: res.Batch.Len(),
			Executed:   res.Executed,
			Rows:       res.Rows,
		}
		if client != nil {
			result.Sequences = client.Sequences()
		}
		if err != nil {
			result.Status = state.RunStatusFailed
			result.Error = err.Error()
		}
		if cerr := e.store.CompleteRun(ctx, res.Run.ID, result); cerr != nil {
			e.logger.Warn("failed to record run", slog.String("run_id", res.Run.ID), slog.String("error", cerr.Error()))
		}
		if run, gerr := e.store.GetRun(ctx, res.Run.ID); gerr == nil {
			res.Run = run
		}
	}
	if err != nil {
		e.logger.Info("run failed", slog.String("error", err.Error()))
		return res, err
	}

	e.logger.Info("run completed", slog.Int("statements", res.Batch.Len()))
	return res, nil
}

func (e *Engine) run(ctx context.Context, seedValue string, opts Options, res *Result) (*seed.Client, error) {
	res.Batch = &emitter.Batch{}

	clientOpts := []seed.Option{
		seed.WithSeed(seedValue),
		seed.WithUserModels(e.userModels),
		seed.WithDialectName(res.Dialect),
		seed.WithLogger(e.logger),
	}
	if opts.Execute {
		clientOpts = append(clientOpts, seed.WithSink(e.db))
	}
	client, err := seed.New(e.dm, clientOpts...)
	if err != nil {
		return nil, err
	}

	if opts.Resume {
		if err := e.resume(ctx, client); err != nil {
			return client, err
		}
	}
	if opts.Execute {
		// Live values win over resumed ones.
		if _, err := client.SyncSequencesFromSink(ctx); err != nil {
			return client, err
		}
	}

	for i, step := range e.project.Plan {
		if err := e.step(ctx, client, step); err != nil {
			return client, fmt.Errorf("plan step %d (%s): %w", i+1, step.Model, err)
		}
	}
	res.Rows = rowCounts(client.Rows())

	if opts.Execute {
		b, err := client.Flush(ctx)
		if err != nil {
			return client, err
		}
		res.Batch = b
		res.Executed = true
		return client, nil
	}

	b, err := client.Plan()
	if err != nil {
		return client, err
	}
	res.Batch = b
	return client, nil
}

func (e *Engine) resume(ctx context.Context, client *seed.Client) error {
	if e.store == nil {
		return fmt.Errorf("cannot resume: run history is disabled")
	}
	last, err := e.store.LatestCompletedRun(ctx)
	if err != nil {
		return fmt.Errorf("failed to read latest run: %w", err)
	}
	if last == nil {
		e.logger.Debug("no completed run to resume from")
		return nil
	}
	client.SyncSequences(last.Sequences)
	e.logger.Debug("resumed sequences", slog.String("run_id", last.ID), slog.Int("count", len(last.Sequences)))
	return nil
}

// step runs one plan step.
func (e *Engine) step(ctx context.Context, client *seed.Client, step config.PlanStep) error {
	count, err := step.RowCount()
	if err != nil {
		return err
	}
	overrides, err := e.resolver.Overrides(step)
	if err != nil {
		return err
	}
	connect, err := e.connectOptions(client, step.Connect)
	if err != nil {
		return err
	}

	e.logger.Debug("running plan step", slog.String("model", step.Model), slog.Int("min", count.Min), slog.Int("max", count.Max))
	_, err = client.Generate(ctx, step.Model, count, overrides, connect)
	return err
}

// connectOptions builds candidate pools from the rows committed so far.
func (e *Engine) connectOptions(client *seed.Client, targets []string) (planner.ConnectOptions, error) {
	var opts planner.ConnectOptions
	for _, target := range targets {
		if target == config.ConnectAll {
			opts.Existing = true
			continue
		}
		if _, ok := e.dm.Model(target); !ok {
			return opts, fmt.Errorf("connect: unknown model %q", target)
		}
		if opts.Pools == nil {
			opts.Pools = make(map[string][]core.Row)
		}
		opts.Pools[target] = client.Model(target).Rows()
	}
	return opts, nil
}

func rowCounts(rs core.RowSet) map[string]int {
	out := make(map[string]int, len(rs))
	for model, rows := range rs {
		out[model] = len(rows)
	}
	return out
}
