package starlark

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"

	"github.com/leapstack-labs/leapseed/internal/fake"
	"github.com/leapstack-labs/leapseed/internal/planner"
	"github.com/leapstack-labs/leapseed/pkg/seeded"
	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// Program is a loaded generators file. Its globals are frozen after
// loading, so generators may run from concurrent sessions.
type Program struct {
	file    string
	globals starlark.StringDict
	pool    *ThreadPool
	random  seeded.Random
	logger  *slog.Logger
}

// Option configures a Program.
type Option func(*Program)

// WithRandom sets the source behind the random and fake modules.
func WithRandom(r seeded.Random) Option {
	return func(p *Program) { p.random = r }
}

// WithLogger sets the logger that receives script print() output.
func WithLogger(l *slog.Logger) Option {
	return func(p *Program) { p.logger = l }
}

// Load reads and executes the generators file at path.
func Load(path string, opts ...Option) (*Program, error) {
	src, err := os.ReadFile(path) //nolint:gosec // path comes from user configuration
	if err != nil {
		return nil, &LoadError{File: path, Message: fmt.Sprintf("failed to read file: %v", err)}
	}
	return Compile(path, src, opts...)
}

// Compile executes src as a generators file named filename.
func Compile(filename string, src []byte, opts ...Option) (*Program, error) {
	p := &Program{file: filename}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.New(slog.DiscardHandler)
	}
	if p.random == nil {
		p.random = seeded.New()
	}
	p.pool = NewThreadPool(0, p.logger)

	predeclared, err := Predeclared(p.random, fake.New(p.random))
	if err != nil {
		return nil, err
	}

	thread := p.pool.Get("load:" + filename)
	defer p.pool.Put(thread)

	globals, err := starlark.ExecFileOptions(&syntax.FileOptions{}, thread, filename, src, predeclared)
	if err != nil {
		return nil, &LoadError{File: filename, Message: fmt.Sprintf("Starlark execution error: %v", err)}
	}
	globals.Freeze()

	// Filter exports (exclude names starting with _)
	p.globals = make(starlark.StringDict)
	for name, value := range globals {
		if !strings.HasPrefix(name, "_") {
			p.globals[name] = value
		}
	}

	p.logger.Debug("loaded generators", slog.String("file", filename), slog.Int("functions", len(p.Functions())))
	return p, nil
}

// File returns the name the program was loaded from.
func (p *Program) File() string {
	return p.file
}

// Functions returns the exported callables, sorted.
func (p *Program) Functions() []string {
	var names []string
	for name, v := range p.globals {
		if _, ok := v.(starlark.Callable); ok {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names
}

// Generator returns a generator that calls the named function with the
// field context and stores its result.
func (p *Program) Generator(name string) (planner.Generator, error) {
	fn, ok := p.globals[name].(starlark.Callable)
	if !ok {
		return nil, &UnknownFunctionError{File: p.file, Name: name, Available: p.Functions()}
	}

	return func(ctx context.Context, fc planner.FieldContext) (any, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		arg, err := FieldContextToStarlark(fc)
		if err != nil {
			return nil, err
		}

		thread := p.pool.Get(fmt.Sprintf("%s:%s.%s", name, fc.Model, fc.Field))
		defer p.pool.Put(thread)
		stop := context.AfterFunc(ctx, func() { thread.Cancel(ctx.Err().Error()) })
		defer stop()

		result, err := starlark.Call(thread, fn, starlark.Tuple{arg}, nil)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			msg := err.Error()
			var evalErr *starlark.EvalError
			if errors.As(err, &evalErr) {
				msg = evalErr.Backtrace()
			}
			return nil, &CallError{File: p.file, Function: name, Message: msg}
		}

		v, err := ToGo(result)
		if err != nil {
			return nil, &CallError{File: p.file, Function: name, Message: err.Error()}
		}
		return v, nil
	}, nil
}
