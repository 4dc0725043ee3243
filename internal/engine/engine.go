// Package engine runs configured generation plans.
// It loads the data model and generators, drives a seed session through the
// plan steps, optionally executes the statements on a target database, and
// records every run in the state store.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sync"

	"github.com/leapstack-labs/leapseed/internal/config"
	"github.com/leapstack-labs/leapseed/internal/dag"
	"github.com/leapstack-labs/leapseed/internal/loader"
	"github.com/leapstack-labs/leapseed/internal/planner"
	"github.com/leapstack-labs/leapseed/internal/starlark"
	"github.com/leapstack-labs/leapseed/internal/state"
	"github.com/leapstack-labs/leapseed/pkg/adapter"
	"github.com/leapstack-labs/leapseed/pkg/core"
	"github.com/leapstack-labs/leapseed/pkg/dialect"
	"github.com/leapstack-labs/leapseed/pkg/seeded"

	// Register built-in adapters and dialects.
	_ "github.com/leapstack-labs/leapseed/pkg/adapters/duckdb"
	_ "github.com/leapstack-labs/leapseed/pkg/adapters/mysql"
	_ "github.com/leapstack-labs/leapseed/pkg/adapters/postgres"
	_ "github.com/leapstack-labs/leapseed/pkg/adapters/sqlite"
	_ "github.com/leapstack-labs/leapseed/pkg/dialects"
)

// Config holds engine configuration.
type Config struct {
	// Project holds seed, dialect, target, field sources and the plan.
	Project *config.ProjectConfig
	// DataModel overrides loading Project.DataModel from disk (optional).
	DataModel *core.DataModel
	// StatePath is the path to the SQLite state database. Empty disables
	// run history.
	StatePath string
	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
}

// Engine orchestrates generation runs.
type Engine struct {
	// Database adapter (lazy initialized)
	db          adapter.Adapter
	dbConnected bool
	dbMu        sync.Mutex

	logger     *slog.Logger
	store      state.Store
	project    *config.ProjectConfig
	dm         *core.DataModel
	program    *starlark.Program
	userModels planner.UserModels
	resolver   *config.Resolver
}

// New creates a new engine with lazy database connection.
// The target is only connected when a run executes its statements.
func New(cfg Config) (*Engine, error) {
	// Initialize logger (use discard handler if nil)
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	project := cfg.Project
	if project == nil {
		project = &config.ProjectConfig{}
	}

	dm := cfg.DataModel
	if dm == nil {
		path := project.DataModel
		if path == "" {
			path = config.DefaultDataModelFile
		}
		logger.Debug("loading data model", slog.String("path", path))
		var err error
		if dm, err = loader.LoadDataModel(path); err != nil {
			return nil, err
		}
	}
	if err := dm.Validate(); err != nil {
		return nil, fmt.Errorf("invalid data model: %w", err)
	}

	program, err := loadGenerators(project.Generators, logger)
	if err != nil {
		return nil, err
	}

	resolver := config.NewResolver(dm, program, seeded.New())
	userModels, err := resolver.UserModels(project.Models)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		logger:     logger,
		project:    project,
		dm:         dm,
		program:    program,
		userModels: userModels,
		resolver:   resolver,
	}

	if cfg.StatePath != "" {
		store := state.NewSQLiteStore(logger)
		if err := store.Open(cfg.StatePath); err != nil {
			return nil, fmt.Errorf("failed to open state store: %w", err)
		}
		if err := store.Migrate(); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("failed to migrate state store: %w", err)
		}
		e.store = store
	}
	return e, nil
}

// loadGenerators loads the generators file. A missing default file is not
// an error.
func loadGenerators(path string, logger *slog.Logger) (*starlark.Program, error) {
	explicit := path != ""
	if !explicit {
		path = config.DefaultGeneratorsFile
	}
	if _, err := os.Stat(path); err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to access generators file: %w", err)
	}
	return starlark.Load(path, starlark.WithLogger(logger))
}

// ensureDBConnected lazily connects to the target database.
func (e *Engine) ensureDBConnected(ctx context.Context) error {
	e.dbMu.Lock()
	defer e.dbMu.Unlock()

	if e.dbConnected {
		return nil
	}
	target := e.project.Target
	if target == nil || target.Type == "" {
		return errors.New("no target configured: set target.type in leapseed.yaml")
	}

	e.logger.Debug("connecting to database", slog.String("adapter_type", target.Type))

	// Use adapter registry to create the appropriate adapter
	db, err := adapter.NewAdapter(*target, e.logger)
	if err != nil {
		return fmt.Errorf("failed to create database adapter: %w", err)
	}
	if err := db.Connect(ctx, *target); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	e.db = db
	e.dbConnected = true
	e.logger.Debug("database connected", slog.String("dialect", db.DialectName()))
	return nil
}

// SetAdapter uses an already connected adapter as the target.
func (e *Engine) SetAdapter(a adapter.Adapter) {
	e.dbMu.Lock()
	defer e.dbMu.Unlock()
	e.db = a
	e.dbConnected = a != nil
}

// dialectName picks the dialect: explicit setting, then the connected
// target, then the configured target type, then the default.
func (e *Engine) dialectName(execute bool) string {
	switch {
	case e.project.Dialect != "":
		return e.project.Dialect
	case execute && e.db != nil:
		return e.db.DialectName()
	case e.project.Target != nil && e.project.Target.Type != "":
		if _, ok := dialect.Get(e.project.Target.Type); ok {
			return e.project.Target.Type
		}
	}
	return config.DefaultDialect
}

// Close releases all resources.
func (e *Engine) Close() error {
	e.logger.Debug("closing engine")

	var errs []error
	if e.db != nil {
		if err := e.db.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if e.store != nil {
		if err := e.store.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// DataModel returns the loaded data model.
func (e *Engine) DataModel() *core.DataModel {
	return e.dm
}

// Program returns the loaded generators, or nil.
func (e *Engine) Program() *starlark.Program {
	return e.program
}

// StateStore returns the state store, or nil when history is disabled.
func (e *Engine) StateStore() state.Store {
	return e.store
}

// Levels returns the models grouped by insertion level. Models in one
// level only depend on earlier levels.
func (e *Engine) Levels() ([][]string, error) {
	return e.Graph().GetExecutionLevels()
}

// History lists the most recent runs.
func (e *Engine) History(ctx context.Context, limit int) ([]*state.Run, error) {
	if e.store == nil {
		return nil, errors.New("run history is disabled")
	}
	return e.store.ListRuns(ctx, limit)
}

// Graph returns the model dependency graph.
func (e *Engine) Graph() *dag.Graph {
	return dag.FromDataModel(e.dm)
}
