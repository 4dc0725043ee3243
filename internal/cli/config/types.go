// Package config provides configuration management for the leapseed CLI.
//
// This package extends the shared project configuration from
// internal/config with CLI-specific fields (state path, verbosity, output
// mode and named environments). The shared types are re-exported here via
// type aliases for convenience.
package config

import (
	sharedcfg "github.com/leapstack-labs/leapseed/internal/config"
)

// TargetConfig is an alias for the shared target configuration.
type TargetConfig = sharedcfg.TargetConfig

// ProjectConfig is an alias for the shared project configuration.
type ProjectConfig = sharedcfg.ProjectConfig

// Config holds all CLI configuration options.
type Config struct {
	sharedcfg.ProjectConfig `koanf:",squash"`

	StatePath    string               `koanf:"state_path"`
	NoHistory    bool                 `koanf:"no_history"`
	Environment  string               `koanf:"environment"`
	Verbose      bool                 `koanf:"verbose"`
	OutputFormat string               `koanf:"output"`
	Environments map[string]EnvConfig `koanf:"environments"`

	// ProjectRoot is the directory relative paths resolve against.
	ProjectRoot string `koanf:"-"`
}

// EnvConfig holds environment-specific configuration overrides.
type EnvConfig struct {
	Seed   string        `koanf:"seed"`
	Target *TargetConfig `koanf:"target"`
}

// Project returns the generation settings consumed by the engine.
func (c *Config) Project() *ProjectConfig {
	return &c.ProjectConfig
}

// HistoryPath returns the state database path, or "" when run history is
// turned off.
func (c *Config) HistoryPath() string {
	if c.NoHistory {
		return ""
	}
	return c.StatePath
}

// Default configuration values.
const (
	DefaultDataModelFile  = sharedcfg.DefaultDataModelFile
	DefaultGeneratorsFile = sharedcfg.DefaultGeneratorsFile
	DefaultStateFile      = ".leapseed/state.db"
	DefaultOutput         = "auto" // Auto-detect: TTY=text, non-TTY=markdown
)
