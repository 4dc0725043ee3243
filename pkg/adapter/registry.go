package adapter

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
)

// Factory constructs an unconnected adapter.
type Factory func(*slog.Logger) Adapter

var (
	registryMu sync.RWMutex
	factories  = make(map[string]Factory)
	aliases    = make(map[string]string)
)

// Register adds a sink factory under name and any aliases. Names are
// case-insensitive. Called by adapter packages in their init() functions.
func Register(name string, factory Factory, alias ...string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	name = strings.ToLower(name)
	factories[name] = factory
	for _, a := range alias {
		aliases[strings.ToLower(a)] = name
	}
}

// Canonical maps a target type or one of its aliases to the registered
// name. The second result is false when nothing is registered under t.
func Canonical(t string) (string, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return canonical(t)
}

func canonical(t string) (string, bool) {
	t = strings.ToLower(strings.TrimSpace(t))
	if name, ok := aliases[t]; ok {
		t = name
	}
	_, ok := factories[t]
	return t, ok
}

// Get retrieves a factory by name or alias.
func Get(name string) (Factory, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	name, ok := canonical(name)
	if !ok {
		return nil, false
	}
	return factories[name], true
}

// NewAdapter creates the sink for a target. The logger is passed to the
// adapter constructor (nil uses a discard logger).
func NewAdapter(cfg Config, logger *slog.Logger) (Adapter, error) {
	if cfg.Type == "" {
		return nil, fmt.Errorf("adapter type not specified")
	}

	factory, ok := Get(cfg.Type)
	if !ok {
		return nil, &UnknownAdapterError{
			Type:      cfg.Type,
			Available: ListAdapters(),
		}
	}
	return factory(logger), nil
}

// ListAdapters returns the registered names, sorted. Aliases are not listed.
func ListAdapters() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// IsRegistered reports whether t names a registered sink or alias.
func IsRegistered(t string) bool {
	_, ok := Canonical(t)
	return ok
}

// UnknownAdapterError is returned for a target type no sink is registered for.
type UnknownAdapterError struct {
	Type      string
	Available []string
}

func (e *UnknownAdapterError) Error() string {
	return fmt.Sprintf("unknown target type %q (available: %s); check target.type in leapseed.yaml",
		e.Type, strings.Join(e.Available, ", "))
}
