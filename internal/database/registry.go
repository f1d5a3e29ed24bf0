package database

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
)

// Backend names registered by DefaultRegistry.
const (
	SQLite     = "sqlite"
	PostgreSQL = "postgresql"
	MySQL      = "mysql"
	Redis      = "redis"
)

// Factory builds an unconnected Store.
type Factory func(creds Credentials, opts Options) (Store, error)

// Registry maps backend names to factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
	fallback  string
}

// NewRegistry creates an empty registry. Unknown backend names passed to
// Open resolve to fallback.
func NewRegistry(fallback string) *Registry {
	return &Registry{
		factories: make(map[string]Factory),
		fallback:  fallback,
	}
}

// DefaultRegistry returns a registry holding the sqlite, postgresql, mysql
// and redis backends, with sqlite as the fallback.
func DefaultRegistry() *Registry {
	r := NewRegistry(SQLite)
	r.Register(SQLite, NewSQLite)
	r.Register(PostgreSQL, NewPostgres)
	r.Register(MySQL, NewMySQL)
	r.Register(Redis, NewRedis)
	return r
}

// Register adds or replaces a backend.
func (r *Registry) Register(name string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[strings.ToLower(name)] = f
}

// Names returns the registered backend names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.namesLocked()
}

// Default returns the fallback backend name.
func (r *Registry) Default() string {
	return r.fallback
}

// Open builds the Store named by creds.Type. An empty or unknown type falls
// back to the registry default with a warning.
func (r *Registry) Open(creds Credentials, opts Options) (Store, error) {
	opts = opts.withDefaults()

	name := strings.ToLower(strings.TrimSpace(creds.Type))

	r.mu.RLock()
	factory, ok := r.factories[name]
	if !ok {
		if name != "" {
			opts.Logger.Warn("database type is not supported, using the default",
				"type", creds.Type, "default", r.fallback, "supported", strings.Join(r.namesLocked(), ", "))
		}
		name = r.fallback
		factory, ok = r.factories[name]
	}
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("no database backend registered for %q", name)
	}
	creds.Type = name
	return factory(creds, opts)
}

func (r *Registry) namesLocked() []string {
	return slices.Sorted(maps.Keys(r.factories))
}
