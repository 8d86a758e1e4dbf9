package schema

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/systmms/azadapter/internal/logging"
)

// ErrUnknownNamespace is returned by Get for a namespace with no loader.
var ErrUnknownNamespace = errors.New("unknown schema namespace")

// Loader populates a freshly created Context.
type Loader func(*Context) error

// Registry caches one Context per namespace. It is safe for concurrent use;
// a single mutex covers lookup and creation so each namespace is loaded at
// most once between evictions.
type Registry struct {
	mu       sync.Mutex
	loaders  map[string]Loader
	contexts map[string]*Context
	logger   *logging.Logger
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithLogger sets the logger used to report context loads.
func WithLogger(l *logging.Logger) RegistryOption {
	return func(r *Registry) {
		r.logger = l
	}
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		loaders:  make(map[string]Loader),
		contexts: make(map[string]*Context),
		logger:   logging.Discard(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Define sets the loader for namespace. Redefining a namespace evicts any
// cached context for it.
func (r *Registry) Define(namespace string, loader Loader) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.loaders[namespace] = loader
	delete(r.contexts, namespace)
}

// Get returns the cached context for namespace, loading it on first use.
// A failed load is not cached.
func (r *Registry) Get(namespace string) (*Context, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c, ok := r.contexts[namespace]; ok {
		return c, nil
	}

	loader, ok := r.loaders[namespace]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownNamespace, namespace)
	}

	c := newContext(namespace)
	if err := loader(c); err != nil {
		return nil, fmt.Errorf("load schema %q: %w", namespace, err)
	}

	r.logger.Debug("loaded schema context %s with %d types", namespace, len(c.bindings))
	r.contexts[namespace] = c
	return c, nil
}

// Lookup returns the cached context without loading it.
func (r *Registry) Lookup(namespace string) (*Context, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.contexts[namespace]
	return c, ok
}

// Evict drops the cached context for namespace. The next Get reloads it.
func (r *Registry) Evict(namespace string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.contexts[namespace]; !ok {
		return false
	}
	delete(r.contexts, namespace)
	r.logger.Debug("evicted schema context %s", namespace)
	return true
}

// Cached returns the namespaces with a loaded context, sorted.
func (r *Registry) Cached() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.contexts))
	for ns := range r.contexts {
		names = append(names, ns)
	}
	sort.Strings(names)
	return names
}
