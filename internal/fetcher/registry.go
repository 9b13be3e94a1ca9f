package fetcher

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrUnsupportedKind is returned for a child reference kind no source handles
var ErrUnsupportedKind = errors.New("unsupported child reference kind")

// Registry maps child reference kinds to the source that resolves them.
// Each kind belongs to exactly one source.
type Registry struct {
	mu      sync.RWMutex
	sources map[string]Source
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		sources: make(map[string]Source),
	}
}

// Register claims every kind src handles. Nothing is registered when src
// handles no kind or a kind that is already claimed.
func (r *Registry) Register(src Source) error {
	kinds := src.Kinds()
	if len(kinds) == 0 {
		return fmt.Errorf("source %T handles no kinds", src)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, kind := range kinds {
		if kind == "" {
			return fmt.Errorf("source %T declares an empty kind", src)
		}
		if _, taken := r.sources[kind]; taken {
			return fmt.Errorf("kind %s is already registered", kind)
		}
	}
	for _, kind := range kinds {
		r.sources[kind] = src
	}
	return nil
}

// Get returns the source for kind, or an error wrapping ErrUnsupportedKind
func (r *Registry) Get(kind string) (Source, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	src, ok := r.sources[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedKind, kind)
	}
	return src, nil
}

// Kinds returns the registered kinds, sorted
func (r *Registry) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	kinds := make([]string, 0, len(r.sources))
	for k := range r.sources {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}
