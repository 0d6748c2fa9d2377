package indexing

import (
	"fmt"
	"sort"
	"sync"

	"github.com/adfharrison1/wqdb/pkg/domain"
)

// Registry maps map function names to their implementations. View
// definitions refer to map functions by name so that they can be persisted.
type Registry struct {
	mu   sync.RWMutex
	maps map[string]domain.MapFunc
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		maps: make(map[string]domain.MapFunc),
	}
}

// Register adds a map function under name.
func (r *Registry) Register(name string, fn domain.MapFunc) error {
	if name == "" {
		return fmt.Errorf("map function name cannot be empty")
	}
	if fn == nil {
		return fmt.Errorf("map function %s is nil", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.maps[name]; exists {
		return fmt.Errorf("map function %s is already registered", name)
	}
	r.maps[name] = fn
	return nil
}

// Lookup returns the map function registered under name.
func (r *Registry) Lookup(name string) (domain.MapFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.maps[name]
	return fn, ok
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.maps))
	for name := range r.maps {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// resolve returns the map function a definition refers to.
func (r *Registry) resolve(def domain.ViewDefinition) (domain.MapFunc, error) {
	if def.IsFieldIndex() {
		return FieldMap(def.Field), nil
	}
	fn, ok := r.Lookup(def.Map)
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownMapFunction, def.Map)
	}
	return fn, nil
}
