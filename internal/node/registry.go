package node

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/flowrunio/flowrun/internal/parser"
)

// Registry maps node type tags to factories. The built-in set is closed;
// embedders may extend it with their own types before execution starts.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register binds a type tag to a factory.
func (r *Registry) Register(typeTag string, factory Factory) error {
	if typeTag == "" {
		return errors.New("node type cannot be empty")
	}
	if factory == nil {
		return errors.New("factory is nil")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.factories[typeTag]; exists {
		return fmt.Errorf("node type %q already registered", typeTag)
	}
	r.factories[typeTag] = factory
	return nil
}

// Has reports whether a type tag is registered.
func (r *Registry) Has(typeTag string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[typeTag]
	return ok
}

// New constructs a node for the given spec. Unknown types are an error.
func (r *Registry) New(id string, spec *parser.NodeSpec) (Node, error) {
	r.mu.RLock()
	factory, ok := r.factories[spec.Type]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown node type: %s", spec.Type)
	}
	return factory(id, spec)
}

// Types lists the registered type tags, sorted.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.factories))
	for t := range r.factories {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
