package flow

import (
	"sync"

	"github.com/rendis/authflow/pkg/schema"
)

// Registry maps flow IDs to flows.
// Thread-safe for concurrent reads and writes.
type Registry struct {
	mu    sync.RWMutex
	flows map[string]*Flow
	order []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{flows: make(map[string]*Flow)}
}

// Register adds f, replacing any flow with the same ID. Returns whether a
// flow was replaced.
func (r *Registry) Register(f *Flow) (replaced bool, err error) {
	if f == nil || f.ID == "" {
		return false, schema.NewError(schema.ErrCodeValidation, "flow must have an id")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, replaced = r.flows[f.ID]; !replaced {
		r.order = append(r.order, f.ID)
	}
	r.flows[f.ID] = f
	return replaced, nil
}

// Get returns the flow with the given ID.
func (r *Registry) Get(id string) (*Flow, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	f, ok := r.flows[id]
	if !ok {
		return nil, schema.NewErrorf(schema.ErrCodeNotFound, "flow %q not registered", id)
	}
	return f, nil
}

// Contains reports whether id is registered.
func (r *Registry) Contains(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.flows[id]
	return ok
}

// IDs returns the registered flow IDs in registration order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Len returns the number of registered flows.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.flows)
}

// Merge registers every flow of source into r in source's ID order. Flows
// with an ID already present in r are overwritten. Returns the overwritten IDs.
func (r *Registry) Merge(source *Registry) []string {
	if source == nil || source == r {
		return nil
	}

	var overwritten []string
	for _, id := range source.IDs() {
		f, err := source.Get(id)
		if err != nil {
			continue
		}
		if replaced, _ := r.Register(f); replaced {
			overwritten = append(overwritten, id)
		}
	}
	return overwritten
}
