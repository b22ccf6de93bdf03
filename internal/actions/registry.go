package actions

import (
	"errors"
	"maps"
	"slices"
	"sync"

	"github.com/rendis/authflow/internal/flow"
	"github.com/rendis/authflow/pkg/schema"
)

// Registry maps action names to factories. Safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

func NewRegistry() *Registry {
	return &Registry{factories: map[string]Factory{}}
}

// Register adds f under f.Name(). Names are unique; a second registration
// under the same name is a CONFLICT.
func (r *Registry) Register(f Factory) error {
	switch {
	case f == nil:
		return schema.NewError(schema.ErrCodeValidation, "action factory is nil")
	case f.Name() == "":
		return schema.NewError(schema.ErrCodeValidation, "action name is empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.factories[f.Name()]; dup {
		return schema.NewErrorf(schema.ErrCodeConflict, "action %q already registered", f.Name())
	}
	r.factories[f.Name()] = f
	return nil
}

func (r *Registry) Get(name string) (Factory, error) {
	r.mu.RLock()
	f, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		return nil, schema.NewErrorf(schema.ErrCodeNotFound, "action %q not registered", name)
	}
	return f, nil
}

// Build checks params against the named factory and constructs the action.
// Errors from the factory are tagged with the action name.
func (r *Registry) Build(name string, params map[string]any) (flow.Action, error) {
	f, err := r.Get(name)
	if err != nil {
		return nil, err
	}
	if params == nil {
		params = map[string]any{}
	}
	if err := f.Validate(params); err != nil {
		return nil, tagAction(err, name)
	}
	a, err := f.New(params)
	if err != nil {
		return nil, tagAction(err, name)
	}
	return a, nil
}

func tagAction(err error, name string) error {
	var fe *schema.FlowError
	if !errors.As(err, &fe) {
		return err
	}
	if fe.Details == nil {
		fe.Details = map[string]any{}
	}
	if _, set := fe.Details["action"]; !set {
		fe.Details["action"] = name
	}
	return err
}

// List describes every registered action in name order.
func (r *Registry) List() []ActionInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := slices.Sorted(maps.Keys(r.factories))
	out := make([]ActionInfo, len(names))
	for i, n := range names {
		out[i] = ActionInfo{Name: n, Description: r.factories[n].Schema().Description}
	}
	return out
}

func (r *Registry) Has(name string) bool {
	_, err := r.Get(name)
	return err == nil
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.factories)
}
