package flow

import (
	"github.com/rendis/authflow/internal/expressions"
	"github.com/rendis/authflow/pkg/schema"
)

// Variable is a flow-scoped variable initialised when an execution starts.
type Variable struct {
	Name    string
	Initial expressions.Expression // nil initialises to nil
}

// Flow is a named graph of states with a designated start state.
type Flow struct {
	ID string

	states       map[string]*State
	order        []string
	startStateID string

	Variables    []Variable
	StartActions []Action
	Attributes   map[string]any
}

// New creates an empty flow.
func New(id string) *Flow {
	return &Flow{
		ID:         id,
		states:     make(map[string]*State),
		Attributes: make(map[string]any),
	}
}

// ContainsState reports whether a state with the given ID exists.
func (f *Flow) ContainsState(id string) bool {
	_, ok := f.states[id]
	return ok
}

// State returns the state with the given ID.
func (f *Flow) State(id string) (*State, bool) {
	s, ok := f.states[id]
	return s, ok
}

// TransitionableState returns the state with the given ID if it can carry
// outgoing transitions.
func (f *Flow) TransitionableState(id string) (*State, error) {
	s, ok := f.states[id]
	if !ok {
		return nil, schema.NewErrorf(schema.ErrCodeNotFound, "state %q not found in flow %q", id, f.ID)
	}
	if !s.Transitionable() {
		return nil, schema.NewErrorf(schema.ErrCodeStateKindMismatch,
			"state %q in flow %q is a %s state and has no transitions", id, f.ID, s.Kind).WithState(id)
	}
	return s, nil
}

// AddState adds s to the flow. IDs are unique within a flow.
func (f *Flow) AddState(s *State) error {
	if s == nil || s.ID == "" {
		return schema.NewError(schema.ErrCodeValidation, "state must have an id")
	}
	if _, ok := f.states[s.ID]; ok {
		return schema.NewErrorf(schema.ErrCodeConflict, "state %q already exists in flow %q", s.ID, f.ID).WithState(s.ID)
	}
	s.FlowID = f.ID
	f.states[s.ID] = s
	f.order = append(f.order, s.ID)
	if f.startStateID == "" {
		f.startStateID = s.ID
	}
	return nil
}

// StateIDs returns state IDs in insertion order.
func (f *Flow) StateIDs() []string {
	return append([]string(nil), f.order...)
}

// States returns the states in insertion order.
func (f *Flow) States() []*State {
	out := make([]*State, 0, len(f.order))
	for _, id := range f.order {
		out = append(out, f.states[id])
	}
	return out
}

// StateCount returns the number of states.
func (f *Flow) StateCount() int {
	return len(f.states)
}

// StartStateID returns the symbolic start state. The first state added is
// the start state unless SetStartState says otherwise.
func (f *Flow) StartStateID() string {
	return f.startStateID
}

// SetStartState sets the start state by ID. The state need not exist yet.
func (f *Flow) SetStartState(id string) {
	f.startStateID = id
}

// StartState resolves the start state.
func (f *Flow) StartState() (*State, error) {
	if f.startStateID == "" {
		return nil, schema.NewErrorf(schema.ErrCodeNotFound, "flow %q has no start state", f.ID)
	}
	s, ok := f.states[f.startStateID]
	if !ok {
		return nil, schema.NewErrorf(schema.ErrCodeUnresolvedTarget,
			"start state %q of flow %q does not exist", f.startStateID, f.ID)
	}
	return s, nil
}

// AddVariable declares a flow variable; redeclaring a name replaces it.
// Names shadowing flow, request or event are rejected.
func (f *Flow) AddVariable(v Variable) error {
	if v.Name == "" {
		return schema.NewErrorf(schema.ErrCodeValidation, "flow %q: variable name is empty", f.ID)
	}
	if expressions.IsReservedKey(v.Name) {
		return schema.NewErrorf(schema.ErrCodeValidation,
			"flow %q: variable %q uses a reserved name", f.ID, v.Name).
			WithDetails(map[string]any{"variable": v.Name})
	}
	for i := range f.Variables {
		if f.Variables[i].Name == v.Name {
			f.Variables[i] = v
			return nil
		}
	}
	f.Variables = append(f.Variables, v)
	return nil
}
