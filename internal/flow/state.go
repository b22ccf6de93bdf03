package flow

import (
	"github.com/rendis/authflow/internal/expressions"
	"github.com/rendis/authflow/pkg/schema"
)

// State is a node of the flow graph. Kind selects which payload fields are
// meaningful; the rest stay zero.
type State struct {
	ID     string
	Kind   schema.StateKind
	FlowID string

	EntryActions []Action
	Transitions  *TransitionSet
	Attributes   map[string]any

	// action
	Actions []Action

	// decision
	Test expressions.Expression

	// view
	View ViewFactory

	// end
	FinalResponse Action
	Output        *Mapper

	// subflow
	Subflow *SubflowSpec
}

func newState(id string, kind schema.StateKind) *State {
	s := &State{ID: id, Kind: kind, Attributes: make(map[string]any)}
	if kind != schema.StateKindEnd {
		s.Transitions = &TransitionSet{}
	}
	return s
}

// NewActionState creates an action state running actions in order.
func NewActionState(id string, actions ...Action) *State {
	s := newState(id, schema.StateKindAction)
	s.Actions = append(s.Actions, actions...)
	return s
}

// NewDecisionState creates a decision state with exactly two transitions:
// test guards thenID, the wildcard else-branch goes to elseID.
func NewDecisionState(id string, test expressions.Expression, thenID, elseID string) *State {
	s := newState(id, schema.StateKindDecision)
	s.Test = test
	s.Transitions.Add(NewTransition(PredicateCriteria(test), thenID))
	s.Transitions.Add(NewTransition(WildcardCriteria(), elseID))
	return s
}

// NewViewState creates a view state rendering the given factory.
func NewViewState(id string, view ViewFactory) *State {
	s := newState(id, schema.StateKindView)
	s.View = view
	return s
}

// NewEndState creates a terminal state. finalResponse may be nil.
func NewEndState(id string, finalResponse Action) *State {
	s := newState(id, schema.StateKindEnd)
	s.FinalResponse = finalResponse
	return s
}

// NewSubflowState creates a state invoking another flow.
func NewSubflowState(id string, sub *SubflowSpec) *State {
	s := newState(id, schema.StateKindSubflow)
	s.Subflow = sub
	return s
}

// Transitionable reports whether the state can carry outgoing transitions.
func (s *State) Transitionable() bool {
	return s.Kind != schema.StateKindEnd
}

// Is reports whether the state is of the given kind.
func (s *State) Is(kind schema.StateKind) bool {
	return s.Kind == kind
}

// SubflowSpec identifies the invoked flow and the boundary mapper.
type SubflowSpec struct {
	FlowID expressions.Expression
	Mapper *AttributeMapper
}
