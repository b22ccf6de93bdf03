package builder

import (
	"github.com/rendis/authflow/internal/expressions"
	"github.com/rendis/authflow/internal/flow"
	"github.com/rendis/authflow/internal/logging"
	"github.com/rendis/authflow/internal/views"
	"github.com/rendis/authflow/pkg/schema"
)

// CreateActionState returns the action state id of f, creating it with the
// given actions if absent. An existing state is returned unchanged.
func (b *Builder) CreateActionState(f *flow.Flow, id string, acts ...flow.Action) (*flow.State, error) {
	if s, ok, err := b.existing(f, id, schema.StateKindAction); ok || err != nil {
		return s, err
	}
	return b.add(f, flow.NewActionState(id, acts...))
}

// CreateViewState creates a view state rendering the literal view viewID.
func (b *Builder) CreateViewState(f *flow.Flow, id, viewID string) (*flow.State, error) {
	return b.CreateViewStateExpr(f, id, expressions.Literal(viewID, expressions.TypeString))
}

// CreateViewStateExpr creates a view state whose view ID is computed by
// expr at render time.
func (b *Builder) CreateViewStateExpr(f *flow.Flow, id string, expr expressions.Expression) (*flow.State, error) {
	if s, ok, err := b.existing(f, id, schema.StateKindView); ok || err != nil {
		return s, err
	}
	vf, err := b.views.CreateViewFactory(expr)
	if err != nil {
		return nil, b.creationFailed(f, id, schema.StateKindView, err)
	}
	return b.add(f, flow.NewViewState(id, vf))
}

// CreateEndState creates an end state rendering the literal view viewID on
// completion. An empty viewID creates an end state with no final response.
func (b *Builder) CreateEndState(f *flow.Flow, id, viewID string) (*flow.State, error) {
	if viewID == "" {
		return b.CreateEndStateWithFactory(f, id, nil)
	}
	return b.CreateEndStateExpr(f, id, expressions.Literal(viewID, expressions.TypeString))
}

// CreateEndStateExpr creates an end state whose view ID is computed by expr.
func (b *Builder) CreateEndStateExpr(f *flow.Flow, id string, expr expressions.Expression) (*flow.State, error) {
	if s, ok, err := b.existing(f, id, schema.StateKindEnd); ok || err != nil {
		return s, err
	}
	vf, err := b.views.CreateViewFactory(expr)
	if err != nil {
		return nil, b.creationFailed(f, id, schema.StateKindEnd, err)
	}
	return b.CreateEndStateWithFactory(f, id, vf)
}

// CreateEndStateWithFactory creates an end state whose final response renders
// vf exactly once. vf may be nil.
func (b *Builder) CreateEndStateWithFactory(f *flow.Flow, id string, vf flow.ViewFactory) (*flow.State, error) {
	if s, ok, err := b.existing(f, id, schema.StateKindEnd); ok || err != nil {
		return s, err
	}
	var final flow.Action
	if vf != nil {
		final = views.NewFinalResponseAction(vf)
	}
	return b.add(f, flow.NewEndState(id, final))
}

// CreateDecisionState creates a binary decision: predicate true goes to
// thenID, anything else falls through the wildcard to elseID.
func (b *Builder) CreateDecisionState(f *flow.Flow, id string, predicate expressions.Expression, thenID, elseID string) (*flow.State, error) {
	if s, ok, err := b.existing(f, id, schema.StateKindDecision); ok || err != nil {
		return s, err
	}
	if predicate == nil || thenID == "" || elseID == "" {
		return nil, b.creationFailed(f, id, schema.StateKindDecision,
			schema.NewError(schema.ErrCodeValidation, "decision needs a predicate and both targets"))
	}
	s, err := b.add(f, flow.NewDecisionState(id, predicate, thenID, elseID))
	if err != nil {
		return nil, err
	}
	b.metrics.TransitionAdded(flow.CriteriaPredicate.String())
	b.metrics.TransitionAdded(flow.CriteriaWildcard.String())
	return s, nil
}

// CreateSubflowState creates a state invoking the flow registered under
// subflowID. The ID is looked up when the state executes, not now.
// entryAction may be nil.
func (b *Builder) CreateSubflowState(f *flow.Flow, id, subflowID string, entryAction flow.Action) (*flow.State, error) {
	if s, ok, err := b.existing(f, id, schema.StateKindSubflow); ok || err != nil {
		return s, err
	}
	if subflowID == "" {
		return nil, b.creationFailed(f, id, schema.StateKindSubflow,
			schema.NewError(schema.ErrCodeValidation, "subflow id is empty"))
	}
	s := flow.NewSubflowState(id, &flow.SubflowSpec{
		FlowID: expressions.Literal(subflowID, expressions.TypeString),
	})
	if entryAction != nil {
		s.EntryActions = append(s.EntryActions, entryAction)
	}
	return b.add(f, s)
}

// existing returns the state id if f already holds it. ok is true when the
// caller must not create a new state.
func (b *Builder) existing(f *flow.Flow, id string, kind schema.StateKind) (s *flow.State, ok bool, err error) {
	if f == nil {
		return nil, true, schema.NewError(schema.ErrCodeValidation, "flow is nil").WithState(id)
	}
	if id == "" {
		return nil, true, schema.NewErrorf(schema.ErrCodeValidation, "%s state id is empty", kind)
	}
	s, found := f.State(id)
	if !found {
		return nil, false, nil
	}
	if !s.Is(kind) {
		return nil, true, schema.NewErrorf(schema.ErrCodeStateKindMismatch,
			"state %q in flow %q is a %s state, not %s", id, f.ID, s.Kind, kind).
			WithState(id).
			WithDetails(map[string]any{"existing": string(s.Kind), "requested": string(kind)})
	}
	b.log.Debug("state already exists, reusing",
		logging.KeyFlowID, f.ID, logging.KeyStateID, id, "kind", string(kind))
	b.metrics.StateReused(string(kind))
	return s, true, nil
}

func (b *Builder) add(f *flow.Flow, s *flow.State) (*flow.State, error) {
	if err := f.AddState(s); err != nil {
		return nil, err
	}
	b.log.Debug("state created",
		logging.KeyFlowID, f.ID, logging.KeyStateID, s.ID, "kind", string(s.Kind))
	b.metrics.StateCreated(string(s.Kind))
	return s, nil
}

func (b *Builder) creationFailed(f *flow.Flow, id string, kind schema.StateKind, cause error) error {
	b.log.Error("state creation failed",
		logging.KeyFlowID, f.ID, logging.KeyStateID, id, "kind", string(kind), "error", cause)
	if schema.IsCode(cause, schema.ErrCodeStateCreation) {
		return cause
	}
	return schema.NewErrorf(schema.ErrCodeStateCreation, "cannot create %s state %q", kind, id).
		WithState(id).WithCause(cause)
}
