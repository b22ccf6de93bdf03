package builder

import (
	"github.com/rendis/authflow/internal/expressions"
	"github.com/rendis/authflow/internal/flow"
	"github.com/rendis/authflow/internal/logging"
	"github.com/rendis/authflow/pkg/schema"
)

// CreateTransition creates a transition matching outcome exactly, or any
// outcome when outcome is "*".
func (b *Builder) CreateTransition(outcome, target string) *flow.Transition {
	return flow.NewTransition(flow.LiteralCriteria(outcome), target)
}

// CreateTransitionExpr creates a transition from an outcome expression. "*"
// is a wildcard, a literal matches its value exactly and any other
// expression becomes a predicate evaluated against the request data.
func (b *Builder) CreateTransitionExpr(outcome expressions.Expression, target string) *flow.Transition {
	switch {
	case outcome == nil || outcome.String() == schema.WildcardEventID:
		return b.CreateDefaultTransition(target)
	case expressions.IsLiteral(outcome):
		return b.CreateTransition(outcome.String(), target)
	default:
		return flow.NewTransition(flow.PredicateCriteria(outcome), target)
	}
}

// ParseTransition creates a transition from its textual form: an outcome
// carrying a dialect prefix ("cel:", "jq:", "expr:") is compiled as a
// boolean predicate, anything else is a literal outcome.
func (b *Builder) ParseTransition(on, target string) (*flow.Transition, error) {
	if b.parser == nil || !b.parser.HasDialect(on) {
		return b.CreateTransition(on, target), nil
	}
	expr, err := b.parser.Parse(on, expressions.TypeBool)
	if err != nil {
		return nil, err
	}
	return b.CreateTransitionExpr(expr, target), nil
}

// CreateDefaultTransition creates an unconditional transition to target.
func (b *Builder) CreateDefaultTransition(target string) *flow.Transition {
	return flow.NewTransition(flow.WildcardCriteria(), target)
}

// AddTransition attaches a literal transition on outcome to state.
func (b *Builder) AddTransition(state *flow.State, outcome, target string) error {
	if outcome == "" {
		return schema.NewError(schema.ErrCodeValidation, "transition outcome is empty").WithState(stateID(state))
	}
	return b.AttachTransition(state, b.CreateTransition(outcome, target))
}

// AttachTransition adds t to state's transition set. A duplicate literal
// or predicate is ignored; a wildcard replaces the previous one.
func (b *Builder) AttachTransition(state *flow.State, t *flow.Transition) error {
	if state == nil {
		return schema.NewError(schema.ErrCodeValidation, "cannot add transition to nil state")
	}
	if t == nil || t.Target == "" {
		return schema.NewError(schema.ErrCodeValidation, "transition target is empty").WithState(state.ID)
	}
	if !state.Transitionable() {
		return schema.NewErrorf(schema.ErrCodeStateKindMismatch,
			"%s state %q cannot hold transitions", state.Kind, state.ID).WithState(state.ID)
	}
	if !state.Transitions.Add(t) {
		b.log.Debug("transition already present",
			logging.KeyFlowID, state.FlowID, logging.KeyStateID, state.ID, "on", t.Criteria.String())
		return nil
	}
	b.log.Debug("transition added",
		logging.KeyFlowID, state.FlowID, logging.KeyStateID, state.ID,
		"on", t.Criteria.String(), "to", t.Target)
	b.metrics.TransitionAdded(t.Criteria.Kind.String())
	return nil
}

// AddDefaultTransition attaches an unconditional transition to target. A nil
// state is logged and ignored.
func (b *Builder) AddDefaultTransition(state *flow.State, target string) {
	if state == nil {
		b.log.Debug("state is nil, default transition not added", "to", target)
		return
	}
	if err := b.AttachTransition(state, b.CreateDefaultTransition(target)); err != nil {
		b.log.Debug("default transition not added",
			logging.KeyFlowID, state.FlowID, logging.KeyStateID, state.ID, "error", err)
	}
}

func stateID(s *flow.State) string {
	if s == nil {
		return ""
	}
	return s.ID
}
