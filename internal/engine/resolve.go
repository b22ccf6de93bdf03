package engine

import (
	"context"

	"github.com/rendis/authflow/internal/flow"
	"github.com/rendis/authflow/pkg/schema"
)

// Resolve returns the ID of the state reached from stateID of f when event
// is signalled. Transitions are tried in order; predicates see data.
func Resolve(ctx context.Context, f *flow.Flow, stateID, event string, data map[string]any) (string, error) {
	if f == nil {
		return "", schema.NewError(schema.ErrCodeValidation, "flow is nil")
	}
	s, err := f.TransitionableState(stateID)
	if err != nil {
		return "", err
	}
	_, target, err := selectTransition(ctx, f, s, event, data)
	if err != nil {
		return "", err
	}
	return target.ID, nil
}

func selectTransition(ctx context.Context, f *flow.Flow, s *flow.State, event string, data map[string]any) (*flow.Transition, *flow.State, error) {
	if !s.Transitionable() {
		return nil, nil, schema.NewErrorf(schema.ErrCodeStateKindMismatch,
			"%s state %q has no transitions", s.Kind, s.ID).WithState(s.ID)
	}
	t, err := s.Transitions.Select(ctx, event, data)
	if err != nil {
		return nil, nil, schema.NewErrorf(schema.ErrCodeExecution,
			"transition criteria of state %q failed", s.ID).WithState(s.ID).WithCause(err)
	}
	if t == nil {
		return nil, nil, schema.NewErrorf(schema.ErrCodeNoMatchingTransition,
			"no transition of state %q in flow %q matches event %q", s.ID, f.ID, event).
			WithState(s.ID).
			WithDetails(map[string]any{"flow": f.ID, "event": event})
	}
	target, err := t.Resolve(f)
	if err != nil {
		return nil, nil, err
	}
	return t, target, nil
}
