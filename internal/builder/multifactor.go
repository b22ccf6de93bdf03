package builder

import (
	"github.com/rendis/authflow/internal/flow"
	"github.com/rendis/authflow/internal/logging"
	"github.com/rendis/authflow/pkg/schema"
)

// RegisterMultifactorProviderFlow splices the provider flow subflowID into
// f. A subflow state named after the provider is created, its success
// transition rejoins wherever realSubmit's success transition goes, and
// both realSubmit and the initial validation check divert to it on the
// event subflowID. The provider's own flows are merged from source.
//
// Preconditions are checked before f is touched; a violation returns
// PRECONDITION_FAILED and leaves f unchanged.
func (b *Builder) RegisterMultifactorProviderFlow(f *flow.Flow, subflowID string, source *flow.Registry) error {
	submit, check, rejoin, err := b.multifactorPreconditions(f, subflowID)
	if err != nil {
		return err
	}

	state, err := b.CreateSubflowState(f, subflowID, subflowID, nil)
	if err != nil {
		return err
	}
	if state.Subflow.Mapper == nil {
		state.Subflow.Mapper = b.CreateSubflowAttributeMapper(b.CreateMapperToSubflowState(), nil)
	}

	b.addOrLog(state, schema.TransitionSuccess, rejoin)
	b.addOrLog(submit, subflowID, subflowID)
	b.MergeIntoLoginRegistry(source)
	b.addOrLog(check, subflowID, subflowID)

	b.log.Info("multifactor provider registered",
		logging.KeyFlowID, f.ID, "provider", subflowID, "rejoin", rejoin)
	return nil
}

func (b *Builder) multifactorPreconditions(f *flow.Flow, subflowID string) (submit, check *flow.State, rejoin string, err error) {
	fail := func(format string, args ...any) (*flow.State, *flow.State, string, error) {
		return nil, nil, "", schema.NewErrorf(schema.ErrCodePrecondition, format, args...).
			WithDetails(map[string]any{"provider": subflowID})
	}

	if f == nil {
		return fail("flow is nil")
	}
	if subflowID == "" {
		return fail("provider flow id is empty")
	}

	submit, ok := f.State(schema.StateRealSubmit)
	if !ok || !submit.Is(schema.StateKindAction) {
		return fail("flow %q has no action state %q", f.ID, schema.StateRealSubmit)
	}
	success, ok := submit.Transitions.Find(schema.TransitionSuccess)
	if !ok {
		return fail("state %q of flow %q has no %q transition", submit.ID, f.ID, schema.TransitionSuccess)
	}

	check, ok = f.State(schema.StateInitialAuthnRequestValidationCheck)
	if !ok || !check.Transitionable() {
		return fail("flow %q has no transitionable state %q", f.ID, schema.StateInitialAuthnRequestValidationCheck)
	}

	if existing, ok := f.State(subflowID); ok && !existing.Is(schema.StateKindSubflow) {
		return fail("state %q of flow %q already exists as a %s state", subflowID, f.ID, existing.Kind)
	}

	return submit, check, success.Target, nil
}

// addOrLog adds a literal transition and logs a failure instead of returning it.
func (b *Builder) addOrLog(state *flow.State, outcome, target string) {
	if err := b.AddTransition(state, outcome, target); err != nil {
		b.log.Error("transition not added",
			logging.KeyStateID, stateID(state), "on", outcome, "to", target, "error", err)
	}
}
