package validation

import (
	"testing"

	"github.com/rendis/authflow/internal/expressions"
	"github.com/rendis/authflow/internal/flow"
	"github.com/rendis/authflow/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func addState(t *testing.T, f *flow.Flow, s *flow.State) *flow.State {
	t.Helper()
	require.NoError(t, f.AddState(s))
	return s
}

func on(s *flow.State, outcome, target string) {
	s.Transitions.Add(flow.NewTransition(flow.LiteralCriteria(outcome), target))
}

func TestValidateGraph_Valid(t *testing.T) {
	f := flow.New("login")
	check := addState(t, f, flow.NewActionState("check"))
	submit := addState(t, f, flow.NewActionState("realSubmit"))
	addState(t, f, flow.NewEndState("done", nil))
	on(check, "success", "realSubmit")
	on(submit, "success", "done")
	on(submit, "error", "check") // cycles are allowed

	result := ValidateGraph(f, nil)
	assert.True(t, result.Valid())
	assert.Empty(t, result.Warnings)
}

func TestValidateGraph_NilFlow(t *testing.T) {
	result := ValidateGraph(nil, nil)
	require.Len(t, result.Errors, 1)
}

func TestValidateGraph_EmptyFlowHasNoStart(t *testing.T) {
	result := ValidateGraph(flow.New("login"), nil)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "login.start", result.Errors[0].Path)
}

func TestValidateGraph_UnresolvedTarget(t *testing.T) {
	f := flow.New("login")
	s := addState(t, f, flow.NewActionState("check"))
	on(s, "success", "missing")

	result := ValidateGraph(f, nil)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, schema.ErrCodeUnresolvedTarget, result.Errors[0].Code)
	assert.Equal(t, "login.check.transitions[0]", result.Errors[0].Path)
}

func TestValidateGraph_UnreachableAndDeadEnd(t *testing.T) {
	f := flow.New("login")
	start := addState(t, f, flow.NewActionState("check"))
	addState(t, f, flow.NewEndState("done", nil))
	addState(t, f, flow.NewActionState("orphan"))
	on(start, "*", "done")

	result := ValidateGraph(f, nil)
	assert.True(t, result.Valid())
	require.Len(t, result.Warnings, 2)
	assert.Equal(t, schema.ErrCodeNoMatchingTransition, result.Warnings[0].Code)
	assert.Equal(t, "login.orphan", result.Warnings[0].Path)
	assert.Contains(t, result.Warnings[1].Message, "unreachable")
}

func TestValidateGraph_DecisionBranchesReachable(t *testing.T) {
	parser, err := expressions.NewDefaultParser()
	require.NoError(t, err)
	test, err := parser.Parse("ticket != nil", expressions.TypeBool)
	require.NoError(t, err)

	f := flow.New("login")
	addState(t, f, flow.NewDecisionState("ticketCheck", test, "done", "form"))
	addState(t, f, flow.NewEndState("done", nil))
	addState(t, f, flow.NewEndState("form", nil))

	result := ValidateGraph(f, nil)
	assert.True(t, result.Valid())
	assert.Empty(t, result.Warnings)
}

func TestValidateGraph_Subflows(t *testing.T) {
	reg := flow.NewRegistry()
	login := flow.New("login")
	mfa := addState(t, login, flow.NewSubflowState("mfa-gauth", &flow.SubflowSpec{
		FlowID: expressions.Literal("mfa-gauth", expressions.TypeString),
	}))
	broken := addState(t, login, flow.NewSubflowState("broken", nil))
	addState(t, login, flow.NewEndState("done", nil))
	on(mfa, "success", "done")
	on(broken, "*", "done")
	_, err := reg.Register(login)
	require.NoError(t, err)

	result := ValidateGraph(login, reg)
	require.Len(t, result.Errors, 2)
	assert.Equal(t, schema.ErrCodeNotFound, result.Errors[0].Code)
	assert.Equal(t, "login.broken.subflow", result.Errors[1].Path)

	child := flow.New("mfa-gauth")
	addState(t, child, flow.NewEndState("success", nil))
	_, err = reg.Register(child)
	require.NoError(t, err)

	result = ValidateRegistry(reg)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "login.broken.subflow", result.Errors[0].Path)
}
