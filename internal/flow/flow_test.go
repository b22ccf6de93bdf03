package flow

import (
	"testing"

	"github.com/rendis/authflow/internal/expressions"
	"github.com/rendis/authflow/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlow_AddState(t *testing.T) {
	f := New("login")
	require.NoError(t, f.AddState(NewActionState("a")))
	require.NoError(t, f.AddState(NewEndState("b", nil)))

	assert.True(t, f.ContainsState("a"))
	assert.Equal(t, []string{"a", "b"}, f.StateIDs())
	assert.Equal(t, 2, f.StateCount())

	s, ok := f.State("a")
	require.True(t, ok)
	assert.Equal(t, "login", s.FlowID)

	err := f.AddState(NewActionState("a"))
	require.Error(t, err)
	assert.True(t, schema.IsCode(err, schema.ErrCodeConflict))
}

func TestFlow_StartState(t *testing.T) {
	f := New("login")
	_, err := f.StartState()
	require.Error(t, err)

	require.NoError(t, f.AddState(NewActionState("first")))
	require.NoError(t, f.AddState(NewActionState("second")))
	assert.Equal(t, "first", f.StartStateID())

	f.SetStartState("third")
	_, err = f.StartState()
	assert.True(t, schema.IsCode(err, schema.ErrCodeUnresolvedTarget))

	f.SetStartState("second")
	s, err := f.StartState()
	require.NoError(t, err)
	assert.Equal(t, "second", s.ID)
}

func TestFlow_TransitionableState(t *testing.T) {
	f := New("login")
	require.NoError(t, f.AddState(NewActionState("act")))
	require.NoError(t, f.AddState(NewEndState("end", nil)))

	_, err := f.TransitionableState("act")
	require.NoError(t, err)

	_, err = f.TransitionableState("end")
	assert.True(t, schema.IsCode(err, schema.ErrCodeStateKindMismatch))

	_, err = f.TransitionableState("missing")
	assert.True(t, schema.IsCode(err, schema.ErrCodeNotFound))
}

func TestFlow_AddVariableReplaces(t *testing.T) {
	f := New("login")
	require.NoError(t, f.AddVariable(Variable{Name: "credential"}))
	require.NoError(t, f.AddVariable(Variable{Name: "credential", Initial: expressions.Literal("x", expressions.TypeString)}))
	require.Len(t, f.Variables, 1)
	assert.NotNil(t, f.Variables[0].Initial)
}

func TestFlow_AddVariableRejectsReservedNames(t *testing.T) {
	f := New("login")
	for _, name := range []string{"flow", "request", "event", "request.password", ""} {
		err := f.AddVariable(Variable{Name: name})
		assert.True(t, schema.IsCode(err, schema.ErrCodeValidation), name)
	}
	assert.Empty(t, f.Variables)

	require.NoError(t, f.AddVariable(Variable{Name: "flowId"}))
	require.NoError(t, f.AddVariable(Variable{Name: "events"}))
	assert.Len(t, f.Variables, 2)
}

func TestNewDecisionState_ExactlyTwoTransitions(t *testing.T) {
	s := NewDecisionState("check", parse(t, "ticket != nil", expressions.TypeBool), "then", "else")

	all := s.Transitions.All()
	require.Len(t, all, 2)
	assert.Equal(t, CriteriaPredicate, all[0].Criteria.Kind)
	assert.Equal(t, "then", all[0].Target)
	assert.Equal(t, CriteriaWildcard, all[1].Criteria.Kind)
	assert.Equal(t, "else", all[1].Target)
}

func TestEndState_NotTransitionable(t *testing.T) {
	s := NewEndState("done", nil)
	assert.False(t, s.Transitionable())
	assert.Nil(t, s.Transitions)
	assert.True(t, s.Is(schema.StateKindEnd))
}
