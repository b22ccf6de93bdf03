package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/rendis/authflow/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecutionFSM_ValidTransitions(t *testing.T) {
	tests := []struct {
		from, to schema.ExecutionStatus
		event    string
	}{
		{schema.ExecutionStatusPending, schema.ExecutionStatusActive, schema.EventExecutionStarted},
		{schema.ExecutionStatusPending, schema.ExecutionStatusFailed, schema.EventExecutionFailed},
		{schema.ExecutionStatusActive, schema.ExecutionStatusPaused, schema.EventExecutionPaused},
		{schema.ExecutionStatusActive, schema.ExecutionStatusEnded, schema.EventExecutionEnded},
		{schema.ExecutionStatusPaused, schema.ExecutionStatusActive, schema.EventExecutionResumed},
		{schema.ExecutionStatusPaused, schema.ExecutionStatusFailed, schema.EventExecutionFailed},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			h := NewHistory()
			fsm := NewExecutionFSM(h)
			x := &Execution{ID: "x1", FlowID: "login"}

			require.NoError(t, fsm.Transition(context.Background(), x, tt.from, tt.to))
			recs := h.Records("x1")
			require.Len(t, recs, 1)
			assert.Equal(t, tt.event, recs[0].Type)
			assert.Equal(t, "login", recs[0].FlowID)
			assert.Equal(t, int64(1), recs[0].Sequence)
			assert.False(t, recs[0].Timestamp.IsZero())
		})
	}
}

func TestExecutionFSM_InvalidTransitions(t *testing.T) {
	fsm := NewExecutionFSM(nil)
	x := &Execution{ID: "x1"}

	for _, pair := range [][2]schema.ExecutionStatus{
		{schema.ExecutionStatusEnded, schema.ExecutionStatusActive},
		{schema.ExecutionStatusFailed, schema.ExecutionStatusActive},
		{schema.ExecutionStatusPending, schema.ExecutionStatusPaused},
		{schema.ExecutionStatusPaused, schema.ExecutionStatusEnded},
	} {
		err := fsm.Transition(context.Background(), x, pair[0], pair[1])
		assert.True(t, schema.IsCode(err, schema.ErrCodeInvalidTransition), "%s -> %s", pair[0], pair[1])
	}
}

func TestExecutionFSM_Hooks(t *testing.T) {
	fsm := NewExecutionFSM(nil)
	x := &Execution{ID: "x1"}

	var calls []string
	fsm.OnBefore(schema.ExecutionStatusPending, schema.ExecutionStatusActive, func(from, to string) error {
		calls = append(calls, "before:"+from+"->"+to)
		return nil
	})
	fsm.OnAfter(schema.ExecutionStatusPending, schema.ExecutionStatusActive, func(from, to string) error {
		calls = append(calls, "after:"+from+"->"+to)
		return nil
	})
	require.NoError(t, fsm.Transition(context.Background(), x, schema.ExecutionStatusPending, schema.ExecutionStatusActive))
	assert.Equal(t, []string{"before:pending->active", "after:pending->active"}, calls)

	veto := errors.New("vetoed")
	fsm.OnBefore(schema.ExecutionStatusActive, schema.ExecutionStatusEnded, func(string, string) error { return veto })
	err := fsm.Transition(context.Background(), x, schema.ExecutionStatusActive, schema.ExecutionStatusEnded)
	assert.ErrorIs(t, err, veto)
}

func TestExecutionStatus_IsTerminal(t *testing.T) {
	assert.True(t, schema.ExecutionStatusEnded.IsTerminal())
	assert.True(t, schema.ExecutionStatusFailed.IsTerminal())
	assert.False(t, schema.ExecutionStatusPaused.IsTerminal())
}
