package actions

import (
	"context"
	"testing"

	"github.com/rendis/authflow/internal/flow"
	"github.com/rendis/authflow/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubFactory struct {
	name    string
	invalid bool
}

func (s *stubFactory) Name() string                  { return s.name }
func (s *stubFactory) Schema() ActionSchema          { return ActionSchema{Description: "stub " + s.name} }
func (s *stubFactory) Validate(map[string]any) error {
	if s.invalid {
		return schema.NewError(schema.ErrCodeValidation, "bad params")
	}
	return nil
}
func (s *stubFactory) New(map[string]any) (flow.Action, error) {
	return flow.NewAction(s.name, func(context.Context, *flow.RequestContext) (flow.Event, error) {
		return flow.Event{ID: schema.TransitionSuccess}, nil
	}), nil
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(&stubFactory{name: "authenticate"}))

	f, err := r.Get("authenticate")
	require.NoError(t, err)
	assert.Equal(t, "authenticate", f.Name())
	assert.True(t, r.Has("authenticate"))
	assert.Equal(t, 1, r.Count())
}

func TestRegistry_Errors(t *testing.T) {
	r := NewRegistry()

	err := r.Register(nil)
	assert.True(t, schema.IsCode(err, schema.ErrCodeValidation))

	err = r.Register(&stubFactory{})
	assert.True(t, schema.IsCode(err, schema.ErrCodeValidation))

	require.NoError(t, r.Register(&stubFactory{name: "dup"}))
	err = r.Register(&stubFactory{name: "dup"})
	assert.True(t, schema.IsCode(err, schema.ErrCodeConflict))

	_, err = r.Get("missing")
	assert.True(t, schema.IsCode(err, schema.ErrCodeNotFound))
}

func TestRegistry_ListSorted(t *testing.T) {
	r := NewRegistry()
	for _, n := range []string{"z", "a", "m"} {
		require.NoError(t, r.Register(&stubFactory{name: n}))
	}

	list := r.List()
	require.Len(t, list, 3)
	assert.Equal(t, "a", list[0].Name)
	assert.Equal(t, "m", list[1].Name)
	assert.Equal(t, "z", list[2].Name)
	assert.Equal(t, "stub a", list[0].Description)
}

func TestRegistry_Build(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(&stubFactory{name: "authenticate"}))

	a, err := r.Build("authenticate", nil)
	require.NoError(t, err)
	ev, err := a.Execute(context.Background(), &flow.RequestContext{})
	require.NoError(t, err)
	assert.Equal(t, schema.TransitionSuccess, ev.ID)
}

func TestRegistry_BuildTagsActionName(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(&stubFactory{name: "lookup", invalid: true}))

	_, err := r.Build("lookup", map[string]any{"x": 1})
	require.Error(t, err)
	var fe *schema.FlowError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, schema.ErrCodeValidation, fe.Code)
	assert.Equal(t, "lookup", fe.Details["action"])
}
