package views

import (
	"context"
	"testing"

	"github.com/rendis/authflow/internal/expressions"
	"github.com/rendis/authflow/internal/flow"
	"github.com/rendis/authflow/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func request(vars map[string]any) *flow.RequestContext {
	return &flow.RequestContext{FlowID: "login", StateID: "viewLoginForm", Scope: expressions.NewScope(vars)}
}

func TestCreator_RejectsNil(t *testing.T) {
	_, err := NewCreator().CreateViewFactory(nil)
	require.Error(t, err)
	assert.True(t, schema.IsCode(err, schema.ErrCodeStateCreation))
}

func TestFactory_RenderLiteral(t *testing.T) {
	vf, err := NewCreator().CreateViewFactory(expressions.Literal("casLoginView", expressions.TypeString))
	require.NoError(t, err)

	v, err := vf.Render(context.Background(), request(map[string]any{"service": "https://app"}))
	require.NoError(t, err)
	assert.Equal(t, "casLoginView", v.Name)
	assert.Equal(t, "https://app", v.Model["service"])
}

func TestFactory_RenderExpressionWithModelKeys(t *testing.T) {
	p, err := expressions.NewDefaultParser()
	require.NoError(t, err)
	id, err := p.Parse(`locale == "fr" ? "casLoginView_fr" : "casLoginView"`, expressions.TypeString)
	require.NoError(t, err)

	vf, err := NewCreator("service").CreateViewFactory(id)
	require.NoError(t, err)

	v, err := vf.Render(context.Background(), request(map[string]any{"locale": "fr", "service": "s", "password": "Mellon"}))
	require.NoError(t, err)
	assert.Equal(t, "casLoginView_fr", v.Name)
	assert.Equal(t, map[string]any{"service": "s"}, v.Model)
}

func TestFactory_RenderEmptyNameFails(t *testing.T) {
	p, err := expressions.NewDefaultParser()
	require.NoError(t, err)
	id, err := p.Parse("missing", expressions.TypeAny)
	require.NoError(t, err)

	vf, err := NewCreator().CreateViewFactory(id)
	require.NoError(t, err)

	_, err = vf.Render(context.Background(), request(nil))
	require.Error(t, err)
}

func TestFinalResponseAction_RendersOnce(t *testing.T) {
	vf, err := NewCreator().CreateViewFactory(expressions.Literal("casLoginSuccess", expressions.TypeString))
	require.NoError(t, err)
	a := NewFinalResponseAction(vf)
	rc := request(nil)

	ev, err := a.Execute(context.Background(), rc)
	require.NoError(t, err)
	assert.Equal(t, "success", ev.ID)
	require.NotNil(t, rc.View)
	assert.Equal(t, "casLoginSuccess", rc.View.Name)

	first := rc.View
	_, err = a.Execute(context.Background(), rc)
	require.NoError(t, err)
	assert.Same(t, first, rc.View)
}
