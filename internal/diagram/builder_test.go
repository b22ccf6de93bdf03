package diagram

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildLoginFlow(t *testing.T) {
	b := newTestBuilder(t)
	model, err := Build(loginFlow(t, b), Options{})
	require.NoError(t, err)

	assert.Equal(t, "login", model.Title)
	require.Len(t, model.Nodes, 4)
	assert.Equal(t, NodeKindStart, model.Nodes[0].Kind)
	assert.Equal(t, NodeKindView, nodeByID(model, "form").Kind)
	assert.Equal(t, NodeKindDecision, nodeByID(model, "check").Kind)
	assert.Equal(t, NodeKindEnd, nodeByID(model, "done").Kind)
	assert.Equal(t, "form\nview: casLoginView", nodeByID(model, "form").Label)

	assert.Equal(t, []Edge{
		{From: startNodeID, To: "form"},
		{From: "form", To: "check", Label: "submit"},
		{From: "check", To: "done", Label: "request.ticket != nil"},
		{From: "check", To: "form", Label: "*"},
	}, model.Edges)

	assert.Equal(t, [][]string{{startNodeID}, {"form"}, {"check"}, {"done"}}, model.Levels)
}

func TestBuildMissingTarget(t *testing.T) {
	b := newTestBuilder(t)
	f := loginFlow(t, b)
	form, _ := f.State("form")
	require.NoError(t, b.AddTransition(form, "cancel", "gone"))

	model, err := Build(f, Options{})
	require.NoError(t, err)

	missing := nodeByID(model, "gone")
	require.NotNil(t, missing)
	assert.Equal(t, NodeKindMissing, missing.Kind)
	assert.Contains(t, model.Levels[2], "gone")
}

func TestBuildUnreachableLevel(t *testing.T) {
	b := newTestBuilder(t)
	f := loginFlow(t, b)
	_, err := b.CreateEndState(f, "orphan", "")
	require.NoError(t, err)

	model, err := Build(f, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"orphan"}, model.Levels[len(model.Levels)-1])
}

func TestBuildExpandSubflows(t *testing.T) {
	b := newTestBuilder(t)
	f := mfaFlows(t, b)

	model, err := Build(f, Options{})
	require.NoError(t, err)
	assert.Empty(t, nodeByID(model, "mfa").Children)

	model, err = Build(f, Options{Registry: b.Registry(), ExpandSubflows: true})
	require.NoError(t, err)

	mfa := nodeByID(model, "mfa")
	assert.Equal(t, NodeKindSubflow, mfa.Kind)
	assert.Equal(t, "mfa\nflow: mfa-otp", mfa.Label)
	require.Len(t, mfa.Children, 1)
	sg := mfa.Children[0]
	assert.Equal(t, "mfa-otp", sg.Label)
	require.Len(t, sg.Nodes, 2)
	assert.Equal(t, "mfa.otpForm", sg.Nodes[0].ID)
	assert.Equal(t, []Edge{{From: "mfa.otpForm", To: "mfa.success", Label: "submit"}}, sg.Edges)
}

func TestBuildExpandUnknownSubflow(t *testing.T) {
	b := newTestBuilder(t)
	f, err := b.EnsureFlow("secure")
	require.NoError(t, err)
	_, err = b.CreateSubflowState(f, "mfa", "nowhere", nil)
	require.NoError(t, err)

	model, err := Build(f, Options{Registry: b.Registry(), ExpandSubflows: true})
	require.NoError(t, err)
	assert.Empty(t, nodeByID(model, "mfa").Children)
}

func TestBuildWithOverlay(t *testing.T) {
	b := newTestBuilder(t)
	overlay := map[string]*StatusOverlay{
		"form":  {Status: StatusVisited, Visits: 2},
		"check": {Status: StatusCurrent, Visits: 1},
	}
	model, err := Build(loginFlow(t, b), Options{Overlay: overlay})
	require.NoError(t, err)

	assert.Equal(t, StatusVisited, nodeByID(model, "form").Status.Status)
	assert.Equal(t, StatusCurrent, nodeByID(model, "check").Status.Status)
	assert.Nil(t, nodeByID(model, "done").Status)
}

func TestBuildNilFlow(t *testing.T) {
	_, err := Build(nil, Options{})
	assert.Error(t, err)
}

func TestBuildEmptyFlow(t *testing.T) {
	b := newTestBuilder(t)
	f, err := b.EnsureFlow("empty")
	require.NoError(t, err)

	model, err := Build(f, Options{})
	require.NoError(t, err)
	require.Len(t, model.Nodes, 1)
	assert.Empty(t, model.Edges)
	assert.Equal(t, [][]string{{startNodeID}}, model.Levels)
}
