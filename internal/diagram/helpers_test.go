package diagram

import (
	"testing"

	"github.com/rendis/authflow/internal/builder"
	"github.com/rendis/authflow/internal/expressions"
	"github.com/rendis/authflow/internal/flow"
	"github.com/stretchr/testify/require"
)

func newTestBuilder(t *testing.T) *builder.Builder {
	t.Helper()
	parser, err := expressions.NewDefaultParser()
	require.NoError(t, err)
	return builder.New(nil, parser, builder.Config{})
}

// loginFlow builds: form --submit--> check (ticket != nil ? done : form).
func loginFlow(t *testing.T, b *builder.Builder) *flow.Flow {
	t.Helper()
	f, err := b.EnsureFlow("login")
	require.NoError(t, err)

	form, err := b.CreateViewState(f, "form", "casLoginView")
	require.NoError(t, err)
	require.NoError(t, b.AddTransition(form, "submit", "check"))

	test, err := b.CreateExpression("request.ticket != nil", expressions.TypeBool)
	require.NoError(t, err)
	_, err = b.CreateDecisionState(f, "check", test, "done", "form")
	require.NoError(t, err)
	_, err = b.CreateEndState(f, "done", "casSuccess")
	require.NoError(t, err)
	return f
}

// mfaFlows adds an "mfa-otp" flow and a "secure" flow invoking it.
func mfaFlows(t *testing.T, b *builder.Builder) *flow.Flow {
	t.Helper()
	otp, err := b.EnsureFlow("mfa-otp")
	require.NoError(t, err)
	otpForm, err := b.CreateViewState(otp, "otpForm", "otpView")
	require.NoError(t, err)
	require.NoError(t, b.AddTransition(otpForm, "submit", "success"))
	_, err = b.CreateEndState(otp, "success", "")
	require.NoError(t, err)

	f, err := b.EnsureFlow("secure")
	require.NoError(t, err)
	mfa, err := b.CreateSubflowState(f, "mfa", "mfa-otp", nil)
	require.NoError(t, err)
	require.NoError(t, b.AddTransition(mfa, "success", "done"))
	_, err = b.CreateEndState(f, "done", "")
	require.NoError(t, err)
	return f
}

func nodeByID(model *DiagramModel, id string) *Node {
	return indexNodes(model.Nodes)[id]
}
