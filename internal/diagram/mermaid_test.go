package diagram

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderMermaidLoginFlow(t *testing.T) {
	b := newTestBuilder(t)
	model, err := Build(loginFlow(t, b), Options{})
	require.NoError(t, err)

	out := RenderMermaid(model)
	assert.Contains(t, out, "graph TD\n")
	assert.Contains(t, out, "%% login")
	assert.Contains(t, out, `__start__(("Start"))`)
	assert.Contains(t, out, `form[/"form"/]`)
	assert.Contains(t, out, `check{"check"}`)
	assert.Contains(t, out, `done((("done")))`)
	assert.Contains(t, out, "__start__ --> form")
	assert.Contains(t, out, `form -->|"submit"| check`)
	assert.Contains(t, out, `check -->|"request.ticket != nil"| done`)
	assert.Contains(t, out, `check -->|"*"| form`)
}

func TestRenderMermaidSubflow(t *testing.T) {
	b := newTestBuilder(t)
	model, err := Build(mfaFlows(t, b), Options{Registry: b.Registry(), ExpandSubflows: true})
	require.NoError(t, err)

	out := RenderMermaid(model)
	assert.Contains(t, out, `mfa[["mfa"]]`)
	assert.Contains(t, out, `subgraph mfa_mfa_otp["mfa: mfa-otp"]`)
	assert.Contains(t, out, `mfa_otpForm -->|"submit"| mfa_success`)
}

func TestRenderMermaidStatusAndMissing(t *testing.T) {
	b := newTestBuilder(t)
	f := loginFlow(t, b)
	form, _ := f.State("form")
	require.NoError(t, b.AddTransition(form, "cancel", "gone"))

	model, err := Build(f, Options{Overlay: map[string]*StatusOverlay{
		"form":  {Status: StatusVisited, Visits: 1},
		"check": {Status: StatusFailed, Visits: 1},
	}})
	require.NoError(t, err)

	out := RenderMermaid(model)
	assert.Contains(t, out, "classDef current")
	assert.Contains(t, out, "class form visited")
	assert.Contains(t, out, "class check failed")
	assert.Contains(t, out, "class gone missing")
	assert.NotContains(t, out, "class done")
}

func TestMermaidEscape(t *testing.T) {
	e := Edge{From: "a", To: "b", Label: `x == "y" || z`}
	assert.Equal(t, `a -->|"x == #quot;y#quot; #124;#124; z"| b`, mermaidEdge(e))
}

func TestMermaidSafeID(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"simple", "simple"},
		{"with.dot", "with_dot"},
		{"with-dash", "with_dash"},
		{"with space", "with_space"},
		{"mfa.otp-form", "mfa_otp_form"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, mermaidSafeID(tt.input), tt.input)
	}
}
