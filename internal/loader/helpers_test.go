package loader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rendis/authflow/internal/actions"
	"github.com/rendis/authflow/internal/builder"
	"github.com/rendis/authflow/internal/expressions"
	"github.com/rendis/authflow/internal/flow"
	"github.com/rendis/authflow/internal/validation"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	parser  *expressions.Parser
	actions *actions.Registry
	loader  *Loader
	applier *Applier
	builder *builder.Builder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	parser, err := expressions.NewDefaultParser()
	require.NoError(t, err)
	reg := actions.NewRegistry()
	require.NoError(t, actions.RegisterBuiltins(reg, actions.Deps{Parser: parser}))
	v, err := validation.NewDocumentValidator(reg, parser)
	require.NoError(t, err)
	return &fixture{
		parser:  parser,
		actions: reg,
		loader:  New(v),
		applier: NewApplier(reg),
		builder: builder.New(flow.NewRegistry(), parser, builder.Config{Autoconfigure: true}),
	}
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func targets(s *flow.State) []string {
	var out []string
	for _, t := range s.Transitions.All() {
		out = append(out, t.Criteria.String()+"->"+t.Target)
	}
	return out
}

const loginYAML = `
id: login
variables:
  attempts: "0"
states:
  - id: initialAuthenticationRequestValidationCheck
    kind: action
    actions:
      - name: signal
        params:
          event: proceed
    transitions:
      - on: proceed
        to: viewLoginForm
  - id: viewLoginForm
    kind: view
    view: casLoginView
    transitions:
      - on: submit
        to: realSubmit
  - id: realSubmit
    kind: action
    actions:
      - name: signal
        params:
          event: success
    transitions:
      - on: success
        to: sendTicket
      - on: error
        to: viewLoginForm
  - id: sendTicket
    kind: end
    view: casSuccess
    output:
      - name: result
        value: attempts
`

const otpJSON = `{
  "id": "mfa-otp",
  "states": [
    {"id": "otpForm", "kind": "view", "view": "otpView",
     "transitions": [{"on": "verified", "to": "success"}]},
    {"id": "success", "kind": "end"}
  ]
}`
