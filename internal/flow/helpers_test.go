package flow

import (
	"testing"

	"github.com/rendis/authflow/internal/expressions"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, raw string, typ expressions.Type) expressions.Expression {
	t.Helper()
	p, err := expressions.NewDefaultParser()
	require.NoError(t, err)
	e, err := p.Parse(raw, typ)
	require.NoError(t, err)
	return e
}

func path(t *testing.T, raw string) *expressions.PathExpression {
	t.Helper()
	p, err := expressions.ParsePath(raw)
	require.NoError(t, err)
	return p
}
