package expressions

import (
	"context"
	"testing"

	"github.com/rendis/authflow/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newParser(t *testing.T) *Parser {
	t.Helper()
	p, err := NewDefaultParser()
	require.NoError(t, err)
	return p
}

func TestParser_DialectSelection(t *testing.T) {
	p := newParser(t)

	tests := []struct {
		raw     string
		dialect string
	}{
		{"ticket != nil", "expr"},
		{"cel: has(flow.ticket)", "cel"},
		{"jq: .ticket", "jq"},
		{"expr: ticket", "expr"},
		{"flag ? 'a' : 'b'", "expr"},
		{"*", DialectLiteral},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			e, err := p.Parse(tt.raw, TypeAny)
			require.NoError(t, err)
			assert.Equal(t, tt.dialect, e.Dialect())
			assert.Equal(t, tt.raw, e.String())
		})
	}
}

func TestParser_RejectsAtParseTime(t *testing.T) {
	p := newParser(t)

	_, err := p.Parse("", TypeAny)
	require.Error(t, err)

	_, err = p.Parse("cel: flow.", TypeBool)
	require.Error(t, err)
	assert.True(t, schema.IsCode(err, schema.ErrCodeExpression))
}

func TestParser_ExpectedTypeCoercion(t *testing.T) {
	p := newParser(t)
	ctx := context.Background()

	e, err := p.Parse("attempts", TypeString)
	require.NoError(t, err)
	assert.Equal(t, TypeString, e.ExpectedType())

	out, err := e.Evaluate(ctx, map[string]any{"attempts": 3})
	require.NoError(t, err)
	assert.Equal(t, "3", out)

	e, err = p.Parse("jq: .limit", TypeInt)
	require.NoError(t, err)
	out, err = e.Evaluate(ctx, map[string]any{"limit": 5})
	require.NoError(t, err)
	assert.Equal(t, 5, out)
}

func TestParser_CoercionFailure(t *testing.T) {
	p := newParser(t)

	e, err := p.Parse("principal", TypeInt)
	require.NoError(t, err)

	_, err = e.Evaluate(context.Background(), map[string]any{"principal": "casuser"})
	require.Error(t, err)
	assert.True(t, schema.IsCode(err, schema.ErrCodeCoercion))
}

func TestLiteral(t *testing.T) {
	l := Literal("casLoginView", TypeString)
	assert.True(t, IsLiteral(l))
	assert.Equal(t, "casLoginView", l.String())

	out, err := l.Evaluate(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "casLoginView", out)
}

func TestParsePath(t *testing.T) {
	p, err := ParsePath("flowScope.credential.username")
	require.NoError(t, err)
	assert.Equal(t, []string{"credential", "username"}, p.Segments())
	assert.Equal(t, "flowScope.credential.username", p.String())

	data := map[string]any{}
	require.NoError(t, p.Assign(data, "casuser"))
	assert.Equal(t, map[string]any{"credential": map[string]any{"username": "casuser"}}, data)

	out, err := p.Evaluate(context.Background(), data)
	require.NoError(t, err)
	assert.Equal(t, "casuser", out)

	for _, bad := range []string{"", "a..b", "1abc", "a b", "flowScope."} {
		_, err := ParsePath(bad)
		assert.Error(t, err, bad)
	}
}

func TestNewParserWithDefault(t *testing.T) {
	p, err := NewParserWithDefault("jq")
	require.NoError(t, err)

	e, err := p.Parse(".ticket", TypeAny)
	require.NoError(t, err)
	assert.Equal(t, "jq", e.Dialect())

	e, err = p.Parse("expr: ticket != nil", TypeBool)
	require.NoError(t, err)
	assert.Equal(t, "expr", e.Dialect())

	_, err = NewParserWithDefault("lua")
	require.Error(t, err)
	assert.True(t, schema.IsCode(err, schema.ErrCodeValidation))
}
