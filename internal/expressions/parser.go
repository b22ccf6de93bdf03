package expressions

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/rendis/authflow/pkg/schema"
)

// Expression is a parsed expression, re-evaluable against any evaluation data
// and bound to an expected result type.
type Expression interface {
	fmt.Stringer
	Dialect() string
	ExpectedType() Type
	Evaluate(ctx context.Context, data map[string]any) (any, error)
}

// DialectLiteral is reported by expressions that evaluate to a constant.
const DialectLiteral = "literal"

// Parser turns strings into Expressions. A "<dialect>:" prefix selects the
// engine; unprefixed strings use the default engine.
type Parser struct {
	engines map[string]Engine
	def     Engine
}

// NewParser creates a parser over the given engines. The first engine is the default.
func NewParser(def Engine, others ...Engine) *Parser {
	p := &Parser{
		engines: map[string]Engine{def.Name(): def},
		def:     def,
	}
	for _, e := range others {
		p.engines[e.Name()] = e
	}
	return p
}

// NewDefaultParser wires expr as the default dialect with cel and jq available.
func NewDefaultParser() (*Parser, error) {
	celEngine, err := NewCELEngine()
	if err != nil {
		return nil, err
	}
	return NewParser(NewExprEngine(), celEngine, NewGoJQEngine()), nil
}

// NewParserWithDefault is NewDefaultParser with dialect ("expr", "cel" or
// "jq") used for unprefixed expressions.
func NewParserWithDefault(dialect string) (*Parser, error) {
	p, err := NewDefaultParser()
	if err != nil {
		return nil, err
	}
	def, ok := p.engines[dialect]
	if !ok {
		return nil, schema.NewErrorf(schema.ErrCodeValidation, "unknown expression dialect %q", dialect)
	}
	p.def = def
	return p, nil
}

// Dialects returns the registered engine names.
func (p *Parser) Dialects() []string {
	out := make([]string, 0, len(p.engines))
	for name := range p.engines {
		out = append(out, name)
	}
	return out
}

// Parse compiles raw with the selected dialect and binds the expected type.
// The wildcard "*" parses to a literal.
func (p *Parser) Parse(raw string, expected Type) (Expression, error) {
	src := strings.TrimSpace(raw)
	if src == "" {
		return nil, schema.NewError(schema.ErrCodeExpression, "empty expression")
	}
	if src == schema.WildcardEventID {
		return Literal(src, expected), nil
	}

	engine, body := p.split(src)
	if err := engine.Compile(body); err != nil {
		return nil, err
	}
	return &compiledExpression{engine: engine, source: src, body: body, typ: expected}, nil
}

// Check compiles raw without binding a type.
func (p *Parser) Check(raw string) error {
	_, err := p.Parse(raw, TypeAny)
	return err
}

// HasDialect reports whether raw carries an explicit "<dialect>:" prefix
// naming a registered engine.
func (p *Parser) HasDialect(raw string) bool {
	src := strings.TrimSpace(raw)
	if i := strings.Index(src, ":"); i > 0 {
		_, ok := p.engines[src[:i]]
		return ok
	}
	return false
}

func (p *Parser) split(src string) (Engine, string) {
	if i := strings.Index(src, ":"); i > 0 {
		if e, ok := p.engines[src[:i]]; ok {
			return e, strings.TrimSpace(src[i+1:])
		}
	}
	return p.def, src
}

type compiledExpression struct {
	engine Engine
	source string
	body   string
	typ    Type
}

func (c *compiledExpression) String() string     { return c.source }
func (c *compiledExpression) Dialect() string    { return c.engine.Name() }
func (c *compiledExpression) ExpectedType() Type { return c.typ }

func (c *compiledExpression) Evaluate(ctx context.Context, data map[string]any) (any, error) {
	out, err := c.engine.Evaluate(ctx, c.body, data)
	if err != nil {
		return nil, err
	}
	return Coerce(out, c.typ)
}

// LiteralExpression evaluates to its constant value.
type LiteralExpression struct {
	value string
	typ   Type
}

// Literal wraps a constant string as an Expression.
func Literal(value string, expected Type) *LiteralExpression {
	return &LiteralExpression{value: value, typ: expected}
}

func (l *LiteralExpression) String() string     { return l.value }
func (l *LiteralExpression) Dialect() string    { return DialectLiteral }
func (l *LiteralExpression) ExpectedType() Type { return l.typ }

func (l *LiteralExpression) Evaluate(_ context.Context, _ map[string]any) (any, error) {
	return Coerce(l.value, l.typ)
}

// ConstantExpression evaluates to a fixed value such as true or nil.
type ConstantExpression struct {
	raw   string
	value any
	typ   Type
}

// Constant wraps value, written as raw in the source, as an Expression.
func Constant(raw string, value any, expected Type) *ConstantExpression {
	return &ConstantExpression{raw: raw, value: value, typ: expected}
}

func (c *ConstantExpression) String() string     { return c.raw }
func (c *ConstantExpression) Dialect() string    { return DialectLiteral }
func (c *ConstantExpression) ExpectedType() Type { return c.typ }

func (c *ConstantExpression) Evaluate(context.Context, map[string]any) (any, error) {
	if c.value == nil {
		return nil, nil
	}
	return Coerce(c.value, c.typ)
}

// IsLiteral reports whether e evaluates to a constant.
func IsLiteral(e Expression) bool {
	return e != nil && e.Dialect() == DialectLiteral
}

var pathPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)*$`)

// flowScopePrefix is accepted and stripped from target paths.
const flowScopePrefix = "flowScope."

// PathExpression is a dotted variable path that can be read and assigned.
type PathExpression struct {
	source   string
	segments []string
}

// ParsePath parses a settable dotted path such as "credential.username".
func ParsePath(raw string) (*PathExpression, error) {
	src := strings.TrimSpace(raw)
	body := strings.TrimPrefix(src, flowScopePrefix)
	if !pathPattern.MatchString(body) {
		return nil, schema.NewErrorf(schema.ErrCodeExpression, "invalid target path %q", raw)
	}
	return &PathExpression{source: src, segments: strings.Split(body, ".")}, nil
}

func (p *PathExpression) String() string     { return p.source }
func (p *PathExpression) Dialect() string    { return "path" }
func (p *PathExpression) ExpectedType() Type { return TypeAny }

// Segments returns the path components.
func (p *PathExpression) Segments() []string {
	return append([]string(nil), p.segments...)
}

// Evaluate reads the path from data; missing segments yield nil.
func (p *PathExpression) Evaluate(_ context.Context, data map[string]any) (any, error) {
	v, _ := Lookup(data, p.segments)
	return v, nil
}

// Assign writes value at the path, creating intermediate maps.
func (p *PathExpression) Assign(data map[string]any, value any) error {
	return Assign(data, p.segments, value)
}
