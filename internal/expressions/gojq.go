package expressions

import (
	"context"

	"github.com/itchyny/gojq"
	"github.com/spf13/cast"
)

// GoJQEngine evaluates jq queries ("jq:" prefix) with the evaluation data as
// the input document. $ENV is empty.
type GoJQEngine struct {
	cache *programCache[*gojq.Code]
}

func NewGoJQEngine() *GoJQEngine {
	return &GoJQEngine{cache: newProgramCache[*gojq.Code]()}
}

func (e *GoJQEngine) Name() string { return "jq" }

func (e *GoJQEngine) Compile(expression string) error {
	_, err := e.code(expression)
	return err
}

// Evaluate returns a single output as is, several outputs as []any and no
// output as nil.
func (e *GoJQEngine) Evaluate(ctx context.Context, expression string, data map[string]any) (any, error) {
	code, err := e.code(expression)
	if err != nil {
		return nil, err
	}

	var input any = map[string]any{}
	if data != nil {
		input = jqValue(data)
	}

	var results []any
	iter := code.RunWithContext(ctx, input)
	for v, ok := iter.Next(); ok; v, ok = iter.Next() {
		if runErr, isErr := v.(error); isErr {
			return nil, dialectError(e.Name(), "evaluation failed for", expression, runErr)
		}
		results = append(results, v)
	}

	switch len(results) {
	case 0:
		return nil, nil
	case 1:
		return results[0], nil
	}
	return results, nil
}

func (e *GoJQEngine) code(expression string) (*gojq.Code, error) {
	if expression == "" {
		return nil, emptyExpression(e.Name())
	}
	return e.cache.get(expression, func(src string) (*gojq.Code, error) {
		q, err := gojq.Parse(src)
		if err != nil {
			return nil, dialectError(e.Name(), "parse error in", src, err)
		}
		code, err := gojq.Compile(q, gojq.WithEnvironLoader(func() []string { return nil }))
		if err != nil {
			return nil, dialectError(e.Name(), "compile error in", src, err)
		}
		return code, nil
	})
}

// jqValue rewrites Go values into the shapes gojq accepts: numbers become
// float64 and typed slices become []any.
func jqValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, x := range t {
			m[k] = jqValue(x)
		}
		return m
	case []any:
		s := make([]any, len(t))
		for i, x := range t {
			s[i] = jqValue(x)
		}
		return s
	case []string:
		s := make([]any, len(t))
		for i, x := range t {
			s[i] = x
		}
		return s
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32:
		if f, err := cast.ToFloat64E(t); err == nil {
			return f
		}
	}
	return v
}

var _ Engine = (*GoJQEngine)(nil)
