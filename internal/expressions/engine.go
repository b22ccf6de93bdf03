package expressions

import (
	"context"
	"sync"

	"github.com/rendis/authflow/pkg/schema"
)

// Engine evaluates expressions against a flow's evaluation data.
// Three implementations: Expr (default dialect), CEL, GoJQ.
type Engine interface {
	Name() string
	// Compile checks the expression and caches its compiled form.
	Compile(expression string) error
	Evaluate(ctx context.Context, expression string, data map[string]any) (any, error)
}

// programCache memoizes compiled programs by source text. Safe for
// concurrent use; a program is compiled at most once per engine.
type programCache[P any] struct {
	mu       sync.RWMutex
	programs map[string]P
}

func newProgramCache[P any]() *programCache[P] {
	return &programCache[P]{programs: make(map[string]P)}
}

func (c *programCache[P]) get(source string, compile func(string) (P, error)) (P, error) {
	c.mu.RLock()
	p, ok := c.programs[source]
	c.mu.RUnlock()
	if ok {
		return p, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if p, ok := c.programs[source]; ok {
		return p, nil
	}
	p, err := compile(source)
	if err != nil {
		var zero P
		return zero, err
	}
	c.programs[source] = p
	return p, nil
}

// Len reports how many programs are cached.
func (c *programCache[P]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.programs)
}

// dialectError wraps a compile or runtime failure as an EXPRESSION error.
// phase reads like "compile error in" or "evaluation failed for".
func dialectError(dialect, phase, source string, cause error) *schema.FlowError {
	return schema.NewErrorf(schema.ErrCodeExpression, "%s %s %q: %s", dialect, phase, source, cause.Error()).
		WithCause(cause).
		WithDetails(map[string]any{"expression": source, "dialect": dialect})
}

func emptyExpression(dialect string) error {
	return schema.NewErrorf(schema.ErrCodeExpression, "empty %s expression", dialect)
}
