package expressions

import (
	"context"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// ExprEngine evaluates expr-lang/expr expressions, the default dialect for
// decision predicates and mapping sources. Every key of the evaluation data
// is a top-level variable and unknown variables evaluate to nil.
type ExprEngine struct {
	cache *programCache[*vm.Program]
}

// NewExprEngine creates a new Expr expression engine.
func NewExprEngine() *ExprEngine {
	return &ExprEngine{cache: newProgramCache[*vm.Program]()}
}

func (e *ExprEngine) Name() string { return "expr" }

func (e *ExprEngine) Compile(expression string) error {
	_, err := e.program(expression)
	return err
}

func (e *ExprEngine) Evaluate(_ context.Context, expression string, data map[string]any) (any, error) {
	prg, err := e.program(expression)
	if err != nil {
		return nil, err
	}
	if data == nil {
		data = map[string]any{}
	}
	out, err := vm.Run(prg, data)
	if err != nil {
		return nil, dialectError(e.Name(), "evaluation failed for", expression, err)
	}
	return out, nil
}

// program compiles against an untyped environment so one program serves
// every execution whatever variable types it later sees.
func (e *ExprEngine) program(expression string) (*vm.Program, error) {
	if expression == "" {
		return nil, emptyExpression(e.Name())
	}
	return e.cache.get(expression, func(src string) (*vm.Program, error) {
		prg, err := expr.Compile(src, expr.Env(map[string]any{}), expr.AllowUndefinedVariables())
		if err != nil {
			return nil, dialectError(e.Name(), "compile error in", src, err)
		}
		return prg, nil
	})
}

var _ Engine = (*ExprEngine)(nil)
