package expressions

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/cel-go/cel"
)

// Keys of the evaluation data exposed to every dialect.
const (
	KeyFlow    = "flow"
	KeyRequest = "request"
	KeyEvent   = "event"
)

// IsReservedKey reports whether name, or the first segment of a dotted
// name, is one of the keys every evaluation exposes.
func IsReservedKey(name string) bool {
	head, _, _ := strings.Cut(name, ".")
	switch head {
	case KeyFlow, KeyRequest, KeyEvent:
		return true
	}
	return false
}

// CELEngine evaluates Common Expression Language expressions ("cel:" prefix)
// in a sandboxed environment declaring three variables:
//   - flow:    map(string, dyn), the flow scope
//   - request: map(string, dyn), request parameters of the current event
//   - event:   string, the last signalled event id
type CELEngine struct {
	env   *cel.Env
	cache *programCache[cel.Program]
}

func NewCELEngine() (*CELEngine, error) {
	scope := cel.MapType(cel.StringType, cel.DynType)
	env, err := cel.NewEnv(
		cel.Variable(KeyFlow, scope),
		cel.Variable(KeyRequest, scope),
		cel.Variable(KeyEvent, cel.StringType),
	)
	if err != nil {
		return nil, fmt.Errorf("create CEL environment: %w", err)
	}
	return &CELEngine{env: env, cache: newProgramCache[cel.Program]()}, nil
}

func (e *CELEngine) Name() string { return "cel" }

// Compile type-checks and caches the expression.
func (e *CELEngine) Compile(expression string) error {
	_, err := e.program(expression)
	return err
}

func (e *CELEngine) Evaluate(ctx context.Context, expression string, data map[string]any) (any, error) {
	prg, err := e.program(expression)
	if err != nil {
		return nil, err
	}
	out, _, err := prg.ContextEval(ctx, celVars(data))
	if err != nil {
		return nil, dialectError(e.Name(), "evaluation failed for", expression, err)
	}
	return out.Value(), nil
}

func (e *CELEngine) program(expression string) (cel.Program, error) {
	if expression == "" {
		return nil, emptyExpression(e.Name())
	}
	return e.cache.get(expression, func(src string) (cel.Program, error) {
		ast, iss := e.env.Compile(src)
		if iss != nil && iss.Err() != nil {
			return nil, dialectError(e.Name(), "compile error in", src, iss.Err())
		}
		prg, err := e.env.Program(ast)
		if err != nil {
			return nil, dialectError(e.Name(), "program error for", src, err)
		}
		return prg, nil
	})
}

// celVars binds evaluation data to the declared variables. Data without a
// "flow" key is used as the flow scope itself; absent variables are bound to
// empty values so lookups fail as "no such key" rather than on nil.
func celVars(data map[string]any) map[string]any {
	vars := map[string]any{
		KeyFlow:    map[string]any{},
		KeyRequest: map[string]any{},
		KeyEvent:   "",
	}
	if fl, ok := data[KeyFlow].(map[string]any); ok {
		vars[KeyFlow] = fl
	} else if data != nil {
		vars[KeyFlow] = data
	}
	if rq, ok := data[KeyRequest].(map[string]any); ok {
		vars[KeyRequest] = rq
	}
	if ev, ok := data[KeyEvent].(string); ok {
		vars[KeyEvent] = ev
	}
	return vars
}

var _ Engine = (*CELEngine)(nil)
