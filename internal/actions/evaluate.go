package actions

import (
	"context"
	"fmt"

	"github.com/rendis/authflow/internal/expressions"
	"github.com/rendis/authflow/internal/flow"
	"github.com/rendis/authflow/pkg/schema"
)

// Event IDs derived from evaluation results.
const (
	EventYes  = "yes"
	EventNo   = "no"
	EventNull = "null"
)

// EvaluateAction evaluates an expression and signals its result as the event.
// When Result is set, the value is stored there in flow scope and "success"
// is signalled instead.
type EvaluateAction struct {
	Expression expressions.Expression
	Result     *expressions.PathExpression
}

// NewEvaluateAction creates an evaluate action. result may be nil.
func NewEvaluateAction(expr expressions.Expression, result *expressions.PathExpression) *EvaluateAction {
	return &EvaluateAction{Expression: expr, Result: result}
}

func (a *EvaluateAction) Name() string { return "evaluate" }

func (a *EvaluateAction) Execute(ctx context.Context, rc *flow.RequestContext) (flow.Event, error) {
	out, err := a.Expression.Evaluate(ctx, rc.Data())
	if err != nil {
		return flow.Event{}, schema.NewErrorf(schema.ErrCodeExecution,
			"evaluate %q failed", a.Expression.String()).WithState(rc.StateID).WithCause(err)
	}

	if a.Result != nil {
		if err := rc.Scope.Set(out, a.Result.Segments()...); err != nil {
			return flow.Event{}, schema.NewErrorf(schema.ErrCodeExecution,
				"evaluate: cannot store result at %s", a.Result).WithState(rc.StateID).WithCause(err)
		}
		return flow.Event{ID: schema.TransitionSuccess, Attributes: map[string]any{"result": out}}, nil
	}

	return flow.Event{ID: ResultEventID(out), Attributes: map[string]any{"result": out}}, nil
}

// ResultEventID maps an evaluation result to an event ID: booleans become
// "yes" or "no", strings are used as-is, nil becomes "null", and anything
// else signals "success".
func ResultEventID(v any) string {
	switch val := v.(type) {
	case nil:
		return EventNull
	case bool:
		if val {
			return EventYes
		}
		return EventNo
	case string:
		return val
	case fmt.Stringer:
		return val.String()
	default:
		return schema.TransitionSuccess
	}
}

// SetAction assigns the value of an expression to a flow scope path.
type SetAction struct {
	Target *expressions.PathExpression
	Value  expressions.Expression
}

func (a *SetAction) Name() string { return "set" }

func (a *SetAction) Execute(ctx context.Context, rc *flow.RequestContext) (flow.Event, error) {
	v, err := a.Value.Evaluate(ctx, rc.Data())
	if err != nil {
		return flow.Event{}, schema.NewErrorf(schema.ErrCodeExecution,
			"set %s failed", a.Target).WithState(rc.StateID).WithCause(err)
	}
	if err := rc.Scope.Set(v, a.Target.Segments()...); err != nil {
		return flow.Event{}, schema.NewErrorf(schema.ErrCodeExecution,
			"set %s failed", a.Target).WithState(rc.StateID).WithCause(err)
	}
	return flow.Event{ID: schema.TransitionSuccess}, nil
}
