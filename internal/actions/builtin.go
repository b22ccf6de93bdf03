package actions

import (
	"context"
	"log/slog"

	"github.com/rendis/authflow/internal/expressions"
	"github.com/rendis/authflow/internal/flow"
	"github.com/rendis/authflow/internal/views"
	"github.com/rendis/authflow/pkg/schema"
)

// Deps holds what the built-in factories need.
type Deps struct {
	Parser *expressions.Parser
	Logger *slog.Logger
	Views  views.Creator // nil = views.NewCreator()
}

// Builtins returns the built-in action factories.
func Builtins(deps Deps) []Factory {
	return []Factory{
		&evaluateFactory{parser: deps.Parser},
		&setFactory{parser: deps.Parser},
		&signalFactory{},
		&logFactory{logger: deps.Logger},
		&failFactory{},
		newRenderFactory(deps),
	}
}

// RegisterBuiltins registers all built-in factories in the given registry.
func RegisterBuiltins(reg *Registry, deps Deps) error {
	for _, f := range Builtins(deps) {
		if err := reg.Register(f); err != nil {
			return err
		}
	}
	return nil
}

// --- evaluate ---

type evaluateFactory struct {
	parser *expressions.Parser
}

func (f *evaluateFactory) Name() string { return "evaluate" }

func (f *evaluateFactory) Schema() ActionSchema {
	return ActionSchema{
		Description: "Evaluate an expression and signal its result as the event, or store it at 'result'.",
		Required:    []string{"expression"},
		Optional:    []string{"result"},
	}
}

func (f *evaluateFactory) Validate(params map[string]any) error {
	if stringParam(params, "expression", "") == "" {
		return schema.NewError(schema.ErrCodeValidation, "evaluate: missing required param 'expression'")
	}
	return nil
}

func (f *evaluateFactory) New(params map[string]any) (flow.Action, error) {
	expr, err := f.parser.Parse(stringParam(params, "expression", ""), expressions.TypeAny)
	if err != nil {
		return nil, err
	}
	var result *expressions.PathExpression
	if r := stringParam(params, "result", ""); r != "" {
		if result, err = expressions.ParsePath(r); err != nil {
			return nil, err
		}
	}
	return NewEvaluateAction(expr, result), nil
}

// --- set ---

type setFactory struct {
	parser *expressions.Parser
}

func (f *setFactory) Name() string { return "set" }

func (f *setFactory) Schema() ActionSchema {
	return ActionSchema{
		Description: "Assign the value of an expression to a flow scope variable.",
		Required:    []string{"name", "value"},
		Optional:    []string{"type"},
	}
}

func (f *setFactory) Validate(params map[string]any) error {
	if stringParam(params, "name", "") == "" || stringParam(params, "value", "") == "" {
		return schema.NewError(schema.ErrCodeValidation, "set: params 'name' and 'value' are required")
	}
	return nil
}

func (f *setFactory) New(params map[string]any) (flow.Action, error) {
	typ, err := expressions.ParseType(stringParam(params, "type", ""))
	if err != nil {
		return nil, err
	}
	target, err := expressions.ParsePath(stringParam(params, "name", ""))
	if err != nil {
		return nil, err
	}
	value, err := f.parser.Parse(stringParam(params, "value", ""), typ)
	if err != nil {
		return nil, err
	}
	return &SetAction{Target: target, Value: value}, nil
}

// --- signal ---

type signalFactory struct{}

func (f *signalFactory) Name() string { return "signal" }

func (f *signalFactory) Schema() ActionSchema {
	return ActionSchema{
		Description: "Signal a fixed event, optionally with attributes.",
		Required:    []string{"event"},
		Optional:    []string{"attributes"},
	}
}

func (f *signalFactory) Validate(params map[string]any) error {
	if stringParam(params, "event", "") == "" {
		return schema.NewError(schema.ErrCodeValidation, "signal: missing required param 'event'")
	}
	return nil
}

func (f *signalFactory) New(params map[string]any) (flow.Action, error) {
	ev := flow.Event{ID: stringParam(params, "event", ""), Attributes: mapParam(params, "attributes")}
	return flow.NewAction("signal", func(context.Context, *flow.RequestContext) (flow.Event, error) {
		return ev, nil
	}), nil
}

// --- log ---

type logFactory struct {
	logger *slog.Logger
}

func (f *logFactory) Name() string { return "log" }

func (f *logFactory) Schema() ActionSchema {
	return ActionSchema{
		Description: "Write a structured log entry with flow context and signal success.",
		Required:    []string{"message"},
		Optional:    []string{"level"},
	}
}

func (f *logFactory) Validate(params map[string]any) error {
	if stringParam(params, "message", "") == "" {
		return schema.NewError(schema.ErrCodeValidation, "log: missing required param 'message'")
	}
	switch stringParam(params, "level", "info") {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return schema.NewError(schema.ErrCodeValidation, "log: 'level' must be one of debug, info, warn, error")
	}
}

func (f *logFactory) New(params map[string]any) (flow.Action, error) {
	level := stringParam(params, "level", "info")
	message := stringParam(params, "message", "")

	return flow.NewAction("log", func(ctx context.Context, rc *flow.RequestContext) (flow.Event, error) {
		logger := f.logger
		if logger == nil {
			logger = rc.Log()
		}
		attrs := []any{
			slog.String("flow_id", rc.FlowID),
			slog.String("state_id", rc.StateID),
		}

		switch level {
		case "debug":
			logger.DebugContext(ctx, message, attrs...)
		case "warn":
			logger.WarnContext(ctx, message, attrs...)
		case "error":
			logger.ErrorContext(ctx, message, attrs...)
		default:
			logger.InfoContext(ctx, message, attrs...)
		}
		return flow.Event{ID: schema.TransitionSuccess}, nil
	}), nil
}

// --- fail ---

type failFactory struct{}

func (f *failFactory) Name() string { return "fail" }

func (f *failFactory) Schema() ActionSchema {
	return ActionSchema{
		Description: "Fail the execution with the given reason.",
		Optional:    []string{"reason"},
	}
}

func (f *failFactory) Validate(map[string]any) error { return nil }

func (f *failFactory) New(params map[string]any) (flow.Action, error) {
	reason := stringParam(params, "reason", "fail action invoked")
	return flow.NewAction("fail", func(_ context.Context, rc *flow.RequestContext) (flow.Event, error) {
		return flow.Event{}, schema.NewError(schema.ErrCodeExecution, reason).WithState(rc.StateID)
	}), nil
}

// --- render ---

type renderFactory struct {
	parser *expressions.Parser
	views  views.Creator
}

func newRenderFactory(deps Deps) *renderFactory {
	creator := deps.Views
	if creator == nil {
		creator = views.NewCreator()
	}
	return &renderFactory{parser: deps.Parser, views: creator}
}

func (f *renderFactory) Name() string { return "render" }

func (f *renderFactory) Schema() ActionSchema {
	return ActionSchema{
		Description: "Render a view once per state and attach it to the execution result.",
		Optional:    []string{"view", "view_expr"},
	}
}

func (f *renderFactory) Validate(params map[string]any) error {
	view, expr := stringParam(params, "view", ""), stringParam(params, "view_expr", "")
	if (view == "") == (expr == "") {
		return schema.NewError(schema.ErrCodeValidation, "render: exactly one of 'view' or 'view_expr' is required")
	}
	return nil
}

func (f *renderFactory) New(params map[string]any) (flow.Action, error) {
	var id expressions.Expression = expressions.Literal(stringParam(params, "view", ""), expressions.TypeString)
	if raw := stringParam(params, "view_expr", ""); raw != "" {
		expr, err := f.parser.Parse(raw, expressions.TypeString)
		if err != nil {
			return nil, err
		}
		id = expr
	}
	vf, err := f.views.CreateViewFactory(id)
	if err != nil {
		return nil, err
	}
	return views.NewFinalResponseAction(vf), nil
}
