package flow

import (
	"context"
	"log/slog"

	"github.com/rendis/authflow/internal/expressions"
)

// Event is the outcome signalled by an action or raised by a user submit.
type Event struct {
	ID         string
	Attributes map[string]any
}

// Action is a unit of work executed inside a state.
type Action interface {
	Name() string
	Execute(ctx context.Context, rc *RequestContext) (Event, error)
}

// ActionFunc adapts a function to the Action interface.
type ActionFunc struct {
	name string
	fn   func(ctx context.Context, rc *RequestContext) (Event, error)
}

// NewAction wraps fn as a named Action.
func NewAction(name string, fn func(ctx context.Context, rc *RequestContext) (Event, error)) *ActionFunc {
	return &ActionFunc{name: name, fn: fn}
}

func (a *ActionFunc) Name() string { return a.name }

func (a *ActionFunc) Execute(ctx context.Context, rc *RequestContext) (Event, error) {
	return a.fn(ctx, rc)
}

// RequestContext is what actions, predicates and views see while a state
// executes.
type RequestContext struct {
	ExecutionID string
	FlowID      string
	StateID     string

	Scope   *expressions.Scope
	Request map[string]any
	Event   string

	// View is set by the view or final-response rendering of the current state.
	View   *View
	Logger *slog.Logger
}

// Data builds the evaluation data for expressions: flow variables at the top
// level, plus the reserved keys "flow", "request" and "event".
func (rc *RequestContext) Data() map[string]any {
	var vars map[string]any
	if rc.Scope != nil {
		vars = rc.Scope.Snapshot()
	} else {
		vars = make(map[string]any)
	}

	data := expressions.DeepCopy(vars)
	data[expressions.KeyFlow] = vars
	request := rc.Request
	if request == nil {
		request = map[string]any{}
	}
	data[expressions.KeyRequest] = request
	data[expressions.KeyEvent] = rc.Event
	return data
}

// Log returns the context logger, falling back to slog.Default.
func (rc *RequestContext) Log() *slog.Logger {
	if rc.Logger != nil {
		return rc.Logger
	}
	return slog.Default()
}
