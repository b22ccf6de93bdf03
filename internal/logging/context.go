package logging

import (
	"context"
	"log/slog"
)

// Attribute keys for correlation IDs.
const (
	KeyFlowID      = "flow_id"
	KeyStateID     = "state_id"
	KeyExecutionID = "execution_id"
	KeyEventID     = "event_id"
)

// correlation is stored by value under a single context key; each With*
// copies it, so parents never observe a child's IDs.
type correlation struct {
	flow, state, execution, event string
}

type correlationKey struct{}

func fromContext(ctx context.Context) correlation {
	c, _ := ctx.Value(correlationKey{}).(correlation)
	return c
}

func update(ctx context.Context, set func(*correlation)) context.Context {
	c := fromContext(ctx)
	set(&c)
	return context.WithValue(ctx, correlationKey{}, c)
}

func WithFlowID(ctx context.Context, id string) context.Context {
	return update(ctx, func(c *correlation) { c.flow = id })
}

func WithStateID(ctx context.Context, id string) context.Context {
	return update(ctx, func(c *correlation) { c.state = id })
}

func WithExecutionID(ctx context.Context, id string) context.Context {
	return update(ctx, func(c *correlation) { c.execution = id })
}

// WithEventID records the event being signalled.
func WithEventID(ctx context.Context, id string) context.Context {
	return update(ctx, func(c *correlation) { c.event = id })
}

// WithIDs sets flow, state and execution IDs in one step. The event ID is kept.
func WithIDs(ctx context.Context, flowID, stateID, executionID string) context.Context {
	return update(ctx, func(c *correlation) {
		c.flow, c.state, c.execution = flowID, stateID, executionID
	})
}

func FlowID(ctx context.Context) string      { return fromContext(ctx).flow }
func StateID(ctx context.Context) string     { return fromContext(ctx).state }
func ExecutionID(ctx context.Context) string { return fromContext(ctx).execution }
func EventID(ctx context.Context) string     { return fromContext(ctx).event }

func (c correlation) attrs() []slog.Attr {
	pairs := [...]struct{ key, val string }{
		{KeyFlowID, c.flow},
		{KeyStateID, c.state},
		{KeyExecutionID, c.execution},
		{KeyEventID, c.event},
	}
	var out []slog.Attr
	for _, p := range pairs {
		if p.val != "" {
			out = append(out, slog.String(p.key, p.val))
		}
	}
	return out
}

// LogWith returns logger carrying the non-empty correlation IDs of ctx.
func LogWith(ctx context.Context, logger *slog.Logger) *slog.Logger {
	attrs := fromContext(ctx).attrs()
	if len(attrs) == 0 {
		return logger
	}
	args := make([]any, len(attrs))
	for i, a := range attrs {
		args[i] = a
	}
	return logger.With(args...)
}

// CorrelationHandler adds the correlation IDs found in a record's context
// to the record before passing it on.
type CorrelationHandler struct {
	next slog.Handler
}

func NewCorrelationHandler(next slog.Handler) *CorrelationHandler {
	return &CorrelationHandler{next: next}
}

func (h *CorrelationHandler) Enabled(ctx context.Context, l slog.Level) bool {
	return h.next.Enabled(ctx, l)
}

func (h *CorrelationHandler) Handle(ctx context.Context, r slog.Record) error {
	r.AddAttrs(fromContext(ctx).attrs()...)
	return h.next.Handle(ctx, r)
}

func (h *CorrelationHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return NewCorrelationHandler(h.next.WithAttrs(attrs))
}

func (h *CorrelationHandler) WithGroup(name string) slog.Handler {
	return NewCorrelationHandler(h.next.WithGroup(name))
}
