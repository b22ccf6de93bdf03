package engine

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rendis/authflow/internal/builder"
	"github.com/rendis/authflow/internal/expressions"
	"github.com/rendis/authflow/internal/flow"
	"github.com/rendis/authflow/internal/metrics"
	"github.com/stretchr/testify/require"
)

type harness struct {
	b       *builder.Builder
	exec    *Executor
	history *History
	metrics *metrics.Metrics
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	parser, err := expressions.NewDefaultParser()
	require.NoError(t, err)
	reg := flow.NewRegistry()
	m := metrics.New(prometheus.NewRegistry())
	h := NewHistory()
	return &harness{
		b:       builder.New(reg, parser, builder.Config{Metrics: m, Autoconfigure: true}),
		exec:    NewExecutor(reg, Config{Metrics: m, Recorder: h}),
		history: h,
		metrics: m,
	}
}

func (h *harness) flow(t *testing.T, id string) *flow.Flow {
	t.Helper()
	f, err := h.b.EnsureFlow(id)
	require.NoError(t, err)
	return f
}

func (h *harness) expr(t *testing.T, raw string, typ expressions.Type) expressions.Expression {
	t.Helper()
	e, err := h.b.CreateExpression(raw, typ)
	require.NoError(t, err)
	return e
}

func (h *harness) mapping(t *testing.T, name, value string, required bool) *flow.Mapping {
	t.Helper()
	m, err := h.b.CreateMappingToSubflowState(name, value, required, expressions.TypeAny)
	require.NoError(t, err)
	return m
}

// signalAction returns an action that always signals event.
func signalAction(event string) flow.Action {
	return flow.NewAction("signal", func(context.Context, *flow.RequestContext) (flow.Event, error) {
		return flow.Event{ID: event}, nil
	})
}

// captureAction records the scope snapshot it runs with.
func captureAction(into *map[string]any) flow.Action {
	return flow.NewAction("capture", func(_ context.Context, rc *flow.RequestContext) (flow.Event, error) {
		*into = rc.Scope.Snapshot()
		return flow.Event{}, nil
	})
}

// setAction assigns value to key in flow scope.
func setAction(key string, value any) flow.Action {
	return flow.NewAction("set", func(_ context.Context, rc *flow.RequestContext) (flow.Event, error) {
		return flow.Event{}, rc.Scope.Set(value, key)
	})
}
