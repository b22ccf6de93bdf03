package diagram

import (
	"context"
	"errors"
	"testing"

	"github.com/rendis/authflow/internal/engine"
	"github.com/rendis/authflow/internal/flow"
	"github.com/rendis/authflow/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistoryOverlayPaused(t *testing.T) {
	b := newTestBuilder(t)
	loginFlow(t, b)
	h := engine.NewHistory()
	exec := engine.NewExecutor(b.Registry(), engine.Config{Recorder: h})

	x, err := exec.Start(context.Background(), "login", nil)
	require.NoError(t, err)

	overlay := HistoryOverlay("login", h.Records(x.ID), x)
	require.Contains(t, overlay, "form")
	assert.Equal(t, StatusCurrent, overlay["form"].Status)
	assert.Equal(t, 1, overlay["form"].Visits)
	assert.NotContains(t, overlay, "done")
}

func TestHistoryOverlayLoopAndEnd(t *testing.T) {
	b := newTestBuilder(t)
	loginFlow(t, b)
	h := engine.NewHistory()
	exec := engine.NewExecutor(b.Registry(), engine.Config{Recorder: h})
	ctx := context.Background()

	x, err := exec.Start(ctx, "login", nil)
	require.NoError(t, err)
	_, err = exec.Signal(ctx, x.ID, schema.Signal{Event: "submit"})
	require.NoError(t, err)
	x, err = exec.Signal(ctx, x.ID, schema.Signal{Event: "submit", Payload: map[string]any{"ticket": "TGT-1"}})
	require.NoError(t, err)
	require.Equal(t, schema.ExecutionStatusEnded, x.Status)

	overlay := HistoryOverlay("login", h.Records(x.ID), x)
	assert.Equal(t, 2, overlay["form"].Visits)
	assert.Equal(t, 2, overlay["check"].Visits)
	assert.Equal(t, StatusVisited, overlay["done"].Status)
	for _, o := range overlay {
		assert.Equal(t, StatusVisited, o.Status)
	}
}

func TestHistoryOverlayFailed(t *testing.T) {
	b := newTestBuilder(t)
	f, err := b.EnsureFlow("broken")
	require.NoError(t, err)
	_, err = b.CreateActionState(f, "boom", flow.NewAction("boom", func(context.Context, *flow.RequestContext) (flow.Event, error) {
		return flow.Event{}, errors.New("kaput")
	}))
	require.NoError(t, err)

	h := engine.NewHistory()
	exec := engine.NewExecutor(b.Registry(), engine.Config{Recorder: h})
	x, err := exec.Start(context.Background(), "broken", nil)
	require.Error(t, err)
	require.NotNil(t, x)

	overlay := HistoryOverlay("broken", h.Records(x.ID), x)
	require.Contains(t, overlay, "boom")
	assert.Equal(t, StatusFailed, overlay["boom"].Status)
}

func TestHistoryOverlayFiltersRecords(t *testing.T) {
	recs := []*engine.Record{
		{FlowID: "login", StateID: "form", Type: schema.EventStateEntered},
		{FlowID: "login", StateID: "form", Type: schema.EventStateExited},
		{FlowID: "other", StateID: "x", Type: schema.EventStateEntered},
	}
	overlay := HistoryOverlay("login", recs, nil)
	require.Len(t, overlay, 1)
	assert.Equal(t, 1, overlay["form"].Visits)
	assert.Equal(t, StatusVisited, overlay["form"].Status)
}
