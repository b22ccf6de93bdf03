package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Builder(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.StateCreated("action")
	m.StateCreated("action")
	m.StateReused("end")
	m.TransitionAdded("literal")
	m.FlowsMerged(3, 1)
	m.InitFailed()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.StatesCreated.WithLabelValues("action")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StatesReused.WithLabelValues("end")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TransitionsAdded.WithLabelValues("literal")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.RegistryMerged))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RegistryOverwrites))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.InitFailures))
}

func TestMetrics_Engine(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ExecutionStarted()
	m.ExecutionStarted()
	m.TransitionTaken("login")
	m.MappingSkipped(2)
	m.MappingSkipped(0)
	m.ExecutionFinished("login", "ended", 0.01)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ExecutionsActive))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ExecutionsTotal.WithLabelValues("login", "ended")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TransitionsTaken.WithLabelValues("login")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.MappingsSkipped))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.StateCreated("action")
		m.FlowsMerged(1, 1)
		m.InitFailed()
		m.ExecutionStarted()
		m.ExecutionFinished("login", "ended", 1)
	})
}
