// Package metrics provides Prometheus metrics for flow building and execution.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "authflow"

// Metrics groups the builder and engine collectors. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	StatesCreated      *prometheus.CounterVec
	StatesReused       *prometheus.CounterVec
	TransitionsAdded   *prometheus.CounterVec
	RegistryMerged     prometheus.Counter
	RegistryOverwrites prometheus.Counter
	InitFailures       prometheus.Counter

	ExecutionsTotal   *prometheus.CounterVec
	ExecutionsActive  prometheus.Gauge
	TransitionsTaken  *prometheus.CounterVec
	MappingsSkipped   prometheus.Counter
	ExecutionDuration *prometheus.HistogramVec
}

// New registers all collectors on reg. Pass prometheus.DefaultRegisterer in
// production and a fresh prometheus.NewRegistry() in tests.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		StatesCreated: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "builder",
			Name:      "states_created_total",
			Help:      "States added to a flow, by kind",
		}, []string{"kind"}),
		StatesReused: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "builder",
			Name:      "states_reused_total",
			Help:      "State constructor calls that returned an existing state, by kind",
		}, []string{"kind"}),
		TransitionsAdded: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "builder",
			Name:      "transitions_added_total",
			Help:      "Transitions added to states, by criteria kind",
		}, []string{"criteria"}),
		RegistryMerged: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "builder",
			Name:      "registry_merged_total",
			Help:      "Flows merged into the primary registry",
		}),
		RegistryOverwrites: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "builder",
			Name:      "registry_overwrites_total",
			Help:      "Merged flows that replaced an existing flow with the same id",
		}),
		InitFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "builder",
			Name:      "init_failures_total",
			Help:      "Initialization failures absorbed by the builder",
		}),
		ExecutionsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "executions_total",
			Help:      "Finished executions by flow and final status",
		}, []string{"flow", "status"}),
		ExecutionsActive: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "executions_active",
			Help:      "Executions started and not yet finished",
		}),
		TransitionsTaken: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "transitions_taken_total",
			Help:      "Transitions taken by flow",
		}, []string{"flow"}),
		MappingsSkipped: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "mappings_skipped_total",
			Help:      "Optional subflow mappings skipped for lack of a value",
		}),
		ExecutionDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "execution_duration_seconds",
			Help:      "Wall time from start to end of an execution",
			Buckets:   prometheus.DefBuckets,
		}, []string{"flow"}),
	}
}

func (m *Metrics) StateCreated(kind string) {
	if m != nil {
		m.StatesCreated.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) StateReused(kind string) {
	if m != nil {
		m.StatesReused.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) TransitionAdded(criteria string) {
	if m != nil {
		m.TransitionsAdded.WithLabelValues(criteria).Inc()
	}
}

func (m *Metrics) FlowsMerged(merged, overwritten int) {
	if m != nil {
		m.RegistryMerged.Add(float64(merged))
		m.RegistryOverwrites.Add(float64(overwritten))
	}
}

func (m *Metrics) InitFailed() {
	if m != nil {
		m.InitFailures.Inc()
	}
}

func (m *Metrics) ExecutionStarted() {
	if m != nil {
		m.ExecutionsActive.Inc()
	}
}

func (m *Metrics) ExecutionFinished(flowID, status string, seconds float64) {
	if m != nil {
		m.ExecutionsActive.Dec()
		m.ExecutionsTotal.WithLabelValues(flowID, status).Inc()
		m.ExecutionDuration.WithLabelValues(flowID).Observe(seconds)
	}
}

func (m *Metrics) TransitionTaken(flowID string) {
	if m != nil {
		m.TransitionsTaken.WithLabelValues(flowID).Inc()
	}
}

func (m *Metrics) MappingSkipped(n int) {
	if m != nil && n > 0 {
		m.MappingsSkipped.Add(float64(n))
	}
}
