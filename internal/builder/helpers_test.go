package builder

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rendis/authflow/internal/expressions"
	"github.com/rendis/authflow/internal/flow"
	"github.com/rendis/authflow/internal/metrics"
	"github.com/stretchr/testify/require"
)

func newTestBuilder(t *testing.T) (*Builder, *metrics.Metrics) {
	t.Helper()
	parser, err := expressions.NewDefaultParser()
	require.NoError(t, err)
	m := metrics.New(prometheus.NewRegistry())
	return New(flow.NewRegistry(), parser, Config{Metrics: m, Autoconfigure: true}), m
}

func noop(name string) flow.Action {
	return flow.NewAction(name, nil)
}

func targets(s *flow.State) []string {
	var out []string
	for _, t := range s.Transitions.All() {
		out = append(out, t.Criteria.String()+"->"+t.Target)
	}
	return out
}
