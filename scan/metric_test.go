package scan

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMetricsCollectors(t *testing.T) {
	require := require.New(t)

	metrics := &Metrics{}
	metrics.incRunStart()
	metrics.incRunStart()
	metrics.incRunComplete()
	metrics.incRunInterrupt()
	metrics.incRunReject()
	metrics.incSample()
	metrics.incSample()
	metrics.incSample()

	collectors := metrics.Collectors()
	require.Len(collectors, 6)

	// all collectors register cleanly under one registry
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors...)

	wants := []float64{2, 1, 1, 0, 1, 3}
	for i, collector := range collectors {
		require.Equal(wants[i], testutil.ToFloat64(collector))
	}

	// CounterFunc reads live values, later increments are visible
	metrics.incRunFail()
	require.Equal(float64(1), testutil.ToFloat64(collectors[3]))
}
