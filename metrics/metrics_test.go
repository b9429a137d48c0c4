package metrics_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/daglabs/chainhook/metrics"
)

func TestCountersIncrement(t *testing.T) {
	r := metrics.New()

	r.ReorgsTotal.WithLabelValues("bitcoin").Inc()
	r.ReorgsTotal.WithLabelValues("bitcoin").Inc()
	r.DispatchExhaustedTotal.WithLabelValues("hook-1").Inc()

	require.Equal(t, float64(2), testutil.ToFloat64(r.ReorgsTotal.WithLabelValues("bitcoin")))
	require.Equal(t, float64(1), testutil.ToFloat64(r.DispatchExhaustedTotal.WithLabelValues("hook-1")))

	families, err := r.Gatherer().Gather()
	require.NoError(t, err)
	require.NotEmpty(t, families)
}
