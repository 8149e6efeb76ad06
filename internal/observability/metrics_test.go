package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetricsForTesting_Unregistered(t *testing.T) {
	m1 := NewMetricsForTesting()
	m2 := NewMetricsForTesting()

	m1.FramesRendered.Inc()
	assert.InDelta(t, 1.0, testutil.ToFloat64(m1.FramesRendered), 0)
	assert.InDelta(t, 0.0, testutil.ToFloat64(m2.FramesRendered), 0)
}

func TestMetrics_RegisterWithNamespace(t *testing.T) {
	m := newMetrics(true)
	reg := prometheus.NewPedanticRegistry()
	require.NoError(t, reg.Register(m.WindRequests))
	require.NoError(t, reg.Register(m.FrameFaults))

	m.WindRequests.WithLabelValues("ok").Inc()
	m.FrameFaults.Inc()

	n, err := testutil.GatherAndCount(reg, "wind_stream_wind_requests_total", "wind_stream_frame_faults_total")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}
