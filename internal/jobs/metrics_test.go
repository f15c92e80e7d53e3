package jobmetrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestTrackerRecordsOutcome(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	require.NoError(t, m.Track("layout:integrity").End(nil))
	boom := errors.New("boom")
	require.ErrorIs(t, m.Track("layout:integrity").End(boom), boom)

	require.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("layout:integrity", "success")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("layout:integrity", "failure")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.failures.WithLabelValues("layout:integrity")))
}

func TestAddCompactedRows(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	m.AddCompactedRows("S1", 2)
	m.AddCompactedRows("S1", 0)

	require.Equal(t, 2.0, testutil.ToFloat64(m.compacted.WithLabelValues("S1")))

	var nilMetrics *Metrics
	nilMetrics.AddCompactedRows("S1", 3)
	require.NoError(t, nilMetrics.Track("x").End(nil))
}
