package navigator

import (
	"testing"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-seqlog/pkg/metrics"
)

func testCounter(t *testing.T, reg *metrics.Registry, op, result string) float64 {
	t.Helper()
	c, err := reg.NavigatorLookupsTotal.GetMetricWithLabelValues(op, result)
	require.NoError(t, err)
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.Counter.GetValue()
}

func testGauge(t *testing.T, reg *metrics.Registry, name string) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, reg.NavigatorIndexEntries.WithLabelValues(name).Write(&m))
	return m.Gauge.GetValue()
}
