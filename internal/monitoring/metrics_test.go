package monitoring

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsRegisterPerInstance(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	// A second instance on a different registry must not panic.
	NewMetrics(prometheus.NewRegistry())

	m.EventsTotal.WithLabelValues("tab_created").Inc()
	m.RestoresTotal.WithLabelValues(RestoreMatched).Inc()
	m.ObserveStore(2, 7)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.EventsTotal.WithLabelValues("tab_created")))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.Tabs))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestMetricsWithoutRegistry(t *testing.T) {
	m := NewMetrics(nil)
	m.SavesTotal.Inc()
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SavesTotal))
}
