package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, reg *prometheus.Registry, operation, outcome string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != "ontology_store_operations_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			labels := map[string]string{}
			for _, lp := range m.GetLabel() {
				labels[lp.GetName()] = lp.GetValue()
			}
			if labels["operation"] == operation && labels["outcome"] == outcome {
				return m.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func TestStoreMetrics_Observe(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewStoreMetrics(reg)
	require.NoError(t, err)

	m.Observe("create", OutcomeSuccess, time.Now())
	m.Observe("create", OutcomeSuccess, time.Now())
	m.Observe("get_by_id", OutcomeNotFound, time.Now())

	assert.Equal(t, 2.0, counterValue(t, reg, "create", OutcomeSuccess))
	assert.Equal(t, 1.0, counterValue(t, reg, "get_by_id", OutcomeNotFound))
	assert.Equal(t, 0.0, counterValue(t, reg, "create", OutcomeError))
}

func TestStoreMetrics_DoubleRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewStoreMetrics(reg)
	require.NoError(t, err)

	_, err = NewStoreMetrics(reg)
	assert.Error(t, err)
}

func TestStoreMetrics_NilReceiver(t *testing.T) {
	var m *StoreMetrics
	assert.NotPanics(t, func() {
		m.Observe("count", OutcomeError, time.Now())
	})
}
