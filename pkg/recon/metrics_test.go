package recon

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetrics_RegistersAllSeries(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	require.NotNil(t, m)

	// Vec metrics only appear in Gather() once they have a label
	// combination recorded.
	m.RecordBridgeOp("create_view")
	m.RecordFailure("E1")

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make([]string, len(families))
	for i, f := range families {
		names[i] = f.GetName()
	}

	for _, expected := range []string{
		"recon_batch_duration_seconds",
		"recon_similarity_cache_hits_total",
		"recon_similarity_cache_misses_total",
		"recon_bridge_ops_total",
		"recon_render_failures_total",
		"recon_scheduler_pending",
	} {
		assert.Contains(t, names, expected)
	}
}

func TestMetrics_RecordBridgeOp_PartitionsByOpName(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.RecordBridgeOp("create_view")
	m.RecordBridgeOp("create_view")
	m.RecordBridgeOp("delete_view")

	families, err := reg.Gather()
	require.NoError(t, err)

	var opsFamily *dto.MetricFamily
	for _, f := range families {
		if f.GetName() == "recon_bridge_ops_total" {
			opsFamily = f
			break
		}
	}
	require.NotNil(t, opsFamily, "expected recon_bridge_ops_total to be gathered")
	assert.Equal(t, dto.MetricType_COUNTER, opsFamily.GetType())

	var createCount, deleteCount float64
	for _, metric := range opsFamily.GetMetric() {
		for _, label := range metric.GetLabel() {
			if label.GetName() != "op" {
				continue
			}
			switch label.GetValue() {
			case "create_view":
				createCount = metric.GetCounter().GetValue()
			case "delete_view":
				deleteCount = metric.GetCounter().GetValue()
			}
		}
	}
	assert.Equal(t, float64(2), createCount)
	assert.Equal(t, float64(1), deleteCount)
}

func TestMetrics_NilReceiver_NoPanic(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordBridgeOp("create_view")
		m.RecordFailure("E4")
	})
}
