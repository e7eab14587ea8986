package recon

import "github.com/prometheus/client_golang/prometheus"

// Metrics exposes the engine's runtime counters/histograms in Prometheus
// format, the same shape as the teacher's PrometheusMetrics
// (pkg/bubbly/monitoring/prometheus.go): every metric name-prefixed, wired
// through a caller-supplied Registerer rather than the global default so
// tests can use an isolated registry.
type Metrics struct {
	BatchDuration   prometheus.Histogram
	SimilarityHits  prometheus.Counter
	SimilarityMiss  prometheus.Counter
	ReconcileOps    *prometheus.CounterVec
	RenderFailures  *prometheus.CounterVec
	SchedulerQueue  prometheus.Gauge
}

// NewMetrics registers every recon_* metric against reg. Registration
// failures panic, matching the teacher's fail-fast MustRegister pattern.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		BatchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "recon_batch_duration_seconds",
			Help:    "Duration of a commit batch from begin_batch to commit_batch.",
			Buckets: prometheus.DefBuckets,
		}),
		SimilarityHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "recon_similarity_cache_hits_total",
			Help: "Total SimilarityCache hits.",
		}),
		SimilarityMiss: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "recon_similarity_cache_misses_total",
			Help: "Total SimilarityCache misses.",
		}),
		ReconcileOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "recon_bridge_ops_total",
			Help: "Total bridge operations applied from the effect list, partitioned by operation name.",
		}, []string{"op"}),
		RenderFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "recon_render_failures_total",
			Help: "Total render-related failures, partitioned by error kind (E1-E6).",
		}, []string{"kind"}),
		SchedulerQueue: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "recon_scheduler_pending",
			Help: "Number of component ids currently queued in the UpdateScheduler.",
		}),
	}
	reg.MustRegister(m.BatchDuration, m.SimilarityHits, m.SimilarityMiss, m.ReconcileOps, m.RenderFailures, m.SchedulerQueue)
	return m
}

// RecordBridgeOp increments the per-operation-name counter. Engine.applyEffect
// calls it for each effect it applies; the bridge calls renderToNative makes
// directly (create_view, attach_view, set_children, add_event_listeners) are
// not counted.
func (m *Metrics) RecordBridgeOp(op string) {
	if m == nil {
		return
	}
	m.ReconcileOps.WithLabelValues(op).Inc()
}

// RecordFailure increments the per-error-kind counter (E1-E6).
func (m *Metrics) RecordFailure(kind string) {
	if m == nil {
		return
	}
	m.RenderFailures.WithLabelValues(kind).Inc()
}
