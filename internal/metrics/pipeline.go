package metrics

import "github.com/prometheus/client_golang/prometheus"

// Pipeline metrics. Fallback and technique counters are how silent degradation shows up.
var (
	PipelineRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_requests_total",
			Help:      "Pipeline invocations by outcome",
		},
		[]string{"status"}, // success / failed
	)

	PipelineStageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pipeline_stage_duration_seconds",
			Help:      "Per-stage pipeline latency",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 3, 10},
		},
		[]string{"stage"},
	)

	PipelineTechniquesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_techniques_total",
			Help:      "Techniques applied per invocation",
		},
		[]string{"technique"},
	)

	PipelineFallbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_fallbacks_total",
			Help:      "Stage fallbacks taken",
		},
		[]string{"stage"},
	)

	SecretsRedactedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "secrets_redacted_total",
			Help:      "Secret-shaped substrings redacted from responses",
		},
		[]string{"pattern"},
	)

	QueryCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "query_cache_total",
			Help:      "Answer cache hits and misses",
		},
		[]string{"result"}, // hit / miss / bypass
	)

	GatewayFindingsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gateway_findings_total",
			Help:      "Suspicious input patterns detected at the gateway",
		},
		[]string{"category"},
	)

	IndexDocuments = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "index_documents",
			Help:      "Documents currently held by the index",
		},
	)
)

func registerPipeline() {
	prometheus.MustRegister(PipelineRequestsTotal)
	prometheus.MustRegister(PipelineStageDuration)
	prometheus.MustRegister(PipelineTechniquesTotal)
	prometheus.MustRegister(PipelineFallbacksTotal)
	prometheus.MustRegister(SecretsRedactedTotal)
	prometheus.MustRegister(QueryCacheTotal)
	prometheus.MustRegister(GatewayFindingsTotal)
	prometheus.MustRegister(IndexDocuments)
}
