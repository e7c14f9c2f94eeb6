package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds every statuscomms collector plus the Go and process collectors.
var Registry = prometheus.NewRegistry()

var factory = promauto.With(Registry)

var (
	ServiceCalls = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: "statuscomms",
		Name:      "service_calls_total",
		Help:      "Generative-text service attempts by call shape and outcome.",
	}, []string{"shape", "outcome"})

	ServiceLatency = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "statuscomms",
		Name:      "service_call_seconds",
		Help:      "Latency of a single generative-text service attempt.",
		Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 45, 90},
	}, []string{"shape"})

	StageDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "statuscomms",
		Name:      "stage_seconds",
		Help:      "Duration of each pipeline stage.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"stage"})

	PipelineRuns = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: "statuscomms",
		Name:      "pipeline_runs_total",
		Help:      "Pipeline invocations by phase and result classification.",
	}, []string{"phase", "result"})

	GuardrailVerdicts = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: "statuscomms",
		Name:      "guardrail_verdicts_total",
		Help:      "Deterministic check verdicts.",
	}, []string{"check", "status"})

	ConfidenceScore = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: "statuscomms",
		Name:      "confidence_score",
		Help:      "Aggregated confidence score of graded drafts.",
		Buckets:   []float64{0.2, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1},
	})

	ExtractCache = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: "statuscomms",
		Name:      "extract_cache_total",
		Help:      "Extraction cache lookups by result.",
	}, []string{"result"})

	EmitFailures = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: "statuscomms",
		Name:      "emit_failures_total",
		Help:      "Completion events that could not be delivered, by sink.",
	}, []string{"sink"})
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// Handler serves the registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
