package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		aiTokensIn,
		aiStreamChunksTotal,
		aiGenerationLatencyMs,
		aiGenerationsTotal,
	)
}

var (
	aiTokensIn = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_tokens_in",
			Help: "Sum of prompt (input) tokens per model, history included.",
		},
		[]string{"model"},
	)

	aiStreamChunksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_stream_chunks_total",
			Help: "Text chunks streamed to clients per model.",
		},
		[]string{"model"},
	)

	aiGenerationLatencyMs = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ai_generation_latency_ms",
			Help:    "Time from request to end of stream in milliseconds.",
			Buckets: []float64{100, 250, 500, 1000, 2000, 4000, 8000, 16000, 32000, 64000},
		},
		[]string{"model", "result"},
	)

	aiGenerationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_generations_total",
			Help: "Generations by outcome (success, provider_error, stream_error, cancelled).",
		},
		[]string{"result"},
	)
)

// Generation outcomes.
const (
	ResultSuccess       = "success"
	ResultProviderError = "provider_error"
	ResultStreamError   = "stream_error"
	ResultCancelled     = "cancelled"
)

func AddTokensIn(model string, n int) {
	aiTokensIn.WithLabelValues(norm(model)).Add(float64(n))
}

func ObserveGeneration(model, result string, chunks int, latencyMs int64) {
	aiStreamChunksTotal.WithLabelValues(norm(model)).Add(float64(chunks))
	aiGenerationLatencyMs.WithLabelValues(norm(model), norm(result)).Observe(float64(latencyMs))
	aiGenerationsTotal.WithLabelValues(norm(result)).Inc()
}
