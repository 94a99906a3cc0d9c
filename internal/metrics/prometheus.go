package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus collectors for the relay.
type Metrics struct {
	// Reassembly
	FragmentsReceived  prometheus.Counter
	FragmentsRejected  prometheus.Counter
	ReassemblyOutcomes *prometheus.CounterVec
	ActiveSessions     prometheus.Gauge
	SessionsReaped     prometheus.Counter

	// QueuedUtterancesDropped counts queued completions overwritten by a newer one.
	QueuedUtterancesDropped prometheus.Counter

	// Pipeline
	GateDecisions     *prometheus.CounterVec
	EngineRequests    *prometheus.CounterVec
	EngineDuration    *prometheus.HistogramVec
	DegradedResponses prometheus.Counter
	PipelineDuration  prometheus.Histogram

	// Translation cache
	TranslationCache        *prometheus.CounterVec
	TranslationCacheEntries prometheus.Gauge

	// Broadcast
	Broadcasts       *prometheus.CounterVec
	BroadcastRetries *prometheus.CounterVec

	// HTTP API
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// New creates all collectors and registers them on reg.
// Pass prometheus.DefaultRegisterer in the server and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		FragmentsReceived: f.NewCounter(prometheus.CounterOpts{
			Name: "relay_fragments_received_total",
			Help: "Audio fragments accepted by the reassembly buffer",
		}),
		FragmentsRejected: f.NewCounter(prometheus.CounterOpts{
			Name: "relay_fragments_rejected_total",
			Help: "Audio fragments rejected as invalid",
		}),
		ReassemblyOutcomes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "relay_reassembly_outcomes_total",
			Help: "Reassembly outcomes by kind",
		}, []string{"outcome"}),
		ActiveSessions: f.NewGauge(prometheus.GaugeOpts{
			Name: "relay_chunk_sessions_active",
			Help: "Chunk sessions currently buffered",
		}),
		SessionsReaped: f.NewCounter(prometheus.CounterOpts{
			Name: "relay_chunk_sessions_reaped_total",
			Help: "Idle chunk sessions removed by the sweep",
		}),
		QueuedUtterancesDropped: f.NewCounter(prometheus.CounterOpts{
			Name: "relay_queued_utterances_dropped_total",
			Help: "Completed utterances replaced in the per-speaker queue before processing",
		}),

		GateDecisions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "relay_gate_decisions_total",
			Help: "Energy gate decisions",
		}, []string{"result"}),
		EngineRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "relay_engine_requests_total",
			Help: "External engine calls by engine and result",
		}, []string{"engine", "result"}),
		EngineDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "relay_engine_duration_seconds",
			Help:    "External engine call latency",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms to ~25s
		}, []string{"engine"}),
		DegradedResponses: f.NewCounter(prometheus.CounterOpts{
			Name: "relay_degraded_responses_total",
			Help: "Utterances answered by the degraded-mode fallback",
		}),
		PipelineDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "relay_pipeline_duration_seconds",
			Help:    "End-to-end utterance processing time",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		}),

		TranslationCache: f.NewCounterVec(prometheus.CounterOpts{
			Name: "relay_translation_cache_total",
			Help: "Translation cache lookups by result",
		}, []string{"tier", "result"}),
		TranslationCacheEntries: f.NewGauge(prometheus.GaugeOpts{
			Name: "relay_translation_cache_entries",
			Help: "Entries held by the in-memory translation cache",
		}),

		Broadcasts: f.NewCounterVec(prometheus.CounterOpts{
			Name: "relay_broadcasts_total",
			Help: "Room data messages sent by type and result",
		}, []string{"type", "result"}),
		BroadcastRetries: f.NewCounterVec(prometheus.CounterOpts{
			Name: "relay_broadcast_retries_total",
			Help: "Asynchronous broadcast retries by result",
		}, []string{"result"}),

		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "relay_http_requests_total",
			Help: "HTTP requests by route and status",
		}, []string{"method", "path", "status"}),
		HTTPRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "relay_http_request_duration_seconds",
			Help:    "HTTP request latency by route",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"}),
	}
}
