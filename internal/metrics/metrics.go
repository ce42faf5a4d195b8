package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequestsTotal counts handled requests by route, method and status code.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lightrag_http_requests_total",
		Help: "Total HTTP requests by route, method and status code",
	}, []string{"route", "method", "status"})

	// HTTPRequestDuration tracks request latency. For streamed responses this
	// covers the whole stream.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "lightrag_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.005, 2, 14), // 5ms to ~40s
	}, []string{"route"})

	StreamPacketsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lightrag_stream_packets_total",
		Help: "NDJSON packets written to /query/stream clients by packet kind",
	}, []string{"kind"})

	EngineErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lightrag_engine_errors_total",
		Help: "Engine failures by operation",
	}, []string{"op"})

	// CacheLookupsTotal counts LLM response cache lookups by result (hit, miss, error).
	CacheLookupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lightrag_cache_lookups_total",
		Help: "LLM response cache lookups by result",
	}, []string{"result"})

	LLMCallDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "lightrag_llm_call_duration_seconds",
		Help:    "LLM provider call duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms to ~25s
	}, []string{"provider", "op"})
)
