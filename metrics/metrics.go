// Package metrics 定义 Prometheus 指标（promauto 注册到默认 Registry）。
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// 引擎请求
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shopsense_requests_total",
			Help: "Total number of engine requests by operation and result",
		},
		[]string{"operation", "result"}, // result: ok / cached / not_ready / not_found / invalid / error
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "shopsense_request_duration_seconds",
			Help:    "Engine request duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"operation"},
	)

	// 召回与兜底
	CandidatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shopsense_results_total",
			Help: "Total number of returned results by pool",
		},
		[]string{"pool"}, // primary / fallback
	)

	ColdStartTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "shopsense_cold_start_total",
			Help: "Total number of recommendations served from the catalog centroid",
		},
	)

	IndexEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "shopsense_index_entries",
			Help: "Number of vectors in the loaded index",
		},
	)

	// 缓存
	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shopsense_cache_lookups_total",
			Help: "Total number of cache lookups by key class and result",
		},
		[]string{"class", "result"}, // class: recommend / explain; result: hit / miss / error
	)

	CacheWriteErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shopsense_cache_write_errors_total",
			Help: "Total number of failed cache writes",
		},
		[]string{"class"},
	)

	// 上游依赖
	UpstreamFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shopsense_upstream_failures_total",
			Help: "Total number of failed upstream calls",
		},
		[]string{"service"}, // eventlog / llm
	)

	// 熔断器
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "shopsense_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shopsense_circuit_breaker_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shopsense_circuit_breaker_requests_total",
			Help: "Total number of requests through a circuit breaker by result",
		},
		[]string{"name", "result"}, // success / failure / rejected
	)

	// HTTP
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shopsense_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "shopsense_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"method", "endpoint"},
	)
)

// RecordRequest 记录一次引擎请求。
func RecordRequest(operation, result string, start time.Time) {
	RequestsTotal.WithLabelValues(operation, result).Inc()
	RequestDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// RecordAPIRequest 记录一次 HTTP 请求。
func RecordAPIRequest(method, endpoint string, status int, d time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(status)).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(d.Seconds())
}
