// Package metrics provides Prometheus metrics collection for the embedding service.
// It tracks HTTP traffic, batch sizes, model latency, model errors and cache efficiency.
package metrics

import (
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "embedd"

// LatencyBuckets defines histogram buckets for latency metrics (in seconds).
var LatencyBuckets = []float64{
	0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5,
	1.0, 2.5, 5.0, 10.0, 30.0, 60.0, 120.0,
}

var (
	// HTTPRequestsTotal counts handled requests by route pattern and status.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"route", "method", "status"},
	)

	// HTTPRequestDuration tracks end-to-end request latency.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   LatencyBuckets,
		},
		[]string{"route"},
	)

	// BatchSize tracks the number of texts per embed request.
	BatchSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_size",
			Help:      "Number of texts per embed request",
			Buckets:   []float64{0, 1, 2, 4, 8, 16, 32, 64, 128, 256, 512, 1024, 2048},
		},
	)

	// TextsEmbedded counts texts returned with an embedding.
	TextsEmbedded = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "texts_embedded_total",
			Help:      "Total number of texts embedded",
		},
	)

	// ModelEncodeDuration tracks the latency of model encode calls.
	ModelEncodeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "model_encode_duration_seconds",
			Help:      "Model encode call latency in seconds",
			Buckets:   LatencyBuckets,
		},
		[]string{"backend", "model"},
	)

	// ModelErrors counts failed model encode calls by error type.
	ModelErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "model_errors_total",
			Help:      "Total model encode errors by type",
		},
		[]string{"backend", "error_type"},
	)

	// CacheLookups counts vector cache lookups by result (hit, miss, error).
	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Total vector cache lookups by result",
		},
		[]string{"result"},
	)
)

// RecordBatch records the size of an incoming batch.
func RecordBatch(size int) {
	BatchSize.Observe(float64(size))
}

// RecordEmbedded records texts that were successfully embedded.
func RecordEmbedded(count int) {
	if count > 0 {
		TextsEmbedded.Add(float64(count))
	}
}

// RecordEncode records a model encode call.
func RecordEncode(backend, model string, latency time.Duration) {
	ModelEncodeDuration.WithLabelValues(backend, sanitizeModelLabel(model)).Observe(latency.Seconds())
}

// RecordModelError records a failed model encode call.
func RecordModelError(backend, errorType string) {
	ModelErrors.WithLabelValues(backend, errorType).Inc()
}

// RecordCache records cache lookup outcomes for a batch.
func RecordCache(hits, misses int) {
	if hits > 0 {
		CacheLookups.WithLabelValues("hit").Add(float64(hits))
	}
	if misses > 0 {
		CacheLookups.WithLabelValues("miss").Add(float64(misses))
	}
}

// RecordCacheError records a cache backend failure.
func RecordCacheError() {
	CacheLookups.WithLabelValues("error").Inc()
}

func recordHTTP(route, method string, status int, latency time.Duration) {
	HTTPRequestsTotal.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	HTTPRequestDuration.WithLabelValues(route).Observe(latency.Seconds())
}

const maxModelLabelLen = 64

func sanitizeModelLabel(model string) string {
	model = strings.TrimSpace(model)
	if model == "" {
		return "unknown"
	}

	var b strings.Builder
	b.Grow(min(len(model), maxModelLabelLen))
	for _, r := range model {
		if (r >= 'a' && r <= 'z') ||
			(r >= 'A' && r <= 'Z') ||
			(r >= '0' && r <= '9') ||
			r == '-' || r == '_' || r == '.' || r == ':' || r == '/' {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
		if b.Len() >= maxModelLabelLen {
			break
		}
	}

	out := strings.Trim(b.String(), "_")
	if out == "" {
		return "unknown"
	}
	return out
}
