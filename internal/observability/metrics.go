// Package observability provides the Prometheus collectors for the
// acquisition pipeline.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics bundles the pipeline's Prometheus collectors.
type Metrics struct {
	CacheHits      prometheus.Counter
	CacheMisses    prometheus.Counter
	UpstreamCalls  *prometheus.CounterVec
	FetchDuration  prometheus.Histogram
	QuotaRemaining prometheus.Gauge
	QueueDepth     prometheus.Gauge
	HealthComputed prometheus.Counter
}

// New registers the collectors on the default registry.
func New() *Metrics {
	return &Metrics{
		CacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "repopulse_cache_hits_total",
			Help: "Cache lookups served without touching the request queue.",
		}),
		CacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "repopulse_cache_misses_total",
			Help: "Cache lookups that required an upstream fetch.",
		}),
		UpstreamCalls: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "repopulse_upstream_requests_total",
			Help: "Upstream API calls by outcome.",
		}, []string{"outcome"}),
		FetchDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "repopulse_upstream_request_duration_seconds",
			Help:    "Latency of upstream API calls.",
			Buckets: prometheus.DefBuckets,
		}),
		QuotaRemaining: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "repopulse_quota_remaining",
			Help: "Remaining upstream API quota in the current window.",
		}),
		QueueDepth: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "repopulse_queue_depth",
			Help: "Tasks submitted to the request queue and not yet completed.",
		}),
		HealthComputed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "repopulse_health_scores_computed_total",
			Help: "Health scores computed from fresh metrics.",
		}),
	}
}

// ObserveCacheLookup records one cache lookup outcome. Nil-safe so the
// pipeline runs unchanged with metrics disabled.
func (m *Metrics) ObserveCacheLookup(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.CacheHits.Inc()
	} else {
		m.CacheMisses.Inc()
	}
}

// ObserveUpstreamCall records one upstream call outcome and its duration.
func (m *Metrics) ObserveUpstreamCall(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.UpstreamCalls.WithLabelValues(outcome).Inc()
	m.FetchDuration.Observe(seconds)
}

// SetQuotaRemaining updates the quota gauge.
func (m *Metrics) SetQuotaRemaining(remaining int) {
	if m == nil {
		return
	}
	m.QuotaRemaining.Set(float64(remaining))
}

// SetQueueDepth updates the queue depth gauge.
func (m *Metrics) SetQueueDepth(depth int) {
	if m == nil {
		return
	}
	m.QueueDepth.Set(float64(depth))
}

// ObserveHealthComputed counts a fresh health computation.
func (m *Metrics) ObserveHealthComputed() {
	if m == nil {
		return
	}
	m.HealthComputed.Inc()
}
