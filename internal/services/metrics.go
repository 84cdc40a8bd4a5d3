package services

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all custom Prometheus metrics for the application
type Metrics struct {
	// Cache metrics
	CacheLookups *prometheus.CounterVec

	// Upstream metrics
	UpstreamErrors    *prometheus.CounterVec
	SessionRefreshes  *prometheus.CounterVec
	GenerationLatency prometheus.Histogram

	// Summarization outcomes by result
	Summaries *prometheus.CounterVec
}

var (
	globalMetrics *Metrics
	metricsOnce   sync.Once
)

// InitMetrics initializes the Prometheus metrics. The cache is read for the
// live entry gauge and may be nil.
func InitMetrics(cache *SummaryCache) *Metrics {
	metricsOnce.Do(func() {
		globalMetrics = &Metrics{
			CacheLookups: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "sumup_cache_lookups_total",
				Help: "Summary cache lookups by result",
			}, []string{"result"}), // hit, miss

			UpstreamErrors: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "sumup_upstream_errors_total",
				Help: "Failed upstream calls by stage",
			}, []string{"stage"}), // session, feed, generation

			SessionRefreshes: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "sumup_session_acquisitions_total",
				Help: "Upstream session acquisitions by result",
			}, []string{"result"}),

			GenerationLatency: promauto.NewHistogram(prometheus.HistogramOpts{
				Name:    "sumup_generation_duration_seconds",
				Help:    "Text generation latency in seconds",
				Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
			}),

			Summaries: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "sumup_summaries_total",
				Help: "Summarization requests by outcome",
			}, []string{"outcome"}),
		}

		prometheus.MustRegister(prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Name: "sumup_cache_entries",
				Help: "Number of summaries currently cached",
			},
			func() float64 {
				if cache != nil {
					return float64(cache.Count())
				}
				return 0
			},
		))
	})
	return globalMetrics
}

// GetMetrics returns the global metrics instance, nil before InitMetrics
func GetMetrics() *Metrics {
	return globalMetrics
}

// RecordCacheLookup records a cache hit or miss
func (m *Metrics) RecordCacheLookup(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.CacheLookups.WithLabelValues("hit").Inc()
	} else {
		m.CacheLookups.WithLabelValues("miss").Inc()
	}
}

// RecordUpstreamError records a failed call to an upstream service
func (m *Metrics) RecordUpstreamError(stage string) {
	if m == nil {
		return
	}
	m.UpstreamErrors.WithLabelValues(stage).Inc()
}

// RecordSessionAcquisition records the result of a session acquisition
func (m *Metrics) RecordSessionAcquisition(ok bool) {
	if m == nil {
		return
	}
	if ok {
		m.SessionRefreshes.WithLabelValues("success").Inc()
	} else {
		m.SessionRefreshes.WithLabelValues("failure").Inc()
	}
}

// RecordGenerationLatency records text generation latency
func (m *Metrics) RecordGenerationLatency(seconds float64) {
	if m == nil {
		return
	}
	m.GenerationLatency.Observe(seconds)
}

// RecordSummary records the outcome of a summarization request
func (m *Metrics) RecordSummary(outcome string) {
	if m == nil {
		return
	}
	m.Summaries.WithLabelValues(outcome).Inc()
}
