// Package metrics exposes the Prometheus instruments used across the service.
// Every Collector owns its registry, so tests can build as many as they like.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Collector struct {
	registry *prometheus.Registry

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	OracleCalls    *prometheus.CounterVec
	OracleDuration *prometheus.HistogramVec

	ExtractFailures *prometheus.CounterVec

	RoadmapsCreated prometheus.Counter
	ProgressEntries prometheus.Counter
	Regenerations   *prometheus.CounterVec

	CacheHits   prometheus.Counter
	CacheMisses prometheus.Counter
}

func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		OracleCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "oracle_calls_total",
			Help:      "Text generation calls by provider and outcome",
		}, []string{"provider", "outcome"}),
		OracleDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "oracle_call_duration_seconds",
			Help:      "Text generation round-trip time",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 40, 80, 160},
		}, []string{"provider"}),
		ExtractFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "extract_failures_total",
			Help:      "Model outputs that could not be parsed into a roadmap",
		}, []string{"reason"}),
		RoadmapsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "roadmaps_created_total",
			Help:      "Roadmaps created",
		}),
		ProgressEntries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "progress_entries_total",
			Help:      "Progress log entries appended",
		}),
		Regenerations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "regenerations_total",
			Help:      "Roadmap regenerations by outcome",
		}, []string{"outcome"}),
		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Roadmap cache hits",
		}),
		CacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Roadmap cache misses",
		}),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		c.HTTPRequests,
		c.HTTPDuration,
		c.OracleCalls,
		c.OracleDuration,
		c.ExtractFailures,
		c.RoadmapsCreated,
		c.ProgressEntries,
		c.Regenerations,
		c.CacheHits,
		c.CacheMisses,
	)
	return c
}

// Registry is exposed for tests that gather samples directly.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

func (c *Collector) ObserveHTTP(method, route string, status int, d time.Duration) {
	if c == nil {
		return
	}
	c.HTTPRequests.WithLabelValues(method, route, statusClass(status)).Inc()
	c.HTTPDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func (c *Collector) ObserveOracle(provider, outcome string, d time.Duration) {
	if c == nil {
		return
	}
	c.OracleCalls.WithLabelValues(provider, outcome).Inc()
	c.OracleDuration.WithLabelValues(provider).Observe(d.Seconds())
}

func (c *Collector) ObserveExtractFailure(reason string) {
	if c == nil {
		return
	}
	c.ExtractFailures.WithLabelValues(reason).Inc()
}

func (c *Collector) ObserveRegeneration(outcome string) {
	if c == nil {
		return
	}
	c.Regenerations.WithLabelValues(outcome).Inc()
}

func (c *Collector) IncCreated() {
	if c == nil {
		return
	}
	c.RoadmapsCreated.Inc()
}

func (c *Collector) IncProgress() {
	if c == nil {
		return
	}
	c.ProgressEntries.Inc()
}

func (c *Collector) CacheResult(hit bool) {
	if c == nil {
		return
	}
	if hit {
		c.CacheHits.Inc()
		return
	}
	c.CacheMisses.Inc()
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
