package obs

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	SearchRequestsTotal prometheus.Counter
	RateLimitDropsTotal prometheus.Counter
	CoalescedJoinsTotal prometheus.Counter

	CacheHitsTotal   *prometheus.CounterVec
	CacheMissesTotal *prometheus.CounterVec

	SourceErrors  *prometheus.CounterVec
	SourceLatency *prometheus.HistogramVec

	HTTPRequestDuration *prometheus.HistogramVec
	HTTPRequestsTotal   *prometheus.CounterVec

	Registry *prometheus.Registry
}

// Create Prometheus collectors and register them
func NewMetrics(p *prometheus.Registry) *Metrics {
	m := &Metrics{
		SearchRequestsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lodging_search_requests_total",
			Help: "Total number of incoming search requests",
		}),
		RateLimitDropsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lodging_ratelimit_drops_total",
			Help: "Requests dropped due to rate limiting",
		}),
		CoalescedJoinsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lodging_coalesced_joins_total",
			Help: "Search requests that joined an in-flight aggregation instead of fanning out",
		}),
		CacheHitsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lodging_cache_hits_total",
			Help: "Cache hits per cache class",
		}, []string{"class"}),
		CacheMissesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lodging_cache_misses_total",
			Help: "Cache misses per cache class",
		}, []string{"class"}),
		SourceErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lodging_source_errors_total",
			Help: "Errors returned by each inventory source",
		}, []string{"source"}),
		SourceLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "lodging_source_latency_seconds",
				Help:    "Latency of inventory source calls",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"source"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latencies",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		Registry: p,
	}

	p.MustRegister(
		m.SearchRequestsTotal,
		m.RateLimitDropsTotal,
		m.CoalescedJoinsTotal,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.SourceErrors,
		m.SourceLatency,
		m.HTTPRequestDuration,
		m.HTTPRequestsTotal,
	)

	return m
}

func (m *Metrics) IncSearchRequests() { m.SearchRequestsTotal.Inc() }

func (m *Metrics) IncRateLimitDrops() { m.RateLimitDropsTotal.Inc() }

func (m *Metrics) IncCoalescedJoins() { m.CoalescedJoinsTotal.Inc() }

func (m *Metrics) IncCacheHit(class string)  { m.CacheHitsTotal.WithLabelValues(class).Inc() }
func (m *Metrics) IncCacheMiss(class string) { m.CacheMissesTotal.WithLabelValues(class).Inc() }

func (m *Metrics) IncSourceFailure(source string) {
	m.SourceErrors.WithLabelValues(source).Inc()
}

func (m *Metrics) ObserveSourceLatency(source string, seconds float64) {
	m.SourceLatency.WithLabelValues(source).Observe(seconds)
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}
