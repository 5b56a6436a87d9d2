package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds all Prometheus metrics for the application
type Collector struct {
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Business metrics
	SaucesCreated prometheus.Counter
	SaucesDeleted prometheus.Counter
	Votes         *prometheus.CounterVec
	VoteRetries   prometheus.Counter
	BlobLeaks     *prometheus.CounterVec

	// Query metrics
	Queries       *prometheus.CounterVec
	QueryDuration *prometheus.HistogramVec

	// Cache metrics
	CacheHits   prometheus.Counter
	CacheMisses prometheus.Counter
}

// NewCollector creates a collector with its own registry
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		SaucesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sauces_created_total",
			Help:      "Total number of sauces created",
		}),
		SaucesDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sauces_deleted_total",
			Help:      "Total number of sauces deleted",
		}),
		Votes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "votes_total",
				Help:      "Votes by intent and result",
			},
			[]string{"intent", "result"},
		),
		VoteRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "vote_retries_total",
			Help:      "Votes re-evaluated after a concurrent change",
		}),
		BlobLeaks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "blob_leak_candidates_total",
				Help:      "Images that could not be deleted",
			},
			[]string{"reason"},
		),
		Queries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "queries_total",
				Help:      "Queries by type and status",
			},
			[]string{"query", "status"},
		),
		QueryDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "query_duration_seconds",
				Help:      "Query duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"query"},
		),
		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Total number of cache hits",
		}),
		CacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Total number of cache misses",
		}),
	}

	registry.MustRegister(
		c.HTTPRequests,
		c.HTTPDuration,
		c.SaucesCreated,
		c.SaucesDeleted,
		c.Votes,
		c.VoteRetries,
		c.BlobLeaks,
		c.Queries,
		c.QueryDuration,
		c.CacheHits,
		c.CacheMisses,
	)

	return c
}

// ObserveHTTP records one served request
func (c *Collector) ObserveHTTP(method, route string, status int, duration time.Duration) {
	c.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.HTTPDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObserveQuery records one executed query
func (c *Collector) ObserveQuery(query string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	c.Queries.WithLabelValues(query, status).Inc()
	c.QueryDuration.WithLabelValues(query).Observe(duration.Seconds())
}

// ObserveCache records a cache lookup
func (c *Collector) ObserveCache(hit bool) {
	if hit {
		c.CacheHits.Inc()
		return
	}
	c.CacheMisses.Inc()
}

// GetRegistry returns the Prometheus registry for this collector
func (c *Collector) GetRegistry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// SauceCreated counts a stored sauce
func (c *Collector) SauceCreated() { c.SaucesCreated.Inc() }

// SauceDeleted counts a removed sauce
func (c *Collector) SauceDeleted() { c.SaucesDeleted.Inc() }

// VoteApplied counts a vote attempt by intent and result
func (c *Collector) VoteApplied(intent, result string) {
	c.Votes.WithLabelValues(intent, result).Inc()
}

// VoteRetried counts a vote re-evaluated after a lost race
func (c *Collector) VoteRetried() { c.VoteRetries.Inc() }

// BlobLeaked counts an image left behind by a failed delete
func (c *Collector) BlobLeaked(reason string) {
	c.BlobLeaks.WithLabelValues(reason).Inc()
}
