package cache

import "github.com/prometheus/client_golang/prometheus"

// Collector exposes a store's Metrics to Prometheus
type Collector struct {
	metrics *Metrics

	hits        *prometheus.Desc
	misses      *prometheus.Desc
	errors      *prometheus.Desc
	evictions   *prometheus.Desc
	expirations *prometheus.Desc
	invalidated *prometheus.Desc
	operations  *prometheus.Desc
}

// NewCollector creates a collector labelled with the store backend
func NewCollector(namespace, backend string, metrics *Metrics) *Collector {
	labels := prometheus.Labels{"backend": backend}
	desc := func(name, help string, variable ...string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "cache", name), help, variable, labels)
	}

	return &Collector{
		metrics:     metrics,
		hits:        desc("hits_total", "Cache lookups served from the store."),
		misses:      desc("misses_total", "Cache lookups that found no live entry."),
		errors:      desc("errors_total", "Cache operations that failed."),
		evictions:   desc("evictions_total", "Entries evicted to respect capacity."),
		expirations: desc("expirations_total", "Entries dropped after their TTL elapsed."),
		invalidated: desc("invalidated_keys_total", "Keys removed by namespace clears."),
		operations:  desc("operations_total", "Cache operations by kind.", "operation"),
	}
}

// Describe implements prometheus.Collector
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.hits
	ch <- c.misses
	ch <- c.errors
	ch <- c.evictions
	ch <- c.expirations
	ch <- c.invalidated
	ch <- c.operations
}

// Collect implements prometheus.Collector
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	snap := c.metrics.GetSnapshot()

	ch <- prometheus.MustNewConstMetric(c.hits, prometheus.CounterValue, float64(snap.CacheHits))
	ch <- prometheus.MustNewConstMetric(c.misses, prometheus.CounterValue, float64(snap.CacheMisses))
	ch <- prometheus.MustNewConstMetric(c.errors, prometheus.CounterValue, float64(snap.CacheErrors))
	ch <- prometheus.MustNewConstMetric(c.evictions, prometheus.CounterValue, float64(snap.Evictions))
	ch <- prometheus.MustNewConstMetric(c.expirations, prometheus.CounterValue, float64(snap.Expirations))
	ch <- prometheus.MustNewConstMetric(c.invalidated, prometheus.CounterValue, float64(snap.InvalidatedKeys))
	ch <- prometheus.MustNewConstMetric(c.operations, prometheus.CounterValue, float64(snap.GetOperations), "get")
	ch <- prometheus.MustNewConstMetric(c.operations, prometheus.CounterValue, float64(snap.SetOperations), "set")
	ch <- prometheus.MustNewConstMetric(c.operations, prometheus.CounterValue, float64(snap.ClearOperations), "clear")
}
