package cache

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Prometheus metric descriptors. Lookup counters carry a result label so
// hit/miss/stale ratios can be derived server-side.
var (
	descLookups = prometheus.NewDesc(
		"flightcache_lookups_total",
		"Cache lookups by result.",
		[]string{"result"}, nil,
	)
	descSets = prometheus.NewDesc(
		"flightcache_sets_total",
		"Cache writes.",
		nil, nil,
	)
	descErrors = prometheus.NewDesc(
		"flightcache_tier_errors_total",
		"Tier faults tolerated by the manager.",
		nil, nil,
	)
	descEntries = prometheus.NewDesc(
		"flightcache_entries",
		"Resident entries summed across tiers.",
		nil, nil,
	)
	descBytes = prometheus.NewDesc(
		"flightcache_size_bytes",
		"Estimated resident bytes summed across tiers.",
		nil, nil,
	)
	descGetLatency = prometheus.NewDesc(
		"flightcache_get_latency_seconds",
		"Rolling Get latency (avg and p95 over the sample ring).",
		[]string{"stat"}, nil,
	)
	descSetLatency = prometheus.NewDesc(
		"flightcache_set_latency_seconds",
		"Rolling Set latency (avg and p95 over the sample ring).",
		[]string{"stat"}, nil,
	)
)

// promCollector adapts the manager's collector to the Prometheus scrape
// model. Values are read at scrape time, so the exporter and the JSON
// snapshot can never drift apart.
type promCollector struct {
	m *Manager
}

// PrometheusCollector returns a prometheus.Collector view of the cache,
// suitable for prometheus.Registry.MustRegister.
func (m *Manager) PrometheusCollector() prometheus.Collector {
	return &promCollector{m: m}
}

// Describe implements prometheus.Collector.
func (p *promCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- descLookups
	ch <- descSets
	ch <- descErrors
	ch <- descEntries
	ch <- descBytes
	ch <- descGetLatency
	ch <- descSetLatency
}

// Collect implements prometheus.Collector. Tier capacity sums use a
// bounded context so a slow remote tier cannot stall the scrape.
func (p *promCollector) Collect(ch chan<- prometheus.Metric) {
	hits, misses, staleHits, sets, errs := p.m.collector.counters()

	ch <- prometheus.MustNewConstMetric(descLookups, prometheus.CounterValue, float64(hits), "hit")
	ch <- prometheus.MustNewConstMetric(descLookups, prometheus.CounterValue, float64(misses), "miss")
	ch <- prometheus.MustNewConstMetric(descLookups, prometheus.CounterValue, float64(staleHits), "stale")
	ch <- prometheus.MustNewConstMetric(descSets, prometheus.CounterValue, float64(sets))
	ch <- prometheus.MustNewConstMetric(descErrors, prometheus.CounterValue, float64(errs))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	size, entries := p.m.capacity(ctx)
	ch <- prometheus.MustNewConstMetric(descEntries, prometheus.GaugeValue, float64(entries))
	ch <- prometheus.MustNewConstMetric(descBytes, prometheus.GaugeValue, float64(size))

	snap := p.m.collector.Snapshot()
	ch <- prometheus.MustNewConstMetric(descGetLatency, prometheus.GaugeValue, snap.AvgGetLatency/1000, "avg")
	ch <- prometheus.MustNewConstMetric(descGetLatency, prometheus.GaugeValue, snap.P95GetLatency/1000, "p95")
	ch <- prometheus.MustNewConstMetric(descSetLatency, prometheus.GaugeValue, snap.AvgSetLatency/1000, "avg")
	ch <- prometheus.MustNewConstMetric(descSetLatency, prometheus.GaugeValue, snap.P95SetLatency/1000, "p95")
}

var _ prometheus.Collector = (*promCollector)(nil)
