package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/marmos91/fsbroker/pkg/metrics"
)

// badgerCollector exports BadgerDB cache counters at scrape time.
type badgerCollector struct {
	src           metrics.CacheStatsSource
	cacheHitRatio *prometheus.Desc
	cacheHits     *prometheus.Desc
	cacheMisses   *prometheus.Desc
}

// RegisterBadgerCollector registers a collector reading src on every
// scrape. It is a no-op when metrics are not enabled.
func RegisterBadgerCollector(src metrics.CacheStatsSource) error {
	reg := metrics.GetRegistry()
	if reg == nil {
		return nil
	}
	return reg.Register(newBadgerCollector(src))
}

func newBadgerCollector(src metrics.CacheStatsSource) *badgerCollector {
	labels := []string{"cache_type"}
	return &badgerCollector{
		src: src,
		cacheHitRatio: prometheus.NewDesc(
			"fsbroker_badger_cache_hit_ratio",
			"BadgerDB cache hit ratio (0.0 to 1.0) by cache type",
			labels, nil),
		cacheHits: prometheus.NewDesc(
			"fsbroker_badger_cache_hits_total",
			"Total number of BadgerDB cache hits by cache type",
			labels, nil),
		cacheMisses: prometheus.NewDesc(
			"fsbroker_badger_cache_misses_total",
			"Total number of BadgerDB cache misses by cache type",
			labels, nil),
	}
}

func (c *badgerCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.cacheHitRatio
	ch <- c.cacheHits
	ch <- c.cacheMisses
}

func (c *badgerCollector) Collect(ch chan<- prometheus.Metric) {
	for cacheType, s := range c.src.CacheStats() {
		ch <- prometheus.MustNewConstMetric(c.cacheHitRatio, prometheus.GaugeValue, s.Ratio, cacheType)
		ch <- prometheus.MustNewConstMetric(c.cacheHits, prometheus.CounterValue, float64(s.Hits), cacheType)
		ch <- prometheus.MustNewConstMetric(c.cacheMisses, prometheus.CounterValue, float64(s.Misses), cacheType)
	}
}
