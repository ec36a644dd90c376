package metrics

// CacheStats is one cache's hit and miss counters.
type CacheStats struct {
	Hits   uint64
	Misses uint64
	Ratio  float64
}

// CacheStatsSource reports cache counters by cache type. The badger
// backend implements it for its block and index caches.
type CacheStatsSource interface {
	CacheStats() map[string]CacheStats
}
