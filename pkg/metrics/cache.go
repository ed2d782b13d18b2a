package metrics

import (
	"github.com/marmos91/dittocloud/pkg/cache"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// cacheMetrics is the Prometheus implementation of cache.Metrics.
type cacheMetrics struct {
	lookups        *prometheus.CounterVec
	listingPages   prometheus.Histogram
	listingItems   prometheus.Histogram
	cachedItems    prometheus.Gauge
	cachedListings prometheus.Gauge
}

// NewCacheMetrics creates a Prometheus-backed cache.Metrics.
//
// Returns nil if metrics are not enabled, which makes the cache use its
// no-op implementation.
func NewCacheMetrics() cache.Metrics {
	if !IsEnabled() {
		return nil
	}
	return shared("cache", newCacheMetrics)
}

func newCacheMetrics(reg prometheus.Registerer) *cacheMetrics {
	return &cacheMetrics{
		lookups: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "dittocloud_cache_lookups_total",
				Help: "Item cache lookups by kind (item, listing, path) and result (hit, miss)",
			},
			[]string{"kind", "result"},
		),
		listingPages: promauto.With(reg).NewHistogram(
			prometheus.HistogramOpts{
				Name:    "dittocloud_cache_listing_pages",
				Help:    "Continuation pages fetched per folder listing",
				Buckets: []float64{1, 2, 5, 10, 50},
			},
		),
		listingItems: promauto.With(reg).NewHistogram(
			prometheus.HistogramOpts{
				Name:    "dittocloud_cache_listing_items",
				Help:    "Children per fetched folder listing",
				Buckets: prometheus.ExponentialBuckets(1, 4, 8),
			},
		),
		cachedItems: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "dittocloud_cache_items",
				Help: "Current number of cached items",
			},
		),
		cachedListings: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "dittocloud_cache_listings",
				Help: "Current number of cached folder listings",
			},
		),
	}
}

func (m *cacheMetrics) ObserveLookup(kind string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.lookups.WithLabelValues(kind, result).Inc()
}

func (m *cacheMetrics) ObserveListing(pages int, items int) {
	m.listingPages.Observe(float64(pages))
	m.listingItems.Observe(float64(items))
}

func (m *cacheMetrics) RecordSize(items, listings int) {
	m.cachedItems.Set(float64(items))
	m.cachedListings.Set(float64(listings))
}
