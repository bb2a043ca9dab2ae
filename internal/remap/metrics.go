package remap

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var lutBuilds = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "catppuccinifier_lut_builds_total",
		Help: "Number of lookup tables built, by flavor and algorithm.",
	},
	[]string{"flavor", "algorithm"},
)

var lutBuildSeconds = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Name:    "catppuccinifier_lut_build_seconds",
		Help:    "Time spent building one lookup table.",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
	},
)

var lutCacheHits = promauto.NewCounter(
	prometheus.CounterOpts{
		Name: "catppuccinifier_lut_cache_hits_total",
		Help: "Lookup table requests served from the cache.",
	},
)

var lutCacheMisses = promauto.NewCounter(
	prometheus.CounterOpts{
		Name: "catppuccinifier_lut_cache_misses_total",
		Help: "Lookup table requests that had to wait for a build.",
	},
)
