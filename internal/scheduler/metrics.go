package scheduler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var runningJobs = promauto.NewGauge(
	prometheus.GaugeOpts{
		Name: "catppuccinifier_jobs_running",
		Help: "Number of jobs currently running.",
	},
)

var queuedJobs = promauto.NewGauge(
	prometheus.GaugeOpts{
		Name: "catppuccinifier_jobs_queued",
		Help: "Number of jobs waiting for a worker slot.",
	},
)

var jobsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "catppuccinifier_jobs_total",
		Help: "Number of finished jobs by terminal state.",
	},
	[]string{"state"},
)

var jobDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "catppuccinifier_job_duration_seconds",
		Help:    "Time a job spent running, by terminal state.",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
	},
	[]string{"state"},
)

var queueWaitSeconds = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Name:    "catppuccinifier_job_queue_wait_seconds",
		Help:    "Time a job waited between submission and start.",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 15),
	},
)
