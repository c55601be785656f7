package provision

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	clustersCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "lactl_provision_clusters_created_total",
			Help: "Total number of cluster create requests issued",
		},
	)
	pollsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "lactl_provision_polls_total",
			Help: "Total number of provisioning state polls",
		},
	)
	pollErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "lactl_provision_poll_errors_total",
			Help: "Total number of provisioning state polls that failed transiently",
		},
	)
	provisionOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lactl_provision_outcomes_total",
			Help: "Total number of provisioning runs by outcome",
		},
		[]string{"outcome"},
	)
	provisionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "lactl_provision_duration_seconds",
			Help:    "Time from lookup to successful provisioning in seconds",
			Buckets: []float64{1, 60, 300, 900, 1800, 3600, 5400, 7200, 9000},
		},
	)
)
