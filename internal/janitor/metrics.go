package janitor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	runsReaped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "lactl_janitor_runs_reaped_total",
			Help: "Total number of abandoned runs marked failed by the janitor",
		},
	)

	runsPurged = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "lactl_janitor_runs_purged_total",
			Help: "Total number of finished runs deleted after the retention period",
		},
	)
)
