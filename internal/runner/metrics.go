package runner

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	runsStarted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lactl_runs_started_total",
			Help: "Total number of runs started by type",
		},
		[]string{"run_type"},
	)

	runsFinished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lactl_runs_finished_total",
			Help: "Total number of runs finished by type and status",
		},
		[]string{"run_type", "status"},
	)

	recordFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lactl_run_record_failures_total",
		Help: "Total number of failed run history writes",
	})
)
