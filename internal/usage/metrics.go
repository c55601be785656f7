package usage

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	workspacesClassified = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "lactl_usage_workspaces_classified_total",
			Help: "Total number of workspaces whose ingestion was classified",
		},
	)
	queryFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "lactl_usage_query_failures_total",
			Help: "Total number of workspace usage queries that failed and were counted as zero",
		},
	)
	fallbackQueries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "lactl_usage_fallback_queries_total",
			Help: "Total number of workspaces classified from the billed-bytes fallback query",
		},
	)
	classifiedGB = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lactl_usage_classified_gb_total",
			Help: "Total classified ingestion in GB by billing plan",
		},
		[]string{"plan"},
	)
)
