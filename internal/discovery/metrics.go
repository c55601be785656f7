package discovery

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	subscriptionsScanned = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "lactl_discovery_subscriptions_scanned_total",
			Help: "Total number of subscriptions whose workspaces were listed",
		},
	)
	subscriptionsSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "lactl_discovery_subscriptions_skipped_total",
			Help: "Total number of subscriptions skipped because workspaces could not be listed",
		},
	)
	workspacesMatched = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "lactl_discovery_workspaces_matched_total",
			Help: "Total number of workspaces matching a discovery filter",
		},
	)
)
