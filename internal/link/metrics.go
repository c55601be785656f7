package link

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var linkOutcomes = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "lactl_link_outcomes_total",
		Help: "Total number of workspace link attempts by outcome",
	},
	[]string{"outcome"},
)
