package handler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	negotiationsResolvedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "collab_negotiations_resolved_total",
			Help: "Total number of resolved negotiation rounds by decision.",
		},
		[]string{"decision"},
	)
)
