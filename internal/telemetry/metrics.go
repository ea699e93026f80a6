package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SessionsStarted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "prepdesk_sessions_started_total",
		Help: "Sessions started, by mode.",
	}, []string{"mode"})

	SessionsFinalized = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "prepdesk_sessions_finalized_total",
		Help: "Sessions finalized, by mode.",
	}, []string{"mode"})

	FinalizeConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "prepdesk_finalize_conflicts_total",
		Help: "Finalize calls rejected because the session was already completed.",
	})
)
