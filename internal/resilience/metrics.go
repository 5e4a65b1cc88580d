package resilience

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Breaker collectors live on the default registry so every breaker created in
// the process reports under the same names.
var (
	BreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "outbound_breaker_state",
		Help: "Breaker state per outbound dependency (0 closed, 1 open, 2 half-open).",
	}, []string{"target"})
	BreakerTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "outbound_breaker_transitions_total",
		Help: "Breaker state transitions per outbound dependency.",
	}, []string{"target", "from", "to"})
	BreakerOpenedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "outbound_breaker_opened_total",
		Help: "Times a breaker opened.",
	}, []string{"target"})
)
