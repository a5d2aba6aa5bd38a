package services

import "github.com/prometheus/client_golang/prometheus"

// Outcome labels for resource_operations_total.
const (
	outcomeOK       = "ok"
	outcomeInvalid  = "invalid"
	outcomeNotFound = "not_found"
	outcomeReplayed = "replayed"
	outcomeConflict = "conflict"
	outcomeError    = "error"
)

var resourceOps = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "resource_operations_total",
		Help: "Resource service operations by kind, operation and outcome.",
	},
	[]string{"kind", "op", "outcome"},
)

func init() {
	prometheus.MustRegister(resourceOps)
}

func observe(kind, op, outcome string) {
	resourceOps.WithLabelValues(kind, op, outcome).Inc()
}
