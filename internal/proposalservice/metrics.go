package proposalservice

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// operationsTotal counts service calls.
	// Labels: operation, status (ok, error)
	operationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "agx",
		Subsystem: "proposals",
		Name:      "operations_total",
		Help:      "Total proposal service operations",
	}, []string{"operation", "status"})

	operationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "agx",
		Subsystem: "proposals",
		Name:      "operation_duration_seconds",
		Help:      "Proposal service operation latency in seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	}, []string{"operation"})
)

func observe(op string, start time.Time, err *error) {
	status := "ok"
	if *err != nil {
		status = "error"
	}
	operationsTotal.WithLabelValues(op, status).Inc()
	operationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}
