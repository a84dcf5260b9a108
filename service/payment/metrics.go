package paymentsvc

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	sweepRuns = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payment_sweep_runs_total",
		Help: "Number of sweep iterations over pending payments.",
	})
	sweepExpired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payment_sweep_expired_total",
		Help: "Payments transitioned PENDING to EXPIRED by the sweep.",
	})
	sweepErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payment_sweep_errors_total",
		Help: "Per-payment gateway or store errors skipped by the sweep.",
	})
)
