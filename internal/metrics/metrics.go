// Package metrics exposes the gateway's Prometheus counters.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the job lifecycle counters
type Metrics struct {
	JobsRequested    prometheus.Counter
	JobsAuthorized   prometheus.Counter
	PaymentsVerified prometheus.Counter
	PaymentsPending  prometheus.Counter
	JobsExecuted     prometheus.Counter
	JobsExpired      prometheus.Counter
}

// New registers the lifecycle counters with reg
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		JobsRequested: factory.NewCounter(prometheus.CounterOpts{
			Name: "paygate_jobs_requested_total",
			Help: "Job requests accepted (challenge issued or inline-authorized).",
		}),
		JobsAuthorized: factory.NewCounter(prometheus.CounterOpts{
			Name: "paygate_jobs_authorized_total",
			Help: "Jobs authorized directly through an inline payment proof.",
		}),
		PaymentsVerified: factory.NewCounter(prometheus.CounterOpts{
			Name: "paygate_payments_verified_total",
			Help: "Payments confirmed through the verify-payment flow.",
		}),
		PaymentsPending: factory.NewCounter(prometheus.CounterOpts{
			Name: "paygate_payments_pending_total",
			Help: "Verification attempts that ended without an on-chain confirmation.",
		}),
		JobsExecuted: factory.NewCounter(prometheus.CounterOpts{
			Name: "paygate_jobs_executed_total",
			Help: "Job executions started.",
		}),
		JobsExpired: factory.NewCounter(prometheus.CounterOpts{
			Name: "paygate_jobs_expired_total",
			Help: "Records evicted because their payment window elapsed.",
		}),
	}
}
