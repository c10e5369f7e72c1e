package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "cryptopay"

var (
	// Payment submissions by outcome label ("accepted", "already_used", ...).
	PaymentSubmissionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_submissions_total",
			Help:      "Total number of transaction references submitted by users",
		},
		[]string{"result"},
	)
	SubscriptionExtensionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "subscription_extensions_total",
			Help:      "Total number of subscription extensions committed",
		},
		[]string{"tier"},
	)
	OracleRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "oracle_request_duration_seconds",
			Help:      "Duration of chain oracle lookups in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"outcome"},
	)

	NotificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Total number of renewal notices by kind and delivery status",
		},
		[]string{"kind", "status"},
	)
	SchedulerRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scheduler_runs_total",
			Help:      "Total number of renewal scheduler passes",
		},
		[]string{"status"},
	)
)

var registerOnce sync.Once

// InitMetrics registers all collectors with the default registry.
func InitMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(PaymentSubmissionsTotal)
		prometheus.MustRegister(SubscriptionExtensionsTotal)
		prometheus.MustRegister(OracleRequestDuration)
		prometheus.MustRegister(NotificationsTotal)
		prometheus.MustRegister(SchedulerRunsTotal)
	})
}
