package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics
type Metrics struct {
	// Authentication metrics
	LoginAttempts     *prometheus.CounterVec
	AccountLockouts   prometheus.Counter
	RateLimitDenials  *prometheus.CounterVec

	// Tenant access metrics
	AccessDecisions *prometheus.CounterVec
	DegradedServes  prometheus.Counter
	ResolveLatency  prometheus.Histogram

	// Subscription lifecycle metrics
	SubscriptionsExpired prometheus.Counter
	RenewalsApproved     prometheus.Counter
	RenewalsRejected     prometheus.Counter
	RenewalConflicts     prometheus.Counter
	PartialRenewals      prometheus.Counter

	// Notifier metrics
	ExpiryWarningsSent   prometheus.Counter
	ExpiryWarningsFailed prometheus.Counter
}

// NewMetrics creates and registers all application metrics
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		LoginAttempts: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "login_attempts_total",
			Help:      "Total number of login attempts by outcome",
		}, []string{"outcome"}),
		AccountLockouts: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "account_lockouts_total",
			Help:      "Total number of accounts locked out after repeated failures",
		}),
		RateLimitDenials: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limit_denials_total",
			Help:      "Total number of requests denied by rate limiting",
		}, []string{"scope"}),

		AccessDecisions: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "site_access_decisions_total",
			Help:      "Total number of public site access decisions by kind",
		}, []string{"decision"}),
		DegradedServes: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "site_access_degraded_serves_total",
			Help:      "Sites served permissively because a policy lookup failed",
		}),
		ResolveLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "site_access_resolve_duration_seconds",
			Help:      "Time spent resolving site access decisions",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		}),

		SubscriptionsExpired: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "subscriptions_expired_total",
			Help:      "Subscriptions flipped to expired on observation",
		}),
		RenewalsApproved: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "renewals_approved_total",
			Help:      "Renewal requests approved by an operator",
		}),
		RenewalsRejected: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "renewals_rejected_total",
			Help:      "Renewal requests rejected by an operator",
		}),
		RenewalConflicts: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "renewal_conflicts_total",
			Help:      "Concurrent renewal approvals that lost the conflict check",
		}),
		PartialRenewals: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "partial_renewal_failures_total",
			Help:      "Renewals that failed after the request was marked approved",
		}),

		ExpiryWarningsSent: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "expiry_warnings_sent_total",
			Help:      "Expiry warning emails handed to the notification sender",
		}),
		ExpiryWarningsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "expiry_warnings_failed_total",
			Help:      "Expiry warning emails the notification sender rejected",
		}),
	}
}
