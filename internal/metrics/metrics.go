package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flatup_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "flatup_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	OrdersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flatup_payment_orders_total",
			Help: "Payment provider orders by plan and outcome",
		},
		[]string{"plan", "status"},
	)

	PaymentVerificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flatup_payment_verifications_total",
			Help: "Checkout signature checks by result",
		},
		[]string{"result"},
	)

	SubscriptionsActivatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flatup_subscriptions_activated_total",
			Help: "Total number of subscriptions activated",
		},
		[]string{"plan"},
	)

	DuplicatePaymentsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "flatup_duplicate_payments_total",
			Help: "Replayed payment confirmations answered from the ledger",
		},
	)

	SubscriptionsExpiredTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "flatup_subscriptions_expired_total",
			Help: "Subscriptions moved to expired by the reconciler",
		},
	)

	ActiveSubscriptions = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "flatup_active_subscriptions",
			Help: "Number of active subscriptions",
		},
		[]string{"plan"},
	)

	ReconcileRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flatup_reconcile_runs_total",
			Help: "Reconciliation passes by outcome",
		},
		[]string{"status"},
	)

	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flatup_notifications_total",
			Help: "Subscription notifications by outcome",
		},
		[]string{"status"},
	)

	EmailsSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flatup_emails_sent_total",
			Help: "Total number of emails sent",
		},
		[]string{"type", "status"},
	)

	EmailQueueLength = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "flatup_email_queue_length",
			Help: "Current length of email queue",
		},
	)

	BreakerTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flatup_circuit_breaker_transitions_total",
			Help: "Circuit breaker state changes",
		},
		[]string{"name", "state"},
	)
)

func RecordHTTPRequest(method, path, status string, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(duration)
}

func RecordOrder(plan, status string) {
	OrdersTotal.WithLabelValues(plan, status).Inc()
}

func RecordVerification(valid bool) {
	result := "invalid"
	if valid {
		result = "valid"
	}
	PaymentVerificationsTotal.WithLabelValues(result).Inc()
}

func RecordSubscription(plan string) {
	SubscriptionsActivatedTotal.WithLabelValues(plan).Inc()
}

func RecordDuplicatePayment() {
	DuplicatePaymentsTotal.Inc()
}

func RecordExpired(n int) {
	SubscriptionsExpiredTotal.Add(float64(n))
}

func RecordReconcile(status string) {
	ReconcileRunsTotal.WithLabelValues(status).Inc()
}

func RecordNotification(status string) {
	NotificationsTotal.WithLabelValues(status).Inc()
}

func RecordEmail(emailType, status string) {
	EmailsSentTotal.WithLabelValues(emailType, status).Inc()
}

func RecordBreakerState(name, state string) {
	BreakerTransitionsTotal.WithLabelValues(name, state).Inc()
}

func SetActiveSubscriptions(counts map[string]int) {
	ActiveSubscriptions.Reset()
	for plan, n := range counts {
		ActiveSubscriptions.WithLabelValues(plan).Set(float64(n))
	}
}
