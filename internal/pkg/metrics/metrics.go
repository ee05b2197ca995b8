package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WebhookEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plano3d_billing_webhook_events_total",
			Help: "Stripe webhook deliveries by event type and outcome",
		},
		[]string{"event_type", "outcome"},
	)

	WebhookDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "plano3d_billing_webhook_duration_seconds",
			Help:    "Time spent reconciling a webhook delivery",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"event_type"},
	)

	CheckoutSessions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plano3d_billing_checkout_sessions_total",
			Help: "Checkout session creation attempts by result code",
		},
		[]string{"result"},
	)

	SubscriptionsGranted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plano3d_billing_subscriptions_granted_total",
			Help: "Subscriptions granted by reconciliation, split by new or reused",
		},
		[]string{"mode"},
	)

	EntitlementLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plano3d_entitlement_lookups_total",
			Help: "Entitlement checks by cache result",
		},
		[]string{"cache"},
	)
)
