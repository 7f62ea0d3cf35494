package metrics

import "github.com/prometheus/client_golang/prometheus"

// BillingMetrics counts checkout and webhook outcomes.
type BillingMetrics struct {
	checkouts     *prometheus.CounterVec
	webhookEvents *prometheus.CounterVec
	promoUsage    *prometheus.CounterVec
}

// NewBillingMetrics registers the billing counters on the provided registerer.
func NewBillingMetrics(reg prometheus.Registerer) *BillingMetrics {
	if reg == nil {
		return &BillingMetrics{}
	}
	checkouts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "checkouts_total",
		Help:      "Checkout initiations by plan and outcome.",
	}, []string{"plan", "outcome"})
	webhookEvents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "stripe_webhook_events_total",
		Help:      "Stripe webhook events by type and outcome.",
	}, []string{"type", "outcome"})
	promoUsage := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "promo_code_redemptions_total",
		Help:      "Promo code usage increments by outcome.",
	}, []string{"outcome"})
	reg.MustRegister(checkouts, webhookEvents, promoUsage)
	return &BillingMetrics{
		checkouts:     checkouts,
		webhookEvents: webhookEvents,
		promoUsage:    promoUsage,
	}
}

// IncCheckout records one checkout attempt.
func (b *BillingMetrics) IncCheckout(plan, outcome string) {
	if b == nil || b.checkouts == nil {
		return
	}
	b.checkouts.WithLabelValues(normalizeLabel(plan), normalizeLabel(outcome)).Inc()
}

// IncWebhookEvent records one processed webhook event.
func (b *BillingMetrics) IncWebhookEvent(eventType, outcome string) {
	if b == nil || b.webhookEvents == nil {
		return
	}
	b.webhookEvents.WithLabelValues(normalizeLabel(eventType), normalizeLabel(outcome)).Inc()
}

// IncPromoUsage records one promo usage increment attempt.
func (b *BillingMetrics) IncPromoUsage(outcome string) {
	if b == nil || b.promoUsage == nil {
		return
	}
	b.promoUsage.WithLabelValues(normalizeLabel(outcome)).Inc()
}
