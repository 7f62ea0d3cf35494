package stripewebhook

import (
	"github.com/stripe/stripe-go/v84"

	"github.com/kineticlab/physio-academy-backend/pkg/enums"
)

// MapStripeStatus folds Stripe's subscription lifecycle into the stored
// statuses. ok is false for states that must not overwrite the row.
func MapStripeStatus(status stripe.SubscriptionStatus) (enums.SubscriptionStatus, bool) {
	switch status {
	case stripe.SubscriptionStatusActive, stripe.SubscriptionStatusPastDue:
		return enums.SubscriptionStatusActive, true
	case stripe.SubscriptionStatusTrialing:
		return enums.SubscriptionStatusTrialing, true
	case stripe.SubscriptionStatusCanceled:
		return enums.SubscriptionStatusCancelled, true
	case stripe.SubscriptionStatusUnpaid,
		stripe.SubscriptionStatusIncompleteExpired,
		stripe.SubscriptionStatusPaused:
		return enums.SubscriptionStatusExpired, true
	default:
		// incomplete and anything unknown
		return "", false
	}
}
