package subscriptions

import (
	"time"

	"github.com/google/uuid"

	"github.com/kineticlab/physio-academy-backend/pkg/db/models"
	"github.com/kineticlab/physio-academy-backend/pkg/enums"
)

// View is the API representation of a subscription row.
type View struct {
	ID                   uuid.UUID                `json:"id"`
	UserID               uuid.UUID                `json:"userId"`
	PlanType             enums.PlanType           `json:"planType"`
	Status               enums.SubscriptionStatus `json:"status"`
	CurrentPeriodStart   time.Time                `json:"currentPeriodStart"`
	CurrentPeriodEnd     time.Time                `json:"currentPeriodEnd"`
	StripeCustomerID     *string                  `json:"stripeCustomerId"`
	StripeSubscriptionID *string                  `json:"stripeSubscriptionId"`
	CancelAtPeriodEnd    bool                     `json:"cancelAtPeriodEnd"`
	PromoCode            *string                  `json:"promoCode"`
}

// NewView maps a row to its API shape. A nil row yields nil.
func NewView(sub *models.Subscription) *View {
	if sub == nil {
		return nil
	}
	return &View{
		ID:                   sub.ID,
		UserID:               sub.UserID,
		PlanType:             sub.PlanType,
		Status:               sub.Status,
		CurrentPeriodStart:   sub.CurrentPeriodStart.UTC(),
		CurrentPeriodEnd:     sub.CurrentPeriodEnd.UTC(),
		StripeCustomerID:     sub.StripeCustomerID,
		StripeSubscriptionID: sub.StripeSubscriptionID,
		CancelAtPeriodEnd:    sub.CancelAtPeriodEnd,
		PromoCode:            sub.PromoCode,
	}
}
