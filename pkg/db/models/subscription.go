package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/kineticlab/physio-academy-backend/pkg/enums"
)

// Subscription is the single billing row owned by a user.
type Subscription struct {
	ID                   uuid.UUID                `gorm:"type:uuid;primaryKey"`
	UserID               uuid.UUID                `gorm:"column:user_id;type:uuid;not null;uniqueIndex"`
	PlanType             enums.PlanType           `gorm:"column:plan_type;type:plan_type;not null"`
	Status               enums.SubscriptionStatus `gorm:"column:status;type:subscription_status;not null"`
	CurrentPeriodStart   time.Time                `gorm:"column:current_period_start;not null"`
	CurrentPeriodEnd     time.Time                `gorm:"column:current_period_end;not null"`
	StripeCustomerID     *string                  `gorm:"column:stripe_customer_id"`
	StripeSubscriptionID *string                  `gorm:"column:stripe_subscription_id"`
	CancelAtPeriodEnd    bool                     `gorm:"column:cancel_at_period_end;not null;default:false"`
	PromoCode            *string                  `gorm:"column:promo_code"`
	CreatedAt            time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt            time.Time                `gorm:"column:updated_at;autoUpdateTime"`
}

// HasExternalReference reports whether the row points at a Stripe object.
func (s *Subscription) HasExternalReference() bool {
	return s != nil && s.StripeSubscriptionID != nil && *s.StripeSubscriptionID != ""
}
