package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/kineticlab/physio-academy-backend/pkg/enums"
)

// PromoCode is an administrator-managed discount code.
type PromoCode struct {
	ID              uuid.UUID          `gorm:"type:uuid;primaryKey"`
	Code            string             `gorm:"column:code;not null;uniqueIndex"`
	DiscountType    enums.DiscountType `gorm:"column:discount_type;type:discount_type;not null"`
	DiscountValue   decimal.Decimal    `gorm:"column:discount_value;type:numeric(10,2);not null"`
	ApplicablePlans pq.StringArray     `gorm:"column:applicable_plans;type:text[];not null"`
	IsActive        bool               `gorm:"column:is_active;not null;default:true"`
	CurrentUses     int                `gorm:"column:current_uses;not null;default:0"`
	MaxUses         *int               `gorm:"column:max_uses"`
	ValidUntil      *time.Time         `gorm:"column:valid_until"`
	CreatedAt       time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

// AppliesTo reports whether the code lists the plan.
func (p *PromoCode) AppliesTo(plan enums.PlanType) bool {
	if p == nil {
		return false
	}
	for _, candidate := range p.ApplicablePlans {
		if candidate == string(plan) {
			return true
		}
	}
	return false
}

// UsableAt reports whether the code may be redeemed for plan at now.
func (p *PromoCode) UsableAt(plan enums.PlanType, now time.Time) bool {
	if p == nil || !p.IsActive || !p.AppliesTo(plan) {
		return false
	}
	if p.MaxUses != nil && p.CurrentUses >= *p.MaxUses {
		return false
	}
	if p.ValidUntil != nil && now.After(*p.ValidUntil) {
		return false
	}
	return true
}
