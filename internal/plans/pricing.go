package plans

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/kineticlab/physio-academy-backend/pkg/db/models"
	"github.com/kineticlab/physio-academy-backend/pkg/enums"
)

var hundred = decimal.NewFromInt(100)

// Quote is the priced outcome for a plan and optional promo code.
type Quote struct {
	Plan           Plan   `json:"plan"`
	BasePrice      int64  `json:"basePrice"`
	DiscountAmount int64  `json:"discountAmount"`
	FinalPrice     int64  `json:"finalPrice"`
	PromoCode      string `json:"promoCode,omitempty"`
	PromoApplied   bool   `json:"promoApplied"`
}

// Price applies promo to plan. A nil or unusable promo yields no discount.
func Price(plan Plan, promo *models.PromoCode, now time.Time) Quote {
	quote := Quote{
		Plan:       plan,
		BasePrice:  plan.BasePrice,
		FinalPrice: plan.BasePrice,
	}
	if promo == nil || !promo.UsableAt(plan.Type, now) {
		return quote
	}

	discount := DiscountAmount(plan.BasePrice, promo.DiscountType, promo.DiscountValue)
	quote.DiscountAmount = discount
	quote.FinalPrice = FinalPrice(plan.BasePrice, discount)
	quote.PromoCode = promo.Code
	quote.PromoApplied = discount > 0
	return quote
}

// DiscountAmount computes the discount in minor units. Percentages are floored;
// fixed values are stored in major units.
func DiscountAmount(basePrice int64, discountType enums.DiscountType, value decimal.Decimal) int64 {
	if basePrice <= 0 || !value.IsPositive() {
		return 0
	}
	base := decimal.NewFromInt(basePrice)
	switch discountType {
	case enums.DiscountTypePercentage:
		return base.Mul(value).Div(hundred).Floor().IntPart()
	case enums.DiscountTypeFixed:
		return value.Mul(hundred).Floor().IntPart()
	default:
		return 0
	}
}

// FinalPrice clamps base minus discount at zero.
func FinalPrice(basePrice, discount int64) int64 {
	if discount >= basePrice {
		return 0
	}
	return basePrice - discount
}
