package controllers

import (
	"context"
	"net/http"

	"github.com/kineticlab/physio-academy-backend/api/responses"
	"github.com/kineticlab/physio-academy-backend/api/validators"
	"github.com/kineticlab/physio-academy-backend/internal/plans"
	pkgerrors "github.com/kineticlab/physio-academy-backend/pkg/errors"
	"github.com/kineticlab/physio-academy-backend/pkg/logger"
)

// PromoPreviewer prices a plan with a candidate promo code.
type PromoPreviewer interface {
	Preview(ctx context.Context, code, planType string) (plans.Quote, error)
}

type promoValidateRequest struct {
	Code     string `json:"code" validate:"required,max=64"`
	PlanType string `json:"planType" validate:"required"`
}

type promoValidateResponse struct {
	Valid          bool   `json:"valid"`
	Code           string `json:"code"`
	PlanType       string `json:"planType"`
	BasePrice      int64  `json:"basePrice"`
	DiscountAmount int64  `json:"discountAmount"`
	FinalPrice     int64  `json:"finalPrice"`
	Currency       string `json:"currency"`
}

// ValidatePromoCode previews the discount a code gives on a plan.
func ValidatePromoCode(svc PromoPreviewer, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "promo service unavailable"))
			return
		}

		var payload promoValidateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		quote, err := svc.Preview(r.Context(), validators.CleanText(payload.Code, 64), payload.PlanType)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, promoValidateResponse{
			Valid:          quote.PromoApplied,
			Code:           quote.PromoCode,
			PlanType:       string(quote.Plan.Type),
			BasePrice:      quote.BasePrice,
			DiscountAmount: quote.DiscountAmount,
			FinalPrice:     quote.FinalPrice,
			Currency:       quote.Plan.Currency,
		})
	}
}
