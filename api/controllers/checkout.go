package controllers

import (
	"net/http"

	"github.com/kineticlab/physio-academy-backend/api/middleware"
	"github.com/kineticlab/physio-academy-backend/api/responses"
	"github.com/kineticlab/physio-academy-backend/api/validators"
	checkoutsvc "github.com/kineticlab/physio-academy-backend/internal/checkout"
	pkgerrors "github.com/kineticlab/physio-academy-backend/pkg/errors"
	"github.com/kineticlab/physio-academy-backend/pkg/logger"
)

type checkoutRequest struct {
	PlanType  string `json:"planType" validate:"required"`
	PromoCode string `json:"promoCode,omitempty" validate:"omitempty,max=64"`
}

// Checkout starts a trial or a hosted payment session for the caller.
func Checkout(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		identity, ok := middleware.IdentityFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
			return
		}

		var payload checkoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Initiate(r.Context(), checkoutsvc.Input{
			UserID:    identity.UserID,
			Email:     identity.Email,
			Name:      identity.Name,
			PlanType:  payload.PlanType,
			PromoCode: validators.CleanText(payload.PromoCode, 64),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}
