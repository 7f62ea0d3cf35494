package controllers

import (
	"net/http"

	"github.com/kineticlab/physio-academy-backend/api/responses"
	"github.com/kineticlab/physio-academy-backend/internal/plans"
	pkgerrors "github.com/kineticlab/physio-academy-backend/pkg/errors"
	"github.com/kineticlab/physio-academy-backend/pkg/logger"
)

type planListResponse struct {
	Plans    []plans.Plan `json:"plans"`
	Currency string       `json:"currency"`
}

// ListPlans returns the purchasable plan table.
func ListPlans(catalog *plans.Catalog, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if catalog == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "plan catalog unavailable"))
			return
		}
		responses.WriteSuccess(w, planListResponse{Plans: catalog.List(), Currency: catalog.Currency()})
	}
}
