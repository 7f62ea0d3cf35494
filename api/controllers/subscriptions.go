package controllers

import (
	"net/http"
	"strings"

	"github.com/kineticlab/physio-academy-backend/api/middleware"
	"github.com/kineticlab/physio-academy-backend/api/responses"
	"github.com/kineticlab/physio-academy-backend/internal/subscriptions"
	pkgerrors "github.com/kineticlab/physio-academy-backend/pkg/errors"
	"github.com/kineticlab/physio-academy-backend/pkg/logger"
)

// SubscriptionStatus reports the caller's subscription, resolved from a
// checkout session id or the optional bearer identity.
func SubscriptionStatus(svc subscriptions.StatusService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "subscription service unavailable"))
			return
		}

		query := subscriptions.StatusQuery{
			SessionID: strings.TrimSpace(r.URL.Query().Get("session_id")),
		}
		if identity, ok := middleware.IdentityFromContext(r.Context()); ok {
			query.UserID = identity.UserID
		}

		result, err := svc.Lookup(r.Context(), query)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
