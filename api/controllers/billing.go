package controllers

import (
	"net/http"
	"strings"

	"github.com/bazario-app/bazario-backend/api/responses"
	"github.com/bazario-app/bazario-backend/api/validators"
	"github.com/bazario-app/bazario-backend/internal/billing"
	"github.com/bazario-app/bazario-backend/internal/markets"
	"github.com/bazario-app/bazario-backend/pkg/enums"
	pkgerrors "github.com/bazario-app/bazario-backend/pkg/errors"
	"github.com/bazario-app/bazario-backend/pkg/logger"
)

// BillingPlans serves the public plan catalog.
func BillingPlans(svc *billing.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "billing service unavailable"))
			return
		}

		plans, err := svc.ListPublicPlans(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, plans)
	}
}

// MarketCharges pages through the market's charge ledger, newest first.
func MarketCharges(marketSvc markets.Service, svc *billing.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if marketSvc == nil || svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "billing service unavailable"))
			return
		}

		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		marketID, err := marketIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		market, err := marketSvc.GetByID(r.Context(), marketID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if actor.Role != enums.ActorRoleAdmin && market.OwnerID != actor.UserID {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "market belongs to another owner"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", 20, 1, 100)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params := billing.ListChargesParams{
			MarketID: marketID,
			Limit:    limit,
			Cursor:   strings.TrimSpace(r.URL.Query().Get("cursor")),
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, parseErr := enums.ParseChargeStatus(raw)
			if parseErr != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "invalid charge status"))
				return
			}
			params.Status = &status
		}

		result, err := svc.ListCharges(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}
