package controllers

import (
	"net/http"
	"strings"

	"github.com/bazario-app/bazario-backend/api/responses"
	"github.com/bazario-app/bazario-backend/api/validators"
	"github.com/bazario-app/bazario-backend/internal/history"
	"github.com/bazario-app/bazario-backend/internal/markets"
	"github.com/bazario-app/bazario-backend/internal/workflow"
	"github.com/bazario-app/bazario-backend/pkg/enums"
	pkgerrors "github.com/bazario-app/bazario-backend/pkg/errors"
	"github.com/bazario-app/bazario-backend/pkg/logger"
	"github.com/bazario-app/bazario-backend/pkg/types"
)

type marketCreateRequest struct {
	Name         string        `json:"name" validate:"required,min=1"`
	Slug         string        `json:"slug,omitempty"`
	Description  *string       `json:"description,omitempty"`
	ContactEmail *string       `json:"contact_email,omitempty" validate:"omitempty,email"`
	Phone        *string       `json:"phone,omitempty"`
	Address      types.Address `json:"address"`
	Social       *types.Social `json:"social,omitempty"`
}

func (r marketCreateRequest) toInput() markets.CreateMarketInput {
	return markets.CreateMarketInput{
		Name:         r.Name,
		Slug:         r.Slug,
		Description:  r.Description,
		ContactEmail: r.ContactEmail,
		Phone:        r.Phone,
		Address:      r.Address,
		Social:       r.Social,
	}
}

// MarketCreate opens a new storefront for the authenticated owner. The market
// enters the workflow unpaid; publishing requires checkout and admin review.
func MarketCreate(svc markets.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "market service unavailable"))
			return
		}

		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload marketCreateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		market, err := svc.Create(r.Context(), actor.UserID, payload.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, market)
	}
}

// MarketList returns the markets owned by the authenticated user.
func MarketList(svc markets.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "market service unavailable"))
			return
		}

		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListByOwner(r.Context(), actor.UserID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, list)
	}
}

// MarketGet returns a single market. Owners see their own; admins see any.
func MarketGet(svc markets.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "market service unavailable"))
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

		market, err := svc.GetByID(r.Context(), marketID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if actor.Role != enums.ActorRoleAdmin && market.OwnerID != actor.UserID {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "market belongs to another owner"))
			return
		}

		responses.WriteSuccess(w, market)
	}
}

type marketUpdateRequest struct {
	Name         *string        `json:"name,omitempty" validate:"omitempty,min=1"`
	Description  *string        `json:"description,omitempty"`
	ContactEmail *string        `json:"contact_email,omitempty" validate:"omitempty,email"`
	Phone        *string        `json:"phone,omitempty"`
	Address      *types.Address `json:"address,omitempty"`
	Social       *types.Social  `json:"social,omitempty"`
}

func (r marketUpdateRequest) toInput() markets.UpdateMarketInput {
	return markets.UpdateMarketInput{
		Name:         r.Name,
		Description:  r.Description,
		ContactEmail: r.ContactEmail,
		Phone:        r.Phone,
		Address:      r.Address,
		Social:       r.Social,
	}
}

// MarketUpdate adjusts the mutable profile fields of an owned market.
func MarketUpdate(svc markets.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "market service unavailable"))
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

		var payload marketUpdateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		market, err := svc.UpdateProfile(r.Context(), actor.UserID, marketID, payload.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, market)
	}
}

type gatewayConfigRequest struct {
	GatewayType string `json:"gateway_type" validate:"required"`
	GatewayName string `json:"gateway_name,omitempty"`
	APIKey      string `json:"api_key,omitempty"`
	MerchantID  string `json:"merchant_id,omitempty"`
}

// MarketGatewayConfig switches the market between the platform gateway and a
// personal one. Credentials are sealed before they touch the database.
func MarketGatewayConfig(svc markets.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "market service unavailable"))
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

		var payload gatewayConfigRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		gatewayType, err := enums.ParsePaymentGatewayType(strings.TrimSpace(payload.GatewayType))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid gateway type"))
			return
		}

		market, err := svc.UpdateGatewayConfig(r.Context(), actor.UserID, marketID, markets.UpdateGatewayInput{
			GatewayType: gatewayType,
			GatewayName: payload.GatewayName,
			APIKey:      payload.APIKey,
			MerchantID:  payload.MerchantID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, market)
	}
}

type marketDeactivateRequest struct {
	Note *string `json:"note,omitempty"`
}

// MarketDeactivate retires a published market at the owner's request.
func MarketDeactivate(svc markets.Service, engine workflow.Engine, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil || engine == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "market service unavailable"))
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

		market, err := svc.GetByID(r.Context(), marketID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if actor.Role != enums.ActorRoleAdmin && market.OwnerID != actor.UserID {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "market belongs to another owner"))
			return
		}

		var payload marketDeactivateRequest
		if r.ContentLength > 0 {
			if err := validators.DecodeJSONBody(r, &payload); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		result, err := engine.Transition(r.Context(), workflow.TransitionParams{
			MarketID: marketID,
			To:       enums.MarketStatusInactive,
			Action:   enums.WorkflowActionDeactivated,
			Actor:    actor,
			Note:     payload.Note,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

// MarketHistory lists the market's status trail, oldest first.
func MarketHistory(marketSvc markets.Service, hist history.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if marketSvc == nil || hist == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "history service unavailable"))
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

		entries, err := hist.ListByMarketID(r.Context(), marketID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, entries)
	}
}
