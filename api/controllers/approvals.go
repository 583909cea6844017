package controllers

import (
	"net/http"
	"strings"

	"github.com/bazario-app/bazario-backend/api/responses"
	"github.com/bazario-app/bazario-backend/api/validators"
	"github.com/bazario-app/bazario-backend/internal/approvals"
	"github.com/bazario-app/bazario-backend/pkg/enums"
	pkgerrors "github.com/bazario-app/bazario-backend/pkg/errors"
	"github.com/bazario-app/bazario-backend/pkg/logger"
)

type approvalSubmitRequest struct {
	RequestType string  `json:"request_type" validate:"required"`
	Note        *string `json:"note,omitempty"`
}

// ApprovalSubmit files a review petition for the market. A publication
// request also queues the market for admin review in the same transaction.
func ApprovalSubmit(svc approvals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "approval service unavailable"))
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

		var payload approvalSubmitRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		requestType, err := enums.ParseApprovalRequestType(strings.TrimSpace(strings.ToLower(payload.RequestType)))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid request type"))
			return
		}

		request, err := svc.Submit(r.Context(), approvals.SubmitInput{
			MarketID:    marketID,
			RequestType: requestType,
			Note:        payload.Note,
			Actor:       actor,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, request)
	}
}

// ApprovalListByMarket lists the market's petitions, newest first.
func ApprovalListByMarket(svc approvals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "approval service unavailable"))
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

		requests, err := svc.ListByMarket(r.Context(), actor, marketID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, requests)
	}
}

// AdminApprovalQueue returns every pending petition for review.
func AdminApprovalQueue(svc approvals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "approval service unavailable"))
			return
		}

		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		requests, err := svc.ListPending(r.Context(), actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, requests)
	}
}

type approvalDecisionRequest struct {
	Outcome       string  `json:"outcome" validate:"required"`
	AdminResponse *string `json:"admin_response,omitempty"`
}

// AdminApprovalDecide records an admin verdict and runs the resulting status
// move, when the request type calls for one, in the same transaction.
func AdminApprovalDecide(svc approvals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "approval service unavailable"))
			return
		}

		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		requestID, err := parseUUIDParam(r, "requestID", "invalid request id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload approvalDecisionRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		outcome, err := enums.ParseApprovalRequestStatus(strings.TrimSpace(strings.ToLower(payload.Outcome)))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid outcome"))
			return
		}

		request, err := svc.Decide(r.Context(), approvals.DecideInput{
			RequestID:     requestID,
			Outcome:       outcome,
			AdminResponse: payload.AdminResponse,
			Actor:         actor,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, request)
	}
}
