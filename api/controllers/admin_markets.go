package controllers

import (
	"net/http"
	"strings"

	"github.com/bazario-app/bazario-backend/api/responses"
	"github.com/bazario-app/bazario-backend/api/validators"
	"github.com/bazario-app/bazario-backend/internal/workflow"
	"github.com/bazario-app/bazario-backend/pkg/enums"
	pkgerrors "github.com/bazario-app/bazario-backend/pkg/errors"
	"github.com/bazario-app/bazario-backend/pkg/logger"
)

type forceStatusRequest struct {
	To   string  `json:"to" validate:"required"`
	Note *string `json:"note,omitempty"`
}

// AdminForceStatus moves a market outside the normal edge table. Only the
// operator targets are reachable this way and the move is always audited.
func AdminForceStatus(engine workflow.Engine, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if engine == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "workflow engine unavailable"))
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

		var payload forceStatusRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		to, err := enums.ParseMarketStatus(strings.TrimSpace(strings.ToLower(payload.To)))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid target status"))
			return
		}

		result, err := engine.Force(r.Context(), workflow.ForceParams{
			MarketID: marketID,
			To:       to,
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
