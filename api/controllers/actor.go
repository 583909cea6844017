package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/bazario-app/bazario-backend/api/middleware"
	"github.com/bazario-app/bazario-backend/internal/workflow"
	"github.com/bazario-app/bazario-backend/pkg/enums"
	pkgerrors "github.com/bazario-app/bazario-backend/pkg/errors"
)

// actorFromRequest rebuilds the workflow actor from the authenticated context.
func actorFromRequest(r *http.Request) (workflow.Actor, error) {
	userID := middleware.UserIDFromContext(r.Context())
	if userID == "" {
		return workflow.Actor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	uid, err := uuid.Parse(userID)
	if err != nil {
		return workflow.Actor{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid user id")
	}

	role, err := enums.ParseActorRole(middleware.RoleFromContext(r.Context()))
	if err != nil {
		return workflow.Actor{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid actor role")
	}

	return workflow.Actor{UserID: uid, Role: role}, nil
}

func marketIDParam(r *http.Request) (uuid.UUID, error) {
	return parseUUIDParam(r, "marketID", "invalid market id")
}

func parseUUIDParam(r *http.Request, param, message string) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, param))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, message)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, message)
	}
	return id, nil
}
