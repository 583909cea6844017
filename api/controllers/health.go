package controllers

import (
	"context"
	"net/http"

	"github.com/bazario-app/bazario-backend/api/responses"
	"github.com/bazario-app/bazario-backend/pkg/config"
	pkgerrors "github.com/bazario-app/bazario-backend/pkg/errors"
)

// ReadinessProbe is any dependency that can answer a liveness ping.
type ReadinessProbe interface {
	Ping(context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Bazario-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady reports ready only when every backing dependency answers a ping.
func HealthReady(cfg *config.Config, probes map[string]ReadinessProbe) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Bazario-Env", cfg.App.Env)

		checks := make(map[string]string, len(probes))
		for name, probe := range probes {
			if probe == nil {
				continue
			}
			if err := probe.Ping(r.Context()); err != nil {
				checks[name] = "down"
				responses.WriteError(r.Context(), nil, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, name+" unavailable"))
				return
			}
			checks[name] = "up"
		}

		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": checks})
	}
}
