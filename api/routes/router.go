package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bazario-app/bazario-backend/api/controllers"
	webhookcontrollers "github.com/bazario-app/bazario-backend/api/controllers/webhooks"
	"github.com/bazario-app/bazario-backend/api/middleware"
	"github.com/bazario-app/bazario-backend/internal/approvals"
	"github.com/bazario-app/bazario-backend/internal/billing"
	"github.com/bazario-app/bazario-backend/internal/history"
	"github.com/bazario-app/bazario-backend/internal/markets"
	"github.com/bazario-app/bazario-backend/internal/subscriptions"
	paymentwebhook "github.com/bazario-app/bazario-backend/internal/webhooks/payments"
	"github.com/bazario-app/bazario-backend/internal/workflow"
	"github.com/bazario-app/bazario-backend/pkg/config"
	"github.com/bazario-app/bazario-backend/pkg/db"
	"github.com/bazario-app/bazario-backend/pkg/logger"
	"github.com/bazario-app/bazario-backend/pkg/redis"
)

// RouterParams carries everything the HTTP surface depends on.
type RouterParams struct {
	Config        *config.Config
	Logger        *logger.Logger
	DB            db.Pinger
	Redis         *redis.Client
	Markets       markets.Service
	History       history.Service
	Approvals     approvals.Service
	Subscriptions subscriptions.Service
	Billing       *billing.Service
	Engine        workflow.Engine
	Webhooks      *paymentwebhook.Service
}

// NewRouter assembles the chi tree: public health and catalog endpoints, the
// gateway webhook ingress, the owner-facing market surface, and the admin
// review surface.
func NewRouter(p RouterParams) http.Handler {
	cfg := p.Config
	logg := p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, readinessProbes(p)))
	})

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
		r.Get("/v1/billing/plans", controllers.BillingPlans(p.Billing, logg))
	})

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/payments", webhookcontrollers.PaymentsWebhook(p.Webhooks, cfg.Webhook.PaymentsSecret, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(p.Redis, logg))

		r.Get("/ping", controllers.PrivatePing())

		r.Route("/markets", func(r chi.Router) {
			r.Post("/", controllers.MarketCreate(p.Markets, logg))
			r.Get("/", controllers.MarketList(p.Markets, logg))

			r.Route("/{marketID}", func(r chi.Router) {
				r.Get("/", controllers.MarketGet(p.Markets, logg))
				r.Patch("/", controllers.MarketUpdate(p.Markets, logg))
				r.Put("/gateway-config", controllers.MarketGatewayConfig(p.Markets, logg))
				r.Get("/history", controllers.MarketHistory(p.Markets, p.History, logg))
				r.Get("/charges", controllers.MarketCharges(p.Markets, p.Billing, logg))
				r.Post("/deactivate", controllers.MarketDeactivate(p.Markets, p.Engine, logg))

				r.Post("/checkout", controllers.Checkout(p.Subscriptions, logg))
				r.Get("/subscription", controllers.SubscriptionActive(p.Subscriptions, logg))
				r.Get("/subscriptions", controllers.SubscriptionList(p.Subscriptions, logg))
				r.Post("/subscription/cancel", controllers.SubscriptionCancel(p.Subscriptions, logg))

				r.Post("/approvals", controllers.ApprovalSubmit(p.Approvals, logg))
				r.Get("/approvals", controllers.ApprovalListByMarket(p.Approvals, logg))
			})
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireRole("admin", logg))
			r.Get("/ping", controllers.AdminPing())
			r.Get("/approvals", controllers.AdminApprovalQueue(p.Approvals, logg))
			r.Post("/approvals/{requestID}/decision", controllers.AdminApprovalDecide(p.Approvals, logg))
			r.Post("/markets/{marketID}/force-status", controllers.AdminForceStatus(p.Engine, logg))
		})
	})

	return r
}

func readinessProbes(p RouterParams) map[string]controllers.ReadinessProbe {
	probes := map[string]controllers.ReadinessProbe{}
	if p.DB != nil {
		probes["postgres"] = p.DB
	}
	if p.Redis != nil {
		probes["redis"] = p.Redis
	}
	return probes
}
