package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/bazario-app/bazario-backend/api/routes"
	"github.com/bazario-app/bazario-backend/internal/approvals"
	"github.com/bazario-app/bazario-backend/internal/billing"
	"github.com/bazario-app/bazario-backend/internal/history"
	"github.com/bazario-app/bazario-backend/internal/markets"
	"github.com/bazario-app/bazario-backend/internal/payments"
	"github.com/bazario-app/bazario-backend/internal/subscriptions"
	paymentwebhook "github.com/bazario-app/bazario-backend/internal/webhooks/payments"
	"github.com/bazario-app/bazario-backend/internal/workflow"
	"github.com/bazario-app/bazario-backend/pkg/config"
	"github.com/bazario-app/bazario-backend/pkg/db"
	"github.com/bazario-app/bazario-backend/pkg/logger"
	"github.com/bazario-app/bazario-backend/pkg/metrics"
	"github.com/bazario-app/bazario-backend/pkg/migrate"
	"github.com/bazario-app/bazario-backend/pkg/outbox"
	"github.com/bazario-app/bazario-backend/pkg/redis"
	"github.com/bazario-app/bazario-backend/pkg/security"
	"github.com/bazario-app/bazario-backend/pkg/square"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	sealer, err := security.NewSealer(cfg.Security)
	if err != nil {
		logg.Error(context.Background(), "failed to create credential sealer", err)
		os.Exit(1)
	}

	squareClient, err := square.NewClient(context.Background(), cfg.Square, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create square client", err)
		os.Exit(1)
	}

	platformGateway, err := payments.NewSquareGateway(squareClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create platform gateway", err)
		os.Exit(1)
	}

	chargeRouter, err := payments.NewRouter(payments.RouterParams{
		Platform: platformGateway,
		Drivers:  []payments.MerchantDriver{payments.NewStripeDriver()},
		Opener:   sealer,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create payment router", err)
		os.Exit(1)
	}

	marketRepo := markets.NewRepository(dbClient.DB())
	subscriptionRepo := subscriptions.NewRepository(dbClient.DB())
	approvalRepo := approvals.NewRepository(dbClient.DB())
	historyRepo := history.NewRepository(dbClient.DB())
	billingRepo := billing.NewRepository(dbClient.DB())

	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	historyService, err := history.NewService(historyRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create history service", err)
		os.Exit(1)
	}

	engine, err := workflow.NewEngine(workflow.EngineParams{
		Markets:       marketRepo,
		Approvals:     approvalRepo,
		Subscriptions: subscriptionRepo,
		History:       historyService,
		Tx:            dbClient,
		Outbox:        outboxService,
		Metrics:       metrics.NewWorkflowMetrics(prometheus.DefaultRegisterer),
		Logger:        logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create workflow engine", err)
		os.Exit(1)
	}

	marketService, err := markets.NewService(marketRepo, sealer)
	if err != nil {
		logg.Error(context.Background(), "failed to create market service", err)
		os.Exit(1)
	}

	approvalService, err := approvals.NewService(approvals.ServiceParams{
		Repo:    approvalRepo,
		Markets: marketRepo,
		Engine:  engine,
		Tx:      dbClient,
		Outbox:  outboxService,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create approval service", err)
		os.Exit(1)
	}

	subscriptionService, err := subscriptions.NewService(subscriptions.ServiceParams{
		Repo:             subscriptionRepo,
		Markets:          marketRepo,
		Billing:          billingRepo,
		Engine:           engine,
		Router:           chargeRouter,
		Tx:               dbClient,
		Outbox:           outboxService,
		Logger:           logg,
		ChargeTimeout:    cfg.Workflow.ChargeTimeout,
		MaxRenewAttempts: cfg.Subscription.MaxRenewAttempts,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create subscription service", err)
		os.Exit(1)
	}

	billingService, err := billing.NewService(billing.ServiceParams{Repo: billingRepo})
	if err != nil {
		logg.Error(context.Background(), "failed to create billing service", err)
		os.Exit(1)
	}

	webhookGuard, err := paymentwebhook.NewIdempotencyGuard(redisClient, cfg.Webhook.GuardTTL, "payments")
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook guard", err)
		os.Exit(1)
	}

	webhookService, err := paymentwebhook.NewService(paymentwebhook.ServiceParams{
		Settler: subscriptionService,
		Guard:   webhookGuard,
		Logger:  logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.RouterParams{
			Config:        cfg,
			Logger:        logg,
			DB:            dbClient,
			Redis:         redisClient,
			Markets:       marketService,
			History:       historyService,
			Approvals:     approvalService,
			Subscriptions: subscriptionService,
			Billing:       billingService,
			Engine:        engine,
			Webhooks:      webhookService,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
