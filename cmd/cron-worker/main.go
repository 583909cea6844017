package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/bazario-app/bazario-backend/internal/approvals"
	"github.com/bazario-app/bazario-backend/internal/billing"
	"github.com/bazario-app/bazario-backend/internal/cron"
	"github.com/bazario-app/bazario-backend/internal/history"
	"github.com/bazario-app/bazario-backend/internal/markets"
	"github.com/bazario-app/bazario-backend/internal/payments"
	"github.com/bazario-app/bazario-backend/internal/subscriptions"
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

const lockKeyFormat = "bz:cron-worker:lock:%s"

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
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
	billingRepo := billing.NewRepository(dbClient.DB())
	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	historyService, err := history.NewService(history.NewRepository(dbClient.DB()))
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

	expiryJob, err := cron.NewSubscriptionExpiryJob(subscriptionService, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create subscription expiry job", err)
		os.Exit(1)
	}

	pendingTTLJob, err := cron.NewPaymentPendingTTLJob(marketRepo, subscriptionService, engine, cfg.Workflow.PaymentPendingTTL, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create payment pending ttl job", err)
		os.Exit(1)
	}

	metricsCollector := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)
	lock, err := cron.NewRedisLock(redisClient, lockKey(cfg.App.Env), 0)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	registry := cron.NewRegistry(expiryJob, pendingTTLJob)
	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metricsCollector,
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func lockKey(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf(lockKeyFormat, env)
}
