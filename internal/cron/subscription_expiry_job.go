package cron

import (
	"context"
	"errors"
	"time"

	"github.com/bazario-app/bazario-backend/internal/subscriptions"
	"github.com/bazario-app/bazario-backend/pkg/logger"
)

type subscriptionSweeper interface {
	SweepExpirations(ctx context.Context, now time.Time) (subscriptions.SweepReport, error)
}

// SubscriptionExpiryJob drives the daily sweep over lapsed paid windows:
// auto-renew attempts, expiries, and retiring published markets whose
// subscription ran out.
type SubscriptionExpiryJob struct {
	sweeper subscriptionSweeper
	logg    *logger.Logger
	now     func() time.Time
}

// NewSubscriptionExpiryJob builds the expiry sweep job.
func NewSubscriptionExpiryJob(sweeper subscriptionSweeper, logg *logger.Logger) (*SubscriptionExpiryJob, error) {
	if sweeper == nil {
		return nil, errors.New("subscription sweeper required")
	}
	if logg == nil {
		return nil, errors.New("logger required")
	}
	return &SubscriptionExpiryJob{
		sweeper: sweeper,
		logg:    logg,
		now:     time.Now,
	}, nil
}

// Name identifies the job in logs and metrics.
func (j *SubscriptionExpiryJob) Name() string {
	return "subscription_expiry"
}

// Run executes one sweep. Per-market failures come back aggregated; the rows
// that could be processed already were.
func (j *SubscriptionExpiryJob) Run(ctx context.Context) error {
	report, err := j.sweeper.SweepExpirations(ctx, j.now().UTC())

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"scanned":         report.Scanned,
		"expired":         report.Expired,
		"renewed":         report.Renewed,
		"renewal_retries": report.RenewalRetries,
	})
	if err != nil {
		j.logg.Error(logCtx, "subscription sweep finished with failures", err)
		return err
	}
	j.logg.Info(logCtx, "subscription sweep complete")
	return nil
}
