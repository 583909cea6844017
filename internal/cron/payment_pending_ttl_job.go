package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/bazario-app/bazario-backend/internal/subscriptions"
	"github.com/bazario-app/bazario-backend/internal/workflow"
	"github.com/bazario-app/bazario-backend/pkg/db/models"
	"github.com/bazario-app/bazario-backend/pkg/enums"
	pkgerrors "github.com/bazario-app/bazario-backend/pkg/errors"
	"github.com/bazario-app/bazario-backend/pkg/logger"
)

const paymentTimeoutReason = "payment timed out"

type pendingMarketLister interface {
	ListByStatusUpdatedBefore(ctx context.Context, status enums.MarketStatus, cutoff time.Time) ([]models.Market, error)
}

type paymentSettler interface {
	SettlePayment(ctx context.Context, input subscriptions.SettleInput) (*models.Charge, error)
}

type marketMover interface {
	Transition(ctx context.Context, params workflow.TransitionParams) (*workflow.Result, error)
}

// PaymentPendingTTLJob reaps checkouts whose gateway outcome never arrived.
// A market parked in payment_pending past the TTL gets its pending charge
// failed and goes back to unpaid_under_creation.
type PaymentPendingTTLJob struct {
	markets pendingMarketLister
	settler paymentSettler
	engine  marketMover
	ttl     time.Duration
	logg    *logger.Logger
	now     func() time.Time
}

// NewPaymentPendingTTLJob builds the abandoned-checkout reaper.
func NewPaymentPendingTTLJob(markets pendingMarketLister, settler paymentSettler, engine marketMover, ttl time.Duration, logg *logger.Logger) (*PaymentPendingTTLJob, error) {
	if markets == nil {
		return nil, errors.New("market lister required")
	}
	if settler == nil {
		return nil, errors.New("payment settler required")
	}
	if engine == nil {
		return nil, errors.New("workflow engine required")
	}
	if ttl <= 0 {
		return nil, errors.New("ttl must be positive")
	}
	if logg == nil {
		return nil, errors.New("logger required")
	}
	return &PaymentPendingTTLJob{
		markets: markets,
		settler: settler,
		engine:  engine,
		ttl:     ttl,
		logg:    logg,
		now:     time.Now,
	}, nil
}

// Name identifies the job in logs and metrics.
func (j *PaymentPendingTTLJob) Name() string {
	return "payment_pending_ttl"
}

// Run reaps every stale payment_pending market. One market's failure never
// stops the rest.
func (j *PaymentPendingTTLJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.ttl)
	stale, err := j.markets.ListByStatusUpdatedBefore(ctx, enums.MarketStatusPaymentPending, cutoff)
	if err != nil {
		return fmt.Errorf("list stale payment_pending markets: %w", err)
	}

	var errs error
	reaped := 0
	for i := range stale {
		if ctx.Err() != nil {
			errs = multierr.Append(errs, ctx.Err())
			break
		}
		market := stale[i]
		if err := j.reap(ctx, market); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("market %s: %w", market.ID, err))
			continue
		}
		reaped++
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"stale":  len(stale),
		"reaped": reaped,
	})
	if errs != nil {
		j.logg.Error(logCtx, "payment pending reap finished with failures", errs)
		return errs
	}
	j.logg.Info(logCtx, "payment pending reap complete")
	return nil
}

func (j *PaymentPendingTTLJob) reap(ctx context.Context, market models.Market) error {
	_, err := j.settler.SettlePayment(ctx, subscriptions.SettleInput{
		MarketID: market.ID,
		Settled:  false,
		Reason:   paymentTimeoutReason,
		Actor:    workflow.SystemActor(),
	})
	if err == nil {
		return nil
	}

	// No pending charge on file; move the market back directly.
	if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeNotFound {
		note := paymentTimeoutReason
		_, moveErr := j.engine.Transition(ctx, workflow.TransitionParams{
			MarketID: market.ID,
			To:       enums.MarketStatusUnpaidUnderCreation,
			Action:   enums.WorkflowActionPaymentFailed,
			Actor:    workflow.SystemActor(),
			Note:     &note,
		})
		return moveErr
	}
	return err
}
