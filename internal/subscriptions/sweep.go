package subscriptions

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/bazario-app/bazario-backend/internal/workflow"
	"github.com/bazario-app/bazario-backend/pkg/db/models"
	"github.com/bazario-app/bazario-backend/pkg/enums"
	pkgerrors "github.com/bazario-app/bazario-backend/pkg/errors"
	"github.com/bazario-app/bazario-backend/pkg/outbox"
	"github.com/bazario-app/bazario-backend/pkg/outbox/payloads"
)

// SweepReport summarizes one expiry pass for the cron log line.
type SweepReport struct {
	Scanned        int
	Expired        int
	Renewed        int
	RenewalRetries int
}

// SweepExpirations walks every lapsed paid window. Auto-renewing rows get a
// bounded renewal attempt; everything else expires, and published markets
// whose window closed are retired. One market's failure never aborts the
// pass; errors accumulate per market.
func (s *service) SweepExpirations(ctx context.Context, now time.Time) (SweepReport, error) {
	var report SweepReport

	lapsed, err := s.repo.ListLapsed(ctx, now)
	if err != nil {
		return report, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list lapsed subscriptions")
	}

	var errs error
	for i := range lapsed {
		if ctx.Err() != nil {
			errs = multierr.Append(errs, ctx.Err())
			break
		}
		sub := lapsed[i]
		report.Scanned++
		if err := s.sweepOne(ctx, sub, now, &report); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("market %s: %w", sub.MarketID, err))
		}
	}
	return report, errs
}

func (s *service) sweepOne(ctx context.Context, sub models.Subscription, now time.Time, report *SweepReport) error {
	if sub.Status == enums.SubscriptionStatusActive && sub.AutoRenew {
		renewed, err := s.renew(ctx, &sub, now)
		if renewed {
			report.Renewed++
			return nil
		}
		if sub.RenewalAttempts < s.maxRenewAttempts {
			// Attempts left; the next pass retries.
			report.RenewalRetries++
			return err
		}
		// Retries exhausted; fall through to expiry.
		if err != nil && s.logg != nil {
			s.logg.Error(s.logg.WithField(ctx, "subscription_id", sub.ID.String()), "final renewal attempt", err)
		}
	}

	if err := s.expire(ctx, sub); err != nil {
		return err
	}
	report.Expired++
	return nil
}

// renew runs one charge attempt against the subscription's own terms. The
// successor window starts where the old one ended, so coverage never gaps.
// Declines and gateway errors both consume an attempt.
func (s *service) renew(ctx context.Context, sub *models.Subscription, now time.Time) (bool, error) {
	market, err := s.loadMarket(ctx, sub.MarketID)
	if err != nil {
		return false, err
	}

	months := sub.DurationMonths
	description := fmt.Sprintf("%s plan renewal, %d month(s)", sub.Plan, months)
	charge := &models.Charge{
		MarketID:       sub.MarketID,
		SubscriptionID: &sub.ID,
		Gateway:        market.PaymentGatewayType,
		Amount:         sub.Amount,
		Currency:       sub.Currency,
		Status:         enums.ChargeStatusPending,
		Plan:           &sub.Plan,
		DurationMonths: &months,
		AutoRenew:      true,
		Description:    &description,
	}
	if err := s.billing.CreateCharge(ctx, charge); err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create renewal charge")
	}

	chargeCtx, cancel := context.WithTimeout(ctx, s.chargeTimeout)
	defer cancel()
	result, chargeErr := s.router.Charge(chargeCtx, chargePayable{charge: charge}, routeForMarket(market), description)

	if chargeErr != nil || !result.Settled {
		reason := "gateway error"
		if chargeErr != nil {
			reason = chargeErr.Error()
		} else if result.FailureReason != "" {
			reason = result.FailureReason
		}
		if err := s.recordRenewalFailure(ctx, sub, charge, reason); err != nil {
			return false, err
		}
		return false, chargeErr
	}

	txErr := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		affected, err := s.repo.ExpireWithTx(tx, sub.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "close renewed subscription")
		}
		if affected != 1 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "subscription closed concurrently")
		}

		successor, err := s.ActivateInTx(ctx, tx, ActivateInput{
			MarketID:  sub.MarketID,
			Plan:      sub.Plan,
			Months:    months,
			AutoRenew: true,
			Amount:    sub.Amount,
			Currency:  sub.Currency,
			PaidAt:    &now,
			StartsAt:  sub.EndsAt,
			Renewal:   true,
		})
		if err != nil {
			return err
		}

		billingTx := s.billing.WithTx(tx)
		charge.Status = enums.ChargeStatusSucceeded
		charge.BilledAt = &now
		charge.SubscriptionID = &successor.ID
		if result.Reference != "" {
			charge.Reference = &result.Reference
		}
		if err := billingTx.UpdateCharge(ctx, charge); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update renewal charge")
		}

		s.emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPaymentSettled,
			AggregateType: enums.AggregateCharge,
			AggregateID:   charge.ID,
			Version:       1,
			Data: payloads.PaymentSettledEvent{
				ChargeID:  charge.ID,
				MarketID:  charge.MarketID,
				Gateway:   charge.Gateway,
				Reference: result.Reference,
				Amount:    charge.Amount,
				Currency:  charge.Currency,
			},
		})
		return nil
	})
	if txErr != nil {
		return false, txErr
	}
	return true, nil
}

func (s *service) recordRenewalFailure(ctx context.Context, sub *models.Subscription, charge *models.Charge, reason string) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		sub.RenewalAttempts++
		if err := s.repo.UpdateWithTx(tx, sub); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record renewal attempt")
		}

		charge.Status = enums.ChargeStatusFailed
		charge.FailureReason = &reason
		if err := s.billing.WithTx(tx).UpdateCharge(ctx, charge); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update renewal charge")
		}

		s.emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventSubscriptionRenewalFailed,
			AggregateType: enums.AggregateSubscription,
			AggregateID:   sub.ID,
			Version:       1,
			Data: payloads.SubscriptionRenewalFailedEvent{
				SubscriptionID: sub.ID,
				MarketID:       sub.MarketID,
				Attempts:       sub.RenewalAttempts,
				MaxAttempts:    s.maxRenewAttempts,
				Reason:         reason,
			},
		})
		return nil
	})
}

// expire closes one lapsed row and retires a published market. The guarded
// update makes re-sweeps of the same row no-ops.
func (s *service) expire(ctx context.Context, sub models.Subscription) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		affected, err := s.repo.ExpireWithTx(tx, sub.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "expire subscription")
		}
		if affected != 1 {
			return nil
		}

		s.emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventSubscriptionExpired,
			AggregateType: enums.AggregateSubscription,
			AggregateID:   sub.ID,
			Version:       1,
			Data: payloads.SubscriptionExpiredEvent{
				SubscriptionID: sub.ID,
				MarketID:       sub.MarketID,
				EndedAt:        sub.EndsAt,
				AutoRenew:      sub.AutoRenew,
			},
		})

		market, err := s.markets.FindByIDWithTx(tx, sub.MarketID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load market")
		}
		if market.Status != enums.MarketStatusPublished {
			return nil
		}
		_, err = s.engine.TransitionInTx(ctx, tx, workflow.TransitionParams{
			MarketID: market.ID,
			To:       enums.MarketStatusInactive,
			Action:   enums.WorkflowActionSubscriptionExpired,
			Actor:    workflow.SystemActor(),
		})
		return err
	})
}
