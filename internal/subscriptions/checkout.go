package subscriptions

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/bazario-app/bazario-backend/internal/workflow"
	"github.com/bazario-app/bazario-backend/pkg/db/models"
	"github.com/bazario-app/bazario-backend/pkg/enums"
	pkgerrors "github.com/bazario-app/bazario-backend/pkg/errors"
	"github.com/bazario-app/bazario-backend/pkg/outbox"
	"github.com/bazario-app/bazario-backend/pkg/outbox/payloads"
)

// CheckoutInput is an owner's request to pay for their market.
type CheckoutInput struct {
	MarketID  uuid.UUID
	Plan      enums.SubscriptionPlan
	Months    int
	AutoRenew bool
	Actor     workflow.Actor
}

// CheckoutResult reports the checkout outcome. Subscription is nil when the
// charge declined; Status is where the market landed.
type CheckoutResult struct {
	Charge       *models.Charge
	Subscription *models.Subscription
	Status       enums.MarketStatus
}

// SettleInput resolves a charge whose gateway outcome arrived out of band,
// typically through the payments webhook. Reference wins when present;
// otherwise the market's latest pending charge is settled.
type SettleInput struct {
	MarketID  uuid.UUID
	Reference string
	Settled   bool
	Reason    string
	Actor     workflow.Actor
}

// InitiateCheckout runs the synchronous payment leg. One transaction parks
// the market in payment_pending with a pending charge, the gateway call runs
// outside any transaction under a deadline, and a second transaction settles.
// An unknown gateway outcome leaves the market in payment_pending for the
// webhook or the TTL job to resolve.
func (s *service) InitiateCheckout(ctx context.Context, input CheckoutInput) (*CheckoutResult, error) {
	if !input.Plan.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid subscription plan")
	}
	if input.Months < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "months cannot be negative")
	}

	market, err := s.loadMarket(ctx, input.MarketID)
	if err != nil {
		return nil, err
	}
	if err := authorizeOwner(market, input.Actor); err != nil {
		return nil, err
	}

	plan, err := s.resolvePlan(ctx, input.Plan)
	if err != nil {
		return nil, err
	}
	months := input.Months
	if months == 0 {
		months = plan.DefaultMonths
	}
	amount := plan.MonthlyPrice.Mul(decimal.NewFromInt(int64(months)))
	description := fmt.Sprintf("%s plan, %d month(s)", plan.Name, months)

	charge := &models.Charge{
		MarketID:       market.ID,
		Gateway:        market.PaymentGatewayType,
		Amount:         amount,
		Currency:       plan.CurrencyCode,
		Status:         enums.ChargeStatusPending,
		Plan:           &plan.Plan,
		DurationMonths: &months,
		AutoRenew:      input.AutoRenew,
		Description:    &description,
	}

	txErr := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := s.engine.TransitionInTx(ctx, tx, workflow.TransitionParams{
			MarketID: market.ID,
			To:       enums.MarketStatusPaymentPending,
			Action:   enums.WorkflowActionPaymentInitiated,
			Actor:    input.Actor,
		}); err != nil {
			return err
		}
		if err := s.billing.WithTx(tx).CreateCharge(ctx, charge); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create charge")
		}
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	chargeCtx, cancel := context.WithTimeout(ctx, s.chargeTimeout)
	defer cancel()
	result, err := s.router.Charge(chargeCtx, chargePayable{charge: charge}, routeForMarket(market), description)
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeInvalidGatewayConfig {
			// A misconfigured gateway is a definite failure; put the market
			// back where checkout found it.
			if _, settleErr := s.settleCharge(ctx, charge, settleOutcome{Reason: "invalid_gateway_config"}, input.Actor); settleErr != nil && s.logg != nil {
				s.logg.Error(s.logg.WithField(ctx, "charge_id", charge.ID.String()), "settle misconfigured charge", settleErr)
			}
			return nil, err
		}
		if typed := pkgerrors.As(err); typed != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "gateway charge")
	}

	sub, err := s.settleCharge(ctx, charge, settleOutcome{
		Settled:   result.Settled,
		Reference: result.Reference,
		Reason:    result.FailureReason,
	}, input.Actor)
	if err != nil {
		return nil, err
	}

	status := enums.MarketStatusUnpaidUnderCreation
	if result.Settled {
		status = enums.MarketStatusPaidUnderCreation
	}
	return &CheckoutResult{Charge: charge, Subscription: sub, Status: status}, nil
}

// SettlePayment applies an out-of-band gateway verdict. A charge already in a
// terminal status makes this a no-op, so duplicate webhooks are harmless.
func (s *service) SettlePayment(ctx context.Context, input SettleInput) (*models.Charge, error) {
	charge, err := s.resolveCharge(ctx, input)
	if err != nil {
		return nil, err
	}
	if charge.Status != enums.ChargeStatusPending {
		return charge, nil
	}
	if _, err := s.settleCharge(ctx, charge, settleOutcome{
		Settled:   input.Settled,
		Reference: input.Reference,
		Reason:    input.Reason,
	}, input.Actor); err != nil {
		return nil, err
	}
	return charge, nil
}

func (s *service) resolveCharge(ctx context.Context, input SettleInput) (*models.Charge, error) {
	if reference := strings.TrimSpace(input.Reference); reference != "" {
		charge, err := s.billing.FindChargeByReference(ctx, reference)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load charge by reference")
		}
		if charge != nil {
			return charge, nil
		}
	}
	if input.MarketID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no charge matches the settlement")
	}
	charge, err := s.billing.FindLatestPendingCharge(ctx, input.MarketID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load pending charge")
	}
	if charge == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no charge matches the settlement")
	}
	return charge, nil
}

type settleOutcome struct {
	Settled   bool
	Reference string
	Reason    string
}

// settleCharge finalizes one pending checkout charge: the terminal charge
// status, the subscription activation, and the market's payment transition
// all commit together or not at all.
func (s *service) settleCharge(ctx context.Context, charge *models.Charge, outcome settleOutcome, actor workflow.Actor) (*models.Subscription, error) {
	var activated *models.Subscription

	txErr := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		billingTx := s.billing.WithTx(tx)
		fresh, err := billingTx.FindChargeByID(ctx, charge.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload charge")
		}
		if fresh == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "charge not found")
		}
		if fresh.Status != enums.ChargeStatusPending {
			// Settled concurrently; surface whatever won.
			*charge = *fresh
			return nil
		}

		now := s.now()
		if outcome.Reference != "" {
			fresh.Reference = &outcome.Reference
		}

		if outcome.Settled {
			fresh.Status = enums.ChargeStatusSucceeded
			fresh.BilledAt = &now

			sub, err := s.ActivateInTx(ctx, tx, ActivateInput{
				MarketID:  fresh.MarketID,
				Plan:      chargePlan(fresh),
				Months:    chargeMonths(fresh),
				AutoRenew: fresh.AutoRenew,
				Amount:    fresh.Amount,
				Currency:  fresh.Currency,
				PaidAt:    &now,
				StartsAt:  now,
			})
			if err != nil {
				return err
			}
			fresh.SubscriptionID = &sub.ID
			if err := billingTx.UpdateCharge(ctx, fresh); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update charge")
			}

			// The ACTIVE row must exist before the move: paid_under_creation
			// is guarded on a live subscription.
			if _, err := s.engine.TransitionInTx(ctx, tx, workflow.TransitionParams{
				MarketID: fresh.MarketID,
				To:       enums.MarketStatusPaidUnderCreation,
				Action:   enums.WorkflowActionPaymentSettled,
				Actor:    actor,
			}); err != nil {
				return err
			}

			s.emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventPaymentSettled,
				AggregateType: enums.AggregateCharge,
				AggregateID:   fresh.ID,
				Version:       1,
				Data: payloads.PaymentSettledEvent{
					ChargeID:  fresh.ID,
					MarketID:  fresh.MarketID,
					Gateway:   fresh.Gateway,
					Reference: outcome.Reference,
					Amount:    fresh.Amount,
					Currency:  fresh.Currency,
				},
			})
			activated = sub
		} else {
			fresh.Status = enums.ChargeStatusFailed
			if outcome.Reason != "" {
				fresh.FailureReason = &outcome.Reason
			}
			if err := billingTx.UpdateCharge(ctx, fresh); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update charge")
			}

			if _, err := s.engine.TransitionInTx(ctx, tx, workflow.TransitionParams{
				MarketID: fresh.MarketID,
				To:       enums.MarketStatusUnpaidUnderCreation,
				Action:   enums.WorkflowActionPaymentFailed,
				Actor:    actor,
			}); err != nil {
				return err
			}

			s.emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventPaymentFailed,
				AggregateType: enums.AggregateCharge,
				AggregateID:   fresh.ID,
				Version:       1,
				Data: payloads.PaymentFailedEvent{
					ChargeID: fresh.ID,
					MarketID: fresh.MarketID,
					Gateway:  fresh.Gateway,
					Reason:   outcome.Reason,
				},
			})
		}

		*charge = *fresh
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}
	return activated, nil
}

func (s *service) resolvePlan(ctx context.Context, tier enums.SubscriptionPlan) (*models.BillingPlan, error) {
	plan, err := s.billing.FindPlanByTier(ctx, tier)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load plan")
	}
	if plan == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown plan %q", tier))
	}
	if plan.Status != enums.PlanStatusActive {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("plan %q is not purchasable", tier))
	}
	return plan, nil
}

func chargePlan(charge *models.Charge) enums.SubscriptionPlan {
	if charge.Plan != nil {
		return *charge.Plan
	}
	return ""
}

func chargeMonths(charge *models.Charge) int {
	if charge.DurationMonths != nil {
		return *charge.DurationMonths
	}
	return 0
}
