package subscriptions

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bazario-app/bazario-backend/internal/payments"
	"github.com/bazario-app/bazario-backend/internal/workflow"
	"github.com/bazario-app/bazario-backend/pkg/db/models"
	"github.com/bazario-app/bazario-backend/pkg/enums"
	pkgerrors "github.com/bazario-app/bazario-backend/pkg/errors"
)

func transitionActions(engine *stubEngine) []enums.WorkflowAction {
	actions := make([]enums.WorkflowAction, 0, len(engine.inTx))
	for _, params := range engine.inTx {
		actions = append(actions, params.Action)
	}
	return actions
}

func TestInitiateCheckoutSettles(t *testing.T) {
	market := marketFixture(enums.MarketStatusUnpaidUnderCreation)
	f := newFixture(t, market)
	f.billing.plans[enums.SubscriptionPlanBasic] = basicPlan()
	f.router.result = &payments.Result{Settled: true, Reference: "pay_9"}

	result, err := f.svc.InitiateCheckout(context.Background(), CheckoutInput{
		MarketID:  market.ID,
		Plan:      enums.SubscriptionPlanBasic,
		Months:    3,
		AutoRenew: true,
		Actor:     ownerActor(market),
	})
	if err != nil {
		t.Fatalf("InitiateCheckout: %v", err)
	}

	if result.Status != enums.MarketStatusPaidUnderCreation {
		t.Fatalf("status = %s, want paid_under_creation", result.Status)
	}
	if result.Subscription == nil {
		t.Fatalf("expected an activated subscription")
	}
	if result.Subscription.DurationMonths != 3 || !result.Subscription.AutoRenew {
		t.Fatalf("unexpected subscription %+v", result.Subscription)
	}

	charge := result.Charge
	if charge.Status != enums.ChargeStatusSucceeded {
		t.Fatalf("charge status = %s, want succeeded", charge.Status)
	}
	if charge.Reference == nil || *charge.Reference != "pay_9" {
		t.Fatalf("charge reference = %v, want pay_9", charge.Reference)
	}
	if !charge.Amount.Equal(decimal.RequireFromString("87.00")) {
		t.Fatalf("charge amount = %s, want 87.00", charge.Amount)
	}
	if charge.SubscriptionID == nil || *charge.SubscriptionID != result.Subscription.ID {
		t.Fatalf("charge not linked to the subscription")
	}

	wantActions := []enums.WorkflowAction{
		enums.WorkflowActionPaymentInitiated,
		enums.WorkflowActionPaymentSettled,
	}
	got := transitionActions(f.engine)
	if len(got) != len(wantActions) || got[0] != wantActions[0] || got[1] != wantActions[1] {
		t.Fatalf("transitions = %v, want %v", got, wantActions)
	}

	types := f.outbox.eventTypes()
	if len(types) != 2 || types[0] != enums.EventSubscriptionActivated || types[1] != enums.EventPaymentSettled {
		t.Fatalf("unexpected events %v", types)
	}
}

func TestInitiateCheckoutDefaultsPlanMonths(t *testing.T) {
	market := marketFixture(enums.MarketStatusUnpaidUnderCreation)
	f := newFixture(t, market)
	f.billing.plans[enums.SubscriptionPlanBasic] = basicPlan()

	result, err := f.svc.InitiateCheckout(context.Background(), CheckoutInput{
		MarketID: market.ID,
		Plan:     enums.SubscriptionPlanBasic,
		Actor:    ownerActor(market),
	})
	if err != nil {
		t.Fatalf("InitiateCheckout: %v", err)
	}
	if result.Subscription.DurationMonths != 1 {
		t.Fatalf("months = %d, want the plan default", result.Subscription.DurationMonths)
	}
	if !result.Charge.Amount.Equal(decimal.RequireFromString("29.00")) {
		t.Fatalf("amount = %s, want 29.00", result.Charge.Amount)
	}
}

func TestInitiateCheckoutDeclined(t *testing.T) {
	market := marketFixture(enums.MarketStatusUnpaidUnderCreation)
	f := newFixture(t, market)
	f.billing.plans[enums.SubscriptionPlanBasic] = basicPlan()
	f.router.result = &payments.Result{Settled: false, FailureReason: "card_declined"}

	result, err := f.svc.InitiateCheckout(context.Background(), CheckoutInput{
		MarketID: market.ID,
		Plan:     enums.SubscriptionPlanBasic,
		Actor:    ownerActor(market),
	})
	if err != nil {
		t.Fatalf("InitiateCheckout: %v", err)
	}

	if result.Status != enums.MarketStatusUnpaidUnderCreation {
		t.Fatalf("status = %s, want unpaid_under_creation", result.Status)
	}
	if result.Subscription != nil {
		t.Fatalf("declined checkout must not activate a subscription")
	}
	if result.Charge.Status != enums.ChargeStatusFailed {
		t.Fatalf("charge status = %s, want failed", result.Charge.Status)
	}
	if result.Charge.FailureReason == nil || *result.Charge.FailureReason != "card_declined" {
		t.Fatalf("failure reason = %v", result.Charge.FailureReason)
	}

	got := transitionActions(f.engine)
	if len(got) != 2 || got[1] != enums.WorkflowActionPaymentFailed {
		t.Fatalf("transitions = %v, want payment_initiated then payment_failed", got)
	}
	if len(f.repo.created) != 0 {
		t.Fatalf("no subscription rows expected, got %d", len(f.repo.created))
	}
}

func TestInitiateCheckoutUnknownOutcomeLeavesPending(t *testing.T) {
	market := marketFixture(enums.MarketStatusUnpaidUnderCreation)
	f := newFixture(t, market)
	f.billing.plans[enums.SubscriptionPlanBasic] = basicPlan()
	f.router.err = errors.New("gateway timeout")

	_, err := f.svc.InitiateCheckout(context.Background(), CheckoutInput{
		MarketID: market.ID,
		Plan:     enums.SubscriptionPlanBasic,
		Actor:    ownerActor(market),
	})
	assertCode(t, err, pkgerrors.CodeDependency)

	// The market stays parked; only payment_initiated ran.
	got := transitionActions(f.engine)
	if len(got) != 1 || got[0] != enums.WorkflowActionPaymentInitiated {
		t.Fatalf("transitions = %v, want only payment_initiated", got)
	}
	if len(f.billing.created) != 1 {
		t.Fatalf("expected one charge, got %d", len(f.billing.created))
	}
	stored := f.billing.charges[f.billing.created[0].ID]
	if stored.Status != enums.ChargeStatusPending {
		t.Fatalf("charge status = %s, want pending for the webhook or TTL job", stored.Status)
	}
}

func TestInitiateCheckoutMisconfiguredGatewayRollsBack(t *testing.T) {
	market := marketFixture(enums.MarketStatusUnpaidUnderCreation)
	f := newFixture(t, market)
	f.billing.plans[enums.SubscriptionPlanBasic] = basicPlan()
	f.router.err = pkgerrors.New(pkgerrors.CodeInvalidGatewayConfig, "missing api key")

	_, err := f.svc.InitiateCheckout(context.Background(), CheckoutInput{
		MarketID: market.ID,
		Plan:     enums.SubscriptionPlanBasic,
		Actor:    ownerActor(market),
	})
	assertCode(t, err, pkgerrors.CodeInvalidGatewayConfig)

	got := transitionActions(f.engine)
	if len(got) != 2 || got[1] != enums.WorkflowActionPaymentFailed {
		t.Fatalf("transitions = %v, want payment_initiated then payment_failed", got)
	}
	stored := f.billing.charges[f.billing.created[0].ID]
	if stored.Status != enums.ChargeStatusFailed {
		t.Fatalf("charge status = %s, want failed", stored.Status)
	}
}

func TestInitiateCheckoutByNonOwner(t *testing.T) {
	market := marketFixture(enums.MarketStatusUnpaidUnderCreation)
	f := newFixture(t, market)
	f.billing.plans[enums.SubscriptionPlanBasic] = basicPlan()

	stranger := workflow.Actor{UserID: uuid.New(), Role: enums.ActorRoleOwner}
	_, err := f.svc.InitiateCheckout(context.Background(), CheckoutInput{
		MarketID: market.ID,
		Plan:     enums.SubscriptionPlanBasic,
		Actor:    stranger,
	})
	assertCode(t, err, pkgerrors.CodeForbidden)
	if f.router.calls != 0 {
		t.Fatalf("router must not be called, got %d calls", f.router.calls)
	}
}

func TestInitiateCheckoutUnknownPlan(t *testing.T) {
	market := marketFixture(enums.MarketStatusUnpaidUnderCreation)
	f := newFixture(t, market)

	_, err := f.svc.InitiateCheckout(context.Background(), CheckoutInput{
		MarketID: market.ID,
		Plan:     enums.SubscriptionPlanPremium,
		Actor:    ownerActor(market),
	})
	assertCode(t, err, pkgerrors.CodeValidation)
}

func TestSettlePaymentByReference(t *testing.T) {
	market := marketFixture(enums.MarketStatusPaymentPending)
	f := newFixture(t, market)

	plan := enums.SubscriptionPlanBasic
	months := 1
	reference := "pay_77"
	charge := &models.Charge{
		ID:             uuid.New(),
		MarketID:       market.ID,
		Gateway:        enums.PaymentGatewayTypePlatform,
		Reference:      &reference,
		Amount:         decimal.RequireFromString("29.00"),
		Currency:       "USD",
		Status:         enums.ChargeStatusPending,
		Plan:           &plan,
		DurationMonths: &months,
	}
	f.billing.storeCharge(charge)

	settled, err := f.svc.SettlePayment(context.Background(), SettleInput{
		Reference: reference,
		Settled:   true,
		Actor:     workflow.SystemActor(),
	})
	if err != nil {
		t.Fatalf("SettlePayment: %v", err)
	}
	if settled.Status != enums.ChargeStatusSucceeded {
		t.Fatalf("charge status = %s, want succeeded", settled.Status)
	}
	if len(f.repo.created) != 1 {
		t.Fatalf("expected one activated subscription, got %d", len(f.repo.created))
	}
	got := transitionActions(f.engine)
	if len(got) != 1 || got[0] != enums.WorkflowActionPaymentSettled {
		t.Fatalf("transitions = %v, want payment_settled", got)
	}
}

func TestSettlePaymentDuplicateIsNoOp(t *testing.T) {
	market := marketFixture(enums.MarketStatusPaidUnderCreation)
	f := newFixture(t, market)

	reference := "pay_42"
	charge := &models.Charge{
		ID:        uuid.New(),
		MarketID:  market.ID,
		Gateway:   enums.PaymentGatewayTypePlatform,
		Reference: &reference,
		Amount:    decimal.RequireFromString("29.00"),
		Currency:  "USD",
		Status:    enums.ChargeStatusSucceeded,
	}
	f.billing.storeCharge(charge)

	settled, err := f.svc.SettlePayment(context.Background(), SettleInput{
		Reference: reference,
		Settled:   true,
		Actor:     workflow.SystemActor(),
	})
	if err != nil {
		t.Fatalf("SettlePayment: %v", err)
	}
	if settled.Status != enums.ChargeStatusSucceeded {
		t.Fatalf("charge status = %s", settled.Status)
	}
	if len(f.engine.inTx) != 0 {
		t.Fatalf("duplicate settlement must not move the market, got %d transitions", len(f.engine.inTx))
	}
	if len(f.repo.created) != 0 {
		t.Fatalf("duplicate settlement must not activate again, got %d rows", len(f.repo.created))
	}
}

func TestSettlePaymentFallsBackToLatestPending(t *testing.T) {
	market := marketFixture(enums.MarketStatusPaymentPending)
	f := newFixture(t, market)

	plan := enums.SubscriptionPlanBasic
	months := 1
	charge := &models.Charge{
		ID:             uuid.New(),
		MarketID:       market.ID,
		Gateway:        enums.PaymentGatewayTypePlatform,
		Amount:         decimal.RequireFromString("29.00"),
		Currency:       "USD",
		Status:         enums.ChargeStatusPending,
		Plan:           &plan,
		DurationMonths: &months,
	}
	f.billing.storeCharge(charge)

	settled, err := f.svc.SettlePayment(context.Background(), SettleInput{
		MarketID: market.ID,
		Settled:  false,
		Reason:   "card_declined",
		Actor:    workflow.SystemActor(),
	})
	if err != nil {
		t.Fatalf("SettlePayment: %v", err)
	}
	if settled.Status != enums.ChargeStatusFailed {
		t.Fatalf("charge status = %s, want failed", settled.Status)
	}
	got := transitionActions(f.engine)
	if len(got) != 1 || got[0] != enums.WorkflowActionPaymentFailed {
		t.Fatalf("transitions = %v, want payment_failed", got)
	}
}

func TestSettlePaymentWithoutMatch(t *testing.T) {
	market := marketFixture(enums.MarketStatusPaymentPending)
	f := newFixture(t, market)

	_, err := f.svc.SettlePayment(context.Background(), SettleInput{
		MarketID:  market.ID,
		Reference: "pay_unknown",
		Settled:   true,
		Actor:     workflow.SystemActor(),
	})
	assertCode(t, err, pkgerrors.CodeNotFound)
}
