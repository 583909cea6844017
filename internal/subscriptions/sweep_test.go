package subscriptions

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bazario-app/bazario-backend/internal/payments"
	"github.com/bazario-app/bazario-backend/pkg/db/models"
	"github.com/bazario-app/bazario-backend/pkg/enums"
)

func lapsedSubscription(marketID uuid.UUID, autoRenew bool) models.Subscription {
	return models.Subscription{
		ID:             uuid.New(),
		MarketID:       marketID,
		Plan:           enums.SubscriptionPlanBasic,
		DurationMonths: 1,
		Amount:         decimal.RequireFromString("29.00"),
		Currency:       "USD",
		AutoRenew:      autoRenew,
		Status:         enums.SubscriptionStatusActive,
		StartsAt:       testNow.AddDate(0, -1, 0),
		EndsAt:         testNow.Add(-time.Hour),
	}
}

func TestSweepExpiresLapsedAndRetiresPublishedMarket(t *testing.T) {
	market := marketFixture(enums.MarketStatusPublished)
	f := newFixture(t, market)
	sub := lapsedSubscription(market.ID, false)
	f.repo.lapsed = []models.Subscription{sub}

	report, err := f.svc.SweepExpirations(context.Background(), testNow)
	if err != nil {
		t.Fatalf("SweepExpirations: %v", err)
	}
	if report.Scanned != 1 || report.Expired != 1 {
		t.Fatalf("unexpected report %+v", report)
	}
	if len(f.repo.expired) != 1 || f.repo.expired[0] != sub.ID {
		t.Fatalf("expected the lapsed row to be expired")
	}

	if len(f.engine.inTx) != 1 {
		t.Fatalf("expected one transition, got %d", len(f.engine.inTx))
	}
	move := f.engine.inTx[0]
	if move.To != enums.MarketStatusInactive || move.Action != enums.WorkflowActionSubscriptionExpired {
		t.Fatalf("unexpected transition %+v", move)
	}
	if move.Actor.Role != enums.ActorRoleSystem {
		t.Fatalf("expiry must run as the system actor, got %s", move.Actor.Role)
	}

	types := f.outbox.eventTypes()
	if len(types) != 1 || types[0] != enums.EventSubscriptionExpired {
		t.Fatalf("unexpected events %v", types)
	}
}

func TestSweepLeavesUnpublishedMarketsAlone(t *testing.T) {
	market := marketFixture(enums.MarketStatusPaidUnderCreation)
	f := newFixture(t, market)
	f.repo.lapsed = []models.Subscription{lapsedSubscription(market.ID, false)}

	report, err := f.svc.SweepExpirations(context.Background(), testNow)
	if err != nil {
		t.Fatalf("SweepExpirations: %v", err)
	}
	if report.Expired != 1 {
		t.Fatalf("unexpected report %+v", report)
	}
	if len(f.engine.inTx) != 0 {
		t.Fatalf("only published markets are retired, got %d transitions", len(f.engine.inTx))
	}
}

func TestSweepSkipsAlreadyClosedRows(t *testing.T) {
	market := marketFixture(enums.MarketStatusPublished)
	f := newFixture(t, market)
	sub := lapsedSubscription(market.ID, false)
	f.repo.lapsed = []models.Subscription{sub}
	f.repo.expireAffected[sub.ID] = 0

	report, err := f.svc.SweepExpirations(context.Background(), testNow)
	if err != nil {
		t.Fatalf("SweepExpirations: %v", err)
	}
	if report.Expired != 1 {
		t.Fatalf("unexpected report %+v", report)
	}
	if len(f.engine.inTx) != 0 {
		t.Fatalf("a row closed elsewhere must not move the market")
	}
	if len(f.outbox.events) != 0 {
		t.Fatalf("a row closed elsewhere must not emit, got %v", f.outbox.eventTypes())
	}
}

func TestSweepRenewsAutoRenewingSubscription(t *testing.T) {
	market := marketFixture(enums.MarketStatusPublished)
	f := newFixture(t, market)
	sub := lapsedSubscription(market.ID, true)
	f.repo.lapsed = []models.Subscription{sub}
	f.router.result = &payments.Result{Settled: true, Reference: "pay_renew"}

	report, err := f.svc.SweepExpirations(context.Background(), testNow)
	if err != nil {
		t.Fatalf("SweepExpirations: %v", err)
	}
	if report.Renewed != 1 || report.Expired != 0 {
		t.Fatalf("unexpected report %+v", report)
	}

	if len(f.repo.created) != 1 {
		t.Fatalf("expected a successor row, got %d", len(f.repo.created))
	}
	successor := f.repo.created[0]
	if !successor.StartsAt.Equal(sub.EndsAt) {
		t.Fatalf("successor starts at %v, want the old ends_at %v", successor.StartsAt, sub.EndsAt)
	}
	if !successor.AutoRenew {
		t.Fatalf("successor keeps auto-renew")
	}
	if len(f.repo.expired) != 1 || f.repo.expired[0] != sub.ID {
		t.Fatalf("old row must be closed")
	}
	if len(f.engine.inTx) != 0 {
		t.Fatalf("a successful renewal never moves the market")
	}

	charge := f.billing.charges[f.billing.created[0].ID]
	if charge.Status != enums.ChargeStatusSucceeded {
		t.Fatalf("renewal charge status = %s, want succeeded", charge.Status)
	}
	if charge.Reference == nil || *charge.Reference != "pay_renew" {
		t.Fatalf("renewal charge reference = %v", charge.Reference)
	}

	types := f.outbox.eventTypes()
	if len(types) != 2 || types[0] != enums.EventSubscriptionActivated || types[1] != enums.EventPaymentSettled {
		t.Fatalf("unexpected events %v", types)
	}
}

func TestSweepRenewalDeclineConsumesAttempt(t *testing.T) {
	market := marketFixture(enums.MarketStatusPublished)
	f := newFixture(t, market)
	sub := lapsedSubscription(market.ID, true)
	f.repo.lapsed = []models.Subscription{sub}
	f.router.result = &payments.Result{Settled: false, FailureReason: "card_declined"}

	report, err := f.svc.SweepExpirations(context.Background(), testNow)
	if err != nil {
		t.Fatalf("SweepExpirations: %v", err)
	}
	if report.RenewalRetries != 1 || report.Expired != 0 {
		t.Fatalf("unexpected report %+v", report)
	}

	if len(f.repo.updated) != 1 || f.repo.updated[0].RenewalAttempts != 1 {
		t.Fatalf("expected renewal_attempts to reach 1")
	}
	if len(f.repo.expired) != 0 {
		t.Fatalf("attempts remain, row must stay open")
	}

	charge := f.billing.charges[f.billing.created[0].ID]
	if charge.Status != enums.ChargeStatusFailed {
		t.Fatalf("renewal charge status = %s, want failed", charge.Status)
	}

	types := f.outbox.eventTypes()
	if len(types) != 1 || types[0] != enums.EventSubscriptionRenewalFailed {
		t.Fatalf("unexpected events %v", types)
	}
}

func TestSweepExpiresAfterFinalRenewalAttempt(t *testing.T) {
	market := marketFixture(enums.MarketStatusPublished)
	f := newFixture(t, market)
	sub := lapsedSubscription(market.ID, true)
	sub.RenewalAttempts = 2
	f.repo.lapsed = []models.Subscription{sub}
	f.router.result = &payments.Result{Settled: false, FailureReason: "card_declined"}

	report, err := f.svc.SweepExpirations(context.Background(), testNow)
	if err != nil {
		t.Fatalf("SweepExpirations: %v", err)
	}
	if report.Expired != 1 || report.Renewed != 0 {
		t.Fatalf("unexpected report %+v", report)
	}

	if len(f.repo.expired) != 1 {
		t.Fatalf("exhausted row must expire")
	}
	if len(f.engine.inTx) != 1 || f.engine.inTx[0].To != enums.MarketStatusInactive {
		t.Fatalf("published market must be retired after the final attempt")
	}

	types := f.outbox.eventTypes()
	if len(types) != 2 || types[0] != enums.EventSubscriptionRenewalFailed || types[1] != enums.EventSubscriptionExpired {
		t.Fatalf("unexpected events %v", types)
	}
}

func TestSweepIsolatesPerMarketFailures(t *testing.T) {
	healthy := marketFixture(enums.MarketStatusPublished)
	f := newFixture(t, healthy)

	orphan := lapsedSubscription(uuid.New(), true) // market row missing
	ok := lapsedSubscription(healthy.ID, false)
	f.repo.lapsed = []models.Subscription{orphan, ok}

	report, err := f.svc.SweepExpirations(context.Background(), testNow)
	if err == nil {
		t.Fatalf("expected an aggregated error for the orphaned subscription")
	}
	if report.Scanned != 2 {
		t.Fatalf("both rows must be scanned, report %+v", report)
	}
	if report.Expired != 1 {
		t.Fatalf("the healthy market must still expire, report %+v", report)
	}
	if len(f.repo.expired) != 1 || f.repo.expired[0] != ok.ID {
		t.Fatalf("wrong row expired: %v", f.repo.expired)
	}
}
