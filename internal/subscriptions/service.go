package subscriptions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/bazario-app/bazario-backend/internal/billing"
	"github.com/bazario-app/bazario-backend/internal/payments"
	"github.com/bazario-app/bazario-backend/internal/workflow"
	"github.com/bazario-app/bazario-backend/pkg/db/models"
	"github.com/bazario-app/bazario-backend/pkg/enums"
	pkgerrors "github.com/bazario-app/bazario-backend/pkg/errors"
	"github.com/bazario-app/bazario-backend/pkg/logger"
	"github.com/bazario-app/bazario-backend/pkg/outbox"
	"github.com/bazario-app/bazario-backend/pkg/outbox/payloads"
)

type subscriptionStore interface {
	FindActiveByMarket(ctx context.Context, marketID uuid.UUID) (*models.Subscription, error)
	ListByMarket(ctx context.Context, marketID uuid.UUID) ([]models.Subscription, error)
	ListLapsed(ctx context.Context, cutoff time.Time) ([]models.Subscription, error)
	CreateWithTx(tx *gorm.DB, sub *models.Subscription) error
	UpdateWithTx(tx *gorm.DB, sub *models.Subscription) error
	ExpireWithTx(tx *gorm.DB, id uuid.UUID) (int64, error)
	CancelWithTx(tx *gorm.DB, id uuid.UUID) (int64, error)
}

type marketStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Market, error)
	FindByIDWithTx(tx *gorm.DB, id uuid.UUID) (*models.Market, error)
	UpdateSubscriptionWindowWithTx(tx *gorm.DB, id uuid.UUID, start, end *time.Time) error
}

type transitionEngine interface {
	TransitionInTx(ctx context.Context, tx *gorm.DB, params workflow.TransitionParams) (*workflow.Result, error)
}

type chargeRouter interface {
	Charge(ctx context.Context, payable payments.Payable, route payments.Route, description string) (*payments.Result, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service owns the paid access window around a market: checkout, gateway
// settlement, renewals, and the expiry sweep. Every status move goes through
// the workflow engine inside the same transaction as the billing writes.
type Service interface {
	ActivateInTx(ctx context.Context, tx *gorm.DB, input ActivateInput) (*models.Subscription, error)
	InitiateCheckout(ctx context.Context, input CheckoutInput) (*CheckoutResult, error)
	SettlePayment(ctx context.Context, input SettleInput) (*models.Charge, error)
	Cancel(ctx context.Context, actor workflow.Actor, marketID uuid.UUID) (*models.Subscription, error)
	GetActive(ctx context.Context, actor workflow.Actor, marketID uuid.UUID) (*models.Subscription, error)
	ListByMarket(ctx context.Context, actor workflow.Actor, marketID uuid.UUID) ([]models.Subscription, error)
	SweepExpirations(ctx context.Context, now time.Time) (SweepReport, error)
}

// ServiceParams wires the subscription service's collaborators.
type ServiceParams struct {
	Repo             subscriptionStore
	Markets          marketStore
	Billing          billing.Repository
	Engine           transitionEngine
	Router           chargeRouter
	Tx               txRunner
	Outbox           outboxPublisher
	Logger           *logger.Logger
	ChargeTimeout    time.Duration
	MaxRenewAttempts int
	Now              func() time.Time
}

type service struct {
	repo             subscriptionStore
	markets          marketStore
	billing          billing.Repository
	engine           transitionEngine
	router           chargeRouter
	tx               txRunner
	outbox           outboxPublisher
	logg             *logger.Logger
	chargeTimeout    time.Duration
	maxRenewAttempts int
	now              func() time.Time
}

const (
	defaultChargeTimeout    = 20 * time.Second
	defaultMaxRenewAttempts = 3
)

// NewService builds the subscription service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("subscription repository required")
	}
	if params.Markets == nil {
		return nil, fmt.Errorf("market store required")
	}
	if params.Billing == nil {
		return nil, fmt.Errorf("billing repository required")
	}
	if params.Engine == nil {
		return nil, fmt.Errorf("workflow engine required")
	}
	if params.Router == nil {
		return nil, fmt.Errorf("payment router required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if params.ChargeTimeout <= 0 {
		params.ChargeTimeout = defaultChargeTimeout
	}
	if params.MaxRenewAttempts <= 0 {
		params.MaxRenewAttempts = defaultMaxRenewAttempts
	}
	if params.Now == nil {
		params.Now = time.Now
	}
	return &service{
		repo:             params.Repo,
		markets:          params.Markets,
		billing:          params.Billing,
		engine:           params.Engine,
		router:           params.Router,
		tx:               params.Tx,
		outbox:           params.Outbox,
		logg:             params.Logger,
		chargeTimeout:    params.ChargeTimeout,
		maxRenewAttempts: params.MaxRenewAttempts,
		now:              params.Now,
	}, nil
}

// ActivateInput opens one paid window. StartsAt anchors the window; renewals
// pass the predecessor's ends_at so coverage never gaps.
type ActivateInput struct {
	MarketID  uuid.UUID
	Plan      enums.SubscriptionPlan
	Months    int
	AutoRenew bool
	Amount    decimal.Decimal
	Currency  string
	PaidAt    *time.Time
	StartsAt  time.Time
	Renewal   bool
}

// ActivateInTx inserts the ACTIVE row, mirrors the window onto the market,
// and emits subscription_activated, all on the caller's transaction. It never
// touches the market status; settlement and the sweep own those moves.
func (s *service) ActivateInTx(ctx context.Context, tx *gorm.DB, input ActivateInput) (*models.Subscription, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction required")
	}
	if input.MarketID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "market id required")
	}
	if !input.Plan.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid subscription plan")
	}
	if input.Months <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "duration must be at least one month")
	}
	if input.Amount.Sign() < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount cannot be negative")
	}
	if input.StartsAt.IsZero() {
		input.StartsAt = s.now()
	}

	sub := &models.Subscription{
		MarketID:       input.MarketID,
		Plan:           input.Plan,
		DurationMonths: input.Months,
		Amount:         input.Amount,
		Currency:       input.Currency,
		AutoRenew:      input.AutoRenew,
		Status:         enums.SubscriptionStatusActive,
		PaidAt:         input.PaidAt,
		StartsAt:       input.StartsAt,
		EndsAt:         input.StartsAt.AddDate(0, input.Months, 0),
	}
	if err := s.repo.CreateWithTx(tx, sub); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create subscription")
	}

	if err := s.markets.UpdateSubscriptionWindowWithTx(tx, input.MarketID, &sub.StartsAt, &sub.EndsAt); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sync subscription window")
	}

	s.emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventSubscriptionActivated,
		AggregateType: enums.AggregateSubscription,
		AggregateID:   sub.ID,
		Version:       1,
		Data: payloads.SubscriptionActivatedEvent{
			SubscriptionID: sub.ID,
			MarketID:       sub.MarketID,
			Plan:           sub.Plan,
			StartsAt:       sub.StartsAt,
			EndsAt:         sub.EndsAt,
			Renewal:        input.Renewal,
		},
	})

	return sub, nil
}

// Cancel closes the market's active subscription without disturbing the
// market state; the sweep retires the market once the paid window lapses.
func (s *service) Cancel(ctx context.Context, actor workflow.Actor, marketID uuid.UUID) (*models.Subscription, error) {
	market, err := s.loadMarket(ctx, marketID)
	if err != nil {
		return nil, err
	}
	if err := authorizeOwner(market, actor); err != nil {
		return nil, err
	}

	sub, err := s.repo.FindActiveByMarket(ctx, marketID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load active subscription")
	}
	if sub == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no active subscription")
	}

	txErr := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		affected, err := s.repo.CancelWithTx(tx, sub.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel subscription")
		}
		if affected != 1 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "subscription already closed")
		}
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	sub.Status = enums.SubscriptionStatusCancelled
	sub.AutoRenew = false
	return sub, nil
}

// GetActive returns the market's current paid window.
func (s *service) GetActive(ctx context.Context, actor workflow.Actor, marketID uuid.UUID) (*models.Subscription, error) {
	market, err := s.loadMarket(ctx, marketID)
	if err != nil {
		return nil, err
	}
	if err := authorizeOwner(market, actor); err != nil {
		return nil, err
	}
	sub, err := s.repo.FindActiveByMarket(ctx, marketID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load active subscription")
	}
	if sub == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no active subscription")
	}
	return sub, nil
}

// ListByMarket returns the market's full subscription history, newest first.
func (s *service) ListByMarket(ctx context.Context, actor workflow.Actor, marketID uuid.UUID) ([]models.Subscription, error) {
	market, err := s.loadMarket(ctx, marketID)
	if err != nil {
		return nil, err
	}
	if err := authorizeOwner(market, actor); err != nil {
		return nil, err
	}
	subs, err := s.repo.ListByMarket(ctx, marketID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list subscriptions")
	}
	return subs, nil
}

func (s *service) loadMarket(ctx context.Context, id uuid.UUID) (*models.Market, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "market id required")
	}
	market, err := s.markets.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "market not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load market")
	}
	return market, nil
}

// emit hands an event to the outbox; delivery is asynchronous anyway, so a
// failed insert is logged and never rolls back the surrounding transaction.
func (s *service) emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) {
	if err := s.outbox.Emit(ctx, tx, event); err != nil && s.logg != nil {
		logCtx := s.logg.WithField(ctx, "event_type", string(event.EventType))
		s.logg.Error(logCtx, "emit subscription event", err)
	}
}

func authorizeOwner(market *models.Market, actor workflow.Actor) error {
	switch actor.Role {
	case enums.ActorRoleAdmin, enums.ActorRoleSystem:
		return nil
	}
	if market.OwnerID != actor.UserID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "not the market owner")
	}
	return nil
}

// routeForMarket builds the payment route from the market's gateway settings.
func routeForMarket(market *models.Market) payments.Route {
	route := payments.Route{
		GatewayType: market.PaymentGatewayType,
		Personal:    market.PersonalGatewayConfig,
	}
	if market.SquareCustomerID != nil && market.SquareCardID != nil {
		route.Platform = &payments.PlatformProfile{
			CustomerID: *market.SquareCustomerID,
			CardID:     *market.SquareCardID,
		}
	}
	return route
}

// chargePayable adapts a charge row to the router's payable capability.
type chargePayable struct {
	charge *models.Charge
}

func (p chargePayable) PayableID() uuid.UUID           { return p.charge.ID }
func (p chargePayable) PayableAmount() decimal.Decimal { return p.charge.Amount }
func (p chargePayable) PayableCurrency() string        { return p.charge.Currency }
