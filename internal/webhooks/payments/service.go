package paymentswebhook

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/bazario-app/bazario-backend/internal/subscriptions"
	"github.com/bazario-app/bazario-backend/internal/workflow"
	"github.com/bazario-app/bazario-backend/pkg/db/models"
	pkgerrors "github.com/bazario-app/bazario-backend/pkg/errors"
	"github.com/bazario-app/bazario-backend/pkg/logger"
)

// Event types accepted on the payments ingress.
const (
	EventTypePaymentSettled = "payment.settled"
	EventTypePaymentFailed  = "payment.failed"
)

// Event is a gateway's asynchronous verdict on a charge. Reference matches
// the gateway's payment id; market_id is the fallback when the gateway never
// returned a reference (the charge was left pending by a timeout).
type Event struct {
	ID        string     `json:"id"`
	Type      string     `json:"type"`
	Reference string     `json:"reference,omitempty"`
	MarketID  *uuid.UUID `json:"market_id,omitempty"`
	Reason    string     `json:"reason,omitempty"`
}

type paymentSettler interface {
	SettlePayment(ctx context.Context, input subscriptions.SettleInput) (*models.Charge, error)
}

// ServiceParams wires the webhook service's collaborators.
type ServiceParams struct {
	Settler paymentSettler
	Guard   *IdempotencyGuard
	Logger  *logger.Logger
}

// Service turns payment webhook deliveries into charge settlements. Each
// event id is claimed once; a failed settlement releases the claim so the
// gateway's redelivery gets another shot.
type Service struct {
	settler paymentSettler
	guard   *IdempotencyGuard
	logg    *logger.Logger
}

// NewService builds the payments webhook service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Settler == nil {
		return nil, fmt.Errorf("payment settler required")
	}
	if params.Guard == nil {
		return nil, fmt.Errorf("idempotency guard required")
	}
	return &Service{
		settler: params.Settler,
		guard:   params.Guard,
		logg:    params.Logger,
	}, nil
}

// HandleEvent processes one delivery. Unknown event types and duplicate
// deliveries are dropped without error so the gateway stops retrying them.
func (s *Service) HandleEvent(ctx context.Context, event Event) error {
	if strings.TrimSpace(event.ID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "event id required")
	}

	var settled bool
	switch event.Type {
	case EventTypePaymentSettled:
		settled = true
	case EventTypePaymentFailed:
		settled = false
	default:
		if s.logg != nil {
			s.logg.Warn(s.logg.WithField(ctx, "event_type", event.Type), "ignoring unknown payment event")
		}
		return nil
	}

	if event.Reference == "" && event.MarketID == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "event needs a reference or a market id")
	}

	seen, err := s.guard.CheckAndMark(ctx, event.ID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check event idempotency")
	}
	if seen {
		if s.logg != nil {
			s.logg.Info(s.logg.WithField(ctx, "event_id", event.ID), "duplicate payment event dropped")
		}
		return nil
	}

	input := subscriptions.SettleInput{
		Reference: event.Reference,
		Settled:   settled,
		Reason:    event.Reason,
		Actor:     workflow.SystemActor(),
	}
	if event.MarketID != nil {
		input.MarketID = *event.MarketID
	}

	if _, err := s.settler.SettlePayment(ctx, input); err != nil {
		if releaseErr := s.guard.Release(ctx, event.ID); releaseErr != nil && s.logg != nil {
			s.logg.Error(s.logg.WithField(ctx, "event_id", event.ID), "release event claim", releaseErr)
		}
		return err
	}
	return nil
}
