package paymentswebhook

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/bazario-app/bazario-backend/internal/subscriptions"
	"github.com/bazario-app/bazario-backend/pkg/db/models"
	"github.com/bazario-app/bazario-backend/pkg/enums"
	pkgerrors "github.com/bazario-app/bazario-backend/pkg/errors"
)

type stubStore struct {
	keys     map[string]string
	setNXErr error
	deleted  []string
}

func newStubStore() *stubStore {
	return &stubStore{keys: make(map[string]string)}
}

func (s *stubStore) Get(ctx context.Context, key string) (string, error) {
	return s.keys[key], nil
}

func (s *stubStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if s.setNXErr != nil {
		return false, s.setNXErr
	}
	if _, exists := s.keys[key]; exists {
		return false, nil
	}
	s.keys[key] = "1"
	return true, nil
}

func (s *stubStore) IdempotencyKey(scope, id string) string {
	return "bz:idemp:" + scope + ":" + id
}

func (s *stubStore) Del(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		delete(s.keys, key)
		s.deleted = append(s.deleted, key)
	}
	return nil
}

type stubSettler struct {
	calls []subscriptions.SettleInput
	err   error
}

func (s *stubSettler) SettlePayment(ctx context.Context, input subscriptions.SettleInput) (*models.Charge, error) {
	s.calls = append(s.calls, input)
	if s.err != nil {
		return nil, s.err
	}
	return &models.Charge{ID: uuid.New(), Status: enums.ChargeStatusSucceeded}, nil
}

func newTestService(t *testing.T, settler *stubSettler, store *stubStore) *Service {
	t.Helper()
	guard, err := NewIdempotencyGuard(store, time.Hour, "payments")
	if err != nil {
		t.Fatalf("NewIdempotencyGuard: %v", err)
	}
	svc, err := NewService(ServiceParams{Settler: settler, Guard: guard})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestHandleEventSettles(t *testing.T) {
	settler := &stubSettler{}
	svc := newTestService(t, settler, newStubStore())

	err := svc.HandleEvent(context.Background(), Event{
		ID:        "evt_1",
		Type:      EventTypePaymentSettled,
		Reference: "pay_9",
	})
	if err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}
	if len(settler.calls) != 1 {
		t.Fatalf("expected one settlement, got %d", len(settler.calls))
	}
	call := settler.calls[0]
	if !call.Settled || call.Reference != "pay_9" {
		t.Fatalf("unexpected settle input %+v", call)
	}
	if call.Actor.Role != enums.ActorRoleSystem {
		t.Fatalf("webhook settlements run as system, got %s", call.Actor.Role)
	}
}

func TestHandleEventFailureByMarketID(t *testing.T) {
	settler := &stubSettler{}
	svc := newTestService(t, settler, newStubStore())

	marketID := uuid.New()
	err := svc.HandleEvent(context.Background(), Event{
		ID:       "evt_2",
		Type:     EventTypePaymentFailed,
		MarketID: &marketID,
		Reason:   "card_declined",
	})
	if err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}
	call := settler.calls[0]
	if call.Settled || call.MarketID != marketID || call.Reason != "card_declined" {
		t.Fatalf("unexpected settle input %+v", call)
	}
}

func TestHandleEventDuplicateDropped(t *testing.T) {
	settler := &stubSettler{}
	svc := newTestService(t, settler, newStubStore())

	event := Event{ID: "evt_3", Type: EventTypePaymentSettled, Reference: "pay_1"}
	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("first delivery: %v", err)
	}
	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("duplicate delivery: %v", err)
	}
	if len(settler.calls) != 1 {
		t.Fatalf("duplicate must not settle again, got %d calls", len(settler.calls))
	}
}

func TestHandleEventReleasesClaimOnFailure(t *testing.T) {
	settler := &stubSettler{err: errors.New("db down")}
	store := newStubStore()
	svc := newTestService(t, settler, store)

	event := Event{ID: "evt_4", Type: EventTypePaymentSettled, Reference: "pay_1"}
	if err := svc.HandleEvent(context.Background(), event); err == nil {
		t.Fatalf("expected settlement error")
	}
	if len(store.deleted) != 1 {
		t.Fatalf("claim must be released for redelivery, deleted=%v", store.deleted)
	}

	// Redelivery succeeds once the settler recovers.
	settler.err = nil
	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("redelivery: %v", err)
	}
	if len(settler.calls) != 2 {
		t.Fatalf("expected a second settle attempt, got %d", len(settler.calls))
	}
}

func TestHandleEventUnknownTypeIgnored(t *testing.T) {
	settler := &stubSettler{}
	svc := newTestService(t, settler, newStubStore())

	if err := svc.HandleEvent(context.Background(), Event{ID: "evt_5", Type: "payment.refunded"}); err != nil {
		t.Fatalf("unknown type must be dropped, got %v", err)
	}
	if len(settler.calls) != 0 {
		t.Fatalf("unknown type must not settle")
	}
}

func TestHandleEventRejectsMissingTarget(t *testing.T) {
	settler := &stubSettler{}
	svc := newTestService(t, settler, newStubStore())

	err := svc.HandleEvent(context.Background(), Event{ID: "evt_6", Type: EventTypePaymentSettled})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}
