package billing

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/bazario-app/bazario-backend/pkg/db/models"
	"github.com/bazario-app/bazario-backend/pkg/enums"
	pkgerrors "github.com/bazario-app/bazario-backend/pkg/errors"
	"github.com/bazario-app/bazario-backend/pkg/pagination"
)

type stubRepo struct {
	listPlansFn   func(ctx context.Context, params ListPlansQuery) ([]models.BillingPlan, error)
	findTierFn    func(ctx context.Context, tier enums.SubscriptionPlan) (*models.BillingPlan, error)
	listChargesFn func(ctx context.Context, params ListChargesQuery) ([]models.Charge, *pagination.Cursor, error)
	findRefFn     func(ctx context.Context, reference string) (*models.Charge, error)
}

func (s *stubRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubRepo) ListPlans(ctx context.Context, params ListPlansQuery) ([]models.BillingPlan, error) {
	if s.listPlansFn != nil {
		return s.listPlansFn(ctx, params)
	}
	return nil, nil
}

func (s *stubRepo) FindPlanByID(ctx context.Context, id string) (*models.BillingPlan, error) {
	return nil, nil
}

func (s *stubRepo) FindPlanByTier(ctx context.Context, tier enums.SubscriptionPlan) (*models.BillingPlan, error) {
	if s.findTierFn != nil {
		return s.findTierFn(ctx, tier)
	}
	return nil, nil
}

func (s *stubRepo) FindDefaultPlan(ctx context.Context) (*models.BillingPlan, error) {
	return nil, nil
}

func (s *stubRepo) CreateCharge(ctx context.Context, charge *models.Charge) error { return nil }

func (s *stubRepo) UpdateCharge(ctx context.Context, charge *models.Charge) error { return nil }

func (s *stubRepo) FindChargeByID(ctx context.Context, id uuid.UUID) (*models.Charge, error) {
	return nil, nil
}

func (s *stubRepo) FindChargeByReference(ctx context.Context, reference string) (*models.Charge, error) {
	if s.findRefFn != nil {
		return s.findRefFn(ctx, reference)
	}
	return nil, nil
}

func (s *stubRepo) FindLatestPendingCharge(ctx context.Context, marketID uuid.UUID) (*models.Charge, error) {
	return nil, nil
}

func (s *stubRepo) ListCharges(ctx context.Context, params ListChargesQuery) ([]models.Charge, *pagination.Cursor, error) {
	if s.listChargesFn != nil {
		return s.listChargesFn(ctx, params)
	}
	return nil, nil, nil
}

func TestServiceListPublicPlansFiltersActive(t *testing.T) {
	captured := ListPlansQuery{}
	repo := &stubRepo{
		listPlansFn: func(ctx context.Context, params ListPlansQuery) ([]models.BillingPlan, error) {
			captured = params
			return []models.BillingPlan{
				{ID: "basic", Plan: enums.SubscriptionPlanBasic, MonthlyPrice: decimal.NewFromInt(29)},
				{ID: "premium", Plan: enums.SubscriptionPlanPremium, MonthlyPrice: decimal.NewFromInt(79)},
			}, nil
		},
	}

	svc, _ := NewService(ServiceParams{Repo: repo})
	plans, err := svc.ListPublicPlans(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(plans) != 2 {
		t.Fatalf("expected 2 plans, got %d", len(plans))
	}
	if captured.Status == nil || *captured.Status != enums.PlanStatusActive {
		t.Fatal("public listing must filter to active plans")
	}
}

func TestServiceResolvePlanForCheckout(t *testing.T) {
	active := &models.BillingPlan{
		ID:           "premium",
		Plan:         enums.SubscriptionPlanPremium,
		Status:       enums.PlanStatusActive,
		MonthlyPrice: decimal.NewFromInt(79),
	}
	repo := &stubRepo{
		findTierFn: func(ctx context.Context, tier enums.SubscriptionPlan) (*models.BillingPlan, error) {
			if tier == enums.SubscriptionPlanPremium {
				return active, nil
			}
			if tier == enums.SubscriptionPlanEnterprise {
				hidden := *active
				hidden.ID = "enterprise"
				hidden.Status = enums.PlanStatusHidden
				return &hidden, nil
			}
			return nil, nil
		},
	}
	svc, _ := NewService(ServiceParams{Repo: repo})

	plan, err := svc.ResolvePlanForCheckout(context.Background(), enums.SubscriptionPlanPremium)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if plan.ID != "premium" {
		t.Fatalf("unexpected plan %s", plan.ID)
	}

	_, err = svc.ResolvePlanForCheckout(context.Background(), enums.SubscriptionPlanEnterprise)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for hidden plan, got %v", err)
	}

	_, err = svc.ResolvePlanForCheckout(context.Background(), enums.SubscriptionPlanBasic)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found for missing row, got %v", err)
	}

	_, err = svc.ResolvePlanForCheckout(context.Background(), enums.SubscriptionPlan("gold"))
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for unknown tier, got %v", err)
	}
}

func TestServiceListChargesRequiresMarket(t *testing.T) {
	svc, _ := NewService(ServiceParams{Repo: &stubRepo{}})
	_, err := svc.ListCharges(context.Background(), ListChargesParams{})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestServiceListChargesInvalidCursor(t *testing.T) {
	svc, _ := NewService(ServiceParams{Repo: &stubRepo{}})
	_, err := svc.ListCharges(context.Background(), ListChargesParams{
		MarketID: uuid.New(),
		Cursor:   "not-a-cursor",
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestServiceListChargesReturnsCursor(t *testing.T) {
	now := time.Now().UTC()
	next := pagination.Cursor{
		CreatedAt: now.Add(-time.Hour),
		ID:        uuid.New(),
	}

	captured := ListChargesQuery{}
	repo := &stubRepo{
		listChargesFn: func(ctx context.Context, params ListChargesQuery) ([]models.Charge, *pagination.Cursor, error) {
			captured = params
			return []models.Charge{{ID: uuid.New(), CreatedAt: now}}, &next, nil
		},
	}

	svc, _ := NewService(ServiceParams{Repo: repo})
	status := enums.ChargeStatusSucceeded
	result, err := svc.ListCharges(context.Background(), ListChargesParams{
		MarketID: uuid.New(),
		Limit:    5,
		Cursor:   pagination.EncodeCursor(next),
		Status:   &status,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if captured.Limit != 5 {
		t.Fatalf("expected limit 5, got %d", captured.Limit)
	}
	if captured.Status == nil || *captured.Status != status {
		t.Fatal("status filter not forwarded")
	}
	if captured.Cursor == nil || !captured.Cursor.CreatedAt.Equal(next.CreatedAt) {
		t.Fatal("cursor not forwarded")
	}

	if result.Cursor != pagination.EncodeCursor(next) {
		t.Fatalf("unexpected cursor %s", result.Cursor)
	}
	if len(result.Items) != 1 {
		t.Fatalf("expected 1 charge, got %d", len(result.Items))
	}
}

func TestServiceGetChargeByReference(t *testing.T) {
	charge := &models.Charge{ID: uuid.New(), Status: enums.ChargeStatusPending}
	repo := &stubRepo{
		findRefFn: func(ctx context.Context, reference string) (*models.Charge, error) {
			if reference == "sq-ref-1" {
				return charge, nil
			}
			return nil, nil
		},
	}
	svc, _ := NewService(ServiceParams{Repo: repo})

	found, err := svc.GetChargeByReference(context.Background(), "sq-ref-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if found.ID != charge.ID {
		t.Fatal("wrong charge returned")
	}

	_, err = svc.GetChargeByReference(context.Background(), "unknown-ref")
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}

	_, err = svc.GetChargeByReference(context.Background(), "  ")
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}
