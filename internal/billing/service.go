package billing

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/bazario-app/bazario-backend/pkg/db/models"
	"github.com/bazario-app/bazario-backend/pkg/enums"
	pkgerrors "github.com/bazario-app/bazario-backend/pkg/errors"
	"github.com/bazario-app/bazario-backend/pkg/pagination"
)

// ServiceParams groups dependencies for the billing service.
type ServiceParams struct {
	Repo Repository
}

// Service serves the plan catalog and the charges ledger. Charge rows are
// written by the checkout and renewal flows through Repository.WithTx; this
// service only reads them.
type Service struct {
	repo Repository
}

// NewService builds a billing service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, errors.New("repo is required")
	}
	return &Service{repo: params.Repo}, nil
}

// ListPublicPlans returns the purchasable catalog, cheapest tier first.
func (s *Service) ListPublicPlans(ctx context.Context) ([]models.BillingPlan, error) {
	status := enums.PlanStatusActive
	plans, err := s.repo.ListPlans(ctx, ListPlansQuery{Status: &status})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list plans")
	}
	return plans, nil
}

// GetPlan loads a single catalog row by its text id.
func (s *Service) GetPlan(ctx context.Context, id string) (*models.BillingPlan, error) {
	if strings.TrimSpace(id) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "plan id required")
	}
	plan, err := s.repo.FindPlanByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load plan")
	}
	if plan == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "plan not found")
	}
	return plan, nil
}

// ResolvePlanForCheckout maps a requested tier onto its priced catalog row.
// Hidden and deprecated plans cannot be bought.
func (s *Service) ResolvePlanForCheckout(ctx context.Context, tier enums.SubscriptionPlan) (*models.BillingPlan, error) {
	if !tier.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid plan")
	}
	plan, err := s.repo.FindPlanByTier(ctx, tier)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve plan")
	}
	if plan == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "plan not found")
	}
	if plan.Status != enums.PlanStatusActive {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "plan is not available")
	}
	return plan, nil
}

// ListChargesParams configures a charge ledger page.
type ListChargesParams struct {
	MarketID uuid.UUID
	Limit    int
	Cursor   string
	Status   *enums.ChargeStatus
}

// ListChargesResult is one page of charges plus the cursor for the next.
type ListChargesResult struct {
	Items  []models.Charge
	Cursor string
}

// ListCharges pages through a market's charge history, newest first.
func (s *Service) ListCharges(ctx context.Context, params ListChargesParams) (*ListChargesResult, error) {
	if params.MarketID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "market id required")
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	items, next, err := s.repo.ListCharges(ctx, ListChargesQuery{
		MarketID: params.MarketID,
		Limit:    params.Limit,
		Cursor:   cursor,
		Status:   params.Status,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list charges")
	}

	result := &ListChargesResult{Items: items}
	if next != nil {
		result.Cursor = pagination.EncodeCursor(*next)
	}
	return result, nil
}

// GetChargeByReference matches a gateway callback to its ledger row.
func (s *Service) GetChargeByReference(ctx context.Context, reference string) (*models.Charge, error) {
	if strings.TrimSpace(reference) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reference required")
	}
	charge, err := s.repo.FindChargeByReference(ctx, reference)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load charge")
	}
	if charge == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "charge not found")
	}
	return charge, nil
}
