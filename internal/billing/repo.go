package billing

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/bazario-app/bazario-backend/pkg/db/models"
	"github.com/bazario-app/bazario-backend/pkg/enums"
	"github.com/bazario-app/bazario-backend/pkg/pagination"
)

// Repository handles the plan catalog and the charges ledger.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	ListPlans(ctx context.Context, params ListPlansQuery) ([]models.BillingPlan, error)
	FindPlanByID(ctx context.Context, id string) (*models.BillingPlan, error)
	FindPlanByTier(ctx context.Context, tier enums.SubscriptionPlan) (*models.BillingPlan, error)
	FindDefaultPlan(ctx context.Context) (*models.BillingPlan, error)
	CreateCharge(ctx context.Context, charge *models.Charge) error
	UpdateCharge(ctx context.Context, charge *models.Charge) error
	FindChargeByID(ctx context.Context, id uuid.UUID) (*models.Charge, error)
	FindChargeByReference(ctx context.Context, reference string) (*models.Charge, error)
	FindLatestPendingCharge(ctx context.Context, marketID uuid.UUID) (*models.Charge, error)
	ListCharges(ctx context.Context, params ListChargesQuery) ([]models.Charge, *pagination.Cursor, error)
}

type repository struct {
	db *gorm.DB
}

// ListPlansQuery configures plan catalog queries.
type ListPlansQuery struct {
	Status    *enums.PlanStatus
	IsDefault *bool
}

// ListChargesQuery configures charge ledger queries.
type ListChargesQuery struct {
	MarketID uuid.UUID
	Limit    int
	Cursor   *pagination.Cursor
	Status   *enums.ChargeStatus
}

// NewRepository returns a billing repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) ListPlans(ctx context.Context, params ListPlansQuery) ([]models.BillingPlan, error) {
	query := r.db.WithContext(ctx).Model(&models.BillingPlan{})
	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}
	if params.IsDefault != nil {
		query = query.Where("is_default = ?", *params.IsDefault)
	}

	var plans []models.BillingPlan
	if err := query.Order("monthly_price ASC, id ASC").Find(&plans).Error; err != nil {
		return nil, err
	}
	return plans, nil
}

func (r *repository) FindPlanByID(ctx context.Context, id string) (*models.BillingPlan, error) {
	if id == "" {
		return nil, nil
	}
	var plan models.BillingPlan
	if err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&plan).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &plan, nil
}

func (r *repository) FindPlanByTier(ctx context.Context, tier enums.SubscriptionPlan) (*models.BillingPlan, error) {
	var plan models.BillingPlan
	if err := r.db.WithContext(ctx).
		Where("plan = ?", tier).
		First(&plan).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &plan, nil
}

func (r *repository) FindDefaultPlan(ctx context.Context) (*models.BillingPlan, error) {
	var plan models.BillingPlan
	if err := r.db.WithContext(ctx).
		Where("is_default = ?", true).
		Order("updated_at DESC").
		First(&plan).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &plan, nil
}

func (r *repository) CreateCharge(ctx context.Context, charge *models.Charge) error {
	return r.db.WithContext(ctx).Create(charge).Error
}

func (r *repository) UpdateCharge(ctx context.Context, charge *models.Charge) error {
	return r.db.WithContext(ctx).Save(charge).Error
}

func (r *repository) FindChargeByID(ctx context.Context, id uuid.UUID) (*models.Charge, error) {
	var charge models.Charge
	if err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&charge).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &charge, nil
}

func (r *repository) FindChargeByReference(ctx context.Context, reference string) (*models.Charge, error) {
	if reference == "" {
		return nil, nil
	}
	var charge models.Charge
	if err := r.db.WithContext(ctx).
		Where("reference = ?", reference).
		First(&charge).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &charge, nil
}

func (r *repository) FindLatestPendingCharge(ctx context.Context, marketID uuid.UUID) (*models.Charge, error) {
	var charge models.Charge
	if err := r.db.WithContext(ctx).
		Where("market_id = ? AND status = ?", marketID, enums.ChargeStatusPending).
		Order("created_at DESC").
		First(&charge).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &charge, nil
}

func (r *repository) ListCharges(ctx context.Context, params ListChargesQuery) ([]models.Charge, *pagination.Cursor, error) {
	limit := pagination.NormalizeLimit(params.Limit)
	query := r.db.WithContext(ctx).Model(&models.Charge{}).Where("market_id = ?", params.MarketID)
	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}
	if params.Cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", params.Cursor.CreatedAt, params.Cursor.ID)
	}

	var charges []models.Charge
	if err := query.Order("created_at DESC, id DESC").Limit(pagination.LimitWithBuffer(limit)).Find(&charges).Error; err != nil {
		return nil, nil, err
	}

	if len(charges) > limit {
		charges = charges[:limit]
		// The cursor pins the last row served; the next page filters
		// strictly past it.
		last := charges[limit-1]
		return charges, &pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		}, nil
	}

	return charges, nil, nil
}
