package markets

import (
	"context"
	"fmt"
	"time"

	"github.com/bazario-app/bazario-backend/pkg/db/models"
	"github.com/bazario-app/bazario-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository handles market persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds a GORM DB to market operations.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create persists a new market row.
func (r *Repository) Create(ctx context.Context, dto CreateMarketDTO) (*models.Market, error) {
	market := dto.ToModel()
	if err := r.db.WithContext(ctx).Create(market).Error; err != nil {
		return nil, err
	}
	return market, nil
}

// FindByID loads a market by its UUID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Market, error) {
	var market models.Market
	if err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&market).Error; err != nil {
		return nil, err
	}
	return &market, nil
}

// FindByOwner returns all markets owned by the provided user, newest first.
func (r *Repository) FindByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Market, error) {
	var markets []models.Market
	if err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Find(&markets).Error; err != nil {
		return nil, err
	}
	return markets, nil
}

// Update saves the provided market.
func (r *Repository) Update(ctx context.Context, market *models.Market) error {
	if market == nil {
		return fmt.Errorf("market is required")
	}
	return r.db.WithContext(ctx).Save(market).Error
}

// FindByIDWithTx loads a market using the provided transaction.
func (r *Repository) FindByIDWithTx(tx *gorm.DB, id uuid.UUID) (*models.Market, error) {
	if tx == nil {
		return nil, gorm.ErrInvalidTransaction
	}
	var market models.Market
	if err := tx.First(&market, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &market, nil
}

// UpdateStatusWithTx applies a guarded status move inside the provided
// transaction. The WHERE clause pins the expected current status; callers
// must treat anything but one affected row as a lost race.
func (r *Repository) UpdateStatusWithTx(tx *gorm.DB, id uuid.UUID, from, to enums.MarketStatus) (int64, error) {
	if tx == nil {
		return 0, gorm.ErrInvalidTransaction
	}
	res := tx.Model(&models.Market{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

// UpdateSubscriptionWindowWithTx syncs the denormalized paid window columns
// using the provided transaction.
func (r *Repository) UpdateSubscriptionWindowWithTx(tx *gorm.DB, id uuid.UUID, start, end *time.Time) error {
	if tx == nil {
		return gorm.ErrInvalidTransaction
	}
	return tx.Model(&models.Market{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"subscription_start": start,
			"subscription_end":   end,
		}).Error
}

// ListByStatusUpdatedBefore returns markets sitting in the given status whose
// last touch predates the cutoff. The payment-pending TTL job uses it to find
// abandoned checkouts.
func (r *Repository) ListByStatusUpdatedBefore(ctx context.Context, status enums.MarketStatus, cutoff time.Time) ([]models.Market, error) {
	var markets []models.Market
	if err := r.db.WithContext(ctx).
		Where("status = ? AND updated_at < ?", status, cutoff).
		Order("updated_at ASC").
		Find(&markets).Error; err != nil {
		return nil, err
	}
	return markets, nil
}
