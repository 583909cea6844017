package subscriptions

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/bazario-app/bazario-backend/pkg/db/models"
	"github.com/bazario-app/bazario-backend/pkg/enums"
)

// Repository handles subscription persistence. The active-row invariant is
// enforced by the partial unique index uq_subscriptions_active; the guarded
// updates below keep the sweep idempotent under re-runs.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds a GORM DB to subscription operations.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// FindByID loads a subscription by its UUID, nil when absent.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Subscription, error) {
	var sub models.Subscription
	if err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&sub).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &sub, nil
}

// FindActiveByMarket returns the market's current ACTIVE row, nil when the
// market has no open paid window.
func (r *Repository) FindActiveByMarket(ctx context.Context, marketID uuid.UUID) (*models.Subscription, error) {
	var sub models.Subscription
	if err := r.db.WithContext(ctx).
		Where("market_id = ? AND status = ?", marketID, enums.SubscriptionStatusActive).
		First(&sub).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &sub, nil
}

// ListByMarket returns every subscription the market ever held, newest first.
func (r *Repository) ListByMarket(ctx context.Context, marketID uuid.UUID) ([]models.Subscription, error) {
	var subs []models.Subscription
	if err := r.db.WithContext(ctx).
		Where("market_id = ?", marketID).
		Order("starts_at DESC, id DESC").
		Find(&subs).Error; err != nil {
		return nil, err
	}
	return subs, nil
}

// ListLapsed returns subscriptions whose paid window ended at or before the
// cutoff and which no one has closed yet. Cancelled rows are included so the
// sweep can retire their markets when the window runs out.
func (r *Repository) ListLapsed(ctx context.Context, cutoff time.Time) ([]models.Subscription, error) {
	var subs []models.Subscription
	if err := r.db.WithContext(ctx).
		Where("status IN ? AND ends_at <= ?",
			[]enums.SubscriptionStatus{enums.SubscriptionStatusActive, enums.SubscriptionStatusCancelled},
			cutoff).
		Order("ends_at ASC").
		Find(&subs).Error; err != nil {
		return nil, err
	}
	return subs, nil
}

// HasActiveWithTx reports whether the market holds an ACTIVE subscription,
// read on the provided transaction. The workflow engine consults it for every
// paid-family entry.
func (r *Repository) HasActiveWithTx(tx *gorm.DB, marketID uuid.UUID) (bool, error) {
	if tx == nil {
		return false, gorm.ErrInvalidTransaction
	}
	var count int64
	if err := tx.Model(&models.Subscription{}).
		Where("market_id = ? AND status = ?", marketID, enums.SubscriptionStatusActive).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// CreateWithTx inserts a subscription using the provided transaction.
func (r *Repository) CreateWithTx(tx *gorm.DB, sub *models.Subscription) error {
	if tx == nil {
		return gorm.ErrInvalidTransaction
	}
	return tx.Create(sub).Error
}

// UpdateWithTx saves the provided subscription on the transaction.
func (r *Repository) UpdateWithTx(tx *gorm.DB, sub *models.Subscription) error {
	if tx == nil {
		return gorm.ErrInvalidTransaction
	}
	return tx.Save(sub).Error
}

// ExpireWithTx closes a lapsed row. The WHERE clause pins the open statuses,
// so a second sweep over the same row affects nothing.
func (r *Repository) ExpireWithTx(tx *gorm.DB, id uuid.UUID) (int64, error) {
	if tx == nil {
		return 0, gorm.ErrInvalidTransaction
	}
	res := tx.Model(&models.Subscription{}).
		Where("id = ? AND status IN ?", id,
			[]enums.SubscriptionStatus{enums.SubscriptionStatusActive, enums.SubscriptionStatusCancelled}).
		Update("status", enums.SubscriptionStatusExpired)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

// CancelWithTx turns an ACTIVE row into CANCELLED and clears auto-renew. The
// market keeps its lifecycle state until the sweep finds the window lapsed.
func (r *Repository) CancelWithTx(tx *gorm.DB, id uuid.UUID) (int64, error) {
	if tx == nil {
		return 0, gorm.ErrInvalidTransaction
	}
	res := tx.Model(&models.Subscription{}).
		Where("id = ? AND status = ?", id, enums.SubscriptionStatusActive).
		Updates(map[string]interface{}{
			"status":     enums.SubscriptionStatusCancelled,
			"auto_renew": false,
		})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
