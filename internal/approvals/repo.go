package approvals

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/bazario-app/bazario-backend/pkg/db/models"
	"github.com/bazario-app/bazario-backend/pkg/enums"
)

// Repository handles approval request persistence. Rows are insert-once and
// updated exactly once, by the decision that closes them.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds a GORM DB to approval request operations.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// FindByID loads a request by its UUID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.ApprovalRequest, error) {
	var request models.ApprovalRequest
	if err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&request).Error; err != nil {
		return nil, err
	}
	return &request, nil
}

// ListPending returns the review queue, oldest petition first.
func (r *Repository) ListPending(ctx context.Context) ([]models.ApprovalRequest, error) {
	var requests []models.ApprovalRequest
	if err := r.db.WithContext(ctx).
		Where("status = ?", enums.ApprovalRequestStatusPending).
		Order("requested_at ASC").
		Find(&requests).Error; err != nil {
		return nil, err
	}
	return requests, nil
}

// ListByMarketID returns every request for a market, newest first.
func (r *Repository) ListByMarketID(ctx context.Context, marketID uuid.UUID) ([]models.ApprovalRequest, error) {
	var requests []models.ApprovalRequest
	if err := r.db.WithContext(ctx).
		Where("market_id = ?", marketID).
		Order("requested_at DESC").
		Find(&requests).Error; err != nil {
		return nil, err
	}
	return requests, nil
}

// FindByIDWithTx loads a request using the provided transaction.
func (r *Repository) FindByIDWithTx(tx *gorm.DB, id uuid.UUID) (*models.ApprovalRequest, error) {
	if tx == nil {
		return nil, gorm.ErrInvalidTransaction
	}
	var request models.ApprovalRequest
	if err := tx.First(&request, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &request, nil
}

// FindPendingWithTx looks up the open request for (market, type), if any.
// Callers use it ahead of inserts; uq_approval_requests_pending backstops
// the race.
func (r *Repository) FindPendingWithTx(tx *gorm.DB, marketID uuid.UUID, requestType enums.ApprovalRequestType) (*models.ApprovalRequest, error) {
	if tx == nil {
		return nil, gorm.ErrInvalidTransaction
	}
	var request models.ApprovalRequest
	err := tx.
		Where("market_id = ? AND request_type = ? AND status = ?",
			marketID, requestType, enums.ApprovalRequestStatusPending).
		First(&request).Error
	if err != nil {
		return nil, err
	}
	return &request, nil
}

// CreateWithTx persists a new request inside the provided transaction.
func (r *Repository) CreateWithTx(tx *gorm.DB, request *models.ApprovalRequest) error {
	if tx == nil {
		return gorm.ErrInvalidTransaction
	}
	if request == nil {
		return fmt.Errorf("approval request is required")
	}
	return tx.Create(request).Error
}

// UpdateWithTx saves a decided request inside the provided transaction.
func (r *Repository) UpdateWithTx(tx *gorm.DB, request *models.ApprovalRequest) error {
	if tx == nil {
		return gorm.ErrInvalidTransaction
	}
	if request == nil {
		return fmt.Errorf("approval request is required")
	}
	return tx.Save(request).Error
}
