package history

import (
	"context"

	"github.com/bazario-app/bazario-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository manages persistence for workflow history entries. The entries are
// append-only: no update or delete path exists at any layer above the table's
// immutability trigger.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, entry *models.WorkflowHistoryEntry) error
	ListByMarketID(ctx context.Context, marketID uuid.UUID) ([]models.WorkflowHistoryEntry, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a history repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, entry *models.WorkflowHistoryEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) ListByMarketID(ctx context.Context, marketID uuid.UUID) ([]models.WorkflowHistoryEntry, error) {
	var entries []models.WorkflowHistoryEntry
	if err := r.db.WithContext(ctx).
		Where("market_id = ?", marketID).
		Order("created_at ASC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
