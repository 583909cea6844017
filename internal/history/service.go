package history

import (
	"context"
	"fmt"

	"github.com/bazario-app/bazario-backend/pkg/db/models"
	"github.com/bazario-app/bazario-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Service defines operations that record and read the workflow trail.
type Service interface {
	RecordTransition(ctx context.Context, tx *gorm.DB, input RecordTransitionInput) (*models.WorkflowHistoryEntry, error)
	ListByMarketID(ctx context.Context, marketID uuid.UUID) ([]models.WorkflowHistoryEntry, error)
}

type service struct {
	repo Repository
}

// RecordTransitionInput captures the immutable data a history entry requires.
type RecordTransitionInput struct {
	MarketID    uuid.UUID            `json:"market_id"`
	FromStatus  enums.MarketStatus   `json:"from_status"`
	ToStatus    enums.MarketStatus   `json:"to_status"`
	Action      enums.WorkflowAction `json:"action"`
	PerformedBy string               `json:"performed_by"`
	Note        *string              `json:"note,omitempty"`
}

// NewService wires a history service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("history repository required")
	}
	return &service{repo: repo}, nil
}

// RecordTransition appends one entry. Callers moving a market status pass the
// surrounding transaction so the entry lands atomically with the update.
func (s *service) RecordTransition(ctx context.Context, tx *gorm.DB, input RecordTransitionInput) (*models.WorkflowHistoryEntry, error) {
	if input.MarketID == uuid.Nil {
		return nil, fmt.Errorf("market id is required")
	}
	if !input.FromStatus.IsValid() {
		return nil, fmt.Errorf("invalid from status %q", input.FromStatus)
	}
	if !input.ToStatus.IsValid() {
		return nil, fmt.Errorf("invalid to status %q", input.ToStatus)
	}
	if !input.Action.IsValid() {
		return nil, fmt.Errorf("invalid workflow action %q", input.Action)
	}
	if input.PerformedBy == "" {
		return nil, fmt.Errorf("performed by is required")
	}

	entry := &models.WorkflowHistoryEntry{
		MarketID:    input.MarketID,
		FromStatus:  input.FromStatus,
		ToStatus:    input.ToStatus,
		Action:      input.Action,
		PerformedBy: input.PerformedBy,
		Note:        input.Note,
	}

	if err := s.repo.WithTx(tx).Create(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *service) ListByMarketID(ctx context.Context, marketID uuid.UUID) ([]models.WorkflowHistoryEntry, error) {
	if marketID == uuid.Nil {
		return nil, fmt.Errorf("market id is required")
	}
	return s.repo.ListByMarketID(ctx, marketID)
}
