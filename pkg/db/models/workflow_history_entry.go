package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/bazario-app/bazario-backend/pkg/enums"
)

// WorkflowHistoryEntry records an immutable status transition for a market.
// Exactly one row is appended per successful transition, inside the same
// transaction that moved the status. The repository layer exposes no update
// or delete path.
type WorkflowHistoryEntry struct {
	ID          uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	MarketID    uuid.UUID            `gorm:"column:market_id;type:uuid;not null;index"`
	FromStatus  enums.MarketStatus   `gorm:"column:from_status;type:market_status;not null"`
	ToStatus    enums.MarketStatus   `gorm:"column:to_status;type:market_status;not null"`
	Action      enums.WorkflowAction `gorm:"column:action;type:workflow_action;not null"`
	PerformedBy string               `gorm:"column:performed_by;not null"`
	Note        *string              `gorm:"column:note"`
	CreatedAt   time.Time            `gorm:"column:created_at;autoCreateTime"`
}
